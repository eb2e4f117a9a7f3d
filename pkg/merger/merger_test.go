package merger

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/protomerge/pkg/observability"
	"github.com/platinummonkey/protomerge/pkg/schema"
)

func TestMerge_Errors(t *testing.T) {
	v1 := version(t, "v1", schema.SyntaxProto3, messages(message("Order", scalar("id", 1, schema.FieldTypeString))))
	duplicate := version(t, "v1", schema.SyntaxProto3, messages(message("Order", scalar("id", 1, schema.FieldTypeString))))

	tests := []struct {
		name     string
		versions []*schema.VersionSchema
		wantErr  error
	}{
		{"nil list", nil, ErrNoVersions},
		{"empty list", []*schema.VersionSchema{}, ErrNoVersions},
		{"nil version", []*schema.VersionSchema{v1, nil}, ErrInvalidVersion},
		{"duplicate version", []*schema.VersionSchema{v1, duplicate}, ErrDuplicateVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := New().Merge(context.Background(), tt.versions)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, merged)
		})
	}
}

func orderMessage() *schema.MessageInfo {
	item := message("Item", scalar("sku", 1, schema.FieldTypeString), scalar("qty", 2, schema.FieldTypeInt32))
	m := message("Order",
		scalar("id", 1, schema.FieldTypeString),
		repeated(messageField("items", 2, "shop.Order.Item")),
		mapField("labels", 3, schema.FieldTypeString, schema.FieldTypeString, ""),
		enumField("status", 4, "shop.Order.Status"),
	)
	m.NestedMessages = []*schema.MessageInfo{item}
	m.NestedEnums = []*schema.EnumInfo{{Name: "Status", FullName: "shop.Order.Status", Values: []schema.EnumValue{ev("NEW", 0), ev("PAID", 1)}}}
	return m
}

func TestMerge_SingleVersionIdentity(t *testing.T) {
	v1 := version(t, "v1", schema.SyntaxProto3, messages(orderMessage()))
	merged := mustMerge(t, v1)

	assert.Equal(t, []string{"v1"}, merged.Versions())
	assert.Empty(t, merged.Diagnostics())

	order, ok := merged.Message("Order")
	require.True(t, ok)
	require.Len(t, order.Fields, 4)
	for _, f := range order.Fields {
		assert.Equal(t, ConflictNone, f.Conflict, f.Name)
		assert.Equal(t, []string{"v1"}, f.PresentInVersions)
		require.Len(t, f.Contract.PerVersion, 1)
		assert.Equal(t, f.Contract.PerVersion[0].Contract, f.Contract.Unified)
	}

	assert.Equal(t, "list<Item>", order.Field(2).Unified.String())
	assert.Equal(t, "map<string,string>", order.Field(3).Unified.String())

	item, ok := merged.FindMessage("Order.Item")
	require.True(t, ok)
	assert.Equal(t, "Order.Item", item.Path)
	assert.Len(t, item.Fields, 2)

	status, ok := merged.FindEnum("Order.Status")
	require.True(t, ok)
	assert.Len(t, status.Values, 2)

	summary := merged.Summary()
	assert.Equal(t, 1, summary.Versions)
	assert.Equal(t, 1, summary.Messages)
	assert.Equal(t, 6, summary.Fields)
	assert.Equal(t, 0, summary.Diagnostics)
}

func TestMerge_FieldsMergeByNumber(t *testing.T) {
	merged := mustMerge(t,
		version(t, "v1", schema.SyntaxProto3, messages(message("User",
			scalar("name", 1, schema.FieldTypeString),
			scalar("age", 2, schema.FieldTypeInt32),
		))),
		version(t, "v2", schema.SyntaxProto3, messages(message("User",
			scalar("full_name", 1, schema.FieldTypeString),
			scalar("age", 3, schema.FieldTypeInt32),
		))),
	)

	user, _ := merged.Message("User")
	require.Len(t, user.Fields, 3)

	name := user.Field(1)
	assert.Equal(t, "name", name.Name)
	assert.True(t, name.Renamed())
	assert.Equal(t, []VersionName{{"v1", "name"}, {"v2", "full_name"}}, name.NameHistory)
	assert.Same(t, name, user.FieldByName("full_name"))

	assert.Equal(t, []string{"v1"}, user.Field(2).PresentInVersions)
	assert.Equal(t, []string{"v2"}, user.Field(3).PresentInVersions)
	assert.Nil(t, user.Field(3).Field("v1"))
	assert.NotNil(t, user.Field(3).Field("v2"))
	assert.Empty(t, merged.Diagnostics())
}

func TestMerge_Widening(t *testing.T) {
	var versions []*schema.VersionSchema
	for i, ft := range []schema.FieldType{schema.FieldTypeInt32, schema.FieldTypeInt64, schema.FieldTypeFloat} {
		versions = append(versions, version(t, fmt.Sprintf("v%d", i+1), schema.SyntaxProto3,
			messages(message("Metric", scalar("value", 1, ft)))))
	}

	merged := mustMerge(t, versions...)
	metric, _ := merged.Message("Metric")
	f := metric.Field(1)
	assert.Equal(t, ConflictWidening, f.Conflict)
	assert.Equal(t, "double", f.Unified.String())
	assert.Equal(t, DefaultZeroDouble, f.Contract.Unified.Default)

	diagnostics := merged.Diagnostics()
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "Metric.value", diagnostics[0].Path)
	assert.Equal(t, 1, merged.Summary().FieldConflicts["WIDENING"])
}

func TestMerge_IntEnumIsExclusive(t *testing.T) {
	merged := mustMerge(t,
		version(t, "v1", schema.SyntaxProto3, messages(message("Order", scalar("kind", 1, schema.FieldTypeInt32)))),
		version(t, "v2", schema.SyntaxProto3, messages(message("Order", enumField("kind", 1, "Kind")))),
		version(t, "v3", schema.SyntaxProto3, messages(message("Order", scalar("kind", 1, schema.FieldTypeInt64)))),
	)

	order, _ := merged.Message("Order")
	assert.Equal(t, ConflictIncompatible, order.Field(1).Conflict)
	assert.Empty(t, merged.ConflictEnums())
	assert.Equal(t, 1, merged.Summary().Incompatible)
	assert.Equal(t, 1, merged.Summary().Warnings)
}

func TestMerge_NestedMessages(t *testing.T) {
	v1 := orderMessage()
	v2 := orderMessage()
	v2.NestedMessages[0].Fields[1] = scalar("qty", 2, schema.FieldTypeInt64)
	v2.NestedMessages = append(v2.NestedMessages, message("Refund", scalar("amount", 1, schema.FieldTypeInt64)))

	merged := mustMerge(t,
		version(t, "v1", schema.SyntaxProto3, messages(v1)),
		version(t, "v2", schema.SyntaxProto3, messages(v2)),
	)

	item, ok := merged.FindMessage("Order.Item")
	require.True(t, ok)
	assert.Equal(t, ConflictWidening, item.Field(2).Conflict)

	refund, ok := merged.FindMessage("Order.Refund")
	require.True(t, ok)
	assert.Equal(t, []string{"v2"}, refund.PresentInVersions)

	require.Len(t, merged.Diagnostics(), 1)
	assert.Equal(t, "Order.Item.qty", merged.Diagnostics()[0].Path)

	_, ok = merged.FindMessage("Order.Missing")
	assert.False(t, ok)

	var visited []string
	merged.Walk(func(m *MergedMessage) { visited = append(visited, m.Path) })
	assert.Equal(t, []string{"Order", "Order.Item", "Order.Refund"}, visited)
}

func TestMerge_Ordering(t *testing.T) {
	zeta := func(ft schema.FieldType) *schema.MessageInfo {
		return message("Zeta", scalar("n", 1, ft))
	}
	alpha := func(ft schema.FieldType) *schema.MessageInfo {
		return message("Alpha", scalar("n", 1, ft))
	}

	merged := mustMerge(t,
		version(t, "v1", schema.SyntaxProto3, versionSpec{
			messages: []*schema.MessageInfo{zeta(schema.FieldTypeInt32), alpha(schema.FieldTypeInt32)},
			enums:    []*schema.EnumInfo{enumInfo("Color", ev("RED", 0))},
		}),
		version(t, "v2", schema.SyntaxProto3, versionSpec{
			messages: []*schema.MessageInfo{zeta(schema.FieldTypeInt64), alpha(schema.FieldTypeUint32)},
			enums:    []*schema.EnumInfo{enumInfo("Color", ev("CRIMSON", 0))},
		}),
	)

	var names []string
	for _, m := range merged.Messages() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Zeta", "Alpha"}, names)

	var paths []string
	for _, d := range merged.Diagnostics() {
		paths = append(paths, d.Path)
	}
	assert.Equal(t, []string{"Color.RED", "Alpha.n", "Zeta.n"}, paths)
}

func determinismFixture(t *testing.T) []*schema.VersionSchema {
	types := []schema.FieldType{schema.FieldTypeInt32, schema.FieldTypeInt64, schema.FieldTypeUint32, schema.FieldTypeFloat}
	var versions []*schema.VersionSchema
	for v := 0; v < 3; v++ {
		var msgs []*schema.MessageInfo
		for i := 0; i < 24; i++ {
			m := message(fmt.Sprintf("Message%02d", i),
				scalar("a", 1, types[(i+v)%len(types)]),
				scalar("b", 2, schema.FieldTypeString),
				scalar("c", 3, types[(i*v)%len(types)]),
			)
			if i%3 == 0 {
				m = withOneof(m, fmt.Sprintf("choice_v%d", v%2), 2, 3)
			}
			msgs = append(msgs, m)
		}
		versions = append(versions, version(t, fmt.Sprintf("v%d", v+1), schema.SyntaxProto3, messages(msgs...)))
	}
	return versions
}

func TestMerge_DeterministicAcrossWorkers(t *testing.T) {
	versions := determinismFixture(t)

	sequential, err := New(WithWorkers(1)).Merge(context.Background(), versions)
	require.NoError(t, err)

	for _, workers := range []int{2, 8, 0} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			parallel, err := New(WithWorkers(workers)).Merge(context.Background(), versions)
			require.NoError(t, err)

			assert.Equal(t, sequential.Diagnostics(), parallel.Diagnostics())
			assert.Equal(t, sequential.Summary(), parallel.Summary())
			require.Len(t, parallel.Messages(), len(sequential.Messages()))
			for i, m := range parallel.Messages() {
				assert.Equal(t, sequential.Messages()[i].Name, m.Name)
			}
		})
	}
}

func TestMerge_Exclusions(t *testing.T) {
	build := func(id string, ft schema.FieldType) *schema.VersionSchema {
		order := orderMessage()
		order.Fields = append(order.Fields, scalar("legacy_total", 9, ft))
		return version(t, id, schema.SyntaxProto3, messages(order, message("Internal", scalar("x", 1, ft))))
	}

	merged, err := New(
		WithExcludedMessages("Internal", "Order.Item"),
		WithExcludedFields("Order.legacy_total"),
	).Merge(context.Background(), []*schema.VersionSchema{
		build("v1", schema.FieldTypeInt32),
		build("v2", schema.FieldTypeString),
	})
	require.NoError(t, err)

	_, ok := merged.Message("Internal")
	assert.False(t, ok)
	order, _ := merged.Message("Order")
	assert.Nil(t, order.Field(9))
	assert.Nil(t, order.NestedMessage("Item"))
	assert.Empty(t, merged.Diagnostics())
}

func TestMerge_FieldNameMappings(t *testing.T) {
	v := func(id string) *schema.VersionSchema {
		return version(t, id, schema.SyntaxProto3, messages(
			message("Order", scalar("id", 1, schema.FieldTypeString), scalar("cust_id", 2, schema.FieldTypeString)),
			message("Invoice", scalar("cust_id", 1, schema.FieldTypeString)),
		))
	}

	merged, err := New(WithFieldNameMappings(map[string]string{
		"cust_id":       "customer_id",
		"Order.cust_id": "buyer_id",
	})).Merge(context.Background(), []*schema.VersionSchema{v("v1"), v("v2")})
	require.NoError(t, err)

	order, _ := merged.Message("Order")
	assert.Equal(t, "buyer_id", order.Field(2).Name)
	invoice, _ := merged.Message("Invoice")
	assert.Equal(t, "customer_id", invoice.Field(1).Name)
	assert.Same(t, invoice.Field(1), invoice.FieldByName("cust_id"))
}

func TestMerge_RecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMergeMetrics(registry)

	m := New(WithMetrics(metrics), WithLogger(observability.NewNopLogger()))
	_, err := m.Merge(context.Background(), []*schema.VersionSchema{
		version(t, "v1", schema.SyntaxProto3, messages(message("Metric", scalar("value", 1, schema.FieldTypeInt32)))),
		version(t, "v2", schema.SyntaxProto3, messages(message("Metric", scalar("value", 1, schema.FieldTypeInt64)))),
	})
	require.NoError(t, err)

	_, err = m.Merge(context.Background(), nil)
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MergeRunsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MergeRunsTotal.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MergedMessages))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FieldConflicts.WithLabelValues("WIDENING")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DiagnosticsTotal.WithLabelValues(string(KindTypeConflict))))
}

func TestMerge_PerMessageSyntax(t *testing.T) {
	proto2 := message("Legacy", scalar("name", 1, schema.FieldTypeString))
	proto2.Syntax = schema.SyntaxProto2

	merged := mustMerge(t,
		version(t, "v1", schema.SyntaxProto3, messages(proto2, message("Modern", scalar("name", 1, schema.FieldTypeString)))),
	)

	legacy, _ := merged.Message("Legacy")
	modern, _ := merged.Message("Modern")
	assert.True(t, legacy.Field(1).Contract.Unified.HasMethodExists)
	assert.False(t, modern.Field(1).Contract.Unified.HasMethodExists)
}

func TestMerge_RunID(t *testing.T) {
	v := func(id string) *schema.VersionSchema {
		return version(t, id, schema.SyntaxProto3, messages(message("Order", scalar("id", 1, schema.FieldTypeString))))
	}

	t.Run("keeps the caller's run id", func(t *testing.T) {
		var buf bytes.Buffer
		m := New(WithLogger(observability.NewLogger(observability.InfoLevel, &buf)))

		ctx := observability.WithRunID(context.Background(), "run-42")
		_, err := m.Merge(ctx, []*schema.VersionSchema{v("v1"), v("v2")})
		require.NoError(t, err)

		assert.Contains(t, buf.String(), `"run_id":"run-42"`)
		assert.Contains(t, buf.String(), "merge completed")
	})

	t.Run("generates one when missing", func(t *testing.T) {
		var buf bytes.Buffer
		m := New(WithLogger(observability.NewLogger(observability.InfoLevel, &buf)))

		_, err := m.Merge(context.Background(), []*schema.VersionSchema{v("v1")})
		require.NoError(t, err)

		assert.Contains(t, buf.String(), `"run_id":"`)
		assert.NotContains(t, buf.String(), `"run_id":""`)
	})
}
