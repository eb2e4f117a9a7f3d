package merger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/protomerge/pkg/schema"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		fields      []VersionedField
		wantKind    ConflictKind
		wantUnified string
	}{
		{
			name:        "identical types",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeInt32)), vf("v2", scalar("x", 1, schema.FieldTypeInt32))},
			wantKind:    ConflictNone,
			wantUnified: "int",
		},
		{
			name:        "int to long widens",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeInt32)), vf("v2", scalar("x", 1, schema.FieldTypeInt64))},
			wantKind:    ConflictWidening,
			wantUnified: "long",
		},
		{
			name:        "long to int still widens",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeInt64)), vf("v2", scalar("x", 1, schema.FieldTypeInt32))},
			wantKind:    ConflictWidening,
			wantUnified: "long",
		},
		{
			name: "int long float widens to double",
			fields: []VersionedField{
				vf("v1", scalar("x", 1, schema.FieldTypeInt32)),
				vf("v2", scalar("x", 1, schema.FieldTypeInt64)),
				vf("v3", scalar("x", 1, schema.FieldTypeFloat)),
			},
			wantKind:    ConflictWidening,
			wantUnified: "double",
		},
		{
			name:        "int and float widens to float",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeInt32)), vf("v2", scalar("x", 1, schema.FieldTypeFloat))},
			wantKind:    ConflictWidening,
			wantUnified: "float",
		},
		{
			name:        "long and double widens to double",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeInt64)), vf("v2", scalar("x", 1, schema.FieldTypeDouble))},
			wantKind:    ConflictWidening,
			wantUnified: "double",
		},
		{
			name:        "float and double",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeFloat)), vf("v2", scalar("x", 1, schema.FieldTypeDouble))},
			wantKind:    ConflictFloatDouble,
			wantUnified: "double",
		},
		{
			name:        "signed and unsigned 32-bit",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeInt32)), vf("v2", scalar("x", 1, schema.FieldTypeUint32))},
			wantKind:    ConflictSignedUnsigned,
			wantUnified: "long",
		},
		{
			name:        "varint and zigzag 32-bit",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeInt32)), vf("v2", scalar("x", 1, schema.FieldTypeSint32))},
			wantKind:    ConflictSignedUnsigned,
			wantUnified: "long",
		},
		{
			name:        "signed and unsigned 64-bit",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeInt64)), vf("v2", scalar("x", 1, schema.FieldTypeFixed64))},
			wantKind:    ConflictSignedUnsigned,
			wantUnified: "long",
		},
		{
			name:        "two unsigned encodings share a host type",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeUint32)), vf("v2", scalar("x", 1, schema.FieldTypeFixed32))},
			wantKind:    ConflictNone,
			wantUnified: "int",
		},
		{
			name:        "int and enum",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeInt32)), vf("v2", enumField("x", 1, "shop.Status"))},
			wantKind:    ConflictIntEnum,
			wantUnified: "int",
		},
		{
			name: "int and two enums is not int-enum",
			fields: []VersionedField{
				vf("v1", scalar("x", 1, schema.FieldTypeInt32)),
				vf("v2", enumField("x", 1, "shop.Status")),
				vf("v3", enumField("x", 1, "shop.State")),
			},
			wantKind:    ConflictIncompatible,
			wantUnified: "int",
		},
		{
			name:        "two enums",
			fields:      []VersionedField{vf("v1", enumField("x", 1, "shop.Status")), vf("v2", enumField("x", 1, "shop.State"))},
			wantKind:    ConflictEnumEnum,
			wantUnified: "int",
		},
		{
			name:        "string and bytes",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeString)), vf("v2", scalar("x", 1, schema.FieldTypeBytes))},
			wantKind:    ConflictStringBytes,
			wantUnified: "string | bytes",
		},
		{
			name:        "primitive and message",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeString)), vf("v2", messageField("x", 1, "shop.Address"))},
			wantKind:    ConflictPrimitiveMessage,
			wantUnified: "string | Address",
		},
		{
			name:        "bool and string",
			fields:      []VersionedField{vf("v1", scalar("x", 1, schema.FieldTypeBool)), vf("v2", scalar("x", 1, schema.FieldTypeString))},
			wantKind:    ConflictIncompatible,
			wantUnified: "bool",
		},
		{
			name:        "repeated and singular",
			fields:      []VersionedField{vf("v1", repeated(scalar("x", 1, schema.FieldTypeInt32))), vf("v2", scalar("x", 1, schema.FieldTypeInt32))},
			wantKind:    ConflictRepeatedSingle,
			wantUnified: "list<int>",
		},
		{
			name:        "repeated and singular prefers the singular element type",
			fields:      []VersionedField{vf("v1", repeated(scalar("x", 1, schema.FieldTypeInt64))), vf("v2", scalar("x", 1, schema.FieldTypeInt32))},
			wantKind:    ConflictRepeatedSingle,
			wantUnified: "list<int>",
		},
		{
			name:        "repeated widening",
			fields:      []VersionedField{vf("v1", repeated(scalar("x", 1, schema.FieldTypeInt32))), vf("v2", repeated(scalar("x", 1, schema.FieldTypeInt64)))},
			wantKind:    ConflictWidening,
			wantUnified: "list<long>",
		},
		{
			name:        "required and optional",
			fields:      []VersionedField{vf("v1", required(scalar("x", 1, schema.FieldTypeInt32))), vf("v2", scalar("x", 1, schema.FieldTypeInt32))},
			wantKind:    ConflictOptionalRequired,
			wantUnified: "int",
		},
		{
			name: "map, list and singular",
			fields: []VersionedField{
				vf("v1", mapField("x", 1, schema.FieldTypeString, schema.FieldTypeInt32, "")),
				vf("v2", repeated(scalar("x", 1, schema.FieldTypeInt32))),
				vf("v3", scalar("x", 1, schema.FieldTypeInt32)),
			},
			wantKind:    ConflictIncompatible,
			wantUnified: "map<string,int>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.fields)
			assert.Equal(t, tt.wantKind, c.Kind)
			assert.Equal(t, tt.wantUnified, c.Unified.String())
		})
	}
}

func TestClassify_OptionalRequiredIsOrthogonal(t *testing.T) {
	c := Classify([]VersionedField{
		vf("v1", required(scalar("x", 1, schema.FieldTypeInt32))),
		vf("v2", scalar("x", 1, schema.FieldTypeInt64)),
	})

	assert.Equal(t, ConflictWidening, c.Kind)
	assert.True(t, c.OptionalRequired)

	diagnostics := c.diagnostics("Order.x", []VersionedField{
		vf("v1", required(scalar("x", 1, schema.FieldTypeInt32))),
		vf("v2", scalar("x", 1, schema.FieldTypeInt64)),
	})
	assert.Equal(t, []DiagnosticKind{KindTypeConflict, KindOptionalRequired}, kinds(diagnostics))
}

func TestClassify_MapValues(t *testing.T) {
	tests := []struct {
		name         string
		values       []schema.FieldType
		valueNames   []string
		wantKind     ConflictKind
		wantType     string
		wantReported bool
	}{
		{"same value", []schema.FieldType{schema.FieldTypeInt32, schema.FieldTypeInt32}, []string{"", ""}, ConflictNone, "", false},
		{"int and long", []schema.FieldType{schema.FieldTypeInt32, schema.FieldTypeInt64}, []string{"", ""}, ConflictWidening, "long", true},
		{"int and enum", []schema.FieldType{schema.FieldTypeInt32, schema.FieldTypeEnum}, []string{"", "shop.Status"}, ConflictIntEnum, "int", true},
		{"string and int", []schema.FieldType{schema.FieldTypeString, schema.FieldTypeInt32}, []string{"", ""}, ConflictIncompatible, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields []VersionedField
			for i, v := range tt.values {
				fields = append(fields, vf("v"+string(rune('1'+i)), mapField("attrs", 4, schema.FieldTypeString, v, tt.valueNames[i])))
			}

			c := Classify(fields)
			assert.Equal(t, ConflictNone, c.Kind, "map fields keep NONE")
			assert.Equal(t, tt.wantKind, c.MapValueKind)
			assert.Equal(t, tt.wantType, c.MapValueType)

			reported := false
			for _, d := range c.diagnostics("Order.attrs", fields) {
				if d.Kind == KindMapValueConflict {
					reported = true
				}
			}
			assert.Equal(t, tt.wantReported, reported)
		})
	}
}

func TestClassify_Diagnostics(t *testing.T) {
	fields := []VersionedField{
		vf("v1", scalar("amount", 2, schema.FieldTypeInt32)),
		vf("v2", scalar("amount", 2, schema.FieldTypeInt64)),
	}
	diagnostics := Classify(fields).diagnostics("Order.amount", fields)

	assert.Len(t, diagnostics, 1)
	d := diagnostics[0]
	assert.Equal(t, KindTypeConflict, d.Kind)
	assert.Equal(t, "Order.amount", d.Path)
	assert.Equal(t, ConflictWidening, d.Conflict)
	assert.Equal(t, LevelInfo, d.Level)
	v1, _ := d.Fact("v1")
	v2, _ := d.Fact("v2")
	assert.Equal(t, "int32", v1)
	assert.Equal(t, "int64", v2)

	incompatible := []VersionedField{
		vf("v1", scalar("flag", 3, schema.FieldTypeBool)),
		vf("v2", scalar("flag", 3, schema.FieldTypeString)),
	}
	diagnostics = Classify(incompatible).diagnostics("Order.flag", incompatible)
	assert.Equal(t, LevelWarning, diagnostics[0].Level)

	same := []VersionedField{vf("v1", scalar("id", 1, schema.FieldTypeInt32)), vf("v2", scalar("id", 1, schema.FieldTypeInt32))}
	assert.Empty(t, Classify(same).diagnostics("Order.id", same))
}

func TestConflictKind_String(t *testing.T) {
	assert.Equal(t, "INT_ENUM", ConflictIntEnum.String())
	assert.Equal(t, "INCOMPATIBLE", ConflictIncompatible.String())

	k, err := ParseConflictKind("SIGNED_UNSIGNED")
	assert.NoError(t, err)
	assert.Equal(t, ConflictSignedUnsigned, k)

	_, err = ParseConflictKind("BOGUS")
	assert.Error(t, err)
}

func TestConflictKind_Resolvable(t *testing.T) {
	tests := []struct {
		kind ConflictKind
		want bool
	}{
		{ConflictNone, true},
		{ConflictIntEnum, true},
		{ConflictEnumEnum, true},
		{ConflictWidening, true},
		{ConflictNarrowing, true},
		{ConflictFloatDouble, true},
		{ConflictSignedUnsigned, true},
		{ConflictStringBytes, true},
		{ConflictRepeatedSingle, true},
		{ConflictOptionalRequired, true},
		{ConflictPrimitiveMessage, false},
		{ConflictIncompatible, false},
		{ConflictKind(99), false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(int(tt.kind)), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Resolvable())
		})
	}

	t.Run("narrowing is never classified", func(t *testing.T) {
		for _, order := range [][]schema.FieldType{
			{schema.FieldTypeInt64, schema.FieldTypeInt32},
			{schema.FieldTypeInt32, schema.FieldTypeInt64},
		} {
			c := Classify([]VersionedField{
				vf("v1", scalar("amount", 2, order[0])),
				vf("v2", scalar("amount", 2, order[1])),
			})
			assert.Equal(t, ConflictWidening, c.Kind)
		}
	})
}
