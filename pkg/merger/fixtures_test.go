package merger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/protomerge/pkg/schema"
)

func scalar(name string, number int, ft schema.FieldType) *schema.FieldInfo {
	return &schema.FieldInfo{Name: name, Number: number, Type: ft}
}

func repeated(f *schema.FieldInfo) *schema.FieldInfo {
	f.Label = schema.FieldLabelRepeated
	return f
}

func required(f *schema.FieldInfo) *schema.FieldInfo {
	f.Label = schema.FieldLabelRequired
	return f
}

func enumField(name string, number int, typeName string) *schema.FieldInfo {
	return &schema.FieldInfo{Name: name, Number: number, Type: schema.FieldTypeEnum, TypeName: typeName}
}

func messageField(name string, number int, typeName string) *schema.FieldInfo {
	return &schema.FieldInfo{Name: name, Number: number, Type: schema.FieldTypeMessage, TypeName: typeName}
}

func mapField(name string, number int, key, value schema.FieldType, valueTypeName string) *schema.FieldInfo {
	return &schema.FieldInfo{
		Name:   name,
		Number: number,
		Type:   schema.FieldTypeMessage,
		Label:  schema.FieldLabelRepeated,
		Map:    &schema.MapInfo{KeyType: key, ValueType: value, ValueTypeName: valueTypeName},
	}
}

func message(name string, fields ...*schema.FieldInfo) *schema.MessageInfo {
	return &schema.MessageInfo{Name: name, Fields: fields}
}

// withOneof marks the numbered fields as members of a oneof and declares it
func withOneof(m *schema.MessageInfo, name string, numbers ...int) *schema.MessageInfo {
	for _, n := range numbers {
		f := m.Field(n)
		if f != nil {
			f.OneofName = name
		}
	}
	m.Oneofs = append(m.Oneofs, &schema.OneofInfo{Name: name, FieldNumbers: numbers})
	return m
}

func enumInfo(name string, values ...schema.EnumValue) *schema.EnumInfo {
	return &schema.EnumInfo{Name: name, Values: values}
}

func ev(name string, number int) schema.EnumValue {
	return schema.EnumValue{Name: name, Number: number}
}

type versionSpec struct {
	messages []*schema.MessageInfo
	enums    []*schema.EnumInfo
}

func version(t testing.TB, id string, syntax schema.Syntax, spec versionSpec) *schema.VersionSchema {
	t.Helper()
	b := schema.NewVersionSchemaBuilder(id, syntax)
	for _, m := range spec.messages {
		b.AddMessage(m)
	}
	for _, e := range spec.enums {
		b.AddEnum(e)
	}
	v, err := b.Build()
	require.NoError(t, err)
	return v
}

func messages(ms ...*schema.MessageInfo) versionSpec {
	return versionSpec{messages: ms}
}

func mustMerge(t *testing.T, versions ...*schema.VersionSchema) *MergedSchema {
	t.Helper()
	merged, err := New().Merge(context.Background(), versions)
	require.NoError(t, err)
	return merged
}

func vf(version string, f *schema.FieldInfo) VersionedField {
	return VersionedField{Version: version, Field: f}
}

func kinds(diagnostics []Diagnostic) []DiagnosticKind {
	out := make([]DiagnosticKind, 0, len(diagnostics))
	for _, d := range diagnostics {
		out = append(out, d.Kind)
	}
	return out
}
