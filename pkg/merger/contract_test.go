package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/protomerge/pkg/schema"
)

func TestResolveContract(t *testing.T) {
	proto3Optional := scalar("nickname", 4, schema.FieldTypeString)
	proto3Optional.OneofName = "_nickname"
	proto3Optional.SyntheticOneof = true
	proto3Optional.ExplicitPresence = true

	oneofMember := scalar("card", 10, schema.FieldTypeString)
	oneofMember.OneofName = "payment_method"

	tests := []struct {
		name         string
		syntax       schema.Syntax
		field        *schema.FieldInfo
		wantCard     Cardinality
		wantCategory TypeCategory
		wantPresence Presence
		wantHas      bool
		wantNullable bool
		wantOneof    bool
		wantDefault  DefaultValue
	}{
		{
			name: "proto2 repeated", syntax: schema.SyntaxProto2,
			field:    repeated(scalar("ids", 1, schema.FieldTypeInt32)),
			wantCard: CardinalityRepeated, wantCategory: TypeCategoryNumeric, wantPresence: PresenceProto2Optional,
			wantDefault: DefaultEmptyList,
		},
		{
			name: "proto3 map", syntax: schema.SyntaxProto3,
			field:    mapField("attrs", 2, schema.FieldTypeString, schema.FieldTypeString, ""),
			wantCard: CardinalityMap, wantCategory: TypeCategoryMessage, wantPresence: PresenceProto3Implicit,
			wantDefault: DefaultEmptyMap,
		},
		{
			name: "proto3 oneof member", syntax: schema.SyntaxProto3,
			field:    oneofMember,
			wantCard: CardinalitySingular, wantCategory: TypeCategoryString, wantPresence: PresenceProto3Implicit,
			wantHas: true, wantNullable: true, wantOneof: true, wantDefault: DefaultNull,
		},
		{
			name: "proto2 optional", syntax: schema.SyntaxProto2,
			field:    scalar("name", 1, schema.FieldTypeString),
			wantCard: CardinalitySingular, wantCategory: TypeCategoryString, wantPresence: PresenceProto2Optional,
			wantHas: true, wantNullable: true, wantDefault: DefaultNull,
		},
		{
			name: "proto2 required", syntax: schema.SyntaxProto2,
			field:    required(scalar("id", 1, schema.FieldTypeInt32)),
			wantCard: CardinalitySingular, wantCategory: TypeCategoryNumeric, wantPresence: PresenceProto2Required,
			wantHas: true, wantDefault: DefaultZero,
		},
		{
			name: "proto3 implicit long", syntax: schema.SyntaxProto3,
			field:    scalar("total", 3, schema.FieldTypeInt64),
			wantCard: CardinalitySingular, wantCategory: TypeCategoryNumeric, wantPresence: PresenceProto3Implicit,
			wantDefault: DefaultZeroLong,
		},
		{
			name: "proto3 implicit bool", syntax: schema.SyntaxProto3,
			field:    scalar("active", 3, schema.FieldTypeBool),
			wantCard: CardinalitySingular, wantCategory: TypeCategoryNumeric, wantPresence: PresenceProto3Implicit,
			wantDefault: DefaultFalse,
		},
		{
			name: "proto3 implicit bytes", syntax: schema.SyntaxProto3,
			field:    scalar("blob", 3, schema.FieldTypeBytes),
			wantCard: CardinalitySingular, wantCategory: TypeCategoryBytes, wantPresence: PresenceProto3Implicit,
			wantDefault: DefaultEmptyBytes,
		},
		{
			name: "proto3 implicit enum", syntax: schema.SyntaxProto3,
			field:    enumField("status", 5, "shop.Status"),
			wantCard: CardinalitySingular, wantCategory: TypeCategoryEnum, wantPresence: PresenceProto3Implicit,
			wantDefault: DefaultFirstEnumValue,
		},
		{
			name: "proto3 message", syntax: schema.SyntaxProto3,
			field:    messageField("address", 6, "shop.Address"),
			wantCard: CardinalitySingular, wantCategory: TypeCategoryMessage, wantPresence: PresenceProto3Implicit,
			wantHas: true, wantNullable: true, wantDefault: DefaultNull,
		},
		{
			name: "proto3 optional keyword", syntax: schema.SyntaxProto3,
			field:    proto3Optional,
			wantCard: CardinalitySingular, wantCategory: TypeCategoryString, wantPresence: PresenceProto3Explicit,
			wantHas: true, wantNullable: true, wantDefault: DefaultNull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ResolveContract(tt.syntax, tt.field)
			assert.Equal(t, tt.wantCard, c.Cardinality)
			assert.Equal(t, tt.wantCategory, c.TypeCategory)
			assert.Equal(t, tt.wantPresence, c.Presence)
			assert.Equal(t, tt.wantHas, c.HasMethodExists)
			assert.Equal(t, tt.wantNullable, c.Nullable)
			assert.Equal(t, tt.wantOneof, c.InOneof)
			assert.Equal(t, tt.wantDefault, c.Default)
			assert.Equal(t, tt.wantHas && tt.wantNullable, c.GetterUsesHasCheck())
		})
	}
}

func TestMergeContracts_SingleVersionIsIdentity(t *testing.T) {
	f := enumField("status", 5, "shop.Status")
	c := ResolveContract(schema.SyntaxProto3, f)

	merged := MergeContracts([]VersionContract{{Version: "v1", Contract: c}}, Classify([]VersionedField{vf("v1", f)}))
	assert.Equal(t, c, merged.Unified)

	got, ok := merged.For("v1")
	assert.True(t, ok)
	assert.Equal(t, c, got)

	_, ok = merged.For("v2")
	assert.False(t, ok)
}

func TestMergeContracts_Laws(t *testing.T) {
	tests := []struct {
		name         string
		versions     []*schema.VersionSchema
		number       int
		wantCard     Cardinality
		wantCategory TypeCategory
		wantPresence Presence
		wantHas      bool
		wantNullable bool
		wantDefault  DefaultValue
	}{
		{
			name: "has is AND and nullable is OR",
			versions: []*schema.VersionSchema{
				version(t, "v1", schema.SyntaxProto2, messages(message("User", scalar("name", 1, schema.FieldTypeString)))),
				version(t, "v2", schema.SyntaxProto3, messages(message("User", scalar("name", 1, schema.FieldTypeString)))),
			},
			number:   1,
			wantCard: CardinalitySingular, wantCategory: TypeCategoryString, wantPresence: PresenceProto2Optional,
			wantHas: false, wantNullable: true, wantDefault: DefaultNull,
		},
		{
			name: "required everywhere stays required",
			versions: []*schema.VersionSchema{
				version(t, "v1", schema.SyntaxProto2, messages(message("User", required(scalar("id", 1, schema.FieldTypeInt32))))),
				version(t, "v2", schema.SyntaxProto2, messages(message("User", required(scalar("id", 1, schema.FieldTypeInt32))))),
			},
			number:   1,
			wantCard: CardinalitySingular, wantCategory: TypeCategoryNumeric, wantPresence: PresenceProto2Required,
			wantHas: true, wantNullable: false, wantDefault: DefaultZero,
		},
		{
			name: "map wins over repeated and singular",
			versions: []*schema.VersionSchema{
				version(t, "v1", schema.SyntaxProto3, messages(message("User", mapField("x", 7, schema.FieldTypeString, schema.FieldTypeInt32, "")))),
				version(t, "v2", schema.SyntaxProto3, messages(message("User", repeated(scalar("x", 7, schema.FieldTypeInt32))))),
				version(t, "v3", schema.SyntaxProto3, messages(message("User", scalar("x", 7, schema.FieldTypeInt32)))),
			},
			number:   7,
			wantCard: CardinalityMap, wantCategory: TypeCategoryMessage, wantPresence: PresenceProto3Implicit,
			wantHas: false, wantNullable: false, wantDefault: DefaultEmptyMap,
		},
		{
			name: "repeated and singular become a list",
			versions: []*schema.VersionSchema{
				version(t, "v1", schema.SyntaxProto3, messages(message("User", repeated(scalar("tags", 3, schema.FieldTypeString))))),
				version(t, "v2", schema.SyntaxProto3, messages(message("User", scalar("tags", 3, schema.FieldTypeString)))),
			},
			number:   3,
			wantCard: CardinalityRepeated, wantCategory: TypeCategoryString, wantPresence: PresenceProto3Implicit,
			wantHas: false, wantNullable: false, wantDefault: DefaultEmptyList,
		},
		{
			name: "widening picks the widest default",
			versions: []*schema.VersionSchema{
				version(t, "v1", schema.SyntaxProto3, messages(message("User", scalar("score", 4, schema.FieldTypeInt32)))),
				version(t, "v2", schema.SyntaxProto3, messages(message("User", scalar("score", 4, schema.FieldTypeInt64)))),
				version(t, "v3", schema.SyntaxProto3, messages(message("User", scalar("score", 4, schema.FieldTypeFloat)))),
			},
			number:   4,
			wantCard: CardinalitySingular, wantCategory: TypeCategoryNumeric, wantPresence: PresenceProto3Implicit,
			wantHas: false, wantNullable: false, wantDefault: DefaultZeroDouble,
		},
		{
			name: "int enum is numeric",
			versions: []*schema.VersionSchema{
				version(t, "v1", schema.SyntaxProto3, messages(message("User", scalar("state", 5, schema.FieldTypeInt32)))),
				version(t, "v2", schema.SyntaxProto3, messages(message("User", enumField("state", 5, "State")))),
			},
			number:   5,
			wantCard: CardinalitySingular, wantCategory: TypeCategoryNumeric, wantPresence: PresenceProto3Implicit,
			wantHas: false, wantNullable: false, wantDefault: DefaultZero,
		},
		{
			name: "primitive and message is a message",
			versions: []*schema.VersionSchema{
				version(t, "v1", schema.SyntaxProto3, messages(message("User", scalar("address", 6, schema.FieldTypeString)))),
				version(t, "v2", schema.SyntaxProto3, messages(message("User", messageField("address", 6, "Address")))),
			},
			number:   6,
			wantCard: CardinalitySingular, wantCategory: TypeCategoryMessage, wantPresence: PresenceProto3Implicit,
			wantHas: false, wantNullable: true, wantDefault: DefaultNull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := mustMerge(t, tt.versions...)
			msg, ok := merged.Message("User")
			require.True(t, ok)
			f := msg.Field(tt.number)
			require.NotNil(t, f)

			u := f.Contract.Unified
			assert.Equal(t, tt.wantCard, u.Cardinality)
			assert.Equal(t, tt.wantCategory, u.TypeCategory)
			assert.Equal(t, tt.wantPresence, u.Presence)
			assert.Equal(t, tt.wantHas, u.HasMethodExists)
			assert.Equal(t, tt.wantNullable, u.Nullable)
			assert.Equal(t, tt.wantDefault, u.Default)
			assert.Len(t, f.Contract.PerVersion, len(tt.versions))
		})
	}
}
