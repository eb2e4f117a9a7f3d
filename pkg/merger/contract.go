package merger

import "github.com/platinummonkey/protomerge/pkg/schema"

// Cardinality of a field. Values are ordered by merge priority.
type Cardinality int

const (
	CardinalitySingular Cardinality = iota
	CardinalityRepeated
	CardinalityMap
)

func (c Cardinality) String() string {
	return []string{"SINGULAR", "REPEATED", "MAP"}[c]
}

func (c Cardinality) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// TypeCategory is the coarse type family of a field
type TypeCategory int

const (
	TypeCategoryNumeric TypeCategory = iota // Numeric scalars and bool
	TypeCategoryString
	TypeCategoryBytes
	TypeCategoryEnum
	TypeCategoryMessage
)

func (t TypeCategory) String() string {
	return []string{"SCALAR_NUMERIC", "SCALAR_STRING", "SCALAR_BYTES", "ENUM", "MESSAGE"}[t]
}

func (t TypeCategory) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Presence describes how a version can tell "unset" from "set to default"
type Presence int

const (
	PresenceProto2Optional Presence = iota
	PresenceProto2Required
	PresenceProto3Implicit
	PresenceProto3Explicit
)

func (p Presence) String() string {
	return []string{"PROTO2_OPTIONAL", "PROTO2_REQUIRED", "PROTO3_IMPLICIT", "PROTO3_EXPLICIT_OPTIONAL"}[p]
}

func (p Presence) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// DefaultValue is what a getter returns for an unset field
type DefaultValue int

const (
	DefaultNull DefaultValue = iota
	DefaultZero
	DefaultZeroLong
	DefaultZeroFloat
	DefaultZeroDouble
	DefaultFalse
	DefaultEmptyString
	DefaultEmptyBytes
	DefaultFirstEnumValue
	DefaultEmptyList
	DefaultEmptyMap
)

func (d DefaultValue) String() string {
	return []string{
		"NULL", "ZERO", "ZERO_LONG", "ZERO_FLOAT", "ZERO_DOUBLE", "FALSE",
		"EMPTY_STRING", "EMPTY_BYTES", "FIRST_ENUM_VALUE", "EMPTY_LIST", "EMPTY_MAP",
	}[d]
}

func (d DefaultValue) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// FieldContract is the behavioral contract of one field in one version, or the
// unified contract across versions
type FieldContract struct {
	Cardinality     Cardinality  `json:"cardinality" yaml:"cardinality"`
	TypeCategory    TypeCategory `json:"type_category" yaml:"type_category"`
	Presence        Presence     `json:"presence" yaml:"presence"`
	InOneof         bool         `json:"in_oneof" yaml:"in_oneof"`
	HasMethodExists bool         `json:"has_method_exists" yaml:"has_method_exists"`
	Nullable        bool         `json:"nullable" yaml:"nullable"`
	Default         DefaultValue `json:"default" yaml:"default"`
}

// GetterUsesHasCheck is derived: a getter only checks presence when a has method
// exists and the value can be absent
func (c FieldContract) GetterUsesHasCheck() bool {
	return c.HasMethodExists && c.Nullable
}

// ResolveContract derives the contract of a field declared under the given syntax
func ResolveContract(syntax schema.Syntax, f *schema.FieldInfo) FieldContract {
	c := FieldContract{
		Cardinality:  cardinalityOf(f),
		TypeCategory: categoryOf(f.Type),
		Presence:     presenceOf(syntax, f),
		InOneof:      f.InOneof(),
	}

	switch {
	case c.Cardinality != CardinalitySingular:
		c.HasMethodExists, c.Nullable = false, false
	case c.InOneof:
		c.HasMethodExists, c.Nullable = true, true
	case f.IsRequired():
		c.HasMethodExists, c.Nullable = true, false
	case syntax != schema.SyntaxProto3:
		c.HasMethodExists, c.Nullable = true, true
	case f.ExplicitPresence || f.SyntheticOneof:
		c.HasMethodExists, c.Nullable = true, true
	case f.IsMessage():
		c.HasMethodExists, c.Nullable = true, true
	default:
		c.HasMethodExists, c.Nullable = false, false
	}

	c.Default = defaultFor(c.Cardinality, c.Nullable, f.ElementType(), f.IsEnum())
	return c
}

func cardinalityOf(f *schema.FieldInfo) Cardinality {
	switch {
	case f.IsMap():
		return CardinalityMap
	case f.IsList():
		return CardinalityRepeated
	}
	return CardinalitySingular
}

func categoryOf(ft schema.FieldType) TypeCategory {
	switch ft {
	case schema.FieldTypeString:
		return TypeCategoryString
	case schema.FieldTypeBytes:
		return TypeCategoryBytes
	case schema.FieldTypeEnum:
		return TypeCategoryEnum
	case schema.FieldTypeMessage:
		return TypeCategoryMessage
	}
	return TypeCategoryNumeric
}

func presenceOf(syntax schema.Syntax, f *schema.FieldInfo) Presence {
	switch {
	case f.IsRequired():
		return PresenceProto2Required
	case syntax != schema.SyntaxProto3:
		return PresenceProto2Optional
	case f.ExplicitPresence || f.SyntheticOneof:
		return PresenceProto3Explicit
	}
	return PresenceProto3Implicit
}

func defaultFor(card Cardinality, nullable bool, host string, isEnum bool) DefaultValue {
	switch {
	case card == CardinalityRepeated:
		return DefaultEmptyList
	case card == CardinalityMap:
		return DefaultEmptyMap
	case nullable:
		return DefaultNull
	case isEnum:
		return DefaultFirstEnumValue
	}
	switch host {
	case schema.HostInt:
		return DefaultZero
	case schema.HostLong:
		return DefaultZeroLong
	case schema.HostFloat:
		return DefaultZeroFloat
	case schema.HostDouble:
		return DefaultZeroDouble
	case schema.HostBool:
		return DefaultFalse
	case schema.HostString:
		return DefaultEmptyString
	case schema.HostBytes:
		return DefaultEmptyBytes
	}
	// Required message fields
	return DefaultNull
}

// VersionContract is the contract of a field in one version
type VersionContract struct {
	Version  string        `json:"version" yaml:"version"`
	Contract FieldContract `json:"contract" yaml:"contract"`
}

// MergedFieldContract aggregates the per-version contracts and the unified one
type MergedFieldContract struct {
	PerVersion []VersionContract `json:"per_version" yaml:"per_version"`
	Unified    FieldContract     `json:"unified" yaml:"unified"`
}

// For returns the contract of the field in the given version
func (m MergedFieldContract) For(version string) (FieldContract, bool) {
	for _, vc := range m.PerVersion {
		if vc.Version == version {
			return vc.Contract, true
		}
	}
	return FieldContract{}, false
}

// MergeContracts applies the merge laws to per-version contracts. A single version's
// contract is returned unchanged.
func MergeContracts(perVersion []VersionContract, c Classification) MergedFieldContract {
	merged := MergedFieldContract{PerVersion: perVersion}
	if len(perVersion) == 0 {
		return merged
	}
	if len(perVersion) == 1 {
		merged.Unified = perVersion[0].Contract
		return merged
	}

	first := perVersion[0].Contract
	u := FieldContract{
		TypeCategory:    first.TypeCategory,
		HasMethodExists: true,
	}

	var anyProto2, anyExplicit, anyRequired, allRequired = false, false, false, true
	for _, vc := range perVersion {
		pc := vc.Contract
		u.HasMethodExists = u.HasMethodExists && pc.HasMethodExists
		u.Nullable = u.Nullable || pc.Nullable
		u.InOneof = u.InOneof || pc.InOneof
		if pc.Cardinality > u.Cardinality {
			u.Cardinality = pc.Cardinality
		}
		switch pc.Presence {
		case PresenceProto2Optional:
			anyProto2 = true
			allRequired = false
		case PresenceProto2Required:
			anyProto2 = true
			anyRequired = true
		case PresenceProto3Explicit:
			anyExplicit = true
			allRequired = false
		default:
			allRequired = false
		}
	}
	if c.Kind == ConflictRepeatedSingle && u.Cardinality == CardinalitySingular {
		u.Cardinality = CardinalityRepeated
	}

	switch {
	case anyProto2 && anyRequired && allRequired:
		u.Presence = PresenceProto2Required
	case anyProto2:
		u.Presence = PresenceProto2Optional
	case anyExplicit:
		u.Presence = PresenceProto3Explicit
	default:
		u.Presence = PresenceProto3Implicit
	}

	switch c.Kind {
	case ConflictPrimitiveMessage:
		u.TypeCategory = TypeCategoryMessage
	case ConflictIntEnum, ConflictEnumEnum, ConflictWidening, ConflictFloatDouble, ConflictSignedUnsigned:
		u.TypeCategory = TypeCategoryNumeric
	case ConflictStringBytes:
		u.TypeCategory = TypeCategoryString
	}

	base := c.Unified.Base
	u.Default = defaultFor(u.Cardinality, u.Nullable, base, u.TypeCategory == TypeCategoryEnum)
	merged.Unified = u
	return merged
}
