package merger

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/protomerge/pkg/schema"
)

// ConflictKind classifies how one field's type or cardinality differs across versions
type ConflictKind int

const (
	ConflictNone ConflictKind = iota
	ConflictIntEnum
	ConflictEnumEnum
	ConflictWidening
	ConflictNarrowing
	ConflictFloatDouble
	ConflictSignedUnsigned
	ConflictStringBytes
	ConflictPrimitiveMessage
	ConflictRepeatedSingle
	ConflictOptionalRequired
	ConflictIncompatible
)

var conflictKindNames = []string{
	"NONE", "INT_ENUM", "ENUM_ENUM", "WIDENING", "NARROWING", "FLOAT_DOUBLE",
	"SIGNED_UNSIGNED", "STRING_BYTES", "PRIMITIVE_MESSAGE", "REPEATED_SINGLE",
	"OPTIONAL_REQUIRED", "INCOMPATIBLE",
}

func (k ConflictKind) String() string {
	return conflictKindNames[k]
}

// MarshalText renders the kind tag in JSON and YAML output
func (k ConflictKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseConflictKind converts a kind tag back into a ConflictKind
func ParseConflictKind(s string) (ConflictKind, error) {
	for i, name := range conflictKindNames {
		if name == s {
			return ConflictKind(i), nil
		}
	}
	return ConflictNone, fmt.Errorf("unknown conflict kind: %s", s)
}

// Resolvable reports whether the kind has a safe unified representation
func (k ConflictKind) Resolvable() bool {
	switch k {
	case ConflictNone, ConflictIntEnum, ConflictEnumEnum, ConflictWidening, ConflictNarrowing,
		ConflictFloatDouble, ConflictSignedUnsigned, ConflictStringBytes,
		ConflictRepeatedSingle, ConflictOptionalRequired:
		return true
	case ConflictPrimitiveMessage, ConflictIncompatible:
		return false
	}
	return false
}

// UnifiedType is the version-agnostic shape exposed for a merged field
type UnifiedType struct {
	Base     string `json:"base,omitempty" yaml:"base,omitempty"` // Host type or message/enum simple name
	Repeated bool   `json:"repeated,omitempty" yaml:"repeated,omitempty"`
	Map      bool   `json:"map,omitempty" yaml:"map,omitempty"`
	MapKey   string `json:"map_key,omitempty" yaml:"map_key,omitempty"`
	MapValue string `json:"map_value,omitempty" yaml:"map_value,omitempty"`

	// Alternatives holds the other side of an either/or accessor (STRING_BYTES,
	// PRIMITIVE_MESSAGE).
	Alternatives []string `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

func (u UnifiedType) String() string {
	var s string
	switch {
	case u.Map:
		s = fmt.Sprintf("map<%s,%s>", u.MapKey, u.MapValue)
	case u.Repeated:
		s = fmt.Sprintf("list<%s>", u.Base)
	default:
		s = u.Base
	}
	if len(u.Alternatives) > 0 {
		s += " | " + strings.Join(u.Alternatives, " | ")
	}
	return s
}

// VersionedField pairs a field with the version it was declared in
type VersionedField struct {
	Version string
	Field   *schema.FieldInfo
}

// Classification is the result of classifying one field number across versions
type Classification struct {
	Kind ConflictKind

	// OptionalRequired is set when some versions require the field and others do not.
	// When no type conflict exists Kind is ConflictOptionalRequired as well.
	OptionalRequired bool

	Unified UnifiedType

	MapValueKind ConflictKind
	MapValueType string
}

// Classify decides the conflict kind and unified type for one field number. fields
// holds only the versions in which the field exists, in schema version order. The
// function is total: every input resolves to some classification.
func Classify(fields []VersionedField) Classification {
	if len(fields) == 0 {
		return Classification{}
	}

	c := Classification{
		Unified:          typeOf(fields[0].Field),
		OptionalRequired: hasOptionalRequired(fields),
	}

	var maps, lists, singulars int
	for _, vf := range fields {
		switch {
		case vf.Field.IsMap():
			maps++
		case vf.Field.IsList():
			lists++
		default:
			singulars++
		}
	}

	switch {
	case lists > 0 && singulars > 0 && maps == 0:
		c.Kind = ConflictRepeatedSingle
		c.Unified = UnifiedType{Base: repeatedSingleElement(fields), Repeated: true}
	case maps == len(fields):
		c.MapValueKind, c.MapValueType = classifyMapValue(fields)
		if c.MapValueType != "" {
			c.Unified.MapValue = c.MapValueType
		}
	default:
		c.Kind, c.Unified = classifyType(fields)
	}

	if c.Kind == ConflictNone && c.OptionalRequired {
		c.Kind = ConflictOptionalRequired
	}
	return c
}

// HasTypeConflict reports a type or cardinality conflict, ignoring OPTIONAL_REQUIRED
func (c Classification) HasTypeConflict() bool {
	return c.Kind != ConflictNone && c.Kind != ConflictOptionalRequired
}

func classifyType(fields []VersionedField) (ConflictKind, UnifiedType) {
	wire := make(map[string]struct{})
	for _, vf := range fields {
		wire[wireKey(vf.Field)] = struct{}{}
	}
	if len(wire) <= 1 {
		return ConflictNone, typeOf(fields[0].Field)
	}

	repeated := fields[0].Field.IsList()
	if hasSignedUnsignedConflict(fields) {
		return ConflictSignedUnsigned, UnifiedType{Base: schema.HostLong, Repeated: repeated}
	}

	var hosts []string
	seen := make(map[string]bool)
	hasEnum, hasMessage, hasMap, hasPrimitive := false, false, false, false
	allEnums, allNumeric := true, true
	for _, vf := range fields {
		f := vf.Field
		host := f.ElementType()
		if f.IsMap() {
			host = f.Map.String()
			hasMap = true
		}
		if !seen[host] {
			seen[host] = true
			hosts = append(hosts, host)
		}
		if f.IsEnum() {
			hasEnum = true
		} else {
			allEnums = false
		}
		if f.IsMessage() {
			hasMessage = true
		}
		if !f.IsMap() && (f.Type.IsNumeric() || f.Type == schema.FieldTypeBool) {
			hasPrimitive = true
		}
		if f.IsMap() || !f.Type.IsNumeric() {
			allNumeric = false
		}
	}

	// Same host representation, different wire encoding of the same width and sign
	if len(hosts) == 1 {
		return ConflictNone, typeOf(fields[0].Field)
	}

	hasInt := seen[schema.HostInt]
	hasLong := seen[schema.HostLong]
	hasFloat := seen[schema.HostFloat]
	hasDouble := seen[schema.HostDouble]
	hasString := seen[schema.HostString]
	hasBytes := seen[schema.HostBytes]

	switch {
	case hasInt && hasEnum && len(hosts) == 2:
		return ConflictIntEnum, UnifiedType{Base: schema.HostInt, Repeated: repeated}
	case allEnums:
		return ConflictEnumEnum, UnifiedType{Base: schema.HostInt, Repeated: repeated}
	case allNumeric && hasFloat && hasDouble && !hasInt && !hasLong:
		return ConflictFloatDouble, UnifiedType{Base: schema.HostDouble, Repeated: repeated}
	case allNumeric:
		return ConflictWidening, UnifiedType{Base: widest(hasLong, hasFloat, hasDouble), Repeated: repeated}
	case hasString && hasBytes && len(hosts) == 2:
		return ConflictStringBytes, UnifiedType{
			Base:         schema.HostString,
			Repeated:     repeated,
			Alternatives: []string{schema.HostBytes},
		}
	case (hasPrimitive || hasString || hasBytes) && hasMessage && !hasMap:
		return ConflictPrimitiveMessage, primitiveMessageType(fields, repeated)
	}
	return ConflictIncompatible, cardinalityBaseline(fields)
}

// widest applies double > float > long > int. A long mixed with a float widens to
// double: float cannot cover the 64-bit integer range.
func widest(hasLong, hasFloat, hasDouble bool) string {
	switch {
	case hasDouble:
		return schema.HostDouble
	case hasFloat && hasLong:
		return schema.HostDouble
	case hasFloat:
		return schema.HostFloat
	case hasLong:
		return schema.HostLong
	}
	return schema.HostInt
}

func hasSignedUnsignedConflict(fields []VersionedField) bool {
	signed32 := make(map[schema.FieldType]bool)
	signed64 := make(map[schema.FieldType]bool)
	var unsigned32, unsigned64 bool

	for _, vf := range fields {
		f := vf.Field
		if f.IsMap() || f.IsEnum() || f.IsMessage() {
			return false
		}
		switch {
		case f.Type.Is32Bit() && f.Type.IsSigned():
			signed32[f.Type] = true
		case f.Type.Is32Bit() && f.Type.IsUnsigned():
			unsigned32 = true
		case f.Type.Is64Bit() && f.Type.IsSigned():
			signed64[f.Type] = true
		case f.Type.Is64Bit() && f.Type.IsUnsigned():
			unsigned64 = true
		}
	}

	return (len(signed32) > 0 && unsigned32) ||
		(len(signed64) > 0 && unsigned64) ||
		len(signed32) > 1 ||
		len(signed64) > 1
}

func classifyMapValue(fields []VersionedField) (ConflictKind, string) {
	var hosts []string
	seen := make(map[string]bool)
	hasEnum := false
	for _, vf := range fields {
		m := vf.Field.Map
		host := m.ValueHostType()
		if m.ValueType == schema.FieldTypeEnum {
			hasEnum = true
		}
		if !seen[host] {
			seen[host] = true
			hosts = append(hosts, host)
		}
	}
	if len(hosts) <= 1 {
		return ConflictNone, ""
	}

	switch {
	case len(hosts) == 2 && seen[schema.HostInt] && hasEnum:
		return ConflictIntEnum, schema.HostInt
	case len(hosts) == 2 && seen[schema.HostInt] && seen[schema.HostLong]:
		return ConflictWidening, schema.HostLong
	}
	return ConflictIncompatible, ""
}

func hasOptionalRequired(fields []VersionedField) bool {
	var required, optional bool
	for _, vf := range fields {
		switch {
		case vf.Field.IsRepeated():
		case vf.Field.IsRequired():
			required = true
		default:
			optional = true
		}
	}
	return required && optional
}

func repeatedSingleElement(fields []VersionedField) string {
	for _, vf := range fields {
		if !vf.Field.IsRepeated() {
			return vf.Field.ElementType()
		}
	}
	return fields[0].Field.ElementType()
}

func primitiveMessageType(fields []VersionedField, repeated bool) UnifiedType {
	u := UnifiedType{Repeated: repeated}
	seen := make(map[string]bool)
	for _, vf := range fields {
		host := vf.Field.ElementType()
		if seen[host] {
			continue
		}
		seen[host] = true
		if vf.Field.IsMessage() {
			u.Alternatives = append(u.Alternatives, host)
		} else if u.Base == "" {
			u.Base = host
		}
	}
	return u
}

// cardinalityBaseline picks the first field of the highest-priority cardinality
func cardinalityBaseline(fields []VersionedField) UnifiedType {
	for _, vf := range fields {
		if vf.Field.IsMap() {
			return typeOf(vf.Field)
		}
	}
	for _, vf := range fields {
		if vf.Field.IsList() {
			return typeOf(vf.Field)
		}
	}
	return typeOf(fields[0].Field)
}

func typeOf(f *schema.FieldInfo) UnifiedType {
	if f.IsMap() {
		return UnifiedType{
			Map:      true,
			MapKey:   f.Map.KeyType.HostType(),
			MapValue: f.Map.ValueHostType(),
		}
	}
	return UnifiedType{Base: f.ElementType(), Repeated: f.IsList()}
}

func wireKey(f *schema.FieldInfo) string {
	if f.IsMap() {
		return fmt.Sprintf("map/%s/%s/%s", f.Map.KeyType, f.Map.ValueType, f.Map.ValueTypeName)
	}
	return fmt.Sprintf("%s/%s", f.Type, f.TypeName)
}

// diagnostics builds the records for a non-NONE classification of the field at path
func (c Classification) diagnostics(path string, fields []VersionedField) []Diagnostic {
	var out []Diagnostic
	facts := typeFacts(fields)

	if c.HasTypeConflict() {
		level := LevelInfo
		if !c.Kind.Resolvable() {
			level = LevelWarning
		}
		out = append(out, NewDiagnosticBuilder(KindTypeConflict, path).
			WithLevel(level).
			WithConflict(c.Kind).
			WithMessage("%s conflict, unified as %s", c.Kind, c.Unified).
			WithFacts(facts...).
			Build())
	}

	if c.OptionalRequired {
		out = append(out, NewDiagnosticBuilder(KindOptionalRequired, path).
			WithConflict(ConflictOptionalRequired).
			WithMessage("field is required in some versions and optional in others").
			WithFacts(labelFacts(fields)...).
			Build())
	}

	if c.MapValueKind == ConflictIntEnum || c.MapValueKind == ConflictWidening {
		out = append(out, NewDiagnosticBuilder(KindMapValueConflict, path).
			WithConflict(c.MapValueKind).
			WithMessage("map value %s conflict, unified as %s", c.MapValueKind, c.MapValueType).
			WithFacts(facts...).
			Build())
	}

	return out
}

func typeFacts(fields []VersionedField) []Fact {
	facts := make([]Fact, 0, len(fields))
	for _, vf := range fields {
		facts = append(facts, Fact{Key: vf.Version, Value: vf.Field.TypeString()})
	}
	return facts
}

func labelFacts(fields []VersionedField) []Fact {
	facts := make([]Fact, 0, len(fields))
	for _, vf := range fields {
		facts = append(facts, Fact{Key: vf.Version, Value: vf.Field.Label.String()})
	}
	return facts
}
