package schema

import (
	"fmt"
	"sort"
)

// FieldInfo represents one field of one message in one version
type FieldInfo struct {
	Name     string
	Number   int
	Type     FieldType
	Label    FieldLabel
	TypeName string // Fully qualified message/enum name, without leading dot
	Map      *MapInfo

	// OneofName is set when the field belongs to a oneof. SyntheticOneof marks the
	// implicit single-member oneof a proto3 `optional` field is wrapped in.
	OneofName      string
	SyntheticOneof bool

	// ExplicitPresence is set for proto3 `optional` fields and for editions fields
	// whose resolved presence is explicit.
	ExplicitPresence bool

	Deprecated   bool
	DefaultValue string
}

// MapInfo describes the key and value of a map field
type MapInfo struct {
	KeyType       FieldType
	ValueType     FieldType
	ValueTypeName string // For message/enum values
}

// ValueHostType returns the host representation of the map value
func (m *MapInfo) ValueHostType() string {
	if m.ValueType == FieldTypeMessage || m.ValueType == FieldTypeEnum {
		return SimpleName(m.ValueTypeName)
	}
	return m.ValueType.HostType()
}

func (m *MapInfo) String() string {
	value := m.ValueType.String()
	if m.ValueTypeName != "" {
		value = SimpleName(m.ValueTypeName)
	}
	return fmt.Sprintf("map<%s, %s>", m.KeyType, value)
}

// IsMap reports whether the field is a map
func (f *FieldInfo) IsMap() bool {
	return f.Map != nil
}

// IsRepeated is true for repeated fields, maps included
func (f *FieldInfo) IsRepeated() bool {
	return f.Label == FieldLabelRepeated || f.IsMap()
}

// IsList is true for repeated fields that are not maps
func (f *FieldInfo) IsList() bool {
	return f.Label == FieldLabelRepeated && !f.IsMap()
}

// IsRequired reports a proto2 required label
func (f *FieldInfo) IsRequired() bool {
	return f.Label == FieldLabelRequired
}

func (f *FieldInfo) IsMessage() bool {
	return f.Type == FieldTypeMessage && !f.IsMap()
}

func (f *FieldInfo) IsEnum() bool {
	return f.Type == FieldTypeEnum
}

// InOneof reports membership in a real (non-synthetic) oneof
func (f *FieldInfo) InOneof() bool {
	return f.OneofName != "" && !f.SyntheticOneof
}

// ElementType returns the host type of a single element: the scalar host type or the
// simple name of the referenced message/enum.
func (f *FieldInfo) ElementType() string {
	if f.Type == FieldTypeMessage || f.Type == FieldTypeEnum {
		if f.TypeName == "" {
			return f.Type.String()
		}
		return SimpleName(f.TypeName)
	}
	return f.Type.HostType()
}

// TypeString renders the declared type the way it appears in a .proto file
func (f *FieldInfo) TypeString() string {
	if f.IsMap() {
		return f.Map.String()
	}
	t := f.Type.String()
	if f.Type == FieldTypeMessage || f.Type == FieldTypeEnum {
		t = f.ElementType()
	}
	switch f.Label {
	case FieldLabelRepeated:
		return "repeated " + t
	case FieldLabelRequired:
		return "required " + t
	}
	return t
}

// OneofInfo represents a oneof group
type OneofInfo struct {
	Name         string
	FieldNumbers []int // Field numbers in declaration order
	Synthetic    bool
}

// Contains reports whether the field number is a member of the oneof
func (o *OneofInfo) Contains(number int) bool {
	for _, n := range o.FieldNumbers {
		if n == number {
			return true
		}
	}
	return false
}

// NumberKey returns a canonical key for the member set, independent of declaration order
func (o *OneofInfo) NumberKey() string {
	numbers := append([]int(nil), o.FieldNumbers...)
	sort.Ints(numbers)
	return fmt.Sprint(numbers)
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string
	Number int
}

// EnumInfo represents an enum with values in declaration order
type EnumInfo struct {
	Name     string
	FullName string
	Values   []EnumValue
}

// Value returns the first value declared with the given number
func (e *EnumInfo) Value(number int) (EnumValue, bool) {
	for _, v := range e.Values {
		if v.Number == number {
			return v, true
		}
	}
	return EnumValue{}, false
}

// SameValues reports whether both enums declare exactly the same (name, number) pairs
func (e *EnumInfo) SameValues(other *EnumInfo) bool {
	if other == nil || len(e.Values) != len(other.Values) {
		return false
	}
	pairs := make(map[EnumValue]int, len(e.Values))
	for _, v := range e.Values {
		pairs[v]++
	}
	for _, v := range other.Values {
		if pairs[v] == 0 {
			return false
		}
		pairs[v]--
	}
	return true
}

// MessageInfo represents a message in one version
type MessageInfo struct {
	Name       string
	FullName   string // package.Message or package.Outer.Inner
	Syntax     Syntax // Syntax of the declaring file, SyntaxUnknown falls back to the version
	SourceFile string

	Fields         []*FieldInfo
	Oneofs         []*OneofInfo
	NestedMessages []*MessageInfo
	NestedEnums    []*EnumInfo
}

// Field returns the field with the given number
func (m *MessageInfo) Field(number int) *FieldInfo {
	for _, f := range m.Fields {
		if f.Number == number {
			return f
		}
	}
	return nil
}

// FieldByName returns the field with the given name
func (m *MessageInfo) FieldByName(name string) *FieldInfo {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (m *MessageInfo) NestedMessage(name string) *MessageInfo {
	for _, n := range m.NestedMessages {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func (m *MessageInfo) NestedEnum(name string) *EnumInfo {
	for _, e := range m.NestedEnums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Oneof returns the oneof with the given name, synthetic oneofs included
func (m *MessageInfo) Oneof(name string) *OneofInfo {
	for _, o := range m.Oneofs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// RealOneofs returns the declared oneofs, skipping the synthetic ones
func (m *MessageInfo) RealOneofs() []*OneofInfo {
	var out []*OneofInfo
	for _, o := range m.Oneofs {
		if !o.Synthetic {
			out = append(out, o)
		}
	}
	return out
}
