package merger

import (
	"strings"

	"github.com/platinummonkey/protomerge/pkg/schema"
)

// VersionName records the name an entity had in one version
type VersionName struct {
	Version string `json:"version" yaml:"version"`
	Name    string `json:"name" yaml:"name"`
}

// MergedField is one field number of a message across versions. Fields merge by
// number only; a rename keeps the same MergedField and shows up in NameHistory.
type MergedField struct {
	Number            int                 `json:"number" yaml:"number"`
	Name              string              `json:"name" yaml:"name"`
	NameHistory       []VersionName       `json:"name_history" yaml:"name_history"`
	Versions          []VersionedField    `json:"-" yaml:"-"`
	PresentInVersions []string            `json:"present_in" yaml:"present_in"`
	Conflict          ConflictKind        `json:"conflict" yaml:"conflict"`
	OptionalRequired  bool                `json:"optional_required,omitempty" yaml:"optional_required,omitempty"`
	Unified           UnifiedType         `json:"unified" yaml:"unified"`
	Contract          MergedFieldContract `json:"contract" yaml:"contract"`
	MapValueConflict  ConflictKind        `json:"map_value_conflict,omitempty" yaml:"map_value_conflict,omitempty"`
	MapValueType      string              `json:"map_value_type,omitempty" yaml:"map_value_type,omitempty"`
}

// newMergedField panics on an empty version set: callers only build fields that exist
// in at least one version
func newMergedField(name string, fields []VersionedField, c Classification, contract MergedFieldContract) *MergedField {
	if len(fields) == 0 {
		panic("merger: merged field " + name + " has no versions")
	}
	f := &MergedField{
		Number:           fields[0].Field.Number,
		Name:             name,
		Versions:         fields,
		Conflict:         c.Kind,
		OptionalRequired: c.OptionalRequired,
		Unified:          c.Unified,
		Contract:         contract,
		MapValueConflict: c.MapValueKind,
		MapValueType:     c.MapValueType,
	}
	for _, vf := range fields {
		f.PresentInVersions = append(f.PresentInVersions, vf.Version)
		f.NameHistory = append(f.NameHistory, VersionName{Version: vf.Version, Name: vf.Field.Name})
	}
	return f
}

// Field returns the raw field of a version, or nil when absent there
func (f *MergedField) Field(version string) *schema.FieldInfo {
	for _, vf := range f.Versions {
		if vf.Version == version {
			return vf.Field
		}
	}
	return nil
}

func (f *MergedField) IsPresentIn(version string) bool {
	return contains(f.PresentInVersions, version)
}

// Renamed reports whether versions used different names for the number
func (f *MergedField) Renamed() bool {
	for _, vn := range f.NameHistory {
		if vn.Name != f.NameHistory[0].Name {
			return true
		}
	}
	return false
}

// HasTypeConflict ignores a sole OPTIONAL_REQUIRED conflict
func (f *MergedField) HasTypeConflict() bool {
	return f.Conflict != ConflictNone && f.Conflict != ConflictOptionalRequired
}

// MergedMessage is one message across versions
type MergedMessage struct {
	Name              string           `json:"name" yaml:"name"`
	Path              string           `json:"path" yaml:"path"`
	PresentInVersions []string         `json:"present_in" yaml:"present_in"`
	SourceFiles       []VersionName    `json:"source_files,omitempty" yaml:"source_files,omitempty"`
	Fields            []*MergedField   `json:"fields" yaml:"fields"`
	NestedMessages    []*MergedMessage `json:"nested_messages,omitempty" yaml:"nested_messages,omitempty"`
	NestedEnums       []*MergedEnum    `json:"nested_enums,omitempty" yaml:"nested_enums,omitempty"`
	Oneofs            []*MergedOneof   `json:"oneofs,omitempty" yaml:"oneofs,omitempty"`
	MembershipChanges []OneofConflict  `json:"membership_changes,omitempty" yaml:"membership_changes,omitempty"`
}

func (m *MergedMessage) IsPresentIn(version string) bool {
	return contains(m.PresentInVersions, version)
}

// Field returns the merged field with the given number
func (m *MergedMessage) Field(number int) *MergedField {
	for _, f := range m.Fields {
		if f.Number == number {
			return f
		}
	}
	return nil
}

// FieldByName finds a field by its exposed name or any historical name
func (m *MergedMessage) FieldByName(name string) *MergedField {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	for _, f := range m.Fields {
		for _, vn := range f.NameHistory {
			if vn.Name == name {
				return f
			}
		}
	}
	return nil
}

func (m *MergedMessage) NestedMessage(name string) *MergedMessage {
	for _, n := range m.NestedMessages {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func (m *MergedMessage) NestedEnum(name string) *MergedEnum {
	for _, e := range m.NestedEnums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func (m *MergedMessage) Oneof(name string) *MergedOneof {
	for _, o := range m.Oneofs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// MergedSchema is the result of one merge run. It is read-only once returned.
type MergedSchema struct {
	versions      []string
	messages      []*MergedMessage
	enums         []*MergedEnum
	conflictEnums []*ConflictEnum
	aliasOrder    []string
	enumAliases   map[string]string
	diagnostics   []Diagnostic
	summary       Summary

	messagesByName map[string]*MergedMessage
	enumsByName    map[string]*MergedEnum
	conflictByKey  map[string]*ConflictEnum
}

// Versions returns the version identifiers in input order; the first is the baseline
func (s *MergedSchema) Versions() []string {
	return s.versions
}

// Messages returns the top-level messages in first-seen order
func (s *MergedSchema) Messages() []*MergedMessage {
	return s.messages
}

// Message looks up a top-level message
func (s *MergedSchema) Message(name string) (*MergedMessage, bool) {
	m, ok := s.messagesByName[name]
	return m, ok
}

// Enums returns the top-level enums in first-seen order
func (s *MergedSchema) Enums() []*MergedEnum {
	return s.enums
}

// Enum looks up a top-level enum
func (s *MergedSchema) Enum(name string) (*MergedEnum, bool) {
	e, ok := s.enumsByName[name]
	return e, ok
}

// ConflictEnum returns the companion enum of an INT_ENUM field. messageName is the
// message path, e.g. Order or Order.Item.
func (s *MergedSchema) ConflictEnum(messageName, fieldName string) (*ConflictEnum, bool) {
	ce, ok := s.conflictByKey[conflictEnumKey(messageName, fieldName)]
	return ce, ok
}

func (s *MergedSchema) ConflictEnums() []*ConflictEnum {
	return s.conflictEnums
}

// EquivalentEnumAlias maps a nested enum path (Order.Status) to the top-level enum it
// was folded into
func (s *MergedSchema) EquivalentEnumAlias(nestedPath string) (string, bool) {
	target, ok := s.enumAliases[nestedPath]
	return target, ok
}

// EnumAlias links a nested enum to the equivalent top-level enum
type EnumAlias struct {
	NestedPath string `json:"nested_path" yaml:"nested_path"`
	Target     string `json:"target" yaml:"target"`
}

// EnumAliases returns the alias pairs in discovery order
func (s *MergedSchema) EnumAliases() []EnumAlias {
	out := make([]EnumAlias, 0, len(s.aliasOrder))
	for _, path := range s.aliasOrder {
		out = append(out, EnumAlias{NestedPath: path, Target: s.enumAliases[path]})
	}
	return out
}

// Diagnostics returns every diagnostic of the run in deterministic order
func (s *MergedSchema) Diagnostics() []Diagnostic {
	return s.diagnostics
}

// DiagnosticsOfKind filters diagnostics by kind
func (s *MergedSchema) DiagnosticsOfKind(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func (s *MergedSchema) Summary() Summary {
	return s.summary
}

// FindMessage resolves a dotted path such as Order.Item
func (s *MergedSchema) FindMessage(path string) (*MergedMessage, bool) {
	parts := strings.Split(path, ".")
	m, ok := s.messagesByName[parts[0]]
	if !ok {
		return nil, false
	}
	for _, part := range parts[1:] {
		if m = m.NestedMessage(part); m == nil {
			return nil, false
		}
	}
	return m, true
}

// FindEnum resolves a top-level enum name or a nested path such as Order.Status.
// Aliased nested enums resolve to their top-level target.
func (s *MergedSchema) FindEnum(path string) (*MergedEnum, bool) {
	if target, ok := s.enumAliases[path]; ok {
		path = target
	}
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return s.Enum(path)
	}
	m, ok := s.FindMessage(path[:i])
	if !ok {
		return nil, false
	}
	e := m.NestedEnum(path[i+1:])
	return e, e != nil
}

// Walk visits every message depth-first, parents before children
func (s *MergedSchema) Walk(fn func(*MergedMessage)) {
	var walk func(*MergedMessage)
	walk = func(m *MergedMessage) {
		fn(m)
		for _, n := range m.NestedMessages {
			walk(n)
		}
	}
	for _, m := range s.messages {
		walk(m)
	}
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
