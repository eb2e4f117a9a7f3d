package merger

import "fmt"

// DiagnosticKind is the stable tag consumers match on
type DiagnosticKind string

const (
	KindTypeConflict           DiagnosticKind = "TYPE_CONFLICT"
	KindOptionalRequired       DiagnosticKind = "OPTIONAL_REQUIRED"
	KindMapValueConflict       DiagnosticKind = "MAP_VALUE_CONFLICT"
	KindOneofRenamed           DiagnosticKind = "ONEOF_RENAMED"
	KindOneofPartial           DiagnosticKind = "ONEOF_PARTIAL"
	KindOneofFieldSetDiff      DiagnosticKind = "ONEOF_FIELD_SET_DIFF"
	KindOneofFieldNumberChange DiagnosticKind = "ONEOF_FIELD_NUMBER_CHANGE"
	KindOneofFieldTypeConflict DiagnosticKind = "ONEOF_FIELD_TYPE_CONFLICT"
	KindOneofFieldRemoved      DiagnosticKind = "ONEOF_FIELD_REMOVED"
	KindOneofMembershipChange  DiagnosticKind = "ONEOF_MEMBERSHIP_CHANGE"
	KindEnumEquivalence        DiagnosticKind = "ENUM_EQUIVALENCE"
	KindEnumValueRenamed       DiagnosticKind = "ENUM_VALUE_RENAMED"
	KindConflictEnum           DiagnosticKind = "CONFLICT_ENUM"
)

// Level indicates the severity of a diagnostic. Diagnostics never fail a merge.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
)

func (l Level) String() string {
	return []string{"INFO", "WARNING"}[l]
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Fact is one key/value observation behind a diagnostic, usually version -> value
type Fact struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Diagnostic is a structured record of one place versions disagree
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind" yaml:"kind"`
	Level    Level          `json:"level" yaml:"level"`
	Path     string         `json:"path" yaml:"path"`
	Conflict ConflictKind   `json:"conflict,omitempty" yaml:"conflict,omitempty"`
	Message  string         `json:"message" yaml:"message"`
	Facts    []Fact         `json:"facts,omitempty" yaml:"facts,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", d.Level, d.Kind, d.Path, d.Message)
}

// Fact returns the value recorded under key
func (d Diagnostic) Fact(key string) (string, bool) {
	for _, f := range d.Facts {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// DiagnosticBuilder helps construct diagnostics fluently
type DiagnosticBuilder struct {
	diagnostic Diagnostic
}

// NewDiagnosticBuilder creates a builder for a diagnostic at the given entity path
func NewDiagnosticBuilder(kind DiagnosticKind, path string) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		diagnostic: Diagnostic{
			Kind: kind,
			Path: path,
		},
	}
}

func (b *DiagnosticBuilder) WithLevel(level Level) *DiagnosticBuilder {
	b.diagnostic.Level = level
	return b
}

func (b *DiagnosticBuilder) WithConflict(kind ConflictKind) *DiagnosticBuilder {
	b.diagnostic.Conflict = kind
	return b
}

func (b *DiagnosticBuilder) WithMessage(format string, args ...any) *DiagnosticBuilder {
	b.diagnostic.Message = fmt.Sprintf(format, args...)
	return b
}

func (b *DiagnosticBuilder) WithFact(key, value string) *DiagnosticBuilder {
	b.diagnostic.Facts = append(b.diagnostic.Facts, Fact{Key: key, Value: value})
	return b
}

func (b *DiagnosticBuilder) WithFacts(facts ...Fact) *DiagnosticBuilder {
	b.diagnostic.Facts = append(b.diagnostic.Facts, facts...)
	return b
}

func (b *DiagnosticBuilder) Build() Diagnostic {
	return b.diagnostic
}

// Summary provides an overview of a merge run
type Summary struct {
	Versions       int                    `json:"versions" yaml:"versions"`
	Messages       int                    `json:"messages" yaml:"messages"`
	Enums          int                    `json:"enums" yaml:"enums"`
	Fields         int                    `json:"fields" yaml:"fields"`
	ConflictEnums  int                    `json:"conflict_enums" yaml:"conflict_enums"`
	EnumAliases    int                    `json:"enum_aliases" yaml:"enum_aliases"`
	Diagnostics    int                    `json:"diagnostics" yaml:"diagnostics"`
	Warnings       int                    `json:"warnings" yaml:"warnings"`
	Infos          int                    `json:"infos" yaml:"infos"`
	ByKind         map[DiagnosticKind]int `json:"by_kind,omitempty" yaml:"by_kind,omitempty"`
	FieldConflicts map[string]int         `json:"field_conflicts,omitempty" yaml:"field_conflicts,omitempty"`
	Incompatible   int                    `json:"incompatible" yaml:"incompatible"`
}

func summarizeDiagnostics(summary *Summary, diagnostics []Diagnostic) {
	summary.Diagnostics = len(diagnostics)
	summary.ByKind = make(map[DiagnosticKind]int)
	for _, d := range diagnostics {
		switch d.Level {
		case LevelWarning:
			summary.Warnings++
		case LevelInfo:
			summary.Infos++
		}
		summary.ByKind[d.Kind]++
	}
}
