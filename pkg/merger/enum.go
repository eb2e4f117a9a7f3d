package merger

import (
	"sort"
	"strings"
	"unicode"

	"github.com/platinummonkey/protomerge/pkg/schema"
)

// MergedEnumValue is one enum number across versions
type MergedEnumValue struct {
	Name              string        `json:"name" yaml:"name"`
	Number            int           `json:"number" yaml:"number"`
	PresentInVersions []string      `json:"present_in" yaml:"present_in"`
	VersionNames      []VersionName `json:"version_names,omitempty" yaml:"version_names,omitempty"`
}

// Aliases returns the names other versions used for this number
func (v *MergedEnumValue) Aliases() []string {
	var out []string
	seen := map[string]bool{v.Name: true}
	for _, vn := range v.VersionNames {
		if !seen[vn.Name] {
			seen[vn.Name] = true
			out = append(out, vn.Name)
		}
	}
	return out
}

// MergedEnum is the union of one enum's values across versions
type MergedEnum struct {
	Name              string             `json:"name" yaml:"name"`
	Path              string             `json:"path" yaml:"path"`
	PresentInVersions []string           `json:"present_in" yaml:"present_in"`
	Values            []*MergedEnumValue `json:"values" yaml:"values"`
}

// Value returns the merged value with the given number
func (e *MergedEnum) Value(number int) *MergedEnumValue {
	for _, v := range e.Values {
		if v.Number == number {
			return v
		}
	}
	return nil
}

type versionedEnum struct {
	version string
	info    *schema.EnumInfo
}

// mergeEnum unions values by number. The first-seen name wins; every version's name
// is kept on the value.
func mergeEnum(path string, entries []versionedEnum) (*MergedEnum, []Diagnostic) {
	e := &MergedEnum{Name: schema.SimpleName(path), Path: path}
	byNumber := make(map[int]*MergedEnumValue)

	for _, ve := range entries {
		e.PresentInVersions = append(e.PresentInVersions, ve.version)
		seenInVersion := make(map[int]bool)
		for _, v := range ve.info.Values {
			// allow_alias: only the first name per number counts for a version
			if seenInVersion[v.Number] {
				continue
			}
			seenInVersion[v.Number] = true

			mv, ok := byNumber[v.Number]
			if !ok {
				mv = &MergedEnumValue{Name: v.Name, Number: v.Number}
				byNumber[v.Number] = mv
				e.Values = append(e.Values, mv)
			}
			mv.PresentInVersions = append(mv.PresentInVersions, ve.version)
			mv.VersionNames = append(mv.VersionNames, VersionName{Version: ve.version, Name: v.Name})
		}
	}

	var diagnostics []Diagnostic
	for _, v := range e.Values {
		if len(v.Aliases()) == 0 {
			continue
		}
		diagnostics = append(diagnostics, NewDiagnosticBuilder(KindEnumValueRenamed, path+"."+v.Name).
			WithMessage("enum value %d renamed: %s", v.Number, strings.Join(append([]string{v.Name}, v.Aliases()...), ", ")).
			WithFacts(versionNameFacts(v.VersionNames)...).
			Build())
	}
	return e, diagnostics
}

// equivalentTopLevel reports whether every version's nested enum declares exactly the
// same values as every declaration of the same-named top-level enum. A nested enum
// that differs in any version keeps its own merged values.
func equivalentTopLevel(nested []versionedEnum, topLevel []versionedEnum) bool {
	if len(nested) == 0 || len(topLevel) == 0 {
		return false
	}
	for _, n := range nested {
		for _, t := range topLevel {
			if !n.info.SameValues(t.info) {
				return false
			}
		}
	}
	return true
}

func equivalenceDiagnostic(nestedPath, target string, nested, topLevel []versionedEnum) Diagnostic {
	b := NewDiagnosticBuilder(KindEnumEquivalence, nestedPath).
		WithMessage("nested enum %s is equivalent to top-level enum %s", nestedPath, target)
	for _, n := range nested {
		b.WithFact(n.version, nestedPath)
	}
	for _, t := range topLevel {
		b.WithFact(t.version, target)
	}
	return b.Build()
}

// ConflictEnumValue is one value of a generated companion enum
type ConflictEnumValue struct {
	Name   string `json:"name" yaml:"name"`
	Number int    `json:"number" yaml:"number"`
}

// ConflictEnum unifies the enum value sets behind an INT_ENUM field
type ConflictEnum struct {
	MessageName      string              `json:"message" yaml:"message"`
	FieldName        string              `json:"field" yaml:"field"`
	EnumName         string              `json:"enum" yaml:"enum"`
	Values           []ConflictEnumValue `json:"values" yaml:"values"`
	VersionEnumTypes []VersionName       `json:"version_enum_types" yaml:"version_enum_types"`
}

// Key identifies the conflict enum as Message.field
func (c *ConflictEnum) Key() string {
	return conflictEnumKey(c.MessageName, c.FieldName)
}

func conflictEnumKey(messageName, fieldName string) string {
	return messageName + "." + fieldName
}

// buildConflictEnum collects the values of every enum an INT_ENUM field used
func buildConflictEnum(messagePath string, field *MergedField, entries []versionedMessage) *ConflictEnum {
	ce := &ConflictEnum{
		MessageName: messagePath,
		FieldName:   field.Name,
		EnumName:    pascalCase(field.Name),
	}

	byNumber := make(map[int]string)
	for _, vf := range field.Versions {
		if !vf.Field.IsEnum() {
			continue
		}
		var entry versionedMessage
		for _, e := range entries {
			if e.version == vf.Version {
				entry = e
				break
			}
		}
		ce.VersionEnumTypes = append(ce.VersionEnumTypes, VersionName{Version: vf.Version, Name: vf.Field.TypeName})

		info := resolveEnum(entry, vf.Field.TypeName)
		if info == nil {
			continue
		}
		for _, v := range info.Values {
			if _, ok := byNumber[v.Number]; !ok {
				byNumber[v.Number] = v.Name
			}
		}
	}

	for number, name := range byNumber {
		ce.Values = append(ce.Values, ConflictEnumValue{Name: name, Number: number})
	}
	sort.Slice(ce.Values, func(i, j int) bool {
		return ce.Values[i].Number < ce.Values[j].Number
	})
	return ce
}

func resolveEnum(entry versionedMessage, typeName string) *schema.EnumInfo {
	if entry.schema == nil {
		return nil
	}
	if info, ok := entry.schema.EnumByFullName(strings.TrimPrefix(typeName, ".")); ok {
		return info
	}
	simple := schema.SimpleName(typeName)
	if entry.msg != nil {
		if info := entry.msg.NestedEnum(simple); info != nil {
			return info
		}
	}
	if info, ok := entry.schema.Enum(simple); ok {
		return info
	}
	return nil
}

// pascalCase turns a snake_case field name into an enum type name
func pascalCase(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
