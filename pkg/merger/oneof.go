package merger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/platinummonkey/protomerge/pkg/schema"
)

// MultipleOneofs names the oneof of a membership change that spans differently
// named oneofs
const MultipleOneofs = "<multiple>"

// OneofConflictType categorizes a oneof disagreement
type OneofConflictType int

const (
	OneofRenamed OneofConflictType = iota
	OneofPartialExistence
	OneofFieldSetDifference
	OneofFieldNumberChange
	OneofFieldTypeConflict
	OneofFieldRemoved
	OneofFieldMembershipChange
)

func (t OneofConflictType) String() string {
	return []string{
		"RENAMED", "PARTIAL_EXISTENCE", "FIELD_SET_DIFFERENCE", "FIELD_NUMBER_CHANGE",
		"FIELD_TYPE_CONFLICT", "FIELD_REMOVED", "FIELD_MEMBERSHIP_CHANGE",
	}[t]
}

func (t OneofConflictType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t OneofConflictType) diagnosticKind() DiagnosticKind {
	switch t {
	case OneofRenamed:
		return KindOneofRenamed
	case OneofPartialExistence:
		return KindOneofPartial
	case OneofFieldSetDifference:
		return KindOneofFieldSetDiff
	case OneofFieldNumberChange:
		return KindOneofFieldNumberChange
	case OneofFieldTypeConflict:
		return KindOneofFieldTypeConflict
	case OneofFieldRemoved:
		return KindOneofFieldRemoved
	case OneofFieldMembershipChange:
		return KindOneofMembershipChange
	}
	return KindOneofFieldSetDiff
}

// OneofConflict records one disagreement about a oneof group
type OneofConflict struct {
	Type             OneofConflictType `json:"type" yaml:"type"`
	OneofName        string            `json:"oneof" yaml:"oneof"`
	Description      string            `json:"description" yaml:"description"`
	AffectedVersions []string          `json:"affected_versions,omitempty" yaml:"affected_versions,omitempty"`
	Facts            []Fact            `json:"facts,omitempty" yaml:"facts,omitempty"`
}

// MergedOneof is one oneof group across versions
type MergedOneof struct {
	Name              string          `json:"name" yaml:"name"`
	MergedFrom        []string        `json:"merged_from,omitempty" yaml:"merged_from,omitempty"`
	VersionNames      []VersionName   `json:"version_names" yaml:"version_names"`
	PresentInVersions []string        `json:"present_in" yaml:"present_in"`
	FieldNumbers      []int           `json:"field_numbers" yaml:"field_numbers"`
	Fields            []*MergedField  `json:"-" yaml:"-"`
	Conflicts         []OneofConflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

// Renamed reports whether versions used different names for the group
func (o *MergedOneof) Renamed() bool {
	return len(o.MergedFrom) > 1
}

// NameIn returns the name the group had in a version
func (o *MergedOneof) NameIn(version string) (string, bool) {
	for _, vn := range o.VersionNames {
		if vn.Version == version {
			return vn.Name, true
		}
	}
	return "", false
}

// HasConflict reports whether a conflict of the given type was recorded
func (o *MergedOneof) HasConflict(t OneofConflictType) bool {
	for _, c := range o.Conflicts {
		if c.Type == t {
			return true
		}
	}
	return false
}

type oneofEntry struct {
	version string
	order   int
	info    *schema.OneofInfo
	msg     *schema.MessageInfo
}

type oneofGroup struct {
	entries []oneofEntry
	first   int
}

func (g *oneofGroup) hasVersion(version string) bool {
	for _, e := range g.entries {
		if e.version == version {
			return true
		}
	}
	return false
}

func (g *oneofGroup) sharesMember(o *schema.OneofInfo) bool {
	for _, e := range g.entries {
		for _, n := range o.FieldNumbers {
			if e.info.Contains(n) {
				return true
			}
		}
	}
	return false
}

func (g *oneofGroup) usesName(name string) bool {
	for _, e := range g.entries {
		if e.info.Name == name {
			return true
		}
	}
	return false
}

// reconcileOneofs groups the oneofs of one message across versions. Groups with an
// identical member number set but different names form renamed groups; everything
// else groups by name. Membership changes are computed per field, independent of the
// groups.
func reconcileOneofs(path string, entries []versionedMessage, fields []*MergedField) ([]*MergedOneof, []OneofConflict, []Diagnostic) {
	var all []oneofEntry
	for i, e := range entries {
		for _, o := range e.msg.RealOneofs() {
			all = append(all, oneofEntry{version: e.version, order: i, info: o, msg: e.msg})
		}
	}

	groups := groupOneofs(all)

	var (
		oneofs      []*MergedOneof
		diagnostics []Diagnostic
	)
	for _, g := range groups {
		o := buildMergedOneof(g, entries, fields)
		oneofs = append(oneofs, o)
		for _, c := range o.Conflicts {
			diagnostics = append(diagnostics, oneofDiagnostic(oneofPath(path, o.Name), c))
		}
	}

	membership := membershipChanges(fields)
	for _, c := range membership {
		diagnostics = append(diagnostics, oneofDiagnostic(path+"."+c.Facts[0].Value, c))
	}
	return oneofs, membership, diagnostics
}

func oneofPath(messagePath, name string) string {
	return messagePath + ".oneof:" + name
}

func groupOneofs(all []oneofEntry) []*oneofGroup {
	var (
		groups   []*oneofGroup
		keyOrder []string
		byKey    = make(map[string][]int)
		consumed = make([]bool, len(all))
	)
	for i, e := range all {
		key := e.info.NumberKey()
		if _, ok := byKey[key]; !ok {
			keyOrder = append(keyOrder, key)
		}
		byKey[key] = append(byKey[key], i)
	}

	var renamed []*oneofGroup
	for _, key := range keyOrder {
		idx := byKey[key]
		names := make(map[string]bool)
		for _, i := range idx {
			names[all[i].info.Name] = true
		}
		if len(names) < 2 {
			continue
		}
		g := &oneofGroup{first: idx[0]}
		for _, i := range idx {
			g.entries = append(g.entries, all[i])
			consumed[i] = true
		}
		renamed = append(renamed, g)
	}
	groups = append(groups, renamed...)

	byName := make(map[string]*oneofGroup)
	for i, e := range all {
		if consumed[i] {
			continue
		}
		if g := renamedGroupFor(renamed, e); g != nil {
			g.entries = append(g.entries, e)
			continue
		}
		g, ok := byName[e.info.Name]
		if !ok {
			g = &oneofGroup{first: i}
			byName[e.info.Name] = g
			groups = append(groups, g)
		}
		g.entries = append(g.entries, e)
	}

	for _, g := range groups {
		sort.SliceStable(g.entries, func(a, b int) bool {
			return g.entries[a].order < g.entries[b].order
		})
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].first < groups[b].first
	})
	return groups
}

// renamedGroupFor attaches a leftover oneof to a renamed group that already uses its
// name or shares a member number with it, so a renamed group that later gains or
// loses a member stays one group. A version joins a group at most once.
func renamedGroupFor(renamed []*oneofGroup, e oneofEntry) *oneofGroup {
	for _, g := range renamed {
		if g.hasVersion(e.version) {
			continue
		}
		if g.usesName(e.info.Name) || g.sharesMember(e.info) {
			return g
		}
	}
	return nil
}

// canonicalName picks the most frequent name. Ties go to the name used by the
// earliest version in schema version order.
func canonicalName(entries []oneofEntry) string {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		if counts[e.info.Name] == 0 {
			order = append(order, e.info.Name)
		}
		counts[e.info.Name]++
	}
	best := order[0]
	for _, name := range order[1:] {
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best
}

func buildMergedOneof(g *oneofGroup, entries []versionedMessage, fields []*MergedField) *MergedOneof {
	o := &MergedOneof{Name: canonicalName(g.entries)}

	seenName := make(map[string]bool)
	seenNumber := make(map[int]bool)
	for _, e := range g.entries {
		o.VersionNames = append(o.VersionNames, VersionName{Version: e.version, Name: e.info.Name})
		o.PresentInVersions = append(o.PresentInVersions, e.version)
		if !seenName[e.info.Name] {
			seenName[e.info.Name] = true
			o.MergedFrom = append(o.MergedFrom, e.info.Name)
		}
		for _, n := range e.info.FieldNumbers {
			if !seenNumber[n] {
				seenNumber[n] = true
				o.FieldNumbers = append(o.FieldNumbers, n)
			}
		}
	}
	for _, f := range fields {
		if seenNumber[f.Number] {
			o.Fields = append(o.Fields, f)
		}
	}

	if o.Renamed() {
		o.Conflicts = append(o.Conflicts, OneofConflict{
			Type:             OneofRenamed,
			OneofName:        o.Name,
			Description:      fmt.Sprintf("oneof renamed across versions: %s", strings.Join(o.MergedFrom, ", ")),
			AffectedVersions: o.PresentInVersions,
			Facts:            versionNameFacts(o.VersionNames),
		})
	}

	if len(g.entries) < len(entries) {
		var missing []string
		for _, e := range entries {
			if !g.hasVersion(e.version) {
				missing = append(missing, e.version)
			}
		}
		o.Conflicts = append(o.Conflicts, OneofConflict{
			Type:             OneofPartialExistence,
			OneofName:        o.Name,
			Description:      fmt.Sprintf("oneof missing in versions: %s", strings.Join(missing, ", ")),
			AffectedVersions: missing,
			Facts: []Fact{
				{Key: "present", Value: strings.Join(o.PresentInVersions, ",")},
				{Key: "missing", Value: strings.Join(missing, ",")},
			},
		})
	}

	if len(g.entries) > 1 {
		o.Conflicts = append(o.Conflicts, fieldSetConflicts(o, g.entries)...)
	}

	for _, f := range o.Fields {
		if !f.HasTypeConflict() {
			continue
		}
		o.Conflicts = append(o.Conflicts, OneofConflict{
			Type:             OneofFieldTypeConflict,
			OneofName:        o.Name,
			Description:      fmt.Sprintf("member %s has a %s conflict", f.Name, f.Conflict),
			AffectedVersions: f.PresentInVersions,
			Facts:            typeFacts(f.Versions),
		})
	}

	return o
}

func fieldSetConflicts(o *MergedOneof, entries []oneofEntry) []OneofConflict {
	var conflicts []OneofConflict

	differs := false
	for _, e := range entries {
		if len(e.info.FieldNumbers) != len(o.FieldNumbers) {
			differs = true
			break
		}
	}
	if differs {
		var affected []string
		var facts []Fact
		for _, e := range entries {
			names := make([]string, 0, len(e.info.FieldNumbers))
			for _, n := range e.info.FieldNumbers {
				names = append(names, memberName(e.msg, n))
			}
			facts = append(facts, Fact{Key: e.version, Value: strings.Join(names, ",")})
			if len(e.info.FieldNumbers) != len(o.FieldNumbers) {
				affected = append(affected, e.version)
			}
		}
		conflicts = append(conflicts, OneofConflict{
			Type:             OneofFieldSetDifference,
			OneofName:        o.Name,
			Description:      "oneof member fields differ across versions",
			AffectedVersions: affected,
			Facts:            facts,
		})
	}

	// Member names whose number moved while staying in the group
	type numbered struct {
		version string
		number  int
	}
	var nameOrder []string
	byName := make(map[string][]numbered)
	for _, e := range entries {
		for _, n := range e.info.FieldNumbers {
			name := memberName(e.msg, n)
			if _, ok := byName[name]; !ok {
				nameOrder = append(nameOrder, name)
			}
			byName[name] = append(byName[name], numbered{e.version, n})
		}
	}
	for _, name := range nameOrder {
		occurrences := byName[name]
		numbers := make(map[int]bool)
		for _, oc := range occurrences {
			numbers[oc.number] = true
		}
		if len(numbers) < 2 {
			continue
		}
		var facts []Fact
		var affected []string
		for _, oc := range occurrences {
			facts = append(facts, Fact{Key: oc.version, Value: strconv.Itoa(oc.number)})
			affected = append(affected, oc.version)
		}
		conflicts = append(conflicts, OneofConflict{
			Type:             OneofFieldNumberChange,
			OneofName:        o.Name,
			Description:      fmt.Sprintf("member %s changed number", name),
			AffectedVersions: affected,
			Facts:            facts,
		})
	}

	first, last := entries[0], entries[len(entries)-1]
	for _, n := range first.info.FieldNumbers {
		if last.info.Contains(n) {
			continue
		}
		name := memberName(first.msg, n)
		conflicts = append(conflicts, OneofConflict{
			Type:             OneofFieldRemoved,
			OneofName:        o.Name,
			Description:      fmt.Sprintf("member %s (%d) removed by %s", name, n, last.version),
			AffectedVersions: []string{last.version},
			Facts: []Fact{
				{Key: "field", Value: name},
				{Key: "number", Value: strconv.Itoa(n)},
				{Key: "since", Value: first.version},
				{Key: "removed_in", Value: last.version},
			},
		})
	}

	return conflicts
}

// membershipChanges finds fields that are oneof members in some versions and plain
// fields in others
func membershipChanges(fields []*MergedField) []OneofConflict {
	var conflicts []OneofConflict
	for _, f := range fields {
		if len(f.Versions) < 2 {
			continue
		}
		var inOneof, plain []string
		oneofNames := make(map[string]bool)
		for _, vf := range f.Versions {
			if vf.Field.InOneof() {
				inOneof = append(inOneof, vf.Version)
				oneofNames[vf.Field.OneofName] = true
			} else {
				plain = append(plain, vf.Version)
			}
		}
		if len(inOneof) == 0 || len(plain) == 0 {
			continue
		}

		name := MultipleOneofs
		if len(oneofNames) == 1 {
			name = f.Versions[indexOfOneofMember(f)].Field.OneofName
		}
		facts := []Fact{{Key: "field", Value: f.Name}}
		for _, vf := range f.Versions {
			membership := "(none)"
			if vf.Field.InOneof() {
				membership = vf.Field.OneofName
			}
			facts = append(facts, Fact{Key: vf.Version, Value: membership})
		}
		conflicts = append(conflicts, OneofConflict{
			Type:             OneofFieldMembershipChange,
			OneofName:        name,
			Description:      fmt.Sprintf("field %s is a oneof member in %s only", f.Name, strings.Join(inOneof, ", ")),
			AffectedVersions: f.PresentInVersions,
			Facts:            facts,
		})
	}
	return conflicts
}

func indexOfOneofMember(f *MergedField) int {
	for i, vf := range f.Versions {
		if vf.Field.InOneof() {
			return i
		}
	}
	return 0
}

func memberName(msg *schema.MessageInfo, number int) string {
	if f := msg.Field(number); f != nil {
		return f.Name
	}
	return strconv.Itoa(number)
}

func versionNameFacts(names []VersionName) []Fact {
	facts := make([]Fact, 0, len(names))
	for _, vn := range names {
		facts = append(facts, Fact{Key: vn.Version, Value: vn.Name})
	}
	return facts
}

func oneofDiagnostic(path string, c OneofConflict) Diagnostic {
	return NewDiagnosticBuilder(c.Type.diagnosticKind(), path).
		WithMessage("%s", c.Description).
		WithFacts(c.Facts...).
		Build()
}
