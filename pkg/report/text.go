package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/platinummonkey/protomerge/pkg/merger"
)

// TextRenderer prints a human-readable merge report
type TextRenderer struct {
	opts     Options
	header   *color.Color
	ok       *color.Color
	conflict *color.Color
	warning  *color.Color
	muted    *color.Color
}

// NewTextRenderer creates a renderer. Colors are disabled with opts.NoColor or when
// color.NoColor is set (non-terminal output).
func NewTextRenderer(opts Options) *TextRenderer {
	r := &TextRenderer{
		opts:     opts,
		header:   color.New(color.FgCyan, color.Bold),
		ok:       color.New(color.FgGreen),
		conflict: color.New(color.FgYellow),
		warning:  color.New(color.FgRed),
		muted:    color.New(color.Faint),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{r.header, r.ok, r.conflict, r.warning, r.muted} {
			c.DisableColor()
		}
	}
	return r
}

// Render writes the summary, messages, enums and diagnostics
func (r *TextRenderer) Render(w io.Writer, merged *merger.MergedSchema) error {
	tw := &errWriter{w: w}
	s := merged.Summary()

	r.header.Fprintf(tw, "Merged %d versions: %s\n", s.Versions, strings.Join(merged.Versions(), ", "))
	fmt.Fprintf(tw, "Messages: %d  Enums: %d  Fields: %d  Diagnostics: %d", s.Messages, s.Enums, s.Fields, s.Diagnostics)
	if s.Warnings > 0 {
		r.warning.Fprintf(tw, " (%d warnings)", s.Warnings)
	}
	fmt.Fprintln(tw)

	for _, m := range merged.Messages() {
		r.renderMessage(tw, m, "")
	}

	for _, e := range merged.Enums() {
		fmt.Fprintln(tw)
		r.renderEnum(tw, e, "")
	}

	if aliases := merged.EnumAliases(); len(aliases) > 0 {
		fmt.Fprintln(tw)
		r.header.Fprintln(tw, "Enum aliases")
		for _, a := range aliases {
			fmt.Fprintf(tw, "  %s -> %s\n", a.NestedPath, a.Target)
		}
	}

	if ces := merged.ConflictEnums(); len(ces) > 0 {
		fmt.Fprintln(tw)
		r.header.Fprintln(tw, "Conflict enums")
		for _, ce := range ces {
			values := make([]string, 0, len(ce.Values))
			for _, v := range ce.Values {
				values = append(values, fmt.Sprintf("%s=%d", v.Name, v.Number))
			}
			fmt.Fprintf(tw, "  %s %s {%s}\n", ce.Key(), ce.EnumName, strings.Join(values, ", "))
		}
	}

	if diagnostics := merged.Diagnostics(); len(diagnostics) > 0 {
		fmt.Fprintln(tw)
		r.header.Fprintln(tw, "Diagnostics")
		for _, d := range diagnostics {
			r.renderDiagnostic(tw, d)
		}
	}

	return tw.err
}

func (r *TextRenderer) renderMessage(w io.Writer, m *merger.MergedMessage, indent string) {
	fmt.Fprintln(w)
	r.header.Fprintf(w, "%s%s", indent, m.Path)
	r.muted.Fprintf(w, " [%s]\n", strings.Join(m.PresentInVersions, " "))

	for _, f := range m.Fields {
		if r.opts.ConflictsOnly && f.Conflict == merger.ConflictNone && !f.Renamed() {
			continue
		}
		r.renderField(w, f, indent+"  ")
	}

	for _, o := range m.Oneofs {
		fmt.Fprintf(w, "%s  oneof %s %v", indent, o.Name, o.FieldNumbers)
		if o.Renamed() {
			r.conflict.Fprintf(w, " (renamed: %s)", strings.Join(o.MergedFrom, ", "))
		}
		fmt.Fprintln(w)
	}

	for _, e := range m.NestedEnums {
		r.renderEnum(w, e, indent+"  ")
	}

	for _, n := range m.NestedMessages {
		r.renderMessage(w, n, indent+"  ")
	}
}

func (r *TextRenderer) renderField(w io.Writer, f *merger.MergedField, indent string) {
	fmt.Fprintf(w, "%s%3d %s %s", indent, f.Number, f.Name, f.Unified)
	switch {
	case f.Conflict == merger.ConflictIncompatible:
		r.warning.Fprintf(w, " %s", f.Conflict)
	case f.Conflict != merger.ConflictNone:
		r.conflict.Fprintf(w, " %s", f.Conflict)
	}
	if f.Renamed() {
		names := make([]string, 0, len(f.NameHistory))
		for _, vn := range f.NameHistory {
			names = append(names, vn.Version+":"+vn.Name)
		}
		r.conflict.Fprintf(w, " renamed(%s)", strings.Join(names, " "))
	}
	r.muted.Fprintf(w, " [%s]\n", strings.Join(f.PresentInVersions, " "))
}

func (r *TextRenderer) renderEnum(w io.Writer, e *merger.MergedEnum, indent string) {
	r.header.Fprintf(w, "%senum %s", indent, e.Path)
	r.muted.Fprintf(w, " [%s]\n", strings.Join(e.PresentInVersions, " "))
	for _, v := range e.Values {
		fmt.Fprintf(w, "%s  %s = %d", indent, v.Name, v.Number)
		if aliases := v.Aliases(); len(aliases) > 0 {
			r.conflict.Fprintf(w, " (also %s)", strings.Join(aliases, ", "))
		}
		fmt.Fprintln(w)
	}
}

func (r *TextRenderer) renderDiagnostic(w io.Writer, d merger.Diagnostic) {
	level := r.ok
	if d.Level == merger.LevelWarning {
		level = r.warning
	}
	level.Fprintf(w, "  %-7s", d.Level)
	fmt.Fprintf(w, " %s %s: %s\n", d.Kind, d.Path, d.Message)
	if len(d.Facts) > 0 {
		facts := make([]string, 0, len(d.Facts))
		for _, f := range d.Facts {
			facts = append(facts, f.Key+"="+f.Value)
		}
		r.muted.Fprintf(w, "          %s\n", strings.Join(facts, " "))
	}
}

// errWriter remembers the first write error so rendering code can ignore it
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
