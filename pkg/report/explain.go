package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/protomerge/pkg/merger"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrFieldNotFound   = errors.New("field not found")
)

// FieldExplanation describes how one merged field was resolved
type FieldExplanation struct {
	Message     string              `json:"message" yaml:"message"`
	Field       *merger.MergedField `json:"field" yaml:"field"`
	Diagnostics []merger.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// ExplainField looks up a field by message path and field name or number. Historical
// names resolve to the same field.
func ExplainField(merged *merger.MergedSchema, messagePath, field string) (*FieldExplanation, error) {
	msg, ok := merged.FindMessage(messagePath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, messagePath)
	}

	var f *merger.MergedField
	if number, err := strconv.Atoi(field); err == nil {
		f = msg.Field(number)
	} else {
		f = msg.FieldByName(field)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, messagePath, field)
	}

	e := &FieldExplanation{Message: msg.Path, Field: f}
	prefix := msg.Path + "." + f.Name
	for _, d := range merged.Diagnostics() {
		if d.Path == prefix {
			e.Diagnostics = append(e.Diagnostics, d)
		}
	}
	return e, nil
}

// RenderExplanation writes the explanation in the requested format
func RenderExplanation(w io.Writer, e *FieldExplanation, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding json explanation: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding yaml explanation: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		return NewTextRenderer(opts).RenderExplanation(w, e)
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// RenderExplanation prints the per-version contract matrix followed by the unified row
func (r *TextRenderer) RenderExplanation(w io.Writer, e *FieldExplanation) error {
	ew := &errWriter{w: w}
	f := e.Field

	r.header.Fprintf(ew, "%s.%s", e.Message, f.Name)
	fmt.Fprintf(ew, " (field %d)\n", f.Number)
	fmt.Fprintf(ew, "  unified type: %s\n", f.Unified)
	fmt.Fprint(ew, "  conflict: ")
	switch {
	case f.Conflict == merger.ConflictIncompatible:
		r.warning.Fprintln(ew, f.Conflict)
	case f.Conflict != merger.ConflictNone:
		r.conflict.Fprintln(ew, f.Conflict)
	default:
		r.ok.Fprintln(ew, f.Conflict)
	}
	if f.OptionalRequired && f.Conflict != merger.ConflictOptionalRequired {
		fmt.Fprintf(ew, "  also: %s\n", merger.ConflictOptionalRequired)
	}
	if f.MapValueConflict != merger.ConflictNone {
		fmt.Fprintf(ew, "  map value: %s (%s)\n", f.MapValueConflict, f.MapValueType)
	}
	fmt.Fprintln(ew)

	tw := tabwriter.NewWriter(ew, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tDECLARED\tCARDINALITY\tCATEGORY\tPRESENCE\tONEOF\tHAS\tNULLABLE\tDEFAULT")
	for _, vc := range f.Contract.PerVersion {
		name, declared := "", ""
		if raw := f.Field(vc.Version); raw != nil {
			name, declared = raw.Name, raw.TypeString()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", vc.Version, name, declared, contractColumns(vc.Contract))
	}
	fmt.Fprintf(tw, "unified\t%s\t%s\t%s\n", f.Name, f.Unified, contractColumns(f.Contract.Unified))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(e.Diagnostics) > 0 {
		fmt.Fprintln(ew)
		for _, d := range e.Diagnostics {
			r.renderDiagnostic(ew, d)
		}
	}
	return ew.err
}

func contractColumns(c merger.FieldContract) string {
	return strings.Join([]string{
		c.Cardinality.String(),
		c.TypeCategory.String(),
		c.Presence.String(),
		yesNo(c.InOneof),
		yesNo(c.HasMethodExists),
		yesNo(c.Nullable),
		c.Default.String(),
	}, "\t")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
