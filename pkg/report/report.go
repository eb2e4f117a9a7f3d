package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/protomerge/pkg/merger"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported output formats
var ErrUnknownFormat = errors.New("unknown report format")

// Format selects the report encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json, yaml and yml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
}

// Document is the machine-readable form of a merge result
type Document struct {
	Versions      []string                `json:"versions" yaml:"versions"`
	Summary       merger.Summary          `json:"summary" yaml:"summary"`
	Messages      []*merger.MergedMessage `json:"messages" yaml:"messages"`
	Enums         []*merger.MergedEnum    `json:"enums,omitempty" yaml:"enums,omitempty"`
	ConflictEnums []*merger.ConflictEnum  `json:"conflict_enums,omitempty" yaml:"conflict_enums,omitempty"`
	EnumAliases   []merger.EnumAlias      `json:"enum_aliases,omitempty" yaml:"enum_aliases,omitempty"`
	Diagnostics   []merger.Diagnostic     `json:"diagnostics" yaml:"diagnostics"`
}

// NewDocument snapshots a merged schema
func NewDocument(merged *merger.MergedSchema) *Document {
	return &Document{
		Versions:      merged.Versions(),
		Summary:       merged.Summary(),
		Messages:      merged.Messages(),
		Enums:         merged.Enums(),
		ConflictEnums: merged.ConflictEnums(),
		EnumAliases:   merged.EnumAliases(),
		Diagnostics:   merged.Diagnostics(),
	}
}

// Options tune the text renderer
type Options struct {
	NoColor       bool
	ConflictsOnly bool // Hide fields without conflicts in the message listing
}

// Render writes the merge result in the requested format
func Render(w io.Writer, merged *merger.MergedSchema, format Format, opts Options) error {
	switch format {
	case FormatText, "":
		return NewTextRenderer(opts).Render(w, merged)
	case FormatJSON:
		return RenderJSON(w, merged)
	case FormatYAML:
		return RenderYAML(w, merged)
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// RenderJSON writes an indented JSON document
func RenderJSON(w io.Writer, merged *merger.MergedSchema) error {
	data, err := json.MarshalIndent(NewDocument(merged), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// RenderYAML writes a YAML document
func RenderYAML(w io.Writer, merged *merger.MergedSchema) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(merged)); err != nil {
		return fmt.Errorf("encoding yaml report: %w", err)
	}
	return enc.Close()
}
