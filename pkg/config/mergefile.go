package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/protomerge/pkg/merger"
)

// VersionSource names a version and the directory holding its .proto files
type VersionSource struct {
	Name string `yaml:"name" toml:"name"`
	Dir  string `yaml:"dir" toml:"dir"`
}

// MergeFile is the on-disk merge configuration
type MergeFile struct {
	Versions          []VersionSource   `yaml:"versions" toml:"versions"`
	ImportPaths       []string          `yaml:"import_paths" toml:"import_paths"`
	Workers           int               `yaml:"workers" toml:"workers"`
	ExcludeMessages   []string          `yaml:"exclude_messages" toml:"exclude_messages"`
	ExcludeFields     []string          `yaml:"exclude_fields" toml:"exclude_fields"`
	FieldNameMappings map[string]string `yaml:"field_name_mappings" toml:"field_name_mappings"`
}

// LoadMergeFile reads a merge file. The format follows the extension: .yaml, .yml or
// .toml. Relative version directories and import paths resolve against the file's
// directory.
func LoadMergeFile(path string) (*MergeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading merge file: %w", err)
	}

	var f MergeFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing merge file %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range f.Versions {
		f.Versions[i].Dir = resolve(base, f.Versions[i].Dir)
	}
	for i := range f.ImportPaths {
		f.ImportPaths[i] = resolve(base, f.ImportPaths[i])
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// Validate reports every problem in the file at once
func (f *MergeFile) Validate() error {
	var errs []error

	seen := make(map[string]bool)
	for i, v := range f.Versions {
		if v.Name == "" {
			errs = append(errs, fmt.Errorf("version %d has no name", i))
		}
		if v.Dir == "" {
			errs = append(errs, fmt.Errorf("version %q has no dir", v.Name))
		}
		if v.Name != "" && seen[v.Name] {
			errs = append(errs, fmt.Errorf("version %q is listed twice", v.Name))
		}
		seen[v.Name] = true
	}

	if f.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", f.Workers))
	}

	for _, field := range f.ExcludeFields {
		if !strings.Contains(field, ".") {
			errs = append(errs, fmt.Errorf("excluded field %q must be Message.field", field))
		}
	}

	for from, to := range f.FieldNameMappings {
		if from == "" || to == "" {
			errs = append(errs, fmt.Errorf("field name mapping %q -> %q has an empty side", from, to))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidMergeFile, errors.Join(errs...))
	}
	return nil
}

// Options converts the file into merger options
func (f *MergeFile) Options() merger.Options {
	return merger.Options{
		Workers:           f.Workers,
		ExcludedMessages:  f.ExcludeMessages,
		ExcludedFields:    f.ExcludeFields,
		FieldNameMappings: f.FieldNameMappings,
	}
}
