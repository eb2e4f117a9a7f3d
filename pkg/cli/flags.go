package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/protomerge/pkg/config"
)

// mergeFlags are shared by every command that runs a merge
type mergeFlags struct {
	versions        []string
	configFile      string
	envFile         string
	importPaths     []string
	workers         int
	excludeMessages []string
	excludeFields   []string
	renames         []string
	metricsFile     string
	noCache         bool
}

func (f *mergeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVar(&f.versions, "version", nil, "Version to merge as name=dir, repeatable; order sets the baseline")
	fs.StringVarP(&f.configFile, "config", "c", "", "Merge file (.yaml, .yml or .toml)")
	fs.StringVar(&f.envFile, "env-file", "", "Environment file to load instead of ./.env")
	fs.StringArrayVarP(&f.importPaths, "import-path", "I", nil, "Additional import path for resolving imports, repeatable")
	fs.IntVar(&f.workers, "workers", 0, "Top-level messages merged concurrently (0 uses GOMAXPROCS)")
	fs.StringArrayVar(&f.excludeMessages, "exclude-message", nil, "Message name or nested path to leave out, repeatable")
	fs.StringArrayVar(&f.excludeFields, "exclude-field", nil, "Message.field to leave out, repeatable")
	fs.StringArrayVar(&f.renames, "rename", nil, "Exposed name override as Message.field=name, repeatable")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	fs.BoolVar(&f.noCache, "no-cache", false, "Disable the merge cache")
}

// plan combines environment defaults, the merge file and flags. Flags win over the
// file and the file wins over the environment.
func (f *mergeFlags) plan(cmd *cobra.Command, cfg *config.Config) (*config.MergeFile, error) {
	mf := &config.MergeFile{}
	if f.configFile != "" {
		loaded, err := config.LoadMergeFile(f.configFile)
		if err != nil {
			return nil, err
		}
		mf = loaded
	}

	if len(f.versions) > 0 {
		versions, err := parseVersionFlags(f.versions)
		if err != nil {
			return nil, err
		}
		mf.Versions = versions
	}
	if len(mf.Versions) == 0 {
		return nil, ErrNoVersions
	}

	mf.ImportPaths = append(mf.ImportPaths, f.importPaths...)
	mf.ExcludeMessages = append(mf.ExcludeMessages, f.excludeMessages...)
	mf.ExcludeFields = append(mf.ExcludeFields, f.excludeFields...)

	switch {
	case cmd.Flags().Changed("workers"):
		mf.Workers = f.workers
	case mf.Workers == 0:
		mf.Workers = cfg.Merge.Workers
	}

	if len(f.renames) > 0 {
		if mf.FieldNameMappings == nil {
			mf.FieldNameMappings = make(map[string]string, len(f.renames))
		}
		for _, r := range f.renames {
			from, to, ok := strings.Cut(r, "=")
			if !ok {
				return nil, fmt.Errorf("invalid --rename value %q, expected Message.field=name", r)
			}
			mf.FieldNameMappings[from] = to
		}
	}

	if err := mf.Validate(); err != nil {
		return nil, err
	}
	return mf, nil
}

func parseVersionFlags(values []string) ([]config.VersionSource, error) {
	out := make([]config.VersionSource, 0, len(values))
	for _, v := range values {
		name, dir, ok := strings.Cut(v, "=")
		if !ok || name == "" || dir == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVersionFlag, v)
		}
		out = append(out, config.VersionSource{Name: name, Dir: dir})
	}
	return out, nil
}
