package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/protomerge/pkg/merger"
	"github.com/platinummonkey/protomerge/pkg/report"
)

type mergeOptions struct {
	mergeFlags
	format             string
	output             string
	noColor            bool
	conflictsOnly      bool
	failOnIncompatible bool
}

func newMergeCommand() *cobra.Command {
	opts := &mergeOptions{}
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge schema versions and report conflicts",
		Long: `Load every version, merge them into one schema and print the merged
messages, enums and diagnostics. The first version is the baseline.`,
		Example: `  protomerge merge --version v1=./proto/v1 --version v2=./proto/v2
  protomerge merge --config protomerge.yaml --format json --output merged.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd.Context(), cmd, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored text output")
	cmd.Flags().BoolVar(&opts.conflictsOnly, "conflicts-only", false, "Only list fields with conflicts or renames")
	cmd.Flags().BoolVar(&opts.failOnIncompatible, "fail-on-incompatible", false, "Exit non-zero when a field has no safe unified type")

	return cmd
}

func runMerge(ctx context.Context, cmd *cobra.Command, opts *mergeOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	r, err := newRunner(ctx, cmd, &opts.mergeFlags)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := r.close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	merged, err := r.run(ctx)
	if err != nil {
		return err
	}

	w, closeOutput, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	if err := report.Render(w, merged, format, report.Options{NoColor: opts.noColor, ConflictsOnly: opts.conflictsOnly}); err != nil {
		closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return err
	}

	if opts.failOnIncompatible {
		return checkIncompatible(merged)
	}
	return nil
}

// checkIncompatible fails when any merged field, nested ones included, is INCOMPATIBLE
func checkIncompatible(merged *merger.MergedSchema) error {
	var paths []string
	merged.Walk(func(m *merger.MergedMessage) {
		for _, f := range m.Fields {
			if f.Conflict == merger.ConflictIncompatible {
				paths = append(paths, m.Path+"."+f.Name)
			}
		}
	})
	if len(paths) > 0 {
		return fmt.Errorf("%w: %v", ErrIncompatible, paths)
	}
	return nil
}
