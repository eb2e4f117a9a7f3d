package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/protomerge/pkg/report"
)

type explainOptions struct {
	mergeFlags
	field   string
	format  string
	noColor bool
}

func newExplainCommand() *cobra.Command {
	opts := &explainOptions{}
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how one field was resolved across versions",
		Long: `Print the per-version contract of a field next to the unified contract,
with the conflict kind and the diagnostics recorded for it. The field is given as
Message.field; nested messages use dotted paths (Order.Item.sku) and the field part
may be a number or any historical name.`,
		Example: `  protomerge explain --version v1=./proto/v1 --version v2=./proto/v2 --field Order.amount`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd.Context(), cmd, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.field, "field", "", "Field to explain as Message.field (required)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored text output")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

func runExplain(ctx context.Context, cmd *cobra.Command, opts *explainOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	i := strings.LastIndex(opts.field, ".")
	if i <= 0 || i == len(opts.field)-1 {
		return fmt.Errorf("invalid --field %q, expected Message.field", opts.field)
	}
	messagePath, fieldName := opts.field[:i], opts.field[i+1:]

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

	explanation, err := report.ExplainField(merged, messagePath, fieldName)
	if err != nil {
		return err
	}
	return report.RenderExplanation(cmd.OutOrStdout(), explanation, format, report.Options{NoColor: opts.noColor})
}
