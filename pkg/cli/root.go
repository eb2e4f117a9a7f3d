package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// Version is the build version, set with
// -ldflags "-X github.com/platinummonkey/protomerge/pkg/cli.Version=v1.2.3"
var Version = "dev"

var (
	// ErrNoVersions is returned when neither flags nor a merge file name a version
	ErrNoVersions = errors.New("no versions given, use --version name=dir or --config")

	// ErrInvalidVersionFlag is returned for --version values not in name=dir form
	ErrInvalidVersionFlag = errors.New("invalid --version value, expected name=dir")

	// ErrIncompatible is returned by --fail-on-incompatible when a field has no safe
	// unified type
	ErrIncompatible = errors.New("merged schema has incompatible fields")
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "protomerge",
		Short: "Merge protobuf schema versions into one unified schema",
		Long: `protomerge merges several versions of a protobuf schema into a single
version-agnostic schema. Fields merge by number; type, cardinality and presence
differences are classified and resolved to a unified shape, and every
disagreement is reported as a diagnostic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMergeCommand())
	root.AddCommand(newExplainCommand())
	root.AddCommand(newWatchCommand())
	root.AddCommand(newVersionCommand())

	return root
}

// Execute runs the root command with the process arguments
func Execute() error {
	return NewRootCommand().Execute()
}
