// Package cli wires the command-line surface of the workflow initializer.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/swot-confluence/init-workflow/internal/store"
	"github.com/swot-confluence/init-workflow/internal/workflow"
)

// Version and Commit are set via LDFLAGS at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// NewRootCmd builds the init-workflow command. The tool is a one-shot
// batch job, so everything hangs off the root command.
func NewRootCmd() *cobra.Command {
	var (
		prefix      string
		reachSubset string
		deleteMap   bool
		verbose     bool
	)

	root := &cobra.Command{
		Use:   "init-workflow",
		Short: "Initialize the Confluence workflow environment",
		Long: "init-workflow provisions the shared directory tree and mirrors reference " +
			"datasets from object storage so the processing stages can run.",
		Version:       Version + " (" + Commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(cmd.Context())
			if err != nil {
				return err
			}
			runner := workflow.New(st)
			return runner.Run(cmd.Context(), workflow.Config{
				Prefix:         prefix,
				ReachSubset:    reachSubset,
				DeleteMapState: deleteMap,
			})
		},
	}

	root.Flags().StringVarP(&prefix, "prefix", "p", "", "prefix for the AWS environment")
	root.Flags().StringVarP(&reachSubset, "reachsubset", "r", "", "name of reaches of interest file to subset reaches")
	root.Flags().BoolVarP(&deleteMap, "deletemap", "d", false, "delete all objects in the map state bucket")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return root
}
