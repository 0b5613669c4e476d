package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

type ShowOptions struct {
	*RootOptions
	All bool
}

func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [state|metrics|compliance]",
		Short: "Print a section of the state document",
		Long: `Print one resource as JSON. Without an argument the workspaces
section (workspace://state) is shown; --all prints the whole document.

Examples:
  workspace-state show
  workspace-state show metrics
  workspace-state show --all --format json`,
		Args:          cobra.MaximumNArgs(1),
		ValidArgs:     []string{workspacestate.ResourceState, workspacestate.ResourceMetrics, workspacestate.ResourceCompliance},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resource := workspacestate.ResourceState
			if len(args) == 1 {
				resource = args[0]
			}
			return runShow(opts, cmd, resource)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "print the whole document")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command, resource string) error {
	store, _, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	out := opts.formatter(cmd)
	if opts.All {
		return out.Document(store.Load(cmd.Context()))
	}
	section, err := store.ReadResource(cmd.Context(), resource)
	if err != nil {
		_ = out.Error(err)
		return storeExitError("show failed", err)
	}
	return out.Document(section)
}
