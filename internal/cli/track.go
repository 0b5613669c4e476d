package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

type TrackOptions struct {
	*RootOptions
	Action   string
	Metadata string
}

func NewTrackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "track <workspace-path>",
		Short: "Record an init, sync or audit action for a workspace",
		Long: `Append an action event to a workspace, creating the workspace on first use.

Examples:
  workspace-state track ~/src/app --action init
  workspace-state track ~/src/app --action sync --metadata '{"branch":"main"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrack(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Action, "action", "", "action performed (init|sync|audit) (required)")
	_ = cmd.MarkFlagRequired("action")
	cmd.Flags().StringVar(&opts.Metadata, "metadata", "", "JSON object stored with the event")

	return cmd
}

func runTrack(opts *TrackOptions, cmd *cobra.Command, workspacePath string) error {
	var metadata map[string]any
	if opts.Metadata != "" {
		if err := json.Unmarshal([]byte(opts.Metadata), &metadata); err != nil {
			return WrapExitError(ExitCommandError, "invalid --metadata", fmt.Errorf("%w: %v", workspacestate.ErrInvalidInput, err))
		}
	}

	store, _, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	out := opts.formatter(cmd)
	msg, err := store.TrackWorkspace(cmd.Context(), workspacestate.TrackWorkspaceInput{
		WorkspacePath: workspacePath,
		Action:        workspacestate.Action(opts.Action),
		Metadata:      metadata,
	})
	if err != nil {
		_ = out.Error(err)
		return storeExitError("track failed", err)
	}
	return out.Message(msg)
}
