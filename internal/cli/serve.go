package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentworkforce/workspacestate/internal/mcpserver"
	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

type ServeOptions struct {
	*RootOptions
	Watch bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve workspace state to MCP clients over stdio",
		Long: `Run the MCP server on stdin/stdout.

Tools: track_workspace, record_metric, update_compliance.
Resources: workspace://state, workspace://metrics, workspace://compliance.

Logs go to stderr. With --watch, edits to the state file made by other
processes are announced to clients as resource updates.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "notify clients when the state file changes on disk")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	store, cfg, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	watch := cfg.Server.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}
	var watchPath string
	if fileBackend, ok := store.Backend().(*workspacestate.JSONFileStateBackend); ok && watch {
		watchPath = fileBackend.Path
	}

	srv, err := mcpserver.New(mcpserver.Options{
		Store:     store,
		Logger:    store.Logger(),
		WatchPath: watchPath,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build server", err)
	}
	if err := srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return WrapExitError(ExitFailure, "server stopped", err)
	}
	return nil
}
