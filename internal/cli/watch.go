package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a line each time the state file changes",
		Long: `Watch the JSON state file and print one line per content change
until interrupted. Rewrites that leave the content unchanged are not
reported. Only file backends can be watched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, cmd)
		},
	}
	return cmd
}

func runWatch(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log config", err)
	}
	backend, err := workspacestate.BuildStateBackendFromDSN(cfg.StateDSN())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open state backend", err)
	}
	fileBackend, ok := backend.(*workspacestate.JSONFileStateBackend)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("cannot watch %s backend", workspacestate.BackendKind(backend)))
	}

	out := opts.formatter(cmd)
	watcher := workspacestate.NewWatcher(fileBackend.Path, workspacestate.WatcherOptions{Logger: logger})
	err = watcher.Run(cmd.Context(), func(change workspacestate.Change) {
		if opts.Format == "json" {
			_ = out.encode(CLIResponse{Status: "ok", Data: change})
			return
		}
		if change.Digest == "" {
			fmt.Fprintf(out.Writer, "removed %s\n", change.Path)
			return
		}
		fmt.Fprintf(out.Writer, "changed %s %s\n", change.Path, change.Digest)
	})
	if err != nil {
		return WrapExitError(ExitFailure, "watch failed", err)
	}
	return nil
}
