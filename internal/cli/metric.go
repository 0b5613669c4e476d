package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

type MetricOptions struct {
	*RootOptions
	Timestamp string
}

func NewMetricCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetricOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "metric <workspace-path> <name> <value>",
		Short: "Append a sample to a workspace metric series",
		Long: `Append a numeric sample to a metric series. Only the most recent
samples are kept (--max-samples, default 100).

Examples:
  workspace-state metric ~/src/app coverage 87.5
  workspace-state metric ~/src/app build_seconds 41 --timestamp 2024-03-01T12:00:00Z`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetric(opts, cmd, args[0], args[1], args[2])
		},
	}

	cmd.Flags().StringVar(&opts.Timestamp, "timestamp", "", "sample timestamp, stored as given (default now)")

	return cmd
}

func runMetric(opts *MetricOptions, cmd *cobra.Command, workspacePath, name, rawValue string) error {
	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid metric value %q", rawValue), err)
	}

	store, _, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	out := opts.formatter(cmd)
	msg, err := store.RecordMetric(cmd.Context(), workspacestate.RecordMetricInput{
		WorkspacePath: workspacePath,
		MetricName:    name,
		Value:         value,
		Timestamp:     opts.Timestamp,
	})
	if err != nil {
		_ = out.Error(err)
		return storeExitError("record metric failed", err)
	}
	return out.Message(msg)
}
