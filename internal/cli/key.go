package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

type KeyOptions struct {
	*RootOptions
	Decode bool
}

func NewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "key <workspace-path>",
		Short: "Print the document key for a workspace path",
		Long: `Print the key a workspace path is stored under, or with --decode the
path a key stands for.

Examples:
  workspace-state key /home/me/src/app
  workspace-state key --decode L2hvbWUvbWUvc3JjL2FwcA==`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKey(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.Decode, "decode", "d", false, "decode a key back to its path")

	return cmd
}

func runKey(opts *KeyOptions, cmd *cobra.Command, arg string) error {
	out := opts.formatter(cmd)
	if !opts.Decode {
		return out.Message(workspacestate.DeriveKey(arg))
	}
	path, err := workspacestate.PathFromKey(arg)
	if err != nil {
		_ = out.Error(err)
		return storeExitError("decode failed", err)
	}
	return out.Message(path)
}
