package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

type ComplianceOptions struct {
	*RootOptions
	Issues []string
}

func NewComplianceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComplianceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compliance <workspace-path> <category> <pass|warn|fail>",
		Short: "Set the compliance status of one category",
		Long: `Replace the compliance entry for a category. Issues from a previous
update are not kept.

Examples:
  workspace-state compliance ~/src/app security fail --issue "CVE-2024-1234" --issue "weak TLS"
  workspace-state compliance ~/src/app license pass`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompliance(opts, cmd, args[0], args[1], args[2])
		},
	}

	cmd.Flags().StringArrayVar(&opts.Issues, "issue", nil, "compliance issue (repeatable)")

	return cmd
}

func runCompliance(opts *ComplianceOptions, cmd *cobra.Command, workspacePath, category, status string) error {
	store, _, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	out := opts.formatter(cmd)
	msg, err := store.UpdateCompliance(cmd.Context(), workspacestate.UpdateComplianceInput{
		WorkspacePath: workspacePath,
		Category:      category,
		Status:        workspacestate.ComplianceStatus(status),
		Issues:        opts.Issues,
	})
	if err != nil {
		_ = out.Error(err)
		return storeExitError("update compliance failed", err)
	}
	return out.Message(msg)
}
