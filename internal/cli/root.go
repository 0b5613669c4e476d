// Package cli implements the workspace-state command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentworkforce/workspacestate/internal/config"
	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DSN        string
	MaxSamples int
	Lock       bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "workspace-state",
		Short: "Track workspace actions, metrics and compliance",
		Long: `Record and inspect operational state for software workspaces.

State is a single JSON document holding init/sync/audit events, bounded
metric series and per-category compliance status. The serve command
exposes it to MCP clients over stdio; the other commands read and write
the same document directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	addStateFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTrackCommand(opts))
	cmd.AddCommand(NewMetricCommand(opts))
	cmd.AddCommand(NewComplianceCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewKeyCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func addStateFlags(fs *pflag.FlagSet, opts *RootOptions) {
	fs.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $WORKSPACE_STATE_CONFIG)")
	fs.StringVar(&opts.DSN, "dsn", "", "state backend DSN (file path, file://, memory://, postgres://, sqlite://)")
	fs.IntVar(&opts.MaxSamples, "max-samples", 0, "samples kept per metric series")
	fs.BoolVar(&opts.Lock, "lock", false, "lock the state file around each operation")
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// loadConfig reads the config file and environment, then applies any flags
// the user set explicitly.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	flags := cmd.Flags()
	if flags.Changed("dsn") {
		cfg.State.DSN = o.DSN
	}
	if flags.Changed("max-samples") {
		cfg.State.MaxSamples = o.MaxSamples
	}
	if flags.Changed("lock") {
		cfg.State.Lock = o.Lock
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// openStore builds the configured backend and a store over it. The caller
// closes the store.
func (o *RootOptions) openStore(cmd *cobra.Command) (*workspacestate.Store, *config.Config, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid log config", err)
	}
	backend, err := workspacestate.BuildStateBackendFromDSN(cfg.StateDSN())
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open state backend", err)
	}
	if fileBackend, ok := backend.(*workspacestate.JSONFileStateBackend); ok {
		fileBackend.Lock = cfg.State.Lock
	}
	store := workspacestate.NewStore(workspacestate.StoreOptions{
		Backend:           backend,
		Logger:            logger,
		MaxSamples:        cfg.State.MaxSamples,
		SwallowSaveErrors: cfg.Persistence.SwallowErrors,
	})
	store.EnsureReady()
	logger.Debug("state store opened",
		"backend", workspacestate.BackendKind(backend),
		"config", cfg.Path(),
		"max_samples", store.MaxSamples(),
	)
	return store, cfg, nil
}
