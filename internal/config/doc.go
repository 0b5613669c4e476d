// Package config loads workspace-state settings.
//
// Settings come from, in increasing precedence: built-in defaults, a single
// file named by --config or WORKSPACE_STATE_CONFIG, WORKSPACE_STATE_*
// environment variables, and command-line flags (applied by the caller).
// A missing config file is not an error when none was requested; the
// defaults describe a working single-user setup.
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas allowed. Anything else is read as YAML.
package config
