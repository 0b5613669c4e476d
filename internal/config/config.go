package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

// DefaultStateFile is the document name inside State.Dir.
const DefaultStateFile = "workspace-state.json"

type Config struct {
	State       StateConfig       `yaml:"state"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`

	// path is the file the config was read from, empty for defaults.
	path string
}

type StateConfig struct {
	// DSN selects the backend. When empty the JSON file Dir/workspace-state.json
	// is used.
	DSN string `yaml:"dsn"`

	// Dir holds the default state file.
	// Default: ~/.claude-workspace-state
	Dir string `yaml:"dir"`

	// Lock takes an advisory file lock around every operation so several
	// processes can share one state file.
	Lock bool `yaml:"lock"`

	// MaxSamples bounds each metric series.
	// Default: 100
	MaxSamples int `yaml:"max_samples"`
}

type PersistenceConfig struct {
	// SwallowErrors reports success for operations whose save failed.
	SwallowErrors bool `yaml:"swallow_errors"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

type ServerConfig struct {
	// Watch emits resource update notifications when another process
	// changes the state file.
	Watch bool `yaml:"watch"`
}

func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		State: StateConfig{
			Dir:        filepath.Join(homeDir, ".claude-workspace-state"),
			MaxSamples: workspacestate.DefaultMaxSamples,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path, or the one named by WORKSPACE_STATE_CONFIG
// when path is empty, then applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WORKSPACE_STATE_CONFIG")
	}
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(expandHome(path)); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	// JSON is valid YAML, so one decoder serves both.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	c.path = path
	return nil
}

func (c *Config) applyEnv() {
	c.State.DSN = stringEnv("WORKSPACE_STATE_DSN", c.State.DSN)
	c.State.Dir = stringEnv("WORKSPACE_STATE_DIR", c.State.Dir)
	c.State.MaxSamples = intEnv("WORKSPACE_STATE_MAX_SAMPLES", c.State.MaxSamples)
	c.State.Lock = boolEnv("WORKSPACE_STATE_LOCK", c.State.Lock)
	c.Persistence.SwallowErrors = boolEnv("WORKSPACE_STATE_SWALLOW_SAVE_ERRORS", c.Persistence.SwallowErrors)
	c.Log.Level = stringEnv("WORKSPACE_STATE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = stringEnv("WORKSPACE_STATE_LOG_FORMAT", c.Log.Format)
}

func (c *Config) expandPaths() {
	c.State.Dir = expandHome(c.State.Dir)
	if c.State.DSN != "" && !strings.Contains(c.State.DSN, "://") {
		c.State.DSN = expandHome(c.State.DSN)
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.State.MaxSamples < 0 {
		return fmt.Errorf("state.max_samples must not be negative, got %d", c.State.MaxSamples)
	}
	if c.State.DSN == "" && strings.TrimSpace(c.State.Dir) == "" {
		return fmt.Errorf("one of state.dsn or state.dir is required")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// StateDSN is the backend DSN after defaulting.
func (c *Config) StateDSN() string {
	if strings.TrimSpace(c.State.DSN) != "" {
		return strings.TrimSpace(c.State.DSN)
	}
	return filepath.Join(c.State.Dir, DefaultStateFile)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}
