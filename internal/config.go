package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete council configuration
type Config struct {
	Agents       map[string]AgentConfig `mapstructure:"agents"`
	Deliberation DeliberationConfig     `mapstructure:"deliberation"`
	Defaults     DefaultsConfig         `mapstructure:"defaults"`
	Storage      StorageConfig          `mapstructure:"storage"`
	Logging      LoggingConfig          `mapstructure:"logging"`
	Metrics      MetricsConfig          `mapstructure:"metrics"`
}

// AgentConfig describes one agent CLI
type AgentConfig struct {
	Name string `mapstructure:"name"`
	// Command is split on whitespace; the prompt is appended as the last argument
	Command     string `mapstructure:"command"`
	Description string `mapstructure:"description"`
	NeedsGit    bool   `mapstructure:"needs_git"`
}

// DeliberationConfig controls rounds, timeouts and prompt sizes
type DeliberationConfig struct {
	MaxRounds          int           `mapstructure:"max_rounds"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxEmbeddedChars   int           `mapstructure:"max_embedded_chars"`
	MinVotes           int           `mapstructure:"min_votes"`
	RoundOneHint       bool          `mapstructure:"round_one_hint"`
	MaxDiagnosticChars int           `mapstructure:"max_diagnostic_chars"`
	MinResponseChars   int           `mapstructure:"min_response_chars"`
}

// DefaultsConfig holds values used when a command omits them
type DefaultsConfig struct {
	Agents []string `mapstructure:"agents"`
}

// StorageConfig selects where sessions are persisted
type StorageConfig struct {
	Dir     string `mapstructure:"dir"`
	Backend string `mapstructure:"backend"`
}

// LoggingConfig controls the log level
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig controls the Prometheus textfile output
type MetricsConfig struct {
	// File is written after each session when non-empty
	File string `mapstructure:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Agents: map[string]AgentConfig{
			"gemini": {
				Name:        "Gemini",
				Command:     "gemini",
				Description: "Google Gemini CLI",
			},
			"claude": {
				Name:        "Claude",
				Command:     "claude -p",
				Description: "Anthropic Claude CLI in print mode",
			},
			"codex": {
				Name:        "Codex",
				Command:     "codex exec",
				Description: "OpenAI Codex CLI, runs inside a git repository",
				NeedsGit:    true,
			},
		},
		Deliberation: DeliberationConfig{
			MaxRounds:          defaultMaxRounds,
			Timeout:            180 * time.Second,
			MaxEmbeddedChars:   defaultMaxEmbeddedChars,
			MinVotes:           defaultMinVotes,
			MaxDiagnosticChars: defaultDiagnosticChars,
			MinResponseChars:   50,
		},
		Defaults: DefaultsConfig{
			Agents: []string{"gemini", "claude"},
		},
		Storage: StorageConfig{
			Dir:     DefaultStorageDir(),
			Backend: BackendFile,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers every default on the global viper instance
func SetDefaults() {
	SetDefaultsOn(viper.GetViper())
}

// SetDefaultsOn registers every default on v
func SetDefaultsOn(v *viper.Viper) {
	defaults := Default()

	for id, a := range defaults.Agents {
		v.SetDefault("agents."+id+".name", a.Name)
		v.SetDefault("agents."+id+".command", a.Command)
		v.SetDefault("agents."+id+".description", a.Description)
		v.SetDefault("agents."+id+".needs_git", a.NeedsGit)
	}

	v.SetDefault("deliberation.max_rounds", defaults.Deliberation.MaxRounds)
	v.SetDefault("deliberation.timeout", defaults.Deliberation.Timeout)
	v.SetDefault("deliberation.max_embedded_chars", defaults.Deliberation.MaxEmbeddedChars)
	v.SetDefault("deliberation.min_votes", defaults.Deliberation.MinVotes)
	v.SetDefault("deliberation.round_one_hint", defaults.Deliberation.RoundOneHint)
	v.SetDefault("deliberation.max_diagnostic_chars", defaults.Deliberation.MaxDiagnosticChars)
	v.SetDefault("deliberation.min_response_chars", defaults.Deliberation.MinResponseChars)

	v.SetDefault("defaults.agents", defaults.Defaults.Agents)

	v.SetDefault("storage.dir", defaults.Storage.Dir)
	v.SetDefault("storage.backend", defaults.Storage.Backend)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("metrics.file", defaults.Metrics.File)
}

// LoadConfig reads the global viper instance into a Config and validates it
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom reads v into a Config and validates it
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "config", Err: err}
	}
	cfg.Storage.Dir = expandHome(cfg.Storage.Dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the deliberation cannot run with
func (c *Config) Validate() error {
	if c.Deliberation.MaxRounds < 1 {
		return &ConfigError{Field: "deliberation.max_rounds", Err: fmt.Errorf("must be at least 1, got %d", c.Deliberation.MaxRounds)}
	}
	if c.Deliberation.Timeout <= 0 {
		return &ConfigError{Field: "deliberation.timeout", Err: fmt.Errorf("must be positive, got %s", c.Deliberation.Timeout)}
	}
	if c.Deliberation.MinVotes < 1 {
		return &ConfigError{Field: "deliberation.min_votes", Err: fmt.Errorf("must be at least 1, got %d", c.Deliberation.MinVotes)}
	}
	if c.Deliberation.MaxEmbeddedChars < 0 || c.Deliberation.MinResponseChars < 0 || c.Deliberation.MaxDiagnosticChars < 0 {
		return &ConfigError{Field: "deliberation", Err: fmt.Errorf("character limits must not be negative")}
	}
	switch c.Storage.Backend {
	case "", BackendFile, BackendSQLite:
	default:
		return &ConfigError{Field: "storage.backend", Err: fmt.Errorf("unsupported backend %q (supported: file, sqlite)", c.Storage.Backend)}
	}
	for id, a := range c.Agents {
		if len(strings.Fields(a.Command)) == 0 {
			return &ConfigError{Field: "agents." + id + ".command", Err: fmt.Errorf("command is required")}
		}
	}
	return nil
}

// Registry builds the immutable agent registry from the configured agents
func (c *Config) Registry() (*Registry, error) {
	agents := make([]Agent, 0, len(c.Agents))
	for id, a := range c.Agents {
		agents = append(agents, Agent{
			ID:          id,
			Name:        a.Name,
			Command:     strings.Fields(a.Command),
			Description: a.Description,
			NeedsGit:    a.NeedsGit,
		})
	}
	return NewRegistry(agents...)
}

// Invoker builds the process invoker for the configured limits
func (c *Config) Invoker() *ProcessInvoker {
	inv := NewProcessInvoker(c.Deliberation.Timeout)
	inv.MinResponseChars = c.Deliberation.MinResponseChars
	if c.Deliberation.MaxDiagnosticChars > 0 {
		inv.MaxDiagnosticChars = c.Deliberation.MaxDiagnosticChars
	}
	return inv
}

// Deliberator wires a controller around executor using the configured limits
func (c *Config) Deliberator(executor *RoundExecutor) *Deliberator {
	d := NewDeliberator(executor)
	d.MaxRounds = c.Deliberation.MaxRounds
	d.MinVotes = c.Deliberation.MinVotes
	d.Prompts.RoundOneHint = c.Deliberation.RoundOneHint
	if c.Deliberation.MaxEmbeddedChars > 0 {
		d.Prompts.MaxEmbeddedChars = c.Deliberation.MaxEmbeddedChars
	}
	return d
}

// OpenStore opens the configured session store
func (c *Config) OpenStore() (SessionStore, error) {
	return NewStore(c.Storage.Backend, c.Storage.Dir)
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "council")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".council"
	}
	return filepath.Join(home, ".config", "council")
}

// DefaultStorageDir returns ~/.council, or .council when the home directory is unknown
func DefaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".council"
	}
	return filepath.Join(home, ".council")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
