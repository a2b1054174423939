package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"ontolock/internal/paths"
)

// CurrentVersion is the only config schema version this build understands
const CurrentVersion = 1

// Review modes
const (
	// ModeInteractive starts the review surface on a lock mismatch and waits for a decision
	ModeInteractive = "interactive"
	// ModeHeadless refuses to start on a lock mismatch
	ModeHeadless = "headless"
)

// Config represents the complete ontolock configuration
type Config struct {
	Version     int    `json:"version" mapstructure:"version"`
	ProjectRoot string `json:"projectRoot" mapstructure:"projectRoot"`

	Ontology  OntologyConfig  `json:"ontology" mapstructure:"ontology"`
	Lockfile  LockfileConfig  `json:"lockfile" mapstructure:"lockfile"`
	Review    ReviewConfig    `json:"review" mapstructure:"review"`
	History   HistoryConfig   `json:"history" mapstructure:"history"`
	Watch     WatchConfig     `json:"watch" mapstructure:"watch"`
	Resolver  ResolverConfig  `json:"resolver" mapstructure:"resolver"`
	Principal PrincipalConfig `json:"principal" mapstructure:"principal"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// OntologyConfig locates the declarative ontology source
type OntologyConfig struct {
	Path             string `json:"path" mapstructure:"path"`
	EnvironmentsPath string `json:"environmentsPath,omitempty" mapstructure:"environmentsPath"`
	Environment      string `json:"environment,omitempty" mapstructure:"environment"`
}

// LockfileConfig locates the lockfile
type LockfileConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ReviewConfig configures the review surface
type ReviewConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
	Mode string `json:"mode" mapstructure:"mode"`
	// TokenHash is a bcrypt hash of the reviewer token. Empty disables the check.
	TokenHash string `json:"tokenHash,omitempty" mapstructure:"tokenHash"`
}

// HistoryConfig configures the approval history database
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// WatchConfig configures ontology hot reload
type WatchConfig struct {
	Enabled        bool `json:"enabled" mapstructure:"enabled"`
	PollIntervalMs int  `json:"pollIntervalMs" mapstructure:"pollIntervalMs"`
	DebounceMs     int  `json:"debounceMs" mapstructure:"debounceMs"`
}

// ResolverConfig configures HTTP forwarding resolvers
type ResolverConfig struct {
	TimeoutMs int `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// PrincipalConfig is the principal used by the stdio tool server, which has
// no per-request authentication of its own.
type PrincipalConfig struct {
	User         string   `json:"user,omitempty" mapstructure:"user"`
	Organization string   `json:"organization,omitempty" mapstructure:"organization"`
	Groups       []string `json:"groups" mapstructure:"groups"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file,omitempty" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:     CurrentVersion,
		ProjectRoot: ".",
		Ontology: OntologyConfig{
			Path: "ontology.yaml",
		},
		Lockfile: LockfileConfig{
			Path: filepath.ToSlash(filepath.Join(paths.StateDirName, paths.LockfileName)),
		},
		Review: ReviewConfig{
			Addr: "localhost:4717",
			Mode: ModeInteractive,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.ToSlash(filepath.Join(paths.StateDirName, paths.HistoryDBName)),
		},
		Watch: WatchConfig{
			Enabled:        false,
			PollIntervalMs: 1000,
			DebounceMs:     250,
		},
		Resolver: ResolverConfig{
			TimeoutMs: 10000,
		},
		Principal: PrincipalConfig{
			Groups: []string{},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// setDefaults registers every default so env overrides apply even without a config file
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("version", cfg.Version)
	v.SetDefault("projectRoot", cfg.ProjectRoot)
	v.SetDefault("ontology.path", cfg.Ontology.Path)
	v.SetDefault("ontology.environmentsPath", cfg.Ontology.EnvironmentsPath)
	v.SetDefault("ontology.environment", cfg.Ontology.Environment)
	v.SetDefault("lockfile.path", cfg.Lockfile.Path)
	v.SetDefault("review.addr", cfg.Review.Addr)
	v.SetDefault("review.mode", cfg.Review.Mode)
	v.SetDefault("review.tokenHash", cfg.Review.TokenHash)
	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("history.path", cfg.History.Path)
	v.SetDefault("watch.enabled", cfg.Watch.Enabled)
	v.SetDefault("watch.pollIntervalMs", cfg.Watch.PollIntervalMs)
	v.SetDefault("watch.debounceMs", cfg.Watch.DebounceMs)
	v.SetDefault("resolver.timeoutMs", cfg.Resolver.TimeoutMs)
	v.SetDefault("principal.user", cfg.Principal.User)
	v.SetDefault("principal.organization", cfg.Principal.Organization)
	v.SetDefault("principal.groups", cfg.Principal.Groups)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
}

// LoadConfig loads configuration from <projectRoot>/.ontolock/config.json.
// Environment variables prefixed ONTOLOCK_ override file values
// (ONTOLOCK_REVIEW_MODE=headless).
func LoadConfig(projectRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName(paths.ConfigName)
	v.SetConfigType("json")
	v.AddConfigPath(paths.StateDir(projectRoot))

	v.SetEnvPrefix("ONTOLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ProjectRoot = projectRoot
	return &cfg, nil
}

// Save writes the configuration to <projectRoot>/.ontolock/config.json
func (c *Config) Save(projectRoot string) error {
	if _, err := paths.EnsureDir(paths.StateDir(projectRoot)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(paths.StateDir(projectRoot), paths.ConfigName+".json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Ontology.Path == "" {
		return &ConfigError{Field: "ontology.path", Message: "must not be empty"}
	}
	if c.Lockfile.Path == "" {
		return &ConfigError{Field: "lockfile.path", Message: "must not be empty"}
	}
	switch c.Review.Mode {
	case ModeInteractive, ModeHeadless:
	default:
		return &ConfigError{Field: "review.mode", Message: "must be 'interactive' or 'headless'"}
	}
	if c.Review.Mode == ModeInteractive && c.Review.Addr == "" {
		return &ConfigError{Field: "review.addr", Message: "required in interactive mode"}
	}
	if c.History.Enabled && c.History.Path == "" {
		return &ConfigError{Field: "history.path", Message: "required when history is enabled"}
	}
	if c.Watch.Enabled && c.Watch.PollIntervalMs <= 0 {
		return &ConfigError{Field: "watch.pollIntervalMs", Message: "must be positive"}
	}
	if c.Resolver.TimeoutMs <= 0 {
		return &ConfigError{Field: "resolver.timeoutMs", Message: "must be positive"}
	}
	return nil
}

// Interactive reports whether a mismatch should open the review surface
func (c *Config) Interactive() bool {
	return c.Review.Mode == ModeInteractive
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
