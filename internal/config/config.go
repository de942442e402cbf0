package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/usedamru/sql2nosql/internal/synth"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.sql2nosql/sql2nosql.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version   int           `yaml:"version"`
	Source    SourceConfig  `yaml:"source"`
	Target    TargetConfig  `yaml:"target"`
	Migration synth.Options `yaml:"migration,omitempty"`
	Output    OutputConfig  `yaml:"output,omitempty"`
	Logging   LogConfig     `yaml:"logging,omitempty"`
}

// SourceConfig defines the source PostgreSQL connection.
type SourceConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Schema   string `yaml:"schema,omitempty"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSL      bool   `yaml:"ssl,omitempty"`
}

// ConnString builds a pgx-compatible connection string.
func (s SourceConfig) ConnString() string {
	ssl := "disable"
	if s.SSL {
		ssl = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.Username, s.Password, s.Host, s.Port, s.Database, ssl)
}

// TargetConfig defines the MongoDB target connection.
type TargetConfig struct {
	ConnectionString string `yaml:"connection_string"`
	Database         string `yaml:"database"`
}

// OutputConfig defines where artifacts (schemas, scripts, reports) land.
type OutputConfig struct {
	Directory string `yaml:"directory,omitempty"` // default ~/.sql2nosql/out/
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"` // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"`
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	if err := cfg.Migration.Validate(); err != nil {
		return nil, fmt.Errorf("migration options: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyDefaults() {
	if c.Source.Port == 0 {
		c.Source.Port = 5432
	}
	if c.Source.Schema == "" {
		c.Source.Schema = "public"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = ExpandHome("~/.sql2nosql/out/")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

var secretPattern = regexp.MustCompile(`\$\{ENV:([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Source.Password, err = ResolveValue(c.Source.Password)
	if err != nil {
		return fmt.Errorf("source password: %w", err)
	}
	c.Target.ConnectionString, err = ResolveValue(c.Target.ConnectionString)
	if err != nil {
		return fmt.Errorf("target connection string: %w", err)
	}
	return nil
}

// ResolveValue resolves ${ENV:NAME} references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}
	v := os.Getenv(matches[1])
	if v == "" {
		return "", fmt.Errorf("environment variable %s not set", matches[1])
	}
	return v, nil
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
