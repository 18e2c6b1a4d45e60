package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FileName = "config.yaml"
	dirMode  = 0700
	fileMode = 0600

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultCommitWindowDays  = 30
	DefaultIssueSampleSize   = 30
	DefaultRequestsPerSecond = 10.0
	DefaultOutput            = "json"
	DefaultLogLevel          = "info"
)

// Config represents app config object.
type Config struct {
	Store    Store  `yaml:"store"`
	GitHub   GitHub `yaml:"github"`
	Output   string `yaml:"output"`
	LogLevel string `yaml:"log_level"`
}

// Store selects the persistence backend. An empty DSN for sqlite means
// data.db in the config directory.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"`
}

// GitHub holds the metrics collection settings.
type GitHub struct {
	CommitWindowDays  int     `yaml:"commit_window_days"`
	IssueSampleSize   int     `yaml:"issue_sample_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	BaseURL string `yaml:"base_url,omitempty"`
	// ClientID of the OAuth app used by the device flow.
	ClientID string `yaml:"client_id,omitempty"`
}

// Default returns a config populated with default values.
func Default() *Config {
	return &Config{
		Store: Store{Driver: DriverSQLite},
		GitHub: GitHub{
			CommitWindowDays:  DefaultCommitWindowDays,
			IssueSampleSize:   DefaultIssueSampleSize,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Output:   DefaultOutput,
		LogLevel: DefaultLogLevel,
	}
}

// applyDefaults fills zero values left out of a hand-edited file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.GitHub.CommitWindowDays <= 0 {
		c.GitHub.CommitWindowDays = d.GitHub.CommitWindowDays
	}
	if c.GitHub.IssueSampleSize <= 0 {
		c.GitHub.IssueSampleSize = d.GitHub.IssueSampleSize
	}
	if c.GitHub.RequestsPerSecond <= 0 {
		c.GitHub.RequestsPerSecond = d.GitHub.RequestsPerSecond
	}
	if c.Output == "" {
		c.Output = d.Output
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("postgres store requires a dsn")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	return nil
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, FileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", FileName, err)
	}
	return nil
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &c, nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
		}
	}

	path := filepath.Join(dirPath, FileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return Load(path)
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
