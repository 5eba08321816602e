// Package config loads and saves the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Backend driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRemote   = "remote"
)

// BackendConfig selects and configures the document store backend.
type BackendConfig struct {
	// Driver is one of "sqlite", "postgres", or "remote".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the SQLite database file (sqlite driver).
	Path string `mapstructure:"path" yaml:"path"`

	// DSN is the PostgreSQL connection string (postgres driver).
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	// BaseURL is the root URL of the remote backend (remote driver).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TokenKey is the keyring entry holding the remote API token.
	TokenKey string `mapstructure:"token_key" yaml:"token_key"`

	// Collection is the document collection that holds tasks.
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// FilesConfig configures attachment storage.
type FilesConfig struct {
	// Dir is the local blob root (sqlite/postgres drivers). The remote
	// driver stores blobs through the backend instead.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// WatcherConfig configures the expiry watcher.
type WatcherConfig struct {
	// IntervalSec is the due-date check granularity in seconds.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// EmailConfig configures optional task capture from an IMAP mailbox.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`

	// PasswordKey is the keyring entry holding the mailbox password.
	PasswordKey string `mapstructure:"password_key" yaml:"password_key"`

	// Limit caps how many recent messages a single capture examines.
	Limit int `mapstructure:"limit" yaml:"limit"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config is the top-level application configuration.
type Config struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Files   FilesConfig   `mapstructure:"files" yaml:"files"`
	Watcher WatcherConfig `mapstructure:"watcher" yaml:"watcher"`
	Email   EmailConfig   `mapstructure:"email" yaml:"email"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// Dir returns the application configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "todoapp")
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/todoapp/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the default configuration.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a sensible default configuration.
func defaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Driver:     DriverSQLite,
			Path:       filepath.Join(Dir(), "todoapp.db"),
			TokenKey:   "backend-token",
			Collection: "tasks",
		},
		Files: FilesConfig{
			Dir: filepath.Join(Dir(), "files"),
		},
		Watcher: WatcherConfig{IntervalSec: 1},
		Email: EmailConfig{
			Port:        "993",
			TLS:         true,
			PasswordKey: "email-password",
			Limit:       20,
		},
		Display: DisplayConfig{Theme: "default"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := defaultConfig()
	v.SetDefault("backend.driver", def.Backend.Driver)
	v.SetDefault("backend.path", def.Backend.Path)
	v.SetDefault("backend.token_key", def.Backend.TokenKey)
	v.SetDefault("backend.collection", def.Backend.Collection)
	v.SetDefault("files.dir", def.Files.Dir)
	v.SetDefault("watcher.interval_sec", def.Watcher.IntervalSec)
	v.SetDefault("email.port", def.Email.Port)
	v.SetDefault("email.tls", def.Email.TLS)
	v.SetDefault("email.password_key", def.Email.PasswordKey)
	v.SetDefault("email.limit", def.Email.Limit)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the given configuration to a YAML file at path, creating
// parent directories if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("files", cfg.Files)
	v.Set("watcher", cfg.Watcher)
	v.Set("email", cfg.Email)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
