// Package config manages the settings of a data root stored in
// scenedata.json, with overrides from the environment and .env files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// FileName is the configuration file name inside a data root.
const FileName = "scenedata.json"

// Config stores the settings of one data root.
// Loaded from scenedata.json, created with defaults if missing.
type Config struct {
	// DefaultScene is the subdirectory used when none is given and the host
	// has no active scene. Empty means a subdirectory is always required.
	DefaultScene string `json:"default_scene"`

	// History controls the git record of saved snapshots.
	History History `json:"history"`

	// AutosaveInterval is the minimum delay between two throttled saves.
	AutosaveInterval Duration `json:"autosave_interval"`

	// FileMode and DirMode are the permissions of created files and
	// directories.
	FileMode Mode `json:"file_mode"`
	DirMode  Mode `json:"dir_mode"`
}

// History configures snapshot history.
type History struct {
	Enabled     bool   `json:"enabled"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		History: History{
			AuthorName:  "scenedata",
			AuthorEmail: "scenedata@localhost",
		},
		AutosaveInterval: Duration(2 * time.Second),
		FileMode:         0o644,
		DirMode:          0o755,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.History.Enabled && (c.History.AuthorName == "" || c.History.AuthorEmail == "") {
		return errors.New("history: author_name and author_email are required when enabled")
	}
	if c.AutosaveInterval < 0 {
		return errors.New("autosave_interval must be non-negative")
	}
	if c.FileMode == 0 || c.FileMode&^0o777 != 0 {
		return fmt.Errorf("file_mode %s is not a permission mode", c.FileMode)
	}
	if c.DirMode == 0 || c.DirMode&^0o777 != 0 {
		return fmt.Errorf("dir_mode %s is not a permission mode", c.DirMode)
	}
	return nil
}

// Load loads configuration from root/scenedata.json.
// Creates the file with defaults if it doesn't exist.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from root, not user input
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
		}
		if err := cfg.Save(root); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Save saves configuration to root/scenedata.json.
func (c *Config) Save(root string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(root, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create %s: %w", root, err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}

// Env holds the environment overrides. Empty fields are not set.
type Env struct {
	Root         string `env:"SCENEDATA_ROOT"`
	LogLevel     string `env:"SCENEDATA_LOG_LEVEL"`
	DefaultScene string `env:"SCENEDATA_DEFAULT_SCENE"`
	History      string `env:"SCENEDATA_HISTORY"`
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped and variables already set are kept.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ParseEnv reads the SCENEDATA_* variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply overrides c with the non-empty values of e.
func (c *Config) Apply(e Env) error {
	if e.DefaultScene != "" {
		c.DefaultScene = e.DefaultScene
	}
	if e.History != "" {
		v, err := strconv.ParseBool(e.History)
		if err != nil {
			return fmt.Errorf("SCENEDATA_HISTORY: %w", err)
		}
		c.History.Enabled = v
	}
	return c.Validate()
}

// Duration is a time.Duration stored as a string such as "2s".
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Mode is a permission mode stored as an octal string such as "0644".
type Mode os.FileMode

func (m Mode) String() string {
	return fmt.Sprintf("%04o", uint32(m))
}

// MarshalJSON implements json.Marshaler.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("mode must be an octal string: %w", err)
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fmt.Errorf("mode %q: %w", s, err)
	}
	*m = Mode(v)
	return nil
}
