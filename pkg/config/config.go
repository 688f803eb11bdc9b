package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the archive tool's settings. Every field has a working
// default, so running without a config file is fine.
type Config struct {
	// DBPath is the sqlite archive file.
	DBPath string `yaml:"db"`
	// Style names the transcript display style.
	Style string `yaml:"style"`
	// LogLevel sets the zerolog level (trace..panic).
	LogLevel string `yaml:"log-level"`
}

func Default() Config {
	return Config{
		DBPath:   "chatgpt.db",
		Style:    "default",
		LogLevel: "info",
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "config: resolve user config dir")
	}
	return filepath.Join(dir, "chat-archive", "config.yaml"), nil
}

// Load reads a YAML config file, layering it over the defaults. A missing
// file is not an error and yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = Default().DBPath
	}
	if cfg.Style == "" {
		cfg.Style = Default().Style
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}
	return cfg, nil
}
