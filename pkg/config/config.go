package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

// Defaults used when neither flags nor a saved config provide values.
const (
	DefaultBackend     = "sqlite"
	DefaultDatabaseURL = "sqlite://chacrab.db"
)

const (
	configDir  = ".config/chacrab"
	configFile = "config.json"

	// PathEnv overrides the config file location.
	PathEnv = "CHACRAB_CONFIG_PATH"
)

// Runtime is the persisted backend selection for this user.
type Runtime struct {
	Backend     string `json:"backend"`
	DatabaseURL string `json:"database_url"`
}

// Load reads the saved runtime config. A missing file returns (nil, nil).
func Load() (*Runtime, error) {
	path, err := filePath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errdefs.Config("failed to read runtime config")
	}

	var runtime Runtime
	if err := json.Unmarshal(content, &runtime); err != nil {
		return nil, errdefs.Config("invalid runtime config format")
	}
	return &runtime, nil
}

// Save writes the runtime config, creating the config directory if needed.
func Save(runtime *Runtime) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errdefs.Config("failed to create config directory")
	}

	serialized, err := json.MarshalIndent(runtime, "", "  ")
	if err != nil {
		return errdefs.Config("failed to serialize runtime config")
	}
	if err := os.WriteFile(path, serialized, 0o600); err != nil {
		return errdefs.Config("failed to persist runtime config")
	}
	return nil
}

func filePath() (string, error) {
	if path := os.Getenv(PathEnv); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errdefs.Config("HOME environment variable is not set")
	}
	return filepath.Join(home, configDir, configFile), nil
}
