package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// Dir is the directory name under XDG_CONFIG_HOME.
	Dir = "aig"
	// File is the config file name.
	File = "config.yml"
	// LocalFile is checked in the working directory before the user config.
	LocalFile = "aig.yaml"
)

// UserPath returns the per-user config file path.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/aig/config.yml.
func UserPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, Dir, File)
}

// Path returns the config file to read: $AIG_CONFIG, then ./aig.yaml when
// it exists, then UserPath.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return ExpandPath(p)
	}
	if _, err := os.Stat(LocalFile); err == nil {
		return LocalFile
	}
	return UserPath()
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}
