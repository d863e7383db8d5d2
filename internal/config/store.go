package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "mastertherm"
	settingsFile = "config.yaml"
)

var (
	// Loads the optional .env file once per process. Missing files are fine;
	// variables already set in the real environment win over .env entries.
	dotenvOnce sync.Once

	// Serializes file writes within the process
	fileMutex sync.Mutex
)

// Dir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/mastertherm or $HOME/.config/mastertherm
//   - macOS: $HOME/.config/mastertherm
//   - Windows: %LOCALAPPDATA%\mastertherm
func Dir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			return filepath.Join(userProfile, "AppData", "Local", appName), nil
		}
		return filepath.Join(localAppData, appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(home, ".config", appName), nil
	}
}

// Path returns the full path of the settings file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, settingsFile), nil
}

// Load resolves the settings from the default file location, the
// environment and the built-in defaults. Flags are the caller's layer.
func Load() (*Settings, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit settings file path. A missing file is
// not an error; the file layer is simply skipped.
func LoadFrom(path string) (*Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}
	}

	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
	if err := env.Parse(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return &settings, nil
}

// Save writes the settings to the default file location.
func (s *Settings) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return s.SaveTo(path)
}

// SaveTo writes the settings as YAML via a temp file and an atomic rename.
// The password field is excluded by its yaml tag and never reaches disk.
func (s *Settings) SaveTo(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	body, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	header := []byte(`# Mastertherm CLI settings.
#
# Passwords are never stored here. Supply the account password through
# MASTERTHERM_PASSWORD, the --password flag, or the interactive prompt.

`)
	body = append(header, body...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, body, 0600); err != nil {
		return fmt.Errorf("failed to write temporary settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings file: %w", err)
	}
	return nil
}
