package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the resolved CLI configuration. Values are layered from four
// sources, strongest first: command-line flags, environment variables, the
// settings file, built-in defaults. The zero value is not useful; start
// from Defaults.
type Settings struct {
	// Username is the vendor cloud account login
	Username string `yaml:"username,omitempty" env:"MASTERTHERM_USERNAME"`

	// Password is never read from or written to the settings file; it comes
	// from the environment, a flag, or an interactive prompt
	Password string `yaml:"-" env:"MASTERTHERM_PASSWORD"`

	// APIVersion selects the backend generation, "v1" or "v2"
	APIVersion string `yaml:"api_version" env:"MASTERTHERM_API_VERSION"`

	// RequestSpacing is the minimum gap between outbound calls
	RequestSpacing Duration `yaml:"request_spacing" env:"MASTERTHERM_REQUEST_SPACING"`

	// Timeout is the per-request timeout
	Timeout Duration `yaml:"timeout" env:"MASTERTHERM_TIMEOUT"`

	// HideSensitive masks identifying values in all output
	HideSensitive bool `yaml:"hide_sensitive" env:"MASTERTHERM_HIDE_SENSITIVE"`

	// Format is the output format, "table" or "json"
	Format string `yaml:"format" env:"MASTERTHERM_FORMAT"`

	// PollInterval is the refresh period of the watch dashboard
	PollInterval Duration `yaml:"poll_interval" env:"MASTERTHERM_POLL_INTERVAL"`
}

// Output formats accepted by Settings.Format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Defaults returns the built-in settings baseline.
func Defaults() Settings {
	return Settings{
		APIVersion:     "v1",
		RequestSpacing: Duration(1 * time.Second),
		Timeout:        Duration(10 * time.Second),
		Format:         FormatTable,
		PollInterval:   Duration(60 * time.Second),
	}
}

// Validate checks the enum-like fields and value ranges.
func (s *Settings) Validate() error {
	switch s.APIVersion {
	case "v1", "v2":
	default:
		return fmt.Errorf("api_version must be v1 or v2, got %q", s.APIVersion)
	}

	switch s.Format {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("format must be table or json, got %q", s.Format)
	}

	if s.RequestSpacing < 0 {
		return fmt.Errorf("request_spacing must not be negative, got %s", s.RequestSpacing)
	}
	if s.Timeout.Std() < time.Second {
		return fmt.Errorf("timeout must be at least 1s, got %s", s.Timeout)
	}
	if s.PollInterval.Std() < 10*time.Second {
		return fmt.Errorf("poll_interval must be at least 10s, got %s", s.PollInterval)
	}
	return nil
}

// Duration carries a time.Duration in the human-readable "10s"/"500ms"
// form through both the settings file and environment variables.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalText parses the duration form used by environment variables.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
