package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	s := Defaults()

	if s.APIVersion != "v1" {
		t.Errorf("APIVersion = %q, want v1", s.APIVersion)
	}
	if s.RequestSpacing.Std() != 1*time.Second {
		t.Errorf("RequestSpacing = %s, want 1s", s.RequestSpacing)
	}
	if s.Timeout.Std() != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", s.Timeout)
	}
	if s.Format != "table" {
		t.Errorf("Format = %q, want table", s.Format)
	}
	if s.PollInterval.Std() != 60*time.Second {
		t.Errorf("PollInterval = %s, want 60s", s.PollInterval)
	}
	if s.HideSensitive {
		t.Error("HideSensitive = true, want false")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(s *Settings) {}, false},
		{"v2", func(s *Settings) { s.APIVersion = "v2" }, false},
		{"json format", func(s *Settings) { s.Format = "json" }, false},
		{"zero spacing", func(s *Settings) { s.RequestSpacing = 0 }, false},
		{"bad version", func(s *Settings) { s.APIVersion = "v3" }, true},
		{"bad format", func(s *Settings) { s.Format = "xml" }, true},
		{"negative spacing", func(s *Settings) { s.RequestSpacing = Duration(-1 * time.Second) }, true},
		{"tiny timeout", func(s *Settings) { s.Timeout = Duration(100 * time.Millisecond) }, true},
		{"tiny poll interval", func(s *Settings) { s.PollInterval = Duration(2 * time.Second) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1500ms")); err != nil {
		t.Fatalf("UnmarshalText() error = %v, want nil", err)
	}
	if d.Std() != 1500*time.Millisecond {
		t.Errorf("parsed = %s, want 1.5s", d)
	}

	if err := d.UnmarshalText([]byte("fast")); err == nil {
		t.Error("UnmarshalText() should reject a unitless value")
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	settings, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v, want nil", err)
	}
	if settings.APIVersion != "v1" || settings.Format != "table" {
		t.Errorf("missing file should yield defaults, got %+v", settings)
	}
}

func TestLoadFrom_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "username: user@example.com\napi_version: v2\nrequest_spacing: 2s\nhide_sensitive: true\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v, want nil", err)
	}

	if settings.Username != "user@example.com" {
		t.Errorf("Username = %q, want user@example.com", settings.Username)
	}
	if settings.APIVersion != "v2" {
		t.Errorf("APIVersion = %q, want v2", settings.APIVersion)
	}
	if settings.RequestSpacing.Std() != 2*time.Second {
		t.Errorf("RequestSpacing = %s, want 2s", settings.RequestSpacing)
	}
	if !settings.HideSensitive {
		t.Error("HideSensitive = false, want true")
	}

	// Keys absent from the file keep their defaults
	if settings.Timeout.Std() != 10*time.Second {
		t.Errorf("Timeout = %s, want default 10s", settings.Timeout)
	}
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "api_version: v2\nformat: table\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MASTERTHERM_API_VERSION", "v1")
	t.Setenv("MASTERTHERM_PASSWORD", "hunter2")
	t.Setenv("MASTERTHERM_TIMEOUT", "30s")

	settings, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v, want nil", err)
	}

	if settings.APIVersion != "v1" {
		t.Errorf("APIVersion = %q, want v1 from environment", settings.APIVersion)
	}
	if settings.Password != "hunter2" {
		t.Errorf("Password = %q, want hunter2 from environment", settings.Password)
	}
	if settings.Timeout.Std() != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s from environment", settings.Timeout)
	}
	if settings.Format != "table" {
		t.Errorf("Format = %q, want table from file", settings.Format)
	}
}

func TestLoadFrom_PasswordNeverReadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "username: user@example.com\npassword: sneaky\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v, want nil", err)
	}
	if settings.Password != "" {
		t.Errorf("Password = %q, want empty; file passwords must be ignored", settings.Password)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	saved := Defaults()
	saved.Username = "user@example.com"
	saved.Password = "hunter2"
	saved.APIVersion = "v2"
	saved.PollInterval = Duration(2 * time.Minute)

	if err := saved.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v, want nil", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("settings file missing: %v", err)
	}
	text := string(raw)
	if !strings.HasPrefix(text, "# Mastertherm CLI settings.") {
		t.Errorf("file should start with the header comment, got %q", text[:40])
	}
	if strings.Contains(text, "hunter2") {
		t.Error("settings file must not contain the password")
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v, want nil", err)
	}
	if loaded.Username != "user@example.com" {
		t.Errorf("Username = %q, want user@example.com", loaded.Username)
	}
	if loaded.APIVersion != "v2" {
		t.Errorf("APIVersion = %q, want v2", loaded.APIVersion)
	}
	if loaded.PollInterval.Std() != 2*time.Minute {
		t.Errorf("PollInterval = %s, want 2m", loaded.PollInterval)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after save")
	}
}

func TestPath_UsesXDGConfigHome(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG paths do not apply on windows")
	}

	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	path, err := Path()
	if err != nil {
		t.Fatalf("Path() error = %v, want nil", err)
	}
	want := filepath.Join(base, "mastertherm", "config.yaml")
	if path != want {
		t.Errorf("Path() = %s, want %s", path, want)
	}
}
