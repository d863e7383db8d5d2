// Package config resolves the CLI settings from layered sources.
//
// Values are resolved strongest-first: command-line flags (applied by the
// CLI layer), environment variables, the settings file, built-in defaults.
// Loading starts from Defaults, overlays the file, then overlays whatever
// environment variables are set, so each layer only overrides what it
// actually specifies. A .env file in the working directory is honored once
// per process and never overrides the real environment.
//
// # Settings File Location
//
// The settings file lives in the platform-appropriate location:
//   - Linux: $XDG_CONFIG_HOME/mastertherm/config.yaml or $HOME/.config/mastertherm/config.yaml
//   - macOS: $HOME/.config/mastertherm/config.yaml
//   - Windows: %LOCALAPPDATA%\mastertherm\config.yaml
//
// # Security
//
// The account password is never written to the settings file and never read
// from it. It comes from MASTERTHERM_PASSWORD, the --password flag, or an
// interactive no-echo prompt.
//
// # Usage Example
//
//	settings, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := settings.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Persist everything except the password, atomically
//	if err := settings.Save(); err != nil {
//	    log.Fatal(err)
//	}
package config
