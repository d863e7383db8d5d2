// Package logging provides structured logging for the Mastertherm client.
//
// This package wraps zap logger with convenience functions for the logging
// patterns used throughout the library and the CLI. Logging is silent unless
// enabled, so the library never writes to a consumer's terminal uninvited.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (API round-trips, spacing delays)
//   - Info: Normal operations (session lifecycle, device refreshes)
//   - Warn: Non-fatal issues (session invalidation, fallback TTLs)
//   - Error: Fatal issues (login failures, backend contract drift)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device list fetched",
//	    zap.String("api_version", "v2"),
//	    zap.Int("devices", 2),
//	)
//
// # Specialized Logging
//
// Domain-specific helpers cover the recurring events:
//
//	logging.LogAPICall("v2", "GET", "/api/v1/modules", 200, elapsed)
//	logging.LogSessionEvent("v1", "login", expires)
//	logging.LogRateDelay("/api/v1/hp_data", delay)
//
// # Sensitive Values
//
// Credentials, tokens, and login request bodies are never passed to this
// package. Helper signatures are shaped so call sites cannot leak them by
// accident (endpoints and status codes only).
//
// # Configuration
//
// Initialize once at startup, typically from the environment:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When MASTERTHERM_LOG_LEVEL is unset the logger is a no-op, which is the
// right default for a CLI whose stdout is the actual program output.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
