// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"debounce": "debug", // Per-module overrides
//			"api":      "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("mymodule")
//	logger.Info("Starting up", "port", 8080)
//	logger.Debug("Details", "config", cfg)
//	logger.Warn("Something unusual", "error", err)
//	logger.Error("Failed", "error", err)
//
// Add contextual attributes:
//
//	logger := logging.GetLogger("board").With("button", "button1")
//	logger.Info("Press accepted")  // Includes button in all logs
//
// # Log Levels
//
//	debug - Verbose debugging information
//	info  - General operational messages
//	warn  - Warning conditions
//	error - Error conditions
//
// # Output Destinations
//
// The system automatically detects available outputs:
//
//	Journal available + stdout available → MultiHandler (both)
//	Journal available only              → JournalHandler
//	Stdout available only               → TextHandler or JSONHandler
//
// Journal availability is checked via [github.com/coreos/go-systemd/v22/journal.Enabled].
//
// # Viewing Logs
//
// When running as a systemd service or on a system with journald:
//
//	journalctl -t boardnode              # All boardnode logs
//	journalctl -t boardnode -f           # Follow live
//	journalctl -t boardnode --since "5m" # Last 5 minutes
//	journalctl -t boardnode -p err       # Errors only
//
// Filter by structured fields:
//
//	journalctl -t boardnode MODULE=debounce
//	journalctl -t boardnode BUTTON=button1
//
// # Configuration
//
// Log levels can be set globally or per-module. Module-specific levels
// override the global level for that module only.
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	debounce = "debug"   # any other key is a module override
//	api = "warn"
//	gpio = "error"
//
// # Hot reload
//
// ApplyLevels updates the level of every module logger in place. The config
// watcher calls it when the [logging] section changes, so levels can be
// raised on a running daemon without dropping SSE log subscribers.
package logging
