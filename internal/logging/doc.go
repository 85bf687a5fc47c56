// Package logging provides structured logging for dante-control.
//
// This package wraps a package-level zap logger with convenience functions
// for the logging patterns used by discovery, control and the monitor feed.
//
// # Log Levels
//
//   - Debug: service entries, control datagram hex dumps
//   - Info: device events, monitor connections
//   - Warn: malformed service entries, ignored replies
//   - Error: browse failures, startup failures
//
// # Configuration
//
// Logging is silent unless DANTE_LOG_LEVEL is set or the CLI passes -v:
//
//	if err := logging.Initialize(logging.LevelForVerbosity(verbose, quiet)); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Log output goes to stderr so command output on stdout stays parseable.
//
// # Specialized Logging
//
//	logging.LogServiceEntry(service, instance, host, port, txt)
//	logging.LogDeviceEvent("Mixer1", "added")
//	logging.LogControlExchange("10.0.0.5:4440", "sent", frame)
//
// All logging functions are safe for concurrent use.
package logging
