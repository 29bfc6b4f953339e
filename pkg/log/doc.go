/*
Package log provides structured logging for Burrow using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers and configurable log levels. All logs include
timestamps and support filtering by severity level for production debugging.

# Usage

Initialize once at process startup, then derive child loggers per component:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("netns")
	logger.Debug().Str("name", ns).Msg("creating network namespace")

Kernel-level components (netns, netiface) log cleanup failures through this
package rather than returning them, so an original error is never masked by a
failed best-effort cleanup.

# Log Levels

  - debug: Detailed syscall-level tracing (namespace switches, iptables argv)
  - info: Normal lifecycle events (namespace created, ports published)
  - warn: Recoverable conditions (idempotent no-ops on retry paths)
  - error: Failures requiring attention (failed namespace restore, leaked mounts)
*/
package log
