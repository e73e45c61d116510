// Package logging assembles structured slog loggers and formatting helpers used
// across ppabuild.
//
// It owns the configurable console/JSON handlers, the per-run JSON log file
// teed next to the console output, and context-aware helpers so stage code
// automatically tags log lines with the run ID, release and stage. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
