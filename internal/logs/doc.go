// Package logs reads the per-run JSON log files written under the log
// directory: locating the newest one, printing its tail and following it
// while a run is still writing.
package logs
