// Package logging assembles structured slog loggers and formatting helpers
// used across the miner.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code can automatically tag log
// lines with run keys, stage names, and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Stdout is deliberately rejected as a log destination: that stream carries
// the PRG progress protocol and nothing else.
package logging
