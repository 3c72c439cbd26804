// Package progress implements the single-line progress protocol emitted on
// stdout: PRG:<StageLabel>:<status-or-current>:<total>, plus the SKIP_ACK
// acknowledgement line. External controllers treat this stream as the only
// parseable source of execution state.
package progress
