// Package journal persists per-stage terminal states in SQLite as a sidecar
// to the artifact directory. Artifact presence on disk remains the
// authoritative resume signal; the journal adds status, checksum, and
// timing history for inspection tooling.
package journal
