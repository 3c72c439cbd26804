// Package syncer pushes one run's artifacts into the song catalog. It
// merges the rich metadata artifact with source facts, generates the
// narrative, transcript, and combined embeddings, and hands the record to
// the store in a single upsert.
package syncer
