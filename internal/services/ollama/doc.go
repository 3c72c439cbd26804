// Package ollama wraps the local model server's chat and embedding HTTP API.
// Chat responses stream as NDJSON chunks so stages can surface token-level
// progress; embeddings return fixed-dimension vectors for the sync phase.
package ollama
