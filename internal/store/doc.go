// Package store persists mined songs into the Postgres catalog. Each sync
// is a single transaction touching the Artist, Song, and SongContext
// rows; embeddings are written as pgvector literals.
package store
