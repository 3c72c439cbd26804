package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncRecord is everything the sync engine persists for one mined song.
type SyncRecord struct {
	Title           string
	YTVideoID       string
	DurationSeconds int
	Movie           string
	Language        string
	Country         string
	Cast            []string
	MusicDirector   string
	Lyricist        string
	OfficialLyrics  string
	Singers         []string
	Summary         string

	Narrative  string
	Transcript string
	Emotions   []string

	VisualVector     []float64
	TranscriptVector []float64
	CombinedVector   []float64
}

// PrimaryArtist returns the artist row key for the record.
func (r SyncRecord) PrimaryArtist() string {
	if len(r.Singers) > 0 && strings.TrimSpace(r.Singers[0]) != "" {
		return r.Singers[0]
	}
	return "Unknown"
}

// pgxPool is the subset of pgxpool.Pool the store depends on. Tests
// substitute a mock so the transaction flow can be exercised without a
// database.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store persists sync records into the song catalog database.
type Store struct {
	pool pgxPool
}

// Connect opens a connection pool against the catalog database. Query
// parameters on the URL are dropped because upstream tooling appends
// pooler options the driver does not understand.
func Connect(ctx context.Context, databaseURL string, connectTimeout time.Duration) (*Store, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("store: database url required")
	}
	if idx := strings.Index(databaseURL, "?"); idx >= 0 {
		databaseURL = databaseURL[:idx]
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}
	if connectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = connectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const (
	upsertArtistSQL = `INSERT INTO "Artist" (name, "createdAt")
VALUES ($1, NOW())
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id`

	upsertSongSQL = `INSERT INTO "Song" ("title", "ytVideoId", "durationSeconds", "album", "movie", "language", "country", "cast", "musicDirector", "lyricist", "officialLyrics", "singers", "summary", "artistId", "createdAt")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
ON CONFLICT ("ytVideoId") DO UPDATE SET "title" = EXCLUDED."title"
RETURNING id`

	upsertContextSQL = `INSERT INTO "SongContext" ("songId", "visualDescription", "transcript", "emotionalTags", "visualVector", "transcriptVector", "combinedVector", "updatedAt")
VALUES ($1, $2, $3, $4, $5::vector, $6::vector, $7::vector, NOW())
ON CONFLICT ("songId") DO UPDATE SET "updatedAt" = NOW()`
)

// UpsertSong writes the artist, song, and context rows in one transaction.
// The song row is keyed by ytVideoId, the context row by songId, so the
// operation is idempotent across re-syncs.
func (s *Store) UpsertSong(ctx context.Context, rec SyncRecord) error {
	if strings.TrimSpace(rec.YTVideoID) == "" {
		return fmt.Errorf("store: ytVideoId required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var artistID int64
	if err := tx.QueryRow(ctx, upsertArtistSQL, rec.PrimaryArtist()).Scan(&artistID); err != nil {
		return fmt.Errorf("store: upsert artist: %w", err)
	}

	var songID int64
	err = tx.QueryRow(ctx, upsertSongSQL,
		rec.Title, rec.YTVideoID, rec.DurationSeconds,
		rec.Movie, rec.Movie,
		rec.Language, rec.Country,
		rec.Cast, rec.MusicDirector,
		rec.Lyricist, rec.OfficialLyrics,
		rec.Singers, rec.Summary, artistID,
	).Scan(&songID)
	if err != nil {
		return fmt.Errorf("store: upsert song: %w", err)
	}

	_, err = tx.Exec(ctx, upsertContextSQL,
		songID, rec.Narrative, rec.Transcript, rec.Emotions,
		NullableVector(rec.VisualVector),
		NullableVector(rec.TranscriptVector),
		NullableVector(rec.CombinedVector),
	)
	if err != nil {
		return fmt.Errorf("store: upsert song context: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
