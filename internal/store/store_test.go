package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
)

func testRecord() SyncRecord {
	return SyncRecord{
		Title:     "Song",
		YTVideoID: "dQw4w9WgXcQ",
		Singers:   []string{"Artist"},
		Emotions:  []string{"romantic"},
	}
}

func TestUpsertSongCommitsAllThreeRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "Artist"`)).
		WithArgs("Artist").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "Song"`)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "SongContext"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := &Store{pool: mock}
	if err := s.UpsertSong(context.Background(), testRecord()); err != nil {
		t.Fatalf("UpsertSong failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("transaction flow mismatch: %v", err)
	}
}

func TestUpsertSongRollsBackWhenContextRowFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "Artist"`)).
		WithArgs("Artist").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "Song"`)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "SongContext"`)).
		WillReturnError(errors.New("vector dimension mismatch"))
	mock.ExpectRollback()

	s := &Store{pool: mock}
	if err := s.UpsertSong(context.Background(), testRecord()); err == nil {
		t.Fatal("expected error when the context row fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("song row must not outlive the failed context row: %v", err)
	}
}

func TestUpsertSongRollsBackWhenSongRowFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "Artist"`)).
		WithArgs("Artist").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "Song"`)).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	s := &Store{pool: mock}
	if err := s.UpsertSong(context.Background(), testRecord()); err == nil {
		t.Fatal("expected error when the song row fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("transaction flow mismatch: %v", err)
	}
}

func TestUpsertSongRequiresVideoID(t *testing.T) {
	s := &Store{}
	if err := s.UpsertSong(context.Background(), SyncRecord{Title: "x"}); err == nil {
		t.Fatal("expected error for missing ytVideoId")
	}
}
