package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"songsmith/internal/domain/entity"
	"songsmith/internal/infra/adapter/persistence/postgres"
)

func songRow(song *entity.Song) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "album_id", "title", "lyrics", "style_prompt", "created_at",
	}).AddRow(
		song.ID, song.AlbumID, song.Title, song.Lyrics, song.StylePrompt, song.CreatedAt,
	)
}

func TestSongRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := &entity.Song{
		ID: 7, AlbumID: 2, Title: "Night Drive",
		Lyrics: "Verse 1 ...", StylePrompt: "synthwave, 100bpm",
		CreatedAt: time.Now(),
	}

	mock.ExpectQuery(`FROM songs`).
		WithArgs(int64(7)).
		WillReturnRows(songRow(want))

	repo := postgres.NewSongRepo(db)
	got, err := repo.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSongRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM songs`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "album_id", "title", "lyrics", "style_prompt", "created_at",
		}))

	repo := postgres.NewSongRepo(db)
	got, err := repo.Get(context.Background(), 9)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if got != nil {
		t.Fatalf("Get=%v, want nil for missing song", got)
	}
}

func TestSongRepo_ListByAlbum(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	rows := songRow(&entity.Song{ID: 7, AlbumID: 2, Title: "Night Drive", CreatedAt: time.Now()})
	rows.AddRow(int64(8), int64(2), "Daybreak", "", "ambient", time.Now())

	mock.ExpectQuery(`FROM songs`).
		WithArgs(int64(2)).
		WillReturnRows(rows)

	repo := postgres.NewSongRepo(db)
	got, err := repo.ListByAlbum(context.Background(), 2)
	if err != nil || len(got) != 2 {
		t.Fatalf("ListByAlbum err=%v len=%d", err, len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
