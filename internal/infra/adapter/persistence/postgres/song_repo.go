package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"songsmith/internal/domain/entity"
	"songsmith/internal/repository"
)

type SongRepo struct {
	db DBTX
}

func NewSongRepo(db DBTX) repository.SongRepository {
	return &SongRepo{db: db}
}

func (repo *SongRepo) Get(ctx context.Context, id int64) (*entity.Song, error) {
	const query = `
SELECT id, album_id, title, lyrics, style_prompt, created_at
FROM songs
WHERE id = $1
LIMIT 1`
	var song entity.Song
	err := repo.db.QueryRowContext(ctx, query, id).
		Scan(&song.ID, &song.AlbumID, &song.Title, &song.Lyrics,
			&song.StylePrompt, &song.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &song, nil
}

func (repo *SongRepo) ListByAlbum(ctx context.Context, albumID int64) ([]*entity.Song, error) {
	const query = `
SELECT id, album_id, title, lyrics, style_prompt, created_at
FROM songs
WHERE album_id = $1
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, albumID)
	if err != nil {
		return nil, fmt.Errorf("ListByAlbum: %w", err)
	}
	defer func() { _ = rows.Close() }()

	songs := make([]*entity.Song, 0, 16)
	for rows.Next() {
		var song entity.Song
		if err := rows.Scan(&song.ID, &song.AlbumID, &song.Title, &song.Lyrics,
			&song.StylePrompt, &song.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByAlbum: Scan: %w", err)
		}
		songs = append(songs, &song)
	}
	return songs, rows.Err()
}
