package repository

import (
	"context"

	"songsmith/internal/domain/entity"
)

// SongRepository provides read access to the generation inputs owned by the
// content domain. This layer never mutates songs.
type SongRepository interface {
	// Get retrieves a song by ID.
	// Returns (nil, nil) if the song is not found.
	Get(ctx context.Context, id int64) (*entity.Song, error)

	// ListByAlbum returns all songs in an album ordered by ID.
	ListByAlbum(ctx context.Context, albumID int64) ([]*entity.Song, error)
}
