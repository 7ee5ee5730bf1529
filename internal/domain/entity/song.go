package entity

import "time"

// Song holds the generation inputs for one track: the lyrics and the style
// prompt handed to the media generation platform at dispatch time. Songs
// belong to an album; bulk generation walks an album song by song.
type Song struct {
	ID          int64
	AlbumID     int64
	Title       string
	Lyrics      string
	StylePrompt string
	CreatedAt   time.Time
}
