package db

import (
	"database/sql"
)

// MigrateUp creates the songsmith schema if it does not exist yet.
// Safe to run on every worker start.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS songs (
    id           SERIAL PRIMARY KEY,
    album_id     INTEGER NOT NULL,
    title        TEXT NOT NULL,
    lyrics       TEXT NOT NULL DEFAULT '',
    style_prompt TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS render_jobs (
    id               SERIAL PRIMARY KEY,
    song_id          INTEGER REFERENCES songs(id),
    platform_name    VARCHAR(32) NOT NULL,
    status           VARCHAR(16) NOT NULL DEFAULT 'pending',
    progress         INTEGER NOT NULL DEFAULT 0,
    external_task_id TEXT,
    status_message   TEXT,
    error_message    TEXT,
    retry_count      INTEGER NOT NULL DEFAULT 0,
    started_at       TIMESTAMPTZ,
    completed_at     TIMESTAMPTZ,
    created_at       TIMESTAMPTZ DEFAULT now(),
    CONSTRAINT chk_render_job_status
        CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
    CONSTRAINT chk_render_job_progress
        CHECK (progress BETWEEN 0 AND 100)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS artifacts (
    id               SERIAL PRIMARY KEY,
    job_id           INTEGER REFERENCES render_jobs(id),
    song_id          INTEGER REFERENCES songs(id),
    locator          TEXT NOT NULL,
    size_bytes       BIGINT NOT NULL DEFAULT 0,
    duration_seconds DOUBLE PRECISION,
    format           VARCHAR(16) NOT NULL DEFAULT 'mp3',
    is_active        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at       TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		// Claim query: oldest pending first.
		`CREATE INDEX IF NOT EXISTS idx_render_jobs_status_created_at ON render_jobs(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_render_jobs_song_id ON render_jobs(song_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_job_id ON artifacts(job_id)`,
		// Active-artifact lookup and supersede update.
		`CREATE INDEX IF NOT EXISTS idx_artifacts_song_active ON artifacts(song_id) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_songs_album_id ON songs(album_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}
