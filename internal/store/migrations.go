package store

func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per run of the pointer loop.
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			camera_width INTEGER NOT NULL,
			camera_height INTEGER NOT NULL,
			screen_width INTEGER NOT NULL,
			screen_height INTEGER NOT NULL,
			volume_enabled INTEGER NOT NULL DEFAULT 0,
			frames INTEGER NOT NULL DEFAULT 0,
			hand_frames INTEGER NOT NULL DEFAULT 0,
			paused_frames INTEGER NOT NULL DEFAULT 0,
			presses INTEGER NOT NULL DEFAULT 0,
			releases INTEGER NOT NULL DEFAULT 0,
			scrolls INTEGER NOT NULL DEFAULT 0,
			volume_changes INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0,
			mean_frame_ms REAL NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
