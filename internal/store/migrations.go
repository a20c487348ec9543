package store

// migrations returns the schema statements for the dialect.
func migrations(dialect Dialect) []string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	timestamp := "DATETIME"
	floatType := "REAL"
	if dialect == DialectPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
		timestamp = "TIMESTAMPTZ"
		floatType = "DOUBLE PRECISION"
	}

	return []string{
		// Sessions table - one row per run of the interaction loop
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			backend TEXT NOT NULL,
			min_face_size ` + floatType + ` NOT NULL,
			scale_factor ` + floatType + ` NOT NULL,
			frames INTEGER NOT NULL DEFAULT 0,
			faces INTEGER NOT NULL DEFAULT 0,
			exit_code INTEGER,
			started_at ` + timestamp + ` NOT NULL,
			finished_at ` + timestamp + `
		)`,

		// Frame stats table - one row per loop iteration
		`CREATE TABLE IF NOT EXISTS frame_stats (
			id ` + serial + `,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			faces INTEGER NOT NULL,
			detect_ms ` + floatType + ` NOT NULL,
			skipped INTEGER NOT NULL DEFAULT 0,
			activity ` + floatType + ` NOT NULL DEFAULT 0,
			created_at ` + timestamp + ` NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_frame_stats_session_id ON frame_stats(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}
}

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	for _, migration := range migrations(s.dialect) {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
