package migration

// getAllMigrations retorna todas as migrações disponíveis
func getAllMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_sessions",
			Up: `
				CREATE TABLE IF NOT EXISTS sessions (
					id VARCHAR(64) PRIMARY KEY,
					is_admin BOOLEAN NOT NULL DEFAULT FALSE,
					data JSONB NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMPTZ NOT NULL
				);
			`,
			Down: `DROP TABLE IF EXISTS sessions;`,
		},
		{
			Version: 2,
			Name:    "index_sessions_expires_at",
			Up:      `CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);`,
			Down:    `DROP INDEX IF EXISTS idx_sessions_expires_at;`,
		},
	}
}
