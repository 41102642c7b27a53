package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_records_owner_kind ON records(owner, kind);`,
	`CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at);`,
	`CREATE TABLE IF NOT EXISTS votes (
		record_id TEXT NOT NULL,
		voter TEXT NOT NULL,
		value INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (record_id, voter),
		FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_votes_record ON votes(record_id);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
