package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alekingreal/ajudaita/internal/core"
)

// SetVote records a voter's reaction on a record, replacing any previous
// vote from the same voter. Value must be +1 or -1.
func (s *Store) SetVote(ctx context.Context, recordID, voter string, value int) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	recordID = strings.TrimSpace(recordID)
	voter = strings.TrimSpace(voter)
	if recordID == "" || voter == "" {
		return errors.New("record id and voter are required")
	}
	if value != 1 && value != -1 {
		return fmt.Errorf("vote value must be +1 or -1, got %d", value)
	}

	var exists int
	row := s.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM records WHERE id = ?`, recordID)
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("check record: %w", err)
	}
	if exists == 0 {
		return ErrRecordNotFound
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO votes (record_id, voter, value, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(record_id, voter) DO UPDATE SET value = excluded.value, created_at = excluded.created_at
	`, recordID, voter, value, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("set vote: %w", err)
	}
	return nil
}

// RemoveVote clears a voter's reaction on a record. Removing a vote that was
// never cast is not an error.
func (s *Store) RemoveVote(ctx context.Context, recordID, voter string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		DELETE FROM votes WHERE record_id = ? AND voter = ?
	`, strings.TrimSpace(recordID), strings.TrimSpace(voter))
	if err != nil {
		return fmt.Errorf("remove vote: %w", err)
	}
	return nil
}

// VoteCounts aggregates the up and down votes for a record.
func (s *Store) VoteCounts(ctx context.Context, recordID string) (core.VoteCounts, error) {
	var counts core.VoteCounts

	if s == nil || s.DB == nil {
		return counts, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN value > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN value < 0 THEN 1 ELSE 0 END), 0)
		FROM votes
		WHERE record_id = ?
	`, strings.TrimSpace(recordID))

	if err := row.Scan(&counts.Up, &counts.Down); err != nil {
		return counts, fmt.Errorf("count votes: %w", err)
	}
	return counts, nil
}
