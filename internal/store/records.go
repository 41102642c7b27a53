package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alekingreal/ajudaita/internal/core"
)

// ErrRecordNotFound is returned when a record does not exist or is not
// visible to the requesting owner.
var ErrRecordNotFound = errors.New("store: record not found")

// defaultListLimit bounds unpaginated listings.
const defaultListLimit = 100

// CreateRecord persists a new record and returns it with the generated ID
// and timestamp filled in.
func (s *Store) CreateRecord(ctx context.Context, owner string, kind core.RecordKind, payload string) (*core.Record, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, errors.New("owner is required")
	}
	if !core.ValidKind(kind) {
		return nil, fmt.Errorf("unknown record kind: %s", kind)
	}

	record := &core.Record{
		ID:        uuid.New().String(),
		Owner:     owner,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO records (id, owner, kind, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.ID, record.Owner, string(record.Kind), record.Payload, record.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	return record, nil
}

// GetRecord fetches one record by ID, scoped to its owner.
func (s *Store) GetRecord(ctx context.Context, id, owner string) (*core.Record, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, owner, kind, payload, created_at
		FROM records
		WHERE id = ? AND owner = ?
	`, strings.TrimSpace(id), strings.TrimSpace(owner))

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("fetch record: %w", err)
	}
	return record, nil
}

// ListRecords returns the owner's records, newest first, optionally filtered
// by kind. A non-positive limit falls back to the default.
func (s *Store) ListRecords(ctx context.Context, owner string, kind core.RecordKind, limit int) ([]core.Record, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, errors.New("owner is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT id, owner, kind, payload, created_at
			FROM records
			WHERE owner = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, owner, limit)
	} else {
		if !core.ValidKind(kind) {
			return nil, fmt.Errorf("unknown record kind: %s", kind)
		}
		rows, err = s.DB.QueryContext(ctx, `
			SELECT id, owner, kind, payload, created_at
			FROM records
			WHERE owner = ? AND kind = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, owner, string(kind), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	records := make([]core.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return records, nil
}

// DeleteRecord removes a record owned by the caller. Deleting someone else's
// record (or a missing one) returns ErrRecordNotFound.
func (s *Store) DeleteRecord(ctx context.Context, id, owner string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		DELETE FROM records WHERE id = ? AND owner = ?
	`, strings.TrimSpace(id), strings.TrimSpace(owner))
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*core.Record, error) {
	var (
		record    core.Record
		kind      string
		createdAt int64
	)
	if err := row.Scan(&record.ID, &record.Owner, &kind, &record.Payload, &createdAt); err != nil {
		return nil, err
	}
	record.Kind = core.RecordKind(kind)
	record.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &record, nil
}
