package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatehouse/internal/entity"
	"gatehouse/pkg/platform/sentinel"
)

// PostgresStore persists sandbox records in a single table with the staged
// snapshot held as JSONB. Source refs are stored split so the pending queue
// can be indexed per entity type.
//
// Expected schema:
//
//	CREATE TABLE sandbox_records (
//	    id            UUID PRIMARY KEY,
//	    source_type   TEXT NOT NULL,
//	    source_id     TEXT NOT NULL,
//	    fields        JSONB NOT NULL DEFAULT '{}',
//	    store         JSONB NOT NULL DEFAULT '{}',
//	    status        TEXT NOT NULL,
//	    draft         BOOLEAN NOT NULL,
//	    moderator     TEXT NOT NULL DEFAULT '',
//	    decided_at    TIMESTAMPTZ,
//	    reason        TEXT NOT NULL DEFAULT '',
//	    updated_at    TIMESTAMPTZ NOT NULL,
//	    UNIQUE (source_type, source_id)
//	);
//	CREATE INDEX sandbox_records_pending_idx
//	    ON sandbox_records (source_type, updated_at)
//	    WHERE NOT draft AND status = 'pending';
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const recordColumns = `id, source_type, source_id, fields, store, status, draft, moderator, decided_at, reason, updated_at`

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO sandbox_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (source_type, source_id) DO UPDATE SET
			fields     = EXCLUDED.fields,
			store      = EXCLUDED.store,
			status     = EXCLUDED.status,
			draft      = EXCLUDED.draft,
			moderator  = EXCLUDED.moderator,
			decided_at = EXCLUDED.decided_at,
			reason     = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Source.Type, rec.Source.ID, rec.Fields, rec.Store,
		rec.Status.String(), rec.Draft, rec.Moderator, rec.DecidedAt,
		rec.Reason, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert sandbox record %s: %w", rec.Source.String(), err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM sandbox_records WHERE id = $1`
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sandbox record %s: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) FindBySource(ctx context.Context, source entity.Ref) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM sandbox_records WHERE source_type = $1 AND source_id = $2`
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, source.Type, source.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sandbox record for %s: %w", source.String(), err)
	}
	return rec, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, entityType string) ([]*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM sandbox_records
		WHERE source_type = $1 AND NOT draft AND status = $2
		ORDER BY updated_at`
	rows, err := s.pool.Query(ctx, query, entityType, string(StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending %s records: %w", entityType, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sandbox record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sandbox records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) DeleteBySource(ctx context.Context, source entity.Ref) error {
	query := `DELETE FROM sandbox_records WHERE source_type = $1 AND source_id = $2`
	if _, err := s.pool.Exec(ctx, query, source.Type, source.ID); err != nil {
		return fmt.Errorf("delete sandbox record for %s: %w", source.String(), err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var status string
	err := row.Scan(
		&rec.ID, &rec.Source.Type, &rec.Source.ID, &rec.Fields, &rec.Store,
		&status, &rec.Draft, &rec.Moderator, &rec.DecidedAt, &rec.Reason,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	return &rec, nil
}
