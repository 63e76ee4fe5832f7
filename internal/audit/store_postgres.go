package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gatehouse/internal/entity"
)

// PostgresStore implements Store and Outbox over an audit_outbox table.
// Events are appended in the caller's transaction scope and published to
// Kafka by the outbox worker; the table keeps them until a sink accepts
// them.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// payload is the JSON document stored in the outbox and produced to Kafka.
type payload struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Actor      string `json:"actor,omitempty"`
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func toPayload(event Event) payload {
	return payload{
		ID:         event.ID.String(),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Action:     string(event.Action),
		EntityType: event.Source.Type,
		EntityID:   event.Source.ID,
		Actor:      event.Actor,
		Status:     event.Status,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
	}
}

func fromPayload(p payload) (Event, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return Event{}, fmt.Errorf("parse event id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return Event{}, fmt.Errorf("parse event timestamp: %w", err)
	}
	return Event{
		ID:        id,
		Timestamp: ts,
		Action:    Action(p.Action),
		Source:    entity.Ref{Type: p.EntityType, ID: p.EntityID},
		Actor:     p.Actor,
		Status:    p.Status,
		Reason:    p.Reason,
		RequestID: p.RequestID,
	}, nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	body, err := json.Marshal(toPayload(event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	query := `
		INSERT INTO audit_outbox (id, entity_type, entity_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		event.ID, event.Source.Type, event.Source.ID, string(event.Action), body, event.Timestamp,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySource(ctx context.Context, source entity.Ref) ([]Event, error) {
	query := `
		SELECT payload FROM audit_outbox
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, source.Type, source.ID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// NextBatch returns unpublished events in insertion order. Rows are locked
// with SKIP LOCKED so multiple workers never double-publish a batch.
func (s *PostgresStore) NextBatch(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit outbox: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) MarkPublished(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID.String())
	}
	query := `
		UPDATE audit_outbox SET published_at = NOW()
		WHERE id = ANY($1::uuid[])
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		event, err := fromPayload(p)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
