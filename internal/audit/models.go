// Package audit captures the moderation trail: every staged edit, submission
// and decision is appended to a store and fanned out to Kafka by the outbox
// worker.
package audit

import (
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/entity"
)

// Action names an auditable moderation event.
type Action string

const (
	ActionStaged    Action = "edit_staged"
	ActionSubmitted Action = "edit_submitted"
	ActionApproved  Action = "edit_approved"
	ActionDenied    Action = "edit_denied"
	ActionDiscarded Action = "sandbox_discarded"
)

// Event is emitted from domain logic to capture key moderation actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time
	Action    Action
	Source    entity.Ref
	Actor     string
	Status    string
	Reason    string
	RequestID string
}
