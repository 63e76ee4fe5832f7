package handler

import (
	"time"

	"gatehouse/internal/sandbox"
)

// RecordView is the wire shape of a sandbox record in the moderation queue.
type RecordView struct {
	ID        string           `json:"id"`
	Source    string           `json:"source"`
	Status    string           `json:"status"`
	Draft     bool             `json:"draft"`
	Snapshot  sandbox.Snapshot `json:"snapshot"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type PendingResponse struct {
	Records []RecordView `json:"records"`
}

type StatusResponse struct {
	Source  string `json:"source"`
	Pending bool   `json:"pending"`
	Denied  bool   `json:"denied"`
}

type DenyRequest struct {
	Reason string `json:"reason"`
}

type DecisionResponse struct {
	Status         string   `json:"status"`
	RejectedFields []string `json:"rejected_fields,omitempty"`
}

type SubmitResponse struct {
	Submitted bool `json:"submitted"`
}

func toRecordViews(records []*sandbox.Record) []RecordView {
	views := make([]RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, RecordView{
			ID:        rec.ID.String(),
			Source:    rec.Source.String(),
			Status:    rec.Status.String(),
			Draft:     rec.Draft,
			Snapshot:  rec.Snapshot(),
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return views
}
