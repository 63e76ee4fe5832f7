// Package handler exposes the moderation API over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gatehouse/internal/entity"
	"gatehouse/internal/sandbox"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

// Service defines the moderation operations the handler needs.
type Service interface {
	ListPending(ctx context.Context, entityType string) ([]*sandbox.Record, error)
	Approve(ctx context.Context, recordID uuid.UUID, actor string) (*sandbox.MergeResult, error)
	Deny(ctx context.Context, recordID uuid.UUID, actor, reason string) error
	Submit(ctx context.Context, recordID uuid.UUID, actor string) (bool, error)
	GetSnapshot(ctx context.Context, recordID uuid.UUID) (sandbox.Snapshot, error)
	IsPending(ctx context.Context, source entity.Ref) (bool, error)
	IsDenied(ctx context.Context, source entity.Ref) (bool, error)
}

// Handler wires moderation endpoints to the moderation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a moderation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts moderation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/moderation/{entityType}/pending", h.HandleListPending)
	r.Get("/moderation/{entityType}/{entityID}/status", h.HandleStatus)
	r.Post("/moderation/records/{recordID}/approve", h.HandleApprove)
	r.Post("/moderation/records/{recordID}/deny", h.HandleDeny)
	r.Post("/moderation/records/{recordID}/submit", h.HandleSubmit)
	r.Get("/moderation/records/{recordID}/snapshot", h.HandleSnapshot)
}

// HandleListPending handles GET /moderation/{entityType}/pending requests.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityType := chi.URLParam(r, "entityType")

	records, err := h.service.ListPending(ctx, entityType)
	if err != nil {
		h.logger.ErrorContext(ctx, "pending list failed",
			"request_id", requestcontext.RequestID(ctx),
			"entity_type", entityType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PendingResponse{Records: toRecordViews(records)})
}

// HandleStatus handles GET /moderation/{entityType}/{entityID}/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source := entity.Ref{
		Type: chi.URLParam(r, "entityType"),
		ID:   chi.URLParam(r, "entityID"),
	}

	pending, err := h.service.IsPending(ctx, source)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	denied, err := h.service.IsDenied(ctx, source)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Source:  source.String(),
		Pending: pending,
		Denied:  denied,
	})
}

// HandleApprove handles POST /moderation/records/{recordID}/approve requests.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	recordID, actor, ok := h.decision(w, r)
	if !ok {
		return
	}
	result, err := h.service.Approve(ctx, recordID, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "approval failed",
			"request_id", requestcontext.RequestID(ctx),
			"record_id", recordID,
			"moderator", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "record approved",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", recordID,
		"moderator", actor,
		"rejected_fields", len(result.RejectedFields),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, DecisionResponse{
		Status:         string(sandbox.StatusApproved),
		RejectedFields: result.RejectedFields,
	})
}

// HandleDeny handles POST /moderation/records/{recordID}/deny requests.
func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recordID, actor, ok := h.decision(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[DenyRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.Deny(ctx, recordID, actor, req.Reason); err != nil {
		h.logger.ErrorContext(ctx, "denial failed",
			"request_id", requestcontext.RequestID(ctx),
			"record_id", recordID,
			"moderator", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "record denied",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", recordID,
		"moderator", actor,
	)
	httputil.WriteJSON(w, http.StatusOK, DecisionResponse{Status: string(sandbox.StatusDenied)})
}

// HandleSubmit handles POST /moderation/records/{recordID}/submit requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recordID, actor, ok := h.decision(w, r)
	if !ok {
		return
	}
	submitted, err := h.service.Submit(ctx, recordID, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubmitResponse{Submitted: submitted})
}

// HandleSnapshot handles GET /moderation/records/{recordID}/snapshot requests.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recordID, err := parseRecordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	snapshot, err := h.service.GetSnapshot(ctx, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

// decision extracts the record ID and the authenticated moderator shared by
// the decision endpoints.
func (h *Handler) decision(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	recordID, err := parseRecordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return uuid.Nil, "", false
	}
	actor := requestcontext.ModeratorID(r.Context())
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, "", false
	}
	return recordID, actor, true
}

func parseRecordID(r *http.Request) (uuid.UUID, error) {
	recordID, err := uuid.Parse(chi.URLParam(r, "recordID"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "record id must be a UUID")
	}
	return recordID, nil
}
