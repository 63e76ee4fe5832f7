package sandbox

import (
	"context"
	"log/slog"

	"gatehouse/internal/entity"
	"gatehouse/internal/sandbox/metrics"
)

// HookAction is the verdict of a configured override hook.
type HookAction int

const (
	// HookNoOpinion leaves the built-in outcome in place.
	HookNoOpinion HookAction = iota
	HookApprove
	HookDeny
)

// Review is the input handed to an override hook: the full author list plus
// everything the built-in rules saw.
type Review struct {
	Config  Config
	Record  *Record
	Source  entity.Entity
	Authors []entity.Actor
	IsNew   bool
	// AutoApproved reports what the built-in rules already decided. The
	// hook's outcome is final regardless.
	AutoApproved bool
}

// Hook is the integrator-supplied override invoked after the built-in
// auto-approval rules. It always runs, and its outcome overrides any prior
// auto-approve decision.
type Hook interface {
	Review(ctx context.Context, review Review) (HookAction, string, error)
}

// HookFunc adapts a plain function to Hook.
type HookFunc func(ctx context.Context, review Review) (HookAction, string, error)

func (f HookFunc) Review(ctx context.Context, review Review) (HookAction, string, error) {
	return f(ctx, review)
}

// Policy decides whether a pending change can be approved without a human.
// Permission checks here are advisory: they feed the auto-approval decision
// only, and never gate the moderator API itself.
type Policy struct {
	merger  *Merger
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewPolicy(merger *Merger, logger *slog.Logger, m *metrics.Metrics) *Policy {
	return &Policy{merger: merger, logger: logger, metrics: m}
}

// Evaluate applies the built-in rules and then the configured override hook.
//
// Built-in approval triggers, in order of consultation:
//  1. an author holds the type's moderation permission
//  2. the diff is empty (nothing meaningful is pending)
//  3. the entity is new and the type auto-approves creations
//  4. an author is staff and the type auto-approves staff edits
//
// When the record is approved the acting moderator is the first author that
// qualified (authorized before staff), or the first author when approval came
// from a non-author rule. Otherwise the record stays pending for a human.
func (p *Policy) Evaluate(ctx context.Context, cfg Config, rec *Record, src entity.Entity, authors []entity.Actor, isNew bool) {
	authorized := firstMatching(authors, func(a entity.Actor) bool {
		return a.HasPermission(cfg.Permission())
	})
	staff := firstMatching(authors, func(a entity.Actor) bool { return a.Staff })
	trivial := len(Diff(cfg, rec, src)) == 0

	approve := authorized != nil ||
		trivial ||
		(isNew && cfg.AutoApproveNew) ||
		(cfg.AutoApproveStaff && staff != nil)

	if approve {
		actor := decidingActor(authors, authorized, staff)
		if _, err := p.merger.approve(ctx, rec, actor, true, src); err != nil {
			p.logger.ErrorContext(ctx, "auto-approval failed, record left pending",
				"source", rec.Source.String(), "error", err)
		} else {
			p.metrics.IncDecision(string(StatusApproved), "auto")
		}
	}

	if cfg.Override == nil {
		return
	}

	review := Review{
		Config:       cfg,
		Record:       rec,
		Source:       src,
		Authors:      authors,
		IsNew:        isNew,
		AutoApproved: approve,
	}
	action, reason, err := cfg.Override.Review(ctx, review)
	if err != nil {
		p.logger.ErrorContext(ctx, "override hook failed, built-in outcome kept",
			"source", rec.Source.String(), "error", err)
		return
	}
	switch action {
	case HookApprove:
		actor := decidingActor(authors, authorized, staff)
		if _, err := p.merger.approve(ctx, rec, actor, true, src); err != nil {
			p.logger.ErrorContext(ctx, "override approval failed",
				"source", rec.Source.String(), "error", err)
			return
		}
		p.metrics.IncDecision(string(StatusApproved), "auto")
	case HookDeny:
		actor := decidingActor(authors, authorized, staff)
		if err := p.merger.Deny(ctx, rec, actor, reason, true); err != nil {
			p.logger.ErrorContext(ctx, "override denial failed",
				"source", rec.Source.String(), "error", err)
			return
		}
		p.metrics.IncDecision(string(StatusDenied), "auto")
	}
}

func firstMatching(authors []entity.Actor, match func(entity.Actor) bool) *entity.Actor {
	for i := range authors {
		if match(authors[i]) {
			return &authors[i]
		}
	}
	return nil
}

func decidingActor(authors []entity.Actor, authorized, staff *entity.Actor) string {
	switch {
	case authorized != nil:
		return authorized.ID
	case staff != nil:
		return staff.ID
	case len(authors) > 0:
		return authors[0].ID
	default:
		return ""
	}
}
