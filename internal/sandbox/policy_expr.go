package sandbox

import (
	"context"
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprHook is an override hook backed by an expr-lang expression, so
// integrators can configure moderation overrides without writing Go.
//
// The expression runs against an environment describing the pending change
// and must return either a bool (true approves, false expresses no opinion)
// or one of the strings "approve", "deny", "skip". Environment:
//
//	entity_type   string
//	is_new        bool
//	auto_approved bool
//	status        string
//	draft         bool
//	diff          []string
//	fields        map[string]any  (staged monitored values)
//	store         map[string]any  (staged auxiliary values)
//	authors       []map[string]any with keys id, name, staff
type ExprHook struct {
	program    *exprvm.Program
	expression string
	denyReason string
}

// ExprHookOption configures an ExprHook.
type ExprHookOption func(*ExprHook)

// ExprWithDenyReason sets the reason recorded when the expression denies.
func ExprWithDenyReason(reason string) ExprHookOption {
	return func(h *ExprHook) {
		h.denyReason = reason
	}
}

// NewExprHook compiles the expression once at configuration time, so a bad
// rule fails at startup rather than on the first staged edit.
func NewExprHook(expression string, opts ...ExprHookOption) (*ExprHook, error) {
	if expression == "" {
		return nil, fmt.Errorf("override expression must not be empty")
	}
	program, err := exprlang.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile override expression: %w", err)
	}
	h := &ExprHook{program: program, expression: expression}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

func (h *ExprHook) Review(ctx context.Context, review Review) (HookAction, string, error) {
	authors := make([]map[string]any, 0, len(review.Authors))
	for _, a := range review.Authors {
		authors = append(authors, map[string]any{
			"id":    a.ID,
			"name":  a.Name,
			"staff": a.Staff,
		})
	}
	env := map[string]any{
		"entity_type":   review.Config.EntityType,
		"is_new":        review.IsNew,
		"auto_approved": review.AutoApproved,
		"status":        review.Record.Status.String(),
		"draft":         review.Record.Draft,
		"diff":          Diff(review.Config, review.Record, review.Source),
		"fields":        review.Record.Fields,
		"store":         review.Record.Store,
		"authors":       authors,
	}

	out, err := exprlang.Run(h.program, env)
	if err != nil {
		return HookNoOpinion, "", fmt.Errorf("run override expression %q: %w", h.expression, err)
	}

	switch v := out.(type) {
	case bool:
		if v {
			return HookApprove, "", nil
		}
		return HookNoOpinion, "", nil
	case string:
		switch v {
		case "approve":
			return HookApprove, "", nil
		case "deny":
			return HookDeny, h.denyReason, nil
		case "skip", "":
			return HookNoOpinion, "", nil
		default:
			return HookNoOpinion, "", fmt.Errorf("override expression returned unknown verdict %q", v)
		}
	default:
		return HookNoOpinion, "", fmt.Errorf("override expression returned %T, want bool or string", out)
	}
}
