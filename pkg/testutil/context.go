package testutil

import (
	"net/http"

	"gatehouse/pkg/requestcontext"
)

// WithModerator adds an authenticated moderator ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithModerator(req *http.Request, moderatorID string) *http.Request {
	return req.WithContext(requestcontext.WithModeratorID(req.Context(), moderatorID))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
