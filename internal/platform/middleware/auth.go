package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"gatehouse/pkg/requestcontext"
)

// ModeratorValidator defines the interface for validating moderator tokens
type ModeratorValidator interface {
	ValidateToken(tokenString string) (*ModeratorClaims, error)
}

// ModeratorClaims represents the claims we expect from the token validator
type ModeratorClaims struct {
	ModeratorID string
	Name        string
}

// RequireModerator guards the moderation API: requests without a valid bearer
// token are rejected, and the moderator identity is placed on the request
// context for handlers and the audit trail.
func RequireModerator(validator ModeratorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if token, ok := strings.CutPrefix(authHeader, bearerPrefix); ok {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					ctx := r.Context()
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
					writeUnauthorized(w, "Invalid or expired token")
					return
				}

				ctx := requestcontext.WithModeratorID(r.Context(), claims.ModeratorID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// No Authorization header or invalid format
			ctx := r.Context()
			logger.WarnContext(ctx, "unauthorized access - missing token",
				"request_id", requestcontext.RequestID(ctx),
			)
			writeUnauthorized(w, "Missing or invalid Authorization header")
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
