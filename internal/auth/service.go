package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
)

const defaultTokenTTL = time.Hour

// Service exchanges moderator credentials for access tokens.
type Service struct {
	store  CredentialStore
	jwt    *JWTService
	ttl    time.Duration
	logger *slog.Logger
}

func NewService(store CredentialStore, jwt *JWTService, logger *slog.Logger) *Service {
	return &Service{store: store, jwt: jwt, ttl: defaultTokenTTL, logger: logger}
}

// Login verifies the credentials and issues a signed token. Lookup misses and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, name, password string) (string, error) {
	mod, err := s.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		s.logger.ErrorContext(ctx, "credential lookup failed", "error", err)
		return "", dErrors.Wrap(dErrors.CodeInternal, "could not verify credentials", err)
	}
	if err := VerifyPassword(password, mod.PasswordHash); err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	token, err := s.jwt.GenerateAccessToken(mod.ID, mod.Name, s.ttl)
	if err != nil {
		s.logger.ErrorContext(ctx, "token generation failed", "error", err)
		return "", dErrors.Wrap(dErrors.CodeInternal, "could not issue token", err)
	}
	return token, nil
}
