package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
)

// Moderator is an account allowed to call the moderation API.
type Moderator struct {
	ID           string
	Name         string
	PasswordHash string
}

// CredentialStore looks up moderator accounts for login.
type CredentialStore interface {
	FindByName(ctx context.Context, name string) (Moderator, error)
}

// HashPassword creates a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword checks a plaintext password against a bcrypt hash.
func VerifyPassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return fmt.Errorf("could not verify password: %w", err)
	}
	return nil
}

// MemoryCredentialStore holds moderator accounts in memory. Suitable for
// single-node deployments and tests; accounts are seeded at startup.
type MemoryCredentialStore struct {
	mu       sync.RWMutex
	accounts map[string]Moderator
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{accounts: make(map[string]Moderator)}
}

// Seed registers a moderator account, hashing the supplied password.
func (s *MemoryCredentialStore) Seed(id, name, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[name] = Moderator{ID: id, Name: name, PasswordHash: hash}
	return nil
}

func (s *MemoryCredentialStore) FindByName(_ context.Context, name string) (Moderator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.accounts[name]
	if !ok {
		return Moderator{}, sentinel.ErrNotFound
	}
	return m, nil
}
