package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"schoolportal/internal/account"
)

// Login failure modes. Handlers collapse ErrAccountNotFound and
// ErrInvalidCredentials into one user-facing message so the response does
// not reveal which factor was wrong.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccessDenied       = errors.New("account not verified or access disabled")
)

// Service issues and refreshes session credentials.
type Service struct {
	accounts account.Repository
	issuer   string
	secret   string
	ttl      time.Duration
}

// NewService creates the session service.
func NewService(accounts account.Repository, issuer, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{accounts: accounts, issuer: issuer, secret: secret, ttl: ttl}
}

// TTLSeconds returns the credential lifetime for the cookie Max-Age.
func (s *Service) TTLSeconds() int {
	return int(s.ttl / time.Second)
}

// Login verifies the portal id and password and mints a session token.
func (s *Service) Login(ctx context.Context, portalID, password string) (*account.Account, string, error) {
	acc, err := s.accounts.ByPortalID(ctx, portalID)
	if errors.Is(err, account.ErrNotFound) {
		return nil, "", ErrAccountNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("account lookup: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !acc.Verified || !acc.Active {
		return nil, "", ErrAccessDenied
	}
	token, _, err := Issue(acc.ID, acc.Role, s.issuer, s.secret, s.ttl)
	if err != nil {
		return nil, "", fmt.Errorf("token issue: %w", err)
	}
	return acc, token, nil
}

// Refresh re-reads the account and reissues the credential so that a role
// change takes effect without waiting for re-login. The account must still
// be verified and active.
func (s *Service) Refresh(ctx context.Context, id string) (*account.Account, string, error) {
	acc, err := s.accounts.ByID(ctx, id)
	if errors.Is(err, account.ErrNotFound) {
		return nil, "", ErrAccountNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("account lookup: %w", err)
	}
	if !acc.Verified || !acc.Active {
		return nil, "", ErrAccessDenied
	}
	token, _, err := Issue(acc.ID, acc.Role, s.issuer, s.secret, s.ttl)
	if err != nil {
		return nil, "", fmt.Errorf("token issue: %w", err)
	}
	return acc, token, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
