package account

import (
	"context"
	"errors"
	"time"
)

// Role partitions the portal into admin, teacher and student areas.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// HomePath returns the role's section root, the landing spot after login
// and the redirect target when a request strays into another role's section.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/a"
	case RoleTeacher:
		return "/t"
	case RoleStudent:
		return "/s"
	}
	return "/login"
}

// Account is a portal login. Credentials may be issued only while the
// account is verified and active.
type Account struct {
	ID           string
	PortalID     string
	PasswordHash string
	Role         Role
	Verified     bool
	Active       bool
	CreatedAt    time.Time
}

// ErrNotFound is returned when no account matches the lookup key.
var ErrNotFound = errors.New("account not found")

// Repository persists portal accounts.
type Repository interface {
	ByPortalID(ctx context.Context, portalID string) (*Account, error)
	ByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, acc *Account) error
	UpdateRole(ctx context.Context, id string, role Role) error
}
