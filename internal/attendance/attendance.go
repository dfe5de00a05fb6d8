package attendance

import (
	"context"
	"errors"
	"time"
)

// DateLayout is the calendar-date key format, always rendered in the
// portal's fixed timezone.
const DateLayout = "2006-01-02"

// Status is a day's attendance outcome.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Reasons attached when the caller supplies none and when the backfill
// sweep synthesizes an absence.
const (
	DefaultReason = "no reason provided"
	SystemReason  = "marked absent by system"
)

// Domain rejections. These are expected user-facing outcomes, not failures.
var (
	ErrWindowClosed  = errors.New("attendance window is closed")
	ErrAlreadyMarked = errors.New("attendance already marked for today")
	ErrMissingStatus = errors.New("status must be present or absent")
	ErrNoRecords     = errors.New("no attendance records")
	ErrDisabled      = errors.New("attendance marking is disabled")
)

// Record is one student's attendance for one calendar date. At most one
// record exists per (student, date); the store enforces this.
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Date      string    `json:"date"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason"`
	Auto      bool      `json:"auto"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings are the admin-configured marking-window parameters.
type Settings struct {
	SessionStart string `json:"session_start"`
	OpeningTime  string `json:"opening_time"`
	ClosingTime  string `json:"closing_time"`
	GraceMinutes int    `json:"grace_minutes"`
	Enabled      bool   `json:"enabled"`
}

// Store is the per-day attendance record store the engine writes through.
// Implementations must enforce (student, date) uniqueness; the service
// relies on Insert reporting a conflict rather than duplicating.
type Store interface {
	Get(ctx context.Context, studentID, date string) (*Record, error)
	Insert(ctx context.Context, rec Record) (bool, error)
	UpdateStatus(ctx context.Context, studentID, date string, status Status, reason string) error
	Dates(ctx context.Context, studentID string) (map[string]struct{}, error)
	BulkInsertAbsent(ctx context.Context, studentID string, dates []string, reason string) (int, error)
	List(ctx context.Context, studentID string) ([]Record, error)
	Settings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, set Settings) error
}
