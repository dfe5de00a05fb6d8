package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schoolportal/internal/lock"
)

// Result describes the outcome of a successful mark.
type Result struct {
	Status     Status
	Date       string
	Created    bool
	Backfilled int
}

// BackfillError reports a sweep that aborted partway. The day's own mark
// has already been committed when this is returned.
type BackfillError struct {
	Inserted int
	Err      error
}

func (e *BackfillError) Error() string {
	return fmt.Sprintf("backfill aborted after %d inserts: %v", e.Inserted, e.Err)
}

func (e *BackfillError) Unwrap() error { return e.Err }

// Service gates same-day marking to the configured window, persists the
// day's status, and backfills missed prior days as absences.
type Service struct {
	store   Store
	clock   Clock
	locker  lock.Locker
	restDay time.Weekday
}

// NewService creates the attendance engine. locker may be nil; it only
// reduces duplicate backfill sweeps, the store's unique key is what keeps
// records singular.
func NewService(store Store, clock Clock, locker lock.Locker) *Service {
	return &Service{store: store, clock: clock, locker: locker, restDay: time.Sunday}
}

// Mark records or amends the student's attendance for today.
//
// Per (student, today) the transitions are: unmarked -> marked(status)
// inside the window only; marked(s) -> marked(s) is rejected as redundant;
// marked(s) -> marked(s') overwrites status and reason. A first-time
// creation additionally triggers the backfill sweep.
func (s *Service) Mark(ctx context.Context, studentID string, status Status, reason string) (Result, error) {
	if !status.Valid() {
		return Result{}, ErrMissingStatus
	}

	set, err := s.store.Settings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load settings: %w", err)
	}
	if !set.Enabled {
		return Result{}, ErrDisabled
	}
	win, err := set.Window()
	if err != nil {
		return Result{}, fmt.Errorf("settings window: %w", err)
	}

	now := s.clock.Now()
	if !win.Contains(now) {
		return Result{}, ErrWindowClosed
	}
	today := now.Format(DateLayout)
	if reason == "" {
		reason = DefaultReason
	}

	existing, err := s.store.Get(ctx, studentID, today)
	if err != nil {
		return Result{}, fmt.Errorf("read record: %w", err)
	}
	if existing != nil {
		return s.amend(ctx, existing, studentID, today, status, reason)
	}

	inserted, err := s.store.Insert(ctx, Record{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Date:      today,
		Status:    status,
		Reason:    reason,
	})
	if err != nil {
		return Result{}, fmt.Errorf("insert record: %w", err)
	}
	if !inserted {
		// Lost a race with a concurrent mark for the same day. Re-read and
		// apply the amendment rules against whatever won.
		existing, err = s.store.Get(ctx, studentID, today)
		if err != nil {
			return Result{}, fmt.Errorf("read record: %w", err)
		}
		if existing == nil {
			return Result{}, fmt.Errorf("record for %s vanished after conflict", today)
		}
		return s.amend(ctx, existing, studentID, today, status, reason)
	}

	backfilled, err := s.backfill(ctx, studentID, set.SessionStart, today)
	res := Result{Status: status, Date: today, Created: true, Backfilled: backfilled}
	if err != nil {
		return res, err
	}
	return res, nil
}

func (s *Service) amend(ctx context.Context, existing *Record, studentID, today string, status Status, reason string) (Result, error) {
	if existing.Status == status {
		return Result{}, ErrAlreadyMarked
	}
	if err := s.store.UpdateStatus(ctx, studentID, today, status, reason); err != nil {
		return Result{}, fmt.Errorf("update record: %w", err)
	}
	return Result{Status: status, Date: today}, nil
}

// backfill synthesizes absences for every eligible day between the session
// start and today. On store failure the sweep aborts and the error is
// reported to the caller rather than swallowed; re-running is safe because
// inserts skip dates that already have records.
func (s *Service) backfill(ctx context.Context, studentID, sessionStart, today string) (int, error) {
	if s.locker != nil {
		held, err := s.locker.Lock(ctx, "backfill:"+studentID, 30*time.Second)
		if err == nil && !held {
			// Another request is already sweeping this student.
			return 0, nil
		}
		if err == nil {
			defer func() { _ = s.locker.Unlock(ctx, "backfill:"+studentID) }()
		}
	}

	existing, err := s.store.Dates(ctx, studentID)
	if err != nil {
		return 0, &BackfillError{Err: fmt.Errorf("list dates: %w", err)}
	}
	missing, err := MissingDates(sessionStart, today, existing, s.restDay)
	if err != nil {
		return 0, &BackfillError{Err: err}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	n, err := s.store.BulkInsertAbsent(ctx, studentID, missing, SystemReason)
	if err != nil {
		return n, &BackfillError{Inserted: n, Err: err}
	}
	return n, nil
}

// List returns every record for the student. An empty history is reported
// as ErrNoRecords so callers can distinguish it from a store failure.
func (s *Service) List(ctx context.Context, studentID string) ([]Record, error) {
	recs, err := s.store.List(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}
	return recs, nil
}

// Settings returns the current marking-window configuration.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return s.store.Settings(ctx)
}

// UpdateSettings validates and stores new marking-window configuration.
func (s *Service) UpdateSettings(ctx context.Context, set Settings) error {
	if err := set.Validate(); err != nil {
		return err
	}
	return s.store.UpdateSettings(ctx, set)
}
