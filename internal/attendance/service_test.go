package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

// memStore is an in-memory Store enforcing the (student, date) key the way
// the schema's unique constraint does.
type memStore struct {
	recs     map[string]map[string]*Record
	set      Settings
	failBulk error
	failList error
}

func newMemStore(set Settings) *memStore {
	return &memStore{recs: make(map[string]map[string]*Record), set: set}
}

func (m *memStore) Get(_ context.Context, studentID, date string) (*Record, error) {
	if rec, ok := m.recs[studentID][date]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Insert(_ context.Context, rec Record) (bool, error) {
	if _, ok := m.recs[rec.StudentID][rec.Date]; ok {
		return false, nil
	}
	if m.recs[rec.StudentID] == nil {
		m.recs[rec.StudentID] = make(map[string]*Record)
	}
	m.recs[rec.StudentID][rec.Date] = &rec
	return true, nil
}

func (m *memStore) UpdateStatus(_ context.Context, studentID, date string, status Status, reason string) error {
	rec, ok := m.recs[studentID][date]
	if !ok {
		return errors.New("no such record")
	}
	rec.Status = status
	rec.Reason = reason
	rec.Auto = false
	return nil
}

func (m *memStore) Dates(_ context.Context, studentID string) (map[string]struct{}, error) {
	dates := make(map[string]struct{})
	for d := range m.recs[studentID] {
		dates[d] = struct{}{}
	}
	return dates, nil
}

func (m *memStore) BulkInsertAbsent(_ context.Context, studentID string, dates []string, reason string) (int, error) {
	if m.failBulk != nil {
		return 0, m.failBulk
	}
	n := 0
	for _, d := range dates {
		if _, ok := m.recs[studentID][d]; ok {
			continue
		}
		if m.recs[studentID] == nil {
			m.recs[studentID] = make(map[string]*Record)
		}
		m.recs[studentID][d] = &Record{StudentID: studentID, Date: d, Status: StatusAbsent, Reason: reason, Auto: true}
		n++
	}
	return n, nil
}

func (m *memStore) List(_ context.Context, studentID string) ([]Record, error) {
	if m.failList != nil {
		return nil, m.failList
	}
	var recs []Record
	for _, rec := range m.recs[studentID] {
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (m *memStore) Settings(_ context.Context) (Settings, error) {
	return m.set, nil
}

func (m *memStore) UpdateSettings(_ context.Context, set Settings) error {
	m.set = set
	return nil
}

func insideWindow() time.Time {
	return time.Date(2026, 3, 6, 9, 15, 0, 0, time.UTC) // Friday 09:15
}

func newTestService(set Settings, now time.Time) (*Service, *memStore) {
	store := newMemStore(set)
	return NewService(store, fixedClock{t: now}, nil), store
}

func TestMark_OutsideWindow(t *testing.T) {
	t.Parallel()

	cases := []time.Time{
		time.Date(2026, 3, 6, 8, 59, 0, 0, time.UTC),
		time.Date(2026, 3, 6, 11, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 6, 23, 30, 0, 0, time.UTC),
	}
	for _, now := range cases {
		svc, _ := newTestService(defaultSettings(), now)
		_, err := svc.Mark(context.Background(), "stu-1", StatusPresent, "")
		require.ErrorIs(t, err, ErrWindowClosed, now.Format("15:04"))
	}
}

func TestMark_WindowClosedEvenWhenAlreadyMarked(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(defaultSettings(), insideWindow())
	_, err := svc.Mark(context.Background(), "stu-1", StatusPresent, "")
	require.NoError(t, err)

	late := NewService(store, fixedClock{t: time.Date(2026, 3, 6, 11, 30, 0, 0, time.UTC)}, nil)
	_, err = late.Mark(context.Background(), "stu-1", StatusPresent, "")
	require.ErrorIs(t, err, ErrWindowClosed)
}

func TestMark_AtOpeningMinute(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(defaultSettings(), time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC))
	res, err := svc.Mark(context.Background(), "stu-1", StatusPresent, "")
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, StatusPresent, res.Status)
}

func TestMark_SameStatusRejected(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(defaultSettings(), insideWindow())
	_, err := svc.Mark(context.Background(), "stu-1", StatusPresent, "on time")
	require.NoError(t, err)

	before := *store.recs["stu-1"]["2026-03-06"]
	_, err = svc.Mark(context.Background(), "stu-1", StatusPresent, "again")
	require.ErrorIs(t, err, ErrAlreadyMarked)
	require.Equal(t, before, *store.recs["stu-1"]["2026-03-06"], "redundant resubmission must not mutate")
}

func TestMark_StatusToggleUpdatesInPlace(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(defaultSettings(), insideWindow())
	_, err := svc.Mark(context.Background(), "stu-1", StatusPresent, "")
	require.NoError(t, err)

	res, err := svc.Mark(context.Background(), "stu-1", StatusAbsent, "went home sick")
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Equal(t, StatusAbsent, res.Status)

	require.Len(t, store.recs["stu-1"], 5) // today + 4 backfilled weekdays since session start
	rec := store.recs["stu-1"]["2026-03-06"]
	require.Equal(t, StatusAbsent, rec.Status)
	require.Equal(t, "went home sick", rec.Reason)
}

func TestMark_MissingStatus(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(defaultSettings(), insideWindow())
	_, err := svc.Mark(context.Background(), "stu-1", Status(""), "")
	require.ErrorIs(t, err, ErrMissingStatus)
	_, err = svc.Mark(context.Background(), "stu-1", Status("late"), "")
	require.ErrorIs(t, err, ErrMissingStatus)
}

func TestMark_Disabled(t *testing.T) {
	t.Parallel()

	set := defaultSettings()
	set.Enabled = false
	svc, _ := newTestService(set, insideWindow())
	_, err := svc.Mark(context.Background(), "stu-1", StatusPresent, "")
	require.ErrorIs(t, err, ErrDisabled)
}

func TestMark_FirstMarkBackfillsHistory(t *testing.T) {
	t.Parallel()

	// Session starts Sunday 2026-03-01; today is Friday 2026-03-06.
	// Mon..Thu must be synthesized, the Sunday skipped, today owned by
	// the mark itself.
	svc, store := newTestService(defaultSettings(), insideWindow())
	res, err := svc.Mark(context.Background(), "stu-1", StatusPresent, "")
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, 4, res.Backfilled)

	require.NotContains(t, store.recs["stu-1"], "2026-03-01")
	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"} {
		rec := store.recs["stu-1"][d]
		require.NotNil(t, rec, d)
		require.Equal(t, StatusAbsent, rec.Status, d)
		require.Equal(t, SystemReason, rec.Reason, d)
		require.True(t, rec.Auto, d)
	}
	require.Equal(t, StatusPresent, store.recs["stu-1"]["2026-03-06"].Status)
}

func TestMark_BackfillOnlyOnFirstCreation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(defaultSettings(), insideWindow())
	res, err := svc.Mark(context.Background(), "stu-1", StatusPresent, "")
	require.NoError(t, err)
	require.Equal(t, 4, res.Backfilled)

	res, err = svc.Mark(context.Background(), "stu-1", StatusAbsent, "")
	require.NoError(t, err)
	require.Zero(t, res.Backfilled)
}

func TestMark_BackfillFailureReported(t *testing.T) {
	t.Parallel()

	store := newMemStore(defaultSettings())
	store.failBulk = errors.New("connection reset")
	svc := NewService(store, fixedClock{t: insideWindow()}, nil)

	res, err := svc.Mark(context.Background(), "stu-1", StatusPresent, "")
	var bferr *BackfillError
	require.ErrorAs(t, err, &bferr)

	// The day's own mark is committed; only the sweep aborted.
	require.True(t, res.Created)
	require.NotNil(t, store.recs["stu-1"]["2026-03-06"])
	require.Len(t, store.recs["stu-1"], 1)
}

func TestMark_InsertConflictFallsBackToAmend(t *testing.T) {
	t.Parallel()

	store := newMemStore(defaultSettings())
	svc := NewService(store, fixedClock{t: insideWindow()}, nil)

	// Simulate a concurrent request winning between Get and Insert by
	// pre-seeding after the service would have observed no record.
	_, err := store.Insert(context.Background(), Record{
		ID: "other", StudentID: "stu-1", Date: "2026-03-06", Status: StatusPresent, Reason: DefaultReason,
	})
	require.NoError(t, err)

	_, err = svc.Mark(context.Background(), "stu-1", StatusPresent, "")
	require.ErrorIs(t, err, ErrAlreadyMarked)

	// A differing status amends the winner's record instead of duplicating.
	res, err := svc.Mark(context.Background(), "stu-1", StatusAbsent, "")
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Len(t, store.recs["stu-1"], 1)
}

func TestList(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(defaultSettings(), insideWindow())

	_, err := svc.List(context.Background(), "stu-1")
	require.ErrorIs(t, err, ErrNoRecords)

	_, err = svc.Mark(context.Background(), "stu-1", StatusPresent, "")
	require.NoError(t, err)

	recs, err := svc.List(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, recs, 5)
}

func TestUpdateSettings_Validates(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(defaultSettings(), insideWindow())

	bad := defaultSettings()
	bad.ClosingTime = "08:00"
	require.Error(t, svc.UpdateSettings(context.Background(), bad))

	good := defaultSettings()
	good.GraceMinutes = 10
	require.NoError(t, svc.UpdateSettings(context.Background(), good))

	set, err := svc.Settings(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, set.GraceMinutes)
}
