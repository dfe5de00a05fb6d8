package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository persists attendance data in Postgres. The
// (student_id, attend_date) unique constraint lives in the schema, so
// concurrent writers cannot duplicate a day.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the record for (studentID, date), or nil when absent.
func (r *PostgresRepository) Get(ctx context.Context, studentID, date string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, attend_date::text, status, reason, auto, created_at, updated_at
		FROM attendance_records
		WHERE student_id = $1 AND attend_date = $2::date
	`, studentID, date)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.Date, &rec.Status, &rec.Reason, &rec.Auto, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Insert writes a new record. Returns false when the composite key already
// exists, which callers treat as a concurrent duplicate.
func (r *PostgresRepository) Insert(ctx context.Context, rec Record) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, student_id, attend_date, status, reason, auto)
		VALUES ($1, $2, $3::date, $4, $5, $6)
		ON CONFLICT (student_id, attend_date) DO NOTHING
	`, rec.ID, rec.StudentID, rec.Date, rec.Status, rec.Reason, rec.Auto)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatus overwrites status and reason for an existing day.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, studentID, date string, status Status, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = $3, reason = $4, auto = FALSE, updated_at = NOW()
		WHERE student_id = $1 AND attend_date = $2::date
	`, studentID, date, status, reason)
	return err
}

// Dates returns the set of dates that already have records for the student.
func (r *PostgresRepository) Dates(ctx context.Context, studentID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT attend_date::text FROM attendance_records WHERE student_id = $1
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	dates := make(map[string]struct{})
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates[d] = struct{}{}
	}
	return dates, rows.Err()
}

// BulkInsertAbsent synthesizes absence records for the given dates in one
// statement, skipping dates that gained a record in the meantime.
func (r *PostgresRepository) BulkInsertAbsent(ctx context.Context, studentID string, dates []string, reason string) (int, error) {
	if len(dates) == 0 {
		return 0, nil
	}
	values := make([]string, 0, len(dates))
	args := make([]any, 0, len(dates)*2+2)
	args = append(args, studentID, reason)
	for _, d := range dates {
		args = append(args, uuid.NewString(), d)
		values = append(values, fmt.Sprintf("($%d, $1, $%d::date, 'absent', $2, TRUE)", len(args)-1, len(args)))
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, student_id, attend_date, status, reason, auto)
		VALUES `+strings.Join(values, ", ")+`
		ON CONFLICT (student_id, attend_date) DO NOTHING
	`, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// List returns all records for the student, oldest first.
func (r *PostgresRepository) List(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, attend_date::text, status, reason, auto, created_at, updated_at
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY attend_date
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Date, &rec.Status, &rec.Reason, &rec.Auto, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Settings reads the single attendance_settings row.
func (r *PostgresRepository) Settings(ctx context.Context) (Settings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_start::text, opening_time, closing_time, grace_minutes, enabled
		FROM attendance_settings WHERE id = 1
	`)
	var set Settings
	err := row.Scan(&set.SessionStart, &set.OpeningTime, &set.ClosingTime, &set.GraceMinutes, &set.Enabled)
	return set, err
}

// UpdateSettings replaces the attendance_settings row.
func (r *PostgresRepository) UpdateSettings(ctx context.Context, set Settings) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_settings
		SET session_start = $1::date, opening_time = $2, closing_time = $3, grace_minutes = $4, enabled = $5
		WHERE id = 1
	`, set.SessionStart, set.OpeningTime, set.ClosingTime, set.GraceMinutes, set.Enabled)
	return err
}

// Summary is a per-student tally maintained by the worker.
type Summary struct {
	StudentID    string    `json:"student_id"`
	PresentCount int       `json:"present_count"`
	AbsentCount  int       `json:"absent_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BumpSummary increments the tally for a freshly marked status.
func (r *PostgresRepository) BumpSummary(ctx context.Context, studentID string, status Status) error {
	present, absent := 0, 0
	if status == StatusPresent {
		present = 1
	} else {
		absent = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_summaries (student_id, present_count, absent_count, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			present_count = attendance_summaries.present_count + EXCLUDED.present_count,
			absent_count = attendance_summaries.absent_count + EXCLUDED.absent_count,
			updated_at = NOW()
	`, studentID, present, absent)
	return err
}

// GetSummary returns the tally for a student, or nil when none exists yet.
func (r *PostgresRepository) GetSummary(ctx context.Context, studentID string) (*Summary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT student_id, present_count, absent_count, updated_at
		FROM attendance_summaries WHERE student_id = $1
	`, studentID)
	var s Summary
	if err := row.Scan(&s.StudentID, &s.PresentCount, &s.AbsentCount, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
