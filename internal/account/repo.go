package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository persists accounts in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ByPortalID looks up an account by its portal login identifier.
func (r *PostgresRepository) ByPortalID(ctx context.Context, portalID string) (*Account, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, portal_id, password_hash, role, verified, active, created_at
		FROM accounts WHERE portal_id = $1
	`, portalID))
}

// ByID looks up an account by primary key.
func (r *PostgresRepository) ByID(ctx context.Context, id string) (*Account, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, portal_id, password_hash, role, verified, active, created_at
		FROM accounts WHERE id = $1
	`, id))
}

// Create inserts a new account, assigning an id when missing.
func (r *PostgresRepository) Create(ctx context.Context, acc *Account) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, portal_id, password_hash, role, verified, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, acc.ID, acc.PortalID, acc.PasswordHash, acc.Role, acc.Verified, acc.Active, acc.CreatedAt)
	return err
}

// UpdateRole changes an account's role. The new role takes effect on the
// next credential issue; tokens already in the wild keep the old role
// until they expire or are refreshed.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*Account, error) {
	var acc Account
	err := row.Scan(&acc.ID, &acc.PortalID, &acc.PasswordHash, &acc.Role, &acc.Verified, &acc.Active, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
