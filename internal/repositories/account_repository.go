package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"campus-chat/internal/models"
	apperrors "campus-chat/pkg/errors"
)

// Well-known service lecturer used for campus-wide announcements.
const (
	wellKnownLecturerID   = "campus-admin"
	wellKnownLecturerName = "Campus Administration"
)

// AccountRepository provisions well-known accounts in the record store.
type AccountRepository interface {
	EnsureWellKnownLecturer(ctx context.Context) (models.Identity, error)
}

// AccountRepo is a sqlx implementation of AccountRepository.
type AccountRepo struct {
	db *sqlx.DB
}

// NewAccountRepo constructs an AccountRepo.
func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// EnsureWellKnownLecturer find-or-creates the well-known lecturer account.
// The insert is idempotent, so concurrent processes and restarts are safe;
// no in-memory once-flag is involved.
func (r *AccountRepo) EnsureWellKnownLecturer(ctx context.Context) (models.Identity, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, display_name, role) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		wellKnownLecturerID, wellKnownLecturerName, models.RoleLecturer)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: ensure well-known lecturer: %v", apperrors.ErrStoreUnavailable, err)
	}

	var row struct {
		ID          string `db:"id"`
		DisplayName string `db:"display_name"`
		Role        string `db:"role"`
	}
	if err := r.db.GetContext(ctx, &row, `SELECT id, display_name, role FROM accounts WHERE id=$1`, wellKnownLecturerID); err != nil {
		return models.Identity{}, fmt.Errorf("%w: ensure well-known lecturer: %v", apperrors.ErrStoreUnavailable, err)
	}
	return models.Identity{ID: row.ID, DisplayName: row.DisplayName, Role: models.Role(row.Role)}, nil
}
