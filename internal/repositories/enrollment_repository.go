package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	apperrors "campus-chat/pkg/errors"
)

// EnrollmentRepository reads enrollment records. Enrollments are maintained
// by the course administration side and are read-only here.
type EnrollmentRepository interface {
	ListCoursesForStudent(ctx context.Context, studentID string) ([]string, error)
}

// EnrollmentRepo is a sqlx implementation of EnrollmentRepository.
type EnrollmentRepo struct {
	db *sqlx.DB
}

// NewEnrollmentRepo constructs an EnrollmentRepo.
func NewEnrollmentRepo(db *sqlx.DB) *EnrollmentRepo {
	return &EnrollmentRepo{db: db}
}

// ListCoursesForStudent returns the course ids the student is enrolled in.
func (r *EnrollmentRepo) ListCoursesForStudent(ctx context.Context, studentID string) ([]string, error) {
	courseIDs := []string{}
	err := r.db.SelectContext(ctx, &courseIDs,
		`SELECT course_id FROM enrollments WHERE student_id=$1`, studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list enrollments: %v", apperrors.ErrStoreUnavailable, err)
	}
	return courseIDs, nil
}
