package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"campus-chat/internal/models"
	apperrors "campus-chat/pkg/errors"
)

// GroupRepository abstracts chat group persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, id, courseID, displayName, ownerID string) (models.ChatGroup, error)
	GetGroup(ctx context.Context, groupID string) (models.ChatGroup, error)
	DeleteGroup(ctx context.Context, groupID string) error
	ListGroupsByOwner(ctx context.Context, ownerID string) ([]models.ChatGroup, error)
	ListGroupsByCourses(ctx context.Context, courseIDs []string) ([]models.ChatGroup, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup inserts a group; created_at comes from the store's clock.
func (r *GroupRepo) CreateGroup(ctx context.Context, id, courseID, displayName, ownerID string) (models.ChatGroup, error) {
	var group models.ChatGroup
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO chat_groups (id, course_id, display_name, owner_id) VALUES ($1, $2, $3, $4)
         RETURNING id, course_id, display_name, owner_id, created_at`,
		id, courseID, displayName, ownerID).StructScan(&group)
	if err != nil {
		return models.ChatGroup{}, fmt.Errorf("%w: create group: %v", apperrors.ErrStoreUnavailable, err)
	}
	return group, nil
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID string) (models.ChatGroup, error) {
	var group models.ChatGroup
	err := r.db.GetContext(ctx, &group,
		`SELECT id, course_id, display_name, owner_id, created_at FROM chat_groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatGroup{}, apperrors.ErrGroupNotFound
	}
	if err != nil {
		return models.ChatGroup{}, fmt.Errorf("%w: get group: %v", apperrors.ErrStoreUnavailable, err)
	}
	return group, nil
}

// DeleteGroup removes the group record itself. Callers must delete the
// group's messages first; the message FK is intentionally not cascading.
func (r *GroupRepo) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_groups WHERE id=$1`, groupID)
	if err != nil {
		return fmt.Errorf("%w: delete group: %v", apperrors.ErrStoreUnavailable, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete group: %v", apperrors.ErrStoreUnavailable, err)
	}
	if count == 0 {
		return apperrors.ErrGroupNotFound
	}
	return nil
}

// ListGroupsByOwner returns groups owned by the lecturer, newest first.
func (r *GroupRepo) ListGroupsByOwner(ctx context.Context, ownerID string) ([]models.ChatGroup, error) {
	groups := []models.ChatGroup{}
	err := r.db.SelectContext(ctx, &groups,
		`SELECT id, course_id, display_name, owner_id, created_at FROM chat_groups WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list groups by owner: %v", apperrors.ErrStoreUnavailable, err)
	}
	return groups, nil
}

// ListGroupsByCourses returns groups belonging to any of the given courses.
func (r *GroupRepo) ListGroupsByCourses(ctx context.Context, courseIDs []string) ([]models.ChatGroup, error) {
	if len(courseIDs) == 0 {
		return []models.ChatGroup{}, nil
	}
	query, args, err := sqlx.In(
		`SELECT id, course_id, display_name, owner_id, created_at FROM chat_groups WHERE course_id IN (?) ORDER BY created_at DESC`, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: list groups by courses: %v", apperrors.ErrStoreUnavailable, err)
	}
	groups := []models.ChatGroup{}
	if err := r.db.SelectContext(ctx, &groups, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%w: list groups by courses: %v", apperrors.ErrStoreUnavailable, err)
	}
	return groups, nil
}
