package authz

import (
	"context"
	"fmt"

	"campus-chat/internal/models"
	"campus-chat/internal/repositories"
	apperrors "campus-chat/pkg/errors"
)

// Resolver computes which chat groups an identity may see. Visibility is
// recomputed from enrollment/ownership data on every call; enrollment can
// change between calls and stale caches would leak or hide groups.
type Resolver struct {
	groups      repositories.GroupRepository
	enrollments repositories.EnrollmentRepository
}

// NewResolver constructs a Resolver.
func NewResolver(groups repositories.GroupRepository, enrollments repositories.EnrollmentRepository) *Resolver {
	return &Resolver{groups: groups, enrollments: enrollments}
}

// ResolveVisibleGroups returns the groups the identity is authorized to
// see: owned groups for lecturers, enrolled-course groups for students.
func (r *Resolver) ResolveVisibleGroups(ctx context.Context, ident models.Identity) ([]models.ChatGroup, error) {
	switch ident.Role {
	case models.RoleLecturer:
		groups, err := r.groups.ListGroupsByOwner(ctx, ident.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrAuthorizationResolution, err)
		}
		return groups, nil
	case models.RoleStudent:
		courseIDs, err := r.enrollments.ListCoursesForStudent(ctx, ident.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrAuthorizationResolution, err)
		}
		groups, err := r.groups.ListGroupsByCourses(ctx, courseIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrAuthorizationResolution, err)
		}
		return groups, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrAuthorizationResolution, ident.Role)
	}
}

// VisibleGroup returns the group if the identity may see it, ErrForbidden
// otherwise. Used as the caller-side gate for sends, reads, and uploads.
func (r *Resolver) VisibleGroup(ctx context.Context, ident models.Identity, groupID string) (models.ChatGroup, error) {
	groups, err := r.ResolveVisibleGroups(ctx, ident)
	if err != nil {
		return models.ChatGroup{}, err
	}
	for _, g := range groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	// distinguish a vanished group from one the caller may not see
	if _, err := r.groups.GetGroup(ctx, groupID); err != nil {
		return models.ChatGroup{}, err
	}
	return models.ChatGroup{}, apperrors.ErrForbidden
}

// CanCreateGroups reports whether the identity may create chat groups.
func CanCreateGroups(ident models.Identity) bool {
	return ident.Role == models.RoleLecturer
}

// CanUpload reports whether the identity may upload attachments.
func CanUpload(ident models.Identity) bool {
	return ident.Role == models.RoleLecturer
}

// IsGroupOwner reports whether the identity owns the group.
func IsGroupOwner(ident models.Identity, group models.ChatGroup) bool {
	return ident.ID == group.OwnerID
}
