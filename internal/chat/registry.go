package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"campus-chat/internal/authz"
	"campus-chat/internal/models"
	"campus-chat/internal/repositories"
	"campus-chat/internal/storage"
	apperrors "campus-chat/pkg/errors"
)

// deletionNotifier lets the registry terminate live subscriptions when a
// group goes away.
type deletionNotifier interface {
	GroupDeleted(groupID string)
}

// GroupRegistry owns group lifecycle: lecturer-only creation and
// owner-only deletion with cascading message cleanup.
type GroupRegistry struct {
	groups   repositories.GroupRepository
	messages repositories.MessageRepository
	blobs    storage.BlobStore
	notifier deletionNotifier
}

// NewGroupRegistry constructs a GroupRegistry. blobs may be nil when no
// blob store is configured; cascade blob cleanup is then skipped.
func NewGroupRegistry(groups repositories.GroupRepository, messages repositories.MessageRepository, blobs storage.BlobStore, notifier deletionNotifier) *GroupRegistry {
	return &GroupRegistry{groups: groups, messages: messages, blobs: blobs, notifier: notifier}
}

// CreateGroup creates a course-scoped group owned by the lecturer. The id
// is generated here; the store assigns the creation timestamp.
func (r *GroupRegistry) CreateGroup(ctx context.Context, owner models.Identity, courseID, displayName string) (models.ChatGroup, error) {
	if !authz.CanCreateGroups(owner) {
		return models.ChatGroup{}, fmt.Errorf("%w: only lecturers may create groups", apperrors.ErrForbidden)
	}
	return r.groups.CreateGroup(ctx, uuid.NewString(), courseID, displayName, owner.ID)
}

// DeleteGroup removes a group and cascades to its messages. Messages go
// first, then the group record, so a crash mid-cascade leaves at worst a
// message-less orphan group rather than unowned messages. Referenced
// attachment blobs are removed last, best-effort.
func (r *GroupRegistry) DeleteGroup(ctx context.Context, actor models.Identity, groupID string) error {
	group, err := r.groups.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !authz.IsGroupOwner(actor, group) {
		return fmt.Errorf("%w: only the owning lecturer may delete the group", apperrors.ErrForbidden)
	}

	var blobKeys []string
	if r.blobs != nil {
		blobKeys, err = r.messages.ListAttachmentKeys(ctx, groupID)
		if err != nil {
			log.Printf("cascade: listing attachment keys for group %s failed, blobs will be orphaned: %v", groupID, err)
			blobKeys = nil
		}
	}

	if err := r.messages.DeleteGroupMessages(ctx, groupID); err != nil {
		return err
	}
	if err := r.groups.DeleteGroup(ctx, groupID); err != nil {
		return err
	}

	if r.notifier != nil {
		r.notifier.GroupDeleted(groupID)
	}

	for _, key := range blobKeys {
		if err := r.blobs.Delete(ctx, key); err != nil {
			log.Printf("cascade: deleting blob %s failed, blob is orphaned: %v", key, err)
		}
	}
	return nil
}
