package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"campus-chat/internal/authz"
	"campus-chat/internal/models"
	"campus-chat/internal/storage"
	apperrors "campus-chat/pkg/errors"
)

// AttachmentBridge uploads binary content to the blob store and bridges the
// resulting reference into the message stream. Uploads are lecturer-only.
type AttachmentBridge struct {
	blobs  storage.BlobStore
	stream *MessageStream
}

// NewAttachmentBridge constructs an AttachmentBridge.
func NewAttachmentBridge(blobs storage.BlobStore, stream *MessageStream) *AttachmentBridge {
	return &AttachmentBridge{blobs: blobs, stream: stream}
}

// Upload stores the blob under a per-upload unique key so identical file
// names never overwrite one another. Returns the embeddable reference and
// the blob key for later cleanup. No message is created here.
func (b *AttachmentBridge) Upload(ctx context.Context, groupID string, sender models.Identity, data []byte, fileName, mimeType string) (models.AttachmentRef, string, error) {
	if !authz.CanUpload(sender) {
		return models.AttachmentRef{}, "", fmt.Errorf("%w: only lecturers may upload attachments", apperrors.ErrForbidden)
	}

	key := fmt.Sprintf("groups/%s/%s/%s", groupID, uuid.NewString(), fileName)
	url, err := b.blobs.Put(ctx, key, data, mimeType)
	if err != nil {
		return models.AttachmentRef{}, "", fmt.Errorf("%w: %v", apperrors.ErrAttachmentUploadFailed, err)
	}

	return models.AttachmentRef{URL: url, FileName: fileName, MimeType: mimeType}, key, nil
}

// SendWithAttachment treats upload and send as a compensating pair: if the
// follow-up send fails, the just-uploaded blob is deleted (best-effort) so
// no orphan is left behind.
func (b *AttachmentBridge) SendWithAttachment(ctx context.Context, groupID string, sender models.Identity, data []byte, fileName, mimeType, caption string) (models.ChatMessage, error) {
	ref, key, err := b.Upload(ctx, groupID, sender, data, fileName, mimeType)
	if err != nil {
		return models.ChatMessage{}, err
	}

	msg, err := b.stream.Send(ctx, groupID, sender, caption, &ref, key)
	if err != nil {
		if delErr := b.blobs.Delete(ctx, key); delErr != nil {
			log.Printf("compensating blob delete failed, blob %s is orphaned: %v", key, delErr)
		}
		return models.ChatMessage{}, err
	}
	return msg, nil
}
