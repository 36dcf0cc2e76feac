package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "campus-chat/pkg/errors"
)

func TestUploadRequiresLecturer(t *testing.T) {
	blobs := newFakeBlobStore()
	repo := newFakeMessageRepo()
	bridge := NewAttachmentBridge(blobs, NewMessageStream(repo))

	_, _, err := bridge.Upload(context.Background(), "g1", student, []byte("data"), "notes.pdf", "application/pdf")
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	require.Equal(t, 0, blobs.size(), "forbidden upload must not store a blob")
	require.Equal(t, 0, repo.count("g1"), "forbidden upload must not create a message")
}

func TestUploadKeysAreCollisionFree(t *testing.T) {
	blobs := newFakeBlobStore()
	bridge := NewAttachmentBridge(blobs, NewMessageStream(newFakeMessageRepo()))

	_, key1, err := bridge.Upload(context.Background(), "g1", lecturer, []byte("v1"), "slides.pdf", "application/pdf")
	require.NoError(t, err)
	_, key2, err := bridge.Upload(context.Background(), "g1", lecturer, []byte("v2"), "slides.pdf", "application/pdf")
	require.NoError(t, err)

	require.NotEqual(t, key1, key2, "identical file names must not overwrite")
	require.Equal(t, 2, blobs.size())
}

func TestUploadFailureCreatesNoMessage(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.putErr = context.DeadlineExceeded
	repo := newFakeMessageRepo()
	bridge := NewAttachmentBridge(blobs, NewMessageStream(repo))

	_, _, err := bridge.Upload(context.Background(), "g1", lecturer, []byte("data"), "notes.pdf", "application/pdf")
	require.ErrorIs(t, err, apperrors.ErrAttachmentUploadFailed)
	require.Equal(t, 0, repo.count("g1"))
}

func TestSendWithAttachmentCompensatesFailedSend(t *testing.T) {
	blobs := newFakeBlobStore()
	repo := newFakeMessageRepo()
	repo.markDeleted("g1")
	bridge := NewAttachmentBridge(blobs, NewMessageStream(repo))

	_, err := bridge.SendWithAttachment(context.Background(), "g1", lecturer, []byte("data"), "notes.pdf", "application/pdf", "here you go")
	require.ErrorIs(t, err, apperrors.ErrGroupNotFound)
	require.Equal(t, 0, blobs.size(), "blob must be deleted when the send fails")
	require.Len(t, blobs.deletes, 1)
}

func TestSendWithAttachmentEmbedsReference(t *testing.T) {
	blobs := newFakeBlobStore()
	repo := newFakeMessageRepo()
	bridge := NewAttachmentBridge(blobs, NewMessageStream(repo))

	msg, err := bridge.SendWithAttachment(context.Background(), "g1", lecturer, []byte("data"), "notes.pdf", "application/pdf", "lecture notes")
	require.NoError(t, err)
	require.NotNil(t, msg.Attachment)
	require.Equal(t, "notes.pdf", msg.Attachment.FileName)
	require.Equal(t, "application/pdf", msg.Attachment.MimeType)
	require.Contains(t, msg.Attachment.URL, "groups/g1/")
	require.Equal(t, "lecture notes", msg.Body)
	require.Equal(t, 1, repo.count("g1"))
}
