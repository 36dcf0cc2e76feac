package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"campus-chat/internal/models"
	"campus-chat/internal/repositories"
	"campus-chat/internal/storage"
)

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, id, courseID, displayName, ownerID string) (models.ChatGroup, error) {
	args := m.Called(ctx, id, courseID, displayName, ownerID)
	var group models.ChatGroup
	if val := args.Get(0); val != nil {
		group = val.(models.ChatGroup)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID string) (models.ChatGroup, error) {
	args := m.Called(ctx, groupID)
	var group models.ChatGroup
	if val := args.Get(0); val != nil {
		group = val.(models.ChatGroup)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) DeleteGroup(ctx context.Context, groupID string) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) ListGroupsByOwner(ctx context.Context, ownerID string) ([]models.ChatGroup, error) {
	args := m.Called(ctx, ownerID)
	var groups []models.ChatGroup
	if val := args.Get(0); val != nil {
		groups = val.([]models.ChatGroup)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsByCourses(ctx context.Context, courseIDs []string) ([]models.ChatGroup, error) {
	args := m.Called(ctx, courseIDs)
	var groups []models.ChatGroup
	if val := args.Get(0); val != nil {
		groups = val.([]models.ChatGroup)
	}
	return groups, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, id, groupID string, sender models.Identity, body string, attachment *models.AttachmentRef, attachmentKey string) (models.ChatMessage, error) {
	args := m.Called(ctx, id, groupID, sender, body, attachment, attachmentKey)
	var msg models.ChatMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ChatMessage)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListGroupMessages(ctx context.Context, groupID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, groupID)
	var msgs []models.ChatMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessage)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListAttachmentKeys(ctx context.Context, groupID string) ([]string, error) {
	args := m.Called(ctx, groupID)
	var keys []string
	if val := args.Get(0); val != nil {
		keys = val.([]string)
	}
	return keys, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteGroupMessages(ctx context.Context, groupID string) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

type EnrollmentRepositoryMock struct {
	mock.Mock
}

func (m *EnrollmentRepositoryMock) ListCoursesForStudent(ctx context.Context, studentID string) ([]string, error) {
	args := m.Called(ctx, studentID)
	var courses []string
	if val := args.Get(0); val != nil {
		courses = val.([]string)
	}
	return courses, args.Error(1)
}

// PublisherMock mocks the audit event publisher.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type BlobStoreMock struct {
	mock.Mock
}

func (m *BlobStoreMock) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *BlobStoreMock) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var _ repositories.GroupRepository = (*GroupRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.EnrollmentRepository = (*EnrollmentRepositoryMock)(nil)
var _ storage.BlobStore = (*BlobStoreMock)(nil)
