package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"campus-chat/internal/models"
	apperrors "campus-chat/pkg/errors"
)

// fakeMessageRepo is an in-memory record store for the message log. All
// messages get the same timestamp so ordering falls back to the insertion
// sequence, mirroring the server-clock tie case.
type fakeMessageRepo struct {
	mu            sync.Mutex
	msgs          map[string][]models.ChatMessage
	nextSeq       int64
	now           time.Time
	failListTimes int
	deleted       map[string]bool

	// when set, ListGroupMessages signals listCaptured after reading the
	// rows and holds its (now possibly stale) result until listRelease is
	// closed
	listCaptured chan struct{}
	listRelease  chan struct{}
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		msgs:    make(map[string][]models.ChatMessage),
		now:     time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		deleted: make(map[string]bool),
	}
}

func (r *fakeMessageRepo) CreateMessage(ctx context.Context, id, groupID string, sender models.Identity, body string, attachment *models.AttachmentRef, attachmentKey string) (models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted[groupID] {
		return models.ChatMessage{}, apperrors.ErrGroupNotFound
	}
	r.nextSeq++
	msg := models.ChatMessage{
		ID:         id,
		GroupID:    groupID,
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		SenderRole: sender.Role,
		Body:       body,
		Attachment: attachment,
		CreatedAt:  r.now,
		Seq:        r.nextSeq,
	}
	r.msgs[groupID] = append(r.msgs[groupID], msg)
	return msg, nil
}

func (r *fakeMessageRepo) ListGroupMessages(ctx context.Context, groupID string) ([]models.ChatMessage, error) {
	r.mu.Lock()
	if r.failListTimes > 0 {
		r.failListTimes--
		r.mu.Unlock()
		return nil, apperrors.ErrStoreUnavailable
	}
	out := make([]models.ChatMessage, len(r.msgs[groupID]))
	copy(out, r.msgs[groupID])
	captured, release := r.listCaptured, r.listRelease
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	if captured != nil {
		captured <- struct{}{}
		<-release
	}
	return out, nil
}

func (r *fakeMessageRepo) ListAttachmentKeys(ctx context.Context, groupID string) ([]string, error) {
	return nil, nil
}

func (r *fakeMessageRepo) DeleteGroupMessages(ctx context.Context, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.msgs, groupID)
	return nil
}

func (r *fakeMessageRepo) markDeleted(groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[groupID] = true
	delete(r.msgs, groupID)
}

func (r *fakeMessageRepo) count(groupID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs[groupID])
}

// fakeGroupRepo is an in-memory group store.
type fakeGroupRepo struct {
	mu     sync.Mutex
	groups []models.ChatGroup
}

func (r *fakeGroupRepo) CreateGroup(ctx context.Context, id, courseID, displayName, ownerID string) (models.ChatGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group := models.ChatGroup{ID: id, CourseID: courseID, DisplayName: displayName, OwnerID: ownerID, CreatedAt: time.Now()}
	r.groups = append(r.groups, group)
	return group, nil
}

func (r *fakeGroupRepo) GetGroup(ctx context.Context, groupID string) (models.ChatGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	return models.ChatGroup{}, apperrors.ErrGroupNotFound
}

func (r *fakeGroupRepo) DeleteGroup(ctx context.Context, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, g := range r.groups {
		if g.ID == groupID {
			r.groups = append(r.groups[:i], r.groups[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrGroupNotFound
}

func (r *fakeGroupRepo) ListGroupsByOwner(ctx context.Context, ownerID string) ([]models.ChatGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ChatGroup{}
	for _, g := range r.groups {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) ListGroupsByCourses(ctx context.Context, courseIDs []string) ([]models.ChatGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range courseIDs {
		want[id] = true
	}
	out := []models.ChatGroup{}
	for _, g := range r.groups {
		if want[g.CourseID] {
			out = append(out, g)
		}
	}
	return out, nil
}

// fakeEnrollmentRepo maps students to course sets.
type fakeEnrollmentRepo struct {
	courses map[string][]string
}

func (r *fakeEnrollmentRepo) ListCoursesForStudent(ctx context.Context, studentID string) ([]string, error) {
	return r.courses[studentID], nil
}

// fakeBlobStore records puts and deletes.
type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	putErr  error
	deletes []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (b *fakeBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	b.blobs[key] = data
	return "https://blobs.test/" + key, nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	b.deletes = append(b.deletes, key)
	return nil
}

func (b *fakeBlobStore) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}
