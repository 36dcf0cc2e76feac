package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"campus-chat/internal/models"
	"campus-chat/internal/repositories"
	apperrors "campus-chat/pkg/errors"
)

// EventType discriminates subscription events.
type EventType string

const (
	// EventSnapshot carries the full ordered message list as of the store
	// read. Delivered once after subscribing and again after a recovered
	// store failure. Appends can race the read, so receivers merge the
	// snapshot into what they already hold rather than replacing it.
	EventSnapshot EventType = "snapshot"
	// EventMessage carries a single appended message; receivers insert it
	// in (timestamp, seq) order.
	EventMessage EventType = "message"
	// EventGroupDeleted signals that the group is gone and the
	// subscription has been terminated.
	EventGroupDeleted EventType = "group_deleted"
)

// StreamEvent is pushed to subscription callbacks.
type StreamEvent struct {
	Type     EventType            `json:"type"`
	GroupID  string               `json:"group_id"`
	Messages []models.ChatMessage `json:"messages,omitempty"`
	Message  *models.ChatMessage  `json:"message,omitempty"`
}

// Subscription is a live handle onto one group's message log. Cancel is the
// only way to stop delivery.
type Subscription struct {
	stream   *MessageStream
	groupID  string
	onUpdate func(StreamEvent)
	once     sync.Once
}

// Cancel stops delivery. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.stream.remove(s)
	})
}

// MessageStream owns the per-group append-only logs: sends, ordered reads,
// and live subscriptions. It does not check who may post to a group; that
// gate belongs to the caller.
type MessageStream struct {
	messages repositories.MessageRepository

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}

	// snapshot load retry policy, overridable in tests
	snapshotAttempts int
	retryBase        time.Duration
}

// NewMessageStream constructs a MessageStream.
func NewMessageStream(messages repositories.MessageRepository) *MessageStream {
	return &MessageStream{
		messages:         messages,
		subs:             make(map[string]map[*Subscription]struct{}),
		snapshotAttempts: 5,
		retryBase:        200 * time.Millisecond,
	}
}

// Send appends a message to the group's log and fans it out to live
// subscribers. The store assigns the timestamp and insertion sequence;
// the sender's name and role are snapshotted into the message.
func (s *MessageStream) Send(ctx context.Context, groupID string, sender models.Identity, body string, attachment *models.AttachmentRef, attachmentKey string) (models.ChatMessage, error) {
	msg, err := s.messages.CreateMessage(ctx, uuid.NewString(), groupID, sender, body, attachment, attachmentKey)
	if err != nil {
		return models.ChatMessage{}, err
	}
	s.notify(groupID, StreamEvent{Type: EventMessage, GroupID: groupID, Message: &msg})
	return msg, nil
}

// History returns the group's full ordered log.
func (s *MessageStream) History(ctx context.Context, groupID string) ([]models.ChatMessage, error) {
	return s.messages.ListGroupMessages(ctx, groupID)
}

// Subscribe registers onUpdate for the group. The initial snapshot is
// loaded asynchronously and retried with backoff if the store is
// unavailable; appended messages are delivered as they land.
func (s *MessageStream) Subscribe(ctx context.Context, groupID string, onUpdate func(StreamEvent)) *Subscription {
	sub := &Subscription{stream: s, groupID: groupID, onUpdate: onUpdate}

	s.mu.Lock()
	if _, ok := s.subs[groupID]; !ok {
		s.subs[groupID] = make(map[*Subscription]struct{})
	}
	s.subs[groupID][sub] = struct{}{}
	s.mu.Unlock()

	go s.deliverSnapshot(ctx, sub)
	return sub
}

// GroupDeleted terminates all subscriptions on the group and tells them why.
func (s *MessageStream) GroupDeleted(groupID string) {
	s.mu.Lock()
	subs := s.subs[groupID]
	delete(s.subs, groupID)
	s.mu.Unlock()

	event := StreamEvent{Type: EventGroupDeleted, GroupID: groupID}
	for sub := range subs {
		sub.once.Do(func() {}) // already removed, make Cancel a no-op
		sub.onUpdate(event)
	}
}

func (s *MessageStream) deliverSnapshot(ctx context.Context, sub *Subscription) {
	backoff := s.retryBase
	for attempt := 1; attempt <= s.snapshotAttempts; attempt++ {
		msgs, err := s.messages.ListGroupMessages(ctx, sub.groupID)
		if err == nil {
			if s.active(sub) {
				sub.onUpdate(StreamEvent{Type: EventSnapshot, GroupID: sub.groupID, Messages: msgs})
			}
			return
		}
		if !errors.Is(err, apperrors.ErrStoreUnavailable) || attempt == s.snapshotAttempts {
			log.Printf("subscription snapshot failed for group %s: %v", sub.groupID, err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (s *MessageStream) notify(groupID string, event StreamEvent) {
	s.mu.RLock()
	targets := make([]*Subscription, 0, len(s.subs[groupID]))
	for sub := range s.subs[groupID] {
		targets = append(targets, sub)
	}
	s.mu.RUnlock()

	for _, sub := range targets {
		sub.onUpdate(event)
	}
}

func (s *MessageStream) active(sub *Subscription) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subs[sub.groupID][sub]
	return ok
}

func (s *MessageStream) remove(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subs, ok := s.subs[sub.groupID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(s.subs, sub.groupID)
		}
	}
}
