package chat

import (
	"context"
	"fmt"
	"sync"

	"campus-chat/internal/authz"
	"campus-chat/internal/models"
	apperrors "campus-chat/pkg/errors"
)

// SessionState is the controller's lifecycle position.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateLoadingGroups   SessionState = "loading_groups"
	StateGroupsLoaded    SessionState = "groups_loaded"
	StateGroupActive     SessionState = "group_active"
)

// SessionEventType discriminates events emitted to the session's sink.
type SessionEventType string

const (
	SessionGroups    SessionEventType = "groups"
	SessionSnapshot  SessionEventType = "snapshot"
	SessionMessage   SessionEventType = "message"
	SessionGroupGone SessionEventType = "group_gone"
)

// SessionEvent is pushed to the session's event sink (the ws connection).
type SessionEvent struct {
	Type     SessionEventType     `json:"type"`
	Groups   []models.ChatGroup   `json:"groups,omitempty"`
	Messages []models.ChatMessage `json:"messages,omitempty"`
	Message  *models.ChatMessage  `json:"message,omitempty"`
	GroupID  string               `json:"group_id,omitempty"`
}

// ChatSessionController is the per-user-session facade over resolver,
// stream, and attachment bridge. It holds at most one live subscription and
// serializes all state changes behind a mutex.
type ChatSessionController struct {
	resolver *authz.Resolver
	stream   *MessageStream
	bridge   *AttachmentBridge
	emit     func(SessionEvent)

	mu       sync.Mutex
	state    SessionState
	ident    models.Identity
	groups   []models.ChatGroup
	active   *models.ChatGroup
	sub      *Subscription
	messages []models.ChatMessage
}

// NewChatSession constructs a controller in the Unauthenticated state.
// emit receives group lists, snapshots, and appended messages.
func NewChatSession(resolver *authz.Resolver, stream *MessageStream, bridge *AttachmentBridge, emit func(SessionEvent)) *ChatSessionController {
	if emit == nil {
		emit = func(SessionEvent) {}
	}
	return &ChatSessionController{
		resolver: resolver,
		stream:   stream,
		bridge:   bridge,
		emit:     emit,
		state:    StateUnauthenticated,
	}
}

// Start establishes the identity and loads its visible groups.
func (s *ChatSessionController) Start(ctx context.Context, ident models.Identity) error {
	s.mu.Lock()
	if s.state != StateUnauthenticated {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.state = StateLoadingGroups
	s.ident = ident
	s.mu.Unlock()

	groups, err := s.resolver.ResolveVisibleGroups(ctx, ident)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateUnauthenticated
		s.ident = models.Identity{}
		return err
	}
	s.state = StateGroupsLoaded
	s.groups = groups
	s.emit(SessionEvent{Type: SessionGroups, Groups: groups})
	return nil
}

// SelectGroup activates a group from the loaded list, replacing any
// existing live subscription. Exactly one subscription is held at a time.
func (s *ChatSessionController) SelectGroup(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateGroupsLoaded && s.state != StateGroupActive {
		return fmt.Errorf("no groups loaded")
	}

	var target *models.ChatGroup
	for i := range s.groups {
		if s.groups[i].ID == groupID {
			target = &s.groups[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: group is not visible to this session", apperrors.ErrForbidden)
	}

	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.messages = nil
	s.active = target
	s.state = StateGroupActive
	s.sub = s.stream.Subscribe(ctx, groupID, s.handleStreamEvent)
	return nil
}

// Send posts a message into the active group. Authorization was settled
// when the group entered the visible list; this is the stream's caller-side
// trust boundary.
func (s *ChatSessionController) Send(ctx context.Context, body string) (models.ChatMessage, error) {
	s.mu.Lock()
	if s.state != StateGroupActive {
		s.mu.Unlock()
		return models.ChatMessage{}, fmt.Errorf("no active group")
	}
	groupID := s.active.ID
	ident := s.ident
	s.mu.Unlock()

	return s.stream.Send(ctx, groupID, ident, body, nil, "")
}

// SendAttachment uploads and posts an attachment into the active group.
func (s *ChatSessionController) SendAttachment(ctx context.Context, data []byte, fileName, mimeType, caption string) (models.ChatMessage, error) {
	s.mu.Lock()
	if s.state != StateGroupActive {
		s.mu.Unlock()
		return models.ChatMessage{}, fmt.Errorf("no active group")
	}
	groupID := s.active.ID
	ident := s.ident
	s.mu.Unlock()

	return s.bridge.SendWithAttachment(ctx, groupID, ident, data, fileName, mimeType, caption)
}

// RefreshGroups re-resolves visibility. If the active group is no longer
// visible (deleted, or enrollment changed), the session falls back to
// GroupsLoaded and discards the stale message state.
func (s *ChatSessionController) RefreshGroups(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateUnauthenticated || s.state == StateLoadingGroups {
		s.mu.Unlock()
		return fmt.Errorf("session not started")
	}
	ident := s.ident
	s.mu.Unlock()

	groups, err := s.resolver.ResolveVisibleGroups(ctx, ident)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = groups

	if s.active != nil {
		stillVisible := false
		for _, g := range groups {
			if g.ID == s.active.ID {
				stillVisible = true
				break
			}
		}
		if !stillVisible {
			s.dropActiveLocked()
		}
	}

	s.emit(SessionEvent{Type: SessionGroups, Groups: groups})
	return nil
}

// Logout cancels the live subscription and clears all session state.
func (s *ChatSessionController) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.state = StateUnauthenticated
	s.ident = models.Identity{}
	s.groups = nil
	s.active = nil
	s.messages = nil
}

// State returns the current lifecycle state.
func (s *ChatSessionController) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Groups returns a copy of the loaded group list.
func (s *ChatSessionController) Groups() []models.ChatGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatGroup, len(s.groups))
	copy(out, s.groups)
	return out
}

// ActiveGroup returns the selected group, if any.
func (s *ChatSessionController) ActiveGroup() (models.ChatGroup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return models.ChatGroup{}, false
	}
	return *s.active, true
}

// Messages returns a copy of the active group's ordered message list.
func (s *ChatSessionController) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ChatSessionController) handleStreamEvent(event StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.ID != event.GroupID {
		return
	}

	switch event.Type {
	case EventSnapshot:
		// The snapshot is loaded asynchronously, so appends may already have
		// been delivered. Merge rather than replace: a delivered message must
		// never disappear.
		for _, msg := range event.Messages {
			s.insertOrderedLocked(msg)
		}
		merged := make([]models.ChatMessage, len(s.messages))
		copy(merged, s.messages)
		s.emit(SessionEvent{Type: SessionSnapshot, GroupID: event.GroupID, Messages: merged})
	case EventMessage:
		if event.Message != nil && s.insertOrderedLocked(*event.Message) {
			s.emit(SessionEvent{Type: SessionMessage, GroupID: event.GroupID, Message: event.Message})
		}
	case EventGroupDeleted:
		gone := s.active.ID
		s.dropActiveLocked()
		remaining := s.groups[:0:0]
		for _, g := range s.groups {
			if g.ID != gone {
				remaining = append(remaining, g)
			}
		}
		s.groups = remaining
	}
}

// insertOrderedLocked places msg at its (timestamp, seq) position,
// skipping duplicates. Appends arriving before the initial snapshot are
// still kept in order. Caller holds s.mu.
func (s *ChatSessionController) insertOrderedLocked(msg models.ChatMessage) bool {
	for _, existing := range s.messages {
		if existing.ID == msg.ID {
			return false
		}
	}
	idx := len(s.messages)
	for i, existing := range s.messages {
		if msg.Before(existing) {
			idx = i
			break
		}
	}
	s.messages = append(s.messages, models.ChatMessage{})
	copy(s.messages[idx+1:], s.messages[idx:])
	s.messages[idx] = msg
	return true
}

// dropActiveLocked cancels the subscription and falls back to GroupsLoaded,
// discarding stale messages. Caller holds s.mu.
func (s *ChatSessionController) dropActiveLocked() {
	gone := ""
	if s.active != nil {
		gone = s.active.ID
	}
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.active = nil
	s.messages = nil
	s.state = StateGroupsLoaded
	s.emit(SessionEvent{Type: SessionGroupGone, GroupID: gone})
}
