package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campus-chat/internal/models"
	apperrors "campus-chat/pkg/errors"
)

var (
	lecturer = models.Identity{ID: "lect-1", DisplayName: "Dr. Grace", Role: models.RoleLecturer}
	student  = models.Identity{ID: "stud-1", DisplayName: "Alice", Role: models.RoleStudent}
)

func collectEvents() (func(StreamEvent), chan StreamEvent) {
	ch := make(chan StreamEvent, 32)
	return func(ev StreamEvent) { ch <- ev }, ch
}

func waitEvent(t *testing.T, ch chan StreamEvent) StreamEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream event")
		return StreamEvent{}
	}
}

func TestSubscribeDeliversSnapshotThenAppends(t *testing.T) {
	repo := newFakeMessageRepo()
	stream := NewMessageStream(repo)
	ctx := context.Background()

	_, err := stream.Send(ctx, "g1", student, "Hello", nil, "")
	require.NoError(t, err)

	onUpdate, events := collectEvents()
	sub := stream.Subscribe(ctx, "g1", onUpdate)
	defer sub.Cancel()

	first := waitEvent(t, events)
	require.Equal(t, EventSnapshot, first.Type)
	require.Len(t, first.Messages, 1)
	require.Equal(t, "Hello", first.Messages[0].Body)

	_, err = stream.Send(ctx, "g1", lecturer, "Welcome", nil, "")
	require.NoError(t, err)

	second := waitEvent(t, events)
	require.Equal(t, EventMessage, second.Type)
	require.Equal(t, "Welcome", second.Message.Body)
	require.Equal(t, models.RoleLecturer, second.Message.SenderRole)
}

func TestOrderingIsStableUnderTimestampTies(t *testing.T) {
	repo := newFakeMessageRepo()
	stream := NewMessageStream(repo)
	ctx := context.Background()

	// identical server timestamps; seq must break the tie
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stream.Send(ctx, "g1", student, "msg", nil, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	first, err := stream.History(ctx, "g1")
	require.NoError(t, err)
	second, err := stream.History(ctx, "g1")
	require.NoError(t, err)

	require.Len(t, first, 10)
	require.Equal(t, first, second, "independent reads must agree on order")
	for i := 1; i < len(first); i++ {
		require.True(t, first[i-1].Before(first[i]))
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	repo := newFakeMessageRepo()
	stream := NewMessageStream(repo)
	ctx := context.Background()

	onUpdate, events := collectEvents()
	sub := stream.Subscribe(ctx, "g1", onUpdate)
	require.Equal(t, EventSnapshot, waitEvent(t, events).Type)

	sub.Cancel()
	_, err := stream.Send(ctx, "g1", student, "after cancel", nil, "")
	require.NoError(t, err)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after cancel: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSnapshotRetriesOnStoreFailure(t *testing.T) {
	repo := newFakeMessageRepo()
	stream := NewMessageStream(repo)
	stream.retryBase = 5 * time.Millisecond

	ctx := context.Background()
	_, err := stream.Send(ctx, "g1", student, "persisted", nil, "")
	require.NoError(t, err)
	repo.failListTimes = 2

	onUpdate, events := collectEvents()
	sub := stream.Subscribe(ctx, "g1", onUpdate)
	defer sub.Cancel()

	ev := waitEvent(t, events)
	require.Equal(t, EventSnapshot, ev.Type)
	require.Len(t, ev.Messages, 1)
}

func TestSendToDeletedGroupFailsNotFound(t *testing.T) {
	repo := newFakeMessageRepo()
	stream := NewMessageStream(repo)
	ctx := context.Background()

	repo.markDeleted("g1")
	_, err := stream.Send(ctx, "g1", student, "too late", nil, "")
	require.ErrorIs(t, err, apperrors.ErrGroupNotFound)
}

func TestGroupDeletedTerminatesSubscriptions(t *testing.T) {
	repo := newFakeMessageRepo()
	stream := NewMessageStream(repo)
	ctx := context.Background()

	onUpdate, events := collectEvents()
	stream.Subscribe(ctx, "g1", onUpdate)
	require.Equal(t, EventSnapshot, waitEvent(t, events).Type)

	stream.GroupDeleted("g1")
	ev := waitEvent(t, events)
	require.Equal(t, EventGroupDeleted, ev.Type)

	stream.mu.RLock()
	_, stillRegistered := stream.subs["g1"]
	stream.mu.RUnlock()
	require.False(t, stillRegistered)
}

func TestConcurrentSendAndDeleteDoesNotPanic(t *testing.T) {
	repo := newFakeMessageRepo()
	stream := NewMessageStream(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	var sendErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := stream.Send(ctx, "g1", student, "racing", nil, ""); err != nil {
				sendErr = err
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		repo.markDeleted("g1")
		stream.GroupDeleted("g1")
	}()
	wg.Wait()

	if sendErr != nil {
		require.ErrorIs(t, sendErr, apperrors.ErrGroupNotFound)
	}
}
