package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autoskip/internal/app/command"
	"github.com/osa030/autoskip/internal/app/decision"
	"github.com/osa030/autoskip/internal/domain/track"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingSink) Send(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestManager_SubscribeUnsubscribe(t *testing.T) {
	m := NewManager()

	id1 := m.Subscribe(&recordingSink{})
	id2 := m.Subscribe(&recordingSink{})
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Unsubscribe(id1)
	assert.Equal(t, 1, m.SubscriberCount())

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("dbus unavailable")}
	m.Subscribe(ok)
	m.Subscribe(failing)

	trk := track.Track{Title: "A", Artist: "B", Score: 0.5}
	m.Broadcast(context.Background(), TrackChanged(trk, decision.Decision{ShouldSkip: true}, true))
	m.Broadcast(context.Background(), FeedbackEvent(command.Feedback{Action: command.ActionSkip, Message: "Skipped!"}))

	events := ok.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventTrackChanged, events[0].Type)
	assert.Equal(t, trk, events[0].Track)
	assert.True(t, events[0].Skipped)
	assert.Equal(t, uint64(1), events[0].SequenceNo)
	assert.Equal(t, EventFeedback, events[1].Type)
	assert.Equal(t, uint64(2), events[1].SequenceNo)

	assert.Len(t, failing.Events(), 2, "failing sink still receives every event")
}

func TestManager_Broadcast_SlowSinkTimesOut(t *testing.T) {
	m := NewManager()
	m.sendTimeout = 20 * time.Millisecond

	release := make(chan struct{})
	defer close(release)
	m.Subscribe(SinkFunc(func(ctx context.Context, event Event) error {
		<-release
		return nil
	}))

	start := time.Now()
	m.Broadcast(context.Background(), Status("Autoskip enabled", true))
	assert.Less(t, time.Since(start), time.Second)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "track_changed", EventTrackChanged.String())
	assert.Equal(t, "feedback", EventFeedback.String())
	assert.Equal(t, "status", EventStatus.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
