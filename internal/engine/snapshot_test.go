package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubSubscribePublishCancel(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ch, cancel := hub.Subscribe(4)
	require.Equal(t, 1, hub.SubscriberCount())

	hub.Publish(SessionSnapshot{ID: "s1", Status: StatusActive})
	snap := <-ch
	assert.Equal(t, "s1", snap.ID)
	assert.Equal(t, StatusActive, snap.Status)

	cancel()
	assert.Equal(t, 0, hub.SubscriberCount())
	_, open := <-ch
	assert.False(t, open)

	// cancelling twice is safe
	cancel()
}

func TestHubDropsWhenSubscriberBehind(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Publish(SessionSnapshot{ID: "first"})
	hub.Publish(SessionSnapshot{ID: "second"})

	snap := <-ch
	assert.Equal(t, "first", snap.ID)
	select {
	case extra := <-ch:
		t.Fatalf("expected second snapshot to be dropped, got %s", extra.ID)
	default:
	}
}

func TestMultiMonitorFanOut(t *testing.T) {
	t.Parallel()

	first := NewHub()
	second := NewHub()
	chA, cancelA := first.Subscribe(1)
	defer cancelA()
	chB, cancelB := second.Subscribe(1)
	defer cancelB()

	mon := NewMultiMonitor(first, nil, second)
	mon.OnSessionEnd(SessionSnapshot{ID: "end", Status: StatusFinished})

	assert.Equal(t, "end", (<-chA).ID)
	assert.Equal(t, "end", (<-chB).ID)
}

func TestNewMultiMonitorCollapses(t *testing.T) {
	t.Parallel()

	assert.IsType(t, NullMonitor{}, NewMultiMonitor())
	assert.IsType(t, NullMonitor{}, NewMultiMonitor(nil, nil))

	hub := NewHub()
	assert.Same(t, hub, NewMultiMonitor(nil, hub))
}

func TestParticipantIDsSplitsBots(t *testing.T) {
	t.Parallel()

	snap := SessionSnapshot{Participants: []ParticipantSnapshot{
		{ID: "alice"},
		{ID: "bot-1", Bot: true},
		{ID: "bob"},
	}}
	humans, bots := snap.ParticipantIDs()
	assert.Equal(t, []string{"alice", "bob"}, humans)
	assert.Equal(t, []string{"bot-1"}, bots)
}
