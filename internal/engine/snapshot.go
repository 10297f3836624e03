package engine

import (
	"sync"
	"time"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/bingo"
)

// ParticipantSnapshot is the observer view of one participant.
type ParticipantSnapshot struct {
	ID       string    `json:"id"`
	Bot      bool      `json:"bot"`
	JoinedAt time.Time `json:"joinedAt"`
	Matched  int       `json:"matched"`
	Total    int       `json:"total"`
}

// SessionSnapshot is an immutable point-in-time view of a session,
// published on every state change. Observers never touch live state.
type SessionSnapshot struct {
	ID            string                `json:"id"`
	RoomID        string                `json:"roomId"`
	RoomName      string                `json:"roomName"`
	Status        Status                `json:"status"`
	Outcome       string                `json:"outcome,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	Paused        bool                  `json:"paused"`
	CreatedAt     time.Time             `json:"createdAt"`
	StartedAt     time.Time             `json:"startedAt,omitempty"`
	EndedAt       time.Time             `json:"endedAt,omitempty"`
	CalledNumbers []int                 `json:"calledNumbers"`
	Participants  []ParticipantSnapshot `json:"participants"`
	Stake         bingo.Money           `json:"stake"`
	PrizePool     bingo.Money           `json:"prizePool"`
	BasePool      bingo.Money           `json:"basePool"`
	CommissionBps int                   `json:"commissionBps"`
	WinnerID      string                `json:"winnerId,omitempty"`
	WinnerPattern string                `json:"winnerPattern,omitempty"`
	WinningCard   []int                 `json:"winningCard,omitempty"`
	ChatCount     int                   `json:"chatCount"`
}

// ParticipantIDs returns human and bot ids split out, preserving join order.
func (s SessionSnapshot) ParticipantIDs() (humans, bots []string) {
	for _, p := range s.Participants {
		if p.Bot {
			bots = append(bots, p.ID)
		} else {
			humans = append(humans, p.ID)
		}
	}
	return humans, bots
}

// SessionMonitor receives session snapshots as they are published.
type SessionMonitor interface {
	// OnSnapshot is called after every state change.
	OnSnapshot(snap SessionSnapshot)

	// OnSessionEnd is called once when a session reaches a terminal state.
	OnSessionEnd(snap SessionSnapshot)
}

// NullMonitor is a no-op implementation.
type NullMonitor struct{}

func (NullMonitor) OnSnapshot(SessionSnapshot)   {}
func (NullMonitor) OnSessionEnd(SessionSnapshot) {}

// MultiMonitor fans events out to several monitors.
type MultiMonitor struct {
	monitors []SessionMonitor
}

// NewMultiMonitor builds a composite monitor, pruning nils and collapsing
// to a NullMonitor when nothing remains.
func NewMultiMonitor(monitors ...SessionMonitor) SessionMonitor {
	filtered := make([]SessionMonitor, 0, len(monitors))
	for _, m := range monitors {
		if m != nil {
			filtered = append(filtered, m)
		}
	}
	switch len(filtered) {
	case 0:
		return NullMonitor{}
	case 1:
		return filtered[0]
	default:
		return MultiMonitor{monitors: filtered}
	}
}

func (m MultiMonitor) OnSnapshot(snap SessionSnapshot) {
	for _, monitor := range m.monitors {
		monitor.OnSnapshot(snap)
	}
}

func (m MultiMonitor) OnSessionEnd(snap SessionSnapshot) {
	for _, monitor := range m.monitors {
		monitor.OnSessionEnd(snap)
	}
}

// Hub broadcasts snapshots to any number of subscribers, decoupling
// observation cadence from the engine's tick rate. Slow subscribers drop
// updates rather than block a session loop.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan SessionSnapshot
	next int
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan SessionSnapshot)}
}

// Subscribe registers an observer. The returned cancel func must be called
// to release the subscription; the channel closes on cancel.
func (h *Hub) Subscribe(buffer int) (<-chan SessionSnapshot, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan SessionSnapshot, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the snapshot to all subscribers without blocking.
func (h *Hub) Publish(snap SessionSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		select {
		case sub <- snap:
		default:
			// Subscriber is behind; it will catch up on the next publish.
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// OnSnapshot implements SessionMonitor.
func (h *Hub) OnSnapshot(snap SessionSnapshot) { h.Publish(snap) }

// OnSessionEnd implements SessionMonitor.
func (h *Hub) OnSessionEnd(snap SessionSnapshot) { h.Publish(snap) }
