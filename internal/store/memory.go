package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store. Draw appends can be made to fail a set
// number of times so the engine's retry and forced-cancel paths are
// exercisable in tests.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]SessionRecord
	draws    map[string][]int
	wins     map[string]WinRecord

	failAppends int
	failSaves   int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]SessionRecord),
		draws:    make(map[string][]int),
		wins:     make(map[string]WinRecord),
	}
}

// SaveSession upserts the record.
func (m *Memory) SaveSession(ctx context.Context, rec SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves > 0 {
		m.failSaves--
		return fmt.Errorf("save session %s: injected failure", rec.ID)
	}
	m.sessions[rec.ID] = rec
	return nil
}

// AppendDraw records a draw, enforcing the sequence so a retried write can
// never duplicate or skip a call.
func (m *Memory) AppendDraw(ctx context.Context, sessionID string, number, seq int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppends > 0 {
		m.failAppends--
		return fmt.Errorf("append draw %d for %s: injected failure", seq, sessionID)
	}
	draws := m.draws[sessionID]
	if seq == len(draws) {
		// Retried write of the last recorded draw; accept idempotently.
		if len(draws) > 0 && draws[len(draws)-1] == number {
			return nil
		}
	}
	if seq != len(draws)+1 {
		return fmt.Errorf("append draw for %s: expected seq %d, got %d", sessionID, len(draws)+1, seq)
	}
	m.draws[sessionID] = append(draws, number)
	return nil
}

// SaveWin records the win exactly once.
func (m *Memory) SaveWin(ctx context.Context, rec WinRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wins[rec.SessionID]; ok {
		return fmt.Errorf("win for session %s already recorded", rec.SessionID)
	}
	m.wins[rec.SessionID] = rec
	return nil
}

// Session reads back a stored record.
func (m *Memory) Session(id string) (SessionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	return rec, ok
}

// Draws reads back the ordered draw history for a session.
func (m *Memory) Draws(sessionID string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.draws[sessionID]))
	copy(out, m.draws[sessionID])
	return out
}

// Win reads back the win record for a session.
func (m *Memory) Win(sessionID string) (WinRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.wins[sessionID]
	return rec, ok
}

// FailNextAppends makes the next n draw appends fail.
func (m *Memory) FailNextAppends(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAppends = n
}

// FailNextSaves makes the next n session saves fail.
func (m *Memory) FailNextSaves(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSaves = n
}
