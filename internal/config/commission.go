package config

import (
	"sync"
	"time"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/bingo"
)

// CommissionSource serves versioned commission snapshots. The prize
// calculator takes a snapshot per computation; there is no implicit global
// cache to go stale. Refresh bumps the version explicitly, Invalidate forces
// the next Snapshot to re-read through the fetch function.
type CommissionSource struct {
	mu      sync.RWMutex
	fetch   func() int // returns bps
	current bingo.Commission
	stale   bool
}

// NewCommissionSource builds a source around a fetch function (in
// production, the platform's config store; in tests, a literal).
func NewCommissionSource(fetch func() int) *CommissionSource {
	s := &CommissionSource{fetch: fetch}
	s.refreshLocked()
	return s
}

// StaticCommission is a convenience source for a fixed rate.
func StaticCommission(bps int) *CommissionSource {
	return NewCommissionSource(func() int { return bps })
}

func (s *CommissionSource) refreshLocked() {
	s.current = bingo.Commission{
		Bps:       s.fetch(),
		Version:   s.current.Version + 1,
		FetchedAt: time.Now(),
	}
	s.stale = false
}

// Snapshot returns the current commission, re-fetching first if the source
// was invalidated.
func (s *CommissionSource) Snapshot() bingo.Commission {
	s.mu.RLock()
	if !s.stale {
		defer s.mu.RUnlock()
		return s.current
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		s.refreshLocked()
	}
	return s.current
}

// Refresh re-reads the rate immediately and bumps the version.
func (s *CommissionSource) Refresh() bingo.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return s.current
}

// Invalidate marks the snapshot stale; the next Snapshot re-fetches.
func (s *CommissionSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = true
}
