// Package store is the persistence seam for session history. The engine
// writes through it with local retry; the real implementation (SQL, queue,
// whatever the surrounding platform uses) is out of scope, so the package
// ships an in-memory version for tests and a JSON-file version for
// local runs that should survive a restart.
package store

import (
	"context"
	"time"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/bingo"
)

// SessionRecord is the persisted shape of one session. It mirrors the live
// snapshot field-for-field; once the session is terminal the record is
// read-only history.
type SessionRecord struct {
	ID            string
	RoomID        string
	Status        string
	Outcome       string
	Reason        string
	Paused        bool
	CreatedAt     time.Time
	StartedAt     time.Time
	EndedAt       time.Time
	CalledNumbers []int
	Participants  []string
	Bots          []string
	Stake         bingo.Money
	PrizePool     bingo.Money
	WinnerID      string
	WinnerPattern string
	WinningCard   []int
}

// WinRecord is written once per finished session with a winner and is
// immutable afterward.
type WinRecord struct {
	SessionID   string
	WinnerID    string
	Pattern     string
	WonAt       time.Time
	CallsAtWin  int
	Payout      bingo.Money
	WinningCard []int
}

// Store persists session state transitions, draws and win records.
type Store interface {
	// SaveSession upserts the session record.
	SaveSession(ctx context.Context, rec SessionRecord) error

	// AppendDraw records the seq-th draw (1-based) of a session.
	AppendDraw(ctx context.Context, sessionID string, number, seq int) error

	// SaveWin records the winner of a finished session.
	SaveWin(ctx context.Context, rec WinRecord) error
}
