// Package engine runs bingo rounds: the per-session state machine, the
// scheduler that supervises one live session per room, the bot player
// simulation and snapshot publishing for read-only observers.
package engine

import (
	"errors"
	"fmt"
)

// Status is the closed set of session states. Unknown states are rejected
// at the boundary instead of being defaulted.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCountdown Status = "countdown"
	StatusActive    Status = "active"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates an externally supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusWaiting, StatusCountdown, StatusActive, StatusFinished, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown session status %q", s)
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// Outcome qualifies a finished session.
const (
	OutcomeWinner   = "winner"
	OutcomeNoWinner = "finished_no_winner"
)

// Reason codes recorded on cancelled sessions.
const (
	ReasonAdminForceEnd = "admin_force_end"
	ReasonRoomClosed    = "room_closed"
	ReasonPersistence   = "persistence_failure"
	ReasonShutdown      = "server_shutdown"
)

var (
	// ErrSessionTerminal rejects operations on finished or cancelled sessions.
	ErrSessionTerminal = errors.New("session already terminal")

	// ErrSessionStarted rejects joins once the session left countdown.
	ErrSessionStarted = errors.New("session already started")

	// ErrSessionFull rejects joins at max players.
	ErrSessionFull = errors.New("session full")

	// ErrAlreadyJoined rejects a second join by the same participant.
	ErrAlreadyJoined = errors.New("participant already joined")

	// ErrNotJoined rejects leaves and claims from strangers.
	ErrNotJoined = errors.New("participant not in session")

	// ErrUnknownSession is returned by scheduler lookups.
	ErrUnknownSession = errors.New("unknown session")

	// ErrUnknownRoom is returned when a room id has no configuration.
	ErrUnknownRoom = errors.New("unknown room")

	// ErrRoomDisabled rejects joins into disabled rooms.
	ErrRoomDisabled = errors.New("room disabled")
)
