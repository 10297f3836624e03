package bingo

import (
	"fmt"
	"time"
)

// Money is an amount in the smallest currency unit.
type Money int64

// Commission is a versioned snapshot of the platform's cut. The rate is
// carried in basis points so pool arithmetic stays integral; callers fetch a
// fresh snapshot per computation rather than caching one.
type Commission struct {
	Bps       int
	Version   int64
	FetchedAt time.Time
}

// Validate rejects rates outside [0, 100%].
func (c Commission) Validate() error {
	if c.Bps < 0 || c.Bps > 10000 {
		return fmt.Errorf("commission %d bps outside [0, 10000]", c.Bps)
	}
	return nil
}

// fee truncates toward zero, so the pool rounds in the players' favor.
func (c Commission) fee(total Money) Money {
	return total * Money(c.Bps) / 10000
}

// LivePool is the pot for the current participant count net of commission:
// stake * participants * (1 - rate).
func LivePool(stake Money, participants int, c Commission) Money {
	if participants < 0 {
		participants = 0
	}
	total := stake * Money(participants)
	return total - c.fee(total)
}

// BasePool is the theoretical full-room pot shown for comparison:
// stake * maxPlayers * (1 - rate).
func BasePool(stake Money, maxPlayers int, c Commission) Money {
	return LivePool(stake, maxPlayers, c)
}
