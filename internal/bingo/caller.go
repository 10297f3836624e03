package bingo

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// ErrPoolExhausted is returned by Draw once all 75 numbers have been called.
var ErrPoolExhausted = errors.New("draw pool exhausted")

// Caller owns the 1-75 draw pool for a single session. Draws are uniform
// over the remaining pool and use crypto/rand; players have to be able to
// trust the sequence, so a seeded PRNG is not acceptable here.
type Caller struct {
	remaining []int
	called    []int
	calledSet NumberSet
}

// NewCaller returns a caller with a full pool and empty history.
func NewCaller() *Caller {
	remaining := make([]int, MaxNumber)
	for i := range remaining {
		remaining[i] = i + 1
	}
	return &Caller{remaining: remaining}
}

// Draw removes and returns the next number. It never repeats a number and
// fails with ErrPoolExhausted when the pool is empty.
func (c *Caller) Draw() (int, error) {
	if len(c.remaining) == 0 {
		return 0, ErrPoolExhausted
	}
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.remaining))))
	if err != nil {
		return 0, fmt.Errorf("random source: %w", err)
	}
	i := int(idx.Int64())
	n := c.remaining[i]
	c.remaining[i] = c.remaining[len(c.remaining)-1]
	c.remaining = c.remaining[:len(c.remaining)-1]
	c.called = append(c.called, n)
	c.calledSet.Add(n)
	return n, nil
}

// Called returns the ordered call history.
func (c *Caller) Called() []int {
	out := make([]int, len(c.called))
	copy(out, c.called)
	return out
}

// CalledSet returns the set of called numbers. The returned pointer stays
// owned by the caller and must not be retained across draws by code that
// needs a stable view.
func (c *Caller) CalledSet() *NumberSet {
	return &c.calledSet
}

// Remaining returns how many numbers are left in the pool.
func (c *Caller) Remaining() int {
	return len(c.remaining)
}

// Exhausted reports whether all numbers have been called.
func (c *Caller) Exhausted() bool {
	return len(c.remaining) == 0
}
