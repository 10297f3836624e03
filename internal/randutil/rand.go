// Package randutil derives reproducible math/rand/v2 sources for bot
// behavior and card layout. Number draws never come through here; those use
// crypto/rand directly.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from the provided int64,
// centralising how the two 64-bit PCG seed words are derived so every call
// site gets the same sequence for the same seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// FromTime seeds from the wall clock for runs that don't need reproducibility.
func FromTime() *rand.Rand {
	return New(time.Now().UnixNano())
}

// Fork derives an independent child source so concurrent consumers never
// share a *rand.Rand.
func Fork(rng *rand.Rand) *rand.Rand {
	return New(rng.Int64())
}

// mix is the splitmix64 finalizer; it spreads low-entropy seeds across the
// full word.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
