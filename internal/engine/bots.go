package engine

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/config"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/randutil"
)

// BotController owns the configured bot roster and hands out per-session
// bot runtimes. Profiles are validated up front; a malformed profile
// disables that bot and never aborts a session.
type BotController struct {
	logger   zerolog.Logger
	mu       sync.Mutex
	profiles []config.BotConfig
	active   map[string]int // profile name -> concurrent session count
	rng      *rand.Rand
}

// NewBotController validates the roster and returns a controller. Invalid
// profiles are logged and skipped.
func NewBotController(logger zerolog.Logger, profiles []config.BotConfig, rng *rand.Rand) *BotController {
	bc := &BotController{
		logger: logger.With().Str("component", "bots").Logger(),
		active: make(map[string]int),
		rng:    rng,
	}
	for _, profile := range profiles {
		if err := config.ValidateBot(profile); err != nil {
			bc.logger.Warn().Err(err).Str("bot", profile.Name).Msg("invalid bot profile, bot disabled")
			continue
		}
		bc.profiles = append(bc.profiles, profile)
	}
	return bc
}

// Roster returns the names of usable profiles.
func (bc *BotController) Roster() []string {
	names := make([]string, len(bc.profiles))
	for i, p := range bc.profiles {
		names[i] = p.Name
	}
	return names
}

// acquire reserves a concurrency slot for the named profile.
func (bc *BotController) acquire(profile config.BotConfig) (*BotRuntime, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if profile.Disabled || !profile.AutoJoin {
		return nil, false
	}
	if bc.active[profile.Name] >= profile.MaxConcurrentGames {
		return nil, false
	}
	bc.active[profile.Name]++
	return &BotRuntime{
		ID:         fmt.Sprintf("bot-%s-%s", profile.Name, uuid.NewString()[:8]),
		Profile:    profile,
		rng:        bc.forkRNG(),
		controller: bc,
	}, true
}

func (bc *BotController) forkRNG() *rand.Rand {
	// bc.mu already held by acquire.
	return randutil.Fork(bc.rng)
}

// release frees the profile's concurrency slot when its session ends.
func (bc *BotController) release(name string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.active[name] > 0 {
		bc.active[name]--
	}
}

// ActiveCount reports how many sessions the named profile is playing in.
func (bc *BotController) ActiveCount(name string) int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.active[name]
}

// AutoJoin fills the session with eligible bots up to limit seats. Bot join
// failures (full session, broke wallet) are logged and skipped; they never
// propagate.
func (bc *BotController) AutoJoin(sess *Session, limit int) int {
	joined := 0
	for _, profile := range bc.profiles {
		if joined >= limit {
			break
		}
		runtime, ok := bc.acquire(profile)
		if !ok {
			continue
		}
		if err := sess.JoinBot(runtime); err != nil {
			bc.release(profile.Name)
			bc.logger.Debug().Err(err).Str("bot", profile.Name).Str("session", sess.ID()).Msg("bot join rejected")
			continue
		}
		joined++
	}
	return joined
}

// BotRuntime is one bot's state within one session: its personality, its
// private RNG and any claim attempt in flight.
type BotRuntime struct {
	ID         string
	Profile    config.BotConfig
	rng        *rand.Rand
	controller *BotController

	pendingClaim time.Time // zero when no attempt is in flight
	chatCount    int
}

// ConsiderClaim decides whether the bot starts a claim attempt after a
// draw. The probability grows with match progress and is shaped by the
// configured win-rate and aggression; a successful roll only schedules an
// attempt, the evaluator still has the final word.
func (b *BotRuntime) ConsiderClaim(now time.Time, matched, total int) {
	if !b.pendingClaim.IsZero() {
		return
	}
	progress := float64(matched) / float64(total)
	base := progress * progress * float64(b.Profile.WinRate) / 100
	eagerness := 0.5 + float64(b.Profile.Aggression)/200 // 0.5 .. 1.0
	p := base * eagerness
	if p <= 0 {
		return
	}
	if b.rng.Float64() < p {
		b.pendingClaim = now.Add(b.sampleDelay())
	}
}

// sampleDelay draws a human-like reaction lag uniformly from the profile's
// response-time bounds, stretched or shrunk by skill tier.
func (b *BotRuntime) sampleDelay() time.Duration {
	minD := time.Duration(b.Profile.MinResponseMs) * time.Millisecond
	maxD := time.Duration(b.Profile.MaxResponseMs) * time.Millisecond
	d := minD
	if maxD > minD {
		d = minD + time.Duration(b.rng.Int64N(int64(maxD-minD)+1))
	}
	return time.Duration(float64(d) * b.skillFactor())
}

// skillFactor shrinks reaction lag for higher tiers.
func (b *BotRuntime) skillFactor() float64 {
	switch b.Profile.SkillTier {
	case "high":
		return 0.75
	case "low":
		return 1.5
	default:
		return 1.0
	}
}

// ClaimMatured reports whether a scheduled attempt is due for evaluation
// and consumes it.
func (b *BotRuntime) ClaimMatured(now time.Time) bool {
	if b.pendingClaim.IsZero() || now.Before(b.pendingClaim) {
		return false
	}
	b.pendingClaim = time.Time{}
	return true
}

// MaybeChat advances the cosmetic chat counter. Message content is owned by
// the surrounding product; the engine only models cadence.
func (b *BotRuntime) MaybeChat() {
	if !b.Profile.ChatEnabled || b.Profile.ChatFrequency <= 0 {
		return
	}
	if b.rng.IntN(b.Profile.ChatFrequency) == 0 {
		b.chatCount++
	}
}

// ChatCount returns how many chat events the bot has emitted this session.
func (b *BotRuntime) ChatCount() int {
	return b.chatCount
}

// released frees the controller slot; called once when the session ends.
func (b *BotRuntime) released() {
	if b.controller != nil {
		b.controller.release(b.Profile.Name)
	}
}
