package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/config"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/randutil"
)

func TestBotControllerSkipsInvalidProfiles(t *testing.T) {
	t.Parallel()
	broken := newTestBotProfile("broken", 150) // win rate out of range
	bc := NewBotController(zerolog.Nop(), []config.BotConfig{
		newTestBotProfile("good", 40),
		broken,
	}, randutil.New(1))

	assert.Equal(t, []string{"good"}, bc.Roster())
}

func TestBotControllerConcurrencyCap(t *testing.T) {
	t.Parallel()
	profile := newTestBotProfile("capped", 40)
	bc := NewBotController(zerolog.Nop(), []config.BotConfig{profile}, randutil.New(2))

	first, ok := bc.acquire(profile)
	require.True(t, ok)
	assert.Equal(t, 1, bc.ActiveCount("capped"))

	_, ok = bc.acquire(profile)
	assert.False(t, ok, "profile above its concurrency cap")

	first.released()
	assert.Equal(t, 0, bc.ActiveCount("capped"))
	_, ok = bc.acquire(profile)
	assert.True(t, ok)
}

func TestBotControllerAcquireRespectsFlags(t *testing.T) {
	t.Parallel()
	bc := NewBotController(zerolog.Nop(), nil, randutil.New(3))

	disabled := newTestBotProfile("off", 40)
	disabled.Disabled = true
	_, ok := bc.acquire(disabled)
	assert.False(t, ok)

	manual := newTestBotProfile("manual", 40)
	manual.AutoJoin = false
	_, ok = bc.acquire(manual)
	assert.False(t, ok)
}

func TestBotRuntimeClaimScheduling(t *testing.T) {
	t.Parallel()
	profile := newTestBotProfile("eager", 100)
	profile.Aggression = 100
	profile.MinResponseMs = 5
	profile.MaxResponseMs = 10
	bot := &BotRuntime{ID: "bot-eager-1", Profile: profile, rng: randutil.New(4)}

	now := time.Now()
	// full match with max win rate and aggression schedules unconditionally
	bot.ConsiderClaim(now, 25, 25)
	require.False(t, bot.pendingClaim.IsZero(), "claim attempt not scheduled")

	assert.False(t, bot.ClaimMatured(now), "claim matured before its delay")
	require.True(t, bot.ClaimMatured(now.Add(20*time.Millisecond)))
	assert.False(t, bot.ClaimMatured(now.Add(time.Hour)), "matured claim not consumed")
}

func TestBotRuntimeZeroWinRateNeverClaims(t *testing.T) {
	t.Parallel()
	bot := &BotRuntime{Profile: newTestBotProfile("passive", 0), rng: randutil.New(5)}

	now := time.Now()
	for i := 0; i < 1000; i++ {
		bot.ConsiderClaim(now, 25, 25)
	}
	assert.True(t, bot.pendingClaim.IsZero())
}

func TestBotRuntimeDelayBounds(t *testing.T) {
	t.Parallel()
	profile := newTestBotProfile("timed", 50)
	profile.MinResponseMs = 10
	profile.MaxResponseMs = 20

	cases := []struct {
		tier     string
		min, max time.Duration
	}{
		{"medium", 10 * time.Millisecond, 20 * time.Millisecond},
		{"high", 7500 * time.Microsecond, 15 * time.Millisecond},
		{"low", 15 * time.Millisecond, 30 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.tier, func(t *testing.T) {
			p := profile
			p.SkillTier = tc.tier
			bot := &BotRuntime{Profile: p, rng: randutil.New(6)}
			for i := 0; i < 200; i++ {
				d := bot.sampleDelay()
				assert.GreaterOrEqual(t, d, tc.min)
				assert.LessOrEqual(t, d, tc.max)
			}
		})
	}
}

func TestBotRuntimeChatCadence(t *testing.T) {
	t.Parallel()
	chatty := newTestBotProfile("chatty", 40)
	chatty.ChatEnabled = true
	chatty.ChatFrequency = 1
	bot := &BotRuntime{Profile: chatty, rng: randutil.New(7)}
	for i := 0; i < 10; i++ {
		bot.MaybeChat()
	}
	assert.Equal(t, 10, bot.ChatCount())

	quiet := newTestBotProfile("quiet", 40)
	bot = &BotRuntime{Profile: quiet, rng: randutil.New(8)}
	for i := 0; i < 10; i++ {
		bot.MaybeChat()
	}
	assert.Equal(t, 0, bot.ChatCount())
}
