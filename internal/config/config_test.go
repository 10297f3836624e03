package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHCL = `
server {
  address = "0.0.0.0"
  port    = 9000
}

commission {
  bps = 500
}

room "stake-20" {
  name             = "Twenty"
  stake            = 20
  max_players      = 40
  countdown_seconds = 8
  draw_interval_ms = 2000
  patterns         = ["rows", "diagonals"]
}

bot "shark" {
  win_rate        = 70
  aggression      = 90
  min_response_ms = 100
  max_response_ms = 400
  skill_tier      = "high"
  auto_join       = true
  max_concurrent_games = 4
}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bingo.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadHCL(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, sampleHCL))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Commission.Bps)

	room, ok := cfg.Room("stake-20")
	require.True(t, ok)
	assert.Equal(t, int64(20), room.Stake)
	assert.Equal(t, 2, room.MinPlayers, "defaulted")
	assert.True(t, room.IsEnabled(), "unset enabled flag means enabled")
	assert.Equal(t, []string{"rows", "diagonals"}, room.Patterns)

	require.Len(t, cfg.Bots, 1)
	assert.Equal(t, 70, cfg.Bots[0].WinRate)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Rooms)
	assert.NotEmpty(t, cfg.Bots)
}

func TestValidateRejectsBadRooms(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Rooms[0].Stake = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Rooms[1].ID = cfg.Rooms[0].ID
	assert.Error(t, cfg.Validate(), "duplicate room id")

	cfg = Default()
	cfg.Rooms[0].MaxPlayers = 1
	assert.Error(t, cfg.Validate())
}

func TestValidateBot(t *testing.T) {
	t.Parallel()

	good := BotConfig{Name: "b", WinRate: 50, Aggression: 50, MinResponseMs: 100, MaxResponseMs: 200, SkillTier: "low"}
	assert.NoError(t, ValidateBot(good))

	bad := good
	bad.WinRate = 101
	assert.Error(t, ValidateBot(bad))

	bad = good
	bad.Aggression = -1
	assert.Error(t, ValidateBot(bad))

	bad = good
	bad.MinResponseMs = 300
	assert.Error(t, ValidateBot(bad), "min above max")

	bad = good
	bad.SkillTier = "grandmaster"
	assert.Error(t, ValidateBot(bad))
}

func TestCommissionSource(t *testing.T) {
	t.Parallel()

	bps := 1000
	src := NewCommissionSource(func() int { return bps })

	first := src.Snapshot()
	assert.Equal(t, 1000, first.Bps)

	// Rate changes upstream; cached snapshot stays until invalidated.
	bps = 500
	assert.Equal(t, 1000, src.Snapshot().Bps)

	src.Invalidate()
	second := src.Snapshot()
	assert.Equal(t, 500, second.Bps)
	assert.Greater(t, second.Version, first.Version)

	bps = 250
	third := src.Refresh()
	assert.Equal(t, 250, third.Bps)
	assert.Greater(t, third.Version, second.Version)
}
