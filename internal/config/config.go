// Package config loads room, bot and server configuration from HCL files
// and serves commission-rate snapshots to the engine.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete engine configuration.
type Config struct {
	Server     ServerSettings   `hcl:"server,block"`
	Commission CommissionConfig `hcl:"commission,block"`
	Rooms      []RoomConfig     `hcl:"room,block"`
	Bots       []BotConfig      `hcl:"bot,block"`
}

// ServerSettings contains transport-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// CommissionConfig holds the platform cut in basis points. The engine reads
// it through a Source so rate changes version cleanly.
type CommissionConfig struct {
	Bps int `hcl:"bps"`
}

// RoomConfig is the static-ish per-room configuration. The engine treats it
// as read-only; edits come from the admin surface and land as a fresh load.
type RoomConfig struct {
	ID               string   `hcl:"id,label"`
	Name             string   `hcl:"name,optional"`
	Stake            int64    `hcl:"stake"`
	MaxPlayers       int      `hcl:"max_players,optional"`
	MinPlayers       int      `hcl:"min_players,optional"`
	CountdownSeconds int      `hcl:"countdown_seconds,optional"`
	DrawIntervalMs   int      `hcl:"draw_interval_ms,optional"`
	Patterns         []string `hcl:"patterns,optional"`
	Enabled          *bool    `hcl:"enabled,optional"`
}

// IsEnabled treats an unset flag as enabled.
func (r RoomConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Countdown returns the countdown duration.
func (r RoomConfig) Countdown() time.Duration {
	return time.Duration(r.CountdownSeconds) * time.Second
}

// DrawInterval returns the draw cadence for the room's speed tier.
func (r RoomConfig) DrawInterval() time.Duration {
	return time.Duration(r.DrawIntervalMs) * time.Millisecond
}

// BotConfig is a bot personality: every field is explicit and range-checked
// at load time rather than defaulted from a loosely-typed bag.
type BotConfig struct {
	Name               string `hcl:"name,label"`
	WinRate            int    `hcl:"win_rate"`   // percent, 0-100
	Aggression         int    `hcl:"aggression"` // percent, 0-100
	MinResponseMs      int    `hcl:"min_response_ms"`
	MaxResponseMs      int    `hcl:"max_response_ms"`
	SkillTier          string `hcl:"skill_tier,optional"`
	AutoJoin           bool   `hcl:"auto_join,optional"`
	MaxConcurrentGames int    `hcl:"max_concurrent_games,optional"`
	ChatEnabled        bool   `hcl:"chat_enabled,optional"`
	ChatFrequency      int    `hcl:"chat_frequency,optional"`
	Disabled           bool   `hcl:"disabled,optional"`
}

// Default returns the configuration used when no file is present: one room
// per common stake tier and a small mixed-personality bot roster.
func Default() *Config {
	enabled := true
	return &Config{
		Server:     ServerSettings{Address: "localhost", Port: 8080, LogLevel: "info"},
		Commission: CommissionConfig{Bps: 1000},
		Rooms: []RoomConfig{
			{ID: "stake-10", Name: "Bronze", Stake: 10, MaxPlayers: 50, MinPlayers: 2, CountdownSeconds: 10, DrawIntervalMs: 3000, Enabled: &enabled},
			{ID: "stake-50", Name: "Silver", Stake: 50, MaxPlayers: 30, MinPlayers: 2, CountdownSeconds: 10, DrawIntervalMs: 3000, Enabled: &enabled},
			{ID: "stake-100", Name: "Gold", Stake: 100, MaxPlayers: 20, MinPlayers: 2, CountdownSeconds: 15, DrawIntervalMs: 4000, Enabled: &enabled},
		},
		Bots: []BotConfig{
			{Name: "steady", WinRate: 40, Aggression: 30, MinResponseMs: 400, MaxResponseMs: 1500, SkillTier: "medium", AutoJoin: true, MaxConcurrentGames: 3},
			{Name: "eager", WinRate: 55, Aggression: 80, MinResponseMs: 150, MaxResponseMs: 600, SkillTier: "high", AutoJoin: true, MaxConcurrentGames: 2},
			{Name: "casual", WinRate: 25, Aggression: 15, MinResponseMs: 800, MaxResponseMs: 2500, SkillTier: "low", AutoJoin: true, MaxConcurrentGames: 1},
		},
	}
}

// Load reads configuration from an HCL file, falling back to Default when
// the file does not exist.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	for i := range c.Rooms {
		room := &c.Rooms[i]
		if room.Name == "" {
			room.Name = room.ID
		}
		if room.MaxPlayers == 0 {
			room.MaxPlayers = 50
		}
		if room.MinPlayers == 0 {
			room.MinPlayers = 2
		}
		if room.CountdownSeconds == 0 {
			room.CountdownSeconds = 10
		}
		if room.DrawIntervalMs == 0 {
			room.DrawIntervalMs = 3000
		}
	}
	for i := range c.Bots {
		bot := &c.Bots[i]
		if bot.SkillTier == "" {
			bot.SkillTier = "medium"
		}
		if bot.MaxConcurrentGames == 0 {
			bot.MaxConcurrentGames = 1
		}
	}
}

// Validate rejects configurations the engine cannot run safely.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Commission.Bps < 0 || c.Commission.Bps > 10000 {
		return fmt.Errorf("commission must be within [0, 10000] bps, got %d", c.Commission.Bps)
	}
	if len(c.Rooms) == 0 {
		return fmt.Errorf("at least one room must be configured")
	}

	seen := make(map[string]bool)
	for _, room := range c.Rooms {
		if seen[room.ID] {
			return fmt.Errorf("room %s: duplicate id", room.ID)
		}
		seen[room.ID] = true
		if room.Stake <= 0 {
			return fmt.Errorf("room %s: stake must be positive", room.ID)
		}
		if room.MinPlayers < 2 {
			return fmt.Errorf("room %s: min players must be at least 2", room.ID)
		}
		if room.MaxPlayers < room.MinPlayers {
			return fmt.Errorf("room %s: max players below min players", room.ID)
		}
		if room.DrawIntervalMs < 100 {
			return fmt.Errorf("room %s: draw interval must be at least 100ms", room.ID)
		}
	}

	for _, bot := range c.Bots {
		if err := ValidateBot(bot); err != nil {
			return err
		}
	}
	return nil
}

// ValidateBot range-checks one bot personality. The engine also calls this
// per bot so a single malformed profile disables that bot, not the config.
func ValidateBot(bot BotConfig) error {
	if bot.Name == "" {
		return fmt.Errorf("bot requires a name")
	}
	if bot.WinRate < 0 || bot.WinRate > 100 {
		return fmt.Errorf("bot %s: win rate %d outside [0, 100]", bot.Name, bot.WinRate)
	}
	if bot.Aggression < 0 || bot.Aggression > 100 {
		return fmt.Errorf("bot %s: aggression %d outside [0, 100]", bot.Name, bot.Aggression)
	}
	if bot.MinResponseMs < 0 {
		return fmt.Errorf("bot %s: negative min response time", bot.Name)
	}
	if bot.MaxResponseMs < bot.MinResponseMs {
		return fmt.Errorf("bot %s: max response time below min", bot.Name)
	}
	switch bot.SkillTier {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("bot %s: unknown skill tier %q", bot.Name, bot.SkillTier)
	}
	if bot.MaxConcurrentGames < 0 {
		return fmt.Errorf("bot %s: negative max concurrent games", bot.Name)
	}
	if bot.ChatFrequency < 0 {
		return fmt.Errorf("bot %s: negative chat frequency", bot.Name)
	}
	return nil
}

// Room returns a room by id.
func (c *Config) Room(id string) (RoomConfig, bool) {
	for _, room := range c.Rooms {
		if room.ID == id {
			return room, true
		}
	}
	return RoomConfig{}, false
}
