package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	rand "math/rand/v2"

	"github.com/charmbracelet/lipgloss"
	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/firaghost/YegnaBingoBot-sub002/cmd/bingo/shared"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/bingo"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/config"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/engine"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/randutil"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/sessionid"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/store"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/wallet"
)

// SimulateCmd runs bot-only rounds without the WebSocket layer, for tuning
// bot profiles and room settings.
type SimulateCmd struct {
	Config         string `kong:"default='bingo.hcl',help='HCL configuration file'"`
	Room           string `kong:"help='Room id to simulate (defaults to the first configured room)'"`
	Rounds         int    `kong:"default='10',help='Number of rounds to run'"`
	Bots           int    `kong:"default='4',help='Bots seated per round'"`
	DrawIntervalMs int    `kong:"default='5',help='Draw interval override in milliseconds'"`
	Seed           *int64 `kong:"help='Deterministic RNG seed for reproducible runs'"`
	Debug          bool   `kong:"help='Enable debug logging'"`
}

var (
	simHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	simWinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	simNoWinStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	simNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))
)

type roundResult struct {
	winnerID string
	pattern  string
	calls    int
	payout   bingo.Money
}

func (c *SimulateCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Bots) == 0 {
		return fmt.Errorf("no bot profiles configured")
	}

	room, err := c.pickRoom(cfg)
	if err != nil {
		return err
	}
	room.CountdownSeconds = 0
	room.DrawIntervalMs = c.DrawIntervalMs

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	rng := randutil.New(seed)

	patterns, err := bingo.PatternsByName(room.Patterns...)
	if err != nil {
		return err
	}

	// every configured bot is eligible for simulation runs
	profiles := make([]config.BotConfig, len(cfg.Bots))
	for i, profile := range cfg.Bots {
		profile.AutoJoin = true
		profile.Disabled = false
		if profile.MaxConcurrentGames < 1 {
			profile.MaxConcurrentGames = 1
		}
		profiles[i] = profile
	}
	bots := engine.NewBotController(logger, profiles, randutil.Fork(rng))

	memStore := store.NewMemory()
	walletSvc := wallet.NewMock(logger, bingo.Money(room.Stake)*bingo.Money(c.Rounds+1))
	commission := config.StaticCommission(cfg.Commission.Bps)

	fmt.Println(simHeaderStyle.Render(fmt.Sprintf(
		"Simulating %d rounds in room %s (stake %d, %d bots, seed %d)",
		c.Rounds, room.ID, room.Stake, c.Bots, seed)))

	wins := make(map[string]int)
	var noWinner, totalCalls int
	ctx := shared.SetupSignalHandler()

	for round := 1; round <= c.Rounds; round++ {
		if ctx.Err() != nil {
			break
		}
		result, err := c.runRound(ctx, room, patterns, bots, memStore, walletSvc, commission, rng, logger)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}

		totalCalls += result.calls
		if result.winnerID == "" {
			noWinner++
			fmt.Printf("round %02d  %s  calls %d\n",
				round, simNoWinStyle.Render("no winner"), result.calls)
			continue
		}
		wins[result.winnerID]++
		fmt.Printf("round %02d  winner %s  pattern %-12s  calls %2d  payout %d\n",
			round, simWinnerStyle.Render(result.winnerID), result.pattern, result.calls, int64(result.payout))
	}

	c.printSummary(wins, noWinner, totalCalls)
	return nil
}

func (c *SimulateCmd) pickRoom(cfg *config.Config) (config.RoomConfig, error) {
	if c.Room == "" {
		if len(cfg.Rooms) == 0 {
			return config.RoomConfig{}, fmt.Errorf("no rooms configured")
		}
		return cfg.Rooms[0], nil
	}
	room, ok := cfg.Room(c.Room)
	if !ok {
		return config.RoomConfig{}, fmt.Errorf("unknown room %q", c.Room)
	}
	return room, nil
}

func (c *SimulateCmd) runRound(
	ctx context.Context,
	room config.RoomConfig,
	patterns *bingo.PatternSet,
	bots *engine.BotController,
	memStore *store.Memory,
	walletSvc *wallet.Mock,
	commission *config.CommissionSource,
	rng *rand.Rand,
	logger zerolog.Logger,
) (roundResult, error) {
	sess := engine.NewSession(sessionid.New(), room, patterns, engine.Deps{
		Clock:      quartz.NewReal(),
		Logger:     logger,
		Store:      memStore,
		Wallet:     walletSvc,
		Commission: commission,
		CardRNG:    randutil.Fork(rng),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sess.Run(runCtx)

	if seated := bots.AutoJoin(sess, c.Bots); seated < room.MinPlayers {
		_ = sess.ForceEnd("not_enough_bots")
		<-sess.Done()
		return roundResult{}, fmt.Errorf("seated %d bots, room needs at least %d", seated, room.MinPlayers)
	}

	select {
	case <-sess.Done():
	case <-ctx.Done():
		<-sess.Done()
	}

	snap := sess.Snapshot()
	result := roundResult{calls: len(snap.CalledNumbers)}
	if snap.Outcome == engine.OutcomeWinner {
		result.winnerID = snap.WinnerID
		result.pattern = snap.WinnerPattern
		result.payout = snap.PrizePool
	}
	return result, nil
}

func (c *SimulateCmd) printSummary(wins map[string]int, noWinner, totalCalls int) {
	fmt.Println()
	fmt.Println(simHeaderStyle.Render("Summary"))

	names := make([]string, 0, len(wins))
	for name := range wins {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if wins[names[i]] != wins[names[j]] {
			return wins[names[i]] > wins[names[j]]
		}
		return names[i] < names[j]
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d wins\n", simNameStyle.Render(name), wins[name])
	}
	if noWinner > 0 {
		fmt.Fprintf(w, "%s\t%d rounds\n", simNoWinStyle.Render("no winner"), noWinner)
	}
	rounds := noWinner
	for _, n := range wins {
		rounds += n
	}
	if rounds > 0 {
		fmt.Fprintf(w, "average calls\t%.1f\n", float64(totalCalls)/float64(rounds))
	}
	_ = w.Flush()
}
