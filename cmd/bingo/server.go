package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	rand "math/rand/v2"

	charmlog "github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/firaghost/YegnaBingoBot-sub002/cmd/bingo/shared"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/auth"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/bingo"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/config"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/engine"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/randutil"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/server"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/store"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/wallet"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config         string `kong:"default='bingo.hcl',help='HCL configuration file'"`
	Addr           string `kong:"help='Listen address, overrides the configured one'"`
	Debug          bool   `kong:"help='Enable debug logging'"`
	LogJSON        bool   `kong:"name='log-json',help='Emit structured JSON logs instead of console output'"`
	Seed           *int64 `kong:"help='Deterministic card RNG seed (optional)'"`
	DataDir        string `kong:"help='Persist sessions as JSON under this directory (in-memory when unset)'"`
	AuthURL        string `kong:"help='Token validation endpoint (auth disabled when unset)'"`
	OpeningBalance int64  `kong:"default='1000',help='Opening balance credited to new players'"`
}

func (c *ServerCmd) Run() error {
	// Configure logging
	logger := shared.SetupLogger(c.Debug)
	if c.LogJSON {
		logger = shared.SetupStructuredLogger(c.Debug)
	}

	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Setup RNG and seed
	var rng *rand.Rand
	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
		rng = randutil.New(seed)
	} else {
		seed = time.Now().UnixNano()
		logger.Info().Int64("seed", seed).Msg("Using random seed")
		rng = randutil.New(seed)
	}

	addr := c.Addr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	}

	var sessionStore store.Store = store.NewMemory()
	if c.DataDir != "" {
		fileStore, err := store.NewFile(logger, c.DataDir)
		if err != nil {
			return err
		}
		// Recovered documents come from outside the process; reject
		// states the engine does not know rather than defaulting them.
		for _, rec := range fileStore.Sessions() {
			if _, perr := engine.ParseStatus(rec.Status); perr != nil {
				logger.Warn().Err(perr).Str("session_id", rec.ID).Msg("Stored session has unrecognized status")
			}
		}
		sessionStore = fileStore
	}

	hub := engine.NewHub()
	sched := engine.NewScheduler(cfg, engine.SchedulerDeps{
		Clock:      quartz.NewReal(),
		Logger:     logger,
		Store:      sessionStore,
		Wallet:     wallet.NewMock(logger, bingo.Money(c.OpeningBalance)),
		Commission: config.StaticCommission(cfg.Commission.Bps),
		Monitor:    engine.NewMultiMonitor(hub, outcomeLogger{logger}),
		Bots:       engine.NewBotController(logger, cfg.Bots, randutil.Fork(rng)),
		CardRNG:    rng,
	})

	wsLogLevel := charmlog.InfoLevel
	if c.Debug {
		wsLogLevel = charmlog.DebugLevel
	}
	wsLogger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Level:           wsLogLevel,
	})
	srv := server.NewServer(addr, wsLogger, sched, hub)
	if c.AuthURL != "" {
		logger.Info().Str("url", c.AuthURL).Msg("Token authentication enabled")
		srv.SetAuthValidator(auth.NewHTTPValidator(c.AuthURL))
	}

	logger.Info().
		Str("address", addr).
		Int("rooms", len(cfg.Rooms)).
		Int("bots", len(cfg.Bots)).
		Int("commission_bps", cfg.Commission.Bps).
		Msg("Starting bingo server")

	// Setup graceful shutdown
	ctx := shared.SetupSignalHandlerWithLogger(logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		err := srv.Start()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// outcomeLogger records terminal outcomes alongside the snapshot hub.
type outcomeLogger struct {
	logger zerolog.Logger
}

func (outcomeLogger) OnSnapshot(engine.SessionSnapshot) {}

func (o outcomeLogger) OnSessionEnd(snap engine.SessionSnapshot) {
	evt := o.logger.Info().
		Str("session_id", snap.ID).
		Str("room", snap.RoomID).
		Str("status", string(snap.Status)).
		Int("calls", len(snap.CalledNumbers)).
		Int("participants", len(snap.Participants))
	if snap.WinnerID != "" {
		evt = evt.Str("winner", snap.WinnerID).
			Str("pattern", snap.WinnerPattern).
			Int64("payout", int64(snap.PrizePool))
	}
	if snap.Reason != "" {
		evt = evt.Str("reason", snap.Reason)
	}
	evt.Msg("session ended")
}
