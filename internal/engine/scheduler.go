package engine

import (
	"context"
	"errors"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/bingo"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/config"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/randutil"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/sessionid"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/store"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/wallet"
)

const (
	// sweepInterval bounds how long an enabled room sits without a live
	// session after the previous one ends.
	sweepInterval = 500 * time.Millisecond

	// historyLimit caps the retained snapshots of ended sessions.
	historyLimit = 64
)

// SchedulerDeps bundles the collaborators shared by every session the
// scheduler spawns.
type SchedulerDeps struct {
	Clock      quartz.Clock
	Logger     zerolog.Logger
	Store      store.Store
	Wallet     wallet.Wallet
	Commission *config.CommissionSource
	Monitor    SessionMonitor
	Bots       *BotController
	CardRNG    *rand.Rand
}

// Scheduler keeps exactly one live session per enabled room, retiring
// ended sessions into a bounded history and replacing them on the next
// sweep.
type Scheduler struct {
	cfg     *config.Config
	clock   quartz.Clock
	logger  zerolog.Logger
	store   store.Store
	wallet  wallet.Wallet
	comm    *config.CommissionSource
	monitor SessionMonitor
	bots    *BotController
	rng     *rand.Rand

	mu      sync.RWMutex
	byRoom  map[string]*Session
	byID    map[string]*Session
	closed  map[string]bool
	history []SessionSnapshot

	wg sync.WaitGroup
}

// NewScheduler builds a scheduler over the configured rooms.
func NewScheduler(cfg *config.Config, deps SchedulerDeps) *Scheduler {
	if deps.Monitor == nil {
		deps.Monitor = NullMonitor{}
	}
	if deps.CardRNG == nil {
		deps.CardRNG = randutil.FromTime()
	}
	return &Scheduler{
		cfg:     cfg,
		clock:   deps.Clock,
		logger:  deps.Logger.With().Str("component", "scheduler").Logger(),
		store:   deps.Store,
		wallet:  deps.Wallet,
		comm:    deps.Commission,
		monitor: deps.Monitor,
		bots:    deps.Bots,
		rng:     deps.CardRNG,
		byRoom:  make(map[string]*Session),
		byID:    make(map[string]*Session),
		closed:  make(map[string]bool),
	}
}

// Run sweeps rooms until ctx is cancelled, then waits for every live
// session to observe the shutdown and terminate.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Int("rooms", len(s.cfg.Rooms)).Msg("scheduler started")
	s.sweep(ctx)

	ticker := s.clock.TickerFunc(ctx, sweepInterval, func() error {
		s.sweep(ctx)
		return nil
	}, "scheduler-sweep")

	err := ticker.Wait()
	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sweep retires ended sessions and spawns replacements for enabled rooms.
func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for _, room := range s.cfg.Rooms {
		if !room.IsEnabled() {
			continue
		}
		s.mu.Lock()
		sess := s.byRoom[room.ID]
		if sess != nil && sessionDone(sess) {
			s.retireLocked(sess)
			sess = nil
		}
		if s.closed[room.ID] {
			// Closed rooms still get their last session retired, but
			// never a replacement.
			s.mu.Unlock()
			continue
		}
		var spawned *Session
		if sess == nil {
			spawned = s.spawnLocked(ctx, room)
		}
		s.mu.Unlock()
		if spawned != nil {
			s.seedBots(spawned, room)
		}
	}
}

// spawnLocked creates and starts a session for room. Callers hold s.mu.
func (s *Scheduler) spawnLocked(ctx context.Context, room config.RoomConfig) *Session {
	patterns, err := bingo.PatternsByName(room.Patterns...)
	if err != nil {
		s.logger.Error().Err(err).Str("room", room.ID).Msg("invalid pattern set, room skipped")
		return nil
	}
	sess := NewSession(sessionid.New(), room, patterns, Deps{
		Clock:      s.clock,
		Logger:     s.logger,
		Store:      s.store,
		Wallet:     s.wallet,
		Commission: s.comm,
		Monitor:    s.monitor,
		CardRNG:    randutil.Fork(s.rng),
	})
	s.byRoom[room.ID] = sess
	s.byID[sess.ID()] = sess
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.Run(ctx)
	}()
	s.logger.Info().Str("session_id", sess.ID()).Str("room", room.ID).Msg("session spawned")
	return sess
}

func (s *Scheduler) seedBots(sess *Session, room config.RoomConfig) {
	if s.bots == nil {
		return
	}
	if n := s.bots.AutoJoin(sess, room.MinPlayers); n > 0 {
		s.logger.Debug().Str("session_id", sess.ID()).Int("bots", n).Msg("bots seeded")
	}
}

// retireLocked moves an ended session into the history ring.
func (s *Scheduler) retireLocked(sess *Session) {
	delete(s.byRoom, sess.RoomID())
	delete(s.byID, sess.ID())
	s.history = append(s.history, sess.Snapshot())
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.logger.Debug().Str("session_id", sess.ID()).Msg("session retired")
}

func sessionDone(sess *Session) bool {
	select {
	case <-sess.Done():
		return true
	default:
		return false
	}
}

// Join seats a player in the given room's live session, spawning one if
// the room has none yet. Returns the session id the player joined.
func (s *Scheduler) Join(ctx context.Context, roomID, playerID string) (string, error) {
	room, ok := s.cfg.Room(roomID)
	if !ok {
		return "", ErrUnknownRoom
	}
	if !room.IsEnabled() {
		return "", ErrRoomDisabled
	}

	s.mu.Lock()
	if s.closed[roomID] {
		s.mu.Unlock()
		return "", ErrRoomDisabled
	}
	sess := s.byRoom[roomID]
	if sess != nil && sessionDone(sess) {
		s.retireLocked(sess)
		sess = nil
	}
	var spawned *Session
	if sess == nil {
		spawned = s.spawnLocked(ctx, room)
		sess = spawned
	}
	s.mu.Unlock()
	if sess == nil {
		return "", ErrUnknownRoom
	}
	if spawned != nil {
		s.seedBots(spawned, room)
	}

	if err := sess.Join(playerID); err != nil {
		return "", err
	}
	return sess.ID(), nil
}

// Leave removes a player from a live session.
func (s *Scheduler) Leave(sessionID, playerID string) error {
	sess, err := s.live(sessionID)
	if err != nil {
		return err
	}
	return sess.Leave(playerID)
}

// Claim forwards a human claim attempt.
func (s *Scheduler) Claim(sessionID, playerID string) error {
	sess, err := s.live(sessionID)
	if err != nil {
		return err
	}
	return sess.Claim(playerID)
}

// Pause toggles a session's pause flag. A no-op when the session already
// ended, matching ForceEnd.
func (s *Scheduler) Pause(sessionID string, paused bool) error {
	sess, err := s.live(sessionID)
	if err != nil {
		if errors.Is(err, ErrUnknownSession) && s.inHistory(sessionID) {
			return nil
		}
		return err
	}
	return sess.SetPaused(paused)
}

// CloseRoom takes a room out of rotation and cancels its live session,
// refunding stakes through the usual cancellation path. Joins into a
// closed room fail with ErrRoomDisabled; closing twice is a no-op.
func (s *Scheduler) CloseRoom(roomID string) error {
	if _, ok := s.cfg.Room(roomID); !ok {
		return ErrUnknownRoom
	}

	s.mu.Lock()
	s.closed[roomID] = true
	sess := s.byRoom[roomID]
	s.mu.Unlock()

	s.logger.Info().Str("room", roomID).Msg("room closed")
	if sess != nil {
		return sess.ForceEnd(ReasonRoomClosed)
	}
	return nil
}

// ForceEnd cancels a session. A no-op when the session already ended.
func (s *Scheduler) ForceEnd(sessionID, reason string) error {
	sess, err := s.live(sessionID)
	if err != nil {
		if errors.Is(err, ErrUnknownSession) && s.inHistory(sessionID) {
			return nil
		}
		return err
	}
	return sess.ForceEnd(reason)
}

// Session returns a snapshot of a live or recently ended session.
func (s *Scheduler) Session(sessionID string) (SessionSnapshot, error) {
	s.mu.RLock()
	sess := s.byID[sessionID]
	s.mu.RUnlock()
	if sess != nil {
		return sess.Snapshot(), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ID == sessionID {
			return s.history[i], nil
		}
	}
	return SessionSnapshot{}, ErrUnknownSession
}

// List returns snapshots of live sessions plus retained history, newest
// history last. An empty roomID lists every room.
func (s *Scheduler) List(roomID string) []SessionSnapshot {
	s.mu.RLock()
	live := make([]*Session, 0, len(s.byID))
	for _, sess := range s.byID {
		live = append(live, sess)
	}
	history := append([]SessionSnapshot(nil), s.history...)
	s.mu.RUnlock()

	out := make([]SessionSnapshot, 0, len(live)+len(history))
	for _, snap := range history {
		if roomID == "" || snap.RoomID == roomID {
			out = append(out, snap)
		}
	}
	for _, sess := range live {
		if roomID == "" || sess.RoomID() == roomID {
			out = append(out, sess.Snapshot())
		}
	}
	return out
}

// Card returns a participant's card in a live session.
func (s *Scheduler) Card(sessionID, playerID string) ([]int, error) {
	sess, err := s.live(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Card(playerID)
}

// Rooms returns the configured room set.
func (s *Scheduler) Rooms() []config.RoomConfig {
	return append([]config.RoomConfig(nil), s.cfg.Rooms...)
}

func (s *Scheduler) live(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.byID[sessionID]
	if sess == nil {
		return nil, ErrUnknownSession
	}
	return sess, nil
}

func (s *Scheduler) inHistory(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, snap := range s.history {
		if snap.ID == sessionID {
			return true
		}
	}
	return false
}
