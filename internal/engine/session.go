package engine

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/bingo"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/config"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/store"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/wallet"
)

const (
	// Draw persistence retry budget. If a write still fails after this the
	// session is cancelled rather than left inconsistent.
	persistAttempts = 3
	persistBackoff  = 50 * time.Millisecond
)

// ReasonDrawFailure cancels a session whose random source failed.
const ReasonDrawFailure = "draw_failure"

// Participant is one seat in a session: a human player or a bot runtime,
// in join order. Join order is the tie-break order for simultaneous wins.
type Participant struct {
	ID       string
	JoinedAt time.Time
	Card     *bingo.Card
	Bot      *BotRuntime
}

// Deps bundles the collaborators a session needs.
type Deps struct {
	Clock      quartz.Clock
	Logger     zerolog.Logger
	Store      store.Store
	Wallet     wallet.Wallet
	Commission *config.CommissionSource
	Monitor    SessionMonitor
	CardRNG    *rand.Rand
}

// Session is the state machine for one round in one room. All mutations
// happen on the session's own goroutine; external callers queue commands
// that are applied at tick boundaries, and read immutable snapshots.
type Session struct {
	id       string
	room     config.RoomConfig
	patterns *bingo.PatternSet
	stake    bingo.Money // copied from room at creation, survives room edits

	clock   quartz.Clock
	logger  zerolog.Logger
	store   store.Store
	wallet  wallet.Wallet
	comm    *config.CommissionSource
	monitor SessionMonitor
	cardRNG *rand.Rand

	mu           sync.RWMutex
	status       Status
	outcome      string
	reason       string
	paused       bool
	pausedAt     time.Time
	createdAt    time.Time
	startedAt    time.Time
	endedAt      time.Time
	caller       *bingo.Caller
	participants []*Participant
	prizePool    bingo.Money
	commission   bingo.Commission
	winnerID     string
	winnerName   string // pattern name
	winningCard  []int

	commands chan command
	done     chan struct{}
}

type cmdKind int

const (
	cmdJoin cmdKind = iota
	cmdLeave
	cmdClaim
	cmdPause
	cmdForceEnd
)

type command struct {
	kind     cmdKind
	playerID string
	bot      *BotRuntime
	pause    bool
	reason   string
	reply    chan error
}

// NewSession builds a session in the waiting state. Run must be started on
// its own goroutine before commands are submitted.
func NewSession(id string, room config.RoomConfig, patterns *bingo.PatternSet, deps Deps) *Session {
	if deps.Monitor == nil {
		deps.Monitor = NullMonitor{}
	}
	s := &Session{
		id:       id,
		room:     room,
		patterns: patterns,
		stake:    bingo.Money(room.Stake),
		clock:    deps.Clock,
		logger:   deps.Logger.With().Str("component", "session").Str("session_id", id).Str("room", room.ID).Logger(),
		store:    deps.Store,
		wallet:   deps.Wallet,
		comm:     deps.Commission,
		monitor:  deps.Monitor,
		cardRNG:  deps.CardRNG,
		status:   StatusWaiting,
		caller:   bingo.NewCaller(),
		commands: make(chan command, 32),
		done:     make(chan struct{}),
	}
	s.createdAt = s.clock.Now()
	s.commission = s.comm.Snapshot()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// RoomID returns the owning room's identifier.
func (s *Session) RoomID() string { return s.room.ID }

// Done closes when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Status reads the current state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Join seats a human player, debiting the stake. Allowed while waiting or
// counting down.
func (s *Session) Join(playerID string) error {
	return s.submit(command{kind: cmdJoin, playerID: playerID})
}

// JoinBot seats a bot runtime.
func (s *Session) JoinBot(bot *BotRuntime) error {
	return s.submit(command{kind: cmdJoin, playerID: bot.ID, bot: bot})
}

// Leave removes a participant before the round starts, refunding the stake.
func (s *Session) Leave(playerID string) error {
	return s.submit(command{kind: cmdLeave, playerID: playerID})
}

// Claim submits a human claim attempt, evaluated immediately against the
// called numbers.
func (s *Session) Claim(playerID string) error {
	return s.submit(command{kind: cmdClaim, playerID: playerID})
}

// SetPaused toggles the cooperative pause flag. Idempotent, and a no-op
// once the session is terminal.
func (s *Session) SetPaused(paused bool) error {
	return s.submit(command{kind: cmdPause, pause: paused})
}

// ForceEnd cancels the session with the given reason. A no-op on sessions
// that are already terminal.
func (s *Session) ForceEnd(reason string) error {
	if reason == "" {
		reason = ReasonAdminForceEnd
	}
	return s.submit(command{kind: cmdForceEnd, reason: reason})
}

func (s *Session) submit(cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case s.commands <- cmd:
	case <-s.done:
		return s.terminalReply(cmd)
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return s.terminalReply(cmd)
		}
	}
}

// terminalReply answers a command sent to a terminal session: force-end
// and pause are idempotent no-ops, everything else errors.
func (s *Session) terminalReply(cmd command) error {
	if cmd.kind == cmdForceEnd || cmd.kind == cmdPause {
		return nil
	}
	return ErrSessionTerminal
}

// Run drives the session until it reaches a terminal state. Call once, on
// a dedicated goroutine.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info().Int64("stake", int64(s.stake)).Msg("session opened")
	s.saveState(ctx)
	s.publish()

	for {
		var exit bool
		switch s.Status() {
		case StatusWaiting:
			exit = s.runWaiting(ctx)
		case StatusCountdown:
			exit = s.runCountdown(ctx)
		case StatusActive:
			exit = s.runActive(ctx)
		default:
			exit = true
		}
		if exit {
			break
		}
	}
	s.finalize()
}

func (s *Session) runWaiting(ctx context.Context) bool {
	for {
		select {
		case cmd := <-s.commands:
			s.handleCommand(ctx, cmd)
			if st := s.Status(); st != StatusWaiting {
				return st.Terminal()
			}
		case <-ctx.Done():
			s.cancel(ctx, ReasonShutdown)
			return true
		}
	}
}

func (s *Session) runCountdown(ctx context.Context) bool {
	timer := s.clock.NewTimer(s.room.Countdown())
	defer timer.Stop()

	for {
		select {
		case cmd := <-s.commands:
			s.handleCommand(ctx, cmd)
			if st := s.Status(); st != StatusCountdown {
				return st.Terminal()
			}
		case <-timer.C:
			if s.participantCount() >= 2 {
				s.activate(ctx)
			} else {
				// Not enough players survived the countdown; hold in
				// waiting until the room fills up again.
				s.logger.Info().Msg("countdown expired below minimum, reverting to waiting")
				s.setStatus(StatusWaiting)
				s.saveState(ctx)
				s.publish()
			}
			return s.Status().Terminal()
		case <-ctx.Done():
			s.cancel(ctx, ReasonShutdown)
			return true
		}
	}
}

func (s *Session) runActive(ctx context.Context) bool {
	ticker := s.clock.NewTicker(s.room.DrawInterval())
	defer ticker.Stop()

	for {
		select {
		case cmd := <-s.commands:
			s.handleCommand(ctx, cmd)
			if s.Status().Terminal() {
				return true
			}
		case <-ticker.C:
			s.tick(ctx)
			if s.Status().Terminal() {
				return true
			}
		case <-ctx.Done():
			s.cancel(ctx, ReasonShutdown)
			return true
		}
	}
}

// tick performs at most one draw. The pause flag is honored here, at the
// tick boundary, so resuming continues with no skipped or duplicated draw.
func (s *Session) tick(ctx context.Context) {
	s.mu.RLock()
	paused := s.paused
	s.mu.RUnlock()
	if paused {
		return
	}

	s.mu.Lock()
	number, err := s.caller.Draw()
	s.mu.Unlock()
	if errors.Is(err, bingo.ErrPoolExhausted) {
		s.finishNoWinner(ctx)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("draw failed")
		s.cancel(ctx, ReasonDrawFailure)
		return
	}

	seq := len(s.caller.Called())
	if err := s.persistDraw(ctx, number, seq); err != nil {
		s.logger.Error().Err(err).Int("number", number).Int("seq", seq).Msg("draw persistence exhausted retries")
		s.cancel(ctx, ReasonPersistence)
		return
	}
	s.logger.Debug().Int("number", number).Int("seq", seq).Msg("number called")

	now := s.clock.Now()
	if winner, pattern := s.evaluateClaims(now); winner != nil {
		s.finishWinner(ctx, winner, pattern)
		return
	}

	s.mu.Lock()
	calledSet := s.caller.CalledSet()
	for _, p := range s.participants {
		if p.Bot == nil {
			continue
		}
		matched, total := p.Card.MatchCount(calledSet)
		p.Bot.ConsiderClaim(now, matched, total)
		p.Bot.MaybeChat()
	}
	s.mu.Unlock()

	if s.caller.Exhausted() {
		s.finishNoWinner(ctx)
		return
	}
	s.publish()
}

// evaluateClaims walks participants in join order and returns the first one
// whose card the pattern set validates. Human cards are checked on every
// draw; bot cards only when a scheduled claim attempt has matured, so bot
// configuration can delay a win but never fabricate one. Evaluation stops
// at the first winner.
func (s *Session) evaluateClaims(now time.Time) (*Participant, bingo.Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	calledSet := s.caller.CalledSet()
	for _, p := range s.participants {
		if p.Bot != nil && !p.Bot.ClaimMatured(now) {
			continue
		}
		if pattern, ok := s.patterns.Evaluate(p.Card, calledSet); ok {
			return p, pattern
		}
	}
	return nil, bingo.Pattern{}
}

func (s *Session) handleCommand(ctx context.Context, cmd command) {
	var err error
	switch cmd.kind {
	case cmdJoin:
		err = s.handleJoin(ctx, cmd)
	case cmdLeave:
		err = s.handleLeave(ctx, cmd)
	case cmdClaim:
		err = s.handleClaim(ctx, cmd)
	case cmdPause:
		err = s.handlePause(ctx, cmd)
	case cmdForceEnd:
		s.cancel(ctx, cmd.reason)
	default:
		err = fmt.Errorf("unknown command %d", cmd.kind)
	}
	cmd.reply <- err
}

func (s *Session) handleJoin(ctx context.Context, cmd command) error {
	s.mu.RLock()
	status := s.status
	count := len(s.participants)
	joined := s.findParticipantLocked(cmd.playerID) != nil
	s.mu.RUnlock()

	if status.Terminal() {
		return ErrSessionTerminal
	}
	if status == StatusActive {
		return ErrSessionStarted
	}
	if count >= s.room.MaxPlayers {
		return ErrSessionFull
	}
	if joined {
		return ErrAlreadyJoined
	}

	if err := s.wallet.Debit(ctx, cmd.playerID, s.stake, s.id); err != nil {
		return fmt.Errorf("stake debit: %w", err)
	}

	p := &Participant{
		ID:       cmd.playerID,
		JoinedAt: s.clock.Now(),
		Card:     bingo.GenerateCard(s.cardRNG),
		Bot:      cmd.bot,
	}

	s.mu.Lock()
	s.participants = append(s.participants, p)
	s.recomputePoolLocked()
	count = len(s.participants)
	startCountdown := s.status == StatusWaiting && count >= s.room.MinPlayers
	if startCountdown {
		s.status = StatusCountdown
	}
	s.mu.Unlock()

	s.logger.Info().Str("participant", cmd.playerID).Bool("bot", cmd.bot != nil).Int("count", count).Msg("participant joined")
	s.saveState(ctx)
	s.publish()
	return nil
}

func (s *Session) handleLeave(ctx context.Context, cmd command) error {
	s.mu.Lock()
	if s.status != StatusWaiting && s.status != StatusCountdown {
		s.mu.Unlock()
		if s.status.Terminal() {
			return ErrSessionTerminal
		}
		return ErrSessionStarted
	}
	idx := -1
	for i, p := range s.participants {
		if p.ID == cmd.playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotJoined
	}
	p := s.participants[idx]
	s.participants = append(s.participants[:idx], s.participants[idx+1:]...)
	s.recomputePoolLocked()
	s.mu.Unlock()

	if p.Bot != nil {
		p.Bot.released()
	}
	if err := s.wallet.Credit(ctx, p.ID, s.stake, s.id); err != nil {
		s.logger.Error().Err(err).Str("participant", p.ID).Msg("stake refund failed")
	}
	s.logger.Info().Str("participant", p.ID).Msg("participant left")
	s.saveState(ctx)
	s.publish()
	return nil
}

func (s *Session) handleClaim(ctx context.Context, cmd command) error {
	s.mu.RLock()
	status := s.status
	p := s.findParticipantLocked(cmd.playerID)
	s.mu.RUnlock()

	if status.Terminal() {
		return ErrSessionTerminal
	}
	if status != StatusActive {
		return fmt.Errorf("claim before round start: %w", ErrSessionStarted)
	}
	if p == nil {
		return ErrNotJoined
	}

	pattern, ok := s.patterns.Evaluate(p.Card, s.caller.CalledSet())
	if !ok {
		return fmt.Errorf("claim by %s does not complete any pattern", cmd.playerID)
	}
	s.finishWinner(ctx, p, pattern)
	return nil
}

func (s *Session) handlePause(ctx context.Context, cmd command) error {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return nil // nothing left to pause
	}
	if s.paused == cmd.pause {
		s.mu.Unlock()
		return nil // idempotent
	}
	s.paused = cmd.pause
	if cmd.pause {
		s.pausedAt = s.clock.Now()
	} else {
		s.pausedAt = time.Time{}
	}
	s.mu.Unlock()

	s.logger.Info().Bool("paused", cmd.pause).Msg("pause flag changed")
	s.saveState(ctx)
	s.publish()
	return nil
}

func (s *Session) activate(ctx context.Context) {
	s.mu.Lock()
	s.status = StatusActive
	s.startedAt = s.clock.Now()
	s.recomputePoolLocked()
	s.mu.Unlock()

	s.logger.Info().Int("participants", s.participantCount()).Int64("prize_pool", int64(s.prizePoolNow())).Msg("round started")
	if err := s.saveStateRetry(ctx); err != nil {
		s.logger.Error().Err(err).Msg("activation persistence exhausted retries")
		s.cancel(ctx, ReasonPersistence)
		return
	}
	s.publish()
}

func (s *Session) finishWinner(ctx context.Context, p *Participant, pattern bingo.Pattern) {
	now := s.clock.Now()
	s.mu.Lock()
	s.status = StatusFinished
	s.outcome = OutcomeWinner
	s.endedAt = now
	s.winnerID = p.ID
	s.winnerName = pattern.Name
	s.winningCard = p.Card.Numbers() // snapshot survives later card reuse
	payout := s.prizePool            // frozen at the last live value
	calls := len(s.caller.Called())
	s.mu.Unlock()

	s.logger.Info().
		Str("winner", p.ID).
		Bool("bot", p.Bot != nil).
		Str("pattern", pattern.Name).
		Int("calls", calls).
		Int64("payout", int64(payout)).
		Msg("round won")

	if err := s.saveStateRetry(ctx); err != nil {
		s.logger.Error().Err(err).Msg("finish persistence exhausted retries")
		s.cancel(ctx, ReasonPersistence)
		return
	}

	win := store.WinRecord{
		SessionID:   s.id,
		WinnerID:    p.ID,
		Pattern:     pattern.Name,
		WonAt:       now,
		CallsAtWin:  calls,
		Payout:      payout,
		WinningCard: append([]int(nil), s.winningCard...),
	}
	if err := s.store.SaveWin(ctx, win); err != nil {
		s.logger.Error().Err(err).Msg("win record persistence failed")
	}
	if err := s.wallet.Credit(ctx, p.ID, payout, s.id); err != nil {
		s.logger.Error().Err(err).Str("winner", p.ID).Msg("payout credit failed")
	}
	s.publish()
}

func (s *Session) finishNoWinner(ctx context.Context) {
	s.mu.Lock()
	s.status = StatusFinished
	s.outcome = OutcomeNoWinner
	s.endedAt = s.clock.Now()
	s.mu.Unlock()

	s.logger.Info().Int("calls", len(s.caller.Called())).Msg("pool exhausted with no winner")
	if err := s.saveStateRetry(ctx); err != nil {
		s.logger.Error().Err(err).Msg("finish persistence exhausted retries")
	}
	s.publish()
}

// cancel force-ends the session and refunds every stake. Refunds and the
// final record must survive shutdown, so the run context's cancellation is
// stripped first.
func (s *Session) cancel(ctx context.Context, reason string) {
	ctx = context.WithoutCancel(ctx)
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.status = StatusCancelled
	s.reason = reason
	s.endedAt = s.clock.Now()
	participants := append([]*Participant(nil), s.participants...)
	s.mu.Unlock()

	s.logger.Warn().Str("reason", reason).Msg("session cancelled")
	for _, p := range participants {
		if err := s.wallet.Credit(ctx, p.ID, s.stake, s.id); err != nil {
			s.logger.Error().Err(err).Str("participant", p.ID).Msg("stake refund failed")
		}
	}
	if err := s.saveStateRetry(ctx); err != nil {
		s.logger.Error().Err(err).Msg("cancellation persistence failed")
	}
	s.publish()
}

// finalize releases bot slots, emits the terminal snapshot and unblocks any
// queued submitters.
func (s *Session) finalize() {
	s.mu.RLock()
	participants := append([]*Participant(nil), s.participants...)
	s.mu.RUnlock()
	for _, p := range participants {
		if p.Bot != nil {
			p.Bot.released()
		}
	}

	s.monitor.OnSessionEnd(s.Snapshot())
	close(s.done)

	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- s.terminalReply(cmd)
		default:
			return
		}
	}
}

// recomputePoolLocked refreshes the commission snapshot and live pool.
// Callers hold s.mu.
func (s *Session) recomputePoolLocked() {
	s.commission = s.comm.Snapshot()
	s.prizePool = bingo.LivePool(s.stake, len(s.participants), s.commission)
}

func (s *Session) findParticipantLocked(id string) *Participant {
	for _, p := range s.participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) participantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants)
}

func (s *Session) prizePoolNow() bingo.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prizePool
}

// persistDraw writes one draw, retrying with backoff. At most one draw is
// in flight per tick; a retried write is idempotent on the store side.
func (s *Session) persistDraw(ctx context.Context, number, seq int) error {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = s.store.AppendDraw(ctx, s.id, number, seq); err == nil {
			return nil
		}
		if attempt < persistAttempts {
			s.logger.Warn().Err(err).Int("attempt", attempt).Msg("draw persistence failed, retrying")
			s.sleep(ctx, time.Duration(attempt)*persistBackoff)
		}
	}
	return err
}

// saveStateRetry persists the session record with backoff; used for state
// transitions where failure forces cancellation.
func (s *Session) saveStateRetry(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = s.store.SaveSession(ctx, s.record()); err == nil {
			return nil
		}
		if attempt < persistAttempts {
			s.sleep(ctx, time.Duration(attempt)*persistBackoff)
		}
	}
	return err
}

// saveState is the best-effort variant for join/leave/pause updates.
func (s *Session) saveState(ctx context.Context) {
	if err := s.store.SaveSession(ctx, s.record()); err != nil {
		s.logger.Warn().Err(err).Msg("session save failed")
	}
}

func (s *Session) sleep(ctx context.Context, d time.Duration) {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Session) record() store.SessionRecord {
	snap := s.Snapshot()
	humans, bots := snap.ParticipantIDs()
	return store.SessionRecord{
		ID:            snap.ID,
		RoomID:        snap.RoomID,
		Status:        string(snap.Status),
		Outcome:       snap.Outcome,
		Reason:        snap.Reason,
		Paused:        snap.Paused,
		CreatedAt:     snap.CreatedAt,
		StartedAt:     snap.StartedAt,
		EndedAt:       snap.EndedAt,
		CalledNumbers: snap.CalledNumbers,
		Participants:  humans,
		Bots:          bots,
		Stake:         snap.Stake,
		PrizePool:     snap.PrizePool,
		WinnerID:      snap.WinnerID,
		WinnerPattern: snap.WinnerPattern,
		WinningCard:   snap.WinningCard,
	}
}

// Card returns the named participant's card numbers in row-major order.
func (s *Session) Card(playerID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findParticipantLocked(playerID)
	if p == nil {
		return nil, ErrNotJoined
	}
	return p.Card.Numbers(), nil
}

// Snapshot returns an immutable view of the session.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calledSet := s.caller.CalledSet()
	participants := make([]ParticipantSnapshot, len(s.participants))
	chatTotal := 0
	for i, p := range s.participants {
		matched, total := p.Card.MatchCount(calledSet)
		participants[i] = ParticipantSnapshot{
			ID:       p.ID,
			Bot:      p.Bot != nil,
			JoinedAt: p.JoinedAt,
			Matched:  matched,
			Total:    total,
		}
		if p.Bot != nil {
			chatTotal += p.Bot.ChatCount()
		}
	}

	return SessionSnapshot{
		ID:            s.id,
		RoomID:        s.room.ID,
		RoomName:      s.room.Name,
		Status:        s.status,
		Outcome:       s.outcome,
		Reason:        s.reason,
		Paused:        s.paused,
		CreatedAt:     s.createdAt,
		StartedAt:     s.startedAt,
		EndedAt:       s.endedAt,
		CalledNumbers: s.caller.Called(),
		Participants:  participants,
		Stake:         s.stake,
		PrizePool:     s.prizePool,
		BasePool:      bingo.BasePool(s.stake, s.room.MaxPlayers, s.commission),
		CommissionBps: s.commission.Bps,
		WinnerID:      s.winnerID,
		WinnerPattern: s.winnerName,
		WinningCard:   append([]int(nil), s.winningCard...),
		ChatCount:     chatTotal,
	}
}

func (s *Session) publish() {
	s.monitor.OnSnapshot(s.Snapshot())
}
