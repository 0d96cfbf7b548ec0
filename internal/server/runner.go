package server

import (
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/gamba/internal/engine"
)

// Round pacing. Betting windows come from the engine's rules; the rest is
// presentation pacing carried by the scheduler.
const (
	// Clients show a round announcement before inputs open.
	announceBuffer = 2 * time.Second

	// Pause between reveal and resolution, stretched when a tie-break
	// animation plays out.
	revealDelay         = 3 * time.Second
	tieBreakRevealDelay = 10 * time.Second

	// Pause after each round's resolution before the next round starts.
	auctionResultPause = 3 * time.Second
	crashResultPause   = 7 * time.Second
	slotResultPause    = 8 * time.Second

	crashTickInterval = 100 * time.Millisecond
)

// Broadcaster delivers a message to everyone in a room.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msg *Message)
}

// RoundRunner drives one room's game through its rounds: it starts rounds,
// runs the phase deadline timers, short-circuits on quorum, and broadcasts
// every result. All engine access is serialized behind its mutex; the engine
// itself stays single-threaded.
type RoundRunner struct {
	mu     sync.Mutex
	game   *engine.Game
	code   string
	bc     Broadcaster
	clock  quartz.Clock
	logger *log.Logger

	deadline *quartz.Timer // live betting-phase deadline
	pending  *quartz.Timer // reveal/next-round pacing
	tick     *quartz.Timer // crash multiplier ticks

	stopped    bool
	onGameOver func()
}

// NewRoundRunner creates a runner for a freshly started game. onGameOver is
// invoked once, after the final scores broadcast.
func NewRoundRunner(code string, game *engine.Game, bc Broadcaster, clock quartz.Clock, logger *log.Logger, onGameOver func()) *RoundRunner {
	return &RoundRunner{
		game:       game,
		code:       code,
		bc:         bc,
		clock:      clock,
		logger:     logger.WithPrefix("runner").With("room", code),
		onGameOver: onGameOver,
	}
}

// Start kicks off the first round.
func (r *RoundRunner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startRoundLocked()
}

// Stop cancels all pending timers. The runner must not be reused.
func (r *RoundRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	r.stopTimersLocked()
}

func (r *RoundRunner) stopTimersLocked() {
	for _, t := range []*quartz.Timer{r.deadline, r.pending, r.tick} {
		if t != nil {
			t.Stop()
		}
	}
	r.deadline, r.pending, r.tick = nil, nil, nil
}

// after schedules fn on the runner's clock, holding the mutex and skipping
// the call once the runner is stopped.
func (r *RoundRunner) after(d time.Duration, fn func()) *quartz.Timer {
	return r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.stopped {
			return
		}
		fn()
	})
}

func (r *RoundRunner) broadcast(messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		r.logger.Error("Failed to encode broadcast", "type", messageType, "error", err)
		return
	}
	r.bc.BroadcastToRoom(r.code, msg)
}

func (r *RoundRunner) startRoundLocked() {
	start := r.game.StartRound()

	var window time.Duration
	switch r.game.CurrentKind() {
	case engine.RoundCrash:
		r.broadcast(TypeCrashRoundStart, start)
		window = engine.CrashBetTimeLimit * time.Second
	case engine.RoundSlot:
		r.broadcast(TypeSlotRoundStart, start)
		window = engine.SlotBetTimeLimit * time.Second
	default:
		r.broadcast(TypeRoundStart, start)
		window = engine.BidTimeLimit * time.Second
	}

	r.deadline = r.after(window+announceBuffer, r.onDeadlineLocked)
}

// onDeadlineLocked fires when a betting window expires: absentees are
// back-filled with the default inaction and the phase resolves.
func (r *RoundRunner) onDeadlineLocked() {
	r.game.FillMissingDecisions()

	switch r.game.State() {
	case engine.StateBidding:
		r.finishBiddingLocked()
	case engine.StateCrashBetting:
		r.beginCrashLocked()
	case engine.StateSlotBetting:
		r.resolveSlotsLocked()
	}
}

// --- Auction ---

// SubmitBid records a bid and completes the phase early once everyone is in.
func (r *RoundRunner) SubmitBid(playerID string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	receipt, err := r.game.SubmitBid(playerID, amount)
	if err != nil {
		return err
	}

	r.broadcast(TypeBidReceived, receipt)
	if r.game.AllBidsIn() {
		r.finishBiddingLocked()
	}
	return nil
}

func (r *RoundRunner) finishBiddingLocked() {
	// Idempotent: the quorum path and the deadline path can race here.
	if r.game.State() != engine.StateBidding {
		return
	}
	if r.deadline != nil {
		r.deadline.Stop()
		r.deadline = nil
	}

	reveal := r.game.Reveal()
	r.broadcast(TypeRoundReveal, reveal)

	delay := revealDelay
	if reveal.TieBreak != nil {
		delay = tieBreakRevealDelay
	}

	winnerID := ""
	if reveal.Winner != nil {
		winnerID = reveal.Winner.PlayerID
	}
	r.pending = r.after(delay, func() { r.resolveAuctionLocked(winnerID) })
}

func (r *RoundRunner) resolveAuctionLocked(winnerID string) {
	result := r.game.Resolve(winnerID)
	r.broadcast(TypeRoundResolve, result)
	r.finishRoundLocked(auctionResultPause)
}

// --- Crash ---

// SubmitCrashBet records a crash bet, starting the multiplier early once
// every player has bet.
func (r *RoundRunner) SubmitCrashBet(playerID string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	receipt, err := r.game.SubmitCrashBet(playerID, amount)
	if err != nil {
		return err
	}

	r.broadcast(TypeCrashBetReceived, BetReceivedData{Receipt: receipt, Players: r.game.PlayerStates()})
	if r.game.AllCrashBetsIn() {
		r.beginCrashLocked()
	}
	return nil
}

func (r *RoundRunner) beginCrashLocked() {
	if r.game.State() != engine.StateCrashBetting {
		return
	}
	if r.deadline != nil {
		r.deadline.Stop()
		r.deadline = nil
	}

	r.game.StartCrashMultiplier()
	r.broadcast(TypeCrashMultiplierStart, struct{}{})
	r.tick = r.after(crashTickInterval, r.crashTickLocked)
}

func (r *RoundRunner) crashTickLocked() {
	if r.game.State() != engine.StateCrashActive {
		return
	}

	r.game.Tick()
	if r.game.Crashed() {
		r.resolveCrashLocked()
		return
	}

	r.broadcast(TypeCrashTick, CrashTickData{Multiplier: round2(r.game.CurrentMultiplier())})
	r.tick = r.after(crashTickInterval, r.crashTickLocked)
}

// Cashout locks in the caller's multiplier. The round ends early when every
// live bet has been cashed out.
func (r *RoundRunner) Cashout(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cashout, err := r.game.Cashout(playerID)
	if err != nil {
		return err
	}

	r.broadcast(TypeCrashCashoutConfirm, cashout)
	if r.game.AllCashedOut() {
		r.resolveCrashLocked()
	}
	return nil
}

func (r *RoundRunner) resolveCrashLocked() {
	if r.game.State() != engine.StateCrashActive {
		return
	}
	if r.tick != nil {
		r.tick.Stop()
		r.tick = nil
	}

	result := r.game.ResolveCrash()
	r.broadcast(TypeCrashResult, result)
	r.finishRoundLocked(crashResultPause)
}

// --- Slots ---

// SubmitSlotBet records a slot decision, spinning early once everyone has
// decided.
func (r *RoundRunner) SubmitSlotBet(playerID string, participate bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	receipt, err := r.game.SubmitSlotBet(playerID, participate)
	if err != nil {
		return err
	}

	r.broadcast(TypeSlotBetReceived, BetReceivedData{Receipt: receipt, Players: r.game.PlayerStates()})
	if r.game.AllSlotBetsIn() {
		r.resolveSlotsLocked()
	}
	return nil
}

func (r *RoundRunner) resolveSlotsLocked() {
	if r.game.State() != engine.StateSlotBetting {
		return
	}
	if r.deadline != nil {
		r.deadline.Stop()
		r.deadline = nil
	}

	result := r.game.ResolveSlots()
	r.broadcast(TypeSlotSpinResult, result)
	r.finishRoundLocked(slotResultPause)
}

// --- Round sequencing ---

func (r *RoundRunner) finishRoundLocked(pause time.Duration) {
	if r.game.IsGameOver() {
		r.broadcast(TypeGameOver, r.game.FinalScores())
		r.stopTimersLocked()
		if r.onGameOver != nil {
			r.onGameOver()
		}
		return
	}
	r.pending = r.after(pause, r.startRoundLocked)
}

// HandleDisconnect back-fills the departing player's decision, drops them
// from the game, and completes any phase their absence now satisfies.
func (r *RoundRunner) HandleDisconnect(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	r.game.Disconnect(playerID)

	switch r.game.State() {
	case engine.StateBidding:
		if r.game.AllBidsIn() {
			r.finishBiddingLocked()
		}
	case engine.StateCrashBetting:
		if r.game.AllCrashBetsIn() {
			r.beginCrashLocked()
		}
	case engine.StateCrashActive:
		if r.game.AllCashedOut() {
			r.resolveCrashLocked()
		}
	case engine.StateSlotBetting:
		if r.game.AllSlotBetsIn() {
			r.resolveSlotsLocked()
		}
	}
}

// PlayerStates snapshots the running game's roster.
func (r *RoundRunner) PlayerStates() []engine.PlayerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.PlayerStates()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
