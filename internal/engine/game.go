// Package engine implements the authoritative round state machine for a
// Gamba game: an 8-card sealed-bid auction across ten rounds, interrupted by
// two crash rounds and one slot machine round. All mutation happens through
// the Game type; transport and timing live in internal/server.
package engine

import (
	"fmt"
	"math"
	rand "math/rand/v2"
	"sort"

	"github.com/charmbracelet/log"
)

// State is the phase the game is currently accepting operations for.
type State int

const (
	StateRoundStart State = iota
	StateBidding
	StateReveal
	StateResolve
	StateCrashBetting
	StateCrashActive
	StateCrashResult
	StateSlotBetting
	StateSlotResult
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateRoundStart:
		return "ROUND_START"
	case StateBidding:
		return "BIDDING"
	case StateReveal:
		return "REVEAL"
	case StateResolve:
		return "RESOLVE"
	case StateCrashBetting:
		return "CRASH_BETTING"
	case StateCrashActive:
		return "CRASH_ACTIVE"
	case StateCrashResult:
		return "CRASH_RESULT"
	case StateSlotBetting:
		return "SLOT_BETTING"
	case StateSlotResult:
		return "SLOT_RESULT"
	case StateGameOver:
		return "GAME_OVER"
	default:
		return "UNKNOWN"
	}
}

// RoundKind is the mini-game a given round number plays.
type RoundKind int

const (
	RoundAuction RoundKind = iota
	RoundCrash
	RoundSlot
)

func (k RoundKind) String() string {
	switch k {
	case RoundCrash:
		return "crash"
	case RoundSlot:
		return "slot"
	default:
		return "auction"
	}
}

// Game constants. These are rules of the game, not tunables.
const (
	TotalRounds   = 10
	DeckSize      = 8
	StartingCoins = 10
	RoundBonus    = 1

	BidTimeLimit      = 30 // seconds
	CrashBetTimeLimit = 10 // seconds
	SlotBetTimeLimit  = 10 // seconds

	SlotAnte    = 4
	CrashMaxBet = 5

	// The crash multiplier grows as 1.03^tick; the hidden crash point is
	// drawn from [1.2, 3.0).
	CrashGrowthRate  = 1.03
	CrashPointMin    = 1.2
	CrashPointSpread = 1.8
)

// KindOfRound maps a round number to its mini-game: rounds 4 and 8 are crash
// rounds, round 6 is the slot round, everything else is an auction.
func KindOfRound(round int) RoundKind {
	switch round {
	case 4, 8:
		return RoundCrash
	case 6:
		return RoundSlot
	default:
		return RoundAuction
	}
}

// Game owns all mutable state for one room's play-through. It is not safe
// for concurrent use; callers serialize access (see server.RoundRunner).
type Game struct {
	players []*Player

	deck         []Card
	auctionIndex int
	currentCard  *Card

	round   int
	state   State
	effects []Effect

	bids map[string]int

	crashPoint    float64
	crashBets     map[string]int
	crashCashouts map[string]float64
	crashTicks    int

	slotBets map[string]bool
	slotPool int

	rng    *rand.Rand
	logger *log.Logger
}

// NewGame creates a game from the room roster. Every seat starts with the
// same coin balance and an empty hand.
func NewGame(seats []Seat, rng *rand.Rand, logger *log.Logger) *Game {
	players := make([]*Player, len(seats))
	for i, s := range seats {
		avatar := s.Avatar
		if avatar == "" {
			avatar = "🦊"
		}
		players[i] = &Player{
			ID:     s.ID,
			Name:   s.Name,
			Avatar: avatar,
			Coins:  StartingCoins,
		}
	}

	return &Game{
		players: players,
		deck:    NewDeck(rng),
		state:   StateRoundStart,
		rng:     rng,
		logger:  logger.WithPrefix("game"),
	}
}

// State returns the current phase.
func (g *Game) State() State { return g.state }

// Round returns the current round number (1-based; 0 before the first round).
func (g *Game) Round() int { return g.round }

// CurrentKind returns the mini-game of the current round.
func (g *Game) CurrentKind() RoundKind { return KindOfRound(g.round) }

// Players returns the active roster in join order.
func (g *Game) Players() []*Player { return g.players }

// PlayerStates snapshots every active player for broadcast.
func (g *Game) PlayerStates() []PlayerState {
	states := make([]PlayerState, len(g.players))
	for i, p := range g.players {
		states[i] = p.state()
	}
	return states
}

func (g *Game) findPlayer(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// StartRound advances to the next round: the round counter increments, every
// active player collects the unconditional round bonus, and the round-kind
// specific phase begins.
func (g *Game) StartRound() RoundStart {
	g.round++
	g.effects = nil

	for _, p := range g.players {
		p.Coins += RoundBonus
	}

	kind := KindOfRound(g.round)
	g.logger.Info("Round starting", "round", g.round, "kind", kind.String())

	switch kind {
	case RoundCrash:
		return g.startCrashRound()
	case RoundSlot:
		return g.startSlotRound()
	default:
		return g.startAuctionRound()
	}
}

func (g *Game) startAuctionRound() RoundStart {
	card := g.deck[g.auctionIndex]
	g.auctionIndex++
	g.currentCard = &card
	g.bids = make(map[string]int)
	g.state = StateBidding

	return RoundStart{
		Round:     g.round,
		Type:      RoundAuction.String(),
		Card:      g.currentCard,
		TimeLimit: BidTimeLimit,
		CoinBonus: RoundBonus,
		Players:   g.PlayerStates(),
	}
}

func (g *Game) startCrashRound() RoundStart {
	g.state = StateCrashBetting
	g.crashPoint = CrashPointMin + g.rng.Float64()*CrashPointSpread
	g.crashBets = make(map[string]int)
	g.crashCashouts = make(map[string]float64)
	g.crashTicks = 0

	return RoundStart{
		Round:     g.round,
		Type:      RoundCrash.String(),
		MaxBet:    CrashMaxBet,
		TimeLimit: CrashBetTimeLimit,
		CoinBonus: RoundBonus,
		Players:   g.PlayerStates(),
	}
}

func (g *Game) startSlotRound() RoundStart {
	g.state = StateSlotBetting
	g.slotBets = make(map[string]bool)
	g.slotPool = 0

	return RoundStart{
		Round:     g.round,
		Type:      RoundSlot.String(),
		Ante:      SlotAnte,
		TimeLimit: SlotBetTimeLimit,
		CoinBonus: RoundBonus,
		Players:   g.PlayerStates(),
	}
}

// --- Auction ---

// SubmitBid records a sealed bid, clamped to what the player can afford.
// The first submission per player wins; later ones are rejected.
func (g *Game) SubmitBid(playerID string, amount int) (Receipt, error) {
	if g.state != StateBidding {
		return Receipt{}, fmt.Errorf("%w: not in bidding phase", ErrInvalidPhase)
	}
	if _, ok := g.bids[playerID]; ok {
		return Receipt{}, fmt.Errorf("%w: already submitted a bid", ErrDuplicateSubmission)
	}
	player := g.findPlayer(playerID)
	if player == nil {
		return Receipt{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	clamped := max(0, min(amount, player.Coins))
	g.bids[playerID] = clamped
	g.logger.Debug("Bid recorded", "player", player.Name, "amount", clamped)

	return Receipt{Count: len(g.bids), Total: len(g.players)}, nil
}

// AllBidsIn reports whether every active player has bid this round.
func (g *Game) AllBidsIn() bool {
	return len(g.bids) >= len(g.players)
}

// Reveal closes bidding, determines the winner (random among the tied-max
// set), and collects every nonzero bid. Losing bidders pay too.
func (g *Game) Reveal() RevealResult {
	g.state = StateReveal

	bids := make([]BidEntry, len(g.players))
	for i, p := range g.players {
		bids[i] = BidEntry{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Avatar:     p.Avatar,
			Amount:     g.bids[p.ID],
		}
	}

	highest := -1
	for _, b := range bids {
		if b.Amount > highest {
			highest = b.Amount
		}
	}

	var tied []BidEntry
	for _, b := range bids {
		if b.Amount == highest {
			tied = append(tied, b)
		}
	}

	var winner *BidEntry
	var tieBreak *TieBreak
	switch {
	case len(tied) > 1:
		pick := tied[g.rng.IntN(len(tied))]
		winner = &pick
		tiedPlayers := make([]TiedPlayer, len(tied))
		for i, b := range tied {
			tiedPlayers[i] = TiedPlayer{PlayerID: b.PlayerID, PlayerName: b.PlayerName, Avatar: b.Avatar}
		}
		tieBreak = &TieBreak{TiedPlayers: tiedPlayers, WinnerID: pick.PlayerID}
		g.logger.Info("Bid tie", "tied", len(tied), "winner", pick.PlayerName, "amount", highest)
	case len(tied) == 1:
		winner = &tied[0]
	}

	var penalty []Payment
	for _, b := range bids {
		player := g.findPlayer(b.PlayerID)
		player.Coins -= b.Amount
		if b.Amount > 0 {
			penalty = append(penalty, Payment{PlayerID: b.PlayerID, Paid: b.Amount})
		}
	}

	return RevealResult{Bids: bids, Winner: winner, TieBreak: tieBreak, Penalty: penalty}
}

// Resolve applies the current card to the auction winner and records it as
// their last won card. A missing winner (everyone disconnected) is a no-op.
func (g *Game) Resolve(winnerID string) ResolveResult {
	g.state = StateResolve
	g.effects = nil

	winner := g.findPlayer(winnerID)
	if winner != nil && g.currentCard != nil {
		card := *g.currentCard
		g.applyCardEffect(winner, card)
		winner.CardsWon = append(winner.CardsWon, card)
		winner.LastWonCard = &card
	}

	result := ResolveResult{Players: g.PlayerStates(), Effects: g.effects}
	g.checkGameOver()
	return result
}

// --- Crash ---

// SubmitCrashBet records a crash bet, clamped to the per-round cap and the
// player's balance. The bet is at risk immediately: coins come off now.
func (g *Game) SubmitCrashBet(playerID string, amount int) (Receipt, error) {
	if g.state != StateCrashBetting {
		return Receipt{}, fmt.Errorf("%w: not in crash betting phase", ErrInvalidPhase)
	}
	if _, ok := g.crashBets[playerID]; ok {
		return Receipt{}, fmt.Errorf("%w: already placed a bet", ErrDuplicateSubmission)
	}
	player := g.findPlayer(playerID)
	if player == nil {
		return Receipt{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	clamped := max(0, min(amount, min(player.Coins, CrashMaxBet)))
	g.crashBets[playerID] = clamped
	player.Coins -= clamped
	g.logger.Debug("Crash bet recorded", "player", player.Name, "amount", clamped)

	return Receipt{Count: len(g.crashBets), Total: len(g.players)}, nil
}

// AllCrashBetsIn reports whether every active player has bet this round.
func (g *Game) AllCrashBetsIn() bool {
	return len(g.crashBets) >= len(g.players)
}

// StartCrashMultiplier moves the round into its live phase with the tick
// counter at zero.
func (g *Game) StartCrashMultiplier() {
	g.state = StateCrashActive
	g.crashTicks = 0
}

// Tick advances the crash multiplier by one step.
func (g *Game) Tick() {
	g.crashTicks++
}

// CurrentMultiplier recomputes the live multiplier from the tick counter.
func (g *Game) CurrentMultiplier() float64 {
	return math.Pow(CrashGrowthRate, float64(g.crashTicks))
}

// Crashed reports whether the live multiplier has reached the hidden crash
// point.
func (g *Game) Crashed() bool {
	return g.CurrentMultiplier() >= g.crashPoint
}

// Cashout locks in the current multiplier for a bettor. The bet was already
// deducted at submission, so the gross winnings are credited here.
func (g *Game) Cashout(playerID string) (CrashCashout, error) {
	if g.state != StateCrashActive {
		return CrashCashout{}, fmt.Errorf("%w: crash not active", ErrInvalidPhase)
	}
	if _, ok := g.crashCashouts[playerID]; ok {
		return CrashCashout{}, fmt.Errorf("%w: already cashed out", ErrDuplicateSubmission)
	}
	bet, ok := g.crashBets[playerID]
	if !ok || bet == 0 {
		return CrashCashout{}, ErrNoBet
	}

	player := g.findPlayer(playerID)
	if player == nil {
		return CrashCashout{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	multiplier := g.CurrentMultiplier()
	g.crashCashouts[playerID] = multiplier

	winnings := int(math.Floor(float64(bet) * multiplier))
	player.Coins += winnings
	g.logger.Info("Cashout", "player", player.Name, "multiplier", round2(multiplier), "winnings", winnings)

	return CrashCashout{
		PlayerID:   playerID,
		PlayerName: player.Name,
		Multiplier: round2(multiplier),
		Winnings:   winnings,
	}, nil
}

// AllCashedOut reports whether every bettor with a nonzero stake has cashed
// out, letting the scheduler stop the multiplier early.
func (g *Game) AllCashedOut() bool {
	for id, bet := range g.crashBets {
		if bet == 0 {
			continue
		}
		if _, ok := g.crashCashouts[id]; !ok {
			return false
		}
	}
	return true
}

// ResolveCrash finalizes the crash round: cashed-out bettors keep their
// locked winnings, everyone else busted and forfeits the pre-deducted bet.
func (g *Game) ResolveCrash() CrashResult {
	g.state = StateCrashResult

	results := make([]CrashOutcome, 0, len(g.crashBets))
	for _, p := range g.players {
		bet, ok := g.crashBets[p.ID]
		if !ok {
			continue
		}
		if multiplier, cashed := g.crashCashouts[p.ID]; cashed {
			results = append(results, CrashOutcome{
				PlayerID:   p.ID,
				PlayerName: p.Name,
				Bet:        bet,
				CashedOut:  true,
				Multiplier: round2(multiplier),
				Winnings:   int(math.Floor(float64(bet) * multiplier)),
			})
		} else {
			results = append(results, CrashOutcome{
				PlayerID:   p.ID,
				PlayerName: p.Name,
				Bet:        bet,
			})
		}
	}

	result := CrashResult{
		Results:    results,
		CrashPoint: round2(g.crashPoint),
		Players:    g.PlayerStates(),
	}
	g.checkGameOver()
	return result
}

// --- Slots ---

// SubmitSlotBet records a slot decision. Joining costs the fixed ante,
// paid into the pool; a player who declines or cannot afford it sits out,
// uncharged.
func (g *Game) SubmitSlotBet(playerID string, participate bool) (Receipt, error) {
	if g.state != StateSlotBetting {
		return Receipt{}, fmt.Errorf("%w: not in slot betting phase", ErrInvalidPhase)
	}
	if _, ok := g.slotBets[playerID]; ok {
		return Receipt{}, fmt.Errorf("%w: already submitted slot decision", ErrDuplicateSubmission)
	}
	player := g.findPlayer(playerID)
	if player == nil {
		return Receipt{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	if participate && player.Coins >= SlotAnte {
		player.Coins -= SlotAnte
		g.slotPool += SlotAnte
		g.slotBets[playerID] = true
	} else {
		g.slotBets[playerID] = false
	}

	return Receipt{Count: len(g.slotBets), Total: len(g.players), Pool: g.slotPool}, nil
}

// AllSlotBetsIn reports whether every active player has decided this round.
func (g *Game) AllSlotBetsIn() bool {
	return len(g.slotBets) >= len(g.players)
}

// ResolveSlots spins for every participant and splits the pool evenly among
// those tied for the best score. The floor-division remainder is withheld.
func (g *Game) ResolveSlots() SlotResult {
	g.state = StateSlotResult

	var participants []SlotOutcome
	var results []SlotOutcome
	for _, p := range g.players {
		joined, ok := g.slotBets[p.ID]
		if !ok {
			continue
		}
		if joined {
			reels := GenerateSpin(g.rng)
			outcome := SlotOutcome{
				PlayerID:   p.ID,
				PlayerName: p.Name,
				Reels:      reels,
				Score:      ScoreSpin(reels),
				Joined:     true,
			}
			participants = append(participants, outcome)
			results = append(results, outcome)
		} else {
			results = append(results, SlotOutcome{PlayerID: p.ID, PlayerName: p.Name})
		}
	}

	var winners []SlotWinner
	payout := 0
	if len(participants) > 0 {
		best := participants[0].Score
		for _, p := range participants[1:] {
			if p.Score > best {
				best = p.Score
			}
		}
		var bestOutcomes []SlotOutcome
		for _, p := range participants {
			if p.Score == best {
				bestOutcomes = append(bestOutcomes, p)
			}
		}
		payout = g.slotPool / len(bestOutcomes)
		for _, w := range bestOutcomes {
			g.findPlayer(w.PlayerID).Coins += payout
			winners = append(winners, SlotWinner{PlayerID: w.PlayerID, PlayerName: w.PlayerName})
		}
	}

	result := SlotResult{
		Results: results,
		Winners: winners,
		Pool:    g.slotPool,
		Payout:  payout,
		Players: g.PlayerStates(),
	}
	g.checkGameOver()
	return result
}

// --- Lifecycle ---

// FillMissingDecisions back-fills the default inaction for every active
// player without a decision in the live phase. The scheduler calls this when
// a deadline expires so resolution never waits on absent input.
func (g *Game) FillMissingDecisions() {
	switch g.state {
	case StateBidding:
		for _, p := range g.players {
			if _, ok := g.bids[p.ID]; !ok {
				g.bids[p.ID] = 0
			}
		}
	case StateCrashBetting:
		for _, p := range g.players {
			if _, ok := g.crashBets[p.ID]; !ok {
				g.crashBets[p.ID] = 0
			}
		}
	case StateSlotBetting:
		for _, p := range g.players {
			if _, ok := g.slotBets[p.ID]; !ok {
				g.slotBets[p.ID] = false
			}
		}
	}
}

// Disconnect back-fills the player's open decision with the default inaction
// and drops them from the active roster. Historical results keep their id.
func (g *Game) Disconnect(playerID string) {
	switch g.state {
	case StateBidding:
		if _, ok := g.bids[playerID]; !ok {
			g.bids[playerID] = 0
		}
	case StateCrashBetting:
		if _, ok := g.crashBets[playerID]; !ok {
			g.crashBets[playerID] = 0
		}
	case StateSlotBetting:
		if _, ok := g.slotBets[playerID]; !ok {
			g.slotBets[playerID] = false
		}
	}

	for i, p := range g.players {
		if p.ID == playerID {
			g.players = append(g.players[:i], g.players[i+1:]...)
			g.logger.Info("Player left game", "player", p.Name, "remaining", len(g.players))
			break
		}
	}
}

func (g *Game) checkGameOver() {
	if g.round >= TotalRounds {
		g.state = StateGameOver
		g.logger.Info("Game over", "rounds", g.round)
	}
}

// IsGameOver reports whether the final round has resolved.
func (g *Game) IsGameOver() bool {
	return g.state == StateGameOver
}

// FinalScores ranks the remaining players by coins descending. Ties keep
// their roster encounter order.
func (g *Game) FinalScores() FinalScores {
	scores := make([]FinalScore, len(g.players))
	for i, p := range g.players {
		scores[i] = FinalScore{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Avatar:     p.Avatar,
			Coins:      p.Coins,
			CardsWon:   len(p.CardsWon),
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Coins > scores[j].Coins
	})

	result := FinalScores{Scores: scores}
	if len(scores) > 0 {
		result.Winner = &scores[0]
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
