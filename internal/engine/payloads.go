package engine

// RoundStart describes a freshly started round for broadcast. Exactly one of
// Card, MaxBet, or Ante is populated depending on the round kind.
type RoundStart struct {
	Round     int           `json:"round"`
	Type      string        `json:"type"`
	Card      *Card         `json:"card,omitempty"`
	MaxBet    int           `json:"maxBet,omitempty"`
	Ante      int           `json:"ante,omitempty"`
	TimeLimit int           `json:"timeLimit"`
	CoinBonus int           `json:"coinBonus"`
	Players   []PlayerState `json:"players"`
}

// Receipt acknowledges a recorded decision: how many are in versus how many
// are expected. Pool is only set for slot rounds.
type Receipt struct {
	Count int `json:"count"`
	Total int `json:"total"`
	Pool  int `json:"pool,omitempty"`
}

// BidEntry is one player's revealed bid.
type BidEntry struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar"`
	Amount     int    `json:"amount"`
}

// TiedPlayer identifies a participant of an auction tie-break.
type TiedPlayer struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar"`
}

// TieBreak reports a resolved auction tie for client-side dramatization. The
// winner is already decided server-side.
type TieBreak struct {
	TiedPlayers []TiedPlayer `json:"tiedPlayers"`
	WinnerID    string       `json:"winnerId"`
}

// Payment records coins a bidder paid at reveal.
type Payment struct {
	PlayerID string `json:"playerId"`
	Paid     int    `json:"paid"`
}

// RevealResult is the outcome of an auction reveal: every bid, the winner,
// an optional tie-break, and what each bidder paid.
type RevealResult struct {
	Bids     []BidEntry `json:"bids"`
	Winner   *BidEntry  `json:"winner"`
	TieBreak *TieBreak  `json:"tieBreak"`
	Penalty  []Payment  `json:"penalty"`
}

// ResolveResult carries the post-resolution player snapshot and the ordered
// effect log.
type ResolveResult struct {
	Players []PlayerState `json:"players"`
	Effects []Effect      `json:"effects"`
}

// CrashCashout confirms a single cashout at its locked-in multiplier.
type CrashCashout struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Multiplier float64 `json:"multiplier"`
	Winnings   int     `json:"winnings"`
}

// CrashOutcome is one bettor's final crash-round result.
type CrashOutcome struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Bet        int     `json:"bet"`
	CashedOut  bool    `json:"cashedOut"`
	Multiplier float64 `json:"multiplier"`
	Winnings   int     `json:"winnings"`
}

// CrashResult reports every bettor's outcome and reveals the crash point.
type CrashResult struct {
	Results    []CrashOutcome `json:"results"`
	CrashPoint float64        `json:"crashPoint"`
	Players    []PlayerState  `json:"players"`
}

// SlotOutcome is one player's slot-round result. Reels is nil for players
// who sat out.
type SlotOutcome struct {
	PlayerID   string   `json:"playerId"`
	PlayerName string   `json:"playerName"`
	Reels      []Symbol `json:"reels"`
	Score      int      `json:"score"`
	Joined     bool     `json:"joined"`
}

// SlotWinner identifies one player splitting the pool.
type SlotWinner struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// SlotResult reports every spin, the winners, and the pool split.
type SlotResult struct {
	Results []SlotOutcome `json:"results"`
	Winners []SlotWinner  `json:"winners"`
	Pool    int           `json:"pool"`
	Payout  int           `json:"payout"`
	Players []PlayerState `json:"players"`
}

// FinalScore is one row of the end-of-game ranking.
type FinalScore struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar"`
	Coins      int    `json:"coins"`
	CardsWon   int    `json:"cardsWon"`
}

// FinalScores ranks every remaining player by coins descending.
type FinalScores struct {
	Scores []FinalScore `json:"scores"`
	Winner *FinalScore  `json:"winner"`
}
