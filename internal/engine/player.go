package engine

// Player is one participant's economy for the duration of a game.
type Player struct {
	ID     string
	Name   string
	Avatar string
	Coins  int

	CardsWon   []Card
	Shield     bool
	Multiplier bool

	// LastWonCard is only consulted by mirror resolution; it is replaced
	// every time the player wins a card, mirrors included.
	LastWonCard *Card
}

// Seat describes a roster entry handed to NewGame by the room layer.
type Seat struct {
	ID     string
	Name   string
	Avatar string
}

// PlayerState is the broadcast-safe snapshot of a player.
type PlayerState struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar"`
	Coins      int    `json:"coins"`
	CardsWon   int    `json:"cardsWon"`
	Shield     bool   `json:"shield"`
	Multiplier bool   `json:"multiplier"`
}

func (p *Player) state() PlayerState {
	return PlayerState{
		ID:         p.ID,
		Name:       p.Name,
		Avatar:     p.Avatar,
		Coins:      p.Coins,
		CardsWon:   len(p.CardsWon),
		Shield:     p.Shield,
		Multiplier: p.Multiplier,
	}
}
