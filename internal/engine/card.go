package engine

import "fmt"

// CardType identifies what an auction card does when won.
type CardType string

const (
	CardGold       CardType = "gold"
	CardMultiplier CardType = "multiplier"
	CardShield     CardType = "shield"
	CardSteal      CardType = "steal"
	CardMirror     CardType = "mirror"
	CardWildcard   CardType = "wildcard"
)

// Card is a single auction item. Value is only meaningful for gold and steal
// cards; it is zero for everything else.
type Card struct {
	ID          int      `json:"id"`
	Type        CardType `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Value       int      `json:"value"`
}

func (c Card) String() string {
	if c.Value > 0 {
		return fmt.Sprintf("%s (%s %d)", c.Name, c.Type, c.Value)
	}
	return fmt.Sprintf("%s (%s)", c.Name, c.Type)
}

// Effect is one entry in the per-resolution effect log. Clients consume these
// in order to drive result animations.
type Effect struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Message  string `json:"message"`
}

// applyCardEffect applies a won card to the winner's economy and appends log
// entries for every observable change. Mirror cards recurse into the winner's
// previously won card; the recursion is bounded because mirror-of-mirror is a
// no-op.
func (g *Game) applyCardEffect(winner *Player, card Card) {
	effectiveValue := card.Value

	// A held multiplier only fires on gold and is consumed when it does.
	if winner.Multiplier && card.Type == CardGold {
		effectiveValue *= 2
		g.logEffect("multiplier", winner.ID, "%s's multiplier doubled the gold!", winner.Name)
		winner.Multiplier = false
	}

	switch card.Type {
	case CardGold:
		winner.Coins += effectiveValue
		g.logEffect("gold", winner.ID, "%s gained %d coins.", winner.Name, effectiveValue)

	case CardMultiplier:
		winner.Multiplier = true
		g.logEffect("multiplier", winner.ID, "%s's next gold card is doubled!", winner.Name)

	case CardShield:
		winner.Shield = true
		g.logEffect("shield", winner.ID, "%s gained a shield!", winner.Name)

	case CardSteal:
		g.applySteal(winner, card)

	case CardMirror:
		if winner.LastWonCard != nil && winner.LastWonCard.Type != CardMirror {
			g.logEffect("mirror", winner.ID, "%s's mirror repeats %s!", winner.Name, winner.LastWonCard.Name)
			g.applyCardEffect(winner, *winner.LastWonCard)
		} else {
			g.logEffect("mirror", winner.ID, "%s's mirror has nothing to reflect.", winner.Name)
		}

	case CardWildcard:
		bonus := len(g.players)
		winner.Coins += bonus
		g.logEffect("wildcard", winner.ID, "%s gained %d coins (1 per player)!", winner.Name, bonus)
	}
}

// applySteal takes from the richest opponent. Ties keep the first player in
// roster order, a deliberately stable tie-break unlike the auction's random
// one. A shield absorbs the steal and is consumed.
func (g *Game) applySteal(winner *Player, card Card) {
	var richest *Player
	for _, p := range g.players {
		if p.ID == winner.ID {
			continue
		}
		if richest == nil || p.Coins > richest.Coins {
			richest = p
		}
	}
	if richest == nil {
		return
	}

	if richest.Shield {
		richest.Shield = false
		g.logEffect("shield-block", richest.ID, "%s's shield blocked the steal!", richest.Name)
		return
	}

	stolen := min(card.Value, richest.Coins)
	richest.Coins -= stolen
	winner.Coins += stolen
	g.logEffect("steal", winner.ID, "%s stole %d coins from %s!", winner.Name, stolen, richest.Name)
}

func (g *Game) logEffect(effectType, playerID, format string, args ...any) {
	g.effects = append(g.effects, Effect{
		Type:     effectType,
		PlayerID: playerID,
		Message:  fmt.Sprintf(format, args...),
	})
}
