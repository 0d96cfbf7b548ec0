package engine

import rand "math/rand/v2"

// cardTemplates is the fixed catalog every deck is drawn from: four gold
// variants and five specials.
var cardTemplates = []Card{
	{Type: CardGold, Name: "Gold Chest", Description: "Adds coins to your score.", Value: 6},
	{Type: CardGold, Name: "Gold Pouch", Description: "Adds coins to your score.", Value: 4},
	{Type: CardGold, Name: "Gold Nugget", Description: "Adds coins to your score.", Value: 5},
	{Type: CardGold, Name: "Treasure Trove", Description: "A hefty pile of gold.", Value: 8},
	{Type: CardMultiplier, Name: "Double Down", Description: "Your next won card is worth double."},
	{Type: CardShield, Name: "Iron Shield", Description: "Blocks one steal attempt against you."},
	{Type: CardSteal, Name: "Pickpocket", Description: "Steal 3 coins from the richest opponent. Blocked by shield.", Value: 3},
	{Type: CardMirror, Name: "Mirror Image", Description: "Repeat the effect of the last card you won."},
	{Type: CardWildcard, Name: "Crowd Favorite", Description: "Worth coins equal to the number of players."},
}

// NewDeck builds the 8-card deck for one game: 3 shuffled golds, 4 shuffled
// specials, plus one uniformly random extra from the full catalog (which may
// duplicate). Card IDs are assigned by final position.
func NewDeck(rng *rand.Rand) []Card {
	var golds, specials []Card
	for _, c := range cardTemplates {
		if c.Type == CardGold {
			golds = append(golds, c)
		} else {
			specials = append(specials, c)
		}
	}

	rng.Shuffle(len(golds), func(i, j int) { golds[i], golds[j] = golds[j], golds[i] })
	rng.Shuffle(len(specials), func(i, j int) { specials[i], specials[j] = specials[j], specials[i] })

	deck := make([]Card, 0, DeckSize)
	deck = append(deck, golds[:3]...)
	deck = append(deck, specials[:4]...)
	deck = append(deck, cardTemplates[rng.IntN(len(cardTemplates))])

	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	for i := range deck {
		deck[i].ID = i
	}
	return deck
}
