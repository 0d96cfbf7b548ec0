package engine

import rand "math/rand/v2"

// Symbol is one slot machine reel symbol.
type Symbol string

const (
	SymbolCoin    Symbol = "coin"
	SymbolDiamond Symbol = "diamond"
	SymbolCherry  Symbol = "cherry"
	SymbolStar    Symbol = "star"
	SymbolSkull   Symbol = "skull"
)

var (
	slotSymbols = []Symbol{SymbolCoin, SymbolDiamond, SymbolCherry, SymbolStar, SymbolSkull}

	// Relative draw weights: coin most common, diamond rarest.
	slotWeights     = []int{30, 5, 20, 15, 10}
	slotWeightTotal = 80

	symbolRank = map[Symbol]int{
		SymbolDiamond: 4,
		SymbolStar:    3,
		SymbolCherry:  2,
		SymbolCoin:    1,
		SymbolSkull:   0,
	}
)

func pickSymbol(rng *rand.Rand) Symbol {
	roll := rng.Float64() * float64(slotWeightTotal)
	for i, s := range slotSymbols {
		roll -= float64(slotWeights[i])
		if roll <= 0 {
			return s
		}
	}
	return slotSymbols[0]
}

// GenerateSpin draws three reel symbols independently from the weighted
// distribution.
func GenerateSpin(rng *rand.Rand) []Symbol {
	return []Symbol{pickSymbol(rng), pickSymbol(rng), pickSymbol(rng)}
}

// ScoreSpin ranks a spin for payout. Any non-skull triple beats any pair,
// any pair beats a mixed result, and a skull triple is the worst outcome of
// all. Higher is better.
func ScoreSpin(reels []Symbol) int {
	a, b, c := reels[0], reels[1], reels[2]

	if a == b && b == c {
		if a == SymbolSkull {
			return 0
		}
		return 100 + symbolRank[a]
	}

	counts := make(map[Symbol]int, 3)
	for _, s := range reels {
		counts[s]++
	}
	for _, s := range reels {
		if counts[s] == 2 && s != SymbolSkull {
			return 10 + symbolRank[s]
		}
	}

	// All different, or a skull pair.
	return 1
}
