package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRoundGrantsBonusAndDealsCard(t *testing.T) {
	g := newTestGame(1, "alice", "bob")

	start := g.StartRound()

	assert.Equal(t, 1, start.Round)
	assert.Equal(t, "auction", start.Type)
	require.NotNil(t, start.Card)
	assert.Equal(t, BidTimeLimit, start.TimeLimit)
	assert.Equal(t, StateBidding, g.State())
	for _, p := range start.Players {
		assert.Equal(t, StartingCoins+RoundBonus, p.Coins)
	}
}

func TestRoundKindSchedule(t *testing.T) {
	kinds := map[int]RoundKind{
		1: RoundAuction, 2: RoundAuction, 3: RoundAuction,
		4: RoundCrash,
		5: RoundAuction,
		6: RoundSlot,
		7: RoundAuction,
		8: RoundCrash,
		9: RoundAuction, 10: RoundAuction,
	}
	for round, want := range kinds {
		assert.Equal(t, want, KindOfRound(round), "round %d", round)
	}
}

func TestSubmitBidClampsToBalance(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.StartRound()

	_, err := g.SubmitBid("alice", 999)
	require.NoError(t, err)
	assert.Equal(t, StartingCoins+RoundBonus, g.bids["alice"])

	_, err = g.SubmitBid("bob", -3)
	require.NoError(t, err)
	assert.Equal(t, 0, g.bids["bob"])
}

func TestSubmitBidRejections(t *testing.T) {
	g := newTestGame(1, "alice", "bob")

	_, err := g.SubmitBid("alice", 1)
	assert.ErrorIs(t, err, ErrInvalidPhase)

	g.StartRound()

	_, err = g.SubmitBid("mallory", 1)
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, err = g.SubmitBid("alice", 1)
	require.NoError(t, err)
	_, err = g.SubmitBid("alice", 2)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	// A rejected resubmission never overwrites the first bid.
	assert.Equal(t, 1, g.bids["alice"])
}

func TestSubmitBidReceiptCounts(t *testing.T) {
	g := newTestGame(1, "alice", "bob", "carol")
	g.StartRound()

	receipt, err := g.SubmitBid("alice", 1)
	require.NoError(t, err)
	assert.Equal(t, Receipt{Count: 1, Total: 3}, receipt)
	assert.False(t, g.AllBidsIn())

	_, _ = g.SubmitBid("bob", 1)
	receipt, _ = g.SubmitBid("carol", 1)
	assert.Equal(t, Receipt{Count: 3, Total: 3}, receipt)
	assert.True(t, g.AllBidsIn())
}

func TestRevealEveryBidderPays(t *testing.T) {
	g := newTestGame(1, "alice", "bob", "carol")
	g.StartRound()
	_, _ = g.SubmitBid("alice", 5)
	_, _ = g.SubmitBid("bob", 3)
	_, _ = g.SubmitBid("carol", 0)

	result := g.Reveal()

	assert.Equal(t, StateReveal, g.State())
	require.NotNil(t, result.Winner)
	assert.Equal(t, "alice", result.Winner.PlayerID)
	assert.Nil(t, result.TieBreak, "single highest bidder has no tie-break")

	// Winner and loser both pay, zero bids are free.
	assert.Equal(t, StartingCoins+RoundBonus-5, g.findPlayer("alice").Coins)
	assert.Equal(t, StartingCoins+RoundBonus-3, g.findPlayer("bob").Coins)
	assert.Equal(t, StartingCoins+RoundBonus, g.findPlayer("carol").Coins)

	require.Len(t, result.Penalty, 2)
	paid := 0
	for _, p := range result.Penalty {
		paid += p.Paid
	}
	assert.Equal(t, 8, paid)
}

func TestRevealTieBreakWinnerComesFromTiedSet(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		g := newTestGame(seed, "alice", "bob", "carol")
		g.StartRound()
		_, _ = g.SubmitBid("alice", 3)
		_, _ = g.SubmitBid("bob", 3)
		_, _ = g.SubmitBid("carol", 1)

		result := g.Reveal()

		require.NotNil(t, result.TieBreak, "seed %d", seed)
		require.Len(t, result.TieBreak.TiedPlayers, 2)
		tied := map[string]bool{}
		for _, p := range result.TieBreak.TiedPlayers {
			tied[p.PlayerID] = true
		}
		assert.True(t, tied[result.TieBreak.WinnerID], "seed %d: winner outside tied set", seed)
		assert.Equal(t, result.Winner.PlayerID, result.TieBreak.WinnerID)
		assert.False(t, tied["carol"], "carol did not tie the maximum")

		// All three paid their bids regardless of the tie outcome.
		assert.Equal(t, StartingCoins+RoundBonus-3, g.findPlayer("alice").Coins)
		assert.Equal(t, StartingCoins+RoundBonus-3, g.findPlayer("bob").Coins)
		assert.Equal(t, StartingCoins+RoundBonus-1, g.findPlayer("carol").Coins)
	}
}

func TestRevealMissingBidsCountAsZero(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.StartRound()
	_, _ = g.SubmitBid("alice", 2)

	result := g.Reveal()

	require.Len(t, result.Bids, 2)
	require.NotNil(t, result.Winner)
	assert.Equal(t, "alice", result.Winner.PlayerID)
	assert.Equal(t, StartingCoins+RoundBonus, g.findPlayer("bob").Coins)
}

func TestResolveAppliesCardToWinner(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.StartRound()
	g.currentCard = &Card{ID: 0, Type: CardGold, Name: "Treasure Trove", Value: 8}
	_, _ = g.SubmitBid("alice", 5)
	_, _ = g.SubmitBid("bob", 0)
	g.Reveal()

	result := g.Resolve("alice")

	alice := g.findPlayer("alice")
	assert.Equal(t, StartingCoins+RoundBonus-5+8, alice.Coins)
	require.Len(t, alice.CardsWon, 1)
	require.NotNil(t, alice.LastWonCard)
	assert.Equal(t, "Treasure Trove", alice.LastWonCard.Name)
	require.NotEmpty(t, result.Effects)
	assert.Equal(t, "gold", result.Effects[0].Type)
	assert.False(t, g.IsGameOver())
}

func TestResolveWithAbsentWinnerIsNoOp(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.StartRound()
	g.Reveal()

	result := g.Resolve("")

	assert.Empty(t, result.Effects)
	assert.Equal(t, StateResolve, g.State())
}

func TestCrashBetClampedAndPreDeducted(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.round = 3
	g.StartRound() // round 4: crash

	assert.Equal(t, StateCrashBetting, g.State())

	_, err := g.SubmitCrashBet("alice", 10)
	require.NoError(t, err)
	assert.Equal(t, CrashMaxBet, g.crashBets["alice"])
	assert.Equal(t, StartingCoins+RoundBonus-CrashMaxBet, g.findPlayer("alice").Coins,
		"bet is at risk the moment it is placed")

	poor := g.findPlayer("bob")
	poor.Coins = 2
	_, err = g.SubmitCrashBet("bob", 4)
	require.NoError(t, err)
	assert.Equal(t, 2, g.crashBets["bob"])
	assert.Equal(t, 0, poor.Coins)
}

func TestCrashBetRejections(t *testing.T) {
	g := newTestGame(1, "alice", "bob")

	_, err := g.SubmitCrashBet("alice", 1)
	assert.ErrorIs(t, err, ErrInvalidPhase)

	g.round = 3
	g.StartRound()

	_, err = g.SubmitCrashBet("mallory", 1)
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, _ = g.SubmitCrashBet("alice", 1)
	_, err = g.SubmitCrashBet("alice", 2)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestCashoutCreditsGrossWinnings(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.round = 3
	g.StartRound()
	_, _ = g.SubmitCrashBet("alice", 5)
	_, _ = g.SubmitCrashBet("bob", 0)
	g.StartCrashMultiplier()

	for i := 0; i < 14; i++ {
		g.Tick()
	}

	cashout, err := g.Cashout("alice")
	require.NoError(t, err)

	want := int(math.Floor(5 * math.Pow(CrashGrowthRate, 14)))
	assert.Equal(t, 7, want)
	assert.Equal(t, want, cashout.Winnings)
	assert.InDelta(t, 1.51, cashout.Multiplier, 0.001)

	// 11 coins after the bonus, minus the 5-coin bet, plus gross winnings.
	assert.Equal(t, StartingCoins+RoundBonus-5+want, g.findPlayer("alice").Coins)
}

func TestCashoutAtTickZeroReturnsBet(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.round = 3
	g.StartRound()
	_, _ = g.SubmitCrashBet("alice", 3)
	g.StartCrashMultiplier()

	cashout, err := g.Cashout("alice")
	require.NoError(t, err)
	assert.Equal(t, 3, cashout.Winnings)
	assert.Equal(t, 1.0, cashout.Multiplier)
}

func TestCashoutRejections(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.round = 3
	g.StartRound()
	_, _ = g.SubmitCrashBet("alice", 5)
	_, _ = g.SubmitCrashBet("bob", 0)

	_, err := g.Cashout("alice")
	assert.ErrorIs(t, err, ErrInvalidPhase, "cannot cash out before the multiplier starts")

	g.StartCrashMultiplier()
	g.Tick()

	_, err = g.Cashout("bob")
	assert.ErrorIs(t, err, ErrNoBet, "zero bet cannot cash out")

	_, err = g.Cashout("alice")
	require.NoError(t, err)
	_, err = g.Cashout("alice")
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestResolveCrashReportsBustedAndCashedOut(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.round = 3
	g.StartRound()
	_, _ = g.SubmitCrashBet("alice", 5)
	_, _ = g.SubmitCrashBet("bob", 3)
	g.StartCrashMultiplier()
	for i := 0; i < 5; i++ {
		g.Tick()
	}
	cashout, err := g.Cashout("alice")
	require.NoError(t, err)

	result := g.ResolveCrash()

	assert.Equal(t, StateCrashResult, g.State())
	require.Len(t, result.Results, 2)

	byID := map[string]CrashOutcome{}
	for _, r := range result.Results {
		byID[r.PlayerID] = r
	}
	assert.True(t, byID["alice"].CashedOut)
	assert.Equal(t, cashout.Winnings, byID["alice"].Winnings)
	assert.False(t, byID["bob"].CashedOut)
	assert.Equal(t, 0, byID["bob"].Winnings)
	assert.Equal(t, 3, byID["bob"].Bet)

	// Bob's bet stays lost: no refund on a bust.
	assert.Equal(t, StartingCoins+RoundBonus-3, g.findPlayer("bob").Coins)
	assert.GreaterOrEqual(t, result.CrashPoint, CrashPointMin)
	assert.Less(t, result.CrashPoint, CrashPointMin+CrashPointSpread)
}

func TestAllCashedOutIgnoresZeroBets(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.round = 3
	g.StartRound()
	_, _ = g.SubmitCrashBet("alice", 2)
	_, _ = g.SubmitCrashBet("bob", 0)
	g.StartCrashMultiplier()

	assert.False(t, g.AllCashedOut())
	_, err := g.Cashout("alice")
	require.NoError(t, err)
	assert.True(t, g.AllCashedOut(), "zero-bet players never need to cash out")
}

func TestSlotBetChargesAnteIntoPool(t *testing.T) {
	g := newTestGame(1, "alice", "bob", "carol")
	g.round = 5
	start := g.StartRound() // round 6: slot

	assert.Equal(t, "slot", start.Type)
	assert.Equal(t, SlotAnte, start.Ante)

	receipt, err := g.SubmitSlotBet("alice", true)
	require.NoError(t, err)
	assert.Equal(t, Receipt{Count: 1, Total: 3, Pool: SlotAnte}, receipt)
	assert.Equal(t, StartingCoins+RoundBonus-SlotAnte, g.findPlayer("alice").Coins)

	// Declining is free.
	receipt, err = g.SubmitSlotBet("bob", false)
	require.NoError(t, err)
	assert.Equal(t, SlotAnte, receipt.Pool)
	assert.Equal(t, StartingCoins+RoundBonus, g.findPlayer("bob").Coins)

	// As is wanting to join without the coins for it.
	carol := g.findPlayer("carol")
	carol.Coins = SlotAnte - 1
	receipt, err = g.SubmitSlotBet("carol", true)
	require.NoError(t, err)
	assert.False(t, g.slotBets["carol"])
	assert.Equal(t, SlotAnte-1, carol.Coins)
	assert.Equal(t, SlotAnte, receipt.Pool)
	assert.True(t, g.AllSlotBetsIn())
}

func TestSlotBetRejections(t *testing.T) {
	g := newTestGame(1, "alice", "bob")

	_, err := g.SubmitSlotBet("alice", true)
	assert.ErrorIs(t, err, ErrInvalidPhase)

	g.round = 5
	g.StartRound()

	_, err = g.SubmitSlotBet("mallory", true)
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, _ = g.SubmitSlotBet("alice", true)
	_, err = g.SubmitSlotBet("alice", false)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestResolveSlotsSplitsPoolAmongBest(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		g := newTestGame(seed, "alice", "bob", "carol", "dave")
		g.round = 5
		g.StartRound()
		for _, id := range []string{"alice", "bob", "carol"} {
			_, err := g.SubmitSlotBet(id, true)
			require.NoError(t, err)
		}
		_, _ = g.SubmitSlotBet("dave", false)

		coinsBefore := map[string]int{}
		for _, p := range g.players {
			coinsBefore[p.ID] = p.Coins
		}

		result := g.ResolveSlots()

		assert.Equal(t, 3*SlotAnte, result.Pool, "seed %d", seed)
		require.NotEmpty(t, result.Winners, "seed %d", seed)
		assert.LessOrEqual(t, result.Payout*len(result.Winners), result.Pool,
			"seed %d: floor remainder is withheld, never minted", seed)
		assert.Equal(t, result.Pool/len(result.Winners), result.Payout, "seed %d", seed)

		// Winners all share the round's best score and receive exactly one
		// payout each; everyone else's balance is untouched by resolution.
		best := 0
		for _, r := range result.Results {
			if r.Score > best {
				best = r.Score
			}
		}
		winnerSet := map[string]bool{}
		for _, w := range result.Winners {
			winnerSet[w.PlayerID] = true
		}
		for _, r := range result.Results {
			if r.Joined && r.Score == best {
				assert.True(t, winnerSet[r.PlayerID], "seed %d", seed)
			} else {
				assert.False(t, winnerSet[r.PlayerID], "seed %d", seed)
			}
		}
		for _, p := range g.players {
			want := coinsBefore[p.ID]
			if winnerSet[p.ID] {
				want += result.Payout
			}
			assert.Equal(t, want, p.Coins, "seed %d player %s", seed, p.ID)
		}
	}
}

func TestResolveSlotsNonParticipantsHaveNoReels(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.round = 5
	g.StartRound()
	_, _ = g.SubmitSlotBet("alice", true)
	_, _ = g.SubmitSlotBet("bob", false)

	result := g.ResolveSlots()

	byID := map[string]SlotOutcome{}
	for _, r := range result.Results {
		byID[r.PlayerID] = r
	}
	assert.Len(t, byID["alice"].Reels, 3)
	assert.Nil(t, byID["bob"].Reels)
	assert.False(t, byID["bob"].Joined)
}

func TestResolveSlotsWithNoParticipants(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.round = 5
	g.StartRound()
	_, _ = g.SubmitSlotBet("alice", false)
	_, _ = g.SubmitSlotBet("bob", false)

	result := g.ResolveSlots()

	assert.Empty(t, result.Winners)
	assert.Zero(t, result.Payout)
	assert.Zero(t, result.Pool)
}

func TestDisconnectBackfillsOpenDecision(t *testing.T) {
	g := newTestGame(1, "alice", "bob", "carol")
	g.StartRound()
	_, _ = g.SubmitBid("alice", 2)

	g.Disconnect("bob")

	assert.Len(t, g.players, 2)
	assert.Equal(t, 0, g.bids["bob"], "departing player bids nothing")
	assert.False(t, g.AllBidsIn(), "carol still owes a bid")

	_, err := g.SubmitBid("carol", 1)
	require.NoError(t, err)
	assert.True(t, g.AllBidsIn())

	// The backfilled bid survives into the reveal.
	result := g.Reveal()
	assert.Len(t, result.Bids, 2, "reveal covers the remaining roster")
}

func TestDisconnectDuringCrashAndSlotPhases(t *testing.T) {
	g := newTestGame(1, "alice", "bob")
	g.round = 3
	g.StartRound()
	g.Disconnect("bob")
	assert.Equal(t, 0, g.crashBets["bob"])
	assert.Len(t, g.players, 1)

	g = newTestGame(1, "alice", "bob")
	g.round = 5
	g.StartRound()
	g.Disconnect("bob")
	participate, ok := g.slotBets["bob"]
	assert.True(t, ok)
	assert.False(t, participate)
}

func TestFillMissingDecisions(t *testing.T) {
	g := newTestGame(1, "alice", "bob", "carol")
	g.StartRound()
	_, _ = g.SubmitBid("alice", 2)

	g.FillMissingDecisions()

	assert.True(t, g.AllBidsIn())
	assert.Equal(t, 2, g.bids["alice"], "submitted bids are not overwritten")
	assert.Equal(t, 0, g.bids["bob"])
	assert.Equal(t, 0, g.bids["carol"])
}

func TestFullGameRunsToCompletion(t *testing.T) {
	g := newTestGame(3, "alice", "bob", "carol")

	for round := 1; round <= TotalRounds; round++ {
		require.False(t, g.IsGameOver())
		start := g.StartRound()
		require.Equal(t, round, start.Round)

		switch KindOfRound(round) {
		case RoundAuction:
			require.Equal(t, "auction", start.Type)
			for _, p := range g.Players() {
				_, err := g.SubmitBid(p.ID, 1)
				require.NoError(t, err)
			}
			require.True(t, g.AllBidsIn())
			reveal := g.Reveal()
			require.NotNil(t, reveal.Winner)
			g.Resolve(reveal.Winner.PlayerID)

		case RoundCrash:
			require.Equal(t, "crash", start.Type)
			for _, p := range g.Players() {
				_, err := g.SubmitCrashBet(p.ID, 2)
				require.NoError(t, err)
			}
			require.True(t, g.AllCrashBetsIn())
			g.StartCrashMultiplier()
			for ticks := 0; !g.Crashed(); ticks++ {
				require.Less(t, ticks, 100, "crash point must be reachable")
				g.Tick()
			}
			g.ResolveCrash()

		case RoundSlot:
			require.Equal(t, "slot", start.Type)
			for _, p := range g.Players() {
				_, err := g.SubmitSlotBet(p.ID, true)
				require.NoError(t, err)
			}
			g.ResolveSlots()
		}

		// Economy invariant: nobody ends a resolution in debt.
		for _, p := range g.Players() {
			require.GreaterOrEqual(t, p.Coins, 0, "round %d", round)
		}
	}

	assert.True(t, g.IsGameOver())

	final := g.FinalScores()
	require.Len(t, final.Scores, 3)
	require.NotNil(t, final.Winner)
	assert.Equal(t, final.Scores[0], *final.Winner)
	for i := 1; i < len(final.Scores); i++ {
		assert.GreaterOrEqual(t, final.Scores[i-1].Coins, final.Scores[i].Coins)
	}
}

func TestFinalScoresTiesKeepRosterOrder(t *testing.T) {
	g := newTestGame(1, "alice", "bob", "carol")
	g.findPlayer("alice").Coins = 12
	g.findPlayer("bob").Coins = 15
	g.findPlayer("carol").Coins = 12

	final := g.FinalScores()

	require.Len(t, final.Scores, 3)
	assert.Equal(t, "bob", final.Scores[0].PlayerID)
	assert.Equal(t, "alice", final.Scores[1].PlayerID, "alice joined before carol")
	assert.Equal(t, "carol", final.Scores[2].PlayerID)
	assert.Equal(t, "bob", final.Winner.PlayerID)
}
