package tui

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/gamba/internal/client"
	"github.com/lox/gamba/internal/engine"
	"github.com/lox/gamba/internal/server"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	return New(client.New("ws://localhost:3001/ws", logger), logger)
}

func deliver(t *testing.T, m *Model, messageType server.MessageType, data any) {
	t.Helper()
	msg, err := server.NewMessage(messageType, data)
	require.NoError(t, err)
	m.handleServerMessage(msg)
}

func logText(m *Model) string {
	return strings.Join(m.gameLog, "\n")
}

func TestRoomCreatedAdoptsSession(t *testing.T) {
	m := newTestModel(t)

	deliver(t, m, server.TypeRoomCreated, server.RoomCreatedData{
		RoomCode: "WXYZ",
		PlayerID: "p1",
		Players:  []server.LobbyPlayer{{ID: "p1", Name: "Host"}},
	})

	assert.Equal(t, "WXYZ", m.roomCode)
	assert.Equal(t, "p1", m.playerID)
	assert.Contains(t, logText(m), "WXYZ")
}

func TestRoundStartSwitchesPhase(t *testing.T) {
	m := newTestModel(t)

	deliver(t, m, server.TypeRoundStart, engine.RoundStart{
		Round:     1,
		Type:      "auction",
		Card:      &engine.Card{Name: "Gold Chest", Description: "Adds coins to your score."},
		TimeLimit: engine.BidTimeLimit,
		Players:   []engine.PlayerState{{ID: "p1", Name: "Host", Coins: 11}},
	})

	assert.Equal(t, "bidding", m.phase)
	assert.Equal(t, 1, m.round)
	require.Len(t, m.players, 1)
	assert.Equal(t, 11, m.players[0].Coins)
	assert.Contains(t, logText(m), "Gold Chest")

	deliver(t, m, server.TypeCrashRoundStart, engine.RoundStart{Round: 4, Type: "crash", MaxBet: engine.CrashMaxBet})
	assert.Equal(t, "crash", m.phase)
	assert.Nil(t, m.card)

	deliver(t, m, server.TypeSlotRoundStart, engine.RoundStart{Round: 6, Type: "slot", Ante: engine.SlotAnte})
	assert.Equal(t, "slots", m.phase)
}

func TestCrashTicksAnimateInPlace(t *testing.T) {
	m := newTestModel(t)
	deliver(t, m, server.TypeCrashMultiplierStart, struct{}{})
	baseline := len(m.gameLog)

	deliver(t, m, server.TypeCrashTick, server.CrashTickData{Multiplier: 1.03})
	deliver(t, m, server.TypeCrashTick, server.CrashTickData{Multiplier: 1.06})
	deliver(t, m, server.TypeCrashTick, server.CrashTickData{Multiplier: 1.09})

	assert.Equal(t, baseline+1, len(m.gameLog), "ticks overwrite a single line")
	assert.Contains(t, logText(m), "1.09")
	assert.NotContains(t, logText(m), "1.03")
}

func TestGameOverRendersRanking(t *testing.T) {
	m := newTestModel(t)

	deliver(t, m, server.TypeGameOver, engine.FinalScores{
		Scores: []engine.FinalScore{
			{PlayerID: "p2", PlayerName: "Penny", Coins: 21, CardsWon: 3},
			{PlayerID: "p1", PlayerName: "Host", Coins: 14, CardsWon: 2},
		},
		Winner: &engine.FinalScore{PlayerID: "p2", PlayerName: "Penny", Coins: 21},
	})

	assert.Equal(t, "over", m.phase)
	text := logText(m)
	assert.Contains(t, text, "Penny wins!")
	assert.Less(t, strings.Index(text, "Penny"), strings.Index(text, "Host"))
}

func TestErrorMessagesSurfaceInLog(t *testing.T) {
	m := newTestModel(t)

	deliver(t, m, server.TypeError, server.ErrorData{Message: "room not found"})

	assert.Contains(t, logText(m), "room not found")
}
