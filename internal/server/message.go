package server

import (
	"encoding/json"
	"time"

	"github.com/lox/gamba/internal/engine"
)

// MessageType identifies a websocket message.
type MessageType string

const (
	// Client → Server
	TypeCreateRoom   MessageType = "create-room"
	TypeJoinRoom     MessageType = "join-room"
	TypeStartGame    MessageType = "start-game"
	TypeSubmitBid    MessageType = "submit-bid"
	TypeCrashBet     MessageType = "crash-bet"
	TypeCrashCashout MessageType = "crash-cashout"
	TypeSlotBet      MessageType = "slot-bet"
	TypeLeaveRoom    MessageType = "leave-room"

	// Server → Client
	TypeRoomCreated          MessageType = "room-created"
	TypeRoomJoined           MessageType = "room-joined"
	TypePlayerJoined         MessageType = "player-joined"
	TypePlayerLeft           MessageType = "player-left"
	TypeRoundStart           MessageType = "round-start"
	TypeBidReceived          MessageType = "bid-received"
	TypeRoundReveal          MessageType = "round-reveal"
	TypeRoundResolve         MessageType = "round-resolve"
	TypeCrashRoundStart      MessageType = "crash-round-start"
	TypeCrashBetReceived     MessageType = "crash-bet-received"
	TypeCrashMultiplierStart MessageType = "crash-multiplier-start"
	TypeCrashTick            MessageType = "crash-tick"
	TypeCrashCashoutConfirm  MessageType = "crash-cashout-confirm"
	TypeCrashResult          MessageType = "crash-result"
	TypeSlotRoundStart       MessageType = "slot-round-start"
	TypeSlotBetReceived      MessageType = "slot-bet-received"
	TypeSlotSpinResult       MessageType = "slot-spin-result"
	TypeGameOver             MessageType = "game-over"
	TypeError                MessageType = "error"
)

// Message is the websocket envelope for both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload in an envelope with the current timestamp.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server payloads

type CreateRoomData struct {
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar,omitempty"`
}

type JoinRoomData struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar,omitempty"`
}

type StartGameData struct {
	RoomCode string `json:"roomCode"`
}

type SubmitBidData struct {
	RoomCode string `json:"roomCode"`
	Amount   int    `json:"amount"`
}

type CrashBetData struct {
	RoomCode string `json:"roomCode"`
	Amount   int    `json:"amount"`
}

type CrashCashoutData struct {
	RoomCode string `json:"roomCode"`
}

type SlotBetData struct {
	RoomCode    string `json:"roomCode"`
	Participate bool   `json:"participate"`
}

type LeaveRoomData struct {
	RoomCode string `json:"roomCode"`
}

// Server → Client payloads

// LobbyPlayer is the pre-game roster view of a player.
type LobbyPlayer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Coins  int    `json:"coins"`
}

type RoomCreatedData struct {
	RoomCode string        `json:"roomCode"`
	PlayerID string        `json:"playerId"`
	Players  []LobbyPlayer `json:"players"`
}

type RoomJoinedData struct {
	RoomCode string        `json:"roomCode"`
	PlayerID string        `json:"playerId"`
	Players  []LobbyPlayer `json:"players"`
}

type PlayerJoinedData struct {
	PlayerName string        `json:"playerName"`
	Players    []LobbyPlayer `json:"players"`
}

type PlayerLeftData struct {
	PlayerName string        `json:"playerName"`
	Players    []LobbyPlayer `json:"players"`
	HostID     string        `json:"hostId"`
}

// BetReceivedData acknowledges a crash or slot decision; the snapshot lets
// clients show balances already reduced by the stake.
type BetReceivedData struct {
	engine.Receipt
	Players []engine.PlayerState `json:"players"`
}

type CrashTickData struct {
	Multiplier float64 `json:"multiplier"`
}

type ErrorData struct {
	Message string `json:"message"`
}
