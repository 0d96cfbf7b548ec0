package server

import (
	"errors"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/gamba/internal/engine"
)

const (
	// RoomCapacity is the most players one room admits.
	RoomCapacity = 8

	// MinPlayers is the fewest players a game can start with.
	MinPlayers = 2

	roomCodeLength = 4
)

// roomCodeAlphabet omits easily-confused characters (I, O, 0, 1).
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrGameInProgress  = errors.New("game already in progress")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyInRoom   = errors.New("already in this room")
	ErrNotHost         = errors.New("only the host can start the game")
	ErrNeedMorePlayers = errors.New("not enough players to start")
	ErrNoActiveGame    = errors.New("no active game")
)

// RoomStatus tracks a room through its lifecycle.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// Room is one lobby of players sharing a game instance.
type Room struct {
	Code    string
	HostID  string
	Players []engine.Seat
	Status  RoomStatus

	Game   *engine.Game
	Runner *RoundRunner
}

// LobbyPlayers returns the roster in join order for broadcast.
func (r *Room) LobbyPlayers() []LobbyPlayer {
	players := make([]LobbyPlayer, len(r.Players))
	for i, p := range r.Players {
		players[i] = LobbyPlayer{ID: p.ID, Name: p.Name, Avatar: p.Avatar, Coins: engine.StartingCoins}
	}
	return players
}

// RoomManager owns every live room, keyed by code. Safe for concurrent use.
type RoomManager struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	rng    *rand.Rand
	logger *log.Logger
}

// NewRoomManager creates an empty room registry.
func NewRoomManager(rng *rand.Rand, logger *log.Logger) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*Room),
		rng:    rng,
		logger: logger.WithPrefix("rooms"),
	}
}

func (rm *RoomManager) generateCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[rm.rng.IntN(len(roomCodeAlphabet))]
	}
	return string(code)
}

// CreateRoom opens a new room with the given player as host.
func (rm *RoomManager) CreateRoom(hostID, hostName, avatar string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	var code string
	for {
		code = rm.generateCode()
		if _, taken := rm.rooms[code]; !taken {
			break
		}
	}

	room := &Room{
		Code:    code,
		HostID:  hostID,
		Players: []engine.Seat{{ID: hostID, Name: hostName, Avatar: avatar}},
		Status:  RoomWaiting,
	}
	rm.rooms[code] = room
	rm.logger.Info("Room created", "code", code, "host", hostName)
	return room
}

// JoinRoom adds a player to a waiting room.
func (rm *RoomManager) JoinRoom(code, playerID, playerName, avatar string) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.Status != RoomWaiting {
		return nil, ErrGameInProgress
	}
	if len(room.Players) >= RoomCapacity {
		return nil, ErrRoomFull
	}
	for _, p := range room.Players {
		if p.ID == playerID {
			return nil, ErrAlreadyInRoom
		}
	}

	room.Players = append(room.Players, engine.Seat{ID: playerID, Name: playerName, Avatar: avatar})
	rm.logger.Info("Player joined room", "code", code, "player", playerName, "count", len(room.Players))
	return room, nil
}

// LeaveRoom removes a player. The room is deleted when it empties; the host
// role passes to the earliest remaining joiner otherwise. Returns nil when
// the room no longer exists.
func (rm *RoomManager) LeaveRoom(code, playerID string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[code]
	if !ok {
		return nil
	}

	for i, p := range room.Players {
		if p.ID == playerID {
			room.Players = append(room.Players[:i], room.Players[i+1:]...)
			break
		}
	}

	if len(room.Players) == 0 {
		if room.Runner != nil {
			room.Runner.Stop()
		}
		delete(rm.rooms, code)
		rm.logger.Info("Room emptied and removed", "code", code)
		return nil
	}

	if room.HostID == playerID {
		room.HostID = room.Players[0].ID
	}
	return room
}

// GetRoom looks up a room by code.
func (rm *RoomManager) GetRoom(code string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.rooms[code]
}

// StartGame transitions a room to playing and attaches a fresh game. Only
// the host may start, and not alone.
func (rm *RoomManager) StartGame(code, requesterID string, game *engine.Game, runner *RoundRunner) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.HostID != requesterID {
		return nil, ErrNotHost
	}
	if room.Status != RoomWaiting {
		return nil, ErrGameInProgress
	}
	if len(room.Players) < MinPlayers {
		return nil, ErrNeedMorePlayers
	}

	room.Status = RoomPlaying
	room.Game = game
	room.Runner = runner
	rm.logger.Info("Game starting", "code", code, "players", len(room.Players))
	return room, nil
}

// FinishGame marks a played-out room as finished.
func (rm *RoomManager) FinishGame(code string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if room, ok := rm.rooms[code]; ok {
		room.Status = RoomFinished
	}
}

// CleanupRoom drops a room outright, stopping any running game.
func (rm *RoomManager) CleanupRoom(code string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if room, ok := rm.rooms[code]; ok {
		if room.Runner != nil {
			room.Runner.Stop()
		}
		delete(rm.rooms, code)
	}
}

// Rooms returns the current room codes, for diagnostics.
func (rm *RoomManager) Rooms() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	codes := make([]string, 0, len(rm.rooms))
	for code := range rm.rooms {
		codes = append(codes, code)
	}
	return codes
}
