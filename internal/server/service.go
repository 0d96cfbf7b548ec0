package server

import (
	"encoding/json"
	"fmt"
	rand "math/rand/v2"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/gamba/internal/engine"
)

// GameService is the dispatch glue between client messages and the room and
// game layers. Errors from any operation go back to the offending client
// only; they are never broadcast.
type GameService struct {
	rooms  *RoomManager
	server *Server
	clock  quartz.Clock
	logger *log.Logger

	// newRng mints the rng for each game so tests can pin seeds.
	newRng func() *rand.Rand
}

// NewGameService wires the service into a server.
func NewGameService(server *Server, rooms *RoomManager, clock quartz.Clock, newRng func() *rand.Rand, logger *log.Logger) *GameService {
	return &GameService{
		rooms:  rooms,
		server: server,
		clock:  clock,
		logger: logger.WithPrefix("service"),
		newRng: newRng,
	}
}

// HandleMessage routes one client message.
func (gs *GameService) HandleMessage(conn *Connection, msg *Message) {
	var err error
	switch msg.Type {
	case TypeCreateRoom:
		err = gs.handleCreateRoom(conn, msg.Data)
	case TypeJoinRoom:
		err = gs.handleJoinRoom(conn, msg.Data)
	case TypeStartGame:
		err = gs.handleStartGame(conn, msg.Data)
	case TypeSubmitBid:
		err = gs.handleSubmitBid(conn, msg.Data)
	case TypeCrashBet:
		err = gs.handleCrashBet(conn, msg.Data)
	case TypeCrashCashout:
		err = gs.handleCashout(conn, msg.Data)
	case TypeSlotBet:
		err = gs.handleSlotBet(conn, msg.Data)
	case TypeLeaveRoom:
		gs.HandleLeave(conn)
	default:
		err = fmt.Errorf("unknown message type: %s", msg.Type)
	}

	if err != nil {
		gs.sendError(conn, err)
	}
}

func (gs *GameService) sendError(conn *Connection, err error) {
	msg, encErr := NewMessage(TypeError, ErrorData{Message: err.Error()})
	if encErr != nil {
		gs.logger.Error("Failed to encode error message", "error", encErr)
		return
	}
	_ = conn.SendMessage(msg)
}

func (gs *GameService) handleCreateRoom(conn *Connection, data json.RawMessage) error {
	var req CreateRoomData
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	playerID := uuid.New().String()
	room := gs.rooms.CreateRoom(playerID, req.PlayerName, req.Avatar)
	conn.SetPlayer(playerID)
	conn.SetRoom(room.Code)

	msg, err := NewMessage(TypeRoomCreated, RoomCreatedData{
		RoomCode: room.Code,
		PlayerID: playerID,
		Players:  room.LobbyPlayers(),
	})
	if err != nil {
		return err
	}
	return conn.SendMessage(msg)
}

func (gs *GameService) handleJoinRoom(conn *Connection, data json.RawMessage) error {
	var req JoinRoomData
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	code := strings.ToUpper(req.RoomCode)
	playerID := uuid.New().String()
	room, err := gs.rooms.JoinRoom(code, playerID, req.PlayerName, req.Avatar)
	if err != nil {
		return err
	}
	conn.SetPlayer(playerID)
	conn.SetRoom(code)

	joined, err := NewMessage(TypeRoomJoined, RoomJoinedData{
		RoomCode: code,
		PlayerID: playerID,
		Players:  room.LobbyPlayers(),
	})
	if err != nil {
		return err
	}
	if err := conn.SendMessage(joined); err != nil {
		return err
	}

	notice, err := NewMessage(TypePlayerJoined, PlayerJoinedData{
		PlayerName: req.PlayerName,
		Players:    room.LobbyPlayers(),
	})
	if err != nil {
		return err
	}
	gs.server.BroadcastToRoom(code, notice)
	return nil
}

func (gs *GameService) handleStartGame(conn *Connection, data json.RawMessage) error {
	var req StartGameData
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	code := strings.ToUpper(req.RoomCode)
	room := gs.rooms.GetRoom(code)
	if room == nil {
		return ErrRoomNotFound
	}

	game := engine.NewGame(room.Players, gs.newRng(), gs.logger)
	runner := NewRoundRunner(code, game, gs.server, gs.clock, gs.logger, func() {
		gs.rooms.FinishGame(code)
	})

	if _, err := gs.rooms.StartGame(code, conn.GetPlayer(), game, runner); err != nil {
		runner.Stop()
		return err
	}

	runner.Start()
	return nil
}

// runnerFor returns the live runner for a room code, or an error when no
// game is running there.
func (gs *GameService) runnerFor(code string) (*RoundRunner, error) {
	room := gs.rooms.GetRoom(strings.ToUpper(code))
	if room == nil || room.Runner == nil {
		return nil, ErrNoActiveGame
	}
	return room.Runner, nil
}

func (gs *GameService) handleSubmitBid(conn *Connection, data json.RawMessage) error {
	var req SubmitBidData
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	runner, err := gs.runnerFor(req.RoomCode)
	if err != nil {
		return err
	}
	return runner.SubmitBid(conn.GetPlayer(), req.Amount)
}

func (gs *GameService) handleCrashBet(conn *Connection, data json.RawMessage) error {
	var req CrashBetData
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	runner, err := gs.runnerFor(req.RoomCode)
	if err != nil {
		return err
	}
	return runner.SubmitCrashBet(conn.GetPlayer(), req.Amount)
}

func (gs *GameService) handleCashout(conn *Connection, data json.RawMessage) error {
	var req CrashCashoutData
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	runner, err := gs.runnerFor(req.RoomCode)
	if err != nil {
		return err
	}
	return runner.Cashout(conn.GetPlayer())
}

func (gs *GameService) handleSlotBet(conn *Connection, data json.RawMessage) error {
	var req SlotBetData
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	runner, err := gs.runnerFor(req.RoomCode)
	if err != nil {
		return err
	}
	return runner.SubmitSlotBet(conn.GetPlayer(), req.Participate)
}

// HandleLeave removes the connection's player from their room, during a game
// or before one. Safe to call for connections that never joined a room.
func (gs *GameService) HandleLeave(conn *Connection) {
	code := conn.GetRoom()
	playerID := conn.GetPlayer()
	if code == "" || playerID == "" {
		return
	}

	room := gs.rooms.GetRoom(code)
	if room == nil {
		return
	}

	playerName := "Unknown"
	for _, p := range room.Players {
		if p.ID == playerID {
			playerName = p.Name
			break
		}
	}

	if room.Runner != nil {
		room.Runner.HandleDisconnect(playerID)
	}

	remaining := gs.rooms.LeaveRoom(code, playerID)
	conn.SetRoom("")

	if remaining != nil {
		notice, err := NewMessage(TypePlayerLeft, PlayerLeftData{
			PlayerName: playerName,
			Players:    remaining.LobbyPlayers(),
			HostID:     remaining.HostID,
		})
		if err != nil {
			gs.logger.Error("Failed to encode player-left notice", "error", err)
			return
		}
		gs.server.BroadcastToRoom(code, notice)
	}
}
