package client

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/gamba/internal/server"
)

// EventHandler is a function that handles incoming messages.
type EventHandler func(*server.Message)

// Client is a websocket client for the game server. Incoming messages are
// dispatched to registered handlers.
type Client struct {
	serverURL     string
	conn          *websocket.Conn
	logger        *log.Logger
	mu            sync.RWMutex
	eventHandlers map[server.MessageType][]EventHandler
	connected     bool
	stopChan      chan struct{}
}

// New creates a client for the given server URL.
func New(serverURL string, logger *log.Logger) *Client {
	return &Client{
		serverURL:     serverURL,
		logger:        logger.WithPrefix("client"),
		eventHandlers: make(map[server.MessageType][]EventHandler),
		stopChan:      make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the reader.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	c.logger.Info("Connecting to server", "url", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages()

	return nil
}

// Disconnect closes the websocket connection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	c.connected = false
	close(c.stopChan)

	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return c.conn.Close()
	}

	return nil
}

// SendMessage sends a message to the server.
func (c *Client) SendMessage(msg *server.Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.conn == nil {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(msg)
}

// AddEventHandler registers a handler for a specific message type.
func (c *Client) AddEventHandler(msgType server.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[msgType] = append(c.eventHandlers[msgType], handler)
}

// AddCatchAllHandler registers a handler invoked for every message.
func (c *Client) AddCatchAllHandler(handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[""] = append(c.eventHandlers[""], handler)
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) readMessages() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.stopChan:
			return
		default:
			var msg server.Message
			err := c.conn.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Error("WebSocket error", "error", err)
				}
				return
			}

			c.dispatchMessage(&msg)
		}
	}
}

func (c *Client) dispatchMessage(msg *server.Message) {
	c.mu.RLock()
	handlers := append(c.eventHandlers[msg.Type], c.eventHandlers[""]...)
	c.mu.RUnlock()

	for _, handler := range handlers {
		// Run handlers in goroutines to prevent blocking the reader.
		go handler(msg)
	}
}

func (c *Client) send(msgType server.MessageType, data any) error {
	msg, err := server.NewMessage(msgType, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// CreateRoom asks the server for a fresh room with the caller as host.
func (c *Client) CreateRoom(playerName, avatar string) error {
	return c.send(server.TypeCreateRoom, server.CreateRoomData{PlayerName: playerName, Avatar: avatar})
}

// JoinRoom joins an existing room by code.
func (c *Client) JoinRoom(roomCode, playerName, avatar string) error {
	return c.send(server.TypeJoinRoom, server.JoinRoomData{RoomCode: roomCode, PlayerName: playerName, Avatar: avatar})
}

// StartGame starts the game in the caller's room. Host only.
func (c *Client) StartGame(roomCode string) error {
	return c.send(server.TypeStartGame, server.StartGameData{RoomCode: roomCode})
}

// SubmitBid places a sealed auction bid.
func (c *Client) SubmitBid(roomCode string, amount int) error {
	return c.send(server.TypeSubmitBid, server.SubmitBidData{RoomCode: roomCode, Amount: amount})
}

// CrashBet places a crash-round bet.
func (c *Client) CrashBet(roomCode string, amount int) error {
	return c.send(server.TypeCrashBet, server.CrashBetData{RoomCode: roomCode, Amount: amount})
}

// Cashout locks in the current crash multiplier.
func (c *Client) Cashout(roomCode string) error {
	return c.send(server.TypeCrashCashout, server.CrashCashoutData{RoomCode: roomCode})
}

// SlotBet submits the slot-round decision.
func (c *Client) SlotBet(roomCode string, participate bool) error {
	return c.send(server.TypeSlotBet, server.SlotBetData{RoomCode: roomCode, Participate: participate})
}

// LeaveRoom leaves the current room.
func (c *Client) LeaveRoom(roomCode string) error {
	return c.send(server.TypeLeaveRoom, server.LeaveRoomData{RoomCode: roomCode})
}
