package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/gamba/internal/client"
	"github.com/lox/gamba/internal/engine"
	"github.com/lox/gamba/internal/server"
)

// serverMsg wraps an incoming server message for the Bubble Tea loop.
type serverMsg struct {
	msg *server.Message
}

// Model is the Bubble Tea model for the game client. All game state comes
// from the server; the model only renders it.
type Model struct {
	client *client.Client
	logger *log.Logger

	logViewport viewport.Model
	actionInput textinput.Model

	msgChan  chan *server.Message
	gameLog  []string
	tickLine int // log index of the in-place multiplier line, -1 when none

	// Session state
	roomCode string
	playerID string
	players  []engine.PlayerState
	round    int
	phase    string
	card     *engine.Card

	quitting bool

	width       int
	height      int
	initialized bool
}

// New creates a model bound to a connected client.
func New(c *client.Client, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "create <name>  or  join <code> <name>"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	m := &Model{
		client:      c,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		actionInput: ti,
		msgChan:     make(chan *server.Message, 64),
		tickLine:    -1,
		phase:       "lobby",
	}

	c.AddCatchAllHandler(func(msg *server.Message) {
		m.msgChan <- msg
	})

	return m
}

// Init starts the blink and the server listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listenForServer())
}

func (m *Model) listenForServer() tea.Cmd {
	return func() tea.Msg {
		return serverMsg{msg: <-m.msgChan}
	}
}

// Update handles messages in the TUI.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case serverMsg:
		m.handleServerMessage(msg.msg)
		cmds = append(cmds, m.listenForServer())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			if m.roomCode != "" {
				_ = m.client.LeaveRoom(m.roomCode)
			}
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "enter":
			input := strings.TrimSpace(m.actionInput.Value())
			m.actionInput.SetValue("")
			if input != "" {
				m.processCommand(input)
			}
			if m.quitting {
				return m, tea.Sequence(tea.ClearScreen, tea.Quit)
			}
		}
	}

	var cmd tea.Cmd
	m.actionInput, cmd = m.actionInput.Update(msg)
	cmds = append(cmds, cmd)
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// processCommand parses a user command and sends it to the server.
func (m *Model) processCommand(input string) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch command {
	case "create":
		if len(args) < 1 {
			m.addLog(ErrorStyle.Render("usage: create <name>"))
			return
		}
		err = m.client.CreateRoom(args[0], "")
	case "join":
		if len(args) < 2 {
			m.addLog(ErrorStyle.Render("usage: join <code> <name>"))
			return
		}
		err = m.client.JoinRoom(strings.ToUpper(args[0]), args[1], "")
	case "start":
		err = m.client.StartGame(m.roomCode)
	case "bid":
		amount, parseErr := parseAmount(args)
		if parseErr != nil {
			m.addLog(ErrorStyle.Render("usage: bid <coins>"))
			return
		}
		err = m.client.SubmitBid(m.roomCode, amount)
	case "bet":
		amount, parseErr := parseAmount(args)
		if parseErr != nil {
			m.addLog(ErrorStyle.Render("usage: bet <coins>"))
			return
		}
		err = m.client.CrashBet(m.roomCode, amount)
	case "cashout":
		err = m.client.Cashout(m.roomCode)
	case "spin":
		err = m.client.SlotBet(m.roomCode, true)
	case "skip":
		err = m.client.SlotBet(m.roomCode, false)
	case "quit":
		m.quitting = true
		if m.roomCode != "" {
			_ = m.client.LeaveRoom(m.roomCode)
		}
	default:
		m.addLog(ErrorStyle.Render(fmt.Sprintf("unknown command: %s", command)))
		return
	}

	if err != nil {
		m.addLog(ErrorStyle.Render(fmt.Sprintf("send failed: %v", err)))
	}
}

func parseAmount(args []string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing amount")
	}
	return strconv.Atoi(args[0])
}

// handleServerMessage turns a server broadcast into log lines and state.
func (m *Model) handleServerMessage(msg *server.Message) {
	switch msg.Type {
	case server.TypeRoomCreated:
		var data server.RoomCreatedData
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.roomCode = data.RoomCode
		m.playerID = data.PlayerID
		m.addLog(SuccessStyle.Render(fmt.Sprintf("Room %s created. Waiting for players; type 'start' when ready.", data.RoomCode)))

	case server.TypeRoomJoined:
		var data server.RoomJoinedData
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.roomCode = data.RoomCode
		m.playerID = data.PlayerID
		m.addLog(SuccessStyle.Render(fmt.Sprintf("Joined room %s (%d players).", data.RoomCode, len(data.Players))))

	case server.TypePlayerJoined:
		var data server.PlayerJoinedData
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.addLog(fmt.Sprintf("%s joined the room.", data.PlayerName))

	case server.TypePlayerLeft:
		var data server.PlayerLeftData
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.addLog(fmt.Sprintf("%s left the room.", data.PlayerName))

	case server.TypeRoundStart:
		var data engine.RoundStart
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.round = data.Round
		m.phase = "bidding"
		m.card = data.Card
		m.players = data.Players
		m.addLog(HeaderStyle.Render(fmt.Sprintf(" Round %d: Auction ", data.Round)))
		if data.Card != nil {
			m.addLog(fmt.Sprintf("Up for auction: %s. %s", data.Card.Name, data.Card.Description))
		}
		m.addLog(InfoStyle.Render(fmt.Sprintf("Sealed bids close in %ds. 'bid <coins>'", data.TimeLimit)))

	case server.TypeBidReceived:
		var data engine.Receipt
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.addLog(InfoStyle.Render(fmt.Sprintf("Bids in: %d/%d", data.Count, data.Total)))

	case server.TypeRoundReveal:
		var data engine.RevealResult
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		for _, b := range data.Bids {
			m.addLog(fmt.Sprintf("  %s %s bid %d", b.Avatar, b.PlayerName, b.Amount))
		}
		if data.TieBreak != nil {
			m.addLog(WarningStyle.Render("Tie! Spinning for a winner..."))
		}
		if data.Winner != nil {
			m.addLog(SuccessStyle.Render(fmt.Sprintf("%s wins the auction with %d.", data.Winner.PlayerName, data.Winner.Amount)))
		}

	case server.TypeRoundResolve:
		var data engine.ResolveResult
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.players = data.Players
		for _, e := range data.Effects {
			m.addLog(e.Message)
		}

	case server.TypeCrashRoundStart:
		var data engine.RoundStart
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.round = data.Round
		m.phase = "crash"
		m.card = nil
		m.players = data.Players
		m.addLog(HeaderStyle.Render(fmt.Sprintf(" Round %d: Crash ", data.Round)))
		m.addLog(InfoStyle.Render(fmt.Sprintf("'bet <coins>' up to %d; cash out before it crashes.", data.MaxBet)))

	case server.TypeCrashBetReceived, server.TypeSlotBetReceived:
		var data server.BetReceivedData
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.players = data.Players
		m.addLog(InfoStyle.Render(fmt.Sprintf("Bets in: %d/%d", data.Count, data.Total)))

	case server.TypeCrashMultiplierStart:
		m.tickLine = -1
		m.addLog(WarningStyle.Render("The multiplier is live. 'cashout' to lock it in."))

	case server.TypeCrashTick:
		var data server.CrashTickData
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.replaceLastMultiplier(fmt.Sprintf("x%.2f", data.Multiplier))

	case server.TypeCrashCashoutConfirm:
		var data engine.CrashCashout
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.addLog(SuccessStyle.Render(fmt.Sprintf("%s cashed out at x%.2f for %d coins.", data.PlayerName, data.Multiplier, data.Winnings)))

	case server.TypeCrashResult:
		var data engine.CrashResult
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.players = data.Players
		m.tickLine = -1
		m.addLog(ErrorStyle.Render(fmt.Sprintf("Crashed at x%.2f!", data.CrashPoint)))
		for _, r := range data.Results {
			if r.Bet == 0 {
				continue
			}
			if r.CashedOut {
				m.addLog(fmt.Sprintf("  %s: bet %d, out at x%.2f, won %d", r.PlayerName, r.Bet, r.Multiplier, r.Winnings))
			} else {
				m.addLog(fmt.Sprintf("  %s: bet %d, busted", r.PlayerName, r.Bet))
			}
		}

	case server.TypeSlotRoundStart:
		var data engine.RoundStart
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.round = data.Round
		m.phase = "slots"
		m.card = nil
		m.players = data.Players
		m.addLog(HeaderStyle.Render(fmt.Sprintf(" Round %d: Jackpot Slots ", data.Round)))
		m.addLog(InfoStyle.Render(fmt.Sprintf("'spin' to ante %d coins, 'skip' to sit out.", data.Ante)))

	case server.TypeSlotSpinResult:
		var data engine.SlotResult
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.players = data.Players
		for _, r := range data.Results {
			if !r.Joined {
				m.addLog(InfoStyle.Render(fmt.Sprintf("  %s sat out", r.PlayerName)))
				continue
			}
			reels := make([]string, len(r.Reels))
			for i, s := range r.Reels {
				reels[i] = string(s)
			}
			m.addLog(fmt.Sprintf("  %s: [ %s ] scored %d", r.PlayerName, strings.Join(reels, " "), r.Score))
		}
		if len(data.Winners) > 0 {
			names := make([]string, len(data.Winners))
			for i, w := range data.Winners {
				names[i] = w.PlayerName
			}
			m.addLog(SuccessStyle.Render(fmt.Sprintf("Pool of %d split: %s take %d each.", data.Pool, strings.Join(names, ", "), data.Payout)))
		}

	case server.TypeGameOver:
		var data engine.FinalScores
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.phase = "over"
		m.addLog(HeaderStyle.Render(" Game Over "))
		for i, s := range data.Scores {
			m.addLog(fmt.Sprintf("  %d. %s %s: %d coins, %d cards", i+1, s.Avatar, s.PlayerName, s.Coins, s.CardsWon))
		}
		if data.Winner != nil {
			m.addLog(SuccessStyle.Render(fmt.Sprintf("%s wins!", data.Winner.PlayerName)))
		}

	case server.TypeError:
		var data server.ErrorData
		if json.Unmarshal(msg.Data, &data) != nil {
			return
		}
		m.addLog(ErrorStyle.Render(data.Message))
	}
}

// View renders the TUI.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)

	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(1, m.width-2)).
		Height(max(1, actionHeight-2))
	actionPane := actionStyle.Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(25, lipgloss.Width(sidebarContent))
	sidebarHeight := max(1, m.height-actionHeight-4)

	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(sidebarHeight)
	sidebarPane := sidebarStyle.Render(sidebarContent)

	m.logViewport.Width = max(1, m.width-sidebarWidth-4)
	m.logViewport.Height = max(1, m.height-actionHeight-4)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if !m.initialized && m.logViewport.Width > 1 && m.logViewport.Height > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.logViewport.Width).
		Height(m.logViewport.Height)
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *Model) renderSidebarPane() string {
	var content strings.Builder

	if m.roomCode != "" {
		content.WriteString(HeaderStyle.Render(fmt.Sprintf(" Room %s ", m.roomCode)))
		content.WriteString("\n\n")
	}
	if m.round > 0 {
		content.WriteString(InfoStyle.Render(fmt.Sprintf("Round %d/%d", m.round, engine.TotalRounds)))
		content.WriteString("\n\n")
	}
	for _, p := range m.players {
		marker := "  "
		if p.ID == m.playerID {
			marker = "➤ "
		}
		content.WriteString(fmt.Sprintf("%s%s %s: ", marker, p.Avatar, p.Name))
		content.WriteString(CoinStyle.Render(fmt.Sprintf("%d", p.Coins)))
		content.WriteString("\n")
	}

	return content.String()
}

func (m *Model) renderActionPane() string {
	var content strings.Builder

	content.WriteString(m.actionInput.View())
	content.WriteString("\n")

	var help string
	switch m.phase {
	case "lobby":
		help = "create <name> • join <code> <name> • start • Ctrl+C to quit"
	case "bidding":
		help = "bid <coins> • Ctrl+C to quit"
	case "crash":
		help = "bet <coins> • cashout • Ctrl+C to quit"
	case "slots":
		help = "spin • skip • Ctrl+C to quit"
	default:
		help = "Ctrl+C to quit"
	}
	content.WriteString(InfoStyle.Render(help))

	return content.String()
}

// AddLogEntry appends an entry to the game log.
func (m *Model) AddLogEntry(entry string) {
	m.addLog(entry)
}

func (m *Model) addLog(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// replaceLastMultiplier overwrites the previous tick line so the live
// multiplier animates in place instead of flooding the log.
func (m *Model) replaceLastMultiplier(entry string) {
	styled := MultiplierStyle.Render(entry)
	if m.tickLine >= 0 && m.tickLine < len(m.gameLog) {
		m.gameLog[m.tickLine] = styled
	} else {
		m.gameLog = append(m.gameLog, styled)
		m.tickLine = len(m.gameLog) - 1
	}
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}
