package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"meshchat/mesh"
)

// Styles for the TUI
var (
	primaryColor    = lipgloss.Color("#7C3AED") // Purple
	accentColor     = lipgloss.Color("#10B981") // Green
	errorColor      = lipgloss.Color("#EF4444") // Red
	mutedColor      = lipgloss.Color("#6B7280") // Gray
	backgroundColor = lipgloss.Color("#1F2937") // Dark gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Background(backgroundColor).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Width(12).
			Foreground(mutedColor)

	systemLineStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Italic(true)

	errorLineStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	ownLineStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	peerLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Faint(true)

	peerConnectedStyle = lipgloss.NewStyle().
				Foreground(accentColor)
)

const (
	peerPanelWidth = 30
	outboxSize     = 128
	maxShownPeers  = 15
	windowTitle    = "P2P Chat"
)

type uiPhase int

const (
	phaseSetup uiPhase = iota
	phaseChat
)

// Setup form fields.
const (
	fieldUsername = iota
	fieldHost
	fieldPort
	fieldCount
)

type lineKind int

const (
	linePeer lineKind = iota
	lineOwn
	lineSystem
	lineError
)

type chatLine struct {
	text string
	at   time.Time
	kind lineKind
}

// tickMsg is sent periodically to refresh the peer list.
type tickMsg time.Time

// lineMsg carries one line from the sink.
type lineMsg string

// connectedMsg reports the outcome of the initial ConnectAll.
type connectedMsg struct {
	connected int
	attempted int
}

// UI is the bubbletea model.  It starts on a setup form asking for the
// display name and the peers to connect to, then switches to the chat view.
type UI struct {
	ctx  context.Context
	node   *mesh.Node
	sink   *channelSink
	outbox *outbox

	phase    uiPhase
	identity string

	inputs   []textinput.Model
	focus    int
	pending  []mesh.PeerAddress
	setupErr string

	lines      []chatLine
	peers      []mesh.PeerAddress
	viewport   viewport.Model
	textarea   textarea.Model
	ready      bool
	width      int
	height     int
	lastUpdate time.Time
	showHelp   bool
}

// NewUI creates the TUI.  When both a username and peers are supplied the
// setup form is skipped.
func NewUI(ctx context.Context, node *mesh.Node, sink *channelSink,
	username string, peers []mesh.PeerAddress) *UI {

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		inputs[i] = ti
	}
	inputs[fieldUsername].Placeholder = "your name"
	inputs[fieldUsername].CharLimit = 32
	inputs[fieldUsername].SetValue(username)
	inputs[fieldHost].Placeholder = "127.0.0.1"
	inputs[fieldHost].CharLimit = 253
	inputs[fieldPort].Placeholder = "6787"
	inputs[fieldPort].CharLimit = 5
	inputs[fieldUsername].Focus()

	ta := textarea.New()
	ta.Placeholder = "Type a message or /help for commands..."
	ta.Prompt = "┃ "
	ta.CharLimit = 500
	ta.SetWidth(80)
	ta.SetHeight(1)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)

	ui := &UI{
		ctx:        ctx,
		node:       node,
		sink:       sink,
		outbox:     newOutbox(node, outboxSize),
		phase:      phaseSetup,
		inputs:     inputs,
		pending:    append([]mesh.PeerAddress(nil), peers...),
		viewport:   vp,
		textarea:   ta,
		lastUpdate: time.Now(),
	}
	for _, p := range peers {
		ui.appendLine(fmt.Sprintf("[info] peer added: %s", p))
	}
	return ui
}

// Init initializes the TUI
func (ui *UI) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		ui.listenForLines(),
		ui.tickCmd(),
		tea.SetWindowTitle(windowTitle + " - not connected"),
	}
	if ui.inputs[fieldUsername].Value() != "" && len(ui.pending) > 0 {
		cmds = append(cmds, ui.startChat())
	}
	return tea.Batch(cmds...)
}

// listenForLines waits for the next line from the sink.
func (ui *UI) listenForLines() tea.Cmd {
	return func() tea.Msg {
		select {
		case line := <-ui.sink.Lines():
			return lineMsg(line)
		case <-ui.sink.quit:
			return nil
		}
	}
}

// tickCmd sends periodic ticks to update the peer list and status bar.
func (ui *UI) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// connectCmd makes the one-time connect attempt to every pending peer.
func (ui *UI) connectCmd(peers []mesh.PeerAddress) tea.Cmd {
	return func() tea.Msg {
		n := ui.node.ConnectAll(ui.ctx, peers)
		return connectedMsg{connected: n, attempted: len(peers)}
	}
}

// Update handles messages and updates the model
func (ui *UI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return ui, tea.Quit
		}
		if ui.phase == phaseSetup {
			return ui.updateSetup(msg)
		}
		return ui.updateChat(msg)

	case tea.WindowSizeMsg:
		ui.width = msg.Width
		ui.height = msg.Height
		ui.ready = true

		headerHeight := 3
		footerHeight := 5
		statusBarHeight := 1
		ui.viewport.Width = max(ui.width-peerPanelWidth-5, 10)
		ui.viewport.Height = max(ui.height-headerHeight-footerHeight-statusBarHeight, 3)
		ui.textarea.SetWidth(max(ui.width-4, 10))
		ui.updateViewport()
		return ui, nil

	case lineMsg:
		ui.appendLine(string(msg))
		ui.updateViewport()
		ui.viewport.GotoBottom()
		return ui, ui.listenForLines()

	case connectedMsg:
		ui.appendLine(fmt.Sprintf("[info] connected to %d of %d peer(s)",
			msg.connected, msg.attempted))
		ui.refreshPeers()
		ui.updateViewport()
		return ui, nil

	case tickMsg:
		ui.refreshPeers()
		ui.lastUpdate = time.Time(msg)
		return ui, ui.tickCmd()
	}

	var cmd tea.Cmd
	if ui.phase == phaseSetup {
		ui.inputs[ui.focus], cmd = ui.inputs[ui.focus].Update(msg)
	} else {
		ui.textarea, cmd = ui.textarea.Update(msg)
	}
	return ui, cmd
}

func (ui *UI) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		return ui, ui.setFocus((ui.focus + 1) % fieldCount)

	case tea.KeyShiftTab, tea.KeyUp:
		return ui, ui.setFocus((ui.focus + fieldCount - 1) % fieldCount)

	case tea.KeyEnter:
		if ui.focus == fieldUsername {
			return ui, ui.setFocus(fieldHost)
		}
		ui.addPeer()
		return ui, nil

	case tea.KeyCtrlS:
		return ui, ui.startChat()
	}

	var cmd tea.Cmd
	ui.inputs[ui.focus], cmd = ui.inputs[ui.focus].Update(msg)
	return ui, cmd
}

func (ui *UI) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlH:
		ui.showHelp = !ui.showHelp
		ui.updateViewport()
		return ui, nil

	case tea.KeyEnter:
		input := strings.TrimSpace(ui.textarea.Value())
		ui.textarea.Reset()
		switch {
		case input == "":
			return ui, nil
		case input == "/quit" || input == "/exit":
			return ui, tea.Quit
		case input == "/help":
			ui.showHelp = !ui.showHelp
			ui.updateViewport()
			return ui, nil
		}
		// The local echo arrives through the sink once the outbox sends it.
		if !ui.outbox.Send(input, ui.identity) {
			ui.appendLine("[error] too many unsent messages, message dropped")
			ui.updateViewport()
		}
		return ui, nil
	}

	var taCmd, vpCmd tea.Cmd
	ui.textarea, taCmd = ui.textarea.Update(msg)
	ui.viewport, vpCmd = ui.viewport.Update(msg)
	return ui, tea.Batch(taCmd, vpCmd)
}

func (ui *UI) setFocus(i int) tea.Cmd {
	ui.inputs[ui.focus].Blur()
	ui.focus = i
	return ui.inputs[ui.focus].Focus()
}

// addPeer validates the host and port fields and queues the peer.
func (ui *UI) addPeer() {
	host := strings.TrimSpace(ui.inputs[fieldHost].Value())
	if host == "" {
		ui.setupErr = "Please enter the peer IP"
		return
	}
	addr, err := mesh.NewPeerAddress(host, ui.inputs[fieldPort].Value())
	if err != nil {
		ui.setupErr = "Please enter a valid port"
		return
	}

	ui.setupErr = ""
	ui.inputs[fieldHost].Reset()
	ui.inputs[fieldPort].Reset()
	for _, p := range ui.pending {
		if p == addr {
			return
		}
	}
	ui.pending = append(ui.pending, addr)
	ui.appendLine(fmt.Sprintf("[info] peer added: %s", addr))
}

// startChat checks the setup form and, when complete, switches to the chat
// view and connects to the queued peers.
func (ui *UI) startChat() tea.Cmd {
	username := strings.TrimSpace(ui.inputs[fieldUsername].Value())
	if username == "" {
		ui.setupErr = "Please enter a username"
		return nil
	}
	if len(ui.pending) == 0 {
		ui.setupErr = "Please add at least one peer"
		return nil
	}

	ui.setupErr = ""
	ui.identity = username
	ui.phase = phaseChat
	ui.inputs[ui.focus].Blur()
	chatLog.Infof("Connecting to %d peer(s) as %q", len(ui.pending), username)

	return tea.Batch(
		tea.SetWindowTitle(windowTitle+" - "+username),
		ui.textarea.Focus(),
		ui.connectCmd(ui.pending),
	)
}

func (ui *UI) refreshPeers() {
	ui.peers = ui.node.Peers()
}

func (ui *UI) appendLine(text string) {
	ui.lines = append(ui.lines, chatLine{
		text: text,
		at:   time.Now(),
		kind: ui.classify(text),
	})
}

// classify picks a display style for a line.
func (ui *UI) classify(text string) lineKind {
	switch {
	case strings.HasPrefix(text, "[error]"):
		return lineError
	case strings.HasPrefix(text, "["):
		return lineSystem
	case ui.identity != "" && strings.HasPrefix(text, ui.identity+": "):
		return lineOwn
	}
	return linePeer
}

// updateViewport updates the viewport content with all lines
func (ui *UI) updateViewport() {
	if ui.showHelp {
		ui.viewport.SetContent(tuiHelp)
		return
	}

	var content strings.Builder
	for _, l := range ui.lines {
		content.WriteString(renderLine(l))
		content.WriteString("\n")
	}
	ui.viewport.SetContent(content.String())
}

func renderLine(l chatLine) string {
	timestamp := timestampStyle.Render(l.at.Format("15:04:05"))

	var style lipgloss.Style
	switch l.kind {
	case lineSystem:
		style = systemLineStyle
	case lineError:
		style = errorLineStyle
	case lineOwn:
		style = ownLineStyle
	default:
		style = peerLineStyle
	}
	return fmt.Sprintf("%s %s", timestamp, style.Render(l.text))
}

const tuiHelp = `
P2P CHAT - HELP

MESSAGING:
  Type and press Enter to send a message to all connected peers.
  Messages from inbound connections are shown but never replied to.

COMMANDS:
  /help               Toggle this help screen
  /quit               Exit

KEYBOARD SHORTCUTS:
  Ctrl+H              Toggle this help screen
  Ctrl+C / Esc        Quit application
  Enter               Send message

STATUS:
  The right panel shows the peers messages are sent to.
  Status lines appear in green italics, errors in red.
  Your messages appear in purple, peer messages in blue.
`

// View renders the TUI
func (ui *UI) View() string {
	if !ui.ready {
		return "\n  Initializing P2P Chat...\n"
	}
	if ui.phase == phaseSetup {
		return ui.viewSetup()
	}
	return ui.viewChat()
}

func (ui *UI) viewSetup() string {
	header := headerStyle.Render("P2P Chat - not connected")

	labels := [fieldCount]string{"Username", "Peer IP", "Port"}
	var form strings.Builder
	for i, in := range ui.inputs {
		form.WriteString(labelStyle.Render(labels[i]))
		form.WriteString(in.View())
		form.WriteString("\n")
	}

	form.WriteString("\nPeers:\n")
	if len(ui.pending) == 0 {
		form.WriteString("  (none)\n")
	}
	for _, p := range ui.pending {
		form.WriteString("  " + p.String() + "\n")
	}

	if ui.setupErr != "" {
		form.WriteString("\n" + errorLineStyle.Render(ui.setupErr) + "\n")
	}
	form.WriteString("\n" + timestampStyle.Render(
		"Tab: next field | Enter: add peer | Ctrl+S: connect | Esc: quit"))

	panel := panelStyle.Width(max(ui.width-4, 20)).Render(form.String())

	var log strings.Builder
	start := max(len(ui.lines)-5, 0)
	for _, l := range ui.lines[start:] {
		log.WriteString(renderLine(l) + "\n")
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, panel, log.String())
}

func (ui *UI) viewChat() string {
	header := headerStyle.Render(windowTitle + " - " + ui.identity)

	messagePanel := panelStyle.
		Width(ui.viewport.Width + 2).
		Height(ui.viewport.Height + 2).
		Render(fmt.Sprintf("Messages\n%s", ui.viewport.View()))

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, messagePanel, ui.renderPeerPanel())

	inputArea := inputStyle.Width(max(ui.width-4, 10)).Render(
		fmt.Sprintf("Input (Ctrl+H for help)\n%s", ui.textarea.View()))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		mainContent,
		ui.renderStatusBar(),
		inputArea,
	)
}

// renderPeerPanel renders the registered peers.
func (ui *UI) renderPeerPanel() string {
	var content strings.Builder

	content.WriteString("Connected Peers\n")
	content.WriteString(strings.Repeat("─", peerPanelWidth-2) + "\n")

	if len(ui.peers) == 0 {
		content.WriteString("  No peers connected\n")
	}
	for i, peer := range ui.peers {
		if i >= maxShownPeers {
			fmt.Fprintf(&content, "  ... and %d more\n", len(ui.peers)-maxShownPeers)
			break
		}
		fmt.Fprintf(&content, "  %s %s\n", peerConnectedStyle.Render("●"), peer)
	}

	return panelStyle.Width(peerPanelWidth).Height(ui.viewport.Height + 2).Render(content.String())
}

// renderStatusBar renders the bottom status bar
func (ui *UI) renderStatusBar() string {
	listen := "-"
	if addr := ui.node.Addr(); addr != nil {
		listen = addr.String()
	}
	leftSection := fmt.Sprintf("Listening: %s", listen)
	rightSection := fmt.Sprintf("Peers: %d | %s", len(ui.peers), ui.lastUpdate.Format("15:04:05"))

	totalWidth := ui.width - 4
	spacing := max(totalWidth-lipgloss.Width(leftSection)-lipgloss.Width(rightSection), 0)

	statusText := leftSection + strings.Repeat(" ", spacing) + rightSection
	return statusBarStyle.Width(max(ui.width-4, 10)).Render(statusText)
}

// runTUI runs the terminal UI until the user quits or ctx is cancelled.
func runTUI(ctx context.Context, node *mesh.Node, cfg *config, sink *channelSink) error {
	consoleLogging.Store(false)
	defer consoleLogging.Store(true)
	defer sink.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui := NewUI(ctx, node, sink, cfg.Username, cfg.peers)
	go ui.outbox.run(ctx)

	p := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
