package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshchat/mesh"
)

func newTestUI(t *testing.T, username string, peers []mesh.PeerAddress) *UI {
	t.Helper()
	node := mesh.New(mesh.Config{})
	t.Cleanup(func() { node.Close() })
	sink := newChannelSink(16)
	t.Cleanup(sink.Stop)

	ui := NewUI(context.Background(), node, sink, username, peers)
	ui.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return ui
}

func typeText(ui *UI, s string) {
	ui.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func press(ui *UI, k tea.KeyType) tea.Cmd {
	_, cmd := ui.Update(tea.KeyMsg{Type: k})
	return cmd
}

func TestSetupRequiresUsernameAndPeer(t *testing.T) {
	ui := newTestUI(t, "", nil)

	assert.Nil(t, press(ui, tea.KeyCtrlS))
	assert.Equal(t, "Please enter a username", ui.setupErr)
	assert.Equal(t, phaseSetup, ui.phase)

	typeText(ui, "alice")
	assert.Nil(t, press(ui, tea.KeyCtrlS))
	assert.Equal(t, "Please add at least one peer", ui.setupErr)
	assert.Equal(t, phaseSetup, ui.phase)
}

func TestSetupAddPeer(t *testing.T) {
	ui := newTestUI(t, "", nil)

	press(ui, tea.KeyTab)
	require.Equal(t, fieldHost, ui.focus)

	// Port missing.
	typeText(ui, "127.0.0.1")
	press(ui, tea.KeyEnter)
	assert.Equal(t, "Please enter a valid port", ui.setupErr)
	assert.Empty(t, ui.pending)

	press(ui, tea.KeyTab)
	typeText(ui, "6001")
	press(ui, tea.KeyEnter)
	assert.Empty(t, ui.setupErr)
	assert.Equal(t, []mesh.PeerAddress{{Host: "127.0.0.1", Port: 6001}}, ui.pending)
	assert.Empty(t, ui.inputs[fieldHost].Value())
	assert.Empty(t, ui.inputs[fieldPort].Value())

	last := ui.lines[len(ui.lines)-1]
	assert.Equal(t, "[info] peer added: 127.0.0.1:6001", last.text)
	assert.Equal(t, lineSystem, last.kind)
}

func TestSetupEmptyHost(t *testing.T) {
	ui := newTestUI(t, "", nil)
	press(ui, tea.KeyTab)
	press(ui, tea.KeyEnter)
	assert.Equal(t, "Please enter the peer IP", ui.setupErr)
}

func TestStartChat(t *testing.T) {
	ui := newTestUI(t, "bob", []mesh.PeerAddress{{Host: "127.0.0.1", Port: 6001}})

	cmd := ui.startChat()
	require.NotNil(t, cmd)
	assert.Equal(t, phaseChat, ui.phase)
	assert.Equal(t, "bob", ui.identity)
	assert.Contains(t, ui.View(), "P2P Chat - bob")
}

func TestChatLineClassification(t *testing.T) {
	ui := newTestUI(t, "bob", []mesh.PeerAddress{{Host: "127.0.0.1", Port: 6001}})
	ui.startChat()

	for _, line := range []string{"bob: hi", "alice: hello", "[info] x disconnected", "[error] boom"} {
		ui.Update(lineMsg(line))
	}

	kinds := make(map[string]lineKind)
	for _, l := range ui.lines {
		kinds[l.text] = l.kind
	}
	assert.Equal(t, lineOwn, kinds["bob: hi"])
	assert.Equal(t, linePeer, kinds["alice: hello"])
	assert.Equal(t, lineSystem, kinds["[info] x disconnected"])
	assert.Equal(t, lineError, kinds["[error] boom"])
}

func TestChatEnter(t *testing.T) {
	ui := newTestUI(t, "bob", []mesh.PeerAddress{{Host: "127.0.0.1", Port: 6001}})
	ui.startChat()

	assert.Nil(t, press(ui, tea.KeyEnter), "empty input sends nothing")

	typeText(ui, "hello")
	assert.Nil(t, press(ui, tea.KeyEnter))
	assert.Empty(t, ui.textarea.Value())
	require.Len(t, ui.outbox.queue, 1)
	assert.Equal(t, outgoing{text: "hello", identity: "bob"}, <-ui.outbox.queue)

	typeText(ui, "/help")
	press(ui, tea.KeyEnter)
	assert.True(t, ui.showHelp)

	typeText(ui, "/quit")
	cmd := press(ui, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestQuitKey(t *testing.T) {
	ui := newTestUI(t, "", nil)
	cmd := press(ui, tea.KeyEsc)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestChatEnterKeepsOrder(t *testing.T) {
	ui := newTestUI(t, "bob", []mesh.PeerAddress{{Host: "127.0.0.1", Port: 6001}})
	ui.startChat()

	for _, text := range []string{"one", "two", "three"} {
		typeText(ui, text)
		press(ui, tea.KeyEnter)
	}

	require.Len(t, ui.outbox.queue, 3)
	for _, want := range []string{"one", "two", "three"} {
		assert.Equal(t, want, (<-ui.outbox.queue).text)
	}
}

func TestChatEnterFullOutbox(t *testing.T) {
	ui := newTestUI(t, "bob", []mesh.PeerAddress{{Host: "127.0.0.1", Port: 6001}})
	ui.startChat()
	ui.outbox = newOutbox(ui.node, 1)

	typeText(ui, "first")
	press(ui, tea.KeyEnter)
	typeText(ui, "second")
	press(ui, tea.KeyEnter)

	require.Len(t, ui.outbox.queue, 1)
	last := ui.lines[len(ui.lines)-1]
	assert.Equal(t, lineError, last.kind)
	assert.Equal(t, "[error] too many unsent messages, message dropped", last.text)
}
