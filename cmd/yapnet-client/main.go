// Command yapnet-client is a terminal client for Yapnet: a login screen
// (username, or a reconnect token) followed by a full-screen chat view, with
// a reader goroutine bridging the socket into the Tea event loop.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"yapnet/internal/client"
	"yapnet/internal/protocol"
)

var (
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("86")
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	yellow = lipgloss.Color("220")
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")

	headerStyle = lipgloss.NewStyle().Bold(true).Background(purple).Foreground(white).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(gray).Padding(0, 1)
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(purple).Padding(0, 2)
	labelStyle        = lipgloss.NewStyle().Foreground(gray).Width(10)
	focusedLabelStyle = lipgloss.NewStyle().Foreground(cyan).Width(10)
	hintStyle         = lipgloss.NewStyle().Foreground(gray).Italic(true)
	errorStyle        = lipgloss.NewStyle().Foreground(red)
	sysStyle          = lipgloss.NewStyle().Foreground(yellow).Italic(true)
	tsStyle           = lipgloss.NewStyle().Foreground(gray)
	myNameStyle       = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle         = lipgloss.NewStyle().Bold(true).Foreground(blue)
)

type envelopeMsg protocol.Envelope
type disconnectedMsg struct{}

type appState int

const (
	stateLogin appState = iota
	stateChat
)

type model struct {
	conn *client.Conn
	recv <-chan protocol.Envelope
	mir  *client.Mirror

	state appState

	loginFocus  int
	loginFields [2]textinput.Model // [0]=username [1]=reconnect token (optional)
	statusMsg   string

	ready       bool
	viewport    viewport.Model
	chatInput   textinput.Model
	activeChat  string
	chatLines   []string

	width, height int
}

func newModel(conn *client.Conn) model {
	uf := textinput.New()
	uf.Placeholder = "username"
	uf.Focus()
	uf.CharLimit = 32
	uf.Width = 32

	tf := textinput.New()
	tf.Placeholder = "reconnect token (leave blank to register)"
	tf.CharLimit = 64
	tf.Width = 40

	ci := textinput.New()
	ci.Placeholder = "Type a message…"
	ci.CharLimit = 500

	return model{
		conn:        conn,
		recv:        conn.Stream(),
		mir:         client.New(),
		state:       stateLogin,
		loginFields: [2]textinput.Model{uf, tf},
		chatInput:   ci,
		activeChat:  "general",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEnvelope(m.recv))
}

func waitForEnvelope(ch <-chan protocol.Envelope) tea.Cmd {
	return func() tea.Msg {
		env, ok := <-ch
		if !ok {
			return disconnectedMsg{}
		}
		return envelopeMsg(env)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.vpHeight()
		}
		m.chatInput.Width = msg.Width - 4
		return m, nil

	case envelopeMsg:
		m.mir.Apply(protocol.Envelope(msg))
		m = m.handlePhase()
		m = m.renderIfChat(protocol.Envelope(msg))
		return m, waitForEnvelope(m.recv)

	case disconnectedMsg:
		m.statusMsg = "disconnected from server"
		return m, tea.Quit

	case tea.KeyMsg:
		if m.state == stateLogin {
			return m.handleLoginKey(msg)
		}
		return m.handleChatKey(msg)
	}
	return m, nil
}

func (m model) vpHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

// handlePhase moves the UI to the chat screen once the mirror reaches Live.
func (m model) handlePhase() model {
	if m.state == stateLogin && m.mir.Phase == client.PhaseLive {
		m.state = stateChat
		m.chatInput.Focus()
		m.rebuildTranscript()
	}
	return m
}

// renderIfChat appends just-arrived chat lines without re-walking history.
func (m model) renderIfChat(env protocol.Envelope) model {
	if m.state != stateChat {
		return m
	}
	if sent, ok := env.Body.(*protocol.ChatSent); ok && sent.ChatTarget == m.activeChat {
		m.appendLine(sent.ChatSender, sent.ChatContent)
	}
	if pj, ok := env.Body.(*protocol.PlayerJoined); ok {
		m.appendSystem(pj.Username + " joined")
	}
	if pl, ok := env.Body.(*protocol.PlayerLeft); ok {
		m.appendSystem(pl.Username + " left")
	}
	return m
}

func (m *model) rebuildTranscript() {
	m.chatLines = nil
	if c, ok := m.mir.Chats[m.activeChat]; ok {
		for _, line := range c.Messages {
			m.appendLine(line.Sender, line.Content)
		}
	}
}

func (m *model) appendLine(sender, content string) {
	ts := tsStyle.Render(sender)
	if sender == m.mir.Me {
		ts = myNameStyle.Render(sender)
	} else {
		ts = peerStyle.Render(sender)
	}
	m.chatLines = append(m.chatLines, ts+": "+content)
	m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) appendSystem(msg string) {
	m.chatLines = append(m.chatLines, sysStyle.Render("⚡ "+msg))
	m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
	m.viewport.GotoBottom()
}

func (m model) handleLoginKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab:
		m.loginFocus = (m.loginFocus + 1) % 2
		for i := range m.loginFields {
			if i == m.loginFocus {
				m.loginFields[i].Focus()
			} else {
				m.loginFields[i].Blur()
			}
		}
		return m, textinput.Blink

	case tea.KeyEnter:
		token := strings.TrimSpace(m.loginFields[1].Value())
		if token != "" {
			m.conn.Send(&protocol.Back{Token: token})
		} else {
			user := strings.TrimSpace(m.loginFields[0].Value())
			if user == "" {
				m.statusMsg = "username is required"
				return m, nil
			}
			m.conn.Send(&protocol.Hello{Username: user})
		}
		m.statusMsg = "connecting…"
		return m, nil
	}

	var cmd tea.Cmd
	m.loginFields[m.loginFocus], cmd = m.loginFields[m.loginFocus].Update(msg)
	return m, cmd
}

func (m model) handleChatKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlQ:
		return m, tea.Quit

	case tea.KeyEnter:
		content := strings.TrimSpace(m.chatInput.Value())
		if content != "" {
			m.conn.Send(&protocol.ChatSend{ChatTarget: m.activeChat, ChatContent: content})
			m.chatInput.Reset()
		}
		return m, nil

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil
	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.state == stateLogin {
		return m.viewLogin()
	}
	return m.viewChat()
}

func (m model) viewLogin() string {
	if m.width == 0 {
		return "\n  Connecting to server…"
	}
	renderField := func(label string, f textinput.Model, focused bool) string {
		lbl := labelStyle.Render(label)
		if focused {
			lbl = focusedLabelStyle.Render(label)
		}
		return lbl + "  " + f.View()
	}
	form := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("  Yapnet  "),
		"",
		renderField("Username", m.loginFields[0], m.loginFocus == 0),
		renderField("Token", m.loginFields[1], m.loginFocus == 1),
		"",
		hintStyle.Render("Tab: switch field   Enter: connect   Ctrl+C: quit"),
		"",
		errorStyle.Render(m.statusMsg),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

func (m model) viewChat() string {
	if !m.ready {
		return "\n  Connecting…"
	}
	hdr := headerStyle.Width(m.width).Render(fmt.Sprintf(
		" Yapnet  ·  %s  ·  #%s  ·  token: %s  ·  Ctrl+C: quit",
		m.mir.Me, m.activeChat, m.mir.Token))
	footer := footerStyle.Width(m.width - 2).Render(m.chatInput.View())
	return lipgloss.JoinVertical(lipgloss.Left, hdr, m.viewport.View(), footer)
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "server websocket address")
	flag.Parse()

	conn, err := client.Dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	p := tea.NewProgram(newModel(conn), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
