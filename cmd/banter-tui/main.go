// Banter TUI - terminal chat client for the Banter service.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/banterlabs/banter/clients/go/banter"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type resumeDoneMsg struct{}

type sendDoneMsg struct{ err error }

type threadDoneMsg struct{ err error }

type noticeMsg string

type model struct {
	session *banter.Session
	picker  *banter.AttachmentPicker
	notices chan string

	vp    viewport.Model
	input textinput.Model
	spin  spinner.Model

	styleIdx int
	status   string
	busy     bool
	ready    bool
	quitting bool
}

func newModel(session *banter.Session, notices chan string) model {
	ti := textinput.New()
	ti.Placeholder = "type a message, /help for commands"
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		session: session,
		picker:  banter.NewAttachmentPicker(),
		notices: notices,
		input:   ti,
		spin:    sp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.resumeCmd(), m.waitForNotice(), m.spin.Tick)
}

func (m model) resumeCmd() tea.Cmd {
	return func() tea.Msg {
		m.session.Resume(context.Background())
		return resumeDoneMsg{}
	}
}

func (m model) sendCmd(text string, att *banter.Attachment) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		return sendDoneMsg{err: m.session.Send(ctx, text, att)}
	}
}

func (m model) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-m.notices)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp = viewport.New(msg.Width, msg.Height-5)
		m.ready = true
		m.refreshTranscript()
		return m, nil

	case resumeDoneMsg:
		m.busy = false
		m.refreshTranscript()
		return m, nil

	case sendDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		m.refreshTranscript()
		return m, nil

	case threadDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		m.refreshTranscript()
		return m, nil

	case noticeMsg:
		m.status = string(msg)
		return m, m.waitForNotice()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.picker.Clear()
			m.quitting = true
			return m, tea.Quit

		case "tab":
			m.styleIdx = (m.styleIdx + 1) % len(banter.StylePresets)
			m.session.SetStyle(banter.StylePresets[m.styleIdx].Style)
			return m, nil

		case "enter":
			return m.submit()

		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.busy {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	var att *banter.Attachment
	if pending := m.picker.Pending(); pending != nil {
		encoded, err := m.picker.Encode()
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		att = encoded
		m.picker.Clear()
	}

	m.busy = true
	m.status = ""
	m.refreshTranscript()
	return m, m.sendCmd(text, att)
}

func (m model) runCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/help":
		m.status = "/new, /switch <id>, /delete <id>, /attach <path>, /detach; tab cycles style"

	case "/new":
		m.busy = true
		return m, func() tea.Msg {
			return threadDoneMsg{err: m.session.NewThread(context.Background())}
		}

	case "/switch":
		if len(fields) < 2 {
			m.status = "usage: /switch <thread_id>"
			return m, nil
		}
		m.busy = true
		return m, func() tea.Msg {
			m.session.SwitchThread(context.Background(), fields[1])
			return threadDoneMsg{}
		}

	case "/delete":
		if len(fields) < 2 {
			m.status = "usage: /delete <thread_id>"
			return m, nil
		}
		m.busy = true
		return m, func() tea.Msg {
			return threadDoneMsg{err: m.session.DeleteThread(context.Background(), fields[1])}
		}

	case "/attach":
		if len(fields) < 2 {
			m.status = "usage: /attach <path>"
			return m, nil
		}
		if err := m.picker.Pick(fields[1]); err != nil {
			m.status = err.Error()
		} else {
			m.status = "attached: " + fields[1]
		}

	case "/detach":
		m.picker.Clear()
		m.status = "attachment cleared"

	default:
		m.status = "unknown command: " + fields[0]
	}
	return m, nil
}

func (m *model) refreshTranscript() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, turn := range m.session.Turns() {
		line := fmt.Sprintf("%s  %s", turn.Timestamp.Local().Format("15:04"), turn.Content)
		switch {
		case turn.Provisional():
			b.WriteString(pendingStyle.Render("you  " + line))
		case turn.Role == banter.RoleUser:
			b.WriteString(userStyle.Render("you  ") + line)
		default:
			b.WriteString(assistantStyle.Render("wing ") + line)
		}
		b.WriteString("\n")
	}
	m.vp.SetContent(b.String())
	m.vp.GotoBottom()
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}

	thread := m.session.CurrentThread()
	if thread == "" {
		thread = "(new conversation)"
	}
	header := headerStyle.Render("banter") + "  " +
		helpStyle.Render(thread) + "  " +
		helpStyle.Render("style: "+banter.StylePresets[m.styleIdx].Label)

	status := m.status
	if m.busy {
		status = m.spin.View() + " working..."
	}
	if m.picker.Pending() != nil && status == "" {
		status = "attachment ready"
	}

	return header + "\n" +
		m.vp.View() + "\n" +
		noticeStyle.Render(status) + "\n" +
		m.input.View()
}

func main() {
	baseURL := os.Getenv("BANTER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	configDir := banter.ConfigDir()
	creds, err := banter.LoadCredentials(configDir)
	if err != nil || creds == nil || creds.Token == "" {
		fmt.Fprintln(os.Stderr, "no credentials found; run `banter register` first")
		os.Exit(1)
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)

	notices := make(chan string, 8)
	client := banter.NewClient(baseURL, creds.Provider())
	threads := banter.NewThreadManager(client, banter.NewFileThreadStore(configDir), logger)
	session := banter.NewSession(client, threads, banter.NotifierFunc(func(msg string) {
		select {
		case notices <- msg:
		default:
		}
	}), logger)

	p := tea.NewProgram(newModel(session, notices), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
