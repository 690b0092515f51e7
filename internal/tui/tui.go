// internal/tui/tui.go
// Package tui provides the terminal interface: an endpoint field with a
// "Fetch Data" action and a question field with an "Ask Query" action.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/jsonrag/internal/logging"
	"github.com/mwiater/jsonrag/internal/ragerr"
	"github.com/mwiater/jsonrag/internal/session"
	"github.com/mwiater/jsonrag/internal/util"
)

// Session is the part of session.Controller the UI drives.
type Session interface {
	Ingest(ctx context.Context, endpoint string) (session.Summary, error)
	Ask(ctx context.Context, question string) (string, error)
	Snapshot() (session.State, bool)
}

// focusTarget is the element that receives key input.
type focusTarget int

const (
	focusEndpoint focusTarget = iota
	focusFetchButton
	focusQuestion
	focusAskButton
	focusCount
)

const maxPreviewLines = 200

type model struct {
	ctx     context.Context
	session Session

	endpoint textinput.Model
	question textinput.Model
	focus    focusTarget

	spinner  spinner.Model
	viewport viewport.Model

	busy      bool
	action    string
	startedAt time.Time
	err       error
	notice    string
	output    string
	status    session.Summary
	hasData   bool

	width, height int
}

// ingestDoneMsg carries the outcome of a "Fetch Data" action.
type ingestDoneMsg struct {
	summary session.Summary
	payload string
	err     error
}

// answerMsg carries the outcome of an "Ask Query" action.
type answerMsg struct {
	question string
	answer   string
	err      error
}

func newModel(ctx context.Context, s Session) *model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	endpoint := textinput.New()
	endpoint.Prompt = "Endpoint: "
	endpoint.Placeholder = "https://api.example.com/data.json"
	endpoint.CharLimit = 2048
	endpoint.Focus()

	question := textinput.New()
	question.Prompt = "Question: "
	question.Placeholder = "Ask something about the fetched data..."
	question.CharLimit = -1

	return &model{
		ctx:      ctx,
		session:  s,
		endpoint: endpoint,
		question: question,
		spinner:  sp,
		viewport: viewport.New(100, 10),
	}
}

func ingestCmd(ctx context.Context, s Session, endpoint string) tea.Cmd {
	return func() tea.Msg {
		summary, err := s.Ingest(ctx, endpoint)
		if err != nil {
			return ingestDoneMsg{err: err}
		}
		state, _ := s.Snapshot()
		return ingestDoneMsg{summary: summary, payload: renderPayload(state)}
	}
}

func askCmd(ctx context.Context, s Session, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := s.Ask(ctx, question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// renderPayload pretty-prints the fetched document for display.
func renderPayload(state session.State) string {
	raw, err := json.MarshalIndent(state.Data, "", "  ")
	if err != nil {
		return state.Text
	}
	return string(raw)
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab":
			return m, m.setFocus((m.focus + 1) % focusCount)
		case "shift+tab":
			return m, m.setFocus((m.focus + focusCount - 1) % focusCount)
		case "enter":
			return m, m.run()
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		// leave room for the action button beside each field
		m.endpoint.Width = max(msg.Width-len(m.endpoint.Prompt)-18, 10)
		m.question.Width = max(msg.Width-len(m.question.Prompt)-18, 10)
		headerHeight := 8
		footerHeight := 2
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		return m, nil

	case ingestDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = msg.summary
		m.hasData = true
		m.output = fmt.Sprintf("Fetched %d records into %d chunks (%d characters).\n\n%s",
			msg.summary.Records, msg.summary.Chunks, msg.summary.Characters,
			util.PreviewLines(msg.payload, maxPreviewLines, m.viewport.Width))
		m.refreshOutput()
		return m, m.setFocus(focusQuestion)

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.output = util.WrapToWidth(fmt.Sprintf("Q: %s\n\n%s", msg.question, msg.answer), m.viewport.Width)
		m.refreshOutput()
		return m, m.setFocus(focusQuestion)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.busy {
		switch m.focus {
		case focusEndpoint:
			m.endpoint, cmd = m.endpoint.Update(msg)
			cmds = append(cmds, cmd)
		case focusQuestion:
			m.question, cmd = m.question.Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// run starts the action that belongs to the focused element.
func (m *model) run() tea.Cmd {
	switch m.focus {
	case focusEndpoint, focusFetchButton:
		endpoint := strings.TrimSpace(m.endpoint.Value())
		if endpoint == "" {
			m.notice = "Enter an endpoint URL first."
			return nil
		}
		logging.LogEvent("[UI] Fetch Data %s", endpoint)
		return m.start("Fetching data", ingestCmd(m.ctx, m.session, endpoint))
	default:
		question := strings.TrimSpace(m.question.Value())
		if question == "" {
			m.notice = "Enter a question first."
			return nil
		}
		logging.LogEvent("[UI] Ask Query")
		return m.start("Answering", askCmd(m.ctx, m.session, question))
	}
}

func (m *model) start(action string, cmd tea.Cmd) tea.Cmd {
	m.busy = true
	m.action = action
	m.startedAt = time.Now()
	m.err = nil
	m.notice = ""
	m.endpoint.Blur()
	m.question.Blur()
	return tea.Batch(m.spinner.Tick, cmd)
}

func (m *model) setFocus(target focusTarget) tea.Cmd {
	m.focus = target
	m.endpoint.Blur()
	m.question.Blur()
	switch target {
	case focusEndpoint:
		return m.endpoint.Focus()
	case focusQuestion:
		return m.question.Focus()
	}
	return nil
}

func (m *model) refreshOutput() {
	m.viewport.SetContent(m.output)
	m.viewport.GotoTop()
}

func (m *model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(m.endpoint.View() + " " + m.button("Fetch Data", focusFetchButton) + "\n")
	b.WriteString(m.question.View() + " " + m.button("Ask Query", focusAskButton) + "\n\n")

	switch {
	case m.busy:
		timer := fmt.Sprintf("%.1f", time.Since(m.startedAt).Seconds())
		fmt.Fprintf(&b, " %s %s... %ss\n", m.spinner.View(), m.action, timer)
	case m.err != nil:
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		b.WriteString(errorStyle.Render(" Error: "+ragerr.Message(m.err)) + "\n")
	case m.notice != "":
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(" "+m.notice) + "\n")
	default:
		b.WriteString("\n")
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(" (tab to move, enter to run, esc to quit)"))
	return b.String()
}

func (m *model) statusLine() string {
	headerStyle := lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	badgeStyle := lipgloss.NewStyle().Background(lipgloss.Color("229")).Foreground(lipgloss.Color("0")).Padding(0, 1).MarginLeft(1)

	if !m.hasData {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			headerStyle.Render("jsonrag"),
			badgeStyle.Render("No data fetched"),
		)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Render("jsonrag"),
		badgeStyle.Render("Endpoint: "+util.TruncateRunes(m.status.Endpoint, 48)),
		badgeStyle.Render(fmt.Sprintf("Records: %d", m.status.Records)),
		badgeStyle.Render(fmt.Sprintf("Chunks: %d", m.status.Chunks)),
		badgeStyle.Render("Build: "+util.ShortID(m.status.BuildID, 8)),
	)
}

func (m *model) button(label string, target focusTarget) string {
	style := lipgloss.NewStyle().Background(lipgloss.Color("0")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	if m.focus == target {
		style = style.Background(lipgloss.Color("205")).Foreground(lipgloss.Color("0"))
	}
	if m.busy {
		style = style.Foreground(lipgloss.Color("240"))
	}
	return style.Render(label)
}

// Run starts the interactive UI and blocks until the user quits.
func Run(ctx context.Context, s Session) error {
	p := tea.NewProgram(newModel(ctx, s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
