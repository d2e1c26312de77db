package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
)

var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	traceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("4")).Foreground(lipgloss.Color("15"))
)

type answerMsg struct {
	answer *agent.Answer
	err    error
}

type model struct {
	ctx  context.Context
	conv Conversation

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	transcript []string
	busy       bool
	width      int
}

func newModel(ctx context.Context, conv Conversation) model {
	input := textinput.New()
	input.Placeholder = "Ask about your spreadsheets…"
	input.Prompt = "> "
	input.Focus()

	vp := viewport.New(80, 20)
	// Letters belong to the input; only paging keys scroll the transcript.
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	m := model{
		ctx:      ctx,
		conv:     conv,
		viewport: vp,
		input:    input,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(traceStyle)),
		width:    80,
	}
	m.appendLine(noticeStyle.Render(helpText))
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) appendLine(line string) {
	m.transcript = append(m.transcript, line)
	m.refresh()
}

func (m *model) refresh() {
	wrap := lipgloss.NewStyle().Width(m.width)
	m.viewport.SetContent(wrap.Render(strings.Join(m.transcript, "\n")))
	m.viewport.GotoBottom()
}

func (m model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.conv.Ask(m.ctx, question)
		return answerMsg{answer: answer, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-3, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			return m.submit(line)
		}

	case answerMsg:
		m.busy = false
		if msg.answer != nil {
			for _, l := range traceLines(msg.answer) {
				m.appendLine(traceStyle.Render(l))
			}
		}
		switch {
		case msg.err != nil && errors.Is(msg.err, agent.ErrMaxTurns):
			m.appendLine(errorStyle.Render("The agent ran out of turns before answering."))
		case msg.err != nil:
			m.appendLine(errorStyle.Render("error: " + msg.err.Error()))
		default:
			m.appendLine(agentStyle.Render(m.conv.AgentName() + ": " + msg.answer.Text))
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) submit(line string) (tea.Model, tea.Cmd) {
	switch parseCommand(line) {
	case cmdExit:
		return m, tea.Quit
	case cmdReset:
		m.conv.Reset()
		m.transcript = nil
		m.appendLine(noticeStyle.Render("Started a new session."))
		return m, nil
	case cmdTools:
		m.appendLine(noticeStyle.Render(toolsText(m.conv)))
		return m, nil
	case cmdHelp, cmdUnknown:
		m.appendLine(noticeStyle.Render(helpText))
		return m, nil
	}

	m.appendLine(userStyle.Render("you: ") + line)
	m.busy = true
	return m, tea.Batch(m.ask(line), m.spinner.Tick)
}

func (m model) View() string {
	status := ""
	if m.busy {
		status = m.spinner.View() + traceStyle.Render(" thinking…")
	}
	return titleStyle.Render("spreadsheet-agent · "+m.conv.AgentName()) + "\n" +
		m.viewport.View() + "\n" +
		status + "\n" +
		m.input.View()
}

// RunTUI runs the full-screen chat until the user quits or ctx ends.
func RunTUI(ctx context.Context, conv Conversation) error {
	program := tea.NewProgram(newModel(ctx, conv), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
