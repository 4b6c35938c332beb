package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Action is one tool step. It returns human readable detail lines.
type Action func(context.Context) ([]string, error)

type doneMsg struct {
	details []string
	err     error
	elapsed time.Duration
}

type model struct {
	title   string
	timeout time.Duration
	action  Action
	result  *doneMsg
	aborted bool
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		start := time.Now()
		details, err := m.action(ctx)
		return doneMsg{details: details, err: err, elapsed: time.Since(start)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.aborted = true
			return m, tea.Quit
		}
	case doneMsg:
		m.result = &msg
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if m.result == nil {
		return titleStyle.Render(m.title) + "\n\nrunning...\n"
	}
	return Render(m.title, m.result.details, m.result.err, m.result.elapsed)
}

// Render formats a finished step the same way for the TUI and plain output.
func Render(title string, details []string, err error, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if err != nil {
		b.WriteString(failStyle.Render("FAILED"))
		b.WriteString(": " + err.Error())
	} else {
		b.WriteString(okStyle.Render("OK"))
	}
	if elapsed > 0 {
		b.WriteString(detailStyle.Render(" (" + elapsed.Round(time.Millisecond).String() + ")"))
	}
	b.WriteString("\n")
	for _, d := range details {
		b.WriteString("- " + d + "\n")
	}
	return b.String()
}

// Run executes action under an interactive progress view.
func Run(title string, timeout time.Duration, action Action) ([]string, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	final, err := tea.NewProgram(model{title: title, timeout: timeout, action: action}).Run()
	if err != nil {
		return nil, err
	}
	m := final.(model)
	if m.aborted || m.result == nil {
		return nil, context.Canceled
	}
	return m.result.details, m.result.err
}
