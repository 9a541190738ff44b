package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bonelab-mod-manager/syncer"
)

// syncModel controls the UI while a sync run streams progress messages.
type syncModel struct {
	title        string
	spinner      spinner.Model
	progressChan <-chan syncer.ProgressMsg

	// State
	status    string
	active    []string
	completed []string
	skipped   []string
	errors    []string
	summary   string
	done      bool
}

func newSyncModel(title string, progress <-chan syncer.ProgressMsg) syncModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return syncModel{
		title:        title,
		spinner:      s,
		progressChan: progress,
		status:       "Initializing...",
	}
}

func (m syncModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForActivity(),
	)
}

func (m syncModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.progressChan
		if !ok {
			return syncer.ProgressMsg{Type: "done"}
		}
		return msg
	}
}

func (m syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// If done, allow any key to exit
		if m.done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case syncer.ProgressMsg:
		switch msg.Type {
		case "done":
			m.done = true
			m.status = "Finished"
			return m, tea.Quit

		case "status":
			m.status = fmt.Sprintf("%s: %s", msg.Name, msg.Message)

		case "action_start":
			m.status = fmt.Sprintf("%s %s...", msg.Message, msg.Name)
			m.active = append(m.active, msg.Name)

		case "action_done":
			m.removeFromActive(msg.Name)
			if msg.Message != "" {
				m.completed = append(m.completed, fmt.Sprintf("%s (%s)", msg.Name, msg.Message))
			} else {
				m.completed = append(m.completed, msg.Name)
			}

		case "action_skipped":
			m.removeFromActive(msg.Name)
			m.skipped = append(m.skipped, msg.Name)

		case "error":
			m.removeFromActive(msg.Name)
			m.errors = append(m.errors, fmt.Sprintf("%s: %s", msg.Name, msg.Message))

		case "summary":
			m.summary = msg.Message
		}

		return m, m.waitForActivity()
	}

	return m, nil
}

func (m *syncModel) removeFromActive(name string) {
	for i, v := range m.active {
		if v == name {
			m.active = append(m.active[:i], m.active[i+1:]...)
			return
		}
	}
}

func (m syncModel) View() string {
	var symbol string
	if m.done {
		symbol = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
	} else {
		symbol = m.spinner.View()
	}

	s := fmt.Sprintf("\n %s %s — %s\n\n", symbol, m.title, m.status)

	if len(m.errors) > 0 {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Errors:") + "\n"
		for _, e := range m.errors {
			s += fmt.Sprintf("  • %s\n", e)
		}
		s += "\n"
	}

	// Show last few completed
	if len(m.completed) > 0 {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("Completed:") + "\n"
		start := 0
		if len(m.completed) > 5 && !m.done {
			start = len(m.completed) - 5
		}
		for i := start; i < len(m.completed); i++ {
			s += fmt.Sprintf("  • %s\n", m.completed[i])
		}
		s += "\n"
	}

	if len(m.skipped) > 0 && m.done {
		s += lipgloss.NewStyle().Faint(true).Render("Skipped:") + "\n"
		for _, sk := range m.skipped {
			s += fmt.Sprintf("  • %s\n", sk)
		}
		s += "\n"
	}

	if m.done {
		s += lipgloss.NewStyle().Bold(true).Render(m.summary) + "\n"
	}

	return s
}
