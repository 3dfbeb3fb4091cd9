package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/canonmap/canonmap/pkg/client"
)

// Config
const (
	pollRate       = 2 * time.Second
	viewportHeight = 14
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	ackStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	checkedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	taskAgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
)

type tickMsg time.Time

type dataMsg struct {
	routine client.RoutineState
	err     error
}

type reportMsg struct {
	report client.ValidationReport
	err    error
}

type model struct {
	api      *client.Client
	backoff  *client.ExponentialBackoff
	failures int

	spinner  spinner.Model
	viewport viewport.Model
	routine  client.RoutineState
	report   client.ValidationReport
	err      error
	ready    bool
}

func initialModel(endpoint string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(100, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)

	return model{
		api:      client.NewClient(endpoint),
		backoff:  client.DefaultBackoff(),
		spinner:  s,
		viewport: vp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchRoutine(m.api),
		runValidation(m.api),
		tick(pollRate),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "v":
			// Running validation also checks off the weekly item.
			return m, runValidation(m.api)
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchRoutine(m.api), tick(m.nextPoll()))

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
			m.failures++
		} else {
			m.err = nil
			m.failures = 0
			m.routine = msg.routine
		}
		if !m.ready {
			m.ready = true
		}

	case reportMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.report = msg.report
			m.updateViewportContent()
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	return m, tea.Batch(cmds...)
}

// nextPoll backs off while the daemon is unreachable.
func (m model) nextPoll() time.Duration {
	if m.failures == 0 {
		return pollRate
	}
	return m.backoff.Next(m.failures - 1)
}

func (m *model) updateViewportContent() {
	var sb strings.Builder

	for _, f := range m.report.Errors {
		if f.Acknowledged {
			sb.WriteString(ackStyle.Render("ERROR "+f.Message) + "\n")
		} else {
			sb.WriteString(errorStyle.Render("ERROR") + " " + f.Message + "\n")
		}
	}
	for _, f := range m.report.Warnings {
		sb.WriteString(warnStyle.Render("WARN ") + " " + f.Message + "\n")
	}
	if m.report.Vacation.Active {
		for _, gap := range m.report.Vacation.Gaps {
			sb.WriteString(warnStyle.Render("GAP  ") + " " + gap + "\n")
		}
	}
	if sb.Len() == 0 {
		sb.WriteString(okStyle.Render("Graph is clean."))
	}

	m.viewport.SetContent(sb.String())
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Connecting...", m.spinner.View())
	}

	// Top pane: today's routine
	var routinePane strings.Builder
	routinePane.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Daily Review") + "\n\n")

	doneToday := 0
	for _, v := range m.routine.Daily {
		if v {
			doneToday++
		}
	}
	routinePane.WriteString(fmt.Sprintf("%s  %d/%d today  •  streaks %dd / %dw\n\n",
		m.routine.TodayKey, doneToday, m.routine.Threshold,
		m.routine.DailyStreak, m.routine.WeeklyStreak))

	if len(m.routine.DueTasks) == 0 {
		routinePane.WriteString(subtleStyle.Render("Nothing due for review."))
	} else {
		for _, t := range m.routine.DueTasks {
			mark := "[ ]"
			if m.routine.Daily[t.ID] {
				mark = checkedStyle.Render("[x]")
			}
			age := taskAgeStyle.Render(fmt.Sprintf("%dd", t.AgeDays))
			if t.NeverCompleted {
				age = taskAgeStyle.Render("new")
			}
			routinePane.WriteString(fmt.Sprintf("%s %s %s\n", mark, t.Text, age))
		}
	}

	routinePane.WriteString("\n" + lipgloss.NewStyle().Bold(true).Render("Week of "+m.routine.WeekKey) + "\n")
	for _, wt := range m.routine.WeeklyTasks {
		mark := "[ ]"
		if m.routine.Weekly[wt.ID] {
			mark = checkedStyle.Render("[x]")
		}
		routinePane.WriteString(fmt.Sprintf("%s %s %s\n", mark, wt.ID, wt.Text))
	}

	topPane := paneStyle.Render(routinePane.String())

	// Bottom pane: validation findings
	header := headerStyle.Render(fmt.Sprintf("%s Validation", m.spinner.View()))
	bottomPane := m.viewport.View()

	// Status footer
	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d errors • %d warnings",
			m.report.Summary.Errors, m.report.Summary.Warnings))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress v to validate, q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func fetchRoutine(api *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		routine, err := api.Routine(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		return dataMsg{routine: routine}
	}
}

func runValidation(api *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		report, err := api.Validate(ctx)
		if err != nil {
			return reportMsg{err: err}
		}
		return reportMsg{report: report}
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	endpoint := os.Getenv("CANONMAP_ENDPOINT")

	p := tea.NewProgram(initialModel(endpoint), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
