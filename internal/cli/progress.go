package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/docsum/internal/models"
	"github.com/raphaelgruber/docsum/internal/notice"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Theme holds the color scheme for the watch display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle(s models.JobStatus) lipgloss.Style {
	switch s {
	case models.JobStatusSucceeded:
		return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
	case models.JobStatusFailed:
		return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
	case models.JobStatusUnknown:
		return lipgloss.NewStyle().Foreground(t.Hint)
	default:
		return lipgloss.NewStyle().Foreground(t.Status)
	}
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// refresher reloads the job list.
type refresher interface {
	Refresh(ctx context.Context) ([]models.Job, error)
}

// tickMsg triggers the next refresh.
type tickMsg time.Time

// jobsMsg carries the result of a refresh.
type jobsMsg struct {
	jobs []models.Job
	err  error
}

// watchModel is the bubbletea model that polls the job list until every job
// has left the pending state.
type watchModel struct {
	ctx      context.Context
	tracker  refresher
	interval time.Duration

	jobs     []models.Job
	loaded   bool
	notices  *notice.Slot
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
}

func newWatchModel(ctx context.Context, tracker refresher, interval time.Duration, notices *notice.Slot) watchModel {
	return watchModel{
		ctx:      ctx,
		tracker:  tracker,
		interval: interval,
		notices:  notices,
		progress: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
		theme: defaultTheme,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.refresh(),
		m.progress.Init(),
	)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.refresh()

	case jobsMsg:
		if msg.err != nil {
			// A failed refresh keeps the last list; try again next tick.
			m.notices.Raise(msg.err)
			return m, m.tick()
		}
		m.notices.Dismiss()
		m.jobs = msg.jobs
		m.loaded = true

		if allTerminal(m.jobs) {
			m.done = true
			return m, tea.Quit
		}
		return m, m.tick()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m watchModel) renderContent() string {
	var b strings.Builder

	if !m.loaded {
		b.WriteString("Loading jobs...\n")
	} else {
		finished, total := countTerminal(m.jobs)
		var pct float64
		if total > 0 {
			pct = float64(finished) / float64(total)
		}
		fmt.Fprintf(&b, "%s %d/%d jobs finished\n\n", m.progress.ViewAs(pct), finished, total)
		for _, job := range m.jobs {
			status := m.theme.statusStyle(job.Status).Render(fmt.Sprintf("[%s]", job.Status))
			fmt.Fprintf(&b, "  %-12s %s\n", job.ID, status)
		}
	}

	if msg, ok := m.notices.Current(); ok {
		b.WriteString("\n" + m.theme.errorStyle().Render(msg) + "\n")
	}

	switch {
	case m.quitting:
		b.WriteString("\n" + m.theme.hintStyle().Render("Stopped watching. Jobs keep running on the server.") + "\n")
	case m.done:
		b.WriteString("\n" + m.theme.hintStyle().Render("All jobs finished. Use 'docsum result <job-id>' to read a summary.") + "\n")
	default:
		b.WriteString("\n" + m.theme.hintStyle().Render("Press q to stop watching") + "\n")
	}
	return b.String()
}

func (m watchModel) refresh() tea.Cmd {
	return func() tea.Msg {
		jobs, err := m.tracker.Refresh(m.ctx)
		return jobsMsg{jobs: jobs, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func countTerminal(jobs []models.Job) (finished, total int) {
	for _, j := range jobs {
		if j.Status.Terminal() {
			finished++
		}
	}
	return finished, len(jobs)
}

func allTerminal(jobs []models.Job) bool {
	finished, total := countTerminal(jobs)
	return finished == total
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow jobs until every one has finished",
		Long: `Refresh the job list on an interval (DOCSUM_POLL_INTERVAL) until no
job is pending. Renders a live view on a terminal and plain updates otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, a)
		},
	}
}

// runWatch follows the job list, interactively when stdout is a terminal.
func runWatch(cmd *cobra.Command, a *app) error {
	if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return runWatchUI(cmd.Context(), a)
	}
	return watchPlain(cmd.Context(), cmd.OutOrStdout(), a.tracker, a.cfg.PollInterval)
}

func runWatchUI(ctx context.Context, a *app) error {
	model := newWatchModel(ctx, a.tracker, a.cfg.PollInterval, &a.notices)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("watch UI error: %w", err)
	}
	return nil
}

// watchPlain polls until every job is terminal, printing the list whenever
// it changes. Refresh failures are reported and retried.
func watchPlain(ctx context.Context, w io.Writer, tracker refresher, interval time.Duration) error {
	var last string
	for {
		jobs, err := tracker.Refresh(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(w, "refresh failed: %s\n", notice.Message(err))
		} else {
			var sb strings.Builder
			printJobs(&sb, jobs)
			if text := sb.String(); text != last {
				fmt.Fprint(w, text)
				last = text
			}
			if allTerminal(jobs) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
