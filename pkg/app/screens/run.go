package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mdhold/pkg/app/components"
	"github.com/kerbaras/mdhold/pkg/app/styles"
	"github.com/kerbaras/mdhold/pkg/services"
)

const recentEvents = 6

// RunScreen shows the progress of one bulk transition. It quits once the
// progress channel is closed, which the caller does when the run returns.
type RunScreen struct {
	events <-chan services.Progress
	stop   func()
	opts   services.Options

	bar     progress.Model
	tracker *components.RunTracker

	stopping bool
	done     bool
}

func NewRunScreen(events <-chan services.Progress, stop func(), opts services.Options) *RunScreen {
	return &RunScreen{
		events: events,
		stop:   stop,
		opts:   opts,
		bar: progress.New(
			progress.WithGradient(string(styles.Secondary), string(styles.Primary)),
			progress.WithWidth(50),
		),
		tracker: components.NewRunTracker(0, recentEvents),
	}
}

func (s *RunScreen) Tracker() *components.RunTracker {
	return s.tracker
}

// Messages
type progressMsg services.Progress

type runFinishedMsg struct{}

// Commands
func (s *RunScreen) waitForProgress() tea.Msg {
	p, ok := <-s.events
	if !ok {
		return runFinishedMsg{}
	}
	return progressMsg(p)
}

func (s *RunScreen) Init() tea.Cmd {
	return s.waitForProgress
}

func (s *RunScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 80 {
			width = 80
		}
		if width > 10 {
			s.bar.Width = width
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// the run stops before its next manga and then closes events
			if !s.stopping {
				s.stopping = true
				s.stop()
			}
		}

	case progressMsg:
		s.tracker.Update(services.Progress(msg))
		return s, s.waitForProgress

	case runFinishedMsg:
		s.done = true
		return s, tea.Quit
	}

	return s, nil
}

func (s *RunScreen) View() string {
	var b strings.Builder

	title := fmt.Sprintf("%s → %s", s.opts.From, s.opts.To)
	if s.opts.Unfollow {
		title += fmt.Sprintf(" (unfollow %s)", s.opts.UnfollowScope)
	}
	if s.opts.DryRun {
		title += " [dry run]"
	}
	b.WriteString(styles.TitleStyle.Render(title))
	b.WriteString("\n")

	if s.tracker.Total == 0 && !s.done {
		b.WriteString(styles.MutedStyle.Render("Fetching statuses..."))
		b.WriteString("\n")
		if s.stopping {
			b.WriteString(styles.HelpStyle.Render("stopping..."))
			b.WriteString("\n")
		}
		return b.String()
	}

	b.WriteString(s.bar.ViewAs(s.tracker.Percent()))
	b.WriteString("\n\n")
	b.WriteString(s.tracker.View())
	b.WriteString("\n")

	switch {
	case s.done:
	case s.stopping:
		b.WriteString(styles.HelpStyle.Render("stopping..."))
	default:
		b.WriteString(styles.HelpStyle.Render("q: stop"))
	}
	b.WriteString("\n")

	return b.String()
}
