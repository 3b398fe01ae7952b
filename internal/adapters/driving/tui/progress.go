package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

const maxBarWidth = 60

// Task is a unit of work that reports progress.
type Task func(ctx context.Context, onProgress domain.ProgressFunc) error

// ProgressModel is the Bubbletea model of the progress view.
type ProgressModel struct {
	title  string
	phases []domain.Phase
	cancel context.CancelFunc

	styles  *styles.Styles
	keys    *keymap.KeyMap
	help    help.Model
	bar     progress.Model
	spinner spinner.Model

	current    domain.Progress
	reached    map[domain.Phase]bool
	cancelling bool
	detached   bool
	done       bool
	err        error
}

// NewProgressModel creates a view for a task running through phases.
// cancel is called when the user cancels; it may be nil.
func NewProgressModel(title string, phases []domain.Phase, cancel context.CancelFunc) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	st := styles.DefaultStyles()
	s.Style = st.Title

	bar := progress.New(progress.WithGradient(string(st.Theme().Accent), string(st.Theme().Domain)))
	bar.Width = maxBarWidth

	return ProgressModel{
		title:   title,
		phases:  phases,
		cancel:  cancel,
		styles:  st,
		keys:    keymap.DefaultKeyMap(),
		help:    help.New(),
		bar:     bar,
		spinner: s,
		reached: make(map[domain.Phase]bool),
	}
}

// Init starts the spinner.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles task messages, keys and animation frames.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case keymap.Matches(msg.String(), m.keys.Cancel):
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
			return m, nil
		case keymap.Matches(msg.String(), m.keys.Detach):
			m.detached = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(maxBarWidth, max(10, msg.Width-4))
		m.help.Width = msg.Width
		return m, nil

	case messages.ProgressUpdate:
		m.current = msg.Progress
		m.reached[msg.Progress.Phase] = true
		return m, m.bar.SetPercent(float64(msg.Progress.Percent) / 100)

	case messages.TaskDone:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case progress.FrameMsg:
		updated, cmd := m.bar.Update(msg)
		if bar, ok := updated.(progress.Model); ok {
			m.bar = bar
		}
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the phase list, bar, detail line and key help.
func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n\n")

	active := m.activeIndex()
	for i, phase := range m.phases {
		switch {
		case m.done && m.err == nil, i < active:
			b.WriteString(m.styles.Success.Render("✓ " + string(phase)))
		case i == active && m.done:
			b.WriteString(m.styles.Error.Render("✗ " + string(phase)))
		case i == active:
			b.WriteString(m.spinner.View() + " " + m.styles.Text.Render(string(phase)))
		default:
			b.WriteString(m.styles.Dim.Render("  " + string(phase)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.bar.View())
	b.WriteString("\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(m.styles.Error.Render(m.err.Error()))
	case m.cancelling:
		b.WriteString(m.styles.Warning.Render("cancelling..."))
	default:
		b.WriteString(m.styles.Dim.Render(m.current.Detail))
	}
	b.WriteString("\n")

	if !m.done {
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
		b.WriteString("\n")
	}
	return b.String()
}

// Detached reports whether the user left the view before the task finished.
func (m ProgressModel) Detached() bool {
	return m.detached
}

// Err returns the task error once done.
func (m ProgressModel) Err() error {
	return m.err
}

// activeIndex is the index of the latest phase reported, -1 before any.
func (m ProgressModel) activeIndex() int {
	for i := len(m.phases) - 1; i >= 0; i-- {
		if m.reached[m.phases[i]] {
			return i
		}
	}
	return -1
}

// RunProgress runs task behind the progress view and returns its error.
// If the user detaches, the view closes and the remaining progress is
// written to out as plain lines.
func RunProgress(ctx context.Context, out io.Writer, title string, phases []domain.Phase, task Task) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewProgressModel(title, phases, cancel)
	program := tea.NewProgram(model, tea.WithOutput(out))

	var detached atomic.Bool
	lines := LineReporter(out)
	onProgress := func(p domain.Progress) {
		if detached.Load() {
			lines(p)
			return
		}
		program.Send(messages.ProgressUpdate{Progress: p})
	}

	done := make(chan error, 1)
	go func() {
		err := task(ctx, onProgress)
		program.Send(messages.TaskDone{Err: err})
		done <- err
	}()

	final, err := program.Run()
	if err != nil {
		cancel()
		<-done
		return fmt.Errorf("progress view: %w", err)
	}
	if fm, ok := final.(ProgressModel); ok && fm.Detached() {
		detached.Store(true)
		fmt.Fprintln(out, "detached; progress continues below")
	}
	return <-done
}

// LineReporter returns a ProgressFunc that writes one line per change of
// phase or percent. It is safe for concurrent use.
func LineReporter(w io.Writer) domain.ProgressFunc {
	var mu sync.Mutex
	var last domain.Progress
	started := false

	return func(p domain.Progress) {
		mu.Lock()
		defer mu.Unlock()

		if started && p.Phase == last.Phase && p.Percent == last.Percent && p.Err == nil {
			return
		}
		started = true
		last = p

		line := fmt.Sprintf("[%3d%%] %-11s %s", p.Percent, p.Phase, p.Detail)
		if p.Err != nil {
			line = fmt.Sprintf("[%3d%%] %-11s failed: %v", p.Percent, p.Phase, p.Err)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
