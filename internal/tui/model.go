// Package tui is the interactive session screen: the current pose, a phase
// clock, overall progress and what comes next, driven by the keyboard.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roach88/poser/internal/engine"
	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/session"
)

// Controller is the part of session.Controller the screen drives.
type Controller interface {
	View(upcoming int) session.View
	PoseFor(ref ir.PoseRef) ir.Pose
	Toggle(ctx context.Context) error
	Next()
	Previous()
	Reset()
	Stop()
}

var _ Controller = (*session.Controller)(nil)

// DefaultUpcoming is how many following poses the screen lists.
const DefaultUpcoming = 3

// Model is the bubbletea model of the session screen.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	keys     KeyMap
	help     help.Model
	progress progress.Model

	bigDigits bool
	upcoming  int
	width     int

	view     session.View
	err      error
	quitting bool
}

// Option configures a Model.
type Option func(*Model)

// WithBigDigits renders the phase clock in block digits.
func WithBigDigits(on bool) Option {
	return func(m *Model) { m.bigDigits = on }
}

// WithUpcoming sets how many following poses are listed.
func WithUpcoming(n int) Option {
	return func(m *Model) { m.upcoming = n }
}

// WithKeyMap replaces the default bindings.
func WithKeyMap(k KeyMap) Option {
	return func(m *Model) { m.keys = k }
}

// New creates the screen for ctrl. ctx bounds wake-lock acquisition when a
// session starts.
func New(ctx context.Context, ctrl Controller, opts ...Option) Model {
	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithSolidFill(string(SecondaryColor)), progress.WithoutPercentage()),
		upcoming: DefaultUpcoming,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.view = ctrl.View(m.upcoming)
	return m
}

type tickMsg time.Time

// tick schedules the next redraw. The engine keeps its own clock; the
// screen only samples it.
func tick() tea.Cmd {
	return tea.Tick(engine.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the redraw loop.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = min(max(msg.Width-8, 10), 60)
		return m, nil

	case tickMsg:
		m.view = m.ctrl.View(m.upcoming)
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch {
	case key.Matches(msg, m.keys.Quit):
		// Leaving mid-session records it as stopped.
		m.ctrl.Stop()
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.err = m.ctrl.Toggle(m.ctx)
	case key.Matches(msg, m.keys.Next):
		m.ctrl.Next()
	case key.Matches(msg, m.keys.Previous):
		m.ctrl.Previous()
	case key.Matches(msg, m.keys.Reset):
		m.ctrl.Reset()
	case key.Matches(msg, m.keys.Stop):
		m.ctrl.Stop()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	default:
		return m, nil
	}
	m.view = m.ctrl.View(m.upcoming)
	return m, nil
}

// Err returns the error from the last key press, if any.
func (m Model) Err() error { return m.err }
