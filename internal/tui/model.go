package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/squadron/internal/orchestrator"
)

// DefaultRefreshInterval is how often the dashboard polls its Source.
const DefaultRefreshInterval = 2 * time.Second

// queryTimeout bounds one refresh of the dashboard.
const queryTimeout = 10 * time.Second

// Source is what the dashboard reads. *orchestrator.Facade implements it.
type Source interface {
	List(ctx context.Context) (orchestrator.ListResult, error)
	ActiveClaims(ctx context.Context) (orchestrator.ClaimsResult, error)
	TeamStatus(ctx context.Context, req orchestrator.TeamStatusRequest) (orchestrator.TeamStatusResult, error)
	Screen(ctx context.Context, req orchestrator.ScreenRequest) (orchestrator.ScreenResult, error)
}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Screen  key.Binding
	Refresh key.Binding
	Close   key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Screen:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "screen")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close screen")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

// snapshotMsg carries one refresh of the dashboard data.
type snapshotMsg struct {
	members orchestrator.ListResult
	claims  orchestrator.ClaimsResult
	team    orchestrator.TeamStatusResult
	at      time.Time
	err     error
}

type screenMsg struct {
	result orchestrator.ScreenResult
	err    error
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	src      Source
	interval time.Duration

	members table.Model
	snap    snapshotMsg
	screen  *orchestrator.ScreenResult
	err     error

	width  int
	height int
}

// New creates a dashboard over src. A non-positive interval uses
// DefaultRefreshInterval.
func New(src Source, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	t := table.New(
		table.WithColumns(memberColumns(80)),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	return Model{src: src, interval: interval, members: t}
}

// Run shows the dashboard until the user quits or ctx is done.
func Run(ctx context.Context, src Source, interval time.Duration) error {
	p := tea.NewProgram(New(src, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refresh() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()

		snap := snapshotMsg{at: time.Now()}
		if snap.members, snap.err = src.List(ctx); snap.err != nil {
			return snap
		}
		if snap.claims, snap.err = src.ActiveClaims(ctx); snap.err != nil {
			return snap
		}
		snap.team, snap.err = src.TeamStatus(ctx, orchestrator.TeamStatusRequest{})
		return snap
	}
}

func (m Model) captureScreen(memberID string) tea.Cmd {
	src := m.src
	lines := m.screenLines()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		res, err := src.Screen(ctx, orchestrator.ScreenRequest{MemberID: memberID, Lines: lines})
		return screenMsg{result: res, err: err}
	}
}

func (m Model) screenLines() int {
	if m.height > 20 {
		return m.height - 20
	}
	return 10
}

// Init starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.members.SetColumns(memberColumns(msg.Width))
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), m.tick())

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg
			m.members.SetRows(memberRows(msg.members))
		}
		return m, nil

	case screenMsg:
		m.err = msg.err
		if msg.err == nil {
			res := msg.result
			m.screen = &res
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.members, cmd = m.members.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, keys.Close):
		m.screen = nil
		return m, nil
	case key.Matches(msg, keys.Screen):
		if id := m.selectedMember(); id != "" {
			return m, m.captureScreen(id)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.members, cmd = m.members.Update(msg)
	return m, cmd
}

func (m Model) selectedMember() string {
	row := m.members.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}
