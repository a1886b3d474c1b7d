package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/miniBill/elm-dedup-project/internal/engine"
)

const fps = 20

type tickMsg time.Time

// Model renders the engine state at a bounded frame rate and handles the
// quit and export keys. It never blocks the workers: every frame works on
// copied-out snapshots.
type Model struct {
	state      *engine.State
	start      time.Time
	exportPath string
	gauge      progress.Model
	width      int
	height     int
	err        error
}

func newModel(state *engine.State, exportPath string) Model {
	gauge := progress.New(progress.WithDefaultGradient())
	gauge.ShowPercentage = false
	return Model{
		state:      state,
		start:      time.Now(),
		exportPath: exportPath,
		gauge:      gauge,
	}
}

// Run blocks until the user quits, an export fails, or ctx is cancelled.
// bubbletea restores the terminal on every exit path, error paths included.
func Run(ctx context.Context, state *engine.State, exportPath string) error {
	program := tea.NewProgram(
		newModel(state, exportPath),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	final, err := program.Run()
	if err != nil {
		// externally triggered shutdown, not a dashboard failure
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	if m, ok := final.(Model); ok {
		return m.err
	}
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.gauge.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "e":
			if err := engine.ExportFile(m.exportPath, m.state.CompletedSnapshot()); err != nil {
				m.err = err
				return m, tea.Quit
			}
		}
	}
	return m, nil
}
