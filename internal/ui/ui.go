package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/practice"
	"github.com/desertthunder/practx/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	CardsView
	QuitView
)

// refreshInterval is how often the view redraws the running stopwatch.
const refreshInterval = time.Second

// SongLoader fetches the song whose exercises become cards.
type SongLoader interface {
	GetSong(ctx context.Context, songID string) (*models.Song, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	loader SongLoader
	engine *practice.Engine
	songID string
	song   *models.Song
	cards  []*practice.CardState
	width  int
	height int
	list   list.Model
	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, loader SongLoader, engine *practice.Engine, songID string) *Model {
	return &Model{
		ctx:    ctx,
		view:   LoadingView,
		loader: loader,
		engine: engine,
		songID: songID,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init initializes the TUI by fetching the song and starting the redraw tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchSong(), tick())
}

// Update handles incoming messages and updates the model state.
//
// Every key press and mouse event counts as activity and pushes back the engine's inactivity deadline.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == CardsView {
			m.list.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.MouseMsg:
		m.engine.NotifyActivity()
		return m, nil

	case tea.KeyMsg:
		m.engine.NotifyActivity()
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgSongLoaded:
			return m.handleSongLoaded(msg)
		case MsgTick:
			if m.view == QuitView {
				return m, nil
			}
			return m, tick()
		}
	}

	if m.view != CardsView {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LoadingView:
		return fmt.Sprintf("Loading song %s...", m.songID)
	case CardsView:
		return m.renderCards()
	case QuitView:
		return "Saving practice time...\n"
	default:
		return ""
	}
}

// Cards returns the exercise cards in display order.
func (m *Model) Cards() []*practice.CardState {
	return m.cards
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		m.engine.StopActive()
		m.view = QuitView
		return m, tea.Quit
	}

	if m.view != CardsView {
		return m, nil
	}
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.toggle):
		if card := m.selected(); card != nil {
			m.engine.Toggle(card)
			m.status = ""
		}
		return m, nil

	case key.Matches(msg, m.keys.stop):
		if card := m.selected(); card != nil {
			m.engine.Stop(card)
		}
		return m, nil

	case key.Matches(msg, m.keys.rep):
		if card := m.selected(); card != nil {
			if err := m.engine.AddReps(card, 1); err != nil {
				m.status = err.Error()
			} else {
				m.status = fmt.Sprintf("%s: %d reps", card.Name(), card.TotalReps())
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleSongLoaded(msg Msg) (tea.Model, tea.Cmd) {
	data := msg.data.(struct {
		song *models.Song
		err  error
	})
	if data.err != nil {
		m.err = data.err
		return m, nil
	}

	m.song = data.song
	m.cards = make([]*practice.CardState, 0, len(data.song.Exercises))
	items := make([]list.Item, 0, len(data.song.Exercises))
	for _, ex := range data.song.Exercises {
		// untracked transitions stay stored but get no card
		if ex.IsTransition && !ex.IsTracked {
			continue
		}
		card := practice.NewCardState(data.song.ID, ex.ID, ex.Name, ex.TotalPracticedSeconds, ex.TotalReps)
		card.Display(shared.FormatClock(ex.TotalPracticedSeconds))
		m.cards = append(m.cards, card)
		items = append(items, cardItem{card: card, exercise: ex})
	}

	m.list = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.list.Title = data.song.Title
	if data.song.Artist != "" {
		m.list.Title = fmt.Sprintf("%s - %s", data.song.Title, data.song.Artist)
	}
	m.list.SetShowHelp(false)
	m.list.DisableQuitKeybindings()
	m.list.SetSize(m.width-4, m.height-8)
	m.view = CardsView

	return m, nil
}

func (m *Model) selected() *practice.CardState {
	item, ok := m.list.SelectedItem().(cardItem)
	if !ok {
		return nil
	}
	return item.card
}

func (m *Model) fetchSong() tea.Cmd {
	return func() tea.Msg {
		song, err := m.loader.GetSong(m.ctx, m.songID)
		return songLoadedMsg(song, err)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) renderCards() string {
	header := styles.help.Render("idle")
	if snap := m.engine.Snapshot(); snap.State == practice.Running {
		name := snap.Card.ExerciseID
		for _, c := range m.cards {
			if c.ExerciseID() == snap.Card.ExerciseID {
				name = c.Name()
			}
		}
		header = fmt.Sprintf("%s %s", styles.timing.Render(name), styles.clock.Render(shared.FormatClock(snap.LocalSeconds)))
	}

	status := ""
	if m.status != "" {
		status = "\n" + styles.warn.Render(m.status)
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", header, m.list.View(), status, m.help.ShortHelpView(m.keys.ShortHelp()))
}
