package render

import (
	"fmt"
	"strings"

	"plansynth/internal/types"
	"plansynth/internal/world"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Simulator executes plan actions one at a time.
type Simulator interface {
	Apply(a types.Action) error
}

type keyMap struct {
	Next  key.Binding
	Prev  key.Binding
	First key.Binding
	Last  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next},
		{k.First, k.Last},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Next:  key.NewBinding(key.WithKeys("right", "l", "n", " "), key.WithHelp("→/n", "next step")),
	Prev:  key.NewBinding(key.WithKeys("left", "h", "p"), key.WithHelp("←/p", "previous step")),
	First: key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
	Last:  key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Stepper is a bubbletea model that walks through a plan one action at a
// time. Frames are rendered up front, so stepping backwards never replays.
type Stepper struct {
	title  string
	plan   types.Plan
	frames []string
	// failed is the index of the first action the simulator rejected, or -1.
	failed int
	err    error
	pos    int
	keys   keyMap
	help   help.Model
}

// NewStepper replays plan on state and records a frame after each action.
// Replay stops at the first rejected action; the stepper can still show
// every frame up to it.
func NewStepper(title string, state Simulator, plan types.Plan) Stepper {
	m := Stepper{
		title:  title,
		plan:   plan,
		failed: -1,
		keys:   keys,
		help:   help.New(),
	}
	m.frames = append(m.frames, frame(state))
	for i, a := range plan {
		if err := state.Apply(a); err != nil {
			m.failed = i
			m.err = err
			break
		}
		m.frames = append(m.frames, frame(state))
	}
	return m
}

func frame(state Simulator) string {
	switch s := state.(type) {
	case *world.BlocksState:
		return BlocksState("state", s)
	case *world.LogisticsState:
		return LogisticsState("state", s)
	default:
		return fmt.Sprintf("%v", state)
	}
}

// Pos returns the number of actions applied in the current frame.
func (m Stepper) Pos() int { return m.pos }

// Err returns the error of the first rejected action, if any.
func (m Stepper) Err() error { return m.err }

// Frames returns the number of renderable states.
func (m Stepper) Frames() int { return len(m.frames) }

func (m Stepper) Init() tea.Cmd { return nil }

func (m Stepper) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			if m.pos < len(m.frames)-1 {
				m.pos++
			}
		case key.Matches(msg, m.keys.Prev):
			if m.pos > 0 {
				m.pos--
			}
		case key.Matches(msg, m.keys.First):
			m.pos = 0
		case key.Matches(msg, m.keys.Last):
			m.pos = len(m.frames) - 1
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m Stepper) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(m.title))
	b.WriteString(styles.Muted.Render(fmt.Sprintf("  step %d/%d", m.pos, len(m.plan))))
	b.WriteString("\n")

	if m.pos > 0 {
		b.WriteString("did:  " + styles.Action.Render(m.plan[m.pos-1].String()) + "\n")
	}
	switch {
	case m.pos < len(m.plan) && m.pos == m.failed:
		b.WriteString("next: " + styles.Error.Render(m.plan[m.pos].String()) + "\n")
		b.WriteString(styles.Error.Render("rejected: "+m.err.Error()) + "\n")
	case m.pos < len(m.plan):
		b.WriteString("next: " + styles.Action.Render(m.plan[m.pos].String()) + "\n")
	default:
		b.WriteString(styles.Success.Render("plan complete") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().MarginLeft(1).Render(m.frames[m.pos]))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
