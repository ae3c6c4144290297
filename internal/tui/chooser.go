package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"canvas-cli/internal/engine"
)

// Chooser asks the human at the terminal to pick one option. Prompts are
// shown one at a time.
type Chooser struct {
	In  io.Reader
	Out io.Writer

	mu sync.Mutex
}

func (c *Chooser) Choose(ctx context.Context, title string, choices []engine.Choice) (string, bool, error) {
	if len(choices) == 0 {
		return "", false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.In != nil {
		opts = append(opts, tea.WithInput(c.In))
	}
	if c.Out != nil {
		opts = append(opts, tea.WithOutput(c.Out))
	} else {
		applyColorProfile()
	}
	final, err := tea.NewProgram(newChooserModel(title, choices), opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("chooser: %w", err)
	}
	m, ok := final.(chooserModel)
	if !ok || !m.chosen {
		return "", false, nil
	}
	return m.choice, true, nil
}

type choiceItem struct {
	c     engine.Choice
	width int
}

func (i choiceItem) Title() string {
	if s := strings.TrimSpace(i.c.Label); s != "" {
		return s
	}
	return i.c.Value
}

func (i choiceItem) Description() string {
	d := strings.TrimSpace(i.c.Description)
	if i.width > 4 {
		d = ansi.Truncate(d, i.width-4, "…")
	}
	return d
}

func (i choiceItem) FilterValue() string {
	return strings.ToLower(i.Title() + " " + i.c.Description + " " + i.c.Value)
}

const (
	defaultChooserWidth  = 72
	defaultChooserHeight = 16
)

type chooserModel struct {
	title   string
	choices []engine.Choice
	list    list.Model
	width   int

	choice string
	chosen bool
}

func newChooserModel(title string, choices []engine.Choice) chooserModel {
	m := chooserModel{title: strings.TrimSpace(title), choices: choices}
	m.list = newList(m.title, m.items(defaultChooserWidth))
	m.resize(defaultChooserWidth, defaultChooserHeight)
	return m
}

func (m chooserModel) items(width int) []list.Item {
	out := make([]list.Item, 0, len(m.choices))
	for _, c := range m.choices {
		out = append(out, choiceItem{c: c, width: width})
	}
	return out
}

func (m *chooserModel) resize(w, h int) {
	m.width = w
	// Title line, blank line and footer.
	listH := h - 4
	if listH < 3 {
		listH = 3
	}
	m.list.SetSize(w, listH)
}

func (m chooserModel) Init() tea.Cmd { return nil }

func (m chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.list.SetItems(m.items(msg.Width))
		return m, nil
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if it, ok := m.list.SelectedItem().(choiceItem); ok {
				m.choice = it.c.Value
				m.chosen = true
			}
			return m, tea.Quit
		case "esc", "ctrl+c", "q":
			m.chosen = false
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m chooserModel) View() string {
	var b strings.Builder
	b.WriteString(styleTitle().Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.list.View())
	b.WriteString("\n")
	b.WriteString(styleMuted().Render("enter select · / filter · esc cancel"))
	return b.String()
}
