// Package prompt provides the interactive single-choice picker used by the
// CLI. The install pipeline only sees it through selection.Chooser.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrAborted is returned when the user cancels the prompt.
var ErrAborted = errors.New("selection aborted")

// maxVisible is the number of rows shown before the list scrolls.
const maxVisible = 12

var (
	promptStyle   = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	defaultStyle  = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Chooser runs a bubbletea list on a terminal.
type Chooser struct {
	in  io.Reader
	out io.Writer
}

// NewChooser creates a chooser reading from in and drawing to out.
func NewChooser(in io.Reader, out io.Writer) *Chooser {
	return &Chooser{in: in, out: out}
}

// IsInteractive reports whether stdin and stderr are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// Choose blocks until the user picks an option or aborts.
func (c *Chooser) Choose(ctx context.Context, prompt string, options []string, def int) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("%s: no options", prompt)
	}

	m := newModel(prompt, options, def)
	p := tea.NewProgram(m,
		tea.WithInput(c.in),
		tea.WithOutput(c.out),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("run prompt: %w", err)
	}

	result := final.(model)
	if result.aborted {
		return 0, ErrAborted
	}
	return result.cursor, nil
}

type model struct {
	prompt  string
	options []string
	def     int
	cursor  int
	offset  int
	done    bool
	aborted bool
}

func newModel(prompt string, options []string, def int) model {
	if def < 0 || def >= len(options) {
		def = 0
	}
	m := model{prompt: prompt, options: options, def: def, cursor: def}
	m.scroll()
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.options) - 1
	case "enter":
		m.done = true
		return m, tea.Quit
	case "ctrl+c", "esc", "q":
		m.aborted = true
		return m, tea.Quit
	}
	m.scroll()
	return m, nil
}

func (m *model) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+maxVisible {
		m.offset = m.cursor - maxVisible + 1
	}
}

func (m model) View() string {
	var b strings.Builder

	if m.done {
		fmt.Fprintf(&b, "%s %s\n", promptStyle.Render(m.prompt+":"), selectedStyle.Render(m.options[m.cursor]))
		return b.String()
	}
	if m.aborted {
		return ""
	}

	b.WriteString(promptStyle.Render(m.prompt))
	b.WriteString("\n")

	end := min(m.offset+maxVisible, len(m.options))
	for i := m.offset; i < end; i++ {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + m.options[i]))
		} else {
			b.WriteString("  " + m.options[i])
		}
		if i == m.def {
			b.WriteString(defaultStyle.Render(" (default)"))
		}
		b.WriteString("\n")
	}
	if len(m.options) > maxVisible {
		b.WriteString(defaultStyle.Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.options))))
		b.WriteString("\n")
	}
	return b.String()
}
