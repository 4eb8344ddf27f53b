package prompt

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func press(m model, keys ...tea.KeyMsg) model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(model)
	}
	return m
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestModelDefaultSelection(t *testing.T) {
	m := newModel("Select version", []string{"v2.0", "v1.0"}, 0)
	m = press(m, keyEnter)
	if !m.done || m.cursor != 0 {
		t.Errorf("enter on default: done=%v cursor=%d", m.done, m.cursor)
	}
}

func TestModelNavigation(t *testing.T) {
	m := newModel("Select asset", []string{"a", "b", "c"}, 0)
	m = press(m, keyDown, keyDown, keyDown, keyUp)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
	m = press(m, keyEnter)
	if !strings.Contains(m.View(), "b") {
		t.Errorf("final view should show choice, got %q", m.View())
	}
}

func TestModelAbort(t *testing.T) {
	m := newModel("Select asset", []string{"a", "b"}, 0)
	m = press(m, keyEsc)
	if !m.aborted {
		t.Error("esc should abort")
	}
}

func TestModelScrolls(t *testing.T) {
	opts := make([]string, 30)
	for i := range opts {
		opts[i] = strings.Repeat("x", i+1)
	}
	m := newModel("Select version", opts, 0)
	for i := 0; i < 20; i++ {
		m = press(m, keyDown)
	}
	if m.offset == 0 {
		t.Error("expected viewport to scroll")
	}
	if m.cursor < m.offset || m.cursor >= m.offset+maxVisible {
		t.Errorf("cursor %d outside viewport starting at %d", m.cursor, m.offset)
	}
}

func TestModelClampsDefault(t *testing.T) {
	m := newModel("Select version", []string{"a"}, 5)
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}
