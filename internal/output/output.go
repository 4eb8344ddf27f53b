// Package output renders grip's terminal output: status lines with a
// leading marker, tables of packages and registries, and download progress.
//
// Colors are only emitted when the writer is a terminal and NO_COLOR is
// unset; everything else gets plain text.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Markers prefixed to status lines.
const (
	InfoMarker    = "→"
	SuccessMarker = "✓"
	WarnMarker    = "!"
	ErrorMarker   = "✗"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// ColorEnabled reports whether colors should be written to w.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(w)
}

// Printer writes status lines to one writer.
type Printer struct {
	out   io.Writer
	color bool
}

// NewPrinter creates a printer for w, detecting color support.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{out: w, color: ColorEnabled(w)}
}

// NewPlainPrinter creates a printer that never emits colors.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{out: w}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.out }

// Color reports whether the printer emits colors.
func (p *Printer) Color() bool { return p.color }

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) line(marker string, s lipgloss.Style, format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.style(s, marker), fmt.Sprintf(format, args...))
}

// Info prints a "→" progress line.
func (p *Printer) Info(format string, args ...any) {
	p.line(InfoMarker, infoStyle, format, args...)
}

// Success prints a "✓" line.
func (p *Printer) Success(format string, args ...any) {
	p.line(SuccessMarker, successStyle, format, args...)
}

// Warn prints a "!" line.
func (p *Printer) Warn(format string, args ...any) {
	p.line(WarnMarker, warnStyle, format, args...)
}

// Error prints a "✗" line.
func (p *Printer) Error(format string, args ...any) {
	p.line(ErrorMarker, errorStyle, format, args...)
}

// Println prints an unadorned line.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Printf prints formatted text as is.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Dim renders text in a muted color.
func (p *Printer) Dim(text string) string {
	return p.style(dimStyle, text)
}
