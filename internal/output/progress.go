package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Progress renders a single self-overwriting download line. On a writer
// that is not a terminal it stays silent and Finish prints one summary.
type Progress struct {
	mu       sync.Mutex
	out      io.Writer
	tty      bool
	label    string
	interval time.Duration
	last     time.Time
	written  int64
	total    int64
	drawn    bool
}

// NewProgress creates a progress line for label on w.
func NewProgress(w io.Writer, label string) *Progress {
	return &Progress{
		out:      w,
		tty:      IsTerminal(w),
		label:    label,
		interval: 100 * time.Millisecond,
	}
}

// Reset starts a new progress line for label.
func (p *Progress) Reset(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label = label
	p.written, p.total = 0, 0
	p.drawn = false
}

// Update records progress; it matches download.ProgressFunc.
func (p *Progress) Update(written, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.written, p.total = written, total
	if !p.tty {
		return
	}
	now := time.Now()
	if p.drawn && now.Sub(p.last) < p.interval && (total <= 0 || written < total) {
		return
	}
	p.last = now
	p.draw()
}

func (p *Progress) draw() {
	fmt.Fprintf(p.out, "\r  %s %s", p.label, p.status())
	p.drawn = true
}

func (p *Progress) status() string {
	if p.total > 0 {
		pct := float64(p.written) / float64(p.total) * 100
		return fmt.Sprintf("%s / %s (%.0f%%)",
			humanize.Bytes(uint64(p.written)), humanize.Bytes(uint64(p.total)), pct)
	}
	return humanize.Bytes(uint64(p.written))
}

// Finish ends the progress line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty {
		if p.drawn {
			// Clear the line so the next status line starts clean.
			fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", len(p.label)+40))
		}
		return
	}
	if p.written > 0 {
		fmt.Fprintf(p.out, "  %s %s\n", p.label, humanize.Bytes(uint64(p.written)))
	}
}
