package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/ZebulonRouseFrantzich/grip/internal/config"
	"github.com/ZebulonRouseFrantzich/grip/internal/ledger"
)

// RenderPackageTable renders installed packages in the order given.
func (p *Printer) RenderPackageTable(entries []ledger.Entry, now time.Time) string {
	if len(entries) == 0 {
		return "No packages installed.\n"
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Name,
			e.Version,
			orDash(e.Registry),
			formatInstalled(e.InstalledAt, now),
			orDash(e.ExecutablePath),
		})
	}
	return p.renderTable([]string{"Package", "Version", "Registry", "Installed", "Executable"}, rows)
}

// RenderRegistryTable renders registries in configuration order.
func (p *Printer) RenderRegistryTable(regs []config.Registry) string {
	if len(regs) == 0 {
		return "No registries configured.\n"
	}

	rows := make([][]string, 0, len(regs))
	for _, r := range regs {
		rows = append(rows, []string{r.Name, strconv.Itoa(r.Priority), r.URL})
	}
	return p.renderTable([]string{"Name", "Priority", "URL"}, rows)
}

// renderTable pads columns to their widest cell, measured in terminal
// cells. The last column is not padded.
func (p *Printer) renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string, styled bool) {
		for i, cell := range cells {
			text := cell
			if i < len(cells)-1 {
				text = runewidth.FillRight(cell, widths[i]+2)
			}
			if styled {
				text = p.style(headerStyle, text)
			}
			sb.WriteString(text)
		}
		sb.WriteString("\n")
	}

	writeRow(header, true)
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	sb.WriteString(p.style(dimStyle, strings.Repeat("─", total-2)))
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(row, false)
	}
	return sb.String()
}

// FormatSize renders a byte count, or "unknown size" for zero.
func FormatSize(n int64) string {
	if n <= 0 {
		return "unknown size"
	}
	return humanize.Bytes(uint64(n))
}

func formatInstalled(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Plural returns "1 package" or "n packages".
func Plural(n int, singular string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %ss", n, singular)
}
