package drift

import (
	"fmt"
	"strings"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"

// FormatDriftReport formats drift results for user display
func FormatDriftReport(results []Result) string {
	var sb strings.Builder
	sb.Grow(1024 + len(results)*256)

	sb.WriteString("\n" + rule)
	sb.WriteString("DRIFT REPORT\n")
	sb.WriteString(rule + "\n")

	counts := make(map[DriftType]int)
	for _, r := range results {
		counts[r.DriftType]++
	}

	for _, r := range results {
		if r.DriftType == DriftOK {
			continue
		}
		sb.WriteString(formatDriftEntry(r))
		sb.WriteString("\n")
	}

	okCount := counts[DriftOK]
	if okCount > 0 {
		fmt.Fprintf(&sb, "[OK] ✓\n  %d packages in sync\n\n", okCount)
	}

	sb.WriteString(rule)
	total := len(results) - okCount
	if total == 0 {
		sb.WriteString("SUMMARY: No drifts detected ✓\n")
	} else {
		fmt.Fprintf(&sb, "SUMMARY: %d drifts detected\n", total)
		var parts []string
		for _, c := range []struct {
			t     DriftType
			label string
		}{
			{DriftExternalOverride, "external override"},
			{DriftVersionMismatch, "version mismatch"},
			{DriftMissing, "missing"},
			{DriftExtra, "extra"},
			{DriftManagedButNotActive, "not on PATH"},
			{DriftBroken, "broken"},
		} {
			if counts[c.t] > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", counts[c.t], c.label))
			}
		}
		sb.WriteString("  " + strings.Join(parts, ", ") + "\n")
	}
	sb.WriteString(rule)

	return sb.String()
}

func formatDriftEntry(r Result) string {
	var sb strings.Builder
	line := func(format string, args ...any) { fmt.Fprintf(&sb, format+"\n", args...) }

	switch r.DriftType {
	case DriftExternalOverride:
		line("[EXTERNAL OVERRIDE] ⚠️")
		line("  %s", r.Package)
		line("    Managed:   %s at %s", r.ManagedVersion, r.ManagedPath)
		line("    Active:    %s", r.ActivePath)
		line("    → Another installation comes first on PATH")
	case DriftVersionMismatch:
		line("[VERSION MISMATCH]")
		line("  %s", r.Package)
		line("    Declared:  %s", r.DeclaredVersion)
		line("    Managed:   %s", r.ManagedVersion)
		line("    → Run: grip install %s --version %s", r.Package, r.DeclaredVersion)
	case DriftMissing:
		line("[MISSING]")
		line("  %s", r.Package)
		line("    Declared:  %s", orAny(r.DeclaredVersion))
		line("    Managed:   (not installed)")
		line("    → Run: grip install %s", r.Package)
	case DriftExtra:
		line("[EXTRA]")
		line("  %s", r.Package)
		line("    Declared:  (not declared)")
		line("    Managed:   %s", r.ManagedVersion)
		line("    → Installed but not listed in grip.json")
	case DriftManagedButNotActive:
		line("[NOT ON PATH]")
		line("  %s", r.Package)
		line("    Managed:   %s at %s", r.ManagedVersion, r.ManagedPath)
		line("    Active:    (not in PATH)")
		line("    → Restart your shell or check your shell rc file")
	case DriftBroken:
		line("[BROKEN]")
		line("  %s", r.Package)
		line("    Managed:   %s", r.ManagedVersion)
		line("    Missing:   %s", r.ManagedPath)
		line("    → Reinstall with: grip install %s --version %s", r.Package, r.ManagedVersion)
	}
	return sb.String()
}

func orAny(v string) string {
	if v == "" {
		return "*"
	}
	return v
}
