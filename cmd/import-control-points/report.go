package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gpfimport/internal/gpf"
	"gpfimport/internal/importerr"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B"))
	errStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
)

func renderSummary(res gpf.Result) string {
	var b strings.Builder
	if res.Unchanged {
		b.WriteString(titleStyle.Render("Nothing to import"))
		fmt.Fprintf(&b, "\n%s %s (%d points, untouched)", labelStyle.Render("gpf:"), res.GPFPath, res.FinalCount)
		return b.String()
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("Imported %d control point(s)", res.Appended)))
	fmt.Fprintf(&b, "\n%s %s", labelStyle.Render("gpf:"), res.GPFPath)
	fmt.Fprintf(&b, "\n%s %s", labelStyle.Render("backup:"), res.BackupPath)
	fmt.Fprintf(&b, "\n%s %d -> %d", labelStyle.Render("points:"), res.OriginalCount, res.FinalCount)
	for _, f := range res.Files {
		if f.Appended == 0 {
			fmt.Fprintf(&b, "\n  %s: no control points", f.Path)
			continue
		}
		fmt.Fprintf(&b, "\n  %s: %d (ids %d-%d)", f.Path, f.Appended, f.FirstID, f.FirstID+f.Appended-1)
	}
	if len(res.Skipped) > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("Skipped %d malformed control point(s):", len(res.Skipped))))
		for _, s := range res.Skipped {
			fmt.Fprintf(&b, "\n  %s", s)
		}
	}
	return b.String()
}

func renderFailure(err error) string {
	var b strings.Builder
	b.WriteString(errStyle.Render("Import failed"))
	fmt.Fprintf(&b, "\n%v", err)
	if hint := importerr.Hint(err); hint != "" {
		fmt.Fprintf(&b, "\n%s %s", labelStyle.Render("next:"), hint)
	}
	return b.String()
}
