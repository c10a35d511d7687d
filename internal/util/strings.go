// Package util provides small helpers shared by the CLI and the dashboard.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks text shortened by Truncate.
const Ellipsis = "…"

// Truncate fits s into width terminal cells for a table cell. Only the first
// line survives, since agent statuses and member names may span several.
// Width is measured on screen, so wide runes and ANSI styling count correctly.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	line, _, multiline := strings.Cut(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if !multiline && lipgloss.Width(line) <= width {
		return line
	}
	if multiline && lipgloss.Width(line)+ansi.StringWidth(Ellipsis) <= width {
		return line + Ellipsis
	}
	return ansi.Truncate(line, width, Ellipsis)
}
