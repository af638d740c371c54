package console

import (
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes colour escape sequences.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// VisibleWidth returns the number of terminal cells s occupies, ignoring
// escape sequences and counting wide runes twice.
func VisibleWidth(s string) int {
	return runewidth.StringWidth(StripANSI(s))
}

// PadRight pads s with spaces to width visible cells.
func PadRight(s string, width int) string {
	if w := VisibleWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// TerminalWidth returns the column count of f, or DefaultWidth when f is
// not a terminal.
func TerminalWidth(f *os.File) int {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

// Center places every line of s in the middle of width columns.
func Center(s string, width int) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(width, lipgloss.Center, line)
	}
	return strings.Join(lines, "\n")
}

// Box draws lines inside a rounded border, centred in width columns.
func Box(lines []string, width int) string {
	inner := 0
	for _, l := range lines {
		inner = max(inner, VisibleWidth(l))
	}
	padded := make([]string, len(lines))
	for i, l := range lines {
		padded[i] = PadRight(l, inner)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 2).
		Render(strings.Join(padded, "\n"))
	return Center(box, width)
}
