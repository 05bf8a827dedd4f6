package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

type stat struct {
	label string
	value any
	warn  bool
}

// printSummary renders a titled box of label/value lines.
func printSummary(w io.Writer, title string, stats ...stat) {
	lines := []string{titleStyle.Render(title)}
	for _, s := range stats {
		value := fmt.Sprint(s.value)
		if s.warn {
			value = warnStyle.Render(value)
		}
		lines = append(lines, fmt.Sprintf("%s %s", dimStyle.Render(s.label+":"), value))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func printPaths(w io.Writer, verb string, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(w, "%s %s\n", successStyle.Render(verb), p)
	}
}

func printWarn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf(format, args...)))
}
