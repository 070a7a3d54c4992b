package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files or items (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning, yellow on a terminal
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		if len(w.Files) == 1 {
			b.WriteString("    Affected item:\n")
		} else {
			b.WriteString("    Affected items:\n")
		}
		for i, file := range w.Files {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	Colorize(out, color.FgYellow).Fprint(out, b.String())
}

// WarnItems creates a warning listing items, e.g. requirement ids
func WarnItems(title string, items []string, suggestion string) Warning {
	return Warning{
		Title:      title,
		Files:      items,
		Suggestion: suggestion,
	}
}

// Success prints a green check line.
func Success(out io.Writer, format string, args ...interface{}) {
	Colorize(out, color.FgGreen).Fprintf(out, "✓ "+format+"\n", args...)
}

// Failure prints a red cross line.
func Failure(out io.Writer, format string, args ...interface{}) {
	Colorize(out, color.FgRed).Fprintf(out, "✗ "+format+"\n", args...)
}

// Colorize returns a color that is only applied when out is a terminal.
func Colorize(out io.Writer, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if IsTerminal(out) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// IsTerminal reports whether out is a TTY that should receive ANSI colors.
// NO_COLOR (honored by fatih/color) wins.
func IsTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok || f == nil || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
