package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconRocket  = "🚀"
	IconNetwork = "🌐"
	IconRefresh = "🔄"
	IconTarget  = "🎯"
	IconDot     = "•"
)

var (
	colorSection    = color.New(color.FgCyan, color.Bold)
	colorSectionBar = color.New(color.FgCyan)
	colorSubSection = color.New(color.FgHiBlack)
	colorKey        = color.New(color.FgCyan)
)

// Success logs a success message with a green checkmark
func Success(args ...interface{}) {
	defaultLogger.Info(IconSuccess + " " + fmt.Sprint(args...))
}

// Successf logs a formatted success message
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Progress logs a progress message with a refresh icon
func Progress(args ...interface{}) {
	defaultLogger.Info(IconRefresh + " " + fmt.Sprint(args...))
}

// Progressf logs a formatted progress message
func Progressf(format string, args ...interface{}) {
	Progress(fmt.Sprintf(format, args...))
}

// Network logs a network-related message
func Network(args ...interface{}) {
	defaultLogger.Info(IconNetwork + " " + fmt.Sprint(args...))
}

// Networkf logs a formatted network message
func Networkf(format string, args ...interface{}) {
	Network(fmt.Sprintf(format, args...))
}

func output() (io.Writer, bool) {
	if l, ok := defaultLogger.(*logger); ok {
		l.core.mu.Lock()
		defer l.core.mu.Unlock()
		return l.core.writer, l.core.noColor
	}
	return io.Discard, true
}

func paint(c *color.Color, noColor bool, s string) string {
	if noColor {
		return s
	}
	return c.Sprint(s)
}

// LogSection creates a visual section separator
func LogSection(title string) {
	w, noColor := output()
	line := strings.Repeat("=", 50)
	_, _ = fmt.Fprintln(w, paint(colorSectionBar, noColor, line))
	_, _ = fmt.Fprintln(w, paint(colorSection, noColor, title))
	_, _ = fmt.Fprintln(w, paint(colorSectionBar, noColor, line))
}

// LogSubSection creates a visual subsection separator
func LogSubSection(title string) {
	w, noColor := output()
	line := strings.Repeat("-", 40)
	_, _ = fmt.Fprintln(w, paint(colorSubSection, noColor, line))
	_, _ = fmt.Fprintln(w, paint(colorSubSection, noColor, title))
	_, _ = fmt.Fprintln(w, paint(colorSubSection, noColor, line))
}

// LogKeyValue logs a key-value pair
func LogKeyValue(key string, value interface{}) {
	w, noColor := output()
	_, _ = fmt.Fprintf(w, "%s %v\n", paint(colorKey, noColor, key+":"), value)
}

// LogList logs a list of items with bullets
func LogList(title string, items []string) {
	Info(title)
	w, _ := output()
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "  %s %s\n", IconDot, item)
	}
}

// Table is a simple column-aligned table for console output
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a new table
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow adds a row to the table
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// Print writes the table to the default logger's output
func (t *Table) Print() {
	w, _ := output()
	t.Fprint(w)
}

// Fprint writes the table to w
func (t *Table) Fprint(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	for i, h := range t.headers {
		fmt.Fprintf(&sb, "%-*s  ", widths[i], h)
	}
	sb.WriteString("\n")
	for i := range t.headers {
		sb.WriteString(strings.Repeat("-", widths[i]) + "  ")
	}
	sb.WriteString("\n")
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&sb, "%-*s  ", widths[i], cell)
			}
		}
		sb.WriteString("\n")
	}

	_, _ = io.WriteString(w, sb.String())
}
