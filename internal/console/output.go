// Package console provides the operator-facing prompts and styled output.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Output writes styled, line-oriented messages for the operator.
type Output struct {
	w       io.Writer
	info    lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	comment lipgloss.Style
	title   lipgloss.Style
}

// NewOutput creates an Output. Colors are dropped when w is not a terminal.
func NewOutput(w io.Writer) *Output {
	r := lipgloss.NewRenderer(w)
	return &Output{
		w:       w,
		info:    r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3")),
		err:     r.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
		comment: r.NewStyle().Foreground(lipgloss.Color("3")),
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1).Border(lipgloss.RoundedBorder()),
	}
}

// Writer returns the underlying writer, used to relay subprocess output.
func (o *Output) Writer() io.Writer {
	return o.w
}

// Line writes a plain line.
func (o *Output) Line(format string, args ...any) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

// Lines writes each entry on its own line.
func (o *Output) Lines(lines []string) {
	for _, l := range lines {
		fmt.Fprintln(o.w, l)
	}
}

// Blank writes an empty line.
func (o *Output) Blank() {
	fmt.Fprintln(o.w)
}

// Title writes a boxed heading.
func (o *Output) Title(s string) {
	fmt.Fprintln(o.w, o.title.Render(s))
}

// Info writes a line with a green label.
func (o *Output) Info(label, format string, args ...any) {
	o.labelled(o.info, label, format, args...)
}

// Warn writes a line with a highlighted warning label.
func (o *Output) Warn(label, format string, args ...any) {
	o.labelled(o.warn, label, format, args...)
}

// Error writes a line with an error label.
func (o *Output) Error(label, format string, args ...any) {
	o.labelled(o.err, label, format, args...)
}

// Comment styles an inline value such as a path or a command.
func (o *Output) Comment(s string) string {
	return o.comment.Render(s)
}

// Success styles inline text as a positive result.
func (o *Output) Success(s string) string {
	return o.info.Render(s)
}

// Failure styles inline text as an error.
func (o *Output) Failure(s string) string {
	return o.err.Render(s)
}

func (o *Output) labelled(style lipgloss.Style, label, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if label == "" {
		fmt.Fprintln(o.w, style.Render(msg))
		return
	}
	if msg == "" {
		fmt.Fprintln(o.w, style.Render(label))
		return
	}
	if !strings.HasSuffix(label, ":") && !strings.HasSuffix(label, "!") {
		label += ":"
	}
	fmt.Fprintf(o.w, "%s %s\n", style.Render(label), msg)
}
