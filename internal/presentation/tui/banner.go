package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the stepmesh banner with the version and the CAD kernel in use.
// Colours are dropped automatically when w is not a terminal.
func PrintBanner(w io.Writer, version, kernel string) {
	out := termenv.NewOutput(w)
	title := out.String(" stepmesh ").Bold().Foreground(out.Color("#0f172a")).Background(out.Color("#38bdf8"))
	meta := out.String(fmt.Sprintf(" v%s  kernel: %s", strings.TrimSpace(version), kernel)).Foreground(out.Color("#94a3b8"))
	fmt.Fprintf(w, "%s%s\n\n", title, meta)
}

// Printer writes one-line status messages.
type Printer struct {
	w   io.Writer
	out *termenv.Output
}

// NewPrinter creates a Printer on w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, out: termenv.NewOutput(w)}
}

func (p *Printer) line(symbol, color, format string, args ...any) {
	mark := p.out.String(symbol).Foreground(p.out.Color(color)).Bold()
	fmt.Fprintf(p.w, "%s %s\n", mark, fmt.Sprintf(format, args...))
}

// Info prints a neutral progress line.
func (p *Printer) Info(format string, args ...any) {
	p.line(">>>", "#38bdf8", format, args...)
}

// Success prints a completion line.
func (p *Printer) Success(format string, args ...any) {
	p.line("✔", "#22c55e", format, args...)
}

// Warn prints a non-fatal notice, such as a skipped object.
func (p *Printer) Warn(format string, args ...any) {
	p.line("!", "#f59e0b", format, args...)
}

// Fail prints an error line.
func (p *Printer) Fail(format string, args ...any) {
	p.line("✘", "#ef4444", format, args...)
}
