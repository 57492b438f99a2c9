package ux

import (
	"fmt"
	"io"
	"sync"

	"github.com/anyspecs/anyspecs/internal/notice"
)

// Printer writes notices to the terminal. Errors and warnings go to the
// error stream; success and info notices go to the output stream unless
// structured output is on. Safe for concurrent use.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	err    io.Writer
	notes  io.Writer
	errors int
}

func NewPrinter(out, err io.Writer) *Printer {
	return &Printer{out: out, err: err, notes: out}
}

// SetStructured moves every notice to the error stream so the output
// stream carries only the encoded document.
func (p *Printer) SetStructured(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if on {
		p.notes = p.err
	} else {
		p.notes = p.out
	}
}

func (p *Printer) Notify(n notice.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch n.Level {
	case notice.Success:
		fmt.Fprintf(p.notes, "%s %s\n", Styles.Success.Render("✓"), n.Message)
	case notice.Warning:
		fmt.Fprintf(p.err, "%s %s\n", Styles.Warning.Render("⚠"), Styles.Warning.Render(n.Message))
	case notice.Error:
		p.errors++
		fmt.Fprintf(p.err, "%s %s\n", Styles.Error.Render("✗"), Styles.Error.Render(n.Message))
	default:
		fmt.Fprintf(p.notes, "%s %s\n", Styles.Muted.Render("│"), n.Message)
	}
}

// Println writes a plain line to the output stream.
func (p *Printer) Println(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, a...)
}

// Errors counts the error notices printed so far.
func (p *Printer) Errors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors
}

// Statusln writes a progress line to the error stream so structured
// output on the output stream stays parseable.
func (p *Printer) Statusln(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.err, a...)
}
