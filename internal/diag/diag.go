// Package diag is the extraction engine's diagnostic output. It replaces
// the teacher's hand-rolled fmt.Fprintf(os.Stderr, ...) calls with a small
// struct that is constructed explicitly and passed down to the components
// that need it, rather than reached for as a package-level singleton (see
// spec.md §9 "Singletons").
package diag

import (
	"fmt"
	"io"
	"os"
)

// Writer prints verbose and warning diagnostics to an underlying io.Writer.
// Build one with New: it starts with verbose output off and warnings
// printed. The zero value has no output writer.
type Writer struct {
	out              io.Writer
	verbose          bool
	suppressWarnings bool
}

// New builds a Writer over w. If w is nil, os.Stderr is used.
func New(w io.Writer) *Writer {
	if w == nil {
		w = os.Stderr
	}
	return &Writer{out: w}
}

// SetVerbose toggles verbose diagnostics.
func (d *Writer) SetVerbose(v bool) { d.verbose = v }

// SetSuppressWarnings toggles whether non-fatal warnings are printed.
func (d *Writer) SetSuppressWarnings(s bool) { d.suppressWarnings = s }

// Verbosef prints a message only when verbose mode is enabled.
func (d *Writer) Verbosef(format string, args ...interface{}) {
	if d == nil || !d.verbose {
		return
	}
	fmt.Fprintf(d.out, "-- "+format+"\n", args...)
}

// Warnf prints a non-fatal warning unless warnings are suppressed.
func (d *Writer) Warnf(format string, args ...interface{}) {
	if d == nil || d.suppressWarnings {
		return
	}
	fmt.Fprintf(d.out, "!! "+format+"\n", args...)
}
