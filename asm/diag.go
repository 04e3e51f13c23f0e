// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/ezrec/sjasm/translate"
)

// Severity of a diagnostic.
type Severity int

//go:generate go tool stringer -linecomment -type=Severity
const (
	SEVERITY_WARNING = Severity(0) // warning
	SEVERITY_ERROR   = Severity(1) // error
	SEVERITY_FATAL   = Severity(2) // fatal
)

// Class is the error taxonomy of a diagnostic.
type Class int

//go:generate go tool stringer -linecomment -type=Class
const (
	CLASS_SYNTAX         = Class(0) // SyntaxError
	CLASS_UNRESOLVED     = Class(1) // UnresolvedSymbolError
	CLASS_FILE_ACCESS    = Class(2) // FileAccessError
	CLASS_RESOURCE_LIMIT = Class(3) // ResourceLimitFatal
	CLASS_COMMAND_LINE   = Class(4) // CommandLineError; reported by the command, never by Assemble
)

// Format selects how diagnostics are printed.
type Format int

//go:generate go tool stringer -linecomment -type=Format
const (
	FORMAT_PLAIN = Format(0) // plain
	FORMAT_VS    = Format(1) // vs
)

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Severity Severity
	Class    Class
	Pos      Pos
	Pass     int
	Err      error
}

// classOf sorts an error into the diagnostic taxonomy.
func classOf(err error) Class {
	var missing ErrLabelMissing
	switch {
	case errors.As(err, &missing), errors.Is(err, ErrUnstable):
		return CLASS_UNRESOLVED
	case errors.Is(err, ErrFileAccess):
		return CLASS_FILE_ACCESS
	case errors.Is(err, ErrResourceLimit), errors.Is(err, ErrCancelled):
		return CLASS_RESOURCE_LIMIT
	}
	return CLASS_SYNTAX
}

// Message is the text of the diagnostic, without location.
func (diag Diagnostic) Message() string {
	if diag.Err == nil {
		return ""
	}
	return diag.Err.Error()
}

// Location is the plain format source location, "path(line): line n".
func (diag Diagnostic) Location() string {
	return fmt.Sprintf("%v(%d): line %d", diag.Pos.File, diag.Pos.Line, diag.Pos.Line)
}

// Format renders the diagnostic.
func (diag Diagnostic) Format(format Format) string {
	if diag.Pos.File == "" {
		if diag.Severity == SEVERITY_WARNING {
			return f("warning: %v", diag.Message())
		}
		return diag.Message()
	}

	switch format {
	case FORMAT_VS:
		kind := "error"
		if diag.Severity == SEVERITY_WARNING {
			kind = "warning"
		}
		return fmt.Sprintf("%v(%d): %v PASS%d: %v", diag.Pos.File, diag.Pos.Line, kind, diag.Pass, diag.Message())
	default:
		switch diag.Severity {
		case SEVERITY_WARNING:
			return diag.Location() + ": " + f("warning: %v", diag.Message())
		case SEVERITY_FATAL:
			return diag.Location() + ": " + f("fatal: %v", diag.Message())
		}
		return diag.Location() + ": " + diag.Message()
	}
}

func (diag Diagnostic) String() string {
	return diag.Format(FORMAT_PLAIN)
}

// Diagnostics collects problems without aborting the caller.
type Diagnostics struct {
	list []Diagnostic
}

// Add records a diagnostic.
func (diags *Diagnostics) Add(diag Diagnostic) {
	diags.list = append(diags.list, diag)
}

// Merge appends all diagnostics of other.
func (diags *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	diags.list = append(diags.list, other.list...)
}

// All iterates over the diagnostics in the order they were recorded.
func (diags *Diagnostics) All() iter.Seq[Diagnostic] {
	return func(yield func(Diagnostic) bool) {
		if diags == nil {
			return
		}
		for _, diag := range diags.list {
			if !yield(diag) {
				return
			}
		}
	}
}

// List returns a copy of the diagnostics.
func (diags *Diagnostics) List() []Diagnostic {
	if diags == nil {
		return nil
	}
	return slices.Clone(diags.list)
}

// Len is the number of diagnostics of any severity.
func (diags *Diagnostics) Len() int {
	if diags == nil {
		return 0
	}
	return len(diags.list)
}

func (diags *Diagnostics) count(keep func(Severity) bool) (n int) {
	for diag := range diags.All() {
		if keep(diag.Severity) {
			n++
		}
	}
	return
}

// Errors counts errors, fatal ones included.
func (diags *Diagnostics) Errors() int {
	return diags.count(func(s Severity) bool { return s != SEVERITY_WARNING })
}

// Warnings counts warnings.
func (diags *Diagnostics) Warnings() int {
	return diags.count(func(s Severity) bool { return s == SEVERITY_WARNING })
}

// Fatal returns the first fatal diagnostic.
func (diags *Diagnostics) Fatal() (diag Diagnostic, ok bool) {
	for diag = range diags.All() {
		if diag.Severity == SEVERITY_FATAL {
			return diag, true
		}
	}
	return Diagnostic{}, false
}

// Print writes every diagnostic in the selected format, followed by
// the error and warning summary.
func (diags *Diagnostics) Print(w io.Writer, format Format) (err error) {
	for diag := range diags.All() {
		_, err = io.WriteString(w, diag.Format(format)+"\n")
		if err != nil {
			return
		}
	}

	_, err = translate.Fprintf(w, "Errors: %d, warnings: %d\n", diags.Errors(), diags.Warnings())
	return
}
