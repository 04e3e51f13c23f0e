// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"os"
)

// Dialect selects the accepted source syntax.
type Dialect int

//go:generate go tool stringer -linecomment -type=Dialect
const (
	DIALECT_NATIVE  = Dialect(0) // native
	DIALECT_COMPASS = Dialect(1) // compass
)

const (
	DEFAULT_MAX_PASSES = 64    // Passes before giving up on a fixed point.
	DEFAULT_MAX_LABELS = 32768 // Distinct symbols before a fatal abort.
	MAX_MACRO_DEPTH    = 64    // Nested macro expansions.
	MAX_INCLUDE_DEPTH  = 32    // Nested include files.
	MAX_REPEAT         = 65536 // Iterations of a single rept block.
)

// Options configure an assembly run.
type Options struct {
	Dialect     Dialect  // Accepted syntax.
	ReversePop  bool     // Reverse multi-register pop (Compass dialect only).
	IncludePath []string // Directories searched by include and incbin.
	MaxPasses   int      // Zero selects DEFAULT_MAX_PASSES.
	MaxLabels   int      // Zero selects DEFAULT_MAX_LABELS.
	Listing     bool     // Collect listing lines during the final pass.

	// ReadFile loads source and binary files. Nil selects os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

func (opts *Options) compass() bool {
	return opts.Dialect == DIALECT_COMPASS
}

func (opts *Options) reversePop() bool {
	return opts.compass() && opts.ReversePop
}

func (opts *Options) maxPasses() int {
	if opts.MaxPasses <= 0 {
		return DEFAULT_MAX_PASSES
	}
	return opts.MaxPasses
}

func (opts *Options) maxLabels() int {
	if opts.MaxLabels <= 0 {
		return DEFAULT_MAX_LABELS
	}
	return opts.MaxLabels
}

func (opts *Options) readFile(name string) ([]byte, error) {
	if opts.ReadFile == nil {
		return os.ReadFile(name)
	}
	return opts.ReadFile(name)
}
