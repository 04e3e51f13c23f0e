// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"errors"
	"strconv"

	"github.com/ezrec/sjasm/translate"
)

var f = translate.From

var (
	// Run outcomes
	ErrCompile       = errors.New(f("source contains errors"))
	ErrFileAccess    = errors.New(f("file access"))
	ErrResourceLimit = errors.New(f("resource limit exceeded"))

	// Lexer errors
	ErrNumberInvalid   = errors.New(f("invalid number"))
	ErrNumberSpace     = errors.New(f("whitespace inside numeric literal"))
	ErrStringEmpty     = errors.New(f("empty string"))
	ErrStringLonely    = errors.New(f("unterminated string"))
	ErrStringLong      = errors.New(f("string too long for a value"))
	ErrCharacter       = errors.New(f("unexpected character"))
	ErrCompassOnly     = errors.New(f("compass syntax requires compatibility mode"))
	ErrExpression      = errors.New(f("syntax error in expression"))
	ErrParenthesis     = errors.New(f("unbalanced parenthesis"))
	ErrDivideByZero    = errors.New(f("division by zero"))
	ErrOperandsMissing = errors.New(f("operand expected"))
	ErrOperandsExtra   = errors.New(f("unexpected operand"))

	// Structure errors
	ErrLabelDuplicate  = errors.New(f("duplicate label"))
	ErrLabelInvalid    = errors.New(f("invalid label name"))
	ErrLabelRequired   = errors.New(f("label required"))
	ErrMacroSyntax     = errors.New(f("macro syntax"))
	ErrMacroDuplicate  = errors.New(f("macro duplicated"))
	ErrMacroLonely     = errors.New(f("macro without endm"))
	ErrMacroLonelyEndm = errors.New(f("endm without macro"))
	ErrMacroNesting    = errors.New(f("macro expansion nested too deeply"))
	ErrIncludeNesting  = errors.New(f("include nested too deeply"))
	ErrIfLonely        = errors.New(f("if without endif"))
	ErrEndifLonely     = errors.New(f("endif without if"))
	ErrElseLonely      = errors.New(f("else without if"))
	ErrElseDuplicate   = errors.New(f("else already seen"))
	ErrReptLonely      = errors.New(f("rept without endr"))
	ErrEndrLonely      = errors.New(f("endr without rept"))
	ErrScriptLonely    = errors.New(f("script without endscript"))

	// Pass errors
	ErrUnstable    = errors.New(f("symbol value does not stabilize"))
	ErrAssertion   = errors.New(f("assertion failed"))
	ErrIncbinRange = errors.New(f("incbin offset or length outside file"))
	ErrCancelled   = errors.New(f("assembly cancelled"))
	ErrScript      = errors.New(f("script"))
)

// ErrInstruction is an unknown instruction or directive.
type ErrInstruction string

func (err ErrInstruction) Error() string {
	return f("unrecognized instruction: %v", string(err))
}

// ErrLabelMissing is a symbol referenced but never defined.
type ErrLabelMissing string

func (err ErrLabelMissing) Error() string {
	return f("label not found: %v", string(err))
}

// ErrUser is raised by the error directive.
type ErrUser string

func (err ErrUser) Error() string {
	return string(err)
}

// ErrFile reports an unreadable source or binary file.
type ErrFile struct {
	Name string
	Err  error
}

func (err *ErrFile) Error() string {
	return f("Error opening file: %v: %v", err.Name, err.Err)
}

func (err *ErrFile) Unwrap() error {
	return ErrFileAccess
}

// ErrMacro locates an error inside a macro definition or expansion.
type ErrMacro struct {
	Macro string
	Err   error
}

func (err *ErrMacro) Error() string {
	return f("macro %v: %v", err.Macro, err.Err)
}

func (err *ErrMacro) Unwrap() error {
	return err.Err
}

// ErrMacroArgs is a macro invoked with the wrong number of arguments.
type ErrMacroArgs struct {
	Macro string
	Want  int
	Got   int
}

func (err *ErrMacroArgs) Error() string {
	return f("macro %v expects %d arguments, got %d", err.Macro, err.Want, err.Got)
}

// ErrSymbolLimit is raised when the symbol table outgrows its capacity.
type ErrSymbolLimit int

func (err ErrSymbolLimit) Error() string {
	return f("too many labels (limit %v)", strconv.Itoa(int(err)))
}

func (err ErrSymbolLimit) Unwrap() error {
	return ErrResourceLimit
}
