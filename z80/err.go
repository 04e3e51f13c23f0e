// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package z80

import (
	"errors"
	"strings"

	"github.com/ezrec/sjasm/translate"
)

var f = translate.From

var (
	ErrInstructionInvalid = errors.New(f("unrecognized instruction"))
	ErrOperandInvalid     = errors.New(f("illegal operand"))
	ErrOperandMissing     = errors.New(f("operand expected"))
	ErrOperandExtra       = errors.New(f("too many operands"))
)

// ErrRange reports a value that does not fit its field. The encoded bytes
// returned alongside it hold the truncated value.
type ErrRange struct {
	Value  int
	Min    int
	Max    int
	Strict bool // Relative jumps, displacements and bit numbers.
}

func (err *ErrRange) Error() string {
	if err.Strict {
		return f("value %d out of range [%d, %d]", err.Value, err.Min, err.Max)
	}
	return f("bytes lost: value %d does not fit [%d, %d]", err.Value, err.Min, err.Max)
}

// ErrOperand attaches the offending operand to an operand error.
type ErrOperand struct {
	Mnemonic string
	Operands []Operand
	Err      error
}

func (err *ErrOperand) Error() string {
	ops := make([]string, len(err.Operands))
	for n, op := range err.Operands {
		ops[n] = op.String()
	}
	return f("%v: %v %v", err.Err, err.Mnemonic, strings.Join(ops, ","))
}

func (err *ErrOperand) Unwrap() error {
	return err.Err
}
