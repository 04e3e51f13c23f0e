// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package z80

import (
	"fmt"
)

// Mode is the addressing form of an operand.
type Mode int

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_REG  = Mode(0) // reg
	MODE_IMM  = Mode(1) // imm
	MODE_MEM  = Mode(2) // mem
	MODE_IND  = Mode(3) // ind
	MODE_IDX  = Mode(4) // idx
	MODE_COND = Mode(5) // cond
)

// Operand is a classified instruction operand.
//
//	MODE_REG   a, bc, ixh, af'    (Reg)
//	MODE_IMM   expression          (Value)
//	MODE_MEM   (expression)        (Value)
//	MODE_IND   (bc) (de) (hl) (sp) (c)  (Reg)
//	MODE_IDX   (ix+d) (iy-d)       (Reg, Value is the displacement)
//	MODE_COND  nz z nc c po pe p m (Cond)
type Operand struct {
	Mode  Mode
	Reg   Reg
	Cond  Cond
	Value int
}

// Register returns a register operand.
func Register(reg Reg) Operand {
	return Operand{Mode: MODE_REG, Reg: reg}
}

// Immediate returns an immediate operand.
func Immediate(value int) Operand {
	return Operand{Mode: MODE_IMM, Value: value}
}

// Memory returns an absolute memory operand.
func Memory(addr int) Operand {
	return Operand{Mode: MODE_MEM, Value: addr}
}

// Indirect returns a register indirect operand.
func Indirect(reg Reg) Operand {
	return Operand{Mode: MODE_IND, Reg: reg}
}

// Indexed returns an index register plus displacement operand.
func Indexed(reg Reg, disp int) Operand {
	return Operand{Mode: MODE_IDX, Reg: reg, Value: disp}
}

// Condition returns a condition operand.
func Condition(cond Cond) Operand {
	return Operand{Mode: MODE_COND, Cond: cond}
}

func (op Operand) String() string {
	switch op.Mode {
	case MODE_REG:
		return op.Reg.String()
	case MODE_IMM:
		return fmt.Sprintf("%d", op.Value)
	case MODE_MEM:
		return fmt.Sprintf("(%d)", op.Value)
	case MODE_IND:
		return fmt.Sprintf("(%v)", op.Reg)
	case MODE_IDX:
		return fmt.Sprintf("(%v%+d)", op.Reg, op.Value)
	case MODE_COND:
		return op.Cond.String()
	}
	return op.Mode.String()
}

// isReg checks for a specific register operand.
func (op Operand) isReg(reg Reg) bool {
	return op.Mode == MODE_REG && op.Reg == reg
}

// isInd checks for a specific register indirect operand.
func (op Operand) isInd(reg Reg) bool {
	return op.Mode == MODE_IND && op.Reg == reg
}

// reg8 is an operand usable in an 8-bit 'r' field.
type reg8 struct {
	code    byte // 3-bit register field
	prefix  byte // 0xdd, 0xfd or 0
	indexed bool // (ix+d) or (iy+d)
	half    bool // ixh, ixl, iyh or iyl
	hl      bool // h or l
	disp    int  // displacement for indexed
}

// asReg8 classifies an operand as an 8-bit 'r' operand.
func (op Operand) asReg8() (r reg8, ok bool) {
	switch op.Mode {
	case MODE_REG:
		r.code, ok = op.Reg.code8()
		r.prefix = op.Reg.prefix()
		r.half = r.prefix != 0
		r.hl = op.Reg == REG_H || op.Reg == REG_L
	case MODE_IND:
		if op.Reg == REG_HL {
			r.code, ok = 6, true
		}
	case MODE_IDX:
		if op.Reg.IsIndex() {
			r.code, ok = 6, true
			r.prefix = op.Reg.prefix()
			r.indexed = true
			r.disp = op.Value
		}
	}
	return
}
