// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package z80

import (
	"strings"
)

// Reg is a Z80 register name.
type Reg int

//go:generate go tool stringer -linecomment -type=Reg
const (
	REG_B   = Reg(0)  // b
	REG_C   = Reg(1)  // c
	REG_D   = Reg(2)  // d
	REG_E   = Reg(3)  // e
	REG_H   = Reg(4)  // h
	REG_L   = Reg(5)  // l
	REG_A   = Reg(6)  // a
	REG_I   = Reg(7)  // i
	REG_R   = Reg(8)  // r
	REG_IXH = Reg(9)  // ixh
	REG_IXL = Reg(10) // ixl
	REG_IYH = Reg(11) // iyh
	REG_IYL = Reg(12) // iyl
	REG_BC  = Reg(13) // bc
	REG_DE  = Reg(14) // de
	REG_HL  = Reg(15) // hl
	REG_SP  = Reg(16) // sp
	REG_AF  = Reg(17) // af
	REG_AFX = Reg(18) // af'
	REG_IX  = Reg(19) // ix
	REG_IY  = Reg(20) // iy
	REG_F   = Reg(21) // f
)

// Cond is a jump, call or return condition.
type Cond int

//go:generate go tool stringer -linecomment -type=Cond
const (
	COND_NZ = Cond(0) // nz
	COND_Z  = Cond(1) // z
	COND_NC = Cond(2) // nc
	COND_C  = Cond(3) // c
	COND_PO = Cond(4) // po
	COND_PE = Cond(5) // pe
	COND_P  = Cond(6) // p
	COND_M  = Cond(7) // m
)

// regMap maps register spellings, including the common aliases for the
// index register halves.
var regMap = map[string]Reg{
	"b":   REG_B,
	"c":   REG_C,
	"d":   REG_D,
	"e":   REG_E,
	"h":   REG_H,
	"l":   REG_L,
	"a":   REG_A,
	"i":   REG_I,
	"r":   REG_R,
	"f":   REG_F,
	"ixh": REG_IXH,
	"ixl": REG_IXL,
	"iyh": REG_IYH,
	"iyl": REG_IYL,
	"xh":  REG_IXH,
	"xl":  REG_IXL,
	"yh":  REG_IYH,
	"yl":  REG_IYL,
	"hx":  REG_IXH,
	"lx":  REG_IXL,
	"hy":  REG_IYH,
	"ly":  REG_IYL,
	"bc":  REG_BC,
	"de":  REG_DE,
	"hl":  REG_HL,
	"sp":  REG_SP,
	"af":  REG_AF,
	"af'": REG_AFX,
	"ix":  REG_IX,
	"iy":  REG_IY,
}

var condMap = map[string]Cond{
	"nz": COND_NZ,
	"z":  COND_Z,
	"nc": COND_NC,
	"c":  COND_C,
	"po": COND_PO,
	"pe": COND_PE,
	"p":  COND_P,
	"m":  COND_M,
}

// LookupReg returns the register named by word, ignoring case.
func LookupReg(word string) (reg Reg, ok bool) {
	reg, ok = regMap[strings.ToLower(word)]
	return
}

// LookupCond returns the condition named by word, ignoring case.
func LookupCond(word string) (cond Cond, ok bool) {
	cond, ok = condMap[strings.ToLower(word)]
	return
}

// Is8Bit returns true for the 8-bit registers usable as an 'r' operand.
func (reg Reg) Is8Bit() bool {
	return reg <= REG_A || (reg >= REG_IXH && reg <= REG_IYL)
}

// Is16Bit returns true for register pairs.
func (reg Reg) Is16Bit() bool {
	return reg >= REG_BC && reg <= REG_IY
}

// IsIndex returns true for ix and iy.
func (reg Reg) IsIndex() bool {
	return reg == REG_IX || reg == REG_IY
}

// prefix returns the index prefix byte needed to access reg, or 0.
func (reg Reg) prefix() byte {
	switch reg {
	case REG_IX, REG_IXH, REG_IXL:
		return 0xdd
	case REG_IY, REG_IYH, REG_IYL:
		return 0xfd
	}
	return 0
}

// code8 returns the 3-bit 'r' field for an 8-bit register.
func (reg Reg) code8() (code byte, ok bool) {
	switch reg {
	case REG_B, REG_C, REG_D, REG_E, REG_H, REG_L:
		return byte(reg), true
	case REG_A:
		return 7, true
	case REG_IXH, REG_IYH:
		return 4, true
	case REG_IXL, REG_IYL:
		return 5, true
	}
	return 0, false
}

// Halves returns the high and low 8-bit registers of bc, de and hl.
func (reg Reg) Halves() (hi, lo Reg, ok bool) {
	switch reg {
	case REG_BC:
		return REG_B, REG_C, true
	case REG_DE:
		return REG_D, REG_E, true
	case REG_HL:
		return REG_H, REG_L, true
	}
	return 0, 0, false
}

// codeRp returns the 2-bit 'rp' field (bc, de, hl, sp) of a register pair.
// ix and iy encode as hl behind their prefix.
func (reg Reg) codeRp() (code byte, ok bool) {
	switch reg {
	case REG_BC:
		return 0, true
	case REG_DE:
		return 1, true
	case REG_HL, REG_IX, REG_IY:
		return 2, true
	case REG_SP:
		return 3, true
	}
	return 0, false
}

// codeRp2 returns the 2-bit 'rp2' field (bc, de, hl, af) used by push and pop.
func (reg Reg) codeRp2() (code byte, ok bool) {
	switch reg {
	case REG_BC:
		return 0, true
	case REG_DE:
		return 1, true
	case REG_HL, REG_IX, REG_IY:
		return 2, true
	case REG_AF:
		return 3, true
	}
	return 0, false
}
