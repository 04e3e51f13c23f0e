// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package z80

import (
	"errors"
	"strings"
)

// encoder accumulates the bytes of one instruction.
type encoder struct {
	pc   int    // Address of the first byte.
	code []byte // Encoded bytes.
	err  error  // First range error, if any.
}

func (enc *encoder) emit(bytes ...byte) {
	enc.code = append(enc.code, bytes...)
}

func (enc *encoder) rangeErr(value, min, max int, strict bool) {
	if enc.err != nil {
		return
	}
	enc.err = &ErrRange{Value: value, Min: min, Max: max, Strict: strict}
}

func (enc *encoder) imm8(value int) {
	if value < -128 || value > 255 {
		enc.rangeErr(value, -128, 255, false)
	}
	enc.emit(byte(value))
}

func (enc *encoder) imm16(value int) {
	if value < -32768 || value > 65535 {
		enc.rangeErr(value, -32768, 65535, false)
	}
	enc.emit(byte(value), byte(value>>8))
}

func (enc *encoder) disp(value int) {
	if value < -128 || value > 127 {
		enc.rangeErr(value, -128, 127, true)
	}
	enc.emit(byte(value))
}

// rel emits the relative offset to target, measured from the end of the
// instruction (the offset byte is its last byte).
func (enc *encoder) rel(target int) {
	offset := target - (enc.pc + len(enc.code) + 1)
	if offset < -128 || offset > 127 {
		enc.rangeErr(offset, -128, 127, true)
	}
	enc.emit(byte(offset))
}

// prefixed emits an optional index prefix followed by the opcode.
func (enc *encoder) prefixed(prefix byte, opcode ...byte) {
	if prefix != 0 {
		enc.emit(prefix)
	}
	enc.emit(opcode...)
}

// r8 emits an 'r' form opcode: prefix, opcode, displacement.
func (enc *encoder) r8(r reg8, opcode byte) {
	enc.prefixed(r.prefix, opcode)
	if r.indexed {
		enc.disp(r.disp)
	}
}

type encodeFunc func(enc *encoder, ops []Operand) error

var impliedMap = map[string][]byte{
	"nop":  {0x00},
	"halt": {0x76},
	"di":   {0xf3},
	"ei":   {0xfb},
	"exx":  {0xd9},
	"daa":  {0x27},
	"cpl":  {0x2f},
	"scf":  {0x37},
	"ccf":  {0x3f},
	"rlca": {0x07},
	"rrca": {0x0f},
	"rla":  {0x17},
	"rra":  {0x1f},
	"neg":  {0xed, 0x44},
	"retn": {0xed, 0x45},
	"reti": {0xed, 0x4d},
	"rld":  {0xed, 0x6f},
	"rrd":  {0xed, 0x67},
	"ldi":  {0xed, 0xa0},
	"cpi":  {0xed, 0xa1},
	"ini":  {0xed, 0xa2},
	"outi": {0xed, 0xa3},
	"ldd":  {0xed, 0xa8},
	"cpd":  {0xed, 0xa9},
	"ind":  {0xed, 0xaa},
	"outd": {0xed, 0xab},
	"ldir": {0xed, 0xb0},
	"cpir": {0xed, 0xb1},
	"inir": {0xed, 0xb2},
	"otir": {0xed, 0xb3},
	"lddr": {0xed, 0xb8},
	"cpdr": {0xed, 0xb9},
	"indr": {0xed, 0xba},
	"otdr": {0xed, 0xbb},
}

// aluMap maps 8-bit arithmetic mnemonics to their 3-bit operation field.
var aluMap = map[string]byte{
	"add": 0,
	"adc": 1,
	"sub": 2,
	"sbc": 3,
	"and": 4,
	"xor": 5,
	"or":  6,
	"cp":  7,
}

// rotMap maps CB-prefixed shift and rotate mnemonics to their operation field.
var rotMap = map[string]byte{
	"rlc": 0,
	"rrc": 1,
	"rl":  2,
	"rr":  3,
	"sla": 4,
	"sra": 5,
	"sll": 6,
	"sli": 6,
	"srl": 7,
}

// bitMap maps bit instructions to their CB-prefixed base opcode.
var bitMap = map[string]byte{
	"bit": 0x40,
	"res": 0x80,
	"set": 0xc0,
}

var encodeMap map[string]encodeFunc

func init() {
	encodeMap = map[string]encodeFunc{
		"ld":   encodeLd,
		"inc":  func(enc *encoder, ops []Operand) error { return encodeIncDec(enc, ops, 0) },
		"dec":  func(enc *encoder, ops []Operand) error { return encodeIncDec(enc, ops, 1) },
		"jp":   encodeJp,
		"jr":   encodeJr,
		"djnz": encodeDjnz,
		"call": encodeCall,
		"ret":  encodeRet,
		"rst":  encodeRst,
		"im":   encodeIm,
		"ex":   encodeEx,
		"push": func(enc *encoder, ops []Operand) error { return encodeStack(enc, ops, 0xc5) },
		"pop":  func(enc *encoder, ops []Operand) error { return encodeStack(enc, ops, 0xc1) },
		"in":   encodeIn,
		"out":  encodeOut,
	}
	for name, bytes := range impliedMap {
		encodeMap[name] = func(enc *encoder, ops []Operand) error {
			if len(ops) != 0 {
				return ErrOperandExtra
			}
			enc.emit(bytes...)
			return nil
		}
	}
	for name, alu := range aluMap {
		encodeMap[name] = func(enc *encoder, ops []Operand) error { return encodeAlu(enc, ops, name, alu) }
	}
	for name, rot := range rotMap {
		encodeMap[name] = func(enc *encoder, ops []Operand) error { return encodeRot(enc, ops, rot) }
	}
	for name, base := range bitMap {
		encodeMap[name] = func(enc *encoder, ops []Operand) error { return encodeBit(enc, ops, base) }
	}
}

// IsMnemonic returns true if word names a Z80 instruction.
func IsMnemonic(word string) bool {
	_, ok := encodeMap[strings.ToLower(word)]
	return ok
}

// Encode assembles a single instruction located at address pc.
//
// If an operand value does not fit its field, the bytes are still returned
// together with an *ErrRange.
func Encode(mnemonic string, pc int, ops ...Operand) (code []byte, err error) {
	mnemonic = strings.ToLower(mnemonic)
	fn, ok := encodeMap[mnemonic]
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	enc := &encoder{pc: pc}
	err = fn(enc, ops)
	if err != nil {
		var rangeErr *ErrRange
		if !errors.As(err, &rangeErr) {
			err = &ErrOperand{Mnemonic: mnemonic, Operands: ops, Err: err}
			return
		}
	}

	code = enc.code
	err = enc.err
	return
}

func wantOperands(ops []Operand, min, max int) error {
	if len(ops) < min {
		return ErrOperandMissing
	}
	if len(ops) > max {
		return ErrOperandExtra
	}
	return nil
}

// ld8 encodes ld r,r' including the index register forms.
func ld8(enc *encoder, dst, src reg8) error {
	if dst.code == 6 && src.code == 6 {
		return ErrOperandInvalid
	}
	if dst.indexed || src.indexed {
		other := src
		if src.indexed {
			other = dst
		}
		if other.half || other.indexed {
			return ErrOperandInvalid
		}
	}
	if dst.half || src.half {
		if dst.code == 6 || src.code == 6 {
			return ErrOperandInvalid
		}
		if (dst.half && src.hl) || (src.half && dst.hl) {
			return ErrOperandInvalid
		}
		if dst.half && src.half && dst.prefix != src.prefix {
			return ErrOperandInvalid
		}
	}

	r := dst
	if src.prefix != 0 {
		r = src
	}
	r.prefix = max(dst.prefix, src.prefix)
	r.indexed = dst.indexed || src.indexed
	enc.r8(r, 0x40|dst.code<<3|src.code)
	return nil
}

func encodeLd(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 2, 2)
	if err != nil {
		return
	}
	dst, src := ops[0], ops[1]

	dst8, dstIs8 := dst.asReg8()
	src8, srcIs8 := src.asReg8()

	switch {
	case dstIs8 && srcIs8:
		return ld8(enc, dst8, src8)
	case dstIs8 && src.Mode == MODE_IMM:
		enc.r8(dst8, 0x06|dst8.code<<3)
		enc.imm8(src.Value)
		return
	case dst.isReg(REG_A):
		switch {
		case src.isInd(REG_BC):
			enc.emit(0x0a)
		case src.isInd(REG_DE):
			enc.emit(0x1a)
		case src.Mode == MODE_MEM:
			enc.emit(0x3a)
			enc.imm16(src.Value)
		case src.isReg(REG_I):
			enc.emit(0xed, 0x57)
		case src.isReg(REG_R):
			enc.emit(0xed, 0x5f)
		default:
			err = ErrOperandInvalid
		}
		return
	case src.isReg(REG_A):
		switch {
		case dst.isInd(REG_BC):
			enc.emit(0x02)
		case dst.isInd(REG_DE):
			enc.emit(0x12)
		case dst.Mode == MODE_MEM:
			enc.emit(0x32)
			enc.imm16(dst.Value)
		case dst.isReg(REG_I):
			enc.emit(0xed, 0x47)
		case dst.isReg(REG_R):
			enc.emit(0xed, 0x4f)
		default:
			err = ErrOperandInvalid
		}
		return
	case dst.Mode == MODE_REG && dst.Reg.Is16Bit():
		return ld16(enc, dst.Reg, src)
	case dst.Mode == MODE_MEM && src.Mode == MODE_REG:
		switch src.Reg {
		case REG_HL, REG_IX, REG_IY:
			enc.prefixed(src.Reg.prefix(), 0x22)
		case REG_BC, REG_DE, REG_SP:
			p, _ := src.Reg.codeRp()
			enc.emit(0xed, 0x43|p<<4)
		default:
			return ErrOperandInvalid
		}
		enc.imm16(dst.Value)
		return
	}

	return ErrOperandInvalid
}

// ld16 encodes the 16-bit loads into a register pair.
func ld16(enc *encoder, dst Reg, src Operand) error {
	p, ok := dst.codeRp()
	if !ok {
		return ErrOperandInvalid
	}

	switch src.Mode {
	case MODE_IMM:
		enc.prefixed(dst.prefix(), 0x01|p<<4)
		enc.imm16(src.Value)
		return nil
	case MODE_MEM:
		if p == 2 {
			enc.prefixed(dst.prefix(), 0x2a)
		} else {
			enc.emit(0xed, 0x4b|p<<4)
		}
		enc.imm16(src.Value)
		return nil
	case MODE_REG:
		if dst == REG_SP {
			switch src.Reg {
			case REG_HL, REG_IX, REG_IY:
				enc.prefixed(src.Reg.prefix(), 0xf9)
				return nil
			}
			return ErrOperandInvalid
		}
		// ld bc,de and friends: two 8-bit loads.
		dh, dl, ok := dst.Halves()
		if !ok {
			return ErrOperandInvalid
		}
		sh, sl, ok := src.Reg.Halves()
		if !ok {
			return ErrOperandInvalid
		}
		dhc, _ := dh.code8()
		dlc, _ := dl.code8()
		shc, _ := sh.code8()
		slc, _ := sl.code8()
		enc.emit(0x40|dhc<<3|shc, 0x40|dlc<<3|slc)
		return nil
	}

	return ErrOperandInvalid
}

func encodeIncDec(enc *encoder, ops []Operand, dec byte) (err error) {
	err = wantOperands(ops, 1, 1)
	if err != nil {
		return
	}
	op := ops[0]

	if r, ok := op.asReg8(); ok {
		enc.r8(r, 0x04|r.code<<3|dec)
		return
	}
	if op.Mode == MODE_REG {
		if p, ok := op.Reg.codeRp(); ok {
			enc.prefixed(op.Reg.prefix(), 0x03|p<<4|dec<<3)
			return
		}
	}
	return ErrOperandInvalid
}

func encodeAlu(enc *encoder, ops []Operand, name string, alu byte) (err error) {
	err = wantOperands(ops, 1, 2)
	if err != nil {
		return
	}

	if len(ops) == 2 && ops[0].Mode == MODE_REG && ops[0].Reg.Is16Bit() {
		return alu16(enc, name, ops[0].Reg, ops[1])
	}

	src := ops[0]
	if len(ops) == 2 {
		if !ops[0].isReg(REG_A) {
			return ErrOperandInvalid
		}
		src = ops[1]
	}

	if r, ok := src.asReg8(); ok {
		enc.r8(r, 0x80|alu<<3|r.code)
		return
	}
	if src.Mode == MODE_IMM {
		enc.emit(0xc6 | alu<<3)
		enc.imm8(src.Value)
		return
	}
	return ErrOperandInvalid
}

// alu16 encodes add/adc/sbc with a register pair destination.
func alu16(enc *encoder, name string, dst Reg, src Operand) error {
	if src.Mode != MODE_REG {
		return ErrOperandInvalid
	}

	var p byte
	switch src.Reg {
	case REG_BC:
		p = 0
	case REG_DE:
		p = 1
	case REG_SP:
		p = 3
	case dst:
		p = 2
	default:
		return ErrOperandInvalid
	}

	switch {
	case name == "add" && (dst == REG_HL || dst.IsIndex()):
		enc.prefixed(dst.prefix(), 0x09|p<<4)
	case name == "adc" && dst == REG_HL:
		enc.emit(0xed, 0x4a|p<<4)
	case name == "sbc" && dst == REG_HL:
		enc.emit(0xed, 0x42|p<<4)
	default:
		return ErrOperandInvalid
	}
	return nil
}

// cb emits a CB-prefixed operation on an 8-bit operand.
func cb(enc *encoder, r reg8, opcode byte) error {
	if r.half {
		return ErrOperandInvalid
	}
	if r.indexed {
		enc.emit(r.prefix, 0xcb)
		enc.disp(r.disp)
		enc.emit(opcode | 6)
		return nil
	}
	enc.emit(0xcb, opcode|r.code)
	return nil
}

func encodeRot(enc *encoder, ops []Operand, rot byte) (err error) {
	err = wantOperands(ops, 1, 1)
	if err != nil {
		return
	}
	r, ok := ops[0].asReg8()
	if !ok {
		return ErrOperandInvalid
	}
	return cb(enc, r, rot<<3)
}

func encodeBit(enc *encoder, ops []Operand, base byte) (err error) {
	err = wantOperands(ops, 2, 2)
	if err != nil {
		return
	}
	if ops[0].Mode != MODE_IMM {
		return ErrOperandInvalid
	}
	bit := ops[0].Value
	if bit < 0 || bit > 7 {
		enc.rangeErr(bit, 0, 7, true)
	}
	r, ok := ops[1].asReg8()
	if !ok {
		return ErrOperandInvalid
	}
	return cb(enc, r, base|byte(bit&7)<<3)
}

func encodeJp(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 1, 2)
	if err != nil {
		return
	}

	if len(ops) == 2 {
		if ops[0].Mode != MODE_COND || ops[1].Mode != MODE_IMM {
			return ErrOperandInvalid
		}
		enc.emit(0xc2 | byte(ops[0].Cond)<<3)
		enc.imm16(ops[1].Value)
		return
	}

	op := ops[0]
	switch {
	case op.Mode == MODE_IMM:
		enc.emit(0xc3)
		enc.imm16(op.Value)
	case op.isInd(REG_HL), op.isReg(REG_HL):
		enc.emit(0xe9)
	case op.Mode == MODE_IDX && op.Reg.IsIndex() && op.Value == 0,
		op.Mode == MODE_REG && op.Reg.IsIndex():
		enc.emit(op.Reg.prefix(), 0xe9)
	default:
		err = ErrOperandInvalid
	}
	return
}

func encodeJr(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 1, 2)
	if err != nil {
		return
	}

	target := ops[len(ops)-1]
	if target.Mode != MODE_IMM {
		return ErrOperandInvalid
	}

	if len(ops) == 2 {
		if ops[0].Mode != MODE_COND || ops[0].Cond > COND_C {
			return ErrOperandInvalid
		}
		enc.emit(0x20 | byte(ops[0].Cond)<<3)
	} else {
		enc.emit(0x18)
	}
	enc.rel(target.Value)
	return
}

func encodeDjnz(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 1, 1)
	if err != nil {
		return
	}
	if ops[0].Mode != MODE_IMM {
		return ErrOperandInvalid
	}
	enc.emit(0x10)
	enc.rel(ops[0].Value)
	return
}

func encodeCall(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 1, 2)
	if err != nil {
		return
	}

	target := ops[len(ops)-1]
	if target.Mode != MODE_IMM {
		return ErrOperandInvalid
	}
	if len(ops) == 2 {
		if ops[0].Mode != MODE_COND {
			return ErrOperandInvalid
		}
		enc.emit(0xc4 | byte(ops[0].Cond)<<3)
	} else {
		enc.emit(0xcd)
	}
	enc.imm16(target.Value)
	return
}

func encodeRet(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 0, 1)
	if err != nil {
		return
	}
	if len(ops) == 0 {
		enc.emit(0xc9)
		return
	}
	if ops[0].Mode != MODE_COND {
		return ErrOperandInvalid
	}
	enc.emit(0xc0 | byte(ops[0].Cond)<<3)
	return
}

func encodeRst(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 1, 1)
	if err != nil {
		return
	}
	if ops[0].Mode != MODE_IMM {
		return ErrOperandInvalid
	}
	vector := ops[0].Value
	if vector < 0 || vector > 0x38 || vector&7 != 0 {
		return ErrOperandInvalid
	}
	enc.emit(0xc7 | byte(vector))
	return
}

func encodeIm(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 1, 1)
	if err != nil {
		return
	}
	if ops[0].Mode != MODE_IMM {
		return ErrOperandInvalid
	}
	switch ops[0].Value {
	case 0:
		enc.emit(0xed, 0x46)
	case 1:
		enc.emit(0xed, 0x56)
	case 2:
		enc.emit(0xed, 0x5e)
	default:
		err = ErrOperandInvalid
	}
	return
}

func encodeEx(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 2, 2)
	if err != nil {
		return
	}
	a, b := ops[0], ops[1]

	switch {
	case a.isReg(REG_DE) && b.isReg(REG_HL), a.isReg(REG_HL) && b.isReg(REG_DE):
		enc.emit(0xeb)
	case a.isReg(REG_AF) && (b.isReg(REG_AFX) || b.isReg(REG_AF)):
		enc.emit(0x08)
	case a.isInd(REG_SP) && b.Mode == MODE_REG && (b.Reg == REG_HL || b.Reg.IsIndex()):
		enc.prefixed(b.Reg.prefix(), 0xe3)
	default:
		err = ErrOperandInvalid
	}
	return
}

func encodeStack(enc *encoder, ops []Operand, base byte) (err error) {
	err = wantOperands(ops, 1, 1)
	if err != nil {
		return
	}
	if ops[0].Mode != MODE_REG {
		return ErrOperandInvalid
	}
	p, ok := ops[0].Reg.codeRp2()
	if !ok {
		return ErrOperandInvalid
	}
	enc.prefixed(ops[0].Reg.prefix(), base|p<<4)
	return
}

// plain8 returns the 'r' field of b, c, d, e, h, l, a (and f as 6 when allowF).
func plain8(op Operand, allowF bool) (code byte, ok bool) {
	if op.Mode != MODE_REG {
		return 0, false
	}
	if allowF && op.Reg == REG_F {
		return 6, true
	}
	if op.Reg.prefix() != 0 {
		return 0, false
	}
	return op.Reg.code8()
}

func encodeIn(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 1, 2)
	if err != nil {
		return
	}
	if len(ops) == 1 {
		if !ops[0].isInd(REG_C) {
			return ErrOperandInvalid
		}
		enc.emit(0xed, 0x70)
		return
	}

	dst, src := ops[0], ops[1]
	switch {
	case dst.isReg(REG_A) && src.Mode == MODE_MEM:
		enc.emit(0xdb)
		enc.imm8(src.Value)
	case src.isInd(REG_C):
		code, ok := plain8(dst, true)
		if !ok {
			return ErrOperandInvalid
		}
		enc.emit(0xed, 0x40|code<<3)
	default:
		err = ErrOperandInvalid
	}
	return
}

func encodeOut(enc *encoder, ops []Operand) (err error) {
	err = wantOperands(ops, 2, 2)
	if err != nil {
		return
	}

	dst, src := ops[0], ops[1]
	switch {
	case dst.Mode == MODE_MEM && src.isReg(REG_A):
		enc.emit(0xd3)
		enc.imm8(dst.Value)
	case dst.isInd(REG_C) && src.Mode == MODE_IMM && src.Value == 0:
		enc.emit(0xed, 0x71)
	case dst.isInd(REG_C):
		code, ok := plain8(src, false)
		if !ok {
			return ErrOperandInvalid
		}
		enc.emit(0xed, 0x41|code<<3)
	default:
		err = ErrOperandInvalid
	}
	return
}
