// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/ezrec/sjasm/z80"
)

// MAX_SPACE bounds a single ds or align reservation.
const MAX_SPACE = 0x1000000

// stmt is a statement of the program, executed once per pass.
type stmt interface {
	base() *node
	exec(p *pass)
}

// node holds the parts common to all statements.
type node struct {
	seq   int    // Source order.
	pos   Pos    // Location.
	text  string // Source text.
	label string // Label defined at the statement address.
}

func (nd *node) base() *node {
	return nd
}

// labelStmt only defines its label.
type labelStmt struct {
	node
}

func (s *labelStmt) exec(p *pass) {}

// badStmt reports an error found while building the program. The error is
// reported only if the statement is reached.
type badStmt struct {
	node
	err error
}

func (s *badStmt) exec(p *pass) {
	p.fail(s.err)
}

// operand is an instruction operand with an unevaluated value.
type operand struct {
	mode  z80.Mode
	reg   z80.Reg
	cond  z80.Cond
	value expr
}

func (op operand) resolve(p *pass) z80.Operand {
	zop := z80.Operand{Mode: op.mode, Reg: op.reg, Cond: op.cond}
	if op.value != nil {
		zop.Value = int(p.eval(op.value))
	}
	return zop
}

// instrStmt is a Z80 instruction.
type instrStmt struct {
	node
	mnemonic string
	ops      []operand
}

func (s *instrStmt) exec(p *pass) {
	ops := make([]z80.Operand, len(s.ops))
	for n, op := range s.ops {
		ops[n] = op.resolve(p)
	}

	code, err := z80.Encode(s.mnemonic, int(p.pc), ops...)
	if err != nil {
		p.report(err)
	}
	p.emit(code...)
}

// dataItem is a db/dw/dd operand: a string of bytes or an expression.
type dataItem struct {
	bytes []byte
	value expr
}

// dataStmt emits bytes, words or double words.
type dataStmt struct {
	node
	width int
	items []dataItem
}

func (s *dataStmt) exec(p *pass) {
	for _, item := range s.items {
		if len(item.bytes) > 0 {
			p.emit(item.bytes...)
			continue
		}
		p.emitValue(p.eval(item.value), s.width)
	}
}

// spaceStmt reserves bytes.
type spaceStmt struct {
	node
	count expr
	fill  expr
}

func (s *spaceStmt) exec(p *pass) {
	count := p.eval(s.count)
	if count < 0 || count > MAX_SPACE {
		p.fail(&z80.ErrRange{Value: int(count), Min: 0, Max: MAX_SPACE, Strict: true})
		return
	}
	p.emit(bytes.Repeat([]byte{p.fillByte(s.fill)}, int(count))...)
}

// alignStmt pads to a multiple of its boundary.
type alignStmt struct {
	node
	boundary expr
	fill     expr
}

func (s *alignStmt) exec(p *pass) {
	boundary := p.eval(s.boundary)
	if boundary <= 0 || boundary > MAX_SPACE {
		p.fail(&z80.ErrRange{Value: int(boundary), Min: 1, Max: MAX_SPACE, Strict: true})
		return
	}
	pad := (boundary - (p.pc%boundary+boundary)%boundary) % boundary
	p.emit(bytes.Repeat([]byte{p.fillByte(s.fill)}, int(pad))...)
}

// orgStmt moves the program counter. No padding is emitted.
type orgStmt struct {
	node
	addr expr
}

func (s *orgStmt) exec(p *pass) {
	p.pc = p.eval(s.addr)
}

// equStmt defines a constant (equ) or a variable (=, defl).
type equStmt struct {
	node
	name     string
	value    expr
	variable bool
}

func (s *equStmt) exec(p *pass) {
	value := p.eval(s.value)
	scope := scopeOf(s.name)
	if s.variable {
		scope = SCOPE_VARIABLE
	}
	p.define(s.name, value, scope)
}

// incbinStmt emits (part of) a binary file read while building.
type incbinStmt struct {
	node
	name   string
	data   []byte
	offset expr
	length expr
}

func (s *incbinStmt) exec(p *pass) {
	var offset, length int64
	if s.offset != nil {
		offset = p.eval(s.offset)
	}
	length = int64(len(s.data)) - offset
	if s.length != nil {
		length = p.eval(s.length)
	}

	if offset < 0 || offset > int64(len(s.data)) || length < 0 || offset+length > int64(len(s.data)) {
		p.fail(fmt.Errorf("%w: %v", ErrIncbinRange, s.name))
		return
	}
	p.emit(s.data[offset : offset+length]...)
}

// assertStmt fails when its condition is zero.
type assertStmt struct {
	node
	cond expr
}

func (s *assertStmt) exec(p *pass) {
	if p.eval(s.cond) == 0 {
		p.fail(fmt.Errorf("%w: %v", ErrAssertion, s.text))
	}
}

// errorStmt raises a user error.
type errorStmt struct {
	node
	msg string
}

func (s *errorStmt) exec(p *pass) {
	p.fail(ErrUser(s.msg))
}

// ifStmt is a conditional block: if, ifdef, ifndef or cond.
type ifStmt struct {
	node
	cond    expr   // if and cond
	defined string // ifdef and ifndef
	negate  bool   // ifndef
	then    []stmt
	els     []stmt
}

func (s *ifStmt) exec(p *pass) {
	var ok bool
	if s.cond != nil {
		ok = p.eval(s.cond) != 0
	} else {
		ok = p.isDefined(s.defined) != s.negate
	}

	if ok {
		p.run(s.then)
	} else {
		p.run(s.els)
	}
}

// reptStmt repeats its body.
type reptStmt struct {
	node
	count expr
	body  []stmt
}

func (s *reptStmt) exec(p *pass) {
	count := p.eval(s.count)
	if count < 0 || count > MAX_REPEAT {
		p.fail(&z80.ErrRange{Value: int(count), Min: 0, Max: MAX_REPEAT, Strict: true})
		return
	}
	for range count {
		if p.fatal != nil {
			return
		}
		p.run(s.body)
	}
}

// isBlock returns true for statements that only run other statements.
func isBlock(s stmt) bool {
	switch s.(type) {
	case *ifStmt, *reptStmt:
		return true
	}
	return false
}

// reversed returns a reversed copy of ops.
func reversed(ops []operand) []operand {
	ops = slices.Clone(ops)
	slices.Reverse(ops)
	return ops
}
