// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"strings"

	"github.com/ezrec/sjasm/z80"
)

// frame is an open if or rept block.
type frame struct {
	ifs    *ifStmt
	rept   *reptStmt
	pos    Pos
	inElse bool
}

// builder turns expanded lines into the statement tree.
type builder struct {
	opts   *Options
	diags  *Diagnostics
	seq    int
	global string // Last global label, owner of .local labels.
	root   []stmt
	stack  []*frame
}

func newBuilder(opts *Options, diags *Diagnostics) *builder {
	return &builder{
		opts:  opts,
		diags: diags,
	}
}

// fail records a structural error, reported even in skipped blocks.
func (bd *builder) fail(pos Pos, err error) {
	bd.diags.Add(Diagnostic{
		Severity: SEVERITY_ERROR,
		Class:    classOf(err),
		Pos:      pos,
		Pass:     1,
		Err:      err,
	})
}

// add appends a statement to the innermost open block.
func (bd *builder) add(s stmt) {
	if len(bd.stack) == 0 {
		bd.root = append(bd.root, s)
		return
	}

	top := bd.stack[len(bd.stack)-1]
	switch {
	case top.rept != nil:
		top.rept.body = append(top.rept.body, s)
	case top.inElse:
		top.ifs.els = append(top.ifs.els, s)
	default:
		top.ifs.then = append(top.ifs.then, s)
	}
}

func (bd *builder) top() *frame {
	if len(bd.stack) == 0 {
		return nil
	}
	return bd.stack[len(bd.stack)-1]
}

func (bd *builder) push(fr *frame) {
	if fr.ifs != nil {
		bd.add(fr.ifs)
	} else {
		bd.add(fr.rept)
	}
	bd.stack = append(bd.stack, fr)
}

func (bd *builder) pop(pos Pos, rept bool, lonely error) {
	top := bd.top()
	if top == nil || (top.rept != nil) != rept {
		bd.fail(pos, lonely)
		return
	}
	bd.stack = bd.stack[:len(bd.stack)-1]
}

// build processes all lines. The only error returned is a fatal file
// access error, already recorded as a diagnostic.
func (bd *builder) build(lines []line) (err error) {
	for _, ln := range lines {
		err = bd.line(ln)
		if err != nil {
			bd.diags.Add(Diagnostic{
				Severity: SEVERITY_FATAL,
				Class:    classOf(err),
				Pos:      ln.pos,
				Pass:     1,
				Err:      err,
			})
			return
		}
	}

	for _, fr := range bd.stack {
		if fr.rept != nil {
			bd.fail(fr.pos, ErrReptLonely)
		} else {
			bd.fail(fr.pos, ErrIfLonely)
		}
	}
	bd.stack = nil
	return
}

// qualify expands a .local label name with its owning global label.
func (bd *builder) qualify(name string) string {
	if strings.HasPrefix(name, ".") {
		return bd.global + name
	}
	return name
}

// qualifyAll qualifies every .local name in toks.
func (bd *builder) qualifyAll(toks []Token) []Token {
	var out []Token
	for n, tok := range toks {
		if tok.Kind == TOKEN_IDENT && strings.HasPrefix(tok.Text, ".") {
			if out == nil {
				out = append([]Token(nil), toks...)
			}
			out[n].Text = bd.qualify(tok.Text)
		}
	}
	if out == nil {
		return toks
	}
	return out
}

func (bd *builder) expr(toks []Token) (expr, error) {
	return parseExpr(bd.qualifyAll(toks), bd.opts.compass())
}

// label returns the symbol name defined by a label token.
func (bd *builder) label(tok Token) (name string, err error) {
	name = tok.Text
	switch {
	case name == ".":
		err = fmt.Errorf("%w: %v", ErrLabelInvalid, name)
	case strings.HasPrefix(name, "."):
		name = bd.qualify(name)
	case strings.Contains(name, ">"):
		// Macro instance local.
	default:
		if _, ok := z80.LookupReg(name); ok {
			err = fmt.Errorf("%w: %v", ErrLabelInvalid, name)
			return
		}
		bd.global = name
	}
	return
}

// compassWord returns the first '@' identifier of toks.
func compassWord(toks []Token) (word string, ok bool) {
	for _, tok := range toks {
		if tok.isWord() && strings.Contains(tok.Text, "@") {
			return tok.Text, true
		}
	}
	return
}

func (bd *builder) newNode(ln line) node {
	bd.seq++
	return node{seq: bd.seq, pos: ln.pos, text: ln.text}
}

func (bd *builder) line(ln line) (err error) {
	nd := bd.newNode(ln)

	if ln.err != nil {
		bd.add(&badStmt{node: nd, err: ln.err})
		return
	}

	label, hasLabel, body := splitLabel(ln.toks)
	if hasLabel {
		nd.label, err = bd.label(label)
		if err != nil {
			bd.add(&badStmt{node: nd, err: err})
			return nil
		}
	}

	if ln.script != "" {
		bd.add(&scriptStmt{node: nd, src: ln.script})
		return
	}

	if !bd.opts.compass() {
		if word, ok := compassWord(ln.toks); ok {
			nd.label = ""
			bd.add(&badStmt{node: nd, err: fmt.Errorf("%w: %v", ErrCompassOnly, word)})
			return
		}
	}

	if len(body) == 0 {
		if nd.label != "" {
			bd.add(&labelStmt{node: nd})
		}
		return
	}

	head := body[0]
	args := body[1:]
	switch {
	case head.isOp("="):
		bd.equate(nd, "=", args)
	case head.Kind == TOKEN_DIRECTIVE:
		return bd.directive(nd, strings.ToLower(head.Text), args)
	case head.Kind == TOKEN_MNEMONIC:
		bd.instruction(nd, strings.ToLower(head.Text), args)
	default:
		bd.add(&badStmt{node: nd, err: ErrInstruction(head.String())})
	}
	return
}

// labelOnly splits the label off a structural directive line.
func (bd *builder) labelOnly(nd *node) {
	if nd.label == "" {
		return
	}
	bd.add(&labelStmt{node: *nd})
	nd.label = ""
}

func (bd *builder) bad(nd node, err error) {
	bd.add(&badStmt{node: nd, err: err})
}

func (bd *builder) equate(nd node, word string, args []Token) {
	name := nd.label
	if name == "" {
		bd.bad(nd, fmt.Errorf("%w: %v", ErrLabelRequired, word))
		return
	}
	value, err := bd.expr(args)
	if err != nil {
		bd.bad(nd, err)
		return
	}
	nd.label = ""
	bd.add(&equStmt{node: nd, name: name, value: value, variable: word != "equ"})
}

// exprs parses between least and most comma separated expressions.
// Missing optional expressions are nil.
func (bd *builder) exprs(args []Token, least int, most int) (list []expr, err error) {
	groups := splitArgs(args)
	if len(groups) < least {
		err = ErrOperandsMissing
		return
	}
	if len(groups) > most {
		err = fmt.Errorf("%w: %v", ErrOperandsExtra, joinTokens(args))
		return
	}
	list = make([]expr, most)
	for n, group := range groups {
		list[n], err = bd.expr(group)
		if err != nil {
			return
		}
	}
	return
}

var dataWidth = map[string]int{
	"db":    1,
	"defb":  1,
	"byte":  1,
	"dm":    1,
	"defm":  1,
	"dw":    2,
	"defw":  2,
	"word":  2,
	"dd":    4,
	"dword": 4,
}

func (bd *builder) data(nd node, width int, args []Token) {
	groups := splitArgs(args)
	if len(groups) == 0 {
		bd.bad(nd, ErrOperandsMissing)
		return
	}

	s := &dataStmt{node: nd, width: width}
	for _, group := range groups {
		if width == 1 && len(group) == 1 && group[0].Kind == TOKEN_STRING {
			text := group[0].Text
			if text == "" {
				if !bd.opts.compass() {
					bd.bad(nd, ErrStringEmpty)
					return
				}
				s.items = append(s.items, dataItem{bytes: []byte{0}})
				continue
			}
			s.items = append(s.items, dataItem{bytes: []byte(text)})
			continue
		}

		value, err := bd.expr(group)
		if err != nil {
			bd.bad(nd, err)
			return
		}
		s.items = append(s.items, dataItem{value: value})
	}
	bd.add(s)
}

func (bd *builder) directive(nd node, word string, args []Token) (err error) {
	if width, ok := dataWidth[word]; ok {
		bd.data(nd, width, args)
		return
	}

	switch word {
	case "equ", "defl":
		bd.equate(nd, word, args)
	case "org":
		list, err := bd.exprs(args, 1, 1)
		if err != nil {
			bd.bad(nd, err)
			return nil
		}
		bd.add(&orgStmt{node: nd, addr: list[0]})
	case "ds", "defs", "block":
		list, err := bd.exprs(args, 1, 2)
		if err != nil {
			bd.bad(nd, err)
			return nil
		}
		bd.add(&spaceStmt{node: nd, count: list[0], fill: list[1]})
	case "align":
		list, err := bd.exprs(args, 1, 2)
		if err != nil {
			bd.bad(nd, err)
			return nil
		}
		bd.add(&alignStmt{node: nd, boundary: list[0], fill: list[1]})
	case "incbin":
		return bd.incbin(nd, args)
	case "include", "end":
		// Handled while loading.
		bd.labelOnly(&nd)
	case "assert":
		list, err := bd.exprs(args, 1, 1)
		if err != nil {
			bd.bad(nd, err)
			return nil
		}
		bd.add(&assertStmt{node: nd, cond: list[0]})
	case "error":
		msg := joinTokens(args)
		if len(args) == 1 && args[0].Kind == TOKEN_STRING {
			msg = args[0].Text
		}
		bd.add(&errorStmt{node: nd, msg: msg})
	case "if", "cond":
		if word == "cond" && !bd.opts.compass() {
			bd.fail(nd.pos, fmt.Errorf("%w: %v", ErrCompassOnly, word))
		}
		bd.labelOnly(&nd)
		s := &ifStmt{node: nd}
		s.cond, err = bd.expr(args)
		if err != nil {
			bd.fail(nd.pos, err)
			err = nil
		}
		if s.cond == nil {
			s.cond = numExpr(0)
		}
		bd.push(&frame{ifs: s, pos: nd.pos})
	case "ifdef", "ifndef":
		bd.labelOnly(&nd)
		s := &ifStmt{node: nd, negate: word == "ifndef"}
		if len(args) != 1 || !args[0].isWord() {
			bd.fail(nd.pos, fmt.Errorf("%w: %v", ErrLabelInvalid, joinTokens(args)))
		} else {
			s.defined = bd.qualify(args[0].Text)
		}
		bd.push(&frame{ifs: s, pos: nd.pos})
	case "else":
		bd.labelOnly(&nd)
		top := bd.top()
		switch {
		case top == nil || top.ifs == nil:
			bd.fail(nd.pos, ErrElseLonely)
		case top.inElse:
			bd.fail(nd.pos, ErrElseDuplicate)
		default:
			top.inElse = true
		}
	case "endif", "endc":
		if word == "endc" && !bd.opts.compass() {
			bd.fail(nd.pos, fmt.Errorf("%w: %v", ErrCompassOnly, word))
		}
		bd.labelOnly(&nd)
		bd.pop(nd.pos, false, ErrEndifLonely)
	case "rept", "dup":
		bd.labelOnly(&nd)
		s := &reptStmt{node: nd}
		s.count, err = bd.expr(args)
		if err != nil {
			bd.fail(nd.pos, err)
			err = nil
		}
		if s.count == nil {
			s.count = numExpr(0)
		}
		bd.push(&frame{rept: s, pos: nd.pos})
	case "endr", "edup":
		bd.labelOnly(&nd)
		bd.pop(nd.pos, true, ErrEndrLonely)
	case "endscript":
		bd.fail(nd.pos, ErrScriptLonely)
	default:
		// macro and endm are consumed by the expander.
		bd.bad(nd, fmt.Errorf("%w: %v", ErrMacroSyntax, word))
	}
	return
}

func (bd *builder) incbin(nd node, args []Token) (err error) {
	name, rest, err := fileName(args)
	if err != nil {
		bd.bad(nd, err)
		return nil
	}

	s := &incbinStmt{node: nd, name: name}
	if len(rest) > 0 {
		if !rest[0].isOp(",") {
			bd.bad(nd, fmt.Errorf("%w: %v", ErrOperandsExtra, joinTokens(rest)))
			return nil
		}
		list, err := bd.exprs(rest[1:], 1, 2)
		if err != nil {
			bd.bad(nd, err)
			return nil
		}
		s.offset, s.length = list[0], list[1]
	}

	_, s.data, err = bd.opts.find(name, nd.pos.File)
	if err != nil {
		return
	}

	bd.add(s)
	return
}

// condFirst returns true if the first operand of mnemonic may be a
// condition.
func condFirst(mnemonic string, count int) bool {
	switch mnemonic {
	case "jp", "jr", "call":
		return count == 2
	case "ret":
		return count == 1
	}
	return false
}

func (bd *builder) instruction(nd node, mnemonic string, args []Token) {
	groups := splitArgs(args)
	ops := make([]operand, 0, len(groups))
	for n, group := range groups {
		op, err := bd.operand(group, n == 0 && condFirst(mnemonic, len(groups)))
		if err != nil {
			bd.bad(nd, err)
			return
		}
		ops = append(ops, op)
	}

	if (mnemonic == "push" || mnemonic == "pop") && len(ops) > 1 {
		if mnemonic == "pop" && bd.opts.reversePop() {
			ops = reversed(ops)
		}
		for n, op := range ops {
			single := nd
			if n > 0 {
				single.label = ""
			}
			bd.add(&instrStmt{node: single, mnemonic: mnemonic, ops: []operand{op}})
		}
		return
	}

	bd.add(&instrStmt{node: nd, mnemonic: mnemonic, ops: ops})
}

// enclosed returns the tokens inside a fully parenthesized operand.
func enclosed(toks []Token) (inner []Token, ok bool) {
	if len(toks) < 2 {
		return
	}
	open := toks[0].Text
	if !toks[0].isOp("(") && !toks[0].isOp("[") {
		return
	}
	closer := closerMap[open]
	if !toks[len(toks)-1].isOp(closer) {
		return
	}

	depth := 0
	for n, tok := range toks {
		switch {
		case tok.isOp("(") || tok.isOp("["):
			depth++
		case tok.isOp(")") || tok.isOp("]"):
			depth--
			if depth == 0 && n != len(toks)-1 {
				return
			}
		}
	}
	return toks[1 : len(toks)-1], true
}

// operand classifies an instruction operand.
func (bd *builder) operand(toks []Token, maybeCond bool) (op operand, err error) {
	if len(toks) == 0 {
		err = ErrOperandsMissing
		return
	}

	if len(toks) == 1 && toks[0].isWord() {
		word := toks[0].Text
		if maybeCond {
			if cond, ok := z80.LookupCond(word); ok {
				op = operand{mode: z80.MODE_COND, cond: cond}
				return
			}
		}
		if reg, ok := z80.LookupReg(word); ok {
			op = operand{mode: z80.MODE_REG, reg: reg}
			return
		}
	}

	inner, ok := enclosed(toks)
	if !ok {
		op.mode = z80.MODE_IMM
		op.value, err = bd.expr(toks)
		return
	}

	if len(inner) > 0 && inner[0].isWord() {
		if reg, ok := z80.LookupReg(inner[0].Text); ok {
			switch {
			case len(inner) == 1 && reg.IsIndex():
				op = operand{mode: z80.MODE_IDX, reg: reg, value: numExpr(0)}
			case len(inner) == 1:
				op = operand{mode: z80.MODE_IND, reg: reg}
			case reg.IsIndex() && (inner[1].isOp("+") || inner[1].isOp("-")):
				op = operand{mode: z80.MODE_IDX, reg: reg}
				op.value, err = bd.expr(inner[1:])
			default:
				err = fmt.Errorf("%w: %v", ErrExpression, joinTokens(toks))
			}
			return
		}
	}

	op.mode = z80.MODE_MEM
	op.value, err = bd.expr(inner)
	return
}
