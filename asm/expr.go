// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"slices"
)

// expr is a parsed expression, evaluated again in every pass.
type expr interface {
	eval(ev *evaluator) int64
}

// evaluator supplies symbol values and collects the first problem found.
// Missing symbols evaluate as zero.
type evaluator struct {
	lookup func(name string) (value int64, ok bool)
	pc     int64
	err    error
}

func (ev *evaluator) fail(err error) {
	if ev.err == nil {
		ev.err = err
	}
}

// value evaluates e, returning the first error encountered.
func (ev *evaluator) value(e expr) (value int64, err error) {
	ev.err = nil
	value = e.eval(ev)
	err = ev.err
	return
}

func truth(ok bool) int64 {
	if ok {
		return -1
	}
	return 0
}

type numExpr int64

func (e numExpr) eval(ev *evaluator) int64 {
	return int64(e)
}

type symExpr string

func (e symExpr) eval(ev *evaluator) int64 {
	value, ok := ev.lookup(string(e))
	if !ok {
		ev.fail(ErrLabelMissing(e))
	}
	return value
}

type pcExpr struct{}

func (e pcExpr) eval(ev *evaluator) int64 {
	return ev.pc
}

type unaryExpr struct {
	op string
	x  expr
}

func (e *unaryExpr) eval(ev *evaluator) int64 {
	x := e.x.eval(ev)
	switch e.op {
	case "-":
		return -x
	case "~":
		return ^x
	case "!":
		return truth(x == 0)
	}
	return x
}

type binaryExpr struct {
	op string
	x  expr
	y  expr
}

func (e *binaryExpr) eval(ev *evaluator) int64 {
	x := e.x.eval(ev)
	y := e.y.eval(ev)

	switch e.op {
	case "+":
		return x + y
	case "-":
		return x - y
	case "*":
		return x * y
	case "/", "%":
		if y == 0 {
			ev.fail(ErrDivideByZero)
			return 0
		}
		if e.op == "/" {
			return x / y
		}
		return x % y
	case "<<":
		return x << uint64(y&63)
	case ">>":
		return x >> uint64(y&63)
	case "&":
		return x & y
	case "|":
		return x | y
	case "^":
		return x ^ y
	case "==", "=":
		return truth(x == y)
	case "!=", "<>":
		return truth(x != y)
	case "<":
		return truth(x < y)
	case ">":
		return truth(x > y)
	case "<=":
		return truth(x <= y)
	case ">=":
		return truth(x >= y)
	case "&&":
		return truth(x != 0 && y != 0)
	case "||":
		return truth(x != 0 || y != 0)
	}
	return 0
}

// binaryLevels lists the binary operators, loosest binding first.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "=", "!=", "<>"},
	{"<", ">", "<=", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

type exprParser struct {
	toks    []Token
	n       int
	compass bool
}

// parseExpr parses all of toks as a single expression.
func parseExpr(toks []Token, compass bool) (e expr, err error) {
	if len(toks) == 0 {
		err = ErrOperandsMissing
		return
	}

	ep := &exprParser{toks: toks, compass: compass}
	e, err = ep.binary(0)
	if err != nil {
		return
	}
	if ep.n < len(toks) {
		err = fmt.Errorf("%w: %v", ErrExpression, joinTokens(toks[ep.n:]))
		e = nil
	}
	return
}

func (ep *exprParser) peek() (tok Token, ok bool) {
	if ep.n >= len(ep.toks) {
		return
	}
	return ep.toks[ep.n], true
}

func (ep *exprParser) binary(level int) (e expr, err error) {
	if level == len(binaryLevels) {
		return ep.unary()
	}

	e, err = ep.binary(level + 1)
	if err != nil {
		return
	}

	for {
		tok, ok := ep.peek()
		if !ok || tok.Kind != TOKEN_OPERATOR || !slices.Contains(binaryLevels[level], tok.Text) {
			return
		}
		ep.n++
		var y expr
		y, err = ep.binary(level + 1)
		if err != nil {
			return
		}
		e = &binaryExpr{op: tok.Text, x: e, y: y}
	}
}

var closerMap = map[string]string{
	"(": ")",
	"[": "]",
}

func (ep *exprParser) unary() (e expr, err error) {
	tok, ok := ep.peek()
	if !ok {
		err = ErrExpression
		return
	}
	ep.n++

	switch tok.Kind {
	case TOKEN_NUMBER:
		e = numExpr(tok.Value)
	case TOKEN_STRING:
		var value int64
		value, err = stringValue(tok.Text, ep.compass)
		e = numExpr(value)
	case TOKEN_IDENT, TOKEN_MNEMONIC, TOKEN_DIRECTIVE:
		e = symExpr(tok.Text)
	case TOKEN_OPERATOR:
		switch tok.Text {
		case "$":
			e = pcExpr{}
		case "-", "+", "~", "!":
			var x expr
			x, err = ep.unary()
			if err != nil {
				return
			}
			e = &unaryExpr{op: tok.Text, x: x}
		case "(", "[":
			e, err = ep.binary(0)
			if err != nil {
				return
			}
			closer, ok := ep.peek()
			if !ok || !closer.isOp(closerMap[tok.Text]) {
				err = ErrParenthesis
				return
			}
			ep.n++
		default:
			err = fmt.Errorf("%w: %v", ErrExpression, tok.Text)
		}
	}
	return
}

// stringValue packs up to four characters, first character most significant.
func stringValue(text string, compass bool) (value int64, err error) {
	switch {
	case len(text) == 0 && !compass:
		err = ErrStringEmpty
		return
	case len(text) > 4:
		err = fmt.Errorf("%w: %q", ErrStringLong, text)
		return
	}
	for n := range len(text) {
		value = value<<8 | int64(text[n])
	}
	return
}
