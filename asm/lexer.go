// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"strings"

	"github.com/ezrec/sjasm/z80"
)

// operators, longest first.
var operators = []string{
	"||", "&&", "==", "!=", "<>", "<=", ">=", "<<", ">>",
	"|", "^", "&", "=", "<", ">", "+", "-", "*", "/", "%", "~", "!",
	"(", ")", "[", "]", ",", ":", "$",
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlnum(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '.' || ch == '?' || ch == '@'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

type lexer struct {
	text    string
	pos     Pos
	compass bool
	n       int
	space   bool
	toks    []Token
	err     error
}

// Lex splits one source line into tokens.
//
// The first lexical error is returned together with every token that
// could be recognized.
func Lex(text string, pos Pos, dialect Dialect) (toks []Token, err error) {
	lx := &lexer{
		text:    text,
		pos:     pos,
		compass: dialect == DIALECT_COMPASS,
	}
	lx.run()
	return lx.toks, lx.err
}

func (lx *lexer) fail(err error) {
	if lx.err == nil {
		lx.err = err
	}
}

func (lx *lexer) emit(tok Token, start int) {
	tok.Pos = lx.pos
	tok.Pos.Col = start + 1
	tok.Space = lx.space
	lx.toks = append(lx.toks, tok)
	lx.space = false
}

func (lx *lexer) peek(offset int) byte {
	if lx.n+offset >= len(lx.text) {
		return 0
	}
	return lx.text[lx.n+offset]
}

// operandStart returns true where a new operand may begin, so that the
// '%' and '&' literal prefixes are not taken for operators.
func (lx *lexer) operandStart() bool {
	if len(lx.toks) == 0 {
		return true
	}
	prev := lx.toks[len(lx.toks)-1]
	switch prev.Kind {
	case TOKEN_OPERATOR:
		return prev.Text != ")" && prev.Text != "]" && prev.Text != "$"
	case TOKEN_MNEMONIC, TOKEN_DIRECTIVE:
		return true
	}
	// Macro arguments: "name %1010".
	return lx.space && (lx.peek(1) == '0' || lx.peek(1) == '1') && lx.macroHead()
}

// macroHead returns true if the last token is the first word of the
// statement body, after any label.
func (lx *lexer) macroHead() bool {
	n := len(lx.toks) - 1
	if lx.toks[n].Kind != TOKEN_IDENT {
		return false
	}
	head := lx.toks[:n]
	switch len(head) {
	case 0:
		return true
	case 1:
		return head[0].Kind == TOKEN_IDENT && head[0].Pos.Col == 1
	case 2:
		return head[0].Kind == TOKEN_IDENT && head[1].isOp(":")
	}
	return false
}

func (lx *lexer) run() {
	for lx.n < len(lx.text) {
		ch := lx.text[lx.n]
		start := lx.n

		switch {
		case isSpace(ch):
			lx.n++
			lx.space = true
			continue
		case ch == ';':
			return
		case isDigit(ch):
			lx.number(start)
		case isIdentStart(ch):
			lx.ident(start)
		case ch == '"':
			lx.quoted(start)
		case ch == '\'':
			lx.apostrophed(start)
		default:
			if base, size := prefixBase(lx.text[lx.n:], lx.operandStart()); base != 0 {
				if lx.prefixed(start, base, size) {
					continue
				}
			}
			lx.operator(start)
		}
	}
}

// word scans the alphanumeric run at the current position.
func (lx *lexer) word() string {
	start := lx.n
	for lx.n < len(lx.text) && isAlnum(lx.text[lx.n]) {
		lx.n++
	}
	return lx.text[start:lx.n]
}

// group returns the next whitespace separated word if accept approves it,
// consuming it and the whitespace before it.
func (lx *lexer) group(accept func(word string) bool) (word string, ok bool) {
	n := lx.n
	for n < len(lx.text) && isSpace(lx.text[n]) {
		n++
	}
	if n == lx.n {
		return
	}
	end := n
	for end < len(lx.text) && isAlnum(lx.text[end]) {
		end++
	}
	if end == n || (end < len(lx.text) && isIdentChar(lx.text[end])) {
		return
	}
	word = lx.text[n:end]
	if !accept(word) {
		word = ""
		return
	}
	lx.n = end
	ok = true
	return
}

// spaced handles whitespace found inside a numeric literal.
func (lx *lexer) spaced(text string) {
	if !lx.compass {
		lx.fail(fmt.Errorf("%w: %v", ErrNumberSpace, text))
	}
}

// number scans an unprefixed literal. Digit groups separated by
// whitespace are joined into one literal.
func (lx *lexer) number(start int) {
	text := lx.word()
	spaced := false
	if hex, ok := lx.hexGroups(text); ok {
		text, spaced = hex, true
	} else {
		for {
			more, ok := lx.group(func(word string) bool { return isDigit(word[0]) })
			if !ok {
				break
			}
			text += more
			spaced = true
		}
	}
	if spaced {
		lx.spaced(lx.text[start:lx.n])
	}

	value, err := parseNumber(text)
	if err != nil {
		lx.fail(err)
	}
	lx.emit(Token{Kind: TOKEN_NUMBER, Text: text, Value: value}, start)
}

// hexGroups joins the hexadecimal digit groups of a "0x AA BB" or
// "0AA BBh" literal. The scan is undone unless the joined text is
// hexadecimal.
func (lx *lexer) hexGroups(text string) (joined string, ok bool) {
	prefixed := len(text) >= 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X')
	switch {
	case prefixed:
		if len(text) > 2 && !allDigits(text[2:], 16) {
			return
		}
	case !allDigits(text, 16):
		return
	}

	n := lx.n
	joined = text
	suffixed := false
	for !suffixed {
		more, found := lx.group(func(word string) bool {
			if allDigits(word, 16) {
				return true
			}
			last := word[len(word)-1]
			return !prefixed && (last == 'h' || last == 'H') && allDigits(word[:len(word)-1], 16)
		})
		if !found {
			break
		}
		joined += more
		suffixed = !allDigits(more, 16)
	}

	if joined == text || (!prefixed && !suffixed) {
		lx.n = n
		joined = ""
		return
	}
	ok = true
	return
}

// prefixed scans a '$', '#', '%' or '&' literal.
func (lx *lexer) prefixed(start int, base int, size int) bool {
	lx.n += size
	accept := func(word string) bool { return allDigits(word, base) }

	hexPrefix := lx.text[start] == '$' || lx.text[start] == '#'
	digits := lx.word()
	spaced := false
	if digits == "" {
		// "% 1100": whitespace right after the prefix.
		if hexPrefix {
			lx.n = start
			return false
		}
		word, ok := lx.group(accept)
		if !ok {
			lx.n = start
			return false
		}
		digits = word
		spaced = true
	} else if !accept(digits) {
		lx.n = start
		if hexPrefix {
			return false
		}
		lx.n = start + size + len(digits)
		lx.fail(fmt.Errorf("%w: %v", ErrNumberInvalid, lx.text[start:lx.n]))
		lx.emit(Token{Kind: TOKEN_NUMBER, Text: lx.text[start:lx.n]}, start)
		return true
	}

	for {
		more, ok := lx.group(accept)
		if !ok {
			break
		}
		digits += more
		spaced = true
	}
	if spaced {
		lx.spaced(lx.text[start:lx.n])
	}

	value, err := parseDigits(digits, base)
	if err != nil {
		lx.fail(err)
	}
	lx.emit(Token{Kind: TOKEN_NUMBER, Text: lx.text[start:lx.n], Value: value}, start)
	return true
}

func (lx *lexer) ident(start int) {
	for lx.n < len(lx.text) && isIdentChar(lx.text[lx.n]) {
		lx.n++
	}
	word := lx.text[start:lx.n]
	if strings.EqualFold(word, "af") && lx.peek(0) == '\'' {
		lx.n++
		word = lx.text[start:lx.n]
	}

	kind := TOKEN_IDENT
	switch {
	case z80.IsMnemonic(word):
		kind = TOKEN_MNEMONIC
	case IsDirective(word):
		kind = TOKEN_DIRECTIVE
	}
	lx.emit(Token{Kind: kind, Text: word}, start)
}

var escapeMap = map[byte]byte{
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'0':  0,
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
	'a':  0x07,
	'b':  0x08,
	'e':  0x1b,
	'f':  0x0c,
	'v':  0x0b,
}

// quoted scans a "..." string with C escapes.
func (lx *lexer) quoted(start int) {
	var sb strings.Builder
	lx.n++
	for {
		if lx.n >= len(lx.text) {
			lx.fail(ErrStringLonely)
			break
		}
		ch := lx.text[lx.n]
		lx.n++
		if ch == '"' {
			break
		}
		if ch == '\\' && lx.n < len(lx.text) {
			esc, ok := escapeMap[lx.text[lx.n]]
			if ok {
				ch = esc
				lx.n++
			}
		}
		sb.WriteByte(ch)
	}
	lx.emit(Token{Kind: TOKEN_STRING, Text: sb.String()}, start)
}

// apostrophed scans a '...' string; a doubled apostrophe is a quote.
func (lx *lexer) apostrophed(start int) {
	var sb strings.Builder
	lx.n++
	for {
		if lx.n >= len(lx.text) {
			lx.fail(ErrStringLonely)
			break
		}
		ch := lx.text[lx.n]
		lx.n++
		if ch == '\'' {
			if lx.peek(0) != '\'' {
				break
			}
			lx.n++
		}
		sb.WriteByte(ch)
	}
	lx.emit(Token{Kind: TOKEN_STRING, Text: sb.String()}, start)
}

func (lx *lexer) operator(start int) {
	for _, op := range operators {
		if strings.HasPrefix(lx.text[lx.n:], op) {
			lx.n += len(op)
			lx.emit(Token{Kind: TOKEN_OPERATOR, Text: op}, start)
			return
		}
	}
	lx.n++
	lx.fail(fmt.Errorf("%w: %q", ErrCharacter, lx.text[start]))
}
