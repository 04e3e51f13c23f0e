// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"strings"
)

// Pos is a source location.
type Pos struct {
	File string
	Line int
	Col  int
}

func (pos Pos) String() string {
	return fmt.Sprintf("%v(%d)", pos.File, pos.Line)
}

// TokenKind classifies a token.
type TokenKind int

//go:generate go tool stringer -linecomment -type=TokenKind
const (
	TOKEN_IDENT     = TokenKind(0) // ident
	TOKEN_MNEMONIC  = TokenKind(1) // mnemonic
	TOKEN_DIRECTIVE = TokenKind(2) // directive
	TOKEN_NUMBER    = TokenKind(3) // number
	TOKEN_STRING    = TokenKind(4) // string
	TOKEN_OPERATOR  = TokenKind(5) // operator
)

// Token is a lexical element of a source line.
type Token struct {
	Kind  TokenKind
	Text  string // Word, operator, or decoded string contents.
	Value int64  // Value of a number.
	Pos   Pos
	Space bool // Preceded by whitespace.
}

func (tok Token) String() string {
	switch tok.Kind {
	case TOKEN_NUMBER:
		return fmt.Sprintf("%d", tok.Value)
	case TOKEN_STRING:
		return fmt.Sprintf("%q", tok.Text)
	}
	return tok.Text
}

// isWord returns true for identifiers, mnemonics and directives.
func (tok Token) isWord() bool {
	return tok.Kind == TOKEN_IDENT || tok.Kind == TOKEN_MNEMONIC || tok.Kind == TOKEN_DIRECTIVE
}

// isKeyword compares a word token against a keyword, ignoring case.
func (tok Token) isKeyword(keyword string) bool {
	return tok.isWord() && strings.EqualFold(tok.Text, keyword)
}

func (tok Token) isOp(op string) bool {
	return tok.Kind == TOKEN_OPERATOR && tok.Text == op
}

// directiveMap lists the reserved directive words.
var directiveMap = map[string]bool{
	"org":       true,
	"equ":       true,
	"defl":      true,
	"db":        true,
	"defb":      true,
	"byte":      true,
	"dm":        true,
	"defm":      true,
	"dw":        true,
	"defw":      true,
	"word":      true,
	"dd":        true,
	"dword":     true,
	"ds":        true,
	"defs":      true,
	"block":     true,
	"align":     true,
	"incbin":    true,
	"include":   true,
	"if":        true,
	"ifdef":     true,
	"ifndef":    true,
	"else":      true,
	"endif":     true,
	"cond":      true,
	"endc":      true,
	"rept":      true,
	"dup":       true,
	"endr":      true,
	"edup":      true,
	"assert":    true,
	"error":     true,
	"end":       true,
	"macro":     true,
	"endm":      true,
	"script":    true,
	"endscript": true,
}

// IsDirective returns true if word is a directive name.
func IsDirective(word string) bool {
	return directiveMap[strings.ToLower(word)]
}

// joinTokens renders tokens back into source-like text.
func joinTokens(toks []Token) string {
	var sb strings.Builder
	for n, tok := range toks {
		if n > 0 && tok.Space {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.String())
	}
	return sb.String()
}
