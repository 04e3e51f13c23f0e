// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kinds(toks []Token) (list []TokenKind) {
	for _, tok := range toks {
		list = append(list, tok.Kind)
	}
	return
}

func TestLex(t *testing.T) {
	assert := assert.New(t)

	pos := Pos{File: "lex.asm", Line: 3}
	toks, err := Lex("start: ld a,(ix+2) ; comment", pos, DIALECT_NATIVE)
	assert.NoError(err)
	assert.Equal([]TokenKind{
		TOKEN_IDENT, TOKEN_OPERATOR,
		TOKEN_MNEMONIC, TOKEN_IDENT, TOKEN_OPERATOR,
		TOKEN_OPERATOR, TOKEN_IDENT, TOKEN_OPERATOR, TOKEN_NUMBER, TOKEN_OPERATOR,
	}, kinds(toks))
	assert.Equal(Pos{File: "lex.asm", Line: 3, Col: 1}, toks[0].Pos)
	assert.Equal(8, toks[2].Pos.Col)
	assert.True(toks[2].Space)
	assert.False(toks[1].Space)

	toks, err = Lex(" ex af,af'", pos, DIALECT_NATIVE)
	assert.NoError(err)
	if assert.Len(toks, 4) {
		assert.Equal("af'", toks[3].Text)
	}

	toks, err = Lex(" org $ + 10", pos, DIALECT_NATIVE)
	assert.NoError(err)
	if assert.Len(toks, 4) {
		assert.True(toks[1].isOp("$"))
	}

	toks, err = Lex(" IF x >= 2 && y <> 3", pos, DIALECT_NATIVE)
	assert.NoError(err)
	assert.Equal(TOKEN_DIRECTIVE, toks[0].Kind)
	assert.True(toks[2].isOp(">="))
	assert.True(toks[4].isOp("&&"))
	assert.True(toks[6].isOp("<>"))
}

func TestLexNumbers(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		text  string
		value int64
	}{
		{"123", 123},
		{"0x1F", 0x1f},
		{"1Fh", 0x1f},
		{"0FFh", 0xff},
		{"0b101", 5},
		{"101b", 5},
		{"17q", 15},
		{"17o", 15},
		{"99d", 99},
		{"$1f", 0x1f},
		{"#1F", 0x1f},
		{"%101", 5},
		{"&h1F", 0x1f},
		{"&b101", 5},
		{"&o17", 15},
		{"&q17", 15},
	}

	for _, c := range cases {
		toks, err := Lex(" db "+c.text, Pos{}, DIALECT_NATIVE)
		assert.NoError(err, c.text)
		if assert.Len(toks, 2, c.text) {
			assert.Equal(TOKEN_NUMBER, toks[1].Kind, c.text)
			assert.Equal(c.value, toks[1].Value, c.text)
		}
	}

	_, err := Lex(" db 12a", Pos{}, DIALECT_NATIVE)
	assert.ErrorIs(err, ErrNumberInvalid)

	_, err = Lex(" db %102", Pos{}, DIALECT_NATIVE)
	assert.ErrorIs(err, ErrNumberInvalid)
}

func TestLexOperatorPrefixes(t *testing.T) {
	assert := assert.New(t)

	// '%' and '&' are operators after an operand.
	toks, err := Lex(" db 7%2&3", Pos{}, DIALECT_NATIVE)
	assert.NoError(err)
	if assert.Len(toks, 6) {
		assert.True(toks[2].isOp("%"))
		assert.True(toks[4].isOp("&"))
	}

	toks, err = Lex(" db (x)%10", Pos{}, DIALECT_NATIVE)
	assert.NoError(err)
	if assert.Len(toks, 6) {
		assert.True(toks[4].isOp("%"))
	}

	toks, err = Lex(" db x %11", Pos{}, DIALECT_NATIVE)
	assert.NoError(err)
	if assert.Len(toks, 4) {
		assert.True(toks[2].isOp("%"))
		assert.Equal(int64(11), toks[3].Value)
	}

	// A macro argument may start with a binary literal.
	for _, text := range []string{" mac %11", "here: mac %11", "here mac %11"} {
		toks, err = Lex(text, Pos{}, DIALECT_NATIVE)
		assert.NoError(err, text)
		last := toks[len(toks)-1]
		assert.Equal(TOKEN_NUMBER, last.Kind, text)
		assert.Equal(int64(3), last.Value, text)
	}
}

func TestLexSpacedNumbers(t *testing.T) {
	assert := assert.New(t)

	for _, text := range []string{"% 11 00 11 00", "%1100 1100", "&b 1100 1100", "204", "2 0 4", "0cch", "0c ch", "0x c c", "0xc c"} {
		toks, err := Lex(" db "+text, Pos{}, DIALECT_COMPASS)
		assert.NoError(err, text)
		if assert.Len(toks, 2, text) {
			assert.Equal(int64(204), toks[1].Value, text)
		}

		if text != "204" && text != "0cch" {
			_, err = Lex(" db "+text, Pos{}, DIALECT_NATIVE)
			assert.ErrorIs(err, ErrNumberSpace, text)
		}
	}

	// Digit groups stop at the next operand.
	toks, err := Lex(" ld a,% 1010", Pos{}, DIALECT_COMPASS)
	assert.NoError(err)
	if assert.Len(toks, 4) {
		assert.Equal(int64(10), toks[3].Value)
	}
}

func TestLexStrings(t *testing.T) {
	assert := assert.New(t)

	toks, err := Lex(` db "a\tb\"", 'it''s', ""`, Pos{}, DIALECT_NATIVE)
	assert.NoError(err)
	if assert.Len(toks, 6) {
		assert.Equal("a\tb\"", toks[1].Text)
		assert.Equal("it's", toks[3].Text)
		assert.Equal("", toks[5].Text)
		assert.Equal(TOKEN_STRING, toks[5].Kind)
	}

	_, err = Lex(` db "open`, Pos{}, DIALECT_NATIVE)
	assert.ErrorIs(err, ErrStringLonely)

	_, err = Lex(" db 1 ` 2", Pos{}, DIALECT_NATIVE)
	assert.ErrorIs(err, ErrCharacter)
}
