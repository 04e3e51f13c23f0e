// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func evalText(t *testing.T, text string, compass bool, symbols map[string]int64) (int64, error) {
	t.Helper()
	dialect := DIALECT_NATIVE
	if compass {
		dialect = DIALECT_COMPASS
	}
	toks, err := Lex(text, Pos{}, dialect)
	if err != nil {
		return 0, err
	}
	e, err := parseExpr(toks, compass)
	if err != nil {
		return 0, err
	}
	ev := &evaluator{
		pc: 0x100,
		lookup: func(name string) (value int64, ok bool) {
			value, ok = symbols[name]
			return
		},
	}
	return ev.value(e)
}

func TestExpr(t *testing.T) {
	assert := assert.New(t)

	symbols := map[string]int64{"ten": 10, "two": 2}
	cases := []struct {
		text  string
		value int64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"[1+2]*3", 9},
		{"ten/two-1", 4},
		{"ten%3", 1},
		{"-ten", -10},
		{"~0", -1},
		{"!0", -1},
		{"!5", 0},
		{"1<<4|1", 17},
		{"0xff>>4", 15},
		{"6&3^1", 3},
		{"ten == 10", -1},
		{"ten = 11", 0},
		{"ten <> 10", 0},
		{"two < ten && ten > two", -1},
		{"two >= ten || 0", 0},
		{"$ + 2", 0x102},
		{"'A'", 65},
		{`"AB"`, 0x4142},
	}

	for _, c := range cases {
		value, err := evalText(t, c.text, false, symbols)
		assert.NoError(err, c.text)
		assert.Equal(c.value, value, c.text)
	}
}

func TestExprErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := evalText(t, "1/0", false, nil)
	assert.ErrorIs(err, ErrDivideByZero)

	_, err = evalText(t, "(1+2", false, nil)
	assert.ErrorIs(err, ErrParenthesis)

	_, err = evalText(t, "1 2", false, nil)
	assert.ErrorIs(err, ErrNumberSpace)

	_, err = evalText(t, "1 )", false, nil)
	assert.ErrorIs(err, ErrExpression)

	_, err = evalText(t, "1+", false, nil)
	assert.ErrorIs(err, ErrExpression)

	_, err = evalText(t, `"toolong"`, false, nil)
	assert.ErrorIs(err, ErrStringLong)

	_, err = evalText(t, `""`, false, nil)
	assert.ErrorIs(err, ErrStringEmpty)

	value, err := evalText(t, `""`, true, nil)
	assert.NoError(err)
	assert.Equal(int64(0), value)

	value, err = evalText(t, "missing+1", false, nil)
	assert.Equal(ErrLabelMissing("missing"), err)
	assert.Equal(int64(1), value)

	_, err = parseExpr(nil, false)
	assert.ErrorIs(err, ErrOperandsMissing)
}
