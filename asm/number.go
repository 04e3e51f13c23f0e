// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// digitOf returns the value of a digit character, or -1.
func digitOf(ch byte) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'z':
		return int(ch-'a') + 10
	case ch >= 'A' && ch <= 'Z':
		return int(ch-'A') + 10
	}
	return -1
}

// allDigits returns true if every character of text is a digit of base.
func allDigits(text string, base int) bool {
	if len(text) == 0 {
		return false
	}
	for n := range len(text) {
		d := digitOf(text[n])
		if d < 0 || d >= base {
			return false
		}
	}
	return true
}

// parseDigits converts digits in base to a value, wrapping at 64 bits.
func parseDigits(digits string, base int) (value int64, err error) {
	if !allDigits(digits, base) {
		err = fmt.Errorf("%w: %v", ErrNumberInvalid, digits)
		return
	}
	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrNumberInvalid, digits)
		return
	}
	value = int64(u)
	return
}

// parseNumber converts an unprefixed numeric literal starting with a
// decimal digit: 123, 0x1F, 0b1010, 1Fh, 1010b, 17q, 17o, 99d.
func parseNumber(text string) (value int64, err error) {
	lower := strings.ToLower(text)
	last := lower[len(lower)-1]

	digits, base := lower, 10
	switch {
	case last == 'h':
		digits, base = lower[:len(lower)-1], 16
	case strings.HasPrefix(lower, "0x"):
		digits, base = lower[2:], 16
	case strings.HasPrefix(lower, "0b") && len(lower) > 2 && allDigits(lower[2:], 2):
		digits, base = lower[2:], 2
	case last == 'b':
		digits, base = lower[:len(lower)-1], 2
	case last == 'q', last == 'o':
		digits, base = lower[:len(lower)-1], 8
	case last == 'd':
		digits = lower[:len(lower)-1]
	}

	value, err = parseDigits(digits, base)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrNumberInvalid, text)
	}
	return
}

// prefixBase returns the radix of a prefixed literal, and the prefix length.
// The '%' and '&' forms are only prefixes where an operand may start.
func prefixBase(text string, operand bool) (base int, size int) {
	if len(text) < 1 {
		return
	}
	switch text[0] {
	case '$', '#':
		return 16, 1
	case '%':
		if operand {
			return 2, 1
		}
	case '&':
		if !operand || len(text) < 2 {
			return
		}
		switch text[1] {
		case 'h', 'H':
			return 16, 2
		case 'b', 'B':
			return 2, 2
		case 'o', 'O', 'q', 'Q':
			return 8, 2
		}
	}
	return
}
