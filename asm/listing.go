// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"io"
	"strings"
)

// LISTING_BYTES is the number of code bytes per listing row.
const LISTING_BYTES = 4

// ListingLine is one executed statement of the final pass.
type ListingLine struct {
	Pos  Pos
	Addr int64
	Code []byte
	Text string
}

func hexBytes(code []byte) string {
	var sb strings.Builder
	for n, b := range code {
		if n > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// WriteListing writes the listing rows followed by the symbol table.
// Code longer than LISTING_BYTES continues on following rows.
func WriteListing(w io.Writer, lines []ListingLine, symbols *SymbolTable) (err error) {
	for _, ln := range lines {
		code := ln.Code
		chunk := code[:min(len(code), LISTING_BYTES)]
		_, err = fmt.Fprintf(w, "%5d  %04X  %-12s %v\n", ln.Pos.Line, uint16(ln.Addr), hexBytes(chunk), ln.Text)
		if err != nil {
			return
		}
		addr := ln.Addr + int64(len(chunk))
		for code = code[len(chunk):]; len(code) > 0; code = code[len(chunk):] {
			chunk = code[:min(len(code), LISTING_BYTES)]
			_, err = fmt.Fprintf(w, "%5s  %04X  %v\n", "", uint16(addr), hexBytes(chunk))
			if err != nil {
				return
			}
			addr += int64(len(chunk))
		}
	}

	if symbols.Len() == 0 {
		return
	}

	_, err = io.WriteString(w, "\n")
	if err != nil {
		return
	}
	for name, sym := range symbols.Defined() {
		_, err = fmt.Fprintf(w, "%-24s %08X  %v\n", name, uint32(sym.Value), sym.Scope)
		if err != nil {
			return
		}
	}
	return
}

// WriteSymbols writes the global constants and labels as equates, one per
// line, suitable for inclusion by another program.
func WriteSymbols(w io.Writer, symbols *SymbolTable) (err error) {
	for name, sym := range symbols.Defined() {
		if sym.Scope != SCOPE_GLOBAL {
			continue
		}
		_, err = fmt.Fprintf(w, "%v: equ %08Xh\n", name, uint32(sym.Value))
		if err != nil {
			return
		}
	}
	return
}
