// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"path/filepath"
	"strings"
)

// line is one logical source line.
type line struct {
	pos    Pos
	text   string  // Source text, for the listing.
	toks   []Token // Tokens, after macro expansion.
	err    error   // Lexical error.
	script string  // Body of a script block.
	macro  string  // Name of the macro that produced the line.
}

// splitLabel separates a leading label from the rest of a line.
// A label is a word followed by ':', or an identifier in column 1.
func splitLabel(toks []Token) (label Token, ok bool, body []Token) {
	if len(toks) == 0 {
		return
	}
	first := toks[0]
	if len(toks) > 1 && toks[1].isOp(":") && first.isWord() {
		return first, true, toks[2:]
	}
	if first.Kind == TOKEN_IDENT && first.Pos.Col == 1 {
		return first, true, toks[1:]
	}
	return Token{}, false, toks
}

// fileName extracts the file operand of include or incbin.
func fileName(toks []Token) (name string, rest []Token, err error) {
	if len(toks) == 0 {
		err = ErrOperandsMissing
		return
	}
	switch {
	case toks[0].Kind == TOKEN_STRING:
		name = toks[0].Text
		rest = toks[1:]
	default:
		n := 0
		for n < len(toks) && !toks[n].isOp(",") {
			if n > 0 && toks[n].Space {
				break
			}
			n++
		}
		name = joinTokens(toks[:n])
		rest = toks[n:]
	}
	if name == "" {
		err = ErrOperandsMissing
	}
	return
}

// find locates a file named by include or incbin. The directory of the
// including file is searched first, then the working directory, then the
// include path.
func (opts *Options) find(name string, from string) (path string, data []byte, err error) {
	var candidates []string
	if !filepath.IsAbs(name) && from != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(from), name))
	}
	candidates = append(candidates, name)
	if !filepath.IsAbs(name) {
		for _, dir := range opts.IncludePath {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}

	var first error
	for _, path = range candidates {
		data, err = opts.readFile(path)
		if err == nil {
			return
		}
		if first == nil {
			first = err
		}
	}

	path = ""
	data = nil
	err = &ErrFile{Name: name, Err: first}
	return
}

// loader reads source files into lines, inlining include files and
// gathering script blocks.
type loader struct {
	opts  *Options
	diags *Diagnostics
	lines []line
}

func (ld *loader) fail(pos Pos, severity Severity, err error) {
	ld.diags.Add(Diagnostic{
		Severity: severity,
		Class:    classOf(err),
		Pos:      pos,
		Pass:     1,
		Err:      err,
	})
}

// file loads a source file. A missing include file is returned as an
// *ErrFile after being recorded as fatal.
func (ld *loader) file(name string, data []byte, depth int) (err error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	rows := strings.Split(text, "\n")
	if len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}

	for n := 0; n < len(rows); n++ {
		pos := Pos{File: name, Line: n + 1}
		toks, lexErr := Lex(rows[n], pos, ld.opts.Dialect)
		ln := line{pos: pos, text: rows[n], toks: toks, err: lexErr}

		_, _, body := splitLabel(toks)
		if lexErr != nil || len(body) == 0 {
			ld.lines = append(ld.lines, ln)
			continue
		}

		switch {
		case body[0].isKeyword("include"):
			ld.lines = append(ld.lines, ln)
			err = ld.include(pos, body[1:], depth)
			if err != nil {
				return
			}
			continue
		case body[0].isKeyword("end"):
			ld.lines = append(ld.lines, ln)
			return
		case body[0].isKeyword("script"):
			n = ld.script(&ln, rows, n)
		}

		ld.lines = append(ld.lines, ln)
	}

	return
}

func (ld *loader) include(pos Pos, args []Token, depth int) (err error) {
	name, rest, err := fileName(args)
	if err == nil && len(rest) > 0 {
		err = fmt.Errorf("%w: %v", ErrOperandsExtra, joinTokens(rest))
	}
	if err != nil {
		ld.fail(pos, SEVERITY_ERROR, err)
		return nil
	}

	if depth >= MAX_INCLUDE_DEPTH {
		ld.fail(pos, SEVERITY_ERROR, fmt.Errorf("%w: %v", ErrIncludeNesting, name))
		return nil
	}

	path, data, err := ld.opts.find(name, pos.File)
	if err != nil {
		ld.fail(pos, SEVERITY_FATAL, err)
		return
	}

	return ld.file(path, data, depth+1)
}

// script collects the body of a script block, returning the index of
// its endscript line.
func (ld *loader) script(ln *line, rows []string, start int) (end int) {
	var body []string
	for end = start + 1; end < len(rows); end++ {
		toks, _ := Lex(rows[end], Pos{File: ln.pos.File, Line: end + 1}, ld.opts.Dialect)
		if _, _, rest := splitLabel(toks); len(rest) > 0 && rest[0].isKeyword("endscript") {
			break
		}
		body = append(body, rows[end])
	}

	if end >= len(rows) {
		ld.fail(ln.pos, SEVERITY_ERROR, ErrScriptLonely)
	}

	ln.script = strings.Join(body, "\n") + "\n"
	return
}
