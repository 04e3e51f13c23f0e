// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"slices"
	"strings"
)

// Macro is a recorded macro definition.
type Macro struct {
	Name    string
	Params  []string
	Body    []line
	Dialect Dialect // Syntax used by the definition.
	Pos     Pos
}

// expander replaces macro definitions and invocations by plain lines.
type expander struct {
	opts     *Options
	diags    *Diagnostics
	macros   map[string]*Macro
	instance int
	out      []line
}

func newExpander(opts *Options, diags *Diagnostics) *expander {
	return &expander{
		opts:   opts,
		diags:  diags,
		macros: map[string]*Macro{},
	}
}

func (ex *expander) fail(pos Pos, err error) {
	ex.diags.Add(Diagnostic{
		Severity: SEVERITY_ERROR,
		Class:    classOf(err),
		Pos:      pos,
		Pass:     1,
		Err:      err,
	})
}

// splitArgs splits tokens at the commas outside of parentheses.
func splitArgs(toks []Token) (args [][]Token) {
	if len(toks) == 0 {
		return
	}
	depth := 0
	start := 0
	for n, tok := range toks {
		switch {
		case tok.isOp("(") || tok.isOp("["):
			depth++
		case tok.isOp(")") || tok.isOp("]"):
			depth--
		case tok.isOp(",") && depth == 0:
			args = append(args, toks[start:n])
			start = n + 1
		}
	}
	args = append(args, toks[start:])
	return
}

// expand processes lines, appending the result to ex.out.
func (ex *expander) expand(lines []line, depth int) {
	for n := 0; n < len(lines); n++ {
		ln := lines[n]
		if ln.err != nil || ln.script != "" {
			ex.out = append(ex.out, ln)
			continue
		}

		label, hasLabel, body := splitLabel(ln.toks)
		if len(body) > 0 {
			head := body[0]
			switch {
			case head.isKeyword("macro"):
				n = ex.define(lines, n, label, hasLabel, body[1:])
				continue
			case head.isKeyword("endm"):
				ex.fail(ln.pos, ErrMacroLonelyEndm)
				continue
			case head.isWord():
				if m, ok := ex.macros[head.Text]; ok {
					ex.invoke(ln, label, hasLabel, m, body[1:], depth)
					continue
				}
			}
		}

		ex.out = append(ex.out, ln)
	}
}

// define records the macro starting at lines[start], returning the index
// of its endm line.
func (ex *expander) define(lines []line, start int, label Token, hasLabel bool, args []Token) (end int) {
	ln := lines[start]
	m := &Macro{Pos: ln.pos, Dialect: DIALECT_NATIVE}

	var err error
	if hasLabel {
		m.Name = label.Text
	} else if len(args) > 0 && args[0].isWord() {
		// macro name a,b
		m.Name = args[0].Text
		m.Dialect = DIALECT_COMPASS
		args = args[1:]
	} else {
		err = fmt.Errorf("%w: %v", ErrMacroSyntax, f("name missing"))
	}

	for _, arg := range splitArgs(args) {
		if len(arg) != 1 || !arg[0].isWord() {
			if err == nil {
				err = fmt.Errorf("%w: %v", ErrMacroSyntax, joinTokens(arg))
			}
			continue
		}
		param := arg[0].Text
		if strings.HasPrefix(param, "@") {
			m.Dialect = DIALECT_COMPASS
		}
		m.Params = append(m.Params, param)
	}

	if err == nil && m.Dialect == DIALECT_COMPASS && !ex.opts.compass() {
		err = fmt.Errorf("%w: macro %v", ErrCompassOnly, m.Name)
	}

	nest := 0
	for end = start + 1; end < len(lines); end++ {
		_, _, body := splitLabel(lines[end].toks)
		if len(body) == 0 {
			continue
		}
		if body[0].isKeyword("macro") {
			nest++
		}
		if body[0].isKeyword("endm") {
			if nest == 0 {
				break
			}
			nest--
		}
	}
	if end >= len(lines) {
		ex.fail(ln.pos, &ErrMacro{Macro: m.Name, Err: ErrMacroLonely})
	}
	m.Body = slices.Clone(lines[start+1 : min(end, len(lines))])

	if err != nil {
		ex.fail(ln.pos, err)
	}

	if m.Name == "" {
		return
	}

	if _, ok := ex.macros[m.Name]; ok {
		ex.fail(ln.pos, &ErrMacro{Macro: m.Name, Err: ErrMacroDuplicate})
		return
	}

	ex.macros[m.Name] = m
	return
}

// localName returns the instance name of a macro-local label: ".name" in
// either dialect, "@name" in the Compass dialect.
func (ex *expander) localName(word string) (local string, ok bool) {
	if len(word) < 2 {
		return
	}
	switch word[0] {
	case '.':
		return word[1:], true
	case '@':
		if ex.opts.compass() {
			return word[1:], true
		}
	}
	return
}

// invoke expands one use of a macro.
func (ex *expander) invoke(ln line, label Token, hasLabel bool, m *Macro, argToks []Token, depth int) {
	if hasLabel {
		label.Pos.Col = 1
		ex.out = append(ex.out, line{
			pos:   ln.pos,
			text:  ln.text,
			toks:  []Token{label, {Kind: TOKEN_OPERATOR, Text: ":", Pos: label.Pos}},
			macro: ln.macro,
		})
	}

	if depth >= MAX_MACRO_DEPTH {
		ex.fail(ln.pos, &ErrMacro{Macro: m.Name, Err: ErrMacroNesting})
		return
	}

	args := splitArgs(argToks)
	if len(args) != len(m.Params) {
		ex.fail(ln.pos, &ErrMacroArgs{Macro: m.Name, Want: len(m.Params), Got: len(args)})
		return
	}

	ex.instance++
	prefix := fmt.Sprintf("%v>%d.", m.Name, ex.instance)

	lines := make([]line, 0, len(m.Body))
	for _, body := range m.Body {
		lines = append(lines, line{
			pos:    ln.pos,
			text:   body.text,
			toks:   ex.substitute(body.toks, m, args, prefix, ln.pos),
			err:    body.err,
			script: body.script,
			macro:  m.Name,
		})
	}

	ex.expand(lines, depth+1)
}

// substitute replaces parameters by arguments and renames local labels.
func (ex *expander) substitute(toks []Token, m *Macro, args [][]Token, prefix string, pos Pos) (out []Token) {
	out = make([]Token, 0, len(toks))
	for _, tok := range toks {
		tok.Pos.File = pos.File
		tok.Pos.Line = pos.Line

		if tok.isWord() {
			if index := slices.Index(m.Params, tok.Text); index >= 0 {
				for n, arg := range args[index] {
					arg.Pos = tok.Pos
					if n == 0 {
						arg.Space = tok.Space
					}
					out = append(out, arg)
				}
				continue
			}
			if local, ok := ex.localName(tok.Text); ok {
				tok.Text = prefix + local
				tok.Kind = TOKEN_IDENT
			}
		}

		out = append(out, tok)
	}
	return
}
