// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/golang/glog"

	"github.com/ezrec/sjasm/internal"
	"github.com/ezrec/sjasm/z80"
)

// State of the pass loop.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_SCANNING          = State(0) // Scanning
	STATE_STABLE            = State(1) // Stable
	STATE_RESOURCE_EXCEEDED = State(2) // ResourceExceeded
	STATE_SYNTAX_FAILED     = State(3) // SyntaxFailed
)

// pass is the scratch state of a single walk over the program.
type pass struct {
	index   int
	opts    *Options
	prev    *SymbolTable     // Snapshot left by the previous pass.
	next    *symbolBuilder   // Symbols defined by this pass.
	vars    map[string]int64 // Current values of variables.
	pc      int64            // Program counter.
	out     []byte           // Emitted code.
	sizes   []int            // Size of every executed statement.
	diags   Diagnostics      // Problems found by this pass.
	lines   []ListingLine    // Listing, if requested.
	fatal   *Diagnostic      // Resource limit reached.
	cur     *node            // Statement being executed.
	listing bool
}

func newPass(index int, opts *Options, prev *SymbolTable, next *symbolBuilder) *pass {
	return &pass{
		index:   index,
		opts:    opts,
		prev:    prev,
		next:    next,
		vars:    map[string]int64{},
		listing: opts.Listing,
		cur:     &node{},
	}
}

func (p *pass) diagnose(severity Severity, err error) {
	p.diags.Add(Diagnostic{
		Severity: severity,
		Class:    classOf(err),
		Pos:      p.cur.pos,
		Pass:     p.index,
		Err:      err,
	})
}

func (p *pass) fail(err error) {
	p.diagnose(SEVERITY_ERROR, err)
}

func (p *pass) warn(err error) {
	p.diagnose(SEVERITY_WARNING, err)
}

// report records an encoder error. Values truncated to fit a field are
// only warned about.
func (p *pass) report(err error) {
	var rangeErr *z80.ErrRange
	if errors.As(err, &rangeErr) && !rangeErr.Strict {
		p.warn(err)
		return
	}
	p.fail(err)
}

// lookup finds the value of a symbol: variables of this pass first, then
// the previous snapshot.
func (p *pass) lookup(name string) (value int64, ok bool) {
	if value, ok = p.vars[name]; ok {
		return
	}
	if value, ok = p.prev.Value(name); ok {
		return
	}
	p.next.reference(name, p.cur.pos)
	return 0, false
}

// isDefined implements ifdef: a symbol counts as defined only if it is
// defined by a statement before the current one.
func (p *pass) isDefined(name string) bool {
	if _, ok := p.vars[name]; ok {
		return true
	}
	sym, ok := p.prev.Lookup(name)
	return ok && sym.Defined && sym.Seq < p.cur.seq
}

func (p *pass) eval(e expr) int64 {
	ev := &evaluator{lookup: p.lookup, pc: p.pc}
	value, err := ev.value(e)
	if err != nil {
		p.fail(err)
	}
	return value
}

func (p *pass) define(name string, value int64, scope Scope) {
	if scope == SCOPE_VARIABLE {
		p.vars[name] = value
	}

	err := p.next.define(Symbol{
		Name:  name,
		Value: value,
		Scope: scope,
		Pos:   p.cur.pos,
		Seq:   p.cur.seq,
	})
	switch {
	case errors.Is(err, ErrResourceLimit):
		p.fatal = &Diagnostic{
			Severity: SEVERITY_FATAL,
			Class:    CLASS_RESOURCE_LIMIT,
			Pos:      p.cur.pos,
			Pass:     p.index,
			Err:      err,
		}
	case err != nil:
		p.fail(fmt.Errorf("%w: %v", err, name))
	}
}

func (p *pass) emit(code ...byte) {
	p.out = append(p.out, code...)
	p.pc += int64(len(code))
}

// emitValue emits a little endian value of width bytes.
func (p *pass) emitValue(value int64, width int) {
	bits := uint(width * 8)
	lo := -(int64(1) << (bits - 1))
	hi := int64(1)<<bits - 1
	if value < lo || value > hi {
		p.warn(&z80.ErrRange{Value: int(value), Min: int(lo), Max: int(hi)})
	}
	for n := range width {
		p.emit(byte(value >> (8 * n)))
	}
}

func (p *pass) fillByte(fill expr) byte {
	if fill == nil {
		return 0
	}
	value := p.eval(fill)
	if value < -128 || value > 255 {
		p.warn(&z80.ErrRange{Value: int(value), Min: -128, Max: 255})
	}
	return byte(value)
}

// run executes a list of statements.
func (p *pass) run(stmts []stmt) {
	for _, s := range stmts {
		if p.fatal != nil {
			return
		}
		p.step(s)
	}
}

func (p *pass) step(s stmt) {
	nd := s.base()
	p.cur = nd
	start := len(p.out)

	entry := -1
	if p.listing {
		entry = len(p.lines)
		p.lines = append(p.lines, ListingLine{Pos: nd.pos, Addr: p.pc, Text: nd.text})
	}

	if nd.label != "" {
		p.define(nd.label, p.pc, scopeOf(nd.label))
	}

	s.exec(p)
	p.cur = nd

	p.sizes = append(p.sizes, len(p.out)-start)
	if entry >= 0 && !isBlock(s) {
		p.lines[entry].Code = slices.Clone(p.out[start:])
	}
}

// Result of an assembly run.
type Result struct {
	State       State
	Passes      int           // Passes executed.
	Code        []byte        // Output of the final pass.
	Symbols     *SymbolTable  // Snapshot of the final pass.
	Diagnostics *Diagnostics  // Everything reported.
	Listing     []ListingLine // Listing of the final pass, if requested.
}

// Assembler is a multi-pass Z80 macro assembler.
type Assembler struct {
	Options

	predefine map[string]int64
}

// Predefine defines a constant before assembly starts.
func (asm *Assembler) Predefine(name string, value int64) {
	if asm.predefine == nil {
		asm.predefine = map[string]int64{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// symbols returns a builder holding the predefined constants.
func (asm *Assembler) symbols() *symbolBuilder {
	sb := newSymbolBuilder(asm.maxLabels())
	for name, value := range internal.IterSorted(asm.predefine) {
		_ = sb.define(Symbol{Name: name, Value: value, Scope: SCOPE_PREDEFINED, Seq: -1})
	}
	return sb
}

// AssembleFile assembles the named source file.
func (asm *Assembler) AssembleFile(ctx context.Context, filename string) (result *Result, err error) {
	data, err := asm.readFile(filename)
	if err != nil {
		result = &Result{State: STATE_SCANNING, Diagnostics: &Diagnostics{}}
		err = result.abort(Pos{}, &ErrFile{Name: filename, Err: err})
		return
	}

	return asm.assemble(ctx, filename, data)
}

// Assemble assembles source, using filename for diagnostics and to locate
// include files. The result is never nil.
func (asm *Assembler) Assemble(ctx context.Context, filename string, source io.Reader) (result *Result, err error) {
	data, err := io.ReadAll(source)
	if err != nil {
		result = &Result{State: STATE_SCANNING, Diagnostics: &Diagnostics{}}
		err = result.abort(Pos{}, &ErrFile{Name: filename, Err: err})
		return
	}

	return asm.assemble(ctx, filename, data)
}

// abort ends the run on a fatal error.
func (result *Result) abort(pos Pos, err error) error {
	result.Diagnostics.Add(Diagnostic{
		Severity: SEVERITY_FATAL,
		Class:    classOf(err),
		Pos:      pos,
		Pass:     result.Passes,
		Err:      err,
	})
	result.finish(err)
	return err
}

// finish selects the terminal state from the error ending the run.
func (result *Result) finish(err error) {
	switch {
	case err == nil:
		result.State = STATE_STABLE
	case errors.Is(err, ErrResourceLimit), errors.Is(err, ErrCancelled):
		result.State = STATE_RESOURCE_EXCEEDED
	default:
		result.State = STATE_SYNTAX_FAILED
	}
}

func (asm *Assembler) assemble(ctx context.Context, filename string, data []byte) (result *Result, err error) {
	opts := &asm.Options
	result = &Result{State: STATE_SCANNING, Diagnostics: &Diagnostics{}}

	ld := &loader{opts: opts, diags: result.Diagnostics}
	err = ld.file(filename, data, 0)
	if err != nil {
		result.finish(err)
		return
	}

	ex := newExpander(opts, result.Diagnostics)
	ex.expand(ld.lines, 0)

	bd := newBuilder(opts, result.Diagnostics)
	err = bd.build(ex.out)
	if err != nil {
		result.finish(err)
		return
	}

	glog.V(1).Infof("%v: %d lines, %d macros, %d statements", filename, len(ld.lines), len(ex.macros), bd.seq)

	prev := asm.symbols().freeze(nil, 0)
	var prevSizes []int
	for index := 1; result.State == STATE_SCANNING; index++ {
		if cerr := ctx.Err(); cerr != nil {
			err = result.abort(Pos{}, fmt.Errorf("%w: %w", ErrCancelled, cerr))
			return
		}

		p := newPass(index, opts, prev, asm.symbols())
		p.run(bd.root)
		result.Passes = index

		if p.fatal != nil {
			glog.V(1).Infof("pass %d: %v", index, p.fatal.Err)
			result.Diagnostics.Add(*p.fatal)
			result.Symbols = prev
			err = p.fatal.Err
			result.finish(err)
			return
		}

		next := p.next.freeze(prev, index)
		changed := next.Diff(prev)
		glog.V(1).Infof("pass %d: %d symbols, %d bytes, %d changed", index, next.Len(), len(p.out), len(changed))
		if glog.V(2) {
			for _, name := range changed {
				sym, _ := next.Lookup(name)
				glog.Infof("pass %d: %v = %#x (defined %v)", index, name, sym.Value, sym.Defined)
			}
		}

		stable := len(changed) == 0 && slices.Equal(p.sizes, prevSizes)
		if !stable && index < opts.maxPasses() {
			prev, prevSizes = next, p.sizes
			continue
		}

		if !stable {
			for _, name := range changed {
				sym, _ := next.Lookup(name)
				p.diags.Add(Diagnostic{
					Severity: SEVERITY_ERROR,
					Class:    CLASS_UNRESOLVED,
					Pos:      sym.Pos,
					Pass:     index,
					Err:      fmt.Errorf("%w: %v", ErrUnstable, name),
				})
			}
			if len(changed) == 0 {
				p.diags.Add(Diagnostic{
					Severity: SEVERITY_ERROR,
					Class:    CLASS_UNRESOLVED,
					Pass:     index,
					Err:      ErrUnstable,
				})
			}
		}

		result.Diagnostics.Merge(&p.diags)
		result.Code = p.out
		result.Symbols = next
		result.Listing = p.lines
		break
	}

	if count := result.Diagnostics.Errors(); count > 0 {
		err = fmt.Errorf("%w: %d errors", ErrCompile, count)
	}
	result.finish(err)
	return
}
