// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/ezrec/sjasm/internal"
)

// Scope tags where a symbol came from.
type Scope int

//go:generate go tool stringer -linecomment -type=Scope
const (
	SCOPE_GLOBAL     = Scope(0) // global
	SCOPE_LOCAL      = Scope(1) // local
	SCOPE_VARIABLE   = Scope(2) // variable
	SCOPE_PREDEFINED = Scope(3) // predefined
)

// Symbol is a label, constant or variable.
type Symbol struct {
	Name    string
	Value   int64
	Defined bool  // False for names referenced but never defined.
	Pass    int   // Pass that established the current value.
	Scope   Scope // Origin of the symbol.
	Pos     Pos   // Definition, or first reference.
	Seq     int   // Statement that defined the symbol.
}

// same compares the resolved state of two symbols.
func (sym Symbol) same(other Symbol) bool {
	return sym.Value == other.Value && sym.Defined == other.Defined && sym.Scope == other.Scope
}

// scopeOf returns the scope of a label name.
func scopeOf(name string) Scope {
	if strings.Contains(name, ">") {
		return SCOPE_LOCAL
	}
	return SCOPE_GLOBAL
}

// SymbolTable is an immutable snapshot of the symbols at the end of a pass.
// A nil table is empty.
type SymbolTable struct {
	symbols map[string]Symbol
	defined int
}

// Lookup returns the named symbol.
func (st *SymbolTable) Lookup(name string) (sym Symbol, ok bool) {
	if st == nil {
		return
	}
	sym, ok = st.symbols[name]
	return
}

// Value returns the value of a defined symbol.
func (st *SymbolTable) Value(name string) (value int64, ok bool) {
	sym, ok := st.Lookup(name)
	if !ok || !sym.Defined {
		return 0, false
	}
	return sym.Value, true
}

// Len is the number of defined symbols.
func (st *SymbolTable) Len() int {
	if st == nil {
		return 0
	}
	return st.defined
}

// All iterates over every symbol in name order.
func (st *SymbolTable) All() iter.Seq2[string, Symbol] {
	if st == nil {
		return func(yield func(string, Symbol) bool) {}
	}
	return internal.IterSorted(st.symbols)
}

// Defined iterates over the defined symbols in name order.
func (st *SymbolTable) Defined() iter.Seq2[string, Symbol] {
	return internal.IterSeq2Filter(st.All(), func(_ string, sym Symbol) bool {
		return sym.Defined
	})
}

// Equal returns true if both tables hold the same names, values and
// definedness.
func (st *SymbolTable) Equal(other *SymbolTable) bool {
	return len(st.Diff(other)) == 0
}

// Diff returns the sorted names whose state differs between the tables.
func (st *SymbolTable) Diff(other *SymbolTable) (names []string) {
	seen := map[string]bool{}
	for name := range internal.IterSeq2Concat(st.All(), other.All()) {
		if seen[name] {
			continue
		}
		seen[name] = true
		a, aok := st.Lookup(name)
		b, bok := other.Lookup(name)
		if aok != bok || !a.same(b) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return
}

// symbolBuilder accumulates the symbols of one pass.
type symbolBuilder struct {
	symbols map[string]Symbol
	defined int
	limit   int
}

func newSymbolBuilder(limit int) *symbolBuilder {
	return &symbolBuilder{
		symbols: map[string]Symbol{},
		limit:   limit,
	}
}

// define adds a symbol. Only variables may be redefined.
func (sb *symbolBuilder) define(sym Symbol) (err error) {
	sym.Defined = true
	old, ok := sb.symbols[sym.Name]
	if ok && old.Defined {
		if old.Scope != SCOPE_VARIABLE || sym.Scope != SCOPE_VARIABLE {
			err = ErrLabelDuplicate
			return
		}
		sym.Pos = old.Pos
		sym.Seq = old.Seq
		sb.symbols[sym.Name] = sym
		return
	}

	if sb.defined >= sb.limit {
		err = ErrSymbolLimit(sb.limit)
		return
	}

	sb.symbols[sym.Name] = sym
	sb.defined++
	return
}

// reference records the use of a symbol not known yet.
func (sb *symbolBuilder) reference(name string, pos Pos) {
	if _, ok := sb.symbols[name]; ok {
		return
	}
	sb.symbols[name] = Symbol{Name: name, Pos: pos, Scope: scopeOf(name)}
}

// freeze converts the builder into a snapshot. Symbols whose state did not
// change since prev keep their defining pass.
func (sb *symbolBuilder) freeze(prev *SymbolTable, pass int) *SymbolTable {
	st := &SymbolTable{
		symbols: maps.Clone(sb.symbols),
		defined: sb.defined,
	}
	for name, sym := range st.symbols {
		old, ok := prev.Lookup(name)
		if ok && old.same(sym) {
			sym.Pass = old.Pass
		} else {
			sym.Pass = pass
		}
		st.symbols[name] = sym
	}
	return st
}
