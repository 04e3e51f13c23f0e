// Package asm implements the sjasm multi-pass Z80 macro assembler.
//
// Source text is tokenized line by line, macro invocations are expanded
// into fresh token streams, and the result is parsed into a tree of
// instruction and directive statements. The statements are then walked
// repeatedly: every pass evaluates all expressions against the immutable
// symbol table left by the previous pass and produces a new one. Once a
// pass changes no symbol and no statement size, a final pass reports
// diagnostics and emits the machine code.
//
// Two dialects are supported. The native dialect is strict. The Compass
// compatible dialect adds @-parameter macros, the 'macro name args' form,
// cond/endc, whitespace inside numeric literals, empty strings as zero and
// optionally reversed multi-register pop.
package asm
