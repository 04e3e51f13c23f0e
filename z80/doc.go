// Package z80 encodes Z80 instructions.
//
// The encoder knows nothing about source text: callers hand it a lower
// case mnemonic, the address of the instruction and already classified
// operands, and receive the machine code bytes. Instruction sizes depend
// only on the operand forms, never on operand values, so an operand whose
// value is not yet known can be encoded as zero to obtain the final size.
//
// Documented instructions are supported together with the common
// undocumented forms (ixh/ixl/iyh/iyl halves, sll, in (c), out (c),0).
package z80
