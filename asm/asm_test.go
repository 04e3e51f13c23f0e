// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// memFiles serves files from memory.
func memFiles(files map[string]string) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		data, ok := files[name]
		if !ok {
			return nil, fs.ErrNotExist
		}
		return []byte(data), nil
	}
}

func assemble(t *testing.T, opts Options, program ...string) (*Result, error) {
	t.Helper()
	asm := &Assembler{Options: opts}
	return asm.Assemble(context.Background(), "test.asm", strings.NewReader(strings.Join(program, "\n")))
}

func compass() Options {
	return Options{Dialect: DIALECT_COMPASS}
}

func TestAssembleEmpty(t *testing.T) {
	assert := assert.New(t)

	result, err := assemble(t, Options{})
	assert.NoError(err)
	assert.Equal(STATE_STABLE, result.State)
	assert.Equal(1, result.Passes)
	assert.Empty(result.Code)
	assert.Equal(0, result.Diagnostics.Len())
}

func TestAssembleUnknown(t *testing.T) {
	assert := assert.New(t)

	result, err := assemble(t, Options{}, " dummy")
	assert.ErrorIs(err, ErrCompile)
	assert.Equal(STATE_SYNTAX_FAILED, result.State)

	list := result.Diagnostics.List()
	if assert.Len(list, 1) {
		var unknown ErrInstruction
		assert.True(errors.As(list[0].Err, &unknown))
		assert.True(strings.HasSuffix(list[0].Location(), "line 1"))
		assert.Equal(CLASS_SYNTAX, list[0].Class)
	}
}

func TestAssembleInstructions(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		" org 8000h",
		"start:",
		" ld a,42",
		" ld (ix+5),7",
		" jp start",
		" ret",
	}

	result, err := assemble(t, Options{}, program...)
	assert.NoError(err)
	assert.Equal([]byte{
		0x3e, 42,
		0xdd, 0x36, 0x05, 0x07,
		0xc3, 0x00, 0x80,
		0xc9,
	}, result.Code)

	value, ok := result.Symbols.Value("start")
	assert.True(ok)
	assert.Equal(int64(0x8000), value)
}

func TestAssembleForward(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		" jr skip",
		" ds size",
		"skip: ret",
		"size equ 3",
	}

	result, err := assemble(t, Options{}, program...)
	assert.NoError(err)
	assert.Equal(STATE_STABLE, result.State)
	assert.Equal([]byte{0x18, 0x03, 0, 0, 0, 0xc9}, result.Code)
	assert.Greater(result.Passes, 1)

	sym, ok := result.Symbols.Lookup("skip")
	assert.True(ok)
	assert.Equal(int64(5), sym.Value)
	assert.Equal(SCOPE_GLOBAL, sym.Scope)
}

func TestAssembleMissingLabel(t *testing.T) {
	assert := assert.New(t)

	result, err := assemble(t, Options{}, " jp nowhere")
	assert.ErrorIs(err, ErrCompile)
	assert.Equal(STATE_SYNTAX_FAILED, result.State)

	list := result.Diagnostics.List()
	if assert.Len(list, 1) {
		assert.Equal(ErrLabelMissing("nowhere"), list[0].Err)
		assert.Equal(CLASS_UNRESOLVED, list[0].Class)
	}
}

func TestAssembleDuplicate(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"here: nop",
		"here: nop",
	}

	_, err := assemble(t, Options{}, program...)
	assert.ErrorIs(err, ErrCompile)

	program = []string{
		"count = 1",
		"count = count + 1",
		" db count",
	}
	result, err := assemble(t, Options{}, program...)
	assert.NoError(err)
	assert.Equal([]byte{2}, result.Code)
}

func TestAssembleLocalLabels(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"one:",
		".loop: djnz .loop",
		"two:",
		".loop: djnz .loop",
	}

	result, err := assemble(t, Options{}, program...)
	assert.NoError(err)
	assert.Equal([]byte{0x10, 0xfe, 0x10, 0xfe}, result.Code)

	value, ok := result.Symbols.Value("two.loop")
	assert.True(ok)
	assert.Equal(int64(2), value)
}

func TestAssembleData(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		` db "AB",'C',1+2`,
		" dw 1234h",
		" dd 1",
		" ds 2,0ffh",
		" align 16",
	}

	result, err := assemble(t, Options{}, program...)
	assert.NoError(err)
	assert.Equal([]byte{
		'A', 'B', 'C', 3,
		0x34, 0x12,
		1, 0, 0, 0,
		0xff, 0xff,
		0, 0, 0, 0,
	}, result.Code)
}

func TestAssembleRangeWarning(t *testing.T) {
	assert := assert.New(t)

	result, err := assemble(t, Options{}, " db 256")
	assert.NoError(err)
	assert.Equal([]byte{0}, result.Code)
	assert.Equal(1, result.Diagnostics.Warnings())
	assert.Equal(0, result.Diagnostics.Errors())
}

func TestAssembleEmptyString(t *testing.T) {
	assert := assert.New(t)

	_, err := assemble(t, Options{}, ` db ""`)
	assert.ErrorIs(err, ErrCompile)

	result, err := assemble(t, compass(), ` db ""`, ` db ''`)
	assert.NoError(err)
	assert.Equal([]byte{0, 0}, result.Code)
}

func TestAssembleNumberEquivalence(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		" db % 11 00 11 00",
		" db %11001100",
		" db &b11001100",
		" db 0cch",
		" db 0xcc",
		" db 11001100b",
		" db $cc",
		" db 204",
	}

	result, err := assemble(t, compass(), program...)
	assert.NoError(err)
	assert.Equal([]byte{204, 204, 204, 204, 204, 204, 204, 204}, result.Code)

	_, err = assemble(t, Options{}, " db % 11 00 11 00")
	assert.ErrorIs(err, ErrCompile)

	hex := []string{
		" dw 0xAABB",
		" dw 0xAA BB",
		" dw 0x AA BB",
		" dw 0AA BBh",
		" dw &hAA BB",
		" dw $AA BB",
	}
	result, err = assemble(t, compass(), hex...)
	assert.NoError(err)
	assert.Equal(bytes.Repeat([]byte{0xbb, 0xaa}, len(hex)), result.Code)

	result, err = assemble(t, compass(), " dw 0x ")
	assert.ErrorIs(err, ErrCompile)
	if list := result.Diagnostics.List(); assert.NotEmpty(list) {
		assert.ErrorIs(list[0].Err, ErrNumberInvalid)
		assert.Contains(list[0].Err.Error(), "0x")
	}

	_, err = assemble(t, Options{}, " dw 0xAA BB")
	assert.ErrorIs(err, ErrCompile)
}

func TestAssembleModulo(t *testing.T) {
	assert := assert.New(t)

	result, err := assemble(t, Options{}, "x equ 23", " db x %11", " db 23 %10", " db 23 % 10")
	assert.NoError(err)
	assert.Equal([]byte{1, 3, 3}, result.Code)
}

func TestAssembleCond(t *testing.T) {
	assert := assert.New(t)

	viaCond := []string{
		" cond 1",
		" nop",
		" if 0",
		" halt",
		" endif",
		" endc",
		" cond 0",
		" halt",
		" else",
		" ret",
		" endc",
	}
	viaIf := []string{
		" if 1",
		" nop",
		" if 0",
		" halt",
		" endif",
		" endif",
		" if 0",
		" halt",
		" else",
		" ret",
		" endif",
	}

	_, err := assemble(t, Options{}, viaCond...)
	assert.ErrorIs(err, ErrCompile)

	result, err := assemble(t, compass(), viaCond...)
	assert.NoError(err)
	expected, err := assemble(t, compass(), viaIf...)
	assert.NoError(err)
	assert.Equal([]byte{0x00, 0xc9}, expected.Code)
	assert.Equal(expected.Code, result.Code)
}

func TestAssembleIfdef(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		" ifdef later",
		" halt",
		" endif",
		"later:",
		" ifdef later",
		" nop",
		" endif",
		" ifndef DEBUG",
		" ret",
		" endif",
	}

	result, err := assemble(t, Options{}, program...)
	assert.NoError(err)
	assert.Equal([]byte{0x00, 0xc9}, result.Code)

	asm := &Assembler{}
	asm.Predefine("DEBUG", 1)
	result, err = asm.Assemble(context.Background(), "test.asm", strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	assert.Equal([]byte{0x00}, result.Code)
}

func TestAssembleLonelyBlocks(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		program []string
		err     error
	}{
		{[]string{" if 1"}, ErrIfLonely},
		{[]string{" endif"}, ErrEndifLonely},
		{[]string{" else"}, ErrElseLonely},
		{[]string{" if 1", " else", " else", " endif"}, ErrElseDuplicate},
		{[]string{" rept 2"}, ErrReptLonely},
		{[]string{" endr"}, ErrEndrLonely},
		{[]string{" endm"}, ErrMacroLonelyEndm},
	}

	for _, c := range cases {
		result, err := assemble(t, Options{}, c.program...)
		assert.ErrorIs(err, ErrCompile, c.program)
		list := result.Diagnostics.List()
		if assert.NotEmpty(list, c.program) {
			assert.ErrorIs(list[0].Err, c.err, c.program)
		}
	}
}

func TestAssembleRept(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"n = 0",
		" rept 3",
		" db n",
		"n = n + 1",
		" endr",
	}

	result, err := assemble(t, Options{}, program...)
	assert.NoError(err)
	assert.Equal([]byte{0, 1, 2}, result.Code)

	result, err = assemble(t, compass(), " dup 2", " nop", " edup")
	assert.NoError(err)
	assert.Equal([]byte{0, 0}, result.Code)
}

func TestAssemblePushPop(t *testing.T) {
	assert := assert.New(t)

	multi := []string{
		" push af,bc,de,hl",
		" pop hl,de,bc,af",
	}
	single := []string{
		" push af",
		" push bc",
		" push de",
		" push hl",
		" pop hl",
		" pop de",
		" pop bc",
		" pop af",
	}

	result, err := assemble(t, Options{}, multi...)
	assert.NoError(err)
	expected, err := assemble(t, Options{}, single...)
	assert.NoError(err)
	assert.Equal([]byte{0xf5, 0xc5, 0xd5, 0xe5, 0xe1, 0xd1, 0xc1, 0xf1}, expected.Code)
	assert.Equal(expected.Code, result.Code)

	// Reversed pop restores in natural stack order.
	reversed := []string{
		" push af,bc,de,hl",
		" pop af,bc,de,hl",
	}
	opts := compass()
	opts.ReversePop = true
	result, err = assemble(t, opts, reversed...)
	assert.NoError(err)
	assert.Equal(expected.Code, result.Code)

	// The option has no effect outside of the Compass dialect.
	opts = Options{ReversePop: true}
	result, err = assemble(t, opts, reversed...)
	assert.NoError(err)
	assert.Equal([]byte{0xf5, 0xc5, 0xd5, 0xe5, 0xf1, 0xc1, 0xd1, 0xe1}, result.Code)
}

func TestAssembleLabelLimit(t *testing.T) {
	assert := assert.New(t)

	program := make([]string, 40000)
	for n := range program {
		program[n] = fmt.Sprintf("label%d: nop", n)
	}
	// An ordinary error before the limit does not change the outcome.
	program = append([]string{" dummy"}, program...)

	result, err := assemble(t, Options{}, program...)
	assert.ErrorIs(err, ErrResourceLimit)
	assert.Equal(STATE_RESOURCE_EXCEEDED, result.State)
	assert.Equal(1, result.Passes)

	fatal, ok := result.Diagnostics.Fatal()
	assert.True(ok)
	assert.Equal(CLASS_RESOURCE_LIMIT, fatal.Class)

	result, err = assemble(t, Options{MaxLabels: 2}, "a1:", "a2:", "a3:")
	assert.ErrorIs(err, ErrResourceLimit)
	assert.Equal(ErrSymbolLimit(2), result.Diagnostics.List()[0].Err)
}

func TestAssembleUnstable(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		" ds 128 - here",
		"here:",
	}

	result, err := assemble(t, Options{MaxPasses: 4}, program...)
	assert.ErrorIs(err, ErrCompile)
	assert.Equal(4, result.Passes)

	list := result.Diagnostics.List()
	if assert.NotEmpty(list) {
		assert.ErrorIs(list[0].Err, ErrUnstable)
		assert.Equal(CLASS_UNRESOLVED, list[0].Class)
	}
}

func TestAssembleIncbin(t *testing.T) {
	assert := assert.New(t)

	files := map[string]string{
		"main.asm": " incbin \"data.bin\",1,2\n incbin data.bin\n",
		"data.bin": "\x01\x02\x03",
	}
	asm := &Assembler{Options: Options{ReadFile: memFiles(files)}}
	result, err := asm.AssembleFile(context.Background(), "main.asm")
	assert.NoError(err)
	assert.Equal([]byte{2, 3, 1, 2, 3}, result.Code)

	files["main.asm"] = " incbin data.bin,2,5\n"
	result, err = asm.AssembleFile(context.Background(), "main.asm")
	assert.ErrorIs(err, ErrCompile)
	assert.ErrorIs(result.Diagnostics.List()[0].Err, ErrIncbinRange)
}

func TestAssembleIncbinMissing(t *testing.T) {
	assert := assert.New(t)

	files := map[string]string{
		"main.asm": " dummy\n incbin \"missing.bin\"\n",
	}
	asm := &Assembler{Options: Options{ReadFile: memFiles(files)}}
	result, err := asm.AssembleFile(context.Background(), "main.asm")
	assert.ErrorIs(err, ErrFileAccess)
	assert.NotErrorIs(err, ErrCompile)
	assert.Equal(STATE_SYNTAX_FAILED, result.State)
	assert.Nil(result.Code)

	fatal, ok := result.Diagnostics.Fatal()
	assert.True(ok)
	assert.Equal(CLASS_FILE_ACCESS, fatal.Class)
	assert.Equal(2, fatal.Pos.Line)

	_, err = asm.AssembleFile(context.Background(), "nothere.asm")
	assert.ErrorIs(err, ErrFileAccess)
}

func TestAssembleInclude(t *testing.T) {
	assert := assert.New(t)

	files := map[string]string{
		"src/main.asm":    " include \"defs.inc\"\n ld a,VALUE\n end\n this is ignored\n",
		"src/defs.inc":    "VALUE equ 7\n include lib/more.inc\n",
		"lib/more.inc":    " nop\n",
		"src/missing.asm": " include \"gone.inc\"\n",
		"src/loop.asm":    " include loop.asm\n",
	}
	asm := &Assembler{Options: Options{ReadFile: memFiles(files)}}
	result, err := asm.AssembleFile(context.Background(), "src/main.asm")
	assert.NoError(err)
	assert.Equal([]byte{0x00, 0x3e, 0x07}, result.Code)

	_, err = asm.AssembleFile(context.Background(), "src/missing.asm")
	assert.ErrorIs(err, ErrFileAccess)

	result, err = asm.AssembleFile(context.Background(), "src/loop.asm")
	assert.ErrorIs(err, ErrCompile)
	assert.ErrorIs(result.Diagnostics.List()[0].Err, ErrIncludeNesting)

	asm.IncludePath = []string{"lib"}
	files["src/main.asm"] = " include more.inc\n"
	result, err = asm.AssembleFile(context.Background(), "src/main.asm")
	assert.NoError(err)
	assert.Equal([]byte{0x00}, result.Code)
}

func TestAssembleAssert(t *testing.T) {
	assert := assert.New(t)

	result, err := assemble(t, Options{}, " assert 1 == 2", " error \"bad things\"")
	assert.ErrorIs(err, ErrCompile)

	list := result.Diagnostics.List()
	if assert.Len(list, 2) {
		assert.ErrorIs(list[0].Err, ErrAssertion)
		assert.Equal(ErrUser("bad things"), list[1].Err)
		assert.Equal(2, list[1].Pos.Line)
	}
}

func TestAssembleCancelled(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	asm := &Assembler{}
	result, err := asm.Assemble(ctx, "test.asm", strings.NewReader(" nop"))
	assert.ErrorIs(err, ErrCancelled)
	assert.ErrorIs(err, context.Canceled)
	assert.Equal(STATE_RESOURCE_EXCEEDED, result.State)
}

func TestAssembleListing(t *testing.T) {
	assert := assert.New(t)

	result, err := assemble(t, Options{Listing: true}, "start: ld a,1", " if 1", " nop", " endif")
	assert.NoError(err)
	if assert.Len(result.Listing, 3) {
		assert.Equal(ListingLine{
			Pos:  Pos{File: "test.asm", Line: 1},
			Addr: 0,
			Code: []byte{0x3e, 0x01},
			Text: "start: ld a,1",
		}, result.Listing[0])
		assert.Nil(result.Listing[1].Code)
		assert.Equal(int64(2), result.Listing[2].Addr)
		assert.Equal([]byte{0x00}, result.Listing[2].Code)
	}
}
