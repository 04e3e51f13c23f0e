// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnosticFormat(t *testing.T) {
	assert := assert.New(t)

	diag := Diagnostic{
		Severity: SEVERITY_ERROR,
		Pos:      Pos{File: "src/main.asm", Line: 12},
		Pass:     3,
		Err:      ErrInstruction("dummy"),
	}

	assert.Equal("src/main.asm(12): line 12", diag.Location())
	assert.Equal("src/main.asm(12): line 12: unrecognized instruction: dummy", diag.Format(FORMAT_PLAIN))
	assert.Equal("src/main.asm(12): error PASS3: unrecognized instruction: dummy", diag.Format(FORMAT_VS))
	assert.Equal(diag.Format(FORMAT_PLAIN), diag.String())

	diag.Severity = SEVERITY_WARNING
	assert.Equal("src/main.asm(12): line 12: warning: unrecognized instruction: dummy", diag.Format(FORMAT_PLAIN))
	assert.Equal("src/main.asm(12): warning PASS3: unrecognized instruction: dummy", diag.Format(FORMAT_VS))

	diag.Severity = SEVERITY_FATAL
	assert.Equal("src/main.asm(12): line 12: fatal: unrecognized instruction: dummy", diag.Format(FORMAT_PLAIN))
	assert.Equal("src/main.asm(12): error PASS3: unrecognized instruction: dummy", diag.Format(FORMAT_VS))

	diag.Pos = Pos{}
	assert.Equal("unrecognized instruction: dummy", diag.Format(FORMAT_VS))
}

func TestDiagnosticClass(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(CLASS_SYNTAX, classOf(ErrNumberSpace))
	assert.Equal(CLASS_UNRESOLVED, classOf(ErrLabelMissing("x")))
	assert.Equal(CLASS_UNRESOLVED, classOf(fmt.Errorf("%w: x", ErrUnstable)))
	assert.Equal(CLASS_FILE_ACCESS, classOf(&ErrFile{Name: "x", Err: ErrStringEmpty}))
	assert.Equal(CLASS_RESOURCE_LIMIT, classOf(ErrSymbolLimit(10)))
	assert.Equal(CLASS_RESOURCE_LIMIT, classOf(ErrCancelled))
}

func TestSymbolLimitMessage(t *testing.T) {
	assert := assert.New(t)

	assert.Contains(ErrSymbolLimit(32768).Error(), "32768")
}

func TestDiagnosticsPrint(t *testing.T) {
	assert := assert.New(t)

	var diags Diagnostics
	assert.Equal(0, diags.Len())

	diags.Add(Diagnostic{Severity: SEVERITY_WARNING, Pos: Pos{File: "a.asm", Line: 1}, Pass: 2, Err: ErrNumberSpace})
	other := &Diagnostics{}
	other.Add(Diagnostic{Severity: SEVERITY_ERROR, Pos: Pos{File: "a.asm", Line: 2}, Pass: 2, Err: ErrAssertion})
	diags.Merge(other)
	diags.Merge(nil)

	assert.Equal(2, diags.Len())
	assert.Equal(1, diags.Errors())
	assert.Equal(1, diags.Warnings())
	_, ok := diags.Fatal()
	assert.False(ok)

	var sb strings.Builder
	assert.NoError(diags.Print(&sb, FORMAT_VS))
	assert.Equal(strings.Join([]string{
		"a.asm(1): warning PASS2: " + ErrNumberSpace.Error(),
		"a.asm(2): error PASS2: assertion failed",
		"Errors: 1, warnings: 1",
		"",
	}, "\n"), sb.String())

	// The listing is a copy.
	list := diags.List()
	list[0].Pass = 9
	assert.Equal(2, diags.List()[0].Pass)
}
