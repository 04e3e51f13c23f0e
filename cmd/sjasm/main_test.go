// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type execution struct {
	code   int
	stdout string
	stderr string
}

func execute(args ...string) (result execution) {
	var stdout, stderr bytes.Buffer
	result.code = run(context.Background(), args, &stdout, &stderr)
	result.stdout = stdout.String()
	result.stderr = stderr.String()
	return
}

// source writes a program into a temporary directory.
func source(t *testing.T, name string, program ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(strings.Join(program, "\n")+"\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBanner(t *testing.T) {
	assert := assert.New(t)

	result := execute()
	assert.True(strings.HasPrefix(result.stdout, "SjASM Z80"))
	assert.Equal(EXIT_NO_INPUT, result.code)
}

func TestCommandLine(t *testing.T) {
	assert := assert.New(t)

	result := execute("-e")
	assert.Equal(EXIT_NO_INPUT, result.code)
	assert.Contains(result.stderr, "Error")

	result = execute("-x", "x")
	assert.Equal(EXIT_USAGE, result.code)

	result = execute("--unknown", "x")
	assert.Equal(EXIT_USAGE, result.code)

	result = execute("a", "b", "c", "d")
	assert.Equal(EXIT_USAGE, result.code)

	path := source(t, "defs.asm", " nop")
	result = execute("-D", "=1", path)
	assert.Equal(EXIT_USAGE, result.code)
}

func TestMissingSource(t *testing.T) {
	assert := assert.New(t)

	missing := filepath.Join(t.TempDir(), "x")
	result := execute(missing)
	assert.Equal(EXIT_FILE, result.code)
	assert.Contains(result.stdout, "Error")
	assert.NotContains(result.stderr, "Error")

	result = execute("-e", missing)
	assert.Equal(EXIT_FILE, result.code)
	assert.Contains(result.stderr, "Error")
}

func TestEmptyProgram(t *testing.T) {
	assert := assert.New(t)

	path := source(t, "empty.asm")
	result := execute(path)
	assert.Equal(EXIT_OK, result.code)

	code, err := os.ReadFile(strings.TrimSuffix(path, ".asm") + ".out")
	assert.NoError(err)
	assert.Empty(code)
}

func TestCompileError(t *testing.T) {
	assert := assert.New(t)

	path := source(t, "dummy.asm", " dummy")
	result := execute(path)
	assert.Equal(EXIT_COMPILE, result.code)

	lines := strings.Split(strings.TrimSpace(result.stdout), "\n")
	if assert.Len(lines, 3) {
		assert.Contains(lines[1], "line 1:")
		assert.Equal("Errors: 1, warnings: 0", lines[2])
	}

	result = execute("-v", path)
	assert.Equal(EXIT_COMPILE, result.code)
	assert.Contains(result.stdout, "dummy.asm(1): error PASS")

	result = execute("-e", "-v", path)
	assert.Equal(EXIT_COMPILE, result.code)
	assert.Contains(result.stderr, "dummy.asm(1): error PASS")
	assert.NotContains(result.stdout, "PASS")
}

func TestOutputFiles(t *testing.T) {
	assert := assert.New(t)

	path := source(t, "prog.asm",
		" org 100h",
		"start: ld a,VALUE",
		" jp start",
	)
	dir := filepath.Dir(path)
	target := filepath.Join(dir, "prog.bin")

	result := execute("-l", "-s", "-D", "VALUE=0x12", path, target)
	assert.Equal(EXIT_OK, result.code, result.stdout)

	code, err := os.ReadFile(target)
	assert.NoError(err)
	assert.Equal([]byte{0x3e, 0x12, 0xc3, 0x00, 0x01}, code)

	listing, err := os.ReadFile(filepath.Join(dir, "prog.lst"))
	assert.NoError(err)
	assert.Contains(string(listing), "0100  3E 12")

	symbols, err := os.ReadFile(filepath.Join(dir, "prog.sym"))
	assert.NoError(err)
	assert.Equal("start: equ 00000100h\n", string(symbols))
}

func TestCompass(t *testing.T) {
	assert := assert.New(t)

	path := source(t, "compass.asm",
		" cond 1",
		" db % 11 00 11 00",
		" endc",
		" push bc,de",
		" pop bc,de",
	)

	result := execute(path)
	assert.Equal(EXIT_COMPILE, result.code)
	_, err := os.Stat(strings.TrimSuffix(path, ".asm") + ".out")
	assert.NoError(err)

	result = execute("-c", "-r", path)
	assert.Equal(EXIT_OK, result.code, result.stdout)

	code, err := os.ReadFile(strings.TrimSuffix(path, ".asm") + ".out")
	assert.NoError(err)
	assert.Equal([]byte{204, 0xc5, 0xd5, 0xd1, 0xc1}, code)
}

func TestLabelLimit(t *testing.T) {
	assert := assert.New(t)

	program := make([]string, 40000)
	for n := range program {
		program[n] = fmt.Sprintf("label%d: nop", n)
	}
	path := source(t, "labels.asm", program...)

	result := execute(path)
	assert.Equal(EXIT_FATAL, result.code)

	_, err := os.Stat(strings.TrimSuffix(path, ".asm") + ".out")
	assert.True(os.IsNotExist(err))
}

func TestMissingIncbin(t *testing.T) {
	assert := assert.New(t)

	path := source(t, "incbin.asm", ` incbin "missing.bin"`)

	result := execute(path)
	assert.Equal(EXIT_FILE, result.code)
	assert.Contains(result.stdout, "incbin.asm(1): line 1: fatal:")

	_, err := os.Stat(strings.TrimSuffix(path, ".asm") + ".out")
	assert.True(os.IsNotExist(err))
}
