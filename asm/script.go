// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/golang/glog"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/sjasm/internal"
)

// scriptName matches the symbol names visible to scripts.
var scriptName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// scriptStmt runs a starlark program. Its integer globals become
// constants and bytes passed to db() are emitted.
type scriptStmt struct {
	node
	src string
}

func (s *scriptStmt) predeclared(p *pass, out *[]byte) starlark.StringDict {
	dict := starlark.StringDict{}
	for name, sym := range p.prev.Defined() {
		if scriptName.MatchString(name) {
			dict[name] = starlark.MakeInt64(sym.Value)
		}
	}
	for name, value := range p.vars {
		if scriptName.MatchString(name) {
			dict[name] = starlark.MakeInt64(value)
		}
	}

	dict["pc"] = starlark.MakeInt64(p.pc)
	dict["db"] = starlark.NewBuiltin("db", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf(f("%v: unexpected keyword arguments"), fn.Name())
		}
		for _, arg := range args {
			switch value := arg.(type) {
			case starlark.Int:
				n, ok := value.Int64()
				if !ok {
					return nil, fmt.Errorf(f("%v: %v out of range"), fn.Name(), value)
				}
				*out = append(*out, byte(n))
			case starlark.String:
				*out = append(*out, string(value)...)
			default:
				return nil, fmt.Errorf(f("%v: unsupported %v"), fn.Name(), arg.Type())
			}
		}
		return starlark.None, nil
	})

	return dict
}

func (s *scriptStmt) exec(p *pass) {
	var out []byte

	thread := &starlark.Thread{
		Name: s.pos.String(),
		Print: func(_ *starlark.Thread, msg string) {
			glog.Infof("%v: %v", s.pos, msg)
		},
	}
	opts := syntax.FileOptions{}
	globals, err := starlark.ExecFileOptions(&opts, thread, s.pos.File, s.src, s.predeclared(p, &out))
	if err != nil {
		p.fail(fmt.Errorf("%w: %v", ErrScript, err))
		return
	}

	p.emit(out...)

	for name, value := range internal.IterSorted(globals) {
		if strings.HasPrefix(name, "_") {
			continue
		}
		number, ok := value.(starlark.Int)
		if !ok {
			continue
		}
		n, ok := number.Int64()
		if !ok {
			p.fail(fmt.Errorf("%w: %v", ErrScript, name))
			continue
		}
		p.define(name, n, SCOPE_GLOBAL)
	}
}
