// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"

	"github.com/beevik/godasm/cpu"
)

// Maximum depth of nested macro expansions.
const maxMacroDepth = 50

// A macro is a named block of source lines with positional parameters
// {1} through {9}. The parameter {0} expands to the complete argument
// text.
type macro struct {
	name   string
	body   []fstring
	params int     // highest parameter number referenced by the body
	site   fstring // the MAC line
	pass   int     // most recent pass that encountered the definition
}

func newMacro(name string, body []fstring, site fstring, pass int) *macro {
	m := &macro{name: name, body: body, site: site, pass: pass}
	for _, l := range body {
		for i := 0; i+2 < len(l.str); i++ {
			if l.str[i] == '{' && decimal(l.str[i+1]) && l.str[i+2] == '}' {
				m.params = max(m.params, int(l.str[i+1]-'0'))
			}
		}
	}
	return m
}

// Expand the macro body for the given argument text.
func (m *macro) expand(argText fstring) ([]fstring, error) {
	var args []string
	if !argText.isEmpty() {
		for _, f := range argText.splitUnquoted(',') {
			args = append(args, f.str)
		}
	}
	if len(args) < m.params {
		return nil, fmt.Errorf("macro '%s' expects %d arguments, got %d", m.name, m.params, len(args))
	}

	lines := make([]fstring, len(m.body))
	for i, l := range m.body {
		lines[i] = newFstring(l.fileIndex, l.row, substitute(l.str, args, argText.str))
	}
	return lines, nil
}

// Replace parameter references in a line of macro text.
func substitute(s string, args []string, all string) string {
	if !strings.Contains(s, "{") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '{' && i+2 < len(s) && decimal(s[i+1]) && s[i+2] == '}' {
			n := int(s[i+1] - '0')
			switch {
			case n == 0:
				b.WriteString(all)
			case n <= len(args):
				b.WriteString(args[n-1])
			}
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Collect the lines of a block that ends with one of the end keywords,
// honoring nested blocks that open with one of the start keywords. On
// return, the frame is positioned just past the end of the block.
func (a *assembler) captureBlock(f *frame, start, end []string) (body []fstring, ok bool) {
	depth := 1
	for i := f.pos; i < len(f.lines); i++ {
		ln, _ := tokenize(f.lines[i], a.isKeyword)
		op := ln.op()
		switch {
		case contains(start, op):
			depth++
		case contains(end, op):
			depth--
			if depth == 0 {
				body = f.lines[f.pos:i]
				f.pos = i + 1
				return body, true
			}
		}
	}
	body = f.lines[f.pos:]
	f.pos = len(f.lines)
	return body, false
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}

var (
	macroStart  = []string{"mac", "macro"}
	macroEnd    = []string{"endm"}
	repeatStart = []string{"repeat"}
	repeatEnd   = []string{"repend"}
)

// Handle a MAC directive by capturing the macro body. Macros are
// captured once; later passes skip over the definition.
func (a *assembler) defineMacro(ln *sourceLine, f *frame) {
	name, _ := ln.operand.consumeUntil(whitespace)
	if name.isEmpty() {
		name = ln.label
	}

	body, ok := a.captureBlock(f, macroStart, macroEnd)
	a.listSkipped(body)
	if name.isEmpty() {
		a.addError(ln.mnemonic, "macro name expected")
		return
	}
	if !ok {
		a.addError(ln.mnemonic, "unterminated MAC '%s'", name.str)
	}

	key := strings.ToLower(name.str)
	if _, ok := pseudoOps[key]; ok || cpu.IsMnemonic(key) || directives[key] {
		a.addError(name, "macro name '%s' is reserved", name.str)
		return
	}

	m, found := a.macros[key]
	switch {
	case !found:
		a.macros[key] = newMacro(name.str, body, ln.raw, a.pass)
		a.logLine(ln.raw, "macro=%s", name.str)
	case m.pass == a.pass:
		a.addError(name, "macro '%s' redefined", name.str)
	default:
		m.pass = a.pass
	}
}

// Push an expansion of the macro onto the source stack.
func (a *assembler) expandMacro(ln *sourceLine, m *macro) {
	depth := 0
	for _, f := range a.frames {
		if f.kind == macroFrame {
			depth++
		}
	}
	if depth >= maxMacroDepth {
		a.addError(ln.mnemonic, "infinite macro recursion in '%s'", m.name)
		return
	}

	lines, err := m.expand(ln.operand)
	if err != nil {
		a.addError(ln.mnemonic, "%v", err)
		return
	}

	a.nextScope++
	a.frames = append(a.frames, &frame{
		kind:      macroFrame,
		lines:     lines,
		macro:     m,
		scope:     a.scope,
		condDepth: len(a.conds),
	})
	a.scope = a.nextScope
}

// Handle MEXIT by abandoning the innermost macro expansion.
func (a *assembler) exitMacro(ln *sourceLine) {
	for i := len(a.frames) - 1; i >= 0; i-- {
		if a.frames[i].kind != macroFrame {
			continue
		}
		f := a.frames[i]
		a.conds = a.conds[:f.condDepth]
		a.scope = f.scope
		a.frames = a.frames[:i]
		return
	}
	a.addError(ln.mnemonic, "MEXIT outside of macro")
}

// Handle a REPEAT directive by capturing its body and pushing it onto the
// source stack the requested number of times.
func (a *assembler) beginRepeat(ln *sourceLine, f *frame) {
	body, ok := a.captureBlock(f, repeatStart, repeatEnd)
	if !ok {
		a.addError(ln.mnemonic, "REPEAT without REPEND")
		return
	}

	v, err := a.evaluateOperand(ln.operand)
	switch {
	case err != nil:
		return
	case !v.resolved:
		a.addStickyError(ln.operand, "REPEAT count must be a constant expression")
		return
	case v.n < 0:
		a.addError(ln.operand, "REPEAT count must not be negative")
		return
	case v.n == 0 || len(body) == 0:
		return
	}

	a.frames = append(a.frames, &frame{
		kind:      repeatFrame,
		lines:     body,
		count:     v.n,
		condDepth: len(a.conds),
	})
}
