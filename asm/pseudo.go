// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/godasm/cpu"
)

// When a pseudo-op's label is defined.
type labelRule byte

const (
	labelBefore labelRule = iota // at the PC before the pseudo-op
	labelAfter                   // at the PC after the pseudo-op
	labelOwned                   // by the pseudo-op itself
)

type pseudoOpData struct {
	fn    func(a *assembler, ln *sourceLine, param any) error
	param any
	label labelRule
}

const hiBitTerm = 1 << 16

var pseudoOps = map[string]pseudoOpData{
	"org":         {fn: (*assembler).parseOrigin, label: labelAfter},
	".org":        {fn: (*assembler).parseOrigin, label: labelAfter},
	".or":         {fn: (*assembler).parseOrigin, label: labelAfter},
	"rorg":        {fn: (*assembler).parseRelocate, label: labelAfter},
	".rorg":       {fn: (*assembler).parseRelocate, label: labelAfter},
	"rend":        {fn: (*assembler).parseRelocateEnd, label: labelAfter},
	"seg":         {fn: (*assembler).parseSegment, label: labelAfter},
	".seg":        {fn: (*assembler).parseSegment, label: labelAfter},
	"align":       {fn: (*assembler).parseAlign, label: labelAfter},
	".align":      {fn: (*assembler).parseAlign, label: labelAfter},
	".al":         {fn: (*assembler).parseAlign, label: labelAfter},
	"processor":   {fn: (*assembler).parseProcessor},
	".arch":       {fn: (*assembler).parseProcessor},
	".ar":         {fn: (*assembler).parseProcessor},
	"arch":        {fn: (*assembler).parseProcessor},
	"equ":         {fn: (*assembler).parseEquate, param: KindConstant, label: labelOwned},
	".equ":        {fn: (*assembler).parseEquate, param: KindConstant, label: labelOwned},
	".eq":         {fn: (*assembler).parseEquate, param: KindConstant, label: labelOwned},
	"=":           {fn: (*assembler).parseEquate, param: KindConstant, label: labelOwned},
	"set":         {fn: (*assembler).parseEquate, param: KindVariable, label: labelOwned},
	".set":        {fn: (*assembler).parseEquate, param: KindVariable, label: labelOwned},
	"dc":          {fn: (*assembler).parseData, param: 1},
	"byte":        {fn: (*assembler).parseData, param: 1},
	".byte":       {fn: (*assembler).parseData, param: 1},
	".db":         {fn: (*assembler).parseData, param: 1},
	"word":        {fn: (*assembler).parseData, param: 2},
	".word":       {fn: (*assembler).parseData, param: 2},
	".dw":         {fn: (*assembler).parseData, param: 2},
	"long":        {fn: (*assembler).parseData, param: 4},
	".long":       {fn: (*assembler).parseData, param: 4},
	".dd":         {fn: (*assembler).parseData, param: 4},
	".dword":      {fn: (*assembler).parseData, param: 4},
	".tstring":    {fn: (*assembler).parseData, param: 1 | hiBitTerm},
	"ds":          {fn: (*assembler).parseSpace, param: 1},
	".ds":         {fn: (*assembler).parseSpace, param: 1},
	"hex":         {fn: (*assembler).parseHexString},
	".hex":        {fn: (*assembler).parseHexString},
	".dh":         {fn: (*assembler).parseHexString},
	"include":     {fn: (*assembler).parseInclude},
	".include":    {fn: (*assembler).parseInclude},
	".in":         {fn: (*assembler).parseInclude},
	"incbin":      {fn: (*assembler).parseBinaryInclude},
	".incbin":     {fn: (*assembler).parseBinaryInclude},
	".bin":        {fn: (*assembler).parseBinaryInclude},
	".binary":     {fn: (*assembler).parseBinaryInclude},
	"incdir":      {fn: (*assembler).parseIncludeDir},
	"subroutine":  {fn: (*assembler).parseSubroutine, label: labelOwned},
	".subroutine": {fn: (*assembler).parseSubroutine, label: labelOwned},
	"echo":        {fn: (*assembler).parseEcho},
	"err":         {fn: (*assembler).parseErr},
	"end":         {fn: (*assembler).parseEnd},
	"list":        {fn: (*assembler).parseList},
}

// Return the unit size selected by a mnemonic extension.
func extUnit(ext string, def int) (int, error) {
	switch ext {
	case "":
		return def, nil
	case "b":
		return 1, nil
	case "w":
		return 2, nil
	case "l":
		return 4, nil
	default:
		return 0, fmt.Errorf("invalid extension '.%s'", ext)
	}
}

// Evaluate an optional fill-byte argument.
func (a *assembler) fillArg(args []fstring, i int, def byte) (byte, error) {
	if len(args) <= i {
		return def, nil
	}
	v, err := a.evaluateOperand(args[i])
	if err != nil {
		return 0, err
	}
	return byte(v.n), nil
}

// Parse an "ORG" origin definition
func (a *assembler) parseOrigin(ln *sourceLine, param any) error {
	args := ln.operand.splitUnquoted(',')
	v, err := a.evaluateOperand(args[0])
	if err != nil {
		return err
	}
	a.markTentative(v)

	fill, err := a.fillArg(args, 1, a.opts.FillByte)
	if err != nil {
		return err
	}
	if len(args) > 1 && a.seg.emitted && v.resolved && v.n > a.seg.phys {
		a.fill(v.n-a.seg.phys, fill)
	}

	a.seg.org(v.n)
	a.logLine(ln.operand, "org=$%04X", v.n)
	return nil
}

// Parse an "RORG" relocated origin.
func (a *assembler) parseRelocate(ln *sourceLine, param any) error {
	v, err := a.evaluateOperand(ln.operand)
	if err != nil {
		return err
	}
	a.markTentative(v)
	a.seg.rorg(v.n)
	a.logLine(ln.operand, "rorg=$%04X", v.n)
	return nil
}

// Parse an "REND" relocation end.
func (a *assembler) parseRelocateEnd(ln *sourceLine, param any) error {
	if !a.seg.relocating {
		a.addError(ln.mnemonic, "REND without RORG")
		return errParse
	}
	a.seg.rend()
	return nil
}

// Parse a "SEG" segment selection.
func (a *assembler) parseSegment(ln *sourceLine, param any) error {
	if ln.ext != "" && ln.ext != "u" {
		a.addError(ln.mnemonic, "invalid extension '.%s'", ln.ext)
		return errParse
	}
	name, _ := ln.operand.consumeUntil(whitespace)
	a.selectSegment(name.str, ln.ext == "u")
	a.logLine(ln.operand, "seg=%s", name.str)
	return nil
}

// Parse an "ALIGN" pseudo-op
func (a *assembler) parseAlign(ln *sourceLine, param any) error {
	args := ln.operand.splitUnquoted(',')
	v, err := a.evaluateOperand(args[0])
	if err != nil {
		return err
	}
	if !v.resolved {
		a.markTentative(v)
		return nil
	}
	if v.n <= 0 {
		a.addError(args[0], "invalid alignment")
		return errParse
	}
	fill, err := a.fillArg(args, 1, a.opts.FillByte)
	if err != nil {
		return err
	}
	a.markTentative(v)
	a.fill(a.seg.padding(v.n), fill)
	return nil
}

// Parse a "PROCESSOR" architecture pseudo-op.
func (a *assembler) parseProcessor(ln *sourceLine, param any) error {
	name, _ := ln.operand.consumeUntil(whitespace)
	switch strings.ToLower(name.str) {
	case "6502", "6507", "nmos":
		a.arch = cpu.NMOS
	case "65c02", "cmos":
		a.arch = cpu.CMOS
	default:
		a.addError(ln.operand, "unsupported processor '%s'", name.str)
		return errParse
	}
	a.instSet = cpu.GetInstructionSet(a.arch)
	return nil
}

// Parse an "EQU" constant or "SET" variable definition.
func (a *assembler) parseEquate(ln *sourceLine, param any) error {
	if ln.label.isEmpty() {
		a.addError(ln.mnemonic, "equate declaration must begin with a label")
		return errParse
	}

	v, err := a.evaluateOperand(ln.operand)
	if err != nil {
		return err
	}
	a.defineSymbol(ln.label, v, param.(SymbolKind))
	return nil
}

// Return the little-endian (or big-endian) representation of a value
// using the requested number of bytes.
func (a *assembler) dataBytes(unit, n int) []byte {
	b := toBytes(unit, n)
	if a.opts.BigEndian {
		return reverse(b)
	}
	return b
}

// Return an error if a value does not fit in a data unit.
func checkRange(unit int, v value) error {
	if !v.resolved {
		return nil
	}
	switch {
	case unit == 1 && (v.n < -128 || v.n > 0xff):
		return errRange
	case unit == 2 && (v.n < -32768 || v.n > 0xffff):
		return errRange
	}
	return nil
}

var errRange = errors.New("value out of range")

// Parse a data pseudo-op.
func (a *assembler) parseData(ln *sourceLine, param any) error {
	unit, err := extUnit(ln.ext, param.(int)&7)
	if err != nil {
		return err
	}
	hiBit := param.(int)&hiBitTerm != 0

	if ln.operand.isEmpty() {
		a.addError(ln.mnemonic, "missing data")
		return errParse
	}

	for _, item := range ln.operand.splitUnquoted(',') {
		if item.startsWithChar('"') {
			s := item.str[1:]
			if n := strings.IndexByte(s, '"'); n >= 0 {
				s = s[:n]
			}
			b := []byte(s)
			if hiBit && len(b) > 0 {
				b[len(b)-1] |= 0x80
			}
			a.emit(b)
			continue
		}

		v, err := a.evaluateOperand(item)
		if err != nil {
			a.emit(make([]byte, unit))
			continue
		}
		if err := checkRange(unit, v); err != nil {
			a.addError(item, "%v", err)
		}
		a.emit(a.dataBytes(unit, v.n))
	}
	return nil
}

// Parse a "DS" reserved-space pseudo-op.
func (a *assembler) parseSpace(ln *sourceLine, param any) error {
	unit, err := extUnit(ln.ext, param.(int))
	if err != nil {
		return err
	}

	args := ln.operand.splitUnquoted(',')
	v, err := a.evaluateOperand(args[0])
	if err != nil {
		return err
	}
	a.markTentative(v)
	if v.n < 0 {
		a.addError(args[0], "negative DS count")
		return errParse
	}

	fill := 0
	if len(args) > 1 {
		f, err := a.evaluateOperand(args[1])
		if err != nil {
			return err
		}
		fill = f.n
	} else {
		fill = int(a.opts.FillByte)
	}

	if !a.reserve(min(v.n, a.opts.MemorySize+1) * unit) {
		return errParse
	}
	if a.seg.uninitialized {
		a.seg.advance(v.n * unit)
		return nil
	}
	b := make([]byte, 0, v.n*unit)
	for i := 0; i < v.n; i++ {
		b = append(b, a.dataBytes(unit, fill)...)
	}
	a.emit(b)
	return nil
}

// Parse a hex-string pseudo-op.
func (a *assembler) parseHexString(ln *sourceLine, param any) error {
	s := strings.Join(strings.Fields(ln.operand.str), "")
	for i := 0; i < len(s); i++ {
		if !hexadecimal(s[i]) {
			a.addError(ln.operand, "invalid hex string")
			return errParse
		}
	}
	if len(s)%2 != 0 {
		a.addError(ln.operand, "hex-string has odd number of characters")
		return errParse
	}

	b := make([]byte, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		b = append(b, hexToByte(s[i:]))
	}
	a.emit(b)
	return nil
}

// Return the filename argument of an include pseudo-op.
func unquote(l fstring) string {
	s := strings.TrimSpace(l.str)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// Parse an "INCLUDE" pseudo-op
func (a *assembler) parseInclude(ln *sourceLine, param any) error {
	name := unquote(ln.operand)
	if name == "" {
		a.addError(ln.operand, "invalid filename")
		return errParse
	}

	f := a.fileFrame()
	p, b, err := a.resolve(name, f, false)
	if err != nil {
		a.addError(ln.operand, "unable to open '%s'", name)
		return errParse
	}

	for _, g := range a.frames {
		if g.kind == fileFrame && g.path == p {
			a.fatalError(ln.operand, "recursive include of '%s'", name)
			return errParse
		}
	}

	a.logLine(ln.operand, "include=%s", p)
	a.pushFile(p, b, f)
	return nil
}

// Parse an "INCBIN" binary include pseudo-op
func (a *assembler) parseBinaryInclude(ln *sourceLine, param any) error {
	args := ln.operand.splitUnquoted(',')
	name := unquote(args[0])
	if name == "" {
		a.addError(ln.operand, "invalid filename")
		return errParse
	}

	_, b, err := a.resolve(name, a.fileFrame(), true)
	if err != nil {
		a.addError(ln.operand, "unable to open '%s'", name)
		return errParse
	}

	if len(args) > 1 {
		skip, err := a.evaluateOperand(args[1])
		if err != nil {
			return err
		}
		if skip.n < 0 || skip.n > len(b) {
			a.addError(args[1], "invalid INCBIN offset")
			return errParse
		}
		b = b[skip.n:]
	}
	a.emit(b)
	return nil
}

// Parse an "INCDIR" pseudo-op
func (a *assembler) parseIncludeDir(ln *sourceLine, param any) error {
	dir := unquote(ln.operand)
	if dir == "" {
		a.addError(ln.operand, "invalid directory")
		return errParse
	}
	f := a.fileFrame()
	if !contains(f.incdirs, dir) {
		f.incdirs = append(f.incdirs, dir)
	}
	return nil
}

// Parse a "SUBROUTINE" pseudo-op, which opens a new local label scope.
func (a *assembler) parseSubroutine(ln *sourceLine, param any) error {
	a.defineLabel(ln.label)
	a.nextScope++
	a.scope = a.nextScope
	return nil
}

// Parse an "ECHO" pseudo-op.
func (a *assembler) parseEcho(ln *sourceLine, param any) error {
	var parts []string
	for _, item := range ln.operand.splitUnquoted(',') {
		if item.startsWithChar('"') {
			parts = append(parts, unquote(item))
			continue
		}
		v, err := a.evaluateOperand(item)
		if err != nil {
			return err
		}
		parts = append(parts, fmt.Sprintf("$%X", v.n))
	}

	if a.final {
		msg := strings.Join(parts, " ")
		a.addInfo(ln.mnemonic, SeverityInfo, msg)
		fmt.Fprintln(a.out, msg)
	}
	return nil
}

// Parse an "ERR" pseudo-op, which aborts the assembly.
func (a *assembler) parseErr(ln *sourceLine, param any) error {
	a.addError(ln.mnemonic, "ERR pseudo-op encountered")
	a.ended = true
	return errParse
}

// Parse an "END" pseudo-op, which ends the source code.
func (a *assembler) parseEnd(ln *sourceLine, param any) error {
	a.ended = true
	return nil
}

// Parse a "LIST" pseudo-op.
func (a *assembler) parseList(ln *sourceLine, param any) error {
	switch strings.ToLower(strings.TrimSpace(ln.operand.str)) {
	case "on":
		a.listOn = true
	case "off":
		a.listOn = false
	default:
		a.addError(ln.operand, "LIST expects ON or OFF")
		return errParse
	}
	return nil
}
