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

var errBranchRange = errors.New("branch out of range")

// An operand describes the syntactic form of an instruction's operand.
// Address operands are parsed as ABS, ABX or ABY; the zero-page and
// relative forms are chosen once the operand's value is known.
type operand struct {
	mode  cpu.Mode // IMP, ACC, IMM, ABS, ABX, ABY, IND, IDX or IDY
	text  fstring  // expression text
	force int      // operand width forced by the source, or 0
}

// Return the operand width selected by a mnemonic extension.
func forcedWidth(ext string) (int, error) {
	switch ext {
	case "":
		return 0, nil
	case "b", "z":
		return 1, nil
	case "w", "a":
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid extension '.%s'", ext)
	}
}

// Parse the operand following an instruction mnemonic.
func (a *assembler) parseOperand(ln *sourceLine) (o operand, err error) {
	o.force, err = forcedWidth(ln.ext)
	if err != nil {
		a.addError(ln.mnemonic, "%v", err)
		return o, errParse
	}

	line := ln.operand.trimRight()
	switch {
	case line.isEmpty():
		o.mode = cpu.IMP
		return o, nil

	case strings.EqualFold(line.str, "a"):
		o.mode = cpu.ACC
		return o, nil

	case line.startsWithChar('#'):
		o.mode, o.text = cpu.IMM, line.consume(1).consumeWhitespace()
		return o, nil

	case line.startsWithFold("abs:"):
		o.force, line = 2, line.consume(4)

	case line.startsWithFold("a:"):
		o.force, line = 2, line.consume(2)
	}

	if line.startsWithChar('(') {
		if mode, expr, ok := line.consumeIndirect(); ok {
			o.mode, o.text = mode, expr
			return o, nil
		}
	}

	mode, expr, ok := line.consumeAbsolute()
	if !ok {
		a.addError(line, "unknown addressing mode format")
		return o, errParse
	}
	o.mode, o.text = mode, expr
	return o, nil
}

// Return the index of the parenthesis that closes the one at the start of
// the string, or -1 if there is none.
func (l *fstring) matchParen() int {
	depth := 0
	for i := 0; i < len(l.str); {
		switch c := l.str[i]; {
		case stringQuote(c):
			i, _ = l.skipQuoted(i)
			continue
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

// Return true if the string is an index register suffix such as ",Y".
func isIndex(s string, reg string) bool {
	s, ok := strings.CutPrefix(s, ",")
	return ok && strings.EqualFold(strings.TrimSpace(s), reg)
}

// Consume an operand beginning with '(' whose parentheses enclose an
// indirect address. Returns false if the parentheses only group part of
// an absolute expression.
func (l fstring) consumeIndirect() (mode cpu.Mode, expr fstring, ok bool) {
	end := l.matchParen()
	if end < 0 {
		return mode, expr, false
	}

	inner := l.consume(1).trunc(end - 1)
	rest := strings.TrimSpace(l.str[end+1:])
	fields := inner.splitUnquoted(',')

	switch {
	case len(fields) == 2 && strings.EqualFold(fields[1].str, "x") && rest == "":
		return cpu.IDX, fields[0], true
	case len(fields) == 1 && rest == "":
		return cpu.IND, fields[0], true
	case len(fields) == 1 && isIndex(rest, "y"):
		return cpu.IDY, fields[0], true
	}
	return mode, expr, false
}

// Consume an absolute operand expression with an optional index register
// suffix.
func (l fstring) consumeAbsolute() (mode cpu.Mode, expr fstring, ok bool) {
	fields := l.splitUnquoted(',')
	switch {
	case len(fields) == 1:
		return cpu.ABS, fields[0], true
	case len(fields) == 2 && strings.EqualFold(fields[1].str, "x"):
		return cpu.ABX, fields[0], true
	case len(fields) == 2 && strings.EqualFold(fields[1].str, "y"):
		return cpu.ABY, fields[0], true
	}
	return mode, expr, false
}

// Return true if the addressing mode's operand width depends on the
// operand value.
func sizedMode(m cpu.Mode) bool {
	switch m {
	case cpu.ZPG, cpu.ZPX, cpu.ZPY, cpu.ABS, cpu.ABX, cpu.ABY:
		return true
	}
	return false
}

// Return the preferred width of an address operand. Unresolved operands
// use the width chosen at the same site in an earlier pass, or a word.
func (a *assembler) operandSize(o operand, v value) int {
	switch {
	case o.force != 0:
		return o.force
	case !v.resolved:
		if n, ok := a.guesses[a.cur.site]; ok {
			return n
		}
		return 2
	case v.n >= 0 && v.n <= 0xff:
		return 1
	default:
		return 2
	}
}

// Given the instruction variants of a mnemonic and the operand's form and
// preferred width, select the best matching variant. Lower quality values
// are preferred.
func findMatchingInstruction(insts []*cpu.Instruction, mode cpu.Mode, size int) *cpu.Instruction {
	zpqual, absqual := 1, 2
	if size == 2 {
		zpqual, absqual = 3, 1
	}

	bestqual := 4
	var found *cpu.Instruction
	for _, inst := range insts {
		match, qual := false, 0
		switch inst.Mode {
		case cpu.IMP:
			match = mode == cpu.IMP
		case cpu.ACC:
			match = mode == cpu.IMP || mode == cpu.ACC
		case cpu.IMM:
			match = mode == cpu.IMM
		case cpu.REL:
			match = mode == cpu.ABS
		case cpu.ZPG:
			match, qual = mode == cpu.ABS, zpqual
		case cpu.ZPX:
			match, qual = mode == cpu.ABX, zpqual
		case cpu.ZPY:
			match, qual = mode == cpu.ABY, zpqual
		case cpu.ABS:
			match, qual = mode == cpu.ABS, absqual
		case cpu.ABX:
			match, qual = mode == cpu.ABX || (mode == cpu.IDX && inst.Name == "JMP"), absqual
		case cpu.ABY:
			match, qual = mode == cpu.ABY, absqual
		case cpu.IND:
			match = mode == cpu.IND
		case cpu.IDX:
			match = mode == cpu.IDX
		case cpu.IDY:
			match = mode == cpu.IDY
		}
		if match && qual < bestqual {
			bestqual, found = qual, inst
		}
	}
	return found
}

// Assemble an instruction and emit its machine code.
func (a *assembler) assembleInstruction(ln *sourceLine, insts []*cpu.Instruction) {
	o, err := a.parseOperand(ln)
	if err != nil {
		return
	}

	var v value
	hasValue := o.mode != cpu.IMP && o.mode != cpu.ACC
	if hasValue {
		if v, err = a.evaluateOperand(o.text); err != nil {
			v = value{}
		}
	}

	size := 0
	if hasValue {
		size = a.operandSize(o, v)
	}

	inst := findMatchingInstruction(insts, o.mode, size)
	if inst == nil {
		a.addError(ln.mnemonic, "invalid addressing mode for opcode '%s'", ln.mnemonic.str)
		return
	}
	if inst.Illegal && !a.opts.AllowIllegal {
		a.addError(ln.mnemonic, "illegal instruction '%s'", ln.mnemonic.str)
	}

	width := int(inst.Length) - 1
	if sizedMode(inst.Mode) {
		if o.force != 0 && o.force != width {
			a.addError(ln.mnemonic, "invalid addressing mode for opcode '%s'", ln.mnemonic.str)
		}
		if o.force == 0 {
			a.markTentative(v)
		}
		if v.resolved {
			a.guesses[a.cur.site] = width
		}
	}

	a.logLine(ln.operand, "mode=%s", inst.Mode)

	code := []byte{inst.Opcode}
	switch {
	case inst.Mode == cpu.REL:
		offset, err := relOffset(v.n, a.seg.pc+int(inst.Length))
		if err != nil && v.resolved {
			a.addError(o.text, "%v", err)
		}
		code = append(code, offset)

	case width > 0:
		if v.resolved && !fits(width, inst.Mode, v.n) {
			a.addError(o.text, "value out of range")
		}
		code = append(code, toBytes(width, v.n)...)
	}
	a.emit(code)
}

// Return true if a value fits in an instruction operand of the given
// width. Immediate operands accept signed bytes.
func fits(width int, mode cpu.Mode, n int) bool {
	switch {
	case mode == cpu.IMM:
		return n >= -128 && n <= 0xff
	case width == 1:
		return n >= 0 && n <= 0xff
	default:
		return n >= 0 && n <= 0xffff
	}
}

// Compute the relative offset of two addresses as a
// two's-complement byte value. If the offset can't
// fit into a byte, return an error.
func relOffset(addr1, addr2 int) (byte, error) {
	diff := addr1 - addr2
	switch {
	case diff < -128 || diff > 127:
		return 0, errBranchRange
	case diff >= 0:
		return byte(diff), nil
	default:
		return byte(256 + diff), nil
	}
}
