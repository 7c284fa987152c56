// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a 6502 instruction set
// disassembler for assembled binary images.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/godasm/cpu"
)

// Disassembler formatting for addressing modes
var modeFormat = []string{
	"#$%s",    // IMM
	"%s",      // IMP
	"$%s",     // REL
	"$%s",     // ZPG
	"$%s,X",   // ZPX
	"$%s,Y",   // ZPY
	"$%s",     // ABS
	"$%s,X",   // ABX
	"$%s,Y",   // ABY
	"($%s)",   // IND
	"($%s,X)", // IDX
	"($%s),Y", // IDY
	"%s",      // ACC
}

var hex = "0123456789ABCDEF"

// Return a hexadecimal string representation of the little-endian
// operand bytes.
func hexString(b []byte) string {
	hexlen := len(b) * 2
	hexbuf := make([]byte, hexlen)
	j := hexlen - 1
	for _, n := range b {
		hexbuf[j] = hex[n&0xf]
		hexbuf[j-1] = hex[n>>4]
		j -= 2
	}
	return string(hexbuf)
}

// An Image is a block of machine code loaded at an origin address.
type Image struct {
	Origin int
	Bytes  []byte
	Arch   cpu.Architecture
}

// A Line is a single disassembled instruction.
type Line struct {
	Address int
	Bytes   []byte
	Text    string
	Valid   bool // false if the opcode is unknown or truncated
}

func (l Line) String() string {
	var code []string
	for _, b := range l.Bytes {
		code = append(code, fmt.Sprintf("%02X", b))
	}
	return fmt.Sprintf("%04X-   %-8s    %s", l.Address, strings.Join(code, " "), l.Text)
}

// Disassemble the machine code in the image at address 'addr'. Return a
// 'line' representing the disassembled instruction and a 'next' address
// that starts the following line of machine code. Unknown opcodes and
// instructions running past the end of the image disassemble as a
// single-byte ".byte" directive.
func (img *Image) Disassemble(addr int) (line Line, next int) {
	off := addr - img.Origin
	if off < 0 || off >= len(img.Bytes) {
		return Line{Address: addr, Text: "???"}, addr + 1
	}

	opcode := img.Bytes[off]
	set := cpu.GetInstructionSet(img.Arch)
	inst := set.Lookup(opcode)
	if !inst.Valid() || off+int(inst.Length) > len(img.Bytes) {
		line = Line{
			Address: addr,
			Bytes:   []byte{opcode},
			Text:    fmt.Sprintf(".byte $%02X", opcode),
		}
		return line, addr + 1
	}

	code := img.Bytes[off : off+int(inst.Length)]
	operand := code[1:]
	if inst.Mode == cpu.REL {
		// Convert relative offset to absolute address.
		braddr := addr + int(inst.Length) + int(int8(operand[0]))
		operand = []byte{byte(braddr & 0xff), byte(braddr >> 8)}
	}

	format := "%s " + modeFormat[inst.Mode]
	line = Line{
		Address: addr,
		Bytes:   code,
		Text:    strings.TrimRight(fmt.Sprintf(format, inst.Name, hexString(operand)), " "),
		Valid:   true,
	}
	return line, addr + int(inst.Length)
}

// Lines disassembles the entire image.
func (img *Image) Lines() []Line {
	var lines []Line
	end := img.Origin + len(img.Bytes)
	for addr := img.Origin; addr < end; {
		var l Line
		l, addr = img.Disassemble(addr)
		lines = append(lines, l)
	}
	return lines
}

// WriteTo writes the disassembly of the image to w.
func (img *Image) WriteTo(w io.Writer) (n int64, err error) {
	for _, l := range img.Lines() {
		var c int
		c, err = fmt.Fprintln(w, l.String())
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
