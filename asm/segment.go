// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// A segment is a named region of the program with its own program
// counters. The logical PC is the address code is assembled for; the
// physical PC is where the bytes land in the output image. The two differ
// only inside an RORG block.
type segment struct {
	name          string
	uninitialized bool // SEG.U segments reserve space but emit nothing
	pc            int  // logical program counter
	phys          int  // physical program counter
	relocating    bool // inside an RORG block
	emitted       bool // bytes have been written at the physical PC
	overflow      bool // the segment ran past the end of memory
}

func newSegment(name string, origin int) *segment {
	return &segment{name: name, pc: origin, phys: origin}
}

// Set both program counters.
func (s *segment) org(addr int) {
	s.pc, s.phys = addr, addr
	s.relocating = false
}

// Begin a relocated block assembled for addr.
func (s *segment) rorg(addr int) {
	s.pc = addr
	s.relocating = true
}

// End a relocated block.
func (s *segment) rend() {
	s.pc = s.phys
	s.relocating = false
}

func (s *segment) advance(n int) {
	s.pc += n
	s.phys += n
}

// Return the number of bytes needed to align the logical PC.
func (s *segment) padding(align int) int {
	if align <= 0 {
		return 0
	}
	r := s.pc % align
	if r < 0 {
		r += align
	}
	if r == 0 {
		return 0
	}
	return align - r
}

// Switch to the named segment, creating it if necessary.
func (a *assembler) selectSegment(name string, uninitialized bool) {
	seg, ok := a.segs[name]
	if !ok {
		seg = newSegment(name, 0)
		a.segs[name] = seg
	}
	if uninitialized {
		seg.uninitialized = true
	}
	a.seg = seg
}

// Write bytes at the current physical PC and advance the segment.
func (a *assembler) emit(b []byte) {
	if len(b) == 0 {
		return
	}
	seg := a.seg
	if !seg.uninitialized {
		end := seg.phys + len(b)
		if a.reserve(len(b)) && a.final {
			copy(a.mem[seg.phys:end], b)
			for i := seg.phys; i < end; i++ {
				a.written[i] = true
			}
		}
		seg.emitted = true
		a.cur.bytes = append(a.cur.bytes, b...)
	}
	seg.advance(len(b))
}

// Emit n copies of a fill byte.
func (a *assembler) fill(n int, fill byte) {
	if n <= 0 || !a.reserve(n) {
		return
	}
	if a.seg.uninitialized {
		a.seg.advance(n)
		return
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	a.emit(b)
}

// Return true if n more bytes fit in memory at the physical PC. The first
// overflow in a segment is reported; later ones are not.
func (a *assembler) reserve(n int) bool {
	seg := a.seg
	if seg.phys >= 0 && n <= a.opts.MemorySize-seg.phys {
		return true
	}
	if !seg.overflow {
		seg.overflow = true
		a.addError(a.cur.line.raw, "memory size exceeded")
	}
	return false
}
