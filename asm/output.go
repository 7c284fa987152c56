// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/beevik/godasm/cpu"
)

// Severity indicates the seriousness of a diagnostic.
type Severity byte

// Diagnostic severities
const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "error"
	}
}

// A Diagnostic is an error, warning or message produced by the assembler.
// Line and Column are 1-based; both are zero for diagnostics that apply to
// the whole assembly.
type Diagnostic struct {
	File     string
	Line     int
	Column   int
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.File, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

// A ListingLine is a single line of the assembly listing.
type ListingLine struct {
	File           string // source file
	Line           int    // 1-based source line number
	Address        int    // logical address of the line, or -1
	Bytes          []byte // bytes emitted by the line
	Source         string // source text
	Error          string // errors reported on the line
	MacroGenerated bool   // line came from a macro or REPEAT expansion
	Skipped        bool   // line was not assembled
}

// A chunk is a contiguous run of initialized bytes in the image.
type chunk struct {
	addr  int
	bytes []byte
}

// Result holds the output of an assembly.
type Result struct {
	Binary      []byte           // initialized bytes in ascending address order
	Output      []byte           // Binary in the requested file format
	Origin      int              // lowest initialized address
	Arch        cpu.Architecture // processor selected by the source
	Listing     []ListingLine    // assembly listing, if requested
	Symbols     []SymbolRecord   // symbol table, if requested
	SourceMap   *SourceMap       // address to source line mapping
	Diagnostics []Diagnostic
	Success     bool // no errors were reported
	Passes      int  // number of passes run, including the final pass

	chunks []chunk
}

// Build the result of the assembly from the state of the final pass.
func (a *assembler) result() *Result {
	r := &Result{Passes: a.pass, Arch: a.arch}
	if a.fatal != nil {
		r.Diagnostics = []Diagnostic{*a.fatal}
		r.SourceMap = &SourceMap{Files: a.files}
		return r
	}

	r.Diagnostics = append(r.Diagnostics, a.runErrors...)
	r.Diagnostics = append(r.Diagnostics, a.sticky...)
	r.Diagnostics = append(r.Diagnostics, a.diags...)
	r.Success = true
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			r.Success = false
			break
		}
	}

	r.chunks = a.chunks()
	r.Binary = a.image(r.chunks)
	if len(r.chunks) > 0 {
		r.Origin = r.chunks[0].addr
	}
	r.Output = r.output(a.opts.Format)

	if a.opts.Listing {
		r.Listing = a.listing
	}
	if a.opts.Symbols {
		r.Symbols = a.symbols.records(a.opts.SortByAddress)
	}

	r.SourceMap = &SourceMap{
		Origin: r.Origin,
		Size:   len(r.Binary),
		CRC:    crc32.ChecksumIEEE(r.Binary),
		Files:  a.files,
		Lines:  a.sourceLines,
	}
	r.SourceMap.sortLines()
	return r
}

// Collect the runs of initialized memory.
func (a *assembler) chunks() []chunk {
	var chunks []chunk
	for i := 0; i < len(a.written); {
		if !a.written[i] {
			i++
			continue
		}
		start := i
		for i < len(a.written) && a.written[i] {
			i++
		}
		chunks = append(chunks, chunk{addr: start, bytes: a.mem[start:i]})
	}
	return chunks
}

// Return the binary image of the chunks, filling the gaps between them if
// requested.
func (a *assembler) image(chunks []chunk) []byte {
	var b []byte
	for i, c := range chunks {
		if a.opts.FillGaps && i > 0 {
			prev := chunks[i-1]
			for n := prev.addr + len(prev.bytes); n < c.addr; n++ {
				b = append(b, a.opts.FillByte)
			}
		}
		b = append(b, c.bytes...)
	}
	return b
}

// Return the binary in the requested file format.
func (r *Result) output(format Format) []byte {
	switch format {
	case FormatRAS:
		var b []byte
		for _, c := range r.chunks {
			b = append(b, toBytes(2, c.addr)...)
			b = append(b, toBytes(2, len(c.bytes))...)
			b = append(b, c.bytes...)
		}
		return b
	case FormatRaw:
		return r.Binary
	default:
		if len(r.Binary) == 0 {
			return nil
		}
		return append(toBytes(2, r.Origin), r.Binary...)
	}
}

// Errors returns the assembly's error diagnostics joined into a single
// error, or nil if the assembly succeeded.
func (r *Result) Errors() error {
	var errs []error
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			errs = append(errs, errors.New(d.String()))
		}
	}
	return errors.Join(errs...)
}

// WriteBinary writes the assembled binary to w in the requested file
// format.
func (r *Result) WriteBinary(w io.Writer, format Format) error {
	_, err := w.Write(r.output(format))
	return err
}

// WriteListing writes the assembly listing to w.
func (r *Result) WriteListing(w io.Writer) error {
	bw := bufio.NewWriter(w)
	file := ""
	for _, l := range r.Listing {
		if l.File != file {
			file = l.File
			fmt.Fprintf(bw, "------- FILE %s\n", file)
		}

		addr := "    "
		if l.Address >= 0 {
			addr = fmt.Sprintf("%04x", l.Address&0xffff)
		}

		code := l.Bytes
		more := ""
		if len(code) > 4 {
			code, more = code[:4], "*"
		}

		mark := " "
		if l.MacroGenerated {
			mark = "+"
		}
		fmt.Fprintf(bw, "%7d %s %s  %-13s %s\n", l.Line, mark, addr,
			strings.ToLower(byteString(code))+more, l.Source)

		if l.Error != "" {
			fmt.Fprintf(bw, "*** error: %s\n", l.Error)
		}
	}
	return bw.Flush()
}

// WriteSymbols writes the symbol table to w.
func (r *Result) WriteSymbols(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "--- Symbol List")
	for _, s := range r.Symbols {
		var flags []string
		if s.Referenced {
			flags = append(flags, "R")
		}
		if s.Pseudo {
			flags = append(flags, "P")
		}
		if !s.Resolved {
			flags = append(flags, "?")
		}
		attr := ""
		if len(flags) > 0 {
			attr = "(" + strings.Join(flags, " ") + ")"
		}
		fmt.Fprintf(bw, "%-24s %04x  %-8s %s\n", s.Name, s.Value&0xffff, s.Kind, attr)
	}
	fmt.Fprintln(bw, "--- End of Symbol List.")
	return bw.Flush()
}
