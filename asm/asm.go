// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a DASM-compatible 6502 macro assembler.
//
// Source code is assembled in repeated passes. Each pass walks the whole
// program, assigning addresses and evaluating expressions with the symbol
// values learned in earlier passes. Passes repeat until no symbol value or
// instruction size changes, and a final pass then produces the binary
// image, listing and symbol table.
package asm

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/beevik/godasm/cpu"
	"github.com/golang/glog"
)

var (
	errParse = errors.New("parse error")
)

// Format selects the layout of the binary output file.
type Format int

// Output file formats
const (
	FormatDefault Format = 1 // 2-byte origin header followed by the image
	FormatRAS     Format = 2 // each chunk preceded by its origin and length
	FormatRaw     Format = 3 // the image alone
)

// Options control the behavior of the assembler.
type Options struct {
	Filename      string         // name of the source file in diagnostics
	Format        Format         // output file format (default 1)
	Listing       bool           // produce a listing
	Symbols       bool           // produce a symbol table
	SortByAddress bool           // sort the symbol table by value
	MaxPasses     int            // pass limit before giving up (default 10)
	AllowIllegal  bool           // accept undocumented NMOS opcodes
	IncludeDir    string         // directory searched first by INCLUDE/INCBIN
	Parameters    []string       // -DNAME=v, -MNAME=expr, -Idir or NAME=v
	Defines       map[string]int // predefined symbols
	BigEndian     bool           // byte order of DC.W and DC.L data
	FillGaps      bool           // fill gaps between chunks in the image
	FillByte      byte           // byte used to fill gaps
	MemorySize    int            // size of the address space (default 64K)
	Origin        int            // initial program counter
	Verbose       bool           // trace the assembly to Out
	Out           io.Writer      // destination of verbose and ECHO output
	Resolver      Resolver       // include file source (default DirResolver)
}

const (
	defaultMaxPasses  = 10
	defaultMemorySize = 0x10000
)

// The number of lines, counting macro and REPEAT expansions, that a single
// pass may assemble.
var maxPassLines = 1 << 20

func (o Options) withDefaults() Options {
	if o.Filename == "" {
		o.Filename = "main.asm"
	}
	if o.Format == 0 {
		o.Format = FormatDefault
	}
	if o.MaxPasses <= 0 {
		o.MaxPasses = defaultMaxPasses
	}
	if o.MemorySize <= 0 {
		o.MemorySize = defaultMemorySize
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Resolver == nil {
		o.Resolver = DirResolver{}
	}
	return o
}

// An asmerror is used to keep track of errors encountered
// during assembly.
type asmerror struct {
	line fstring // line causing the error
	msg  string  // error message
}

type frameKind byte

const (
	fileFrame frameKind = iota
	macroFrame
	repeatFrame
)

// A frame is one level of the source stack: a file, a macro expansion or
// the body of a REPEAT block.
type frame struct {
	kind      frameKind
	lines     []fstring
	pos       int      // index of the next line
	path      string   // file frames: identifying path
	dir       string   // file frames: directory of the file
	incdirs   []string // file frames: INCDIR search list
	macro     *macro   // macro frames: the macro being expanded
	scope     int      // macro frames: local scope to restore on exit
	condDepth int      // conditional nesting depth at entry
	count     int      // repeat frames: remaining iterations
}

// The state of the line being assembled.
type lineState struct {
	line   sourceLine
	site   string // identifies this occurrence of the line within a pass
	pc     int    // logical PC at the start of the line
	phys   int    // physical PC at the start of the line
	active bool   // line was assembled rather than skipped
	macro  bool   // line was generated by a macro expansion
	bytes  []byte    // bytes emitted by the line
	after  []fstring // unassembled lines listed after this one
	errors []string
}

// Control directives handled by the pass driver itself.
var directives = map[string]bool{
	"if": true, "ifconst": true, "ifnconst": true, "else": true, "endif": true, "eif": true,
	"mac": true, "macro": true, "endm": true, "mexit": true,
	"repeat": true, "repend": true,
}

// The assembler is a state object used during the assembly of
// machine code from assembly code. Symbols, macros, IF latches and
// include file contents persist across passes; everything else is reset
// at the start of each pass.
type assembler struct {
	opts      Options
	resolver  Resolver
	symbols   *symbolTable
	macros    map[string]*macro
	latches   map[string]bool     // IF site -> branch taken
	guesses   map[string]int      // operand site -> operand size
	fileCache map[string][]byte   // include path -> contents
	rootLines []fstring           // lines of the main source file
	arch      cpu.Architecture    // requested architecture
	instSet   *cpu.InstructionSet // instructions on current arch

	pass        int
	final       bool
	frames      []*frame
	conds       condStack
	segs        map[string]*segment
	seg         *segment
	scope       int    // current local label scope
	nextScope   int    // last local label scope allocated
	global      string // most recent global label
	siteCount   map[string]int
	unresolved  bool // an expression referenced an unknown value
	pcTentative bool // an address or size was chosen from a guess
	quiet       bool // suppress unresolved tracking during evaluation
	ended       bool // END directive reached
	listOn      bool
	layout      []int
	prevLayout  []int
	files       []string
	cur         *lineState
	exprParser  exprParser

	mem         []byte
	written     []bool
	listing     []ListingLine
	sourceLines []SourceLine
	diags       []Diagnostic // diagnostics of the current pass
	sticky      []Diagnostic // diagnostics that survive every pass
	runErrors   []Diagnostic
	fatal       *Diagnostic

	out     io.Writer // output used for verbose output
	verbose bool      // verbose output
}

// Assemble assembles the source code and returns the result. Errors are
// reported in the result's diagnostics.
func Assemble(source string, opts Options) *Result {
	opts = opts.withDefaults()
	a := newAssembler(source, opts)
	a.run()
	return a.result()
}

// AssembleFile reads a source file through the options' resolver and
// assembles it. An error is returned only if the file cannot be read.
func AssembleFile(filename string, opts Options) (*Result, error) {
	opts.Filename = filename
	opts = opts.withDefaults()
	b, err := opts.Resolver.Resolve(path.Base(filepath.ToSlash(filename)), path.Dir(filepath.ToSlash(filename)), false)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", filename, err)
	}
	return Assemble(string(b), opts), nil
}

func newAssembler(source string, opts Options) *assembler {
	a := &assembler{
		opts:      opts,
		resolver:  opts.Resolver,
		symbols:   newSymbolTable(),
		macros:    make(map[string]*macro),
		latches:   make(map[string]bool),
		guesses:   make(map[string]int),
		fileCache: make(map[string][]byte),
		out:       opts.Out,
		verbose:   opts.Verbose,
	}
	a.rootLines = splitLines(0, []byte(source))

	for name, v := range opts.Defines {
		a.symbols.definePseudo(name, v)
	}
	for _, p := range opts.Parameters {
		a.parseParameter(p)
	}
	return a
}

// Handle a command-line style parameter.
func (a *assembler) parseParameter(p string) {
	switch {
	case strings.HasPrefix(p, "-I"):
		dir := strings.TrimSpace(p[2:])
		if a.opts.IncludeDir == "" {
			a.opts.IncludeDir = dir
		}
		return
	case strings.HasPrefix(p, "-D"), strings.HasPrefix(p, "-M"):
		p = p[2:]
	}

	name, expr, hasValue := strings.Cut(p, "=")
	name = strings.TrimSpace(name)
	if name == "" || !identifierStartChar(name[0]) {
		a.runError("invalid parameter '%s'", p)
		return
	}
	n := 0
	if hasValue {
		var err error
		n, err = Evaluate(expr, 0, a.symbols.values())
		if err != nil {
			a.runError("invalid parameter '%s': %v", p, err)
			return
		}
	}
	a.symbols.definePseudo(name, n)
}

// Split file contents into numbered lines.
func splitLines(fileIndex int, b []byte) []fstring {
	text := strings.ReplaceAll(string(b), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	rows := strings.Split(text, "\n")
	lines := make([]fstring, len(rows))
	for i, r := range rows {
		lines[i] = newFstring(fileIndex, i+1, strings.TrimRight(r, "\r"))
	}
	return lines
}

// Run passes until the symbol values and layout reach a fixed point, then
// run the final pass that produces the output.
func (a *assembler) run() {
	converged, stuck := false, false
	for a.pass = 1; a.pass <= a.opts.MaxPasses; a.pass++ {
		glog.V(1).Infof("Beginning pass %d of '%s'", a.pass, a.opts.Filename)
		a.runPass(false)
		if a.fatal != nil {
			return
		}

		sameLayout := a.pass > 1 && slices.Equal(a.layout, a.prevLayout)
		if !a.unresolved && !a.symbols.changed && (a.pass == 1 || sameLayout) {
			converged = true
			break
		}
		if a.unresolved && !a.symbols.changed && sameLayout {
			stuck = true
			break
		}
		a.prevLayout = a.layout
	}

	switch {
	case converged:
		glog.V(2).Infof("Converged after %d passes", a.pass)
		a.log("Converged after %d passes", a.pass)
	case stuck:
		glog.V(2).Infof("Unresolved symbols remain after %d passes", a.pass)
		a.log("Unresolved symbols remain after %d passes", a.pass)
	default:
		a.pass = a.opts.MaxPasses
		a.runError("could not resolve all symbols after %d passes", a.opts.MaxPasses)
	}

	a.symbols.settle()
	a.pass++
	glog.V(1).Infof("Beginning final pass %d of '%s'", a.pass, a.opts.Filename)
	a.runPass(true)
}

// Reset the per-pass state.
func (a *assembler) beginPass(final bool) {
	a.final = final
	a.symbols.beginPass(a.pass)
	a.arch = cpu.NMOS
	a.instSet = cpu.GetInstructionSet(cpu.NMOS)
	a.frames = nil
	a.conds = nil
	a.segs = map[string]*segment{"": newSegment("", a.opts.Origin)}
	a.seg = a.segs[""]
	a.scope, a.nextScope = 0, 0
	a.global = ""
	a.siteCount = make(map[string]int)
	a.unresolved = false
	a.pcTentative = false
	a.ended = false
	a.listOn = true
	a.layout = nil
	a.files = nil
	a.cur = nil
	a.diags = nil
	a.listing = nil
	a.sourceLines = nil
	if final {
		a.mem = make([]byte, a.opts.MemorySize)
		a.written = make([]bool, a.opts.MemorySize)
	}
}

// Run a single pass over the program.
func (a *assembler) runPass(final bool) {
	a.beginPass(final)
	if final {
		a.logSection("Final pass")
	} else {
		a.logSection(fmt.Sprintf("Pass %d", a.pass))
	}

	var incdirs []string
	if a.opts.IncludeDir != "" {
		incdirs = []string{a.opts.IncludeDir}
	}
	a.files = append(a.files, a.opts.Filename)
	a.frames = append(a.frames, &frame{
		kind:    fileFrame,
		lines:   a.rootLines,
		path:    joinPath("", a.opts.Filename),
		dir:     dirOf(a.opts.Filename),
		incdirs: incdirs,
	})

	for n := 1; a.fatal == nil && !a.ended; n++ {
		raw, f, ok := a.nextLine()
		if !ok {
			break
		}
		if n > maxPassLines {
			a.fatalError(raw, "more than %d lines assembled in one pass", maxPassLines)
			break
		}
		a.assembleLine(raw, f)
	}

	for _, c := range a.conds {
		a.addError(c.site, "unterminated IF")
	}
}

func dirOf(filename string) string {
	dir := path.Dir(filepath.ToSlash(filename))
	if dir == "." {
		return ""
	}
	return dir
}

// Return the next line from the source stack.
func (a *assembler) nextLine() (fstring, *frame, bool) {
	for len(a.frames) > 0 {
		f := a.frames[len(a.frames)-1]
		if f.pos < len(f.lines) {
			l := f.lines[f.pos]
			f.pos++
			return l, f, true
		}
		if f.kind == repeatFrame && f.count > 1 && !a.seg.overflow {
			f.count--
			f.pos = 0
			continue
		}
		a.popFrame()
	}
	return fstring{}, nil, false
}

// Remove the top frame from the source stack.
func (a *assembler) popFrame() {
	f := a.frames[len(a.frames)-1]
	a.frames = a.frames[:len(a.frames)-1]
	if f.kind == macroFrame {
		a.scope = f.scope
		if len(a.conds) > f.condDepth {
			a.addError(f.macro.site, "unterminated IF in macro '%s'", f.macro.name)
			a.conds = a.conds[:f.condDepth]
		}
	}
}

// Return the innermost file frame.
func (a *assembler) fileFrame() *frame {
	for i := len(a.frames) - 1; i >= 0; i-- {
		if a.frames[i].kind == fileFrame {
			return a.frames[i]
		}
	}
	return nil
}

// Push a file onto the source stack.
func (a *assembler) pushFile(p string, b []byte, parent *frame) {
	fileIndex := len(a.files)
	a.files = append(a.files, p)
	a.frames = append(a.frames, &frame{
		kind:      fileFrame,
		lines:     splitLines(fileIndex, b),
		path:      p,
		dir:       dirOf(p),
		incdirs:   slices.Clone(parent.incdirs),
		condDepth: len(a.conds),
	})
}

// Return true if the word is a mnemonic, pseudo-op, directive or macro.
func (a *assembler) isKeyword(name string) bool {
	name = strings.ToLower(name)
	if _, ok := pseudoOps[name]; ok {
		return true
	}
	if _, ok := a.macros[name]; ok {
		return true
	}
	return directives[name] || cpu.IsMnemonic(name)
}

// Assemble a single line of source code.
func (a *assembler) assembleLine(raw fstring, f *frame) {
	ln, lexErr := tokenize(raw, a.isKeyword)

	key := fmt.Sprintf("%d:%d", raw.fileIndex, raw.row)
	a.cur = &lineState{
		line:  ln,
		site:  fmt.Sprintf("%s:%d", key, a.siteCount[key]),
		pc:    a.seg.pc,
		phys:  a.seg.phys,
		macro: f.kind != fileFrame,
	}
	a.siteCount[key]++
	defer a.endLine()

	op := ln.op()
	if !a.conds.active() {
		if isConditional(op) {
			a.conditional(&ln)
		}
		return
	}

	a.cur.active = true
	a.layout = append(a.layout, a.seg.pc, a.seg.phys)
	if lexErr != nil {
		a.addError(raw, "%v", lexErr)
	}

	switch {
	case ln.isEmpty():
		return
	case isConditional(op):
		a.conditional(&ln)
		return
	}

	switch op {
	case "mac", "macro":
		a.defineMacro(&ln, f)
		return
	case "endm":
		a.addError(ln.mnemonic, "ENDM without MAC")
		return
	case "repeat":
		a.defineLabel(ln.label)
		a.beginRepeat(&ln, f)
		return
	case "repend":
		a.addError(ln.mnemonic, "REPEND without REPEAT")
		return
	case "mexit":
		a.exitMacro(&ln)
		return
	}

	if lexErr != nil {
		a.defineLabel(ln.label)
		return
	}

	if m, ok := a.macros[op]; ok {
		a.defineLabel(ln.label)
		a.logLine(ln.raw, "expand=%s", m.name)
		a.expandMacro(&ln, m)
		return
	}

	if p, ok := pseudoOps[op]; ok {
		if p.label == labelBefore {
			a.defineLabel(ln.label)
		}
		err := p.fn(a, &ln, p.param)
		if err != nil && err != errParse {
			a.addError(ln.operand, "%v", err)
		}
		if p.label == labelAfter {
			a.defineLabel(ln.label)
		}
		return
	}

	a.defineLabel(ln.label)
	if ln.mnemonic.isEmpty() {
		return
	}

	insts := a.instSet.GetInstructions(op)
	if len(insts) == 0 {
		a.addError(ln.mnemonic, "invalid opcode '%s'", ln.mnemonic.str)
		return
	}
	a.assembleInstruction(&ln, insts)
}

// Finish the current line, recording it in the listing and source map.
func (a *assembler) endLine() {
	c := a.cur
	if c == nil || !a.final {
		return
	}

	if c.active && len(c.bytes) > 0 {
		a.sourceLines = append(a.sourceLines, SourceLine{
			Address:   c.pc,
			FileIndex: c.line.raw.fileIndex,
			Line:      c.line.raw.row,
		})
		a.logLine(c.line.raw, "%04X %s", c.pc, byteString(c.bytes))
	}

	if a.opts.Listing && (a.listOn || len(c.errors) > 0) {
		l := ListingLine{
			File:           a.fileName(c.line.raw.fileIndex),
			Line:           c.line.raw.row,
			Address:        -1,
			Source:         c.line.raw.full,
			MacroGenerated: c.macro,
			Skipped:        !c.active,
		}
		if c.active && !c.line.isEmpty() {
			l.Address = c.pc
		}
		if len(c.bytes) > 0 {
			l.Bytes = slices.Clone(c.bytes)
		}
		if len(c.errors) > 0 {
			l.Error = strings.Join(c.errors, "; ")
		}
		a.listing = append(a.listing, l)
	}
	a.cur = nil
	a.listSkipped(c.after)
}

// Add lines that are not assembled, such as macro definitions, to the
// listing.
func (a *assembler) listSkipped(lines []fstring) {
	if !a.final || !a.opts.Listing || !a.listOn {
		return
	}
	if a.cur != nil {
		a.cur.after = append(a.cur.after, lines...)
		return
	}
	for _, l := range lines {
		a.listing = append(a.listing, ListingLine{
			File:    a.fileName(l.fileIndex),
			Line:    l.row,
			Address: -1,
			Source:  l.full,
			Skipped: true,
		})
	}
}

func (a *assembler) fileName(fileIndex int) string {
	if fileIndex < len(a.files) {
		return a.files[fileIndex]
	}
	return a.opts.Filename
}

// Return the symbol table name of a label or identifier. Local labels
// beginning with '.' belong to the current SUBROUTINE or macro scope.
// Temporary labels of the form "1$" belong to the most recent global
// label.
func (a *assembler) scopeName(name string) string {
	switch {
	case strings.HasPrefix(name, "."):
		return fmt.Sprintf("%d%s", a.scope, name)
	case strings.HasSuffix(name, "$") && decimal(name[0]):
		return a.global + name
	default:
		return name
	}
}

func isLocal(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "$")
}

// Define an address label at the current program counter.
func (a *assembler) defineLabel(label fstring) {
	if label.isEmpty() {
		return
	}
	if !validLabel(label.str) {
		a.addError(label, "invalid label '%s'", label.str)
		return
	}

	v := value{n: a.seg.pc, resolved: true, tentative: a.pcTentative}
	a.defineSymbol(label, v, KindLabel)
	if !isLocal(label.str) {
		a.global = label.str
	}
}

func validLabel(s string) bool {
	if s == "" {
		return false
	}
	if decimal(s[0]) {
		return strings.TrimLeft(s, "0123456789") == "$"
	}
	if !identifierStartChar(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !identifierChar(s[i]) {
			return false
		}
	}
	return true
}

// Define a symbol and report any conflict with an earlier definition.
func (a *assembler) defineSymbol(label fstring, v value, kind SymbolKind) {
	name := a.scopeName(label.str)
	err := a.symbols.define(name, v, kind, label)
	switch err {
	case nil:
		a.logLine(label, "%s=$%X", name, v.n)
	case errRedefined:
		a.addError(label, "symbol '%s' redefined with a different value", label.str)
	case errMismatch:
		a.addStickyError(label, "value mismatch from previous pass for '%s'", label.str)
	}
}

// Parse an expression, reporting any syntax errors.
func (a *assembler) parseExpr(line fstring) (*expr, error) {
	e, err := a.exprParser.parse(line, a.scopeName)
	if err != nil {
		a.addExprErrors()
		if len(a.exprParser.errors) == 0 {
			a.addError(line, "invalid expression")
		}
		return nil, errParse
	}
	return e, nil
}

// Parse and evaluate an expression.
func (a *assembler) evaluateOperand(line fstring) (value, error) {
	e, err := a.parseExpr(line)
	if err != nil {
		return value{}, err
	}
	return a.evaluate(e, line)
}

// Evaluate an expression tree, reporting any evaluation error.
func (a *assembler) evaluate(e *expr, line fstring) (value, error) {
	v, err := e.eval(a)
	if err != nil {
		a.addError(line, "%v", err)
		return value{}, errParse
	}
	return v, nil
}

// Return the value of an identifier. Implements evalContext.
func (a *assembler) symbolValue(e *expr) (value, error) {
	v, found := a.symbols.lookup(e.symbol)
	if a.quiet {
		return v, nil
	}
	if !v.resolved {
		a.unresolved = true
		if a.final && !found {
			return v, fmt.Errorf("undefined symbol '%s'", e.identifier.str)
		}
	}
	return v, nil
}

// Return the current program counter. Implements evalContext.
func (a *assembler) here() value {
	if a.cur != nil {
		return value{n: a.cur.pc, resolved: true, tentative: a.pcTentative}
	}
	return value{n: a.seg.pc, resolved: true, tentative: a.pcTentative}
}

// Note that an address was chosen based on a value that may change.
func (a *assembler) markTentative(v value) {
	if !v.resolved || v.tentative {
		a.pcTentative = true
	}
}

func (a *assembler) diagnostic(l fstring, sev Severity, msg string) Diagnostic {
	return Diagnostic{
		File:     a.fileName(l.fileIndex),
		Line:     l.row,
		Column:   l.column + 1,
		Severity: sev,
		Message:  msg,
	}
}

// Append an error message to the assembler's error state.
func (a *assembler) addError(l fstring, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.diags = append(a.diags, a.diagnostic(l, SeverityError, msg))
	if a.cur != nil && a.final {
		a.cur.errors = append(a.cur.errors, msg)
	}
	if a.verbose && a.final {
		fmt.Fprintf(a.out, "Syntax error in '%s' line %d, col %d: %s\n", a.fileName(l.fileIndex), l.row, l.column+1, msg)
		fmt.Fprintln(a.out, l.full)
		fmt.Fprintln(a.out, strings.Repeat("-", l.column)+"^")
	}
}

// Append an error that is reported regardless of the pass in which it
// occurred.
func (a *assembler) addStickyError(l fstring, format string, args ...any) {
	d := a.diagnostic(l, SeverityError, fmt.Sprintf(format, args...))
	if !slices.Contains(a.sticky, d) {
		a.sticky = append(a.sticky, d)
	}
	if a.cur != nil && a.final {
		a.cur.errors = append(a.cur.errors, d.Message)
	}
}

// Append an informational message produced during the final pass.
func (a *assembler) addInfo(l fstring, sev Severity, msg string) {
	if a.final {
		a.diags = append(a.diags, a.diagnostic(l, sev, msg))
	}
}

// Stop assembly with an unrecoverable error.
func (a *assembler) fatalError(l fstring, format string, args ...any) {
	d := a.diagnostic(l, SeverityError, fmt.Sprintf(format, args...))
	a.fatal = &d
}

// Record an error that applies to the whole assembly.
func (a *assembler) runError(format string, args ...any) {
	a.runErrors = append(a.runErrors, Diagnostic{
		File:     a.opts.Filename,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Append the expression parser's error to the assembler's
// error state.
func (a *assembler) addExprErrors() {
	for _, e := range a.exprParser.errors {
		a.addError(e.line, "%s", e.msg)
	}
}

// In verbose mode, log a string to the output.
func (a *assembler) log(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintf(a.out, "\n")
	}
}

// In verbose mode, log a string and its associated line
// of assembly code.
func (a *assembler) logLine(line fstring, format string, args ...any) {
	if a.verbose {
		detail := fmt.Sprintf(format, args...)
		fmt.Fprintf(a.out, "%-3d %-3d | %-20s | %s\n", line.row, line.column+1, detail, line.str)
	}
}

// In verbose mode, log a section header to the output.
func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}
