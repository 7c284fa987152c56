// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements an interactive shell around the cross-assembler.
//
// Within the shell it is possible to assemble source files or code typed
// at the prompt, disassemble and dump the assembled image, map addresses
// back to source lines, inspect the symbol table, listing and diagnostics,
// and evaluate expressions using the assembled program's symbols.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/godasm/asm"
	"github.com/beevik/godasm/cpu"
	"github.com/beevik/godasm/disasm"
	"github.com/k0kubun/pp/v3"
)

var errQuit = errors.New("exiting program")

// A Host is an assembler shell. It holds the image, source map and symbol
// table of the most recent assembly or loaded binary.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	lastCmd     *cmd.Selection
	settings    *settings
	result      *asm.Result
	image       *disasm.Image
	sourceMap   *asm.SourceMap
	sources     map[string][]string
	annotations map[int]string
}

// New creates a new assembler shell.
func New() *Host {
	return &Host{
		settings:    newSettings(),
		sources:     make(map[string][]string),
		annotations: make(map[int]string),
	}
}

// RunCommands accepts shell commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	if interactive {
		h.println()
	}

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		handler, ok := c.Command.Data.(*command)
		if !ok {
			continue
		}
		err = handler.fn(h, c)
		if err != nil {
			break
		}
	}
	h.flush()
}

// AssembleFile assembles a source file and saves its binary and source
// map alongside it.
func (h *Host) AssembleFile(filename string) error {
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	opts := h.settings.options()
	cache := &sourceCache{resolver: asm.DirResolver{}, files: h.sources}
	opts.Resolver = cache
	opts.Out = h.output

	r, err := asm.AssembleFile(filename, opts)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return err
	}
	if !h.accept(r) {
		h.printf("Failed to assemble: %s\n", filepath.Base(filename))
		return r.Errors()
	}

	ext := filepath.Ext(filename)
	filePrefix := filename[0 : len(filename)-len(ext)]
	binFilename := filePrefix + ".bin"
	file, err := os.OpenFile(binFilename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		h.printf("Failed to create '%s': %v\n", filepath.Base(binFilename), err)
		return err
	}

	err = r.WriteBinary(file, asm.Format(h.settings.Format))
	file.Close()
	if err != nil {
		h.printf("Failed to save '%s': %v\n", filepath.Base(binFilename), err)
		return err
	}

	mapFilename := filePrefix + ".map"
	file, err = os.OpenFile(mapFilename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		h.printf("Failed to create '%s': %v\n", filepath.Base(mapFilename), err)
		return err
	}

	_, err = r.SourceMap.WriteTo(file)
	file.Close()
	if err != nil {
		h.printf("Failed to write '%s': %v\n", filepath.Base(mapFilename), err)
		return err
	}

	h.printf("Assembled '%s' to '%s'.\n", filepath.Base(filename), filepath.Base(binFilename))
	return nil
}

// Make an assembly result the shell's current image. Diagnostics are
// displayed. Returns false if the assembly failed.
func (h *Host) accept(r *asm.Result) bool {
	for _, d := range r.Diagnostics {
		h.println(d)
	}
	if !r.Success {
		return false
	}

	h.result = r
	h.sourceMap = r.SourceMap
	h.image = &disasm.Image{Origin: r.Origin, Bytes: r.Binary, Arch: r.Arch}
	h.annotations = make(map[int]string)
	h.settings.NextDisasmAddr = uint16(r.Origin)
	h.settings.NextMemDumpAddr = uint16(r.Origin)
	h.settings.NextSourceAddr = uint16(r.Origin)
	return true
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
		h.flush()
	}
}

func (h *Host) cmdAnnotate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	var annotation string
	if len(c.Args) >= 2 {
		annotation = strings.Join(c.Args[1:], " ")
	}

	if annotation == "" {
		delete(h.annotations, int(addr))
		h.printf("Annotation removed at $%04X.\n", addr)
	} else {
		h.annotations[int(addr)] = annotation
		h.printf("Annotation added at $%04X.\n", addr)
	}

	return nil
}

func (h *Host) cmdAssembleFile(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}
	h.AssembleFile(c.Args[0])
	return nil
}

const interactiveFilename = "interactive"

func (h *Host) cmdAssembleInteractive(c cmd.Selection) error {
	origin := 0
	if len(c.Args) > 0 {
		addr, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		origin = int(addr)
	}

	if h.interactive {
		h.println("Enter assembly language instructions.")
		h.println("Type a period on a line by itself to assemble.")
	}

	var lines []string
	for {
		if h.interactive {
			h.printf("%04X- ", origin)
		}
		line, err := h.getLine()
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}

	opts := h.settings.options()
	opts.Filename = interactiveFilename
	opts.Origin = origin
	opts.Out = h.output
	opts.Resolver = &sourceCache{resolver: asm.DirResolver{}, files: h.sources}

	r := asm.Assemble(strings.Join(lines, "\n"), opts)
	if !h.accept(r) {
		h.println("Failed to assemble.")
		return nil
	}
	h.sources[interactiveFilename] = lines

	if len(r.Binary) > 0 {
		h.printf("Assembled %d bytes to $%04X..$%04X.\n", len(r.Binary), r.Origin, r.Origin+len(r.Binary)-1)
	} else {
		h.println("Assembled 0 bytes.")
	}
	return nil
}

func (h *Host) cmdDiagnostics(c cmd.Selection) error {
	if h.result == nil || len(h.result.Diagnostics) == 0 {
		h.println("No diagnostics.")
		return nil
	}
	for _, d := range h.result.Diagnostics {
		h.println(d)
	}
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	if h.image == nil {
		h.println("No image loaded.")
		return nil
	}
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextDisasmAddr
	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines; i++ {
		d, next := h.disassemble(addr)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdDump(c cmd.Selection) error {
	if h.result == nil {
		h.println("Nothing assembled.")
		return nil
	}

	item := "result"
	if len(c.Args) > 0 {
		item = strings.ToLower(c.Args[0])
	}

	var v any
	switch item {
	case "result":
		v = struct {
			Origin  int
			Size    int
			Arch    string
			Passes  int
			Success bool
		}{h.result.Origin, len(h.result.Binary), h.result.Arch.String(), h.result.Passes, h.result.Success}
	case "symbols":
		v = h.result.Symbols
	case "sourcemap":
		v = h.sourceMap
	case "diagnostics":
		v = h.result.Diagnostics
	default:
		h.printf("Unknown item '%s'.\n", item)
		return nil
	}

	printer := pp.New()
	printer.SetColoringEnabled(h.interactive)
	h.println(printer.Sprint(v))
	return nil
}

func (h *Host) cmdEval(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	expr := strings.Join(c.Args, " ")
	v, err := h.parseExpr(expr)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("$%04X\n", v)
	return nil
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands()
		return nil
	}

	s, err := cmds.Lookup(strings.Join(c.Args, " "))
	if err != nil || s.Command == nil {
		h.displayGroup(c.Args[0])
		return nil
	}
	hc, ok := s.Command.Data.(*command)
	if !ok {
		h.displayGroup(c.Args[0])
		return nil
	}

	if hc.usage != "" {
		h.printf("Syntax: %s\n\n", hc.usage)
	}
	switch {
	case hc.description != "":
		h.printf("Description:\n%s\n\n", indentWrap(3, hc.description))
	case hc.brief != "":
		h.printf("Description:\n%s.\n\n", indentWrap(3, hc.brief))
	}
	return nil
}

func (h *Host) cmdList(c cmd.Selection) error {
	if h.sourceMap == nil {
		h.println("No source map loaded.")
		return nil
	}
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextSourceAddr
	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	count := h.settings.SourceLines
	if len(c.Args) > 1 {
		n, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		count = int(n)
	}

	filename, line := h.sourceMap.Search(int(addr))
	if line < 0 {
		h.printf("No source line at $%04X.\n", addr)
		return nil
	}

	lines := h.sourceLines(filename)
	if lines == nil {
		h.printf("Source file '%s' is not available.\n", filename)
		return nil
	}

	next := -1
	for i := line; i < line+count && i <= len(lines); i++ {
		col := "     "
		if a := h.sourceMap.Find(filename, i); a >= 0 {
			col = fmt.Sprintf("%04X-", a)
			next = a
		}
		h.printf("%s %5d  %s\n", col, i, lines[i-1])
	}

	if next >= 0 && h.image != nil {
		_, after := h.disassemble(uint16(next))
		h.settings.NextSourceAddr = after
	}
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", count)}
	return nil
}

func (h *Host) cmdListing(c cmd.Selection) error {
	if h.result == nil {
		h.println("Nothing assembled.")
		return nil
	}
	h.result.WriteListing(h.output)
	h.flush()
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".bin"
	}

	loadAddr := -1
	if len(c.Args) >= 2 {
		addr, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		loadAddr = int(addr)
	}

	h.load(filename, loadAddr)
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	if h.image == nil {
		h.println("No image loaded.")
		return nil
	}
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextMemDumpAddr
	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	bytes := uint16(h.settings.MemDumpBytes)
	if len(c.Args) >= 2 {
		var err error
		bytes, err = h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
	}

	h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = addr + bytes
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", bytes)}
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayUsage(c)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("Setting '%s' not found", key)
		case reflect.String:
			err = h.settings.Set(key, value)
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		default:
			var v int
			v, err = asm.Evaluate(value, 0, h.symbolMap())
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			h.println("Setting updated.")
		} else {
			h.printf("%v\n", err)
		}
	}

	return nil
}

func (h *Host) cmdSymbols(c cmd.Selection) error {
	if h.result == nil {
		h.println("Nothing assembled.")
		return nil
	}
	h.result.WriteSymbols(h.output)
	h.flush()
	return nil
}

// Load a binary file and its source map, if any, as the current image.
func (h *Host) load(filename string, addr int) {
	b, err := os.ReadFile(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return
	}

	origin := addr
	if origin < 0 {
		if len(b) < 2 {
			h.printf("File '%s' has no origin header and requires an address\n", filepath.Base(filename))
			return
		}
		origin, b = int(b[0])|int(b[1])<<8, b[2:]
	}

	arch := cpu.NMOS
	if h.settings.CMOS {
		arch = cpu.CMOS
	}
	h.result = nil
	h.sourceMap = nil
	h.image = &disasm.Image{Origin: origin, Bytes: b, Arch: arch}
	h.annotations = make(map[int]string)
	h.settings.NextDisasmAddr = uint16(origin)
	h.settings.NextMemDumpAddr = uint16(origin)
	h.settings.NextSourceAddr = uint16(origin)
	h.printf("Loaded '%s' to $%04X..$%04X\n", filepath.Base(filename), origin, origin+len(b)-1)

	ext := filepath.Ext(filename)
	mapFilename := filename[:len(filename)-len(ext)] + ".map"
	file, err := os.Open(mapFilename)
	if err != nil {
		return
	}
	defer file.Close()

	sm := &asm.SourceMap{}
	if _, err := sm.ReadFrom(file); err != nil {
		h.printf("Failed to read '%s': %v\n", filepath.Base(mapFilename), err)
		return
	}
	h.sourceMap = sm
	h.printf("Loaded '%s' source map\n", filepath.Base(mapFilename))
}

// Return the symbols of the current assembly as a name to value map.
func (h *Host) symbolMap() map[string]int {
	m := make(map[string]int)
	if h.result == nil {
		return m
	}
	for _, s := range h.result.Symbols {
		if s.Resolved {
			m[s.Name] = s.Value
		}
	}
	return m
}

func (h *Host) parseExpr(expr string) (uint16, error) {
	pc := int(h.settings.NextDisasmAddr)
	v, err := asm.Evaluate(expr, pc, h.symbolMap())
	if err != nil {
		return 0, err
	}

	if v < 0 {
		v = 0x10000 + v
	}
	return uint16(v), nil
}

func (h *Host) disassemble(addr uint16) (str string, next uint16) {
	line, n := h.image.Disassemble(int(addr))
	str = fmt.Sprintf("%04X-   %-8s    %-15s", addr, codeString(line.Bytes), line.Text)
	if anno, ok := h.annotations[int(addr)]; ok {
		str += " ; " + anno
	}
	return str, uint16(n)
}

// Return the byte of the current image at an address, or zero if the
// address lies outside the image.
func (h *Host) loadByte(addr uint16) byte {
	off := int(addr) - h.image.Origin
	if off < 0 || off >= len(h.image.Bytes) {
		return 0
	}
	return h.image.Bytes[off]
}

func (h *Host) dumpMemory(addr0, bytes uint16) {
	if bytes == 0 {
		return
	}

	addr1 := addr0 + bytes - 1
	if addr1 < addr0 {
		addr1 = 0xffff
	}

	buf := []byte("    -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-addr0 < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := addr0, 6, 32; a <= addr1; a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.loadByte(a)
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(string(buf))
		return
	}

	// Align addr0 and addr1 to 8-byte boundaries.
	start := uint32(addr0) & 0xfff8
	stop := (uint32(addr1) + 8) & 0xffff8
	if stop > 0x10000 {
		stop = 0x10000
	}

	a := uint16(start)
	for r := start; r < stop; r += 8 {
		addrToBuf(a, buf[0:4])
		for c1, c2 := 6, 32; c1 < 29; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= addr0 && a <= addr1 {
				m := h.loadByte(a)
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(string(buf))
	}
}

// Return the lines of a source file named by the source map.
func (h *Host) sourceLines(filename string) []string {
	if lines, ok := h.sources[filename]; ok {
		return lines
	}
	key := path.Clean(filepath.ToSlash(filename))
	if lines, ok := h.sources[key]; ok {
		return lines
	}

	b, err := os.ReadFile(filepath.FromSlash(key))
	if err != nil {
		return nil
	}
	lines := splitLines(b)
	h.sources[key] = lines
	return lines
}

func (h *Host) displayUsage(c cmd.Selection) {
	if hc, ok := c.Command.Data.(*command); ok && hc.usage != "" {
		h.printf("Syntax: %s\n", hc.usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayCommands() {
	h.println("godasm commands:")
	for _, c := range commands {
		if c.brief != "" {
			h.printf("    %-24s  %s\n", c.path, c.brief)
		}
	}
}

// Display the commands of a command group such as "assemble".
func (h *Host) displayGroup(group string) {
	found := false
	for _, c := range commands {
		if strings.HasPrefix(c.path, strings.ToLower(group)+" ") {
			if !found {
				h.printf("%s commands:\n", group)
				found = true
			}
			h.printf("    %-24s  %s\n", c.path, c.brief)
		}
	}
	if !found {
		h.println("Command not found.")
	}
}

// A sourceCache records the text of the files read during an assembly so
// that the list command can display them.
type sourceCache struct {
	resolver asm.Resolver
	files    map[string][]string
}

func (s *sourceCache) Resolve(name, baseDir string, binary bool) ([]byte, error) {
	b, err := s.resolver.Resolve(name, baseDir, binary)
	if err == nil && !binary {
		key := path.Join(filepath.ToSlash(baseDir), filepath.ToSlash(name))
		if path.IsAbs(filepath.ToSlash(name)) {
			key = path.Clean(filepath.ToSlash(name))
		}
		s.files[key] = splitLines(b)
	}
	return b, err
}
