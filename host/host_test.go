package host

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runScript(h *Host, lines ...string) string {
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, false)
	return out.String()
}

func checkOutput(t *testing.T, out string, expected ...string) {
	t.Helper()
	for _, e := range expected {
		if !strings.Contains(out, e) {
			t.Errorf("output missing %q\noutput:\n%s", e, out)
		}
	}
}

func TestInteractiveAssembly(t *testing.T) {
	h := New()
	out := runScript(h,
		"assemble interactive $1000",
		"START\tLDA #$01",
		"\tSTA $20",
		"\tJMP START",
		".",
		"disassemble $1000 3",
		"evaluate START+1",
		"list $1000 3",
		"memory dump $1000 8",
		"show symbols",
		"quit",
		"evaluate 1",
	)

	checkOutput(t, out,
		"Assembled 7 bytes to $1000..$1006.",
		"1000-   A9 01       LDA #$01",
		"1002-   85 20       STA $20",
		"1004-   4C 00 10    JMP $1000",
		"$1001",
		"1000-     1  START\tLDA #$01",
		"1004-     3  \tJMP START",
		"1000- A9 01 85 20 4C 00 10 00",
		"--- Symbol List",
		"START",
	)
	if strings.Contains(out, "$0001") {
		t.Error("command executed after quit")
	}
}

func TestAssemblyFailure(t *testing.T) {
	h := New()
	out := runScript(h,
		"assemble interactive",
		"\tLDA #$100",
		".",
		"disassemble",
	)
	checkOutput(t, out, "value out of range", "Failed to assemble.", "No image loaded.")
}

func TestAnnotate(t *testing.T) {
	h := New()
	out := runScript(h,
		"assemble interactive $2000",
		"\tNOP",
		".",
		"annotate $2000 entry point",
		"disassemble $2000 1",
	)
	checkOutput(t, out, "Annotation added at $2000.", "; entry point")
}

func TestSettings(t *testing.T) {
	h := New()
	out := runScript(h,
		"set maxpasses 5",
		"set sortby true",
		"set includedir inc",
		"set format 7",
		"set bogus 1",
		"set",
	)
	checkOutput(t, out, "Setting updated.", "format must be 1, 2 or 3", "Setting 'bogus' not found", "Variables:")

	if h.settings.MaxPasses != 5 || !h.settings.SortByAddress || h.settings.IncludeDir != "inc" {
		t.Errorf("settings not applied: %+v", *h.settings)
	}
	if h.settings.Format != 1 {
		t.Errorf("invalid format accepted: %d", h.settings.Format)
	}
	opts := h.settings.options()
	if opts.MaxPasses != 5 || !opts.SortByAddress || !opts.Symbols || !opts.FillGaps {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestAssembleFileAndLoad(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.asm")
	os.WriteFile(src, []byte("\tORG $2000\n\tINCLUDE \"inc.h\"\nLOOP\tJMP LOOP\n"), 0600)
	os.WriteFile(filepath.Join(dir, "inc.h"), []byte("VALUE = 7\n\tLDA #VALUE\n"), 0600)

	h := New()
	out := runScript(h, "assemble file "+src)
	checkOutput(t, out, "Assembled 'prog.asm' to 'prog.bin'.")

	bin, err := os.ReadFile(filepath.Join(dir, "prog.bin"))
	if err != nil {
		t.Fatalf("binary not written: %v", err)
	}
	if !bytes.Equal(bin, []byte{0x00, 0x20, 0xa9, 0x07, 0x4c, 0x02, 0x20}) {
		t.Errorf("unexpected binary % x", bin)
	}

	out = runScript(h,
		"load "+filepath.Join(dir, "prog.bin"),
		"list $2002 1",
		"disassemble $2000 2",
	)
	checkOutput(t, out,
		"Loaded 'prog.bin' to $2000..$2004",
		"Loaded 'prog.map' source map",
		"2002-     3  LOOP\tJMP LOOP",
		"2000-   A9 07       LDA #$07",
	)
}

func TestHelp(t *testing.T) {
	h := New()
	out := runScript(h, "help", "help evaluate", "help assemble")
	checkOutput(t, out,
		"godasm commands:",
		"assemble interactive",
		"Syntax: evaluate <expression>",
		"assemble commands:",
	)
}

func TestIndentWrap(t *testing.T) {
	s := indentWrap(2, strings.Repeat("word ", 40))
	for _, l := range strings.Split(s, "\n") {
		if !strings.HasPrefix(l, "  word") || len(l) > 80 {
			t.Errorf("bad wrapped line %q", l)
		}
	}
}
