package disasm

import (
	"strings"
	"testing"

	"github.com/beevik/godasm/asm"
	"github.com/beevik/godasm/cpu"
)

func TestRoundTrip(t *testing.T) {
	source := strings.Join([]string{
		"\tORG $1000",
		"START\tLDA #$01",
		"\tSTA $20",
		"\tSTA $1234,X",
		"\tJMP ($2000)",
		"\tLDA ($10),Y",
		"\tLDA ($10,X)",
		"\tASL A",
		"\tBNE START",
		"\tNOP",
		"\tDC.B $FF",
	}, "\n")

	r := asm.Assemble(source, asm.Options{})
	if err := r.Errors(); err != nil {
		t.Fatalf("assembly failed: %v", err)
	}

	img := &Image{Origin: r.Origin, Bytes: r.Binary, Arch: cpu.NMOS}
	exp := []string{
		"LDA #$01",
		"STA $20",
		"STA $1234,X",
		"JMP ($2000)",
		"LDA ($10),Y",
		"LDA ($10,X)",
		"ASL",
		"BNE $1000",
		"NOP",
		".byte $FF",
	}

	lines := img.Lines()
	if len(lines) != len(exp) {
		t.Fatalf("got %d lines, exp %d", len(lines), len(exp))
	}
	for i, l := range lines {
		if l.Text != exp[i] {
			t.Errorf("line %d: got '%s', exp '%s'", i, l.Text, exp[i])
		}
	}
	if lines[7].Address != 0x100f || lines[7].Bytes[1] != 0xef {
		t.Errorf("unexpected branch encoding: %s", lines[7])
	}
	if lines[9].Valid {
		t.Error("truncated instruction reported as valid")
	}
}

func TestArchitecture(t *testing.T) {
	img := &Image{Origin: 0x2000, Bytes: []byte{0x80, 0xfe}, Arch: cpu.CMOS}
	l, next := img.Disassemble(0x2000)
	if l.Text != "BRA $2000" || next != 0x2002 {
		t.Errorf("got '%s' next %04X", l.Text, next)
	}

	img = &Image{Origin: 0x2000, Bytes: []byte{0x1a}, Arch: cpu.CMOS}
	if l, _ := img.Disassemble(0x2000); l.Text != "INC" {
		t.Errorf("got '%s', exp 'INC'", l.Text)
	}
}

func TestOutOfRange(t *testing.T) {
	img := &Image{Origin: 0x1000, Bytes: []byte{0xea}}
	l, next := img.Disassemble(0x0fff)
	if l.Valid || next != 0x1000 {
		t.Errorf("unexpected line %v", l)
	}
}

func TestLineString(t *testing.T) {
	l := Line{Address: 0x1000, Bytes: []byte{0xa9, 0x01}, Text: "LDA #$01"}
	exp := "1000-   A9 01       LDA #$01"
	if l.String() != exp {
		t.Errorf("got '%s', exp '%s'", l.String(), exp)
	}
}
