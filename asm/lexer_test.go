package asm

import (
	"strings"
	"testing"
)

func isTestKeyword(name string) bool {
	switch strings.ToLower(name) {
	case "lda", "nop", "org", "dc", "equ", "mymac":
		return true
	}
	return false
}

func TestTokenize(t *testing.T) {
	var tests = []struct {
		line     string
		label    string
		mnemonic string
		ext      string
		operand  string
		comment  string
	}{
		{"START LDA #1 ; load", "START", "LDA", "", "#1", " load"},
		{"START: LDA #1", "START", "LDA", "", "#1", ""},
		{"\tLDA.w $10", "", "LDA", "w", "$10", ""},
		{"  .loop: nop", ".loop", "nop", "", "", ""},
		{".loop nop", ".loop", "nop", "", "", ""},
		{"LABEL", "LABEL", "", "", "", ""},
		{"NOP", "", "NOP", "", "", ""},
		{"mymac 1, 2", "", "mymac", "", "1, 2", ""},
		{"\tVAL equ 3", "VAL", "equ", "", "3", ""},
		{"\tVAL = 3", "VAL", "=", "", "3", ""},
		{"VAL=3", "VAL", "=", "", "3", ""},
		{"\tDC.B \"a;b\", 'c ; text", "", "DC", "b", "\"a;b\", 'c", " text"},
		{"* full comment", "", "", "", "", " full comment"},
		{"; full comment", "", "", "", "", " full comment"},
		{"", "", "", "", "", ""},
		{"   ", "", "", "", "", ""},
		{"\t.byte 1", "", ".byte", "", "1", ""},
	}

	for _, test := range tests {
		ln, err := tokenize(newFstring(0, 1, test.line), isTestKeyword)
		if err != nil {
			t.Errorf("%q: unexpected error %v", test.line, err)
			continue
		}
		if ln.label.str != test.label || ln.mnemonic.str != test.mnemonic ||
			ln.ext != test.ext || ln.operand.str != test.operand || ln.comment != test.comment {
			t.Errorf("%q: got label=%q mnemonic=%q ext=%q operand=%q comment=%q", test.line,
				ln.label.str, ln.mnemonic.str, ln.ext, ln.operand.str, ln.comment)
		}
	}
}

func TestTokenizeUnterminated(t *testing.T) {
	ln, err := tokenize(newFstring(0, 1, "\tDC.B \"abc"), isTestKeyword)
	if err != errUnterminated {
		t.Errorf("expected unterminated string error, got %v", err)
	}
	if ln.mnemonic.str != "DC" || !ln.operand.isEmpty() {
		t.Errorf("unexpected fields %+v", ln)
	}
}

func TestTokenizeColumns(t *testing.T) {
	ln, _ := tokenize(newFstring(0, 7, "LOOP\tLDA $10"), isTestKeyword)
	if ln.mnemonic.column != 8 || ln.operand.column != 12 || ln.operand.row != 7 {
		t.Errorf("unexpected columns: mnemonic %d, operand %d", ln.mnemonic.column, ln.operand.column)
	}
}

func TestSplitUnquoted(t *testing.T) {
	fields := newFstring(0, 1, ` "a,b" , 'c, 3 ,4`).splitUnquoted(',')
	var got []string
	for _, f := range fields {
		got = append(got, f.str)
	}
	exp := []string{`"a,b"`, `'c`, `3`, `4`}
	if strings.Join(got, "|") != strings.Join(exp, "|") {
		t.Errorf("got %q, exp %q", got, exp)
	}
}
