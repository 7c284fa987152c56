package asm

import (
	"bytes"
	"strings"
	"testing"
)

func assemble(code string) *Result {
	return Assemble(code, Options{Origin: 0x1000})
}

func hexString(code []byte) string {
	b := make([]byte, len(code)*2)
	for i, j := 0, 0; i < len(code); i, j = i+1, j+2 {
		v := code[i]
		b[j+0] = hex[v>>4]
		b[j+1] = hex[v&0x0f]
	}
	return string(b)
}

func checkResult(t *testing.T, r *Result, expected string) {
	t.Helper()
	if !r.Success {
		for _, d := range r.Diagnostics {
			t.Error(d)
		}
		return
	}

	s := hexString(r.Binary)
	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	checkResult(t, assemble(asm), expected)
}

func checkResultError(t *testing.T, r *Result, errString string) {
	t.Helper()
	if r.Success {
		t.Errorf("Expected error '%s', didn't get one\n", errString)
		return
	}
	for _, d := range r.Diagnostics {
		if d.Message == errString {
			return
		}
	}
	t.Errorf("Expected '%s', got '%v'\n", errString, r.Errors())
}

func checkASMError(t *testing.T, asm string, errString string) {
	t.Helper()
	checkResultError(t, assemble(asm), errString)
}

func TestAddressingIMM(t *testing.T) {
	asm := `
	LDA #$20
	LDX #$20
	LDY #$20
	ADC #$20
	SBC #$20
	CMP #$20
	CPX #$20
	CPY #$20
	AND #$20
	ORA #$20
	EOR #$20`

	checkASM(t, asm, "A920A220A0206920E920C920E020C020292009204920")
}

func TestAddressingABS(t *testing.T) {
	asm := `
	LDA $2000
	LDX $2000
	LDY $2000
	STA $2000
	STX $2000
	STY $2000
	ADC $2000
	SBC $2000
	CMP $2000
	CPX $2000
	CPY $2000
	BIT $2000
	AND $2000
	ORA $2000
	EOR $2000
	INC $2000
	DEC $2000
	JMP $2000
	JSR $2000
	ASL $2000
	LSR $2000
	ROL $2000
	ROR $2000
	LDA A:$20
	LDA ABS:$20
	LDA.w $20`

	checkASM(t, asm, "AD0020AE0020AC00208D00208E00208C00206D0020ED0020CD0020"+
		"EC0020CC00202C00202D00200D00204D0020EE0020CE00204C00202000200E0020"+
		"4E00202E00206E0020AD2000AD2000AD2000")
}

func TestAddressingABX(t *testing.T) {
	asm := `
	LDA $2000,X
	LDY $2000,X
	STA $2000,X
	ADC $2000,X
	SBC $2000,X
	CMP $2000,X
	AND $2000,X
	ORA $2000,X
	EOR $2000,X
	INC $2000,X
	DEC $2000,X
	ASL $2000,X
	LSR $2000,X
	ROL $2000,X
	ROR $2000,X`

	checkASM(t, asm, "BD0020BC00209D00207D0020FD0020DD00203D00201D00205D0020"+
		"FE0020DE00201E00205E00203E00207E0020")
}

func TestAddressingABY(t *testing.T) {
	asm := `
	LDA $2000,Y
	LDX $2000,Y
	STA $2000,Y
	ADC $2000,Y
	SBC $2000,Y
	CMP $2000,Y
	AND $2000,Y
	ORA $2000,Y
	EOR $2000,Y`

	checkASM(t, asm, "B90020BE0020990020790020F90020D90020390020190020590020")
}

func TestAddressingZPG(t *testing.T) {
	asm := `
	LDA $20
	LDX $20
	LDY $20
	STA $20
	STX $20
	STY $20
	ADC $20
	SBC $20
	CMP $20
	CPX $20
	CPY $20
	BIT $20
	AND $20
	ORA $20
	EOR $20
	INC $20
	DEC $20
	ASL $20
	LSR $20
	ROL $20
	ROR $20`

	checkASM(t, asm, "A520A620A4208520862084206520E520C520E420C42024202520"+
		"05204520E620C6200620462026206620")
}

func TestAddressingZPIndexed(t *testing.T) {
	asm := `
	LDA $20,X
	LDY $20,X
	STY $20,X
	LDX $20,Y
	STX $20,Y
	LDA $20,Y`

	checkASM(t, asm, "B520B4209420B6209620B92000")
}

func TestAddressingIND(t *testing.T) {
	asm := `
	JMP ($20)
	JMP ($2000)
	LDA ($20,X)
	LDA ($20),Y
	STA ( $20 , x )
	LDA ($10+$10),y
	LDA ($10)+$10`

	checkASM(t, asm, "6C20006C0020A120B1208120B120A520")
}

func TestAddressingImplied(t *testing.T) {
	asm := `
	NOP
	ASL
	LSR A
	rol
	RTS`

	checkASM(t, asm, "EA0A4A2A60")
}

func TestZeroPagePreference(t *testing.T) {
	checkASM(t, "\tLDA $10", "A510")
	checkASM(t, "\tLDA $1234", "AD3412")
	checkASM(t, "\tLDA.w $10", "AD1000")
	checkASM(t, "\tLDA.b $10", "A510")
	checkASMError(t, "\tLDA.b $1234", "value out of range")
	checkASMError(t, "\tSTX.w $20,Y", "invalid addressing mode for opcode 'STX'")
}

func TestImmediateRange(t *testing.T) {
	checkASM(t, "\tLDA #-1\n\tLDA #255\n\tLDA #<$1234\n\tLDA #>$1234", "A9FFA9FFA934A912")
	checkASMError(t, "\tLDA #$100", "value out of range")
	checkASMError(t, "\tLDA #-129", "value out of range")
}

func TestInvalidInstructions(t *testing.T) {
	checkASMError(t, "\tFOO $20", "invalid opcode 'FOO'")
	checkASMError(t, "\tLDA", "invalid addressing mode for opcode 'LDA'")
	checkASMError(t, "\tJSR #$20", "invalid addressing mode for opcode 'JSR'")
	checkASMError(t, "\tLDA $20,Z", "unknown addressing mode format")
}

func TestIllegalOpcodes(t *testing.T) {
	checkASMError(t, "\tLAX $20", "illegal instruction 'LAX'")

	r := Assemble("\tLAX $20\n\tDCP $1234,X\n\tISC ($20),Y\n\tNOP #$01", Options{AllowIllegal: true})
	checkResult(t, r, "A720DF3412F3208001")
}

func TestDataBytes(t *testing.T) {
	asm := `
	.DB "AB", $00
	.DB 'f', 'f'
	.DB $ABCD >> 8
	.DB $ABCD & $FF
	.DB 1+2+3+4
	.DB -1
	.DB -128
	.DB 0b01010101
	DC %1010
	BYTE 'A`

	checkASM(t, asm, "4142006666ABCD0AFF80550A41")
	checkASMError(t, "\t.DB $ABCD", "value out of range")
	checkASMError(t, "\tDC.B -129", "value out of range")
}

func TestDataWords(t *testing.T) {
	asm := `
	.DW "AB", $00
	.DW 'f'
	.DW $ABCD
	.DW $ABCD >> 8
	.DW 1+2+3+4
	.DW -1
	.DW -129
	DC.W 0b0101010101010101
	WORD $0102`

	checkASM(t, asm, "414200006600CDABAB000A00FFFF7FFF55550201")
	checkASMError(t, "\tDC.W $10000", "value out of range")
}

func TestDataDwords(t *testing.T) {
	asm := `
	.DD $ABCD
	.DD $03040506
	DC.L -1`

	checkASM(t, asm, "CDAB000006050403FFFFFFFF")
}

func TestDataBigEndian(t *testing.T) {
	r := Assemble("\tDC.W $1234\n\tDC.L $01020304\n\tDC.B 5", Options{BigEndian: true})
	checkResult(t, r, "12340102030405")
}

func TestDataHexStrings(t *testing.T) {
	asm := `
	.DH 0102030405060708
	.DH aabbcc
	HEX dd ee
	HEX ff`

	checkASM(t, asm, "0102030405060708AABBCCDDEEFF")
	checkASMError(t, "\tHEX 123", "hex-string has odd number of characters")
	checkASMError(t, "\tHEX 12GG", "invalid hex string")
}

func TestDataTermStrings(t *testing.T) {
	asm := `
	.TSTRING "AAA"
	.TSTRING "a", 0
	.TSTRING ""`

	checkASM(t, asm, "4141C1E100")
}

func TestReserveSpace(t *testing.T) {
	checkASM(t, "\tDS 3\n\tDS 2,$EA\n\tDS.W 1,$1234", "000000EAEA3412")
	checkASMError(t, "\tDS -1", "negative DS count")
}

func TestAlign(t *testing.T) {
	asm := `
	.ALIGN 4
	.DB $ff
	.ALIGN 2
	.DB $ff
	.ALIGN 8
	.DB $ff
	.ALIGN 1
	.DB $ff
	ALIGN 4, $EA
	.DB $ff`

	checkASM(t, asm, "FF00FF0000000000FFFFEAEAFF")
}

func TestHereExpression1(t *testing.T) {
	asm := `
	.OR $0600
X	.EQ	FOO
	BIT X
FOO	.EQ $`

	checkASM(t, asm, "2C0306")
}

func TestHereExpression2(t *testing.T) {
	asm := `
	.OR $0600
X	.EQ	$ - 1
	BIT X`

	checkASM(t, asm, "2CFF05")
}

func TestHereExpression3(t *testing.T) {
	asm := `
	.OR $0600
	BIT X
X	.EQ	$ - 1`

	checkASM(t, asm, "2C0206")
}

func TestHereExpression4(t *testing.T) {
	asm := `
	ORG $0600
	JMP *
	JMP .+3
	DC.W *`

	checkASM(t, asm, "4C00064C06060606")
}

func TestOrgNopJmp(t *testing.T) {
	asm := `
	ORG $1000
START: NOP
	JMP START`

	r := Assemble(asm, Options{})
	checkResult(t, r, "EA4C0010")
	if got := hexString(r.Output); got != "0010EA4C0010" {
		t.Errorf("format 1 output: got %s, exp 0010EA4C0010", got)
	}
	if r.Origin != 0x1000 {
		t.Errorf("origin: got $%04X, exp $1000", r.Origin)
	}
}

func TestOrgFill(t *testing.T) {
	checkASM(t, "\tDC.B 1\n\tORG $1003,$EA\n\tDC.B 2", "01EAEA02")

	r := Assemble("\tORG $1000\n\tDC.B 1\n\tORG $1004\n\tDC.B 2", Options{FillGaps: true, FillByte: 0xff})
	checkResult(t, r, "01FFFFFF02")

	r = Assemble("\tORG $1000\n\tDC.B 1\n\tORG $1004\n\tDC.B 2", Options{})
	checkResult(t, r, "0102")
}

func TestOutputFormats(t *testing.T) {
	asm := "\tORG $1000\n\tDC.B 1\n\tORG $2000\n\tDC.B 2,3"

	var tests = []struct {
		format Format
		exp    string
	}{
		{FormatDefault, "0010010203"},
		{FormatRAS, "0010010001002002000203"},
		{FormatRaw, "010203"},
	}

	for _, test := range tests {
		r := Assemble(asm, Options{Format: test.format})
		checkResult(t, r, "010203")
		if got := hexString(r.Output); got != test.exp {
			t.Errorf("format %d: got %s, exp %s", test.format, got, test.exp)
		}

		var buf bytes.Buffer
		if err := r.WriteBinary(&buf, test.format); err != nil {
			t.Error(err)
		}
		if got := hexString(buf.Bytes()); got != test.exp {
			t.Errorf("format %d WriteBinary: got %s, exp %s", test.format, got, test.exp)
		}
	}
}

func TestRelocatedOrigin(t *testing.T) {
	asm := `
	ORG $1000
	RORG $F000
START	JMP START
	REND
	NOP
AFTER	NOP`

	r := Assemble(asm, Options{Symbols: true})
	checkResult(t, r, "4C00F0EAEA")
	if r.Origin != 0x1000 {
		t.Errorf("origin: got $%04X, exp $1000", r.Origin)
	}

	syms := make(map[string]int)
	for _, s := range r.Symbols {
		syms[s.Name] = s.Value
	}
	if syms["START"] != 0xf000 {
		t.Errorf("START: got $%04X, exp $F000", syms["START"])
	}
	if syms["AFTER"] != 0x1004 {
		t.Errorf("AFTER: got $%04X, exp $1004", syms["AFTER"])
	}

	checkASMError(t, "\tREND", "REND without RORG")
}

func TestSegments(t *testing.T) {
	asm := `
	SEG.U VARS
	ORG $80
PTR	DS 2
COUNT	DS 1
	SEG CODE
	ORG $1000
	LDA PTR
	STA COUNT`

	r := Assemble(asm, Options{})
	checkResult(t, r, "A5808582")
}

func TestBranchRange(t *testing.T) {
	forward := func(n int) string {
		return "\tORG $1000\n\tBEQ TARGET\n\tDS " + itoa(n) + "\nTARGET\tNOP"
	}
	backward := func(n int) string {
		return "\tORG $1000\nTARGET\tDS " + itoa(n) + "\n\tBEQ TARGET"
	}

	r := Assemble(forward(127), Options{})
	if !r.Success || r.Binary[1] != 0x7f {
		t.Errorf("forward branch of +127 failed: %v", r.Errors())
	}
	r = Assemble(backward(126), Options{})
	if !r.Success || r.Binary[len(r.Binary)-1] != 0x80 {
		t.Errorf("backward branch of -128 failed: %v", r.Errors())
	}

	checkResultError(t, Assemble(forward(128), Options{}), "branch out of range")
	checkResultError(t, Assemble(backward(127), Options{}), "branch out of range")
}

func itoa(n int) string {
	var b []byte
	for {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
		if n == 0 {
			return string(b)
		}
	}
}

func TestForwardReferenceConvergence(t *testing.T) {
	forward := `
	ORG $1000
	LDA ZP
	JMP DONE
DONE	NOP
ZP	EQU $80`

	backward := `
ZP	EQU $80
	ORG $1000
	LDA ZP
	JMP DONE
DONE	NOP`

	r1 := Assemble(forward, Options{})
	r2 := Assemble(backward, Options{})
	checkResult(t, r1, "A5804C0510EA")
	checkResult(t, r2, "A5804C0510EA")
	if r1.Passes <= r2.Passes {
		t.Errorf("forward reference used %d passes, backward %d", r1.Passes, r2.Passes)
	}
}

func TestUndefinedSymbol(t *testing.T) {
	checkASMError(t, "\tJMP NOWHERE", "undefined symbol 'NOWHERE'")
}

func TestRedefinition(t *testing.T) {
	checkASMError(t, "FOO EQU 1\nFOO EQU 2", "symbol 'FOO' redefined with a different value")
	checkASMError(t, "FOO NOP\nFOO NOP", "symbol 'FOO' redefined with a different value")
	checkASM(t, "FOO EQU 1\nFOO EQU 1\n\tDC.B FOO", "01")
	checkASM(t, "V SET 1\n\tDC.B V\nV SET V+1\n\tDC.B V", "0102")
	checkASM(t, "V = 3\n\tDC.B V", "03")
	checkASMError(t, "\tEQU 3", "equate declaration must begin with a label")
}

func TestNonConvergence(t *testing.T) {
	asm := `
	ORG $1000
	IF L == $1000
	NOP
	ENDIF
L	NOP`

	r := Assemble(asm, Options{})
	if r.Success {
		t.Error("expected oscillating program to fail")
	}
}

func TestLocalLabels(t *testing.T) {
	asm := `
	ORG $1000
A1	SUBROUTINE
.loop	DEX
	BNE .loop
B1	SUBROUTINE
.loop	DEY
	BNE .loop`

	checkASM(t, asm, "CAD0FD88D0FD")
}

func TestTemporaryLabels(t *testing.T) {
	asm := `
	ORG $1000
A1	LDX #2
1$	DEX
	BNE 1$
B1	LDY #2
1$	DEY
	BNE 1$`

	checkASM(t, asm, "A202CAD0FDA00288D0FD")
}

func TestMacros(t *testing.T) {
	asm := `
	MAC STORE
	LDA #{1}
	STA {2}
	ENDM

	ORG $1000
	STORE 5, $20
	STORE $FF, $1234`

	checkASM(t, asm, "A9058520A9FF8D3412")
}

func TestMacroLocalLabels(t *testing.T) {
	asm := `
	MAC WAIT
.loop	DEX
	BNE .loop
	ENDM

	ORG $1000
	WAIT
	WAIT`

	checkASM(t, asm, "CAD0FDCAD0FD")
}

func TestMacroErrors(t *testing.T) {
	checkASMError(t, "\tMAC LOOP\n\tLOOP\n\tENDM\n\tLOOP", "infinite macro recursion in 'LOOP'")
	checkASMError(t, "\tMAC TWO\n\tDC.B {1},{2}\n\tENDM\n\tTWO 1", "macro 'TWO' expects 2 arguments, got 1")
	checkASMError(t, "\tMAC LDA\n\tENDM", "macro name 'LDA' is reserved")
	checkASMError(t, "\tMAC M\n\tNOP", "unterminated MAC 'M'")
	checkASMError(t, "\tENDM", "ENDM without MAC")
	checkASMError(t, "\tMEXIT", "MEXIT outside of macro")
}

func TestMacroExit(t *testing.T) {
	asm := `
	MAC FILL
	IF {1} == 0
	MEXIT
	ENDIF
	DC.B {1}
	ENDM

	FILL 0
	FILL 7`

	checkASM(t, asm, "07")
}

func TestRepeat(t *testing.T) {
	checkASM(t, "\tREPEAT 3\n\tNOP\n\tREPEND", "EAEAEA")
	checkASM(t, "\tREPEAT 0\n\tNOP\n\tREPEND\n\tBRK", "00")
	checkASM(t, "\tREPEAT 2\n\tREPEAT 2\n\tDC.B 1\n\tREPEND\n\tDC.B 2\n\tREPEND", "010102010102")
	checkASMError(t, "\tREPEAT -1\n\tNOP\n\tREPEND", "REPEAT count must not be negative")
	checkASMError(t, "\tREPEAT 2\n\tNOP", "REPEAT without REPEND")
	checkASMError(t, "\tREPEND", "REPEND without REPEAT")
	checkASMError(t, "\tREPEAT N\n\tNOP\n\tREPEND\nN EQU 2", "REPEAT count must be a constant expression")
	checkASMError(t, "\tREPEAT UNDEFINED\n\tNOP\n\tREPEND", "REPEAT count must be a constant expression")
}

func TestConditionals(t *testing.T) {
	asm := `
FLAG = 1
	IF FLAG
	LDA #1
	ELSE
	LDA #2
	ENDIF
	IF !FLAG
	LDA #3
	ELSE
	IF FLAG == 1
	LDA #4
	ENDIF
	ENDIF`

	checkASM(t, asm, "A901A904")

	checkASM(t, "\tIFCONST NOPE\n\tNOP\n\tELSE\n\tBRK\n\tENDIF", "00")
	checkASM(t, "\tIFNCONST NOPE\n\tNOP\n\tEIF", "EA")
	checkASMError(t, "\tELSE", "ELSE without IF")
	checkASMError(t, "\tENDIF", "ENDIF without IF")
	checkASMError(t, "\tIF 1\n\tELSE\n\tELSE\n\tENDIF", "duplicate ELSE")
	checkASMError(t, "\tIF 1\n\tNOP", "unterminated IF")
}

func TestConditionalForwardReference(t *testing.T) {
	asm := `
	IF LATER
	NOP
	ENDIF
LATER = 1`

	checkASM(t, asm, "EA")
}

func TestConstantConditionalForwardReference(t *testing.T) {
	asm := `
	ORG $1000
	IFCONST DEFINED_LATER
	NOP
	ELSE
	JMP $1234
	ENDIF
LOOP	NOP
	JMP LOOP
DEFINED_LATER EQU 1`

	checkASM(t, asm, "EAEA4C0110")

	asm = `
	ORG $1000
	IFNCONST DEFINED_LATER
	JMP $1234
	ENDIF
LOOP	NOP
	JMP LOOP
DEFINED_LATER EQU 1`

	checkASM(t, asm, "EA4C0010")
}

func TestConstantConditionalDefault(t *testing.T) {
	asm := `
	IFNCONST TIA_BASE_ADDRESS
TIA_BASE_ADDRESS = 0
	ENDIF
	ORG $F000
	LDA TIA_BASE_ADDRESS+1`

	r := Assemble(asm, Options{Symbols: true})
	checkResult(t, r, "A501")

	found := false
	for _, s := range r.Symbols {
		if s.Name == "TIA_BASE_ADDRESS" {
			found = true
			if !s.Resolved || s.Value != 0 || s.Kind != KindConstant {
				t.Errorf("unexpected symbol %+v", s)
			}
		}
	}
	if !found {
		t.Error("TIA_BASE_ADDRESS missing from the symbol table")
	}
}

func TestIncludes(t *testing.T) {
	files := FileSet{
		"main.asm":     []byte("\tORG $1000\n\tINCLUDE \"sub/inc.asm\"\n\tINCBIN \"bin/blob.bin\", 1\n\tNOP\n"),
		"sub/inc.asm":  []byte("\tINCLUDE \"data.asm\"\n"),
		"sub/data.asm": []byte("\tDC.B 1,2\n"),
		"bin/blob.bin": {9, 8, 7},
	}

	r, err := AssembleFile("main.asm", Options{Resolver: files})
	if err != nil {
		t.Fatal(err)
	}
	checkResult(t, r, "01020807EA")

	want := []string{"main.asm", "sub/inc.asm", "sub/data.asm"}
	if strings.Join(r.SourceMap.Files, ",") != strings.Join(want, ",") {
		t.Errorf("files: got %v, exp %v", r.SourceMap.Files, want)
	}
}

func TestIncludeDirOrder(t *testing.T) {
	files := FileSet{
		"main.asm":  []byte("\tINCDIR \"lib\"\n\tINCLUDE \"x.asm\"\n"),
		"x.asm":     []byte("\tDC.B 1\n"),
		"lib/x.asm": []byte("\tDC.B 2\n"),
		"inc/x.asm": []byte("\tDC.B 3\n"),
	}

	r, _ := AssembleFile("main.asm", Options{Resolver: files})
	checkResult(t, r, "02")

	r, _ = AssembleFile("main.asm", Options{Resolver: files, IncludeDir: "inc"})
	checkResult(t, r, "03")
}

func TestIncludeErrors(t *testing.T) {
	files := FileSet{
		"a.asm":    []byte("\tNOP\n\tINCLUDE \"b.asm\"\n"),
		"b.asm":    []byte("\tINCLUDE \"a.asm\"\n"),
		"miss.asm": []byte("\tINCLUDE \"nope.asm\"\n"),
	}

	r, _ := AssembleFile("a.asm", Options{Resolver: files})
	if r.Success || len(r.Diagnostics) != 1 || len(r.Binary) != 0 {
		t.Errorf("include cycle: got success=%v diagnostics=%v binary=%d bytes", r.Success, r.Diagnostics, len(r.Binary))
	}
	checkResultError(t, r, "recursive include of 'a.asm'")

	r, _ = AssembleFile("miss.asm", Options{Resolver: files})
	checkResultError(t, r, "unable to open 'nope.asm'")

	if _, err := AssembleFile("gone.asm", Options{Resolver: files}); err == nil {
		t.Error("expected error opening missing source file")
	}
}

func TestParameters(t *testing.T) {
	r := Assemble("\tDC.B SIZE, COUNT, FLAG, X1", Options{
		Parameters: []string{"-DSIZE=4", "-MCOUNT=SIZE*2", "FLAG"},
		Defines:    map[string]int{"X1": 7},
	})
	checkResult(t, r, "04080007")

	r = Assemble("\tNOP", Options{Parameters: []string{"-D=3"}})
	if r.Success {
		t.Error("expected invalid parameter to fail")
	}
}

func TestProcessor(t *testing.T) {
	checkASM(t, "\tPROCESSOR 6502\n\tNOP", "EA")
	checkASM(t, "\tPROCESSOR 65C02\n\tSTZ $20", "6420")
	checkASMError(t, "\tPROCESSOR 68000", "unsupported processor '68000'")
}

func TestEchoAndEnd(t *testing.T) {
	var out bytes.Buffer
	r := Assemble("SIZE = 5\n\tECHO \"size\", SIZE\n\tNOP\n\tEND\n\tBRK", Options{Out: &out})
	checkResult(t, r, "EA")
	if out.String() != "size $5\n" {
		t.Errorf("echo: got %q", out.String())
	}
	found := false
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityInfo && d.Message == "size $5" {
			found = true
		}
	}
	if !found {
		t.Error("echo diagnostic missing")
	}

	checkASMError(t, "\tERR", "ERR pseudo-op encountered")
}

func TestMemoryLimit(t *testing.T) {
	r := Assemble("\tORG $FFFF\n\tNOP\n\tNOP", Options{})
	checkResultError(t, r, "memory size exceeded")

	checkASMError(t, "\tDS $7FFFFFFFFFFFFFF", "memory size exceeded")
	checkASMError(t, "\tDS.L $4000000000000000", "memory size exceeded")
	checkASMError(t, "\tNOP\n\tORG $7FFFFFFFFFFF, 0", "memory size exceeded")
	checkASMError(t, "\tSEG.U vars\n\tORG $80\n\tDS $7FFFFFFFFFFFFFF", "memory size exceeded")
	checkASMError(t, "\tNOP\n\tALIGN $7FFFFFFFFFFF", "memory size exceeded")

	r = Assemble("\tREPEAT 100000000\n\tNOP\n\tREPEND", Options{})
	checkResultError(t, r, "memory size exceeded")
	if len(r.Diagnostics) != 1 {
		t.Errorf("expected one diagnostic, got %d", len(r.Diagnostics))
	}
}

func TestPassLineLimit(t *testing.T) {
	defer func(n int) { maxPassLines = n }(maxPassLines)
	maxPassLines = 1000

	asm := `
X	SET 0
	REPEAT 5000
X	SET X+1
	REPEND`

	checkASMError(t, asm, "more than 1000 lines assembled in one pass")
	checkASM(t, "\tREPEAT 10\n\tNOP\n\tREPEND", "EAEAEAEAEAEAEAEAEAEA")
}

func TestLexErrorOnly(t *testing.T) {
	r := assemble("\tDC.B \"abc\n\tNOP")
	if r.Success || len(r.Diagnostics) != 1 || r.Diagnostics[0].Message != "unterminated string" {
		t.Errorf("unexpected diagnostics %v", r.Diagnostics)
	}

	r = assemble("DATA\tDC.B \"x\n\tJMP DATA")
	if len(r.Diagnostics) != 1 || r.Diagnostics[0].Message != "unterminated string" {
		t.Errorf("unexpected diagnostics %v", r.Diagnostics)
	}
}

func TestDiagnosticPosition(t *testing.T) {
	r := Assemble("\tNOP\n\tLDA #$100", Options{Filename: "prog.asm"})
	if r.Success || len(r.Diagnostics) == 0 {
		t.Fatal("expected an error")
	}
	d := r.Diagnostics[0]
	if d.File != "prog.asm" || d.Line != 2 || d.Severity != SeverityError {
		t.Errorf("unexpected diagnostic %v", d)
	}
	if !strings.HasPrefix(d.String(), "prog.asm:2:") {
		t.Errorf("unexpected diagnostic string %q", d.String())
	}
}

func TestListing(t *testing.T) {
	asm := `	ORG $1000
START	NOP
	MAC TWICE
	NOP
	NOP
	ENDM
	TWICE
	LDA #$100`

	r := Assemble(asm, Options{Listing: true})
	var nop *ListingLine
	macroLines := 0
	for i := range r.Listing {
		l := &r.Listing[i]
		if l.Line == 2 && !l.MacroGenerated {
			nop = l
		}
		if l.MacroGenerated && len(l.Bytes) == 1 {
			macroLines++
		}
	}
	if nop == nil || nop.Address != 0x1000 || hexString(nop.Bytes) != "EA" {
		t.Errorf("unexpected listing line %+v", nop)
	}
	if macroLines != 2 {
		t.Errorf("macro expansion listed %d lines, exp 2", macroLines)
	}

	var buf bytes.Buffer
	if err := r.WriteListing(&buf); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{"------- FILE main.asm", "1000  ea", "*** error: value out of range"} {
		if !strings.Contains(s, want) {
			t.Errorf("listing missing %q:\n%s", want, s)
		}
	}
}

func TestListOff(t *testing.T) {
	r := Assemble("\tLIST OFF\n\tNOP\n\tLIST ON\n\tBRK", Options{Listing: true})
	for _, l := range r.Listing {
		if strings.Contains(l.Source, "NOP") {
			t.Error("line listed while LIST OFF")
		}
	}
}

func TestSymbols(t *testing.T) {
	asm := `
ZED = $10
	ORG $1000
START	JMP ALPHA
ALPHA	NOP`

	r := Assemble(asm, Options{Symbols: true})
	checkResult(t, r, "4C0310EA")

	var names []string
	for _, s := range r.Symbols {
		names = append(names, s.Name)
	}
	if got := strings.Join(names, ","); got != "ALPHA,START,ZED" {
		t.Errorf("sorted by name: got %s", got)
	}

	r = Assemble(asm, Options{Symbols: true, SortByAddress: true})
	names = names[:0]
	for _, s := range r.Symbols {
		names = append(names, s.Name)
	}
	if got := strings.Join(names, ","); got != "ZED,START,ALPHA" {
		t.Errorf("sorted by address: got %s", got)
	}

	var buf bytes.Buffer
	if err := r.WriteSymbols(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ALPHA") || !strings.Contains(buf.String(), "1003") {
		t.Errorf("unexpected symbol file:\n%s", buf.String())
	}
	if r.Symbols[2].Kind != KindLabel || !r.Symbols[2].Referenced {
		t.Errorf("unexpected ALPHA record %+v", r.Symbols[2])
	}
}

func TestSourceMap(t *testing.T) {
	r := Assemble("\tORG $1000\n\tNOP\n\tJMP $1000", Options{Filename: "sm.asm"})
	checkResult(t, r, "EA4C0010")

	file, line := r.SourceMap.Search(0x1001)
	if file != "sm.asm" || line != 3 {
		t.Errorf("search: got %s:%d", file, line)
	}
	if _, line := r.SourceMap.Search(0x1002); line != -1 {
		t.Error("search of mid-instruction address succeeded")
	}
	if addr := r.SourceMap.Find("sm.asm", 2); addr != 0x1000 {
		t.Errorf("find: got $%04X", addr)
	}

	var buf bytes.Buffer
	if _, err := r.SourceMap.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	var sm SourceMap
	if _, err := sm.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	if sm.Origin != 0x1000 || sm.Size != 4 || sm.CRC != r.SourceMap.CRC || len(sm.Lines) != 2 {
		t.Errorf("round trip: got %+v", sm)
	}
}

func TestDeterminism(t *testing.T) {
	asm := `
	ORG $1000
	MAC PAIR
	DC.B {1},{2}
	ENDM
LOOP	LDA TABLE,X
	BEQ DONE
	PAIR 1, 2
	JMP LOOP
DONE	RTS
TABLE	DC.B 0`

	r1 := Assemble(asm, Options{Listing: true, Symbols: true})
	r2 := Assemble(asm, Options{Listing: true, Symbols: true})
	if !bytes.Equal(r1.Output, r2.Output) {
		t.Error("outputs differ")
	}

	var l1, l2 bytes.Buffer
	r1.WriteListing(&l1)
	r2.WriteListing(&l2)
	if l1.String() != l2.String() {
		t.Error("listings differ")
	}
}

var asm65c02 = `	PHX
	PHY
	PLX
	PLY
	BRA $1000
	STZ $01
	STZ $1234
	STZ ABS:$01
	STZ $01,X
	STZ $1234,X
	INC
	DEC
	JMP $1234,X
	BIT #$12
	BIT $12,X
	BIT $1234,X
	TRB $01
	TRB $1234
	TSB $01
	TSB $1234
	ADC ($01)
	SBC ($01)
	CMP ($01)
	AND ($01)
	ORA ($01)
	EOR ($01)
	LDA ($01)
	STA ($01)`

func Test65c02(t *testing.T) {
	prefix := `
	.ARCH 65c02
	.ORG $1000
`
	checkASM(t, prefix+asm65c02, "DA5AFA7A80FA64019C34129C010074019E3412"+
		"1A3A7C3412891234123C341214011C341204010C34127201F201D201320112015201B2019201")
}

func Test65c02JumpIndexedIndirect(t *testing.T) {
	checkASM(t, "\tPROCESSOR 65C02\n\tJMP ($1234,X)", "7C3412")
}

func Test65c02FailOn6502(t *testing.T) {
	lines := strings.Split(asm65c02, "\n")
	prefix := `
	.ARCH 6502
	.ORG $1000
`
	for _, line := range lines {
		r := assemble(prefix + line)
		if r.Success {
			t.Errorf("Expected error on %s, didn't get one\n", line)
		}
	}
}
