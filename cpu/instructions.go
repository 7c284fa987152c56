// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu describes the instruction sets of the NMOS 6502 (and its
// 6507 package variant) and the CMOS 65C02.
package cpu

import "strings"

// Architecture selects the CPU chip: 6502 or 65c02
type Architecture byte

const (
	// NMOS 6502 CPU, also used for the 6507
	NMOS Architecture = iota

	// CMOS 65c02 CPU
	CMOS
)

// String returns the processor name of the architecture.
func (a Architecture) String() string {
	if a == CMOS {
		return "65C02"
	}
	return "6502"
}

// Mode describes a memory addressing mode.
type Mode byte

// All possible memory addressing modes
const (
	IMM Mode = iota // Immediate
	IMP             // Implied (no operand)
	REL             // Relative
	ZPG             // Zero Page
	ZPX             // Zero Page,X
	ZPY             // Zero Page,Y
	ABS             // Absolute
	ABX             // Absolute,X
	ABY             // Absolute,Y
	IND             // (Indirect)
	IDX             // (Indirect,X)
	IDY             // (Indirect),Y
	ACC             // Accumulator (no operand)
)

var modeNames = [...]string{"IMM", "IMP", "REL", "ZPG", "ZPX", "ZPY", "ABS", "ABX", "ABY", "IND", "IDX", "IDY", "ACC"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "???"
}

// The set of processors on which an opcode is available.
type availability byte

const (
	std     availability = iota // every processor
	cmos                        // 65c02 only
	illegal                     // undocumented NMOS opcode
)

// Opcode data for an (opcode, mode) pair
type opcodeData struct {
	name     string       // all-caps mnemonic
	mode     Mode         // addressing mode
	opcode   byte         // opcode hex value
	length   byte         // length of opcode + operand in bytes
	cycles   byte         // number of CPU cycles to execute command
	bpcycles byte         // additional CPU cycles if command crosses page boundary
	avail    availability // processors supporting the opcode
}

// All valid (opcode, mode) pairs
var data = []opcodeData{
	{"LDA", IMM, 0xa9, 2, 2, 0, std},
	{"LDA", ZPG, 0xa5, 2, 3, 0, std},
	{"LDA", ZPX, 0xb5, 2, 4, 0, std},
	{"LDA", ABS, 0xad, 3, 4, 0, std},
	{"LDA", ABX, 0xbd, 3, 4, 1, std},
	{"LDA", ABY, 0xb9, 3, 4, 1, std},
	{"LDA", IDX, 0xa1, 2, 6, 0, std},
	{"LDA", IDY, 0xb1, 2, 5, 1, std},
	{"LDA", IND, 0xb2, 2, 5, 0, cmos},

	{"LDX", IMM, 0xa2, 2, 2, 0, std},
	{"LDX", ZPG, 0xa6, 2, 3, 0, std},
	{"LDX", ZPY, 0xb6, 2, 4, 0, std},
	{"LDX", ABS, 0xae, 3, 4, 0, std},
	{"LDX", ABY, 0xbe, 3, 4, 1, std},

	{"LDY", IMM, 0xa0, 2, 2, 0, std},
	{"LDY", ZPG, 0xa4, 2, 3, 0, std},
	{"LDY", ZPX, 0xb4, 2, 4, 0, std},
	{"LDY", ABS, 0xac, 3, 4, 0, std},
	{"LDY", ABX, 0xbc, 3, 4, 1, std},

	{"STA", ZPG, 0x85, 2, 3, 0, std},
	{"STA", ZPX, 0x95, 2, 4, 0, std},
	{"STA", ABS, 0x8d, 3, 4, 0, std},
	{"STA", ABX, 0x9d, 3, 5, 0, std},
	{"STA", ABY, 0x99, 3, 5, 0, std},
	{"STA", IDX, 0x81, 2, 6, 0, std},
	{"STA", IDY, 0x91, 2, 6, 0, std},
	{"STA", IND, 0x92, 2, 5, 0, cmos},

	{"STX", ZPG, 0x86, 2, 3, 0, std},
	{"STX", ZPY, 0x96, 2, 4, 0, std},
	{"STX", ABS, 0x8e, 3, 4, 0, std},

	{"STY", ZPG, 0x84, 2, 3, 0, std},
	{"STY", ZPX, 0x94, 2, 4, 0, std},
	{"STY", ABS, 0x8c, 3, 4, 0, std},

	{"STZ", ZPG, 0x64, 2, 3, 0, cmos},
	{"STZ", ZPX, 0x74, 2, 4, 0, cmos},
	{"STZ", ABS, 0x9c, 3, 4, 0, cmos},
	{"STZ", ABX, 0x9e, 3, 5, 0, cmos},

	{"ADC", IMM, 0x69, 2, 2, 0, std},
	{"ADC", ZPG, 0x65, 2, 3, 0, std},
	{"ADC", ZPX, 0x75, 2, 4, 0, std},
	{"ADC", ABS, 0x6d, 3, 4, 0, std},
	{"ADC", ABX, 0x7d, 3, 4, 1, std},
	{"ADC", ABY, 0x79, 3, 4, 1, std},
	{"ADC", IDX, 0x61, 2, 6, 0, std},
	{"ADC", IDY, 0x71, 2, 5, 1, std},
	{"ADC", IND, 0x72, 2, 5, 1, cmos},

	{"SBC", IMM, 0xe9, 2, 2, 0, std},
	{"SBC", ZPG, 0xe5, 2, 3, 0, std},
	{"SBC", ZPX, 0xf5, 2, 4, 0, std},
	{"SBC", ABS, 0xed, 3, 4, 0, std},
	{"SBC", ABX, 0xfd, 3, 4, 1, std},
	{"SBC", ABY, 0xf9, 3, 4, 1, std},
	{"SBC", IDX, 0xe1, 2, 6, 0, std},
	{"SBC", IDY, 0xf1, 2, 5, 1, std},
	{"SBC", IND, 0xf2, 2, 5, 1, cmos},

	{"CMP", IMM, 0xc9, 2, 2, 0, std},
	{"CMP", ZPG, 0xc5, 2, 3, 0, std},
	{"CMP", ZPX, 0xd5, 2, 4, 0, std},
	{"CMP", ABS, 0xcd, 3, 4, 0, std},
	{"CMP", ABX, 0xdd, 3, 4, 1, std},
	{"CMP", ABY, 0xd9, 3, 4, 1, std},
	{"CMP", IDX, 0xc1, 2, 6, 0, std},
	{"CMP", IDY, 0xd1, 2, 5, 1, std},
	{"CMP", IND, 0xd2, 2, 5, 0, cmos},

	{"CPX", IMM, 0xe0, 2, 2, 0, std},
	{"CPX", ZPG, 0xe4, 2, 3, 0, std},
	{"CPX", ABS, 0xec, 3, 4, 0, std},

	{"CPY", IMM, 0xc0, 2, 2, 0, std},
	{"CPY", ZPG, 0xc4, 2, 3, 0, std},
	{"CPY", ABS, 0xcc, 3, 4, 0, std},

	{"BIT", IMM, 0x89, 2, 2, 0, cmos},
	{"BIT", ZPG, 0x24, 2, 3, 0, std},
	{"BIT", ZPX, 0x34, 2, 4, 0, cmos},
	{"BIT", ABS, 0x2c, 3, 4, 0, std},
	{"BIT", ABX, 0x3c, 3, 4, 1, cmos},

	{"CLC", IMP, 0x18, 1, 2, 0, std},
	{"SEC", IMP, 0x38, 1, 2, 0, std},
	{"CLI", IMP, 0x58, 1, 2, 0, std},
	{"SEI", IMP, 0x78, 1, 2, 0, std},
	{"CLD", IMP, 0xd8, 1, 2, 0, std},
	{"SED", IMP, 0xf8, 1, 2, 0, std},
	{"CLV", IMP, 0xb8, 1, 2, 0, std},

	{"BCC", REL, 0x90, 2, 2, 1, std},
	{"BCS", REL, 0xb0, 2, 2, 1, std},
	{"BEQ", REL, 0xf0, 2, 2, 1, std},
	{"BNE", REL, 0xd0, 2, 2, 1, std},
	{"BMI", REL, 0x30, 2, 2, 1, std},
	{"BPL", REL, 0x10, 2, 2, 1, std},
	{"BVC", REL, 0x50, 2, 2, 1, std},
	{"BVS", REL, 0x70, 2, 2, 1, std},
	{"BRA", REL, 0x80, 2, 2, 1, cmos},

	{"BRK", IMP, 0x00, 1, 7, 0, std},

	{"AND", IMM, 0x29, 2, 2, 0, std},
	{"AND", ZPG, 0x25, 2, 3, 0, std},
	{"AND", ZPX, 0x35, 2, 4, 0, std},
	{"AND", ABS, 0x2d, 3, 4, 0, std},
	{"AND", ABX, 0x3d, 3, 4, 1, std},
	{"AND", ABY, 0x39, 3, 4, 1, std},
	{"AND", IDX, 0x21, 2, 6, 0, std},
	{"AND", IDY, 0x31, 2, 5, 1, std},
	{"AND", IND, 0x32, 2, 5, 0, cmos},

	{"ORA", IMM, 0x09, 2, 2, 0, std},
	{"ORA", ZPG, 0x05, 2, 3, 0, std},
	{"ORA", ZPX, 0x15, 2, 4, 0, std},
	{"ORA", ABS, 0x0d, 3, 4, 0, std},
	{"ORA", ABX, 0x1d, 3, 4, 1, std},
	{"ORA", ABY, 0x19, 3, 4, 1, std},
	{"ORA", IDX, 0x01, 2, 6, 0, std},
	{"ORA", IDY, 0x11, 2, 5, 1, std},
	{"ORA", IND, 0x12, 2, 5, 0, cmos},

	{"EOR", IMM, 0x49, 2, 2, 0, std},
	{"EOR", ZPG, 0x45, 2, 3, 0, std},
	{"EOR", ZPX, 0x55, 2, 4, 0, std},
	{"EOR", ABS, 0x4d, 3, 4, 0, std},
	{"EOR", ABX, 0x5d, 3, 4, 1, std},
	{"EOR", ABY, 0x59, 3, 4, 1, std},
	{"EOR", IDX, 0x41, 2, 6, 0, std},
	{"EOR", IDY, 0x51, 2, 5, 1, std},
	{"EOR", IND, 0x52, 2, 5, 0, cmos},

	{"INC", ZPG, 0xe6, 2, 5, 0, std},
	{"INC", ZPX, 0xf6, 2, 6, 0, std},
	{"INC", ABS, 0xee, 3, 6, 0, std},
	{"INC", ABX, 0xfe, 3, 7, 0, std},
	{"INC", ACC, 0x1a, 1, 2, 0, cmos},

	{"DEC", ZPG, 0xc6, 2, 5, 0, std},
	{"DEC", ZPX, 0xd6, 2, 6, 0, std},
	{"DEC", ABS, 0xce, 3, 6, 0, std},
	{"DEC", ABX, 0xde, 3, 7, 0, std},
	{"DEC", ACC, 0x3a, 1, 2, 0, cmos},

	{"INX", IMP, 0xe8, 1, 2, 0, std},
	{"INY", IMP, 0xc8, 1, 2, 0, std},

	{"DEX", IMP, 0xca, 1, 2, 0, std},
	{"DEY", IMP, 0x88, 1, 2, 0, std},

	{"JMP", ABS, 0x4c, 3, 3, 0, std},
	{"JMP", ABX, 0x7c, 3, 6, 0, cmos},
	{"JMP", IND, 0x6c, 3, 5, 0, std},

	{"JSR", ABS, 0x20, 3, 6, 0, std},
	{"RTS", IMP, 0x60, 1, 6, 0, std},

	{"RTI", IMP, 0x40, 1, 6, 0, std},

	{"NOP", IMP, 0xea, 1, 2, 0, std},

	{"TAX", IMP, 0xaa, 1, 2, 0, std},
	{"TXA", IMP, 0x8a, 1, 2, 0, std},
	{"TAY", IMP, 0xa8, 1, 2, 0, std},
	{"TYA", IMP, 0x98, 1, 2, 0, std},
	{"TXS", IMP, 0x9a, 1, 2, 0, std},
	{"TSX", IMP, 0xba, 1, 2, 0, std},

	{"TRB", ZPG, 0x14, 2, 5, 0, cmos},
	{"TRB", ABS, 0x1c, 3, 6, 0, cmos},
	{"TSB", ZPG, 0x04, 2, 5, 0, cmos},
	{"TSB", ABS, 0x0c, 3, 6, 0, cmos},

	{"PHA", IMP, 0x48, 1, 3, 0, std},
	{"PLA", IMP, 0x68, 1, 4, 0, std},
	{"PHP", IMP, 0x08, 1, 3, 0, std},
	{"PLP", IMP, 0x28, 1, 4, 0, std},
	{"PHX", IMP, 0xda, 1, 3, 0, cmos},
	{"PLX", IMP, 0xfa, 1, 4, 0, cmos},
	{"PHY", IMP, 0x5a, 1, 3, 0, cmos},
	{"PLY", IMP, 0x7a, 1, 4, 0, cmos},

	{"ASL", ACC, 0x0a, 1, 2, 0, std},
	{"ASL", ZPG, 0x06, 2, 5, 0, std},
	{"ASL", ZPX, 0x16, 2, 6, 0, std},
	{"ASL", ABS, 0x0e, 3, 6, 0, std},
	{"ASL", ABX, 0x1e, 3, 7, 0, std},

	{"LSR", ACC, 0x4a, 1, 2, 0, std},
	{"LSR", ZPG, 0x46, 2, 5, 0, std},
	{"LSR", ZPX, 0x56, 2, 6, 0, std},
	{"LSR", ABS, 0x4e, 3, 6, 0, std},
	{"LSR", ABX, 0x5e, 3, 7, 0, std},

	{"ROL", ACC, 0x2a, 1, 2, 0, std},
	{"ROL", ZPG, 0x26, 2, 5, 0, std},
	{"ROL", ZPX, 0x36, 2, 6, 0, std},
	{"ROL", ABS, 0x2e, 3, 6, 0, std},
	{"ROL", ABX, 0x3e, 3, 7, 0, std},

	{"ROR", ACC, 0x6a, 1, 2, 0, std},
	{"ROR", ZPG, 0x66, 2, 5, 0, std},
	{"ROR", ZPX, 0x76, 2, 6, 0, std},
	{"ROR", ABS, 0x6e, 3, 6, 0, std},
	{"ROR", ABX, 0x7e, 3, 7, 0, std},

	// Undocumented NMOS opcodes
	{"SLO", ZPG, 0x07, 2, 5, 0, illegal},
	{"SLO", ZPX, 0x17, 2, 6, 0, illegal},
	{"SLO", ABS, 0x0f, 3, 6, 0, illegal},
	{"SLO", ABX, 0x1f, 3, 7, 0, illegal},
	{"SLO", ABY, 0x1b, 3, 7, 0, illegal},
	{"SLO", IDX, 0x03, 2, 8, 0, illegal},
	{"SLO", IDY, 0x13, 2, 8, 0, illegal},

	{"RLA", ZPG, 0x27, 2, 5, 0, illegal},
	{"RLA", ZPX, 0x37, 2, 6, 0, illegal},
	{"RLA", ABS, 0x2f, 3, 6, 0, illegal},
	{"RLA", ABX, 0x3f, 3, 7, 0, illegal},
	{"RLA", ABY, 0x3b, 3, 7, 0, illegal},
	{"RLA", IDX, 0x23, 2, 8, 0, illegal},
	{"RLA", IDY, 0x33, 2, 8, 0, illegal},

	{"SRE", ZPG, 0x47, 2, 5, 0, illegal},
	{"SRE", ZPX, 0x57, 2, 6, 0, illegal},
	{"SRE", ABS, 0x4f, 3, 6, 0, illegal},
	{"SRE", ABX, 0x5f, 3, 7, 0, illegal},
	{"SRE", ABY, 0x5b, 3, 7, 0, illegal},
	{"SRE", IDX, 0x43, 2, 8, 0, illegal},
	{"SRE", IDY, 0x53, 2, 8, 0, illegal},

	{"RRA", ZPG, 0x67, 2, 5, 0, illegal},
	{"RRA", ZPX, 0x77, 2, 6, 0, illegal},
	{"RRA", ABS, 0x6f, 3, 6, 0, illegal},
	{"RRA", ABX, 0x7f, 3, 7, 0, illegal},
	{"RRA", ABY, 0x7b, 3, 7, 0, illegal},
	{"RRA", IDX, 0x63, 2, 8, 0, illegal},
	{"RRA", IDY, 0x73, 2, 8, 0, illegal},

	{"DCP", ZPG, 0xc7, 2, 5, 0, illegal},
	{"DCP", ZPX, 0xd7, 2, 6, 0, illegal},
	{"DCP", ABS, 0xcf, 3, 6, 0, illegal},
	{"DCP", ABX, 0xdf, 3, 7, 0, illegal},
	{"DCP", ABY, 0xdb, 3, 7, 0, illegal},
	{"DCP", IDX, 0xc3, 2, 8, 0, illegal},
	{"DCP", IDY, 0xd3, 2, 8, 0, illegal},

	{"ISB", ZPG, 0xe7, 2, 5, 0, illegal},
	{"ISB", ZPX, 0xf7, 2, 6, 0, illegal},
	{"ISB", ABS, 0xef, 3, 6, 0, illegal},
	{"ISB", ABX, 0xff, 3, 7, 0, illegal},
	{"ISB", ABY, 0xfb, 3, 7, 0, illegal},
	{"ISB", IDX, 0xe3, 2, 8, 0, illegal},
	{"ISB", IDY, 0xf3, 2, 8, 0, illegal},

	{"LAX", ZPG, 0xa7, 2, 3, 0, illegal},
	{"LAX", ZPY, 0xb7, 2, 4, 0, illegal},
	{"LAX", ABS, 0xaf, 3, 4, 0, illegal},
	{"LAX", ABY, 0xbf, 3, 4, 1, illegal},
	{"LAX", IDX, 0xa3, 2, 6, 0, illegal},
	{"LAX", IDY, 0xb3, 2, 5, 1, illegal},

	{"SAX", ZPG, 0x87, 2, 3, 0, illegal},
	{"SAX", ZPY, 0x97, 2, 4, 0, illegal},
	{"SAX", ABS, 0x8f, 3, 4, 0, illegal},
	{"SAX", IDX, 0x83, 2, 6, 0, illegal},

	{"ANC", IMM, 0x0b, 2, 2, 0, illegal},
	{"ALR", IMM, 0x4b, 2, 2, 0, illegal},
	{"ARR", IMM, 0x6b, 2, 2, 0, illegal},
	{"SBX", IMM, 0xcb, 2, 2, 0, illegal},
	{"ANE", IMM, 0x8b, 2, 2, 0, illegal},
	{"LXA", IMM, 0xab, 2, 2, 0, illegal},
	{"LAS", ABY, 0xbb, 3, 4, 1, illegal},
	{"SHA", ABY, 0x9f, 3, 5, 0, illegal},
	{"SHA", IDY, 0x93, 2, 6, 0, illegal},
	{"SHX", ABY, 0x9e, 3, 5, 0, illegal},
	{"SHY", ABX, 0x9c, 3, 5, 0, illegal},
	{"TAS", ABY, 0x9b, 3, 5, 0, illegal},

	{"NOP", IMM, 0x80, 2, 2, 0, illegal},
	{"NOP", ZPG, 0x04, 2, 3, 0, illegal},
	{"NOP", ZPX, 0x14, 2, 4, 0, illegal},
	{"NOP", ABS, 0x0c, 3, 4, 0, illegal},
	{"NOP", ABX, 0x1c, 3, 4, 1, illegal},
	{"JAM", IMP, 0x02, 1, 0, 0, illegal},
}

// Alternate mnemonics accepted for undocumented opcodes.
var aliases = map[string]string{
	"ASR": "ALR",
	"AXS": "SBX",
	"DCM": "DCP",
	"INS": "ISB",
	"ISC": "ISB",
	"KIL": "JAM",
	"LSE": "SRE",
	"SHS": "TAS",
	"XAA": "ANE",
}

// An Instruction describes a CPU instruction, including its name,
// its addressing mode, its opcode value, its operand size, and its CPU cycle
// cost.
type Instruction struct {
	Name     string // all-caps name of the instruction
	Mode     Mode   // addressing mode
	Opcode   byte   // hexadecimal opcode value
	Length   byte   // combined size of opcode and operand, in bytes
	Cycles   byte   // number of CPU cycles to execute the instruction
	BPCycles byte   // additional cycles required if boundary page crossed
	Illegal  bool   // undocumented NMOS opcode
}

// Valid returns true if the instruction decodes to a known operation.
func (i *Instruction) Valid() bool {
	return i.Name != unknownName
}

// An InstructionSet defines the set of all instructions a processor
// understands.
type InstructionSet struct {
	Arch         Architecture
	instructions [256]Instruction          // all instructions by opcode
	variants     map[string][]*Instruction // variants of each instruction
}

const unknownName = "???"

// Lookup retrieves a CPU instruction corresponding to the requested opcode.
func (s *InstructionSet) Lookup(opcode byte) *Instruction {
	return &s.instructions[opcode]
}

// GetInstructions returns all CPU instructions whose name matches the
// provided string. Alternate names of undocumented opcodes are accepted.
func (s *InstructionSet) GetInstructions(name string) []*Instruction {
	name = strings.ToUpper(name)
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	return s.variants[name]
}

// IsMnemonic returns true if name is an instruction mnemonic on any
// supported processor.
func IsMnemonic(name string) bool {
	name = strings.ToUpper(name)
	if _, ok := aliases[name]; ok {
		return true
	}
	return mnemonics[name]
}

var mnemonics = func() map[string]bool {
	m := make(map[string]bool)
	for _, d := range data {
		m[d.name] = true
	}
	return m
}()

// Create an instruction set for a CPU architecture.
func newInstructionSet(arch Architecture) *InstructionSet {
	set := &InstructionSet{Arch: arch}
	set.variants = make(map[string][]*Instruction)

	for i := range set.instructions {
		set.instructions[i] = Instruction{
			Name:   unknownName,
			Mode:   IMP,
			Opcode: byte(i),
			Length: 1,
		}
	}

	for _, d := range data {
		switch {
		case d.avail == cmos && arch != CMOS:
			continue
		case d.avail == illegal && arch != NMOS:
			continue
		}

		inst := &set.instructions[d.opcode]
		inst.Name = d.name
		inst.Mode = d.mode
		inst.Opcode = d.opcode
		inst.Length = d.length
		inst.Cycles = d.cycles
		inst.BPCycles = d.bpcycles
		inst.Illegal = d.avail == illegal

		set.variants[inst.Name] = append(set.variants[inst.Name], inst)
	}
	return set
}

var instructionSets = [2]*InstructionSet{
	newInstructionSet(NMOS),
	newInstructionSet(CMOS),
}

// GetInstructionSet returns an instruction set for the requested CPU
// architecture.
func GetInstructionSet(arch Architecture) *InstructionSet {
	return instructionSets[arch]
}
