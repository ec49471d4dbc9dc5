package hack

import (
	"fmt"
	"strconv"
)

// ----------------------------------------------------------------------------
// Translation tables

// BuiltInTable resolves every predefined Hack symbol to its fixed address:
// the five VM-segment aliases, the sixteen general purpose registers, and
// the two memory-mapped I/O locations.
var BuiltInTable = map[string]uint16{
	// Virtual Machine segment aliases
	"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
	// Named general purpose registers
	"R0": 0, "R1": 1, "R2": 2, "R3": 3, "R4": 4, "R5": 5,
	"R6": 6, "R7": 7, "R8": 8, "R9": 9, "R10": 10, "R11": 11,
	"R12": 12, "R13": 13, "R14": 14, "R15": 15,
	// Memory mapped I/O locations
	"SCREEN": 16384, "KBD": 24576,
}

// CompTable resolves a C instruction's computation mnemonic to its 7-bit
// a/c1..c6 field.
var CompTable = map[string]uint16{
	"0": 0b0101010, "1": 0b0111111, "-1": 0b0111010,
	"D": 0b0001100, "A": 0b0110000, "M": 0b1110000,
	"!D": 0b0001101, "!A": 0b0110001, "!M": 0b1110001,
	"-D": 0b0001111, "-A": 0b0110011, "-M": 0b1110011,
	"D+1": 0b0011111, "A+1": 0b0110111, "M+1": 0b1110111,
	"D-1": 0b0001110, "A-1": 0b0110010, "M-1": 0b1110010,
	"D+A": 0b0000010, "D+M": 0b1000010,
	"D-A": 0b0010011, "D-M": 0b1010011,
	"A-D": 0b0000111, "M-D": 0b1000111,
	"D&A": 0b0000000, "D&M": 0b1000000,
	"D|A": 0b0010101, "D|M": 0b1010101,
}

// DestTable resolves a C instruction's destination mnemonic ("null" is the
// empty string) to its 3-bit d1d2d3 field.
var DestTable = map[string]uint16{
	"": 0b000, "M": 0b001, "D": 0b010, "A": 0b100,
	"MD": 0b011, "AM": 0b101, "AD": 0b110, "AMD": 0b111,
}

// JumpTable resolves a C instruction's jump mnemonic ("null" is the empty
// string) to its 3-bit j1j2j3 field.
var JumpTable = map[string]uint16{
	"": 0b000, "JGT": 0b001, "JEQ": 0b010, "JGE": 0b011,
	"JLT": 0b100, "JNE": 0b101, "JLE": 0b110, "JMP": 0b111,
}

// ----------------------------------------------------------------------------
// Code generator

// CodeGenerator turns a lowered Program (labels already resolved to
// addresses) into its 16-bit binary text encoding, one line per
// instruction. A Label reference not already present in its SymbolTable is
// treated as a fresh variable and bound to the next free RAM address
// starting at 16.
type CodeGenerator struct {
	program    Program     // Instructions to translate, in order
	table      SymbolTable // Resolves labels/variables to their address
	nVarOffset uint16      // Next free slot past RAM address 16
}

// NewCodeGenerator wires a Program together with the SymbolTable produced
// during lowering; the table keeps accumulating new-variable bindings as
// Generate runs.
func NewCodeGenerator(p Program, st SymbolTable) CodeGenerator {
	return CodeGenerator{program: p, table: st}
}

// Generate walks the Program instruction by instruction and returns the
// binary encoding of each, in the same order.
func (cg *CodeGenerator) Generate() ([]string, error) {
	encoded := make([]string, 0, len(cg.program))

	for _, instruction := range cg.program {
		var line string
		var err error

		switch inst := instruction.(type) {
		case AInstruction:
			line, err = cg.GenerateAInst(inst)
		case CInstruction:
			line, err = cg.GenerateCInst(inst)
		default:
			err = fmt.Errorf("unrecognized instruction type %T", instruction)
		}

		if err != nil {
			return nil, err
		}
		encoded = append(encoded, line)
	}

	return encoded, nil
}

// GenerateAInst resolves an A instruction's location to a concrete address
// and renders it as 16 bits with the leading opcode bit clear.
func (cg *CodeGenerator) GenerateAInst(inst AInstruction) (string, error) {
	found, address := false, uint16(0)

	switch inst.LocType {
	case Raw: // A decimal literal, parsed directly
		num, err := strconv.ParseUint(inst.LocName, 10, 16)
		address, found = uint16(num), err == nil
	case Label: // Lookup in the SymbolTable; allocate if first reference
		address, found = cg.table[inst.LocName]
		if !found {
			address, found = 16+cg.nVarOffset, true
			cg.table[inst.LocName] = address
			cg.nVarOffset++
		}
	case BuiltIn: // Lookup in the predefined-symbol table
		address, found = BuiltInTable[inst.LocName]
	}

	if !found {
		return "", fmt.Errorf("unable to resolve address for location %q", inst.LocName)
	}
	// The leading bit is the opcode, so only the lower 15 bits can address memory.
	if address >= MaxAddressableMemory {
		return "", fmt.Errorf("location %q resolved to an out-of-bound address %d", inst.LocName, address)
	}

	return fmt.Sprintf("%016b", address), nil
}

// GenerateCInst assembles the 111accccccdddjjj layout for a C instruction:
// opcode, computation, destination, jump. Comp is mandatory; an unknown
// mnemonic in any field is an error.
func (cg *CodeGenerator) GenerateCInst(inst CInstruction) (string, error) {
	command := uint16(0b111 << 13)

	opcode, found := CompTable[inst.Comp]
	if !found {
		return "", fmt.Errorf("unable to translate C instruction, unknown 'comp' opcode %q", inst.Comp)
	}
	command |= opcode << 6

	dest, found := DestTable[inst.Dest]
	if !found {
		return "", fmt.Errorf("unable to translate C instruction, unknown 'dest' opcode %q", inst.Dest)
	}
	command |= dest << 3

	jump, found := JumpTable[inst.Jump]
	if !found {
		return "", fmt.Errorf("unable to translate C instruction, unknown 'jump' opcode %q", inst.Jump)
	}
	command |= jump

	return fmt.Sprintf("%016b", command), nil
}
