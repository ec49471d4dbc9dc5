// Package asm models the surface syntax of the Hack assembly language: the
// statements a parser produces before labels are resolved to addresses.
package asm

// ----------------------------------------------------------------------------
// General information

// Statement is the marker interface for every parsed construct: a label
// declaration, an A instruction, or a C instruction.
type Statement interface{}

// Program is the raw, unlowered sequence of statements straight out of the
// parser: labels are still unresolved symbols, not yet addresses.
type Program []Statement

// ----------------------------------------------------------------------------
// Label declarations

// LabelDecl binds a name to the address of the instruction that follows it,
// e.g. "(LOOP)". Lowering turns every LabelDecl into an entry of the symbol
// table handed to the code generator; the declaration itself emits no code.
type LabelDecl struct {
	Name string
}

// ----------------------------------------------------------------------------
// A instructions

// AInstruction loads a 15-bit value into the A register, e.g. "@17",
// "@LOOP", "@SCREEN". Location is resolved to a Raw/Label/BuiltIn kind
// during lowering; the parser itself does not need to know which it is.
type AInstruction struct {
	Location string
}

// ----------------------------------------------------------------------------
// C instructions

// CInstruction drives the ALU, e.g. "D=D+A;JGT". Comp is mandatory; Dest
// and Jump are the empty string when the corresponding clause is absent.
type CInstruction struct {
	Comp string
	Dest string
	Jump string
}
