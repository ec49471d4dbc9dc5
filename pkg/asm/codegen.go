package asm

import (
	"errors"
	"fmt"

	"hacktoolchain.dev/n2t/pkg/hack"
)

// ----------------------------------------------------------------------------
// Code generator

// CodeGenerator renders a Program back to its canonical textual form. It is
// used wherever a normalized .asm rendering of a parsed program is needed
// (fixture generation, round-trip tests) rather than the binary encoding
// the assembler itself ultimately produces via pkg/hack.
type CodeGenerator struct {
	program Program
}

// NewCodeGenerator wraps a Program for textual rendering.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// Generate renders each statement to its textual line, in order.
func (cg *CodeGenerator) Generate() ([]string, error) {
	lines := make([]string, 0, len(cg.program))

	for _, stmt := range cg.program {
		var line string
		var err error

		switch tStmt := stmt.(type) {
		case AInstruction:
			line, err = cg.GenerateAInst(tStmt)
		case CInstruction:
			line, err = cg.GenerateCInst(tStmt)
		case LabelDecl:
			line, err = cg.GenerateLabelDecl(tStmt)
		default:
			err = fmt.Errorf("unrecognized statement type %T", stmt)
		}

		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// GenerateAInst renders "@Location".
func (CodeGenerator) GenerateAInst(stmt AInstruction) (string, error) {
	if stmt.Location == "" {
		return "", errors.New("an A instruction requires a non-empty location")
	}
	return fmt.Sprintf("@%s", stmt.Location), nil
}

// GenerateCInst renders "dest=comp", "comp;jump", or "dest=comp;jump"
// depending on which of Dest/Jump are present.
func (CodeGenerator) GenerateCInst(stmt CInstruction) (string, error) {
	if stmt.Comp == "" {
		return "", errors.New("a C instruction always requires a 'comp' field")
	}

	switch {
	case stmt.Dest != "" && stmt.Jump != "":
		return fmt.Sprintf("%s=%s;%s", stmt.Dest, stmt.Comp, stmt.Jump), nil
	case stmt.Dest != "":
		return fmt.Sprintf("%s=%s", stmt.Dest, stmt.Comp), nil
	case stmt.Jump != "":
		return fmt.Sprintf("%s;%s", stmt.Comp, stmt.Jump), nil
	default:
		return stmt.Comp, nil
	}
}

// GenerateLabelDecl renders "(Name)", rejecting any attempt to shadow a
// built-in symbol.
func (CodeGenerator) GenerateLabelDecl(stmt LabelDecl) (string, error) {
	if _, found := hack.BuiltInTable[stmt.Name]; found {
		return "", fmt.Errorf("cannot declare label %q, it shadows a built-in symbol", stmt.Name)
	}
	return fmt.Sprintf("(%s)", stmt.Name), nil
}
