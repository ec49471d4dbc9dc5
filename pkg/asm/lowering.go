package asm

import (
	"errors"
	"fmt"
	"strconv"

	"hacktoolchain.dev/n2t/pkg/hack"
)

// ----------------------------------------------------------------------------
// Lowerer

// Lowerer turns a parsed Program into its hack.Program counterpart: label
// declarations are stripped out and recorded as ROM addresses in a
// hack.SymbolTable, while every instruction is tagged with how its operand
// should eventually be resolved (Raw address, BuiltIn name, or Label).
type Lowerer struct{ program Program }

// NewLowerer wraps a non-empty Program ready for lowering.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Lower walks the Program statement by statement. A Label declaration binds
// its name to the address of the next instruction (len(converted), since
// declarations themselves occupy no ROM slot) instead of advancing the
// output; every other statement lowers to one hack.Instruction.
func (l *Lowerer) Lower() (hack.Program, hack.SymbolTable, error) {
	if len(l.program) == 0 {
		return nil, nil, fmt.Errorf("the given program is empty")
	}

	converted := hack.Program{}
	table := hack.SymbolTable{}

	for _, stmt := range l.program {
		switch tStmt := stmt.(type) {
		case AInstruction:
			hackInst, err := l.HandleAInst(tStmt)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case CInstruction:
			hackInst, err := l.HandleCInst(tStmt)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case LabelDecl:
			label, err := l.HandleLabelDecl(tStmt)
			if err != nil {
				return nil, nil, err
			}
			if _, found := hack.BuiltInTable[label]; found {
				return nil, nil, fmt.Errorf("cannot declare label %q, it shadows a built-in symbol", label)
			}
			table[label] = uint16(len(converted))

		default:
			return nil, nil, fmt.Errorf("unrecognized statement '%T'", stmt)
		}
	}

	return converted, table, nil
}

// HandleAInst classifies an AInstruction's location: a name already present
// in the built-in table, a decimal literal (one too large for 16 bits is
// still a literal, left for codegen to reject as out of range), or (by
// elimination) a user-defined label to be resolved against the symbol
// table at codegen.
func (Lowerer) HandleAInst(inst AInstruction) (hack.Instruction, error) {
	if _, found := hack.BuiltInTable[inst.Location]; found {
		return hack.AInstruction{LocType: hack.BuiltIn, LocName: inst.Location}, nil
	}
	if _, err := strconv.ParseUint(inst.Location, 10, 16); err == nil || errors.Is(err, strconv.ErrRange) {
		return hack.AInstruction{LocType: hack.Raw, LocName: inst.Location}, nil
	}
	return hack.AInstruction{LocType: hack.Label, LocName: inst.Location}, nil
}

// HandleCInst carries a CInstruction's three fields straight over to its
// hack.CInstruction counterpart; Comp is mandatory, Dest and Jump may both
// be present, either, or neither.
func (Lowerer) HandleCInst(inst CInstruction) (hack.Instruction, error) {
	if inst.Comp == "" {
		return nil, fmt.Errorf("a C instruction always requires a 'comp' field")
	}
	return hack.CInstruction{Comp: inst.Comp, Dest: inst.Dest, Jump: inst.Jump}, nil
}

// HandleLabelDecl extracts the identifier bound by a LabelDecl.
func (Lowerer) HandleLabelDecl(decl LabelDecl) (string, error) {
	return decl.Name, nil
}
