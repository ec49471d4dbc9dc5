package vm

import (
	"fmt"
	"sort"

	"hacktoolchain.dev/n2t/pkg/asm"
)

// segmentBase names the pointer held in RAM that anchors a base-relative
// segment; "constant" and "static" are resolved differently and never
// appear here.
var segmentBase = map[SegmentType]string{
	Local: "LCL", Argument: "ARG", This: "THIS", That: "THAT",
}

// fixedBase names the predefined symbol a constant-offset segment starts
// counting from: pointer from THIS itself (R3), temp from R5.
var fixedBase = map[SegmentType]string{
	Pointer: "R3", Temp: "R5",
}

// Lowerer flattens a whole Program (every translation unit keyed by file
// stem) into one asm.Program, in stem-sorted order so the output is
// reproducible across runs.
type Lowerer struct{ program Program }

// NewLowerer wraps the parsed Program that will be lowered.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Bootstrap returns the preamble that initializes SP to the base of the
// stack and transfers control to Sys.init with no arguments, for a
// translation run that opted into bootstrap code. It reuses the ordinary
// call-lowering logic under a reserved stem so its return label can never
// collide with a real module's call sites.
func Bootstrap() asm.Program {
	ml := &moduleLowerer{stem: "Bootstrap"}
	call, _ := ml.lowerFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0, Index: 0})

	preamble := asm.Program{
		asm.AInstruction{Location: "256"}, asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "D", Dest: "M"},
	}
	for _, stmt := range call {
		preamble = append(preamble, stmt)
	}
	return preamble
}

// Lower walks every module in stem-sorted order and concatenates their
// lowered instructions. Every module but "Sys" is wrapped in a skip guard
// so that, once every module is concatenated into one assembly file,
// falling off the end of one module's functions never spills execution
// into the next module's function bodies.
func (l *Lowerer) Lower() (asm.Program, error) {
	stems := make([]string, 0, len(l.program))
	for stem := range l.program {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	out := asm.Program{}
	for _, stem := range stems {
		ml := &moduleLowerer{stem: stem}
		lowered, err := ml.lowerModule(l.program[stem])
		if err != nil {
			return nil, fmt.Errorf("module %q: %s", stem, err)
		}

		if stem == "Sys" {
			out = append(out, lowered...)
			continue
		}

		guard := fmt.Sprintf("FILE_%s_END", stem)
		out = append(out, asm.AInstruction{Location: guard})
		out = append(out, asm.CInstruction{Comp: "0", Jump: "JMP"})
		out = append(out, lowered...)
		out = append(out, asm.LabelDecl{Name: guard})
	}

	return out, nil
}

// moduleLowerer lowers one .vm file. currentFunction scopes label/goto
// names and is threaded explicitly as state on the struct rather than a
// package-level global, since several modules are lowered in the same
// process run. cmpIndex disambiguates the TRUE/FALSE/END labels generated
// for successive eq/gt/lt ops within this module.
type moduleLowerer struct {
	stem            string
	currentFunction string
	cmpIndex        int
}

func (ml *moduleLowerer) lowerModule(module Module) (asm.Program, error) {
	out := asm.Program{}

	for _, op := range module {
		var stmts []asm.Statement
		var err error

		switch o := op.(type) {
		case MemoryOp:
			stmts, err = ml.lowerMemoryOp(o)
		case ArithmeticOp:
			stmts, err = ml.lowerArithmeticOp(o)
		case LabelDecl:
			stmts, err = ml.lowerLabelDecl(o)
		case GotoOp:
			stmts, err = ml.lowerGotoOp(o)
		case FuncDecl:
			stmts, err = ml.lowerFuncDecl(o)
		case FuncCallOp:
			stmts, err = ml.lowerFuncCallOp(o)
		case ReturnOp:
			stmts, err = ml.lowerReturnOp(o)
		default:
			err = fmt.Errorf("unrecognized operation %T", op)
		}

		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}

	return out, nil
}

// scopedLabel prefixes a label or goto target with the enclosing
// function, or with the file stem when the reference sits at the top
// level (as in a function-less translation unit).
func (ml *moduleLowerer) scopedLabel(name string) string {
	if ml.currentFunction == "" {
		return fmt.Sprintf("%s$%s", ml.stem, name)
	}
	return fmt.Sprintf("%s$%s", ml.currentFunction, name)
}

// ----------------------------------------------------------------------------
// Stack primitives shared by every memory and arithmetic op.

// pushD appends whatever is in D onto the stack and advances SP.
func pushD() []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
}

// popD retreats SP and loads the popped value into D.
func popD() []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
	}
}

// ----------------------------------------------------------------------------
// Memory access

func (ml *moduleLowerer) lowerMemoryOp(op MemoryOp) ([]asm.Statement, error) {
	switch op.Operation {
	case Push:
		return ml.lowerPush(op.Segment, op.Offset)
	case Pop:
		return ml.lowerPop(op.Segment, op.Offset)
	default:
		return nil, fmt.Errorf("unrecognized memory operation %q", op.Operation)
	}
}

func (ml *moduleLowerer) lowerPush(segment SegmentType, offset uint16) ([]asm.Statement, error) {
	switch segment {
	case Constant:
		stmts := []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Comp: "A", Dest: "D"},
		}
		return append(stmts, pushD()...), nil

	case Static:
		stmts := []asm.Statement{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", ml.stem, offset)}, asm.CInstruction{Comp: "M", Dest: "D"},
		}
		return append(stmts, pushD()...), nil

	case Local, Argument, This, That:
		stmts := []asm.Statement{
			asm.AInstruction{Location: segmentBase[segment]}, asm.CInstruction{Comp: "M", Dest: "A"},
		}
		for i := uint16(0); i < offset; i++ {
			stmts = append(stmts, asm.CInstruction{Comp: "A+1", Dest: "A"})
		}
		stmts = append(stmts, asm.CInstruction{Comp: "M", Dest: "D"})
		return append(stmts, pushD()...), nil

	case Pointer, Temp:
		stmts := []asm.Statement{asm.AInstruction{Location: fixedBase[segment]}}
		for i := uint16(0); i < offset; i++ {
			stmts = append(stmts, asm.CInstruction{Comp: "A+1", Dest: "A"})
		}
		stmts = append(stmts, asm.CInstruction{Comp: "M", Dest: "D"})
		return append(stmts, pushD()...), nil

	default:
		return nil, fmt.Errorf("unrecognized segment %q", segment)
	}
}

func (ml *moduleLowerer) lowerPop(segment SegmentType, offset uint16) ([]asm.Statement, error) {
	switch segment {
	case Static:
		stmts := popD()
		stmts = append(stmts, asm.AInstruction{Location: fmt.Sprintf("%s.%d", ml.stem, offset)})
		stmts = append(stmts, asm.CInstruction{Comp: "D", Dest: "M"})
		return stmts, nil

	case Local, Argument, This, That:
		stmts := popD()
		stmts = append(stmts, asm.AInstruction{Location: segmentBase[segment]}, asm.CInstruction{Comp: "M", Dest: "A"})
		for i := uint16(0); i < offset; i++ {
			stmts = append(stmts, asm.CInstruction{Comp: "A+1", Dest: "A"})
		}
		stmts = append(stmts, asm.CInstruction{Comp: "D", Dest: "M"})
		return stmts, nil

	case Pointer, Temp:
		stmts := popD()
		stmts = append(stmts, asm.AInstruction{Location: fixedBase[segment]})
		for i := uint16(0); i < offset; i++ {
			stmts = append(stmts, asm.CInstruction{Comp: "A+1", Dest: "A"})
		}
		stmts = append(stmts, asm.CInstruction{Comp: "D", Dest: "M"})
		return stmts, nil

	case Constant:
		return nil, fmt.Errorf("cannot pop into the read-only 'constant' segment")

	default:
		return nil, fmt.Errorf("unrecognized segment %q", segment)
	}
}

// ----------------------------------------------------------------------------
// Arithmetic and logical operations

func (ml *moduleLowerer) lowerArithmeticOp(op ArithmeticOp) ([]asm.Statement, error) {
	switch op.Operation {
	case Add:
		return ml.binary("M+D"), nil
	case Sub:
		return ml.binary("M-D"), nil
	case And:
		return ml.binary("M&D"), nil
	case Or:
		return ml.binary("M|D"), nil
	case Neg:
		return ml.unary("-M"), nil
	case Not:
		return ml.unary("!M"), nil
	case Eq:
		return ml.comparison("JEQ"), nil
	case Gt:
		return ml.comparison("JGT"), nil
	case Lt:
		return ml.comparison("JLT"), nil
	default:
		return nil, fmt.Errorf("unrecognized arithmetic operation %q", op.Operation)
	}
}

// binary pops the top of the stack into D, then applies comp against the
// new top of stack (M) and leaves the result there.
func (ml *moduleLowerer) binary(comp string) []asm.Statement {
	stmts := popD()
	return append(stmts,
		asm.CInstruction{Comp: "A-1", Dest: "A"},
		asm.CInstruction{Comp: comp, Dest: "M"},
	)
}

// unary rewrites the top-of-stack slot in place with comp.
func (ml *moduleLowerer) unary(comp string) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: comp, Dest: "M"},
	}
}

// comparison pops the top two values, subtracts them, and branches to one
// of two indexed labels depending on whether the jump condition holds,
// leaving -1 (true) or 0 (false) on top of the stack.
func (ml *moduleLowerer) comparison(jump string) []asm.Statement {
	n := ml.cmpIndex
	ml.cmpIndex++

	trueLabel := fmt.Sprintf("%s$TRUE.%d", ml.stem, n)
	falseLabel := fmt.Sprintf("%s$FALSE.%d", ml.stem, n)
	endLabel := fmt.Sprintf("%s$END.%d", ml.stem, n)

	stmts := popD()
	stmts = append(stmts,
		asm.CInstruction{Comp: "A-1", Dest: "A"},
		asm.CInstruction{Comp: "M-D", Dest: "D"},

		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},

		asm.AInstruction{Location: falseLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},

		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "-1", Dest: "M"},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},

		asm.LabelDecl{Name: falseLabel},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "0", Dest: "M"},

		asm.LabelDecl{Name: endLabel},
	)
	return stmts
}

// ----------------------------------------------------------------------------
// Program flow

func (ml *moduleLowerer) lowerLabelDecl(op LabelDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("label declaration has no name")
	}
	return []asm.Statement{asm.LabelDecl{Name: ml.scopedLabel(op.Name)}}, nil
}

func (ml *moduleLowerer) lowerGotoOp(op GotoOp) ([]asm.Statement, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("jump has no target label")
	}

	target := ml.scopedLabel(op.Label)
	switch op.Jump {
	case Unconditional:
		return []asm.Statement{
			asm.AInstruction{Location: target}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	case Conditional:
		stmts := popD()
		return append(stmts,
			asm.AInstruction{Location: target}, asm.CInstruction{Comp: "D", Jump: "JNE"},
		), nil
	default:
		return nil, fmt.Errorf("unrecognized jump kind %q", op.Jump)
	}
}

// ----------------------------------------------------------------------------
// Functions

func (ml *moduleLowerer) lowerFuncDecl(op FuncDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("function declaration has no name")
	}

	ml.currentFunction = op.Name

	stmts := []asm.Statement{asm.LabelDecl{Name: fmt.Sprintf("FUNC_%s_START", op.Name)}}
	for i := uint16(0); i < op.NLocals; i++ {
		stmts = append(stmts,
			asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M", Dest: "A"},
			asm.CInstruction{Comp: "0", Dest: "M"},
			asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M+1", Dest: "M"},
		)
	}
	return stmts, nil
}

func (ml *moduleLowerer) lowerReturnOp(ReturnOp) ([]asm.Statement, error) {
	return []asm.Statement{
		// FRAME = LCL, saved in R13
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "D", Dest: "M"},
		// RET = *(FRAME - 5), saved in R14 before the frame is overwritten
		asm.AInstruction{Location: "5"}, asm.CInstruction{Comp: "D-A", Dest: "A"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R14"}, asm.CInstruction{Comp: "D", Dest: "M"},
		// *ARG = pop()
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Comp: "M+1", Dest: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "D", Dest: "M"},
		// THAT, THIS, ARG, LCL restored from the saved frame, back to front
		asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "THAT"}, asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "THIS"}, asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Comp: "D", Dest: "M"},
		// goto RET
		asm.AInstruction{Location: "R14"}, asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}, nil
}

func (ml *moduleLowerer) lowerFuncCallOp(op FuncCallOp) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("function call has no target name")
	}

	returnLabel := fmt.Sprintf("FUNC_%s_END_%s_%d", op.Name, ml.stem, op.Index)
	stmts := []asm.Statement{
		asm.AInstruction{Location: returnLabel}, asm.CInstruction{Comp: "A", Dest: "D"},
	}
	stmts = append(stmts, pushD()...)

	for _, saved := range []string{"LCL", "ARG", "THIS", "THAT"} {
		stmts = append(stmts, asm.AInstruction{Location: saved}, asm.CInstruction{Comp: "M", Dest: "D"})
		stmts = append(stmts, pushD()...)
	}

	stmts = append(stmts,
		// ARG = SP - NArgs - 5
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: fmt.Sprint(op.NArgs + 5)}, asm.CInstruction{Comp: "D-A", Dest: "D"},
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Comp: "D", Dest: "M"},
		// LCL = SP
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Comp: "D", Dest: "M"},
		// jump to the callee, then declare the return site
		asm.AInstruction{Location: fmt.Sprintf("FUNC_%s_START", op.Name)}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: returnLabel},
	)

	return stmts, nil
}
