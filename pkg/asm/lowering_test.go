package asm_test

import (
	"testing"

	"hacktoolchain.dev/n2t/pkg/asm"
	"hacktoolchain.dev/n2t/pkg/hack"
)

func TestLowererResolvesLocationKinds(t *testing.T) {
	program := asm.Program{
		asm.AInstruction{Location: "SCREEN"},
		asm.AInstruction{Location: "16"},
		asm.LabelDecl{Name: "LOOP"},
		asm.AInstruction{Location: "LOOP"},
		asm.CInstruction{Comp: "D", Dest: "A"},
	}

	lowerer := asm.NewLowerer(program)
	hackProgram, table, err := lowerer.Lower()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hackProgram) != 4 {
		t.Fatalf("expected 4 lowered instructions (the label decl emits none), got %d", len(hackProgram))
	}

	first, ok := hackProgram[0].(hack.AInstruction)
	if !ok || first.LocType != hack.BuiltIn {
		t.Fatalf("expected first instruction to be a BuiltIn AInstruction, got %+v", hackProgram[0])
	}

	second, ok := hackProgram[1].(hack.AInstruction)
	if !ok || second.LocType != hack.Raw {
		t.Fatalf("expected second instruction to be a Raw AInstruction, got %+v", hackProgram[1])
	}

	third, ok := hackProgram[2].(hack.AInstruction)
	if !ok || third.LocType != hack.Label {
		t.Fatalf("expected third instruction to be a Label AInstruction, got %+v", hackProgram[2])
	}

	// LOOP was declared right before its own reference, so it resolves to
	// the address of the instruction that follows the label: index 2.
	if addr, found := table["LOOP"]; !found || addr != 2 {
		t.Fatalf("expected LOOP bound to address 2, got %d (found=%v)", addr, found)
	}
}

func TestLowererRejectsEmptyProgram(t *testing.T) {
	lowerer := asm.NewLowerer(asm.Program{})
	if _, _, err := lowerer.Lower(); err == nil {
		t.Fatal("expected an error lowering an empty program")
	}
}

func TestLowererRejectsCInstWithoutComp(t *testing.T) {
	lowerer := asm.NewLowerer(asm.Program{asm.CInstruction{Dest: "D"}})
	if _, _, err := lowerer.Lower(); err == nil {
		t.Fatal("expected an error lowering a C instruction with no 'comp' field")
	}
}

func TestLowererRejectsLabelShadowingBuiltIn(t *testing.T) {
	program := asm.Program{
		asm.LabelDecl{Name: "SP"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "A", Dest: "D"},
	}

	lowerer := asm.NewLowerer(program)
	if _, _, err := lowerer.Lower(); err == nil {
		t.Fatal("expected an error lowering a label that shadows a built-in symbol")
	}
}
