package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHackAssembler(t *testing.T) {
	test := func(name, source string, expected []string) {
		dir := t.TempDir()
		input := filepath.Join(dir, name+".asm")
		output := filepath.Join(dir, name+".hack")

		if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
			t.Fatalf("unable to seed input fixture: %v", err)
		}

		if status := Handler([]string{input, output}, nil); status != 0 {
			t.Fatalf("unexpected exit status: expected 0 got %d", status)
		}

		got, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("unable to read assembler output: %v", err)
		}

		gotLines := strings.Split(strings.TrimRight(string(got), "\n"), "\n")
		if len(gotLines) != len(expected) {
			t.Fatalf("expected %d lines, got %d: %v", len(expected), len(gotLines), gotLines)
		}
		for i := range expected {
			if gotLines[i] != expected[i] {
				t.Fatalf("line %d: expected %q got %q", i, expected[i], gotLines[i])
			}
		}
	}

	t.Run("Add two constants", func(t *testing.T) {
		source := strings.Join([]string{
			"@2", "D=A", "@3", "D=D+A", "@0", "M=D",
		}, "\n")
		expected := []string{
			"0000000000000010", "1110110000010000",
			"0000000000000011", "1110000010010000",
			"0000000000000000", "1110001100001000",
		}
		test("Add", source, expected)
	})

	t.Run("Loop with a forward and backward label", func(t *testing.T) {
		source := strings.Join([]string{
			"@0", "D=M", "@END", "D;JLE",
			"(LOOP)", "@1", "M=M+1", "@LOOP", "0;JMP",
			"(END)", "@0", "M=0",
		}, "\n")
		expected := []string{
			"0000000000000000", "1111110000010000",
			"0000000000001000", "1110001100000110",
			"0000000000000001", "1111110111001000",
			"0000000000000100", "1110101010000111",
			"0000000000000000", "1110101010001000",
		}
		test("Loop", source, expected)
	})

	t.Run("Missing input file reports an error", func(t *testing.T) {
		if status := Handler([]string{"/nonexistent.asm", filepath.Join(t.TempDir(), "out.hack")}, nil); status == 0 {
			t.Fatal("expected a non-zero exit status for a missing input file")
		}
	})
}
