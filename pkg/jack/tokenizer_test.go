package jack

import "testing"

func TestTokenizerBasicTokens(t *testing.T) {
	src := `class Main {
		// ignored
		field int x;
		/** ignored too */
		function void main() {
			let x = 1 + 2;
			return;
		}
	}`

	tokens, err := NewTokenizer(src).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Token{
		{Keyword, "class"}, {Identifier, "Main"}, {Symbol, "{"},
		{Keyword, "field"}, {Keyword, "int"}, {Identifier, "x"}, {Symbol, ";"},
		{Keyword, "function"}, {Keyword, "void"}, {Identifier, "main"}, {Symbol, "("}, {Symbol, ")"}, {Symbol, "{"},
		{Keyword, "let"}, {Identifier, "x"}, {Symbol, "="}, {IntConst, "1"}, {Symbol, "+"}, {IntConst, "2"}, {Symbol, ";"},
		{Keyword, "return"}, {Symbol, ";"},
		{Symbol, "}"},
		{Symbol, "}"},
	}

	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("token %d: expected %+v got %+v", i, want[i], tokens[i])
		}
	}
}

func TestTokenizerStringConstant(t *testing.T) {
	tokens, err := NewTokenizer(`do Output.printString("Hello, World!");`).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var found bool
	for _, tok := range tokens {
		if tok.Type == StringConst {
			found = true
			if tok.Value != "Hello, World!" {
				t.Fatalf("expected unquoted string value, got %q", tok.Value)
			}
		}
	}
	if !found {
		t.Fatal("expected a stringConstant token")
	}
}

func TestTokenizerRejectsUnrecognizedInput(t *testing.T) {
	if _, err := NewTokenizer("let x = @;").Tokenize(); err == nil {
		t.Fatal("expected an error for an unrecognized symbol")
	}
}

func TestTokenizerStripsComments(t *testing.T) {
	tokens, err := NewTokenizer("// a leading comment\nlet x = 1; /* trailing */").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 5 {
		t.Fatalf("expected comments to be stripped leaving 5 tokens, got %d: %v", len(tokens), tokens)
	}
}
