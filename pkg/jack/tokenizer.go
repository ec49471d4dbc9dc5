package jack

import (
	"fmt"
	"regexp"
	"strings"

	"hacktoolchain.dev/n2t/internal/lexutil"
)

// identRegex matches both identifiers and keywords; the two are told apart
// after the fact by looking the matched text up in the keywords set.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)

// intRegex matches an unsigned decimal integer constant.
var intRegex = regexp.MustCompile(`^[0-9]+`)

// stringRegex matches a double-quoted string constant; Jack strings may not
// contain a newline or an embedded quote.
var stringRegex = regexp.MustCompile(`^"([^"\n]*)"`)

// Tokenizer turns sanitized Jack source into a flat slice of Tokens. It has
// no notion of grammar: that is the Parser's job.
type Tokenizer struct {
	src []rune
	pos int
}

// NewTokenizer sanitizes src (stripping comments) and prepares it for
// token-by-token scanning.
func NewTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: []rune(lexutil.StripComments(src))}
}

// Tokenize scans the entire source and returns every token in order, or an
// error quoting the source text at the offending spot if some run of
// characters matches none of the Jack lexical categories.
func (t *Tokenizer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		t.skipSpace()
		if t.pos >= len(t.src) {
			break
		}

		tok, width, err := t.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		t.pos += width
	}
	return tokens, nil
}

func (t *Tokenizer) skipSpace() {
	for t.pos < len(t.src) && isSpace(t.src[t.pos]) {
		t.pos++
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// next matches exactly one token starting at the current position and
// returns it along with how many runes of source it consumed.
func (t *Tokenizer) next() (Token, int, error) {
	rest := string(t.src[t.pos:])

	if m := stringRegex.FindStringSubmatch(rest); m != nil {
		return Token{Type: StringConst, Value: m[1]}, len([]rune(m[0])), nil
	}
	if m := intRegex.FindString(rest); m != "" {
		return Token{Type: IntConst, Value: m}, len([]rune(m)), nil
	}
	if m := identRegex.FindString(rest); m != "" {
		if keywords[m] {
			return Token{Type: Keyword, Value: m}, len([]rune(m)), nil
		}
		return Token{Type: Identifier, Value: m}, len([]rune(m)), nil
	}
	if symbols[byte(t.src[t.pos])] {
		return Token{Type: Symbol, Value: string(t.src[t.pos])}, 1, nil
	}

	snippet := rest
	if len(snippet) > 20 {
		snippet = snippet[:20]
	}
	return Token{}, 0, fmt.Errorf("unrecognized token near %q", strings.TrimSpace(snippet))
}
