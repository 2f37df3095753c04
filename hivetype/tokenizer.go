package hivetype

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer is a consumable, front-to-back sequence of tokens.
// Any string is tokenizable; structural problems are reported by the parser.
type Tokenizer struct {
	tokens []Token
	next   int
}

// Tokenize splits s into tokens. Whitespace and punctuation are word
// boundaries; punctuation characters become tokens of their own.
func Tokenize(s string) *Tokenizer {
	var tokens []Token
	wordStart := -1

	flush := func(end int) {
		if wordStart >= 0 {
			tokens = append(tokens, newToken(s[wordStart:end], wordStart))
			wordStart = -1
		}
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			flush(i)
		case strings.ContainsRune(punctuation, r):
			flush(i)
			tokens = append(tokens, newToken(s[i:i+size], i))
		default:
			if wordStart < 0 {
				wordStart = i
			}
		}
		i += size
	}
	flush(len(s))

	return &Tokenizer{tokens: tokens}
}

// HasNext reports whether tokens remain.
func (t *Tokenizer) HasNext() bool {
	return t.next < len(t.tokens)
}

// Peek returns the next token without consuming it.
func (t *Tokenizer) Peek() (Token, bool) {
	if !t.HasNext() {
		return Token{}, false
	}
	return t.tokens[t.next], true
}

// Next consumes and returns the next token.
func (t *Tokenizer) Next() (Token, bool) {
	tok, ok := t.Peek()
	if ok {
		t.next++
	}
	return tok, ok
}

// Remaining returns the tokens not consumed yet.
func (t *Tokenizer) Remaining() []Token {
	return append([]Token(nil), t.tokens[t.next:]...)
}

// TopIs reports whether the next token has the given kind.
func (t *Tokenizer) TopIs(kind TokenKind) bool {
	tok, ok := t.Peek()
	return ok && tok.Kind == kind
}

func (t *Tokenizer) String() string {
	parts := make([]string, 0, len(t.tokens)-t.next)
	for _, tok := range t.tokens[t.next:] {
		parts = append(parts, tok.String())
	}
	return "Tokenizer[\n    " + strings.Join(parts, ",\n    ") + "\n]"
}
