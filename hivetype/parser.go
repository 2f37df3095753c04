package hivetype

import (
	"errors"
	"fmt"
)

// MaxDepth bounds the nesting of array and struct constructors.
const MaxDepth = 1000

// Parse parses a type definition string:
//
//	Type  := 'struct' '<' Field (',' Field)* [','] '>'
//	       | 'array' '<' Type '>'
//	       | WORD
//	Field := WORD ':' Type
//
// Exactly one Type must be present; trailing tokens are an error.
// Failures are *GrammarError values carrying s as their source.
func Parse(s string) (Type, error) {
	p := &parser{tokens: Tokenize(s), tree: NewTree()}

	t, err := p.parseType(0)
	if err == nil && p.tokens.HasNext() {
		tok, _ := p.tokens.Next()
		err = p.errorf(&tok, "end-of-string expected")
	}
	if err != nil {
		var grammarErr *GrammarError
		if errors.As(err, &grammarErr) {
			grammarErr.Source = s
		}
		return Type{}, err
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Type {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	tokens *Tokenizer
	tree   *Tree
}

func (p *parser) parseType(depth int) (Type, error) {
	if depth > MaxDepth {
		var at *Token
		if tok, ok := p.tokens.Peek(); ok {
			at = &tok
		}
		return Type{}, p.errorf(at, "nesting deeper than %d levels", MaxDepth)
	}

	tok, ok := p.tokens.Next()
	if !ok {
		return Type{}, p.errorf(nil, "expected array, struct or simple type but no token remains")
	}

	b := p.tree.NewBuilder()
	switch tok.Kind {
	case TokenStruct:
		b.StructType()
		if _, err := p.expect(TokenLess); err != nil {
			return Type{}, err
		}
		for !p.tokens.TopIs(TokenGreater) {
			name, err := p.expect(TokenWord)
			if err != nil {
				return Type{}, err
			}
			if _, err := p.expect(TokenColon); err != nil {
				return Type{}, err
			}
			fieldType, err := p.parseType(depth + 1)
			if err != nil {
				return Type{}, err
			}
			b.AddStructField(name.Value, fieldType)

			if p.tokens.TopIs(TokenComma) {
				p.tokens.Next()
			} else if _, err := p.peekExpect(TokenGreater); err != nil {
				return Type{}, err
			}
		}
		p.tokens.Next()

	case TokenArray:
		if _, err := p.expect(TokenLess); err != nil {
			return Type{}, err
		}
		elem, err := p.parseType(depth + 1)
		if err != nil {
			return Type{}, err
		}
		b.ArrayType(elem)
		if _, err := p.expect(TokenGreater); err != nil {
			return Type{}, err
		}

	case TokenWord:
		b.SimpleType(tok.Value)

	default:
		return Type{}, p.errorf(&tok, "expected array, struct or simple type")
	}

	return b.Build(), nil
}

// peekExpect checks the kind of the next token without consuming it.
func (p *parser) peekExpect(kind TokenKind) (Token, error) {
	tok, ok := p.tokens.Peek()
	if !ok {
		return Token{}, p.errorf(nil, "expected token of type %s but no token remains", kind)
	}
	if tok.Kind != kind {
		return Token{}, p.errorf(&tok, "expected token of type %s", kind)
	}
	return tok, nil
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok, err := p.peekExpect(kind)
	if err != nil {
		return Token{}, err
	}
	p.tokens.Next()
	return tok, nil
}

func (p *parser) errorf(tok *Token, format string, args ...any) error {
	return &GrammarError{Msg: fmt.Sprintf(format, args...), Token: tok}
}
