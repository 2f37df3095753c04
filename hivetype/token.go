package hivetype

import "fmt"

// TokenKind classifies a token produced by the tokenizer.
type TokenKind int

const (
	// TokenWord is any token that is not punctuation or a keyword:
	// field names and primitive type names.
	TokenWord TokenKind = iota
	TokenLess
	TokenGreater
	TokenComma
	TokenColon
	TokenArray
	TokenStruct
)

const punctuation = "<>,:"

var fixedTokens = map[string]TokenKind{
	"<":      TokenLess,
	">":      TokenGreater,
	",":      TokenComma,
	":":      TokenColon,
	"array":  TokenArray,
	"struct": TokenStruct,
}

func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "WORD"
	case TokenLess:
		return "FIXED<"
	case TokenGreater:
		return "FIXED>"
	case TokenComma:
		return "FIXED,"
	case TokenColon:
		return "FIXED:"
	case TokenArray:
		return "FIXEDarray"
	case TokenStruct:
		return "FIXEDstruct"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is a single lexical unit of a type definition string.
type Token struct {
	Value string
	// Position is the byte offset of the token in the source string.
	Position int
	Kind     TokenKind
}

func newToken(value string, position int) Token {
	kind, ok := fixedTokens[value]
	if !ok {
		kind = TokenWord
	}
	return Token{Value: value, Position: position, Kind: kind}
}

// IsFixed reports whether the token is punctuation or a keyword.
func (t Token) IsFixed() bool {
	return t.Kind != TokenWord
}

func (t Token) String() string {
	return fmt.Sprintf("Token(type=%s,value=%s,position=%d)", t.Kind, t.Value, t.Position)
}
