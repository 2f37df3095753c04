package hivetype

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGrammar matches every *GrammarError.
	ErrGrammar = errors.New("hivetype: grammar error")
	// ErrTraversal matches every *TraversalError.
	ErrTraversal = errors.New("hivetype: traversal error")
)

// GrammarError reports a type definition string that does not follow the grammar.
type GrammarError struct {
	Msg string
	// Source is the full string being parsed.
	Source string
	// Token is the offending token, nil when the input ended early.
	Token *Token
}

func (e *GrammarError) Error() string {
	var b strings.Builder
	b.WriteString("hivetype: ")
	b.WriteString(e.Msg)
	if e.Token != nil {
		fmt.Fprintf(&b, ", got %s", e.Token)
	}
	fmt.Fprintf(&b, " (source %q)", e.Source)
	return b.String()
}

func (e *GrammarError) Is(err error) bool {
	return err == ErrGrammar
}

// TraversalError reports a node the visitor cannot walk.
type TraversalError struct {
	Msg  string
	Path []string
}

func (e *TraversalError) Error() string {
	if len(e.Path) == 0 {
		return "hivetype: " + e.Msg
	}
	return fmt.Sprintf("hivetype: %s at %s", e.Msg, strings.Join(e.Path, "."))
}

func (e *TraversalError) Is(err error) bool {
	return err == ErrTraversal
}
