package viewgen

import (
	"github.com/pagopa/cdcview/hivetype"
)

// Visitor projects a record type into a Scope tree. It holds no per-walk
// state and can be shared between goroutines.
type Visitor struct {
	syntax  syntax
	aliases AliasRenamer
	types   TypeTranslator
}

// NewVisitor returns a visitor rendering in the given flavor. Nil hooks keep
// aliases and types unchanged.
func NewVisitor(flavor Flavor, aliases AliasRenamer, types TypeTranslator) (*Visitor, error) {
	sx, err := flavor.syntax()
	if err != nil {
		return nil, err
	}
	if aliases == nil {
		aliases = KeepAliases
	}
	if types == nil {
		types = KeepTypes
	}
	return &Visitor{syntax: sx, aliases: aliases, types: types}, nil
}

// NewScope returns an empty top-level scope rooted at the record.
func (v *Visitor) NewScope() *Scope {
	return newScope(v.syntax, v.aliases, v.types, nil, 0)
}

func (v *Visitor) Enter(t hivetype.Type, s *Scope) (bool, error) {
	if s.IsRoot(t) {
		return true, nil
	}
	switch t.Category() {
	case hivetype.CategoryStruct:
		return true, nil
	case hivetype.CategoryArray:
		child, err := s.AddArray(t.Path())
		if err != nil {
			return false, err
		}
		if err := hivetype.Walk[*Scope](v, t, child); err != nil {
			return false, err
		}
		return false, nil
	case hivetype.CategorySimple:
		path := t.Path()
		if len(path) > 0 && path[len(path)-1] == nullStep {
			return false, nil
		}
		return false, s.AddLeaf(path, t.SimpleType())
	default:
		return false, &hivetype.TraversalError{Msg: "unsupported type category " + t.Category().String(), Path: t.Path()}
	}
}

func (v *Visitor) Exit(hivetype.Type, *Scope) {}

// Project walks root and returns its top-level scope.
func (v *Visitor) Project(root hivetype.Type) (*Scope, error) {
	s := v.NewScope()
	if !root.IsZero() {
		s.rootPath = root.Path()
	}
	if err := hivetype.Walk[*Scope](v, root, s); err != nil {
		return nil, err
	}
	return s, nil
}
