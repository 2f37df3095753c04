package hivetype

// Visitor receives the nodes of a walk.
//
// Enter is called when a node is taken off the work list. When it returns
// descend = false the node's children are never queued and Exit is not called.
//
// Exit is called right after the children of the node were queued, which is
// before any of them has been entered. It must only depend on the node itself,
// never on state produced by its descendants.
type Visitor[C any] interface {
	Enter(t Type, ctx C) (descend bool, err error)
	Exit(t Type, ctx C)
}

// BaseVisitor descends everywhere and does nothing on exit. Embed it to
// override a single hook.
type BaseVisitor[C any] struct{}

func (BaseVisitor[C]) Enter(Type, C) (bool, error) { return true, nil }

func (BaseVisitor[C]) Exit(Type, C) {}

// Walk visits root and its descendants in depth-first pre-order using an
// explicit LIFO work list. Struct members are visited alphabetically.
func Walk[C any](v Visitor[C], root Type, ctx C) error {
	if root.IsZero() {
		return &TraversalError{Msg: "root type is required"}
	}

	stack := []Type{root}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		descend, err := v.Enter(t, ctx)
		if err != nil {
			return err
		}
		if !descend {
			continue
		}

		switch t.Category() {
		case CategoryStruct:
			fields := t.Fields()
			for i := len(fields) - 1; i >= 0; i-- {
				stack = append(stack, fields[i].Type)
			}
		case CategoryArray:
			stack = append(stack, t.ElementType())
		case CategorySimple:
		default:
			return &TraversalError{Msg: "unsupported type category " + t.Category().String(), Path: t.Path()}
		}

		v.Exit(t, ctx)
	}
	return nil
}
