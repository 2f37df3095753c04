package hivetype

// Leaf is a simple-typed node and where it sits in the tree.
type Leaf struct {
	Path []string
	Type string
}

type leafCollector struct {
	BaseVisitor[*[]Leaf]
}

func (leafCollector) Exit(t Type, leaves *[]Leaf) {
	if t.Category() == CategorySimple {
		*leaves = append(*leaves, Leaf{Path: t.Path(), Type: t.SimpleType()})
	}
}

// Leaves lists the simple-typed nodes of root in visit order.
func Leaves(root Type) ([]Leaf, error) {
	var leaves []Leaf
	if err := Walk[*[]Leaf](leafCollector{}, root, &leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}
