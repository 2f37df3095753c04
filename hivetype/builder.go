package hivetype

import "slices"

// Builder assembles one node. Children passed to ArrayType or AddStructField
// are copied under the new node when Build is called; the originals keep
// their own (absent) parent.
type Builder struct {
	tree       *Tree
	category   Category
	simpleType string
	elem       Type
	fields     map[string]Type
}

// NewBuilder returns a builder writing into a fresh arena.
func NewBuilder() *Builder {
	return NewTree().NewBuilder()
}

// NewBuilder returns a builder writing into t.
func (t *Tree) NewBuilder() *Builder {
	return &Builder{tree: t, fields: make(map[string]Type)}
}

func (b *Builder) SimpleType(name string) *Builder {
	b.category = CategorySimple
	b.simpleType = name
	return b
}

func (b *Builder) ArrayType(elem Type) *Builder {
	b.category = CategoryArray
	b.elem = elem
	return b
}

// StructType marks the node as a struct, which matters for struct<>.
func (b *Builder) StructType() *Builder {
	b.category = CategoryStruct
	return b
}

// AddStructField adds or replaces a struct member.
func (b *Builder) AddStructField(name string, t Type) *Builder {
	b.category = CategoryStruct
	b.fields[name] = t
	return b
}

// Build appends the node and its re-parented children to the arena.
func (b *Builder) Build() Type {
	id := b.tree.add(node{
		category:   b.category,
		simpleType: b.simpleType,
		elem:       noNode,
		parent:     noNode,
	})

	switch b.category {
	case CategoryArray:
		if !b.elem.IsZero() {
			elem := b.tree.adopt(b.elem, id, ArrayStep)
			b.tree.nodes[id].elem = elem
		}
	case CategoryStruct:
		names := make([]string, 0, len(b.fields))
		for name := range b.fields {
			names = append(names, name)
		}
		slices.Sort(names)

		fields := make([]field, 0, len(names))
		for _, name := range names {
			child := b.tree.adopt(b.fields[name], id, name)
			fields = append(fields, field{name: name, id: child})
		}
		b.tree.nodes[id].fields = fields
	}

	return Type{tree: b.tree, id: id}
}
