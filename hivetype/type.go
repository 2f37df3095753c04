// Package hivetype parses Hive-style type definition strings such as
// "struct<id:struct<S:string>,tags:array<string>>" into an immutable tree
// and walks that tree with a work-list visitor.
//
// Nodes live in an append-only arena (Tree) and are addressed by index. Each
// node keeps the index of its parent and the step it occupies in that parent,
// which is enough to compute its path without reference cycles.
package hivetype

import (
	"slices"
	"strings"
)

// Category is the shape of a type node.
type Category int

const (
	CategoryInvalid Category = iota
	CategorySimple
	CategoryArray
	CategoryStruct
)

func (c Category) String() string {
	switch c {
	case CategorySimple:
		return "SIMPLE"
	case CategoryArray:
		return "ARRAY"
	case CategoryStruct:
		return "STRUCT"
	default:
		return "INVALID"
	}
}

// ArrayStep is the path step of an array's element type.
const ArrayStep = "[*]"

type nodeID int

const noNode nodeID = -1

type field struct {
	name string
	id   nodeID
}

type node struct {
	category   Category
	simpleType string
	elem       nodeID
	fields     []field // sorted by name
	parent     nodeID
	position   string
}

// Tree is an append-only arena of type nodes. Nodes are never modified once
// they have been handed out as a Type.
type Tree struct {
	nodes []node
}

// NewTree returns an empty arena.
func NewTree() *Tree {
	return &Tree{}
}

func (t *Tree) add(n node) nodeID {
	t.nodes = append(t.nodes, n)
	return nodeID(len(t.nodes) - 1)
}

// adopt copies the subtree rooted at src into t under parent. Every copied
// node gets a fresh entry, so parents recorded by src are left untouched.
func (t *Tree) adopt(src Type, parent nodeID, position string) nodeID {
	n := src.node()
	id := t.add(node{
		category:   n.category,
		simpleType: n.simpleType,
		elem:       noNode,
		parent:     parent,
		position:   position,
	})
	if n.elem != noNode {
		elem := t.adopt(Type{tree: src.tree, id: n.elem}, id, ArrayStep)
		t.nodes[id].elem = elem
	}
	if len(n.fields) > 0 {
		fields := make([]field, 0, len(n.fields))
		for _, f := range n.fields {
			child := t.adopt(Type{tree: src.tree, id: f.id}, id, f.name)
			fields = append(fields, field{name: f.name, id: child})
		}
		t.nodes[id].fields = fields
	}
	return id
}

// Type is a read-only handle on a node. The zero Type is absent.
type Type struct {
	tree *Tree
	id   nodeID
}

// Field is a named struct member.
type Field struct {
	Name string
	Type Type
}

// IsZero reports whether t refers to no node.
func (t Type) IsZero() bool {
	return t.tree == nil || t.id == noNode
}

func (t Type) node() node {
	if t.IsZero() {
		return node{elem: noNode, parent: noNode}
	}
	return t.tree.nodes[t.id]
}

func (t Type) Category() Category {
	return t.node().category
}

// SimpleType returns the primitive type name of a simple node.
func (t Type) SimpleType() string {
	return t.node().simpleType
}

// ElementType returns the element type of an array node, or the zero Type.
func (t Type) ElementType() Type {
	n := t.node()
	if n.elem == noNode {
		return Type{}
	}
	return Type{tree: t.tree, id: n.elem}
}

// Fields returns the members of a struct node sorted by name.
func (t Type) Fields() []Field {
	n := t.node()
	out := make([]Field, 0, len(n.fields))
	for _, f := range n.fields {
		out = append(out, Field{Name: f.name, Type: Type{tree: t.tree, id: f.id}})
	}
	return out
}

// FieldNames returns the member names of a struct node in alphabetical order.
func (t Type) FieldNames() []string {
	n := t.node()
	names := make([]string, 0, len(n.fields))
	for _, f := range n.fields {
		names = append(names, f.name)
	}
	return names
}

// Field returns the named member of a struct node.
func (t Type) Field(name string) (Type, bool) {
	n := t.node()
	i, found := slices.BinarySearchFunc(n.fields, name, func(f field, name string) int {
		return strings.Compare(f.name, name)
	})
	if !found {
		return Type{}, false
	}
	return Type{tree: t.tree, id: n.fields[i].id}, true
}

// Parent returns the node t is attached to.
func (t Type) Parent() (Type, bool) {
	n := t.node()
	if n.parent == noNode {
		return Type{}, false
	}
	return Type{tree: t.tree, id: n.parent}, true
}

// PositionInParent is the field name t is stored under, ArrayStep for an
// array element, or "" for a root.
func (t Type) PositionInParent() string {
	return t.node().position
}

// Path lists the positions from the root down to t. A root has an empty path.
func (t Type) Path() []string {
	if t.IsZero() {
		return nil
	}
	var steps []string
	for n := t.node(); n.parent != noNode; n = t.tree.nodes[n.parent] {
		steps = append(steps, n.position)
	}
	slices.Reverse(steps)
	return steps
}

// Sql renders t in canonical form: struct members are sorted by name and no
// whitespace is emitted. Parsing the result yields an equal rendering.
func (t Type) Sql() string {
	var b strings.Builder
	t.writeSql(&b)
	return b.String()
}

func (t Type) writeSql(b *strings.Builder) {
	switch t.Category() {
	case CategorySimple:
		b.WriteString(t.SimpleType())
	case CategoryArray:
		b.WriteString("array<")
		t.ElementType().writeSql(b)
		b.WriteString(">")
	case CategoryStruct:
		b.WriteString("struct<")
		for i, f := range t.Fields() {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(f.Name)
			b.WriteString(":")
			f.Type.writeSql(b)
		}
		b.WriteString(">")
	}
}

func (t Type) String() string {
	return t.Sql()
}
