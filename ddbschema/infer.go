package ddbschema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pagopa/cdcview/hivetype"
)

// ErrNoItems is returned when there is nothing to infer a type from.
var ErrNoItems = errors.New("ddbschema: no sample items")

// Item is a DynamoDB item.
type Item = map[string]types.AttributeValue

// attr accumulates every type tag seen for one attribute position.
type attr struct {
	scalars map[string]string // tag -> primitive
	sets    map[string]bool
	fields  map[string]*attr // M branch, nil when never seen
	elem    *attr            // L branch, nil when never seen

	// values seen as a scalar and as a list
	scalarCount, listCount int
}

func newAttr() *attr {
	return &attr{scalars: map[string]string{}, sets: map[string]bool{}}
}

func (a *attr) add(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB,
		*types.AttributeValueMemberBOOL, *types.AttributeValueMemberNULL:
		if _, null := av.(*types.AttributeValueMemberNULL); !null {
			a.scalarCount++
		}
		a.addScalar(av)
	case *types.AttributeValueMemberSS:
		a.sets["SS"] = true
	case *types.AttributeValueMemberNS:
		a.sets["NS"] = true
	case *types.AttributeValueMemberBS:
		a.sets["BS"] = true
	case *types.AttributeValueMemberM:
		if a.fields == nil {
			a.fields = map[string]*attr{}
		}
		return addFields(a.fields, v.Value)
	case *types.AttributeValueMemberL:
		a.listCount++
		if a.elem == nil {
			a.elem = newAttr()
		}
		for i, e := range v.Value {
			if err := a.elem.add(e); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported attribute value %T", av)
	}
	return nil
}

func (a *attr) addScalar(av types.AttributeValue) {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		a.scalars["S"] = "string"
	case *types.AttributeValueMemberN:
		a.scalars["N"] = "string"
	case *types.AttributeValueMemberB:
		a.scalars["B"] = "string"
	case *types.AttributeValueMemberBOOL:
		a.scalars["BOOL"] = "boolean"
	case *types.AttributeValueMemberNULL:
		a.scalars["NULL"] = "boolean"
	}
}

func addFields(fields map[string]*attr, item Item) error {
	for name, av := range item {
		f, ok := fields[name]
		if !ok {
			f = newAttr()
			fields[name] = f
		}
		if err := f.add(av); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (a *attr) empty() bool {
	return len(a.scalars) == 0 && len(a.sets) == 0 && a.fields == nil && a.elem == nil
}

// Conflict is an attribute seen both as a scalar and as a list. Both would
// become the same view column, so only the branch seen in more items is kept,
// the scalars on a tie.
type Conflict struct {
	// Path is the attribute position, with "M" and "L" steps for nested
	// values and "[*]" for list elements.
	Path    []string
	Kept    []string
	Dropped []string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s: kept %s, dropped %s",
		strings.Join(c.Path, "."), strings.Join(c.Kept, ","), strings.Join(c.Dropped, ","))
}

// Schema is an inferred NewImage type and the branches dropped to build it.
type Schema struct {
	Type      hivetype.Type
	Conflicts []Conflict
}

type builder struct {
	tree      *hivetype.Tree
	conflicts []Conflict
}

func (b *builder) attr(a *attr, path []string) hivetype.Type {
	scalars, elem := a.scalars, a.elem
	if elem != nil && a.scalarCount > 0 {
		tags := slices.Sorted(maps.Keys(a.scalars))
		tags = slices.DeleteFunc(tags, func(tag string) bool { return tag == "NULL" })
		c := Conflict{Path: slices.Clone(path), Kept: tags, Dropped: []string{"L"}}
		if a.listCount > a.scalarCount {
			c.Kept, c.Dropped = c.Dropped, c.Kept
			scalars = map[string]string{}
			if p, ok := a.scalars["NULL"]; ok {
				scalars["NULL"] = p
			}
		} else {
			elem = nil
		}
		b.conflicts = append(b.conflicts, c)
	}

	sb := b.tree.NewBuilder().StructType()
	for tag, primitive := range scalars {
		sb.AddStructField(tag, b.tree.NewBuilder().SimpleType(primitive).Build())
	}
	for tag := range a.sets {
		str := b.tree.NewBuilder().SimpleType("string").Build()
		sb.AddStructField(tag, b.tree.NewBuilder().ArrayType(str).Build())
	}
	if a.fields != nil {
		sb.AddStructField("M", b.fields(a.fields, append(slices.Clone(path), "M")))
	}
	if elem != nil {
		if elem.empty() {
			// only empty lists were seen
			elem = &attr{scalars: map[string]string{"S": "string"}}
		}
		elemPath := append(slices.Clone(path), "L", hivetype.ArrayStep)
		sb.AddStructField("L", b.tree.NewBuilder().ArrayType(b.attr(elem, elemPath)).Build())
	}
	return sb.Build()
}

func (b *builder) fields(fields map[string]*attr, path []string) hivetype.Type {
	names := slices.Sorted(maps.Keys(fields))

	sb := b.tree.NewBuilder().StructType()
	for _, name := range names {
		sb.AddStructField(name, b.attr(fields[name], append(slices.Clone(path), name)))
	}
	return sb.Build()
}

// InferSchema returns the NewImage type covering every item. Attributes are
// merged across items and an attribute seen with different scalar tags
// becomes a union of them, such as struct<N:string,S:string>. Scalar and list
// branches of one attribute are never mixed; see Conflict.
func InferSchema(items []Item) (*Schema, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	fields := map[string]*attr{}
	for i, item := range items {
		if err := addFields(fields, item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	b := &builder{tree: hivetype.NewTree()}
	t := b.fields(fields, nil)
	return &Schema{Type: t, Conflicts: b.conflicts}, nil
}

// Infer is InferSchema without the conflict report.
func Infer(items []Item) (hivetype.Type, error) {
	s, err := InferSchema(items)
	if err != nil {
		return hivetype.Type{}, err
	}
	return s.Type, nil
}
