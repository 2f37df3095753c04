package hivetype

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	hook string
	path string
}

type recorder struct {
	skip string
}

func (r recorder) Enter(t Type, events *[]event) (bool, error) {
	path := strings.Join(t.Path(), ".")
	*events = append(*events, event{"enter", path})
	return r.skip == "" || path != r.skip, nil
}

func (r recorder) Exit(t Type, events *[]event) {
	*events = append(*events, event{"exit", strings.Join(t.Path(), ".")})
}

func TestWalkOrder(t *testing.T) {
	root := MustParse("struct<b:array<int>,a:struct<y:int,x:int>>")

	var events []event
	require.NoError(t, Walk[*[]event](recorder{}, root, &events))

	// Exit fires as soon as the children are queued, before they are entered.
	want := []event{
		{"enter", ""}, {"exit", ""},
		{"enter", "a"}, {"exit", "a"},
		{"enter", "a.x"}, {"exit", "a.x"},
		{"enter", "a.y"}, {"exit", "a.y"},
		{"enter", "b"}, {"exit", "b"},
		{"enter", "b.[*]"}, {"exit", "b.[*]"},
	}
	assert.Equal(t, want, events)
}

func TestWalkSkipsSubtree(t *testing.T) {
	root := MustParse("struct<a:struct<x:int>,b:int>")

	var events []event
	require.NoError(t, Walk[*[]event](recorder{skip: "a"}, root, &events))

	want := []event{
		{"enter", ""}, {"exit", ""},
		{"enter", "a"},
		{"enter", "b"}, {"exit", "b"},
	}
	assert.Equal(t, want, events)
}

func TestWalkErrors(t *testing.T) {
	var events []event
	err := Walk[*[]event](recorder{}, Type{}, &events)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTraversal))

	invalid := NewBuilder().Build()
	err = Walk[*[]event](recorder{}, invalid, &events)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTraversal))
	assert.Contains(t, err.Error(), "INVALID")
}

type failingVisitor struct {
	BaseVisitor[int]
}

func (failingVisitor) Enter(t Type, _ int) (bool, error) {
	if t.Category() == CategorySimple {
		return false, errors.New("boom")
	}
	return true, nil
}

func TestWalkPropagatesEnterError(t *testing.T) {
	err := Walk[int](failingVisitor{}, MustParse("struct<a:int>"), 0)
	assert.EqualError(t, err, "boom")
}

func TestLeaves(t *testing.T) {
	leaves, err := Leaves(MustParse("struct<z:string,a:array<struct<S:string>>>"))
	require.NoError(t, err)
	assert.Equal(t, []Leaf{
		{Path: []string{"a", ArrayStep, "S"}, Type: "string"},
		{Path: []string{"z"}, Type: "string"},
	}, leaves)
}
