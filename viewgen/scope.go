package viewgen

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pagopa/cdcview/hivetype"
)

const (
	// TableAlias is how the source table is referenced in the view query.
	TableAlias = "t"
	// ElementAlias names the value of an array whose elements have no field
	// of their own, such as array<string>.
	ElementAlias = "_elem_value"

	cteName  = "simplified_data"
	nullStep = "NULL"
)

// DynamoDB attribute type tags. They are wrapper steps in a change record and
// never part of a column name.
var typeTags = map[string]bool{"S": true, "N": true, "BOOL": true, "L": true, "M": true}

var whitespaceRun = regexp.MustCompile(`[ \n]+`)

// Column is a generated column name and its type in the generator's flavor.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Scope collects the projection of one level of the record: the leaves
// reachable without crossing an array, plus one child scope per array.
// The top-level scope is rooted at the record, every other scope at an array.
type Scope struct {
	syntax   syntax
	aliases  AliasRenamer
	types    TypeTranslator
	rootPath []string
	depth    int

	leaves    map[string][]string // alias -> field paths, in visit order
	leafTypes map[string]string   // field path -> primitive type
	arrays    map[string]*Scope   // alias -> element scope
}

func newScope(sx syntax, aliases AliasRenamer, types TypeTranslator, rootPath []string, depth int) *Scope {
	return &Scope{
		syntax:    sx,
		aliases:   aliases,
		types:     types,
		rootPath:  rootPath,
		depth:     depth,
		leaves:    map[string][]string{},
		leafTypes: map[string]string{},
		arrays:    map[string]*Scope{},
	}
}

// RootPath returns the path of the node the scope is rooted at.
func (s *Scope) RootPath() []string { return slices.Clone(s.rootPath) }

// Depth is 0 for the top-level scope and grows by one per array.
func (s *Scope) Depth() int { return s.depth }

// IsRoot reports whether t is the node the scope is rooted at.
func (s *Scope) IsRoot(t hivetype.Type) bool {
	return slices.Equal(t.Path(), s.rootPath)
}

// AddLeaf records a simple-typed node. Leaves whose alias collides are
// merged and later rendered as a coalesce of their fields. A leaf whose alias
// already names an array is rejected.
func (s *Scope) AddLeaf(path []string, primitive string) error {
	field := s.fieldPath(path)
	alias := s.alias(path)
	if _, ok := s.arrays[alias]; ok {
		return columnConflict(alias, path)
	}
	s.leafTypes[field] = primitive
	s.leaves[alias] = append(s.leaves[alias], field)
	return nil
}

// AddArray opens the child scope of the array at path. Arrays cannot share
// an alias with a leaf or with another array.
func (s *Scope) AddArray(path []string) (*Scope, error) {
	alias := s.alias(path)
	if _, ok := s.leaves[alias]; ok {
		return nil, columnConflict(alias, path)
	}
	if _, ok := s.arrays[alias]; ok {
		return nil, columnConflict(alias, path)
	}
	child := newScope(s.syntax, s.aliases, s.types, slices.Clone(path), s.depth+1)
	s.arrays[alias] = child
	return child, nil
}

func columnConflict(alias string, path []string) error {
	return &ConfigurationError{
		Param:  "column",
		Value:  alias,
		Reason: "type branches at " + strings.Join(path, ".") + " map to a column that is already an array or a scalar",
	}
}

func (s *Scope) relative(path []string) []string {
	if len(path) < len(s.rootPath) {
		return nil
	}
	return path[len(s.rootPath):]
}

func (s *Scope) alias(path []string) string {
	var parts []string
	for _, step := range s.relative(path) {
		if step == hivetype.ArrayStep || typeTags[step] {
			continue
		}
		parts = append(parts, step)
	}
	alias := s.aliases.RenameAlias(strings.Join(parts, "_"))
	if alias == "" {
		return ElementAlias
	}
	return alias
}

func (s *Scope) fieldPath(path []string) string {
	var parts []string
	for _, step := range s.relative(path) {
		if step == hivetype.ArrayStep {
			continue
		}
		parts = append(parts, quoteIdent(step))
	}
	return strings.Join(parts, ".")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func qualify(elem, field string) string {
	if field == "" {
		return elem
	}
	return elem + "." + field
}

func indentation(n int) string {
	return strings.Repeat(" ", n)
}

func oneLine(s string) string {
	return whitespaceRun.ReplaceAllString(s, " ")
}

func (s *Scope) leafType(alias string) string {
	fields := s.leaves[alias]
	if len(fields) != 1 {
		return s.types.TranslateType("string")
	}
	return s.types.TranslateType(s.leafTypes[fields[0]])
}

func leafValue(fields []string) string {
	if len(fields) == 1 {
		return fields[0]
	}
	return "coalesce(" + strings.Join(fields, ",") + ")"
}

// arrayType is the one-line type of an array whose elements this scope projects.
func (s *Scope) arrayType() string {
	return s.syntax.arrayKeyword + s.syntax.open + oneLine(s.rowSignature("", 0)) + s.syntax.close
}

// Columns lists the scope's leaves alphabetically followed by its arrays
// alphabetically.
func (s *Scope) Columns() []Column {
	cols := make([]Column, 0, len(s.leaves)+len(s.arrays))
	for _, alias := range sortedKeys(s.leaves) {
		cols = append(cols, Column{Name: alias, Type: s.leafType(alias)})
	}
	for _, alias := range sortedKeys(s.arrays) {
		cols = append(cols, Column{Name: alias, Type: s.arrays[alias].arrayType()})
	}
	return cols
}

type selectEntry struct {
	alias string
	text  string
}

// Query renders the view query selecting from table. With a nil compare the
// select list holds leaves then arrays, each alphabetically; otherwise all
// entries are stably sorted with compare on their alias.
func (s *Scope) Query(table string, indent int, compare func(a, b string) int) string {
	step := indentation(indent)
	listIndent := step + step

	var entries []selectEntry
	for _, alias := range sortedKeys(s.leaves) {
		entries = append(entries, selectEntry{
			alias: alias,
			text:  listIndent + leafValue(s.leaves[alias]) + " AS " + quoteIdent(alias),
		})
	}
	for _, alias := range sortedKeys(s.arrays) {
		child := s.arrays[alias]
		elem := "elem" + strconv.Itoa(s.depth)
		body := child.castRow(elem, listIndent+step, indent)
		entries = append(entries, selectEntry{
			alias: alias,
			text:  transform(listIndent, s.fieldPath(child.rootPath), elem, body) + " AS " + quoteIdent(alias),
		})
	}
	if compare != nil {
		slices.SortStableFunc(entries, func(a, b selectEntry) int { return compare(a.alias, b.alias) })
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.text
	}

	var b strings.Builder
	b.WriteString("WITH " + cteName + " AS (\n")
	b.WriteString(step + "SELECT\n")
	b.WriteString(strings.Join(texts, ",\n") + "\n")
	b.WriteString(step + "FROM\n")
	b.WriteString(step + step + table + " " + TableAlias + "\n")
	b.WriteString(")\n")
	b.WriteString("SELECT\n")
	b.WriteString(step + "*\n")
	b.WriteString("FROM\n")
	b.WriteString(step + cteName)
	return b.String()
}

func transform(base, field, elem, body string) string {
	return base + "transform( " + field + ", (" + elem + ") -> \n" + body + "\n" + base + ")"
}

// castRow renders one array element, named elem, as a typed row.
func (s *Scope) castRow(elem, base string, indent int) string {
	values := s.rowValues(elem, base+indentation(indent), indent)
	return base + "cast(" + s.syntax.rowKeyword + s.syntax.open + "\n" +
		values + "\n" +
		base + s.syntax.close + " AS " + s.rowSignature(base, indent) + ")"
}

func (s *Scope) rowValues(elem, base string, indent int) string {
	var lines []string
	for _, alias := range sortedKeys(s.leaves) {
		fields := s.leaves[alias]
		qualified := make([]string, len(fields))
		for i, f := range fields {
			qualified[i] = qualify(elem, f)
		}
		lines = append(lines, base+leafValue(qualified))
	}
	for _, alias := range sortedKeys(s.arrays) {
		child := s.arrays[alias]
		inner := "elem" + strconv.Itoa(s.depth)
		body := child.castRow(inner, base+indentation(indent), indent)
		lines = append(lines, transform(base, qualify(elem, s.fieldPath(child.rootPath)), inner, body))
	}
	return strings.Join(lines, ",\n")
}

func (s *Scope) rowSignature(base string, indent int) string {
	listIndent := base + indentation(indent)
	var lines []string
	for _, alias := range sortedKeys(s.leaves) {
		lines = append(lines, listIndent+quoteIdent(alias)+s.syntax.nameTypeSep+s.leafType(alias))
	}
	for _, alias := range sortedKeys(s.arrays) {
		lines = append(lines, listIndent+quoteIdent(alias)+s.syntax.nameTypeSep+s.arrays[alias].arrayType())
	}
	return s.syntax.rowKeyword + s.syntax.open + "\n" + strings.Join(lines, ",\n") + "\n" + base + s.syntax.close
}
