package viewgen

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// Column categories in output order. Names matching none of the patterns
// fall in the third slot.
var columnCategories = []*regexp.Regexp{
	regexp.MustCompile(`^(pk|hk)$`),
	regexp.MustCompile(`^(sk|rk)$`),
	nil,
	regexp.MustCompile(`^dynamodb_`),
	regexp.MustCompile(`^kinesis_dynamodb_`),
	regexp.MustCompile(`^stream_`),
	regexp.MustCompile(`^p_hour$`),
	regexp.MustCompile(`^p_year$`),
	regexp.MustCompile(`^p_month$`),
	regexp.MustCompile(`^p_day$`),
}

const uncategorized = 2

func columnCategory(name string) int {
	for i, re := range columnCategories {
		if re != nil && re.MatchString(name) {
			return i
		}
	}
	return uncategorized
}

// CompareColumns orders column names: partition/sort key first, then
// attributes, then stream metadata, then time partitions. Names in the same
// category compare alphabetically.
func CompareColumns(a, b string) int {
	if a == b {
		return 0
	}
	ca, cb := columnCategory(a), columnCategory(b)
	if ca == cb {
		return strings.Compare(a, b)
	}
	return cmp.Compare(ca, cb)
}

// SortColumns returns a stably sorted copy of items ordered by CompareColumns.
func SortColumns[T any](items []T, name func(T) string) []T {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return CompareColumns(name(a), name(b))
	})
	return sorted
}
