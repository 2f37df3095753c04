package viewgen

import (
	"fmt"
	"strings"
)

// Flavor selects the type syntax of the generated output.
type Flavor int

const (
	// FlavorDDL is the catalog syntax: struct<name:type>, array<...>.
	FlavorDDL Flavor = iota
	// FlavorDQL is the query engine syntax: row("name" TYPE), array(...).
	FlavorDQL
)

func (f Flavor) String() string {
	switch f {
	case FlavorDDL:
		return "DDL"
	case FlavorDQL:
		return "DQL"
	default:
		return fmt.Sprintf("Flavor(%d)", int(f))
	}
}

type syntax struct {
	arrayKeyword string
	rowKeyword   string
	nameTypeSep  string
	open         string
	close        string
}

func (f Flavor) syntax() (syntax, error) {
	switch f {
	case FlavorDDL:
		return syntax{arrayKeyword: "array", rowKeyword: "struct", nameTypeSep: ":", open: "<", close: ">"}, nil
	case FlavorDQL:
		return syntax{arrayKeyword: "array", rowKeyword: "row", nameTypeSep: " ", open: "(", close: ")"}, nil
	default:
		return syntax{}, &ConfigurationError{Param: "flavor", Value: f.String(), Reason: "unsupported syntax flavor"}
	}
}

// AliasRenamer rewrites the alias computed for a leaf or an array.
type AliasRenamer interface {
	RenameAlias(alias string) string
}

// AliasRenamerFunc adapts a function to AliasRenamer.
type AliasRenamerFunc func(alias string) string

func (f AliasRenamerFunc) RenameAlias(alias string) string { return f(alias) }

// TypeTranslator rewrites primitive type names for the output flavor.
type TypeTranslator interface {
	TranslateType(primitive string) string
}

// TypeTranslatorFunc adapts a function to TypeTranslator.
type TypeTranslatorFunc func(primitive string) string

func (f TypeTranslatorFunc) TranslateType(primitive string) string { return f(primitive) }

var (
	KeepAliases AliasRenamer   = AliasRenamerFunc(func(alias string) string { return alias })
	KeepTypes   TypeTranslator = TypeTranslatorFunc(func(primitive string) string { return primitive })
)

const (
	newImagePrefix = "dynamodb_NewImage_"
	keysPrefix     = "dynamodb_Keys_"
)

var streamAliases = map[string]string{
	"dynamodb_ApproximateCreationDateTime": "kinesis_dynamodb_ApproximateCreationDateTime",
	"awsregion":                            "stream_awsregion",
	"eventid":                              "stream_eventid",
	"eventname":                            "stream_eventname",
	"useridentity":                         "stream_useridentity",
	"recordformat":                         "stream_recordformat",
	"tablename":                            "stream_tablename",
}

// CdcAliases names the columns of a change record view: new image attributes
// lose their prefix, key attributes become dynamodb_keys_*, and stream
// metadata gets a stream_ or kinesis_ prefix.
type CdcAliases struct{}

func (CdcAliases) RenameAlias(alias string) string {
	switch {
	case strings.HasPrefix(alias, newImagePrefix):
		return strings.TrimPrefix(alias, newImagePrefix)
	case strings.HasPrefix(alias, keysPrefix):
		return "dynamodb_keys_" + strings.TrimPrefix(alias, keysPrefix)
	}
	if renamed, ok := streamAliases[alias]; ok {
		return renamed
	}
	return alias
}

// AthenaTypes translates catalog primitive names into query engine names.
type AthenaTypes struct{}

func (AthenaTypes) TranslateType(primitive string) string {
	switch primitive {
	case "string":
		return "VARCHAR"
	case "long":
		return "BIGINT"
	default:
		return strings.ToUpper(primitive)
	}
}
