// Package ddbschema derives the schema fragments of a change record from a
// DynamoDB table: the Keys type from the table's key schema and the NewImage
// type from sample items.
package ddbschema

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pagopa/cdcview/hivetype"
)

// Client is the subset of *dynamodb.Client used to derive schemas.
type Client interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// KeyKind is the scalar type of a key attribute.
type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

// KeyDef is one key attribute.
type KeyDef struct {
	Name string
	Kind KeyKind
}

// KeyDefs returns the partition key and, when present, the sort key of desc.
func KeyDefs(desc *types.TableDescription) ([]KeyDef, error) {
	if desc == nil {
		return nil, fmt.Errorf("table description is required")
	}
	kinds := make(map[string]KeyKind, len(desc.AttributeDefinitions))
	for _, def := range desc.AttributeDefinitions {
		kinds[aws.ToString(def.AttributeName)] = KeyKind(def.AttributeType)
	}

	var defs []KeyDef
	for _, el := range desc.KeySchema {
		name := aws.ToString(el.AttributeName)
		kind, ok := kinds[name]
		if !ok {
			return nil, fmt.Errorf("key attribute %q has no definition", name)
		}
		switch kind {
		case KeyKindS, KeyKindN, KeyKindB:
		default:
			return nil, fmt.Errorf("key attribute %q has unsupported type %q", name, kind)
		}
		def := KeyDef{Name: name, Kind: kind}
		if el.KeyType == types.KeyTypeHash {
			defs = append([]KeyDef{def}, defs...)
		} else {
			defs = append(defs, def)
		}
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("table %s has no key schema", aws.ToString(desc.TableName))
	}
	return defs, nil
}

// KeysType builds the type of the Keys envelope: one struct<KIND:string>
// member per key attribute. Stream records carry numbers and binaries as
// strings.
func KeysType(defs []KeyDef) hivetype.Type {
	tree := hivetype.NewTree()
	b := tree.NewBuilder().StructType()
	for _, def := range defs {
		scalar := tree.NewBuilder().SimpleType("string").Build()
		b.AddStructField(def.Name, tree.NewBuilder().AddStructField(string(def.Kind), scalar).Build())
	}
	return b.Build()
}

// DescribeKeys fetches the key schema of table.
func DescribeKeys(ctx context.Context, c Client, table string) ([]KeyDef, error) {
	out, err := c.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	return KeyDefs(out.Table)
}
