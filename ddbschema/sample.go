package ddbschema

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DefaultSampleSize is the number of items read when no limit is given.
const DefaultSampleSize = 100

// SampleOptions restricts a sampling scan.
type SampleOptions struct {
	// Limit is the maximum number of items returned.
	Limit int
	// Attributes, when set, are the only top-level attributes read.
	Attributes []string
}

// Sample scans up to opts.Limit items of table.
func Sample(ctx context.Context, c Client, table string, opts SampleOptions) ([]Item, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSampleSize
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(table),
		Limit:     aws.Int32(int32(min(limit, 1000))),
	}
	if len(opts.Attributes) > 0 {
		proj := expression.NamesList(expression.Name(opts.Attributes[0]))
		for _, name := range opts.Attributes[1:] {
			proj = proj.AddNames(expression.Name(name))
		}
		expr, err := expression.NewBuilder().WithProjection(proj).Build()
		if err != nil {
			return nil, fmt.Errorf("build projection: %w", err)
		}
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
	}

	var items []Item
	p := dynamodb.NewScanPaginator(c, input)
	for p.HasMorePages() && len(items) < limit {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, page.Items...)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
