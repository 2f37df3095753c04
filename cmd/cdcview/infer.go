package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"

	"github.com/pagopa/cdcview/ddbschema"
	"github.com/pagopa/cdcview/internal/logger"
)

// inferredTypes is printed in view config form so it can be pasted into a
// config file.
type inferredTypes struct {
	CdcTableName    string `json:"CdcTableName,omitempty" yaml:"cdcTableName,omitempty"`
	CdcKeysType     string `json:"CdcKeysType,omitempty" yaml:"cdcKeysType,omitempty"`
	CdcNewImageType string `json:"CdcNewImageType" yaml:"cdcNewImageType"`
}

type inferOptions struct {
	table      string
	items      string
	itemFormat string
	region     string
	sampleSize int
	attributes []string
	preflight  bool
	format     string
}

func newInferCmd() *cobra.Command {
	var opts inferOptions

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Derive the key and new image types of a DynamoDB table",
		Long: `Derive CdcKeysType from a table's key schema and CdcNewImageType from sample
items. Items are scanned from --table, or read from --items ("-" for stdin)
in DynamoDB JSON or plain JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.table, "table", "", "DynamoDB table to describe and sample")
	f.StringVar(&opts.items, "items", "", "File of sample items instead of scanning")
	f.StringVar(&opts.itemFormat, "item-format", string(ddbschema.FormatDynamoDB), "Item encoding: dynamodb or json")
	f.StringVar(&opts.region, "region", "", "AWS region (defaults to cdcview.yaml, then AWS_REGION)")
	f.IntVar(&opts.sampleSize, "sample-size", ddbschema.DefaultSampleSize, "Number of items scanned")
	f.StringSliceVar(&opts.attributes, "attributes", nil, "Only read these top-level attributes")
	f.BoolVar(&opts.preflight, "preflight", false, "Check DescribeTable and Scan permissions before sampling")
	f.StringVarP(&opts.format, "output", "o", formatYAML, "Output format: json or yaml")
	return cmd
}

func runInfer(cmd *cobra.Command, opts inferOptions) error {
	var (
		result inferredTypes
		err    error
	)
	switch {
	case opts.items != "":
		result, err = inferFromFile(cmd.InOrStdin(), opts)
	case opts.table != "":
		result, err = inferFromTable(cmd.Context(), opts)
	default:
		err = errors.New("one of --table or --items is required")
	}
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.format, result)
}

func inferFromFile(stdin io.Reader, opts inferOptions) (inferredTypes, error) {
	var r io.Reader = stdin
	if opts.items != "-" {
		f, err := os.Open(opts.items)
		if err != nil {
			return inferredTypes{}, err
		}
		defer f.Close()
		r = f
	}

	items, err := ddbschema.ReadItems(r, ddbschema.Format(opts.itemFormat))
	if err != nil {
		return inferredTypes{}, err
	}
	newImage, err := inferNewImage(items)
	if err != nil {
		return inferredTypes{}, err
	}
	return inferredTypes{CdcTableName: opts.table, CdcNewImageType: newImage}, nil
}

func inferFromTable(ctx context.Context, opts inferOptions) (inferredTypes, error) {
	log := logger.Get()

	var loadOpts []func(*config.LoadOptions) error
	if region := firstNonEmpty(opts.region, LoadCLIConfig().Region); region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return inferredTypes{}, fmt.Errorf("load AWS config: %w", err)
	}

	if opts.preflight {
		resource := tableARN(awsCfg, opts.table)
		report, err := ddbschema.CheckAccess(ctx, sts.NewFromConfig(awsCfg), iam.NewFromConfig(awsCfg), resource, ddbschema.SampleActions)
		if err != nil {
			return inferredTypes{}, err
		}
		log.Info("Checked permissions", "account", report.Account, "principal", report.Principal, "resource", resource)
		if !report.Allowed() {
			return inferredTypes{}, fmt.Errorf("%s is not allowed to %s on %s", report.Principal, strings.Join(report.Denied, ", "), opts.table)
		}
	}

	client := dynamodb.NewFromConfig(awsCfg)
	keys, err := ddbschema.DescribeKeys(ctx, client, opts.table)
	if err != nil {
		return inferredTypes{}, err
	}
	items, err := ddbschema.Sample(ctx, client, opts.table, ddbschema.SampleOptions{
		Limit:      opts.sampleSize,
		Attributes: opts.attributes,
	})
	if err != nil {
		return inferredTypes{}, err
	}
	log.Debug("Sampled table", "table", opts.table, "items", len(items))

	newImage, err := inferNewImage(items)
	if err != nil {
		return inferredTypes{}, fmt.Errorf("table %s: %w", opts.table, err)
	}
	return inferredTypes{
		CdcTableName:    opts.table,
		CdcKeysType:     ddbschema.KeysType(keys).Sql(),
		CdcNewImageType: newImage,
	}, nil
}

// inferNewImage infers the new image type and warns about every attribute
// whose scalar or list branch had to be dropped.
func inferNewImage(items []ddbschema.Item) (string, error) {
	schema, err := ddbschema.InferSchema(items)
	if err != nil {
		return "", err
	}
	for _, c := range schema.Conflicts {
		logger.Get().Warn("Attribute is both a scalar and a list, dropping a branch",
			"path", strings.Join(c.Path, "."), "kept", c.Kept, "dropped", c.Dropped)
	}
	return schema.Type.Sql(), nil
}

// tableARN names the table in any account of the configured region.
func tableARN(cfg aws.Config, table string) string {
	return fmt.Sprintf("arn:aws:dynamodb:%s:*:table/%s", cfg.Region, table)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
