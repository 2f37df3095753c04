package viewgen

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pagopa/cdcview/hivetype"
)

// DefaultIndent is the indentation step of the generated view query.
const DefaultIndent = 4

// The change record envelope. The two fragments are spliced in as the types
// of the Keys and NewImage fields.
const recordTemplate = "struct<" +
	"awsregion:string,eventid:string,eventname:string,useridentity:string,recordformat:string,tablename:string," +
	"p_year:string,p_month:string,p_day:string,p_hour:string," +
	"dynamodb:struct<ApproximateCreationDateTime:bigint,SizeBytes:bigint,Keys: %s,NewImage: %s>>"

const unionAllTemplate = "  SELECT * FROM \"%s\" \n" +
	"    WHERE p_year = lpad( cast( year(current_date) as varchar), 4, '0') \n" +
	"      AND p_month = lpad( cast( month(current_date) as varchar), 2, '0') \n" +
	"      AND p_day = lpad( cast( day(current_date) as varchar), 2, '0') \n" +
	"UNION ALL \n" +
	"  SELECT * FROM \"%s\" "

// Partition columns of the compacted table.
var parsedPartitionColumns = []string{"p_year", "p_month", "p_day"}

// StorageColumn is a catalog column as written in a table storage descriptor.
type StorageColumn struct {
	Name string `json:"Name" yaml:"Name"`
	Type string `json:"Type" yaml:"Type"`
}

// Generator produces the catalog columns and the view of one change data
// capture table. It is immutable and safe for concurrent use.
type Generator struct {
	cfg    Config
	record hivetype.Type
	ddl    *Visitor
	dql    *Visitor
}

// New parses the two schema fragments, builds the record type and validates
// the remaining parameters.
func New(cfg Config) (*Generator, error) {
	cfg = cfg.Normalize()

	keys, err := parseFragment("CdcKeysType", cfg.CdcKeysType)
	if err != nil {
		return nil, err
	}
	newImage, err := parseFragment("CdcNewImageType", cfg.CdcNewImageType)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	record, err := hivetype.Parse(fmt.Sprintf(recordTemplate, keys.Sql(), newImage.Sql()))
	if err != nil {
		return nil, fmt.Errorf("build record type: %w", err)
	}

	ddl, err := NewVisitor(FlavorDDL, CdcAliases{}, nil)
	if err != nil {
		return nil, err
	}
	dql, err := NewVisitor(FlavorDQL, CdcAliases{}, AthenaTypes{})
	if err != nil {
		return nil, err
	}
	// Column conflicts depend only on the record, so one projection catches
	// them for both flavors.
	if _, err := ddl.Project(record); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, record: record, ddl: ddl, dql: dql}, nil
}

func parseFragment(param, fragment string) (hivetype.Type, error) {
	if fragment == "" {
		return hivetype.Type{}, &ConfigurationError{Param: param, Reason: "required parameter is missing"}
	}
	t, err := hivetype.Parse(fragment)
	if err != nil {
		return hivetype.Type{}, &ConfigurationError{Param: param, Value: fragment, Reason: "invalid type definition", Err: err}
	}
	return t, nil
}

// Config returns the normalised configuration.
func (g *Generator) Config() Config { return g.cfg }

// RecordType returns the full change record type.
func (g *Generator) RecordType() hivetype.Type { return g.record }

// TableName is the quoted, database-qualified source table.
func (g *Generator) TableName() string {
	return quoteIdent(g.cfg.DatabaseName) + "." + quoteIdent(g.cfg.CdcTableName)
}

// StorageDescriptorColumns lists the catalog columns of the source table.
func (g *Generator) StorageDescriptorColumns() ([]StorageColumn, error) {
	scope, err := g.ddl.Project(g.record)
	if err != nil {
		return nil, err
	}
	cols := SortColumns(scope.Columns(), func(c Column) string { return c.Name })
	out := make([]StorageColumn, len(cols))
	for i, c := range cols {
		out[i] = StorageColumn{Name: c.Name, Type: stripTypeSpacing(c.Type)}
	}
	return out, nil
}

// StorageDescriptorColumnsNoParsedPartition lists the catalog columns of the
// compacted table, which is partitioned by year, month and day.
func (g *Generator) StorageDescriptorColumnsNoParsedPartition() ([]StorageColumn, error) {
	cols, err := g.StorageDescriptorColumns()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(cols, func(c StorageColumn) bool {
		return slices.Contains(parsedPartitionColumns, c.Name)
	}), nil
}

func stripTypeSpacing(typ string) string {
	return strings.NewReplacer(`"`, "", " ", "").Replace(typ)
}

func (g *Generator) viewColumns() ([]Column, *Scope, error) {
	scope, err := g.dql.Project(g.record)
	if err != nil {
		return nil, nil, err
	}
	return SortColumns(scope.Columns(), func(c Column) string { return c.Name }), scope, nil
}

// ViewQuery renders the view SQL, with the record filter when configured.
func (g *Generator) ViewQuery() (string, error) {
	scope, err := g.dql.Project(g.record)
	if err != nil {
		return "", err
	}
	return g.query(scope), nil
}

func (g *Generator) query(scope *Scope) string {
	q := scope.Query(g.TableName(), DefaultIndent, CompareColumns)
	if g.cfg.CdcRecordFilter != "" {
		q += "\nWHERE\n" + indentation(DefaultIndent) + "(" + g.cfg.CdcRecordFilter + ")"
	}
	return q
}

// ViewData returns the Presto view payload of the view.
func (g *Generator) ViewData() (ViewData, error) {
	cols, scope, err := g.viewColumns()
	if err != nil {
		return ViewData{}, err
	}
	return ViewData{
		OriginalSQL: g.query(scope),
		Catalog:     g.cfg.CatalogName,
		Schema:      g.cfg.DatabaseName,
		Columns:     cols,
	}, nil
}

// ViewString returns the view's original text.
func (g *Generator) ViewString() (string, error) {
	v, err := g.ViewData()
	if err != nil {
		return "", err
	}
	return EncodePrestoView(v)
}

// UnionAllQuery reads today's partition from the view and everything else
// from the compacted table.
func (g *Generator) UnionAllQuery() string {
	return fmt.Sprintf(unionAllTemplate, g.cfg.CdcViewName, g.cfg.CdcParsedTableName)
}

// UnionAllViewData returns the payload of the union-all view.
func (g *Generator) UnionAllViewData() (ViewData, error) {
	cols, _, err := g.viewColumns()
	if err != nil {
		return ViewData{}, err
	}
	return ViewData{
		OriginalSQL: g.UnionAllQuery(),
		Catalog:     g.cfg.CatalogName,
		Schema:      g.cfg.DatabaseName,
		Columns:     cols,
	}, nil
}

// UnionAllViewString returns the union-all view's original text.
func (g *Generator) UnionAllViewString() (string, error) {
	v, err := g.UnionAllViewData()
	if err != nil {
		return "", err
	}
	return EncodePrestoView(v)
}

// Artifacts holds every output of a generator.
type Artifacts struct {
	StorageColumns                  []StorageColumn `json:"storageColumns" yaml:"storageColumns"`
	StorageColumnsNoParsedPartition []StorageColumn `json:"storageColumnsNoParsedPartition" yaml:"storageColumnsNoParsedPartition"`
	View                            ViewData        `json:"view" yaml:"view"`
	ViewText                        string          `json:"viewText" yaml:"viewText"`
	UnionAllView                    ViewData        `json:"unionAllView" yaml:"unionAllView"`
	UnionAllViewText                string          `json:"unionAllViewText" yaml:"unionAllViewText"`
}

// Artifacts renders both flavors concurrently.
func (g *Generator) Artifacts(ctx context.Context) (*Artifacts, error) {
	var a Artifacts
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		cols, err := g.StorageDescriptorColumns()
		if err != nil {
			return fmt.Errorf("storage columns: %w", err)
		}
		a.StorageColumns = cols
		a.StorageColumnsNoParsedPartition = slices.DeleteFunc(slices.Clone(cols), func(c StorageColumn) bool {
			return slices.Contains(parsedPartitionColumns, c.Name)
		})
		return ctx.Err()
	})

	eg.Go(func() error {
		view, err := g.ViewData()
		if err != nil {
			return fmt.Errorf("view: %w", err)
		}
		if a.ViewText, err = EncodePrestoView(view); err != nil {
			return err
		}
		union := ViewData{
			OriginalSQL: g.UnionAllQuery(),
			Catalog:     view.Catalog,
			Schema:      view.Schema,
			Columns:     view.Columns,
		}
		if a.UnionAllViewText, err = EncodePrestoView(union); err != nil {
			return err
		}
		a.View, a.UnionAllView = view, union
		return ctx.Err()
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &a, nil
}
