package viewgen

const (
	// PlaceholderColumn is the only column produced while generation is disabled.
	PlaceholderColumn = "fake_column"

	placeholderQuery    = "SELECT 'a_value' AS " + PlaceholderColumn
	defaultCatalog      = "awsdatacatalog"
	placeholderDatabase = "database_name"
)

// PlaceholderStorageColumns is the catalog column list of a disabled deployment.
func PlaceholderStorageColumns() []StorageColumn {
	return []StorageColumn{{Name: PlaceholderColumn, Type: "string"}}
}

// PlaceholderViewData is the view payload of a disabled deployment. Empty
// catalog and schema fall back to fixed defaults.
func PlaceholderViewData(catalog, schema string) ViewData {
	if catalog == "" {
		catalog = defaultCatalog
	}
	if schema == "" {
		schema = placeholderDatabase
	}
	return ViewData{
		OriginalSQL: placeholderQuery,
		Catalog:     catalog,
		Schema:      schema,
		Columns:     []Column{{Name: PlaceholderColumn, Type: "VARCHAR"}},
	}
}

// PlaceholderViewText is the original text of the placeholder view. Its JSON
// is compact so the text stays byte-identical across releases.
func PlaceholderViewText(catalog, schema string) (string, error) {
	return encodePrestoView(PlaceholderViewData(catalog, schema), "")
}
