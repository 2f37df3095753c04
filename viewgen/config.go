package viewgen

import "strings"

// Config is one generation request. Every field but CdcRecordFilter is
// required.
type Config struct {
	CatalogName        string `json:"CatalogName" yaml:"catalogName"`
	DatabaseName       string `json:"DatabaseName" yaml:"databaseName"`
	CdcTableName       string `json:"CdcTableName" yaml:"cdcTableName"`
	CdcParsedTableName string `json:"CdcParsedTableName" yaml:"cdcParsedTableName"`
	CdcViewName        string `json:"CdcViewName" yaml:"cdcViewName"`
	CdcKeysType        string `json:"CdcKeysType" yaml:"cdcKeysType"`
	CdcNewImageType    string `json:"CdcNewImageType" yaml:"cdcNewImageType"`
	// CdcRecordFilter is a boolean SQL expression over the view columns.
	CdcRecordFilter string `json:"CdcRecordFilter,omitempty" yaml:"cdcRecordFilter,omitempty"`
}

// Normalize returns a copy with surrounding whitespace removed from every field.
func (c Config) Normalize() Config {
	return Config{
		CatalogName:        strings.TrimSpace(c.CatalogName),
		DatabaseName:       strings.TrimSpace(c.DatabaseName),
		CdcTableName:       strings.TrimSpace(c.CdcTableName),
		CdcParsedTableName: strings.TrimSpace(c.CdcParsedTableName),
		CdcViewName:        strings.TrimSpace(c.CdcViewName),
		CdcKeysType:        strings.TrimSpace(c.CdcKeysType),
		CdcNewImageType:    strings.TrimSpace(c.CdcNewImageType),
		CdcRecordFilter:    strings.TrimSpace(c.CdcRecordFilter),
	}
}

// Validate checks that all required parameters are present.
func (c Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"CdcKeysType", c.CdcKeysType},
		{"CdcNewImageType", c.CdcNewImageType},
		{"CatalogName", c.CatalogName},
		{"DatabaseName", c.DatabaseName},
		{"CdcTableName", c.CdcTableName},
		{"CdcParsedTableName", c.CdcParsedTableName},
		{"CdcViewName", c.CdcViewName},
	}
	for _, p := range required {
		if strings.TrimSpace(p.value) == "" {
			return &ConfigurationError{Param: p.name, Reason: "required parameter is missing"}
		}
	}
	return nil
}
