package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagopa/cdcview/transform"
	"github.com/pagopa/cdcview/viewgen"
)

const viewConfigYAML = `catalogName: awsdatacatalog
databaseName: cdc_analytics_database
cdcTableName: pn_timelines_table
cdcParsedTableName: pn_timelines_table_parsed
cdcViewName: pn_timelines_view
cdcKeysType: struct<timelineElementId:struct<S:string>,iun:struct<S:string>>
cdcNewImageType: struct<iun:struct<S:string>,category:struct<S:string>>
`

func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CDCVIEW_STORE_DIR", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommandHasSubcommands(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"generate", "batch", "transform", "parse", "decode", "infer", "serve", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cdcview v"+Version+"@"), out)
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, nil, "parse", "struct< b : string, a:array<int> >")
	require.NoError(t, err)
	assert.Equal(t, "struct<a:array<int>,b:string>\n", out)

	out, err = run(t, nil, "parse", "--leaves", "struct<b:string,a:array<int>>")
	require.NoError(t, err)
	assert.Equal(t, "a.[*]\tint\nb\tstring\n", out)

	_, err = run(t, nil, "parse", "struct<a:")
	assert.Error(t, err)
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "view.yaml", viewConfigYAML)

	out, err := run(t, nil, "generate", "-f", path)
	require.NoError(t, err)
	var a viewgen.Artifacts
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, "pn_timelines_view", viewNameOf(t, a.UnionAllView.OriginalSQL))
	assert.Equal(t, "awsdatacatalog", a.View.Catalog)

	out, err = run(t, nil, "generate", "-f", path, "--only", string(transform.OutputStorageColumnsNoParsedPartition))
	require.NoError(t, err)
	var cols []viewgen.StorageColumn
	require.NoError(t, json.Unmarshal([]byte(out), &cols))
	assert.Equal(t, a.StorageColumnsNoParsedPartition, cols)

	out, err = run(t, nil, "generate", "-f", path, "--only", string(transform.OutputViewText))
	require.NoError(t, err)
	assert.Equal(t, a.ViewText+"\n", out)
}

func viewNameOf(t *testing.T, unionAll string) string {
	t.Helper()
	_, rest, ok := strings.Cut(unionAll, `SELECT * FROM "`)
	require.True(t, ok)
	name, _, _ := strings.Cut(rest, `"`)
	return name
}

func TestGenerateCommandFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "view.yaml", viewConfigYAML)

	out, err := run(t, nil, "generate", "-f", path, "--database", "other_db", "--filter", "eventname <> 'REMOVE'", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "schema: other_db")
	assert.Contains(t, out, "(eventname <> 'REMOVE')")
}

func TestGenerateCommandErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "view.yaml", viewConfigYAML)

	_, err := run(t, nil, "generate", "-f", path, "--only", "Nope")
	assert.ErrorContains(t, err, "unknown output type")

	_, err = run(t, nil, "generate", "-f", path, "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = run(t, nil, "generate", "-f", path, "--keys-type", "struct<")
	assert.ErrorIs(t, err, viewgen.ErrConfiguration)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "views.yaml", `catalogName: awsdatacatalog
databaseName: cdc_analytics_database
views:
  - cdcTableName: pn_notifications_table
    cdcParsedTableName: pn_notifications_table_parsed
    cdcViewName: pn_notifications_view
    cdcKeysType: struct<iun:struct<S:string>>
    cdcNewImageType: struct<iun:struct<S:string>,senderPaId:struct<S:string>>
  - cdcTableName: pn_timelines_table
    cdcParsedTableName: pn_timelines_table_parsed
    cdcViewName: pn_timelines_view
    databaseName: timelines_db
    cdcKeysType: struct<iun:struct<S:string>>
    cdcNewImageType: struct<iun:struct<S:string>>
`)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, nil, "batch", manifest, "--out", outDir, "--parallel", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Rendered 2 views")

	for view, schema := range map[string]string{
		"pn_notifications_view": "cdc_analytics_database",
		"pn_timelines_view":     "timelines_db",
	} {
		data, err := os.ReadFile(filepath.Join(outDir, view+".json"))
		require.NoError(t, err)
		var a viewgen.Artifacts
		require.NoError(t, json.Unmarshal(data, &a))
		assert.Equal(t, schema, a.View.Schema, view)
	}
}

func TestBatchCommandIsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "views.yaml", `catalogName: awsdatacatalog
databaseName: db
views:
  - cdcTableName: good
    cdcParsedTableName: good_parsed
    cdcViewName: good_view
    cdcKeysType: struct<iun:struct<S:string>>
    cdcNewImageType: struct<iun:struct<S:string>>
  - cdcTableName: bad
    cdcParsedTableName: bad_parsed
    cdcViewName: bad_view
    cdcKeysType: struct<iun:struct<S:string>>
`)
	outDir := filepath.Join(dir, "out")

	_, err := run(t, nil, "batch", manifest, "--out", outDir)
	require.ErrorIs(t, err, viewgen.ErrConfiguration)
	assert.NoDirExists(t, outDir)

	empty := writeFile(t, dir, "empty.yaml", "views: []\n")
	_, err = run(t, nil, "batch", empty)
	assert.ErrorContains(t, err, "lists no views")
}

func TestBatchCommandRejectsViewNames(t *testing.T) {
	view := func(name string) string {
		return `  - cdcTableName: table
    cdcParsedTableName: table_parsed
    cdcViewName: "` + name + `"
    cdcKeysType: struct<iun:struct<S:string>>
    cdcNewImageType: struct<iun:struct<S:string>>
`
	}
	tests := []struct {
		name  string
		views []string
		want  string
	}{
		{"parent directory", []string{"../escape"}, "cannot be used as a file name"},
		{"nested path", []string{"a/b"}, "cannot be used as a file name"},
		{"dot dot", []string{".."}, "cannot be used as a file name"},
		{"duplicate", []string{"same_view", " same_view "}, "already used by view 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			manifest := "catalogName: awsdatacatalog\ndatabaseName: db\nviews:\n"
			for _, name := range tt.views {
				manifest += view(name)
			}
			path := writeFile(t, dir, "views.yaml", manifest)
			outDir := filepath.Join(dir, "out")

			_, err := run(t, nil, "batch", path, "--out", outDir)
			assert.ErrorContains(t, err, tt.want)
			assert.NoDirExists(t, outDir)
		})
	}
}

func TestTransformCommand(t *testing.T) {
	event := `{
  "requestId": "req-1",
  "params": {
    "Enabled": "false",
    "OutputType": "StorageDescriptor-Columns"
  }
}`
	out, err := run(t, strings.NewReader(event), "transform")
	require.NoError(t, err)

	var resp transform.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, transform.StatusSuccess, resp.Status)
	assert.Equal(t, []viewgen.StorageColumn{{Name: viewgen.PlaceholderColumn, Type: "string"}}, resp.Fragment.Columns)

	_, err = run(t, strings.NewReader(`{"requestId":"req-2","params":{"OutputType":"Other"}}`), "transform")
	assert.ErrorIs(t, err, viewgen.ErrConfiguration)

	_, err = run(t, strings.NewReader("not json"), "transform")
	assert.ErrorContains(t, err, "invalid event")
}

func TestDecodeCommand(t *testing.T) {
	text, err := viewgen.EncodePrestoView(viewgen.PlaceholderViewData("", ""))
	require.NoError(t, err)

	dir := t.TempDir()
	path := writeFile(t, dir, "view.txt", text)

	out, err := run(t, nil, "decode", path)
	require.NoError(t, err)
	var view viewgen.ViewData
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, viewgen.PlaceholderViewData("", ""), view)

	out, err = run(t, strings.NewReader(text), "decode", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog: awsdatacatalog")

	_, err = run(t, strings.NewReader("SELECT 1"), "decode")
	assert.Error(t, err)
}

func TestInferCommandFromItems(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.json", `{"iun": "A", "amount": 3}
{"iun": "B", "tags": ["x"]}
`)

	out, err := run(t, nil, "infer", "--items", path, "--item-format", "json")
	require.NoError(t, err)
	assert.Equal(t, "cdcNewImageType: struct<amount:struct<N:string>,iun:struct<S:string>,tags:struct<L:array<struct<S:string>>>>\n", out)

	out, err = run(t, strings.NewReader(`{"Item":{"pk":{"S":"a"},"n":{"NULL":true}}}`), "infer", "--items", "-", "-o", "json")
	require.NoError(t, err)
	var got inferredTypes
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "struct<n:struct<NULL:boolean>,pk:struct<S:string>>", got.CdcNewImageType)
}

func TestInferCommandRequiresSource(t *testing.T) {
	_, err := run(t, nil, "infer")
	assert.ErrorContains(t, err, "--table or --items")
}

func TestLoadCLIConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, configFileName, "catalogName: cat\ndatabaseName: db\nregion: eu-south-1\nport: 9090\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg := loadCLIConfigFrom(nested)
	assert.Equal(t, CLIConfig{CatalogName: "cat", DatabaseName: "db", Region: "eu-south-1", Port: 9090}, cfg)

	t.Setenv("CDCVIEW_STORE_DIR", "/tmp/store")
	t.Setenv("AWS_REGION", "eu-central-1")
	cfg = applyEnv(cfg)
	assert.Equal(t, "/tmp/store", cfg.StoreDir)
	assert.Equal(t, "eu-central-1", cfg.Region)

	assert.Equal(t, CLIConfig{}, loadCLIConfigFrom(t.TempDir()))
}
