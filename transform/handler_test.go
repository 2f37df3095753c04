package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagopa/cdcview/artifactstore"
	"github.com/pagopa/cdcview/internal/logger"
	"github.com/pagopa/cdcview/viewgen"
)

func baseEvent(enabled string) Event {
	return Event{
		RequestID: "evtId1",
		Params: Params{
			Config: viewgen.Config{
				CatalogName:        "awsdatacatalog",
				DatabaseName:       "cdc_analytics_database",
				CdcTableName:       "pn_notifications_table",
				CdcParsedTableName: "pn_notifications_table_parsed",
				CdcViewName:        "pn_notifications_view",
				CdcKeysType:        "struct<iun:struct<S:string>>",
				CdcNewImageType: `struct<
                              iun:struct<S:string>,
                              taxonomyCode:struct<S:string>
                            >`,
			},
			Enabled: enabled,
		},
	}
}

func withOutput(ev Event, id string, output OutputType) Event {
	ev.RequestID = id
	ev.Params.OutputType = output
	return ev
}

func storageColumns(names ...string) []viewgen.StorageColumn {
	types := map[string]string{
		"dynamodb_SizeBytes": "bigint",
		"kinesis_dynamodb_ApproximateCreationDateTime": "bigint",
	}
	cols := make([]viewgen.StorageColumn, len(names))
	for i, n := range names {
		typ, ok := types[n]
		if !ok {
			typ = "string"
		}
		cols[i] = viewgen.StorageColumn{Name: n, Type: typ}
	}
	return cols
}

var expectedNames = []string{
	"iun", "taxonomyCode", "dynamodb_SizeBytes", "dynamodb_keys_iun",
	"kinesis_dynamodb_ApproximateCreationDateTime",
	"stream_awsregion", "stream_eventid", "stream_eventname", "stream_recordformat",
	"stream_tablename", "stream_useridentity",
	"p_hour", "p_year", "p_month", "p_day",
}

func viewColumns() []viewgen.Column {
	cols := make([]viewgen.Column, len(expectedNames))
	for i, n := range expectedNames {
		typ := "VARCHAR"
		if n == "dynamodb_SizeBytes" || n == "kinesis_dynamodb_ApproximateCreationDateTime" {
			typ = "BIGINT"
		}
		cols[i] = viewgen.Column{Name: n, Type: typ}
	}
	return cols
}

func decodeView(t *testing.T, resp Response) viewgen.ViewData {
	t.Helper()
	require.Nil(t, resp.Fragment.Columns)
	v, err := viewgen.DecodePrestoView(resp.Fragment.Text)
	require.NoError(t, err)
	return v
}

func TestHandleEnabled(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(WithLogger(logger.Discard()))
	ev := baseEvent("true")

	resp, err := h.Handle(ctx, withOutput(ev, "evtId1__col", OutputStorageColumns))
	require.NoError(t, err)
	assert.Equal(t, "evtId1__col", resp.RequestID)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, storageColumns(expectedNames...), resp.Fragment.Columns)

	resp, err = h.Handle(ctx, withOutput(ev, "evtId1__col_noPart", OutputStorageColumnsNoParsedPartition))
	require.NoError(t, err)
	assert.Equal(t, "evtId1__col_noPart", resp.RequestID)
	assert.Equal(t, storageColumns(expectedNames[:12]...), resp.Fragment.Columns)

	resp, err = h.Handle(ctx, withOutput(ev, "evtId1__view", OutputViewText))
	require.NoError(t, err)
	view := decodeView(t, resp)
	assert.Equal(t, "awsdatacatalog", view.Catalog)
	assert.Equal(t, "cdc_analytics_database", view.Schema)
	assert.Equal(t, viewColumns(), view.Columns)
	assert.Contains(t, view.OriginalSQL, `"dynamodb"."NewImage"."taxonomyCode"."S" AS "taxonomyCode",`)
	assert.Contains(t, view.OriginalSQL, `"cdc_analytics_database"."pn_notifications_table" t`)
	assert.NotContains(t, view.OriginalSQL, "WHERE")

	resp, err = h.Handle(ctx, withOutput(ev, "evtId1__view_unionAll", OutputViewTextUnionAll))
	require.NoError(t, err)
	union := decodeView(t, resp)
	assert.Equal(t, ""+
		"  SELECT * FROM \"pn_notifications_view\" \n"+
		"    WHERE p_year = lpad( cast( year(current_date) as varchar), 4, '0') \n"+
		"      AND p_month = lpad( cast( month(current_date) as varchar), 2, '0') \n"+
		"      AND p_day = lpad( cast( day(current_date) as varchar), 2, '0') \n"+
		"UNION ALL \n"+
		"  SELECT * FROM \"pn_notifications_table_parsed\" ", union.OriginalSQL)
	assert.Equal(t, viewColumns(), union.Columns)
}

func TestHandleDisabled(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(WithLogger(logger.Discard()))
	ev := baseEvent("false")
	// the placeholder never looks at the schema
	ev.Params.CdcKeysType = "struct<"
	ev.Params.CdcParsedTableName = ""

	wantColumns := []viewgen.StorageColumn{{Name: "fake_column", Type: "string"}}
	wantView := viewgen.ViewData{
		OriginalSQL: "SELECT 'a_value' AS fake_column",
		Catalog:     "awsdatacatalog",
		Schema:      "cdc_analytics_database",
		Columns:     []viewgen.Column{{Name: "fake_column", Type: "VARCHAR"}},
	}

	for _, output := range []OutputType{OutputStorageColumns, OutputStorageColumnsNoParsedPartition} {
		resp, err := h.Handle(ctx, withOutput(ev, "evtId2", output))
		require.NoError(t, err)
		assert.Equal(t, wantColumns, resp.Fragment.Columns)
	}
	for _, output := range []OutputType{OutputViewText, OutputViewTextUnionAll} {
		resp, err := h.Handle(ctx, withOutput(ev, "evtId2", output))
		require.NoError(t, err)
		assert.Equal(t, wantView, decodeView(t, resp))
		assert.Equal(t, "/* Presto View: eyJvcmlnaW5hbFNxbCI6IlNFTEVDVCAnYV92YWx1ZScgQVMgZmFrZV9jb2x1bW4iLCJjYXRhbG9nIjoiYXdzZGF0YWNhdGFsb2ciLCJzY2hlbWEiOiJjZGNfYW5hbHl0aWNzX2RhdGFiYXNlIiwiY29sdW1ucyI6W3sibmFtZSI6ImZha2VfY29sdW1uIiwidHlwZSI6IlZBUkNIQVIifV19 */", resp.Fragment.Text)
	}
}

func TestHandleDisabledDefaults(t *testing.T) {
	h := NewHandler(WithLogger(logger.Discard()))
	resp, err := h.Handle(context.Background(), Event{RequestID: "r", Params: Params{OutputType: OutputViewText}})
	require.NoError(t, err)

	view := decodeView(t, resp)
	assert.Equal(t, "awsdatacatalog", view.Catalog)
	assert.Equal(t, "database_name", view.Schema)
}

func TestHandleRejectsUnknownOutputType(t *testing.T) {
	h := NewHandler(WithLogger(logger.Discard()))
	for _, enabled := range []string{"true", "false"} {
		t.Run("enabled="+enabled, func(t *testing.T) {
			_, err := h.Handle(context.Background(), withOutput(baseEvent(enabled), "r", "Foo"))
			require.Error(t, err)
			assert.ErrorIs(t, err, viewgen.ErrConfiguration)
			assert.Contains(t, err.Error(), "OutputType")
		})
	}
}

func TestHandleGenerationError(t *testing.T) {
	h := NewHandler(WithLogger(logger.Discard()))
	ev := withOutput(baseEvent("true"), "r", OutputStorageColumns)
	ev.Params.CdcNewImageType = "struct<iun:struct<S:string>"

	_, err := h.Handle(context.Background(), ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, viewgen.ErrConfiguration)
}

func TestHandleUsesCache(t *testing.T) {
	ctx := context.Background()
	store, err := artifactstore.New(artifactstore.StoreOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var logs bytes.Buffer
	h := NewHandler(WithLogger(logger.New(&logs, true)), WithCache(store))
	ev := withOutput(baseEvent("true"), "r1", OutputStorageColumns)

	first, err := h.Handle(ctx, ev)
	require.NoError(t, err)

	records, err := store.List(ctx, "pn_notifications_view")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(OutputStorageColumns), records[0].OutputType)
	assert.Equal(t, CacheKey(ev.Params.Config, OutputStorageColumns), records[0].Key)

	ev.RequestID = "r2"
	second, err := h.Handle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, "r2", second.RequestID)
	assert.Equal(t, first.Fragment, second.Fragment)
	assert.Contains(t, logs.String(), "Using cached fragment")
}

func TestCacheKey(t *testing.T) {
	cfg := baseEvent("true").Params.Config
	assert.Equal(t, CacheKey(cfg, OutputViewText), CacheKey(cfg, OutputViewText))
	assert.NotEqual(t, CacheKey(cfg, OutputViewText), CacheKey(cfg, OutputViewTextUnionAll))

	padded := cfg
	padded.CdcViewName = "  " + cfg.CdcViewName + " "
	assert.Equal(t, CacheKey(cfg, OutputViewText), CacheKey(padded, OutputViewText))
}

func TestEventJSON(t *testing.T) {
	raw := `{
		"requestId": "abc",
		"params": {
			"CatalogName": "awsdatacatalog",
			"DatabaseName": "db",
			"CdcTableName": "t1",
			"CdcParsedTableName": "t1_parsed",
			"CdcViewName": "v1",
			"CdcKeysType": "struct<pk:struct<S:string>>",
			"CdcNewImageType": "struct<pk:struct<S:string>>",
			"Enabled": "true",
			"OutputType": "StorageDescriptor-Columns"
		}
	}`
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	assert.Equal(t, "abc", ev.RequestID)
	assert.Equal(t, "v1", ev.Params.CdcViewName)
	assert.True(t, ev.Params.IsEnabled())
	assert.Equal(t, OutputStorageColumns, ev.Params.OutputType)

	resp, err := NewHandler(WithLogger(logger.Discard())).Handle(context.Background(), ev)
	require.NoError(t, err)

	out, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "abc", decoded["requestId"])
	assert.Equal(t, "success", decoded["status"])
	frag, ok := decoded["fragment"].([]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"Name": "pk", "Type": "string"}, frag[0])
}

func TestFragmentJSON(t *testing.T) {
	tests := []struct {
		name string
		frag Fragment
		want string
	}{
		{"columns", Fragment{Columns: []viewgen.StorageColumn{{Name: "a", Type: "string"}}}, `[{"Name":"a","Type":"string"}]`},
		{"text", Fragment{Text: "/* Presto View: x */"}, `"/* Presto View: x */"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.frag)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))

			var back Fragment
			require.NoError(t, json.Unmarshal(out, &back))
			assert.Equal(t, tt.frag, back)
		})
	}
}

func TestPrime(t *testing.T) {
	ctx := context.Background()
	store, err := artifactstore.New(artifactstore.StoreOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ev := baseEvent("true")
	gen, err := viewgen.New(ev.Params.Config)
	require.NoError(t, err)
	a, err := gen.Artifacts(ctx)
	require.NoError(t, err)

	h := NewHandler(WithLogger(logger.Discard()), WithCache(store))
	h.Prime(ctx, ev.Params.Config, a)

	records, err := store.List(ctx, "pn_notifications_view")
	require.NoError(t, err)
	assert.Len(t, records, len(OutputTypes))

	resp, err := h.Handle(ctx, withOutput(ev, "r", OutputViewTextUnionAll))
	require.NoError(t, err)
	assert.Equal(t, a.UnionAllViewText, resp.Fragment.Text)

	NewHandler(WithLogger(logger.Discard())).Prime(ctx, ev.Params.Config, a)
}
