package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/dashservice"
	"github.com/starford/dataforge/internal/importer"
	"github.com/starford/dataforge/internal/models"
	"github.com/starford/dataforge/internal/projection"
	"github.com/starford/dataforge/internal/state"
	"github.com/starford/dataforge/internal/storage"
	"github.com/starford/dataforge/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	_, fs := testutil.TestWorkspace(t)
	svc := dashservice.NewService(state.NewStore(), fs, importer.New())
	return New(svc), fs
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_data_sources":
		result, err = srv.listDataSources(ctx, req)
	case "import_file":
		result, err = srv.importFile(ctx, req)
	case "fetch_data":
		result, err = srv.fetchData(ctx, req)
	case "list_dashboards":
		result, err = srv.listDashboards(ctx, req)
	case "add_chart":
		result, err = srv.addChart(ctx, req)
	case "update_chart":
		result, err = srv.updateChart(ctx, req)
	case "render_chart":
		result, err = srv.renderChart(ctx, req)
	case "aggregate":
		result, err = srv.aggregate(ctx, req)
	case "export_dashboard":
		result, err = srv.exportDashboard(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func importSales(t *testing.T, srv *Server, fs storage.Provider) models.DataSourceSummary {
	t.Helper()
	testutil.WriteFile(t, fs, "sales.csv", testutil.SalesCSV)
	r := callTool(t, srv, "import_file", map[string]interface{}{"path": "sales.csv"})
	if r.IsError {
		t.Fatalf("import_file: %s", resultText(r))
	}
	var ds models.DataSourceSummary
	if err := json.Unmarshal([]byte(resultText(r)), &ds); err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestImportAndListDataSources(t *testing.T) {
	srv, fs := testServer(t)
	ds := importSales(t, srv, fs)
	if ds.Name != "sales.csv" || ds.RowCount != 3 {
		t.Errorf("ds = %+v", ds)
	}

	r := callTool(t, srv, "list_data_sources", map[string]interface{}{})
	if !strings.Contains(resultText(r), ds.ID) {
		t.Errorf("list = %s", resultText(r))
	}
}

func TestImportFile_Errors(t *testing.T) {
	srv, _ := testServer(t)
	if r := callTool(t, srv, "import_file", map[string]interface{}{}); !r.IsError {
		t.Error("expected error for missing path")
	}
	if r := callTool(t, srv, "import_file", map[string]interface{}{"path": "nope.csv"}); !r.IsError {
		t.Error("expected error for missing file")
	}
}

func TestAddUpdateRenderChart(t *testing.T) {
	srv, fs := testServer(t)

	if r := callTool(t, srv, "add_chart", map[string]interface{}{"type": "bar"}); !r.IsError || !strings.Contains(resultText(r), dashservice.NoDataSourceMessage) {
		t.Errorf("add without data = %s", resultText(r))
	}

	importSales(t, srv, fs)
	r := callTool(t, srv, "add_chart", map[string]interface{}{"type": "Line"})
	if r.IsError {
		t.Fatalf("add_chart: %s", resultText(r))
	}
	var c models.ChartConfig
	_ = json.Unmarshal([]byte(resultText(r)), &c)
	if c.Kind != models.ChartLine || c.Title != "New Line Chart" {
		t.Errorf("chart = %+v", c)
	}

	r = callTool(t, srv, "update_chart", map[string]interface{}{
		"chart_id": c.ID,
		"x_axis":   "month",
		"y_axis":   "sales, region",
	})
	if r.IsError {
		t.Fatalf("update_chart: %s", resultText(r))
	}
	_ = json.Unmarshal([]byte(resultText(r)), &c)
	if c.XAxis != "month" || len(c.YAxis) != 2 {
		t.Errorf("updated = %+v", c)
	}

	r = callTool(t, srv, "render_chart", map[string]interface{}{"chart_id": c.ID})
	if r.IsError || !strings.Contains(resultText(r), `"option"`) {
		t.Errorf("render = %s", resultText(r))
	}
	if r := callTool(t, srv, "render_chart", map[string]interface{}{"chart_id": "ghost"}); !r.IsError {
		t.Error("expected error for unknown chart")
	}
}

func TestRenderChart_MissingSource(t *testing.T) {
	srv, fs := testServer(t)
	ds := importSales(t, srv, fs)
	r := callTool(t, srv, "add_chart", map[string]interface{}{"type": "bar"})
	var c models.ChartConfig
	_ = json.Unmarshal([]byte(resultText(r)), &c)

	if err := srv.svc.RemoveDataSource(ds.ID); err != nil {
		t.Fatal(err)
	}
	r = callTool(t, srv, "render_chart", map[string]interface{}{"chart_id": c.ID})
	text := resultText(r)
	if !r.IsError || !strings.Contains(text, projection.MissingSourceMessage) || !strings.Contains(text, apperr.ErrMissingReference.Error()) {
		t.Errorf("render = %v %s", r.IsError, text)
	}
}

func TestAggregate(t *testing.T) {
	srv, fs := testServer(t)
	ds := importSales(t, srv, fs)

	r := callTool(t, srv, "aggregate", map[string]interface{}{
		"data_source_id": ds.ID,
		"group_by":       "region",
		"aggregations":   "sales:sum, sales:count",
	})
	if r.IsError {
		t.Fatalf("aggregate: %s", resultText(r))
	}
	var rows []models.Row
	if err := json.Unmarshal([]byte(resultText(r)), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Get("sales_sum") != models.Num(220) || rows[0].Get("sales_count") != models.Num(2) {
		t.Errorf("rows = %+v", rows)
	}

	for _, bad := range []string{"sales", "sales:median", ""} {
		r := callTool(t, srv, "aggregate", map[string]interface{}{
			"data_source_id": ds.ID,
			"group_by":       "region",
			"aggregations":   bad,
		})
		if !r.IsError {
			t.Errorf("aggregations %q: expected error", bad)
		}
	}
}

func TestListDashboards(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_dashboards", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "My First Dashboard") || !strings.Contains(text, `"currentDashboardId": "default"`) {
		t.Errorf("list = %s", text)
	}
}

func TestExportDashboard(t *testing.T) {
	srv, fs := testServer(t)

	r := callTool(t, srv, "export_dashboard", map[string]interface{}{})
	if r.IsError || !strings.Contains(resultText(r), `"exportedAt"`) {
		t.Errorf("export = %s", resultText(r))
	}

	r = callTool(t, srv, "export_dashboard", map[string]interface{}{"save": true})
	if r.IsError {
		t.Fatalf("save: %s", resultText(r))
	}
	if _, err := fs.Read("exports/My_First_Dashboard.json"); err != nil {
		t.Errorf("saved export missing: %v (%s)", err, resultText(r))
	}

	if r := callTool(t, srv, "export_dashboard", map[string]interface{}{"dashboard_id": "ghost"}); !r.IsError {
		t.Error("expected error for unknown dashboard")
	}
}

func TestFetchData_DataURI(t *testing.T) {
	srv, fs := testServer(t)
	uri := "data:text/csv;base64," + base64.StdEncoding.EncodeToString([]byte(testutil.SalesCSV))

	r := callTool(t, srv, "fetch_data", map[string]interface{}{"url": uri, "filename": "q1 sales.csv"})
	if r.IsError {
		t.Fatalf("fetch_data: %s", resultText(r))
	}
	var res fetchResult
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if res.Rows != 3 || res.SavedPath != "downloads/q1_sales.csv" {
		t.Errorf("result = %+v", res)
	}
	if _, err := fs.Read(res.SavedPath); err != nil {
		t.Errorf("download not saved: %v", err)
	}

	// Same name again is refused.
	if r := callTool(t, srv, "fetch_data", map[string]interface{}{"url": uri, "filename": "q1 sales.csv"}); !r.IsError {
		t.Error("expected error for existing file")
	}
}

func TestFetchData_Rejected(t *testing.T) {
	srv, _ := testServer(t)
	cases := map[string]map[string]interface{}{
		"loopback":     {"url": "http://127.0.0.1:9/data.csv"},
		"scheme":       {"url": "ftp://example.com/data.csv"},
		"not base64":   {"url": "data:text/csv,a,b"},
		"extension":    {"url": "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("x")), "filename": "notes.txt"},
		"fake parquet": {"url": "data:application/x-parquet;base64," + base64.StdEncoding.EncodeToString([]byte("nope")), "filename": "x.parquet"},
	}
	for name, args := range cases {
		if r := callTool(t, srv, "fetch_data", args); !r.IsError {
			t.Errorf("%s: expected error, got %s", name, resultText(r))
		}
	}
}

func TestChartKindsResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readChartKindsResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != ChartKindsURI {
		t.Fatalf("contents = %+v", contents)
	}
	var docs []chartKindDoc
	if err := json.Unmarshal([]byte(tc.Text), &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != len(models.ChartKinds) || docs[0].Type != "bar" || docs[0].Label != "Bar" {
		t.Errorf("docs = %+v", docs)
	}
}
