// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes DataForge tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dataforge/internal/dashservice"
	"github.com/starford/dataforge/internal/models"
	"github.com/starford/dataforge/internal/transform"
)

// ChartKindsURI is the resource describing the supported chart types.
const ChartKindsURI = "dataforge://chart-kinds"

// Server wraps the MCP server with DataForge tools.
type Server struct {
	mcp *server.MCPServer
	svc *dashservice.Service
}

// New creates a new MCP server with all DataForge tools registered.
func New(svc *dashservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"DataForge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_data_sources",
		mcp.WithDescription("List imported data sources with their columns and row counts."),
	), s.listDataSources)

	s.mcp.AddTool(mcp.NewTool("import_file",
		mcp.WithDescription("Import a CSV, TSV, Excel, JSON or Parquet file from the workspace as a new data source."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path (e.g. inbox/sales.csv)")),
	), s.importFile)

	s.mcp.AddTool(mcp.NewTool("fetch_data",
		mcp.WithDescription("Download a data file from an http(s) URL or a base64 data URI into the workspace and import it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data> URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; its extension selects the parser")),
	), s.fetchData)

	s.mcp.AddTool(mcp.NewTool("list_dashboards",
		mcp.WithDescription("List dashboards and the current selection."),
	), s.listDashboards)

	s.mcp.AddTool(mcp.NewTool("add_chart",
		mcp.WithDescription("Add a chart bound to the first data source. "+
			"Read the "+ChartKindsURI+" resource for the available types."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Chart type: bar, line, pie, scatter, area, heatmap or table")),
		mcp.WithString("dashboard_id", mcp.Description("Dashboard id (defaults to the current dashboard)")),
	), s.addChart)

	s.mcp.AddTool(mcp.NewTool("update_chart",
		mcp.WithDescription("Change a chart's title, data source or axes."),
		mcp.WithString("chart_id", mcp.Required(), mcp.Description("Chart id")),
		mcp.WithString("dashboard_id", mcp.Description("Dashboard id (defaults to the current dashboard)")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("data_source_id", mcp.Description("Data source to bind")),
		mcp.WithString("x_axis", mcp.Description("Category column")),
		mcp.WithString("y_axis", mcp.Description("Comma-separated value columns")),
	), s.updateChart)

	s.mcp.AddTool(mcp.NewTool("render_chart",
		mcp.WithDescription("Render a chart to its ECharts option or table view."),
		mcp.WithString("chart_id", mcp.Required(), mcp.Description("Chart id")),
		mcp.WithString("dashboard_id", mcp.Description("Dashboard id (defaults to the current dashboard)")),
	), s.renderChart)

	s.mcp.AddTool(mcp.NewTool("aggregate",
		mcp.WithDescription("Group a data source by one column and aggregate others."),
		mcp.WithString("data_source_id", mcp.Required(), mcp.Description("Data source id")),
		mcp.WithString("group_by", mcp.Required(), mcp.Description("Column to group by")),
		mcp.WithString("aggregations", mcp.Required(), mcp.Description("Comma-separated column:func pairs, func one of sum, avg, count, min, max (e.g. sales:sum,qty:avg)")),
	), s.aggregate)

	s.mcp.AddTool(mcp.NewTool("export_dashboard",
		mcp.WithDescription("Export a dashboard as a JSON document, optionally saving it to the workspace."),
		mcp.WithString("dashboard_id", mcp.Description("Dashboard id (defaults to the current dashboard)")),
		mcp.WithBoolean("save", mcp.Description("Write the export into the workspace exports directory")),
	), s.exportDashboard)

	s.mcp.AddResource(
		mcp.NewResource(ChartKindsURI, "Chart Types",
			mcp.WithResourceDescription("Supported chart types and the fields each one reads."),
			mcp.WithMIMEType("application/json"),
		),
		s.readChartKindsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listDataSources(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListDataSources()), nil
}

func (s *Server) importFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ds, err := s.svc.ImportFile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ds.Summary()), nil
}

func (s *Server) listDashboards(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"dashboards":         s.svc.ListDashboards(),
		"currentDashboardId": s.svc.State().CurrentDashboardID,
	}), nil
}

func (s *Server) addChart(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.AddChart(req.GetString("dashboard_id", ""), models.ChartKind(strings.ToLower(kind)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c), nil
}

func (s *Server) updateChart(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chartID, err := req.RequireString("chart_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var p models.ChartPatch
	if v := req.GetString("title", ""); v != "" {
		p.Title = &v
	}
	if v := req.GetString("data_source_id", ""); v != "" {
		p.DataSourceID = &v
	}
	if v := req.GetString("x_axis", ""); v != "" {
		p.XAxis = &v
	}
	if v := req.GetString("y_axis", ""); v != "" {
		y := models.YAxis(splitList(v))
		p.YAxis = &y
	}

	c, err := s.svc.UpdateChart(req.GetString("dashboard_id", ""), chartID, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c), nil
}

func (s *Server) renderChart(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chartID, err := req.RequireString("chart_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.RenderChart(req.GetString("dashboard_id", ""), chartID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := res.Err(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s (%v)", res.Message, err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) aggregate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dsID, err := req.RequireString("data_source_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	groupBy, err := req.RequireString("group_by")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("aggregations")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	specs, err := parseAggregations(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := s.svc.Query(dsID, transform.Query{GroupBy: groupBy, Aggregations: specs})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rows), nil
}

func (s *Server) exportDashboard(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dashID := req.GetString("dashboard_id", "")
	if req.GetBool("save", false) {
		res, err := s.svc.SaveExport(dashID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !res.Success {
			return mcp.NewToolResultError(res.Error), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("saved: %s", res.Path)), nil
	}
	_, data, err := s.svc.ExportDashboard(dashID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readChartKindsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(chartKindDocs(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ChartKindsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

// parseAggregations reads "col:func,col:func".
func parseAggregations(raw string) ([]transform.AggregateSpec, error) {
	var specs []transform.AggregateSpec
	for _, part := range splitList(raw) {
		col, fn, ok := strings.Cut(part, ":")
		if !ok || col == "" || fn == "" {
			return nil, fmt.Errorf("invalid aggregation %q: want column:func", part)
		}
		specs = append(specs, transform.AggregateSpec{
			Column: strings.TrimSpace(col),
			Func:   transform.AggregateFunc(strings.ToLower(strings.TrimSpace(fn))),
		})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one aggregation is required")
	}
	return specs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
