package mcpserver

import "github.com/starford/dataforge/internal/models"

// chartKindDoc describes one chart type for LLM consumers.
type chartKindDoc struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	XAxis  string `json:"xAxis"`
	YAxis  string `json:"yAxis"`
	Output string `json:"output"`
}

var chartKindUsage = map[models.ChartKind]chartKindDoc{
	models.ChartBar:     {XAxis: "category column", YAxis: "one or more numeric columns, one series each", Output: "echarts"},
	models.ChartLine:    {XAxis: "category column", YAxis: "one or more numeric columns, one series each", Output: "echarts"},
	models.ChartArea:    {XAxis: "category column", YAxis: "one or more numeric columns, one filled area each", Output: "echarts"},
	models.ChartScatter: {XAxis: "numeric column", YAxis: "numeric columns, one point series each", Output: "echarts"},
	models.ChartPie:     {XAxis: "slice name column", YAxis: "first column is the slice value", Output: "echarts"},
	models.ChartHeatmap: {XAxis: "x category column", YAxis: "y category column, then an optional value column (row count otherwise)", Output: "echarts"},
	models.ChartTable:   {XAxis: "unused", YAxis: "unused", Output: "first 100 rows of every column"},
}

// chartKindDocs lists every chart kind in display order. Unset axes fall
// back to the first and second columns of the data source.
func chartKindDocs() []chartKindDoc {
	out := make([]chartKindDoc, 0, len(models.ChartKinds))
	for _, k := range models.ChartKinds {
		doc := chartKindUsage[k]
		doc.Type = string(k)
		doc.Label = k.Label()
		out = append(out, doc)
	}
	return out
}
