// Package projection turns a chart and its data source into a renderable
// chart description.
package projection

import (
	"fmt"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

// Default series colours per chart kind.
var defaultColors = map[models.ChartKind]string{
	models.ChartBar:     "#00BFFF",
	models.ChartLine:    "#00FF7F",
	models.ChartScatter: "#9D4EDD",
	models.ChartArea:    "#FFD700",
	models.ChartHeatmap: "#FF1493",
}

// Spec is a projected chart: one of *Cartesian, *Scatter, *Pie or *Heatmap.
type Spec interface {
	Kind() models.ChartKind
	// Option renders the chart as an ECharts option document.
	Option() map[string]any
	isSpec()
}

// Series is one named sequence of values.
type Series struct {
	Name string         `json:"name"`
	Data []models.Value `json:"data"`
}

// Cartesian covers bar, line and area charts: shared categories on the
// x axis and one series per y column.
type Cartesian struct {
	ChartKind  models.ChartKind `json:"type"`
	Title      string           `json:"title"`
	Color      string           `json:"color"`
	Categories []models.Value   `json:"categories"`
	Series     []Series         `json:"series"`
}

// Point is an (x, y) pair.
type Point [2]models.Value

// ScatterSeries is one named set of points.
type ScatterSeries struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Scatter plots x against each y column.
type Scatter struct {
	Title  string          `json:"title"`
	Color  string          `json:"color"`
	Series []ScatterSeries `json:"series"`
}

// Slice is one pie segment.
type Slice struct {
	Name  models.Value `json:"name"`
	Value models.Value `json:"value"`
}

// Pie uses x as the label and the first y column as the value.
type Pie struct {
	Title  string  `json:"title"`
	Slices []Slice `json:"slices"`
}

// Cell is one heatmap cell, addressed by category index.
type Cell struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Value float64 `json:"value"`
}

// Heatmap buckets rows by (x, y) category pairs.
type Heatmap struct {
	Title       string         `json:"title"`
	Color       string         `json:"color"`
	XCategories []models.Value `json:"xCategories"`
	YCategories []models.Value `json:"yCategories"`
	Cells       []Cell         `json:"cells"`
	Max         float64        `json:"max"`
}

func (c *Cartesian) Kind() models.ChartKind { return c.ChartKind }
func (*Scatter) Kind() models.ChartKind     { return models.ChartScatter }
func (*Pie) Kind() models.ChartKind         { return models.ChartPie }
func (*Heatmap) Kind() models.ChartKind     { return models.ChartHeatmap }

func (*Cartesian) isSpec() {}
func (*Scatter) isSpec()   {}
func (*Pie) isSpec()       {}
func (*Heatmap) isSpec()   {}

// Project builds the Spec for chart over ds. The x column is chart.XAxis,
// else the first column; the y columns are chart.YAxis, else the second
// column. A missing column yields null values rather than an error.
// Table charts have no Spec and return nil.
func Project(chart models.ChartConfig, ds models.DataSource) (Spec, error) {
	x := namedAxis(chart.XAxis)
	if chart.XAxis == "" {
		x = sourceAxis(ds, 0)
	}
	ys := make([]axis, 0, len(chart.YAxis))
	for _, y := range chart.YAxis {
		ys = append(ys, namedAxis(y))
	}
	if len(ys) == 0 {
		ys = append(ys, sourceAxis(ds, 1))
	}
	color := chart.Color
	if color == "" {
		color = defaultColors[chart.Kind]
	}

	switch chart.Kind {
	case models.ChartBar, models.ChartLine, models.ChartArea:
		return projectCartesian(chart, ds.Rows, x, ys, color), nil
	case models.ChartScatter:
		return projectScatter(chart, ds.Rows, x, ys, color), nil
	case models.ChartPie:
		return projectPie(chart, ds.Rows, x, ys[0]), nil
	case models.ChartHeatmap:
		return projectHeatmap(chart, ds.Rows, x, ys, color), nil
	case models.ChartTable:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown chart type %q", apperr.ErrPrecondition, chart.Kind)
	}
}

// axis is a column lookup. A missing axis reads null from every row.
type axis struct {
	name    string
	present bool
}

func namedAxis(name string) axis { return axis{name: name, present: true} }

// sourceAxis falls back to the i-th column of ds, if it has one.
func sourceAxis(ds models.DataSource, i int) axis {
	name, ok := ds.Column(i)
	return axis{name: name, present: ok}
}

func (a axis) get(row models.Row) models.Value {
	if !a.present {
		return models.Null
	}
	return row.Get(a.name)
}

func column(rows []models.Row, a axis) []models.Value {
	out := make([]models.Value, len(rows))
	for i, row := range rows {
		out[i] = a.get(row)
	}
	return out
}

func projectCartesian(chart models.ChartConfig, rows []models.Row, x axis, ys []axis, color string) *Cartesian {
	c := &Cartesian{
		ChartKind:  chart.Kind,
		Title:      chart.Title,
		Color:      color,
		Categories: column(rows, x),
		Series:     make([]Series, 0, len(ys)),
	}
	for _, y := range ys {
		c.Series = append(c.Series, Series{Name: y.name, Data: column(rows, y)})
	}
	return c
}

func projectScatter(chart models.ChartConfig, rows []models.Row, x axis, ys []axis, color string) *Scatter {
	s := &Scatter{Title: chart.Title, Color: color, Series: make([]ScatterSeries, 0, len(ys))}
	for _, y := range ys {
		pts := make([]Point, len(rows))
		for i, row := range rows {
			pts[i] = Point{x.get(row), y.get(row)}
		}
		s.Series = append(s.Series, ScatterSeries{Name: y.name, Points: pts})
	}
	return s
}

func projectPie(chart models.ChartConfig, rows []models.Row, x, y axis) *Pie {
	p := &Pie{Title: chart.Title, Slices: make([]Slice, len(rows))}
	for i, row := range rows {
		p.Slices[i] = Slice{Name: x.get(row), Value: y.get(row)}
	}
	return p
}

// projectHeatmap uses x and the first y column as the two category axes.
// A second y column is summed per cell; without one, rows are counted.
func projectHeatmap(chart models.ChartConfig, rows []models.Row, x axis, ys []axis, color string) *Heatmap {
	y := ys[0]
	var value axis
	if len(ys) > 1 {
		value = ys[1]
	}

	h := &Heatmap{Title: chart.Title, Color: color}
	xIndex := make(map[models.Value]int)
	yIndex := make(map[models.Value]int)
	index := func(m map[models.Value]int, cats *[]models.Value, v models.Value) int {
		if i, ok := m[v]; ok {
			return i
		}
		m[v] = len(*cats)
		*cats = append(*cats, v)
		return m[v]
	}

	type key struct{ x, y int }
	sums := make(map[key]float64)
	var order []key
	for _, row := range rows {
		k := key{index(xIndex, &h.XCategories, x.get(row)), index(yIndex, &h.YCategories, y.get(row))}
		if _, seen := sums[k]; !seen {
			order = append(order, k)
			sums[k] = 0
		}
		if !value.present {
			sums[k]++
			continue
		}
		if f, ok := value.get(row).Float(); ok {
			sums[k] += f
		}
	}

	h.Cells = make([]Cell, 0, len(order))
	for i, k := range order {
		v := sums[k]
		h.Cells = append(h.Cells, Cell{X: k.x, Y: k.y, Value: v})
		if i == 0 || v > h.Max {
			h.Max = v
		}
	}
	if h.XCategories == nil {
		h.XCategories = []models.Value{}
	}
	if h.YCategories == nil {
		h.YCategories = []models.Value{}
	}
	return h
}
