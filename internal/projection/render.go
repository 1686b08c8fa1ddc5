package projection

import (
	"fmt"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
	"github.com/starford/dataforge/internal/state"
)

// TableRowLimit caps the rows of a table view. There is no paging past it.
const TableRowLimit = 100

// MissingSourceMessage is shown in place of a chart whose data source no
// longer exists.
const MissingSourceMessage = "No data source found!"

// TableView is the tabular rendering of a data source.
type TableView struct {
	Columns   []string     `json:"columns"`
	Rows      []models.Row `json:"rows"`
	Total     int          `json:"total"`
	Truncated bool         `json:"truncated"`
}

// Table returns the first TableRowLimit rows of ds.
func Table(ds models.DataSource) TableView {
	rows := ds.Rows
	if len(rows) > TableRowLimit {
		rows = rows[:TableRowLimit]
	}
	return TableView{
		Columns:   ds.Columns,
		Rows:      rows,
		Total:     len(ds.Rows),
		Truncated: len(ds.Rows) > TableRowLimit,
	}
}

// Result is what a chart widget displays.
type Result struct {
	ChartID string           `json:"chartId"`
	Kind    models.ChartKind `json:"type"`
	Title   string           `json:"title"`
	Missing bool             `json:"missing,omitempty"`
	Message string           `json:"message,omitempty"`
	Spec    Spec             `json:"spec,omitempty"`
	Option  map[string]any   `json:"option,omitempty"`
	Table   *TableView       `json:"table,omitempty"`

	reason error
}

// Err returns the ErrMissingReference behind a placeholder result, or nil.
func (r Result) Err() error { return r.reason }

// Render resolves the chart's data source in s and projects it. A dangling
// reference is not an error: the result carries the placeholder instead.
func Render(s state.State, chart models.ChartConfig) (Result, error) {
	res := Result{ChartID: chart.ID, Kind: chart.Kind, Title: chart.Title}

	ds, ok := s.DataSource(chart.DataSourceID)
	if !ok {
		res.Missing = true
		res.Message = MissingSourceMessage
		res.reason = fmt.Errorf("%w: chart %q references data source %q",
			apperr.ErrMissingReference, chart.ID, chart.DataSourceID)
		return res, nil
	}

	if chart.Kind == models.ChartTable {
		tv := Table(ds)
		res.Table = &tv
		return res, nil
	}

	spec, err := Project(chart, ds)
	if err != nil {
		return Result{}, err
	}
	res.Spec = spec
	res.Option = spec.Option()
	return res, nil
}
