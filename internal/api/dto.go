package api

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dataforge/internal/layout"
	"github.com/starford/dataforge/internal/models"
)

// ImportFileRequest imports a file that already sits in the workspace.
type ImportFileRequest struct {
	Path string `json:"path" example:"data/sales.csv" validate:"required"`
}

// Validate validates the request.
func (r *ImportFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// CreateDashboardRequest creates a dashboard. An empty name is generated.
type CreateDashboardRequest struct {
	Name string `json:"name" example:"Q1 Review"`
}

// SelectDashboardRequest changes the current dashboard.
type SelectDashboardRequest struct {
	ID string `json:"id" example:"default" validate:"required"`
}

// Validate validates the request.
func (r *SelectDashboardRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required),
	)
}

// AddChartRequest adds a chart of the given type.
type AddChartRequest struct {
	Type models.ChartKind `json:"type" example:"bar" validate:"required"`
}

// Validate validates the request.
func (r *AddChartRequest) Validate() error {
	kinds := make([]any, len(models.ChartKinds))
	for i, k := range models.ChartKinds {
		kinds[i] = k
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.In(kinds...)),
	)
}

// LayoutRequest carries the grid items reported by the layout surface.
type LayoutRequest struct {
	Layout []layout.Item `json:"layout"`
}

// Validate validates the request.
func (r *LayoutRequest) Validate() error {
	for i, it := range r.Layout {
		if it.ID == "" {
			return fmt.Errorf("layout: item %d: id is required", i)
		}
		if it.X < 0 || it.Y < 0 || it.W < 0 || it.H < 0 {
			return fmt.Errorf("layout: item %s: negative geometry", it.ID)
		}
	}
	return nil
}

// ReadFileRequest reads a workspace file.
type ReadFileRequest struct {
	Path string `json:"path" example:"exports/q1.json" validate:"required"`
}

// Validate validates the request.
func (r *ReadFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// WriteFileRequest writes a workspace file.
type WriteFileRequest struct {
	Path    string `json:"path" example:"exports/q1.json" validate:"required"`
	Content string `json:"content"`
}

// Validate validates the request.
func (r *WriteFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// SQLRequest is the SQL editor input.
type SQLRequest struct {
	Query string `json:"query" example:"SELECT * FROM sales" validate:"required"`
}

// Validate validates the request.
func (r *SQLRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Query, validation.Required),
	)
}

// DataSourceListResponse lists data sources without their rows.
type DataSourceListResponse struct {
	DataSources []models.DataSourceSummary `json:"dataSources" validate:"required"`
}

// DashboardListResponse lists dashboards and the current selection.
type DashboardListResponse struct {
	Dashboards         []models.DashboardSummary `json:"dashboards" validate:"required"`
	CurrentDashboardID string                    `json:"currentDashboardId"`
}

// QueryResponse carries filtered or aggregated rows.
type QueryResponse struct {
	Rows  []models.Row `json:"rows" validate:"required"`
	Total int          `json:"total" example:"42"`
}
