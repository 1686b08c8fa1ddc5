// Package state holds the application state and the reducers that move it
// from one value to the next.
package state

import (
	"time"

	"github.com/starford/dataforge/internal/models"
)

// DefaultDashboardID is the id of the dashboard present at start.
const DefaultDashboardID = "default"

// State is the whole application state. Values are treated as immutable:
// reducers return a new State and never write through the slices of the
// one they were given.
type State struct {
	DataSources        []models.DataSource `json:"dataSources"`
	Dashboards         []models.Dashboard  `json:"dashboards"`
	CurrentDashboardID string              `json:"currentDashboardId,omitempty"` // "" when none
	UI                 UI                  `json:"ui"`
}

// UI is the view state that is not part of any dashboard.
type UI struct {
	SidebarOpen     bool   `json:"sidebarOpen"`
	SelectedChartID string `json:"selectedChartId,omitempty"`
	SQLEditorOpen   bool   `json:"sqlEditorOpen"`
}

// Initial returns the start state: one empty dashboard, selected, with
// the sidebar open.
func Initial(now time.Time) State {
	return State{
		DataSources: []models.DataSource{},
		Dashboards: []models.Dashboard{{
			ID:        DefaultDashboardID,
			Name:      "My First Dashboard",
			Charts:    []models.ChartConfig{},
			CreatedAt: now,
			UpdatedAt: now,
		}},
		CurrentDashboardID: DefaultDashboardID,
		UI:                 UI{SidebarOpen: true},
	}
}

// DataSource returns the data source with the given id.
func (s State) DataSource(id string) (models.DataSource, bool) {
	for _, ds := range s.DataSources {
		if ds.ID == id {
			return ds, true
		}
	}
	return models.DataSource{}, false
}

// Dashboard returns the dashboard with the given id.
func (s State) Dashboard(id string) (models.Dashboard, bool) {
	for _, d := range s.Dashboards {
		if d.ID == id {
			return d, true
		}
	}
	return models.Dashboard{}, false
}

// Chart returns a chart of a dashboard.
func (s State) Chart(dashID, chartID string) (models.ChartConfig, bool) {
	d, ok := s.Dashboard(dashID)
	if !ok {
		return models.ChartConfig{}, false
	}
	return d.Chart(chartID)
}

// CurrentDashboard returns the selected dashboard, if any.
func (s State) CurrentDashboard() (models.Dashboard, bool) {
	if s.CurrentDashboardID == "" {
		return models.Dashboard{}, false
	}
	return s.Dashboard(s.CurrentDashboardID)
}
