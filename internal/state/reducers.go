package state

import (
	"slices"
	"time"

	"github.com/starford/dataforge/internal/models"
)

// Reducers are total: an id that matches nothing leaves the state as it
// was. Modified collections are always fresh slices.

// AddDataSource appends ds.
func AddDataSource(s State, ds models.DataSource) State {
	s.DataSources = append(slices.Clip(s.DataSources), ds)
	return s
}

// RemoveDataSource drops the data source with the given id. Charts that
// reference it are left alone.
func RemoveDataSource(s State, id string) State {
	i := slices.IndexFunc(s.DataSources, func(ds models.DataSource) bool { return ds.ID == id })
	if i < 0 {
		return s
	}
	s.DataSources = slices.Delete(slices.Clone(s.DataSources), i, i+1)
	return s
}

// UpdateDataSource applies p to the data source with the given id.
func UpdateDataSource(s State, id string, p models.DataSourcePatch) State {
	i := slices.IndexFunc(s.DataSources, func(ds models.DataSource) bool { return ds.ID == id })
	if i < 0 {
		return s
	}
	s.DataSources = slices.Clone(s.DataSources)
	s.DataSources[i] = s.DataSources[i].Apply(p)
	return s
}

// AddDashboard appends d.
func AddDashboard(s State, d models.Dashboard) State {
	s.Dashboards = append(slices.Clip(s.Dashboards), d.Clone())
	return s
}

// SetCurrentDashboard selects the dashboard with the given id.
func SetCurrentDashboard(s State, id string) State {
	if _, ok := s.Dashboard(id); !ok {
		return s
	}
	s.CurrentDashboardID = id
	return s
}

// UpdateDashboard applies p to the dashboard with the given id and
// refreshes its UpdatedAt.
func UpdateDashboard(s State, id string, p models.DashboardPatch, now time.Time) State {
	return mapDashboard(s, id, func(d models.Dashboard) (models.Dashboard, bool) {
		d = d.Apply(p)
		d.UpdatedAt = now
		return d, true
	})
}

// DeleteDashboard drops the dashboard with the given id. When it was the
// current one, the first remaining dashboard becomes current, or none.
func DeleteDashboard(s State, id string) State {
	i := slices.IndexFunc(s.Dashboards, func(d models.Dashboard) bool { return d.ID == id })
	if i < 0 {
		return s
	}
	s.Dashboards = slices.Delete(slices.Clone(s.Dashboards), i, i+1)
	if s.CurrentDashboardID == id {
		s.CurrentDashboardID = ""
		if len(s.Dashboards) > 0 {
			s.CurrentDashboardID = s.Dashboards[0].ID
		}
	}
	return s
}

// AddChart appends c to a dashboard.
func AddChart(s State, dashID string, c models.ChartConfig, now time.Time) State {
	return mapDashboard(s, dashID, func(d models.Dashboard) (models.Dashboard, bool) {
		d.Charts = append(slices.Clip(d.Charts), c.Clone())
		d.UpdatedAt = now
		return d, true
	})
}

// UpdateChart applies p to one chart of a dashboard. Unknown dashboard or
// chart ids leave the state untouched, UpdatedAt included.
func UpdateChart(s State, dashID, chartID string, p models.ChartPatch, now time.Time) State {
	return mapDashboard(s, dashID, func(d models.Dashboard) (models.Dashboard, bool) {
		i := slices.IndexFunc(d.Charts, func(c models.ChartConfig) bool { return c.ID == chartID })
		if i < 0 {
			return d, false
		}
		d.Charts = slices.Clone(d.Charts)
		d.Charts[i] = d.Charts[i].Apply(p)
		d.UpdatedAt = now
		return d, true
	})
}

// DeleteChart removes one chart from a dashboard.
func DeleteChart(s State, dashID, chartID string, now time.Time) State {
	return mapDashboard(s, dashID, func(d models.Dashboard) (models.Dashboard, bool) {
		i := slices.IndexFunc(d.Charts, func(c models.ChartConfig) bool { return c.ID == chartID })
		if i < 0 {
			return d, false
		}
		d.Charts = slices.Delete(slices.Clone(d.Charts), i, i+1)
		d.UpdatedAt = now
		return d, true
	})
}

// SetSidebarOpen shows or hides the sidebar.
func SetSidebarOpen(s State, open bool) State {
	s.UI.SidebarOpen = open
	return s
}

// SetSelectedChart selects a chart; "" clears the selection.
func SetSelectedChart(s State, chartID string) State {
	s.UI.SelectedChartID = chartID
	return s
}

// SetSQLEditorOpen shows or hides the SQL editor.
func SetSQLEditorOpen(s State, open bool) State {
	s.UI.SQLEditorOpen = open
	return s
}

// mapDashboard replaces the dashboard with the given id by fn's result.
// fn reports false to leave the state as it was.
func mapDashboard(s State, id string, fn func(models.Dashboard) (models.Dashboard, bool)) State {
	i := slices.IndexFunc(s.Dashboards, func(d models.Dashboard) bool { return d.ID == id })
	if i < 0 {
		return s
	}
	d, changed := fn(s.Dashboards[i])
	if !changed {
		return s
	}
	s.Dashboards = slices.Clone(s.Dashboards)
	s.Dashboards[i] = d
	return s
}
