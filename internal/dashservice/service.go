// Package dashservice coordinates the importer, the state store and the
// workspace into the operations the API and MCP layers expose.
package dashservice

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/export"
	"github.com/starford/dataforge/internal/importer"
	"github.com/starford/dataforge/internal/layout"
	"github.com/starford/dataforge/internal/models"
	"github.com/starford/dataforge/internal/projection"
	"github.com/starford/dataforge/internal/state"
	"github.com/starford/dataforge/internal/storage"
	"github.com/starford/dataforge/internal/transform"
)

// ExportDir is the workspace directory that saved exports go to.
const ExportDir = "exports"

// NoDataSourceMessage is shown when a chart is added before any data.
const NoDataSourceMessage = "Please add a data source first!"

// SQLUnavailableMessage is shown by the SQL editor.
const SQLUnavailableMessage = "SQL execution coming soon! DuckDB WASM integration in progress."

// Service coordinates import, state and workspace operations.
type Service struct {
	store    *state.Store
	files    storage.Provider
	importer *importer.Importer
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithIDs sets the id generator for dashboards and charts.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a new dashboard service.
func NewService(store *state.Store, files storage.Provider, im *importer.Importer, opts ...Option) *Service {
	s := &Service{store: store, files: files, importer: im, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying state store.
func (s *Service) Store() *state.Store { return s.store }

// State returns the current state.
func (s *Service) State() state.State { return s.store.Snapshot() }

// Files returns the workspace file provider.
func (s *Service) Files() storage.Provider { return s.files }

// ImportData parses f and commits the resulting data source. Nothing is
// committed when parsing fails.
func (s *Service) ImportData(ctx context.Context, f importer.File) (*models.DataSource, error) {
	ds, err := s.importer.Import(ctx, f)
	if err != nil {
		return nil, err
	}
	s.store.AddDataSource(*ds)
	return ds, nil
}

// ImportFile reads a workspace file and imports it.
func (s *Service) ImportFile(ctx context.Context, path string) (*models.DataSource, error) {
	if !importer.Supported(path) {
		return s.ImportData(ctx, importer.File{Name: filepath.Base(path)})
	}
	data, err := s.files.Read(path)
	if err != nil {
		return nil, err
	}
	abs, err := s.files.Abs(path)
	if err != nil {
		return nil, err
	}
	return s.ImportData(ctx, importer.File{Name: filepath.Base(path), Path: abs, Content: data})
}

// ListDataSources returns all data sources without their rows.
func (s *Service) ListDataSources() []models.DataSourceSummary {
	st := s.store.Snapshot()
	out := make([]models.DataSourceSummary, len(st.DataSources))
	for i := range st.DataSources {
		out[i] = st.DataSources[i].Summary()
	}
	return out
}

// GetDataSource returns one data source with its rows.
func (s *Service) GetDataSource(id string) (models.DataSource, error) {
	ds, ok := s.store.Snapshot().DataSource(id)
	if !ok {
		return models.DataSource{}, fmt.Errorf("data source %s: %w", id, apperr.ErrNotFound)
	}
	return ds, nil
}

// UpdateDataSource renames or re-points a data source.
func (s *Service) UpdateDataSource(id string, p models.DataSourcePatch) (models.DataSource, error) {
	if _, err := s.GetDataSource(id); err != nil {
		return models.DataSource{}, err
	}
	st := s.store.UpdateDataSource(id, p)
	ds, _ := st.DataSource(id)
	return ds, nil
}

// RemoveDataSource deletes a data source. Charts bound to it stay and
// render the missing-source placeholder.
func (s *Service) RemoveDataSource(id string) error {
	if _, err := s.GetDataSource(id); err != nil {
		return err
	}
	s.store.RemoveDataSource(id)
	return nil
}

// Query filters and aggregates the rows of a data source.
func (s *Service) Query(id string, q transform.Query) ([]models.Row, error) {
	ds, err := s.GetDataSource(id)
	if err != nil {
		return nil, err
	}
	return q.Run(ds.Rows)
}

// ListDashboards returns the dashboard summaries in order.
func (s *Service) ListDashboards() []models.DashboardSummary {
	st := s.store.Snapshot()
	out := make([]models.DashboardSummary, len(st.Dashboards))
	for i := range st.Dashboards {
		out[i] = st.Dashboards[i].Summary()
	}
	return out
}

// GetDashboard returns a dashboard. An empty id means the current one.
func (s *Service) GetDashboard(id string) (models.Dashboard, error) {
	st := s.store.Snapshot()
	if id == "" {
		d, ok := st.CurrentDashboard()
		if !ok {
			return models.Dashboard{}, fmt.Errorf("no current dashboard: %w", apperr.ErrNotFound)
		}
		return d, nil
	}
	d, ok := st.Dashboard(id)
	if !ok {
		return models.Dashboard{}, fmt.Errorf("dashboard %s: %w", id, apperr.ErrNotFound)
	}
	return d, nil
}

// NewDashboard adds an empty dashboard and makes it current. An empty
// name becomes "Dashboard N".
func (s *Service) NewDashboard(name string) models.Dashboard {
	d := models.Dashboard{ID: s.newID(), Name: name, Charts: []models.ChartConfig{}}
	s.store.Dispatch(state.Event{Action: state.ActionAddDashboard, DashboardID: d.ID}, func(st state.State, now time.Time) state.State {
		if d.Name == "" {
			d.Name = fmt.Sprintf("Dashboard %d", len(st.Dashboards)+1)
		}
		d.CreatedAt, d.UpdatedAt = now, now
		return state.SetCurrentDashboard(state.AddDashboard(st, d), d.ID)
	})
	return d
}

// SelectDashboard makes a dashboard current.
func (s *Service) SelectDashboard(id string) error {
	if _, err := s.GetDashboard(id); err != nil || id == "" {
		if err == nil {
			err = fmt.Errorf("dashboard id is required: %w", apperr.ErrPrecondition)
		}
		return err
	}
	s.store.SetCurrentDashboard(id)
	return nil
}

// UpdateDashboard renames a dashboard or replaces its charts.
func (s *Service) UpdateDashboard(id string, p models.DashboardPatch) (models.Dashboard, error) {
	if _, err := s.GetDashboard(id); err != nil {
		return models.Dashboard{}, err
	}
	if p.Charts != nil {
		for i := range *p.Charts {
			if err := (*p.Charts)[i].Validate(); err != nil {
				return models.Dashboard{}, fmt.Errorf("%w: chart %d: %v", apperr.ErrPrecondition, i, err)
			}
		}
	}
	st := s.store.UpdateDashboard(id, p)
	d, _ := st.Dashboard(id)
	return d, nil
}

// DeleteDashboard removes a dashboard.
func (s *Service) DeleteDashboard(id string) error {
	if _, err := s.GetDashboard(id); err != nil || id == "" {
		if err == nil {
			err = fmt.Errorf("dashboard id is required: %w", apperr.ErrPrecondition)
		}
		return err
	}
	s.store.DeleteDashboard(id)
	return nil
}

// AddChart adds a chart of the given kind to a dashboard (the current one
// when dashID is empty). The chart is bound to the first data source, sits
// at the default position and the layout is compacted around it.
func (s *Service) AddChart(dashID string, kind models.ChartKind) (models.ChartConfig, error) {
	if !kind.Valid() {
		return models.ChartConfig{}, fmt.Errorf("%w: unknown chart type %q", apperr.ErrPrecondition, kind)
	}
	d, err := s.GetDashboard(dashID)
	if err != nil {
		return models.ChartConfig{}, err
	}
	st := s.store.Snapshot()
	if len(st.DataSources) == 0 {
		return models.ChartConfig{}, fmt.Errorf("%w: %s", apperr.ErrPrecondition, NoDataSourceMessage)
	}

	c := models.ChartConfig{
		ID:           s.newID(),
		Kind:         kind,
		Title:        fmt.Sprintf("New %s Chart", kind.Label()),
		DataSourceID: st.DataSources[0].ID,
		Position:     models.DefaultPosition,
		Options:      map[string]any{},
	}
	next := s.store.Dispatch(state.Event{Action: state.ActionAddChart, DashboardID: d.ID, ChartID: c.ID}, func(st state.State, now time.Time) state.State {
		return layout.AddChartCompacted(st, d.ID, c, now)
	})
	added, _ := next.Chart(d.ID, c.ID)
	return added, nil
}

// UpdateChart applies a partial update to a chart.
func (s *Service) UpdateChart(dashID, chartID string, p models.ChartPatch) (models.ChartConfig, error) {
	if err := p.Validate(); err != nil {
		return models.ChartConfig{}, fmt.Errorf("%w: %v", apperr.ErrPrecondition, err)
	}
	d, err := s.GetDashboard(dashID)
	if err != nil {
		return models.ChartConfig{}, err
	}
	if _, ok := d.Chart(chartID); !ok {
		return models.ChartConfig{}, fmt.Errorf("chart %s: %w", chartID, apperr.ErrNotFound)
	}
	st := s.store.UpdateChart(d.ID, chartID, p)
	c, _ := st.Chart(d.ID, chartID)
	return c, nil
}

// DeleteChart removes a chart from a dashboard.
func (s *Service) DeleteChart(dashID, chartID string) error {
	d, err := s.GetDashboard(dashID)
	if err != nil {
		return err
	}
	if _, ok := d.Chart(chartID); !ok {
		return fmt.Errorf("chart %s: %w", chartID, apperr.ErrNotFound)
	}
	s.store.DeleteChart(d.ID, chartID)
	return nil
}

// ApplyLayout writes a grid layout change back to the dashboard's charts.
func (s *Service) ApplyLayout(dashID string, items []layout.Item) (models.Dashboard, error) {
	d, err := s.GetDashboard(dashID)
	if err != nil {
		return models.Dashboard{}, err
	}
	next := s.store.Dispatch(state.Event{Action: state.ActionLayout, DashboardID: d.ID}, func(st state.State, now time.Time) state.State {
		return layout.Apply(st, d.ID, items, now)
	})
	out, _ := next.Dashboard(d.ID)
	return out, nil
}

// RenderChart projects a chart for display. A chart whose data source is
// gone renders the placeholder, not an error.
func (s *Service) RenderChart(dashID, chartID string) (projection.Result, error) {
	d, err := s.GetDashboard(dashID)
	if err != nil {
		return projection.Result{}, err
	}
	c, ok := d.Chart(chartID)
	if !ok {
		return projection.Result{}, fmt.Errorf("chart %s: %w", chartID, apperr.ErrNotFound)
	}
	return projection.Render(s.store.Snapshot(), c)
}

// ExportDashboard encodes a dashboard and returns its download name.
func (s *Service) ExportDashboard(dashID string) (string, []byte, error) {
	d, err := s.GetDashboard(dashID)
	if err != nil {
		return "", nil, err
	}
	data, err := export.Encode(d, s.store.Now())
	if err != nil {
		return "", nil, err
	}
	return export.Filename(d.Name), data, nil
}

// SaveExport writes a dashboard export into the workspace.
func (s *Service) SaveExport(dashID string) (storage.WriteResult, error) {
	name, data, err := s.ExportDashboard(dashID)
	if err != nil {
		return storage.WriteResult{}, err
	}
	return storage.WriteFile(s.files, filepath.Join(ExportDir, name), data), nil
}

// ImportDashboard adds the dashboard of an export document. It gets a new
// id when its id is already taken.
func (s *Service) ImportDashboard(data []byte) (models.Dashboard, error) {
	d, err := export.Decode(data)
	if err != nil {
		return models.Dashboard{}, err
	}
	if _, taken := s.store.Snapshot().Dashboard(d.ID); taken {
		d.ID = s.newID()
	}
	s.store.AddDashboard(d)
	return d, nil
}

// RunSQL is the SQL editor entry point. There is no SQL engine.
func (s *Service) RunSQL(_ context.Context, _ string) ([]models.Row, error) {
	return nil, fmt.Errorf("%w: %s", apperr.ErrSQLUnavailable, SQLUnavailableMessage)
}

// ReadFile reads a workspace file as text.
func (s *Service) ReadFile(path string) storage.ReadResult {
	return storage.ReadFile(s.files, path)
}

// WriteFile writes a workspace file.
func (s *Service) WriteFile(path string, content []byte) storage.WriteResult {
	return storage.WriteFile(s.files, path, content)
}

// UpdateUI applies view-state changes.
func (s *Service) UpdateUI(p state.UIPatch) state.UI {
	return s.store.UpdateUI(p).UI
}
