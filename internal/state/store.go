package state

import (
	"slices"
	"sync"
	"time"

	"github.com/starford/dataforge/internal/models"
)

// Action names carried by Events.
const (
	ActionAddDataSource       = "datasource.added"
	ActionRemoveDataSource    = "datasource.removed"
	ActionUpdateDataSource    = "datasource.updated"
	ActionAddDashboard        = "dashboard.added"
	ActionSetCurrentDashboard = "dashboard.selected"
	ActionUpdateDashboard     = "dashboard.updated"
	ActionDeleteDashboard     = "dashboard.deleted"
	ActionAddChart            = "chart.added"
	ActionUpdateChart         = "chart.updated"
	ActionDeleteChart         = "chart.deleted"
	ActionLayout              = "layout.applied"
	ActionUI                  = "ui.updated"
)

// Event describes a committed transition.
type Event struct {
	Action       string `json:"action"`
	DataSourceID string `json:"dataSourceId,omitempty"`
	DashboardID  string `json:"dashboardId,omitempty"`
	ChartID      string `json:"chartId,omitempty"`
}

// Reducer computes the next state. now is the store clock at dispatch.
type Reducer func(s State, now time.Time) State

// Store owns the application state. Dispatch serialises transitions and
// notifies subscribers in commit order; readers only ever see whole
// states.
type Store struct {
	write sync.Mutex // serialises Dispatch and notification
	mu    sync.RWMutex
	state State
	now   func() time.Time

	subs   map[int]func(Event, State)
	nextID int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(st *Store) { st.now = now }
}

// WithState replaces the initial state.
func WithState(s State) StoreOption {
	return func(st *Store) { st.state = s }
}

// NewStore creates a Store holding Initial unless WithState is given.
func NewStore(opts ...StoreOption) *Store {
	st := &Store{
		now:  func() time.Time { return time.Now().UTC() },
		subs: make(map[int]func(Event, State)),
	}
	st.state = Initial(st.now())
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Snapshot returns the current state. Callers must not modify it.
func (st *Store) Snapshot() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}

// Now returns the store clock.
func (st *Store) Now() time.Time {
	return st.now()
}

// Dispatch applies r atomically and notifies subscribers with ev.
// Subscribers run on the dispatching goroutine and must not dispatch.
func (st *Store) Dispatch(ev Event, r Reducer) State {
	st.write.Lock()
	defer st.write.Unlock()

	st.mu.Lock()
	next := r(st.state, st.now())
	st.state = next
	st.mu.Unlock()

	for _, fn := range st.subscribers() {
		fn(ev, next)
	}
	return next
}

// Subscribe registers fn for every committed transition and returns a
// function that removes it.
func (st *Store) Subscribe(fn func(Event, State)) (cancel func()) {
	st.mu.Lock()
	id := st.nextID
	st.nextID++
	st.subs[id] = fn
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.subs, id)
		st.mu.Unlock()
	}
}

func (st *Store) subscribers() []func(Event, State) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]int, 0, len(st.subs))
	for id := range st.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids) // registration order
	out := make([]func(Event, State), len(ids))
	for i, id := range ids {
		out[i] = st.subs[id]
	}
	return out
}

func (st *Store) AddDataSource(ds models.DataSource) State {
	return st.Dispatch(Event{Action: ActionAddDataSource, DataSourceID: ds.ID}, func(s State, _ time.Time) State {
		return AddDataSource(s, ds)
	})
}

func (st *Store) RemoveDataSource(id string) State {
	return st.Dispatch(Event{Action: ActionRemoveDataSource, DataSourceID: id}, func(s State, _ time.Time) State {
		return RemoveDataSource(s, id)
	})
}

func (st *Store) UpdateDataSource(id string, p models.DataSourcePatch) State {
	return st.Dispatch(Event{Action: ActionUpdateDataSource, DataSourceID: id}, func(s State, _ time.Time) State {
		return UpdateDataSource(s, id, p)
	})
}

func (st *Store) AddDashboard(d models.Dashboard) State {
	return st.Dispatch(Event{Action: ActionAddDashboard, DashboardID: d.ID}, func(s State, _ time.Time) State {
		return AddDashboard(s, d)
	})
}

func (st *Store) SetCurrentDashboard(id string) State {
	return st.Dispatch(Event{Action: ActionSetCurrentDashboard, DashboardID: id}, func(s State, _ time.Time) State {
		return SetCurrentDashboard(s, id)
	})
}

func (st *Store) UpdateDashboard(id string, p models.DashboardPatch) State {
	return st.Dispatch(Event{Action: ActionUpdateDashboard, DashboardID: id}, func(s State, now time.Time) State {
		return UpdateDashboard(s, id, p, now)
	})
}

func (st *Store) DeleteDashboard(id string) State {
	return st.Dispatch(Event{Action: ActionDeleteDashboard, DashboardID: id}, func(s State, _ time.Time) State {
		return DeleteDashboard(s, id)
	})
}

func (st *Store) AddChart(dashID string, c models.ChartConfig) State {
	return st.Dispatch(Event{Action: ActionAddChart, DashboardID: dashID, ChartID: c.ID}, func(s State, now time.Time) State {
		return AddChart(s, dashID, c, now)
	})
}

func (st *Store) UpdateChart(dashID, chartID string, p models.ChartPatch) State {
	return st.Dispatch(Event{Action: ActionUpdateChart, DashboardID: dashID, ChartID: chartID}, func(s State, now time.Time) State {
		return UpdateChart(s, dashID, chartID, p, now)
	})
}

func (st *Store) DeleteChart(dashID, chartID string) State {
	return st.Dispatch(Event{Action: ActionDeleteChart, DashboardID: dashID, ChartID: chartID}, func(s State, now time.Time) State {
		return DeleteChart(s, dashID, chartID, now)
	})
}

// UIPatch is a partial UI update; nil fields are left unchanged.
type UIPatch struct {
	SidebarOpen     *bool   `json:"sidebarOpen,omitempty"`
	SelectedChartID *string `json:"selectedChartId,omitempty"`
	SQLEditorOpen   *bool   `json:"sqlEditorOpen,omitempty"`
}

// UpdateUI applies every set field of p in one transition.
func (st *Store) UpdateUI(p UIPatch) State {
	return st.Dispatch(Event{Action: ActionUI}, func(s State, _ time.Time) State {
		if p.SidebarOpen != nil {
			s = SetSidebarOpen(s, *p.SidebarOpen)
		}
		if p.SelectedChartID != nil {
			s = SetSelectedChart(s, *p.SelectedChartID)
		}
		if p.SQLEditorOpen != nil {
			s = SetSQLEditorOpen(s, *p.SQLEditorOpen)
		}
		return s
	})
}
