package models

import "time"

// Dashboard is a named, ordered collection of charts. Chart order is
// insertion order and carries no z-order meaning.
type Dashboard struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Charts    []ChartConfig `json:"charts"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy of d.
func (d Dashboard) Clone() Dashboard {
	charts := make([]ChartConfig, len(d.Charts))
	for i, c := range d.Charts {
		charts[i] = c.Clone()
	}
	d.Charts = charts
	return d
}

// Chart returns the chart with the given id.
func (d *Dashboard) Chart(id string) (ChartConfig, bool) {
	for _, c := range d.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return ChartConfig{}, false
}

// DashboardPatch is a partial dashboard update; nil fields are left
// unchanged.
type DashboardPatch struct {
	Name   *string        `json:"name,omitempty"`
	Charts *[]ChartConfig `json:"charts,omitempty"`
}

// Apply returns a copy of d with the patch applied. UpdatedAt is left to
// the caller.
func (d Dashboard) Apply(p DashboardPatch) Dashboard {
	d = d.Clone()
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Charts != nil {
		charts := make([]ChartConfig, len(*p.Charts))
		for i, c := range *p.Charts {
			charts[i] = c.Clone()
		}
		d.Charts = charts
	}
	return d
}

// DashboardSummary is the list view of a Dashboard.
type DashboardSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ChartCount int       `json:"chartCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Summary returns the list view of d.
func (d *Dashboard) Summary() DashboardSummary {
	return DashboardSummary{ID: d.ID, Name: d.Name, ChartCount: len(d.Charts), UpdatedAt: d.UpdatedAt}
}
