// Package layout maps chart positions onto a 12-column grid and compacts
// them vertically.
package layout

import (
	"slices"
	"time"

	"github.com/starford/dataforge/internal/models"
	"github.com/starford/dataforge/internal/state"
)

const (
	Columns = 12
	MinW    = 2
	MinH    = 2
)

// Item is a chart rectangle on the grid.
type Item struct {
	ID string `json:"i"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
	W  int    `json:"w"`
	H  int    `json:"h"`
}

// Position returns the item's rectangle as a chart position.
func (it Item) Position() models.Position {
	return models.Position{X: it.X, Y: it.Y, W: it.W, H: it.H}
}

func (it Item) bottom() int { return it.Y + it.H }

// Collides reports whether a and b overlap.
func Collides(a, b Item) bool {
	return a.X < b.X+b.W && b.X < a.X+a.W && a.Y < b.Y+b.H && b.Y < a.Y+a.H
}

// FromCharts returns one item per chart, in chart order.
func FromCharts(charts []models.ChartConfig) []Item {
	items := make([]Item, len(charts))
	for i, c := range charts {
		p := c.Position
		items[i] = Item{ID: c.ID, X: p.X, Y: p.Y, W: p.W, H: p.H}
	}
	return items
}

// Normalize clamps every item into the grid: W and H are at least 2, W is
// at most Columns, X and Y are non-negative and X+W stays within Columns.
func Normalize(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.W = min(max(it.W, MinW), Columns)
		it.H = max(it.H, MinH)
		it.X = max(it.X, 0)
		it.Y = max(it.Y, 0)
		if it.X+it.W > Columns {
			it.X = Columns - it.W
		}
		out[i] = it
	}
	return out
}

// Compact normalizes items and moves each one up as far as it goes.
// Items are placed in (Y, X) order with ties kept in input order; an item
// that lands on a placed one is pushed below it. The result keeps the
// input order and has no overlaps.
func Compact(items []Item) []Item {
	norm := Normalize(items)

	order := make([]int, len(norm))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if norm[a].Y != norm[b].Y {
			return norm[a].Y - norm[b].Y
		}
		return norm[a].X - norm[b].X
	})

	placed := make([]Item, 0, len(norm))
	out := make([]Item, len(norm))
	for _, i := range order {
		it := compactItem(placed, norm[i])
		placed = append(placed, it)
		out[i] = it
	}
	return out
}

func compactItem(placed []Item, it Item) Item {
	it.Y = min(it.Y, bottom(placed))
	for it.Y > 0 {
		up := it
		up.Y--
		if firstCollision(placed, up) >= 0 {
			break
		}
		it = up
	}
	for {
		j := firstCollision(placed, it)
		if j < 0 {
			break
		}
		it.Y = placed[j].bottom()
	}
	return it
}

func bottom(items []Item) int {
	b := 0
	for _, it := range items {
		b = max(b, it.bottom())
	}
	return b
}

func firstCollision(items []Item, it Item) int {
	for j, other := range items {
		if Collides(other, it) {
			return j
		}
	}
	return -1
}

// Apply merges items into the dashboard's current layout, compacts it and
// writes every changed position back through UpdateChart. Items naming
// unknown charts are ignored and other chart fields are never touched.
func Apply(s state.State, dashID string, items []Item, now time.Time) state.State {
	d, ok := s.Dashboard(dashID)
	if !ok {
		return s
	}

	current := FromCharts(d.Charts)
	byID := make(map[string]int, len(current))
	for i, it := range current {
		byID[it.ID] = i
	}
	for _, it := range items {
		if i, ok := byID[it.ID]; ok {
			current[i] = it
		}
	}

	for i, it := range Compact(current) {
		pos := it.Position()
		if pos == d.Charts[i].Position {
			continue
		}
		s = state.UpdateChart(s, dashID, it.ID, models.ChartPatch{Position: &pos}, now)
	}
	return s
}

// Arrange compacts a dashboard's existing layout.
func Arrange(s state.State, dashID string, now time.Time) state.State {
	return Apply(s, dashID, nil, now)
}

// AddChartCompacted adds c and compacts the dashboard so the new chart
// does not overlap existing ones.
func AddChartCompacted(s state.State, dashID string, c models.ChartConfig, now time.Time) state.State {
	return Arrange(state.AddChart(s, dashID, c, now), dashID, now)
}
