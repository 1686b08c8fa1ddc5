package layout

import (
	"fmt"
	"testing"
	"time"

	"github.com/starford/dataforge/internal/models"
	"github.com/starford/dataforge/internal/state"
)

var now = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func assertValid(t *testing.T, items []Item) {
	t.Helper()
	for i, a := range items {
		if a.X < 0 || a.Y < 0 || a.X+a.W > Columns || a.W < MinW || a.H < MinH {
			t.Errorf("item %s out of grid: %+v", a.ID, a)
		}
		for _, b := range items[i+1:] {
			if Collides(a, b) {
				t.Errorf("items overlap: %+v and %+v", a, b)
			}
		}
	}
}

func TestCompact_DefaultChartsNeverOverlap(t *testing.T) {
	for n := 1; n <= 8; n++ {
		s := state.Initial(now)
		for i := 0; i < n; i++ {
			c := models.ChartConfig{ID: fmt.Sprintf("c%d", i), Kind: models.ChartBar, Position: models.DefaultPosition}
			s = AddChartCompacted(s, state.DefaultDashboardID, c, now)
		}
		d, _ := s.Dashboard(state.DefaultDashboardID)
		if len(d.Charts) != n {
			t.Fatalf("n=%d: charts = %d", n, len(d.Charts))
		}
		assertValid(t, FromCharts(d.Charts))
	}
}

func TestCompact_StackInInsertionOrder(t *testing.T) {
	items := []Item{
		{ID: "a", W: 6, H: 4},
		{ID: "b", W: 6, H: 4},
		{ID: "c", W: 6, H: 4},
	}
	got := Compact(items)
	for i, want := range []int{0, 4, 8} {
		if got[i].Y != want || got[i].ID != items[i].ID {
			t.Errorf("item %d = %+v, want y=%d", i, got[i], want)
		}
	}
}

func TestCompact_FillsGaps(t *testing.T) {
	items := []Item{
		{ID: "a", X: 0, Y: 0, W: 6, H: 2},
		{ID: "b", X: 6, Y: 10, W: 6, H: 3},
		{ID: "c", X: 0, Y: 9, W: 4, H: 2},
	}
	got := Compact(items)
	if got[1].Y != 0 {
		t.Errorf("b = %+v, want y=0", got[1])
	}
	if got[2].Y != 2 {
		t.Errorf("c = %+v, want y=2 under a", got[2])
	}
	assertValid(t, got)
}

func TestNormalize(t *testing.T) {
	got := Normalize([]Item{
		{ID: "wide", X: 10, W: 6, H: 1},
		{ID: "huge", X: -3, Y: -1, W: 40, H: 3},
	})
	if got[0] != (Item{ID: "wide", X: 6, Y: 0, W: 6, H: 2}) {
		t.Errorf("wide = %+v", got[0])
	}
	if got[1] != (Item{ID: "huge", X: 0, Y: 0, W: 12, H: 3}) {
		t.Errorf("huge = %+v", got[1])
	}
}

func TestApply_WritesPositionsOnly(t *testing.T) {
	s := state.Initial(now)
	s = state.AddChart(s, state.DefaultDashboardID, models.ChartConfig{ID: "a", Kind: models.ChartPie, Title: "A", XAxis: "x", Position: models.Position{W: 6, H: 4}}, now)
	s = state.AddChart(s, state.DefaultDashboardID, models.ChartConfig{ID: "b", Kind: models.ChartBar, Title: "B", Position: models.Position{X: 6, W: 6, H: 4}}, now)

	later := now.Add(time.Minute)
	next := Apply(s, state.DefaultDashboardID, []Item{{ID: "a", X: 6, Y: 0, W: 6, H: 4}, {ID: "ghost", W: 2, H: 2}}, later)

	a, _ := next.Chart(state.DefaultDashboardID, "a")
	b, _ := next.Chart(state.DefaultDashboardID, "b")
	if a.Title != "A" || a.XAxis != "x" || a.Kind != models.ChartPie {
		t.Errorf("a fields changed: %+v", a)
	}
	assertValid(t, FromCharts([]models.ChartConfig{a, b}))
	if a.Position.X != 6 || a.Position.Y != 0 {
		t.Errorf("a = %+v", a.Position)
	}
	if b.Position.Y != 4 {
		t.Errorf("b = %+v, want pushed below a", b.Position)
	}
}

func TestApply_UnknownDashboard(t *testing.T) {
	s := state.Initial(now)
	next := Apply(s, "missing", []Item{{ID: "a"}}, now)
	if next.Dashboards[0].UpdatedAt != s.Dashboards[0].UpdatedAt {
		t.Error("unknown dashboard should be a no-op")
	}
}
