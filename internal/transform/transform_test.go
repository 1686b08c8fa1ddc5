package transform

import (
	"errors"
	"testing"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

func sampleRows() []models.Row {
	return []models.Row{
		{"g": models.Str("a"), "v": models.Num(1)},
		{"g": models.Str("a"), "v": models.Num(3)},
		{"g": models.Str("b"), "v": models.Num(5)},
	}
}

func TestFilterRows_EmptyPredicateIsIdentity(t *testing.T) {
	rows := sampleRows()
	got := FilterRows(rows, map[string]models.Value{})
	if len(got) != len(rows) {
		t.Fatalf("len = %d, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i]["g"] != rows[i]["g"] || got[i]["v"] != rows[i]["v"] {
			t.Errorf("row %d changed: %v", i, got[i])
		}
	}
}

func TestFilterRows_Strict(t *testing.T) {
	rows := []models.Row{
		{"id": models.Num(1)},
		{"id": models.Str("1")},
		{"id": models.Num(2)},
		{},
	}
	got := FilterRows(rows, map[string]models.Value{"id": models.Num(1)})
	if len(got) != 1 || got[0]["id"] != models.Num(1) {
		t.Errorf("got %v, want only the numeric 1", got)
	}
}

func TestFilterRows_BlankPredicatesIgnored(t *testing.T) {
	rows := sampleRows()
	got := FilterRows(rows, map[string]models.Value{"g": models.Str(""), "v": models.Null})
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestAggregate_SumFirstSeenOrder(t *testing.T) {
	got, err := Aggregate(sampleRows(), "g", []AggregateSpec{{Column: "v", Func: FuncSum}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0]["g"] != models.Str("a") || got[0]["v_sum"] != models.Num(4) {
		t.Errorf("group 0 = %v", got[0])
	}
	if got[1]["g"] != models.Str("b") || got[1]["v_sum"] != models.Num(5) {
		t.Errorf("group 1 = %v", got[1])
	}
	if len(got[0]) != 2 {
		t.Errorf("result row has extra keys: %v", got[0])
	}
}

func TestAggregate_AllFuncs(t *testing.T) {
	rows := []models.Row{
		{"g": models.Str("x"), "v": models.Num(2)},
		{"g": models.Str("x"), "v": models.Null},
		{"g": models.Str("x"), "v": models.Num(6)},
		{"g": models.Str("x")},
	}
	specs := []AggregateSpec{
		{Column: "v", Func: FuncSum},
		{Column: "v", Func: FuncAvg},
		{Column: "v", Func: FuncCount},
		{Column: "v", Func: FuncMin},
		{Column: "v", Func: FuncMax},
	}
	got, err := Aggregate(rows, "g", specs)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]models.Value{
		"v_sum":   models.Num(8),
		"v_avg":   models.Num(4),
		"v_count": models.Num(2),
		"v_min":   models.Num(2),
		"v_max":   models.Num(6),
	}
	for col, v := range want {
		if got[0][col] != v {
			t.Errorf("%s = %v, want %v", col, got[0][col], v)
		}
	}
}

func TestAggregate_EmptyGroupPolicy(t *testing.T) {
	rows := []models.Row{{"g": models.Str("x"), "v": models.Null}}
	specs := []AggregateSpec{
		{Column: "v", Func: FuncSum},
		{Column: "v", Func: FuncAvg},
		{Column: "v", Func: FuncMin},
		{Column: "v", Func: FuncMax},
		{Column: "v", Func: FuncCount},
	}
	got, err := Aggregate(rows, "g", specs)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range specs[:4] {
		if v := got[0][s.ResultColumn()]; !v.IsNull() {
			t.Errorf("%s = %v, want null", s.ResultColumn(), v)
		}
	}
	if got[0]["v_count"] != models.Num(0) {
		t.Errorf("v_count = %v, want 0", got[0]["v_count"])
	}
}

func TestAggregate_StrictGroupKeys(t *testing.T) {
	rows := []models.Row{
		{"g": models.Num(1), "v": models.Num(1)},
		{"g": models.Str("1"), "v": models.Num(1)},
		{"g": models.Null, "v": models.Num(1)},
	}
	got, err := Aggregate(rows, "g", []AggregateSpec{{Column: "v", Func: FuncCount}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("groups = %d, want 3 (number, string and null are distinct)", len(got))
	}
}

func TestAggregate_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		rows    []models.Row
		groupBy string
		specs   []AggregateSpec
	}{
		{"empty group-by", sampleRows(), "", nil},
		{"missing group column", []models.Row{{"v": models.Num(1)}}, "g", nil},
		{"unknown func", sampleRows(), "g", []AggregateSpec{{Column: "v", Func: "median"}}},
		{"missing column name", sampleRows(), "g", []AggregateSpec{{Func: FuncSum}}},
		{"non-numeric sum", []models.Row{{"g": models.Str("a"), "v": models.Str("x")}}, "g", []AggregateSpec{{Column: "v", Func: FuncSum}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.rows, tt.groupBy, tt.specs)
			if !errors.Is(err, apperr.ErrPrecondition) {
				t.Errorf("err = %v, want precondition", err)
			}
		})
	}
}

func TestAggregate_CountAcceptsText(t *testing.T) {
	rows := []models.Row{{"g": models.Str("a"), "v": models.Str("x")}}
	got, err := Aggregate(rows, "g", []AggregateSpec{{Column: "v", Func: FuncCount}})
	if err != nil {
		t.Fatal(err)
	}
	if got[0]["v_count"] != models.Num(1) {
		t.Errorf("v_count = %v", got[0]["v_count"])
	}
}

func TestQuery_Run(t *testing.T) {
	rows := append(sampleRows(), models.Row{"g": models.Str("c"), "v": models.Num(9)})
	q := Query{
		Filters:      map[string]models.Value{"g": models.Str("a")},
		GroupBy:      "g",
		Aggregations: []AggregateSpec{{Column: "v", Func: FuncAvg}},
	}
	got, err := q.Run(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["v_avg"] != models.Num(2) {
		t.Errorf("got %v", got)
	}

	filtered, err := Query{Filters: map[string]models.Value{"g": models.Str("c")}}.Run(rows)
	if err != nil || len(filtered) != 1 {
		t.Errorf("filter only = %v, %v", filtered, err)
	}

	_, err = Query{Aggregations: []AggregateSpec{{Column: "v", Func: FuncSum}}}.Run(rows)
	if !errors.Is(err, apperr.ErrPrecondition) {
		t.Errorf("aggregations without group-by: err = %v", err)
	}
}
