// Package transform filters and aggregates DataSource rows.
package transform

import "github.com/starford/dataforge/internal/models"

// FilterRows keeps the rows that match every predicate. Predicates whose
// value is null or the empty string are ignored, so an empty map keeps
// every row. Matching is strict equality: Num(1) does not match Str("1").
func FilterRows(rows []models.Row, predicates map[string]models.Value) []models.Row {
	active := make(map[string]models.Value, len(predicates))
	for k, v := range predicates {
		if !v.IsBlank() {
			active[k] = v
		}
	}

	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		if matches(row, active) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row models.Row, predicates map[string]models.Value) bool {
	for k, want := range predicates {
		got, ok := row[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
