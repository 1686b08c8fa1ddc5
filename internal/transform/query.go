package transform

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

// Query filters rows and optionally aggregates the result.
type Query struct {
	Filters      map[string]models.Value `json:"filters,omitempty"`
	GroupBy      string                  `json:"groupBy,omitempty"`
	Aggregations []AggregateSpec         `json:"aggregations,omitempty"`
}

// Validate validates the query.
func (q *Query) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.GroupBy, validation.When(len(q.Aggregations) > 0, validation.Required)),
		validation.Field(&q.Aggregations),
	)
}

// Run applies the filters, then the aggregation when GroupBy is set.
func (q Query) Run(rows []models.Row) ([]models.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPrecondition, err)
	}
	out := FilterRows(rows, q.Filters)
	if q.GroupBy == "" {
		return out, nil
	}
	return Aggregate(out, q.GroupBy, q.Aggregations)
}
