package transform

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

// AggregateFunc names an aggregation function.
type AggregateFunc string

const (
	FuncSum   AggregateFunc = "sum"
	FuncAvg   AggregateFunc = "avg"
	FuncCount AggregateFunc = "count"
	FuncMin   AggregateFunc = "min"
	FuncMax   AggregateFunc = "max"
)

// AggregateSpec is one aggregation to compute per group.
type AggregateSpec struct {
	Column string        `json:"column"`
	Func   AggregateFunc `json:"func"`
}

// Validate validates the spec.
func (s AggregateSpec) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Column, validation.Required),
		validation.Field(&s.Func, validation.Required, validation.In(FuncSum, FuncAvg, FuncCount, FuncMin, FuncMax)),
	)
}

// ResultColumn is the output column name, e.g. "v_sum".
func (s AggregateSpec) ResultColumn() string {
	return s.Column + "_" + string(s.Func)
}

// Aggregate groups rows by the exact value of groupBy and computes every
// spec per group. Groups appear in first-seen order. Nulls in the target
// column are skipped; count counts the remaining values and the other
// functions yield null when nothing is left.
//
// An empty groupBy, a row without the groupBy column, an invalid spec or a
// non-numeric value under sum/avg/min/max fail with ErrPrecondition.
func Aggregate(rows []models.Row, groupBy string, specs []AggregateSpec) ([]models.Row, error) {
	if groupBy == "" {
		return nil, fmt.Errorf("%w: group-by column is required", apperr.ErrPrecondition)
	}
	for i := range specs {
		if err := specs[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: aggregation %d: %v", apperr.ErrPrecondition, i, err)
		}
	}

	grouped := make(map[models.Value][]models.Row)
	var order []models.Value
	for i, row := range rows {
		key, ok := row[groupBy]
		if !ok {
			return nil, fmt.Errorf("%w: row %d has no column %q", apperr.ErrPrecondition, i, groupBy)
		}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], row)
	}

	out := make([]models.Row, 0, len(order))
	for _, key := range order {
		result := models.Row{groupBy: key}
		for _, spec := range specs {
			v, err := reduce(grouped[key], spec)
			if err != nil {
				return nil, err
			}
			result[spec.ResultColumn()] = v
		}
		out = append(out, result)
	}
	return out, nil
}

var errNotNumeric = errors.New("value is not a number")

func reduce(rows []models.Row, spec AggregateSpec) (models.Value, error) {
	if spec.Func == FuncCount {
		n := 0
		for _, row := range rows {
			if !row.Get(spec.Column).IsNull() {
				n++
			}
		}
		return models.Num(float64(n)), nil
	}

	var (
		n      int
		sum    float64
		lo, hi float64
	)
	for _, row := range rows {
		v := row.Get(spec.Column)
		if v.IsNull() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return models.Null, fmt.Errorf("%w: %s(%s): %v: %s %q", apperr.ErrPrecondition, spec.Func, spec.Column, errNotNumeric, v.Kind(), v.String())
		}
		if n == 0 || f < lo {
			lo = f
		}
		if n == 0 || f > hi {
			hi = f
		}
		sum += f
		n++
	}
	if n == 0 {
		return models.Null, nil
	}

	switch spec.Func {
	case FuncSum:
		return models.Num(sum), nil
	case FuncAvg:
		return models.Num(sum / float64(n)), nil
	case FuncMin:
		return models.Num(lo), nil
	default:
		return models.Num(hi), nil
	}
}
