package importer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

// parseRecords reads a JSON document. Accepted shapes, in order:
//
//	an array of records
//	an object whose first array-valued property holds the records
//	a single non-empty object, read as one record
//
// Columns are the union of record keys in first-seen order. Nested values
// are kept as raw JSON text and non-object elements become {"value": elem}.
func parseRecords(_ context.Context, f File) (*table, error) {
	content := bytes.TrimSpace(bytes.TrimPrefix(f.Content, utf8BOM))
	if len(content) == 0 || !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("%w: malformed JSON", apperr.ErrParseFailure)
	}

	root := gjson.ParseBytes(content)
	var records []gjson.Result
	switch {
	case root.IsArray():
		records = root.Array()
	case root.IsObject():
		var found bool
		root.ForEach(func(_, v gjson.Result) bool {
			if v.IsArray() {
				records, found = v.Array(), true
				return false
			}
			return true
		})
		if !found {
			if len(root.Map()) == 0 {
				return nil, fmt.Errorf("%w: empty object", apperr.ErrInvalidStructure)
			}
			records = []gjson.Result{root}
		}
	default:
		return nil, fmt.Errorf("%w: top-level %s is not an array or object", apperr.ErrInvalidStructure, root.Type)
	}

	var (
		columns []string
		known   = make(map[string]struct{})
		rows    = make([]models.Row, 0, len(records))
	)
	addColumn := func(name string) {
		if _, ok := known[name]; !ok {
			known[name] = struct{}{}
			columns = append(columns, name)
		}
	}

	for _, rec := range records {
		row := make(models.Row)
		if rec.IsObject() {
			rec.ForEach(func(k, v gjson.Result) bool {
				addColumn(k.String())
				row[k.String()] = jsonCell(v)
				return true
			})
		} else {
			addColumn("value")
			row["value"] = jsonCell(rec)
		}
		rows = append(rows, row)
	}

	return &table{columns: columns, rows: rows}, nil
}

func jsonCell(r gjson.Result) models.Value {
	switch r.Type {
	case gjson.True:
		return models.Bool(true)
	case gjson.False:
		return models.Bool(false)
	case gjson.Number:
		return models.Num(r.Float())
	case gjson.String:
		return models.Str(r.Str)
	case gjson.JSON:
		return models.Str(r.Raw)
	default:
		return models.Null
	}
}
