package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseDelimited reads delimited text with a header row. Cells are typed
// with Classify and rows whose cells are all blank are dropped.
func parseDelimited(_ context.Context, f File) (*table, error) {
	content := bytes.TrimPrefix(f.Content, utf8BOM)

	sep := detectSeparator(content)
	if strings.EqualFold(filepath.Ext(f.Name), ".tsv") {
		sep = '\t'
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sep
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", apperr.ErrParseFailure, err)
	}
	columns := uniqueHeaders(header)

	var rows []models.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrParseFailure, err)
		}

		row := make(models.Row, len(columns))
		blank := true
		for i, cell := range record {
			if i >= len(columns) {
				break
			}
			v := Classify(cell)
			if !v.IsBlank() {
				blank = false
			}
			row[columns[i]] = v
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}

	return &table{columns: columns, rows: rows}, nil
}

// detectSeparator picks the most frequent of , ; tab | on the first line.
// Comma wins ties and empty input.
func detectSeparator(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, sep := range []rune{';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(sep))); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}
