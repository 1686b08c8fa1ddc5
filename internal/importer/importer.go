// Package importer converts data files into DataSource tables.
package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

// File is the raw input handed over by the host.
type File struct {
	Name    string // display name; its extension selects the parser
	Path    string // origin path, optional
	Content []byte
}

// table is what every format parser produces.
type table struct {
	columns []string
	rows    []models.Row
}

type parseFunc func(ctx context.Context, f File) (*table, error)

type format struct {
	kind  models.SourceKind
	parse parseFunc
}

var formats = map[string]format{
	".csv":     {models.SourceCSV, parseDelimited},
	".tsv":     {models.SourceCSV, parseDelimited},
	".xlsx":    {models.SourceExcel, parseSpreadsheet},
	".xlsm":    {models.SourceExcel, parseSpreadsheet},
	".xls":     {models.SourceExcel, parseSpreadsheet},
	".json":    {models.SourceJSON, parseRecords},
	".parquet": {models.SourceParquet, parseParquet},
}

// Extensions returns the file extensions the importer accepts.
func Extensions() []string {
	return []string{".csv", ".tsv", ".xlsx", ".xlsm", ".xls", ".json", ".parquet"}
}

// Supported reports whether name has an importable extension.
func Supported(name string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Importer turns files into DataSources.
type Importer struct {
	now   func() time.Time
	newID func() string
}

// Option configures an Importer.
type Option func(*Importer)

// WithClock sets the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// WithIDs sets the id generator.
func WithIDs(newID func() string) Option {
	return func(im *Importer) { im.newID = newID }
}

// New creates an Importer.
func New(opts ...Option) *Importer {
	im := &Importer{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import parses f into a new DataSource. On error no DataSource is returned.
func (im *Importer) Import(ctx context.Context, f File) (*models.DataSource, error) {
	ext := strings.ToLower(filepath.Ext(f.Name))
	fm, ok := formats[ext]
	if !ok {
		return nil, &apperr.ImportError{
			File:   f.Name,
			Format: strings.TrimPrefix(ext, "."),
			Err:    fmt.Errorf("%w: unsupported file type %q", apperr.ErrUnsupportedFormat, strings.TrimPrefix(ext, ".")),
		}
	}

	t, err := fm.parse(ctx, f)
	if err != nil {
		return nil, &apperr.ImportError{File: f.Name, Format: string(fm.kind), Err: err}
	}

	ds := &models.DataSource{
		ID:        im.newID(),
		Name:      f.Name,
		Kind:      fm.kind,
		FilePath:  f.Path,
		Columns:   t.columns,
		Rows:      t.rows,
		CreatedAt: im.now(),
	}
	if ds.Columns == nil {
		ds.Columns = []string{}
	}
	if ds.Rows == nil {
		ds.Rows = []models.Row{}
	}
	if err := ds.Validate(); err != nil {
		return nil, &apperr.ImportError{File: f.Name, Format: string(fm.kind), Err: fmt.Errorf("%w: %v", apperr.ErrParseFailure, err)}
	}
	return ds, nil
}

// uniqueHeaders names blank headers "__EMPTY" and suffixes repeated names
// with _1, _2, ... so that every column name is distinct.
func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	taken := make(map[string]struct{}, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		if h == "" {
			h = "__EMPTY"
		}
		name := h
		for {
			if _, dup := taken[name]; !dup {
				break
			}
			seen[h]++
			name = fmt.Sprintf("%s_%d", h, seen[h])
		}
		taken[name] = struct{}{}
		out[i] = name
	}
	return out
}
