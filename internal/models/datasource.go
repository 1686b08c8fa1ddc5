// Package models defines the domain types for DataForge.
package models

import (
	"fmt"
	"time"
)

// SourceKind is the origin format of a DataSource.
type SourceKind string

const (
	SourceCSV     SourceKind = "csv"
	SourceExcel   SourceKind = "excel"
	SourceJSON    SourceKind = "json"
	SourceSQL     SourceKind = "sql"
	SourceParquet SourceKind = "parquet"
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceCSV, SourceExcel, SourceJSON, SourceSQL, SourceParquet:
		return true
	}
	return false
}

// DataSource is a named table produced by the importer.
type DataSource struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      SourceKind `json:"type"`
	FilePath  string     `json:"filePath,omitempty"`
	Columns   []string   `json:"columns"`
	Rows      []Row      `json:"data"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Validate checks that columns are unique and that every row only uses
// known columns.
func (ds *DataSource) Validate() error {
	known := make(map[string]struct{}, len(ds.Columns))
	for _, c := range ds.Columns {
		if _, dup := known[c]; dup {
			return fmt.Errorf("datasource %s: duplicate column %q", ds.ID, c)
		}
		known[c] = struct{}{}
	}
	for i, row := range ds.Rows {
		for k := range row {
			if _, ok := known[k]; !ok {
				return fmt.Errorf("datasource %s: row %d has unknown column %q", ds.ID, i, k)
			}
		}
	}
	return nil
}

// Column returns the i-th column name. ok is false when there is none; ""
// is a legal column name.
func (ds *DataSource) Column(i int) (name string, ok bool) {
	if i < 0 || i >= len(ds.Columns) {
		return "", false
	}
	return ds.Columns[i], true
}

// DataSourcePatch is a partial update; nil fields are left unchanged.
type DataSourcePatch struct {
	Name     *string `json:"name,omitempty"`
	FilePath *string `json:"filePath,omitempty"`
}

// Apply returns a copy of ds with the patch applied. Rows are shared with
// ds; a DataSource's table is immutable once loaded.
func (ds DataSource) Apply(p DataSourcePatch) DataSource {
	if p.Name != nil {
		ds.Name = *p.Name
	}
	if p.FilePath != nil {
		ds.FilePath = *p.FilePath
	}
	return ds
}

// DataSourceSummary is the list view of a DataSource without its rows.
type DataSourceSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      SourceKind `json:"type"`
	FilePath  string     `json:"filePath,omitempty"`
	Columns   []string   `json:"columns"`
	RowCount  int        `json:"rowCount"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Summary returns the row-less view of ds.
func (ds *DataSource) Summary() DataSourceSummary {
	return DataSourceSummary{
		ID:        ds.ID,
		Name:      ds.Name,
		Kind:      ds.Kind,
		FilePath:  ds.FilePath,
		Columns:   ds.Columns,
		RowCount:  len(ds.Rows),
		CreatedAt: ds.CreatedAt,
	}
}
