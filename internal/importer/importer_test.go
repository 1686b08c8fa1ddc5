package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestImporter() *Importer {
	return New(WithClock(func() time.Time { return fixedTime }), WithIDs(func() string { return "ds-1" }))
}

func importBytes(t *testing.T, name string, content []byte) (*models.DataSource, error) {
	t.Helper()
	return newTestImporter().Import(context.Background(), File{Name: name, Path: "/data/" + name, Content: content})
}

func mustImport(t *testing.T, name string, content []byte) *models.DataSource {
	t.Helper()
	ds, err := importBytes(t, name, content)
	if err != nil {
		t.Fatalf("import %s: %v", name, err)
	}
	return ds
}

func assertColumns(t *testing.T, ds *models.DataSource, want ...string) {
	t.Helper()
	if len(ds.Columns) != len(want) {
		t.Fatalf("columns = %v, want %v", ds.Columns, want)
	}
	for i := range want {
		if ds.Columns[i] != want[i] {
			t.Fatalf("columns = %v, want %v", ds.Columns, want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want models.Value
	}{
		{"", models.Null},
		{"42", models.Num(42)},
		{"-3.5", models.Num(-3.5)},
		{".5", models.Num(0.5)},
		{"1e3", models.Num(1000)},
		{"true", models.Bool(true)},
		{"FALSE", models.Bool(false)},
		{"yes", models.Str("yes")},
		{"12abc", models.Str("12abc")},
		{"9007199254740993", models.Str("9007199254740993")},
		{"0x10", models.Str("0x10")},
	}
	for _, tt := range tests {
		if got := Classify(tt.in); got != tt.want {
			t.Errorf("Classify(%q) = %v (%s), want %v (%s)", tt.in, got, got.Kind(), tt.want, tt.want.Kind())
		}
	}
}

func TestImport_CSV(t *testing.T) {
	ds := mustImport(t, "sales.csv", []byte("name,age,active\nAnn,30,true\nBob,,FALSE\n"))

	if ds.ID != "ds-1" || ds.Name != "sales.csv" || ds.Kind != models.SourceCSV {
		t.Errorf("metadata = %+v", ds.Summary())
	}
	if ds.FilePath != "/data/sales.csv" || !ds.CreatedAt.Equal(fixedTime) {
		t.Errorf("path/time = %q %v", ds.FilePath, ds.CreatedAt)
	}
	assertColumns(t, ds, "name", "age", "active")
	if len(ds.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(ds.Rows))
	}
	if ds.Rows[0]["age"] != models.Num(30) || ds.Rows[0]["active"] != models.Bool(true) {
		t.Errorf("row 0 = %v", ds.Rows[0])
	}
	if !ds.Rows[1]["age"].IsNull() || ds.Rows[1]["active"] != models.Bool(false) {
		t.Errorf("row 1 = %v", ds.Rows[1])
	}
}

func TestImport_CSVBlankRowsDropped(t *testing.T) {
	ds := mustImport(t, "empty.csv", []byte("a,b\n,\n,\n"))
	assertColumns(t, ds, "a", "b")
	if len(ds.Rows) != 0 {
		t.Errorf("rows = %v, want none", ds.Rows)
	}
}

func TestImport_CSVHeaderOnlyAndEmpty(t *testing.T) {
	ds := mustImport(t, "head.csv", []byte("x,y\n"))
	assertColumns(t, ds, "x", "y")
	if len(ds.Rows) != 0 {
		t.Errorf("rows = %d", len(ds.Rows))
	}

	ds = mustImport(t, "nothing.csv", nil)
	if len(ds.Columns) != 0 || ds.Rows == nil {
		t.Errorf("empty file = %+v", ds)
	}
}

func TestImport_CSVDuplicateHeaders(t *testing.T) {
	ds := mustImport(t, "dup.csv", []byte("a,a,\n1,2,3\n"))
	assertColumns(t, ds, "a", "a_1", "__EMPTY")
	if ds.Rows[0]["a_1"] != models.Num(2) || ds.Rows[0]["__EMPTY"] != models.Num(3) {
		t.Errorf("row = %v", ds.Rows[0])
	}
}

func TestImport_DelimiterDetection(t *testing.T) {
	ds := mustImport(t, "eu.csv", []byte("city;total\nOslo;12\n"))
	assertColumns(t, ds, "city", "total")
	if ds.Rows[0]["total"] != models.Num(12) {
		t.Errorf("row = %v", ds.Rows[0])
	}

	ds = mustImport(t, "tabbed.tsv", []byte("k\tv\nA\t1,5\n"))
	assertColumns(t, ds, "k", "v")
	if ds.Rows[0]["v"] != models.Str("1,5") {
		t.Errorf("tsv row = %v", ds.Rows[0])
	}
}

func TestImport_CSVMalformed(t *testing.T) {
	_, err := importBytes(t, "bad.csv", []byte("a,b\n\"unterminated,1\n"))
	if !errors.Is(err, apperr.ErrParseFailure) {
		t.Fatalf("err = %v, want parse failure", err)
	}
	var ie *apperr.ImportError
	if !errors.As(err, &ie) || ie.File != "bad.csv" {
		t.Errorf("err = %#v, want ImportError for bad.csv", err)
	}
}

func TestImport_Unsupported(t *testing.T) {
	_, err := importBytes(t, "notes.txt", []byte("hello"))
	if !errors.Is(err, apperr.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want unsupported format", err)
	}
	var ie *apperr.ImportError
	if !errors.As(err, &ie) || ie.Format != "txt" {
		t.Errorf("format = %#v", ie)
	}
	if Supported("notes.txt") || !Supported("DATA.CSV") {
		t.Error("Supported is wrong")
	}
}

func TestImport_JSONArray(t *testing.T) {
	ds := mustImport(t, "rows.json", []byte(`[{"b":1,"a":"x"},{"a":"y","c":true,"n":{"deep":1}},{"a":null}]`))
	assertColumns(t, ds, "b", "a", "c", "n")
	if len(ds.Rows) != 3 {
		t.Fatalf("rows = %d", len(ds.Rows))
	}
	if ds.Rows[0]["b"] != models.Num(1) || ds.Rows[1]["c"] != models.Bool(true) {
		t.Errorf("rows = %v", ds.Rows)
	}
	if ds.Rows[1]["n"] != models.Str(`{"deep":1}`) {
		t.Errorf("nested = %v", ds.Rows[1]["n"])
	}
	if !ds.Rows[2].Has("a") || !ds.Rows[2]["a"].IsNull() || ds.Rows[2].Has("b") {
		t.Errorf("row 2 = %v", ds.Rows[2])
	}
	if ds.Kind != models.SourceJSON {
		t.Errorf("kind = %s", ds.Kind)
	}
}

func TestImport_JSONWrappedAndSingle(t *testing.T) {
	ds := mustImport(t, "wrapped.json", []byte(`{"meta":"v1","items":[{"k":1},{"k":2}]}`))
	assertColumns(t, ds, "k")
	if len(ds.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(ds.Rows))
	}

	ds = mustImport(t, "one.json", []byte(`{"k":1,"v":"x"}`))
	assertColumns(t, ds, "k", "v")
	if len(ds.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(ds.Rows))
	}

	ds = mustImport(t, "scalars.json", []byte(`[1,"two"]`))
	assertColumns(t, ds, "value")
	if ds.Rows[1]["value"] != models.Str("two") {
		t.Errorf("rows = %v", ds.Rows)
	}
}

func TestImport_JSONInvalid(t *testing.T) {
	for _, in := range []string{`{}`, `42`, `null`, `"text"`} {
		_, err := importBytes(t, "x.json", []byte(in))
		if !errors.Is(err, apperr.ErrInvalidStructure) {
			t.Errorf("%s: err = %v, want invalid structure", in, err)
		}
	}
	_, err := importBytes(t, "x.json", []byte(`[{"a":1},`))
	if !errors.Is(err, apperr.ErrParseFailure) || errors.Is(err, apperr.ErrInvalidStructure) {
		t.Errorf("malformed: err = %v", err)
	}
}

func TestImport_Spreadsheet(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	cells := map[string]any{
		"A1": "region", "B1": "units", "C1": "ok",
		"A2": "north", "B2": 12, "C2": true,
		"A3": "south", "B3": 7.5,
		"A5": "east", "C5": false,
	}
	for cell, v := range cells {
		if err := wb.SetCellValue(sheet, cell, v); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := wb.NewSheet("Ignored"); err != nil {
		t.Fatal(err)
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	ds := mustImport(t, "book.xlsx", buf.Bytes())
	if ds.Kind != models.SourceExcel {
		t.Errorf("kind = %s", ds.Kind)
	}
	assertColumns(t, ds, "region", "units", "ok")
	if len(ds.Rows) != 3 {
		t.Fatalf("rows = %v, want 3 (blank row 4 skipped)", ds.Rows)
	}
	if ds.Rows[0]["units"] != models.Num(12) || ds.Rows[0]["ok"] != models.Bool(true) {
		t.Errorf("row 0 = %v", ds.Rows[0])
	}
	if ds.Rows[1]["units"] != models.Num(7.5) || !ds.Rows[1]["ok"].IsNull() {
		t.Errorf("row 1 = %v", ds.Rows[1])
	}
	if ds.Rows[2]["region"] != models.Str("east") || ds.Rows[2]["ok"] != models.Bool(false) {
		t.Errorf("row 2 = %v", ds.Rows[2])
	}
}

func TestImport_SpreadsheetCorrupt(t *testing.T) {
	_, err := importBytes(t, "broken.xlsx", []byte("not a zip"))
	if !errors.Is(err, apperr.ErrParseFailure) {
		t.Errorf("err = %v, want parse failure", err)
	}
}

func TestImport_Parquet(t *testing.T) {
	mem := memory.NewGoAllocator()
	fields := []arrow.Field{
		{Name: "city", Type: arrow.BinaryTypes.String},
		{Name: "sales", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}
	schema := arrow.NewSchema(fields, nil)

	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.AppendValues([]string{"Oslo", "Bergen"}, nil)
	ib := array.NewInt64Builder(mem)
	defer ib.Release()
	ib.AppendValues([]int64{10, 0}, []bool{true, false})

	arrays := []arrow.Array{sb.NewArray(), ib.NewArray()}
	columns := make([]arrow.Column, len(fields))
	for i, arr := range arrays {
		chunked := arrow.NewChunked(fields[i].Type, []arrow.Array{arr})
		columns[i] = *arrow.NewColumn(fields[i], chunked)
		arr.Release()
		chunked.Release()
	}
	tbl := array.NewTable(schema, columns, 2)
	defer tbl.Release()

	var buf bytes.Buffer
	if err := pqarrow.WriteTable(tbl, &buf, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()); err != nil {
		t.Fatal(err)
	}

	ds := mustImport(t, "cities.parquet", buf.Bytes())
	if ds.Kind != models.SourceParquet {
		t.Errorf("kind = %s", ds.Kind)
	}
	assertColumns(t, ds, "city", "sales")
	if len(ds.Rows) != 2 {
		t.Fatalf("rows = %d", len(ds.Rows))
	}
	if ds.Rows[0]["city"] != models.Str("Oslo") || ds.Rows[0]["sales"] != models.Num(10) {
		t.Errorf("row 0 = %v", ds.Rows[0])
	}
	if !ds.Rows[1].Has("sales") || !ds.Rows[1]["sales"].IsNull() {
		t.Errorf("row 1 = %v", ds.Rows[1])
	}
}

// regionsParquet writes n rows of (region, units, price) as Parquet.
func regionsParquet(t *testing.T, n int) []byte {
	t.Helper()
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "region", Type: arrow.BinaryTypes.String},
		{Name: "units", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "price", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i := 0; i < n; i++ {
		b.Field(0).(*array.StringBuilder).Append(fmt.Sprintf("region-%d", i%7))
		if i%5 == 0 {
			b.Field(1).(*array.Int64Builder).AppendNull()
		} else {
			b.Field(1).(*array.Int64Builder).Append(int64(i))
		}
		b.Field(2).(*array.Float64Builder).Append(float64(i) * 1.5)
	}
	rec := b.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	if err := pqarrow.WriteTable(tbl, &buf, 16, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImport_ParquetCorrupt(t *testing.T) {
	valid := regionsParquet(t, 50)
	if ds := mustImport(t, "regions.parquet", valid); len(ds.Rows) != 50 {
		t.Fatalf("rows = %d, want 50", len(ds.Rows))
	}

	broken := map[string][]byte{
		"truncated":   valid[:len(valid)/2],
		"no footer":   valid[:len(valid)-8],
		"magic only":  []byte("PAR1"),
		"bad trailer": append(append([]byte{}, valid[:len(valid)-4]...), "XXXX"...),
	}
	for name, content := range broken {
		if _, err := importBytes(t, "x.parquet", content); !errors.Is(err, apperr.ErrParseFailure) {
			t.Errorf("%s: err = %v, want parse failure", name, err)
		}
	}
}

func TestImport_ParquetFlippedBytes(t *testing.T) {
	valid := regionsParquet(t, 50)
	rng := rand.New(rand.NewPCG(7, 11))

	failures := 0
	for trial := 0; trial < 200; trial++ {
		content := append([]byte(nil), valid...)
		for k := 0; k < 3; k++ {
			content[rng.IntN(len(content))] ^= byte(1 + rng.IntN(255))
		}
		// Either the damage is harmless and the import succeeds, or it is
		// reported as a parse failure. It must never crash the process.
		ds, err := importBytes(t, "x.parquet", content)
		if err != nil {
			if !errors.Is(err, apperr.ErrParseFailure) {
				t.Fatalf("trial %d: err = %v, want parse failure", trial, err)
			}
			failures++
			continue
		}
		if err := ds.Validate(); err != nil {
			t.Fatalf("trial %d: imported source invalid: %v", trial, err)
		}
	}
	if failures == 0 {
		t.Error("no trial was rejected; the corruption never reached the reader")
	}
}

func TestUniqueHeaders(t *testing.T) {
	got := uniqueHeaders([]string{"a", "a", "a_1", "", ""})
	want := []string{"a", "a_1", "a_1_1", "__EMPTY", "__EMPTY_1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uniqueHeaders = %v, want %v", got, want)
		}
	}
}
