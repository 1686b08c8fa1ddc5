package importer

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

// verifyBatch is the number of values decoded per call while verifying.
const verifyBatch = 1024

// parseParquet reads a Parquet file through Arrow. Columns follow the
// schema order; nested and binary values are rendered as text.
//
// pqarrow decodes columns on its own goroutines, where a panic on corrupt
// metadata cannot be recovered. Every column chunk is therefore decoded
// once on this goroutine first.
func parseParquet(ctx context.Context, f File) (_ *table, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: corrupt parquet: %v", apperr.ErrParseFailure, r)
		}
	}()

	pf, err := file.NewParquetReader(bytes.NewReader(f.Content), file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, fmt.Errorf("%w: open parquet: %v", apperr.ErrParseFailure, err)
	}
	defer pf.Close()

	if err := verifyParquet(pf); err != nil {
		return nil, fmt.Errorf("%w: corrupt parquet: %v", apperr.ErrParseFailure, err)
	}

	mem := memory.NewGoAllocator()
	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("%w: arrow reader: %v", apperr.ErrParseFailure, err)
	}

	tbl, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read table: %v", apperr.ErrParseFailure, err)
	}
	defer tbl.Release()

	fields := tbl.Schema().Fields()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}
	columns := uniqueHeaders(names)

	rows := make([]models.Row, 0, tbl.NumRows())
	tr := array.NewTableReader(tbl, tbl.NumRows())
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		for r := 0; r < int(rec.NumRows()); r++ {
			row := make(models.Row, len(columns))
			for c, col := range rec.Columns() {
				row[columns[c]] = arrowCell(col, r)
			}
			rows = append(rows, row)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrParseFailure, err)
	}

	return &table{columns: columns, rows: rows}, nil
}

// verifyParquet walks the metadata and decodes every column chunk. It
// panics on the corruptions the reader does not report as errors; the
// caller recovers.
func verifyParquet(pf *file.Reader) error {
	meta := pf.MetaData()
	for i := 0; i < pf.NumRowGroups(); i++ {
		rgMeta := meta.RowGroup(i)
		for j := 0; j < rgMeta.NumColumns(); j++ {
			if _, err := rgMeta.ColumnChunk(j); err != nil {
				return fmt.Errorf("row group %d column %d: %w", i, j, err)
			}
		}

		rg := pf.RowGroup(i)
		for j := 0; j < rg.NumColumns(); j++ {
			col, err := rg.Column(j)
			if err != nil {
				return fmt.Errorf("row group %d column %d: %w", i, j, err)
			}
			if err := drainColumn(col); err != nil {
				return fmt.Errorf("row group %d column %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func drainColumn(col file.ColumnChunkReader) error {
	switch r := col.(type) {
	case *file.BooleanColumnChunkReader:
		return drain[bool](r)
	case *file.Int32ColumnChunkReader:
		return drain[int32](r)
	case *file.Int64ColumnChunkReader:
		return drain[int64](r)
	case *file.Int96ColumnChunkReader:
		return drain[parquet.Int96](r)
	case *file.Float32ColumnChunkReader:
		return drain[float32](r)
	case *file.Float64ColumnChunkReader:
		return drain[float64](r)
	case *file.ByteArrayColumnChunkReader:
		return drain[parquet.ByteArray](r)
	case *file.FixedLenByteArrayColumnChunkReader:
		return drain[parquet.FixedLenByteArray](r)
	default:
		return col.Err()
	}
}

type batchReader[T any] interface {
	HasNext() bool
	ReadBatch(batchSize int64, values []T, defLvls, repLvls []int16) (int64, int, error)
	Err() error
}

func drain[T any](r batchReader[T]) error {
	values := make([]T, verifyBatch)
	defLvls := make([]int16, verifyBatch)
	repLvls := make([]int16, verifyBatch)
	for r.HasNext() {
		n, _, err := r.ReadBatch(verifyBatch, values, defLvls, repLvls)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
	}
	return r.Err()
}

func arrowCell(col arrow.Array, i int) models.Value {
	if col.IsNull(i) {
		return models.Null
	}

	switch a := col.(type) {
	case *array.Boolean:
		return models.Bool(a.Value(i))
	case *array.String:
		return models.Str(a.Value(i))
	case *array.LargeString:
		return models.Str(a.Value(i))
	case *array.Float32:
		return models.Num(float64(a.Value(i)))
	case *array.Float64:
		return models.Num(a.Value(i))
	case *array.Int8:
		return models.Num(float64(a.Value(i)))
	case *array.Int16:
		return models.Num(float64(a.Value(i)))
	case *array.Int32:
		return models.Num(float64(a.Value(i)))
	case *array.Int64:
		return intCell(a.Value(i))
	case *array.Uint8:
		return models.Num(float64(a.Value(i)))
	case *array.Uint16:
		return models.Num(float64(a.Value(i)))
	case *array.Uint32:
		return models.Num(float64(a.Value(i)))
	case *array.Uint64:
		if v := a.Value(i); v <= maxSafeInteger {
			return models.Num(float64(v))
		}
		return models.Str(a.ValueStr(i))
	case *array.Date32:
		return models.Str(a.Value(i).ToTime().Format("2006-01-02"))
	case *array.Date64:
		return models.Str(a.Value(i).ToTime().Format("2006-01-02"))
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return models.Str(a.Value(i).ToTime(unit).UTC().Format(time.RFC3339Nano))
	default:
		return models.Str(col.ValueStr(i))
	}
}

// intCell keeps integers outside the float64-exact range as text.
func intCell(v int64) models.Value {
	if math.Abs(float64(v)) <= maxSafeInteger {
		return models.Num(float64(v))
	}
	return models.Str(strconv.FormatInt(v, 10))
}
