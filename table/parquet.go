package table

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dianpeng/virtualsql/plan"
	"github.com/segmentio/parquet-go"
)

const parquetBatch = 128

// parquetType maps the physical, and for dates the logical, type of a leaf
// column onto the engine datatypes
func parquetType(field parquet.Field) string {
	t := field.Type()
	if lt := t.LogicalType(); lt != nil && lt.Date != nil {
		return TypeDate
	}
	switch t.Kind() {
	case parquet.Int32, parquet.Int64, parquet.Float, parquet.Double:
		return TypeNumber
	case parquet.Boolean:
		return TypeBoolean
	default:
		return TypeChar
	}
}

func parquetText(v parquet.Value, datatype string) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		if datatype == TypeDate {
			return FormatDate(time.Unix(int64(v.Int32())*86400, 0).UTC())
		}
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	default:
		return string(v.ByteArray())
	}
}

// LoadParquet reads a flat parquet file, the schema takes the place of the
// typed header file. The same filter pushdown as LoadCSV applies.
func LoadParquet(
	key string,
	input io.ReaderAt,
	size int64,
	filters []plan.Filter,
) (*Table, error) {
	f, e := parquet.OpenFile(input, size)
	if e != nil {
		return nil, fmt.Errorf("table %s: failed to open parquet file: %w", key, e)
	}

	columns := []string{}
	datatype := map[string]string{}
	for _, field := range f.Schema().Fields() {
		if !field.Leaf() {
			return nil, fmt.Errorf("table %s: nested column %s is not supported", key, field.Name())
		}
		columns = append(columns, field.Name())
		datatype[field.Name()] = parquetType(field)
	}

	t, e := newTable(key, columns, datatype)
	if e != nil {
		return nil, e
	}
	if e := t.setFilters(filters); e != nil {
		return nil, e
	}

	reader := parquet.NewReader(f)
	defer func() { _ = reader.Close() }()

	buf := make([]parquet.Row, parquetBatch)
	for {
		n, re := reader.ReadRows(buf)
		for _, row := range buf[:n] {
			fields := make([]string, len(columns))
			for _, v := range row {
				c := v.Column()
				if c >= 0 && c < len(columns) {
					fields[c] = parquetText(v, datatype[columns[c]])
				}
			}
			if _, e := t.add(fields); e != nil {
				return nil, e
			}
		}
		if errors.Is(re, io.EOF) {
			break
		}
		if re != nil {
			return nil, fmt.Errorf("table %s: failed to read row: %w", key, re)
		}
	}
	return t, nil
}
