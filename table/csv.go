package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dianpeng/virtualsql/plan"
)

// ReadTypedHeader reads the typed header file, one comma separated row of
// "name type" entries, into a name to normalized datatype map
func ReadTypedHeader(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	row, e := reader.Read()
	if errors.Is(e, io.EOF) {
		return nil, fmt.Errorf("typed header is empty")
	}
	if e != nil {
		return nil, fmt.Errorf("typed header: %w", e)
	}

	out := map[string]string{}
	for _, entry := range row {
		fields := strings.Fields(entry)
		if len(fields) < 2 {
			return nil, fmt.Errorf("typed header: entry %q is not \"name type\"", entry)
		}
		out[fields[0]] = NormalizeType(fields[1])
	}
	return out, nil
}

// LoadCSV reads a comma separated data file whose first row names the
// columns, applying every filter that targets this table while scanning.
// Rows failing a filter never make it into memory.
func LoadCSV(
	key string,
	data io.Reader,
	header io.Reader,
	filters []plan.Filter,
) (*Table, error) {
	datatype, e := ReadTypedHeader(header)
	if e != nil {
		return nil, fmt.Errorf("table %s: %w", key, e)
	}

	reader := csv.NewReader(data)

	columns, e := reader.Read()
	if errors.Is(e, io.EOF) {
		return nil, fmt.Errorf("table %s: data file has no header row", key)
	}
	if e != nil {
		return nil, fmt.Errorf("table %s: %w", key, e)
	}
	for idx := range columns {
		columns[idx] = strings.TrimSpace(columns[idx])
	}

	t, e := newTable(key, columns, datatype)
	if e != nil {
		return nil, e
	}
	if e := t.setFilters(filters); e != nil {
		return nil, e
	}

	for {
		row, e := reader.Read()
		if errors.Is(e, io.EOF) {
			break
		}
		if e != nil {
			return nil, fmt.Errorf("table %s: %w", key, e)
		}
		if _, e := t.add(row); e != nil {
			return nil, e
		}
	}
	return t, nil
}
