package table

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dianpeng/virtualsql/plan"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Files is where a table's data lives on the local file system
type Files struct {
	Format string
	Data   string
	Header string // typed header, csv only
}

// Fetcher makes the files of a table available locally. How the files get
// there, copied from a remote store or already on disk, is up to the
// implementation.
type Fetcher interface {
	Fetch(def plan.TableDef) (*Files, error)
}

// DirFetcher finds tables under a root directory, the schema, when present,
// is a sub directory:
//
//	<root>/<schema>/<name>.parquet
//	<root>/<schema>/<name>        data, with <name>_header next to it
//	<root>/<schema>/<name>.csv    data, with <name>_header next to it
type DirFetcher struct {
	Root string
}

func NewDirFetcher(root string) *DirFetcher {
	return &DirFetcher{Root: root}
}

func exists(path string) bool {
	st, e := os.Stat(path)
	return e == nil && !st.IsDir()
}

func (self *DirFetcher) Fetch(def plan.TableDef) (*Files, error) {
	dir := self.Root
	if def.Schema != "" {
		dir = filepath.Join(dir, filepath.FromSlash(def.Schema))
	}
	base := filepath.Join(dir, def.Name)

	if p := base + ".parquet"; exists(p) {
		return &Files{
			Format: FormatParquet,
			Data:   p,
		}, nil
	}

	header := base + "_header"
	for _, p := range []string{base, base + ".csv"} {
		if exists(p) {
			if !exists(header) {
				return nil, fmt.Errorf("table %s: typed header %s: %w", def.Key(), header, os.ErrNotExist)
			}
			return &Files{
				Format: FormatCSV,
				Data:   p,
				Header: header,
			}, nil
		}
	}
	return nil, fmt.Errorf("table %s: data file %s: %w", def.Key(), base, os.ErrNotExist)
}

// Load fetches the table and reads it with the filters pushed down into the
// scan
func Load(def plan.TableDef, fetcher Fetcher, filters []plan.Filter) (*Table, error) {
	files, e := fetcher.Fetch(def)
	if e != nil {
		return nil, e
	}
	return LoadFiles(def.Key(), files, filters)
}

func LoadFiles(key string, files *Files, filters []plan.Filter) (*Table, error) {
	data, e := os.Open(files.Data)
	if e != nil {
		return nil, fmt.Errorf("table %s: %w", key, e)
	}
	defer func() { _ = data.Close() }()

	switch files.Format {
	case FormatParquet:
		st, e := data.Stat()
		if e != nil {
			return nil, fmt.Errorf("table %s: %w", key, e)
		}
		return LoadParquet(key, data, st.Size(), filters)

	default:
		header, e := os.Open(files.Header)
		if e != nil {
			return nil, fmt.Errorf("table %s: %w", key, e)
		}
		defer func() { _ = header.Close() }()
		return LoadCSV(key, data, header, filters)
	}
}
