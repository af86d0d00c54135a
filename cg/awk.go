package cg

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	gawki "github.com/benhoyt/goawk/interp"
	gawkp "github.com/benhoyt/goawk/parser"
	"github.com/dianpeng/virtualsql/plan"
	"github.com/dianpeng/virtualsql/sql"
	"github.com/dianpeng/virtualsql/table"
)

// The scan program reads the data file in CSV mode. The first record names
// the columns, it is echoed and used to map a column name to its field. Every
// other record is echoed when it passes the filters pushed down to the table.
// Fields are re-quoted by hand, so the output is CSV whatever output mode the
// awk runs in.
const tableScanTemplate = `# scan of table {{.Table}}
function csv(s) {
  if (s ~ /[",\n]/) {
    gsub(/"/, "\"\"", s)
    return "\"" s "\""
  }
  return s
}

function num(s) {
  if (s !~ /^[ \t]*[-+]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][-+]?[0-9]+)?[ \t]*$/) {
    exit 3
  }
  return s + 0
}

function emit(  i, line) {
  line = csv($1)
  for (i = 2; i <= NF; i++) {
    line = line "," csv($i)
  }
  print line
}

NR == 1 {
  for (i = 1; i <= NF; i++) {
    col[$i] = i
  }
{{- range .Columns}}
  if (!({{.}} in col)) {
    exit 2
  }
{{- end}}
  emit()
  next
}

{{if ne .Filter ""}}{{.Filter}} {
  emit()
}{{else}}{
  emit()
}{{end}}
`

// exit status of a scan whose data file lacks a filtered column, or holds a
// field of a NUMBER filter that is not a number
const (
	awkMissingColumn = 2
	awkNotANumber    = 3
)

func newtemplate(
	xx string,
) (*template.Template, error) {
	return template.New("[template]").Parse(xx)
}

func awkString(x string) string {
	x = strings.ReplaceAll(x, `\`, `\\`)
	x = strings.ReplaceAll(x, `"`, `\"`)
	return `"` + x + `"`
}

func awkOp(op string) string {
	if op == plan.OpEq {
		return "=="
	}
	return op
}

// genFilter renders one filter, NUMBER columns compare numerically and the
// rest compare as strings. A YYYY-MM-DD date orders the same either way.
func genFilter(f plan.Filter, datatype string) (string, error) {
	col := f.Column().ColumnName
	field := "$(col[" + awkString(col) + "])"

	switch f.Operator {
	case plan.OpLike:
		return fmt.Sprintf("(%s \"\") ~ %s", field, awkString(sql.LikeToRegex(f.Value))), nil
	case plan.OpNotLike:
		return fmt.Sprintf("(%s \"\") !~ %s", field, awkString(sql.LikeToRegex(f.Value))), nil
	}

	v, e := table.Coerce(datatype, f.Value)
	if e != nil {
		return "", fmt.Errorf("code-gen(awk): filter on %s: %w", col, e)
	}
	if datatype == table.TypeNumber {
		return fmt.Sprintf("num(%s) %s %s", field, awkOp(f.Operator), v.Text()), nil
	}
	return fmt.Sprintf("(%s \"\") %s %s", field, awkOp(f.Operator), awkString(v.Text())), nil
}

// AwkScan renders the filter pushdown of one table as an awk program. The
// datatype map is the table's typed header, filters on a column it does not
// list are left out, the same way the loader drops them.
func AwkScan(
	x *plan.QueryTree,
	def plan.TableDef,
	datatype map[string]string,
) (string, error) {
	cond := []string{}
	seen := map[string]bool{}
	for _, f := range x.FiltersOf(def) {
		c := f.Column()
		dt, ok := datatype[c.ColumnName]
		if !ok {
			continue
		}
		expr, e := genFilter(f, dt)
		if e != nil {
			return "", e
		}
		cond = append(cond, expr)
		seen[c.ColumnName] = true
	}

	columns := []string{}
	for c := range seen {
		columns = append(columns, awkString(c))
	}
	sort.Strings(columns)

	t, err := newtemplate(tableScanTemplate)
	if err != nil {
		panic("code-gen(awk): invalid template?")
	}

	out := &strings.Builder{}
	if err := t.Execute(out, map[string]interface{}{
		"Table":   def.Key(),
		"Columns": columns,
		"Filter":  strings.Join(cond, " && "),
	}); err != nil {
		return "", fmt.Errorf("code-gen(awk): %w", err)
	}
	return out.String(), nil
}

// RunAwk executes a scan program over CSV input with goawk
func RunAwk(program string, input io.Reader, output io.Writer) error {
	prog, err := gawkp.ParseProgram(
		[]byte(program),
		nil,
	)
	if err != nil {
		return fmt.Errorf("awk(parse): %w", err)
	}

	interp, err := gawki.New(prog)
	if err != nil {
		return fmt.Errorf("awk(interp): %w", err)
	}
	status, err := interp.Execute(&gawki.Config{
		Stdin:     input,
		Output:    output,
		Args:      []string{},
		InputMode: gawki.CSVMode,
	})
	if err != nil {
		return fmt.Errorf("awk(run): %w", err)
	}
	switch status {
	case 0:
		return nil
	case awkMissingColumn:
		return fmt.Errorf("awk(run): data file lacks a filtered column")
	case awkNotANumber:
		return fmt.Errorf("awk(run): %w: a numeric filter met a field that is not a number", table.ErrTypeCoercion)
	default:
		return fmt.Errorf("awk(run): exit status %d", status)
	}
}
