package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dianpeng/virtualsql/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customerData = `c_custkey,c_name,c_mktsegment,c_acctbal,c_since
1,"Customer#1, Ltd",BUILDING,7140.55,1995-03-01
2,Customer#2,FURNITURE,121.65,1996-07-11
3,Customer#3,BUILDING,7933.53,1994-12-24
`

const customerHeader = `c_custkey INTEGER,c_name VARCHAR(25),c_mktsegment CHAR(10),"c_acctbal NUMERIC(15,2)",c_since DATE` + "\n"

func writeFile(t *testing.T, path string, content string) {
	require.Nil(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
}

func loadCustomer(t *testing.T, filters []plan.Filter) (*Table, error) {
	return LoadCSV(
		"customer",
		strings.NewReader(customerData),
		strings.NewReader(customerHeader),
		filters,
	)
}

func TestNormalizeType(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(TypeDate, NormalizeType("date"))
	assert.Equal(TypeNumber, NormalizeType("INTEGER"))
	assert.Equal(TypeNumber, NormalizeType("numeric"))
	assert.Equal(TypeNumber, NormalizeType("NUMERIC(15,2)"))
	assert.Equal(TypeNumber, NormalizeType("decimal"))
	assert.Equal(TypeChar, NormalizeType("CHAR(10)"))
	assert.Equal(TypeChar, NormalizeType("varchar"))
	assert.Equal("TIMESTAMP", NormalizeType("timestamp"))
}

func TestCoerce(t *testing.T) {
	assert := assert.New(t)
	{
		v, e := Coerce(TypeNumber, " 1.50")
		assert.Nil(e)
		assert.Equal("1.5", v.Text())
	}
	{
		a, _ := Coerce(TypeDate, "1998-01-01")
		b, _ := Coerce(TypeDate, "1998-12-01")
		assert.Equal(-1, a.Compare(b))
		assert.Equal("1998-01-01", a.Text())
	}
	{
		a, _ := Coerce(TypeNumber, "9")
		b, _ := Coerce(TypeNumber, "10")
		assert.Equal(-1, a.Compare(b))
		c, _ := Coerce(TypeChar, "9")
		d, _ := Coerce(TypeChar, "10")
		assert.Equal(1, c.Compare(d))
	}
	{
		_, e := Coerce(TypeNumber, "abc")
		assert.True(errors.Is(e, ErrTypeCoercion))
		_, e = Coerce(TypeDate, "01/02/1998")
		assert.True(errors.Is(e, ErrTypeCoercion))
	}
}

func TestLoadCSV(t *testing.T) {
	assert := assert.New(t)
	{
		tab, e := loadCustomer(t, nil)
		assert.Nil(e)
		assert.Equal(3, tab.Len())
		assert.Equal(2, tab.ColumnPosition["c_mktsegment"])
		assert.Equal(TypeChar, tab.ColumnDatatype["c_name"])
		assert.Equal(TypeNumber, tab.ColumnDatatype["c_acctbal"])
		assert.Equal(TypeDate, tab.ColumnDatatype["c_since"])
		assert.Equal("Customer#1, Ltd", tab.Rows[0][1])
	}

	{
		// exactly the two BUILDING rows
		tab, e := loadCustomer(t, []plan.Filter{
			{Identifier: "c_mktsegment", Operator: "=", Value: "BUILDING", Quoted: true},
		})
		assert.Nil(e)
		assert.Equal(2, tab.Len())
		for _, row := range tab.Rows {
			assert.Equal("BUILDING", row[2])
		}
		assert.Equal(1, tab.FilterCount())
	}

	{
		// every filter must hold, numbers compare as numbers
		tab, e := loadCustomer(t, []plan.Filter{
			{Identifier: "c_mktsegment", Operator: "=", Value: "BUILDING", Quoted: true},
			{Identifier: "c_acctbal", Operator: ">", Value: "7500"},
		})
		assert.Nil(e)
		assert.Equal(1, tab.Len())
		assert.Equal("3", tab.Rows[0][0])
	}

	{
		tab, e := loadCustomer(t, []plan.Filter{
			{Identifier: "c_since", Operator: "<", Value: "1995-06-01", Quoted: true},
		})
		assert.Nil(e)
		assert.Equal(2, tab.Len())
	}

	{
		// filters on other tables, or on unknown columns, are ignored here
		tab, e := loadCustomer(t, []plan.Filter{
			{Identifier: "o.c_mktsegment", Operator: "=", Value: "X", Quoted: true},
			{Identifier: "l_shipdate", Operator: "<=", Value: "1998-12-01", Quoted: true},
		})
		assert.Nil(e)
		assert.Equal(3, tab.Len())
		assert.Equal(0, tab.FilterCount())
	}

	{
		tab, e := loadCustomer(t, []plan.Filter{
			{Identifier: "customer.c_custkey", Operator: "!=", Value: "2"},
		})
		assert.Nil(e)
		assert.Equal(2, tab.Len())
	}

	{
		_, e := loadCustomer(t, []plan.Filter{
			{Identifier: "c_acctbal", Operator: ">", Value: "lots", Quoted: true},
		})
		assert.True(errors.Is(e, ErrTypeCoercion))
	}
}

func TestLoadCSVErrors(t *testing.T) {
	assert := assert.New(t)
	{
		_, e := LoadCSV("t", strings.NewReader(""), strings.NewReader("a INTEGER"), nil)
		assert.NotNil(e)
		assert.True(strings.Contains(e.Error(), "no header row"))
	}
	{
		_, e := LoadCSV("t", strings.NewReader("a\nx\n"), strings.NewReader("a"), nil)
		assert.NotNil(e)
	}
	{
		_, e := LoadCSV("t",
			strings.NewReader("a\nx\n"),
			strings.NewReader("a INTEGER"),
			[]plan.Filter{{Identifier: "a", Operator: "=", Value: "1"}},
		)
		assert.True(errors.Is(e, ErrTypeCoercion))
	}
	{
		_, e := LoadCSV("t", strings.NewReader("a,a\n1,2\n"), strings.NewReader("a INTEGER"), nil)
		assert.NotNil(e)
	}
}

func TestDirFetcher(t *testing.T) {
	assert := assert.New(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tcph", "customer"), customerData)
	writeFile(t, filepath.Join(root, "tcph", "customer_header"), customerHeader)
	writeFile(t, filepath.Join(root, "nation.csv"), "n_name\nFRANCE\n")
	writeFile(t, filepath.Join(root, "nation_header"), "n_name CHAR(25)\n")
	writeFile(t, filepath.Join(root, "orphan"), "x\n1\n")

	f := NewDirFetcher(root)
	{
		files, e := f.Fetch(plan.TableDef{Schema: "tcph", Name: "customer", Alias: "c"})
		assert.Nil(e)
		assert.Equal(FormatCSV, files.Format)
		assert.Equal(filepath.Join(root, "tcph", "customer_header"), files.Header)

		tab, e := Load(plan.TableDef{Schema: "tcph", Name: "customer", Alias: "c"}, f, []plan.Filter{
			{Identifier: "c.c_mktsegment", Operator: "=", Value: "BUILDING", Quoted: true},
		})
		assert.Nil(e)
		assert.Equal("c", tab.Key)
		assert.Equal(2, tab.Len())
	}
	{
		tab, e := Load(plan.TableDef{Name: "nation"}, f, nil)
		assert.Nil(e)
		assert.Equal(1, tab.Len())
	}
	{
		_, e := f.Fetch(plan.TableDef{Name: "missing"})
		assert.True(errors.Is(e, os.ErrNotExist))
		_, e = f.Fetch(plan.TableDef{Name: "orphan"})
		assert.True(errors.Is(e, os.ErrNotExist))
	}
}
