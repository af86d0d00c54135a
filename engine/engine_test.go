package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/dianpeng/virtualsql/plan"
	"github.com/dianpeng/virtualsql/table"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtures = map[string]string{
	"customer": `c_custkey,c_name,c_mktsegment,c_acctbal
1,"Customer#1, Ltd",BUILDING,7140.55
2,Customer#2,FURNITURE,121.65
3,Customer#3,BUILDING,7933.53
`,
	"customer_header": `c_custkey INTEGER,c_name VARCHAR(25),c_mktsegment CHAR(10),c_acctbal NUMERIC` + "\n",

	"orders": `o_orderkey,o_custkey,o_orderdate,o_totalprice
1,1,1997-01-02,150.75
2,3,1997-05-06,70.00
3,3,1996-07-01,42.00
4,9,1995-01-01,10.00
`,
	"orders_header": `o_orderkey INTEGER,o_custkey INTEGER,o_orderdate DATE,o_totalprice NUMERIC` + "\n",

	"lineitem": `l_orderkey,l_returnflag,l_linestatus,l_quantity,l_extendedprice,l_shipdate
1,A,F,10,100.50,1998-01-01
1,N,O,5,50.25,1998-11-30
2,R,F,7,70.00,1997-03-15
3,A,F,3,30.00,1996-08-02
3,N,O,12,120.00,1999-01-01
4,R,F,1,10.00,1995-05-20
`,
	"lineitem_header": `l_orderkey INTEGER,l_returnflag CHAR(1),l_linestatus CHAR(1),l_quantity INTEGER,l_extendedprice NUMERIC,l_shipdate DATE` + "\n",
}

func fixtureDir(t *testing.T, files map[string]string) string {
	root := t.TempDir()
	for name, content := range files {
		require.Nil(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	return root
}

func run(t *testing.T, root string, src string) (*Result, error) {
	tree, e := plan.Build(src)
	require.Nil(t, e)
	return New(table.NewDirFetcher(root)).Execute(tree)
}

func mustRun(t *testing.T, root string, src string) *Result {
	r, e := run(t, root, src)
	require.Nil(t, e, src)
	return r
}

func columnOf(r *Result, name string) []string {
	idx := -1
	for i, h := range r.Header {
		if h == name {
			idx = i
		}
	}
	out := []string{}
	for _, row := range r.Rows {
		out = append(out, row[idx])
	}
	return out
}

func TestLineitemScenario(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, map[string]string{
		"lineitem":        "l_returnflag,l_linestatus,l_quantity,l_shipdate\nA,F,10,1998-01-01\n",
		"lineitem_header": "l_returnflag CHAR(1),l_linestatus CHAR(1),l_quantity INTEGER,l_shipdate DATE\n",
	})

	r := mustRun(t, root, `select l_returnflag, l_linestatus, sum(l_quantity), count(*)
		from lineitem
		where l_shipdate <= '1998-12-01'
		group by l_returnflag, l_linestatus
		order by l_returnflag, l_linestatus`)

	assert.Equal([]string{"l_returnflag", "l_linestatus", "sum_l_quantity", "count"}, r.Header)
	assert.Equal([][]string{{"A", "F", "10", "1"}}, r.Rows)
	assert.NotEmpty(r.QueryID)
}

func TestCustomerAggregates(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, fixtures)

	r := mustRun(t, root, `select c_mktsegment, sum(c_acctbal), avg(c_acctbal),
		min(c_acctbal), max(c_acctbal), count(*)
		from customer
		where c_mktsegment = 'BUILDING'
		group by c_mktsegment`)

	assert.Equal([]string{
		"c_mktsegment", "sum_c_acctbal", "avg_c_acctbal", "min_c_acctbal", "max_c_acctbal", "count",
	}, r.Header)
	assert.Equal([][]string{{"BUILDING", "15074.08", "7537.04", "7140.55", "7933.53", "2"}}, r.Rows)
}

// Averages of dates round down to the earlier day, also before 1970.
func TestDateAggregates(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, map[string]string{
		"events": `e_kind,e_day
old,1969-12-30
old,1969-12-31
new,1970-01-02
new,1970-01-03
`,
		"events_header": "e_kind CHAR(3),e_day DATE\n",
	})

	r := mustRun(t, root, `select e_kind, avg(e_day), sum(e_day) from events group by e_kind`)
	assert.Equal([][]string{
		{"old", "1969-12-30", "1969-12-29"},
		{"new", "1970-01-02", "1970-01-04"},
	}, r.Rows)
}

// The group counts add up to the number of rows passing the filters.
func TestGroupCountsAddUp(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, fixtures)

	grouped := mustRun(t, root, `select l_returnflag, count(*) from lineitem
		where l_shipdate <= '1998-12-01' group by l_returnflag`)
	assert.Equal([]string{"A", "N", "R"}, columnOf(grouped, "l_returnflag"))

	total := 0
	for _, c := range columnOf(grouped, "count") {
		n, e := strconv.Atoi(c)
		assert.Nil(e)
		total += n
	}

	// aggregates without GROUP BY form one implicit group
	all := mustRun(t, root, `select count(*) from lineitem where l_shipdate <= '1998-12-01'`)
	assert.Equal([][]string{{"5"}}, all.Rows)
	assert.Equal(5, total)
}

func TestImplicitGroupWithoutRows(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, fixtures)

	r := mustRun(t, root, `select count(*), sum(c_acctbal), count(c_mktsegment)
		from customer where c_mktsegment = 'NONE'`)
	assert.Equal([][]string{{"0", "", "0"}}, r.Rows)

	r = mustRun(t, root, `select count(c_mktsegment), count(*) from customer`)
	assert.Equal([][]string{{"2", "3"}}, r.Rows)
}

func TestOrdering(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, fixtures)

	{
		r := mustRun(t, root, `select l_orderkey, l_quantity from lineitem order by l_quantity`)
		prev := -1.0
		for _, q := range columnOf(r, "l_quantity") {
			v, e := strconv.ParseFloat(q, 64)
			assert.Nil(e)
			assert.True(v >= prev, q)
			prev = v
		}
		assert.Equal([]string{"1", "3", "5", "7", "10", "12"}, columnOf(r, "l_quantity"))
	}

	{
		r := mustRun(t, root, `select l_shipdate from lineitem order by l_shipdate`)
		dates := columnOf(r, "l_shipdate")
		for idx := 1; idx < len(dates); idx++ {
			a, _ := table.ParseDate(dates[idx-1])
			b, _ := table.ParseDate(dates[idx])
			assert.False(b.Before(a))
		}
	}

	{
		// multi key, the first key is never out of order
		r := mustRun(t, root, `select l_returnflag, l_quantity from lineitem
			order by l_returnflag, l_quantity desc`)
		assert.Equal([]string{"A", "A", "N", "N", "R", "R"}, columnOf(r, "l_returnflag"))
		assert.Equal([]string{"10", "3", "12", "5", "7", "1"}, columnOf(r, "l_quantity"))
	}

	{
		r := mustRun(t, root, `select c_mktsegment, sum(c_acctbal) from customer
			group by c_mktsegment order by sum(c_acctbal) desc`)
		assert.Equal([][]string{{"BUILDING", "15074.08"}, {"FURNITURE", "121.65"}}, r.Rows)
	}

	{
		// not projected, still one value per row
		r := mustRun(t, root, `select c_name from customer order by c_acctbal desc`)
		assert.Equal([]string{"Customer#3", "Customer#1, Ltd", "Customer#2"}, columnOf(r, "c_name"))
	}

	{
		// an aggregate is ordered on by its alias
		r := mustRun(t, root, `select o_custkey, sum(o_totalprice) as total from orders
			group by o_custkey order by total`)
		assert.Equal([]string{"o_custkey", "total"}, r.Header)
		assert.Equal([][]string{{"9", "10"}, {"3", "112"}, {"1", "150.75"}}, r.Rows)

		r = mustRun(t, root, `select o_custkey, count(*) as n from orders
			group by o_custkey order by n desc, o_custkey`)
		assert.Equal([]string{"3", "1", "9"}, columnOf(r, "o_custkey"))
	}
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, fixtures)

	{
		r := mustRun(t, root, `select c.c_name, o.o_orderkey from customer c, orders o
			where c.c_custkey = o.o_custkey order by o.o_orderkey`)
		assert.Equal([]string{"c_name", "o_orderkey"}, r.Header)
		assert.Equal([][]string{
			{"Customer#1, Ltd", "1"},
			{"Customer#3", "2"},
			{"Customer#3", "3"},
		}, r.Rows)
	}

	{
		r := mustRun(t, root, `select c_name, l_quantity from customer, orders, lineitem
			where c_custkey = o_custkey
			and l_orderkey = o_orderkey
			and c_mktsegment = 'BUILDING'
			order by l_quantity`)
		assert.Equal([][]string{
			{"Customer#3", "3"},
			{"Customer#1, Ltd", "5"},
			{"Customer#3", "7"},
			{"Customer#1, Ltd", "10"},
			{"Customer#3", "12"},
		}, r.Rows)
	}

	{
		r := mustRun(t, root, `select c_name, sum(o_totalprice), count(*) from customer c, orders o
			where o.o_custkey = c.c_custkey group by c_name order by c_name`)
		assert.Equal([][]string{
			{"Customer#1, Ltd", "150.75", "1"},
			{"Customer#3", "112", "2"},
		}, r.Rows)
	}

	{
		// no join predicate, cross product
		r := mustRun(t, root, `select count(*) from customer, orders`)
		assert.Equal([][]string{{"12"}}, r.Rows)
	}
}

func TestProjection(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, fixtures)

	{
		r := mustRun(t, root, `select * from customer where c_custkey = 2`)
		assert.Equal([]string{"c_custkey", "c_name", "c_mktsegment", "c_acctbal"}, r.Header)
		assert.Equal([][]string{{"2", "Customer#2", "FURNITURE", "121.65"}}, r.Rows)
	}

	{
		r := mustRun(t, root, `select c.c_name as name, c_custkey from customer c where 2 < c.c_custkey`)
		assert.Equal([]string{"name", "c_custkey"}, r.Header)
		assert.Equal([][]string{{"Customer#3", "3"}}, r.Rows)
	}

	{
		r := mustRun(t, root, `select distinct c_mktsegment from customer order by c_mktsegment`)
		assert.Equal([][]string{{"BUILDING"}, {"FURNITURE"}}, r.Rows)
	}

	{
		r := mustRun(t, root, `select sum(l_shipdate) from lineitem where l_orderkey = 4`)
		assert.Equal([][]string{{"1995-05-20"}}, r.Rows)
	}

	{
		r := mustRun(t, root, `select c_name from customer where c_acctbal > 100000`)
		assert.Equal([]string{"c_name"}, r.Header)
		assert.Len(r.Rows, 0)
	}
}

func TestExecutionErrors(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, fixtures)

	cases := []struct {
		src string
		err error
	}{
		{`select nope from customer`, ErrUnresolvedColumn},
		{`select x.c_name from customer c`, ErrUnresolvedColumn},
		{`select c_name from customer a, customer b`, ErrUnresolvedColumn},
		{`select c_name from customer group by nope`, ErrUnresolvedColumn},
		{`select c_name from customer order by nope`, ErrUnresolvedColumn},
		{`select c_mktsegment from customer group by c_mktsegment order by c_name`, ErrUnresolvedColumn},
		{`select sum(c_name) from customer`, table.ErrTypeCoercion},
		{`select avg(c_mktsegment) from customer group by c_mktsegment`, table.ErrTypeCoercion},
		{`select c_name from customer where c_acctbal > 'lots'`, table.ErrTypeCoercion},
		{`select c_name from customer where c_acctbal > 1 or c_custkey = 1`, ErrUnsupported},
		{`select c_name from customer where c_acctbal > (select max(o_totalprice) from orders)`, ErrUnsupported},
		{`select c_name, count(*) from customer group by c_mktsegment`, ErrUnsupported},
		{`select nvl(c_name, 'x') from customer`, ErrUnsupported},
		{`select a from missing`, os.ErrNotExist},
	}

	for _, c := range cases {
		r, e := run(t, root, c.src)
		assert.Nil(r, c.src)
		assert.True(errors.Is(e, c.err), "%s: %v", c.src, e)
	}
}

func TestLogging(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, fixtures)

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	tree, e := plan.Build(`select c_mktsegment, count(*) from customer
		group by c_mktsegment having count(*) > 1`)
	require.Nil(t, e)

	r, e := New(table.NewDirFetcher(root), WithLogger(log)).Execute(tree)
	require.Nil(t, e)

	warned := false
	for _, entry := range hook.AllEntries() {
		assert.Equal(r.QueryID, entry.Data["query_id"])
		if entry.Level == logrus.WarnLevel && entry.Message == "having clause is ignored" {
			warned = true
		}
	}
	assert.True(warned)

	stages := map[interface{}]bool{}
	for _, entry := range hook.AllEntries() {
		stages[entry.Data["stage"]] = true
	}
	assert.True(stages["load"])
	assert.True(stages["group"])
	assert.True(stages["emit"])
}

func TestLikeFilter(t *testing.T) {
	assert := assert.New(t)
	root := fixtureDir(t, fixtures)

	r := mustRun(t, root, `select c_name from customer
		where c_name like 'Customer#_%' and c_mktsegment not like 'FURN%'
		order by c_name`)
	assert.Equal([][]string{{"Customer#1, Ltd"}, {"Customer#3"}}, r.Rows)
}
