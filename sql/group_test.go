package sql

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"testing"
)

func groupOf(src string) []Item {
	tokens, err := Tokenize(src)
	if err != nil {
		panic(err)
	}
	items, err := Group(tokens)
	if err != nil {
		panic(err)
	}
	return Significant(items)
}

func TestGroupIdentifier(t *testing.T) {
	assert := assert.New(t)
	{
		items := groupOf("tcph.customer as c")
		assert.Len(items, 1)
		id, ok := items[0].(*Identifier)
		assert.True(ok)
		assert.Equal("customer", id.RealName())
		assert.Equal("tcph", id.ParentName())
		assert.Equal("c", id.Alias)
		assert.Equal("tcph.customer as c", id.Text())
	}

	{
		items := groupOf("tcph.part.part_number")
		id := items[0].(*Identifier)
		assert.Equal("part_number", id.RealName())
		assert.Equal("part", id.ParentName())
		assert.Equal("tcph.part", id.Qualifier())
	}

	{
		items := groupOf("o_orderdate desc")
		id := items[0].(*Identifier)
		assert.Equal("o_orderdate", id.RealName())
		assert.Equal("", id.Alias)
		assert.Equal("desc", id.Direction)
	}

	{
		items := groupOf("t.*")
		id := items[0].(*Identifier)
		assert.True(id.IsStar())
		assert.Equal("t", id.ParentName())
	}
}

func TestGroupFunction(t *testing.T) {
	assert := assert.New(t)
	{
		items := groupOf("sum(l.l_quantity) total")
		assert.Len(items, 1)
		f, ok := items[0].(*Function)
		assert.True(ok)
		assert.Equal("sum", f.Name)
		assert.Equal("total", f.Alias)
		assert.Equal("sum(l.l_quantity)", f.CallText())
		params := f.Params()
		assert.Len(params, 1)
		assert.Equal("l_quantity", params[0].(*Identifier).RealName())
		assert.Equal("l", params[0].(*Identifier).ParentName())
	}

	{
		f := groupOf("count(*)")[0].(*Function)
		params := f.Params()
		assert.Len(params, 1)
		assert.True(params[0].(*Identifier).IsStar())
	}

	{
		f := groupOf("nvl(a, 0)")[0].(*Function)
		assert.Len(f.Params(), 2)
	}
}

func TestGroupComparisonAndList(t *testing.T) {
	assert := assert.New(t)
	{
		items := groupOf("'1997-12-31' > o.o_orderdate")
		assert.Len(items, 1)
		c, ok := items[0].(*Comparison)
		assert.True(ok)
		assert.Equal(">", c.Op)
		assert.Equal("'1997-12-31'", c.Left.Text())
		assert.Equal("o.o_orderdate", c.Right.Text())
	}

	{
		items := groupOf("a, b.c, sum(d)")
		assert.Len(items, 1)
		l, ok := items[0].(*IdentifierList)
		assert.True(ok)
		assert.Len(l.Members, 3)
		assert.Equal("a, b.c, sum(d)", l.Text())
	}

	{
		items := groupOf("x = (select max(y) from t)")
		c := items[0].(*Comparison)
		assert.True(IsSubselect(c.Right))
		assert.False(IsSubselect(c.Left))
	}

	{
		items := groupOf("(select a from t) sub")
		id := items[0].(*Identifier)
		assert.NotNil(id.Sub)
		assert.Equal("sub", id.Alias)
		assert.True(IsSubselect(id))
	}

	{
		// multiplication is not a wildcard
		items := groupOf("2 * 3")
		assert.Len(items, 3)
		assert.Equal(ItemToken, items[1].Type())
	}
}

func TestGroupUnbalanced(t *testing.T) {
	assert := assert.New(t)
	{
		tokens, _ := Tokenize("select (a from t")
		_, err := Group(tokens)
		assert.True(errors.Is(err, ErrDecomposition))
	}
	{
		tokens, _ := Tokenize("select a) from t")
		_, err := Group(tokens)
		assert.True(errors.Is(err, ErrDecomposition))
	}
}
