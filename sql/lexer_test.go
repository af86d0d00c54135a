package sql

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"strings"
	"testing"
)

func significantKinds(tokens []Token) []int {
	out := []int{}
	for _, tk := range tokens {
		if !tk.IsNoise() {
			out = append(out, tk.Kind)
		}
	}
	return out
}

func TestComment(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer(`-- last line
#  last line`)
		assert.True(l.Next() == TkNewline)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`/* abcd */id`)
		assert.True(l.Next() == TkIdent)
		assert.Equal("id", l.Lexeme)
		assert.True(l.Next() == TkEof)
	}

	{
		_, err := Tokenize("select /* abc")
		assert.True(errors.Is(err, ErrDecomposition))
		assert.True(strings.Contains(err.Error(), "around position(1: 8)"))
	}
}

func TestLexerKinds(t *testing.T) {
	assert := assert.New(t)
	{
		tokens, err := Tokenize("SELECT a, b.c FROM t WHERE x >= -1.5")
		assert.Nil(err)
		assert.Equal([]int{
			TkKeyword, TkIdent, TkPunct, TkIdent, TkPunct, TkIdent,
			TkKeyword, TkIdent, TkKeyword, TkIdent, TkOperator, TkLiteral,
		}, significantKinds(tokens))
		assert.Equal("-1.5", tokens[len(tokens)-1].Text)
	}

	{
		// minus after an identifier is an arithmetic operator
		tokens, err := Tokenize("a-1")
		assert.Nil(err)
		assert.Equal([]int{TkIdent, TkPunct, TkLiteral}, significantKinds(tokens))
	}

	{
		tokens, err := Tokenize("= == != <> < <= > >=")
		assert.Nil(err)
		ops := []string{}
		for _, tk := range tokens {
			if tk.Is(TkOperator) {
				ops = append(ops, tk.Text)
			}
		}
		assert.Equal([]string{"=", "==", "!=", "<>", "<", "<=", ">", ">="}, ops)
	}

	{
		tokens, err := Tokenize("'it''s' \"Quoted Id\" x::int a||b")
		assert.Nil(err)
		assert.Equal("'it''s'", tokens[0].Text)
		assert.True(tokens[0].IsStringLiteral())
		assert.Equal(TkIdent, tokens[2].Kind)
		assert.Equal("\"Quoted Id\"", tokens[2].Text)
		assert.True(tokens[5].IsPunct("::"))
		assert.True(tokens[9].IsPunct("||"))
	}

	{
		_, err := Tokenize("select 'abc")
		assert.True(errors.Is(err, ErrDecomposition))
	}

	{
		_, err := Tokenize("a ! b")
		assert.True(errors.Is(err, ErrDecomposition))
	}
}

func TestLexerPreservesText(t *testing.T) {
	assert := assert.New(t)
	src := "select  a,\n\tb\nfrom t"
	tokens, err := Tokenize(src)
	assert.Nil(err)

	b := strings.Builder{}
	newlines := 0
	for _, tk := range tokens {
		b.WriteString(tk.Text)
		if tk.Is(TkNewline) {
			newlines++
		}
	}
	assert.Equal(src, b.String())
	assert.Equal(2, newlines)
}

func TestKeywordCase(t *testing.T) {
	assert := assert.New(t)
	tokens, err := Tokenize("SeLeCt Group bY")
	assert.Nil(err)
	assert.True(tokens[0].IsKeyword("select"))
	assert.True(tokens[2].IsKeyword("GROUP"))
	assert.True(tokens[4].IsKeyword("by"))
	assert.True(IsKeywordText("HAVING"))
	assert.False(IsKeywordText("lineitem"))
}
