package sql

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrDecomposition is returned when the source text cannot be turned into a
// token stream or grouped into items, ie unterminated literal/comment or an
// unbalanced parenthesis. Nothing downstream runs once this shows up.
var ErrDecomposition = errors.New("decomposition error")

const (
	TkKeyword = iota
	TkIdent
	TkLiteral
	TkPunct
	TkOperator // comparison operator, a refinement of punctuation
	TkWhitespace
	TkNewline

	TkError
	TkEof
)

func KindName(k int) string {
	switch k {
	case TkKeyword:
		return "keyword"
	case TkIdent:
		return "identifier"
	case TkLiteral:
		return "literal"
	case TkPunct:
		return "punctuation"
	case TkOperator:
		return "operator"
	case TkWhitespace:
		return "whitespace"
	case TkNewline:
		return "newline"
	case TkEof:
		return "eof"
	default:
		return "error"
	}
}

// Token is one lexeme of the source, text is kept verbatim so that the source
// can be rebuilt by concatenation.
type Token struct {
	Kind int
	Text string
}

func (self Token) Is(kind int) bool { return self.Kind == kind }

// IsKeyword checks, case insensitive, whether the token is the keyword w
func (self Token) IsKeyword(w string) bool {
	return self.Kind == TkKeyword && strings.EqualFold(self.Text, w)
}

func (self Token) IsPunct(p string) bool {
	return self.Kind == TkPunct && self.Text == p
}

func (self Token) IsStringLiteral() bool {
	return self.Kind == TkLiteral && strings.HasPrefix(self.Text, "'")
}

func (self Token) IsNoise() bool {
	return self.Kind == TkWhitespace || self.Kind == TkNewline
}

var keywords = map[string]bool{
	"select":   true,
	"from":     true,
	"where":    true,
	"group":    true,
	"by":       true,
	"order":    true,
	"having":   true,
	"limit":    true,
	"offset":   true,
	"and":      true,
	"or":       true,
	"not":      true,
	"as":       true,
	"in":       true,
	"between":  true,
	"like":     true,
	"is":       true,
	"null":     true,
	"distinct": true,
	"all":      true,
	"asc":      true,
	"desc":     true,
	"join":     true,
	"inner":    true,
	"left":     true,
	"right":    true,
	"outer":    true,
	"on":       true,
	"union":    true,
	"exists":   true,
	"case":     true,
	"when":     true,
	"then":     true,
	"else":     true,
	"end":      true,
}

func IsKeywordText(w string) bool {
	_, ok := keywords[strings.ToLower(w)]
	return ok
}

type Lexer struct {
	Source string
	Cursor int
	Token  int
	Lexeme string

	prev      int // kind of previous significant token, used for signed number
	lastPunct string
}

func newLexer(source string) *Lexer {
	return &Lexer{
		Source: source,
		Cursor: 0,
		Token:  TkError,
		prev:   TkEof,
	}
}

func (self *Lexer) nextRune() (rune, int) {
	if self.Cursor >= len(self.Source) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(self.Source[self.Cursor:])
}

func (self *Lexer) peekRune(off int) rune {
	if self.Cursor+off >= len(self.Source) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+off:])
	return r
}

func (self *Lexer) yield(tk int, sz int) int {
	self.Lexeme = self.Source[self.Cursor : self.Cursor+sz]
	self.Token = tk
	self.Cursor += sz
	if tk != TkWhitespace && tk != TkNewline {
		self.prev = tk
	}
	return tk
}

// generate a debug position for diagnostic information output
func (self *Lexer) pos(where int, source string) (int, int) {
	line := 1
	col := 1

	for idx, r := range source {
		if idx >= where {
			break
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return line, col
}

func (self *Lexer) dinfo() string {
	line, col := self.pos(self.Cursor, self.Source)
	return fmt.Sprintf("around position(%d: %d)", line, col)
}

func (self *Lexer) err(msg string) int {
	self.Lexeme = fmt.Sprintf("%s: %s", self.dinfo(), msg)
	self.Token = TkError
	return TkError
}

func (self *Lexer) errUtf8() int {
	return self.err("invalid utf8 character")
}

func (self *Lexer) skipLineComment() {
	for self.Cursor < len(self.Source) && self.Source[self.Cursor] != '\n' {
		self.Cursor++
	}
}

func (self *Lexer) skipBlockComment() bool {
	end := strings.Index(self.Source[self.Cursor+2:], "*/")
	if end < 0 {
		self.err("block comment is not closed properly")
		return false
	}
	self.Cursor += end + 4
	return true
}

func (self *Lexer) isIdChar(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func (self *Lexer) isIdLeadingChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// a '-' right after an operator, keyword, '(' or ',' starts a signed number
func (self *Lexer) signAllowed() bool {
	switch self.prev {
	case TkOperator, TkKeyword, TkEof:
		return true
	case TkPunct:
		return self.lastPunct == "(" || self.lastPunct == ","
	default:
		return false
	}
}

func (self *Lexer) lexNum() int {
	start := self.Cursor
	c := start
	if self.Source[c] == '-' {
		c++
	}
	hasDot := false
	hasE := false

loop:
	for c < len(self.Source) {
		r := rune(self.Source[c])
		switch {
		case isDigit(r):
		case r == '.':
			if hasDot || hasE {
				break loop
			}
			hasDot = true
		case r == 'e' || r == 'E':
			if hasE {
				break loop
			}
			hasE = true
			if c+1 < len(self.Source) && (self.Source[c+1] == '+' || self.Source[c+1] == '-') {
				c++
			}
		default:
			break loop
		}
		c++
	}

	return self.yield(TkLiteral, c-start)
}

func (self *Lexer) lexStr() int {
	c := self.Cursor + 1
	for {
		if c >= len(self.Source) {
			return self.err("string literal is not closed by quote properly")
		}
		if self.Source[c] == '\'' {
			// '' is an escaped quote inside of the literal
			if c+1 < len(self.Source) && self.Source[c+1] == '\'' {
				c += 2
				continue
			}
			break
		}
		c++
	}
	return self.yield(TkLiteral, c+1-self.Cursor)
}

func (self *Lexer) lexQuotedId() int {
	end := strings.IndexByte(self.Source[self.Cursor+1:], '"')
	if end < 0 {
		return self.err("quoted identifier is not closed by quote properly")
	}
	return self.yield(TkIdent, end+2)
}

func (self *Lexer) lexKeywordOrId(c rune) int {
	if !self.isIdLeadingChar(c) {
		return self.err(fmt.Sprintf("unexpected character %q", c))
	}

	end := self.Cursor
	for end < len(self.Source) {
		r, sz := utf8.DecodeRuneInString(self.Source[end:])
		if r == utf8.RuneError || !self.isIdChar(r) {
			break
		}
		end += sz
	}

	if IsKeywordText(self.Source[self.Cursor:end]) {
		return self.yield(TkKeyword, end-self.Cursor)
	}
	return self.yield(TkIdent, end-self.Cursor)
}

func (self *Lexer) Next() int {
	if self.Token == TkEof {
		return TkEof
	}
	tk := self.next()
	if tk == TkPunct {
		self.lastPunct = self.Lexeme
	}
	return tk
}

func (self *Lexer) next() int {
	for {
		c, sz := self.nextRune()
		if c == utf8.RuneError {
			if sz == 0 {
				self.Token = TkEof
				self.Lexeme = ""
				return TkEof
			}
			return self.errUtf8()
		}

		switch c {
		case ' ', '\t', '\r', '\v', '\f':
			end := self.Cursor
			for end < len(self.Source) && strings.IndexByte(" \t\r\v\f", self.Source[end]) >= 0 {
				end++
			}
			return self.yield(TkWhitespace, end-self.Cursor)

		case '\n':
			return self.yield(TkNewline, 1)

		case ',', ';', '(', ')', '*', '+', '/', '%', '.':
			if c == '/' && self.peekRune(1) == '*' {
				if !self.skipBlockComment() {
					return self.Token
				}
				break
			}
			if c == '.' && isDigit(self.peekRune(1)) && self.prev != TkIdent {
				return self.lexNum()
			}
			return self.yield(TkPunct, 1)

		case '-':
			if self.peekRune(1) == '-' {
				self.skipLineComment()
				break
			}
			if isDigit(self.peekRune(1)) && self.signAllowed() {
				return self.lexNum()
			}
			return self.yield(TkPunct, 1)

		case '#':
			self.skipLineComment()
			break

		case ':':
			if self.peekRune(1) == ':' {
				return self.yield(TkPunct, 2)
			}
			return self.yield(TkPunct, 1)

		case '|':
			if self.peekRune(1) == '|' {
				return self.yield(TkPunct, 2)
			}
			return self.yield(TkPunct, 1)

		case '=':
			if self.peekRune(1) == '=' {
				return self.yield(TkOperator, 2)
			}
			return self.yield(TkOperator, 1)

		case '!':
			if self.peekRune(1) == '=' {
				return self.yield(TkOperator, 2)
			}
			return self.err("are you missing '=' for != operator?")

		case '<':
			if self.peekRune(1) == '=' || self.peekRune(1) == '>' {
				return self.yield(TkOperator, 2)
			}
			return self.yield(TkOperator, 1)

		case '>':
			if self.peekRune(1) == '=' {
				return self.yield(TkOperator, 2)
			}
			return self.yield(TkOperator, 1)

		case '\'':
			return self.lexStr()

		case '"':
			return self.lexQuotedId()

		default:
			if isDigit(c) {
				return self.lexNum()
			}
			return self.lexKeywordOrId(c)
		}
	}
}

// Tokenize turns the whole source into a token stream. Whitespace and new
// lines are kept as tokens, comments are dropped.
func Tokenize(source string) ([]Token, error) {
	l := newLexer(source)
	out := []Token{}

	for {
		switch tk := l.Next(); tk {
		case TkEof:
			return out, nil
		case TkError:
			return nil, fmt.Errorf("%w: %s", ErrDecomposition, l.Lexeme)
		default:
			out = append(out, Token{Kind: tk, Text: l.Lexeme})
		}
	}
}
