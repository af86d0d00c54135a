package cg

import (
	"strings"
)

// sqlWriter collects a statement clause by clause. Every item handed to a
// clause goes through the token substitution, if any, before it is joined.
type sqlWriter struct {
	buf   *strings.Builder
	token func(string) string // nil means no substitution
}

func newSqlWriter(token func(string) string) *sqlWriter {
	return &sqlWriter{
		buf:   &strings.Builder{},
		token: token,
	}
}

func (self *sqlWriter) sub(x string) string {
	if self.token == nil {
		return x
	}
	return self.token(x)
}

// Clause writes "keyword item0<sep>item1..." and nothing at all when there
// are no items
func (self *sqlWriter) Clause(
	keyword string,
	items []string,
	sep string,
) {
	if len(items) == 0 {
		return
	}
	if self.buf.Len() > 0 {
		self.buf.WriteByte(' ')
	}
	self.buf.WriteString(keyword)
	self.buf.WriteByte(' ')
	for idx, v := range items {
		if idx > 0 {
			self.buf.WriteString(sep)
		}
		self.buf.WriteString(self.sub(v))
	}
}

// Flush terminates the statement
func (self *sqlWriter) Flush() string {
	self.buf.WriteByte(';')
	return self.buf.String()
}
