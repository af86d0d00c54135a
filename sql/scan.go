package sql

import (
	"strings"
)

// Clause scanning. Every clause is exposed as a Cursor over the top level
// item list of a statement. The cursor checks its boundary predicate before
// yielding an item, so a scan simply ends at the first item that does not
// belong to the clause. Parenthesized sub-selects are not boundaries, the
// scans that need to look into them recurse through the expand hook.

type Cursor struct {
	items      []Item
	begin      int
	pos        int
	done       bool
	isBoundary func(Item) bool
	skip       func(Item) bool
	expand     func(Item) *Cursor // nested cursor replacing an item, if any
	nested     *Cursor
	then       *Cursor // cursor continuing once this one is exhausted
}

func newCursor(items []Item, begin int) *Cursor {
	return &Cursor{
		items: items,
		begin: begin,
		pos:   begin,
	}
}

// an empty cursor, used when the clause is absent
func emptyCursor() *Cursor {
	return &Cursor{done: true, begin: -1}
}

// Next returns the next item of the clause, false once the clause is over
func (self *Cursor) Next() (Item, bool) {
	for {
		if self.nested != nil {
			if x, ok := self.nested.Next(); ok {
				return x, true
			}
			self.nested = nil
		}

		if self.done || self.pos >= len(self.items) {
			self.done = true
			if self.then != nil {
				return self.then.Next()
			}
			return nil, false
		}

		x := self.items[self.pos]
		if self.isBoundary != nil && self.isBoundary(x) {
			self.done = true
			continue
		}
		self.pos++

		if self.expand != nil {
			if n := self.expand(x); n != nil {
				self.nested = n
				continue
			}
		}
		if self.skip != nil && self.skip(x) {
			continue
		}
		return x, true
	}
}

// Reset rewinds the cursor, and everything chained to it, to its beginning
func (self *Cursor) Reset() {
	if self.begin >= 0 {
		self.pos = self.begin
		self.done = false
	}
	self.nested = nil
	if self.then != nil {
		self.then.Reset()
	}
}

// Collect drains the cursor
func (self *Cursor) Collect() []Item {
	out := []Item{}
	for {
		x, ok := self.Next()
		if !ok {
			return out
		}
		out = append(out, x)
	}
}

// Statement is the grouped item list of the first statement of a source
type Statement struct {
	Source string
	Items  []Item
}

// Parse tokenizes and groups the source. Only the first statement is kept,
// anything after the first top level ';' is dropped.
func Parse(source string) (*Statement, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	items, err := Group(tokens)
	if err != nil {
		return nil, err
	}
	for idx, x := range items {
		if isPunctItem(x, ";") {
			items = items[:idx+1]
			break
		}
	}
	return &Statement{
		Source: source,
		Items:  items,
	}, nil
}

var clauseKeywords = map[string]bool{
	"from":   true,
	"where":  true,
	"group":  true,
	"order":  true,
	"having": true,
	"limit":  true,
	"offset": true,
	"union":  true,
	"join":   true,
	"inner":  true,
	"left":   true,
	"right":  true,
	"on":     true,
}

// IsClauseKeyword checks whether the item starts a new clause
func IsClauseKeyword(x Item) bool {
	t, ok := asToken(x)
	if !ok {
		return false
	}
	if t.IsPunct(";") {
		return true
	}
	return t.Kind == TkKeyword && clauseKeywords[strings.ToLower(t.Text)]
}

func isAnyKeyword(x Item) bool {
	t, ok := asToken(x)
	return ok && (t.Kind == TkKeyword || t.IsPunct(";"))
}

func boundaryOf(words ...string) func(Item) bool {
	return func(x Item) bool {
		t, ok := asToken(x)
		if !ok {
			return false
		}
		if t.IsPunct(";") {
			return true
		}
		for _, w := range words {
			if t.IsKeyword(w) {
				return true
			}
		}
		return false
	}
}

func skipNoise(x Item) bool { return IsNoise(x) }

// find the top level keyword w, returns the index or -1
func findKeyword(items []Item, w string, from int) int {
	for idx := from; idx < len(items); idx++ {
		if isKeywordItem(items[idx], w) {
			return idx
		}
	}
	return -1
}

// find the keyword pair, ie GROUP BY, returns index right after the pair
func findKeywordPair(items []Item, first, second string) int {
	for idx := 0; idx < len(items); idx++ {
		if !isKeywordItem(items[idx], first) {
			continue
		}
		next := nextSignificant(items, idx+1)
		if next < len(items) && isKeywordItem(items[next], second) {
			return next + 1
		}
	}
	return -1
}

func (self *Statement) selectStart() int {
	idx := findKeyword(self.Items, "select", 0)
	if idx < 0 {
		return -1
	}
	idx = nextSignificant(self.Items, idx+1)
	if idx < len(self.Items) &&
		(isKeywordItem(self.Items[idx], "distinct") || isKeywordItem(self.Items[idx], "all")) {
		idx++
	}
	return idx
}

// IsDistinct checks whether the select list is prefixed by DISTINCT
func (self *Statement) IsDistinct() bool {
	idx := findKeyword(self.Items, "select", 0)
	if idx < 0 {
		return false
	}
	idx = nextSignificant(self.Items, idx+1)
	return idx < len(self.Items) && isKeywordItem(self.Items[idx], "distinct")
}

// ScanSelect yields the items of the select list, that is everything after
// SELECT up to the first keyword. Once that keyword is seen, the select lists
// of sub-selects found before the following keyword are yielded as well.
func (self *Statement) ScanSelect() *Cursor {
	start := self.selectStart()
	if start < 0 {
		return emptyCursor()
	}

	list := newCursor(self.Items, start)
	list.isBoundary = isAnyKeyword
	list.skip = skipNoise

	// position of the keyword ending the select list
	kw := start
	for kw < len(self.Items) && !isAnyKeyword(self.Items[kw]) {
		kw++
	}
	if kw+1 >= len(self.Items) {
		return list
	}

	nested := newCursor(self.Items, kw+1)
	nested.isBoundary = isAnyKeyword
	nested.skip = func(Item) bool { return true }
	nested.expand = expandSubselect(func(s *Statement) *Cursor { return s.ScanSelect() })
	list.then = nested
	return list
}

// expandSubselect builds the expand hook recursing into sub-selects, also the
// ones sitting inside of a comma separated list. Only the sub-selects yield,
// the other list members are table names and are skipped.
func expandSubselect(scan func(*Statement) *Cursor) func(Item) *Cursor {
	var expand func(Item) *Cursor

	expand = func(x Item) *Cursor {
		if p := Subselect(x); p != nil {
			return scan(&Statement{Items: p.Inner})
		}
		if l, ok := x.(*IdentifierList); ok {
			c := newCursor(l.Members, 0)
			c.skip = func(Item) bool { return true }
			c.expand = expand
			return c
		}
		return nil
	}
	return expand
}

// ScanFrom yields the table items after FROM, recursing into sub-selects so
// the tables they read are yielded in place of the sub-select itself
func (self *Statement) ScanFrom() *Cursor {
	idx := findKeyword(self.Items, "from", 0)
	if idx < 0 {
		return emptyCursor()
	}
	c := newCursor(self.Items, idx+1)
	c.isBoundary = isAnyKeyword
	c.skip = func(x Item) bool { return IsNoise(x) || isPunctItem(x, ",") }
	c.expand = func(x Item) *Cursor {
		if p := Subselect(x); p != nil {
			return (&Statement{Items: p.Inner}).ScanFrom()
		}
		return nil
	}
	return c
}

func (self *Statement) whereRegion() *Cursor {
	idx := findKeyword(self.Items, "where", 0)
	if idx < 0 {
		return emptyCursor()
	}
	c := newCursor(self.Items, idx+1)
	c.isBoundary = boundaryOf("group", "order", "having", "limit", "offset", "union")
	return c
}

// ScanWhere yields the meaningful items of the WHERE clause, ie comparisons
// and operands. Keywords, punctuation and white space are dropped.
func (self *Statement) ScanWhere() *Cursor {
	c := self.whereRegion()
	c.skip = func(x Item) bool {
		if t, ok := asToken(x); ok {
			return t.IsNoise() || t.Kind == TkKeyword || t.Kind == TkPunct
		}
		return false
	}
	return c
}

// Conjunct is one top level AND operand of the WHERE clause
type Conjunct struct {
	Items []Item // significant items only
	Text  string // source text, trimmed
}

// Single returns the comparison when the conjunct is exactly one comparison
func (self *Conjunct) Single() *Comparison {
	if len(self.Items) != 1 {
		return nil
	}
	c, _ := self.Items[0].(*Comparison)
	return c
}

// Conjuncts splits the WHERE clause on top level AND. The AND that belongs to
// a BETWEEN is not a split point.
func (self *Statement) Conjuncts() []Conjunct {
	out := []Conjunct{}
	raw := []Item{}
	between := false

	flush := func() {
		sig := Significant(raw)
		if len(sig) > 0 {
			out = append(out, Conjunct{
				Items: sig,
				Text:  strings.TrimSpace(joinText(raw)),
			})
		}
		raw = []Item{}
	}

	c := self.whereRegion()
	for {
		x, ok := c.Next()
		if !ok {
			break
		}
		if isKeywordItem(x, "between") {
			between = true
		} else if isKeywordItem(x, "and") {
			if between {
				between = false
			} else {
				flush()
				continue
			}
		}
		raw = append(raw, x)
	}
	flush()
	return out
}

// ScanGroupBy yields the items after GROUP BY, up to the next clause
func (self *Statement) ScanGroupBy() *Cursor {
	idx := findKeywordPair(self.Items, "group", "by")
	if idx < 0 {
		return emptyCursor()
	}
	c := newCursor(self.Items, idx)
	c.isBoundary = boundaryOf("order", "having", "limit", "offset", "union")
	c.skip = skipNoise
	return c
}

// ScanOrderBy yields the items after ORDER BY, stopping at HAVING
func (self *Statement) ScanOrderBy() *Cursor {
	idx := findKeywordPair(self.Items, "order", "by")
	if idx < 0 {
		return emptyCursor()
	}
	c := newCursor(self.Items, idx)
	c.isBoundary = boundaryOf("having", "limit", "offset", "union")
	c.skip = skipNoise
	return c
}

// ScanHaving yields the items after HAVING
func (self *Statement) ScanHaving() *Cursor {
	idx := findKeyword(self.Items, "having", 0)
	if idx < 0 {
		return emptyCursor()
	}
	c := newCursor(self.Items, idx+1)
	c.isBoundary = boundaryOf("order", "limit", "offset", "union")
	c.skip = skipNoise
	return c
}
