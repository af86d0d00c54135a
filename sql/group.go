package sql

import (
	"fmt"
	"strings"
)

// Grouping pass. The flat token stream is folded into a small set of items
// which the clause scanner and the extractors work on. The grammar is loose
// on purpose, nothing here validates SQL, we only recognize shapes:
//
//   parenthesis := '(' item* ')'
//   function    := ID parenthesis
//   identifier  := (ID | '*') ('.' (ID | '*'))* alias? direction?
//                | parenthesis alias
//   alias       := AS ID | ID
//   direction   := ASC | DESC
//   comparison  := operand OP operand
//   operand     := identifier | function | literal | parenthesis | NULL
//   list        := member (',' member)+
//
// Whitespace and new line tokens stay inside of the item list so the text of
// every item is exactly the source text it covers.

const (
	ItemToken = iota
	ItemParenthesis
	ItemFunction
	ItemIdentifier
	ItemIdentifierList
	ItemComparison
)

type Item interface {
	Type() int
	Text() string
}

// TokenItem is a leaf, ie a single token that is not part of any group
type TokenItem struct {
	Token
}

type Parenthesis struct {
	Inner []Item
	text  string
}

type Function struct {
	Name      string
	Args      *Parenthesis
	Alias     string
	Direction string
	text      string
}

type Identifier struct {
	Parts     []string     // dotted name, quote stripped
	Sub       *Parenthesis // aliased sub-select, Parts is empty
	Alias     string
	Direction string // asc/desc, only meaningful in order by
	text      string
}

type IdentifierList struct {
	Members []Item
	text    string
}

type Comparison struct {
	Left  Item
	Op    string
	Right Item
	text  string
}

func (self *TokenItem) Type() int      { return ItemToken }
func (self *TokenItem) Text() string   { return self.Token.Text }
func (self *Parenthesis) Type() int    { return ItemParenthesis }
func (self *Parenthesis) Text() string { return self.text }
func (self *Function) Type() int       { return ItemFunction }
func (self *Function) Text() string    { return self.text }
func (self *Identifier) Type() int     { return ItemIdentifier }
func (self *Identifier) Text() string  { return self.text }
func (self *IdentifierList) Type() int { return ItemIdentifierList }
func (self *IdentifierList) Text() string {
	return self.text
}
func (self *Comparison) Type() int    { return ItemComparison }
func (self *Comparison) Text() string { return self.text }

// RealName is the last component of a dotted name, ie the column or table name
func (self *Identifier) RealName() string {
	if len(self.Parts) == 0 {
		return ""
	}
	return self.Parts[len(self.Parts)-1]
}

// ParentName is the component right before the real name, ie the table or
// alias owning a column, or the schema owning a table
func (self *Identifier) ParentName() string {
	if len(self.Parts) < 2 {
		return ""
	}
	return self.Parts[len(self.Parts)-2]
}

// Qualifier is everything in front of the real name
func (self *Identifier) Qualifier() string {
	if len(self.Parts) < 2 {
		return ""
	}
	return strings.Join(self.Parts[:len(self.Parts)-1], ".")
}

// Name is the dotted name without alias and direction
func (self *Identifier) Name() string {
	return strings.Join(self.Parts, ".")
}

func (self *Identifier) IsStar() bool { return self.RealName() == "*" }

// Params returns the significant items of the argument list
func (self *Function) Params() []Item {
	out := []Item{}
	for _, x := range Significant(self.Args.Inner) {
		if l, ok := x.(*IdentifierList); ok {
			out = append(out, l.Members...)
		} else {
			out = append(out, x)
		}
	}
	return out
}

// CallText is the function call without its alias
func (self *Function) CallText() string {
	return self.Name + self.Args.Text()
}

// IsSubselect checks whether the item is a parenthesized select, ie its first
// significant child is the SELECT keyword
func IsSubselect(x Item) bool {
	return Subselect(x) != nil
}

// Subselect returns the parenthesis holding a sub-select, also looking through
// an aliased sub-select
func Subselect(x Item) *Parenthesis {
	var p *Parenthesis
	switch v := x.(type) {
	case *Parenthesis:
		p = v
	case *Identifier:
		p = v.Sub
	}
	if p == nil {
		return nil
	}
	sig := Significant(p.Inner)
	if len(sig) == 0 {
		return nil
	}
	if t, ok := sig[0].(*TokenItem); ok && t.IsKeyword("select") {
		return p
	}
	return nil
}

// Significant drops whitespace and new line tokens
func Significant(items []Item) []Item {
	out := []Item{}
	for _, x := range items {
		if !IsNoise(x) {
			out = append(out, x)
		}
	}
	return out
}

func IsNoise(x Item) bool {
	t, ok := x.(*TokenItem)
	return ok && t.IsNoise()
}

func asToken(x Item) (Token, bool) {
	if t, ok := x.(*TokenItem); ok {
		return t.Token, true
	}
	return Token{}, false
}

func isKeywordItem(x Item, w string) bool {
	t, ok := asToken(x)
	return ok && t.IsKeyword(w)
}

func isPunctItem(x Item, p string) bool {
	t, ok := asToken(x)
	return ok && t.IsPunct(p)
}

func joinText(items []Item) string {
	b := strings.Builder{}
	for _, x := range items {
		b.WriteString(x.Text())
	}
	return b.String()
}

func unquote(name string) string {
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		return name[1 : len(name)-1]
	}
	return name
}

// skip noise starting at idx, returns index of next significant item or
// len(items)
func nextSignificant(items []Item, idx int) int {
	for idx < len(items) && IsNoise(items[idx]) {
		idx++
	}
	return idx
}

// Group folds the token stream into items
func Group(tokens []Token) ([]Item, error) {
	items, rest, err := groupParens(tokens, 0)
	if err != nil {
		return nil, err
	}
	if rest != len(tokens) {
		return nil, fmt.Errorf("%w: unbalanced ')' at token %d", ErrDecomposition, rest)
	}
	return items, nil
}

// groupParens consumes tokens starting at idx until a closing parenthesis
// (not consumed) or the end of stream. Nested parenthesis are grouped and the
// rest of grouping pipeline runs on each level.
func groupParens(tokens []Token, idx int) ([]Item, int, error) {
	flat := []Item{}

	for idx < len(tokens) {
		tk := tokens[idx]
		if tk.IsPunct(")") {
			break
		}
		if tk.IsPunct("(") {
			inner, next, err := groupParens(tokens, idx+1)
			if err != nil {
				return nil, 0, err
			}
			if next >= len(tokens) {
				return nil, 0, fmt.Errorf("%w: unterminated parenthesis", ErrDecomposition)
			}
			flat = append(flat, &Parenthesis{
				Inner: inner,
				text:  "(" + joinText(inner) + ")",
			})
			idx = next + 1
			continue
		}
		flat = append(flat, &TokenItem{Token: tk})
		idx++
	}

	out := groupFunctions(flat)
	out = groupIdentifiers(out)
	out = groupAliases(out)
	out = groupComparisons(out)
	out = groupLists(out)
	return out, idx, nil
}

func groupFunctions(items []Item) []Item {
	out := []Item{}
	for i := 0; i < len(items); i++ {
		if t, ok := asToken(items[i]); ok && t.Kind == TkIdent && i+1 < len(items) {
			if p, ok := items[i+1].(*Parenthesis); ok {
				out = append(out, &Function{
					Name: t.Text,
					Args: p,
					text: t.Text + p.Text(),
				})
				i++
				continue
			}
		}
		out = append(out, items[i])
	}
	return out
}

// a '*' is a wildcard identifier only where an operand can not precede it
func starIsWildcard(out []Item) bool {
	for i := len(out) - 1; i >= 0; i-- {
		if IsNoise(out[i]) {
			continue
		}
		t, ok := asToken(out[i])
		if !ok {
			return false
		}
		return t.Kind == TkKeyword || t.IsPunct(",") || t.IsPunct(".")
	}
	return true
}

func groupIdentifiers(items []Item) []Item {
	out := []Item{}

	for i := 0; i < len(items); i++ {
		t, ok := asToken(items[i])
		isName := ok && (t.Kind == TkIdent || (t.IsPunct("*") && starIsWildcard(out)))
		if !isName {
			out = append(out, items[i])
			continue
		}

		id := &Identifier{Parts: []string{unquote(t.Text)}}
		text := t.Text

		// dotted components, no whitespace allowed around the dot
		for i+2 < len(items) && isPunctItem(items[i+1], ".") {
			n, ok := asToken(items[i+2])
			if !ok || !(n.Kind == TkIdent || n.Kind == TkKeyword || n.IsPunct("*")) {
				break
			}
			id.Parts = append(id.Parts, unquote(n.Text))
			text += "." + n.Text
			i += 2
		}

		id.text = text
		out = append(out, id)
	}
	return out
}

func groupAliases(items []Item) []Item {
	out := []Item{}

	for i := 0; i < len(items); i++ {
		x := items[i]

		var alias, dir *string
		var textOf func(string)

		switch v := x.(type) {
		case *Identifier:
			alias, dir = &v.Alias, &v.Direction
			textOf = func(s string) { v.text += s }
		case *Function:
			alias, dir = &v.Alias, &v.Direction
			textOf = func(s string) { v.text += s }
		case *Parenthesis:
			// only sub-select is allowed to take an alias
			if !IsSubselect(v) {
				out = append(out, x)
				continue
			}
			j := nextSignificant(items, i+1)
			if j >= len(items) {
				out = append(out, x)
				continue
			}
			if _, ok := aliasAt(items, j); !ok {
				out = append(out, x)
				continue
			}
			id := &Identifier{Sub: v, text: v.Text()}
			x = id
			alias, dir = &id.Alias, &id.Direction
			textOf = func(s string) { id.text += s }
		default:
			out = append(out, x)
			continue
		}

		j := nextSignificant(items, i+1)
		if j < len(items) {
			if end, ok := aliasAt(items, j); ok {
				*alias = unquote(items[end].Text())
				textOf(joinText(items[i+1 : end+1]))
				i = end
				j = nextSignificant(items, i+1)
			}
		}

		if j < len(items) {
			if isKeywordItem(items[j], "asc") || isKeywordItem(items[j], "desc") {
				t, _ := asToken(items[j])
				*dir = strings.ToLower(t.Text)
				textOf(joinText(items[i+1 : j+1]))
				i = j
			}
		}

		out = append(out, x)
	}
	return out
}

// aliasAt checks whether an alias starts at index j, returns the index of the
// alias name token
func aliasAt(items []Item, j int) (int, bool) {
	if isKeywordItem(items[j], "as") {
		k := nextSignificant(items, j+1)
		if k < len(items) {
			if t, ok := asToken(items[k]); ok && t.Kind == TkIdent {
				return k, true
			}
			if id, ok := items[k].(*Identifier); ok && len(id.Parts) == 1 {
				return k, true
			}
		}
		return -1, false
	}
	if id, ok := items[j].(*Identifier); ok && len(id.Parts) == 1 && !id.IsStar() {
		return j, true
	}
	return -1, false
}

func isOperand(x Item) bool {
	switch v := x.(type) {
	case *Identifier, *Function, *Parenthesis:
		return true
	case *TokenItem:
		return v.Kind == TkLiteral || v.IsKeyword("null")
	default:
		return false
	}
}

func groupComparisons(items []Item) []Item {
	out := []Item{}

	for i := 0; i < len(items); i++ {
		if isOperand(items[i]) {
			j := nextSignificant(items, i+1)
			if j < len(items) {
				if op, ok := asToken(items[j]); ok && op.Kind == TkOperator {
					k := nextSignificant(items, j+1)
					if k < len(items) && isOperand(items[k]) {
						out = append(out, &Comparison{
							Left:  items[i],
							Op:    op.Text,
							Right: items[k],
							text:  joinText(items[i : k+1]),
						})
						i = k
						continue
					}
				}
			}
		}
		out = append(out, items[i])
	}
	return out
}

func isListMember(x Item) bool {
	switch x.(type) {
	case *Comparison:
		return true
	default:
		return isOperand(x)
	}
}

func groupLists(items []Item) []Item {
	out := []Item{}

	for i := 0; i < len(items); i++ {
		if !isListMember(items[i]) {
			out = append(out, items[i])
			continue
		}

		members := []Item{items[i]}
		end := i
		for {
			j := nextSignificant(items, end+1)
			if j >= len(items) || !isPunctItem(items[j], ",") {
				break
			}
			k := nextSignificant(items, j+1)
			if k >= len(items) || !isListMember(items[k]) {
				break
			}
			members = append(members, items[k])
			end = k
		}

		if len(members) == 1 {
			out = append(out, items[i])
			continue
		}
		out = append(out, &IdentifierList{
			Members: members,
			text:    joinText(items[i : end+1]),
		})
		i = end
	}
	return out
}
