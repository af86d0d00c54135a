package sql

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ----------------------------------------------------------------------------
//
// SQL LIKE pattern, translated into a regular expression. Two placeholders:
//
// 1. %, zero, one or more characters of any kind
// 2. _, exactly one character
//
// A placeholder is taken literally when written as %[x], ie %[%] or %[_].
// Anything else matches itself.
//
// ----------------------------------------------------------------------------

func LikeToRegex(
	input string,
) string {
	buf := strings.Builder{}
	buf.WriteString("^")

	for i := 0; i < len(input); {
		c, sz := utf8.DecodeRuneInString(input[i:])

		switch {
		case c == '%' && strings.HasPrefix(input[i+1:], "["):
			inner, isz := utf8.DecodeRuneInString(input[i+2:])
			if isz > 0 && strings.HasPrefix(input[i+2+isz:], "]") {
				buf.WriteString(regexp.QuoteMeta(string(inner)))
				i += 3 + isz
				continue
			}
			buf.WriteString(".*")

		case c == '%':
			buf.WriteString(".*")

		case c == '_':
			buf.WriteString(".")

		default:
			buf.WriteString(regexp.QuoteMeta(input[i : i+sz]))
		}
		i += sz
	}

	buf.WriteString("$")
	return buf.String()
}

// CompileLike compiles the pattern, a new line is an ordinary character
func CompileLike(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?s)" + LikeToRegex(pattern))
}
