package output

import "strings"

// QuoteLiteral renders s as an Oracle string literal. Embedded quotes are
// doubled and line breaks collapse to spaces so the literal stays on one
// line of the script.
func QuoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString("''")
		case '\r':
		case '\n', '\t':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
