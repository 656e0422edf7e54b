package query

import "strings"

// SplitStatements splits a SQL script on statement-terminating semicolons.
// Semicolons inside single/double/backtick quotes, line comments, block
// comments and Postgres dollar-quoted strings do not split. Empty
// statements are dropped; the trailing statement needs no semicolon.
func SplitStatements(script string) []string {
	var (
		out     []string
		current strings.Builder
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		current.Reset()
		if stmt != "" {
			out = append(out, stmt)
		}
	}

	i := 0
	n := len(script)
	for i < n {
		c := script[i]

		switch {
		case c == '\'' || c == '"' || c == '`':
			j := consumeQuoted(script, i, c)
			current.WriteString(script[i:j])
			i = j

		case c == '-' && i+1 < n && script[i+1] == '-':
			j := strings.IndexByte(script[i:], '\n')
			if j < 0 {
				current.WriteString(script[i:])
				i = n
			} else {
				current.WriteString(script[i : i+j])
				i += j
			}

		case c == '/' && i+1 < n && script[i+1] == '*':
			j := strings.Index(script[i+2:], "*/")
			if j < 0 {
				current.WriteString(script[i:])
				i = n
			} else {
				end := i + 2 + j + 2
				current.WriteString(script[i:end])
				i = end
			}

		case c == '$':
			tag, ok := dollarTag(script[i:])
			if !ok {
				current.WriteByte(c)
				i++
				break
			}
			close := strings.Index(script[i+len(tag):], tag)
			if close < 0 {
				current.WriteString(script[i:])
				i = n
			} else {
				end := i + len(tag) + close + len(tag)
				current.WriteString(script[i:end])
				i = end
			}

		case c == ';':
			flush()
			i++

		default:
			current.WriteByte(c)
			i++
		}
	}
	flush()
	return out
}

// consumeQuoted returns the index just past a quoted literal starting at
// start. Doubled quotes ('') and backslash escapes stay inside the literal.
func consumeQuoted(s string, start int, quote byte) int {
	i := start + 1
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2
		case quote:
			if i+1 < len(s) && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		default:
			i++
		}
	}
	return len(s)
}

// dollarTag recognizes a $tag$ opener at the start of s, where tag is empty
// or an identifier.
func dollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1], true
		}
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return "", false
		}
	}
	return "", false
}
