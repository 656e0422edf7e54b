package query

import (
	"regexp"
	"strings"
)

// Classification describes what the engine knows about a statement before
// running it.
type Classification struct {
	// IsQuery means the statement returns rows and runs through
	// Connection.Query; everything else runs through Execute.
	IsQuery bool
	// Destructive flags statements the consuming layer should confirm
	// before running.
	Destructive bool
	// Reason names why a statement is considered destructive.
	Reason string
}

var queryKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"PRAGMA":   true,
	"VALUES":   true,
}

var whereClause = regexp.MustCompile(`(?is)\bWHERE\b`)

// Classify inspects one statement. Classification is keyword-based, not a
// full parse; it exists to route the statement and to warn, not to
// validate.
func Classify(statement string) Classification {
	keyword := firstKeyword(statement)

	c := Classification{IsQuery: queryKeywords[keyword]}

	switch keyword {
	case "DROP":
		c.Destructive = true
		c.Reason = "drops a database object"
	case "TRUNCATE":
		c.Destructive = true
		c.Reason = "removes all rows"
	case "DELETE":
		if !whereClause.MatchString(statement) {
			c.Destructive = true
			c.Reason = "DELETE without WHERE affects every row"
		}
	case "UPDATE":
		if !whereClause.MatchString(statement) {
			c.Destructive = true
			c.Reason = "UPDATE without WHERE affects every row"
		}
	}
	return c
}

// firstKeyword returns the first SQL keyword, uppercased, with leading
// whitespace and comments stripped.
func firstKeyword(statement string) string {
	s := statement
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			end := 0
			for end < len(s) {
				c := s[end]
				if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
					end++
					continue
				}
				break
			}
			return strings.ToUpper(s[:end])
		}
	}
}
