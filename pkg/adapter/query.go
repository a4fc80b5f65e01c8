package adapter

import (
	"fmt"
	"strings"
	"unicode"
)

// IsSelectQuery reports whether a query is a SELECT statement. Only SELECT
// statements are paginated.
func IsSelectQuery(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimLeftFunc(query, unicode.IsSpace)), "SELECT")
}

// TrimStatement drops surrounding whitespace and trailing semicolons.
func TrimStatement(query string) string {
	q := strings.TrimSpace(query)
	for strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	}
	return q
}

// SplitOrderBy separates a trailing top-level ORDER BY clause from a query.
// ORDER BY inside parentheses, string literals or quoted identifiers is not
// considered. order is empty when the query has no such clause.
func SplitOrderBy(query string) (body, order string) {
	pos := lastTopLevelOrderBy(query)
	if pos < 0 {
		return query, ""
	}
	return strings.TrimSpace(query[:pos]), strings.TrimSpace(query[pos:])
}

func lastTopLevelOrderBy(q string) int {
	upper := asciiUpper(q)
	depth := 0
	var quote byte
	last := -1
	for i := 0; i < len(q); i++ {
		c := q[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case 'O', 'o':
			if depth == 0 && isOrderBy(q, upper, i) {
				last = i
			}
		}
	}
	return last
}

// isOrderBy reports whether the keywords ORDER BY start at i.
func isOrderBy(q, upper string, i int) bool {
	if !strings.HasPrefix(upper[i:], "ORDER") || !wordBoundary(q, i, i+5) {
		return false
	}
	j := i + 5
	for j < len(q) && unicode.IsSpace(rune(q[j])) {
		j++
	}
	return j > i+5 && strings.HasPrefix(upper[j:], "BY") && wordBoundary(q, j, j+2)
}

func wordBoundary(q string, start, end int) bool {
	isWord := func(b byte) bool {
		return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
	}
	if start > 0 && isWord(q[start-1]) {
		return false
	}
	if end < len(q) && isWord(q[end]) {
		return false
	}
	return true
}

// PageQueries builds the count and page statements of a paginated SELECT.
// The ORDER BY of the original query is hoisted onto the outer query so the
// page is cut from the sorted result.
func PageQueries(query string, limit, offset int) (count, page string) {
	body, order := SplitOrderBy(query)
	count = fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS gridedit_count", body)
	if order != "" {
		page = fmt.Sprintf("SELECT * FROM (%s) AS gridedit_page %s LIMIT %d OFFSET %d", body, order, limit, offset)
	} else {
		page = fmt.Sprintf("SELECT * FROM (%s) AS gridedit_page LIMIT %d OFFSET %d", body, limit, offset)
	}
	return count, page
}

// asciiUpper upper-cases ASCII letters only, keeping byte offsets intact.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
