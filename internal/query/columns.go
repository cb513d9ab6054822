package query

import (
	"fmt"
	"strings"
)

// sqlColumns maps dataset columns to the names they get in the frame table.
// SQLite compares identifiers case-insensitively, so of "Amount" and "amount"
// only the first keeps its name; later clashes become "amount_2" and so on.
// Empty field names become "column_1", "column_2", ...
func sqlColumns(columns []string) []string {
	out := make([]string, len(columns))
	taken := make(map[string]struct{}, len(columns))

	for i, c := range columns {
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, ok := taken[key]; ok {
			continue
		}
		taken[key] = struct{}{}
		out[i] = c
	}

	for i, c := range columns {
		if out[i] != "" {
			continue
		}
		base, n := c, 2
		if base == "" {
			base, n = "column", 1
		}
		for ; ; n++ {
			alias := fmt.Sprintf("%s_%d", base, n)
			if _, ok := taken[strings.ToLower(alias)]; !ok {
				taken[strings.ToLower(alias)] = struct{}{}
				out[i] = alias
				break
			}
		}
	}
	return out
}
