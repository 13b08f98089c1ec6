// Package source provides the tabular input the analysis consumes: a named
// sequence of loosely-typed records keyed by column header.
package source

import "strings"

// Record is one row as a header -> raw cell map.
type Record map[string]string

// Table is a tabular source. Columns preserves header order as read,
// including any incidental whitespace; consumers trim before lookup.
type Table struct {
	Name    string
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Trimmed returns a copy of the table whose headers, and record keys, are
// stripped of surrounding whitespace. When two headers collide after
// trimming the later column wins.
func (t *Table) Trimmed() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: make([]string, 0, len(t.Columns)),
		Records: make([]Record, len(t.Records)),
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		k := strings.TrimSpace(c)
		if !seen[k] {
			out.Columns = append(out.Columns, k)
			seen[k] = true
		}
	}

	for i, rec := range t.Records {
		r := make(Record, len(rec))
		for _, c := range t.Columns {
			if v, ok := rec[c]; ok {
				r[strings.TrimSpace(c)] = v
			}
		}
		out.Records[i] = r
	}
	return out
}

// HasColumn reports whether the header list contains name exactly.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
