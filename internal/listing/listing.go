// Package listing turns admin list query strings into safe SQL fragments.
// Column names only ever come from a Schema allow-list; values are always
// bound as parameters.
package listing

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Schema declares which columns a table exposes for filtering and sorting.
type Schema struct {
	Filterable  []string
	Sortable    []string
	DefaultSort string
	DefaultDesc bool
}

// Params is a parsed list request.
type Params struct {
	Filters map[string]string
	SortBy  string
	Desc    bool
	Limit   int
	Offset  int
}

// FromRequest reads ?<column>=value, ?sort=col or ?sort=-col, ?limit and
// ?offset. Unknown columns are ignored.
func FromRequest(r *http.Request, s Schema) Params {
	q := r.URL.Query()
	p := Params{Filters: map[string]string{}, SortBy: s.DefaultSort, Desc: s.DefaultDesc}
	for _, col := range s.Filterable {
		if v := strings.TrimSpace(q.Get(col)); v != "" {
			p.Filters[col] = v
		}
	}
	if sort := strings.TrimSpace(q.Get("sort")); sort != "" {
		desc := strings.HasPrefix(sort, "-")
		col := strings.TrimPrefix(sort, "-")
		if contains(s.Sortable, col) {
			p.SortBy, p.Desc = col, desc
		}
	}
	p.Limit, _ = strconv.Atoi(q.Get("limit"))
	p.Offset, _ = strconv.Atoi(q.Get("offset"))
	return p.normalized(s)
}

func (p Params) normalized(s Schema) Params {
	if p.Limit <= 0 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if !contains(s.Sortable, p.SortBy) {
		p.SortBy, p.Desc = s.DefaultSort, s.DefaultDesc
	}
	return p
}

// Build appends WHERE, ORDER BY, LIMIT and OFFSET to base. Filters are
// emitted in Schema order so the generated SQL is stable.
func Build(base string, s Schema, p Params) (string, []any) {
	p = p.normalized(s)

	var b strings.Builder
	b.WriteString(base)
	args := []any{}
	for _, col := range s.Filterable {
		v, ok := p.Filters[col]
		if !ok {
			continue
		}
		args = append(args, v)
		if len(args) == 1 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s = $%d", col, len(args))
	}
	if p.SortBy != "" {
		dir := "ASC"
		if p.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", p.SortBy, dir)
	}
	args = append(args, p.Limit, p.Offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
