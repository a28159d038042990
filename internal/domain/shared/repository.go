package shared

import "strings"

// MaxPageSize caps the rows a single list call returns
const MaxPageSize = 200

// Filter narrows and pages a repository list query. Filters holds named
// conditions; each repository documents the keys it understands and ignores
// the rest.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Filters  map[string]interface{}
}

// DefaultFilter returns the first page of twenty rows
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		Filters:  make(map[string]interface{}),
	}
}

// With returns a copy of f carrying one more condition
func (f Filter) With(key string, value interface{}) Filter {
	conds := make(map[string]interface{}, len(f.Filters)+1)
	for k, v := range f.Filters {
		conds[k] = v
	}
	conds[key] = value
	f.Filters = conds
	return f
}

// Window returns the offset and limit of the requested page. ok is false when
// the filter asks for every row.
func (f Filter) Window() (offset, limit int, ok bool) {
	if f.Page < 1 || f.PageSize < 1 {
		return 0, 0, false
	}
	limit = f.PageSize
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return (f.Page - 1) * limit, limit, true
}

// Descending reports whether OrderDir asks for descending order
func (f Filter) Descending() bool {
	return strings.EqualFold(f.OrderDir, "desc")
}

// Flag reports whether the boolean condition key is present and true
func (f Filter) Flag(key string) bool {
	v, ok := f.Filters[key].(bool)
	return ok && v
}
