package shared

// Filter pages and orders a list query. Page is 1-based; a zero PageSize
// returns every row.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string // asc or desc, repository default when empty
}

// Offset is the number of rows before the filter's page
func (f Filter) Offset() int {
	return max(f.Page-1, 0) * f.PageSize
}
