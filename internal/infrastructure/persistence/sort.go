package persistence

import (
	"slices"
	"strings"

	"github.com/labflow/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a list query may be ordered by. Column
// names reach SQL only through this whitelist.
type sortColumns struct {
	allowed []string
	column  string // used when the filter names no allowed column
	desc    bool   // direction used when the filter names none
}

var (
	workOrderSort = sortColumns{
		allowed: []string{"id", "created_at", "updated_at", "order_index", "status", "dispatch_date", "total_cost"},
		column:  "order_index",
	}
	splitRunSort = sortColumns{
		allowed: []string{"id", "created_at", "updated_at", "finished_at", "status", "jobs_created"},
		column:  "created_at",
		desc:    true,
	}
)

// order resolves the filter's ordering against the whitelist. An unknown
// column falls back to the default column; an unknown direction to ascending.
func (s sortColumns) order(f shared.Filter) clause.OrderByColumn {
	col, desc := s.column, s.desc
	if name := strings.TrimSpace(f.OrderBy); slices.Contains(s.allowed, name) {
		col = name
	}
	if dir := strings.TrimSpace(f.OrderDir); dir != "" {
		desc = strings.EqualFold(dir, "desc")
	}
	return clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}
}

// apply adds the ordering and, when a page size is set, the page window
func (s sortColumns) apply(query *gorm.DB, f shared.Filter) *gorm.DB {
	query = query.Order(s.order(f))
	if f.PageSize > 0 {
		query = query.Offset(f.Offset()).Limit(f.PageSize)
	}
	return query
}
