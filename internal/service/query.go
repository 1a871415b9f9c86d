package service

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Default and maximum page sizes
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams are the paging and sorting query parameters shared by lists
type ListParams struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
}

// Pagination describes one page of a list
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// sortSpec maps public sort keys to columns
type sortSpec struct {
	columns      map[string]string
	defaultKey   string
	defaultOrder string
}

func (s sortSpec) orderBy(p ListParams) string {
	column, ok := s.columns[p.SortBy]
	if !ok {
		column = s.columns[s.defaultKey]
	}
	order := strings.ToLower(p.SortOrder)
	if order != "asc" && order != "desc" {
		order = s.defaultOrder
	}
	return column + " " + order
}

// paginate counts q, then loads the requested page into out with the
// given associations preloaded
func paginate(q *gorm.DB, p ListParams, sort sortSpec, out interface{}, preloads ...string) (Pagination, error) {
	p = p.normalized()
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Pagination{}, errors.Wrap(err, "count rows")
	}

	page := q
	for _, assoc := range preloads {
		page = page.Preload(assoc)
	}
	err := page.Order(sort.orderBy(p)).
		Offset((p.Page - 1) * p.Limit).
		Limit(p.Limit).
		Find(out).Error
	if err != nil {
		return Pagination{}, errors.Wrap(err, "load page")
	}

	pages := int(math.Ceil(float64(total) / float64(p.Limit)))
	return Pagination{
		CurrentPage:  p.Page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: p.Limit,
		HasNext:      p.Page < pages,
		HasPrev:      p.Page > 1,
	}, nil
}

// searchAny adds a case-insensitive LIKE over columns
func searchAny(q *gorm.DB, term string, columns ...string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return q
	}
	like := "%" + strings.ToLower(term) + "%"
	clauses := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, c := range columns {
		clauses[i] = "LOWER(" + c + ") LIKE ?"
		args[i] = like
	}
	return q.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

func onlyActive(q *gorm.DB) *gorm.DB {
	return q.Where("is_active = ?", true)
}
