package shared

import (
	"math"
	"strings"
)

const (
	// DefaultPage is used when a request omits the page number.
	DefaultPage = 1
	// DefaultLimit is used when a request omits the page size.
	DefaultLimit = 10
	// MaxLimit caps the page size a client may request.
	MaxLimit = 100
	// MaxOffset bounds the row offset a page may address.
	MaxOffset = math.MaxInt32
)

// SortOrder is the direction applied to the sort column.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes pagination metadata. page and limit are expected to be
// at least 1; smaller values fall back to the defaults.
func NewPagination(page, limit, total int) Pagination {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if page <= 0 {
		page = DefaultPage
	}
	if total < 0 {
		total = 0
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// PageRequest is the resource-agnostic list request.
type PageRequest struct {
	Page  int
	Limit int
	Sort  string
	Order string
}

// Normalize fills defaults and clamps the page size.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	p.Sort = Fold(p.Sort)
	p.Order = Fold(p.Order)
	return p
}

// Validate rejects a normalized request whose offset would exceed MaxOffset.
func (p PageRequest) Validate() error {
	if p.Limit >= 1 && p.Page-1 > MaxOffset/p.Limit {
		return Errorf(ErrInvalidField, "page must be at most %d for limit %d", MaxOffset/p.Limit+1, p.Limit)
	}
	return nil
}

// Offset returns the number of rows skipped before the requested page,
// capped at MaxOffset.
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > MaxOffset/p.Limit {
		return MaxOffset
	}
	return (p.Page - 1) * p.Limit
}

// Page is one slice of a listing together with its metadata.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// NewPage builds a Page for the request and total row count.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: NewPagination(req.Page, req.Limit, total)}
}

// SortSpec is a resolved, safe-to-interpolate ORDER BY clause.
type SortSpec struct {
	Key    string
	Column string
	Order  SortOrder
}

// Clause renders the ORDER BY body, e.g. "ra.assigned_at DESC".
func (s SortSpec) Clause() string {
	return s.Column + " " + strings.ToUpper(string(s.Order))
}

// SortFields is a per-resource allow-list mapping API sort keys to columns.
type SortFields struct {
	defaultKey   string
	defaultOrder SortOrder
	columns      map[string]string
}

// NewSortFields builds an allow-list. defaultKey must be present in columns.
func NewSortFields(defaultKey string, defaultOrder SortOrder, columns map[string]string) SortFields {
	return SortFields{defaultKey: defaultKey, defaultOrder: defaultOrder, columns: columns}
}

// Resolve validates the requested key and order. Empty values take the defaults.
func (f SortFields) Resolve(key, order string) (SortSpec, error) {
	key = Fold(key)
	if key == "" {
		key = f.defaultKey
	}
	column, ok := f.columns[key]
	if !ok {
		return SortSpec{}, Errorf(ErrInvalidSortField, "cannot sort by %q", key)
	}
	dir := f.defaultOrder
	switch SortOrder(Fold(order)) {
	case "":
	case OrderAsc:
		dir = OrderAsc
	case OrderDesc:
		dir = OrderDesc
	default:
		return SortSpec{}, Errorf(ErrInvalidField, "order must be asc or desc")
	}
	return SortSpec{Key: key, Column: column, Order: dir}, nil
}
