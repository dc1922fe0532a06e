package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{name: "middle page", page: 2, limit: 5, total: 15, totalPages: 3, hasNext: true, hasPrev: true},
		{name: "first page", page: 1, limit: 10, total: 25, totalPages: 3, hasNext: true, hasPrev: false},
		{name: "last page", page: 3, limit: 10, total: 25, totalPages: 3, hasNext: false, hasPrev: true},
		{name: "exact multiple", page: 2, limit: 5, total: 10, totalPages: 2, hasNext: false, hasPrev: true},
		{name: "empty result", page: 1, limit: 10, total: 0, totalPages: 0, hasNext: false, hasPrev: false},
		{name: "page past the end", page: 5, limit: 10, total: 12, totalPages: 2, hasNext: false, hasPrev: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, tt.totalPages, p.TotalPages)
			assert.Equal(t, tt.hasNext, p.HasNext)
			assert.Equal(t, tt.hasPrev, p.HasPrev)
		})
	}
}

func TestNewPaginationInvariants(t *testing.T) {
	for total := 0; total <= 40; total++ {
		for limit := 1; limit <= 7; limit++ {
			for page := 1; page <= 8; page++ {
				p := NewPagination(page, limit, total)
				if total == 0 {
					require.Zero(t, p.TotalPages)
				} else {
					require.Equal(t, (total+limit-1)/limit, p.TotalPages)
				}
				require.Equal(t, page < p.TotalPages, p.HasNext)
				require.Equal(t, page > 1, p.HasPrev)
			}
		}
	}
}

func TestPageRequestNormalizeAndOffset(t *testing.T) {
	req := PageRequest{Sort: " Assigned_At ", Order: "DESC"}.Normalize()
	assert.Equal(t, DefaultPage, req.Page)
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.Equal(t, "assigned_at", req.Sort)
	assert.Equal(t, "desc", req.Order)
	assert.Equal(t, 0, req.Offset())

	req = PageRequest{Page: 3, Limit: 500}.Normalize()
	assert.Equal(t, MaxLimit, req.Limit)
	assert.Equal(t, 200, req.Offset())

	assert.Equal(t, 20, PageRequest{Page: 3, Limit: 10}.Offset())
}

func TestPageRequestValidateBoundsOffset(t *testing.T) {
	req := PageRequest{Page: 100000000000000000, Limit: 100}.Normalize()
	err := req.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidField))
	assert.Equal(t, MaxOffset, req.Offset())

	last := PageRequest{Page: MaxOffset/100 + 1, Limit: 100}.Normalize()
	require.NoError(t, last.Validate())
	assert.GreaterOrEqual(t, last.Offset(), 0)
	assert.LessOrEqual(t, last.Offset(), MaxOffset)

	err = PageRequest{Page: MaxOffset/100 + 2, Limit: 100}.Normalize().Validate()
	assert.True(t, errors.Is(err, ErrInvalidField))

	require.NoError(t, PageRequest{}.Normalize().Validate())
}

func TestSortFieldsResolve(t *testing.T) {
	fields := NewSortFields("assigned_at", OrderDesc, map[string]string{
		"assigned_at": "ra.assigned_at",
		"status":      "ra.status",
	})

	sortBy, err := fields.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, "assigned_at", sortBy.Key)
	assert.Equal(t, "ra.assigned_at DESC", sortBy.Clause())

	sortBy, err = fields.Resolve("Status", "asc")
	require.NoError(t, err)
	assert.Equal(t, "ra.status ASC", sortBy.Clause())

	_, err = fields.Resolve("password", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSortField))

	_, err = fields.Resolve("status", "sideways")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidField))
}

func TestPaginatedEnvelope(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	page := NewPage([]string(nil), PageRequest{Page: 1, Limit: 10}, 0)

	resp := Paginated("roles listed", page, now)
	assert.True(t, resp.Success)
	assert.Equal(t, "roles listed", resp.Message)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 0, resp.Pagination.TotalPages)
	assert.Equal(t, time.UTC, resp.Timestamp.Location())
}
