package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skillforge/user-service/internal/shared"
)

// PageRequest reads page, limit, sort and order from the query string.
func PageRequest(r *http.Request) (shared.PageRequest, error) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		return shared.PageRequest{}, err
	}
	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		return shared.PageRequest{}, err
	}
	return shared.PageRequest{
		Page:  page,
		Limit: limit,
		Sort:  q.Get("sort"),
		Order: q.Get("order"),
	}, nil
}

func queryInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, shared.Errorf(shared.ErrInvalidField, "%s must be a positive integer", name)
	}
	return v, nil
}

// QueryTime parses an RFC 3339 timestamp or a YYYY-MM-DD date. Dates are read
// as midnight UTC; when endOfDay is set they extend to the last instant of that day.
func QueryTime(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, shared.Errorf(shared.ErrInvalidField, "%s must be RFC 3339 or YYYY-MM-DD", name)
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

// QueryBool parses an optional boolean flag; absent means false.
func QueryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, shared.Errorf(shared.ErrInvalidField, "%s must be true or false", name)
	}
	return v, nil
}
