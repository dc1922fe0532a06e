package shared

import "time"

// Response is the uniform JSON envelope returned by every endpoint.
type Response[T any] struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       T           `json:"data"`
	Timestamp  time.Time   `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// FailureResponse is the envelope for failed requests.
type FailureResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// OK wraps a single resource.
func OK[T any](message string, data T, now time.Time) Response[T] {
	return Response[T]{Success: true, Message: message, Data: data, Timestamp: now.UTC()}
}

// Paginated wraps a page of resources together with its metadata.
func Paginated[T any](message string, page Page[T], now time.Time) Response[[]T] {
	meta := page.Pagination
	items := page.Items
	if items == nil {
		items = []T{}
	}
	return Response[[]T]{Success: true, Message: message, Data: items, Timestamp: now.UTC(), Pagination: &meta}
}

// Failure builds the failure envelope for a named error kind.
func Failure(kind, message string, now time.Time) FailureResponse {
	return FailureResponse{Success: false, Message: message, Error: kind, Timestamp: now.UTC()}
}
