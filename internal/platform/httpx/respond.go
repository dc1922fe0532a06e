// Package httpx provides JSON request and response utilities.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/skillforge/user-service/internal/shared"
)

const maxBodyBytes = 1 << 20

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK writes a successful envelope around data.
func OK[T any](w http.ResponseWriter, status int, message string, data T) {
	JSON(w, status, shared.OK(message, data, time.Now()))
}

// Paginated writes a successful envelope carrying pagination metadata.
func Paginated[T any](w http.ResponseWriter, message string, page shared.Page[T]) {
	JSON(w, http.StatusOK, shared.Paginated(message, page, time.Now()))
}

// NoContent writes a successful envelope with no data.
func NoContent(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, shared.OK[any](message, nil, time.Now()))
}

// DecodeJSON decodes the request body into target, rejecting unknown fields.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return shared.Errorf(shared.ErrInvalidField, "malformed request body: %v", err)
	}
	return nil
}

// DecodeFields decodes a JSON object body into its raw fields so that partial
// updates can distinguish absent keys from explicit nulls.
func DecodeFields(r *http.Request) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return fields, nil
		}
		return nil, shared.Errorf(shared.ErrInvalidField, "malformed request body: %v", err)
	}
	return fields, nil
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	kind, ok := shared.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind.Category() {
	case shared.CategoryInvalid:
		return http.StatusBadRequest
	case shared.CategoryNotFound:
		return http.StatusNotFound
	case shared.CategoryConflict:
		return http.StatusConflict
	case shared.CategoryUnauthorized:
		return http.StatusUnauthorized
	case shared.CategoryForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the failure envelope for err. Unclassified errors are
// rendered without detail and reported to onInternal when set.
func RespondError(w http.ResponseWriter, err error, onInternal func(error)) {
	kind, ok := shared.KindOf(err)
	if !ok {
		if onInternal != nil {
			onInternal(err)
		}
		JSON(w, http.StatusInternalServerError, shared.Failure("Internal", "internal server error", time.Now()))
		return
	}
	JSON(w, StatusFor(err), shared.Failure(kind.Kind(), err.Error(), time.Now()))
}

// PathError reports a malformed path parameter.
func PathError(name, value string) error {
	return shared.Errorf(shared.ErrInvalidField, "%s: invalid value %q", name, value)
}
