package shared

import (
	"errors"
	"fmt"
)

// Category groups error kinds by how callers should react to them.
type Category string

const (
	CategoryInvalid      Category = "invalid"
	CategoryNotFound     Category = "not_found"
	CategoryConflict     Category = "conflict"
	CategoryUnauthorized Category = "unauthorized"
	CategoryForbidden    Category = "forbidden"
)

// KindError is a stable, named failure kind. Values are compared by identity, so
// wrap them with Errorf to attach detail and match with errors.Is.
type KindError struct {
	kind     string
	category Category
	message  string
}

func newKind(kind string, category Category, message string) *KindError {
	return &KindError{kind: kind, category: category, message: message}
}

func (e *KindError) Error() string { return e.message }

// Kind returns the stable name of the failure, e.g. "DuplicateAssignment".
func (e *KindError) Kind() string { return e.kind }

// Category reports which family the kind belongs to.
func (e *KindError) Category() Category { return e.category }

var (
	// ErrInvalidRole is returned for role names outside admin, instructor and student.
	ErrInvalidRole = newKind("InvalidRole", CategoryInvalid, "invalid role")
	// ErrInvalidSortField is returned when a list is sorted by a key outside its allow-list.
	ErrInvalidSortField = newKind("InvalidSortField", CategoryInvalid, "invalid sort field")
	// ErrInvalidField covers malformed or unknown input fields.
	ErrInvalidField = newKind("InvalidField", CategoryInvalid, "invalid field")
	// ErrNoFieldsProvided is returned for empty partial updates.
	ErrNoFieldsProvided = newKind("NoFieldsProvided", CategoryInvalid, "no fields provided")

	ErrRoleNotFound       = newKind("RoleNotFound", CategoryNotFound, "role not found")
	ErrUserNotFound       = newKind("UserNotFound", CategoryNotFound, "user not found")
	ErrAssignmentNotFound = newKind("AssignmentNotFound", CategoryNotFound, "role assignment not found")
	ErrReviewNotFound     = newKind("ReviewNotFound", CategoryNotFound, "review not found")
	ErrInstructorNotFound = newKind("InstructorNotFound", CategoryNotFound, "instructor not found")

	ErrDuplicateAssignment = newKind("DuplicateAssignment", CategoryConflict, "user already holds this role")
	ErrDuplicateInstructor = newKind("DuplicateInstructor", CategoryConflict, "instructor record already exists")

	ErrUnauthorized = newKind("Unauthorized", CategoryUnauthorized, "authentication required")
	ErrForbidden    = newKind("Forbidden", CategoryForbidden, "forbidden")
)

// Errorf wraps kind with a formatted detail message.
func Errorf(kind *KindError, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// KindOf extracts the kind carried by err. ok is false for storage and other
// unclassified failures.
func KindOf(err error) (*KindError, bool) {
	var kind *KindError
	if errors.As(err, &kind) {
		return kind, true
	}
	return nil, false
}
