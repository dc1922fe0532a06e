package roles

import (
	"encoding/json"
	"time"

	"github.com/skillforge/user-service/internal/shared"
)

// RoleName is the identity of a role.
type RoleName string

const (
	RoleAdmin      RoleName = "admin"
	RoleInstructor RoleName = "instructor"
	RoleStudent    RoleName = "student"
)

// RoleNames lists every role the service recognises.
var RoleNames = []RoleName{RoleAdmin, RoleInstructor, RoleStudent}

// ParseRoleName normalises raw and rejects names outside the role enum.
func ParseRoleName(raw string) (RoleName, error) {
	name := RoleName(shared.Fold(raw))
	if !name.Valid() {
		return "", shared.Errorf(shared.ErrInvalidRole, "%q is not one of admin, instructor, student", raw)
	}
	return name, nil
}

// Valid reports whether r is a recognised role.
func (r RoleName) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Role is the reference row backing a RoleName.
type Role struct {
	ID          string    `json:"id"`
	Name        RoleName  `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Status is the lifecycle state of a role assignment. Every transition is an
// explicit write; expiration never changes it.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// ParseStatus normalises raw and rejects unknown statuses.
func ParseStatus(raw string) (Status, error) {
	s := Status(shared.Fold(raw))
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return s, nil
	}
	return "", shared.Errorf(shared.ErrInvalidField, "status %q is not one of active, inactive, suspended", raw)
}

// Assignment is a user's membership in a role, joined with the role name.
type Assignment struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	RoleID     string     `json:"roleId"`
	RoleName   RoleName   `json:"roleName"`
	AssignedAt time.Time  `json:"assignedAt"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	Status     Status     `json:"status"`
}

// Expired reports whether the assignment's expiration lies before now. It is
// informational only and does not affect Status.
func (a Assignment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// MarshalJSON adds the computed expired flag to the assignment payload.
func (a Assignment) MarshalJSON() ([]byte, error) {
	type assignment Assignment
	return json.Marshal(struct {
		assignment
		Expired bool `json:"expired"`
	}{assignment: assignment(a), Expired: a.Expired(time.Now())})
}

// AssignmentPatch is a partial update of an assignment.
type AssignmentPatch struct {
	Status         *Status
	ExpiresAt      *time.Time
	ClearExpiresAt bool
}

// IsEmpty reports whether the patch changes nothing.
func (p AssignmentPatch) IsEmpty() bool {
	return p.Status == nil && p.ExpiresAt == nil && !p.ClearExpiresAt
}

const (
	fieldStatus    = "status"
	fieldExpiresAt = "expiresAt"
)

// ParseAssignmentPatch builds a patch from raw JSON fields. Only status and
// expiresAt are accepted; expiresAt may be null to clear the expiration.
func ParseAssignmentPatch(fields map[string]json.RawMessage) (AssignmentPatch, error) {
	var patch AssignmentPatch
	if len(fields) == 0 {
		return patch, shared.Errorf(shared.ErrNoFieldsProvided, "provide status or expiresAt")
	}
	for key := range fields {
		if key != fieldStatus && key != fieldExpiresAt {
			return AssignmentPatch{}, shared.Errorf(shared.ErrInvalidField, "field %q cannot be updated", key)
		}
	}
	if raw, ok := fields[fieldStatus]; ok {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return AssignmentPatch{}, shared.Errorf(shared.ErrInvalidField, "status must be a string")
		}
		status, err := ParseStatus(value)
		if err != nil {
			return AssignmentPatch{}, err
		}
		patch.Status = &status
	}
	if raw, ok := fields[fieldExpiresAt]; ok {
		if string(raw) == "null" {
			patch.ClearExpiresAt = true
		} else {
			var ts time.Time
			if err := json.Unmarshal(raw, &ts); err != nil {
				return AssignmentPatch{}, shared.Errorf(shared.ErrInvalidField, "expiresAt must be an RFC 3339 timestamp or null")
			}
			ts = ts.UTC()
			patch.ExpiresAt = &ts
		}
	}
	return patch, nil
}

// AssignmentFilter narrows an assignment listing. Zero values do not filter.
type AssignmentFilter struct {
	UserID       string
	Role         *RoleName
	Status       *Status
	AssignedFrom *time.Time
	AssignedTo   *time.Time
	ExpiresFrom  *time.Time
	ExpiresTo    *time.Time
}

func (f AssignmentFilter) validate() error {
	if f.AssignedFrom != nil && f.AssignedTo != nil && f.AssignedFrom.After(*f.AssignedTo) {
		return shared.Errorf(shared.ErrInvalidField, "assignedFrom must not be after assignedTo")
	}
	if f.ExpiresFrom != nil && f.ExpiresTo != nil && f.ExpiresFrom.After(*f.ExpiresTo) {
		return shared.Errorf(shared.ErrInvalidField, "expiresFrom must not be after expiresTo")
	}
	return nil
}

var assignmentSortFields = shared.NewSortFields("assigned_at", shared.OrderDesc, map[string]string{
	"assigned_at": "ra.assigned_at",
	"expires_at":  "ra.expires_at",
	"status":      "ra.status",
})
