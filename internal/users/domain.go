package users

import (
	"time"

	"github.com/skillforge/user-service/internal/shared"
)

// User is a platform account as known to this service. Identities are issued
// by the external identity provider; the id is its subject.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListFilter narrows user listings.
type ListFilter struct {
	Search string
	Active *bool
}

var userSortFields = shared.NewSortFields("created_at", shared.OrderDesc, map[string]string{
	"created_at": "created_at",
	"email":      "email",
	"name":       "name",
})
