package instructors

import (
	"time"

	"github.com/skillforge/user-service/internal/shared"
)

// VerificationStatus is the review state of an instructor application.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusRejected VerificationStatus = "rejected"
)

// ParseVerificationStatus normalises raw and rejects unknown statuses.
func ParseVerificationStatus(raw string) (VerificationStatus, error) {
	s := VerificationStatus(shared.Fold(raw))
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return s, nil
	}
	return "", shared.Errorf(shared.ErrInvalidField, "verification status %q is not one of verified, pending, rejected", raw)
}

// Instructor is the verification record layered onto a user. Counters are
// maintained out of band by the stats worker.
type Instructor struct {
	UserID             string             `json:"userId"`
	TotalStudents      int                `json:"totalStudents"`
	TotalCourses       int                `json:"totalCourses"`
	TotalReviews       int                `json:"totalReviews"`
	AverageRating      float64            `json:"averageRating"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	VerifiedAt         *time.Time         `json:"verifiedAt,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// ListFilter narrows instructor listings.
type ListFilter struct {
	Status    *VerificationStatus
	MinRating *float64
}

var instructorSortFields = shared.NewSortFields("created_at", shared.OrderDesc, map[string]string{
	"created_at":     "created_at",
	"average_rating": "average_rating",
	"total_reviews":  "total_reviews",
})
