package reviews

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/skillforge/user-service/internal/shared"
)

// Discriminant names the category of the reviewed entity.
type Discriminant string

const (
	DiscriminantInstructor Discriminant = "instructor"
	DiscriminantCourse     Discriminant = "course"
)

// ParseDiscriminant normalises raw and rejects unknown categories.
func ParseDiscriminant(raw string) (Discriminant, error) {
	d := Discriminant(shared.Fold(raw))
	switch d {
	case DiscriminantInstructor, DiscriminantCourse:
		return d, nil
	}
	return "", shared.Errorf(shared.ErrInvalidField, "discriminant %q is not one of instructor, course", raw)
}

// ErrUnlinkedReview means a stored review has neither an instructor nor a
// course link. It indicates corrupted storage, not bad input.
var ErrUnlinkedReview = errors.New("reviews: review has no instructor or course link")

// Target is what a review is about: exactly one instructor or one course. The
// zero value is not a valid target.
type Target struct {
	kind Discriminant
	id   string
}

// InstructorTarget targets the instructor with the given user id.
func InstructorTarget(id string) Target {
	return Target{kind: DiscriminantInstructor, id: id}
}

// CourseTarget targets the course with the given id.
func CourseTarget(id string) Target {
	return Target{kind: DiscriminantCourse, id: id}
}

// NewTarget builds a Target from its wire representation.
func NewTarget(kind, id string) (Target, error) {
	d, err := ParseDiscriminant(kind)
	if err != nil {
		return Target{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Target{}, shared.Errorf(shared.ErrInvalidField, "reviewedId is required")
	}
	return Target{kind: d, id: id}, nil
}

// ResolveTarget rebuilds a Target from the two nullable link columns. The
// instructor link wins when both are present.
func ResolveTarget(instructorID, courseID *string) (Target, error) {
	switch {
	case instructorID != nil:
		return InstructorTarget(*instructorID), nil
	case courseID != nil:
		return CourseTarget(*courseID), nil
	default:
		return Target{}, ErrUnlinkedReview
	}
}

func (t Target) Kind() Discriminant { return t.kind }
func (t Target) ID() string         { return t.id }
func (t Target) IsZero() bool       { return t.kind == "" }

// IsInstructor reports whether the target is an instructor.
func (t Target) IsInstructor() bool { return t.kind == DiscriminantInstructor }

// Review is a rating left by one user about an instructor or a course.
type Review struct {
	ID          string
	ReviewerID  string
	Target      Target
	Rate        int
	Recommended bool
	Comments    *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Record is the flattened JSON form of a Review.
type Record struct {
	ID           string       `json:"id"`
	ReviewerID   string       `json:"reviewerId"`
	ReviewedID   string       `json:"reviewedId"`
	Discriminant Discriminant `json:"discriminant"`
	Rate         int          `json:"rate"`
	Recommended  bool         `json:"recommended"`
	Comments     string       `json:"comments,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Record flattens r. A missing updated_at reads as created_at.
func (r Review) Record() Record {
	rec := Record{
		ID:           r.ID,
		ReviewerID:   r.ReviewerID,
		ReviewedID:   r.Target.ID(),
		Discriminant: r.Target.Kind(),
		Rate:         r.Rate,
		Recommended:  r.Recommended,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.CreatedAt,
	}
	if r.Comments != nil {
		rec.Comments = *r.Comments
	}
	if r.UpdatedAt != nil {
		rec.UpdatedAt = *r.UpdatedAt
	}
	return rec
}

// Records flattens a slice of reviews.
func Records(items []Review) []Record {
	out := make([]Record, 0, len(items))
	for _, r := range items {
		out = append(out, r.Record())
	}
	return out
}

// CreateInput carries the fields of a new review.
type CreateInput struct {
	ReviewerID   string
	ReviewedID   string
	Discriminant string
	Rate         int
	Recommended  bool
	Comments     *string
}

// Patch is a partial update of a review. The target is immutable.
type Patch struct {
	Rate          *int
	Recommended   *bool
	Comments      *string
	ClearComments bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Rate == nil && p.Recommended == nil && p.Comments == nil && !p.ClearComments
}

// ParsePatch builds a patch from raw JSON fields. Only rate, recommended and
// comments are accepted; comments may be null to clear them.
func ParsePatch(fields map[string]json.RawMessage) (Patch, error) {
	var patch Patch
	if len(fields) == 0 {
		return patch, shared.Errorf(shared.ErrNoFieldsProvided, "provide rate, recommended or comments")
	}
	for key, raw := range fields {
		switch key {
		case "rate":
			var rate int
			if err := json.Unmarshal(raw, &rate); err != nil {
				return Patch{}, shared.Errorf(shared.ErrInvalidField, "rate must be an integer")
			}
			patch.Rate = &rate
		case "recommended":
			var rec bool
			if err := json.Unmarshal(raw, &rec); err != nil {
				return Patch{}, shared.Errorf(shared.ErrInvalidField, "recommended must be a boolean")
			}
			patch.Recommended = &rec
		case "comments":
			if string(raw) == "null" {
				patch.ClearComments = true
				continue
			}
			var c string
			if err := json.Unmarshal(raw, &c); err != nil {
				return Patch{}, shared.Errorf(shared.ErrInvalidField, "comments must be a string or null")
			}
			if c = strings.TrimSpace(c); c == "" {
				patch.ClearComments = true
				continue
			}
			patch.Comments = &c
		default:
			return Patch{}, shared.Errorf(shared.ErrInvalidField, "field %q cannot be updated", key)
		}
	}
	return patch, nil
}

// ListFilter narrows a reviewer's listing.
type ListFilter struct {
	ReviewerID      string
	ShowInstructors bool
	ShowCourses     bool
	ReviewedID      string
}

// Category returns the single category to restrict to. ok is false when both
// or neither flag is set, which means no category restriction.
func (f ListFilter) Category() (Discriminant, bool) {
	switch {
	case f.ShowInstructors && !f.ShowCourses:
		return DiscriminantInstructor, true
	case f.ShowCourses && !f.ShowInstructors:
		return DiscriminantCourse, true
	default:
		return "", false
	}
}

const (
	minRate = 1
	maxRate = 5
)

func validateRate(rate int) error {
	if rate < minRate || rate > maxRate {
		return shared.Errorf(shared.ErrInvalidField, "rate must be between %d and %d", minRate, maxRate)
	}
	return nil
}

var reviewSortFields = shared.NewSortFields("created_at", shared.OrderDesc, map[string]string{
	"created_at": "rv.created_at",
	"updated_at": "COALESCE(rv.updated_at, rv.created_at)",
	"rate":       "rv.rate",
})
