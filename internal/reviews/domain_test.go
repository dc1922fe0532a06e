package reviews

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/user-service/internal/shared"
)

func TestResolveTarget(t *testing.T) {
	inst, course := "inst-1", "course-1"

	target, err := ResolveTarget(&inst, nil)
	require.NoError(t, err)
	assert.Equal(t, InstructorTarget("inst-1"), target)

	target, err = ResolveTarget(nil, &course)
	require.NoError(t, err)
	assert.Equal(t, DiscriminantCourse, target.Kind())

	target, err = ResolveTarget(&inst, &course)
	require.NoError(t, err)
	assert.True(t, target.IsInstructor())

	_, err = ResolveTarget(nil, nil)
	assert.ErrorIs(t, err, ErrUnlinkedReview)
}

func TestNewTarget(t *testing.T) {
	target, err := NewTarget(" COURSE ", " c-7 ")
	require.NoError(t, err)
	assert.Equal(t, CourseTarget("c-7"), target)

	_, err = NewTarget("module", "c-7")
	assert.True(t, errors.Is(err, shared.ErrInvalidField))

	assert.True(t, Target{}.IsZero())
}

func TestRecordOmitsEmptyComments(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := Review{ID: "rv-1", ReviewerID: "r1", Target: CourseTarget("c-1"), Rate: 5, CreatedAt: created}

	raw, err := json.Marshal(r.Record())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "comments")
	assert.Contains(t, string(raw), `"discriminant":"course"`)
	assert.Contains(t, string(raw), `"updatedAt":"2024-01-02T03:04:05Z"`)

	later := created.Add(time.Hour)
	r.Comments = strPtr("useful")
	r.UpdatedAt = &later
	rec := r.Record()
	assert.Equal(t, "useful", rec.Comments)
	assert.Equal(t, later, rec.UpdatedAt)
}

func TestParsePatch(t *testing.T) {
	parse := func(body string) (Patch, error) {
		fields := map[string]json.RawMessage{}
		require.NoError(t, json.Unmarshal([]byte(body), &fields))
		return ParsePatch(fields)
	}

	_, err := parse(`{}`)
	assert.True(t, errors.Is(err, shared.ErrNoFieldsProvided))

	_, err = parse(`{"discriminant":"course"}`)
	assert.True(t, errors.Is(err, shared.ErrInvalidField))

	_, err = parse(`{"rate":"five"}`)
	assert.True(t, errors.Is(err, shared.ErrInvalidField))

	patch, err := parse(`{"rate":4,"recommended":false,"comments":null}`)
	require.NoError(t, err)
	require.NotNil(t, patch.Rate)
	assert.Equal(t, 4, *patch.Rate)
	require.NotNil(t, patch.Recommended)
	assert.False(t, *patch.Recommended)
	assert.True(t, patch.ClearComments)

	patch, err = parse(`{"comments":"  "}`)
	require.NoError(t, err)
	assert.True(t, patch.ClearComments)
	assert.False(t, patch.IsEmpty())
}

func TestListFilterCategory(t *testing.T) {
	kind, ok := ListFilter{ShowInstructors: true}.Category()
	assert.True(t, ok)
	assert.Equal(t, DiscriminantInstructor, kind)

	kind, ok = ListFilter{ShowCourses: true}.Category()
	assert.True(t, ok)
	assert.Equal(t, DiscriminantCourse, kind)

	_, ok = ListFilter{ShowInstructors: true, ShowCourses: true}.Category()
	assert.False(t, ok)
	_, ok = ListFilter{}.Category()
	assert.False(t, ok)
}
