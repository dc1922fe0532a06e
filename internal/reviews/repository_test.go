package reviews

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReviewList(t *testing.T) {
	sort, err := reviewSortFields.Resolve("", "")
	require.NoError(t, err)

	listSQL, countSQL, args := buildReviewList(ListFilter{ReviewerID: "r1"}, sort)
	assert.Contains(t, countSQL, "WHERE rv.reviewer_id = $1")
	assert.NotContains(t, countSQL, "irl.instructor_id IS")
	assert.Contains(t, listSQL, "ORDER BY rv.created_at DESC, rv.id LIMIT $2 OFFSET $3")
	assert.Equal(t, []any{"r1"}, args)

	_, countSQL, _ = buildReviewList(ListFilter{ReviewerID: "r1", ShowInstructors: true}, sort)
	assert.Contains(t, countSQL, "AND irl.instructor_id IS NOT NULL")

	listSQL, countSQL, args = buildReviewList(ListFilter{ReviewerID: "r1", ShowCourses: true, ReviewedID: "c-1"}, sort)
	assert.Contains(t, countSQL, "AND irl.instructor_id IS NULL AND crl.course_id IS NOT NULL")
	assert.Contains(t, countSQL, "(irl.instructor_id = $2 OR crl.course_id = $2)")
	assert.Contains(t, listSQL, "LIMIT $3 OFFSET $4")
	assert.Equal(t, []any{"r1", "c-1"}, args)
}

func TestBuildReviewUpdate(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rate := 2
	query, args := buildReviewUpdate("rv-1", Patch{Rate: &rate, ClearComments: true}, now)
	assert.Contains(t, query, "SET updated_at = $2, rate = $3, comments = NULL WHERE id = $1")
	assert.Contains(t, query, "LEFT JOIN course_review_link crl")
	assert.Equal(t, []any{"rv-1", now, 2}, args)
}
