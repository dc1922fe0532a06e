package reviews

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/user-service/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

// mockRepository keeps committed reviews and links in maps. Writes made inside
// WithTx are staged on a copy and only published when fn succeeds.
type mockRepository struct {
	reviews map[string]Review
	links   map[string]Target

	// Error injection
	insertLinkError error
	listError       error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		reviews: make(map[string]Review),
		links:   make(map[string]Target),
	}
}

type mockTx struct {
	reviews map[string]Review
	links   map[string]Target
	parent  *mockRepository
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &mockTx{
		reviews: make(map[string]Review, len(m.reviews)),
		links:   make(map[string]Target, len(m.links)),
		parent:  m,
	}
	for k, v := range m.reviews {
		tx.reviews[k] = v
	}
	for k, v := range m.links {
		tx.links[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.reviews, m.links = tx.reviews, tx.links
	return nil
}

func (t *mockTx) InsertReview(ctx context.Context, r Review) error {
	r.Target = Target{}
	t.reviews[r.ID] = r
	return nil
}

func (t *mockTx) InsertLink(ctx context.Context, reviewID string, target Target) error {
	if t.parent.insertLinkError != nil {
		return t.parent.insertLinkError
	}
	if _, ok := t.links[reviewID]; ok {
		return fmt.Errorf("link for %s already exists", reviewID)
	}
	t.links[reviewID] = target
	return nil
}

func (t *mockTx) DeleteLink(ctx context.Context, reviewID string) (Target, bool, error) {
	target, ok := t.links[reviewID]
	delete(t.links, reviewID)
	return target, ok, nil
}

func (t *mockTx) DeleteReview(ctx context.Context, reviewID string) (int64, error) {
	if _, ok := t.reviews[reviewID]; !ok {
		return 0, nil
	}
	delete(t.reviews, reviewID)
	return 1, nil
}

func (m *mockRepository) resolve(r Review) (Review, error) {
	target, ok := m.links[r.ID]
	if !ok {
		return Review{}, ErrUnlinkedReview
	}
	r.Target = target
	return r, nil
}

func (m *mockRepository) GetReview(ctx context.Context, id string) (Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return Review{}, shared.Errorf(shared.ErrReviewNotFound, "review %s", id)
	}
	return m.resolve(r)
}

func (m *mockRepository) UpdateReview(ctx context.Context, id string, patch Patch, now time.Time) (Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return Review{}, shared.Errorf(shared.ErrReviewNotFound, "review %s", id)
	}
	if patch.Rate != nil {
		r.Rate = *patch.Rate
	}
	if patch.Recommended != nil {
		r.Recommended = *patch.Recommended
	}
	if patch.ClearComments {
		r.Comments = nil
	}
	if patch.Comments != nil {
		c := *patch.Comments
		r.Comments = &c
	}
	r.UpdatedAt = &now
	m.reviews[id] = r
	return m.resolve(r)
}

func (m *mockRepository) ListReviews(ctx context.Context, filter ListFilter, sortBy shared.SortSpec, limit, offset int) ([]Review, int, error) {
	if m.listError != nil {
		return nil, 0, m.listError
	}
	kind, restricted := filter.Category()
	var matched []Review
	for _, r := range m.reviews {
		if r.ReviewerID != filter.ReviewerID {
			continue
		}
		resolved, err := m.resolve(r)
		if err != nil {
			return nil, 0, err
		}
		if restricted && resolved.Target.Kind() != kind {
			continue
		}
		if filter.ReviewedID != "" && resolved.Target.ID() != filter.ReviewedID {
			continue
		}
		matched = append(matched, resolved)
	}
	sort.Slice(matched, func(i, j int) bool {
		less := matched[i].CreatedAt.Before(matched[j].CreatedAt)
		if sortBy.Key == "rate" {
			less = matched[i].Rate < matched[j].Rate
		}
		if sortBy.Order == shared.OrderDesc {
			return !less
		}
		return less
	})
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

type stubInstructors map[string]bool

func (s stubInstructors) Exists(ctx context.Context, userID string) (bool, error) {
	return s[userID], nil
}

type recordingNotifier struct {
	calls []string
	err   error
}

func (n *recordingNotifier) InstructorReviewsChanged(ctx context.Context, instructorID string) error {
	n.calls = append(n.calls, instructorID)
	return n.err
}

// ============================================================================
// HELPERS
// ============================================================================

func newTestService(repo *mockRepository, instructors stubInstructors, notifier StatsNotifier) *Service {
	svc := NewService(repo, instructors, notifier, nil)
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	var ticks, ids int
	svc.clock = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Minute)
	}
	svc.newID = func() string {
		ids++
		return fmt.Sprintf("00000000-0000-0000-0000-%012d", ids)
	}
	return svc
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// ============================================================================
// TESTS
// ============================================================================

func TestCreateInstructorReview(t *testing.T) {
	repo := newMockRepository()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, stubInstructors{"inst-1": true}, notifier)

	created, err := svc.Create(context.Background(), CreateInput{
		ReviewerID:   "r1",
		ReviewedID:   "inst-1",
		Discriminant: "Instructor",
		Rate:         4,
		Recommended:  true,
		Comments:     strPtr("  clear explanations "),
	})
	require.NoError(t, err)
	assert.Equal(t, DiscriminantInstructor, created.Target.Kind())
	assert.Equal(t, "inst-1", created.Target.ID())
	require.NotNil(t, created.Comments)
	assert.Equal(t, "clear explanations", *created.Comments)
	assert.Equal(t, []string{"inst-1"}, notifier.calls)

	page, err := svc.List(context.Background(), ListFilter{ReviewerID: "r1"}, shared.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	rec := page.Items[0].Record()
	assert.Equal(t, DiscriminantInstructor, rec.Discriminant)
	assert.Equal(t, "inst-1", rec.ReviewedID)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{name: "rate too low", in: CreateInput{ReviewerID: "r1", ReviewedID: "c1", Discriminant: "course", Rate: 0}, want: shared.ErrInvalidField},
		{name: "rate too high", in: CreateInput{ReviewerID: "r1", ReviewedID: "c1", Discriminant: "course", Rate: 6}, want: shared.ErrInvalidField},
		{name: "unknown discriminant", in: CreateInput{ReviewerID: "r1", ReviewedID: "c1", Discriminant: "lesson", Rate: 3}, want: shared.ErrInvalidField},
		{name: "empty reviewed id", in: CreateInput{ReviewerID: "r1", ReviewedID: " ", Discriminant: "course", Rate: 3}, want: shared.ErrInvalidField},
		{name: "empty reviewer", in: CreateInput{ReviewedID: "c1", Discriminant: "course", Rate: 3}, want: shared.ErrInvalidField},
		{name: "missing instructor", in: CreateInput{ReviewerID: "r1", ReviewedID: "nobody", Discriminant: "instructor", Rate: 3}, want: shared.ErrInstructorNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			svc := newTestService(repo, stubInstructors{"inst-1": true}, nil)
			_, err := svc.Create(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, repo.reviews)
			assert.Empty(t, repo.links)
		})
	}
}

func TestCreateRollsBackWhenLinkInsertFails(t *testing.T) {
	repo := newMockRepository()
	repo.insertLinkError = errors.New("connection reset")
	notifier := &recordingNotifier{}
	svc := newTestService(repo, stubInstructors{}, notifier)

	_, err := svc.Create(context.Background(), CreateInput{
		ReviewerID: "r1", ReviewedID: "course-1", Discriminant: "course", Rate: 5,
	})
	require.Error(t, err)
	assert.Empty(t, repo.reviews)
	assert.Empty(t, repo.links)
	assert.Empty(t, notifier.calls)
}

func TestCreateSucceedsWhenNotifierFails(t *testing.T) {
	repo := newMockRepository()
	notifier := &recordingNotifier{err: errors.New("redis unavailable")}
	svc := newTestService(repo, stubInstructors{"inst-1": true}, notifier)

	_, err := svc.Create(context.Background(), CreateInput{
		ReviewerID: "r1", ReviewedID: "inst-1", Discriminant: "instructor", Rate: 2,
	})
	require.NoError(t, err)
	assert.Len(t, repo.reviews, 1)
}

func TestCourseReviewDoesNotNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := newTestService(newMockRepository(), stubInstructors{}, notifier)
	_, err := svc.Create(context.Background(), CreateInput{
		ReviewerID: "r1", ReviewedID: "course-1", Discriminant: "course", Rate: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, notifier.calls)
}

func TestUpdate(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, stubInstructors{}, nil)
	created, err := svc.Create(context.Background(), CreateInput{
		ReviewerID: "r1", ReviewedID: "course-1", Discriminant: "course", Rate: 3, Comments: strPtr("ok"),
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, Patch{})
	assert.True(t, errors.Is(err, shared.ErrNoFieldsProvided))

	_, err = svc.Update(context.Background(), created.ID, Patch{Rate: intPtr(9)})
	assert.True(t, errors.Is(err, shared.ErrInvalidField))

	_, err = svc.Update(context.Background(), "00000000-0000-0000-0000-000000000099", Patch{Rate: intPtr(2)})
	assert.True(t, errors.Is(err, shared.ErrReviewNotFound))

	updated, err := svc.Update(context.Background(), created.ID, Patch{Rate: intPtr(5), ClearComments: true})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rate)
	assert.Nil(t, updated.Comments)
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.Equal(t, CourseTarget("course-1"), updated.Target)
}

func TestDelete(t *testing.T) {
	repo := newMockRepository()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, stubInstructors{"inst-1": true}, notifier)
	created, err := svc.Create(context.Background(), CreateInput{
		ReviewerID: "r1", ReviewedID: "inst-1", Discriminant: "instructor", Rate: 3,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Empty(t, repo.reviews)
	assert.Empty(t, repo.links)
	assert.Equal(t, []string{"inst-1", "inst-1"}, notifier.calls)

	err = svc.Delete(context.Background(), created.ID)
	assert.True(t, errors.Is(err, shared.ErrReviewNotFound))
}

func TestListFilters(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, stubInstructors{"inst-1": true, "inst-2": true}, nil)
	ctx := context.Background()
	inputs := []CreateInput{
		{ReviewerID: "r1", ReviewedID: "inst-1", Discriminant: "instructor", Rate: 4},
		{ReviewerID: "r1", ReviewedID: "inst-2", Discriminant: "instructor", Rate: 2},
		{ReviewerID: "r1", ReviewedID: "course-1", Discriminant: "course", Rate: 5},
		{ReviewerID: "r2", ReviewedID: "course-1", Discriminant: "course", Rate: 1},
	}
	for _, in := range inputs {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   int
	}{
		{name: "all categories", filter: ListFilter{ReviewerID: "r1"}, want: 3},
		{name: "both flags", filter: ListFilter{ReviewerID: "r1", ShowInstructors: true, ShowCourses: true}, want: 3},
		{name: "instructors only", filter: ListFilter{ReviewerID: "r1", ShowInstructors: true}, want: 2},
		{name: "courses only", filter: ListFilter{ReviewerID: "r1", ShowCourses: true}, want: 1},
		{name: "reviewed id", filter: ListFilter{ReviewerID: "r1", ReviewedID: "inst-2"}, want: 1},
		{name: "other reviewer", filter: ListFilter{ReviewerID: "r2"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(ctx, tt.filter, shared.PageRequest{})
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.want)
			assert.Equal(t, tt.want, page.Pagination.Total)
			for _, r := range page.Items {
				assert.False(t, r.Target.IsZero())
			}
		})
	}

	page, err := svc.List(ctx, ListFilter{ReviewerID: "r1"}, shared.PageRequest{Sort: "rate", Order: "asc", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Items[0].Rate)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)

	_, err = svc.List(ctx, ListFilter{}, shared.PageRequest{})
	assert.True(t, errors.Is(err, shared.ErrInvalidField))

	_, err = svc.List(ctx, ListFilter{ReviewerID: "r1"}, shared.PageRequest{Sort: "reviewer_id"})
	assert.True(t, errors.Is(err, shared.ErrInvalidSortField))
}

func TestCourseReviewLifecycle(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, stubInstructors{}, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		ReviewerID: "r1", ReviewedID: "course-9", Discriminant: "course", Rate: 5, Recommended: true,
	})
	require.NoError(t, err)
	assert.Empty(t, created.Record().Comments)

	updated, err := svc.Update(ctx, created.ID, Patch{Comments: strPtr("great")})
	require.NoError(t, err)
	assert.Equal(t, "great", updated.Record().Comments)

	require.NoError(t, svc.Delete(ctx, created.ID))

	page, err := svc.List(ctx, ListFilter{ReviewerID: "r1"}, shared.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Pagination.Total)
}
