package reviews

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/user-service/internal/shared"
)

// TxRepository exposes the writes that must commit together.
type TxRepository interface {
	InsertReview(ctx context.Context, r Review) error
	InsertLink(ctx context.Context, reviewID string, target Target) error
	DeleteLink(ctx context.Context, reviewID string) (Target, bool, error)
	DeleteReview(ctx context.Context, reviewID string) (int64, error)
}

// RepositoryPort defines data access methods for reviews.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetReview(ctx context.Context, id string) (Review, error)
	UpdateReview(ctx context.Context, id string, patch Patch, now time.Time) (Review, error)
	ListReviews(ctx context.Context, filter ListFilter, sort shared.SortSpec, limit, offset int) ([]Review, int, error)
}

// InstructorDirectory answers whether an instructor record exists.
type InstructorDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// StatsNotifier is told when the reviews of an instructor change.
type StatsNotifier interface {
	InstructorReviewsChanged(ctx context.Context, instructorID string) error
}

// Service handles review business logic.
type Service struct {
	repo        RepositoryPort
	instructors InstructorDirectory
	notifier    StatsNotifier
	logger      *slog.Logger
	clock       func() time.Time
	newID       func() string
}

// NewService builds Service instance. notifier may be nil.
func NewService(repo RepositoryPort, instructors InstructorDirectory, notifier StatsNotifier, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		instructors: instructors,
		notifier:    notifier,
		logger:      logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		newID: func() string {
			return uuid.NewString()
		},
	}
}

// Create validates in and writes the review together with its link row.
func (s *Service) Create(ctx context.Context, in CreateInput) (Review, error) {
	reviewerID := strings.TrimSpace(in.ReviewerID)
	if reviewerID == "" {
		return Review{}, shared.Errorf(shared.ErrInvalidField, "reviewerId is required")
	}
	target, err := NewTarget(in.Discriminant, in.ReviewedID)
	if err != nil {
		return Review{}, err
	}
	if err := validateRate(in.Rate); err != nil {
		return Review{}, err
	}
	if target.IsInstructor() {
		exists, err := s.instructors.Exists(ctx, target.ID())
		if err != nil {
			return Review{}, err
		}
		if !exists {
			return Review{}, shared.Errorf(shared.ErrInstructorNotFound, "instructor %s", target.ID())
		}
	}

	review := Review{
		ID:          s.newID(),
		ReviewerID:  reviewerID,
		Target:      target,
		Rate:        in.Rate,
		Recommended: in.Recommended,
		Comments:    normalizeComments(in.Comments),
		CreatedAt:   s.clock(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertReview(ctx, review); err != nil {
			return err
		}
		return tx.InsertLink(ctx, review.ID, review.Target)
	})
	if err != nil {
		return Review{}, err
	}

	s.log().Info("review created",
		slog.String("review_id", review.ID),
		slog.String("reviewer_id", reviewerID),
		slog.String("discriminant", string(target.Kind())),
		slog.String("reviewed_id", target.ID()))
	s.notify(ctx, target)
	return review, nil
}

// Get returns one review.
func (s *Service) Get(ctx context.Context, id string) (Review, error) {
	return s.repo.GetReview(ctx, id)
}

// Update applies patch to the review identified by id.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Review, error) {
	if patch.IsEmpty() {
		return Review{}, shared.Errorf(shared.ErrNoFieldsProvided, "provide rate, recommended or comments")
	}
	if patch.Rate != nil {
		if err := validateRate(*patch.Rate); err != nil {
			return Review{}, err
		}
	}
	if patch.Comments != nil {
		patch.Comments = normalizeComments(patch.Comments)
		if patch.Comments == nil {
			patch.ClearComments = true
		}
	}
	updated, err := s.repo.UpdateReview(ctx, id, patch, s.clock())
	if err != nil {
		return Review{}, err
	}
	s.log().Info("review updated", slog.String("review_id", updated.ID))
	if patch.Rate != nil {
		s.notify(ctx, updated.Target)
	}
	return updated, nil
}

// Delete removes the review and its link row.
func (s *Service) Delete(ctx context.Context, id string) error {
	var (
		target Target
		linked bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, ok, err := tx.DeleteLink(ctx, id)
		if err != nil {
			return err
		}
		affected, err := tx.DeleteReview(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return shared.Errorf(shared.ErrReviewNotFound, "review %s", id)
		}
		target, linked = t, ok
		return nil
	})
	if err != nil {
		return err
	}
	s.log().Info("review deleted", slog.String("review_id", id))
	if linked {
		s.notify(ctx, target)
	}
	return nil
}

// List returns one page of the reviews written by filter.ReviewerID.
func (s *Service) List(ctx context.Context, filter ListFilter, req shared.PageRequest) (shared.Page[Review], error) {
	filter.ReviewerID = strings.TrimSpace(filter.ReviewerID)
	if filter.ReviewerID == "" {
		return shared.Page[Review]{}, shared.Errorf(shared.ErrInvalidField, "reviewerId is required")
	}
	filter.ReviewedID = strings.TrimSpace(filter.ReviewedID)
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return shared.Page[Review]{}, err
	}
	sort, err := reviewSortFields.Resolve(req.Sort, req.Order)
	if err != nil {
		return shared.Page[Review]{}, err
	}
	items, total, err := s.repo.ListReviews(ctx, filter, sort, req.Limit, req.Offset())
	if err != nil {
		return shared.Page[Review]{}, err
	}
	return shared.NewPage(items, req, total), nil
}

func (s *Service) notify(ctx context.Context, target Target) {
	if s.notifier == nil || !target.IsInstructor() {
		return
	}
	if err := s.notifier.InstructorReviewsChanged(ctx, target.ID()); err != nil {
		s.log().Warn("enqueue instructor stats refresh",
			slog.String("instructor_id", target.ID()),
			slog.Any("error", err))
	}
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func normalizeComments(c *string) *string {
	if c == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*c)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
