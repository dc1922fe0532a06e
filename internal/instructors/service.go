package instructors

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/skillforge/user-service/internal/shared"
)

// RepositoryPort defines data access methods for instructors.
type RepositoryPort interface {
	CreateInstructor(ctx context.Context, in Instructor) error
	GetInstructor(ctx context.Context, userID string) (Instructor, error)
	InstructorExists(ctx context.Context, userID string) (bool, error)
	ListInstructors(ctx context.Context, filter ListFilter, sort shared.SortSpec, limit, offset int) ([]Instructor, int, error)
	UpdateVerification(ctx context.Context, userID string, status VerificationStatus, verifiedAt *time.Time, now time.Time) (Instructor, error)
	RefreshReviewStats(ctx context.Context, userID string, now time.Time) (Instructor, error)
	ListInstructorIDs(ctx context.Context) ([]string, error)
}

// UserDirectory answers whether a user exists.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// Service handles instructor verification and review counters.
type Service struct {
	repo   RepositoryPort
	users  UserDirectory
	logger *slog.Logger
	clock  func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, users UserDirectory, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Apply opens a pending instructor record for userID.
func (s *Service) Apply(ctx context.Context, userID string) (Instructor, error) {
	userID = strings.TrimSpace(userID)
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return Instructor{}, err
	}
	if !exists {
		return Instructor{}, shared.Errorf(shared.ErrUserNotFound, "user %s", userID)
	}
	now := s.clock()
	in := Instructor{
		UserID:             userID,
		VerificationStatus: StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.CreateInstructor(ctx, in); err != nil {
		return Instructor{}, err
	}
	s.log().Info("instructor application opened", slog.String("user_id", userID))
	return in, nil
}

// Get returns the instructor record of userID.
func (s *Service) Get(ctx context.Context, userID string) (Instructor, error) {
	return s.repo.GetInstructor(ctx, strings.TrimSpace(userID))
}

// Exists reports whether userID has an instructor record.
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}
	return s.repo.InstructorExists(ctx, userID)
}

// List returns one page of instructors.
func (s *Service) List(ctx context.Context, filter ListFilter, req shared.PageRequest) (shared.Page[Instructor], error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return shared.Page[Instructor]{}, err
	}
	sort, err := instructorSortFields.Resolve(req.Sort, req.Order)
	if err != nil {
		return shared.Page[Instructor]{}, err
	}
	if filter.MinRating != nil && (*filter.MinRating < 0 || *filter.MinRating > 5) {
		return shared.Page[Instructor]{}, shared.Errorf(shared.ErrInvalidField, "minRating must be between 0 and 5")
	}
	items, total, err := s.repo.ListInstructors(ctx, filter, sort, req.Limit, req.Offset())
	if err != nil {
		return shared.Page[Instructor]{}, err
	}
	return shared.NewPage(items, req, total), nil
}

// UpdateVerification moves the record to status. Verifying stamps verified_at;
// any other status clears it.
func (s *Service) UpdateVerification(ctx context.Context, userID, status string) (Instructor, error) {
	parsed, err := ParseVerificationStatus(status)
	if err != nil {
		return Instructor{}, err
	}
	now := s.clock()
	var verifiedAt *time.Time
	if parsed == StatusVerified {
		verifiedAt = &now
	}
	in, err := s.repo.UpdateVerification(ctx, strings.TrimSpace(userID), parsed, verifiedAt, now)
	if err != nil {
		return Instructor{}, err
	}
	s.log().Info("instructor verification updated",
		slog.String("user_id", in.UserID),
		slog.String("status", string(parsed)))
	return in, nil
}

// RefreshReviewStats recomputes total_reviews and average_rating for userID.
func (s *Service) RefreshReviewStats(ctx context.Context, userID string) (Instructor, error) {
	return s.repo.RefreshReviewStats(ctx, userID, s.clock())
}

// RefreshAllReviewStats recomputes counters for every instructor and returns
// how many records were refreshed. Instructors deleted mid-run are skipped.
func (s *Service) RefreshAllReviewStats(ctx context.Context) (int, error) {
	ids, err := s.repo.ListInstructorIDs(ctx)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := s.repo.RefreshReviewStats(ctx, id, s.clock()); err != nil {
			if errors.Is(err, shared.ErrInstructorNotFound) {
				s.log().Info("instructor removed before stats refresh", slog.String("user_id", id))
				continue
			}
			return refreshed, err
		}
		refreshed++
	}
	return refreshed, nil
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
