package instructors

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillforge/user-service/internal/platform/db"
	"github.com/skillforge/user-service/internal/shared"
)

const (
	instructorPKey   = "instructor_pkey"
	instructorUserFK = "instructor_user_id_fkey"
)

const instructorColumns = `user_id, total_students, total_courses, total_reviews, average_rating,
	verification_status, verified_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateInstructor inserts a new instructor record.
func (r *Repository) CreateInstructor(ctx context.Context, in Instructor) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO instructor (user_id, verification_status, created_at, updated_at)
VALUES ($1, $2, $3, $4)`, in.UserID, string(in.VerificationStatus), in.CreatedAt, in.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, instructorPKey):
		return shared.Errorf(shared.ErrDuplicateInstructor, "user %s", in.UserID)
	case db.IsForeignKeyViolation(err, instructorUserFK):
		return shared.Errorf(shared.ErrUserNotFound, "user %s", in.UserID)
	default:
		return err
	}
}

// GetInstructor fetches the record of userID.
func (r *Repository) GetInstructor(ctx context.Context, userID string) (Instructor, error) {
	in, err := scanInstructor(r.pool.QueryRow(ctx, `SELECT `+instructorColumns+` FROM instructor WHERE user_id = $1`, userID))
	if db.IsNoRows(err) {
		return Instructor{}, shared.Errorf(shared.ErrInstructorNotFound, "instructor %s", userID)
	}
	return in, err
}

// InstructorExists reports whether userID has an instructor record.
func (r *Repository) InstructorExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM instructor WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}

// ListInstructors uses a dynamic query because of the optional filters.
func (r *Repository) ListInstructors(ctx context.Context, filter ListFilter, sort shared.SortSpec, limit, offset int) ([]Instructor, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where += ` AND verification_status = $` + strconv.Itoa(len(args))
	}
	if filter.MinRating != nil {
		args = append(args, *filter.MinRating)
		where += ` AND average_rating >= $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM instructor`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + instructorColumns + ` FROM instructor` + where +
		` ORDER BY ` + sort.Clause() + `, user_id` +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Instructor
	for rows.Next() {
		in, err := scanInstructor(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, in)
	}
	return out, total, rows.Err()
}

// UpdateVerification sets the verification status and timestamp.
func (r *Repository) UpdateVerification(ctx context.Context, userID string, status VerificationStatus, verifiedAt *time.Time, now time.Time) (Instructor, error) {
	in, err := scanInstructor(r.pool.QueryRow(ctx, `UPDATE instructor
SET verification_status = $2, verified_at = $3, updated_at = $4
WHERE user_id = $1
RETURNING `+instructorColumns, userID, string(status), verifiedAt, now))
	if db.IsNoRows(err) {
		return Instructor{}, shared.Errorf(shared.ErrInstructorNotFound, "instructor %s", userID)
	}
	return in, err
}

// RefreshReviewStats recomputes the review counters from the link table.
func (r *Repository) RefreshReviewStats(ctx context.Context, userID string, now time.Time) (Instructor, error) {
	in, err := scanInstructor(r.pool.QueryRow(ctx, `UPDATE instructor i
SET total_reviews = s.total, average_rating = s.average, updated_at = $2
FROM (
	SELECT COUNT(rv.id)::int AS total, COALESCE(AVG(rv.rate), 0)::float8 AS average
	FROM instructor_review_link l
	JOIN review rv ON rv.id = l.review_id
	WHERE l.instructor_id = $1
) s
WHERE i.user_id = $1
RETURNING i.user_id, i.total_students, i.total_courses, i.total_reviews, i.average_rating,
	i.verification_status, i.verified_at, i.created_at, i.updated_at`, userID, now))
	if db.IsNoRows(err) {
		return Instructor{}, shared.Errorf(shared.ErrInstructorNotFound, "instructor %s", userID)
	}
	return in, err
}

// ListInstructorIDs returns every instructor user id.
func (r *Repository) ListInstructorIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM instructor ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanInstructor(row pgx.Row) (Instructor, error) {
	var (
		in     Instructor
		status string
	)
	err := row.Scan(&in.UserID, &in.TotalStudents, &in.TotalCourses, &in.TotalReviews, &in.AverageRating,
		&status, &in.VerifiedAt, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return Instructor{}, err
	}
	in.VerificationStatus = VerificationStatus(status)
	return in, nil
}
