package reviews

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/skillforge/user-service/internal/platform/db"
	"github.com/skillforge/user-service/internal/shared"
)

const instructorLinkFK = "instructor_review_link_instructor_id_fkey"

const selectReview = `SELECT rv.id, rv.reviewer_id, rv.rate, rv.recommended, rv.comments, rv.created_at, rv.updated_at,
	irl.instructor_id, crl.course_id
FROM review rv
LEFT JOIN instructor_review_link irl ON irl.review_id = rv.id
LEFT JOIN course_review_link crl ON crl.review_id = rv.id`

const reviewFrom = `FROM review rv
LEFT JOIN instructor_review_link irl ON irl.review_id = rv.id
LEFT JOIN course_review_link crl ON crl.review_id = rv.id`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a database transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) InsertReview(ctx context.Context, r Review) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO review (id, reviewer_id, rate, recommended, comments, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, r.ID, r.ReviewerID, r.Rate, r.Recommended, r.Comments, r.CreatedAt)
	return err
}

func (t *txRepo) InsertLink(ctx context.Context, reviewID string, target Target) error {
	switch target.Kind() {
	case DiscriminantInstructor:
		_, err := t.tx.Exec(ctx, `INSERT INTO instructor_review_link (review_id, instructor_id) VALUES ($1, $2)`, reviewID, target.ID())
		if db.IsForeignKeyViolation(err, instructorLinkFK) {
			return shared.Errorf(shared.ErrInstructorNotFound, "instructor %s", target.ID())
		}
		return err
	case DiscriminantCourse:
		_, err := t.tx.Exec(ctx, `INSERT INTO course_review_link (review_id, course_id) VALUES ($1, $2)`, reviewID, target.ID())
		return err
	default:
		return fmt.Errorf("reviews: insert link: unknown target %q", target.Kind())
	}
}

// DeleteLink removes whichever link row the review has and reports its target.
func (t *txRepo) DeleteLink(ctx context.Context, reviewID string) (Target, bool, error) {
	var instructorID string
	err := t.tx.QueryRow(ctx, `DELETE FROM instructor_review_link WHERE review_id = $1 RETURNING instructor_id`, reviewID).Scan(&instructorID)
	switch {
	case err == nil:
		return InstructorTarget(instructorID), true, nil
	case !db.IsNoRows(err):
		return Target{}, false, err
	}

	var courseID string
	err = t.tx.QueryRow(ctx, `DELETE FROM course_review_link WHERE review_id = $1 RETURNING course_id`, reviewID).Scan(&courseID)
	switch {
	case err == nil:
		return CourseTarget(courseID), true, nil
	case db.IsNoRows(err):
		return Target{}, false, nil
	default:
		return Target{}, false, err
	}
}

func (t *txRepo) DeleteReview(ctx context.Context, reviewID string) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM review WHERE id = $1`, reviewID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetReview fetches a review with its resolved target.
func (r *Repository) GetReview(ctx context.Context, id string) (Review, error) {
	rv, err := scanReview(r.pool.QueryRow(ctx, selectReview+` WHERE rv.id = $1`, id))
	if db.IsNoRows(err) {
		return Review{}, shared.Errorf(shared.ErrReviewNotFound, "review %s", id)
	}
	return rv, err
}

// UpdateReview applies patch and returns the refreshed review.
func (r *Repository) UpdateReview(ctx context.Context, id string, patch Patch, now time.Time) (Review, error) {
	query, args := buildReviewUpdate(id, patch, now)
	rv, err := scanReview(r.pool.QueryRow(ctx, query, args...))
	if db.IsNoRows(err) {
		return Review{}, shared.Errorf(shared.ErrReviewNotFound, "review %s", id)
	}
	return rv, err
}

// ListReviews runs the page and count queries concurrently.
func (r *Repository) ListReviews(ctx context.Context, filter ListFilter, sort shared.SortSpec, limit, offset int) ([]Review, int, error) {
	listSQL, countSQL, args := buildReviewList(filter, sort)

	var (
		items []Review
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, countSQL, args...).Scan(&total)
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), limit, offset)
		rows, err := r.pool.Query(gctx, listSQL, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rv, err := scanReview(rows)
			if err != nil {
				return err
			}
			items = append(items, rv)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("reviews: list: %w", err)
	}
	return items, total, nil
}

func scanReview(row pgx.Row) (Review, error) {
	var (
		rv           Review
		updatedAt    *time.Time
		instructorID *string
		courseID     *string
	)
	if err := row.Scan(&rv.ID, &rv.ReviewerID, &rv.Rate, &rv.Recommended, &rv.Comments,
		&rv.CreatedAt, &updatedAt, &instructorID, &courseID); err != nil {
		return Review{}, err
	}
	target, err := ResolveTarget(instructorID, courseID)
	if err != nil {
		return Review{}, fmt.Errorf("review %s: %w", rv.ID, err)
	}
	rv.Target = target
	rv.CreatedAt = rv.CreatedAt.UTC()
	if updatedAt != nil {
		utc := updatedAt.UTC()
		rv.UpdatedAt = &utc
	}
	return rv, nil
}

// buildReviewUpdate renders an UPDATE of the patched columns that returns the
// row joined with its links.
func buildReviewUpdate(id string, patch Patch, now time.Time) (string, []any) {
	args := []any{id, now}
	sets := []string{"updated_at = $2"}
	if patch.Rate != nil {
		args = append(args, *patch.Rate)
		sets = append(sets, "rate = $"+strconv.Itoa(len(args)))
	}
	if patch.Recommended != nil {
		args = append(args, *patch.Recommended)
		sets = append(sets, "recommended = $"+strconv.Itoa(len(args)))
	}
	switch {
	case patch.ClearComments:
		sets = append(sets, "comments = NULL")
	case patch.Comments != nil:
		args = append(args, *patch.Comments)
		sets = append(sets, "comments = $"+strconv.Itoa(len(args)))
	}
	query := `WITH rv AS (
	UPDATE review SET ` + strings.Join(sets, ", ") + ` WHERE id = $1
	RETURNING id, reviewer_id, rate, recommended, comments, created_at, updated_at
)
SELECT rv.id, rv.reviewer_id, rv.rate, rv.recommended, rv.comments, rv.created_at, rv.updated_at,
	irl.instructor_id, crl.course_id
FROM rv
LEFT JOIN instructor_review_link irl ON irl.review_id = rv.id
LEFT JOIN course_review_link crl ON crl.review_id = rv.id`
	return query, args
}

// buildReviewList returns the page query, the count query and their shared
// filter arguments. The page query expects limit and offset appended to args.
func buildReviewList(filter ListFilter, sort shared.SortSpec) (string, string, []any) {
	args := []any{filter.ReviewerID}
	where := []string{"rv.reviewer_id = $1"}
	if kind, ok := filter.Category(); ok {
		switch kind {
		case DiscriminantInstructor:
			where = append(where, "irl.instructor_id IS NOT NULL")
		case DiscriminantCourse:
			where = append(where, "irl.instructor_id IS NULL AND crl.course_id IS NOT NULL")
		}
	}
	if filter.ReviewedID != "" {
		args = append(args, filter.ReviewedID)
		n := "$" + strconv.Itoa(len(args))
		where = append(where, "(irl.instructor_id = "+n+" OR crl.course_id = "+n+")")
	}

	whereSQL := " WHERE " + strings.Join(where, " AND ")
	countSQL := `SELECT COUNT(*) ` + reviewFrom + whereSQL
	listSQL := selectReview + whereSQL +
		" ORDER BY " + sort.Clause() + ", rv.id" +
		" LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	return listSQL, countSQL, args
}
