package users

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillforge/user-service/internal/platform/db"
	"github.com/skillforge/user-service/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `SELECT id, email, name, is_active, created_at, updated_at FROM users`

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return User{}, shared.Errorf(shared.ErrUserNotFound, "user %s", id)
	}
	return u, err
}

// UserExists reports whether a user row exists.
func (r *Repository) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// ListUsers uses a dynamic query because of the optional filters.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter, sort shared.SortSpec, limit, offset int) ([]User, int, error) {
	where, args := userWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectUser + where + ` ORDER BY ` + sort.Clause() + `, id` +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func userWhere(filter ListFilter) (string, []any) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR email ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filter.Active)
	}
	return where, args
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}
