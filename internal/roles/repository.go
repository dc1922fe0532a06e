package roles

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

const (
	assignmentUserRoleKey = "role_assignment_user_id_role_id_key"
	assignmentUserFK      = "role_assignment_user_id_fkey"
)

const selectAssignment = `SELECT ra.id, ra.user_id, ra.role_id, r.name, ra.assigned_at, ra.expires_at, ra.status
FROM role_assignment ra
JOIN roles r ON r.id = ra.role_id`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := make([]Role, 0, len(RoleNames))
	for rows.Next() {
		var role Role
		var name string
		if err := rows.Scan(&role.ID, &name, &role.Description, &role.CreatedAt); err != nil {
			return nil, err
		}
		role.Name = RoleName(name)
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRoleByName fetches the reference row for name.
func (r *Repository) GetRoleByName(ctx context.Context, name RoleName) (Role, error) {
	var role Role
	var stored string
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at FROM roles WHERE name = $1`, string(name)).
		Scan(&role.ID, &stored, &role.Description, &role.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Role{}, shared.Errorf(shared.ErrRoleNotFound, "role %s", name)
		}
		return Role{}, err
	}
	role.Name = RoleName(stored)
	return role, nil
}

// CreateAssignment inserts a new assignment row.
func (r *Repository) CreateAssignment(ctx context.Context, a Assignment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO role_assignment (id, user_id, role_id, assigned_at, expires_at, status)
VALUES ($1, $2, $3, $4, $5, $6)`, a.ID, a.UserID, a.RoleID, a.AssignedAt, a.ExpiresAt, string(a.Status))
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, assignmentUserRoleKey):
		return shared.Errorf(shared.ErrDuplicateAssignment, "user %s already holds role %s", a.UserID, a.RoleName)
	case db.IsForeignKeyViolation(err, assignmentUserFK):
		return shared.Errorf(shared.ErrUserNotFound, "user %s", a.UserID)
	default:
		return err
	}
}

// GetAssignment fetches an assignment by id.
func (r *Repository) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	a, err := scanAssignment(r.pool.QueryRow(ctx, selectAssignment+` WHERE ra.id = $1`, id))
	if db.IsNoRows(err) {
		return Assignment{}, shared.Errorf(shared.ErrAssignmentNotFound, "assignment %s", id)
	}
	return a, err
}

// GetAssignmentByUserAndRole fetches the assignment of role held by userID.
func (r *Repository) GetAssignmentByUserAndRole(ctx context.Context, userID string, role RoleName) (Assignment, error) {
	a, err := scanAssignment(r.pool.QueryRow(ctx, selectAssignment+` WHERE ra.user_id = $1 AND r.name = $2`, userID, string(role)))
	if db.IsNoRows(err) {
		return Assignment{}, shared.Errorf(shared.ErrAssignmentNotFound, "user %s does not hold role %s", userID, role)
	}
	return a, err
}

// UpdateAssignment applies patch and returns the joined row.
func (r *Repository) UpdateAssignment(ctx context.Context, id string, patch AssignmentPatch) (Assignment, error) {
	query, args := buildAssignmentUpdate(id, patch)
	a, err := scanAssignment(r.pool.QueryRow(ctx, query, args...))
	if db.IsNoRows(err) {
		return Assignment{}, shared.Errorf(shared.ErrAssignmentNotFound, "assignment %s", id)
	}
	return a, err
}

// DeleteAssignment removes an assignment by id and reports affected rows.
func (r *Repository) DeleteAssignment(ctx context.Context, id string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM role_assignment WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAssignmentByUserAndRole removes the assignment of role held by userID.
func (r *Repository) DeleteAssignmentByUserAndRole(ctx context.Context, userID string, role RoleName) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM role_assignment ra
USING roles r
WHERE ra.role_id = r.id AND ra.user_id = $1 AND r.name = $2`, userID, string(role))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListAssignments runs the page and count queries concurrently.
func (r *Repository) ListAssignments(ctx context.Context, filter AssignmentFilter, sort shared.SortSpec, limit, offset int) ([]Assignment, int, error) {
	listSQL, countSQL, args := buildAssignmentList(filter, sort)

	var (
		items []Assignment
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
			a, err := scanAssignment(rows)
			if err != nil {
				return err
			}
			items = append(items, a)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("roles: list assignments: %w", err)
	}
	return items, total, nil
}

// ActiveRoleNames returns the role names userID holds with status active.
func (r *Repository) ActiveRoleNames(ctx context.Context, userID string) ([]RoleName, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.name FROM role_assignment ra
JOIN roles r ON r.id = ra.role_id
WHERE ra.user_id = $1 AND ra.status = 'active'
ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []RoleName
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, RoleName(name))
	}
	return names, rows.Err()
}

func scanAssignment(row pgx.Row) (Assignment, error) {
	var (
		a         Assignment
		roleName  string
		status    string
		expiresAt *time.Time
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.RoleID, &roleName, &a.AssignedAt, &expiresAt, &status); err != nil {
		return Assignment{}, err
	}
	a.RoleName = RoleName(roleName)
	a.Status = Status(status)
	a.AssignedAt = a.AssignedAt.UTC()
	if expiresAt != nil {
		utc := expiresAt.UTC()
		a.ExpiresAt = &utc
	}
	return a, nil
}

// buildAssignmentUpdate renders an UPDATE touching only the patched columns and
// joining the role name back onto the returned row.
func buildAssignmentUpdate(id string, patch AssignmentPatch) (string, []any) {
	args := []any{id}
	sets := make([]string, 0, 2)
	if patch.Status != nil {
		args = append(args, string(*patch.Status))
		sets = append(sets, "status = $"+strconv.Itoa(len(args)))
	}
	switch {
	case patch.ClearExpiresAt:
		sets = append(sets, "expires_at = NULL")
	case patch.ExpiresAt != nil:
		args = append(args, *patch.ExpiresAt)
		sets = append(sets, "expires_at = $"+strconv.Itoa(len(args)))
	}
	query := `WITH updated AS (
	UPDATE role_assignment SET ` + strings.Join(sets, ", ") + ` WHERE id = $1
	RETURNING id, user_id, role_id, assigned_at, expires_at, status
)
SELECT u.id, u.user_id, u.role_id, r.name, u.assigned_at, u.expires_at, u.status
FROM updated u
JOIN roles r ON r.id = u.role_id`
	return query, args
}

// buildAssignmentList returns the page query, the count query and their shared
// filter arguments. The page query expects limit and offset appended to args.
func buildAssignmentList(filter AssignmentFilter, sort shared.SortSpec) (string, string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.UserID != "" {
		add("ra.user_id = ?", filter.UserID)
	}
	if filter.Role != nil {
		add("r.name = ?", string(*filter.Role))
	}
	if filter.Status != nil {
		add("ra.status = ?", string(*filter.Status))
	}
	if filter.AssignedFrom != nil {
		add("ra.assigned_at >= ?", *filter.AssignedFrom)
	}
	if filter.AssignedTo != nil {
		add("ra.assigned_at <= ?", *filter.AssignedTo)
	}
	if filter.ExpiresFrom != nil {
		add("ra.expires_at >= ?", *filter.ExpiresFrom)
	}
	if filter.ExpiresTo != nil {
		add("ra.expires_at <= ?", *filter.ExpiresTo)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}
	countSQL := `SELECT COUNT(*) FROM role_assignment ra JOIN roles r ON r.id = ra.role_id` + whereSQL
	listSQL := selectAssignment + whereSQL +
		" ORDER BY " + sort.Clause() + ", ra.id" +
		" LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	return listSQL, countSQL, args
}
