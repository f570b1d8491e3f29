package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

// RoleRepository persists roles and their permission sets.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	// Create inserts the role or returns the existing row with that name.
	Create(ctx context.Context, role *domain.Role) error
	// ReplacePermissions atomically swaps the role's permission set,
	// creating unknown permission rows.
	ReplacePermissions(ctx context.Context, roleID int64, permissions []string) error
	// AddPermissions grants permissions to the role without removing any,
	// creating unknown permission rows. Concurrent grants never overwrite
	// each other.
	AddPermissions(ctx context.Context, roleID int64, permissions []string) error
	// MissingPermissions returns the names that have no permission row.
	MissingPermissions(ctx context.Context, names []string) ([]string, error)
}

type roleRepository struct {
	db DB
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(db DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	const query = `SELECT id, name FROM roles WHERE name=$1`

	var role domain.Role
	if err := r.db.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name); err != nil {
		return nil, err
	}
	perms, err := rolePermissions(ctx, r.db, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return &role, nil
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (name) VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
        RETURNING id`
	return r.db.QueryRow(ctx, query, role.Name).Scan(&role.ID)
}

func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID int64, permissions []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
        INSERT INTO permissions (name) SELECT UNNEST($1::text[])
        ON CONFLICT (name) DO NOTHING`, permissions); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id=$1`, roleID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
        INSERT INTO role_permissions (role_id, permission_id)
        SELECT $1, id FROM permissions WHERE name = ANY($2)`, roleID, permissions); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *roleRepository) AddPermissions(ctx context.Context, roleID int64, permissions []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
        INSERT INTO permissions (name) SELECT UNNEST($1::text[])
        ON CONFLICT (name) DO NOTHING`, permissions); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
        INSERT INTO role_permissions (role_id, permission_id)
        SELECT $1, id FROM permissions WHERE name = ANY($2)
        ON CONFLICT DO NOTHING`, roleID, permissions); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *roleRepository) MissingPermissions(ctx context.Context, names []string) ([]string, error) {
	const query = `
        SELECT n FROM UNNEST($1::text[]) AS n
        WHERE NOT EXISTS (SELECT 1 FROM permissions p WHERE p.name = n)`

	rows, err := r.db.Query(ctx, query, names)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func rolePermissions(ctx context.Context, db DB, roleID int64) ([]string, error) {
	const query = `
        SELECT p.name FROM permissions p
        JOIN role_permissions rp ON rp.permission_id = p.id
        WHERE rp.role_id=$1
        ORDER BY p.name`

	rows, err := db.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
