package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

// UserRepository is the principal store.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter domain.UserFilter) (*domain.UserPage, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `u.id, u.name, u.email, u.password_hash, u.deleted, u.created_at, u.updated_at, r.id, r.name`

var sortColumns = map[string]string{
	"id":        "u.id",
	"name":      "u.name",
	"email":     "u.email",
	"createdAt": "u.created_at",
}

// likeEscaper makes an email filter match literally inside ILIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role.ID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return mapWriteError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, role_id=$4, updated_at=NOW()
        WHERE id=$5 AND deleted=FALSE`

	cmd, err := r.db.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role.ID,
		user.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.setDeleted(ctx, id, true)
}

func (r *userRepository) Restore(ctx context.Context, id int64) error {
	return r.setDeleted(ctx, id, false)
}

func (r *userRepository) setDeleted(ctx context.Context, id int64, deleted bool) error {
	const query = `
        UPDATE users SET deleted=$1, updated_at=NOW()
        WHERE id=$2 AND deleted<>$1`

	cmd, err := r.db.Exec(ctx, query, deleted, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
        FROM users u JOIN roles r ON r.id = u.role_id
        WHERE u.id=$1 AND u.deleted=FALSE`
	return r.getOne(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
        FROM users u JOIN roles r ON r.id = u.role_id
        WHERE u.email=$1 AND u.deleted=FALSE`
	return r.getOne(ctx, query, email)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1 AND deleted=FALSE)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *userRepository) List(ctx context.Context, filter domain.UserFilter) (*domain.UserPage, error) {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "u.id"
	}
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	pattern := "%" + likeEscaper.Replace(filter.EmailFilter) + "%"

	var total int64
	const countQuery = `SELECT COUNT(*) FROM users u WHERE u.deleted=FALSE AND u.email ILIKE $1 ESCAPE '\'`
	if err := r.db.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s
        FROM users u JOIN roles r ON r.id = u.role_id
        WHERE u.deleted=FALSE AND u.email ILIKE $1 ESCAPE '\'
        ORDER BY %s %s
        LIMIT $2 OFFSET $3`, userColumns, column, direction)

	rows, err := r.db.Query(ctx, query, pattern, filter.Size, filter.Page*filter.Size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, filter.Size)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	perms := make(map[int64][]string)
	for i := range users {
		roleID := users[i].Role.ID
		if _, ok := perms[roleID]; !ok {
			names, err := rolePermissions(ctx, r.db, roleID)
			if err != nil {
				return nil, err
			}
			perms[roleID] = names
		}
		users[i].Role.Permissions = perms[roleID]
	}

	return &domain.UserPage{Items: users, Page: filter.Page, Size: filter.Size, TotalItems: total}, nil
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	user.Role.Permissions, err = rolePermissions(ctx, r.db, user.Role.ID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Deleted,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Role.ID,
		&user.Role.Name,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
