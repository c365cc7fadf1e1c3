package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"blog_backend/internal/common"
	"blog_backend/internal/domain/model"
	"blog_backend/internal/platform/database"
)

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *model.User) error
	Update(ctx context.Context, tx *sql.Tx, user *model.User) error
	Delete(ctx context.Context, tx *sql.Tx, id string) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	ListNonStaff(ctx context.Context) ([]model.User, error)
}

type sqlUserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) UserRepository {
	return &sqlUserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, is_staff, is_active, bio, profile_pic, date_joined`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &u.IsActive,
		&u.Bio, &u.ProfilePic, &u.DateJoined)
	if err != nil {
		return nil, err
	}
	u.DateJoined = u.DateJoined.UTC()
	return u, nil
}

func (r *sqlUserRepository) Create(ctx context.Context, tx *sql.Tx, u *model.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Q(tx).ExecContext(ctx, r.db.Rebind(query),
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsStaff, u.IsActive, u.Bio, u.ProfilePic, u.DateJoined)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("user %q already exists: %w", u.Username, common.ErrConflict)
		}
		return fmt.Errorf("userRepository.Create: %w", err)
	}
	return nil
}

func (r *sqlUserRepository) Update(ctx context.Context, tx *sql.Tx, u *model.User) error {
	query := `UPDATE users SET username = ?, email = ?, bio = ?, profile_pic = ?, is_active = ?
	          WHERE id = ?`
	res, err := r.db.Q(tx).ExecContext(ctx, r.db.Rebind(query),
		u.Username, u.Email, u.Bio, u.ProfilePic, u.IsActive, u.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("user %q already exists: %w", u.Username, common.ErrConflict)
		}
		return fmt.Errorf("userRepository.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete removes the user and, through the foreign key, their posts. Tokens
// are left in place; they stop resolving once the user row is gone.
func (r *sqlUserRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	if !validID(id) {
		return common.ErrNotFound
	}
	res, err := r.db.Q(tx).ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return classify("userRepository.Delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *sqlUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, common.ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("userRepository.FindByID: %w", err)
	}
	return u, nil
}

func (r *sqlUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, r.db.Rebind(query), username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("userRepository.FindByUsername: %w", err)
	}
	return u, nil
}

func (r *sqlUserRepository) ListNonStaff(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_staff = ? ORDER BY date_joined, id`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), false)
	if err != nil {
		return nil, fmt.Errorf("userRepository.ListNonStaff query: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("userRepository.ListNonStaff scan: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepository.ListNonStaff rows.Err: %w", err)
	}
	return users, nil
}
