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

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	FindByID(ctx context.Context, id string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	// Delete fails with common.ErrIntegrityViolation while posts reference
	// the category.
	Delete(ctx context.Context, id string) error
}

type sqlCategoryRepository struct {
	db *database.DB
}

func NewCategoryRepository(db *database.DB) CategoryRepository {
	return &sqlCategoryRepository{db: db}
}

func (r *sqlCategoryRepository) Create(ctx context.Context, c *model.Category) error {
	query := `INSERT INTO categories (id, name, slug) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), c.ID, c.Name, c.Slug); err != nil {
		return classify("categoryRepository.Create", err)
	}
	return nil
}

func (r *sqlCategoryRepository) FindByID(ctx context.Context, id string) (*model.Category, error) {
	if !validID(id) {
		return nil, common.ErrNotFound
	}
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT id, name, slug FROM categories WHERE id = ?`), id).
		Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("categoryRepository.FindByID: %w", err)
	}
	return c, nil
}

func (r *sqlCategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("categoryRepository.List query: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("categoryRepository.List scan: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("categoryRepository.List rows.Err: %w", err)
	}
	return categories, nil
}

func (r *sqlCategoryRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM categories WHERE id = ?`), id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("category %s is referenced by posts: %w", id, common.ErrIntegrityViolation)
		}
		return fmt.Errorf("categoryRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
