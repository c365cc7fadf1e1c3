package repository

import (
	"context"
	"database/sql"
	"fmt"

	"blog_backend/internal/domain/model"
	"blog_backend/internal/platform/database"

	"github.com/google/uuid"
)

type TagRepository interface {
	Create(ctx context.Context, tag *model.Tag) error
	// GetOrCreate returns a tag for every distinct name, inserting the
	// missing ones. Concurrent callers converge on the same rows.
	GetOrCreate(ctx context.Context, tx *sql.Tx, names []string) ([]model.Tag, error)
	List(ctx context.Context) ([]model.Tag, error)
}

type sqlTagRepository struct {
	db *database.DB
}

func NewTagRepository(db *database.DB) TagRepository {
	return &sqlTagRepository{db: db}
}

func (r *sqlTagRepository) Create(ctx context.Context, tag *model.Tag) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO tags (id, name) VALUES (?, ?)`), tag.ID, tag.Name); err != nil {
		return classify("tagRepository.Create", err)
	}
	return nil
}

func (r *sqlTagRepository) GetOrCreate(ctx context.Context, tx *sql.Tx, names []string) ([]model.Tag, error) {
	seen := make(map[string]bool, len(names))
	distinct := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		distinct = append(distinct, n)
	}
	if len(distinct) == 0 {
		return []model.Tag{}, nil
	}

	q := r.db.Q(tx)
	insert := r.db.Rebind(`INSERT INTO tags (id, name) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`)
	for _, n := range distinct {
		if _, err := q.ExecContext(ctx, insert, uuid.NewString(), n); err != nil {
			return nil, fmt.Errorf("tagRepository.GetOrCreate insert %q: %w", n, err)
		}
	}

	args := make([]interface{}, len(distinct))
	for i, n := range distinct {
		args[i] = n
	}
	query := `SELECT id, name FROM tags WHERE name IN (` + placeholders(len(distinct)) + `) ORDER BY name`
	rows, err := q.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("tagRepository.GetOrCreate select: %w", err)
	}
	defer rows.Close()

	tags, err := scanTags(rows)
	if err != nil {
		return nil, fmt.Errorf("tagRepository.GetOrCreate: %w", err)
	}
	if len(tags) != len(distinct) {
		return nil, fmt.Errorf("tagRepository.GetOrCreate: resolved %d of %d tags", len(tags), len(distinct))
	}
	return tags, nil
}

func (r *sqlTagRepository) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("tagRepository.List query: %w", err)
	}
	defer rows.Close()

	tags, err := scanTags(rows)
	if err != nil {
		return nil, fmt.Errorf("tagRepository.List: %w", err)
	}
	return tags, nil
}

func scanTags(rows *sql.Rows) ([]model.Tag, error) {
	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
