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

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *model.Post) error
	Update(ctx context.Context, tx *sql.Tx, post *model.Post) error
	Delete(ctx context.Context, tx *sql.Tx, id string) error
	FindByID(ctx context.Context, id string) (*model.Post, error)
	// ReplaceTags makes tagIDs the post's complete tag set.
	ReplaceTags(ctx context.Context, tx *sql.Tx, postID string, tagIDs []string) error
	// Query returns one page of matching posts with their tags, and the
	// number of posts matching regardless of paging.
	Query(ctx context.Context, q PostQuery) ([]model.Post, int, error)
}

type sqlPostRepository struct {
	db *database.DB
}

func NewPostRepository(db *database.DB) PostRepository {
	return &sqlPostRepository{db: db}
}

func (r *sqlPostRepository) Create(ctx context.Context, tx *sql.Tx, p *model.Post) error {
	query := `INSERT INTO posts (id, title, slug, content, author_id, category_id, created_at, published_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Q(tx).ExecContext(ctx, r.db.Rebind(query),
		p.ID, p.Title, p.Slug, p.Content, p.AuthorID, p.CategoryID, p.CreatedAt, nullTime(p))
	if err != nil {
		return classify("postRepository.Create", err)
	}
	return nil
}

// Update writes every mutable column. created_at and author_id never change.
func (r *sqlPostRepository) Update(ctx context.Context, tx *sql.Tx, p *model.Post) error {
	query := `UPDATE posts SET title = ?, slug = ?, content = ?, category_id = ?, published_at = ?
	          WHERE id = ?`
	res, err := r.db.Q(tx).ExecContext(ctx, r.db.Rebind(query),
		p.Title, p.Slug, p.Content, p.CategoryID, nullTime(p), p.ID)
	if err != nil {
		return classify("postRepository.Update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *sqlPostRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	if !validID(id) {
		return common.ErrNotFound
	}
	res, err := r.db.Q(tx).ExecContext(ctx, r.db.Rebind(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return classify("postRepository.Delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *sqlPostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if !validID(id) {
		return nil, common.ErrNotFound
	}
	query := `SELECT p.id, p.title, p.slug, p.content, p.author_id, p.category_id,
	p.created_at, p.published_at, u.username, c.name` + postFrom + ` WHERE p.id = ?`

	p, err := scanPost(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("postRepository.FindByID: %w", err)
	}

	posts := []model.Post{*p}
	if err := r.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (r *sqlPostRepository) ReplaceTags(ctx context.Context, tx *sql.Tx, postID string, tagIDs []string) error {
	q := r.db.Q(tx)
	if _, err := q.ExecContext(ctx, r.db.Rebind(`DELETE FROM post_tags WHERE post_id = ?`), postID); err != nil {
		return fmt.Errorf("postRepository.ReplaceTags clear: %w", err)
	}

	insert := r.db.Rebind(`INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING`)
	for _, tagID := range tagIDs {
		if _, err := q.ExecContext(ctx, insert, postID, tagID); err != nil {
			return classify("postRepository.ReplaceTags insert", err)
		}
	}
	return nil
}

func (r *sqlPostRepository) Query(ctx context.Context, pq PostQuery) ([]model.Post, int, error) {
	query, count, args, countArgs := pq.selectSQL(r.db.Dialect)

	var total int
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(count), countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postRepository.Query count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postRepository.Query: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postRepository.Query scan: %w", err)
		}
		posts = append(posts, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postRepository.Query rows.Err: %w", err)
	}
	rows.Close()

	if err := r.attachTags(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// attachTags loads tag names for all posts in one round trip.
func (r *sqlPostRepository) attachTags(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	index := make(map[string]int, len(posts))
	args := make([]interface{}, len(posts))
	for i := range posts {
		posts[i].Tags = []string{}
		index[posts[i].ID] = i
		args[i] = posts[i].ID
	}

	query := `SELECT pt.post_id, t.name FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
	          WHERE pt.post_id IN (` + placeholders(len(posts)) + `) ORDER BY t.name`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("postRepository.attachTags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, name string
		if err := rows.Scan(&postID, &name); err != nil {
			return fmt.Errorf("postRepository.attachTags scan: %w", err)
		}
		if i, ok := index[postID]; ok {
			posts[i].Tags = append(posts[i].Tags, name)
		}
	}
	return rows.Err()
}

func scanPost(row interface{ Scan(...interface{}) error }) (*model.Post, error) {
	p := &model.Post{}
	var published sql.NullTime
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.AuthorID, &p.CategoryID,
		&p.CreatedAt, &published, &p.AuthorUsername, &p.CategoryName)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if published.Valid {
		t := published.Time.UTC()
		p.PublishedAt = &t
	}
	return p, nil
}

func nullTime(p *model.Post) sql.NullTime {
	if p.PublishedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p.PublishedAt, Valid: true}
}
