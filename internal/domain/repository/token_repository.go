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

type TokenRepository interface {
	// Insert stores tok unless the user already has a token or the key is
	// taken. It never fails on either conflict.
	Insert(ctx context.Context, tok *model.AuthToken) error
	FindByUserID(ctx context.Context, userID string) (*model.AuthToken, error)
	// FindUserByKey returns the active user owning key.
	FindUserByKey(ctx context.Context, key string) (*model.User, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

type sqlTokenRepository struct {
	db *database.DB
}

func NewTokenRepository(db *database.DB) TokenRepository {
	return &sqlTokenRepository{db: db}
}

func (r *sqlTokenRepository) Insert(ctx context.Context, tok *model.AuthToken) error {
	query := `INSERT INTO auth_tokens (token, user_id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), tok.Key, tok.UserID, tok.CreatedAt); err != nil {
		return fmt.Errorf("tokenRepository.Insert: %w", err)
	}
	return nil
}

func (r *sqlTokenRepository) FindByUserID(ctx context.Context, userID string) (*model.AuthToken, error) {
	query := `SELECT token, user_id, created_at FROM auth_tokens WHERE user_id = ?`
	tok := &model.AuthToken{}
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), userID).Scan(&tok.Key, &tok.UserID, &tok.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("tokenRepository.FindByUserID: %w", err)
	}
	tok.CreatedAt = tok.CreatedAt.UTC()
	return tok, nil
}

func (r *sqlTokenRepository) FindUserByKey(ctx context.Context, key string) (*model.User, error) {
	query := `SELECT u.id, u.username, u.email, u.password_hash, u.is_staff, u.is_active, u.bio, u.profile_pic, u.date_joined
	          FROM auth_tokens t JOIN users u ON u.id = t.user_id
	          WHERE t.token = ? AND u.is_active = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, r.db.Rebind(query), key, true))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("tokenRepository.FindUserByKey: %w", err)
	}
	return u, nil
}

func (r *sqlTokenRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM auth_tokens WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("tokenRepository.DeleteByUserID: %w", err)
	}
	return nil
}
