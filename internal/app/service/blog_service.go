package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"blog_backend/internal/app/policy"
	"blog_backend/internal/common"
	"blog_backend/internal/domain/model"
	"blog_backend/internal/domain/repository"
	"blog_backend/internal/platform/database"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const postSlugMax = 255

type BlogService struct {
	postRepo     repository.PostRepository
	tagRepo      repository.TagRepository
	categoryRepo repository.CategoryRepository
	userRepo     repository.UserRepository
	db           *database.DB // For transactions
}

func NewBlogService(
	postRepo repository.PostRepository,
	tagRepo repository.TagRepository,
	categoryRepo repository.CategoryRepository,
	userRepo repository.UserRepository,
	db *database.DB,
) *BlogService {
	return &BlogService{
		postRepo:     postRepo,
		tagRepo:      tagRepo,
		categoryRepo: categoryRepo,
		userRepo:     userRepo,
		db:           db,
	}
}

type CreatePostRequest struct {
	Title   string `json:"Title" validate:"required,max=255"`
	Content string `json:"Content" validate:"required"`
	// Author is only read for anonymous callers; a logged in caller always
	// authors as themselves.
	Author     string   `json:"Author"`
	Category   string   `json:"Category" validate:"required"`
	Tags       []string `json:"tags" validate:"omitempty,dive,min=1,max=255"`
	PublishNow bool     `json:"publishNow"`
}

// UpdatePostRequest changes Title, Content and Category only when present.
// Tags and PublishNow are always applied: a request without tags leaves the
// post untagged, one without publishNow turns it back into a draft.
type UpdatePostRequest struct {
	Title      *string  `json:"Title" validate:"omitnil,min=1,max=255"`
	Content    *string  `json:"Content" validate:"omitnil,min=1"`
	Category   *string  `json:"Category" validate:"omitnil,min=1"`
	Tags       []string `json:"tags" validate:"omitempty,dive,min=1,max=255"`
	PublishNow bool     `json:"publishNow"`
}

func (s *BlogService) CreatePost(ctx context.Context, caller *model.User, req CreatePostRequest) (*model.Post, error) {
	req.Tags = cleanTags(req.Tags)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	verr := &common.ValidationError{}
	authorID := req.Author
	if caller != nil {
		authorID = caller.ID
	} else if authorID == "" {
		verr.Add("Author", "This field is required.")
	} else if _, err := s.userRepo.FindByID(ctx, authorID); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("check author: %w", err)
		}
		verr.Add("Author", invalidPK(authorID))
	}
	if err := s.checkCategory(ctx, req.Category, verr); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := repository.Now()
	post := &model.Post{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Slug:       makeSlug(req.Title, postSlugMax),
		Content:    req.Content,
		AuthorID:   authorID,
		CategoryID: req.Category,
		CreatedAt:  now,
	}
	if req.PublishNow {
		post.PublishedAt = &now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := s.postRepo.Create(ctx, tx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	if err := s.setTags(ctx, tx, post.ID, req.Tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit post: %w", err)
	}

	log.Printf("INFO: Post %s created by %s", post.ID, authorID)
	return s.postRepo.FindByID(ctx, post.ID)
}

func (s *BlogService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	return s.postRepo.FindByID(ctx, id)
}

// UpdatePost is allowed for the post's author only.
func (s *BlogService) UpdatePost(ctx context.Context, caller *model.User, id string, req UpdatePostRequest) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.RequireOwner, caller, post).Err(); err != nil {
		return nil, err
	}

	req.Tags = cleanTags(req.Tags)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.Category != nil {
		verr := &common.ValidationError{}
		if err := s.checkCategory(ctx, *req.Category, verr); err != nil {
			return nil, err
		}
		if err := verr.OrNil(); err != nil {
			return nil, err
		}
		post.CategoryID = *req.Category
	}
	if req.Title != nil {
		post.Title = *req.Title
		post.Slug = makeSlug(post.Title, postSlugMax)
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	post.PublishedAt = nil
	if req.PublishNow {
		now := repository.Now()
		post.PublishedAt = &now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.postRepo.Update(ctx, tx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	if err := s.setTags(ctx, tx, post.ID, req.Tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit post: %w", err)
	}
	return s.postRepo.FindByID(ctx, post.ID)
}

// DeletePost is allowed for the post's author and for admins.
func (s *BlogService) DeletePost(ctx context.Context, caller *model.User, id string) error {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Check(policy.RequireOwnerOrAdmin, caller, post).Err(); err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, nil, post.ID); err != nil {
		return err
	}
	log.Printf("INFO: Post %s deleted by %s", post.ID, caller.Username)
	return nil
}

// QueryPosts runs a search, filter or listing built by the query package.
func (s *BlogService) QueryPosts(ctx context.Context, q repository.PostQuery) ([]model.Post, int, error) {
	return s.postRepo.Query(ctx, q)
}

func (s *BlogService) checkCategory(ctx context.Context, id string, verr *common.ValidationError) error {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("check category: %w", err)
		}
		verr.Add("Category", invalidPK(id))
	}
	return nil
}

func (s *BlogService) setTags(ctx context.Context, tx *sql.Tx, postID string, names []string) error {
	tags, err := s.tagRepo.GetOrCreate(ctx, tx, names)
	if err != nil {
		return fmt.Errorf("failed to resolve tags: %w", err)
	}
	ids := make([]string, len(tags))
	for i := range tags {
		ids[i] = tags[i].ID
	}
	if err := s.postRepo.ReplaceTags(ctx, tx, postID, ids); err != nil {
		return fmt.Errorf("failed to set tags: %w", err)
	}
	return nil
}

func cleanTags(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.TrimSpace(n)
	}
	return out
}

func invalidPK(id string) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", id)
}

// makeSlug truncates on a dash boundary when possible.
func makeSlug(s string, max int) string {
	out := slug.Make(s)
	if len(out) <= max {
		return out
	}
	out = out[:max]
	if i := strings.LastIndexByte(out, '-'); i > 0 {
		out = out[:i]
	}
	return out
}
