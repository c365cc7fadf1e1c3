package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"blog_backend/internal/common"
	"blog_backend/internal/domain/model"
	"blog_backend/internal/domain/repository"

	"github.com/google/uuid"
)

const categorySlugMax = 50

// TaxonomyService manages categories and tags. Callers are expected to have
// passed the admin policy for mutations.
type TaxonomyService struct {
	categoryRepo repository.CategoryRepository
	tagRepo      repository.TagRepository
}

func NewTaxonomyService(categoryRepo repository.CategoryRepository, tagRepo repository.TagRepository) *TaxonomyService {
	return &TaxonomyService{categoryRepo: categoryRepo, tagRepo: tagRepo}
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=30"`
}

type CreateTagRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (s *TaxonomyService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*model.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	c := &model.Category{ID: uuid.NewString(), Name: req.Name, Slug: makeSlug(req.Name, categorySlugMax)}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

func (s *TaxonomyService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categoryRepo.List(ctx)
}

// DeleteCategory fails with common.ErrIntegrityViolation while any post is
// filed under the category.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrIntegrityViolation) {
			log.Printf("WARN: Refused to delete category %s: still in use", id)
		}
		return err
	}
	return nil
}

func (s *TaxonomyService) CreateTag(ctx context.Context, req CreateTagRequest) (*model.Tag, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	tag := &model.Tag{ID: uuid.NewString(), Name: req.Name}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewValidationError("name", "tag with this name already exists.")
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

func (s *TaxonomyService) ListTags(ctx context.Context) ([]model.Tag, error) {
	return s.tagRepo.List(ctx)
}
