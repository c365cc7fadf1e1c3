package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blog_backend/internal/common"
	"blog_backend/internal/domain/model"
	"blog_backend/internal/domain/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// UpdateProfileRequest is a partial update; nil fields are left alone.
type UpdateProfileRequest struct {
	Username   *string `json:"username" validate:"omitnil,min=1,max=150,username"`
	Email      *string `json:"email" validate:"omitnil,email,max=254"`
	Bio        *string `json:"bio" validate:"omitnil,max=500"`
	ProfilePic *string `json:"profile_pic" validate:"omitnil,max=255"`
}

// ListUsers returns every account that is not staff.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.userRepo.ListNonStaff(ctx)
}

// UpdateProfile applies req to the caller's own account.
func (s *UserService) UpdateProfile(ctx context.Context, caller *model.User, req UpdateProfileRequest) (*model.User, error) {
	if caller == nil {
		return nil, common.ErrUnauthorized
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if _, err := s.userRepo.FindByUsername(ctx, *req.Username); err == nil {
			return nil, common.NewValidationError("username", msgUsernameTaken)
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("check username: %w", err)
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.ProfilePic != nil {
		user.ProfilePic = *req.ProfilePic
	}

	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewValidationError("username", msgUsernameTaken)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}
