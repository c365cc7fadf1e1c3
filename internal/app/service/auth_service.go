package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"blog_backend/internal/common"
	"blog_backend/internal/common/security"
	"blog_backend/internal/domain/model"
	"blog_backend/internal/domain/repository"

	"github.com/google/uuid"
)

const msgUsernameTaken = "A user with that username already exists."

type AuthService struct {
	userRepo   repository.UserRepository
	creds      *CredentialStore
	bcryptCost int
}

func NewAuthService(userRepo repository.UserRepository, creds *CredentialStore, bcryptCost int) *AuthService {
	return &AuthService{userRepo: userRepo, creds: creds, bcryptCost: bcryptCost}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	User  *model.User
	Token string
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.createUser(ctx, req, false)
}

// CreateAdmin creates a staff account. It is the only way to obtain one.
func (s *AuthService) CreateAdmin(ctx context.Context, req RegisterRequest) (*model.User, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req, true)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: Created admin user %s", user.Username)
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, req RegisterRequest, staff bool) (*model.User, error) {
	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, common.NewValidationError("username", msgUsernameTaken)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hashedPassword, err := security.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		IsStaff:      staff,
		IsActive:     true,
		DateJoined:   repository.Now(),
	}
	if err := s.userRepo.Create(ctx, nil, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// Lost a race with a concurrent registration.
			return nil, common.NewValidationError("username", msgUsernameTaken)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login checks the credentials and returns the user's session token,
// reusing the existing one if the user is already logged in.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.creds.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := s.creds.IssueOrReuse(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &LoginResult{User: user, Token: token}, nil
}

func (s *AuthService) Logout(ctx context.Context, user *model.User) error {
	return s.creds.Revoke(ctx, user)
}
