package service

import (
	"context"
	"errors"
	"fmt"

	"blog_backend/internal/common"
	"blog_backend/internal/common/security"
	"blog_backend/internal/domain/model"
	"blog_backend/internal/domain/repository"
)

const (
	msgUserDoesNotExist = "User does not exist"
	msgBadCredentials   = "Unable to log in with provided credentials."
	nonFieldErrors      = "non_field_errors"

	// issueAttempts bounds retries when a freshly generated key collides
	// with an existing one.
	issueAttempts = 3
)

// CredentialStore issues, resolves and revokes opaque session tokens and
// checks passwords.
type CredentialStore struct {
	users  repository.UserRepository
	tokens repository.TokenRepository

	// genericErrors hides whether a login failed on the username.
	genericErrors bool
	newKey        func() (string, error)
}

func NewCredentialStore(users repository.UserRepository, tokens repository.TokenRepository, genericErrors bool) *CredentialStore {
	return &CredentialStore{
		users:         users,
		tokens:        tokens,
		genericErrors: genericErrors,
		newKey:        security.GenerateToken,
	}
}

// IssueOrReuse returns the user's token, creating one if there is none.
// Concurrent calls for the same user return the same key.
func (s *CredentialStore) IssueOrReuse(ctx context.Context, user *model.User) (string, error) {
	for attempt := 0; attempt < issueAttempts; attempt++ {
		tok, err := s.tokens.FindByUserID(ctx, user.ID)
		if err == nil {
			return tok.Key, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("look up token: %w", err)
		}

		key, err := s.newKey()
		if err != nil {
			return "", err
		}
		err = s.tokens.Insert(ctx, &model.AuthToken{Key: key, UserID: user.ID, CreatedAt: repository.Now()})
		if err != nil {
			return "", fmt.Errorf("store token: %w", err)
		}
	}

	// Every insert was swallowed by a key collision and nobody else created
	// a token for the user either.
	tok, err := s.tokens.FindByUserID(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token for %s after %d attempts: %w", user.Username, issueAttempts, err)
	}
	return tok.Key, nil
}

// Resolve returns the active user owning key, or nil when the key is
// empty, unknown, revoked or belongs to a removed or disabled account.
func (s *CredentialStore) Resolve(ctx context.Context, key string) (*model.User, error) {
	if key == "" {
		return nil, nil
	}
	user, err := s.tokens.FindUserByKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return user, nil
}

// Revoke deletes the user's token. It is not an error if there is none.
func (s *CredentialStore) Revoke(ctx context.Context, user *model.User) error {
	if user == nil {
		return common.ErrUnauthorized
	}
	return s.tokens.DeleteByUserID(ctx, user.ID)
}

// Authenticate checks a username and password. Failures are returned as a
// *common.ValidationError under non_field_errors that also matches
// common.ErrInvalidCredentials or common.ErrInactiveAccount.
func (s *CredentialStore) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("look up user: %w", err)
		}
		if s.genericErrors {
			security.BurnPasswordCheck(password)
			return nil, loginFailure(common.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidCredentials,
			common.NewValidationError(nonFieldErrors, msgUserDoesNotExist))
	}

	if !security.CheckPasswordHash(password, user.PasswordHash) {
		return nil, loginFailure(common.ErrInvalidCredentials)
	}
	if !user.IsActive {
		return nil, loginFailure(common.ErrInactiveAccount)
	}
	return user, nil
}

func loginFailure(reason error) error {
	return fmt.Errorf("%w: %w", reason, common.NewValidationError(nonFieldErrors, msgBadCredentials))
}
