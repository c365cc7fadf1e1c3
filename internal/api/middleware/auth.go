package middleware

import (
	"context"
	"log"
	"net/http"

	"blog_backend/internal/app/policy"
	"blog_backend/internal/common"
	"blog_backend/internal/common/security"
	"blog_backend/internal/domain/model"
)

type contextKey string

const UserCtxKey contextKey = "user"

// TokenResolver maps a session token to its user, or nil.
type TokenResolver interface {
	Resolve(ctx context.Context, key string) (*model.User, error)
}

// Authenticate resolves the request's token and stores the user in the
// context. Requests without a usable token continue anonymously; policies
// decide later whether that is acceptable.
func Authenticate(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := security.TokenFromHeader(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.Resolve(r.Context(), key)
			if err != nil {
				log.Printf("ERROR: Resolving session token: %v", err)
				common.RespondWithError(w, http.StatusInternalServerError, common.ErrInternalServer.Error())
				return
			}
			if user != nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require rejects requests whose caller does not satisfy p. Only identity
// and role policies make sense here; ownership is checked by the services
// once the resource is loaded.
func Require(p policy.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := policy.Check(p, UserFromContext(r.Context()), nil).Err(); err != nil {
				common.RespondWithErr(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserCtxKey, user)
}

// UserFromContext returns the authenticated caller, or nil when anonymous.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserCtxKey).(*model.User)
	return user
}
