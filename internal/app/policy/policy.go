// Package policy decides whether a caller may perform an action.
//
// A Policy sees the resolved caller (nil when anonymous) and, for
// object-level checks, the resource being acted on. Policies are plain
// functions composed with AnyOf and AllOf.
package policy

import (
	"fmt"

	"blog_backend/internal/common"
	"blog_backend/internal/domain/model"
)

// Reason explains a denial.
type Reason int

const (
	// Unauthenticated means the caller has no valid identity.
	Unauthenticated Reason = iota + 1
	// Forbidden means the caller is known but lacks the right.
	Forbidden
)

func (r Reason) String() string {
	switch r {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Decision is the outcome of a policy check. The zero value allows.
type Decision struct {
	Denied bool
	Reason Reason
}

var Allow = Decision{}

func Deny(r Reason) Decision {
	return Decision{Denied: true, Reason: r}
}

func (d Decision) Allowed() bool { return !d.Denied }

// Err converts a denial into the matching sentinel error, or nil.
func (d Decision) Err() error {
	if !d.Denied {
		return nil
	}
	if d.Reason == Unauthenticated {
		return common.ErrUnauthorized
	}
	return common.ErrForbidden
}

// Owned is a resource with an owning user.
type Owned interface {
	OwnerID() string
}

type Policy func(subject *model.User, resource Owned) Decision

// Check evaluates p. A nil policy allows.
func Check(p Policy, subject *model.User, resource Owned) Decision {
	if p == nil {
		return Allow
	}
	return p(subject, resource)
}

func AllowAny(*model.User, Owned) Decision { return Allow }

func RequireAuthenticated(subject *model.User, _ Owned) Decision {
	if subject == nil {
		return Deny(Unauthenticated)
	}
	return Allow
}

func RequireAdmin(subject *model.User, _ Owned) Decision {
	if subject == nil {
		return Deny(Unauthenticated)
	}
	if !subject.IsAdmin() {
		return Deny(Forbidden)
	}
	return Allow
}

// RequireOwner allows the user who owns resource. Without a resource there
// is nothing to own, so authenticated callers are forbidden.
func RequireOwner(subject *model.User, resource Owned) Decision {
	if subject == nil {
		return Deny(Unauthenticated)
	}
	if resource == nil || resource.OwnerID() == "" || resource.OwnerID() != subject.ID {
		return Deny(Forbidden)
	}
	return Allow
}

var RequireOwnerOrAdmin = AnyOf(RequireOwner, RequireAdmin)

// AnyOf allows as soon as one member allows. When all deny, the result is
// Unauthenticated if any member asked for a login, else Forbidden.
func AnyOf(policies ...Policy) Policy {
	return func(subject *model.User, resource Owned) Decision {
		if len(policies) == 0 {
			return Deny(Forbidden)
		}
		reason := Forbidden
		for _, p := range policies {
			d := Check(p, subject, resource)
			if d.Allowed() {
				return Allow
			}
			if d.Reason == Unauthenticated {
				reason = Unauthenticated
			}
		}
		return Deny(reason)
	}
}

// AllOf allows only if every member allows, stopping at the first denial.
func AllOf(policies ...Policy) Policy {
	return func(subject *model.User, resource Owned) Decision {
		for _, p := range policies {
			if d := Check(p, subject, resource); !d.Allowed() {
				return d
			}
		}
		return Allow
	}
}
