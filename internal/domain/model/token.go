package model

import "time"

// AuthToken is an opaque bearer credential. A user has at most one.
type AuthToken struct {
	Key       string
	UserID    string
	CreatedAt time.Time
}
