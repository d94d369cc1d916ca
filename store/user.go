package store

import (
	"context"
	"strings"
)

// User is the minimal identity row the engine needs for display-name
// resolution. Authentication itself lives in the external identity
// provider; this table only mirrors what matching results show.
type User struct {
	ID       string
	Email    string
	Nickname string
}

// DisplayName returns the best available name for the user: the chosen
// nickname, else the local part of the registered email, else empty.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.Email != "" {
		if at := strings.Index(u.Email, "@"); at > 0 {
			return u.Email[:at]
		}
		return u.Email
	}
	return ""
}

// FindUser is the filter for user lookups.
type FindUser struct {
	ID *string
}

// GetUser returns the matching user, or nil when none exists.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	return s.driver.GetUser(ctx, find)
}
