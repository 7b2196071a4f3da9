package models

import "time"

// User is the identity object issued by the hosted auth service. ID is the
// auth service's UUID for the account; Username comes from the signup
// metadata and is mirrored into the profiles table at registration.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Session is the token bundle issued by the auth service on sign-up,
// sign-in or refresh.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Profile is the application-side row keyed by the auth user id. It exists
// so list queries can join a username without touching the auth service.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"size:64;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName maps Profile onto the profiles table.
func (Profile) TableName() string { return "profiles" }
