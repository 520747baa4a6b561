// Package auth holds the signed-in session and the identity providers that
// issue it.
package auth

import (
	"time"
)

// Session is an authenticated user as seen by the backend.
type Session struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Provider     string    `json:"provider"`
}

// Expired reports whether the session is past its expiry. A zero expiry never
// expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// DisplayName is the name to show for the user, falling back to the email.
func (s *Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event is a session transition. Session is nil after a sign-out.
type Event struct {
	Type    EventType
	Session *Session
}

type Listener func(Event)
