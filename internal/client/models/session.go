package models

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/storefront/internal/cryptox"
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
)

// Session is what the identity provider hands out after sign-in and persists
// between runs.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	// Offline marks a session granted from cached credentials.
	Offline bool `json:"offline,omitempty"`
}

// Fingerprint identifies the session without exposing the token. Offline
// sessions have no token and are fingerprinted by user id.
func (s *Session) Fingerprint() string {
	if s == nil {
		return ""
	}
	if s.Offline {
		return cryptox.Fingerprint("offline:" + s.UserID)
	}
	return cryptox.Fingerprint(s.AccessToken)
}

// Identity maps the session onto the Identity union; nil is Anonymous.
func (s *Session) Identity() Identity {
	switch {
	case s == nil || s.UserID == "":
		return Anonymous()
	case s.Offline:
		return LocalOffline(s.UserID)
	default:
		return Remote(s.UserID, s.AccessToken)
	}
}

// Credentials are the sign-in and sign-up inputs.
type Credentials struct {
	Email       string
	Password    []byte
	DisplayName string
}

// Normalize trims and lower-cases the email.
func (c Credentials) Normalize() Credentials {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.DisplayName = strings.TrimSpace(c.DisplayName)
	return c
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return ErrEmailRequired
	}
	if len(c.Password) == 0 {
		return ErrPasswordRequired
	}
	return nil
}
