// Package session holds the authenticated user context of the client.
//
// A Session is created by a successful login, passed explicitly to the
// components that need the user's identity, and destroyed on logout. The
// Store persists it between invocations together with the last notice the
// user has already seen.
package session

import (
	"net/http"
	"strconv"
	"time"

	"github.com/anyspecs/anyspecs/internal/models"
)

type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

type Session struct {
	User      models.User `json:"user"`
	Token     string      `json:"token,omitempty"`
	Cookies   []Cookie    `json:"cookies,omitempty"`
	ExpiresAt time.Time   `json:"expires_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// New builds a session for user from the cookies the login response set.
// The cookie named cookieName, when present, becomes the session token; a
// JWT token also supplies the expiry and, if the user record lacks one,
// the user id.
func New(user models.User, cookies []*http.Cookie, cookieName string, now time.Time) *Session {
	s := &Session{
		User:      user,
		CreatedAt: now,
	}
	for _, c := range cookies {
		s.Cookies = append(s.Cookies, Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
		})
		if c.Name == cookieName {
			s.Token = c.Value
		}
	}
	if s.Token == "" {
		return s
	}

	claims, err := ParseClaims(s.Token)
	if err != nil {
		return s
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	if s.User.ID == 0 {
		if id, err := strconv.Atoi(claims.UserID); err == nil {
			s.User.ID = id
		}
	}
	if s.User.Username == "" {
		s.User.Username = claims.Username
	}
	return s
}

// Identity returns the user id, or 0 for a nil session.
func (s *Session) Identity() int {
	if s == nil {
		return 0
	}
	return s.User.ID
}

// Owns reports whether f was uploaded by the session user.
func (s *Session) Owns(f models.File) bool {
	id := s.Identity()
	return id != 0 && f.UploaderID == id
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.User.IsAdmin()
}

// Expired reports whether the session has a known expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// BearerToken returns the token while the session is valid.
func (s *Session) BearerToken() string {
	if s == nil || s.Expired(time.Now()) {
		return ""
	}
	return s.Token
}

func (s *Session) HTTPCookies() []*http.Cookie {
	if s == nil {
		return nil
	}
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		out = append(out, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
		})
	}
	return out
}
