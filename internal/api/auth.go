package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/session"
)

// SystemStatus is the public server configuration from /api/status.
type SystemStatus struct {
	SystemName        string `json:"system_name"`
	Version           string `json:"version"`
	FooterHTML        string `json:"footer_html"`
	HomePageLink      string `json:"home_page_link"`
	GitHubOAuth       bool   `json:"github_oauth"`
	GitHubClientID    string `json:"github_client_id"`
	WeChatLogin       bool   `json:"wechat_login"`
	EmailVerification bool   `json:"email_verification"`
	TurnstileCheck    bool   `json:"turnstile_check"`
	TurnstileSiteKey  string `json:"turnstile_site_key"`
}

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrUsernameTooLong    = errors.New("username must be at most 12 characters")
	ErrPasswordLength     = errors.New("password must be 8 to 20 characters")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrTurnstileRequired  = errors.New("turnstile verification is still pending, retry in a few seconds")
	ErrEmailRequired      = errors.New("email is required when email verification is enabled")
)

type RegisterForm struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	Password2        string `json:"password2"`
	Email            string `json:"email,omitempty"`
	VerificationCode string `json:"verification_code,omitempty"`
}

// Validate checks the form before anything is sent to the server.
func (f RegisterForm) Validate(status SystemStatus, turnstile string) error {
	if f.Username == "" || f.Password == "" {
		return ErrMissingCredentials
	}
	if utf8.RuneCountInString(f.Username) > 12 {
		return ErrUsernameTooLong
	}
	if n := utf8.RuneCountInString(f.Password); n < 8 || n > 20 {
		return ErrPasswordLength
	}
	if f.Password != f.Password2 {
		return ErrPasswordMismatch
	}
	if status.EmailVerification && f.Email == "" {
		return ErrEmailRequired
	}
	if status.TurnstileCheck && turnstile == "" {
		return ErrTurnstileRequired
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (SystemStatus, error) {
	var st SystemStatus
	_, err := c.call(ctx, "status", http.MethodGet, "/api/status", nil, nil, "", &st)
	return st, err
}

// Notice returns the current system notice, possibly empty.
func (c *Client) Notice(ctx context.Context) (string, error) {
	var notice string
	_, err := c.call(ctx, "notice", http.MethodGet, "/api/notice", nil, nil, "", &notice)
	return notice, err
}

// Login authenticates with username and password. On success the new
// session is installed in the client and returned for persistence.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Session, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var user models.User
	if _, err := c.call(ctx, "login", http.MethodPost, "/api/user/login", nil, bytes.NewReader(body), "application/json", &user); err != nil {
		return nil, err
	}
	return c.startSession(user), nil
}

// WeChatLogin exchanges a verification code from the official account.
func (c *Client) WeChatLogin(ctx context.Context, code string) (*session.Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("wechat login: verification code is required")
	}
	var user models.User
	q := url.Values{"code": {code}}
	if _, err := c.call(ctx, "wechat login", http.MethodGet, "/api/oauth/wechat", q, nil, "", &user); err != nil {
		return nil, err
	}
	return c.startSession(user), nil
}

func (c *Client) startSession(user models.User) *session.Session {
	s := session.New(user, c.jar.Cookies(c.base), c.cookieName, time.Now())
	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()
	return s
}

// Register creates an account. The form is validated against status first.
func (c *Client) Register(ctx context.Context, status SystemStatus, form RegisterForm, turnstile string) error {
	if err := form.Validate(status, turnstile); err != nil {
		return err
	}
	body, err := json.Marshal(form)
	if err != nil {
		return err
	}
	q := url.Values{"turnstile": {turnstile}}
	_, err = c.call(ctx, "register", http.MethodPost, "/api/user/register", q, bytes.NewReader(body), "application/json", nil)
	return err
}

// SendVerification mails a verification code. An empty email is a no-op.
func (c *Client) SendVerification(ctx context.Context, email, turnstile string) error {
	if email == "" {
		return nil
	}
	q := url.Values{"email": {email}, "turnstile": {turnstile}}
	_, err := c.call(ctx, "send verification", http.MethodGet, "/api/verification", q, nil, "", nil)
	return err
}

// Logout ends the server session. The local session is dropped even when
// the call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, "logout", http.MethodGet, "/api/user/logout", nil, nil, "", nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = nil
	if jar, jerr := cookiejar.New(nil); jerr == nil {
		c.jar = jar
		c.http.Jar = jar
	}
	return err
}
