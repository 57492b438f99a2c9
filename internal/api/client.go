// Package api is the HTTP client for the AnySpecs backend: authentication,
// the file library and the proxied document workflow service.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/anyspecs/anyspecs/internal/api/middleware"
	"github.com/anyspecs/anyspecs/internal/session"
	"github.com/anyspecs/anyspecs/internal/utils"
)

const maxErrorBody = 4 << 10

type Options struct {
	BaseURL    string
	CookieName string
	// Timeout of 0 leaves requests unbounded unless the caller's context
	// sets a deadline.
	Timeout   time.Duration
	Transport http.RoundTripper
}

type Client struct {
	base       *url.URL
	cookieName string
	http       *http.Client
	jar        http.CookieJar

	mu   sync.RWMutex
	sess *session.Session
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		opts.CookieName = "token"
	}

	c := &Client{
		base:       base,
		cookieName: opts.CookieName,
		jar:        jar,
	}
	c.http = &http.Client{
		Jar:       jar,
		Timeout:   opts.Timeout,
		Transport: middleware.Logger(middleware.Auth(opts.Transport, c.bearerToken)),
	}
	return c, nil
}

// UseSession restores a persisted session into the client.
func (c *Client) UseSession(s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = s
	if s != nil {
		c.jar.SetCookies(c.base, s.HTTPCookies())
	}
}

func (c *Client) Session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

func (c *Client) bearerToken() string {
	return c.Session().BearerToken()
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// FileURL returns the public download address of an uploaded file link.
func (c *Client) FileURL(link string) string {
	return c.base.String() + "/upload/" + strings.TrimLeft(link, "/")
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs req and returns the response, classifying transport errors.
func (c *Client) send(op string, req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindTransport, Err: err}
	}
	return resp, nil
}

// call sends an envelope request and decodes its data into out.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string, out any) (utils.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return utils.Payload{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.send(op, req)
	if err != nil {
		return utils.Payload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return utils.Payload{}, statusError(op, resp)
	}

	p, err := utils.DecodePayload(resp.Body, out)
	if err != nil {
		return p, &Error{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode, Err: err}
	}
	if !p.Success {
		return p, &Error{Op: op, Kind: KindStatus, StatusCode: resp.StatusCode, Message: p.Message}
	}
	return p, nil
}

func statusError(op string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &Error{
		Op:         op,
		Kind:       KindStatus,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	if p, err := utils.DecodePayload(strings.NewReader(e.Body), nil); err == nil && p.Message != "" {
		e.Message = p.Message
	}
	return e
}

// IsUnauthorized reports whether err means the session is missing or stale.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
