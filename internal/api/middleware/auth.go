package middleware

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

var errNoToken = errors.New("no session token")

type tokenSource func() string

func (f tokenSource) Token() (*oauth2.Token, error) {
	tok := f()
	if tok == "" {
		return nil, errNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// Auth attaches "Authorization: Bearer <token>" to requests while token
// returns a non-empty value. Requests that already carry an Authorization
// header, and requests made without a session, pass through untouched.
func Auth(next http.RoundTripper, token func() string) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	authed := &oauth2.Transport{
		Source: tokenSource(token),
		Base:   next,
	}
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("Authorization") != "" || token() == "" {
			return next.RoundTrip(r)
		}
		return authed.RoundTrip(r)
	})
}
