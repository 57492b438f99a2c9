package middleware

import (
	"log"
	"net/http"
	"time"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Logger logs method, path, status and latency of every request sent
// through next.
func Logger(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		resp, err := next.RoundTrip(r)
		if err != nil {
			log.Printf("%s %s error: %v %s", r.Method, r.URL.Path, err, time.Since(start))
			return nil, err
		}

		log.Printf(
			"%s %s %d %s",
			r.Method,
			r.URL.Path,
			resp.StatusCode,
			time.Since(start),
		)
		return resp, nil
	})
}
