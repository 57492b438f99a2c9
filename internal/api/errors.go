package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport: the request never produced a response.
	KindTransport Kind = iota + 1
	// KindStatus: the server answered with a non-success status or envelope.
	KindStatus
	// KindDecode: the response body could not be parsed.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

var ErrUnauthorized = errors.New("unauthorized")

// Error describes a failed call to the backend.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Message    string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, http.StatusText(e.StatusCode), e.Body)
	default:
		return fmt.Sprintf("%s: %s", e.Op, http.StatusText(e.StatusCode))
	}
}

func (e *Error) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return e.Err
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
