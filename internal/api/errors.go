package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrTransport marks failures where no usable response was received:
	// network errors, timeouts, and 2xx bodies that could not be decoded.
	ErrTransport = errors.New("transport error")
	// ErrNoAccessToken is returned when the token endpoint answers 2xx without a token
	ErrNoAccessToken = errors.New("no access token received")
	// ErrUnexpectedStatus is returned when a 2xx status other than the documented one arrives
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Error is a structured backend error: a non-2xx response, with the message from
// its {"detail": ...} body when one was present.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// newError builds an Error from a response body. FastAPI sends either a string
// detail or, for validation failures, a list of {loc, msg, type} objects.
func newError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}
	if !gjson.ValidBytes(body) {
		return e
	}

	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String:
		e.Detail = detail.String()
	case detail.IsArray():
		var msgs []string
		detail.ForEach(func(_, item gjson.Result) bool {
			if msg := item.Get("msg"); msg.Exists() {
				msgs = append(msgs, msg.String())
			} else if item.Type == gjson.String {
				msgs = append(msgs, item.String())
			}
			return true
		})
		e.Detail = strings.Join(msgs, "; ")
	case detail.IsObject():
		e.Detail = detail.Get("msg").String()
	}
	return e
}

// IsUnauthorized reports whether err is a 401 from the backend
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status of a backend error, or 0 for any other error
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Message turns an error into the text shown to the user: the backend detail when
// there is one, fallback for a backend error without detail, and unexpected for
// everything else.
func Message(err error, fallback, unexpected string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return fallback
	}
	return unexpected
}
