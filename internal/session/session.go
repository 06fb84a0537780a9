// Package session owns the authentication state of the client: the access
// token, the resolved user profile and the transitions between them.
package session

import (
	"errors"

	"github.com/julianstephens/habitual/internal/models"
)

// Status is the authentication state of a session
type Status int

const (
	Anonymous Status = iota
	Authenticating
	Authenticated
	Expired
)

func (s Status) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

var (
	// ErrSuperseded is returned when a result belongs to a session that has since been replaced
	ErrSuperseded = errors.New("session superseded")
	// ErrNoSession is returned when an operation needs a token and there is none
	ErrNoSession = errors.New("not logged in")
	// ErrPasswordMismatch is returned by Register before any request is made
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrTokenExpired is returned by Restore when the stored token is past its exp claim
	ErrTokenExpired = errors.New("stored token has expired")
)

// Session is a point-in-time copy of the controller state.
// User is set only when Status is Authenticated. Token is set only while
// Authenticating or Authenticated.
type Session struct {
	Token      string
	User       *models.UserProfile
	Status     Status
	Message    string
	Generation uint64
}

// LoggedIn reports whether the session holds a token
func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// Ticket identifies the session a profile fetch was started for
type Ticket struct {
	Token      string
	Generation uint64
}

// Failure carries the message shown to the user while unwrapping to the cause
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// UserMessage returns the user-facing text of err: the Failure message when
// there is one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	return fallback
}
