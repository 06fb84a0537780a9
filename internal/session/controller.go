package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

// Authenticator is the part of the backend the controller talks to
type Authenticator interface {
	Token(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) error
	Me(ctx context.Context, token string) (models.UserProfile, error)
}

// TokenStore persists the access token between runs
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Controller drives the session state machine. It is safe for concurrent use;
// requests run without holding the lock and their results are applied only if
// the session they were started for is still current.
type Controller struct {
	auth  Authenticator
	store TokenStore
	now   func() time.Time

	mu    sync.Mutex
	state Session

	// storeMu orders writes to the token store
	storeMu sync.Mutex
}

// Option configures a Controller
type Option func(*Controller)

// WithTokenStore persists accepted tokens and clears them on logout or expiry
func WithTokenStore(store TokenStore) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithClock overrides the time source used for token expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New returns a controller in the Anonymous state
func New(auth Authenticator, opts ...Option) *Controller {
	c := &Controller{
		auth: auth,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the current state
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// IsCurrent reports whether generation still identifies the live session
func (c *Controller) IsCurrent(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Generation == generation
}

// Login exchanges credentials for a token and resolves the profile.
// From Anonymous or Expired this ends in Authenticated on success and
// Anonymous on failure.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	started := c.generation()

	token, err := c.auth.Token(ctx, username, password)
	if err != nil {
		msg := loginMessage(err)
		logger.Warn("login failed", "username", username, "error", err)
		if !c.RejectLogin(started, msg) {
			return ErrSuperseded
		}
		return &Failure{Message: msg, Err: err}
	}

	ticket, ok := c.acceptToken(started, token)
	if !ok {
		logger.Debug("discarding token from superseded login", "username", username)
		return ErrSuperseded
	}
	c.persist(ticket)
	logger.Info("login succeeded", "username", username)

	return c.FetchProfile(ctx)
}

func loginMessage(err error) string {
	if errors.Is(err, api.ErrNoAccessToken) {
		return constants.MsgLoginNoToken
	}
	return api.Message(err, constants.MsgLoginFailed, constants.MsgLoginUnexpected)
}

// AcceptToken installs token as the new session and moves to Authenticating.
// The returned ticket is used to complete the profile fetch.
func (c *Controller) AcceptToken(token string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acceptLocked(token)
}

func (c *Controller) acceptToken(expected uint64, token string) (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Generation != expected {
		return Ticket{}, false
	}
	return c.acceptLocked(token), true
}

func (c *Controller) acceptLocked(token string) Ticket {
	c.state = Session{
		Token:      token,
		Status:     Authenticating,
		Generation: c.state.Generation + 1,
	}
	return Ticket{Token: token, Generation: c.state.Generation}
}

// RejectLogin returns the session to Anonymous with msg, unless the session
// has moved on since generation was read.
func (c *Controller) RejectLogin(generation uint64, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Generation != generation {
		return false
	}
	c.resetLocked(Anonymous, msg)
	return true
}

// Register creates an account. It does not log the user in.
func (c *Controller) Register(ctx context.Context, username, password, confirmPassword string) error {
	if password != confirmPassword {
		return &Failure{Message: constants.MsgPasswordMismatch, Err: ErrPasswordMismatch}
	}

	if err := c.auth.Register(ctx, username, password); err != nil {
		msg := api.Message(err, constants.MsgRegisterFailed, constants.MsgRegisterUnexpected)
		if errors.Is(err, api.ErrUnexpectedStatus) {
			msg = constants.MsgRegisterUnexpectedStatus
		}
		logger.Warn("registration failed", "username", username, "error", err)
		return &Failure{Message: msg, Err: err}
	}

	logger.Info("registered user", "username", username)
	return nil
}

// FetchProfile resolves the profile for the current token
func (c *Controller) FetchProfile(ctx context.Context) error {
	ticket, ok := c.BeginProfileFetch()
	if !ok {
		return ErrNoSession
	}
	profile, err := c.auth.Me(ctx, ticket.Token)
	return c.CompleteProfileFetch(ticket, profile, err)
}

// BeginProfileFetch captures the token and generation a profile request is
// made for. It reports false when there is no token.
func (c *Controller) BeginProfileFetch() (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Token == "" {
		return Ticket{}, false
	}
	return Ticket{Token: c.state.Token, Generation: c.state.Generation}, true
}

// CompleteProfileFetch applies the outcome of a profile request. Results for a
// superseded ticket leave the session untouched and return ErrSuperseded.
func (c *Controller) CompleteProfileFetch(ticket Ticket, profile models.UserProfile, err error) error {
	c.mu.Lock()
	if c.state.Generation != ticket.Generation || c.state.Token != ticket.Token {
		c.mu.Unlock()
		logger.Debug("dropping stale profile result", "generation", ticket.Generation)
		return ErrSuperseded
	}

	switch {
	case err == nil:
		c.state.User = &profile
		c.state.Status = Authenticated
		c.state.Message = ""
		c.mu.Unlock()
		return nil

	case api.IsUnauthorized(err):
		gen := c.resetLocked(Anonymous, constants.MsgSessionExpired)
		c.mu.Unlock()
		c.forget(gen)
		logger.Info("token rejected while fetching profile")
		return &Failure{Message: constants.MsgSessionExpired, Err: err}

	default:
		msg := constants.MsgProfileUnknown
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			msg = constants.MsgProfileFailedPrefix + apiErr.Error()
		}
		c.state.User = nil
		c.state.Status = Authenticating
		c.state.Message = msg
		c.mu.Unlock()
		logger.Warn("failed to fetch profile", "error", err)
		return &Failure{Message: msg, Err: err}
	}
}

// Logout drops the session. It never talks to the backend and may be called
// from any state.
func (c *Controller) Logout() {
	c.mu.Lock()
	gen := c.resetLocked(Anonymous, "")
	c.mu.Unlock()
	c.forget(gen)
}

// Expire marks the session identified by generation as expired after an
// authenticated request was rejected. It reports false when that session is
// no longer current.
func (c *Controller) Expire(generation uint64) bool {
	c.mu.Lock()
	if c.state.Generation != generation || c.state.Token == "" {
		c.mu.Unlock()
		return false
	}
	gen := c.resetLocked(Expired, constants.MsgSessionExpired)
	c.mu.Unlock()
	c.forget(gen)
	logger.Info("session expired")
	return true
}

// Restore resumes the session from the token store. A token whose exp claim is
// already past is discarded without contacting the backend.
func (c *Controller) Restore(ctx context.Context) error {
	if c.store == nil {
		return ErrNoSession
	}
	token, err := c.store.Load()
	if err != nil {
		return errors.Join(ErrNoSession, err)
	}

	if exp, ok := ExpiresAt(token); ok && !exp.After(c.now()) {
		c.mu.Lock()
		gen := c.resetLocked(Expired, constants.MsgSessionExpired)
		c.mu.Unlock()
		c.forget(gen)
		logger.Info("stored token expired", "expired_at", exp)
		return &Failure{Message: constants.MsgSessionExpired, Err: ErrTokenExpired}
	}

	c.AcceptToken(token)
	return c.FetchProfile(ctx)
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// It reports false for tokens that are not JWTs or carry no exp.
func ExpiresAt(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Controller) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Generation
}

func (c *Controller) resetLocked(status Status, msg string) uint64 {
	c.state = Session{
		Status:     status,
		Message:    msg,
		Generation: c.state.Generation + 1,
	}
	return c.state.Generation
}

// persist saves the token of ticket unless its session has been replaced.
// Store writes are serialized, so a save or clear issued for an older
// generation never lands after one issued for a newer generation.
func (c *Controller) persist(ticket Ticket) {
	if c.store == nil {
		return
	}
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if !c.IsCurrent(ticket.Generation) {
		logger.Debug("skipping token save for superseded session", "generation", ticket.Generation)
		return
	}
	if err := c.store.Save(ticket.Token); err != nil {
		logger.Warn("failed to persist token", "error", err)
	}
}

// forget clears the stored token unless the session reset at generation has
// been replaced
func (c *Controller) forget(generation uint64) {
	if c.store == nil {
		return
	}
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if !c.IsCurrent(generation) {
		logger.Debug("skipping token clear for superseded session", "generation", generation)
		return
	}
	if err := c.store.Clear(); err != nil {
		logger.Warn("failed to clear stored token", "error", err)
	}
}
