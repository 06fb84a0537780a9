package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/tracker"
	"github.com/julianstephens/habitual/internal/utils"
)

// Context carries the wired dependencies into every command
type Context struct {
	Config  config.Config
	Store   storage.Provider
	Client  *api.Client
	Session *session.Controller
	Fetcher *tracker.Fetcher
	Out     io.Writer
}

// NewContext wires the client, session and fetcher for cfg.ServerURL. The
// store must already be loaded.
func NewContext(cfg config.Config, store storage.Provider) *Context {
	client := api.New(cfg.ServerURL, api.WithTimeout(cfg.Timeout))
	tokens := keyring.NewTokenStore(cfg.ServerURL)

	c := &Context{
		Config:  cfg,
		Store:   store,
		Client:  client,
		Session: session.New(client, session.WithTokenStore(tokens)),
		Out:     os.Stdout,
	}
	c.Fetcher = tracker.NewFetcher(client, tracker.WithLocation(c.Location()))
	return c
}

// Printf writes to the command output
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Settings returns the stored settings, or zero settings when they cannot be read
func (c *Context) Settings() models.Settings {
	settings, err := c.Store.GetSettings()
	if err != nil {
		logger.Warn("failed to read settings", "error", err)
		return models.Settings{}
	}
	return settings
}

// Location returns the configured timezone, falling back to local time
func (c *Context) Location() *time.Location {
	loc, err := utils.LoadLocation(c.Settings().Timezone)
	if err != nil {
		logger.Warn("invalid timezone setting, using local time", "error", err)
		return time.Local
	}
	return loc
}

// Today returns today's date in the configured timezone
func (c *Context) Today() string {
	return time.Now().In(c.Location()).Format(constants.DateFormat)
}

// RequireSession resumes the stored session and fails unless it is authenticated
func (c *Context) RequireSession(ctx context.Context) (session.Session, error) {
	if s := c.Session.Session(); s.Status == session.Authenticated {
		return s, nil
	}
	if err := c.Session.Restore(ctx); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			logger.Debug("no session restored", "error", err)
			return session.Session{}, fmt.Errorf("not logged in to %s, run 'habitual login'", c.Config.ServerURL)
		}
		return session.Session{}, err
	}
	return c.Session.Session(), nil
}

// Authorized converts a 401 from an authenticated request into an expired
// session. Other errors get the user message chosen by fallback and unexpected.
func (c *Context) Authorized(s session.Session, err error, fallback, unexpected string) error {
	if err == nil {
		return nil
	}
	if api.IsUnauthorized(err) {
		c.Session.Expire(s.Generation)
		return &session.Failure{Message: constants.MsgSessionExpired, Err: err}
	}
	return &session.Failure{Message: api.Message(err, fallback, unexpected), Err: err}
}

// CacheResult stores a successful grid load for offline viewing. Failures are
// logged and otherwise ignored.
func (c *Context) CacheResult(s session.Session, res tracker.Result) {
	if s.User == nil {
		return
	}
	snap := models.Snapshot{
		UserID:      s.User.ID,
		Username:    s.User.Username,
		WindowStart: res.Window.Start(),
		FetchedAt:   res.FetchedAt,
		Items:       res.Items,
	}
	if _, err := c.Store.SaveSnapshot(c.Config.ServerURL, snap); err != nil {
		logger.Warn("failed to cache habits", "error", err)
	}
}

// RememberUser stores username as the login form default
func (c *Context) RememberUser(username string) {
	settings := c.Settings()
	settings.LastUsername = username
	if err := c.Store.SaveSettings(settings); err != nil {
		logger.Warn("failed to remember username", "error", err)
	}
}
