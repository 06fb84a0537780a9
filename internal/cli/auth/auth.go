package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/session"
)

type LoginCmd struct {
	Username string `short:"u" help:"Username (prompted when omitted)."`
	Password string `env:"HABITUAL_PASSWORD" help:"Password (prompted when omitted)."`
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	if c.Username == "" {
		c.Username = ctx.Settings().LastUsername
	}
	if err := ask(&c.Username, "Username", false); err != nil {
		return err
	}
	if err := ask(&c.Password, "Password", true); err != nil {
		return err
	}

	if !keyring.IsAvailable() {
		logger.Warn("OS keyring unavailable, the session will not outlive this command")
	}

	bg := context.Background()
	if err := ctx.Session.Login(bg, c.Username, c.Password); err != nil {
		return err
	}

	ctx.RememberUser(c.Username)

	s := ctx.Session.Session()
	ctx.Printf("Logged in to %s as %s\n", ctx.Config.ServerURL, s.User.Username)
	return nil
}

type RegisterCmd struct {
	Username        string `short:"u" help:"Username (prompted when omitted)."`
	Password        string `env:"HABITUAL_PASSWORD" help:"Password (prompted when omitted)."`
	ConfirmPassword string `help:"Repeat the password (prompted when omitted)."`
}

func (c *RegisterCmd) Run(ctx *cli.Context) error {
	if err := ask(&c.Username, "Username", false); err != nil {
		return err
	}
	if err := ask(&c.Password, "Password", true); err != nil {
		return err
	}
	if err := ask(&c.ConfirmPassword, "Confirm Password", true); err != nil {
		return err
	}

	if err := ctx.Session.Register(context.Background(), c.Username, c.Password, c.ConfirmPassword); err != nil {
		return err
	}

	ctx.Printf("%s\n", constants.MsgRegisterSuccess)
	return nil
}

type LogoutCmd struct {
	KeepCache bool `help:"Keep the cached habit grid for offline viewing."`
}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	ctx.Session.Logout()
	if !c.KeepCache {
		if err := ctx.Store.DeleteSnapshots(ctx.Config.ServerURL); err != nil {
			return err
		}
	}
	ctx.Printf("Logged out of %s\n", ctx.Config.ServerURL)
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *cli.Context) error {
	s, err := ctx.RequireSession(context.Background())
	if err != nil {
		return err
	}
	if s.User == nil {
		return errors.New("profile unavailable")
	}

	ctx.Printf("Username:  %s\n", s.User.Username)
	ctx.Printf("User ID:   %d\n", s.User.ID)
	ctx.Printf("Admin:     %v\n", s.User.IsAdmin)
	if handle := s.User.TelegramHandle(); handle != "" {
		ctx.Printf("Telegram:  %s\n", handle)
	}
	ctx.Printf("Server:    %s\n", ctx.Config.ServerURL)
	if exp, ok := session.ExpiresAt(s.Token); ok {
		ctx.Printf("Expires:   %s (in %s)\n", exp.Local().Format("2006-01-02 15:04"), formatRemaining(time.Until(exp)))
	}
	return nil
}

func formatRemaining(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
