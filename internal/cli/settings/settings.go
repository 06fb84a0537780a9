package settings

import (
	"fmt"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/utils"
)

type ConfigCmd struct {
	Show        ConfigShowCmd        `cmd:"" help:"Show the effective configuration." default:"1"`
	SetServer   ConfigSetServerCmd   `cmd:"" help:"Store the backend URL."`
	SetTimezone ConfigSetTimezoneCmd `cmd:"" help:"Store the timezone that decides what today is."`
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	stored := settings.ServerURL
	if stored == "" {
		stored = "(not set)"
	}
	timezone := settings.Timezone
	if timezone == "" {
		timezone = "Local"
	}

	ctx.Printf("Current Settings:\n")
	ctx.Printf("  Server:         %s\n", ctx.Config.ServerURL)
	ctx.Printf("  Stored Server:  %s\n", stored)
	ctx.Printf("  Timezone:       %s\n", timezone)
	ctx.Printf("  Last Username:  %s\n", settings.LastUsername)
	ctx.Printf("\nPaths:\n")
	ctx.Printf("  Config Dir:     %s\n", ctx.Config.ConfigDir)
	ctx.Printf("  Cache:          %s\n", ctx.Store.GetConfigPath())
	ctx.Printf("\nKeyring Available: %v\n", keyring.IsAvailable())
	return nil
}

type ConfigSetServerCmd struct {
	URL string `arg:"" help:"Backend base URL, e.g. https://habits.example.com/api."`
}

func (c *ConfigSetServerCmd) Run(ctx *cli.Context) error {
	url, err := config.NormalizeServerURL(c.URL)
	if err != nil {
		return err
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	settings.ServerURL = url
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	ctx.Printf("Server set to %s\n", url)
	if url != ctx.Config.ServerURL {
		ctx.Printf("Log in again with 'habitual login'; sessions are kept per server.\n")
	}
	return nil
}

type ConfigSetTimezoneCmd struct {
	Timezone string `arg:"" help:"IANA timezone name, or Local."`
}

func (c *ConfigSetTimezoneCmd) Run(ctx *cli.Context) error {
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	settings.Timezone = c.Timezone
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	ctx.Printf("Timezone set to %s\n", c.Timezone)
	return nil
}
