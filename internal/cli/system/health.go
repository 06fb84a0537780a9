package system

import (
	"context"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/logger"
)

type HealthCmd struct{}

func (c *HealthCmd) Run(ctx *cli.Context) error {
	if err := ctx.Client.Health(context.Background()); err != nil {
		logger.Warn("health check failed", "server", ctx.Config.ServerURL, "error", err)
		return err
	}
	ctx.Printf("Server at %s is healthy\n", ctx.Config.ServerURL)
	return nil
}
