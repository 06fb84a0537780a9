package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/cli/auth"
	"github.com/julianstephens/habitual/internal/cli/habits"
	"github.com/julianstephens/habitual/internal/cli/settings"
	"github.com/julianstephens/habitual/internal/cli/system"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/storage"
)

var CLI struct {
	Version   kong.VersionFlag
	Server    string        `help:"Backend base URL. Overrides the stored server." env:"HABITUAL_SERVER"`
	ConfigDir string        `help:"Directory for the cache, logs and .env file." type:"path" default:"~/.config/habitual" env:"HABITUAL_CONFIG_DIR"`
	Timeout   time.Duration `help:"Timeout for each backend request." default:"15s" env:"HABITUAL_TIMEOUT"`
	Debug     bool          `help:"Write debug logs to stderr and the log file." env:"HABITUAL_DEBUG"`

	Login    auth.LoginCmd      `cmd:"" help:"Log in and store the session in the OS keyring."`
	Register auth.RegisterCmd   `cmd:"" help:"Create an account."`
	Logout   auth.LogoutCmd     `cmd:"" help:"Forget the stored session."`
	Whoami   auth.WhoamiCmd     `cmd:"" help:"Show the logged in user."`
	Health   system.HealthCmd   `cmd:"" help:"Check that the backend is reachable."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Habit    habits.HabitCmd    `cmd:"" help:"Manage habits and habit logs."`
	Config   settings.ConfigCmd `cmd:"" help:"Manage client settings."`
	Tui      system.TuiCmd      `cmd:"" help:"Launch the interactive TUI." default:"1"`
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.Format(err))
		os.Exit(1)
	}

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker client: a weekly grid of your habits in the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	configDir := config.ExpandPath(CLI.ConfigDir)
	isTui := ctx.Selected() == nil || ctx.Selected().Name == "tui"
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir, Quiet: isTui}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	store := storage.NewSQLiteStore(config.Config{ConfigDir: configDir}.CachePath())
	if err := run(ctx, store, configDir); err != nil {
		errors.Fatal(err)
	}
}

// run opens the cache, resolves the server and executes the selected command.
// The cache is closed before run returns.
func run(kctx *kong.Context, store *storage.SQLiteStore, configDir string) error {
	if err := store.Load(); err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	stored, err := store.GetSettings()
	if err != nil {
		return err
	}
	serverURL, err := config.ResolveServerURL(CLI.Server, stored.ServerURL)
	if err != nil {
		return err
	}

	cfg := config.Config{
		ServerURL: serverURL,
		ConfigDir: configDir,
		Timeout:   CLI.Timeout,
		Debug:     CLI.Debug,
	}
	logger.Debug("starting", "server", cfg.ServerURL, "config_dir", cfg.ConfigDir, "version", constants.Version)

	return kctx.Run(cli.NewContext(cfg, store))
}
