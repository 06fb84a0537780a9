package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/utils"
)

type DoctorCmd struct{}

type checkResult int

const (
	checkOK checkResult = iota
	checkWarn
	checkFail
	checkSkipped
)

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Printf("Running diagnostics...\n\n")
	bg := context.Background()
	hasError := false

	report := func(name string, res checkResult, detail string) {
		switch res {
		case checkOK:
			ctx.Printf("✓ %s: OK\n", name)
		case checkWarn:
			ctx.Printf("⚠ %s: WARNING\n", name)
		case checkFail:
			ctx.Printf("❌ %s: FAIL\n", name)
			hasError = true
		case checkSkipped:
			ctx.Printf("⊘ %s: SKIPPED\n", name)
		}
		if detail != "" {
			ctx.Printf("   %s\n", detail)
		}
	}

	// Check 1: cache reachable
	cacheOK := false
	if err := checkCacheReachable(ctx); err != nil {
		report("Cache reachable", checkFail, "Error: "+err.Error())
	} else {
		report("Cache reachable", checkOK, "")
		cacheOK = true
	}

	// Check 2: schema version
	if cacheOK {
		if err := checkSchemaVersion(bg, ctx); err != nil {
			report("Cache schema", checkFail, "Error: "+err.Error())
		} else {
			report("Cache schema", checkOK, "")
		}
	} else {
		report("Cache schema", checkSkipped, "cache not reachable")
	}

	// Check 3: timezone
	if tz := ctx.Settings().Timezone; !utils.ValidateTimezone(tz) {
		report("Timezone", checkFail, fmt.Sprintf("Error: unknown timezone %q, fix it with 'habitual config set-timezone'", tz))
	} else {
		report("Timezone", checkOK, "")
	}

	// Check 4: keyring (warning only)
	if !keyring.IsAvailable() {
		report("OS keyring", checkWarn, "sessions will not be remembered between commands")
	} else {
		report("OS keyring", checkOK, "")
	}

	// Check 5: server
	serverOK := false
	if err := ctx.Client.Health(bg); err != nil {
		report("Server "+ctx.Config.ServerURL, checkFail, "Error: "+err.Error())
	} else {
		report("Server "+ctx.Config.ServerURL, checkOK, "")
		serverOK = true
	}

	// Check 6: session (warning only)
	if serverOK {
		res, detail := checkSession(bg, ctx)
		report("Session", res, detail)
	} else {
		report("Session", checkSkipped, "server not reachable")
	}

	ctx.Printf("\n")
	if hasError {
		ctx.Printf("Diagnostics completed with errors.\n")
		return errors.New("one or more health checks failed")
	}
	ctx.Printf("All diagnostics passed!\n")
	return nil
}

func checkCacheReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}
	if sqliteStore, ok := ctx.Store.(*storage.SQLiteStore); ok {
		return sqliteStore.Ping()
	}
	return nil
}

func checkSchemaVersion(bg context.Context, ctx *cli.Context) error {
	sqliteStore, ok := ctx.Store.(*storage.SQLiteStore)
	if !ok {
		return nil
	}
	current, latest, err := sqliteStore.SchemaVersion(bg)
	if err != nil {
		return err
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkSession(bg context.Context, ctx *cli.Context) (checkResult, string) {
	s, err := ctx.RequireSession(bg)
	if err != nil {
		return checkWarn, session.UserMessage(err, err.Error())
	}
	detail := "logged in as " + s.User.Username
	if exp, ok := session.ExpiresAt(s.Token); ok {
		detail += fmt.Sprintf(", token expires in %s", time.Until(exp).Round(time.Minute))
	}
	return checkOK, detail
}
