// Package config resolves where habitual keeps its files and which backend it
// talks to.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
)

// Environment variables read by the CLI flags
const (
	EnvServer    = "HABITUAL_SERVER"
	EnvConfigDir = "HABITUAL_CONFIG_DIR"
	EnvTimeout   = "HABITUAL_TIMEOUT"
	EnvDebug     = "HABITUAL_DEBUG"
)

// Config is the resolved runtime configuration
type Config struct {
	ServerURL string
	ConfigDir string
	Timeout   time.Duration
	Debug     bool
}

// CachePath returns the location of the SQLite cache
func (c Config) CachePath() string {
	return filepath.Join(c.ConfigDir, constants.CacheFileName)
}

// LoadEnv loads .env files into the process environment. Variables that are
// already set win. Missing files are skipped; with no arguments ./.env and
// the default config directory's .env are tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env", filepath.Join(ExpandPath(constants.DefaultConfigDir), ".env")}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
		logger.Debug("loaded environment file", "path", file)
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// NormalizeServerURL checks that raw is an absolute http(s) URL and strips
// the trailing slash
func NormalizeServerURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: must be an absolute http or https URL", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// ResolveServerURL picks the backend URL: an explicit flag or environment
// value first, then the stored setting, then the default
func ResolveServerURL(explicit, stored string) (string, error) {
	for _, candidate := range []string{explicit, stored} {
		if strings.TrimSpace(candidate) != "" {
			return NormalizeServerURL(candidate)
		}
	}
	return constants.DefaultServerURL, nil
}
