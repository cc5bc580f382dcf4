package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/leakpath/pkg/analysis"
	"github.com/matzehuels/leakpath/pkg/cache"
	"github.com/matzehuels/leakpath/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "leakpath"

	// redisKeyPrefix scopes leakpath entries in a shared Redis database.
	redisKeyPrefix = appName + ":"

	// envRedisAddr overrides the configured Redis address and selects the
	// redis backend.
	envRedisAddr = "LEAKPATH_REDIS_ADDR"

	// envConfig overrides the config file location.
	envConfig = "LEAKPATH_CONFIG"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config

	// out receives command output; status lines and logs go to stderr.
	out io.Writer
}

// New creates a new CLI instance writing logs to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: defaultConfig(),
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects command output, mainly for tests.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheFlags are the per-command cache overrides.
type cacheFlags struct {
	noCache bool
	redis   string // redis address, overrides the config
}

// newRunner creates an analysis runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, flags cacheFlags) (*analysis.Runner, error) {
	store, keyer, err := c.newCache(ctx, flags)
	if err != nil {
		return nil, err
	}
	return analysis.NewRunner(store, keyer, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, flags cacheFlags) (cache.Cache, cache.Keyer, error) {
	cfg := c.Config.Cache
	backend := cfg.Backend
	if flags.redis != "" {
		backend = backendRedis
		cfg.Redis.Addr = flags.redis
	}
	if flags.noCache {
		backend = backendNone
	}

	switch backend {
	case backendNone:
		return cache.NewNullCache(), nil, nil
	case backendRedis:
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redisKeyPrefix
		}
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   prefix,
		})
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to redis cache")
		}
		return rc, cache.NewScopedKeyer(nil, prefix), nil
	default:
		dir := cfg.Dir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				c.Logger.Warn("no cache directory, caching disabled", "err", err)
				return cache.NewNullCache(), nil, nil
			}
			dir = d
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, nil, err
		}
		return fc, nil, nil
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/leakpath/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configPath returns the config file location: $LEAKPATH_CONFIG, or
// config.toml under the XDG config directory (~/.config/leakpath/).
func configPath() (string, error) {
	if p := os.Getenv(envConfig); p != "" {
		return p, nil
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
