package cli

import (
	stderrors "errors"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/leakpath/pkg/errors"
)

// Cache backends.
const (
	backendFile  = "file"
	backendRedis = "redis"
	backendNone  = "none"
)

// Config holds defaults read from config.toml. Command-line flags override
// every field.
type Config struct {
	// Exclusions is a TOML rule file applied on top of the built-in rules.
	Exclusions string `toml:"exclusions"`
	// NoDefaults disables the built-in rules.
	NoDefaults bool `toml:"no_defaults"`
	// Classpath lists class directories and jars for interface lookup.
	Classpath []string `toml:"classpath"`
	// MetricsFile receives Prometheus metrics after each analysis.
	MetricsFile string `toml:"metrics_file"`

	Cache CacheConfig `toml:"cache"`
}

// CacheConfig selects the report cache.
type CacheConfig struct {
	Backend string      `toml:"backend"` // file (default), redis or none
	Dir     string      `toml:"dir"`     // file backend directory
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

func defaultConfig() *Config {
	return &Config{Cache: CacheConfig{Backend: backendFile}}
}

// loadConfig reads path. A missing file yields the defaults; unknown keys
// are errors so typos do not go unnoticed. The environment is applied last.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case stderrors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				return nil, errors.New(errors.ErrCodeInvalidConfig, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
			}
		}
	}

	if addr := os.Getenv(envRedisAddr); addr != "" {
		cfg.Cache.Backend = backendRedis
		cfg.Cache.Redis.Addr = addr
	}

	switch cfg.Cache.Backend {
	case "":
		cfg.Cache.Backend = backendFile
	case backendFile, backendNone:
	case backendRedis:
		if cfg.Cache.Redis.Addr == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "redis cache backend needs cache.redis.addr or %s", envRedisAddr)
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (must be file, redis or none)", cfg.Cache.Backend)
	}
	return cfg, nil
}
