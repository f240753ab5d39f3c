// Package config loads settings for the example server and client.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// config file, a .env file in the working directory and JSONRPC_* environment
// variables. Nested keys map to variables by replacing dots with underscores,
// so log.level is read from JSONRPC_LOG_LEVEL.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "JSONRPC"

type Config struct {
	Listen    string        `mapstructure:"listen"`
	Path      string        `mapstructure:"path"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxBody   int64         `mapstructure:"maxbody"`
	Log       Log           `mapstructure:"log"`
	Cache     Cache         `mapstructure:"cache"`
	RateLimit RateLimit     `mapstructure:"ratelimit"`
	Client    Client        `mapstructure:"client"`
	Auth      Auth          `mapstructure:"auth"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Cache struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateLimit bounds requests per second at the HTTP endpoint. RPS of zero
// disables the limiter.
type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type Client struct {
	URL   string `mapstructure:"url"`
	IDGen string `mapstructure:"idgen"`
	Token string `mapstructure:"token"`
}

// Auth enables bearer token checks on the server when Issuer is set.
type Auth struct {
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
	Scope    string `mapstructure:"scope"`
}

var defaults = map[string]any{
	"listen":          "localhost:8080",
	"path":            "/rpc",
	"timeout":         30 * time.Second,
	"maxbody":         1 << 20,
	"log.level":       "info",
	"log.development": false,
	"cache.ttl":       time.Hour,
	"ratelimit.rps":   0.0,
	"ratelimit.burst": 10,
	"client.url":      "http://localhost:8080/rpc",
	"client.idgen":    "counter",
	"client.token":    "",
	"auth.issuer":     "",
	"auth.audience":   "",
	"auth.scope":      "",
}

// New returns a viper instance with the defaults and environment bindings
// installed. Callers may bind command line flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .env, then file if not empty, and decodes the result.
func Load(file string) (*Config, error) {
	return LoadWith(New(), file)
}

// LoadWith is Load on a caller supplied viper instance.
func LoadWith(v *viper.Viper, file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("config: path %q must start with /", c.Path)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout %s", c.Timeout)
	}
	if c.MaxBody < 0 {
		return fmt.Errorf("config: negative maxbody %d", c.MaxBody)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("config: negative cache.ttl %s", c.Cache.TTL)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("config: ratelimit values must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch c.Client.IDGen {
	case "counter", "random", "uuid":
	default:
		return fmt.Errorf("config: unknown client.idgen %q", c.Client.IDGen)
	}
	return nil
}

// NewLogger builds a zap logger for the configured level, using the
// development encoder when log.development is set.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
