// Package config resolves runtime settings from flags, environment, .env files and an optional config file.
//
// Precedence, highest first: explicit flags, environment variables, config file, defaults.
// Environment variables use the CAREPATH_ prefix with dots and dashes turned into underscores
// (redis.addr -> CAREPATH_REDIS_ADDR). CRM credentials also accept the bare CRM_HOST,
// CRM_USERNAME and CRM_PASSWORD names used by existing deployments.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	redisstore "github.com/aretw0/carepath/pkg/adapters/redis"
	"github.com/aretw0/carepath/pkg/autologin"
	"github.com/aretw0/carepath/pkg/crm"
	"github.com/aretw0/carepath/pkg/persistence"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment variables.
const EnvPrefix = "CAREPATH"

// Scope names accepted by the scope setting.
const (
	ScopeSubscription = "subscription"
	ScopeShared       = "shared"
)

// RedisConfig selects the redis backend. An empty Addr keeps everything in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Config is the resolved configuration of the carepath binary.
type Config struct {
	ListenAddr string `mapstructure:"listen-addr"`
	LogLevel   string `mapstructure:"log-level"`
	LogFormat  string `mapstructure:"log-format"`

	GraphFile string        `mapstructure:"graph-file"`
	EntryStep string        `mapstructure:"entry-step"`
	Scope     string        `mapstructure:"scope"`
	TTL       time.Duration `mapstructure:"ttl"`

	Redis RedisConfig `mapstructure:"redis"`

	// EncryptionKey is a base64 AES-256 key. Empty disables encryption at rest.
	EncryptionKey string        `mapstructure:"encryption-key"`
	FallbackKeys  []string      `mapstructure:"fallback-keys"`
	SubmissionURL string        `mapstructure:"submission-url"`
	AutoLoginTTL  time.Duration `mapstructure:"autologin-ttl"`

	CRM          crm.Credentials `mapstructure:"crm"`
	CRMEndpoints []string        `mapstructure:"crm-endpoints"`
	CRMTimeout   time.Duration   `mapstructure:"crm-timeout"`
}

// flag name -> viper key, for flags whose key differs from the name.
var flagKeys = map[string]string{
	"redis-addr":     "redis.addr",
	"redis-password": "redis.password",
	"redis-db":       "redis.db",
	"redis-prefix":   "redis.prefix",
	"crm-host":       "crm.host",
	"crm-username":   "crm.username",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen-addr", ":8080")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("graph-file", "")
	v.SetDefault("entry-step", "")
	v.SetDefault("scope", ScopeSubscription)
	v.SetDefault("ttl", persistence.DefaultTTL)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", redisstore.DefaultPrefix)
	v.SetDefault("encryption-key", "")
	v.SetDefault("fallback-keys", []string{})
	v.SetDefault("submission-url", "")
	v.SetDefault("autologin-ttl", autologin.DefaultTTL)
	v.SetDefault("crm.host", "")
	v.SetDefault("crm.username", "")
	v.SetDefault("crm.password", "")
	v.SetDefault("crm-endpoints", []string{})
	v.SetDefault("crm-timeout", crm.DefaultTimeout)
}

// RegisterFlags adds the persistent configuration flags to cmd.
func RegisterFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("config-file", "", "path to a config file (yaml, json or toml)")
	f.StringSlice("env-file", nil, "dotenv files to load before reading the environment (default .env)")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("log-format", "text", "log format: text or json")
	f.String("graph-file", "", "wizard graph file (yaml or json); empty uses the built-in cancel flow")
	f.String("entry-step", "", "step a fresh flow starts on; empty starts in the main view")
	f.String("scope", ScopeSubscription, "storage slot per subscription or one shared slot: subscription, shared")
	f.Duration("ttl", persistence.DefaultTTL, "lifetime of an untouched flow")
	f.String("redis-addr", "", "redis host:port; empty keeps state in memory")
	f.String("redis-password", "", "redis password")
	f.Int("redis-db", 0, "redis database")
	f.String("redis-prefix", redisstore.DefaultPrefix, "redis key prefix")
	f.String("submission-url", "", "endpoint receiving step and form submissions; empty logs them")
	f.String("crm-host", "", "CRM base URL")
	f.String("crm-username", "", "CRM username")
	f.StringSlice("crm-endpoints", nil, "login endpoint candidates, in probing order")
}

// Load resolves the configuration for cmd. Flags must have been registered with RegisterFlags.
func Load(cmd *cobra.Command) (*Config, error) {
	flags := cmd.Flags()

	envFiles, _ := flags.GetStringSlice("env-file")
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range []string{"host", "username", "password"} {
		// CAREPATH_CRM_* still wins; the bare names are the fallback.
		if err := v.BindEnv("crm."+key, EnvPrefix+"_CRM_"+strings.ToUpper(key), "CRM_"+strings.ToUpper(key)); err != nil {
			return nil, err
		}
	}

	var bindErr error
	flags.VisitAll(func(fl *pflag.Flag) {
		if fl.Name == "config-file" || fl.Name == "env-file" || fl.Name == "help" {
			return
		}
		key := fl.Name
		if mapped, ok := flagKeys[fl.Name]; ok {
			key = mapped
		}
		if err := v.BindPFlag(key, fl); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	if file, _ := flags.GetString("config-file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	var errs []error
	switch c.Scope {
	case ScopeSubscription, ScopeShared:
	default:
		errs = append(errs, fmt.Errorf("scope must be %q or %q, got %q", ScopeSubscription, ScopeShared, c.Scope))
	}
	if c.TTL <= 0 {
		errs = append(errs, fmt.Errorf("ttl must be positive, got %s", c.TTL))
	}
	if c.EncryptionKey != "" {
		if _, err := c.Keys(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ScopeFunc maps the scope setting to the persistence scope.
func (c *Config) ScopeFunc() persistence.ScopeFunc {
	if c.Scope == ScopeShared {
		return persistence.SharedSlot
	}
	return persistence.PerSubscription
}

// Keys decodes the active encryption key followed by the fallback keys.
func (c *Config) Keys() ([][]byte, error) {
	raw := append([]string{c.EncryptionKey}, c.FallbackKeys...)
	keys := make([][]byte, 0, len(raw))
	for i, k := range raw {
		if k == "" {
			continue
		}
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("encryption key %d is not base64: %w", i, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key %d must decode to 32 bytes, got %d", i, len(key))
		}
		keys = append(keys, key)
	}
	return keys, nil
}
