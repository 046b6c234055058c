// Package config loads the service configuration and menu definitions.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mchmarny/menulogic/pkg/logic"
	"github.com/mchmarny/menulogic/pkg/server"
	"github.com/mchmarny/menulogic/pkg/viewer"
)

// EnvPrefix prefixes every environment variable read by Load,
// e.g. MENULOGIC_REDIS_ADDR.
const EnvPrefix = "MENULOGIC"

// Keys of the settings, shared by config files, env and command flags.
const (
	KeyPort        = "port"
	KeyMenu        = "menu"
	KeyRedisAddr   = "redis_addr"
	KeyRedisKey    = "redis_key"
	KeyLogLevel    = "log_level"
	KeyUserHeader  = "user_header"
	KeyRolesHeader = "roles_header"
	KeyAdminRole   = "admin_role"
	KeyTLSCert     = "tls_cert"
	KeyTLSKey      = "tls_key"
	KeyMaxLength   = "max_length"
	KeyMaxDepth    = "max_depth"
	KeyMaxSteps    = "max_steps"
	KeyMaxDuration = "max_duration"
	KeyCacheSize   = "cache_size"
)

// Config is the runtime configuration of the menu service.
type Config struct {
	Port        int           `mapstructure:"port"`
	MenuFile    string        `mapstructure:"menu"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	RedisKey    string        `mapstructure:"redis_key"`
	LogLevel    string        `mapstructure:"log_level"`
	UserHeader  string        `mapstructure:"user_header"`
	RolesHeader string        `mapstructure:"roles_header"`
	AdminRole   string        `mapstructure:"admin_role"`
	TLSCert     string        `mapstructure:"tls_cert"`
	TLSKey      string        `mapstructure:"tls_key"`
	MaxLength   int           `mapstructure:"max_length"`
	MaxDepth    int           `mapstructure:"max_depth"`
	MaxSteps    int           `mapstructure:"max_steps"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
	CacheSize   int           `mapstructure:"cache_size"`
}

// Defaults registers the default value of every setting on v.
func Defaults(v *viper.Viper) {
	l := logic.DefaultLimits()
	v.SetDefault(KeyPort, server.DefaultPort)
	v.SetDefault(KeyMenu, "menu.yaml")
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyRedisKey, "")
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyUserHeader, viewer.DefaultUserHeader)
	v.SetDefault(KeyRolesHeader, viewer.DefaultRolesHeader)
	v.SetDefault(KeyAdminRole, viewer.DefaultAdminRole)
	v.SetDefault(KeyTLSCert, "")
	v.SetDefault(KeyTLSKey, "")
	v.SetDefault(KeyMaxLength, l.MaxLength)
	v.SetDefault(KeyMaxDepth, l.MaxDepth)
	v.SetDefault(KeyMaxSteps, l.MaxSteps)
	v.SetDefault(KeyMaxDuration, l.MaxDuration)
	v.SetDefault(KeyCacheSize, logic.DefaultCacheSize)
}

// Load reads the configuration from v. Environment variables override the
// config file, if v has one set, and flags bound to v override both.
func Load(v *viper.Viper) (*Config, error) {
	Defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		errs = append(errs, errors.New("tls_cert and tls_key must be set together"))
	}
	if c.MaxLength < 0 || c.MaxDepth < 0 || c.MaxSteps < 0 || c.MaxDuration < 0 {
		errs = append(errs, errors.New("evaluation limits must not be negative"))
	}
	if c.CacheSize < 0 {
		errs = append(errs, errors.New("cache_size must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Limits returns the evaluation limits. Zero values fall back to the
// evaluator defaults.
func (c *Config) Limits() logic.Limits {
	return logic.Limits{
		MaxLength:   c.MaxLength,
		MaxDepth:    c.MaxDepth,
		MaxSteps:    c.MaxSteps,
		MaxDuration: c.MaxDuration,
	}
}

// ViewerOptions returns how requests are mapped to viewers.
func (c *Config) ViewerOptions() viewer.Options {
	return viewer.Options{
		UserHeader:  c.UserHeader,
		RolesHeader: c.RolesHeader,
		AdminRole:   c.AdminRole,
	}
}

// ServerOptions returns the HTTP server options derived from the config.
func (c *Config) ServerOptions() []server.Option {
	opts := []server.Option{server.WithPort(c.Port)}
	if c.TLSCert != "" {
		opts = append(opts, server.WithTLS(server.TLSConfig{CertFile: c.TLSCert, KeyFile: c.TLSKey}))
	}
	return opts
}

// Evaluator returns a condition evaluator using the configured limits and
// a program cache of CacheSize entries.
func (c *Config) Evaluator() *logic.Evaluator {
	return logic.New(
		logic.WithLimits(c.Limits()),
		logic.WithCache(logic.NewCache(c.CacheSize)),
	)
}
