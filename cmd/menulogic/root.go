package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mchmarny/menulogic/pkg/config"
	"github.com/mchmarny/menulogic/pkg/logger"
	"github.com/mchmarny/menulogic/pkg/menu"
	"github.com/mchmarny/menulogic/pkg/store"
)

// app carries the configuration shared by all commands.
type app struct {
	v   *viper.Viper
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	cmd := &cobra.Command{
		Use:   name,
		Short: "Rule-based visibility for navigation menus",
		Long: `menulogic filters a navigation menu per viewer. Each item may carry a
condition such as 'is_logged_in() && has_role("editor")'; items whose
condition is false or fails are removed together with their descendants.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if cfgFile != "" {
				a.v.SetConfigFile(cfgFile)
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if cfg.LogLevel == "" {
				logger.SetDefaultLogger(name, version)
			} else {
				logger.SetDefaultLoggerWithLevel(name, version, cfg.LogLevel)
			}
			return nil
		},
	}
	cmd.SetVersionTemplate(name + " version {{.Version}}\n")

	f := cmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	f.String("log-level", "", "log level: debug, info, warn or error (default $"+logger.EnvVarLogLevel+" or info)")
	f.String("menu", "menu.yaml", "menu definition file")
	f.String("redis-addr", "", "address of the Redis condition store, none when empty")
	f.String("redis-key", store.DefaultRedisKey, "Redis hash holding the conditions")
	bindFlags(a.v, f, map[string]string{
		config.KeyLogLevel:  "log-level",
		config.KeyMenu:      "menu",
		config.KeyRedisAddr: "redis-addr",
		config.KeyRedisKey:  "redis-key",
	})

	cmd.AddCommand(
		newServeCmd(a),
		newCheckCmd(a),
		newEvalCmd(a),
		newLogicCmd(a),
	)
	return cmd
}

// bindFlags binds config keys to flags so explicitly set flags win over
// env and config file values.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

// conditionStore opens the configured condition store.
func (a *app) conditionStore() (*store.Redis, error) {
	if a.cfg.RedisAddr == "" {
		return nil, fmt.Errorf("no condition store configured, set --redis-addr or %s_REDIS_ADDR", config.EnvPrefix)
	}
	return store.NewRedis(a.cfg.RedisAddr, a.cfg.RedisKey, store.WithCompiler(a.cfg.Evaluator())), nil
}

// conditions returns items with the stored conditions applied, when a store
// is configured, and then the given overrides, keyed by item ID.
func (a *app) conditions(ctx context.Context, items []menu.Item, overrides map[string]string) ([]menu.Item, error) {
	if a.cfg.RedisAddr != "" {
		st, err := a.conditionStore()
		if err != nil {
			return nil, err
		}
		defer st.Close()
		if items, err = store.Overlay(ctx, st, items); err != nil {
			return nil, err
		}
	}
	if len(overrides) == 0 {
		return items, nil
	}

	mem := store.NewMemory(store.WithCompiler(a.cfg.Evaluator()))
	for id, cond := range overrides {
		if err := mem.Set(ctx, id, cond); err != nil {
			return nil, err
		}
	}
	return store.Overlay(ctx, mem, items)
}
