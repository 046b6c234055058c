package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"github.com/mchmarny/menulogic/pkg/logic"
	"github.com/mchmarny/menulogic/pkg/server"
	"github.com/mchmarny/menulogic/pkg/viewer"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != server.DefaultPort || cfg.MenuFile != "menu.yaml" || cfg.LogLevel != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if diff := cmp.Diff(logic.DefaultLimits(), cfg.Limits()); diff != "" {
		t.Fatalf("Limits() mismatch (-want +got):\n%s", diff)
	}
	want := viewer.Options{
		UserHeader:  viewer.DefaultUserHeader,
		RolesHeader: viewer.DefaultRolesHeader,
		AdminRole:   viewer.DefaultAdminRole,
	}
	if diff := cmp.Diff(want, cfg.ViewerOptions()); diff != "" {
		t.Fatalf("ViewerOptions() mismatch (-want +got):\n%s", diff)
	}
	if n := len(cfg.ServerOptions()); n != 1 {
		t.Fatalf("ServerOptions() has %d options, want 1", n)
	}

	ev := cfg.Evaluator()
	if diff := cmp.Diff(logic.DefaultLimits(), ev.Limits()); diff != "" {
		t.Fatalf("Evaluator().Limits() mismatch (-want +got):\n%s", diff)
	}
	if v, err := ev.Evaluate("1 < 2", logic.Context{}); v != logic.Visible || err != nil {
		t.Fatalf("Evaluate = %v, %v", v, err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "menulogic.yaml")
	data := strings.Join([]string{
		"port: 8080",
		"menu: /etc/menulogic/menu.yaml",
		"redis_addr: localhost:6379",
		"admin_role: ops",
		"max_steps: 500",
		"max_duration: 10ms",
		"tls_cert: cert.pem",
		"tls_key: key.pem",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != 8080 || cfg.MenuFile != "/etc/menulogic/menu.yaml" || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AdminRole != "ops" || cfg.ViewerOptions().UserHeader != viewer.DefaultUserHeader {
		t.Fatalf("unexpected viewer options: %+v", cfg.ViewerOptions())
	}
	l := cfg.Limits()
	if l.MaxSteps != 500 || l.MaxDuration != 10*time.Millisecond || l.MaxDepth != logic.DefaultMaxDepth {
		t.Fatalf("unexpected limits: %+v", l)
	}
	if n := len(cfg.ServerOptions()); n != 2 {
		t.Fatalf("ServerOptions() has %d options, want 2 with TLS", n)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("MENULOGIC_PORT", "9000")
	t.Setenv("MENULOGIC_REDIS_KEY", "site:conditions")
	t.Setenv("MENULOGIC_MAX_DURATION", "250ms")

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != 9000 || cfg.RedisKey != "site:conditions" || cfg.MaxDuration != 250*time.Millisecond {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(v); err == nil {
		t.Fatal("Load with a missing config file should fail")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]Config{
		"port":     {Port: 70000},
		"tls half": {TLSCert: "cert.pem"},
		"limits":   {MaxSteps: -1},
		"cache":    {CacheSize: -5},
	}
	for name, cfg := range tests {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate(%+v) = nil, want error", cfg)
			}
		})
	}

	if err := (&Config{}).Validate(); err != nil {
		t.Fatalf("zero config should be valid, got %v", err)
	}
}
