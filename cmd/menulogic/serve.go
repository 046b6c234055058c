package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/mchmarny/menulogic/pkg/config"
	"github.com/mchmarny/menulogic/pkg/menu"
	"github.com/mchmarny/menulogic/pkg/metric"
	"github.com/mchmarny/menulogic/pkg/report"
	"github.com/mchmarny/menulogic/pkg/server"
	"github.com/mchmarny/menulogic/pkg/viewer"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the menu, filtered per viewer, over HTTP",
		Long: `Serve the menu at /menu as a JSON tree filtered for the viewer identified
by the trusted user and roles headers. Liveness is served at /healthz,
Prometheus metrics at /metrics and, with a condition store, readiness at
/readyz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	f := cmd.Flags()
	f.Int("port", server.DefaultPort, "port to listen on")
	f.String("admin-role", viewer.DefaultAdminRole, "role allowed to see evaluation errors")
	bindFlags(a.v, f, map[string]string{
		config.KeyPort:      "port",
		config.KeyAdminRole: "admin-role",
	})
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	m, err := config.LoadMenu(a.cfg.MenuFile)
	if err != nil {
		return err
	}

	ev := a.cfg.Evaluator()
	for _, p := range config.CheckMenu(m, ev) {
		slog.Warn("menu definition problem", "item", p.ID, "problem", p.Message)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	verdicts, failures := metric.NewVisibilityCounters(reg)

	opts := []menu.HandlerOption{
		menu.WithContext(a.cfg.ViewerOptions().Build),
		menu.WithReporter(report.NewLog(slog.Default())),
		menu.WithMetrics(verdicts, failures),
	}
	srvOpts := append(a.cfg.ServerOptions(), server.WithMetrics(reg))

	if a.cfg.RedisAddr != "" {
		st, err := a.conditionStore()
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				slog.Error("failed to close condition store", "error", err)
			}
		}()
		opts = append(opts, menu.WithConditionSource(st))
		srvOpts = append(srvOpts, server.WithReadinessCheck(st))
		slog.Info("using condition store", "addr", a.cfg.RedisAddr)
	}

	return m.Run(ctx, m.Handler(ev, opts...), srvOpts...)
}
