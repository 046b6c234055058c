package menu

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mchmarny/menulogic/pkg/server"
)

// Path is where Run mounts the menu handler.
const Path = "/menu"

// Run serves handler at Path and blocks until the context is canceled or
// the server fails. A health endpoint is always registered.
func (m *Menu) Run(ctx context.Context, handler http.Handler, opt ...server.Option) error {
	slog.Info("starting menu server",
		"title", m.Title,
		"version", m.Version,
		"items", len(m.Items),
	)

	opt = append(opt,
		server.WithHandler(Path, handler),
		server.WithSimpleHealth(),
	)

	return server.New(opt...).Serve(ctx)
}
