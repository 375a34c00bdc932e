package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"go.uber.org/fx"

	"github.com/fireline-edge/fireline/config"
	"github.com/fireline-edge/fireline/internal/domain/dispatcher"
)

// Module provides the HTTP server and wires its lifecycle into fx, the
// same OnStart/OnStop hook shape the teacher uses for its watermill
// router (cmd/fx.go, internal/handler/amqp/router.go).
var Module = fx.Module("httpserver",
	fx.Provide(func(cfg *config.Config, d *dispatcher.Dispatcher, logger *slog.Logger) *Server {
		return NewServer(d, logger, cfg.MailboxSize)
	}),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, s *Server, logger *slog.Logger) {
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: s.Handler()}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.ListenAddr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server exited", "error", err)
				}
			}()
			logger.Info("edge node listening", "addr", cfg.ListenAddr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
