package cmd

import (
	"context"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/fireline-edge/fireline/config"
	"github.com/fireline-edge/fireline/internal/domain/dispatcher"
	"github.com/fireline-edge/fireline/internal/domain/store"
	httpserver "github.com/fireline-edge/fireline/infra/http"
	"github.com/fireline-edge/fireline/infra/logging"
	"github.com/fireline-edge/fireline/infra/telemetry"
)

// NewApp wires the edge coordinator's dependency graph with fx, the same
// shape the teacher uses for its watermill/postgres services: a handful of
// fx.Provide constructors plus one fx.Module per subsystem with its own
// lifecycle hooks.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			provideLogger,
			provideTracerProvider,
			provideTracer,
			provideStore,
			provideDispatcher,
		),
		httpserver.Module,
	)
}

func provideLogger() *slog.Logger {
	return logging.New(slog.LevelInfo)
}

func provideTracerProvider(lc fx.Lifecycle) *sdktrace.TracerProvider {
	tp := telemetry.NewTracerProvider()
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return telemetry.Shutdown(ctx, tp)
		},
	})
	return tp
}

func provideTracer(tp *sdktrace.TracerProvider) trace.Tracer {
	return tp.Tracer("fireline/dispatcher")
}

func provideStore(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) *store.Store {
	st := store.New(logger)
	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go st.StartSweeper(stop, cfg.SweepInterval(), cfg.DedupTTL())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			return nil
		},
	})
	return st
}

func provideDispatcher(st *store.Store, logger *slog.Logger, tracer trace.Tracer) *dispatcher.Dispatcher {
	return dispatcher.New(st, logger, tracer)
}
