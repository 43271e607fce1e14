// Package app assembles the reference backend with fx.
package app

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"medequip/internal/server/config"
	"medequip/internal/server/httpapi"
	"medequip/internal/server/repository/sqlite"
	"medequip/internal/server/service"
	"medequip/internal/shared/logs"
)

const shutdownTimeout = 10 * time.Second

type BuildInfo struct {
	Version   string
	BuildDate string
}

// Options returns the full dependency graph. configPath may be empty.
func Options(info BuildInfo, configPath string) fx.Option {
	return fx.Options(
		fx.Supply(info),
		fx.Provide(
			func() (*config.Config, error) { return config.Load(configPath) },
			newLogger,
			newRepository,
			newServices,
			newHandler,
			newHTTPServer,
		),
		fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
			fl := &fxevent.SlogLogger{Logger: l}
			fl.UseLogLevel(slog.LevelDebug)
			return fl
		}),
		fx.Invoke(func(*http.Server) {}),
	)
}

func New(info BuildInfo, configPath string) *fx.App {
	return fx.New(Options(info, configPath))
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logs.New(cfg.Log, os.Stdout)
	if err != nil {
		return nil, err
	}
	if cfg.UsesDevSecret() {
		logger.Warn("using development JWT secret; set MEDEQUIPD_AUTH_JWTSECRET")
	}
	return logger, nil
}

func newRepository(lc fx.Lifecycle, cfg *config.Config) (*sqlite.Repository, error) {
	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return repo.Close() }})
	return repo, nil
}

func newServices(repo *sqlite.Repository, cfg *config.Config, logger *slog.Logger) *service.Services {
	return service.NewServices(repo, cfg, service.WithLogger(logger))
}

func newHandler(services *service.Services, repo *sqlite.Repository, cfg *config.Config, logger *slog.Logger) http.Handler {
	return httpapi.NewRouter(services, repo, logger, cfg.HTTP.MaxRequestBytes)
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, handler http.Handler, logger *slog.Logger, info BuildInfo) *http.Server {
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return errors.Wrapf(err, "listen %s", server.Addr)
			}
			logger.Info("medequip server listening",
				slog.String("addr", ln.Addr().String()),
				slog.String("version", info.Version),
				slog.String("buildDate", info.BuildDate))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", slog.Any("error", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			logger.Info("shutting down http server")
			return errors.WithStack(server.Shutdown(ctx))
		},
	})
	return server
}
