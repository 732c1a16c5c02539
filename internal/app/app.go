package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/controllernode/versions/internal/config"
	"github.com/controllernode/versions/internal/handler"
	"github.com/controllernode/versions/internal/ratelimit"
	"github.com/controllernode/versions/internal/release"
	"github.com/controllernode/versions/internal/server"
	"github.com/controllernode/versions/internal/telemetry"
)

type App struct {
	Config      *config.Config
	Manifest    release.Manifest
	Router      http.Handler
	Server      *server.Server
	RateLimiter *ratelimit.Limiter
	Telemetry   *telemetry.Telemetry
}

// New wires the application. tel may be nil when telemetry is not in use.
func New(cfg *config.Config, tel *telemetry.Telemetry) (*App, error) {
	if tel == nil {
		tel = &telemetry.Telemetry{}
	}

	manifest := release.FromConfig(cfg.Release)

	h, err := handler.New(handler.Dependencies{Manifest: manifest})
	if err != nil {
		return nil, err
	}

	// Build rate limiter (nil if disabled)
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
	}

	router := server.NewRouter(h, limiter, server.RouterOptions{
		VersionsPath:   cfg.Release.Path,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Tracing:        tel.Enabled(),
	})

	// Build TLS options
	tlsOpts := server.TLSOptions{
		Mode:          cfg.Server.TLS.Mode,
		CertFile:      cfg.Server.TLS.CertFile,
		KeyFile:       cfg.Server.TLS.KeyFile,
		Domain:        cfg.Server.TLS.Auto.Domain,
		Email:         cfg.Server.TLS.Auto.Email,
		CacheDir:      cfg.Server.TLS.Auto.CacheDir,
		ChallengeAddr: cfg.Server.TLS.Auto.ChallengeAddr,
	}
	if tlsOpts.Mode == "auto" {
		if err := os.MkdirAll(tlsOpts.CacheDir, 0700); err != nil {
			return nil, fmt.Errorf("creating TLS cache directory: %w", err)
		}
	}

	srv := server.New(cfg.Server.Host, cfg.Server.Port, router, tlsOpts)

	return &App{
		Config:      cfg,
		Manifest:    manifest,
		Router:      router,
		Server:      srv,
		RateLimiter: limiter,
		Telemetry:   tel,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	// Start rate limiter cleanup
	if a.RateLimiter != nil {
		go func() {
			ticker := time.NewTicker(a.Config.RateLimit.IdleTTL)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					a.RateLimiter.Cleanup()
				}
			}
		}()
	}

	if !a.Manifest.Lockstep() {
		slog.Warn("controller and node firmware versions differ",
			"controller_version", a.Manifest.Controller.Version,
			"node_version", a.Manifest.Node.Version,
		)
	}

	slog.Info("starting firmware version service",
		"addr", a.Server.Addr(),
		"path", a.Config.Release.Path,
		"controller_version", a.Manifest.Controller.Version,
		"node_version", a.Manifest.Node.Version,
		"tls", a.Server.TLSMode(),
		"rate_limit", a.RateLimiter != nil,
		"telemetry", a.Telemetry.Enabled(),
	)

	return a.Server.Start()
}

// Run serves until ctx is cancelled, then shuts down. It returns only after
// connections are drained and telemetry is flushed.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Start(ctx)
	}()

	select {
	case err := <-errCh:
		// Server failed before any shutdown was requested.
		flushCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(err, a.Telemetry.Shutdown(flushCtx))
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", a.Config.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	shutdownErr := a.Shutdown(shutdownCtx)
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(err, shutdownErr)
	}
	return shutdownErr
}

func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(
		a.Server.Shutdown(ctx),
		a.Telemetry.Shutdown(ctx),
	)
}
