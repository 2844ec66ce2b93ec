package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/okian/dopingplot/internal/adapters/fetch"
	"github.com/okian/dopingplot/internal/adapters/http/api"
	"github.com/okian/dopingplot/internal/adapters/http/site"
	"github.com/okian/dopingplot/internal/adapters/http/swagger"
	"github.com/okian/dopingplot/internal/adapters/render"
	app "github.com/okian/dopingplot/internal/app"
	"github.com/okian/dopingplot/internal/config"
	"github.com/okian/dopingplot/internal/domain/scale"
	"github.com/okian/dopingplot/pkg/logger"
	"github.com/okian/dopingplot/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	outputFileMode    = 0o644
	outputDirMode     = 0o755
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if cfg.LogJSON {
		_ = logger.InitWith(logger.Options{JSON: true})
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	configureMetrics(cfg)
	loggerInstance.Info(ctx, "configuration loaded",
		logger.String("data_url", cfg.DataURL),
		logger.Bool("file_output", cfg.Output != ""),
		logger.Bool("nice", cfg.Nice),
		logger.Float64("time_padding", cfg.TimePadding),
		logger.String("metrics_namespace", cfg.MetricsNamespace),
	)

	svc := newService(cfg, loggerInstance)

	if cfg.Output != "" {
		if err := writeChart(ctx, svc, cfg.Output); err != nil {
			loggerInstance.Error(ctx, "failed to write chart", logger.String("output", cfg.Output), logger.Error(err))
			os.Exit(1)
		}
		loggerInstance.Info(ctx, "chart written", logger.String("output", cfg.Output))
		return
	}

	if err := serve(ctx, cfg, svc, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// configureMetrics applies the metric namespace and const labels. It runs
// before any route captures the registry.
func configureMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithConstLabels(cfg.MetricsLabels),
	)
}

// newService builds the chart service from configuration.
func newService(cfg *config.Config, l logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(l.Named("service")),
		app.WithFetcher(fetch.New(
			fetch.WithTimeout(cfg.FetchTimeout()),
			fetch.WithLogger(l.Named("fetch")),
		)),
		app.WithDataURL(cfg.DataURL),
		app.WithPlotSize(float64(cfg.PlotWidth()), float64(cfg.PlotHeight())),
		app.WithScaleOptions(
			scale.WithPadding(cfg.TimePadding),
			scale.WithYearStride(cfg.YearTickStride),
			scale.WithTickCount(cfg.TimeTickCount),
			scale.WithNice(cfg.Nice),
		),
		app.WithRenderOptions(
			render.WithMargins(render.Margins{
				Top:    cfg.MarginTop,
				Right:  cfg.MarginRight,
				Bottom: cfg.MarginBottom,
				Left:   cfg.MarginLeft,
			}),
			render.WithPointRadius(cfg.PointRadius),
		),
	)
}

// writeChart loads the chart once and writes the SVG to path.
func writeChart(ctx context.Context, svc *app.Service, path string) error {
	if err := svc.Load(ctx); err != nil {
		return err
	}
	svg, ok := svc.SVG()
	if !ok {
		return app.ErrNotReady
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, outputDirMode); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, svg, outputFileMode); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// newHTTPServer wires the API, docs and chart page routes into an http.Server.
func newHTTPServer(cfg *config.Config, svc *app.Service) *http.Server {
	apiServer := api.NewServer(svc, api.WithCORSOrigins(cfg.CORSOrigins))
	router := apiServer.Routes()
	swagger.Register(router)
	site.Register(router)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// serve loads the chart in the background and serves the API until ctx is
// cancelled. Chart endpoints answer 503 until the load succeeds.
func serve(ctx context.Context, cfg *config.Config, svc *app.Service, l logger.Logger) error {
	go func() {
		// Load logs its own failures; the process keeps serving health and stats.
		_ = svc.Load(ctx)
	}()

	srv := newHTTPServer(cfg, svc)
	errCh := make(chan error, 1)
	go func() {
		l.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	l.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	l.Info(ctx, "server stopped")
	return nil
}
