// Package service loads the cyclist dataset once, derives the chart model
// and its SVG rendering, and serves both to the HTTP API.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/dopingplot/internal/adapters/fetch"
	"github.com/okian/dopingplot/internal/adapters/render"
	"github.com/okian/dopingplot/internal/domain/normalize"
	"github.com/okian/dopingplot/internal/domain/plot"
	"github.com/okian/dopingplot/internal/domain/scale"
	"github.com/okian/dopingplot/pkg/logger"
	"github.com/okian/dopingplot/pkg/metrics"
)

// Default plot area, matching the default canvas minus the default margins.
const (
	defaultPlotWidth  = 700
	defaultPlotHeight = 340
)

// Pipeline stages reported on errors.
const (
	stageFetch  = "fetch"
	stageBuild  = "build"
	stageRender = "render"
)

// Service holds the chart built from one successful load.
type Service struct {
	// loadMu serializes Load so the dataset is fetched at most once at a time.
	loadMu sync.Mutex
	mu     sync.RWMutex

	// Collaborators
	fetcher fetch.Fetcher
	logger  logger.Logger

	// Configuration
	dataURL    string
	width      float64
	height     float64
	scaleOpts  []scale.Option
	renderOpts []render.Option

	// State
	loaded   bool
	loadID   string
	loadedAt time.Time
	attempts int
	lastErr  error
	plot     *plot.Plot
	svg      []byte
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFetcher replaces the dataset source.
func WithFetcher(f fetch.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithDataURL sets where the dataset is loaded from.
func WithDataURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.dataURL = u
		}
	}
}

// WithPlotSize sets the plot area in pixels.
func WithPlotSize(width, height float64) Option {
	return func(s *Service) {
		s.width = width
		s.height = height
	}
}

// WithScaleOptions passes options through to the scale mapper.
func WithScaleOptions(opts ...scale.Option) Option {
	return func(s *Service) {
		s.scaleOpts = append(s.scaleOpts, opts...)
	}
}

// WithRenderOptions passes options through to the SVG renderer.
func WithRenderOptions(opts ...render.Option) Option {
	return func(s *Service) {
		s.renderOpts = append(s.renderOpts, opts...)
	}
}

// New constructs a Service. Nothing is fetched until Load is called.
func New(opts ...Option) *Service {
	s := &Service{
		width:  defaultPlotWidth,
		height: defaultPlotHeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.fetcher == nil {
		s.fetcher = fetch.New(fetch.WithLogger(s.logger.Named("fetch")))
	}
	return s
}

// Load fetches the dataset, builds the plot and renders it. On failure the
// error is logged and returned and nothing is stored. Once a load has
// succeeded, further calls return nil without doing any work.
func (s *Service) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.attempts++
	s.mu.Unlock()

	loadID := uuid.NewString()
	log := s.logger.With(logger.String("load_id", loadID))
	log.Info(ctx, "loading dataset", logger.String("url", s.dataURL))

	p, svg, err := s.run(ctx, log)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadID = loadID
	if err != nil {
		s.lastErr = err
		return err
	}
	s.loaded = true
	s.loadedAt = time.Now()
	s.lastErr = nil
	s.plot = p
	s.svg = svg

	doping, clean := p.Counts()
	metrics.SetChart(len(p.Points), doping)
	log.Info(ctx, "chart ready",
		logger.Int("records", len(p.Points)),
		logger.Int("doping", doping),
		logger.Int("clean", clean),
		logger.Int("svgBytes", len(svg)),
	)
	return nil
}

func (s *Service) run(ctx context.Context, log logger.Logger) (*plot.Plot, []byte, error) {
	raw, err := s.fetcher.Fetch(ctx, s.dataURL)
	if err != nil {
		return nil, nil, s.fail(ctx, log, stageFetch, err)
	}

	start := time.Now()
	p, err := plot.Build(raw, s.width, s.height, s.scaleOpts...)
	if err != nil {
		return nil, nil, s.fail(ctx, log, stageBuild, err)
	}
	metrics.RecordBuild(float64(time.Since(start).Microseconds()) / 1000)

	start = time.Now()
	var buf bytes.Buffer
	if err := render.Render(&buf, p, s.renderOpts...); err != nil {
		return nil, nil, s.fail(ctx, log, stageRender, err)
	}
	metrics.RecordRender(float64(time.Since(start).Microseconds()) / 1000)

	return p, buf.Bytes(), nil
}

func (s *Service) fail(ctx context.Context, log logger.Logger, stage string, err error) error {
	kind := ErrorKind(err)
	metrics.RecordPipelineError(stage, kind)
	log.Error(ctx, "load failed",
		logger.String("stage", stage),
		logger.String("kind", kind),
		logger.Error(err),
	)
	return fmt.Errorf("%s: %w", stage, err)
}

// ErrorKind classifies a pipeline error for metrics and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, normalize.ErrParse):
		return "parse"
	case errors.Is(err, normalize.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, scale.ErrEmptyDataset):
		return "empty_dataset"
	case errors.Is(err, scale.ErrDegenerateDomain):
		return "degenerate_domain"
	case errors.Is(err, fetch.ErrFetch):
		return "fetch"
	case errors.Is(err, render.ErrRender):
		return "render"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}

// Ready reports whether a chart has been built.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Plot returns the built chart model.
func (s *Service) Plot() (*plot.Plot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plot, s.loaded
}

// SVG returns the rendered chart.
func (s *Service) SVG() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.svg, s.loaded
}

// LastError returns the error of the most recent failed load, or ErrNotReady
// when no load has been attempted.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loaded {
		return nil
	}
	if s.lastErr != nil {
		return s.lastErr
	}
	return ErrNotReady
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"ready":    s.loaded,
		"dataUrl":  s.dataURL,
		"attempts": s.attempts,
		"width":    s.width,
		"height":   s.height,
	}
	if s.loadID != "" {
		stats["loadId"] = s.loadID
	}
	if s.lastErr != nil {
		stats["lastError"] = s.lastErr.Error()
		stats["lastErrorKind"] = ErrorKind(s.lastErr)
	}

	if s.loaded {
		doping, clean := s.plot.Counts()
		stats["loadedAt"] = s.loadedAt.UTC().Format(time.RFC3339)
		stats["records"] = len(s.plot.Points)
		stats["doping"] = doping
		stats["clean"] = clean
		stats["svgBytes"] = len(s.svg)
		stats["yearMin"] = scale.FormatYear(s.plot.Scales.X.Min())
		stats["yearMax"] = scale.FormatYear(s.plot.Scales.X.Max())
	}

	return stats
}
