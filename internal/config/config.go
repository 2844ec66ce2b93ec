// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultDataURL serves the cyclist dataset plotted by default.
const DefaultDataURL = "https://raw.githubusercontent.com/freeCodeCamp/ProjectReferenceData/master/cyclist-data.json"

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches the log handler to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataURL is fetched once at startup. file:// URLs and plain paths are read from disk.
	DataURL string `koanf:"data_url"`

	// FetchTimeoutMS bounds the single dataset fetch.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// Output, when set, writes the SVG to this path and exits instead of serving.
	Output string `koanf:"output"`

	// CanvasWidth and CanvasHeight are the full SVG size in pixels.
	CanvasWidth  int `koanf:"canvas_width"`
	CanvasHeight int `koanf:"canvas_height"`

	// Margins around the plot area.
	MarginTop    int `koanf:"margin_top"`
	MarginRight  int `koanf:"margin_right"`
	MarginBottom int `koanf:"margin_bottom"`
	MarginLeft   int `koanf:"margin_left"`

	// PointRadius is the dot radius in pixels.
	PointRadius float64 `koanf:"point_radius"`

	// TimePadding is the y-domain padding as a fraction of the time range.
	TimePadding float64 `koanf:"time_padding"`

	// YearTickStride is the distance in years between x ticks.
	YearTickStride int `koanf:"year_tick_stride"`

	// TimeTickCount is the desired number of y ticks.
	TimeTickCount int `koanf:"time_tick_count"`

	// Nice rounds both domains outward to tick boundaries.
	Nice bool `koanf:"nice"`

	// CORSOrigins lists origins allowed to call the JSON endpoints.
	CORSOrigins []string `koanf:"cors_origins"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsLabels are constant labels attached to every metric.
	// From env: DOPINGPLOT_METRICS_LABELS="env=prod,region=eu".
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		DataURL:        DefaultDataURL,
		FetchTimeoutMS: 10_000,
		CanvasWidth:    900,
		CanvasHeight:   500,
		MarginTop:      80,
		MarginRight:    100,
		MarginBottom:   80,
		MarginLeft:     100,
		PointRadius:    6,
		TimePadding:    0.05,
		YearTickStride: 2,
		TimeTickCount:  10,
		Nice:           true,
		CORSOrigins:    []string{"*"},

		MetricsNamespace: "dopingplot",
	}
}

// PlotWidth is the canvas width minus horizontal margins.
func (c *Config) PlotWidth() int { return c.CanvasWidth - c.MarginLeft - c.MarginRight }

// PlotHeight is the canvas height minus vertical margins.
func (c *Config) PlotHeight() int { return c.CanvasHeight - c.MarginTop - c.MarginBottom }

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DataURL) == "":
		return fmt.Errorf("%w: data_url must not be empty", ErrInvalidConfig)
	case c.Output == "" && strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.FetchTimeoutMS <= 0:
		return fmt.Errorf("%w: fetch_timeout_ms must be positive", ErrInvalidConfig)
	case c.MarginTop < 0 || c.MarginRight < 0 || c.MarginBottom < 0 || c.MarginLeft < 0:
		return fmt.Errorf("%w: margins must not be negative", ErrInvalidConfig)
	case c.PlotWidth() <= 0 || c.PlotHeight() <= 0:
		return fmt.Errorf("%w: plot area %dx%d leaves no room inside margins", ErrInvalidConfig, c.PlotWidth(), c.PlotHeight())
	case c.PointRadius <= 0:
		return fmt.Errorf("%w: point_radius must be positive", ErrInvalidConfig)
	case c.TimePadding < 0:
		return fmt.Errorf("%w: time_padding must not be negative", ErrInvalidConfig)
	case c.YearTickStride <= 0:
		return fmt.Errorf("%w: year_tick_stride must be positive", ErrInvalidConfig)
	case c.TimeTickCount < 2:
		return fmt.Errorf("%w: time_tick_count must be at least 2", ErrInvalidConfig)
	case !metricName.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	}
	for k := range c.MetricsLabels {
		if !metricName.MatchString(k) {
			return fmt.Errorf("%w: metrics label %q is not a valid label name", ErrInvalidConfig, k)
		}
	}
	return nil
}
