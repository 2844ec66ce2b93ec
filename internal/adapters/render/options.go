package render

import (
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Margins is the space around the plot area, in pixels.
type Margins struct {
	Top, Right, Bottom, Left int
}

// Option applies a configuration option to the renderer.
type Option func(*settings)

type settings struct {
	margins     Margins
	pointRadius float64
	title       string
	subtitle    string
	fontSize    float64
	dopingColor drawing.Color
	cleanColor  drawing.Color
	axisColor   drawing.Color
}

func defaultSettings() settings {
	return settings{
		margins:     Margins{Top: 80, Right: 100, Bottom: 80, Left: 100},
		pointRadius: 6,
		title:       "Doping in Professional Bicycle Racing",
		subtitle:    countPlaceholder + " Fastest times up Alpe d'Huez",
		fontSize:    10,
		dopingColor: drawing.ColorFromHex("ff6b6b"),
		cleanColor:  drawing.ColorFromHex("48dbfb"),
		axisColor:   drawing.ColorBlack,
	}
}

// WithMargins sets the space around the plot area. Negative values are ignored.
func WithMargins(m Margins) Option {
	return func(s *settings) {
		if m.Top >= 0 && m.Right >= 0 && m.Bottom >= 0 && m.Left >= 0 {
			s.margins = m
		}
	}
}

// WithPointRadius sets the dot radius.
func WithPointRadius(r float64) Option {
	return func(s *settings) {
		if r > 0 {
			s.pointRadius = r
		}
	}
}

// WithTitle sets the chart title and subtitle. An empty subtitle is omitted;
// "{n}" in the subtitle is replaced by the number of points.
func WithTitle(title, subtitle string) Option {
	return func(s *settings) {
		s.title = title
		s.subtitle = subtitle
	}
}

// WithColors sets the dot colours as css hex codes.
func WithColors(doping, clean string) Option {
	return func(s *settings) {
		if doping != "" {
			s.dopingColor = drawing.ColorFromHex(doping)
		}
		if clean != "" {
			s.cleanColor = drawing.ColorFromHex(clean)
		}
	}
}

// WithFontSize sets the base font size in points.
func WithFontSize(pt float64) Option {
	return func(s *settings) {
		if pt > 0 {
			s.fontSize = pt
		}
	}
}
