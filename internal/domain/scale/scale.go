// Package scale maps normalized records to pixel space and builds axis ticks.
package scale

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/dopingplot/internal/domain/model"
	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	// degenerateEpsilon widens a zero-width domain by one unit per side.
	degenerateEpsilon = 1
	secondsPerMinute  = 60
	secondsPerHour    = 3600
)

// Preferred y tick steps in seconds.
var timeSteps = []float64{1, 2, 5, 10, 15, 20, 30, 60, 120, 300, 600, 900, 1200, 1800, secondsPerHour}

// Linear is an affine map from [DomainMin, DomainMax] to [RangeMin, RangeMax].
type Linear struct {
	DomainMin float64 `json:"domain_min"`
	DomainMax float64 `json:"domain_max"`
	RangeMin  float64 `json:"range_min"`
	RangeMax  float64 `json:"range_max"`
}

// Map projects a domain value into the range.
func (l Linear) Map(v float64) float64 {
	ratio := (v - l.DomainMin) / (l.DomainMax - l.DomainMin)
	return l.RangeMin + ratio*(l.RangeMax-l.RangeMin)
}

// Invert projects a range value back into the domain.
func (l Linear) Invert(px float64) float64 {
	ratio := (px - l.RangeMin) / (l.RangeMax - l.RangeMin)
	return l.DomainMin + ratio*(l.DomainMax-l.DomainMin)
}

// YearScale is a Linear over Unix seconds, addressed by calendar time.
type YearScale struct {
	Linear
}

// Map projects a point in time onto the x range.
func (s YearScale) Map(t time.Time) float64 {
	return s.Linear.Map(float64(t.Unix()))
}

// Min is the lower domain bound.
func (s YearScale) Min() time.Time { return time.Unix(int64(s.DomainMin), 0).UTC() }

// Max is the upper domain bound.
func (s YearScale) Max() time.Time { return time.Unix(int64(s.DomainMax), 0).UTC() }

// Scales bundles both axis mappings with their ticks. Tick values are in
// the units of the corresponding Linear domain (Unix seconds for X,
// race seconds for Y).
type Scales struct {
	X      YearScale
	Y      Linear
	XTicks []chart.Tick
	YTicks []chart.Tick
}

// Build derives both scales from the record set. Smaller times map to
// smaller pixel-y so faster rides are drawn higher on the chart.
func Build(records []model.NormalizedRecord, width, height float64, opts ...Option) (*Scales, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return nil, fmt.Errorf("render area %gx%g: %w", width, height, ErrDegenerateDomain)
	}

	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	minYear, maxYear := records[0].Year, records[0].Year
	minT, maxT := records[0].TimeSeconds, records[0].TimeSeconds
	for _, r := range records[1:] {
		if r.Year.Before(minYear) {
			minYear = r.Year
		}
		if r.Year.After(maxYear) {
			maxYear = r.Year
		}
		minT = min(minT, r.TimeSeconds)
		maxT = max(maxT, r.TimeSeconds)
	}

	x, firstYear, lastYear := yearScale(minYear, maxYear, width, cfg)
	y, step := timeScale(float64(minT), float64(maxT), height, cfg)

	return &Scales{
		X:      x,
		Y:      y,
		XTicks: yearTicks(firstYear, lastYear, cfg.yearStride),
		YTicks: timeTicks(y, step),
	}, nil
}

// yearScale floors/ceils to year boundaries and, when niceing, widens the
// domain outward to the tick stride.
func yearScale(minT, maxT time.Time, width float64, cfg settings) (YearScale, int, int) {
	lo := minT.UTC().Year()
	hi := maxT.UTC().Year()
	if !yearDate(hi).Equal(maxT.UTC()) {
		hi++
	}
	if lo == hi {
		lo -= degenerateEpsilon
		hi += degenerateEpsilon
	}
	if cfg.nice {
		stride := float64(cfg.yearStride)
		lo = int(math.Floor(float64(lo)/stride) * stride)
		hi = int(math.Ceil(float64(hi)/stride) * stride)
	}
	return YearScale{Linear{
		DomainMin: float64(yearDate(lo).Unix()),
		DomainMax: float64(yearDate(hi).Unix()),
		RangeMin:  0,
		RangeMax:  width,
	}}, lo, hi
}

// timeScale pads the time extent and picks the tick step for it. The lower
// bound never drops below zero.
func timeScale(lo, hi, height float64, cfg settings) (Linear, float64) {
	if lo == hi {
		lo -= degenerateEpsilon
		hi += degenerateEpsilon
	}
	pad := (hi - lo) * cfg.padding
	lo = max(lo-pad, 0)
	hi += pad

	step := tickStep(hi-lo, cfg.tickCount)
	if cfg.nice {
		lo = math.Floor(lo/step) * step
		hi = math.Ceil(hi/step) * step
	}
	return Linear{DomainMin: lo, DomainMax: hi, RangeMin: 0, RangeMax: height}, step
}

// tickStep returns the smallest preferred step yielding at most count
// intervals across span.
func tickStep(span float64, count int) float64 {
	for _, s := range timeSteps {
		if span/s <= float64(count) {
			return s
		}
	}
	return math.Ceil(span/float64(count)/secondsPerHour) * secondsPerHour
}

func yearTicks(lo, hi, stride int) []chart.Tick {
	first := int(math.Ceil(float64(lo)/float64(stride))) * stride
	var ticks []chart.Tick
	for y := first; y <= hi; y += stride {
		t := yearDate(y)
		ticks = append(ticks, chart.Tick{Value: float64(t.Unix()), Label: FormatYear(t)})
	}
	return ticks
}

func timeTicks(y Linear, step float64) []chart.Tick {
	first := int(math.Ceil(y.DomainMin / step))
	last := int(math.Floor(y.DomainMax / step))
	ticks := make([]chart.Tick, 0, last-first+1)
	for k := first; k <= last; k++ {
		v := float64(k) * step
		ticks = append(ticks, chart.Tick{Value: v, Label: FormatSeconds(v)})
	}
	return ticks
}

// FormatYear renders the year component as four digits.
func FormatYear(t time.Time) string {
	return t.UTC().Format("2006")
}

// FormatSeconds renders whole seconds as "m:ss" (3600 -> "60:00").
func FormatSeconds(v float64) string {
	s := int(math.Floor(v))
	sign := ""
	if s < 0 {
		sign = "-"
		s = -s
	}
	return fmt.Sprintf("%s%d:%02d", sign, s/secondsPerMinute, s%secondsPerMinute)
}

func yearDate(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
