package scale

// Default scale configuration constants.
const (
	defaultPadding    = 0.05
	defaultYearStride = 2
	defaultTickCount  = 10
)

type settings struct {
	padding    float64
	yearStride int
	tickCount  int
	nice       bool
}

func defaultSettings() settings {
	return settings{
		padding:    defaultPadding,
		yearStride: defaultYearStride,
		tickCount:  defaultTickCount,
		nice:       true,
	}
}

// Option applies a configuration option to Build.
type Option func(*settings)

// WithPadding sets the symmetric time-axis padding as a fraction of the
// time range. Negative values are ignored.
func WithPadding(ratio float64) Option {
	return func(s *settings) {
		if ratio >= 0 {
			s.padding = ratio
		}
	}
}

// WithYearStride sets the distance in years between x-axis ticks.
func WithYearStride(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.yearStride = n
		}
	}
}

// WithTickCount sets the desired number of y-axis ticks.
func WithTickCount(n int) Option {
	return func(s *settings) {
		if n > 1 {
			s.tickCount = n
		}
	}
}

// WithNice toggles outward rounding of both domains to tick boundaries.
func WithNice(nice bool) Option {
	return func(s *settings) {
		s.nice = nice
	}
}
