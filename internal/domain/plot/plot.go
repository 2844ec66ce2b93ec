// Package plot wires the normalizer and the scale mapper into the data a
// renderer needs: scales, ticks and one point per record.
package plot

import (
	"fmt"
	"strings"

	"github.com/okian/dopingplot/internal/domain/model"
	"github.com/okian/dopingplot/internal/domain/normalize"
	"github.com/okian/dopingplot/internal/domain/scale"
)

const noDopingText = "No doping allegations"

// Plot is the fully derived, immutable chart model.
type Plot struct {
	Width   float64
	Height  float64
	Records []model.NormalizedRecord
	Scales  *scale.Scales
	Points  []model.Point
}

// Build normalizes raw and maps every record into a width x height area.
// It returns either a complete Plot or an error, never a partial result.
func Build(raw []model.RawRecord, width, height float64, opts ...scale.Option) (*Plot, error) {
	records, err := normalize.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	scales, err := scale.Build(records, width, height, opts...)
	if err != nil {
		return nil, fmt.Errorf("build scales: %w", err)
	}

	points := make([]model.Point, len(records))
	for i, r := range records {
		src := raw[r.Index]
		points[i] = model.Point{
			Index:   r.Index,
			X:       scales.X.Map(r.Year),
			Y:       scales.Y.Map(float64(r.TimeSeconds)),
			Doping:  r.HasDoping(),
			Tooltip: Tooltip(src),
			Record:  src,
		}
	}

	return &Plot{
		Width:   width,
		Height:  height,
		Records: records,
		Scales:  scales,
		Points:  points,
	}, nil
}

// Counts returns how many points carry a doping allegation and how many don't.
func (p *Plot) Counts() (doping, clean int) {
	for _, pt := range p.Points {
		if pt.Doping {
			doping++
		} else {
			clean++
		}
	}
	return doping, clean
}

// Tooltip renders the hover text for a record.
func Tooltip(r model.RawRecord) string {
	var b strings.Builder
	b.WriteString(r.Name)
	if r.Nationality != "" {
		b.WriteString(": ")
		b.WriteString(r.Nationality)
	}
	fmt.Fprintf(&b, "\nYear: %d, Time: %s", r.Year, r.Time)
	b.WriteString("\n")
	if r.Doping != "" {
		b.WriteString(r.Doping)
	} else {
		b.WriteString(noDopingText)
	}
	return b.String()
}
