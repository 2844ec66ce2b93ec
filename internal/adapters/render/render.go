// Package render draws a plot.Plot as an SVG scatter chart using go-chart's
// vector renderer.
package render

import (
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/dopingplot/internal/domain/plot"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	countPlaceholder = "{n}"

	tickLength     = 6
	tickLabelGap   = 4
	axisTitleGap   = 40
	legendSwatch   = 16
	legendRowGap   = 8
	legendInset    = 10
	legendTextGap  = 6
	titleScale     = 2.0
	subtitleScale  = 1.4
	glyphWidthEm   = 0.55 // average glyph width for the default sans-serif face
	lineWidth      = 1
	pointLineWidth = 1
)

// Dot classes. Colours come from the embedded stylesheet.
const (
	dotClass    = "dot"
	dopingClass = "doping"
	cleanClass  = "clean"
)

// Legend entries.
const (
	legendClean  = "No doping allegations"
	legendDoping = "Riders with doping allegations"
	xAxisTitle   = "Year"
	yAxisTitle   = "Time in Minutes"
)

// Render writes p as an SVG document to w.
func Render(w io.Writer, p *plot.Plot, opts ...Option) error {
	if p == nil || p.Scales == nil {
		return fmt.Errorf("%w: nil plot", ErrRender)
	}
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	m := cfg.margins
	width := m.Left + int(math.Round(p.Width)) + m.Right
	height := m.Top + int(math.Round(p.Height)) + m.Bottom

	r, err := chart.SVGWithCSS(stylesheet(cfg), "")(width, height)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	c := &canvas{r: r, cfg: cfg, p: p, width: width, height: height}

	c.title()
	c.xAxis()
	c.yAxis()
	c.points()
	c.legend()

	if err := r.Save(w); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

// stylesheet styles the dots so they can be addressed as circle.dot.
func stylesheet(cfg settings) string {
	return fmt.Sprintf(".%[1]s{stroke:%[2]s;stroke-width:%[3]d}.%[1]s.%[4]s{fill:%[5]s}.%[1]s.%[6]s{fill:%[7]s}",
		dotClass, cfg.axisColor, pointLineWidth,
		dopingClass, cfg.dopingColor,
		cleanClass, cfg.cleanColor)
}

type canvas struct {
	r      chart.Renderer
	cfg    settings
	p      *plot.Plot
	width  int
	height int
}

// px converts plot-area coordinates to canvas pixels.
func (c *canvas) px(x, y float64) (int, int) {
	return c.cfg.margins.Left + int(math.Round(x)), c.cfg.margins.Top + int(math.Round(y))
}

func (c *canvas) line(x0, y0, x1, y1 int, color drawing.Color) {
	c.r.ResetStyle()
	c.r.SetStrokeColor(color)
	c.r.SetStrokeWidth(lineWidth)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

func (c *canvas) text(body string, x, y int, scale float64) {
	c.r.ResetStyle()
	c.r.SetFontColor(c.cfg.axisColor)
	c.r.SetFontSize(c.cfg.fontSize * scale)
	c.r.Text(html.EscapeString(body), x, y)
}

// textWidth estimates the rendered width of body in pixels. The SVG
// renderer has no font metrics without a loaded face.
func (c *canvas) textWidth(body string, scale float64) int {
	sizePx := drawing.PointsToPixels(c.r.GetDPI(), c.cfg.fontSize*scale)
	return int(math.Round(float64(len([]rune(body))) * sizePx * glyphWidthEm))
}

func (c *canvas) fontPx(scale float64) int {
	return int(math.Round(drawing.PointsToPixels(c.r.GetDPI(), c.cfg.fontSize*scale)))
}

func (c *canvas) title() {
	if c.cfg.title != "" {
		y := c.cfg.margins.Top / 2
		c.text(c.cfg.title, (c.width-c.textWidth(c.cfg.title, titleScale))/2, y, titleScale)
	}
	if c.cfg.subtitle != "" {
		sub := strings.ReplaceAll(c.cfg.subtitle, countPlaceholder, strconv.Itoa(len(c.p.Points)))
		y := c.cfg.margins.Top/2 + c.fontPx(subtitleScale) + legendRowGap
		c.text(sub, (c.width-c.textWidth(sub, subtitleScale))/2, y, subtitleScale)
	}
}

func (c *canvas) xAxis() {
	s := c.p.Scales
	x0, y0 := c.px(0, c.p.Height)
	x1, _ := c.px(c.p.Width, c.p.Height)
	c.line(x0, y0, x1, y0, c.cfg.axisColor)

	labelY := y0 + tickLength + tickLabelGap + c.fontPx(1)
	for _, t := range s.XTicks {
		x, _ := c.px(s.X.Linear.Map(t.Value), c.p.Height)
		c.line(x, y0, x, y0+tickLength, c.cfg.axisColor)
		c.text(t.Label, x-c.textWidth(t.Label, 1)/2, labelY, 1)
	}

	c.text(xAxisTitle, (x0+x1-c.textWidth(xAxisTitle, 1))/2, labelY+axisTitleGap/2, 1)
}

func (c *canvas) yAxis() {
	s := c.p.Scales
	x0, y0 := c.px(0, 0)
	_, y1 := c.px(0, c.p.Height)
	c.line(x0, y0, x0, y1, c.cfg.axisColor)

	half := c.fontPx(1) / 2
	for _, t := range s.YTicks {
		_, y := c.px(0, s.Y.Map(t.Value))
		c.line(x0-tickLength, y, x0, y, c.cfg.axisColor)
		c.text(t.Label, x0-tickLength-tickLabelGap-c.textWidth(t.Label, 1), y+half, 1)
	}

	tx := x0 - axisTitleGap - tickLength
	ty := (y0+y1)/2 + c.textWidth(yAxisTitle, 1)/2
	c.r.SetTextRotation(-math.Pi / 2)
	c.text(yAxisTitle, tx, ty, 1)
	c.r.ClearTextRotation()
}

func (c *canvas) points() {
	for _, pt := range c.p.Points {
		x, y := c.px(pt.X, pt.Y)
		c.r.ResetStyle()
		if pt.Doping {
			c.r.SetClassName(dotClass + " " + dopingClass)
		} else {
			c.r.SetClassName(dotClass + " " + cleanClass)
		}
		c.r.Circle(c.cfg.pointRadius, x, y)
	}
}

func (c *canvas) legend() {
	doping, clean := c.p.Counts()
	rows := []struct {
		label string
		color drawing.Color
	}{
		{fmt.Sprintf("%s (%d)", legendClean, clean), c.cfg.cleanColor},
		{fmt.Sprintf("%s (%d)", legendDoping, doping), c.cfg.dopingColor},
	}

	widest := 0
	for _, row := range rows {
		widest = max(widest, c.textWidth(row.label, 1))
	}
	right, top := c.px(c.p.Width, 0)
	x := right - legendInset - legendSwatch - legendTextGap - widest
	y := top + legendInset

	for i, row := range rows {
		ry := y + i*(legendSwatch+legendRowGap)
		c.r.ResetStyle()
		c.r.SetFillColor(row.color)
		c.r.SetStrokeColor(c.cfg.axisColor)
		c.r.SetStrokeWidth(lineWidth)
		c.r.MoveTo(x, ry)
		c.r.LineTo(x+legendSwatch, ry)
		c.r.LineTo(x+legendSwatch, ry+legendSwatch)
		c.r.LineTo(x, ry+legendSwatch)
		c.r.Close()
		c.r.FillStroke()

		c.text(row.label, x+legendSwatch+legendTextGap, ry+legendSwatch-legendTextGap/2, 1)
	}
}
