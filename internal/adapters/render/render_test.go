package render_test

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/okian/dopingplot/internal/adapters/render"
	"github.com/okian/dopingplot/internal/domain/model"
	"github.com/okian/dopingplot/internal/domain/plot"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	dopingRule = ".dot.doping{fill:rgba(255,107,107,1.0)}"
	cleanRule  = ".dot.clean{fill:rgba(72,219,251,1.0)}"
)

var circleRe = regexp.MustCompile(`<circle cx="(-?\d+)" cy="(-?\d+)" r="(\d+)" class="([^"]*)"/>`)

func samplePlot() *plot.Plot {
	raw := []model.RawRecord{
		{Time: "36:50", Year: 1995, Name: "Marco Pantani", Nationality: "ITA", Doping: "Alleged drug use during 1995 due to high hematocrit levels"},
		{Time: "37:15", Year: 1994, Name: "Miguel Indurain", Nationality: "ESP"},
		{Time: "38:40", Year: 2006, Name: "Floyd Landis", Nationality: "USA", Doping: "Stripped of 2006 Tour de France title"},
		{Time: "39:50", Year: 2015, Name: "Chris Froome", Nationality: "GBR"},
	}
	p, err := plot.Build(raw, 700, 340)
	if err != nil {
		panic(err)
	}
	return p
}

func TestRender(t *testing.T) {
	Convey("Given a built plot", t, func() {
		p := samplePlot()

		Convey("When rendering with default options", func() {
			var buf bytes.Buffer
			err := render.Render(&buf, p)
			So(err, ShouldBeNil)
			svg := buf.String()

			Convey("Then it is a complete SVG document of the canvas size", func() {
				So(svg, ShouldStartWith, "<svg")
				So(svg, ShouldEndWith, "</svg>")
				So(svg, ShouldContainSubstring, `viewBox="0 0 900 500"`)
			})

			Convey("And there is one coloured dot per point", func() {
				circles := circleRe.FindAllStringSubmatch(svg, -1)
				So(circles, ShouldHaveLength, len(p.Points))

				doping, clean := 0, 0
				for i, c := range circles {
					cx, _ := strconv.Atoi(c[1])
					cy, _ := strconv.Atoi(c[2])
					So(cx, ShouldBeBetweenOrEqual, 100, 800)
					So(cy, ShouldBeBetweenOrEqual, 80, 420)
					So(c[3], ShouldEqual, "6")
					if p.Points[i].Doping {
						So(c[4], ShouldEqual, "dot doping")
						doping++
					} else {
						So(c[4], ShouldEqual, "dot clean")
						clean++
					}
				}
				So(doping, ShouldEqual, 2)
				So(clean, ShouldEqual, 2)
			})

			Convey("And the dot colours are set by the embedded stylesheet", func() {
				So(svg, ShouldContainSubstring, `<style type="text/css"><![CDATA[`)
				So(svg, ShouldContainSubstring, ".dot{stroke:rgba(0,0,0,1.0);stroke-width:1}")
				So(svg, ShouldContainSubstring, dopingRule)
				So(svg, ShouldContainSubstring, cleanRule)
			})

			Convey("And the fastest ride is drawn highest", func() {
				circles := circleRe.FindAllStringSubmatch(svg, -1)
				fastest, _ := strconv.Atoi(circles[0][2])
				slowest, _ := strconv.Atoi(circles[3][2])
				So(fastest, ShouldBeLessThan, slowest)
			})

			Convey("And every tick label is drawn", func() {
				for _, tk := range p.Scales.XTicks {
					So(svg, ShouldContainSubstring, ">"+tk.Label+"</text>")
				}
				for _, tk := range p.Scales.YTicks {
					So(svg, ShouldContainSubstring, ">"+tk.Label+"</text>")
				}
			})

			Convey("And titles and the legend are present", func() {
				So(svg, ShouldContainSubstring, "Doping in Professional Bicycle Racing")
				So(svg, ShouldContainSubstring, "4 Fastest times up Alpe d&#39;Huez")
				So(svg, ShouldContainSubstring, ">Year</text>")
				So(svg, ShouldContainSubstring, "rotate(-90.00")
				So(svg, ShouldContainSubstring, "No doping allegations (2)")
				So(svg, ShouldContainSubstring, "Riders with doping allegations (2)")
			})
		})

		Convey("When rendering with custom options", func() {
			var buf bytes.Buffer
			err := render.Render(&buf, p,
				render.WithMargins(render.Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}),
				render.WithPointRadius(3),
				render.WithTitle("Custom <title>", ""),
				render.WithColors("#000000", "fff"),
				render.WithFontSize(12),
			)
			So(err, ShouldBeNil)
			svg := buf.String()

			Convey("Then they are applied", func() {
				So(svg, ShouldContainSubstring, `viewBox="0 0 720 360"`)
				So(svg, ShouldContainSubstring, "Custom &lt;title&gt;")
				So(svg, ShouldNotContainSubstring, "Fastest times")
				So(strings.Count(svg, `r="3"`), ShouldEqual, len(p.Points))
				So(svg, ShouldContainSubstring, ".dot.doping{fill:rgba(0,0,0,1.0)}")
				So(svg, ShouldContainSubstring, ".dot.clean{fill:rgba(255,255,255,1.0)}")
			})
		})
	})

	Convey("Given no plot", t, func() {
		var buf bytes.Buffer
		err := render.Render(&buf, nil)

		Convey("Then rendering fails", func() {
			So(errors.Is(err, render.ErrRender), ShouldBeTrue)
			So(buf.Len(), ShouldEqual, 0)
		})
	})
}
