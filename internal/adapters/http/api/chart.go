package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/okian/dopingplot/internal/domain/model"
	"github.com/okian/dopingplot/internal/domain/plot"
	"github.com/okian/dopingplot/internal/domain/scale"
	chart "github.com/wcharczuk/go-chart/v2"
)

// ChartDependencies exposes the built chart.
type ChartDependencies interface {
	Plot() (*plot.Plot, bool)
	SVG() ([]byte, bool)
}

type tickResponse struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
	Pixel float64 `json:"pixel"`
}

type axisResponse struct {
	scale.Linear
	MinLabel string         `json:"min_label"`
	MaxLabel string         `json:"max_label"`
	Ticks    []tickResponse `json:"ticks"`
}

type scalesResponse struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	X      axisResponse `json:"x"`
	Y      axisResponse `json:"y"`
}

// ChartHandler serves the chart and the data behind it.
type ChartHandler struct {
	deps ChartDependencies
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps ChartDependencies) *ChartHandler {
	return &ChartHandler{deps: deps}
}

// HandleSVG handles GET /chart.svg requests.
func (h *ChartHandler) HandleSVG(w http.ResponseWriter, _ *http.Request) {
	const op = "api.get_chart"
	svg, ok := h.deps.SVG()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind(op, ErrNotReady))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Length", strconv.Itoa(len(svg)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

// HandlePoints handles GET /points?doping=BOOL&limit=N requests.
func (h *ChartHandler) HandlePoints(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_points"
	p, ok := h.deps.Plot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind(op, ErrNotReady))
		return
	}

	q := r.URL.Query()
	var filter *bool
	if v := q.Get("doping"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		filter = &b
	}
	limit := len(p.Points)
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	points := make([]model.Point, 0, min(limit, len(p.Points)))
	for _, pt := range p.Points {
		if len(points) == limit {
			break
		}
		if filter != nil && pt.Doping != *filter {
			continue
		}
		points = append(points, pt)
	}
	writeJSON(w, http.StatusOK, points)
}

// HandlePoint handles GET /points/{index} requests.
func (h *ChartHandler) HandlePoint(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_point"
	p, ok := h.deps.Plot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind(op, ErrNotReady))
		return
	}
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if i < 0 || i >= len(p.Points) {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, p.Points[i])
}

// HandleScales handles GET /scales requests.
func (h *ChartHandler) HandleScales(w http.ResponseWriter, _ *http.Request) {
	const op = "api.get_scales"
	p, ok := h.deps.Plot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind(op, ErrNotReady))
		return
	}
	s := p.Scales
	writeJSON(w, http.StatusOK, scalesResponse{
		Width:  p.Width,
		Height: p.Height,
		X: axisResponse{
			Linear:   s.X.Linear,
			MinLabel: scale.FormatYear(s.X.Min()),
			MaxLabel: scale.FormatYear(s.X.Max()),
			Ticks:    ticks(s.X.Linear, s.XTicks),
		},
		Y: axisResponse{
			Linear:   s.Y,
			MinLabel: scale.FormatSeconds(s.Y.DomainMin),
			MaxLabel: scale.FormatSeconds(s.Y.DomainMax),
			Ticks:    ticks(s.Y, s.YTicks),
		},
	})
}

func ticks(l scale.Linear, in []chart.Tick) []tickResponse {
	out := make([]tickResponse, len(in))
	for i, t := range in {
		out[i] = tickResponse{Value: t.Value, Label: t.Label, Pixel: l.Map(t.Value)}
	}
	return out
}
