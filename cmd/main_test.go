package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/dopingplot/internal/config"
	"github.com/okian/dopingplot/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const dataset = `[
  {"Time":"36:50","Place":1,"Seconds":2210,"Name":"Marco Pantani","Year":1995,"Nationality":"ITA","Doping":"Alleged drug use during 1995 due to high hematocrit levels","URL":""},
  {"Time":"36:55","Place":2,"Seconds":2215,"Name":"Lance Armstrong","Year":2004,"Nationality":"USA","Doping":"2004 Tour de France title stripped by UCI in 2012","URL":""},
  {"Time":"37:15","Place":3,"Seconds":2235,"Name":"Marco Pantani","Year":1994,"Nationality":"ITA","Doping":"","URL":""}
]`

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeDataset(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "cyclist-data.json")
	if err := os.WriteFile(path, []byte(dataset), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			t.Setenv("DOPINGPLOT_ADDR", ":8080")
			t.Setenv("DOPINGPLOT_CANVAS_WIDTH", "1000")
			t.Setenv("DOPINGPLOT_CORS_ORIGINS", "http://localhost:3000, http://example.com")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.CanvasWidth, convey.ShouldEqual, 1000)
				convey.So(cfg.PlotWidth(), convey.ShouldEqual, 800)
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"http://localhost:3000", "http://example.com"})
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			cfg := config.New()
			srv := newHTTPServer(cfg, newService(cfg, logger.Nop()))

			convey.Convey("Then the server carries the configured timeouts", func() {
				convey.So(srv.Addr, convey.ShouldEqual, ":9080")
				convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
				convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
				convey.So(srv.IdleTimeout, convey.ShouldEqual, idleTimeout)
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})

			convey.Convey("And routes answer before the chart is loaded", func() {
				w := httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				w = httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chart.svg", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusServiceUnavailable)

				w = httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				w = httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestConfigureMetrics(t *testing.T) {
	convey.Convey("Given a config with a metrics namespace and labels", t, func() {
		cfg := config.New()
		cfg.MetricsNamespace = "cyclists"
		cfg.MetricsLabels = map[string]string{"env": "test"}
		configureMetrics(cfg)
		convey.Reset(func() { configureMetrics(config.New()) })

		convey.Convey("When the server answers a request", func() {
			srv := newHTTPServer(cfg, newService(cfg, logger.Nop()))
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			w = httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			convey.Convey("Then the exported metrics use them", func() {
				body := w.Body.String()
				convey.So(body, convey.ShouldContainSubstring, "cyclists_http_requests_total")
				convey.So(body, convey.ShouldContainSubstring, `env="test"`)
				convey.So(body, convey.ShouldNotContainSubstring, "dopingplot_http_requests_total")
			})
		})
	})
}

func TestWriteChart(t *testing.T) {
	convey.Convey("Given a dataset on disk", t, func() {
		cfg := config.New()
		cfg.DataURL = writeDataset(t)
		out := filepath.Join(t.TempDir(), "out", "chart.svg")

		convey.Convey("When writing the chart", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := writeChart(ctx, newService(cfg, logger.Nop()), out)

			convey.Convey("Then an SVG file is produced", func() {
				convey.So(err, convey.ShouldBeNil)
				b, readErr := os.ReadFile(out)
				convey.So(readErr, convey.ShouldBeNil)
				svg := string(b)
				convey.So(svg, convey.ShouldStartWith, "<svg")
				convey.So(strings.Count(svg, "<circle"), convey.ShouldEqual, 3)
				convey.So(svg, convey.ShouldContainSubstring, "Riders with doping allegations (2)")
			})
		})

		convey.Convey("When the dataset is malformed", func() {
			bad := filepath.Join(t.TempDir(), "bad.json")
			convey.So(os.WriteFile(bad, []byte(`[{"Time":"x","Year":1995}]`), 0o600), convey.ShouldBeNil)
			cfg.DataURL = bad

			err := writeChart(context.Background(), newService(cfg, logger.Nop()), out)

			convey.Convey("Then nothing is written", func() {
				convey.So(err, convey.ShouldNotBeNil)
				_, statErr := os.Stat(out)
				convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given a server on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.DataURL = writeDataset(t)
		svc := newService(cfg, logger.Nop())

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- serve(ctx, cfg, svc, logger.Nop()) }()

			// Wait for the background load before shutting down.
			deadline := time.Now().Add(5 * time.Second)
			for !svc.Ready() && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				var err error
				select {
				case err = <-done:
				case <-time.After(5 * time.Second):
					t.Fatal("serve did not return")
				}
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.Ready(), convey.ShouldBeTrue)
			})
		})
	})
}
