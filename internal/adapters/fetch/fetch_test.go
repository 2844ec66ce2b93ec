package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/dopingplot/internal/adapters/fetch"
	"github.com/okian/dopingplot/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

const dataset = `[
  {"Time":"36:50","Place":1,"Seconds":2210,"Name":"Marco Pantani","Year":1995,"Nationality":"ITA","Doping":"Alleged drug use during 1995 due to high hematocrit levels","URL":"https://en.wikipedia.org/wiki/Marco_Pantani#Alleged_drug_use"},
  {"Time":"37:15","Place":3,"Seconds":2235,"Name":"Marco Pantani","Year":1994,"Nationality":"ITA","Doping":"","URL":""}
]`

func TestClientFetch(t *testing.T) {
	Convey("Given a server that serves the dataset", t, func() {
		var hits int32
		var method, accept atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			method.Store(r.Method)
			accept.Store(r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(dataset))
		}))
		defer srv.Close()

		Convey("When fetching it", func() {
			recs, err := fetch.New().Fetch(context.Background(), srv.URL)

			Convey("Then the records are decoded with one request", func() {
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].Name, ShouldEqual, "Marco Pantani")
				So(recs[1].Year, ShouldEqual, 1994)
				So(atomic.LoadInt32(&hits), ShouldEqual, 1)
				So(method.Load(), ShouldEqual, http.MethodGet)
				So(accept.Load(), ShouldEqual, "application/json")
			})
		})
	})

	Convey("Given a server that fails", t, func() {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&hits, 1)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("Then the error is ErrFetch and nothing is retried", func() {
			recs, err := fetch.New().Fetch(context.Background(), srv.URL)
			So(recs, ShouldBeNil)
			So(errors.Is(err, fetch.ErrFetch), ShouldBeTrue)
			So(errors.Is(err, fetch.ErrBadStatus), ShouldBeTrue)
			So(errors.Is(err, normalize.ErrInvalidInput), ShouldBeFalse)
			So(atomic.LoadInt32(&hits), ShouldEqual, 1)
		})
	})

	Convey("Given a server returning an object instead of an array", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer srv.Close()

		Convey("Then the error is a data-shape error, not a fetch error", func() {
			_, err := fetch.New().Fetch(context.Background(), srv.URL)
			So(errors.Is(err, normalize.ErrInvalidInput), ShouldBeTrue)
			So(errors.Is(err, fetch.ErrFetch), ShouldBeFalse)
		})
	})

	Convey("Given a server slower than the timeout", t, func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		Convey("Then the fetch gives up", func() {
			_, err := fetch.New(fetch.WithTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL)
			So(errors.Is(err, fetch.ErrFetch), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		Convey("Then the transport error wraps ErrFetch", func() {
			_, err := fetch.New().Fetch(context.Background(), addr)
			So(errors.Is(err, fetch.ErrFetch), ShouldBeTrue)
		})
	})

	Convey("Given a payload larger than the size cap", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(dataset))
		}))
		defer srv.Close()

		Convey("Then the error is a size error, not a data-shape error", func() {
			recs, err := fetch.New(fetch.WithMaxBytes(64)).Fetch(context.Background(), srv.URL)
			So(recs, ShouldBeNil)
			So(errors.Is(err, fetch.ErrFetch), ShouldBeTrue)
			So(errors.Is(err, fetch.ErrTooLarge), ShouldBeTrue)
			So(errors.Is(err, normalize.ErrInvalidInput), ShouldBeFalse)
		})

		Convey("Then a payload exactly at the cap is accepted", func() {
			recs, err := fetch.New(fetch.WithMaxBytes(int64(len(dataset)))).Fetch(context.Background(), srv.URL)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 2)
		})
	})

	Convey("Given an unsupported scheme", t, func() {
		_, err := fetch.New().Fetch(context.Background(), "ftp://example.com/data.json")
		So(errors.Is(err, fetch.ErrFetch), ShouldBeTrue)
	})
}

func TestClientFetchFile(t *testing.T) {
	Convey("Given the dataset on disk", t, func() {
		path := filepath.Join(t.TempDir(), "cyclist-data.json")
		So(os.WriteFile(path, []byte(dataset), 0o600), ShouldBeNil)

		Convey("Then a bare path is read", func() {
			recs, err := fetch.New().Fetch(context.Background(), path)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 2)
		})

		Convey("Then a file URL is read", func() {
			recs, err := fetch.New().Fetch(context.Background(), "file://"+path)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 2)
		})

		Convey("Then a missing file is a fetch error", func() {
			_, err := fetch.New().Fetch(context.Background(), path+".missing")
			So(errors.Is(err, fetch.ErrFetch), ShouldBeTrue)
		})
	})
}
