// Package site serves the browser page that shows the chart with hover
// tooltips.
package site

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register attaches the embedded page to r at /.
func Register(r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Handle("/", NewRootHandler())
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServer(FS())))
}

// RootHandler serves the chart page.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// ServeHTTP handles GET / by serving index.html.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.files.ServeHTTP(w, r)
}
