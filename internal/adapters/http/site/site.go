// Package site serves the embedded landing page.
package site

import (
	"context"
	_ "embed"
	"net/http"
)

//go:embed static/index.html
var indexHTML []byte

// Register attaches the landing page to the exact root path of mux. Other
// unmatched paths fall through to the mux's 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexHTML)
	})
}
