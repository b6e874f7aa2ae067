// Package site serves the embedded leaderboard dashboard.
package site

import (
	"context"
	"net/http"
)

// Register attaches the dashboard routes to mux. The dashboard is served at
// the root and reads everything from the JSON API.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", http.FileServer(FS()))
}
