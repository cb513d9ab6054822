package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashureev/datachat/web"
	"github.com/go-chi/chi/v5"
)

// ServeChart serves a generated chart image from the chart directory.
func (h *Handler) ServeChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name != filepath.Base(name) || !strings.HasPrefix(name, "chart-") {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.chartDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}

func chartURL(path string) string {
	return web.ChartURL(path)
}
