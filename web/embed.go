// Package web embeds the server-rendered page and its static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ashureev/datachat/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ChartRoute is the URL prefix under which chart images are served.
const ChartRoute = "/charts/"

// PageData is everything the chat page renders.
type PageData struct {
	Databases   []string
	Collections []string
	Selection   domain.Selection
	Preview     *domain.Dataset
	Entries     []domain.ConversationEntry
	Notice      string
}

var funcs = template.FuncMap{
	"chartURL": ChartURL,
	"rows":     rows,
	"cell":     Cell,
}

// Page is the parsed chat page template.
var Page = template.Must(template.New("index.html").Funcs(funcs).ParseFS(templateFS, "templates/index.html"))

// RenderPage writes the chat page.
func RenderPage(w io.Writer, data PageData) error {
	if err := Page.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// StaticHandler serves the embedded static assets. Mount it under /static/.
func StaticHandler() http.Handler {
	subFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(subFS)))
}

// ChartURL maps a chart file path to the URL it is served at.
func ChartURL(path string) string {
	return ChartRoute + filepath.Base(path)
}

// Cell renders one dataset value for display.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func rows(ds *domain.Dataset) [][]any {
	out := make([][]any, ds.Len())
	for i := range out {
		out[i] = ds.Values(i)
	}
	return out
}
