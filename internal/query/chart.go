package query

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/google/uuid"
	"github.com/wcharczuk/go-chart/v2"
)

const (
	chartWidth  = 800
	chartHeight = 480
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
}

// ChartRenderer draws charts into a directory served to the browser.
type ChartRenderer struct {
	dir string
}

// NewChartRenderer creates a renderer writing into dir.
func NewChartRenderer(dir string) *ChartRenderer {
	return &ChartRenderer{dir: dir}
}

// Dir returns the output directory.
func (c *ChartRenderer) Dir() string {
	return c.dir
}

// Render draws spec over ds as a PNG and returns the file path.
func (c *ChartRenderer) Render(spec ChartSpec, ds *domain.Dataset) (path string, err error) {
	labels, values, err := chartSeries(spec, ds)
	if err != nil {
		return "", err
	}

	out, path, err := c.create(".png")
	if err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render chart: %v", r)
		}
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close chart file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
			path = ""
		}
	}()

	switch strings.ToLower(spec.Kind) {
	case ChartLine:
		err = renderLine(out, spec.Title, labels, values)
	case ChartPie:
		err = renderPie(out, spec.Title, labels, values)
	default:
		err = renderBar(out, spec.Title, labels, values)
	}
	if err != nil {
		return path, fmt.Errorf("render %s chart: %w", spec.Kind, err)
	}
	return path, nil
}

// Adopt copies an existing image file into a new chart file so it can be
// served. The copy is made even for files already in the chart directory;
// each response owns its file and removes it with its session.
func (c *ChartRenderer) Adopt(src string) (string, error) {
	ext := strings.ToLower(filepath.Ext(src))
	if !imageExtensions[ext] {
		return "", fmt.Errorf("%s is not an image file", filepath.Base(src))
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer in.Close()

	out, path, err := c.create(ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close image: %w", err)
	}
	return path, nil
}

func (c *ChartRenderer) create(ext string) (*os.File, string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create chart directory: %w", err)
	}
	path := filepath.Join(c.dir, "chart-"+uuid.NewString()+ext)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("create chart file: %w", err)
	}
	return f, path, nil
}

// chartSeries pulls the label and value columns out of ds. Missing x or y
// names default to the first and second result columns.
func chartSeries(spec ChartSpec, ds *domain.Dataset) ([]string, []float64, error) {
	cols := ds.Columns()
	x, y := spec.X, spec.Y
	if x == "" && len(cols) > 0 {
		x = cols[0]
	}
	if y == "" && len(cols) > 1 {
		y = cols[1]
	}

	xs, ok := ds.Column(x)
	if !ok {
		return nil, nil, fmt.Errorf("chart column %q not in result", x)
	}
	ys, ok := ds.Column(y)
	if !ok {
		return nil, nil, fmt.Errorf("chart column %q not in result", y)
	}
	if len(ys) == 0 {
		return nil, nil, fmt.Errorf("chart query returned no rows")
	}

	labels := make([]string, len(xs))
	values := make([]float64, len(ys))
	for i := range ys {
		labels[i] = fmt.Sprint(xs[i])
		v, ok := toFloat(ys[i])
		if !ok {
			return nil, nil, fmt.Errorf("chart column %q holds non-numeric value %v", y, ys[i])
		}
		values[i] = v
	}
	return labels, values, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case int:
		return float64(t), true
	case nil:
		return 0, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func chartValues(labels []string, values []float64) []chart.Value {
	out := make([]chart.Value, len(values))
	for i := range values {
		out[i] = chart.Value{Label: labels[i], Value: values[i]}
	}
	return out
}

func renderBar(w io.Writer, title string, labels []string, values []float64) error {
	bc := chart.BarChart{
		Title:    title,
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: chartValues(labels, values),
	}
	return bc.Render(chart.PNG, w)
}

func renderPie(w io.Writer, title string, labels []string, values []float64) error {
	pc := chart.PieChart{
		Title:  title,
		Width:  chartHeight,
		Height: chartHeight,
		Values: chartValues(labels, values),
	}
	return pc.Render(chart.PNG, w)
}

func renderLine(w io.Writer, title string, labels []string, values []float64) error {
	xs := make([]float64, len(values))
	ticks := make([]chart.Tick, len(values))
	for i := range values {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: labels[i]}
	}

	c := chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Ticks: ticks},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: xs, YValues: values},
		},
	}
	return c.Render(chart.PNG, w)
}
