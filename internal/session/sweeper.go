package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const sweepInterval = 5 * time.Minute

// StartChartSweeper runs a background goroutine that periodically removes
// chart files older than maxAge that no live session references. This
// catches files left behind by a restart, when no eviction callback ran.
func StartChartSweeper(ctx context.Context, registry *Registry, dir string, maxAge time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Chart sweeper started", "interval", sweepInterval, "max_age", maxAge, "dir", dir)

		SweepCharts(registry, dir, maxAge)
		for {
			select {
			case <-ticker.C:
				SweepCharts(registry, dir, maxAge)
			case <-ctx.Done():
				slog.Info("Chart sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// SweepCharts removes orphaned chart files and returns how many were deleted.
func SweepCharts(registry *Registry, dir string, maxAge time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Chart sweeper failed to read directory", "dir", dir, "error", err)
		}
		return 0
	}

	live := registry.ChartPaths()
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "chart-") {
			continue
		}
		path := filepath.Clean(filepath.Join(dir, e.Name()))
		if _, ok := live[path]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("Chart sweeper failed to remove file", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("Chart sweeper removed orphaned charts", "count", removed)
	}
	return removed
}
