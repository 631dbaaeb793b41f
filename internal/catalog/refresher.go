package catalog

import (
	"context"
	"log/slog"
	"time"
)

// Refresher periodically re-scans the catalog directory so new content
// drops land without a restart.
type Refresher struct {
	loader   *Loader
	dir      string
	interval time.Duration
}

// NewRefresher creates a refresh worker for the given loader and directory.
func NewRefresher(loader *Loader, dir string, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &Refresher{
		loader:   loader,
		dir:      dir,
		interval: interval,
	}
}

// Start begins the refresh worker in a goroutine.
func (r *Refresher) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) {
	slog.Info("catalog refresher started", "dir", r.dir, "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("catalog refresher stopped")
			return
		case <-ticker.C:
			if err := r.loader.LoadFromDir(r.dir); err != nil {
				slog.Error("catalog refresh failed", "error", err)
			}
		}
	}
}
