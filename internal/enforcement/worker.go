package enforcement

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Worker runs the engine on an internal ticker for deployments without an
// external scheduler. Each tick is an independent invocation; a failed run
// is logged and the ticker keeps going.
type Worker struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(engine *Engine, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{engine: engine, interval: interval, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.engine.Run(ctx); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					w.logger.InfoContext(ctx, "skipping tick, run already in progress")
					continue
				}
				w.logger.ErrorContext(ctx, "scheduled enforcement run failed", "error", err)
			}
		}
	}
}
