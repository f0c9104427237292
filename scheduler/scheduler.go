// Package scheduler triggers work on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"review-monitor/utils"
)

// Task is one scheduled tick. It should return quickly; long work belongs on
// its own goroutine.
type Task func(ctx context.Context) error

// Every runs task once per interval until ctx is done. The first run
// happens one interval after the call. A non-positive interval schedules
// nothing.
func Every(ctx context.Context, interval time.Duration, name string, task Task, logger *utils.Logger) {
	if interval <= 0 {
		logger.Warn("[%s] interval %v is not positive, nothing scheduled", name, interval)
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				logger.Warn("[%s] %v", name, err)
			}
		}
	}
}
