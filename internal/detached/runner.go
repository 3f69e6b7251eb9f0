// Package detached runs background work that must outlive the request that started it.
package detached

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner starts detached tasks. Failures and panics are logged and never reach the caller.
type Runner struct {
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner returns a Runner. A positive timeout bounds each task.
func NewRunner(logger *zap.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger.Named("detached"), timeout: timeout}
}

// Go runs fn in its own goroutine. The task keeps ctx values but not its cancellation.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error, fields ...zap.Field) {
	taskCtx := context.WithoutCancel(ctx)
	log := r.logger.With(append([]zap.Field{zap.String("task", name)}, fields...)...)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		var cancel context.CancelFunc = func() {}
		if r.timeout > 0 {
			taskCtx, cancel = context.WithTimeout(taskCtx, r.timeout)
		}
		defer cancel()

		started := time.Now()
		log.Debug("detached task started")
		if err := run(taskCtx, fn); err != nil {
			log.Warn("detached task failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
			return
		}
		log.Debug("detached task finished", zap.Duration("elapsed", time.Since(started)))
	}()
}

// Wait blocks until every started task returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}
