// Package async wraps a shared goroutine pool for fire-and-forget work:
// fame recomputation and notification push fan-out. Tasks never block the
// request path and panics are contained.
package async

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/panjf2000/ants/v2"
)

type Pool struct {
	pool    *ants.Pool
	log     *slog.Logger
	timeout time.Duration
}

func New(size int, taskTimeout time.Duration, log *slog.Logger) (*Pool, error) {
	p := &Pool{log: log, timeout: taskTimeout}

	inner, err := ants.NewPool(size,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(v any) {
			log.Error("async task panic", "panic", v, "stack", string(debug.Stack()))
		}),
	)
	if err != nil {
		return nil, err
	}
	p.pool = inner
	return p, nil
}

// Go runs task on the pool with its own timeout-bounded context, detached
// from the request context so a finished request does not cancel the work.
// Submission failure (pool exhausted) is logged, never surfaced: everything
// scheduled here is best-effort.
func (p *Pool) Go(task func(ctx context.Context)) {
	wrapped := func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("async task panic", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		task(ctx)
	}

	if err := p.pool.Submit(wrapped); err != nil {
		p.log.Error("async submit failed", "err", err)
	}
}

// Release waits for in-flight tasks and frees the pool.
func (p *Pool) Release() {
	p.pool.Release()
}
