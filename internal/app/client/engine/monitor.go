package engine

import (
	"context"
	"time"
)

type Prober interface {
	HealthCheck(ctx context.Context) error
}

// Probe reports whether the remote answers its health check within timeout.
func Probe(ctx context.Context, p Prober, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.HealthCheck(ctx) == nil
}

// StartMonitor polls p every interval and feeds transitions to SetOnline.
// It stops when the engine is closed.
func (e *Engine) StartMonitor(p Prober, interval time.Duration) {
	if interval <= 0 {
		return
	}
	timeout := interval / 2
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-e.ctx.Done():
				return
			case <-ticker.C:
				online := Probe(e.ctx, p, timeout)
				if e.ctx.Err() != nil {
					return
				}
				if online != e.IsOnline() {
					e.SetOnline(online)
				}
			}
		}
	}()
}
