package session

import (
	"context"
	"time"

	"github.com/bambui-io/bambui/internal/pkg/metrics"
)

const (
	restartBackoffBase = time.Second
	restartBackoffMax  = 30 * time.Second

	// A run that survives this long resets the failure streak.
	healthyRunThreshold = time.Minute
)

// supervise keeps the status loop alive while subscribers remain. A clean
// exit ends supervision; a failure re-creates the loop with exponential
// backoff capped at restartBackoffMax.
func (s *Session) supervise(ctx context.Context, t *task) {
	defer func() {
		s.mu.Lock()
		if s.statusTask == t {
			s.statusTask = nil
			// A subscriber may have slipped in between the loop's
			// empty-set check and this cleanup.
			if len(s.subs) > 0 && ctx.Err() == nil {
				s.startStatusLocked()
			}
		}
		s.mu.Unlock()
	}()

	failures := 0
	for {
		started := time.Now()
		err := s.runStatus(ctx)
		if ctx.Err() != nil || err == nil {
			return
		}
		if time.Since(started) >= healthyRunThreshold {
			failures = 0
		}
		if s.SubscriberCount() == 0 {
			s.logger.Info("Status loop failed with no subscribers, not restarting", "err", err)
			return
		}

		failures++
		metrics.StatusRestartsTotal.WithLabelValues(s.identity.Name).Inc()
		backoff := restartBackoff(failures)
		s.logger.Error(err, "Status loop failed, restarting", "failures", failures, "backoff", backoff)
		if !sleep(ctx, backoff) {
			return
		}
	}
}

// restartBackoff returns the delay before restart attempt n (n >= 1).
// The first restart is immediate.
func restartBackoff(n int) time.Duration {
	if n <= 1 {
		return 0
	}
	d := restartBackoffBase << (n - 2)
	if d <= 0 || d > restartBackoffMax {
		return restartBackoffMax
	}
	return d
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
