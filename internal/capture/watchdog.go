package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/session"
)

// WatchdogOption configures the watchdog.
type WatchdogOption func(*Watchdog)

// WithCheckInterval sets how often the watchdog inspects the session.
func WithCheckInterval(d time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		w.interval = d
	}
}

// WithWarnAfter sets how long a flag may be held before a warning.
func WithWarnAfter(d time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		w.warnAfter = d
	}
}

// WithReleaseAfter sets how long a flag may be held before it is
// force-released.
func WithReleaseAfter(d time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		w.releaseAfter = d
	}
}

// Watchdog watches the request-pending and loading flags on a slower
// cycle than the capture loop. A remote call that never settles would
// otherwise stall detection or enrichment forever.
type Watchdog struct {
	session      *session.Session
	log          *logger.Logger
	interval     time.Duration
	warnAfter    time.Duration
	releaseAfter time.Duration
}

// NewWatchdog creates a watchdog for sess.
func NewWatchdog(sess *session.Session, log *logger.Logger, opts ...WatchdogOption) *Watchdog {
	w := &Watchdog{
		session:      sess,
		log:          log,
		interval:     5 * time.Second,
		warnAfter:    15 * time.Second,
		releaseAfter: 45 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the watchdog loop. Blocks until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("watchdog started (interval=%s, release after %s)", w.interval, w.releaseAfter)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watchdog stopped")
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check runs one watchdog cycle.
func (w *Watchdog) Check() {
	request, loading := w.session.Holds()

	if request >= w.warnAfter {
		w.log.Warn("watchdog: detection request pending for %s", request.Round(time.Second))
	}
	if loading >= w.warnAfter {
		w.log.Warn("watchdog: enrichment loading for %s", loading.Round(time.Second))
	}

	cause := domain.Unreachable(fmt.Errorf("no response after %s", w.releaseAfter))
	r, l := w.session.ReleaseStuck(w.releaseAfter, cause)
	if r {
		w.log.Error("watchdog: force-released stuck detection request")
	}
	if l {
		w.log.Error("watchdog: force-released stuck enrichment")
	}
}
