// Package capture implements the background loop that samples camera
// frames and feeds detection results into the session.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/session"
)

// Option configures the scheduler.
type Option func(*Scheduler)

// WithInterval sets how often a frame is sampled.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// WithRequestTimeout bounds a single detection call.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.requestTimeout = d
	}
}

// WithWatchdog runs a Watchdog alongside the capture loop.
func WithWatchdog(opts ...WatchdogOption) Option {
	return func(s *Scheduler) {
		s.watchdogOpts = opts
		s.withWatchdog = true
	}
}

// Scheduler samples a frame on every tick and sends it to the detector.
// At most one detection call is in flight; ticks that land while one is
// pending are skipped.
type Scheduler struct {
	session        *session.Session
	frames         domain.FrameSource
	detector       domain.Detector
	log            *logger.Logger
	interval       time.Duration
	requestTimeout time.Duration

	withWatchdog bool
	watchdogOpts []WatchdogOption

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a capture scheduler.
func New(sess *session.Session, frames domain.FrameSource, detector domain.Detector, log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		session:        sess,
		frames:         frames,
		detector:       detector,
		log:            log,
		interval:       1 * time.Second,
		requestTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the capture loop. Non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("capture scheduler already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(childCtx)

	if s.withWatchdog {
		w := NewWatchdog(s.session, s.log, s.watchdogOpts...)
		go w.Run(childCtx)
	}

	s.log.Info("capture scheduler started (interval=%s, timeout=%s)", s.interval, s.requestTimeout)
}

// Stop ends the loop. A detection call already in flight is not aborted;
// its response is dropped by the session if detection was switched off.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.running = false
	s.log.Info("capture scheduler stopped")
}

// Wait blocks until the loop has exited and every request it started
// has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, ok := s.frame()
			if !ok {
				continue
			}
			ticket, ok := s.session.BeginDetection()
			if !ok {
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				// In-flight calls outlive Stop.
				s.request(context.WithoutCancel(ctx), ticket, frame)
			}()
		}
	}
}

// Tick runs one capture cycle synchronously. It reports whether a
// detection call was made. Without a frame the slot is not taken, so an
// idle tick publishes nothing.
func (s *Scheduler) Tick(ctx context.Context) bool {
	frame, ok := s.frame()
	if !ok {
		return false
	}
	ticket, ok := s.session.BeginDetection()
	if !ok {
		return false
	}
	s.request(ctx, ticket, frame)
	return true
}

func (s *Scheduler) frame() (domain.Frame, bool) {
	frame, err := s.frames.Latest()
	if err != nil {
		if !errors.Is(err, domain.ErrNoFrame) {
			s.log.Warn("capture: reading frame: %v", err)
		}
		return domain.Frame{}, false
	}
	return frame, true
}

func (s *Scheduler) request(ctx context.Context, ticket session.Ticket, frame domain.Frame) {
	defer s.session.EndDetection(ticket)

	// A failing detector must never take the loop down.
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("detector panic: %v: %w", r, domain.ErrDetectionService)
			s.log.Error("capture: detecting frame %d: %v", frame.ID, err)
		}
	}()

	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.detector.Detect(reqCtx, frame)
	if err != nil {
		s.log.Error("capture: detecting frame %d: %v", frame.ID, err)
		return
	}

	applied := s.session.ApplyDetections(ticket, raw)
	s.log.Debug("capture: frame %d -> %d detections in %s (applied=%t)",
		frame.ID, len(raw), time.Since(start).Round(time.Millisecond), applied)
}
