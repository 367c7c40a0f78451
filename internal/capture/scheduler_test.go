package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/session"
)

// mockFrames hands out a fixed frame, or ErrNoFrame when empty.
type mockFrames struct {
	mu    sync.Mutex
	frame *domain.Frame
}

func (m *mockFrames) Latest() (domain.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame == nil {
		return domain.Frame{}, domain.ErrNoFrame
	}
	return *m.frame, nil
}

// mockDetector returns canned detections. When block is set, calls
// wait on it or on ctx.
type mockDetector struct {
	mu     sync.Mutex
	calls  int
	result []domain.RawDetection
	err    error
	block  chan struct{}
}

func (m *mockDetector) Detect(ctx context.Context, _ domain.Frame) ([]domain.RawDetection, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.result, m.err
}

func (m *mockDetector) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func setup(t *testing.T, det *mockDetector, opts ...Option) (*Scheduler, *session.Session, *mockFrames) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	sess := session.New(log)
	frames := &mockFrames{frame: &domain.Frame{ID: 1, Data: []byte{0xff}, MimeType: "image/jpeg"}}
	return New(sess, frames, det, log, opts...), sess, frames
}

var carrot = []domain.RawDetection{{Name: "carrot", Coordinates: domain.BoundingBox{X1: 10, Y1: 10, X2: 40, Y2: 80}}}

func TestTick(t *testing.T) {
	tests := []struct {
		name      string
		active    bool
		noFrame   bool
		err       error
		wantCall  bool
		wantCount int
	}{
		{"detection off", false, false, nil, false, 0},
		{"no frame", true, true, nil, false, 0},
		{"detector error", true, false, errors.New("boom"), true, 0},
		{"success", true, false, nil, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &mockDetector{result: carrot, err: tt.err}
			sched, sess, frames := setup(t, det)
			if tt.active {
				sess.StartDetection()
			}
			if tt.noFrame {
				frames.frame = nil
			}

			if got := sched.Tick(context.Background()); got != tt.wantCall {
				t.Fatalf("expected Tick=%t, got %t", tt.wantCall, got)
			}
			snap := sess.Snapshot()
			if snap.Flags.RequestPending {
				t.Fatal("request still pending after tick")
			}
			if len(snap.Detections) != tt.wantCount {
				t.Fatalf("expected %d detections, got %d", tt.wantCount, len(snap.Detections))
			}
		})
	}
}

func TestTickKeepsPriorDetectionsOnError(t *testing.T) {
	det := &mockDetector{result: carrot}
	sched, sess, _ := setup(t, det)
	sess.StartDetection()
	sched.Tick(context.Background())

	det.mu.Lock()
	det.err = errors.New("service down")
	det.result = nil
	det.mu.Unlock()
	sched.Tick(context.Background())

	if n := len(sess.Snapshot().Detections); n != 1 {
		t.Fatalf("expected prior detection kept, got %d", n)
	}
}

func TestTickTimeoutReleasesPending(t *testing.T) {
	det := &mockDetector{block: make(chan struct{})}
	sched, sess, _ := setup(t, det, WithRequestTimeout(20*time.Millisecond))
	sess.StartDetection()

	start := time.Now()
	sched.Tick(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("tick did not honor timeout, took %s", elapsed)
	}
	if sess.Snapshot().Flags.RequestPending {
		t.Fatal("request still pending after timeout")
	}
}

func TestSchedulerSingleFlight(t *testing.T) {
	det := &mockDetector{result: carrot, block: make(chan struct{})}
	sched, sess, _ := setup(t, det, WithInterval(10*time.Millisecond), WithRequestTimeout(5*time.Second))
	sess.StartDetection()

	ctx := context.Background()
	sched.Start(ctx)

	time.Sleep(150 * time.Millisecond)
	if n := det.callCount(); n != 1 {
		t.Fatalf("expected exactly 1 in-flight call, got %d", n)
	}

	close(det.block)
	time.Sleep(100 * time.Millisecond)
	sched.Stop()
	sched.Wait()

	if n := det.callCount(); n < 2 {
		t.Fatalf("expected more calls after release, got %d", n)
	}
	if n := len(sess.Snapshot().Detections); n != 1 {
		t.Fatalf("expected 1 detection, got %d", n)
	}
}

func TestStopDropsInFlightResponse(t *testing.T) {
	det := &mockDetector{result: carrot, block: make(chan struct{})}
	sched, sess, _ := setup(t, det, WithInterval(10*time.Millisecond))
	sess.StartDetection()

	sched.Start(context.Background())
	time.Sleep(50 * time.Millisecond)

	sched.Stop()
	sess.StopDetection()
	close(det.block)
	sched.Wait()

	snap := sess.Snapshot()
	if len(snap.Detections) != 0 {
		t.Fatalf("late response applied after stop: %d detections", len(snap.Detections))
	}
	if snap.Flags.RequestPending {
		t.Fatal("request still pending")
	}
}

func TestSchedulerDoubleStart(t *testing.T) {
	det := &mockDetector{}
	sched, _, _ := setup(t, det, WithInterval(time.Hour))
	ctx := context.Background()
	sched.Start(ctx)
	sched.Start(ctx)
	sched.Stop()
	sched.Stop()
}

type explodingDetector struct {
	mu    sync.Mutex
	calls int
}

func (e *explodingDetector) Detect(context.Context, domain.Frame) ([]domain.RawDetection, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	panic("detector blew up")
}

func (e *explodingDetector) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func TestTickRecoversDetectorPanic(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	sess := session.New(log)
	frames := &mockFrames{frame: &domain.Frame{ID: 1, Data: []byte{0xff}, MimeType: "image/jpeg"}}
	det := &explodingDetector{}
	sched := New(sess, frames, det, log, WithInterval(10*time.Millisecond))
	sess.StartDetection()

	if !sched.Tick(context.Background()) {
		t.Fatal("expected a detection call")
	}
	if sess.Snapshot().Flags.RequestPending {
		t.Fatal("request still pending after panic")
	}

	// The loop keeps going after a panicking call.
	sched.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	sched.Stop()
	sched.Wait()

	if n := det.callCount(); n < 3 {
		t.Fatalf("expected the loop to keep calling, got %d calls", n)
	}
}

func TestIdleTickPublishesNothing(t *testing.T) {
	det := &mockDetector{result: carrot}
	sched, sess, frames := setup(t, det)
	sess.StartDetection()
	frames.frame = nil

	before := sess.Snapshot().Version
	if sched.Tick(context.Background()) {
		t.Fatal("expected no detection call without a frame")
	}
	if after := sess.Snapshot().Version; after != before {
		t.Fatalf("idle tick bumped the version from %d to %d", before, after)
	}
	if det.callCount() != 0 {
		t.Fatal("detector called without a frame")
	}
}
