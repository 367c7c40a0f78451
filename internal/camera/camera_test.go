package camera

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/mailbox"
)

type fakeSource struct {
	mu     sync.Mutex
	reads  int
	fail   bool
	closed bool
}

func (f *fakeSource) Read() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.fail {
		return nil, errors.New("no signal")
	}
	return []byte{byte(f.reads)}, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRunPublishesFrames(t *testing.T) {
	src := &fakeSource{}
	frames := mailbox.NewFrames()
	cam := New(src, frames, logger.New(logger.LevelOff, nil), WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cam.Run(ctx) }()

	time.Sleep(40 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
	f, err := frames.Latest()
	if err != nil {
		t.Fatalf("expected a frame, got %v", err)
	}
	if f.MimeType != "image/jpeg" || len(f.Data) != 1 {
		t.Fatalf("unexpected frame %+v", f)
	}
	if !src.isClosed() {
		t.Fatal("expected source closed")
	}
}

func TestRunGivesUpAfterFailures(t *testing.T) {
	src := &fakeSource{fail: true}
	cam := New(src, mailbox.NewFrames(), logger.New(logger.LevelOff, nil),
		WithInterval(time.Millisecond), WithMaxFailures(3))

	select {
	case err := <-runAsync(cam):
		if err == nil {
			t.Fatal("expected an error after repeated failures")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not give up")
	}
	if !src.isClosed() {
		t.Fatal("expected source closed")
	}
}

func runAsync(c *Camera) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- c.Run(context.Background()) }()
	return ch
}

func TestOpenWithoutWebcam(t *testing.T) {
	if _, err := Open(99); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
