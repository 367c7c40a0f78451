// Package camera pulls frames from a local webcam into the frame mailbox.
//
// The webcam itself needs OpenCV and is only compiled with the gocv build
// tag. Without it Open reports ErrUnavailable and frames are expected to
// come from the browser instead.
package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hammamikhairi/foodlens/internal/logger"
)

// ErrUnavailable is returned by Open when the binary was built without
// webcam support or the device cannot be opened.
var ErrUnavailable = errors.New("camera: webcam unavailable")

// Source yields encoded frames.
type Source interface {
	// Read grabs one frame and returns it JPEG-encoded.
	Read() ([]byte, error)
	Close() error
}

// Publisher receives frames. mailbox.Frames satisfies it.
type Publisher interface {
	Publish(data []byte, mimeType string) uint64
}

// Option configures a Camera.
type Option func(*Camera)

// WithInterval sets how often a frame is grabbed.
func WithInterval(d time.Duration) Option {
	return func(c *Camera) { c.interval = d }
}

// WithMaxFailures sets how many consecutive read errors end the loop.
func WithMaxFailures(n int) Option {
	return func(c *Camera) { c.maxFailures = n }
}

// Camera grabs frames from a Source on a fixed interval.
type Camera struct {
	source      Source
	out         Publisher
	log         *logger.Logger
	interval    time.Duration
	maxFailures int
}

// New creates a camera loop around source.
func New(source Source, out Publisher, log *logger.Logger, opts ...Option) *Camera {
	c := &Camera{
		source:      source,
		out:         out,
		log:         log.With("component", "camera"),
		interval:    100 * time.Millisecond,
		maxFailures: 50,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run grabs frames until ctx is cancelled or the source fails too many
// times in a row. The source is closed on return.
func (c *Camera) Run(ctx context.Context) error {
	defer c.source.Close()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Info("capturing every %s", c.interval)
	failures := 0
	for {
		select {
		case <-ctx.Done():
			c.log.Info("capture stopped")
			return nil
		case <-ticker.C:
		}

		data, err := c.source.Read()
		if err != nil {
			failures++
			c.log.Debug("read failed (%d in a row): %v", failures, err)
			if failures >= c.maxFailures {
				return fmt.Errorf("camera: %d consecutive read failures: %w", failures, err)
			}
			continue
		}
		failures = 0
		c.out.Publish(data, "image/jpeg")
	}
}
