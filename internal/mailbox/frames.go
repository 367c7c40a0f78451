package mailbox

import (
	"sync"
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

// Frames keeps the most recent camera frame. Unlike Latest it does not
// consume on read: every capture tick samples whatever frame is newest,
// even if it was sampled before.
type Frames struct {
	mu    sync.RWMutex
	frame domain.Frame
	seq   uint64
	now   func() time.Time
}

var _ domain.FrameSource = (*Frames)(nil)

// NewFrames creates an empty frame buffer.
func NewFrames() *Frames {
	return &Frames{now: time.Now}
}

// Publish stores a new frame and returns its id.
func (f *Frames) Publish(data []byte, mimeType string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	f.frame = domain.Frame{
		ID:         f.seq,
		Data:       data,
		MimeType:   mimeType,
		CapturedAt: f.now(),
	}
	return f.seq
}

// Latest returns the newest frame, or ErrNoFrame before the first
// Publish.
func (f *Frames) Latest() (domain.Frame, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.seq == 0 {
		return domain.Frame{}, domain.ErrNoFrame
	}
	return f.frame, nil
}
