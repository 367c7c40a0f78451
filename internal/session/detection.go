package session

import (
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

// StartDetection switches detection on and opens the menu.
func (s *Session) StartDetection() {
	s.update("start detection", func() bool {
		if s.flags.DetectionActive && s.flags.MenuOpen {
			return false
		}
		if !s.flags.DetectionActive {
			s.epoch++
		}
		s.flags.DetectionActive = true
		s.flags.MenuOpen = true
		s.flags.NewInfoAvailable = false
		return true
	})
}

// StopDetection switches detection off. Responses to requests issued
// before this call are discarded when they arrive.
func (s *Session) StopDetection() {
	s.update("stop detection", func() bool {
		if !s.flags.DetectionActive {
			return false
		}
		s.epoch++
		s.flags.DetectionActive = false
		return true
	})
}

// BeginDetection acquires the single-flight slot for a detection request.
// It fails when detection is off or a request is already pending.
func (s *Session) BeginDetection() (Ticket, bool) {
	var (
		t  Ticket
		ok bool
	)
	s.update("begin detection", func() bool {
		if !s.flags.DetectionActive || s.flags.RequestPending {
			return false
		}
		t = s.nextTicket()
		s.detectHolder = t.Seq
		s.flags.RequestPending = true
		s.pendingSince = s.now()
		ok = true
		return true
	})
	return t, ok
}

// EndDetection releases the slot held by t. Safe to call more than once.
func (s *Session) EndDetection(t Ticket) {
	s.update("end detection", func() bool {
		if s.detectHolder != t.Seq || !s.flags.RequestPending {
			return false
		}
		s.detectHolder = 0
		s.flags.RequestPending = false
		s.pendingSince = time.Time{}
		return true
	})
}

// ApplyDetections fuses a detection response into the current set. The
// response is dropped when detection was switched off, or off and on
// again, after t was issued.
func (s *Session) ApplyDetections(t Ticket, raw []domain.RawDetection) bool {
	applied := false
	s.update("apply detections", func() bool {
		if !s.flags.DetectionActive || t.Epoch != s.epoch {
			s.log.Debug("session: dropping stale detection response (ticket epoch %d, now %d)", t.Epoch, s.epoch)
			return false
		}
		_, sizeChanged := s.store.Merge(raw)
		if sizeChanged {
			s.flags.NewInfoAvailable = true
		}
		applied = true
		return true
	})
	return applied
}

// OpenMenu shows the menu and clears the new-info marker.
func (s *Session) OpenMenu() {
	s.update("open menu", func() bool {
		if s.flags.MenuOpen && !s.flags.NewInfoAvailable {
			return false
		}
		s.flags.MenuOpen = true
		s.flags.NewInfoAvailable = false
		return true
	})
}

// CloseMenu hides the menu.
func (s *Session) CloseMenu() {
	s.update("close menu", func() bool {
		if !s.flags.MenuOpen {
			return false
		}
		s.flags.MenuOpen = false
		return true
	})
}

// ToggleMenu flips the menu. Used by UI buttons.
func (s *Session) ToggleMenu() {
	s.update("toggle menu", func() bool {
		s.flags.MenuOpen = !s.flags.MenuOpen
		if s.flags.MenuOpen {
			s.flags.NewInfoAvailable = false
		}
		return true
	})
}

// AcknowledgeNewInfo clears the new-info marker.
func (s *Session) AcknowledgeNewInfo() {
	s.update("acknowledge new info", func() bool {
		if !s.flags.NewInfoAvailable {
			return false
		}
		s.flags.NewInfoAvailable = false
		return true
	})
}

// SetTranscript records the last utterance heard.
func (s *Session) SetTranscript(text string) {
	s.update("transcript", func() bool {
		if s.transcript == text {
			return false
		}
		s.transcript = text
		return true
	})
}
