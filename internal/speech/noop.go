package speech

import (
	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
)

// Compile-time interface check.
var _ domain.Earcon = (*NoOp)(nil)

// NoOp is an earcon that only logs. Used when audio is disabled or the
// audio device could not be opened.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a silent earcon.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Accept logs instead of playing.
func (n *NoOp) Accept() { n.log.Debug("earcon: accept (silent)") }

// Reject logs instead of playing.
func (n *NoOp) Reject() { n.log.Debug("earcon: reject (silent)") }
