package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

// ANSI escape codes for terminal formatting.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	red   = "\033[31m"
	green = "\033[32m"
)

// PrintFunc is a function used to print formatted output.
// Matches the signature of both fmt.Printf and display.UI.Printf.
type PrintFunc func(format string, a ...interface{})

// CLINotifier writes command feedback to the terminal with ANSI
// formatting. It remembers the last message so the UI can show it in
// its status bar.
type CLINotifier struct {
	log     *logger.Logger
	printFn PrintFunc

	mu   sync.Mutex
	last string
}

// NewCLINotifier creates a terminal notifier.
// If printFn is nil, fmt.Printf is used.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc) *CLINotifier {
	if printFn == nil {
		printFn = func(format string, a ...interface{}) {
			fmt.Printf(format+"\n", a...)
		}
	}
	return &CLINotifier{log: log.With("component", "notify"), printFn: printFn}
}

// Notify prints a confirmation.
func (n *CLINotifier) Notify(_ context.Context, message string) error {
	n.remember(message)
	n.log.Debug("notify: %s", message)
	n.printFn("%s%s✓ %s%s", green, bold, message, reset)
	return nil
}

// NotifyUrgent prints a failure in bold red.
func (n *CLINotifier) NotifyUrgent(_ context.Context, message string) error {
	n.remember(message)
	n.log.Debug("notify-urgent: %s", message)
	n.printFn("%s%s✗ %s%s", red, bold, message, reset)
	return nil
}

// Last returns the most recent message.
func (n *CLINotifier) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

func (n *CLINotifier) remember(message string) {
	n.mu.Lock()
	n.last = message
	n.mu.Unlock()
}
