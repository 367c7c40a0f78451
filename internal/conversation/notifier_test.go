package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hammamikhairi/foodlens/internal/logger"
)

func TestCLINotifier(t *testing.T) {
	var lines []string
	n := NewCLINotifier(logger.New(logger.LevelOff, nil), func(format string, a ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, a...))
	})
	ctx := context.Background()

	n.Notify(ctx, "Detección iniciada")
	n.NotifyUrgent(ctx, "Falta la fecha de nacimiento")

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "Detección iniciada") || !strings.Contains(lines[0], green) {
		t.Fatalf("unexpected notify line %q", lines[0])
	}
	if !strings.Contains(lines[1], red) {
		t.Fatalf("urgent line not red: %q", lines[1])
	}
	if n.Last() != "Falta la fecha de nacimiento" {
		t.Fatalf("unexpected last message %q", n.Last())
	}
}
