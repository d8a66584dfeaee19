package notify

import (
	"fmt"
	"strings"

	"github.com/gen2brain/beeep"

	"github.com/christopherklint97/attendr/internal/engine"
)

const AppName = "attendr"

// Send posts a desktop notification. Failures are returned, not fatal: a
// headless machine has no notification daemon.
func Send(title, message string) error {
	if err := beeep.Notify(title, message, ""); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	return nil
}

// AtRiskMessage summarises courses below threshold, one per line. It returns
// an empty string when nothing is at risk.
func AtRiskMessage(courses []engine.CourseMargin) string {
	if len(courses) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range courses {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %.1f%%: %s", label(c), c.Percentage, c.Margin)
	}
	return b.String()
}

// AtRiskTitle is the notification headline for n courses below threshold.
func AtRiskTitle(n int) string {
	if n == 1 {
		return "1 course below attendance threshold"
	}
	return fmt.Sprintf("%d courses below attendance threshold", n)
}

// AlertAtRisk notifies about courses below threshold. It reports whether a
// notification was sent.
func AlertAtRisk(courses []engine.CourseMargin) (bool, error) {
	msg := AtRiskMessage(courses)
	if msg == "" {
		return false, nil
	}
	if err := Send(AtRiskTitle(len(courses)), msg); err != nil {
		return false, err
	}
	return true, nil
}

func label(c engine.CourseMargin) string {
	if c.Course.Title != "" {
		return c.Course.Title
	}
	return c.Course.Code
}
