package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

// ParseDate reads a date as YYYY-MM-DD, D_M_YYYY, or a natural phrase such as
// "next friday" relative to now. An empty string, "now" or "today" means now;
// any other phrase must resolve to a different time. The result is a
// civil date (see Day).
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || refersToNow(s) {
		return Day(now), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Day(t), nil
	}
	if strings.Count(s, "_") == 2 {
		return ParseKey(s)
	}

	t, err := naturaldate.Parse(s, now, naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	// naturaldate returns the reference time for phrases it cannot match.
	if t.Equal(now) {
		return time.Time{}, fmt.Errorf("parsing date %q: not a recognised date", s)
	}
	return Day(t), nil
}

func refersToNow(s string) bool {
	switch strings.ToLower(s) {
	case "now", "today", "right now":
		return true
	}
	return false
}

// ParseMonth reads YYYY-MM; an empty string means now's month.
func ParseMonth(s string, now time.Time) (int, time.Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing month %q: expected YYYY-MM", s)
	}
	return t.Year(), t.Month(), nil
}
