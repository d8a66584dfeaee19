package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventType classifies an academic calendar entry.
type EventType string

const (
	TypeHoliday EventType = "holiday"
	TypeAdmin   EventType = "admin"
	TypeEvent   EventType = "event"
)

// ParseEventType maps a feed type string onto a known EventType.
func ParseEventType(s string) (EventType, bool) {
	switch EventType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeHoliday:
		return TypeHoliday, true
	case TypeAdmin:
		return TypeAdmin, true
	case TypeEvent:
		return TypeEvent, true
	}
	return "", false
}

// Event is a single entry on an academic calendar day.
type Event struct {
	Type        EventType `json:"type"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Calendar maps D_M_YYYY keys to the events of that day. A missing key means
// the day has no events.
type Calendar map[string][]Event

// Key builds the D_M_YYYY lookup key for t: day first, 1-based month, no
// zero padding. Other services share this key scheme, so every lookup goes
// through here.
func Key(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d", t.Day(), int(t.Month()), t.Year())
}

// ParseKey is the inverse of Key. The returned date is midnight UTC.
func ParseKey(key string) (time.Time, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("calendar key %q: expected D_M_YYYY", key)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("calendar key %q: %w", key, err)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("calendar key %q: no such date", key)
	}
	return t, nil
}

// Day truncates t to its civil date, expressed as midnight UTC so that day
// arithmetic never crosses a DST boundary.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Events returns a copy of the events recorded for t's day.
func (c Calendar) Events(t time.Time) []Event {
	events := c[Key(t)]
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// IsHoliday reports whether any event on t's day is a holiday.
func (c Calendar) IsHoliday(t time.Time) bool {
	for _, e := range c[Key(t)] {
		if e.Type == TypeHoliday {
			return true
		}
	}
	return false
}

// Merge returns a new calendar holding the events of c followed by those of
// other for every day.
func (c Calendar) Merge(other Calendar) Calendar {
	out := make(Calendar, len(c)+len(other))
	for k, v := range c {
		out[k] = append([]Event(nil), v...)
	}
	for k, v := range other {
		out[k] = append(out[k], v...)
	}
	return out
}

// Month lists every day of the given month in order.
func Month(year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	var days []time.Time
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
