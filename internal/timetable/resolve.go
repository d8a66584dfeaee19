package timetable

import "strings"

// NormalizeSlot trims surrounding whitespace and trailing hyphens from a
// course's slot string.
func NormalizeSlot(slot string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(slot), "-"))
}

// SlotOptions splits a matrix slot such as "A / X" into its alternatives.
func SlotOptions(matrixSlot string) []string {
	parts := strings.Split(matrixSlot, "/")
	opts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			opts = append(opts, p)
		}
	}
	return opts
}

// Matches reports whether a course with the given slot occupies matrixSlot.
// A course slot like "L41-L42" is a range and matches when any of its parts
// equals any matrix alternative. Comparison is case-sensitive.
func Matches(courseSlot, matrixSlot string) bool {
	normalized := NormalizeSlot(courseSlot)
	if normalized == "" {
		return false
	}
	opts := SlotOptions(matrixSlot)

	if strings.Contains(normalized, "-") {
		for _, part := range strings.Split(normalized, "-") {
			if part = strings.TrimSpace(part); part != "" && contains(opts, part) {
				return true
			}
		}
		return false
	}
	return contains(opts, normalized)
}

// Resolve returns the first course occupying matrixSlot. The boolean is false
// for free periods.
func Resolve(matrixSlot string, courses []Course) (Course, bool) {
	for _, c := range courses {
		if Matches(c.Slot, matrixSlot) {
			return c, true
		}
	}
	return Course{}, false
}

// Occurrences counts the periods of day that course occupies.
func Occurrences(course Course, day Day) int {
	n := 0
	for _, slot := range day {
		if Matches(course.Slot, slot) {
			n++
		}
	}
	return n
}

// Period is one resolved time window of a day's timetable.
type Period struct {
	Index  int
	Time   string
	Slot   string
	Course *Course
}

// DaySchedule resolves all periods of a batch's day order against courses.
func DaySchedule(m Matrix, batch string, order int, courses []Course) ([]Period, error) {
	day, err := m.Day(batch, order)
	if err != nil {
		return nil, err
	}

	periods := make([]Period, Periods)
	for i, slot := range day {
		periods[i] = Period{Index: i + 1, Time: SlotTimes[i], Slot: slot}
		if c, ok := Resolve(slot, courses); ok {
			periods[i].Course = &c
		}
	}
	return periods, nil
}

func contains(opts []string, s string) bool {
	for _, o := range opts {
		if o == s {
			return true
		}
	}
	return false
}
