package attendance

import (
	"fmt"
	"math"

	"github.com/christopherklint97/attendr/internal/timetable"
)

// Threshold is the minimum attendance fraction a course requires.
const Threshold = 0.75

// Record is the attendance of one course as reported by the attendance feed.
type Record struct {
	CourseCode  string
	CourseTitle string
	Category    timetable.Category
	Conducted   int
	Absent      int
	Percentage  float64
}

func (r Record) Present() int {
	return r.Conducted - r.Absent
}

// Percentage returns present/conducted as a percentage, or 0 when nothing has
// been conducted.
func Percentage(conducted, absent int) float64 {
	if conducted <= 0 {
		return 0
	}
	return float64(conducted-absent) / float64(conducted) * 100
}

type MarginKind int

const (
	// Safe means Hours more absences keep the course at or above threshold.
	Safe MarginKind = iota
	// Edge means the course is at or above threshold but cannot afford
	// another absence.
	Edge
	// Required means Hours more attended classes are needed to reach
	// threshold.
	Required
)

func (k MarginKind) String() string {
	switch k {
	case Safe:
		return "safe"
	case Edge:
		return "edge"
	case Required:
		return "required"
	}
	return fmt.Sprintf("MarginKind(%d)", int(k))
}

type Margin struct {
	Kind  MarginKind
	Hours int
}

func (m Margin) String() string {
	switch m.Kind {
	case Safe:
		return fmt.Sprintf("can skip %d", m.Hours)
	case Edge:
		return "on the edge, no margin"
	default:
		return fmt.Sprintf("attend %d more", m.Hours)
	}
}

// CalculateMargin returns how many further absences remain safe, or how many
// further attended hours are needed, for the given counts and threshold
// (0 < threshold < 1). The required count assumes every future class is
// attended.
func CalculateMargin(conducted, absent int, threshold float64) Margin {
	present := conducted - absent

	var ratio float64
	if conducted > 0 {
		ratio = float64(present) / float64(conducted)
	}

	if conducted > 0 && ratio >= threshold {
		maxTotal := float64(present) / threshold
		safe := int(math.Floor(maxTotal - float64(conducted)))
		if safe <= 0 {
			return Margin{Kind: Edge}
		}
		return Margin{Kind: Safe, Hours: safe}
	}

	needed := int(math.Ceil((threshold*float64(conducted) - float64(present)) / (1 - threshold)))
	if needed < 0 {
		needed = 0
	}
	return Margin{Kind: Required, Hours: needed}
}
