package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CalendarDay is the value stored under each D_M_YYYY key of the calendar
// feed.
type CalendarDay struct {
	Event []CalendarEvent `json:"event"`
}

type CalendarEvent struct {
	Type        string `json:"type" jsonschema:"enum=holiday,enum=admin,enum=event"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// CalendarDocument is the whole calendar feed.
type CalendarDocument map[string]CalendarDay

type TimetableDocument struct {
	Batch   string         `json:"batch" validate:"required,oneof=1 2" jsonschema:"enum=1,enum=2"`
	Courses []CourseRecord `json:"courses" validate:"dive"`
}

type CourseRecord struct {
	CourseCode  string `json:"course_code" validate:"required"`
	CourseTitle string `json:"course_title" validate:"required"`
	Slot        string `json:"slot" validate:"required"`
	Credit      int    `json:"credit" validate:"gte=0"`
	Category    string `json:"category" validate:"required,oneof=Theory Practical" jsonschema:"enum=Theory,enum=Practical"`
}

type AttendanceDocument struct {
	DayOrder DayOrderValue               `json:"day_order"`
	Courses  map[string]AttendanceRecord `json:"courses" validate:"dive"`
}

type AttendanceRecord struct {
	CourseCode     string   `json:"course_code,omitempty"`
	CourseTitle    string   `json:"course_title,omitempty"`
	Category       string   `json:"category,omitempty" validate:"omitempty,oneof=Theory Practical"`
	HoursConducted int      `json:"total_hours_conducted" validate:"gte=0"`
	HoursAbsent    int      `json:"total_hours_absent" validate:"gte=0,ltefield=HoursConducted"`
	Percentage     *float64 `json:"attendance_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
}

type GradesDocument struct {
	Semesters []SemesterRecord `json:"semesters" validate:"dive"`
}

type SemesterRecord struct {
	Semester int           `json:"semester" validate:"gte=1"`
	Courses  []GradeRecord `json:"courses" validate:"dive"`
}

type GradeRecord struct {
	CourseCode string `json:"course_code" validate:"required"`
	Credit     int    `json:"credit" validate:"gte=0"`
	Grade      string `json:"grade" validate:"required"`
}

// DayOrderValue accepts the anchor day order as a number or a numeric string.
// Anything else ("-", "", null) decodes as 0, meaning no anchor.
type DayOrderValue int

func (d *DayOrderValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("day_order: %w", err)
		}
	} else {
		raw = string(data)
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > 5 {
		*d = 0
		return nil
	}
	*d = DayOrderValue(n)
	return nil
}
