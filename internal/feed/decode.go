package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/christopherklint97/attendr/internal/attendance"
	"github.com/christopherklint97/attendr/internal/calendar"
	"github.com/christopherklint97/attendr/internal/grades"
	"github.com/christopherklint97/attendr/internal/timetable"
)

// Decoder turns raw feed bodies into the engine's typed inputs.
type Decoder struct {
	validator *Validator
	logger    *slog.Logger
}

func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Decoder{validator: NewValidator(), logger: logger}
}

// Calendar decodes the calendar feed. Malformed days and events are dropped,
// never reported as errors; only a body that is not a JSON object fails.
func (d *Decoder) Calendar(data []byte) (calendar.Calendar, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing calendar feed: %w", err)
	}

	cal := make(calendar.Calendar, len(raw))
	for key, body := range raw {
		date, err := calendar.ParseKey(key)
		if err != nil {
			d.logger.Warn("skipping calendar day with malformed key", "key", key)
			continue
		}

		var day CalendarDay
		if err := json.Unmarshal(body, &day); err != nil {
			d.logger.Warn("skipping malformed calendar day", "key", key, "error", err)
			continue
		}

		for _, e := range day.Event {
			t, ok := calendar.ParseEventType(e.Type)
			if !ok {
				d.logger.Warn("skipping calendar event with unknown type", "key", key, "type", e.Type)
				continue
			}
			// Re-key so "05_03_2026" style keys land on the canonical form.
			k := calendar.Key(date)
			cal[k] = append(cal[k], calendar.Event{Type: t, Title: e.Title, Description: e.Description})
		}
	}
	return cal, nil
}

// Timetable is the decoded timetable feed.
type Timetable struct {
	Batch   string
	Courses []timetable.Course
}

func (d *Decoder) Timetable(data []byte) (*Timetable, error) {
	var doc TimetableDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing timetable feed: %w", err)
	}
	if err := d.validator.Struct(doc); err != nil {
		return nil, fmt.Errorf("timetable feed: %w", err)
	}

	tt := &Timetable{Batch: doc.Batch, Courses: make([]timetable.Course, len(doc.Courses))}
	for i, c := range doc.Courses {
		tt.Courses[i] = timetable.Course{
			Code:     c.CourseCode,
			Title:    c.CourseTitle,
			Slot:     c.Slot,
			Credit:   c.Credit,
			Category: timetable.Category(c.Category),
		}
	}
	return tt, nil
}

// Attendance is the decoded attendance feed.
type Attendance struct {
	DayOrder int
	Records  []attendance.Record
}

// Attendance decodes the attendance feed. Records are returned sorted by
// course identifier. A missing percentage is computed from the hour counts.
func (d *Decoder) Attendance(data []byte) (*Attendance, error) {
	var doc AttendanceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing attendance feed: %w", err)
	}
	if err := d.validator.Struct(doc); err != nil {
		return nil, fmt.Errorf("attendance feed: %w", err)
	}

	ids := make([]string, 0, len(doc.Courses))
	for id := range doc.Courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := &Attendance{DayOrder: int(doc.DayOrder), Records: make([]attendance.Record, 0, len(ids))}
	for _, id := range ids {
		r := doc.Courses[id]
		code := r.CourseCode
		if code == "" {
			code = id
		}
		pct := attendance.Percentage(r.HoursConducted, r.HoursAbsent)
		if r.Percentage != nil {
			pct = *r.Percentage
		}
		out.Records = append(out.Records, attendance.Record{
			CourseCode:  code,
			CourseTitle: r.CourseTitle,
			Category:    timetable.Category(r.Category),
			Conducted:   r.HoursConducted,
			Absent:      r.HoursAbsent,
			Percentage:  pct,
		})
	}
	return out, nil
}

func (d *Decoder) Grades(data []byte) ([]grades.Semester, error) {
	var doc GradesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing grades feed: %w", err)
	}
	if err := d.validator.Struct(doc); err != nil {
		return nil, fmt.Errorf("grades feed: %w", err)
	}

	semesters := make([]grades.Semester, len(doc.Semesters))
	for i, s := range doc.Semesters {
		semesters[i] = grades.Semester{Number: s.Semester, Courses: make([]grades.Course, len(s.Courses))}
		for j, c := range s.Courses {
			semesters[i].Courses[j] = grades.Course{Code: c.CourseCode, Credit: c.Credit, Grade: c.Grade}
		}
	}
	return semesters, nil
}
