package feed_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/attendr/internal/calendar"
	"github.com/christopherklint97/attendr/internal/feed"
	"github.com/christopherklint97/attendr/internal/timetable"
)

func TestDecodeCalendar_ToleratesMalformedEntries(t *testing.T) {
	body := `{
		"2_10_2026": {"event": [{"type": "holiday", "title": "Gandhi Jayanti"}, {"type": "Event", "title": "Fest"}]},
		"05_10_2026": {"event": [{"type": "admin", "title": "Fee deadline", "description": "Pay by 5pm"}]},
		"6_10_2026": "not an object",
		"2026-10-07": {"event": [{"type": "holiday"}]},
		"8_10_2026": {"event": [{"title": "no type"}, {"type": "exam", "title": "unknown"}]}
	}`

	cal, err := feed.NewDecoder(nil).Calendar([]byte(body))
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}

	oct := func(d int) time.Time { return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC) }

	if !cal.IsHoliday(oct(2)) {
		t.Error("expected Oct 2 to be a holiday")
	}
	if got := cal.Events(oct(2)); len(got) != 2 || got[1].Type != calendar.TypeEvent {
		t.Errorf("Oct 2 events = %+v", got)
	}
	if got := cal.Events(oct(5)); len(got) != 1 || got[0].Description != "Pay by 5pm" {
		t.Errorf("padded key should be re-keyed, got %+v", got)
	}
	for _, d := range []int{6, 7, 8} {
		if got := cal.Events(oct(d)); got != nil {
			t.Errorf("Oct %d: expected malformed entries dropped, got %+v", d, got)
		}
	}
}

func TestDecodeCalendar_NotAnObject(t *testing.T) {
	if _, err := feed.NewDecoder(nil).Calendar([]byte(`[1,2]`)); err == nil {
		t.Error("expected error for non-object body")
	}
}

func TestDecodeTimetable(t *testing.T) {
	body := `{"batch": "2", "courses": [
		{"course_code": "21CSC201J", "course_title": "Data Structures", "slot": "B-", "credit": 4, "category": "Theory"},
		{"course_code": "21CSC201J", "course_title": "Data Structures Lab", "slot": "P37-P38-", "credit": 1, "category": "Practical"}
	]}`

	tt, err := feed.NewDecoder(nil).Timetable([]byte(body))
	if err != nil {
		t.Fatalf("Timetable: %v", err)
	}
	if tt.Batch != "2" || len(tt.Courses) != 2 {
		t.Fatalf("unexpected timetable %+v", tt)
	}
	if tt.Courses[1].Category != timetable.Practical || tt.Courses[1].Slot != "P37-P38-" {
		t.Errorf("course = %+v", tt.Courses[1])
	}
}

func TestDecodeTimetable_Invalid(t *testing.T) {
	body := `{"batch": "3", "courses": [{"course_code": "", "course_title": "X", "slot": "A", "credit": 1, "category": "Lecture"}]}`

	_, err := feed.NewDecoder(nil).Timetable([]byte(body))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"batch", "course_code", "category"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestDecodeAttendance(t *testing.T) {
	body := `{"day_order": "3", "courses": {
		"21MAB201T": {"total_hours_conducted": 20, "total_hours_absent": 8, "attendance_percentage": 60},
		"21CSC201J-P": {"course_code": "21CSC201J", "category": "Practical", "total_hours_conducted": 10, "total_hours_absent": 1}
	}}`

	a, err := feed.NewDecoder(nil).Attendance([]byte(body))
	if err != nil {
		t.Fatalf("Attendance: %v", err)
	}
	if a.DayOrder != 3 {
		t.Errorf("DayOrder = %d, want 3", a.DayOrder)
	}
	if len(a.Records) != 2 {
		t.Fatalf("got %d records", len(a.Records))
	}

	// Sorted by identifier: 21CSC201J-P first.
	lab := a.Records[0]
	if lab.CourseCode != "21CSC201J" || lab.Category != timetable.Practical || math.Abs(lab.Percentage-90) > 1e-9 {
		t.Errorf("lab record = %+v", lab)
	}
	if a.Records[1].CourseCode != "21MAB201T" || a.Records[1].Percentage != 60 {
		t.Errorf("theory record = %+v", a.Records[1])
	}
}

func TestDecodeAttendance_AbsentExceedsConducted(t *testing.T) {
	body := `{"day_order": 1, "courses": {"X": {"total_hours_conducted": 5, "total_hours_absent": 6}}}`
	_, err := feed.NewDecoder(nil).Attendance([]byte(body))
	if err == nil || !strings.Contains(err.Error(), "total_hours_absent") {
		t.Errorf("expected total_hours_absent validation error, got %v", err)
	}
}

func TestDayOrderValue(t *testing.T) {
	tests := map[string]int{
		`4`:     4,
		`"2"`:   2,
		`" 5 "`: 5,
		`"-"`:   0,
		`""`:    0,
		`null`:  0,
		`0`:     0,
		`9`:     0,
	}
	for in, want := range tests {
		var v feed.DayOrderValue
		if err := json.Unmarshal([]byte(in), &v); err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if int(v) != want {
			t.Errorf("%s: got %d, want %d", in, v, want)
		}
	}
}

func TestDecodeGrades(t *testing.T) {
	body := `{"semesters": [{"semester": 1, "courses": [{"course_code": "A", "credit": 4, "grade": "O"}]}]}`
	semesters, err := feed.NewDecoder(nil).Grades([]byte(body))
	if err != nil {
		t.Fatalf("Grades: %v", err)
	}
	if len(semesters) != 1 || semesters[0].Number != 1 || semesters[0].Courses[0].Grade != "O" {
		t.Errorf("unexpected semesters %+v", semesters)
	}
}

func TestSchema(t *testing.T) {
	for _, kind := range feed.Kinds {
		data, err := feed.Schema(kind)
		if err != nil {
			t.Fatalf("Schema(%s): %v", kind, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("Schema(%s) is not JSON: %v", kind, err)
		}
	}
	if _, err := feed.Schema("bogus"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
