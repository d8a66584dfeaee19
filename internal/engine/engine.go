package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/christopherklint97/attendr/internal/attendance"
	"github.com/christopherklint97/attendr/internal/calendar"
	"github.com/christopherklint97/attendr/internal/dayorder"
	"github.com/christopherklint97/attendr/internal/timetable"
)

var ErrInvalidRange = errors.New("end date is before start date")

// Inputs is everything the engine reads. Callers fetch and validate it
// beforehand; the engine performs no I/O.
type Inputs struct {
	Calendar   calendar.Calendar
	Anchor     dayorder.Anchor
	Batch      string
	Matrix     timetable.Matrix
	Courses    []timetable.Course
	Attendance []attendance.Record
	Threshold  float64
}

type Engine struct {
	calendar   calendar.Calendar
	seq        *dayorder.Sequencer
	batch      string
	matrix     timetable.Matrix
	courses    []timetable.Course
	joined     []joinedCourse
	threshold  float64
	logger     *slog.Logger
}

// joinedCourse pairs a timetable course with its attendance record.
type joinedCourse struct {
	course timetable.Course
	record attendance.Record
}

// New builds an engine over in. A nil Matrix uses timetable.DefaultMatrix and
// a zero Threshold uses attendance.Threshold.
func New(in Inputs, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if in.Matrix == nil {
		in.Matrix = timetable.DefaultMatrix()
	}
	if in.Threshold == 0 {
		in.Threshold = attendance.Threshold
	}
	if in.Threshold <= 0 || in.Threshold >= 1 {
		return nil, fmt.Errorf("threshold %.2f out of range (0, 1)", in.Threshold)
	}
	if _, ok := in.Matrix[in.Batch]; !ok {
		return nil, fmt.Errorf("%w %q", timetable.ErrUnknownBatch, in.Batch)
	}
	if in.Calendar == nil {
		in.Calendar = calendar.Calendar{}
	}

	return &Engine{
		calendar:  in.Calendar,
		seq:       dayorder.New(in.Anchor, in.Calendar.IsHoliday),
		batch:     in.Batch,
		matrix:    in.Matrix,
		courses:   append([]timetable.Course(nil), in.Courses...),
		joined:    join(in.Courses, in.Attendance, logger),
		threshold: in.Threshold,
		logger:    logger,
	}, nil
}

// join matches each course to its attendance record by code and category,
// falling back to a record without a category. A record is joined to at most
// one course; later courses resolving to a claimed record are dropped.
func join(courses []timetable.Course, records []attendance.Record, logger *slog.Logger) []joinedCourse {
	byKey := make(map[string]attendance.Record, len(records))
	for _, r := range records {
		byKey[recordKey(r.CourseCode, r.Category)] = r
	}

	claimed := make(map[string]timetable.Course)
	var out []joinedCourse
	for _, c := range courses {
		key := recordKey(c.Code, c.Category)
		r, ok := byKey[key]
		if !ok {
			key = recordKey(c.Code, "")
			r, ok = byKey[key]
		}
		if !ok {
			logger.Debug("no attendance for course", "course", c.Code, "category", c.Category)
			continue
		}
		if prev, dup := claimed[key]; dup {
			logger.Warn("attendance record matches more than one course, keeping the first",
				"course", c.Code,
				"category", c.Category,
				"kept_category", prev.Category,
			)
			continue
		}
		claimed[key] = c
		out = append(out, joinedCourse{course: c, record: r})
	}
	return out
}

// ComputeDayOrder returns the day order of target; false means no academic
// schedule applies that day.
func (e *Engine) ComputeDayOrder(target time.Time) (int, bool) {
	return e.seq.DayOrder(target)
}

// EventsForDate returns every calendar entry on date.
func (e *Engine) EventsForDate(date time.Time) []calendar.Event {
	return e.calendar.Events(date)
}

// IsHoliday reports whether date carries a holiday entry.
func (e *Engine) IsHoliday(date time.Time) bool {
	return e.calendar.IsHoliday(date)
}

func (e *Engine) Batch() string { return e.batch }

func (e *Engine) Threshold() float64 { return e.threshold }

// Schedule returns the resolved periods for date, or nil when date has no day
// order.
func (e *Engine) Schedule(date time.Time) ([]timetable.Period, int, error) {
	order, ok := e.seq.DayOrder(date)
	if !ok {
		return nil, 0, nil
	}
	periods, err := timetable.DaySchedule(e.matrix, e.batch, order, e.courses)
	if err != nil {
		return nil, 0, err
	}
	return periods, order, nil
}

// CourseMargin is the current standing of one course.
type CourseMargin struct {
	Course     timetable.Course
	Record     attendance.Record
	Percentage float64
	Margin     attendance.Margin
}

// Margins returns the current margin of every course that has attendance.
func (e *Engine) Margins() []CourseMargin {
	var out []CourseMargin
	for _, j := range e.joined {
		c, r := j.course, j.record
		out = append(out, CourseMargin{
			Course:     c,
			Record:     r,
			Percentage: attendance.Percentage(r.Conducted, r.Absent),
			Margin:     attendance.CalculateMargin(r.Conducted, r.Absent, e.threshold),
		})
	}
	return out
}

// AtRisk returns the courses currently below threshold.
func (e *Engine) AtRisk() []CourseMargin {
	var out []CourseMargin
	for _, m := range e.Margins() {
		if m.Margin.Kind == attendance.Required {
			out = append(out, m)
		}
	}
	return out
}

func recordKey(code string, category timetable.Category) string {
	return code + "|" + string(category)
}

// Forecast is the predicted standing of one course after missing every class
// in a leave range.
type Forecast struct {
	Course              timetable.Course
	Missed              int
	OriginalConducted   int
	OriginalAbsent      int
	OriginalPercentage  float64
	PredictedConducted  int
	PredictedAbsent     int
	PredictedPercentage float64
	Margin              attendance.Margin
}

// Drop is how many percentage points the course loses.
func (f Forecast) Drop() float64 {
	return f.OriginalPercentage - f.PredictedPercentage
}

type Prediction struct {
	Start     time.Time
	End       time.Time
	Days      []dayorder.DayOrder
	DayOrders []int
	Forecasts []Forecast
}

// PredictRange simulates missing every class on the working days of
// [start, end]. Forecasts are ordered by descending drop.
func (e *Engine) PredictRange(start, end time.Time) (*Prediction, error) {
	start, end = calendar.Day(start), calendar.Day(end)
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	days := e.seq.Orders(start, end)
	p := &Prediction{
		Start:     start,
		End:       end,
		Days:      days,
		DayOrders: make([]int, len(days)),
	}
	for i, d := range days {
		p.DayOrders[i] = d.Order
	}

	schedules := make([]timetable.Day, len(days))
	for i, d := range days {
		day, err := e.matrix.Day(e.batch, d.Order)
		if err != nil {
			return nil, err
		}
		schedules[i] = day
	}

	for _, j := range e.joined {
		c, r := j.course, j.record
		missed := 0
		for _, day := range schedules {
			missed += timetable.Occurrences(c, day)
		}

		conducted := r.Conducted + missed
		absent := r.Absent + missed
		p.Forecasts = append(p.Forecasts, Forecast{
			Course:              c,
			Missed:              missed,
			OriginalConducted:   r.Conducted,
			OriginalAbsent:      r.Absent,
			OriginalPercentage:  r.Percentage,
			PredictedConducted:  conducted,
			PredictedAbsent:     absent,
			PredictedPercentage: attendance.Percentage(conducted, absent),
			Margin:              attendance.CalculateMargin(conducted, absent, e.threshold),
		})
	}

	sort.SliceStable(p.Forecasts, func(i, j int) bool {
		return p.Forecasts[i].Drop() > p.Forecasts[j].Drop()
	})

	e.logger.Debug("predicted range",
		"start", calendar.Key(start),
		"end", calendar.Key(end),
		"working_days", len(days),
		"forecasts", len(p.Forecasts),
	)

	return p, nil
}
