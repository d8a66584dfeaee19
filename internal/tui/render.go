package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/christopherklint97/attendr/internal/attendance"
	"github.com/christopherklint97/attendr/internal/calendar"
	"github.com/christopherklint97/attendr/internal/engine"
	"github.com/christopherklint97/attendr/internal/grades"
	"github.com/christopherklint97/attendr/internal/store"
	"github.com/christopherklint97/attendr/internal/timetable"
)

const dayLayout = "Mon 2 Jan 2006"

// DayLookup answers per-date questions for the month view.
type DayLookup interface {
	ComputeDayOrder(date time.Time) (int, bool)
	EventsForDate(date time.Time) []calendar.Event
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

func plainStyle(row, col int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}

func orderLabel(order int, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.Itoa(order)
}

func formatEvent(e calendar.Event) string {
	s := fmt.Sprintf("[%s] %s", e.Type, e.Title)
	if e.Description != "" {
		s += ": " + e.Description
	}
	return s
}

// RenderDay describes one date: its day order and any events.
func RenderDay(date time.Time, order int, ok bool, events []calendar.Event) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(date.Format(dayLayout)))
	sb.WriteString("\n")
	if ok {
		sb.WriteString(fmt.Sprintf("Day order %s\n", highlightStyle.Render(strconv.Itoa(order))))
	} else {
		sb.WriteString(dimStyle.Render("No day order (weekend, holiday or unknown)"))
		sb.WriteString("\n")
	}
	sb.WriteString(RenderEvents(events))
	return sb.String()
}

// RenderEvents lists events one per line.
func RenderEvents(events []calendar.Event) string {
	if len(events) == 0 {
		return dimStyle.Render("No events") + "\n"
	}
	var sb strings.Builder
	for _, e := range events {
		line := formatEvent(e)
		if e.Type == calendar.TypeHoliday {
			line = warningStyle.Render(line)
		}
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

// RenderSchedule renders the periods of one day.
func RenderSchedule(date time.Time, order int, periods []timetable.Period) string {
	t := newTable("#", "Time", "Slot", "Course", "Category").StyleFunc(plainStyle)
	for _, p := range periods {
		course, category := "-", ""
		if p.Course != nil {
			course = p.Course.Code + " " + p.Course.Title
			category = string(p.Course.Category)
		}
		t.Row(strconv.Itoa(p.Index), p.Time, p.Slot, course, category)
	}
	header := titleStyle.Render(fmt.Sprintf("%s, day order %d", date.Format(dayLayout), order))
	return header + "\n" + t.String() + "\n"
}

// RenderMargins renders the current attendance margin of every course.
func RenderMargins(margins []engine.CourseMargin, threshold float64) string {
	if len(margins) == 0 {
		return dimStyle.Render("No attendance records.") + "\n"
	}
	kinds := make([]attendance.MarginKind, len(margins))
	t := newTable("Course", "Category", "Conducted", "Absent", "%", "Margin")
	for i, m := range margins {
		kinds[i] = m.Margin.Kind
		t.Row(
			m.Course.Code+" "+m.Course.Title,
			string(m.Course.Category),
			strconv.Itoa(m.Record.Conducted),
			strconv.Itoa(m.Record.Absent),
			fmt.Sprintf("%.2f", m.Percentage),
			m.Margin.String(),
		)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 5 && row >= 0 && row < len(kinds) {
			return marginStyle(kinds[row]).Padding(0, 1)
		}
		return cellStyle
	})
	header := subtitleStyle.Render(fmt.Sprintf("Threshold %.0f%%", threshold*100))
	return header + "\n" + t.String() + "\n"
}

// RenderPrediction renders the outcome of missing every class in a range.
func RenderPrediction(p *engine.Prediction) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Leave %s to %s",
		p.Start.Format(dayLayout), p.End.Format(dayLayout))))
	sb.WriteString("\n")

	if len(p.Days) == 0 {
		sb.WriteString(dimStyle.Render("No working days in range; attendance unchanged."))
		sb.WriteString("\n")
	} else {
		parts := make([]string, len(p.Days))
		for i, d := range p.Days {
			parts[i] = fmt.Sprintf("%s: %d", d.Date.Format("Mon 2"), d.Order)
		}
		sb.WriteString("Day orders  " + strings.Join(parts, "  "))
		sb.WriteString("\n")
	}

	if len(p.Forecasts) == 0 {
		sb.WriteString(dimStyle.Render("No courses with attendance records."))
		sb.WriteString("\n")
		return sb.String()
	}

	kinds := make([]attendance.MarginKind, len(p.Forecasts))
	t := newTable("Course", "Missed", "Before", "After", "Drop", "Margin")
	for i, f := range p.Forecasts {
		kinds[i] = f.Margin.Kind
		t.Row(
			f.Course.Code+" "+f.Course.Title,
			strconv.Itoa(f.Missed),
			fmt.Sprintf("%.2f", f.OriginalPercentage),
			fmt.Sprintf("%.2f", f.PredictedPercentage),
			fmt.Sprintf("%.2f", f.Drop()),
			f.Margin.String(),
		)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 5 && row >= 0 && row < len(kinds) {
			return marginStyle(kinds[row]).Padding(0, 1)
		}
		return cellStyle
	})
	sb.WriteString(t.String())
	sb.WriteString("\n")
	return sb.String()
}

// RenderMonth lists every day of a month with its day order and events.
func RenderMonth(lookup DayLookup, year int, month time.Month) string {
	t := newTable("Date", "Order", "Events").StyleFunc(plainStyle)
	for _, day := range calendar.Month(year, month) {
		order, ok := lookup.ComputeDayOrder(day)
		events := lookup.EventsForDate(day)
		titles := make([]string, len(events))
		for i, e := range events {
			titles[i] = formatEvent(e)
		}
		t.Row(day.Format("Mon 2"), orderLabel(order, ok), strings.Join(titles, "; "))
	}
	header := titleStyle.Render(fmt.Sprintf("%s %d", month, year))
	return header + "\n" + t.String() + "\n"
}

// RenderHistory renders saved predictions, newest first.
func RenderHistory(preds []store.Prediction) string {
	if len(preds) == 0 {
		return dimStyle.Render("No saved predictions.") + "\n"
	}
	t := newTable("Saved", "Range", "Batch", "Day orders", "Hardest hit").StyleFunc(plainStyle)
	for _, p := range preds {
		orders := make([]string, len(p.DayOrders))
		for i, o := range p.DayOrders {
			orders[i] = strconv.Itoa(o)
		}
		worst := "-"
		if len(p.Forecasts) > 0 {
			f := p.Forecasts[0]
			worst = fmt.Sprintf("%s %.2f -> %.2f", f.CourseCode, f.OriginalPct, f.PredictedPct)
		}
		t.Row(
			p.CreatedAt.Local().Format("2006-01-02 15:04"),
			p.Start.Format("2006-01-02")+" to "+p.End.Format("2006-01-02"),
			p.Batch,
			strings.Join(orders, ","),
			worst,
		)
	}
	return t.String() + "\n"
}

// RenderGrades renders GPA per semester and the overall CGPA.
func RenderGrades(semesters []grades.Semester) (string, error) {
	if len(semesters) == 0 {
		return dimStyle.Render("No grades recorded.") + "\n", nil
	}
	t := newTable("Semester", "Credits", "GPA").StyleFunc(plainStyle)
	for _, s := range semesters {
		gpa, err := grades.GPA(s.Courses)
		if err != nil {
			return "", fmt.Errorf("semester %d: %w", s.Number, err)
		}
		t.Row(strconv.Itoa(s.Number), strconv.Itoa(grades.Credits(s.Courses)), fmt.Sprintf("%.2f", gpa))
	}
	cgpa, err := grades.CGPA(semesters)
	if err != nil {
		return "", err
	}
	return t.String() + "\n" + successStyle.Render(fmt.Sprintf("CGPA %.2f", cgpa)) + "\n", nil
}
