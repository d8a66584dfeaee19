// Package dayorder projects an institution's rotating day order (1..5) from a
// single known anchor onto any other date. Weekends and holidays pause the
// cycle.
package dayorder

import (
	"time"

	"github.com/christopherklint97/attendr/internal/calendar"
)

// Cycle is the number of distinct day orders.
const Cycle = 5

// Anchor is the one known (date, day order) pair. An Order of 0 means no
// anchor is known and every query is not applicable.
type Anchor struct {
	Date  time.Time
	Order int
}

// Valid reports whether the anchor carries a usable order.
func (a Anchor) Valid() bool {
	return a.Order >= 1 && a.Order <= Cycle
}

// DayOrder pairs a working day with the order that applies to it.
type DayOrder struct {
	Date  time.Time
	Order int
}

// HolidayFunc reports whether a date is a holiday.
type HolidayFunc func(time.Time) bool

type Sequencer struct {
	anchor    Anchor
	isHoliday HolidayFunc
}

// New returns a Sequencer. A nil isHoliday treats every weekday as working.
func New(anchor Anchor, isHoliday HolidayFunc) *Sequencer {
	if isHoliday == nil {
		isHoliday = func(time.Time) bool { return false }
	}
	anchor.Date = calendar.Day(anchor.Date)
	return &Sequencer{anchor: anchor, isHoliday: isHoliday}
}

// Anchor returns the sequencer's anchor with its date truncated to the day.
func (s *Sequencer) Anchor() Anchor {
	return s.anchor
}

// IsWorkingDay reports whether t is neither a weekend nor a holiday.
func (s *Sequencer) IsWorkingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !s.isHoliday(t)
}

// DayOrder returns the order that applies on target. The boolean is false when
// no anchor is known or target is a weekend or holiday.
func (s *Sequencer) DayOrder(target time.Time) (int, bool) {
	target = calendar.Day(target)
	if !s.IsWorkingDay(target) {
		return 0, false
	}
	return s.Running(target)
}

// Running returns the cycle counter at target without checking whether target
// itself is a working day. On a non-working day this is the order of the most
// recent working day reached by the walk.
func (s *Sequencer) Running(target time.Time) (int, bool) {
	if !s.anchor.Valid() {
		return 0, false
	}
	target = calendar.Day(target)

	order := s.anchor.Order
	switch {
	case target.After(s.anchor.Date):
		for d := s.anchor.Date.AddDate(0, 0, 1); !d.After(target); d = d.AddDate(0, 0, 1) {
			if s.IsWorkingDay(d) {
				order = Next(order)
			}
		}
	case target.Before(s.anchor.Date):
		// Inverse of the forward walk: leaving a working day undoes its step.
		for d := s.anchor.Date; d.After(target); d = d.AddDate(0, 0, -1) {
			if s.IsWorkingDay(d) {
				order = Prev(order)
			}
		}
	}
	return order, true
}

// Orders lists the working days in [start, end] with their day orders. It is
// empty when no anchor is known or end is before start.
func (s *Sequencer) Orders(start, end time.Time) []DayOrder {
	start, end = calendar.Day(start), calendar.Day(end)
	if end.Before(start) {
		return nil
	}
	order, ok := s.Running(start)
	if !ok {
		return nil
	}

	var out []DayOrder
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.After(start) && s.IsWorkingDay(d) {
			order = Next(order)
		}
		if s.IsWorkingDay(d) {
			out = append(out, DayOrder{Date: d, Order: order})
		}
	}
	return out
}

// Next advances an order one step around the cycle.
func Next(order int) int {
	return order%Cycle + 1
}

// Prev steps an order back one position around the cycle.
func Prev(order int) int {
	return (order+Cycle-2)%Cycle + 1
}
