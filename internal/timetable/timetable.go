package timetable

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/christopherklint97/attendr/internal/dayorder"
)

// Periods is the number of fixed time windows in a day.
const Periods = 12

var ErrUnknownBatch = errors.New("unknown batch")

type Category string

const (
	Theory    Category = "Theory"
	Practical Category = "Practical"
)

// Course is an enrolled course as listed on the student's timetable.
type Course struct {
	Code     string   `json:"course_code" toml:"course_code"`
	Title    string   `json:"course_title" toml:"course_title"`
	Slot     string   `json:"slot" toml:"slot"`
	Credit   int      `json:"credit" toml:"credit"`
	Category Category `json:"category" toml:"category"`
}

// Day holds the slot code of each period of one day order.
type Day [Periods]string

// BatchSchedule maps a day order (1..5) to its slots.
type BatchSchedule map[int]Day

// Matrix maps a batch identifier to its schedule.
type Matrix map[string]BatchSchedule

// SlotTimes are the time windows of the twelve periods.
var SlotTimes = [Periods]string{
	"08:00-08:50", "08:50-09:40", "09:45-10:35", "10:40-11:30",
	"11:35-12:25", "12:30-13:20", "13:25-14:15", "14:20-15:10",
	"15:10-16:00", "16:00-16:50", "16:50-17:30", "17:30-18:10",
}

// DefaultMatrix returns a fresh copy of the two batch grids.
//
// These grids are placeholders with the institution's shape (five day orders,
// twelve periods, theory letters, P practical slots, L lab slots) but not its
// published contents. Deployments should supply the real grid through
// timetable.matrix_file until it replaces these values.
func DefaultMatrix() Matrix {
	return Matrix{
		"1": {
			1: {"A", "A/X", "F/X", "F", "B", "P6", "P7", "P8", "P9", "P10", "L11", "L12"},
			2: {"P11", "P12/X", "P13/X", "P14", "P15", "C", "C", "G", "G", "A", "L21", "L22"},
			3: {"C", "C/X", "A/X", "D", "G", "P26", "P27", "P28", "P29", "P30", "L31", "L32"},
			4: {"P31", "P32/X", "P33/X", "P34", "P35", "D", "D", "B", "E", "C", "L41", "L42"},
			5: {"E", "E/X", "C/X", "F", "D", "P46", "P47", "P48", "P49", "P50", "L51", "L52"},
		},
		"2": {
			1: {"P1", "P2/X", "P3/X", "P4", "P5", "A", "A", "F", "F", "G", "L11", "L12"},
			2: {"B", "B/X", "G/X", "G", "A", "P16", "P17", "P18", "P19", "P20", "L21", "L22"},
			3: {"P21", "P22/X", "P23/X", "P24", "P25", "C", "C", "A", "D", "B", "L31", "L32"},
			4: {"D", "D/X", "B/X", "E", "C", "P36", "P37", "P38", "P39", "P40", "L41", "L42"},
			5: {"P41", "P42/X", "P43/X", "P44", "P45", "E", "E", "C", "F", "D", "L51", "L52"},
		},
	}
}

// Day returns the slots of a batch's day order.
func (m Matrix) Day(batch string, order int) (Day, error) {
	schedule, ok := m[batch]
	if !ok {
		return Day{}, fmt.Errorf("%w %q", ErrUnknownBatch, batch)
	}
	day, ok := schedule[order]
	if !ok {
		return Day{}, fmt.Errorf("batch %q has no day order %d", batch, order)
	}
	return day, nil
}

// Validate checks that every batch defines all day orders.
func (m Matrix) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("matrix has no batches")
	}
	for batch, schedule := range m {
		for order := 1; order <= dayorder.Cycle; order++ {
			if _, ok := schedule[order]; !ok {
				return fmt.Errorf("batch %q is missing day order %d", batch, order)
			}
		}
	}
	return nil
}

type matrixFile struct {
	Batches map[string]map[string][]string `toml:"batches"`
}

// LoadMatrix reads a replacement matrix from a TOML file of the form
//
//	[batches.1]
//	1 = ["A", "A/X", ...]
func LoadMatrix(path string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading matrix file: %w", err)
	}

	var f matrixFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing matrix file: %w", err)
	}

	m := make(Matrix, len(f.Batches))
	for batch, days := range f.Batches {
		schedule := make(BatchSchedule, len(days))
		for key, slots := range days {
			var order int
			if _, err := fmt.Sscanf(key, "%d", &order); err != nil || order < 1 || order > dayorder.Cycle {
				return nil, fmt.Errorf("batch %q: invalid day order %q", batch, key)
			}
			if len(slots) != Periods {
				return nil, fmt.Errorf("batch %q day %d: expected %d slots, got %d", batch, order, Periods, len(slots))
			}
			var day Day
			copy(day[:], slots)
			schedule[order] = day
		}
		m[batch] = schedule
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
