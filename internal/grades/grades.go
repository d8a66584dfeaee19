package grades

import (
	"fmt"
	"strings"
)

var gradePoints = map[string]int{
	"O":  10,
	"A+": 9,
	"A":  8,
	"B+": 7,
	"B":  6,
	"C":  5,
	"P":  4,
	"F":  0,
	"AB": 0,
	"I":  0,
}

type Course struct {
	Code   string
	Credit int
	Grade  string
}

type Semester struct {
	Number  int
	Courses []Course
}

// Points returns the grade point for a letter grade, case-insensitively.
func Points(grade string) (int, error) {
	p, ok := gradePoints[strings.ToUpper(strings.TrimSpace(grade))]
	if !ok {
		return 0, fmt.Errorf("unknown grade %q", grade)
	}
	return p, nil
}

// GPA is the credit-weighted mean grade point. Courses without credits do not
// count; with no credits at all the result is 0.
func GPA(courses []Course) (float64, error) {
	var weighted, credits int
	for _, c := range courses {
		p, err := Points(c.Grade)
		if err != nil {
			return 0, fmt.Errorf("course %s: %w", c.Code, err)
		}
		if c.Credit <= 0 {
			continue
		}
		weighted += p * c.Credit
		credits += c.Credit
	}
	if credits == 0 {
		return 0, nil
	}
	return float64(weighted) / float64(credits), nil
}

// CGPA is the GPA over every course of every semester.
func CGPA(semesters []Semester) (float64, error) {
	var all []Course
	for _, s := range semesters {
		all = append(all, s.Courses...)
	}
	return GPA(all)
}

// Credits sums the credits of courses.
func Credits(courses []Course) int {
	total := 0
	for _, c := range courses {
		if c.Credit > 0 {
			total += c.Credit
		}
	}
	return total
}
