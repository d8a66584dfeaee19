package feed

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes day_order as either an integer or a string.
func (DayOrderValue) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: "Today's day order (1-5); anything else means unknown",
		OneOf: []*jsonschema.Schema{
			{Type: "integer", Minimum: json.Number("0"), Maximum: json.Number("5")},
			{Type: "string"},
			{Type: "null"},
		},
	}
}

// Schema returns the JSON Schema of a feed document.
func Schema(kind Kind) ([]byte, error) {
	r := &jsonschema.Reflector{}

	var s *jsonschema.Schema
	switch kind {
	case KindCalendar:
		s = r.Reflect(CalendarDocument{})
	case KindTimetable:
		s = r.Reflect(&TimetableDocument{})
	case KindAttendance:
		s = r.Reflect(&AttendanceDocument{})
	case KindGrades:
		s = r.Reflect(&GradesDocument{})
	default:
		return nil, fmt.Errorf("unknown feed %q", kind)
	}
	s.Title = string(kind) + " feed"

	return json.MarshalIndent(s, "", "  ")
}
