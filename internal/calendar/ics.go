package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"
)

// DecodeICS parses iCalendar data from r and returns a Calendar with one entry
// per day each event spans. The event type comes from the first CATEGORIES
// value naming a known type, else defaultType. Malformed events are skipped.
func DecodeICS(r io.Reader, defaultType EventType) (Calendar, error) {
	dec := ical.NewDecoder(r)
	cal := make(Calendar)

	for {
		doc, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range doc.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(time.UTC)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(time.UTC)
			if err != nil || !end.After(start) {
				end = start.Add(24 * time.Hour)
			}

			summary, _ := event.Props.Text(ical.PropSummary)
			description, _ := event.Props.Text(ical.PropDescription)
			categories, _ := event.Props.Text(ical.PropCategories)

			e := Event{
				Type:        eventTypeFromCategories(categories, defaultType),
				Title:       summary,
				Description: description,
			}

			// DTEND is exclusive for all-day events.
			for d := Day(start); d.Before(end); d = d.AddDate(0, 0, 1) {
				cal[Key(d)] = append(cal[Key(d)], e)
			}
		}
	}

	return cal, nil
}

func eventTypeFromCategories(categories string, fallback EventType) EventType {
	for _, c := range strings.Split(categories, ",") {
		if t, ok := ParseEventType(c); ok {
			return t
		}
	}
	return fallback
}
