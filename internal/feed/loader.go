package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/christopherklint97/attendr/internal/calendar"
	"github.com/christopherklint97/attendr/internal/dayorder"
	"github.com/christopherklint97/attendr/internal/engine"
	"github.com/christopherklint97/attendr/internal/grades"
	"github.com/christopherklint97/attendr/internal/store"
	"github.com/christopherklint97/attendr/internal/timetable"
)

// SnapshotStore persists the last good body of each feed.
type SnapshotStore interface {
	SaveSnapshot(kind string, body []byte, fetchedAt time.Time) error
	GetSnapshot(kind string) (*store.Snapshot, error)
}

// Sources names where each feed lives.
type Sources struct {
	Calendar    string
	Timetable   string
	Attendance  string
	Grades      string
	HolidaysICS string
	ICSType     calendar.EventType
}

func (s Sources) source(kind Kind) string {
	switch kind {
	case KindCalendar:
		return s.Calendar
	case KindTimetable:
		return s.Timetable
	case KindAttendance:
		return s.Attendance
	case KindGrades:
		return s.Grades
	case KindHolidays:
		return s.HolidaysICS
	}
	return ""
}

// Bundle is every decoded feed needed to build an engine.
type Bundle struct {
	Calendar   calendar.Calendar
	Timetable  *Timetable
	Attendance *Attendance
	Grades     []grades.Semester
	// AttendanceAt is when the attendance feed was fetched; its day order
	// is anchored to that date.
	AttendanceAt time.Time
}

type Loader struct {
	client  *Client
	decoder *Decoder
	snaps   SnapshotStore
	sources Sources
	offline bool
	logger  *slog.Logger
	now     func() time.Time
}

func NewLoader(client *Client, snaps SnapshotStore, sources Sources, offline bool, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		client:  client,
		decoder: NewDecoder(logger),
		snaps:   snaps,
		sources: sources,
		offline: offline,
		logger:  logger,
		now:     time.Now,
	}
}

// Body returns the raw body of kind. A successful read refreshes the snapshot
// and a failed one falls back to it. Offline, URL sources are not fetched but
// local files are still read.
func (l *Loader) Body(ctx context.Context, kind Kind) ([]byte, time.Time, error) {
	source := l.sources.source(kind)

	if source != "" && (!l.offline || !isURL(source)) {
		body, err := l.client.Fetch(ctx, source)
		if err == nil {
			at := l.now()
			if l.snaps != nil {
				if err := l.snaps.SaveSnapshot(string(kind), body, at); err != nil {
					l.logger.Warn("failed to cache feed snapshot", "feed", kind, "error", err)
				}
			}
			return body, at, nil
		}
		if l.snaps == nil {
			return nil, time.Time{}, fmt.Errorf("fetching %s feed: %w", kind, err)
		}
		l.logger.Warn("feed fetch failed, using cached snapshot", "feed", kind, "error", err)
	}

	if l.snaps != nil {
		snap, err := l.snaps.GetSnapshot(string(kind))
		if err != nil {
			return nil, time.Time{}, err
		}
		if snap != nil {
			return snap.Body, snap.FetchedAt, nil
		}
	}

	if source == "" {
		return nil, time.Time{}, fmt.Errorf("%s feed: %w", kind, ErrNoSource)
	}
	return nil, time.Time{}, fmt.Errorf("%s feed: no cached snapshot available offline", kind)
}

// Load fetches and decodes the calendar, timetable and attendance feeds, plus
// the holiday ICS when configured. Grades are loaded separately. A configured
// holiday calendar that cannot be read from source or snapshot is an error.
func (l *Loader) Load(ctx context.Context) (*Bundle, error) {
	b := &Bundle{}

	body, _, err := l.Body(ctx, KindCalendar)
	switch {
	case errors.Is(err, ErrNoSource):
		b.Calendar = calendar.Calendar{}
	case err != nil:
		return nil, err
	default:
		if b.Calendar, err = l.decoder.Calendar(body); err != nil {
			return nil, err
		}
	}

	if l.sources.HolidaysICS != "" {
		if body, _, err = l.Body(ctx, KindHolidays); err != nil {
			return nil, err
		}
		icsType := l.sources.ICSType
		if icsType == "" {
			icsType = calendar.TypeHoliday
		}
		holidays, err := calendar.DecodeICS(bytes.NewReader(body), icsType)
		if err != nil {
			return nil, fmt.Errorf("decoding holiday calendar: %w", err)
		}
		b.Calendar = b.Calendar.Merge(holidays)
	}

	if body, _, err = l.Body(ctx, KindTimetable); err != nil {
		return nil, err
	}
	if b.Timetable, err = l.decoder.Timetable(body); err != nil {
		return nil, err
	}

	var at time.Time
	if body, at, err = l.Body(ctx, KindAttendance); err != nil {
		return nil, err
	}
	if b.Attendance, err = l.decoder.Attendance(body); err != nil {
		return nil, err
	}
	b.AttendanceAt = at

	return b, nil
}

// LoadGrades fetches and decodes the grades feed.
func (l *Loader) LoadGrades(ctx context.Context) ([]grades.Semester, error) {
	body, _, err := l.Body(ctx, KindGrades)
	if err != nil {
		return nil, err
	}
	return l.decoder.Grades(body)
}

// Refresh fetches every configured feed and the holiday calendar, caching each
// snapshot. It returns the kinds that were refreshed.
func (l *Loader) Refresh(ctx context.Context) ([]Kind, error) {
	var refreshed []Kind
	var errs []error
	for _, kind := range append(Kinds[:len(Kinds):len(Kinds)], KindHolidays) {
		if l.sources.source(kind) == "" {
			continue
		}
		body, err := l.client.Fetch(ctx, l.sources.source(kind))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		if l.snaps != nil {
			if err := l.snaps.SaveSnapshot(string(kind), body, l.now()); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", kind, err))
				continue
			}
		}
		refreshed = append(refreshed, kind)
	}
	return refreshed, errors.Join(errs...)
}

// EngineOptions are the caller's overrides when building engine inputs.
type EngineOptions struct {
	Batch     string
	Matrix    timetable.Matrix
	Threshold float64
	Location  *time.Location
}

// Inputs assembles engine inputs from the bundle. The anchor date is the day
// the attendance feed was fetched, in opts.Location.
func (b *Bundle) Inputs(opts EngineOptions) engine.Inputs {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	batch := b.Timetable.Batch
	if opts.Batch != "" {
		batch = opts.Batch
	}
	anchorAt := b.AttendanceAt
	if anchorAt.IsZero() {
		anchorAt = time.Now()
	}

	return engine.Inputs{
		Calendar: b.Calendar,
		Anchor: dayorder.Anchor{
			Date:  calendar.Day(anchorAt.In(loc)),
			Order: b.Attendance.DayOrder,
		},
		Batch:      batch,
		Matrix:     opts.Matrix,
		Courses:    b.Timetable.Courses,
		Attendance: b.Attendance.Records,
		Threshold:  opts.Threshold,
	}
}
