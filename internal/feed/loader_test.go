package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/christopherklint97/attendr/internal/store"
)

type memSnapshots map[string]store.Snapshot

func (m memSnapshots) SaveSnapshot(kind string, body []byte, at time.Time) error {
	m[kind] = store.Snapshot{Kind: kind, Body: body, FetchedAt: at}
	return nil
}

func (m memSnapshots) GetSnapshot(kind string) (*store.Snapshot, error) {
	s, ok := m[kind]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

const (
	testCalendar   = `{"16_10_2026": {"event": [{"type": "holiday", "title": "Diwali"}]}}`
	testTimetable  = `{"batch": "1", "courses": [{"course_code": "B1", "course_title": "Data Structures", "slot": "B", "credit": 4, "category": "Theory"}]}`
	testAttendance = `{"day_order": "3", "courses": {"B1": {"course_code": "B1", "course_title": "Data Structures", "category": "Theory", "total_hours_conducted": 40, "total_hours_absent": 5}}}`
)

func writeFeeds(t *testing.T) Sources {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"calendar.json":   testCalendar,
		"timetable.json":  testTimetable,
		"attendance.json": testAttendance,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return Sources{
		Calendar:   filepath.Join(dir, "calendar.json"),
		Timetable:  filepath.Join(dir, "timetable.json"),
		Attendance: filepath.Join(dir, "attendance.json"),
	}
}

func TestLoader_LoadSavesSnapshots(t *testing.T) {
	snaps := memSnapshots{}
	fetchedAt := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)
	l := NewLoader(newTestClient(""), snaps, writeFeeds(t), false, nil)
	l.now = func() time.Time { return fetchedAt }

	b, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Attendance.DayOrder != 3 || len(b.Timetable.Courses) != 1 {
		t.Errorf("bundle = %+v", b)
	}
	if !b.Calendar.IsHoliday(time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected 16 Oct to be a holiday")
	}
	if !b.AttendanceAt.Equal(fetchedAt) {
		t.Errorf("AttendanceAt = %v", b.AttendanceAt)
	}
	for _, kind := range []Kind{KindCalendar, KindTimetable, KindAttendance} {
		if _, ok := snaps[string(kind)]; !ok {
			t.Errorf("missing snapshot for %s", kind)
		}
	}
}

func TestLoader_OfflineUsesSnapshots(t *testing.T) {
	at := time.Date(2026, time.October, 14, 18, 0, 0, 0, time.UTC)
	snaps := memSnapshots{}
	snaps.SaveSnapshot(string(KindTimetable), []byte(testTimetable), at)
	snaps.SaveSnapshot(string(KindAttendance), []byte(testAttendance), at)

	// Local sources that fail to read fall back to their snapshots.
	sources := Sources{Timetable: "/does/not/exist", Attendance: "/does/not/exist"}
	b, err := NewLoader(newTestClient(""), snaps, sources, true, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Calendar) != 0 {
		t.Errorf("expected empty calendar, got %v", b.Calendar)
	}
	if !b.AttendanceAt.Equal(at) {
		t.Errorf("AttendanceAt = %v, want snapshot time", b.AttendanceAt)
	}
}

const testHolidays = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//attendr//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:1@test\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20261014\r\n" +
	"DTEND;VALUE=DATE:20261015\r\n" +
	"SUMMARY:Foundation day\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func writeHolidays(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "holidays.ics")
	if err := os.WriteFile(path, []byte(testHolidays), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_HolidaysSameOnlineAndOffline(t *testing.T) {
	oct14 := time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)
	snaps := memSnapshots{}
	sources := writeFeeds(t)
	sources.HolidaysICS = writeHolidays(t)

	online, err := NewLoader(newTestClient(""), snaps, sources, false, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("online Load: %v", err)
	}
	if !online.Calendar.IsHoliday(oct14) {
		t.Fatal("online: expected 14 Oct to be a holiday")
	}
	if _, ok := snaps[string(KindHolidays)]; !ok {
		t.Error("missing snapshot for holidays")
	}

	offline, err := NewLoader(newTestClient(""), snaps, sources, true, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("offline Load: %v", err)
	}
	if !offline.Calendar.IsHoliday(oct14) {
		t.Error("offline with a local file: expected 14 Oct to be a holiday")
	}

	// An unreachable URL offline is served from the snapshot.
	sources.HolidaysICS = "https://calendar.invalid/holidays.ics"
	cached, err := NewLoader(newTestClient(""), snaps, sources, true, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("offline Load from snapshot: %v", err)
	}
	if !cached.Calendar.IsHoliday(oct14) || !cached.Calendar.IsHoliday(time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)) {
		t.Error("offline from snapshot: expected 14 and 16 Oct to be holidays")
	}
}

func TestLoader_UnreadableHolidaysFails(t *testing.T) {
	sources := writeFeeds(t)
	sources.HolidaysICS = filepath.Join(t.TempDir(), "missing.ics")
	if _, err := NewLoader(newTestClient(""), memSnapshots{}, sources, false, nil).Load(context.Background()); err == nil {
		t.Error("expected Load to fail when the holiday calendar cannot be read")
	}
}

func TestLoader_FallsBackToSnapshot(t *testing.T) {
	at := time.Date(2026, time.October, 14, 18, 0, 0, 0, time.UTC)
	snaps := memSnapshots{}
	snaps.SaveSnapshot(string(KindAttendance), []byte(testAttendance), at)

	sources := Sources{Attendance: filepath.Join(t.TempDir(), "missing.json")}
	body, got, err := NewLoader(newTestClient(""), snaps, sources, false, nil).Body(context.Background(), KindAttendance)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if string(body) != testAttendance || !got.Equal(at) {
		t.Errorf("Body = %s at %v", body, got)
	}
}

func TestLoader_MissingFeed(t *testing.T) {
	l := NewLoader(newTestClient(""), memSnapshots{}, Sources{}, false, nil)
	if _, _, err := l.Body(context.Background(), KindTimetable); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
	if _, err := l.Load(context.Background()); err == nil {
		t.Error("expected Load to fail without a timetable")
	}
}

func TestLoader_Refresh(t *testing.T) {
	snaps := memSnapshots{}
	sources := writeFeeds(t)
	sources.Grades = filepath.Join(t.TempDir(), "missing.json")
	sources.HolidaysICS = writeHolidays(t)

	refreshed, err := NewLoader(newTestClient(""), snaps, sources, false, nil).Refresh(context.Background())
	if err == nil {
		t.Error("expected error for the missing grades feed")
	}
	if len(refreshed) != 4 || refreshed[3] != KindHolidays {
		t.Errorf("refreshed = %v", refreshed)
	}
	if _, ok := snaps[string(KindGrades)]; ok {
		t.Error("grades snapshot should not exist")
	}
}

func TestBundle_Inputs(t *testing.T) {
	l := NewLoader(newTestClient(""), nil, writeFeeds(t), false, nil)
	l.now = func() time.Time { return time.Date(2026, time.October, 15, 20, 0, 0, 0, time.UTC) }
	b, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	kolkata := time.FixedZone("IST", 5*60*60+30*60)
	in := b.Inputs(EngineOptions{Batch: "2", Threshold: 0.8, Location: kolkata})
	if in.Batch != "2" || in.Threshold != 0.8 {
		t.Errorf("overrides not applied: %+v", in)
	}
	// 20:00 UTC is already the 16th in IST.
	want := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)
	if !in.Anchor.Date.Equal(want) || in.Anchor.Order != 3 {
		t.Errorf("anchor = %+v, want %v order 3", in.Anchor, want)
	}

	in = b.Inputs(EngineOptions{})
	if in.Batch != "1" {
		t.Errorf("batch = %q, want feed batch", in.Batch)
	}
}
