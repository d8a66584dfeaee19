package scheduler

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/christopherklint97/attendr/internal/config"
	"github.com/christopherklint97/attendr/internal/engine"
	"github.com/christopherklint97/attendr/internal/feed"
)

type memState map[string]string

func (m memState) GetState(key string) (string, error) { return m[key], nil }

func (m memState) SetState(key, value string) error {
	m[key] = value
	return nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	return &cfg
}

func TestNextAlignedTick(t *testing.T) {
	s := &Scheduler{cfg: testConfig()}
	loc := time.UTC

	tests := []struct {
		now      time.Time
		interval time.Duration
		want     time.Time
	}{
		{time.Date(2026, 10, 15, 10, 15, 0, 0, loc), 3 * time.Hour, time.Date(2026, 10, 15, 12, 0, 0, 0, loc)},
		{time.Date(2026, 10, 15, 12, 0, 0, 0, loc), 3 * time.Hour, time.Date(2026, 10, 15, 15, 0, 0, 0, loc)},
		{time.Date(2026, 10, 15, 23, 30, 0, 0, loc), 3 * time.Hour, time.Date(2026, 10, 16, 0, 0, 0, 0, loc)},
		{time.Date(2026, 10, 15, 9, 40, 0, 0, loc), 30 * time.Minute, time.Date(2026, 10, 15, 10, 0, 0, 0, loc)},
		{time.Date(2026, 10, 15, 9, 40, 0, 0, loc), 0, time.Date(2026, 10, 15, 10, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		if got := s.nextAlignedTick(tt.now, tt.interval); !got.Equal(tt.want) {
			t.Errorf("nextAlignedTick(%s, %s) = %s, want %s", tt.now.Format("15:04"), tt.interval, got, tt.want)
		}
	}
}

func TestIsWorkTime(t *testing.T) {
	s := &Scheduler{cfg: testConfig()}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"thursday morning", time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC), true},
		{"thursday at end", time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC), true},
		{"thursday evening", time.Date(2026, 10, 15, 18, 1, 0, 0, time.UTC), false},
		{"thursday early", time.Date(2026, 10, 15, 7, 59, 0, 0, time.UTC), false},
		{"saturday", time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), false},
		{"sunday", time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.isWorkTime(tt.t); got != tt.want {
				t.Errorf("isWorkTime = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	if h, m := parseTime("08:30", 9); h != 8 || m != 30 {
		t.Errorf("parseTime(08:30) = %d:%d", h, m)
	}
	if h, m := parseTime("bad", 9); h != 9 || m != 0 {
		t.Errorf("parseTime(bad) = %d:%d", h, m)
	}
	if h, m := parseTime("ab:cd", 18); h != 18 || m != 0 {
		t.Errorf("parseTime(ab:cd) = %d:%d", h, m)
	}
}

func writeFeed(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheck_AlertsOncePerChange(t *testing.T) {
	dir := t.TempDir()
	sources := feed.Sources{
		Timetable: writeFeed(t, dir, "timetable.json", `{"batch": "1", "courses": [
			{"course_code": "A1", "course_title": "Transforms", "slot": "A", "credit": 4, "category": "Theory"},
			{"course_code": "B1", "course_title": "Data Structures", "slot": "B", "credit": 4, "category": "Theory"}]}`),
		Attendance: writeFeed(t, dir, "attendance.json", `{"day_order": 3, "courses": {
			"A1": {"total_hours_conducted": 20, "total_hours_absent": 8},
			"B1": {"total_hours_conducted": 40, "total_hours_absent": 5}}}`),
	}

	state := memState{}
	loader := feed.NewLoader(feed.NewClient("", 0, nil), nil, sources, false, nil)
	s := New(testConfig(), loader, state, feed.EngineOptions{Location: time.UTC}, nil)
	s.out = io.Discard

	var alerts int
	s.alert = func(courses []engine.CourseMargin) (bool, error) {
		alerts++
		return true, nil
	}

	for i := 0; i < 2; i++ {
		atRisk, err := s.Check(context.Background())
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if len(atRisk) != 1 || atRisk[0].Course.Code != "A1" || atRisk[0].Margin.Hours != 12 {
			t.Errorf("atRisk = %+v", atRisk)
		}
	}
	if alerts != 1 {
		t.Errorf("alerts = %d, want 1", alerts)
	}
	if state[stateLastRefresh] == "" {
		t.Error("expected last_refresh to be recorded")
	}
	if state[stateLastAlert] != "A1:12" {
		t.Errorf("last_alert = %q", state[stateLastAlert])
	}
}

func TestCheck_NotificationsDisabled(t *testing.T) {
	dir := t.TempDir()
	sources := feed.Sources{
		Timetable:  writeFeed(t, dir, "timetable.json", `{"batch": "1", "courses": [{"course_code": "A1", "course_title": "Transforms", "slot": "A", "credit": 4, "category": "Theory"}]}`),
		Attendance: writeFeed(t, dir, "attendance.json", `{"day_order": 1, "courses": {"A1": {"total_hours_conducted": 20, "total_hours_absent": 8}}}`),
	}
	cfg := testConfig()
	cfg.Notifications.Enabled = false

	s := New(cfg, feed.NewLoader(feed.NewClient("", 0, nil), nil, sources, false, nil), memState{}, feed.EngineOptions{}, nil)
	s.alert = func([]engine.CourseMargin) (bool, error) {
		t.Error("alert called with notifications disabled")
		return false, nil
	}
	if _, err := s.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
}
