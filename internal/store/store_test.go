package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/christopherklint97/attendr/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestState(t *testing.T) {
	db := openTestDB(t)

	v, err := db.GetState("last_refresh")
	if err != nil || v != "" {
		t.Fatalf("GetState on empty = %q, %v", v, err)
	}
	if err := db.SetState("last_refresh", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState("last_refresh", "b"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetState("last_refresh"); v != "b" {
		t.Errorf("GetState = %q, want b", v)
	}
}

func TestSnapshots(t *testing.T) {
	db := openTestDB(t)

	s, err := db.GetSnapshot("calendar")
	if err != nil || s != nil {
		t.Fatalf("GetSnapshot on empty = %v, %v", s, err)
	}

	at := time.Date(2026, time.October, 15, 8, 30, 0, 0, time.UTC)
	if err := db.SaveSnapshot("calendar", []byte(`{"a":1}`), at); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSnapshot("calendar", []byte(`{"a":2}`), at.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	s, err = db.GetSnapshot("calendar")
	if err != nil {
		t.Fatal(err)
	}
	if string(s.Body) != `{"a":2}` || !s.FetchedAt.Equal(at.Add(time.Hour)) {
		t.Errorf("snapshot = %s at %v", s.Body, s.FetchedAt)
	}
}

func TestPredictions_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	older := &store.Prediction{
		Start:     time.Date(2026, time.October, 13, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC),
		Batch:     "1",
		DayOrders: []int{4, 5, 1, 2},
		CreatedAt: time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC),
		Forecasts: []store.Forecast{
			{CourseCode: "B1", CourseTitle: "Data Structures", Category: "Theory", Missed: 2, OriginalPct: 87.5, PredictedPct: 83.3, MarginKind: "safe", MarginHours: 4},
			{CourseCode: "A1", CourseTitle: "Transforms", Category: "Theory", Missed: 1, OriginalPct: 60, PredictedPct: 57.1, MarginKind: "required", MarginHours: 15},
		},
	}
	newer := &store.Prediction{
		Start:     time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC),
		Batch:     "2",
		CreatedAt: time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC),
	}

	for _, p := range []*store.Prediction{older, newer} {
		id, err := db.InsertPrediction(p)
		if err != nil {
			t.Fatalf("InsertPrediction: %v", err)
		}
		if id == "" || p.ID != id {
			t.Errorf("expected ID to be set, got %q / %q", id, p.ID)
		}
	}

	preds, err := db.RecentPredictions(10)
	if err != nil {
		t.Fatalf("RecentPredictions: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("got %d predictions", len(preds))
	}
	if preds[0].ID != newer.ID {
		t.Error("expected newest prediction first")
	}
	if len(preds[0].DayOrders) != 0 || len(preds[0].Forecasts) != 0 {
		t.Errorf("empty prediction came back as %+v", preds[0])
	}

	got := preds[1]
	if !got.Start.Equal(older.Start) || !got.End.Equal(older.End) || got.Batch != "1" {
		t.Errorf("prediction header = %+v", got)
	}
	if len(got.DayOrders) != 4 || got.DayOrders[0] != 4 || got.DayOrders[3] != 2 {
		t.Errorf("DayOrders = %v", got.DayOrders)
	}
	if len(got.Forecasts) != 2 || got.Forecasts[0].CourseCode != "B1" || got.Forecasts[1].MarginHours != 15 {
		t.Errorf("Forecasts = %+v", got.Forecasts)
	}

	limited, err := db.RecentPredictions(1)
	if err != nil || len(limited) != 1 {
		t.Errorf("RecentPredictions(1) = %d, %v", len(limited), err)
	}
}
