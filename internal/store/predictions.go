package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type Prediction struct {
	ID        string
	Start     time.Time
	End       time.Time
	Batch     string
	DayOrders []int
	CreatedAt time.Time
	Forecasts []Forecast
}

type Forecast struct {
	CourseCode   string
	CourseTitle  string
	Category     string
	Missed       int
	OriginalPct  float64
	PredictedPct float64
	MarginKind   string
	MarginHours  int
}

// InsertPrediction stores p with a fresh ID and returns that ID.
func (db *DB) InsertPrediction(p *Prediction) (string, error) {
	id := uuid.NewString()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO predictions (id, start_date, end_date, batch, day_orders, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.Start.Format(dateLayout), p.End.Format(dateLayout), p.Batch,
		joinOrders(p.DayOrders), p.CreatedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return "", fmt.Errorf("inserting prediction: %w", err)
	}

	for i, f := range p.Forecasts {
		if _, err := tx.Exec(
			`INSERT INTO forecasts (prediction_id, position, course_code, course_title, category, missed, original_pct, predicted_pct, margin_kind, margin_hours)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, f.CourseCode, f.CourseTitle, f.Category, f.Missed,
			f.OriginalPct, f.PredictedPct, f.MarginKind, f.MarginHours,
		); err != nil {
			return "", fmt.Errorf("inserting forecast: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing prediction: %w", err)
	}
	p.ID = id
	return id, nil
}

// RecentPredictions returns up to limit predictions, newest first, with their
// forecasts in stored order.
func (db *DB) RecentPredictions(limit int) ([]Prediction, error) {
	rows, err := db.Query(
		`SELECT id, start_date, end_date, batch, day_orders, created_at
		 FROM predictions
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying predictions: %w", err)
	}

	var preds []Prediction
	for rows.Next() {
		var p Prediction
		var startStr, endStr, orders, createdStr string
		if err := rows.Scan(&p.ID, &startStr, &endStr, &p.Batch, &orders, &createdStr); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning prediction: %w", err)
		}
		if t, err := time.Parse(dateLayout, startStr); err == nil {
			p.Start = t
		}
		if t, err := time.Parse(dateLayout, endStr); err == nil {
			p.End = t
		}
		if t, err := time.Parse(time.RFC3339, createdStr); err == nil {
			p.CreatedAt = t
		}
		p.DayOrders = splitOrders(orders)
		preds = append(preds, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range preds {
		forecasts, err := db.forecasts(preds[i].ID)
		if err != nil {
			return nil, err
		}
		preds[i].Forecasts = forecasts
	}
	return preds, nil
}

func (db *DB) forecasts(predictionID string) ([]Forecast, error) {
	rows, err := db.Query(
		`SELECT course_code, course_title, category, missed, original_pct, predicted_pct, margin_kind, margin_hours
		 FROM forecasts
		 WHERE prediction_id = ?
		 ORDER BY position ASC`,
		predictionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying forecasts: %w", err)
	}
	defer rows.Close()

	var out []Forecast
	for rows.Next() {
		var f Forecast
		if err := rows.Scan(&f.CourseCode, &f.CourseTitle, &f.Category, &f.Missed,
			&f.OriginalPct, &f.PredictedPct, &f.MarginKind, &f.MarginHours); err != nil {
			return nil, fmt.Errorf("scanning forecast: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func joinOrders(orders []int) string {
	parts := make([]string, len(orders))
	for i, o := range orders {
		parts[i] = strconv.Itoa(o)
	}
	return strings.Join(parts, ",")
}

func splitOrders(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	for _, p := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}
