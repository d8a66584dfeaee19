package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/christopherklint97/attendr/internal/config"
	"github.com/christopherklint97/attendr/internal/engine"
	"github.com/christopherklint97/attendr/internal/feed"
	"github.com/christopherklint97/attendr/internal/notify"
)

const (
	stateLastRefresh = "last_refresh"
	stateLastAlert   = "last_alert"
)

// StateStore keeps small values between ticks.
type StateStore interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
}

type Scheduler struct {
	cfg    *config.Config
	loader *feed.Loader
	state  StateStore
	opts   feed.EngineOptions
	logger *slog.Logger
	alert  func([]engine.CourseMargin) (bool, error)
	out    io.Writer
}

func New(cfg *config.Config, loader *feed.Loader, state StateStore, opts feed.EngineOptions, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		cfg:    cfg,
		loader: loader,
		state:  state,
		opts:   opts,
		logger: logger,
		alert:  notify.AlertAtRisk,
		out:    os.Stdout,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.writePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer s.removePID()

	interval := time.Duration(s.cfg.Schedule.IntervalMinutes) * time.Minute

	fmt.Fprintf(s.out, "Watching attendance (interval: %s, hours: %s-%s)\n",
		interval, s.cfg.Schedule.WorkStart, s.cfg.Schedule.WorkEnd)

	// Check once at startup.
	if s.isWorkTime(s.now()) {
		s.tick(ctx)
	}

	for {
		nextTick := s.nextAlignedTick(s.now(), interval)
		fmt.Fprintf(s.out, "Next check at %s\n", nextTick.Format("15:04"))

		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out, "\nWatch stopped.")
			return nil
		case <-time.After(time.Until(nextTick)):
		}

		if !s.isWorkTime(s.now()) {
			continue
		}

		s.tick(ctx)
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	atRisk, err := s.Check(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Error checking attendance: %v\n", err)
		return
	}
	if len(atRisk) == 0 {
		fmt.Fprintln(s.out, "All courses at or above threshold.")
		return
	}
	fmt.Fprintf(s.out, "%d course(s) below threshold.\n", len(atRisk))
}

// Check refreshes every feed, rebuilds the engine and alerts about courses
// below threshold. An unchanged at-risk list is not re-announced.
func (s *Scheduler) Check(ctx context.Context) ([]engine.CourseMargin, error) {
	refreshed, err := s.loader.Refresh(ctx)
	if err != nil {
		s.logger.Warn("some feeds failed to refresh", "error", err)
	}
	if len(refreshed) > 0 {
		if err := s.state.SetState(stateLastRefresh, s.now().UTC().Format(time.RFC3339)); err != nil {
			s.logger.Warn("failed to record refresh time", "error", err)
		}
	}

	bundle, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading feeds: %w", err)
	}
	eng, err := engine.New(bundle.Inputs(s.opts), s.logger)
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}

	atRisk := eng.AtRisk()
	key := alertKey(atRisk)
	last, err := s.state.GetState(stateLastAlert)
	if err != nil {
		return nil, err
	}
	if key == last {
		s.logger.Debug("at-risk courses unchanged, not alerting")
		return atRisk, nil
	}

	if s.cfg.Notifications.Enabled {
		if _, err := s.alert(atRisk); err != nil {
			s.logger.Warn("notification failed", "error", err)
		}
	}
	if err := s.state.SetState(stateLastAlert, key); err != nil {
		return nil, err
	}
	return atRisk, nil
}

func alertKey(courses []engine.CourseMargin) string {
	parts := make([]string, len(courses))
	for i, c := range courses {
		parts[i] = fmt.Sprintf("%s:%d", c.Course.Code, c.Margin.Hours)
	}
	return strings.Join(parts, ",")
}

func (s *Scheduler) now() time.Time {
	if s.opts.Location != nil {
		return time.Now().In(s.opts.Location)
	}
	return time.Now()
}

func (s *Scheduler) nextAlignedTick(now time.Time, interval time.Duration) time.Time {
	mins := int(interval.Minutes())
	if mins <= 0 {
		mins = 60
	}

	// Align to multiples of the interval counted from midnight.
	sinceMidnight := now.Hour()*60 + now.Minute()
	nextMinute := ((sinceMidnight / mins) + 1) * mins

	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return next.Add(time.Duration(nextMinute) * time.Minute)
}

func (s *Scheduler) isWorkTime(t time.Time) bool {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}

	isWorkDay := false
	for _, d := range s.cfg.Schedule.WorkDays {
		if d == weekday {
			isWorkDay = true
			break
		}
	}
	if !isWorkDay {
		return false
	}

	startH, startM := parseTime(s.cfg.Schedule.WorkStart, 8)
	endH, endM := parseTime(s.cfg.Schedule.WorkEnd, 18)

	nowMins := t.Hour()*60 + t.Minute()
	startMins := startH*60 + startM
	endMins := endH*60 + endM

	return nowMins >= startMins && nowMins <= endMins
}

func parseTime(s string, defaultHour int) (int, int) {
	if len(s) == 5 && s[2] == ':' {
		h, errH := strconv.Atoi(s[:2])
		m, errM := strconv.Atoi(s[3:])
		if errH == nil && errM == nil {
			return h, m
		}
	}
	return defaultHour, 0
}

func pidPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "attendr.pid"), nil
}

func (s *Scheduler) writePID() error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	path, err := pidPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (s *Scheduler) removePID() {
	if path, err := pidPath(); err == nil {
		os.Remove(path)
	}
}

func ReadPID() (int, error) {
	path, err := pidPath()
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running watch found")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}
