package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/attendr/internal/calendar"
	"github.com/christopherklint97/attendr/internal/config"
	"github.com/christopherklint97/attendr/internal/engine"
	"github.com/christopherklint97/attendr/internal/feed"
	"github.com/christopherklint97/attendr/internal/notify"
	"github.com/christopherklint97/attendr/internal/scheduler"
	"github.com/christopherklint97/attendr/internal/store"
	"github.com/christopherklint97/attendr/internal/timetable"
	"github.com/christopherklint97/attendr/internal/tui"
)

var (
	flagVerbose bool
	flagOffline bool
)

var rootCmd = &cobra.Command{
	Use:          "attendr",
	Short:        "Day-order sequencer and attendance predictor",
	Long:         "attendr works out the day order of any date from the academic calendar, resolves the timetable for it, and predicts how a planned leave affects attendance.",
	SilenceUsage: true,
}

var dayOrderCmd = &cobra.Command{
	Use:   "dayorder [date]",
	Short: "Show the day order of a date (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDayOrder,
}

var eventsCmd = &cobra.Command{
	Use:   "events [date]",
	Short: "List calendar events on a date",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEvents,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar [YYYY-MM]",
	Short: "Show every day of a month with its day order and events",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCalendar,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [date]",
	Short: "Show the timetable for a date",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchedule,
}

var marginsCmd = &cobra.Command{
	Use:   "margins",
	Short: "Show attendance and skip margin per course",
	RunE:  runMargins,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict attendance after missing every class in a date range",
	RunE:  runPredict,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved predictions",
	RunE:  runHistory,
}

var gpaCmd = &cobra.Command{
	Use:   "gpa",
	Short: "Show GPA per semester and CGPA",
	RunE:  runGPA,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch every feed and cache it locally",
	RunE:  runRefresh,
}

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Send a desktop notification for courses below threshold",
	RunE:  runAlert,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically refresh feeds and alert on at-risk courses",
	RunE:  runWatch,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running watch",
	RunE:  runStop,
}

var schemaCmd = &cobra.Command{
	Use:       "schema <kind>",
	Short:     "Print the JSON Schema of a feed",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"calendar", "timetable", "attendance", "grades"},
	RunE:      runSchema,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "Use cached feed snapshots only")

	predictCmd.Flags().String("from", "", "First day of leave (YYYY-MM-DD, D_M_YYYY or a phrase like \"next monday\")")
	predictCmd.Flags().String("to", "", "Last day of leave (defaults to --from)")
	predictCmd.Flags().BoolP("interactive", "i", false, "Pick the range in an interactive form")
	predictCmd.Flags().Bool("no-save", false, "Do not save the prediction to history")

	historyCmd.Flags().IntP("limit", "n", 10, "Number of predictions to show")

	rootCmd.AddCommand(dayOrderCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(marginsCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(gpaCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(alertCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// session bundles what every feed-backed command needs.
type session struct {
	cfg    *config.Config
	loc    *time.Location
	logger *slog.Logger
	db     *store.DB
	loader *feed.Loader
}

func openSession() (*session, error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := store.Open()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	icsType, ok := calendar.ParseEventType(cfg.Feeds.ICSType)
	if !ok {
		icsType = calendar.TypeHoliday
	}
	sources := feed.Sources{
		Calendar:    cfg.Feeds.Calendar,
		Timetable:   cfg.Feeds.Timetable,
		Attendance:  cfg.Feeds.Attendance,
		Grades:      cfg.Feeds.Grades,
		HolidaysICS: cfg.Feeds.HolidaysICS,
		ICSType:     icsType,
	}
	client := feed.NewClient(cfg.Feeds.Token, cfg.CacheTTL(), logger)

	return &session{
		cfg:    cfg,
		loc:    loc,
		logger: logger,
		db:     db,
		loader: feed.NewLoader(client, db, sources, flagOffline, logger),
	}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

func (s *session) now() time.Time {
	return time.Now().In(s.loc)
}

func (s *session) engineOptions() (feed.EngineOptions, error) {
	opts := feed.EngineOptions{
		Batch:     s.cfg.Timetable.Batch,
		Threshold: s.cfg.Attendance.Threshold,
		Location:  s.loc,
	}
	if s.cfg.Timetable.MatrixFile != "" {
		m, err := timetable.LoadMatrix(s.cfg.Timetable.MatrixFile)
		if err != nil {
			return opts, err
		}
		opts.Matrix = m
	}
	return opts, nil
}

func (s *session) engine(ctx context.Context) (*engine.Engine, error) {
	opts, err := s.engineOptions()
	if err != nil {
		return nil, err
	}
	bundle, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(bundle.Inputs(opts), s.logger)
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}
	return eng, nil
}

func (s *session) dateArg(args []string) (time.Time, error) {
	if len(args) == 0 {
		return calendar.Day(s.now()), nil
	}
	return calendar.ParseDate(args[0], s.now())
}

// withEngine opens a session, builds the engine and hands both to fn.
func withEngine(cmd *cobra.Command, fn func(s *session, eng *engine.Engine) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	eng, err := s.engine(cmd.Context())
	if err != nil {
		return err
	}
	return fn(s, eng)
}

func runDayOrder(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(s *session, eng *engine.Engine) error {
		date, err := s.dateArg(args)
		if err != nil {
			return err
		}
		order, ok := eng.ComputeDayOrder(date)
		fmt.Print(tui.RenderDay(date, order, ok, eng.EventsForDate(date)))
		return nil
	})
}

func runEvents(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(s *session, eng *engine.Engine) error {
		date, err := s.dateArg(args)
		if err != nil {
			return err
		}
		fmt.Println(date.Format("Mon 2 Jan 2006"))
		fmt.Print(tui.RenderEvents(eng.EventsForDate(date)))
		return nil
	})
}

func runCalendar(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(s *session, eng *engine.Engine) error {
		var arg string
		if len(args) > 0 {
			arg = args[0]
		}
		year, month, err := calendar.ParseMonth(arg, s.now())
		if err != nil {
			return err
		}
		fmt.Print(tui.RenderMonth(eng, year, month))
		return nil
	})
}

func runSchedule(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(s *session, eng *engine.Engine) error {
		date, err := s.dateArg(args)
		if err != nil {
			return err
		}
		periods, order, err := eng.Schedule(date)
		if err != nil {
			return err
		}
		if periods == nil {
			fmt.Printf("No classes on %s.\n", date.Format("Mon 2 Jan 2006"))
			fmt.Print(tui.RenderEvents(eng.EventsForDate(date)))
			return nil
		}
		fmt.Print(tui.RenderSchedule(date, order, periods))
		return nil
	})
}

func runMargins(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(s *session, eng *engine.Engine) error {
		fmt.Print(tui.RenderMargins(eng.Margins(), eng.Threshold()))
		return nil
	})
}

func runPredict(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	interactive, _ := cmd.Flags().GetBool("interactive")
	noSave, _ := cmd.Flags().GetBool("no-save")

	return withEngine(cmd, func(s *session, eng *engine.Engine) error {
		var preds []*engine.Prediction

		if interactive {
			app := tui.NewPredictApp(eng, s.now(), from, to)
			if _, err := tea.NewProgram(app).Run(); err != nil {
				return fmt.Errorf("running TUI: %w", err)
			}
			preds = app.Results()
		} else {
			if from == "" {
				return fmt.Errorf("--from is required (or use --interactive)")
			}
			if to == "" {
				to = from
			}
			start, err := calendar.ParseDate(from, s.now())
			if err != nil {
				return err
			}
			end, err := calendar.ParseDate(to, s.now())
			if err != nil {
				return err
			}
			p, err := eng.PredictRange(start, end)
			if err != nil {
				return err
			}
			fmt.Print(tui.RenderPrediction(p))
			preds = append(preds, p)
		}

		if noSave {
			return nil
		}
		for _, p := range preds {
			if _, err := s.db.InsertPrediction(toRecord(p, eng.Batch())); err != nil {
				return fmt.Errorf("saving prediction: %w", err)
			}
		}
		return nil
	})
}

func toRecord(p *engine.Prediction, batch string) *store.Prediction {
	rec := &store.Prediction{
		Start:     p.Start,
		End:       p.End,
		Batch:     batch,
		DayOrders: p.DayOrders,
	}
	for _, f := range p.Forecasts {
		rec.Forecasts = append(rec.Forecasts, store.Forecast{
			CourseCode:   f.Course.Code,
			CourseTitle:  f.Course.Title,
			Category:     string(f.Course.Category),
			Missed:       f.Missed,
			OriginalPct:  f.OriginalPercentage,
			PredictedPct: f.PredictedPercentage,
			MarginKind:   f.Margin.Kind.String(),
			MarginHours:  f.Margin.Hours,
		})
	}
	return rec
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	preds, err := db.RecentPredictions(limit)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}
	fmt.Print(tui.RenderHistory(preds))
	return nil
}

func runGPA(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	semesters, err := s.loader.LoadGrades(cmd.Context())
	if err != nil {
		return err
	}
	out, err := tui.RenderGrades(semesters)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	if flagOffline {
		return fmt.Errorf("refresh needs network access; drop --offline")
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	refreshed, err := s.loader.Refresh(cmd.Context())
	for _, kind := range refreshed {
		fmt.Printf("  refreshed %s\n", kind)
	}
	if len(refreshed) > 0 {
		if serr := s.db.SetState("last_refresh", time.Now().UTC().Format(time.RFC3339)); serr != nil {
			s.logger.Warn("failed to record refresh time", "error", serr)
		}
	}
	if err != nil {
		return fmt.Errorf("refreshing feeds: %w", err)
	}
	if len(refreshed) == 0 {
		fmt.Println("No feeds configured. Run 'attendr config' to set them up.")
	}
	return nil
}

func runAlert(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(s *session, eng *engine.Engine) error {
		atRisk := eng.AtRisk()
		if len(atRisk) == 0 {
			fmt.Println("All courses at or above threshold.")
			return nil
		}
		fmt.Println(notify.AtRiskMessage(atRisk))
		if !s.cfg.Notifications.Enabled {
			return nil
		}
		if _, err := notify.AlertAtRisk(atRisk); err != nil {
			s.logger.Warn("notification failed", "error", err)
		}
		return nil
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	opts, err := s.engineOptions()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return scheduler.New(s.cfg, s.loader, s.db, opts, s.logger).Run(ctx)
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := scheduler.ReadPID()
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to attendr watch (PID %d)\n", pid)
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	data, err := feed.Schema(feed.Kind(strings.ToLower(args[0])))
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(config.DefaultFile()), 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Start(); err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	return editorCmd.Wait()
}
