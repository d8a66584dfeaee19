package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Timezone      string           `toml:"timezone"`
	Feeds         FeedsConfig      `toml:"feeds"`
	Timetable     TimetableConfig  `toml:"timetable"`
	Attendance    AttendanceConfig `toml:"attendance"`
	Schedule      ScheduleConfig   `toml:"schedule"`
	Notifications NotifyConfig     `toml:"notifications"`
}

// FeedsConfig holds the source of each external feed: an http(s) URL or a
// file path.
type FeedsConfig struct {
	Calendar     string `toml:"calendar"`
	Timetable    string `toml:"timetable"`
	Attendance   string `toml:"attendance"`
	Grades       string `toml:"grades"`
	HolidaysICS  string `toml:"holidays_ics"`
	ICSType      string `toml:"ics_type"` // event type for ICS entries without a known CATEGORIES value
	Token        string `toml:"token"`
	CacheMinutes int    `toml:"cache_minutes"`
}

type TimetableConfig struct {
	Batch      string `toml:"batch"` // overrides the timetable feed's batch when set
	MatrixFile string `toml:"matrix_file"`
}

type AttendanceConfig struct {
	Threshold float64 `toml:"threshold"`
}

type ScheduleConfig struct {
	IntervalMinutes int    `toml:"interval_minutes"`
	WorkStart       string `toml:"work_start"`
	WorkEnd         string `toml:"work_end"`
	WorkDays        []int  `toml:"work_days"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		Timezone: "Asia/Kolkata",
		Feeds: FeedsConfig{
			ICSType:      "holiday",
			CacheMinutes: 30,
		},
		Attendance: AttendanceConfig{
			Threshold: 0.75,
		},
		Schedule: ScheduleConfig{
			IntervalMinutes: 180,
			WorkStart:       "08:00",
			WorkEnd:         "18:00",
			WorkDays:        []int{1, 2, 3, 4, 5},
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "attendr"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file, then a .env file in the working directory if
// present, then ATTENDR_* environment overrides.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config path. A missing file yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATTENDR_CALENDAR_URL"); v != "" {
		cfg.Feeds.Calendar = v
	}
	if v := os.Getenv("ATTENDR_TIMETABLE_URL"); v != "" {
		cfg.Feeds.Timetable = v
	}
	if v := os.Getenv("ATTENDR_ATTENDANCE_URL"); v != "" {
		cfg.Feeds.Attendance = v
	}
	if v := os.Getenv("ATTENDR_GRADES_URL"); v != "" {
		cfg.Feeds.Grades = v
	}
	if v := os.Getenv("ATTENDR_HOLIDAYS_ICS"); v != "" {
		cfg.Feeds.HolidaysICS = v
	}
	if v := os.Getenv("ATTENDR_TOKEN"); v != "" {
		cfg.Feeds.Token = v
	}
	if v := os.Getenv("ATTENDR_BATCH"); v != "" {
		cfg.Timetable.Batch = v
	}
	if v := os.Getenv("ATTENDR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Attendance.Threshold = f
		}
	}
	if v := os.Getenv("ATTENDR_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
}

func (c *Config) Validate() error {
	if c.Attendance.Threshold <= 0 || c.Attendance.Threshold >= 1 {
		return fmt.Errorf("attendance.threshold must be between 0 and 1, got %v", c.Attendance.Threshold)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone; empty means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CacheTTL is how long fetched feed bodies are reused.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Feeds.CacheMinutes) * time.Minute
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DefaultFile renders the commented default config written by `attendr config`.
func DefaultFile() string {
	cfg := DefaultConfig()
	return fmt.Sprintf(`timezone = "%s"

[feeds]
# http(s) URL or file path for each feed
calendar = ""
timetable = ""
attendance = ""
grades = ""
holidays_ics = ""
ics_type = "%s"
token = ""
cache_minutes = %d

[timetable]
batch = ""
matrix_file = ""

[attendance]
threshold = %v

[schedule]
interval_minutes = %d
work_start = "%s"
work_end = "%s"
work_days = [1, 2, 3, 4, 5]

[notifications]
enabled = %t
`,
		cfg.Timezone,
		cfg.Feeds.ICSType,
		cfg.Feeds.CacheMinutes,
		cfg.Attendance.Threshold,
		cfg.Schedule.IntervalMinutes,
		cfg.Schedule.WorkStart,
		cfg.Schedule.WorkEnd,
		cfg.Notifications.Enabled,
	)
}
