package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete collector configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
	Schedule ScheduleConfig `yaml:"schedule" envconfig:"SCHEDULE"`
	Browser  BrowserConfig  `yaml:"browser" envconfig:"BROWSER"`
	Portals  PortalsConfig  `yaml:"portals" envconfig:"PORTALS"`
	Agent    AgentConfig    `yaml:"agent" envconfig:"AGENT"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"` // console, file or both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// DatabaseConfig contains the indicator store connection parameters.
// Connections are opened per operation; these are parameters, not a pool.
type DatabaseConfig struct {
	Host           string        `yaml:"host" envconfig:"HOST"`
	Port           int           `yaml:"port" envconfig:"PORT"`
	User           string        `yaml:"user" envconfig:"USER"`
	Password       string        `yaml:"password" envconfig:"PASSWORD"`
	Name           string        `yaml:"name" envconfig:"NAME"`
	Table          string        `yaml:"table" envconfig:"TABLE"`
	AppName        string        `yaml:"app_name" envconfig:"APP_NAME"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT"`
	MaxRetries     int           `yaml:"max_retries" envconfig:"MAX_RETRIES"`
	RetryDelay     time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY"`
	// InMemory swaps the Postgres store for the in-process one. Development
	// and tests only.
	InMemory bool `yaml:"in_memory" envconfig:"IN_MEMORY"`
}

// ScheduleConfig contains the timed-job configuration.
type ScheduleConfig struct {
	// DailyAt is the wall-clock time (HH:MM) of the main collection batch.
	DailyAt string `yaml:"daily_at" envconfig:"DAILY_AT"`
	// DecisionAt is the wall-clock time of the decision-system batch.
	DecisionAt string `yaml:"decision_at" envconfig:"DECISION_AT"`
	// RefreshInterval is how often the store keep-alive ping runs between
	// batches. Zero disables the ping job.
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL"`
	// Timezone resolves the wall-clock times. Empty means the host zone.
	Timezone string `yaml:"timezone" envconfig:"TIMEZONE"`
}

// BrowserConfig controls the chromedp sessions the scrapers run in.
type BrowserConfig struct {
	Headless   bool          `yaml:"headless" envconfig:"HEADLESS"`
	RunTimeout time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
}

// PortalConfig identifies one scraped web portal.
type PortalConfig struct {
	URL      string `yaml:"url" envconfig:"URL"`
	Username string `yaml:"username" envconfig:"USERNAME"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	// ReportURL is a secondary report view some portals expose separately
	// from the main dashboard. Empty skips the view.
	ReportURL string `yaml:"report_url" envconfig:"REPORT_URL"`
}

// PortalsConfig lists the portals indicators are collected from.
type PortalsConfig struct {
	CallCenter   PortalConfig `yaml:"call_center" envconfig:"CALL_CENTER"`
	IM           PortalConfig `yaml:"im" envconfig:"IM"`
	OrderMonitor PortalConfig `yaml:"order_monitor" envconfig:"ORDER_MONITOR"`
	Intelligent  PortalConfig `yaml:"intelligent" envconfig:"INTELLIGENT"`
}

// AgentConfig points at the external answer-extraction agent used to pull
// OTP codes out of notification text during portal logins.
type AgentConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"BASE_URL"`
	APIKey  string        `yaml:"api_key" envconfig:"API_KEY"`
	User    string        `yaml:"user" envconfig:"USER"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// Load builds the configuration in three layers: defaults, then an optional
// config.yaml, then KPI_* environment variables. Environment wins.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("KPI", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile checks the conventional locations for a config file.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Validate checks the configuration for values the collector cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if _, err := ParseClockTime(c.Schedule.DailyAt); err != nil {
		return fmt.Errorf("invalid schedule.daily_at: %w", err)
	}
	if _, err := ParseClockTime(c.Schedule.DecisionAt); err != nil {
		return fmt.Errorf("invalid schedule.decision_at: %w", err)
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return fmt.Errorf("invalid schedule.timezone: %w", err)
		}
	}
	if !c.Database.InMemory {
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
	}
	if c.Database.MaxRetries <= 0 {
		return fmt.Errorf("database.max_retries must be positive")
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging.output: %q", c.Logging.Output)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required for output %q", c.Logging.Output)
	}
	return nil
}

// Location resolves the schedule timezone.
func (c *Config) Location() *time.Location {
	if c.Schedule.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	var ct ClockTime
	if _, err := fmt.Sscanf(s, "%d:%d", &ct.Hour, &ct.Minute); err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q out of range", s)
	}
	return ct, nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/collector.log",
		},
		Database: DatabaseConfig{
			Port:           5432,
			Name:           "postgres",
			Table:          "central_indicator_monitor_data",
			AppName:        "DataCollector",
			ConnectTimeout: 10 * time.Second,
			MaxRetries:     3,
			RetryDelay:     time.Second,
		},
		Schedule: ScheduleConfig{
			DailyAt:         "08:10",
			DecisionAt:      "15:10",
			RefreshInterval: 10 * time.Minute,
		},
		Browser: BrowserConfig{
			Headless:   true,
			RunTimeout: 30 * time.Minute,
		},
		Agent: AgentConfig{
			User:    "admin",
			Timeout: 30 * time.Second,
		},
	}
}
