package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/segyhp/rental-billing/internal/schedule"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Notify    NotifyConfig    `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	Host            string        `mapstructure:"DATABASE_HOST"`
	Port            string        `mapstructure:"DATABASE_PORT"`
	Name            string        `mapstructure:"DATABASE_NAME"`
	User            string        `mapstructure:"DATABASE_USER"`
	Password        string        `mapstructure:"DATABASE_PASSWORD"`
	SSLMode         string        `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

// DSN returns DATABASE_URL when set, otherwise builds a postgres URL from the parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Host     string        `mapstructure:"REDIS_HOST"`
	Port     string        `mapstructure:"REDIS_PORT"`
	Password string        `mapstructure:"REDIS_PASSWORD"`
	DB       int           `mapstructure:"REDIS_DB"`
	CacheTTL time.Duration `mapstructure:"SCHEDULE_CACHE_TTL"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type SchedulerConfig struct {
	OverdueCron  string        `mapstructure:"SCHEDULER_OVERDUE_CRON"`
	ReminderCron string        `mapstructure:"SCHEDULER_REMINDER_CRON"`
	Timezone     string        `mapstructure:"SCHEDULER_TIMEZONE"`
	LockTTL      time.Duration `mapstructure:"SCHEDULER_LOCK_TTL"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	DueDatePolicy      string `mapstructure:"DEFAULT_DUE_DATE_POLICY"`
	IncludeDeposit     bool   `mapstructure:"DEFAULT_INCLUDE_DEPOSIT"`
	ReminderWindowDays int    `mapstructure:"REMINDER_WINDOW_DAYS"`
}

type NotifyConfig struct {
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	From         string `mapstructure:"NOTIFY_FROM"`
	To           string `mapstructure:"NOTIFY_TO"`
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (n NotifyConfig) Enabled() bool {
	return n.SMTPHost != "" && n.From != "" && n.To != ""
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]any{
	"SERVER_PORT":                "8080",
	"SERVER_HOST":                "0.0.0.0",
	"ENV":                        "development",
	"SERVER_READ_TIMEOUT":        "15s",
	"SERVER_WRITE_TIMEOUT":       "15s",
	"DATABASE_URL":               "",
	"DATABASE_HOST":              "localhost",
	"DATABASE_PORT":              "5432",
	"DATABASE_NAME":              "rental_billing",
	"DATABASE_USER":              "postgres",
	"DATABASE_PASSWORD":          "",
	"DATABASE_SSLMODE":           "disable",
	"DATABASE_MAX_OPEN_CONNS":    25,
	"DATABASE_MAX_IDLE_CONNS":    5,
	"DATABASE_CONN_MAX_LIFETIME": "5m",
	"REDIS_HOST":                 "localhost",
	"REDIS_PORT":                 "6379",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"SCHEDULE_CACHE_TTL":         "10m",
	"SCHEDULER_OVERDUE_CRON":     "0 0 0 * * *",
	"SCHEDULER_REMINDER_CRON":    "0 0 9 * * SUN",
	"SCHEDULER_TIMEZONE":         "Asia/Jakarta",
	"SCHEDULER_LOCK_TTL":         "30m",
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
	"DEFAULT_DUE_DATE_POLICY":    string(schedule.DueFirstDay),
	"DEFAULT_INCLUDE_DEPOSIT":    true,
	"REMINDER_WINDOW_DAYS":       3,
	"SMTP_HOST":                  "",
	"SMTP_PORT":                  "587",
	"SMTP_USERNAME":              "",
	"SMTP_PASSWORD":              "",
	"NOTIFY_FROM":                "",
	"NOTIFY_TO":                  "",
	"HEALTH_CHECK_TIMEOUT":       "5s",
}

// Load reads configuration from environment variables and optional .env files
func Load() (*Config, error) {
	// .env files are optional; real environment variables win over them
	_ = godotenv.Load(".env")
	_ = godotenv.Load("deployments/.env")

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("DATABASE_URL or DATABASE_HOST is required")
	}

	if _, err := schedule.ParseDueDatePolicy(c.Business.DueDatePolicy); err != nil {
		return fmt.Errorf("DEFAULT_DUE_DATE_POLICY: %w", err)
	}

	if c.Business.ReminderWindowDays <= 0 {
		return fmt.Errorf("REMINDER_WINDOW_DAYS must be greater than 0")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Scheduler.OverdueCron); err != nil {
		return fmt.Errorf("SCHEDULER_OVERDUE_CRON must be a valid cron spec: %w", err)
	}
	if _, err := parser.Parse(c.Scheduler.ReminderCron); err != nil {
		return fmt.Errorf("SCHEDULER_REMINDER_CRON must be a valid cron spec: %w", err)
	}

	if c.Scheduler.LockTTL <= 0 {
		return fmt.Errorf("SCHEDULER_LOCK_TTL must be a positive duration")
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a positive duration")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Location returns the scheduler timezone, used to decide what "today" is.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DueDatePolicy returns the default rent due-date policy.
func (c *Config) DueDatePolicy() schedule.DueDatePolicy {
	p, _ := schedule.ParseDueDatePolicy(c.Business.DueDatePolicy)
	return p
}
