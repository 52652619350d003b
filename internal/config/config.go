package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Lending
		Notifications
		SMTP
		Scheduler
		Tasks
		Audit
		Log
		CORS
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Auth struct {
		AccessTokenSecret  string
		RefreshTokenSecret string
		AccessTokenTTL     time.Duration
		RefreshTokenTTL    time.Duration
		BcryptCost         int
		SecureCookies      bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Lending struct {
		PreventDuplicateOpen bool // Reject a second open lending for the same reader and book
	}
	Notifications struct {
		OverdueThresholdDays int           // Days past due before a reminder is sent (default: 15)
		Cooldown             time.Duration // Minimum gap between reminders for one lending (default: 168h)
		Workers              int
		RetentionDays        int // Days to keep notification records (default: 180)
	}
	SMTP struct {
		Host        string
		Port        int
		Username    string
		Password    string
		From        string
		SendTimeout time.Duration
	}
	Scheduler struct {
		OverdueEnabled    bool
		OverdueSchedule   string // Cron format: "0 * * * *" = hourly
		RetentionEnabled  bool
		RetentionSchedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Log struct {
		Level  string
		Format string // "json" or "console"
	}
	CORS struct {
		ClientOrigin string
	}
)

// MinSecretLength is the shortest accepted JWT signing secret, in bytes.
const MinSecretLength = 32

// Configured reports whether enough SMTP settings are present to send mail.
func (s SMTP) Configured() bool {
	return s.Host != "" && s.From != ""
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_access_token_secret", "")
	v.SetDefault("auth_refresh_token_secret", "")
	v.SetDefault("auth_access_token_ttl", "15m")
	v.SetDefault("auth_refresh_token_ttl", "168h") // 7 days
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	v.SetDefault("lending_prevent_duplicate_open", false)

	// Notification defaults
	v.SetDefault("notifications_overdue_threshold_days", DefaultOverdueThresholdDays)
	v.SetDefault("notifications_cooldown", "168h")
	v.SetDefault("notifications_workers", 4)
	v.SetDefault("notifications_retention_days", 180)

	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("smtp_from", "")
	v.SetDefault("smtp_send_timeout", "30s")

	v.SetDefault("scheduler_overdue_enabled", true)
	v.SetDefault("scheduler_overdue_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("scheduler_retention_enabled", true)
	v.SetDefault("scheduler_retention_schedule", "30 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("client_origin", "http://localhost:5173")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			AccessTokenSecret:  v.GetString("AUTH_ACCESS_TOKEN_SECRET"),
			RefreshTokenSecret: v.GetString("AUTH_REFRESH_TOKEN_SECRET"),
			AccessTokenTTL:     v.GetDuration("AUTH_ACCESS_TOKEN_TTL"),
			RefreshTokenTTL:    v.GetDuration("AUTH_REFRESH_TOKEN_TTL"),
			BcryptCost:         v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:      v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts:   v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:    v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:    v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Lending: Lending{
			PreventDuplicateOpen: v.GetBool("LENDING_PREVENT_DUPLICATE_OPEN"),
		},
		Notifications: Notifications{
			OverdueThresholdDays: v.GetInt("NOTIFICATIONS_OVERDUE_THRESHOLD_DAYS"),
			Cooldown:             v.GetDuration("NOTIFICATIONS_COOLDOWN"),
			Workers:              v.GetInt("NOTIFICATIONS_WORKERS"),
			RetentionDays:        v.GetInt("NOTIFICATIONS_RETENTION_DAYS"),
		},
		SMTP: SMTP{
			Host:        v.GetString("SMTP_HOST"),
			Port:        v.GetInt("SMTP_PORT"),
			Username:    v.GetString("SMTP_USERNAME"),
			Password:    v.GetString("SMTP_PASSWORD"),
			From:        v.GetString("SMTP_FROM"),
			SendTimeout: v.GetDuration("SMTP_SEND_TIMEOUT"),
		},
		Scheduler: Scheduler{
			OverdueEnabled:    v.GetBool("SCHEDULER_OVERDUE_ENABLED"),
			OverdueSchedule:   v.GetString("SCHEDULER_OVERDUE_SCHEDULE"),
			RetentionEnabled:  v.GetBool("SCHEDULER_RETENTION_ENABLED"),
			RetentionSchedule: v.GetString("SCHEDULER_RETENTION_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		CORS: CORS{
			ClientOrigin: v.GetString("CLIENT_ORIGIN"),
		},
	}
}

// Validate checks the settings the server cannot run without.
// Token secrets have no fallback: an unset secret stops startup.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.AccessTokenSecret == "" {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_SECRET is required"))
	} else if len(c.Auth.AccessTokenSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_ACCESS_TOKEN_SECRET must be at least %d bytes", MinSecretLength))
	}
	if c.Auth.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("AUTH_REFRESH_TOKEN_SECRET is required"))
	} else if len(c.Auth.RefreshTokenSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_REFRESH_TOKEN_SECRET must be at least %d bytes", MinSecretLength))
	}
	if c.Auth.AccessTokenSecret != "" && c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		errs = append(errs, errors.New("access and refresh token secrets must differ"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}

	if c.Notifications.OverdueThresholdDays < 0 {
		errs = append(errs, errors.New("NOTIFICATIONS_OVERDUE_THRESHOLD_DAYS must not be negative"))
	}
	if c.Notifications.Cooldown <= 0 {
		errs = append(errs, errors.New("NOTIFICATIONS_COOLDOWN must be positive"))
	}
	if c.Notifications.Workers < 0 {
		errs = append(errs, errors.New("NOTIFICATIONS_WORKERS must not be negative"))
	}
	if retention := time.Duration(c.Notifications.RetentionDays) * 24 * time.Hour; retention < c.Notifications.Cooldown {
		errs = append(errs, fmt.Errorf("NOTIFICATIONS_RETENTION_DAYS (%d) must cover NOTIFICATIONS_COOLDOWN (%s)",
			c.Notifications.RetentionDays, c.Notifications.Cooldown))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unsupported LOG_FORMAT %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
