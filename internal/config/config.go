package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	applog "flowerbot/internal/log"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	// Telegram rejects messages longer than this.
	telegramMessageLimit = 4096
)

type Config struct {
	// Telegram
	TelegramBotToken string
	Mode             string
	WebhookURL       string

	// HTTP Server (webhook mode)
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Reports
	LedgerTimezone   string
	ReportChatID     string
	ReportSchedule   string
	MessageChunkSize int

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		Mode:             strings.ToLower(getEnv("MODE", ModePolling)),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		Port: getEnv("PORT", "8080"),

		DataBackend:  getEnv("DATA_BACKEND", "sheets"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/flowerbot.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "flowerbot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_transactions"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		LedgerTimezone:   getEnv("LEDGER_TIMEZONE", ""),
		ReportChatID:     getEnv("REPORT_CHAT_ID", ""),
		ReportSchedule:   getEnv("REPORT_SCHEDULE", "0 21 * * *"),
		MessageChunkSize: getEnvInt("MESSAGE_CHUNK_SIZE", 4000),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate checks the configuration of the bot process.
func (c *Config) Validate() error {
	errs := c.validateCommon()

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	switch c.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.WebhookURL == "" {
			errs = append(errs, "WEBHOOK_URL is required in webhook mode")
		} else if u, err := url.Parse(c.WebhookURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid webhook URL '%s': must be an absolute http(s) URL", c.WebhookURL))
		}
		if port, err := strconv.Atoi(c.Port); err != nil {
			errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
		} else if port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid mode '%s': must be one of [%s %s]", c.Mode, ModePolling, ModeWebhook))
	}

	validBackends := []string{"memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.DataBackend == "sheets" {
		errs = append(errs, c.validateSheets()...)
	}

	if c.MessageChunkSize < 1 || c.MessageChunkSize > telegramMessageLimit {
		errs = append(errs, fmt.Sprintf("invalid message chunk size %d: must be between 1 and %d", c.MessageChunkSize, telegramMessageLimit))
	}

	if c.ReportChatID != "" {
		if _, err := strconv.ParseInt(c.ReportChatID, 10, 64); err != nil {
			errs = append(errs, fmt.Sprintf("invalid report chat id '%s': must be an integer", c.ReportChatID))
		}
		if _, err := cron.ParseStandard(c.ReportSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("invalid report schedule '%s': %v", c.ReportSchedule, err))
		}
	}

	return joinErrors(errs)
}

// ValidateWorker checks the configuration of the sync worker, which always
// needs SQLite, AMQP and Sheets but no Telegram settings.
func (c *Config) ValidateWorker() error {
	errs := c.validateCommon()
	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required by the worker")
	}
	errs = append(errs, c.validateSheets()...)

	if c.SyncBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	return joinErrors(errs)
}

func (c *Config) validateCommon() []string {
	var errs []string

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.LedgerTimezone != "" {
		if _, err := time.LoadLocation(c.LedgerTimezone); err != nil {
			errs = append(errs, fmt.Sprintf("invalid ledger timezone '%s': %v", c.LedgerTimezone, err))
		}
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level: %v", err))
	}
	return errs
}

func (c *Config) validateSheets() []string {
	var errs []string
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required when using sheets backend")
	}
	hasJSON := c.GoogleServiceAccountJSON != ""
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasJSON && !hasFile {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
	}
	if !hasJSON && hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errs
}

// Location returns the ledger time zone, or the process local zone when
// unset or unknown.
func (c *Config) Location() *time.Location {
	if c.LedgerTimezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.LedgerTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ReportChat returns the chat that receives scheduled reports.
func (c *Config) ReportChat() (int64, bool) {
	if c.ReportChatID == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(c.ReportChatID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
