package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds every value the tool reads from the environment. It is built
// once at process start and passed by reference into each component.
type Config struct {
	RazorpayKeyID     string
	RazorpayKeySecret string

	SheetID            string
	ServiceAccountFile string
	MainTab            string
	ReportTab          string

	EmailProvider string
	SMTPServer    string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string

	MailgunDomain string
	MailgunAPIKey string

	SenderEmail     string
	SenderName      string
	ReportRecipient string

	ReferencePrefix string
	CSVPath         string

	Debug    bool
	LogLevel string
}

// ConfigError reports a credential or identifier that is required for the
// requested operation but absent from the environment.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// required values for any run; optional values get defaults below.
var requiredVars = []string{
	"RAZORPAY_KEY_ID",
	"RAZORPAY_KEY_SECRET",
	"GOOGLE_SHEET_ID",
}

// Load reads .env (if present) and the environment into a Config. It returns
// the names of missing required variables so the caller can warn exactly once;
// a partial Config is still returned because some commands (test-email) do not
// need the API pair.
func Load() (*Config, []string) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment variables from .env file")
	} else {
		log.Debug().Msg("No .env file found; using existing environment variables")
	}

	cfg := &Config{
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),

		SheetID:            os.Getenv("GOOGLE_SHEET_ID"),
		ServiceAccountFile: getEnvWithDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "service_account.json"),
		MainTab:            getEnvWithDefault("MAIN_TAB", "Payment Links"),
		ReportTab:          getEnvWithDefault("REPORT_TAB", "Partial Payments"),

		EmailProvider: strings.ToLower(getEnvWithDefault("EMAIL_PROVIDER", "mock")),
		SMTPServer:    os.Getenv("SMTP_SERVER"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),

		MailgunDomain: os.Getenv("MAILGUN_DOMAIN"),
		MailgunAPIKey: os.Getenv("MAILGUN_API_KEY"),

		SenderEmail:     os.Getenv("SENDER_EMAIL"),
		SenderName:      getEnvWithDefault("SENDER_NAME", "Payment Links Sync"),
		ReportRecipient: os.Getenv("REPORT_RECIPIENT"),

		ReferencePrefix: getEnvWithDefault("REFERENCE_PREFIX", "July"),
		CSVPath:         getEnvWithDefault("CSV_EXPORT_PATH", "partial_payments.csv"),

		Debug:    parseBool(os.Getenv("DEBUG")),
		LogLevel: os.Getenv("LOGLEVEL"),
	}

	var missing []string
	for _, name := range requiredVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return cfg, missing
}

// Require returns a ConfigError naming each of the given fields that is empty.
// Field names use the environment variable spelling so operators can fix the
// report directly.
func (c *Config) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if c.lookup(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

func (c *Config) lookup(name string) string {
	switch name {
	case "RAZORPAY_KEY_ID":
		return c.RazorpayKeyID
	case "RAZORPAY_KEY_SECRET":
		return c.RazorpayKeySecret
	case "GOOGLE_SHEET_ID":
		return c.SheetID
	case "SENDER_EMAIL":
		return c.SenderEmail
	case "REPORT_RECIPIENT":
		return c.ReportRecipient
	default:
		return os.Getenv(name)
	}
}

// MaskedKeyID renders the API key id safe for logs: first and last four
// characters only.
func (c *Config) MaskedKeyID() string {
	if len(c.RazorpayKeyID) > 8 {
		return c.RazorpayKeyID[:4] + "..." + c.RazorpayKeyID[len(c.RazorpayKeyID)-4:]
	}
	return "****"
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer in environment, using default")
		return defaultValue
	}
	return n
}
