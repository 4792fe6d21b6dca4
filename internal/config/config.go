package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Email providers.
const (
	ProviderResend = "resend"
	ProviderSES    = "ses"
	ProviderNoop   = "noop"
)

// Directory drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the process configuration, built once at startup.
// INVARIANT: read-only after Load returns.
type Config struct {
	Env  string
	Addr string

	LogLevel  string
	LogFormat string

	EmailProvider    string
	ResendKey        string
	SESRegion        string
	SESConfiguration string
	Sender           string
	Bcc              string
	BccOptional      bool

	AltchaURL    string
	AltchaAPIKey string

	DirectoryDriver string
	DBPath          string
	PostgresDSN     string

	AllowedOrigins []string
	RateLimit      int
	TrustProxy     bool

	SlowRequest    time.Duration
	SlowQuery      time.Duration
	PerfReportEach time.Duration
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment.
// A .env file in the working directory is loaded first without overriding
// variables that are already set.
// PRE: none
// POST: Returns a Config with defaults applied, or an error for unparsable values
func Load() (Config, error) {
	_ = godotenv.Load()

	var errs []error
	c := Config{
		Env:  envOrDefault("CONTACT_ENV", "development"),
		Addr: envOrDefault("CONTACT_ADDR", ":8080"),

		LogLevel:  envOrDefault("CONTACT_LOG_LEVEL", "info"),
		LogFormat: envOrDefault("CONTACT_LOG_FORMAT", "json"),

		EmailProvider:    strings.ToLower(envOrDefault("CONTACT_EMAIL_PROVIDER", ProviderResend)),
		ResendKey:        os.Getenv("CONTACT_RESEND_KEY"),
		SESRegion:        os.Getenv("CONTACT_SES_REGION"),
		SESConfiguration: os.Getenv("CONTACT_SES_CONFIGURATION_SET"),
		Sender:           strings.TrimSpace(os.Getenv("CONTACT_EMAIL_SENDER")),
		Bcc:              strings.TrimSpace(os.Getenv("CONTACT_EMAIL_BCC")),
		BccOptional:      envBool("CONTACT_BCC_OPTIONAL", false, &errs),

		AltchaURL:    strings.TrimSpace(os.Getenv("CONTACT_ALTCHA_URL")),
		AltchaAPIKey: strings.TrimSpace(os.Getenv("CONTACT_ALTCHA_API_KEY")),

		DirectoryDriver: strings.ToLower(envOrDefault("CONTACT_DIRECTORY_DRIVER", DriverSQLite)),
		DBPath:          envOrDefault("CONTACT_DB_PATH", "contactform.db"),
		PostgresDSN:     os.Getenv("CONTACT_POSTGRES_DSN"),

		AllowedOrigins: splitList(envOrDefault("CONTACT_ALLOWED_ORIGINS", "*")),
		RateLimit:      envInt("CONTACT_RATE_LIMIT", 10, &errs),
		TrustProxy:     envBool("CONTACT_TRUST_PROXY", false, &errs),

		SlowRequest:    envMillis("CONTACT_SLOW_REQUEST_MS", 200, &errs),
		SlowQuery:      envMillis("CONTACT_SLOW_QUERY_MS", 50, &errs),
		PerfReportEach: envDuration("CONTACT_PERF_REPORT_INTERVAL", 5*time.Minute, &errs),
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return c, nil
}

// Validate checks that every setting needed to serve traffic is present.
// PRE: c was built by Load
// POST: Returns nil, or one joined error naming every problem
func (c Config) Validate() error {
	var errs []error
	require := func(name, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	require("CONTACT_EMAIL_SENDER", c.Sender)
	require("CONTACT_ALTCHA_URL", c.AltchaURL)
	require("CONTACT_ALTCHA_API_KEY", c.AltchaAPIKey)
	if !c.BccOptional {
		require("CONTACT_EMAIL_BCC", c.Bcc)
	}

	switch c.EmailProvider {
	case ProviderResend:
		require("CONTACT_RESEND_KEY", c.ResendKey)
	case ProviderSES:
		require("CONTACT_SES_REGION", c.SESRegion)
	case ProviderNoop:
		if c.IsProduction() {
			errs = append(errs, errors.New("CONTACT_EMAIL_PROVIDER=noop is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("CONTACT_EMAIL_PROVIDER must be one of resend, ses, noop (got %q)", c.EmailProvider))
	}

	switch c.DirectoryDriver {
	case DriverSQLite:
		require("CONTACT_DB_PATH", c.DBPath)
	case DriverPostgres:
		require("CONTACT_POSTGRES_DSN", c.PostgresDSN)
	default:
		errs = append(errs, fmt.Errorf("CONTACT_DIRECTORY_DRIVER must be sqlite or postgres (got %q)", c.DirectoryDriver))
	}

	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("CONTACT_RATE_LIMIT must be positive"))
	}
	if c.PerfReportEach <= 0 {
		errs = append(errs, errors.New("CONTACT_PERF_REPORT_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func envBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func envMillis(key string, fallback int, errs *[]error) time.Duration {
	return time.Duration(envInt(key, fallback, errs)) * time.Millisecond
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
