package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/livescore/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config stores runtime configuration for the service and the CLI.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	LogLevel           logging.Level
	LogFormat          string

	MetricsEnabled bool
	PprofEnabled   bool
	PprofAddr      string

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	FeedBaseURL               string
	FeedAPIKey                string
	FeedTimeout               time.Duration
	FeedMaxRetries            int
	FeedRetryBackoff          time.Duration
	FeedCircuitEnabled        bool
	FeedCircuitFailureCount   int
	FeedCircuitOpenTimeout    time.Duration
	FeedCircuitHalfOpenMaxReq int
	FeedConcurrency           int

	PollLiveInterval       time.Duration
	PollBreakInterval      time.Duration
	PollPreInningsInterval time.Duration
	PollUpcomingInterval   time.Duration
	PollCompleteInterval   time.Duration
	FetchTimeout           time.Duration
	SessionIdleTimeout     time.Duration
	ListingCacheTTL        time.Duration

	StreamWriteTimeout time.Duration
	StreamPingInterval time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "livescore-api"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		FeedBaseURL:        strings.TrimSpace(getEnv("FEED_BASE_URL", "")),
		FeedAPIKey:         strings.TrimSpace(getEnv("FEED_API_KEY", "")),
		PprofAddr:          strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
		PyroscopeAppName:   getEnv("PYROSCOPE_APP_NAME", "livescore-api"),
	}

	logFormatDefault := LogFormatJSON
	if appEnv == EnvDev {
		logFormatDefault = LogFormatConsole
	}
	cfg.LogFormat, err = parseLogFormat(getEnv("APP_LOG_FORMAT", logFormatDefault))
	if err != nil {
		return Config{}, err
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{key: "APP_READ_TIMEOUT", fallback: "10s", dst: &cfg.ReadTimeout},
		{key: "APP_WRITE_TIMEOUT", fallback: "15s", dst: &cfg.WriteTimeout},
		{key: "APP_SHUTDOWN_TIMEOUT", fallback: "10s", dst: &cfg.ShutdownTimeout},
		{key: "PYROSCOPE_UPLOAD_RATE", fallback: "15s", dst: &cfg.PyroscopeUploadRate},
		{key: "FEED_TIMEOUT", fallback: "5s", dst: &cfg.FeedTimeout},
		{key: "FEED_RETRY_BACKOFF", fallback: "250ms", dst: &cfg.FeedRetryBackoff},
		{key: "FEED_CIRCUIT_OPEN_TIMEOUT", fallback: "15s", dst: &cfg.FeedCircuitOpenTimeout},
		{key: "POLL_LIVE_INTERVAL", fallback: "1s", dst: &cfg.PollLiveInterval},
		{key: "POLL_BREAK_INTERVAL", fallback: "30s", dst: &cfg.PollBreakInterval},
		{key: "POLL_PRE_INNINGS_INTERVAL", fallback: "60s", dst: &cfg.PollPreInningsInterval},
		{key: "POLL_UPCOMING_INTERVAL", fallback: "60s", dst: &cfg.PollUpcomingInterval},
		{key: "POLL_COMPLETE_INTERVAL", fallback: "30s", dst: &cfg.PollCompleteInterval},
		{key: "FETCH_TIMEOUT", fallback: "5s", dst: &cfg.FetchTimeout},
		{key: "SESSION_IDLE_TIMEOUT", fallback: "30s", dst: &cfg.SessionIdleTimeout},
		{key: "LISTING_CACHE_TTL", fallback: "30s", dst: &cfg.ListingCacheTTL},
		{key: "STREAM_WRITE_TIMEOUT", fallback: "10s", dst: &cfg.StreamWriteTimeout},
		{key: "STREAM_PING_INTERVAL", fallback: "30s", dst: &cfg.StreamPingInterval},
	}
	for _, item := range durations {
		value, err := getEnvAsPositiveDuration(item.key, item.fallback)
		if err != nil {
			return Config{}, err
		}
		*item.dst = value
	}

	bools := []struct {
		key      string
		fallback string
		dst      *bool
	}{
		{key: "METRICS_ENABLED", fallback: "true", dst: &cfg.MetricsEnabled},
		{key: "PPROF_ENABLED", fallback: "false", dst: &cfg.PprofEnabled},
		{key: "UPTRACE_ENABLED", fallback: "false", dst: &cfg.UptraceEnabled},
		{key: "PYROSCOPE_ENABLED", fallback: "false", dst: &cfg.PyroscopeEnabled},
		{key: "FEED_CIRCUIT_ENABLED", fallback: "true", dst: &cfg.FeedCircuitEnabled},
	}
	for _, item := range bools {
		value, err := strconv.ParseBool(getEnv(item.key, item.fallback))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", item.key, err)
		}
		*item.dst = value
	}

	ints := []struct {
		key      string
		fallback int
		min      int
		dst      *int
	}{
		{key: "FEED_MAX_RETRIES", fallback: 1, min: 0, dst: &cfg.FeedMaxRetries},
		{key: "FEED_CIRCUIT_FAILURE_COUNT", fallback: 5, min: 1, dst: &cfg.FeedCircuitFailureCount},
		{key: "FEED_CIRCUIT_HALF_OPEN_MAX_REQ", fallback: 2, min: 1, dst: &cfg.FeedCircuitHalfOpenMaxReq},
		{key: "FEED_CONCURRENCY", fallback: 16, min: 1, dst: &cfg.FeedConcurrency},
	}
	for _, item := range ints {
		value, err := getEnvAsInt(item.key, item.fallback)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", item.key, err)
		}
		if value < item.min {
			return Config{}, fmt.Errorf("%s must be >= %d", item.key, item.min)
		}
		*item.dst = value
	}

	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return Config{}, fmt.Errorf("APP_HTTP_ADDR cannot be empty")
	}
	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))

	if appEnv != EnvDev && cfg.FeedBaseURL == "" {
		return Config{}, fmt.Errorf("FEED_BASE_URL is required when APP_ENV=%s", appEnv)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsPositiveDuration(key, fallback string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(getEnv(key, fallback)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return value, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogFormat(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case LogFormatJSON, LogFormatConsole:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_LOG_FORMAT %q: valid values are %s, %s", v, LogFormatJSON, LogFormatConsole)
	}
}
