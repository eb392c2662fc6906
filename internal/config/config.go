package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BrowserPort string
	LogLevel    string

	BackendURL     string
	BackendTimeout time.Duration

	TokenSource      string
	APSClientID      string
	APSClientSecret  string
	APSAuthURL       string
	APSScopes        string
	APSDerivativeURL string

	ViewerEnabled bool
	ViewerRole    string

	UploadRefreshDelay time.Duration
	UploadMaxBytes     int
	DispatchTimeout    time.Duration

	NATSURL     string
	NATSSubject string

	APIRateLimitRPS     int
	APIRateLimitBurst   int
	APIMaxInFlight      int
	APIBackpressureWait time.Duration

	ResilienceRetryMaxAttempts    int
	ResilienceRetryInitialBackoff time.Duration
	ResilienceRetryMaxBackoff     time.Duration
	ResilienceBreakerEnabled      bool
	ResilienceBreakerMinRequests  int
	ResilienceBreakerOpenTimeout  time.Duration

	TokenOutputPath string
}

// Load reads the configuration from the environment. When CONFIG_FILE names
// a YAML file, its keys fill in whatever the environment leaves unset.
func Load() (Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		values, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = values
	}

	return Config{
		BrowserPort: src.mustEnv("BROWSER_PORT", "8080"),
		LogLevel:    src.mustEnv("LOG_LEVEL", "info"),

		BackendURL:     src.mustEnv("BACKEND_URL", "http://localhost:3000"),
		BackendTimeout: src.mustEnvDuration("BACKEND_TIMEOUT", 30*time.Second),

		TokenSource:      src.mustEnv("TOKEN_SOURCE", "backend"),
		APSClientID:      src.mustEnv("APS_CLIENT_ID", ""),
		APSClientSecret:  src.mustEnv("APS_CLIENT_SECRET", ""),
		APSAuthURL:       src.mustEnv("APS_AUTH_URL", "https://developer.api.autodesk.com/authentication/v2/token"),
		APSScopes:        src.mustEnv("APS_SCOPES", "viewables:read data:read"),
		APSDerivativeURL: src.mustEnv("APS_DERIVATIVE_URL", "https://developer.api.autodesk.com"),

		ViewerEnabled: src.mustEnvBool("VIEWER_ENABLED", true),
		ViewerRole:    src.mustEnv("VIEWER_ROLE", "3d"),

		UploadRefreshDelay: src.mustEnvDuration("UPLOAD_REFRESH_DELAY", 3*time.Second),
		UploadMaxBytes:     src.mustEnvInt("UPLOAD_MAX_BYTES", 512<<20),
		DispatchTimeout:    src.mustEnvDuration("DISPATCH_TIMEOUT", 2*time.Minute),

		NATSURL:     src.mustEnv("NATS_URL", ""),
		NATSSubject: src.mustEnv("NATS_SUBJECT", "browser.activity"),

		APIRateLimitRPS:     src.mustEnvInt("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst:   src.mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:      src.mustEnvInt("API_MAX_IN_FLIGHT", 32),
		APIBackpressureWait: src.mustEnvDuration("API_BACKPRESSURE_WAIT", 250*time.Millisecond),

		ResilienceRetryMaxAttempts:    src.mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 2),
		ResilienceRetryInitialBackoff: src.mustEnvDuration("RESILIENCE_RETRY_INITIAL_BACKOFF", 50*time.Millisecond),
		ResilienceRetryMaxBackoff:     src.mustEnvDuration("RESILIENCE_RETRY_MAX_BACKOFF", 250*time.Millisecond),
		ResilienceBreakerEnabled:      src.mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		ResilienceBreakerMinRequests:  src.mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 5),
		ResilienceBreakerOpenTimeout:  src.mustEnvDuration("RESILIENCE_BREAKER_OPEN_TIMEOUT", 15*time.Second),

		TokenOutputPath: src.mustEnv("TOKEN_OUTPUT_PATH", "viewer/token.json"),
	}, nil
}

func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	values := make(map[string]string, len(doc))
	for key, value := range doc {
		if value == nil {
			continue
		}
		values[strings.ToUpper(strings.TrimSpace(key))] = fmt.Sprint(value)
	}
	return values, nil
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("3s") and bare integers as seconds.
func (s source) mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
