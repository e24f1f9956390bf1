package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with MINDMARK_STORE.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8787"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request handler timeout

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Store
	Store      string // sqlite | redis | memory
	SQLitePath string // database file for the sqlite store

	// Redis (store=redis only)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisPoolSize       int           // connection pool size
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, grows exponentially
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisWarnThreshold  int           // warn after this many attempts

	// Model
	OllamaURL    string        // ex: "http://localhost:11434"
	TextModel    string        // text-only summarization model
	VisionModel  string        // multimodal model for screenshots
	ProbeTimeout time.Duration // availability probe timeout

	// Queue
	ReprocessDelay    time.Duration // pause between two summarizations
	KickInterval      time.Duration // periodic queue kick
	ReconcileInterval time.Duration // orphaned bookmark scan
	MaxContentChars   int           // text sent to the model is cut at this many characters
	MaxImageDimension int           // screenshots are scaled to fit this box

	// Analytics (Measurement Protocol, disabled unless all three are set)
	AnalyticsEndpoint      string
	AnalyticsMeasurementID string
	AnalyticsAPISecret     string

	ImportFile string // optional YAML file imported at startup
	UserAgent  string // User-Agent for page extraction

	// Access restrictions
	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
	CORSOrigins  []string // optional, allowed CORS origins (empty = any)
	CreateBurst  int      // create endpoint burst per client
	CreatePerMin int      // create endpoint refill per minute per client
}

// AnalyticsEnabled reports whether Measurement Protocol delivery is configured.
func (c *Config) AnalyticsEnabled() bool {
	return c.AnalyticsEndpoint != "" && c.AnalyticsMeasurementID != "" && c.AnalyticsAPISecret != ""
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MINDMARK_LISTEN_PORT", ":8787"),
		ShutdownTimeout: mustDuration("MINDMARK_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("MINDMARK_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:  getenv("MINDMARK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MINDMARK_PRETTY_LOG", true),

		// Store
		Store:      strings.ToLower(getenv("MINDMARK_STORE", StoreSQLite)),
		SQLitePath: getenv("MINDMARK_SQLITE_PATH", "mindmark.db"),

		// Redis settings
		RedisUser:           getenv("MINDMARK_REDIS_USERNAME", ""),
		RedisPassword:       getenv("MINDMARK_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("MINDMARK_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Model
		OllamaURL:    strings.TrimRight(getenv("MINDMARK_OLLAMA_URL", "http://localhost:11434"), "/"),
		TextModel:    getenv("MINDMARK_TEXT_MODEL", "gemma3:1b"),
		VisionModel:  getenv("MINDMARK_VISION_MODEL", "gemma3:4b"),
		ProbeTimeout: mustDuration("MINDMARK_PROBE_TIMEOUT", 3*time.Second),

		// Queue
		ReprocessDelay:    mustDuration("MINDMARK_REPROCESS_DELAY", 100*time.Millisecond),
		KickInterval:      mustPositiveDuration("MINDMARK_KICK_INTERVAL", time.Minute),
		ReconcileInterval: mustPositiveDuration("MINDMARK_RECONCILE_INTERVAL", 5*time.Minute),
		MaxContentChars:   getenvInt("MINDMARK_MAX_CONTENT_CHARS", 20000),
		MaxImageDimension: getenvInt("MINDMARK_MAX_IMAGE_DIMENSION", 1920),

		// Analytics
		AnalyticsEndpoint:      getenv("MINDMARK_ANALYTICS_ENDPOINT", ""),
		AnalyticsMeasurementID: getenv("MINDMARK_ANALYTICS_MEASUREMENT_ID", ""),
		AnalyticsAPISecret:     getenv("MINDMARK_ANALYTICS_API_SECRET", ""),

		ImportFile: getenv("MINDMARK_IMPORT_FILE", ""),
		UserAgent:  getenv("MINDMARK_USER_AGENT", "MindMark/1.0 (+https://github.com/MrSnakeDoc/mindmark)"),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MINDMARK_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("MINDMARK_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MINDMARK_TRUST_PROXY", false),
		CORSOrigins:  splitAndTrim(getenv("MINDMARK_CORS_ORIGINS", "")),
		CreateBurst:  getenvInt("MINDMARK_CREATE_BURST", 20),
		CreatePerMin: getenvInt("MINDMARK_CREATE_PER_MINUTE", 60),
	}

	switch cfg.Store {
	case StoreSQLite, StoreMemory:
	case StoreRedis:
		cfg.RedisAddr = requireEnv("MINDMARK_REDIS_ADDR")
	default:
		panic(fmt.Sprintf("❌ FATAL: MINDMARK_STORE must be one of sqlite, redis, memory (got %q)", cfg.Store))
	}

	if cfg.MaxContentChars <= 0 {
		panic(fmt.Sprintf("❌ FATAL: MINDMARK_MAX_CONTENT_CHARS must be positive (got %d)", cfg.MaxContentChars))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfgCopy.AnalyticsAPISecret != "" {
			cfgCopy.AnalyticsAPISecret = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustPositiveDuration is mustDuration for ticker intervals, which must be > 0.
func mustPositiveDuration(key string, def time.Duration) time.Duration {
	d := mustDuration(key, def)
	if d <= 0 {
		panic(fmt.Sprintf("❌ FATAL: %s must be a positive duration (got %s)", key, d))
	}
	return d
}

// splitAndTrim splits a comma separated list, dropping blanks and quotes.
func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.Trim(strings.TrimSpace(part), `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
