package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds client and dev backend settings read from the environment.
type Config struct {
	// API gateway
	APIBaseURL       string
	RequestTimeout   time.Duration
	GatewayRateLimit float64

	// Session persistence
	StateBackend     string
	StatePath        string
	RedisAddr        string
	HydrationTimeout time.Duration

	// Task cache
	CacheStaleTime  time.Duration
	QueryRetry      int
	RefetchOnSettle bool

	LogLevel string

	// Dev backend
	DBDriver   string
	DBDSN      string
	JWTSecret  string
	JWTTTL     time.Duration
	ServerAddr string
	GinMode    string
}

func Load() *Config {
	return &Config{
		APIBaseURL:       getEnv("API_BASE_URL", "http://localhost:8000/api"),
		RequestTimeout:   getDuration("REQUEST_TIMEOUT", 10*time.Second),
		GatewayRateLimit: getFloat("GATEWAY_RATE_LIMIT", 0),

		StateBackend:     strings.ToLower(getEnv("STATE_BACKEND", "sqlite")),
		StatePath:        getEnv("STATE_PATH", defaultStatePath()),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		HydrationTimeout: getDuration("HYDRATION_TIMEOUT", 3*time.Second),

		CacheStaleTime:  getDuration("CACHE_STALE_TIME", 5*time.Minute),
		QueryRetry:      getInt("QUERY_RETRY", 2),
		RefetchOnSettle: getBool("REFETCH_ON_SETTLE", true),

		LogLevel: getEnv("LOG_LEVEL", "warn"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:      getEnv("DB_DSN", "todo-dev.db"),
		JWTSecret:  getEnv("JWT_SECRET", "default-secret-key-change-me"),
		JWTTTL:     getDuration("JWT_TTL", 24*time.Hour),
		ServerAddr: getEnv("SERVER_ADDR", ":8000"),
		GinMode:    getEnv("GIN_MODE", "debug"),
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "todo-state.db"
	}
	return dir + string(os.PathSeparator) + "todo-state.db"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f < 0 {
		return defaultValue
	}
	return f
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}
