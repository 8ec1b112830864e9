package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TCPPort      string
	MetricsPort  string
	GRPCServer   string
	ProxyAddr    string
	RedisAddr    string
	RedisDB      int
	LogLevel     string
	ReadTimeout  time.Duration
	StateTTL     time.Duration
	MaxFrameSize int
}

func Load() Config {
	return Config{
		TCPPort:      getEnv("TCP_PORT", "8001"),
		MetricsPort:  getEnv("METRICS_PORT", "9000"),
		GRPCServer:   getEnv("GRPC_SERVER", ""),
		ProxyAddr:    getEnv("PROXY_ADDR", ""),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ReadTimeout:  getEnvDuration("READ_TIMEOUT", 5*time.Minute),
		StateTTL:     getEnvDuration("STATE_TTL", 24*time.Hour),
		MaxFrameSize: getEnvPositiveInt("MAX_FRAME_SIZE", 64*1024),
	}
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// getEnvPositiveInt is getEnvInt for settings where 0 would disable a bound.
func getEnvPositiveInt(key string, fallback int) int {
	if n := getEnvInt(key, fallback); n > 0 {
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
