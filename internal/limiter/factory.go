package limiter

import (
	"fmt"
	"strings"
	"time"

	"github.com/evyataryagoni/geoip-service/internal/logger"
)

// Config selects and sizes a rate limiter
type Config struct {
	Type   string        // "memory" or "redis"
	Limit  int           // requests allowed per window and client
	Window time.Duration // length of the window

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Logger *logger.Logger
}

// New builds the limiter named by cfg.Type. An empty type means memory.
func New(cfg Config) (Limiter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "memory", "":
		return NewMemoryLimiter(cfg.Limit, cfg.Window), nil

	case "redis":
		l, err := NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Limit, cfg.Window, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis limiter: %w", err)
		}
		return l, nil

	default:
		return nil, fmt.Errorf("unknown rate limiter type: %s (supported: 'memory', 'redis')", cfg.Type)
	}
}
