package main

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"go-news-client/internal/config"
)

// GetRedisURL returns the redis URL with the following priority:
// 1. NEWS_REDIS_URL environment variable
// 2. redis_url from the config file
// 3. Default value
func GetRedisURL(cfg *config.Config, logger *zap.Logger) string {
	if redisURL := strings.TrimSpace(os.Getenv("NEWS_REDIS_URL")); redisURL != "" {
		logger.Debug("Using redis URL from environment variable")
		return redisURL
	}

	if cfg.Storage.RedisURL != "" {
		logger.Debug("Using redis URL from config file")
		return cfg.Storage.RedisURL
	}

	logger.Debug("Using default redis URL")
	return "redis://localhost:6379"
}
