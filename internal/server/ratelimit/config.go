package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Action names for the rate-limited admission endpoints.
const (
	ActionCreateJob  = "create_job"
	ActionSourceMore = "source_more"
)

// ActionConfig represents rate limiting configuration for a specific action.
type ActionConfig struct {
	Action string        // Action name (e.g. "create_job")
	Limit  int           // Maximum requests per window
	Window time.Duration // Fixed window length
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	enabled := getEnvBool("RATE_LIMIT_ENABLED", true)
	if !enabled {
		return &Config{
			Enabled: false,
		}
	}

	cleanupInterval := getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute)
	whitelist := parseIPList(getEnvString("RATE_LIMIT_WHITELIST", ""))

	return &Config{
		Enabled:         enabled,
		CleanupInterval: cleanupInterval,
		Whitelist:       whitelist,
		Actions: []ActionConfig{
			{
				Action: ActionCreateJob,
				Limit:  getEnvInt("RATE_LIMIT_CREATE_JOB_LIMIT", 10),
				Window: getEnvDuration("RATE_LIMIT_CREATE_JOB_WINDOW", time.Hour),
			},
			{
				Action: ActionSourceMore,
				Limit:  getEnvInt("RATE_LIMIT_SOURCE_MORE_LIMIT", 5),
				Window: getEnvDuration("RATE_LIMIT_SOURCE_MORE_WINDOW", time.Hour),
			},
		},
	}
}

// DefaultActionConfigs returns the default per-action limits.
func DefaultActionConfigs() []ActionConfig {
	return []ActionConfig{
		// Each admission starts a full LLM pipeline run
		{Action: ActionCreateJob, Limit: 10, Window: time.Hour},
		{Action: ActionSourceMore, Limit: 5, Window: time.Hour},
	}
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of caller identities into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	if list == "" {
		return result
	}

	for _, ip := range strings.Split(list, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}

	return result
}
