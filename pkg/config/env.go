package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv returns the value of an environment variable or a default value if not set
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value if not set
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value if not set
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetDurationEnv returns a duration parsed with time.ParseDuration or the default value
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// MustGetEnv returns the value of an environment variable or panics if not set
func MustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	panic("Required environment variable " + key + " is not set")
}

// GetAPIPrefix returns the API prefix, normalized to start with a slash and have no trailing slash
func GetAPIPrefix() string {
	prefix := strings.TrimSpace(GetEnv("API_PREFIX", ""))
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/")
}

// GetHost returns the interface the HTTP server binds to
func GetHost() string {
	return GetEnv("HOST", "0.0.0.0")
}

// GetMongoDatabase returns the MongoDB database name
func GetMongoDatabase() string {
	return GetEnv("MONGODB_DATABASE", "gad")
}

// GetJWTSecret returns the secret used to verify actor tokens
func GetJWTSecret() []byte {
	return []byte(GetEnv("JWT_SECRET", "development-secret-change-me"))
}

// GetSuperAdminUserID returns the user granted the super admin role at startup, if any
func GetSuperAdminUserID() string {
	return GetEnv("SUPER_ADMIN_USER_ID", "")
}

// GetAccessCacheTTL returns how long permission decisions stay cached
func GetAccessCacheTTL() time.Duration {
	return GetDurationEnv("ACCESS_CACHE_TTL", 2*time.Minute)
}

// GetAccessExpirySchedule returns the cron spec of the passive expiry sweep
func GetAccessExpirySchedule() string {
	return GetEnv("ACCESS_EXPIRY_SCHEDULE", "@every 15m")
}
