package config

import "time"

// APIConfig holds runtime configuration for the credential depot service.
type APIConfig struct {
	Environment        string
	Addr               string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	KVNamespace        string
	SessionSecret      string
	SessionTTL         time.Duration
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":8080"),
		RedisAddr:          GetString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      GetString("REDIS_PASSWORD", ""),
		RedisDB:            GetInt("REDIS_DB", 0),
		KVNamespace:        GetString("KV_NAMESPACE", ""),
		SessionSecret:      GetString("SESSION_SECRET", "supersecuresecret"),
		SessionTTL:         GetDuration("SESSION_TTL", 24*time.Hour),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
