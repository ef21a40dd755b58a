package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Server struct {
	Addr          string
	PostgresDSN   string
	Redis         RedisConfig
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// AdminKeyHash is the bcrypt hash of the admin API key required by
	// period-lock, seed, and audit endpoints. Empty disables admin routes.
	AdminKeyHash string

	// CurrentPeriod is the reporting period writes are attributed to when a
	// request does not name one, e.g. "last_12_months".
	CurrentPeriod string

	Scan ScanConfig
}

// RedisConfig mirrors the go-redis options we care about. An empty URL means
// Redis is not configured and memory-backed stores are used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ScanConfig carries the deterministic rule thresholds. Thresholds live in
// config rather than in the rules so operators can tune them without a
// deploy; the rules themselves stay pure.
type ScanConfig struct {
	// StalenessWindow is how long a scan may be overdue before the staleness
	// rule fires.
	StalenessWindow time.Duration
	// MinEvidenceChunks is the minimum number of source citations a
	// recommendation must carry to count as evidenced.
	MinEvidenceChunks int
	// HighImpactThreshold is the upstream-impact percentage above which a
	// supplier counts as high impact for the engagement rule.
	HighImpactThreshold float64
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("CARBONLEDGER_ADDR", ":8080"),
		PostgresDSN:   os.Getenv("CARBONLEDGER_POSTGRES_DSN"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("JWT_ISSUER", "carbonledger"),
		JWTAudience:   envOr("JWT_AUDIENCE", "carbonledger-api"),
		AdminKeyHash:  os.Getenv("CARBONLEDGER_ADMIN_KEY_HASH"),
		CurrentPeriod: envOr("CARBONLEDGER_CURRENT_PERIOD", "last_12_months"),
		Redis: RedisConfig{
			URL:          os.Getenv("CARBONLEDGER_REDIS_URL"),
			PoolSize:     envIntOr("CARBONLEDGER_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("CARBONLEDGER_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("CARBONLEDGER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("CARBONLEDGER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("CARBONLEDGER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Scan: ScanConfig{
			StalenessWindow:     envDurationOr("CARBONLEDGER_SCAN_STALENESS_WINDOW", 24*time.Hour),
			MinEvidenceChunks:   envIntOr("CARBONLEDGER_MIN_EVIDENCE_CHUNKS", 2),
			HighImpactThreshold: envFloatOr("CARBONLEDGER_HIGH_IMPACT_THRESHOLD", 2.0),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
