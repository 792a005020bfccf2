package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Port  string
	Debug bool

	StoreDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	JWTSecret string
	JWTTTL    time.Duration

	AdminEmail        string
	AdminName         string
	AdminPasswordHash string

	GoogleClientID      string
	GoogleAllowedEmails []string

	PublicBaseURL string
	CORSOrigins   []string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	SubmitRatePerMin int
	SubmitBurst      int

	LinkSweepSpec string
	SeedDemo      bool
}

// Load reads the configuration from the environment. A .env file in the
// working directory, when present, is loaded first without overriding
// variables that are already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:  env("PORT", "8080"),
		Debug: envBool("DEBUG", false),

		StoreDriver: strings.ToLower(env("STORE_DRIVER", StoreMemory)),

		DBHost:     env("DB_HOST", "localhost"),
		DBPort:     env("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     env("DB_NAME", "surveyflow"),
		DBSSLMode:  env("DB_SSLMODE", "disable"),

		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisPrefix:   env("REDIS_PREFIX", "surveyflow:"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AdminEmail:        strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminName:         env("ADMIN_NAME", "Admin User"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleAllowedEmails: envList("GOOGLE_ALLOWED_EMAILS"),

		PublicBaseURL: strings.TrimRight(env("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
		CORSOrigins:   envList("CORS_ORIGINS"),

		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_KEY"),
		SupabaseBucket: env("SUPABASE_BUCKET", "survey_reports"),

		LinkSweepSpec: env("LINK_SWEEP_SPEC", "@hourly"),
		SeedDemo:      envBool("SEED_DEMO", false),
	}

	var err error
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.SubmitRatePerMin, err = envInt("SUBMIT_RATE_PER_MIN", 10); err != nil {
		return Config{}, err
	}
	if cfg.SubmitBurst, err = envInt("SUBMIT_BURST", 5); err != nil {
		return Config{}, err
	}
	ttl := env("JWT_TTL", "24h")
	if cfg.JWTTTL, err = time.ParseDuration(ttl); err != nil {
		return Config{}, fmt.Errorf("invalid JWT_TTL %q: %w", ttl, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if cfg.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	switch cfg.StoreDriver {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if cfg.DBUser == "" {
			return errors.New("DB_USER is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.AdminEmail == "" && cfg.GoogleClientID == "" {
		return errors.New("configure ADMIN_EMAIL and ADMIN_PASSWORD_HASH, or GOOGLE_CLIENT_ID")
	}
	if cfg.AdminEmail != "" && cfg.AdminPasswordHash == "" {
		return errors.New("ADMIN_PASSWORD_HASH is required with ADMIN_EMAIL")
	}
	if cfg.SubmitRatePerMin < 1 || cfg.SubmitBurst < 1 {
		return errors.New("SUBMIT_RATE_PER_MIN and SUBMIT_BURST must be positive")
	}
	return nil
}

// SupabaseEnabled reports whether report publishing is configured.
func (cfg Config) SupabaseEnabled() bool {
	return cfg.SupabaseURL != "" && cfg.SupabaseKey != ""
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
