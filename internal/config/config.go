package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool
	MigrationsDir  string
	ShotLogEnabled bool

	// Redis
	RedisEnabled bool
	RedisURL     string
	FrameChannel string

	// Server
	Port        string
	FrontendURL string

	// Simulation
	TickRate        int // ticks per second driven by the tick worker
	MaxMatches      int
	FrameEveryTicks int // publish a frame every N ticks
	TuningFile      string

	// Security
	JWTSecret   string
	AuthEnabled bool
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/gravpool?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations"),
		ShotLogEnabled: getEnvBool("SHOT_LOG_ENABLED", true),

		// Redis
		RedisEnabled: getEnvBool("REDIS_ENABLED", true),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		FrameChannel: getEnv("FRAME_CHANNEL", "sim_frames"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Simulation
		TickRate:        getEnvInt("TICK_RATE", 60),
		MaxMatches:      getEnvInt("MAX_MATCHES", 64),
		FrameEveryTicks: getEnvInt("FRAME_EVERY_TICKS", 2),
		TuningFile:      getEnv("TUNING_FILE", ""),

		// Security
		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),
		AuthEnabled: getEnvBool("AUTH_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}
