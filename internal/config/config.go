package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP            HTTPConfig
	DatabaseURL     string
	Auth            AuthConfig
	FrontendDistDir string
	PostStateFile   string
	MigrationsDir   string
	MigrationState  string
	AuditLogFile    string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type AuthConfig struct {
	// The bootstrap admin is seeded at startup when absent; registration
	// itself can never produce an admin.
	BootstrapEmail    string
	BootstrapPassword string
	BootstrapName     string
	BcryptCost        int
	SessionTTL        time.Duration
	UserStateFile     string
}

// Load reads configuration from the environment, after merging an optional
// .env file (existing environment wins over the file).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SEC", 10)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SEC", 15)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("HTTP_SHUTDOWN_TIMEOUT_SEC", 20)) * time.Second,
		},
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Auth: AuthConfig{
			BootstrapEmail:    getEnv("AUTH_BOOTSTRAP_EMAIL", "admin@blog.local"),
			BootstrapPassword: getEnv("AUTH_BOOTSTRAP_PASSWORD", "admin123"),
			BootstrapName:     getEnv("AUTH_BOOTSTRAP_NAME", "Admin"),
			BcryptCost:        getEnvInt("AUTH_BCRYPT_COST", 10),
			SessionTTL:        time.Duration(getEnvInt("AUTH_SESSION_TTL_SEC", 86400)) * time.Second,
			UserStateFile:     getEnv("AUTH_USER_STATE_FILE", "./data/users.json"),
		},
		FrontendDistDir: getEnv("FRONTEND_DIST_DIR", "./web/dist"),
		PostStateFile:   getEnv("POST_STATE_FILE", "./data/posts.json"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "./migrations"),
		MigrationState:  getEnv("MIGRATION_STATE_FILE", "./data/migration_state.json"),
		AuditLogFile:    getEnv("AUDIT_LOG_FILE", "./data/audit.log"),
	}

	if cfg.HTTP.Addr == "" {
		return Config{}, fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.Auth.BootstrapEmail == "" {
		return Config{}, fmt.Errorf("AUTH_BOOTSTRAP_EMAIL must not be empty")
	}
	if cfg.Auth.BootstrapPassword == "" {
		return Config{}, fmt.Errorf("AUTH_BOOTSTRAP_PASSWORD must not be empty")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return Config{}, fmt.Errorf("AUTH_BCRYPT_COST must be between 4 and 31")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("AUTH_SESSION_TTL_SEC must be > 0")
	}
	if cfg.Auth.UserStateFile == "" {
		return Config{}, fmt.Errorf("AUTH_USER_STATE_FILE must not be empty")
	}
	if cfg.PostStateFile == "" {
		return Config{}, fmt.Errorf("POST_STATE_FILE must not be empty")
	}
	if cfg.MigrationsDir == "" {
		return Config{}, fmt.Errorf("MIGRATIONS_DIR must not be empty")
	}
	if cfg.MigrationState == "" {
		return Config{}, fmt.Errorf("MIGRATION_STATE_FILE must not be empty")
	}
	if cfg.AuditLogFile == "" {
		return Config{}, fmt.Errorf("AUDIT_LOG_FILE must not be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}
