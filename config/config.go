package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port        string
	Environment string

	// Database
	DBDriver   string // "postgres" or "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string // sqlite file path

	// Refresh pipeline
	JobStateFile        string
	FetchWorkers        int
	ComputeWorkers      int
	FetchDelay          time.Duration
	StageTimeout        time.Duration
	FullLookbackDays    int
	MinIndicatorHistory int
	ScheduleTime        string // "HH:MM", empty disables the daily job

	// Optional MongoDB mirror
	MongoURI      string
	MongoDatabase string
}

var AppConfig *Config
var DB *gorm.DB

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "screener_db"),
		DBPath:     getEnv("DB_PATH", "data/stocks.db"),

		JobStateFile:        getEnv("JOB_STATE_FILE", "data/refresh_job_state.json"),
		FetchWorkers:        getEnvInt("FETCH_WORKERS", 5),
		ComputeWorkers:      getEnvInt("COMPUTE_WORKERS", 10),
		FetchDelay:          time.Duration(getEnvInt("FETCH_DELAY_MS", 300)) * time.Millisecond,
		StageTimeout:        time.Duration(getEnvInt("STAGE_TIMEOUT_MINUTES", 15)) * time.Minute,
		FullLookbackDays:    getEnvInt("FULL_LOOKBACK_DAYS", 730),
		MinIndicatorHistory: getEnvInt("MIN_INDICATOR_HISTORY", 200),
		ScheduleTime:        getEnv("SCHEDULE_TIME", ""),

		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "screener"),
	}

	AppConfig = config
	return config, nil
}

// InitDB initializes the database connection for the configured driver
func InitDB() (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if AppConfig.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Warn
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var db *gorm.DB
	var err error

	switch AppConfig.DBDriver {
	case "postgres":
		log.Printf("Connecting to database: host=%s port=%s user=%s dbname=%s",
			maskHost(AppConfig.DBHost),
			AppConfig.DBPort,
			AppConfig.DBUser,
			AppConfig.DBName,
		)
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=require TimeZone=UTC",
			AppConfig.DBHost,
			AppConfig.DBUser,
			AppConfig.DBPassword,
			AppConfig.DBName,
			AppConfig.DBPort,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	case "sqlite":
		log.Printf("Opening SQLite database at %s", AppConfig.DBPath)
		if dir := filepath.Dir(AppConfig.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(AppConfig.DBPath), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", AppConfig.DBDriver)
	}

	if err != nil {
		log.Printf("Database connection error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection with ping
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Printf("Database connection verified successfully")
	DB = db
	return db, nil
}

// maskHost masks host for logging, preserving domain structure
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
