package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName          string `json:"appname"`
	AppEnv           string `json:"appenv"`
	AppPort          uint16 `json:"appport"`
	GinMode          string `json:"ginmode"`
	DBHost           string `json:"dbhost"`
	DBPort           uint16 `json:"dbport"`
	DBName           string `json:"dbname"`
	DBUser           string `json:"dbuser"`
	DBPass           string `json:"dbpass"`
	VisionAPIURL     string `json:"vision_api_url"`
	NarrativeAPIURL  string `json:"narrative_api_url"`
	VisionAPIKey     string `json:"vision_api_key"`
	AITimeoutSeconds uint   `json:"ai_timeout_seconds"`
}

var config *Config
var once sync.Once

// defaultAITimeout is applied when AI_TIMEOUT_SECONDS is unset or invalid.
// The external analysis call has no upstream-defined timeout, so the service
// must impose its own.
const defaultAITimeout = 60 * time.Second

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// Load environment variables from .env file. Missing file is fine in
		// test and container environments where vars come from the process.
		if err := godotenv.Load(); err != nil && os.Getenv("APPENV") == "" {
			log.Printf("no .env file loaded: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)
		aiTimeout, _ := strconv.ParseUint(os.Getenv("AI_TIMEOUT_SECONDS"), 10, 32)

		// Initialize the Config struct with values from environment variables.
		config = &Config{
			AppName:          os.Getenv("APPNAME"),
			AppEnv:           os.Getenv("APPENV"),
			AppPort:          uint16(appPort),
			GinMode:          os.Getenv("GINMODE"),
			DBHost:           os.Getenv("DBHOST"),
			DBPort:           uint16(dbPort),
			DBName:           os.Getenv("DBNAME"),
			DBUser:           os.Getenv("DBUSER"),
			DBPass:           os.Getenv("DBPASS"),
			VisionAPIURL:     os.Getenv("VISION_API_URL"),
			NarrativeAPIURL:  os.Getenv("NARRATIVE_API_URL"),
			VisionAPIKey:     os.Getenv("VISION_API_KEY"),
			AITimeoutSeconds: uint(aiTimeout),
		}
	})
	return config
}

// AITimeout returns the timeout applied to external AI collaborator calls.
func (c *Config) AITimeout() time.Duration {
	if c.AITimeoutSeconds == 0 {
		return defaultAITimeout
	}
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

// ConnectDatabase establishes a database connection using the configuration values.
// In the test environment it opens a shared in-memory SQLite database so test
// packages never require a running MySQL instance.
func ConnectDatabase() (*gorm.DB, error) {
	cfg := LoadConfig()

	if cfg.AppEnv == "test" {
		return gorm.Open(sqlite.Open("file:woundcare_test?mode=memory&cache=shared"), &gorm.Config{})
	}

	// Build the Data Source Name (DSN) using the configuration values.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
