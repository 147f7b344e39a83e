package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`
	DBHost  string `json:"dbhost"`
	DBPort  uint16 `json:"dbport"`
	DBName  string `json:"dbname"`
	DBUSER  string `json:"dbuser"`
	DBPass  string `json:"dbpass"`

	MongoURI string `json:"mongouri"`
	MongoDB  string `json:"mongodb"`

	Mail MailConfig `json:"mail"`

	ReminderSchedule   string         `json:"reminderschedule"`
	Timezone           *time.Location `json:"-"`
	HealthNewsCacheTTL time.Duration  `json:"healthnewscachettl"`
	PasswordSecret     string         `json:"-"`
	LogLevel           string         `json:"loglevel"`
}

// MailConfig describes the SMTP account used for reminder emails.
type MailConfig struct {
	Server        string  `json:"server"`
	Port          int     `json:"port"`
	UseSSL        bool    `json:"use_ssl"`
	Username      string  `json:"username"`
	Password      string  `json:"-"`
	DefaultSender string  `json:"default_sender"`
	RatePerSec    float64 `json:"rate_per_sec"`
}

const (
	defaultReminderSchedule = "* * * * *"
	defaultHealthNewsTTL    = 3600
)

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
// A missing .env file is not an error; the process environment is used as-is.
func LoadConfig() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		config = fromEnv()
	})
	return config
}

// ResetConfigForTest drops the cached singleton so the next LoadConfig re-reads the environment.
func ResetConfigForTest() {
	config = nil
	once = sync.Once{}
}

func fromEnv() *Config {
	appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
	dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)

	tzName := getenvDefault("TIMEZONE", "Local")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.Local
	}

	return &Config{
		AppName: getenvDefault("APPNAME", "MediBot"),
		AppEnv:  os.Getenv("APPENV"),
		AppPort: uint16(appPort),
		GinMode: getenvDefault("GINMODE", "debug"),
		DBHost:  getenvDefault("DBHOST", "127.0.0.1"),
		DBPort:  uint16(dbPort),
		DBName:  getenvDefault("DBNAME", "medibot"),
		DBUSER:  getenvDefault("DBUSER", "root"),
		DBPass:  os.Getenv("DBPASS"),

		MongoURI: getenvDefault("MONGODB_URI", "mongodb://localhost:27017/"),
		MongoDB:  getenvDefault("MONGODB_DB", "medibot"),

		Mail: MailConfig{
			Server:        getenvDefault("MAIL_SERVER", "localhost"),
			Port:          parseIntEnv("MAIL_PORT", 465),
			UseSSL:        parseBoolEnv("MAIL_USE_SSL", true),
			Username:      os.Getenv("MAIL_USERNAME"),
			Password:      os.Getenv("MAIL_PASSWORD"),
			DefaultSender: os.Getenv("MAIL_DEFAULT_SENDER"),
			RatePerSec:    parseFloatEnv("MAIL_RATE_PER_SEC", 5),
		},

		ReminderSchedule:   getenvDefault("REMINDER_SCHEDULE", defaultReminderSchedule),
		Timezone:           loc,
		HealthNewsCacheTTL: time.Duration(parseIntEnv("HEALTH_NEWS_CACHE_TTL", defaultHealthNewsTTL)) * time.Second,
		PasswordSecret:     os.Getenv("PASSWORD_SECRET"),
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
	}
}

// IsTest reports whether the application runs with APPENV=test.
func (c *Config) IsTest() bool {
	return c != nil && c.AppEnv == "test"
}

// ConnectMySQL establishes a connection to a MySQL database using the configuration values.
// With APPENV=test an in-memory SQLite database is opened instead.
func ConnectMySQL() (*gorm.DB, error) {
	cfg := LoadConfig()
	if cfg.IsTest() || os.Getenv("APPENV") == "test" {
		dsn := fmt.Sprintf("file:medibot_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	}

	// Build the Data Source Name (DSN) using the configuration values.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC", cfg.DBUSER, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(parseIntEnv("DB_MAX_OPEN_CONNS", 25))
	sqlDB.SetMaxIdleConns(parseIntEnv("DB_MAX_IDLE_CONNS", 25))
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func getenvDefault(key, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func parseIntEnv(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseFloatEnv(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseBoolEnv(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}
