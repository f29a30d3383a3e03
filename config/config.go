package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds process-wide configuration. It is loaded once at boot and
// treated as immutable afterwards; sensitive values never have code defaults.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	GinMode            string
	GinLogPath         string
	FrontendURL        string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis cache
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// SMTP for password-reset mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	// S3-compatible object store for cover images
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
	S3Folder        string
	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load reads configuration once: config/config.json first, then defaults for
// zero values, then environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in config or environment")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// loadJSONConfig reads grouped JSON sections into cfg when the file exists.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // missing file is fine
	}
	defer f.Close()

	var raw map[string]map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	if app, ok := raw["app"]; ok {
		setString(app, "AppPort", &out.AppPort)
		setString(app, "JWTSecret", &out.JWTSecret)
		setString(app, "GinMode", &out.GinMode)
		setString(app, "GinLogPath", &out.GinLogPath)
		setString(app, "FrontendURL", &out.FrontendURL)
		setInt(app, "RateLimitPerMinute", &out.RateLimitPerMinute)
		setStringSlice(app, "AllowedOrigins", &out.AllowedOrigins)
	}
	if db, ok := raw["database"]; ok {
		setString(db, "DatabaseURI", &out.DatabaseURI)
		setString(db, "DBHost", &out.DBHost)
		setString(db, "DBPort", &out.DBPort)
		setString(db, "DBUser", &out.DBUser)
		setString(db, "DBPassword", &out.DBPassword)
		setString(db, "DBName", &out.DBName)
	}
	if rds, ok := raw["redis"]; ok {
		setString(rds, "RedisHost", &out.RedisHost)
		setInt(rds, "RedisPort", &out.RedisPort)
		setInt(rds, "RedisDB", &out.RedisDB)
		setString(rds, "RedisPassword", &out.RedisPassword)
	}
	if sm, ok := raw["smtp"]; ok {
		setString(sm, "SMTPHost", &out.SMTPHost)
		setInt(sm, "SMTPPort", &out.SMTPPort)
		setString(sm, "SMTPUsername", &out.SMTPUsername)
		setString(sm, "SMTPPassword", &out.SMTPPassword)
		setString(sm, "SMTPFrom", &out.SMTPFrom)
		setString(sm, "SMTPFromName", &out.SMTPFromName)
		setBool(sm, "SMTPTLS", &out.SMTPTLS)
	}
	if s3, ok := raw["s3"]; ok {
		setString(s3, "Bucket", &out.S3Bucket)
		setString(s3, "Region", &out.S3Region)
		setString(s3, "Endpoint", &out.S3Endpoint)
		setString(s3, "AccessKey", &out.S3AccessKey)
		setString(s3, "SecretKey", &out.S3SecretKey)
		setString(s3, "PublicBaseURL", &out.S3PublicBaseURL)
		setString(s3, "Folder", &out.S3Folder)
	}
	if lg, ok := raw["log"]; ok {
		setString(lg, "Level", &out.LogLevel)
		setString(lg, "Path", &out.LogPath)
		setInt(lg, "MaxSizeMB", &out.LogMaxSizeMB)
		setInt(lg, "MaxBackups", &out.LogMaxBackups)
		setInt(lg, "MaxAgeDays", &out.LogMaxAgeDays)
		setBool(lg, "Compress", &out.LogCompress)
	}
	return nil
}

func setString(m map[string]any, key string, dst *string) {
	if v, ok := m[key].(string); ok && v != "" {
		*dst = v
	}
}

func setInt(m map[string]any, key string, dst *int) {
	switch v := m[key].(type) {
	case float64:
		if v != 0 {
			*dst = int(v)
		}
	case int:
		if v != 0 {
			*dst = v
		}
	}
}

func setBool(m map[string]any, key string, dst *bool) {
	if v, ok := m[key].(bool); ok {
		*dst = v
	}
}

func setStringSlice(m map[string]any, key string, dst *[]string) {
	arr, ok := m[key].([]any)
	if !ok {
		return
	}
	var out []string
	for _, it := range arr {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinLogPath == "" {
		c.GinLogPath = "logs/gin.log"
	}
	if c.FrontendURL == "" {
		c.FrontendURL = "http://localhost:3000"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "italics"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.S3Region == "" {
		c.S3Region = "us-east-1"
	}
	if c.S3Folder == "" {
		c.S3Folder = "blogs"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

func applyEnvOverrides(c *AppConfig) {
	overrideString("APP_PORT", &c.AppPort)
	overrideString("JWT_SECRET", &c.JWTSecret)
	overrideString("GIN_MODE", &c.GinMode)
	overrideString("GIN_LOG_PATH", &c.GinLogPath)
	overrideString("FRONTEND_URL", &c.FrontendURL)
	overrideInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	overrideString("DATABASE_URI", &c.DatabaseURI)
	overrideString("DB_HOST", &c.DBHost)
	overrideString("DB_PORT", &c.DBPort)
	overrideString("DB_USER", &c.DBUser)
	overrideString("DB_PASSWORD", &c.DBPassword)
	overrideString("DB_NAME", &c.DBName)
	overrideString("REDIS_HOST", &c.RedisHost)
	overrideInt("REDIS_PORT", &c.RedisPort)
	overrideInt("REDIS_DB", &c.RedisDB)
	overrideString("REDIS_PASSWORD", &c.RedisPassword)
	overrideString("SMTP_HOST", &c.SMTPHost)
	overrideInt("SMTP_PORT", &c.SMTPPort)
	overrideString("SMTP_USERNAME", &c.SMTPUsername)
	overrideString("SMTP_PASSWORD", &c.SMTPPassword)
	overrideString("SMTP_FROM", &c.SMTPFrom)
	overrideString("SMTP_FROM_NAME", &c.SMTPFromName)
	overrideBool("SMTP_TLS", &c.SMTPTLS)
	overrideString("S3_BUCKET", &c.S3Bucket)
	overrideString("S3_REGION", &c.S3Region)
	overrideString("S3_ENDPOINT", &c.S3Endpoint)
	overrideString("S3_ACCESS_KEY", &c.S3AccessKey)
	overrideString("S3_SECRET_KEY", &c.S3SecretKey)
	overrideString("S3_PUBLIC_BASE_URL", &c.S3PublicBaseURL)
	overrideString("S3_FOLDER", &c.S3Folder)
	overrideString("LOG_LEVEL", &c.LogLevel)
	overrideString("LOG_PATH", &c.LogPath)
	overrideInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	overrideInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	overrideInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	overrideBool("LOG_COMPRESS", &c.LogCompress)
}

func overrideString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s: %v", key, err)
		}
		*dst = i
	}
}

func overrideBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true"
	}
}

func splitAndTrim(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
