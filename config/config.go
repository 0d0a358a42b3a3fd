package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort        string
	JWTSecret      string
	TokenTTLHours  int
	AllowedOrigins []string
	// Rate limiting applied to auth and write routes
	RateLimitPerMinute int
	// Staff accounts allowed to use the admin endpoints
	AdminUsernames []string

	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Redis for list caching and token revocation
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// Gin framework configuration
	GinMode string
	GinPath string

	// Blog behaviour
	PostsPerPage     int
	LoginURL         string
	MediaRoot        string
	MaxUploadMB      int
	ListCacheSeconds int
}

// fileConfig mirrors the grouped layout of config/config.json (or .yaml).
type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort" yaml:"AppPort"`
		JWTSecret          string   `json:"JWTSecret" yaml:"JWTSecret"`
		TokenTTLHours      int      `json:"TokenTTLHours" yaml:"TokenTTLHours"`
		AllowedOrigins     []string `json:"AllowedOrigins" yaml:"AllowedOrigins"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute" yaml:"RateLimitPerMinute"`
		AdminUsernames     []string `json:"AdminUsernames" yaml:"AdminUsernames"`
	} `json:"app" yaml:"app"`
	Database struct {
		Driver      string `json:"Driver" yaml:"Driver"`
		DatabaseURI string `json:"DatabaseURI" yaml:"DatabaseURI"`
		DBHost      string `json:"DBHost" yaml:"DBHost"`
		DBPort      string `json:"DBPort" yaml:"DBPort"`
		DBUser      string `json:"DBUser" yaml:"DBUser"`
		DBPassword  string `json:"DBPassword" yaml:"DBPassword"`
		DBName      string `json:"DBName" yaml:"DBName"`
		DBSSLMode   string `json:"DBSSLMode" yaml:"DBSSLMode"`
	} `json:"database" yaml:"database"`
	Redis struct {
		RedisHost     string `json:"RedisHost" yaml:"RedisHost"`
		RedisPort     int    `json:"RedisPort" yaml:"RedisPort"`
		RedisDB       int    `json:"RedisDB" yaml:"RedisDB"`
		RedisPassword string `json:"RedisPassword" yaml:"RedisPassword"`
	} `json:"redis" yaml:"redis"`
	Log struct {
		Level      string `json:"Level" yaml:"Level"`
		Path       string `json:"Path" yaml:"Path"`
		MaxSizeMB  int    `json:"MaxSizeMB" yaml:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups" yaml:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays" yaml:"MaxAgeDays"`
		Compress   bool   `json:"Compress" yaml:"Compress"`
	} `json:"log" yaml:"log"`
	Gin struct {
		Mode    string `json:"Mode" yaml:"Mode"`
		LogPath string `json:"LogPath" yaml:"LogPath"`
	} `json:"gin" yaml:"gin"`
	Blog struct {
		PostsPerPage     int    `json:"PostsPerPage" yaml:"PostsPerPage"`
		LoginURL         string `json:"LoginURL" yaml:"LoginURL"`
		MediaRoot        string `json:"MediaRoot" yaml:"MediaRoot"`
		MaxUploadMB      int    `json:"MaxUploadMB" yaml:"MaxUploadMB"`
		ListCacheSeconds int    `json:"ListCacheSeconds" yaml:"ListCacheSeconds"`
	} `json:"blog" yaml:"blog"`
}

// DefaultPath is used when no config path is passed on the command line.
var DefaultPath = filepath.Join("config", "config.json")

// ErrMissingSecret is returned when no JWT secret was configured anywhere.
var ErrMissingSecret = errors.New("JWT_SECRET must be set in environment variables or the config file")

var cfg AppConfig
var loaded bool

// Load reads configuration once and caches it for Get.
// Precedence: .env -> config file -> defaults -> environment variable overrides.
func Load(path string) (AppConfig, error) {
	if loaded {
		return cfg, nil
	}
	c, err := LoadFrom(path)
	if err != nil {
		return AppConfig{}, err
	}
	cfg = c
	loaded = true
	return cfg, nil
}

// Get returns the cached configuration. Load must have succeeded before.
func Get() AppConfig {
	return cfg
}

// LoadFrom builds a configuration without touching the package cache.
func LoadFrom(path string) (AppConfig, error) {
	// .env is optional; variables already present in the environment win.
	_ = godotenv.Load()

	var c AppConfig
	if err := loadFile(path, &c); err != nil {
		return AppConfig{}, err
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return AppConfig{}, err
	}
	if c.JWTSecret == "" {
		return AppConfig{}, ErrMissingSecret
	}
	return c, nil
}

// loadFile decodes a JSON or YAML file into out. A missing file is not an error.
func loadFile(path string, out *AppConfig) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = json.Unmarshal(b, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.TokenTTLHours = fc.App.TokenTTLHours
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AdminUsernames = fc.App.AdminUsernames

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName
	out.DBSSLMode = fc.Database.DBSSLMode

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.GinMode = fc.Gin.Mode
	out.GinPath = fc.Gin.LogPath

	out.PostsPerPage = fc.Blog.PostsPerPage
	out.LoginURL = fc.Blog.LoginURL
	out.MediaRoot = fc.Blog.MediaRoot
	out.MaxUploadMB = fc.Blog.MaxUploadMB
	out.ListCacheSeconds = fc.Blog.ListCacheSeconds
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "blogicum"
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
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
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.PostsPerPage == 0 {
		c.PostsPerPage = 10
	}
	if c.LoginURL == "" {
		c.LoginURL = "/auth/login/"
	}
	if c.MediaRoot == "" {
		c.MediaRoot = "media"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 5
	}
	if c.ListCacheSeconds == 0 {
		c.ListCacheSeconds = 30
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := map[string]*string{
		"APP_PORT":       &c.AppPort,
		"JWT_SECRET":     &c.JWTSecret,
		"DB_DRIVER":      &c.DBDriver,
		"DATABASE_URI":   &c.DatabaseURI,
		"DB_HOST":        &c.DBHost,
		"DB_PORT":        &c.DBPort,
		"DB_USER":        &c.DBUser,
		"DB_PASSWORD":    &c.DBPassword,
		"DB_NAME":        &c.DBName,
		"DB_SSLMODE":     &c.DBSSLMode,
		"REDIS_HOST":     &c.RedisHost,
		"REDIS_PASSWORD": &c.RedisPassword,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_PATH":       &c.LogPath,
		"GIN_MODE":       &c.GinMode,
		"GIN_PATH":       &c.GinPath,
		"LOGIN_URL":      &c.LoginURL,
		"MEDIA_ROOT":     &c.MediaRoot,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOKEN_TTL_HOURS":       &c.TokenTTLHours,
		"RATE_LIMIT_PER_MINUTE": &c.RateLimitPerMinute,
		"REDIS_PORT":            &c.RedisPort,
		"REDIS_DB":              &c.RedisDB,
		"LOG_MAX_SIZE_MB":       &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":       &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":      &c.LogMaxAgeDays,
		"POSTS_PER_PAGE":        &c.PostsPerPage,
		"MAX_UPLOAD_MB":         &c.MaxUploadMB,
		"LIST_CACHE_SECONDS":    &c.ListCacheSeconds,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer value %s=%q: %w", key, v, err)
		}
		*dst = n
	}

	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("ADMIN_USERNAMES"); v != "" {
		c.AdminUsernames = splitAndTrim(v)
	}
	return nil
}

// IsAdmin reports whether username is configured as staff (case-insensitive).
func (c AppConfig) IsAdmin(username string) bool {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return false
	}
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
