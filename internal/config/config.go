package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int           `yaml:"port"`
		ReadTimeout    time.Duration `yaml:"readTimeout"`
		WriteTimeout   time.Duration `yaml:"writeTimeout"`
		AllowedOrigins []string      `yaml:"allowedOrigins"`
	} `yaml:"server"`

	AI struct {
		Provider       string        `yaml:"provider"` // gemini | openai
		Model          string        `yaml:"model"`
		BaseURL        string        `yaml:"baseURL"`
		APIKey         string        `yaml:"apiKey"`
		APIKeyEnv      string        `yaml:"apiKeyEnv"`
		Locale         string        `yaml:"locale"`
		ThinkingBudget int32         `yaml:"thinkingBudget"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"ai"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | memory
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"database"`

	// Redis kosong = session disimpan di memory
	Redis struct {
		Addr       string        `yaml:"addr"`
		Password   string        `yaml:"password"`
		DB         int           `yaml:"db"`
		SessionTTL time.Duration `yaml:"sessionTTL"`
	} `yaml:"redis"`

	// Minio.Endpoint kosong = foto disimpan di memory
	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Auth struct {
		APIKeys map[string]string `yaml:"apiKeys"` // client name -> key
	} `yaml:"auth"`

	RateLimit struct {
		Capacity  int `yaml:"capacity"`
		PerMinute int `yaml:"perMinute"`
	} `yaml:"rateLimit"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`

	Wizard struct {
		MaxImageBytes int `yaml:"maxImageBytes"`
	} `yaml:"wizard"`
}

// Default returns the values used when neither file nor env set them.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	// thinking models can take a while
	c.Server.WriteTimeout = 2 * time.Minute
	c.AI.Provider = "gemini"
	c.AI.Locale = "en"
	c.AI.ThinkingBudget = 2000
	c.AI.Timeout = 90 * time.Second
	c.Database.Driver = "memory"
	c.Redis.SessionTTL = 24 * time.Hour
	c.Minio.BucketName = "palm-oracle"
	c.Minio.Region = "us-east-1"
	c.RateLimit.Capacity = 5
	c.RateLimit.PerMinute = 10
	c.Log.Level = "info"
	c.Wizard.MaxImageBytes = 10 << 20
	return &c
}

// Load baca .env (kalau ada), lalu config.yaml (kalau ada), lalu env override.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}

	c.AI.Provider = getEnv("AI_PROVIDER", c.AI.Provider)
	c.AI.Model = getEnv("AI_MODEL", c.AI.Model)
	c.AI.BaseURL = getEnv("AI_BASE_URL", c.AI.BaseURL)
	c.AI.Locale = getEnv("AI_LOCALE", c.AI.Locale)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	c.Minio.Endpoint = getEnv("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", c.Minio.SecretKey)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("ai.provider must be gemini or openai, got %q", c.AI.Provider)
	}
	switch c.AI.Locale {
	case "en", "zh-TW":
	default:
		return fmt.Errorf("ai.locale must be en or zh-TW, got %q", c.AI.Locale)
	}
	switch c.Database.Driver {
	case "memory":
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be mysql, postgres or memory, got %q", c.Database.Driver)
	}
	if c.Minio.Endpoint != "" && c.Minio.BucketName == "" {
		return fmt.Errorf("minio.bucketName is required")
	}
	if c.Wizard.MaxImageBytes <= 0 {
		return fmt.Errorf("wizard.maxImageBytes must be positive")
	}
	if c.RateLimit.Capacity < 0 || c.RateLimit.PerMinute < 0 {
		return fmt.Errorf("rateLimit values must not be negative")
	}
	return nil
}

// APIKeyEnv is the env var holding the model key.
func (c *Config) APIKeyEnv() string {
	if c.AI.APIKeyEnv != "" {
		return c.AI.APIKeyEnv
	}
	if c.AI.Provider == "openai" {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// AIKey dibaca setiap kali dipanggil, jadi key yang di-rotate langsung kepakai tanpa restart.
func (c *Config) AIKey() string {
	if v := strings.TrimSpace(os.Getenv(c.APIKeyEnv())); v != "" {
		return v
	}
	return strings.TrimSpace(c.AI.APIKey)
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN untuk lib/pq
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name, ssl)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
