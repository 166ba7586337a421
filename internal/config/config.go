package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Redis      RedisConfig      `json:"redis"`
	Auth       AuthConfig       `json:"auth"`
	Governance GovernanceConfig `json:"governance"`
	Notify     NotifyConfig     `json:"notify"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type AuthConfig struct {
	JWTSecret      string `json:"-"` // env only, never in the config file
	JWTExpiryHours int    `json:"jwt_expiry_hours"`
}

type GovernanceConfig struct {
	SlowThresholdMs int          `json:"slow_threshold_ms"`
	HistoryCapacity int          `json:"history_capacity"`
	WindowSeconds   int          `json:"window_seconds"`
	Classes         []ClassLimit `json:"classes"`
}

type ClassLimit struct {
	Name              string `json:"name"`
	RequestsPerMinute int    `json:"requests_per_minute"`
}

type NotifyConfig struct {
	Provider   string     `json:"provider"`
	Recipients []string   `json:"recipients"`
	SMTP       SMTPConfig `json:"smtp"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// Load reads the JSON config file, then applies env-var overrides for
// secrets and deployment-specific values, then fills defaults. A missing
// file is not an error; everything can come from env and defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if file, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == "" {
		c.Redis.Port = "6379"
	}
	if c.Auth.JWTExpiryHours <= 0 {
		c.Auth.JWTExpiryHours = 24
	}
	if c.Governance.SlowThresholdMs <= 0 {
		c.Governance.SlowThresholdMs = 200
	}
	if c.Governance.HistoryCapacity <= 0 {
		c.Governance.HistoryCapacity = 1000
	}
	if c.Governance.WindowSeconds <= 0 {
		c.Governance.WindowSeconds = 60
	}
	if len(c.Governance.Classes) == 0 {
		c.Governance.Classes = []ClassLimit{
			{Name: "default", RequestsPerMinute: 120},
			{Name: "metrics", RequestsPerMinute: 30},
			{Name: "stats", RequestsPerMinute: 60},
			{Name: "auth", RequestsPerMinute: 20},
		}
	}
	if c.Notify.Provider == "" {
		c.Notify.Provider = "console"
	}
}

// GetRedisAddr returns host:port for the redis client.
func (c *RedisConfig) GetRedisAddr() string {
	return c.Host + ":" + c.Port
}
