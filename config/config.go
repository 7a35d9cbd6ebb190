package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type AppConfig struct {
	Env           string `yaml:"env"`
	DefaultLocale string `yaml:"default_locale"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers             []string `yaml:"brokers"`
	BookingChangesTopic string   `yaml:"booking_changes_topic"`
	GroupID             string   `yaml:"group_id"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type BookingConfig struct {
	ProcessingLockSeconds int `yaml:"processing_lock_seconds"`
	PilotsCacheTTLSeconds int `yaml:"pilots_cache_ttl_seconds"`
}

// WorkerConfig drives cmd/worker. Notices go out over SMTP when SMTP.Host is
// set, otherwise they are handed to NoticesTopic for an external mailer.
type WorkerConfig struct {
	GroupID      string     `yaml:"group_id"`
	NoticeFrom   string     `yaml:"notice_from"`
	MaxRetries   int        `yaml:"max_retries"`
	NoticesTopic string     `yaml:"notices_topic"`
	SMTP         SMTPConfig `yaml:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoadConfig reads .env (if any), then the YAML file at path. Secrets set in
// the environment take precedence over the file.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret (or JWT_SECRET) is required")
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Worker.SMTP.Password = v
	}
	if v := os.Getenv("ENV"); v != "" {
		c.App.Env = v
	}
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.App.DefaultLocale == "" {
		c.App.DefaultLocale = "ka"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Kafka.BookingChangesTopic == "" {
		c.Kafka.BookingChangesTopic = "booking_changes"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "paraglide-dashboard"
	}
	if c.Booking.ProcessingLockSeconds <= 0 {
		c.Booking.ProcessingLockSeconds = 30
	}
	if c.Booking.PilotsCacheTTLSeconds <= 0 {
		c.Booking.PilotsCacheTTLSeconds = 60
	}
	if c.Worker.GroupID == "" {
		c.Worker.GroupID = "paraglide-notifier"
	}
	if c.Worker.MaxRetries <= 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.NoticesTopic == "" {
		c.Worker.NoticesTopic = "booking_notices"
	}
	if c.Worker.SMTP.Port == 0 {
		c.Worker.SMTP.Port = 587
	}
}
