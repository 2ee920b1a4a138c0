package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Discord      DiscordConfig      `yaml:"discord"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	Log          LogConfig          `yaml:"log"`
	Booking      BookingConfig      `yaml:"booking"`
	Notification NotificationConfig `yaml:"notification"`
	Sync         SyncConfig         `yaml:"sync"`
}

type HTTPConfig struct {
	Address     string   `yaml:"address"`
	CORSOrigins []string `yaml:"cors_origins"`
	RateLimit   string   `yaml:"rate_limit"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	UserTopic  string   `yaml:"user_topic"`
	AdminTopic string   `yaml:"admin_topic"`
	GroupID    string   `yaml:"group_id"`
}

type DiscordConfig struct {
	BotToken     string `yaml:"bot_token"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	ServerID     string `yaml:"server_id"`
	AdminRoleID  string `yaml:"admin_role_id"`
	ChannelID    string `yaml:"channel_id"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type BookingConfig struct {
	CatalogCacheTTL time.Duration `yaml:"catalog_cache_ttl"`
	CompleteEvery   time.Duration `yaml:"complete_every"`
}

type NotificationConfig struct {
	HistoryCapacity int `yaml:"history_capacity"`
	InboxCapacity   int `yaml:"inbox_capacity"`
	QueueSize       int `yaml:"queue_size"`
	Workers         int `yaml:"workers"`
}

// SyncConfig drives the dashboard snapshot. An empty APIBaseURL builds
// snapshots in process; otherwise they are pulled from that instance.
type SyncConfig struct {
	APIBaseURL   string        `yaml:"api_base_url"`
	AccessToken  string        `yaml:"access_token"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PageSize     int           `yaml:"page_size"`
}

// Load reads the optional yaml file at path, then the optional .env file,
// then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)

		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Database.URL == "" {
		return nil, errors.New("database url is required (DATABASE_URL)")
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTP.Address, "HTTP_ADDRESS")
	setList(&c.HTTP.CORSOrigins, "CORS_ORIGINS")
	setString(&c.HTTP.RateLimit, "RATE_LIMIT")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.Addr, "REDIS_URL")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setList(&c.Kafka.Brokers, "KAFKA_BROKERS")
	setString(&c.Discord.BotToken, "DISCORD_BOT_TOKEN")
	setString(&c.Discord.ClientID, "DISCORD_CLIENT_ID")
	setString(&c.Discord.ClientSecret, "DISCORD_CLIENT_SECRET")
	setString(&c.Discord.RedirectURI, "DISCORD_REDIRECT_URI")
	setString(&c.Discord.ServerID, "DISCORD_SERVER_ID")
	setString(&c.Discord.AdminRoleID, "DISCORD_ADMIN_ROLE_ID")
	setString(&c.Discord.ChannelID, "DISCORD_CHANNEL_ID")
	setString(&c.SMTP.Host, "SMTP_HOST")
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	setString(&c.SMTP.From, "SMTP_FROM")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.File, "LOG_FILE")
	setString(&c.Sync.APIBaseURL, "API_BASE_URL")
	setString(&c.Sync.AccessToken, "API_ACCESS_TOKEN")

	if v, ok := os.LookupEnv("SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		c.SMTP.Port = port
	}

	if v, ok := os.LookupEnv("SYNC_POLL_INTERVAL"); ok && v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_POLL_INTERVAL: %w", err)
		}
		c.Sync.PollInterval = interval
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":9090"
	}
	if c.HTTP.RateLimit == "" {
		c.HTTP.RateLimit = "100-M"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "camping:"
	}
	if c.Kafka.UserTopic == "" {
		c.Kafka.UserTopic = "booking-events"
	}
	if c.Kafka.AdminTopic == "" {
		c.Kafka.AdminTopic = "booking-admin-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "camping-dashboard"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Booking.CatalogCacheTTL == 0 {
		c.Booking.CatalogCacheTTL = 5 * time.Minute
	}
	if c.Booking.CompleteEvery == 0 {
		c.Booking.CompleteEvery = time.Hour
	}
	if c.Notification.HistoryCapacity == 0 {
		c.Notification.HistoryCapacity = 50
	}
	if c.Notification.InboxCapacity == 0 {
		c.Notification.InboxCapacity = 100
	}
	if c.Notification.QueueSize == 0 {
		c.Notification.QueueSize = 256
	}
	if c.Notification.Workers == 0 {
		c.Notification.Workers = 2
	}
	if c.Sync.PollInterval == 0 {
		c.Sync.PollInterval = 30 * time.Second
	}
	if c.Sync.PageSize == 0 {
		c.Sync.PageSize = 100
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)

	if !ok || strings.TrimSpace(v) == "" {
		return
	}

	var items []string

	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	*dst = items
}
