package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Server   ServerConfig   `yaml:"server"`
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ScraperConfig struct {
	Headless            bool          `yaml:"headless"`
	UserAgent           string        `yaml:"user_agent"`
	NavTimeout          time.Duration `yaml:"nav_timeout"`           // league results page navigation
	DetailTimeout       time.Duration `yaml:"detail_timeout"`        // match detail page navigation
	PaginationWait      time.Duration `yaml:"pagination_wait"`       // wait for new rows after a "show more" click
	MaxPaginationClicks int           `yaml:"max_pagination_clicks"` // hard bound on pagination expansion
	GoalWorkers         int           `yaml:"goal_workers"`          // concurrent goal-detail scrapes per run, 0 disables
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads the yaml config file and applies .env / environment overrides
// for credentials (DATABASE_URL, TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID).
func Load(configPath string) (*Config, error) {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Postgres.DSN = dsn
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.BotToken = token
	}
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if c.Scraper.NavTimeout <= 0 {
		c.Scraper.NavTimeout = 60 * time.Second
	}
	if c.Scraper.DetailTimeout <= 0 {
		c.Scraper.DetailTimeout = 30 * time.Second
	}
	if c.Scraper.PaginationWait <= 0 {
		c.Scraper.PaginationWait = 10 * time.Second
	}
	if c.Scraper.MaxPaginationClicks <= 0 {
		c.Scraper.MaxPaginationClicks = 100
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = 10 * time.Second
	}
}
