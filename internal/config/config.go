package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Trading  TradingConfig  `yaml:"trading"`
	Telegram TelegramConfig `yaml:"telegram"`
	Web      WebConfig      `yaml:"web"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ExchangeConfig struct {
	MainnetURL     string `yaml:"mainnet_url"`
	TestnetURL     string `yaml:"testnet_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RecvWindowMS   int    `yaml:"recv_window_ms"`
}

type TradingConfig struct {
	Interval          string `yaml:"interval"`
	CandleLimit       int    `yaml:"candle_limit"`
	OpenInterestLimit int    `yaml:"open_interest_limit"`
}

type TelegramConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Exchange.MainnetURL == "" {
		cfg.Exchange.MainnetURL = "https://api.bybit.com"
	}
	if cfg.Exchange.TestnetURL == "" {
		cfg.Exchange.TestnetURL = "https://api-testnet.bybit.com"
	}
	if cfg.Exchange.TimeoutSeconds == 0 {
		cfg.Exchange.TimeoutSeconds = 15
	}
	if cfg.Exchange.RecvWindowMS == 0 {
		cfg.Exchange.RecvWindowMS = 5000
	}
	if cfg.Trading.Interval == "" {
		cfg.Trading.Interval = "1m"
	}
	if cfg.Trading.CandleLimit == 0 {
		cfg.Trading.CandleLimit = 200
	}
	if cfg.Trading.OpenInterestLimit == 0 {
		cfg.Trading.OpenInterestLimit = 50
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 20
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}
}

func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Trading.Interval); err != nil {
		return fmt.Errorf("invalid trading.interval %q: %w", c.Trading.Interval, err)
	}
	if c.Trading.CandleLimit < 50 {
		return fmt.Errorf("trading.candle_limit must be at least 50")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}
	return nil
}

func (c *Config) TradingInterval() time.Duration {
	d, _ := time.ParseDuration(c.Trading.Interval)
	return d
}

func (c *Config) ExchangeTimeout() time.Duration {
	return time.Duration(c.Exchange.TimeoutSeconds) * time.Second
}
