package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	MarketData struct {
		Token          string        `yaml:"token"`
		BaseURL        string        `yaml:"base_url"`
		CallsPerMinute int           `yaml:"calls_per_minute"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxRetries     int           `yaml:"max_retries"`
		BarLookback    int           `yaml:"bar_lookback_days"`
	} `yaml:"marketdata"`
	Earnings struct {
		FMPAPIKey     string `yaml:"fmp_api_key"`
		RefreshPerDay int    `yaml:"refresh_per_day"`
	} `yaml:"earnings"`
	Universe []TickerConfig `yaml:"universe"`
	Scan     struct {
		Concurrency   int           `yaml:"concurrency"`
		Schedule      string        `yaml:"schedule"` // cron spec, trading days
		Timezone      string        `yaml:"timezone"`
		RetryDelay    time.Duration `yaml:"retry_delay"`
		HistoryWindow int           `yaml:"history_window_days"` // charting window
		RankLookback  int           `yaml:"rank_lookback_days"`  // IV rank window
	} `yaml:"scan"`
	Scoring struct {
		MinIVRank       float64 `yaml:"min_iv_rank"`
		MinVRP          float64 `yaml:"min_vrp"`
		MaxRVAccel      float64 `yaml:"max_rv_accel"`
		MaxSkew         float64 `yaml:"max_skew"`
		EarningsGateDTE int     `yaml:"earnings_gate_dte"`
	} `yaml:"scoring"`
	Storage struct {
		Backend string `yaml:"backend"` // sqlite | clickhouse
		SQLite  struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		ClickHouse struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Database     string        `yaml:"database"`
			User         string        `yaml:"user"`
			Password     string        `yaml:"password"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"clickhouse"`
	} `yaml:"storage"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Events struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"events"`
}

type TickerConfig struct {
	Ticker string `yaml:"ticker"`
	Name   string `yaml:"name"`
	Sector string `yaml:"sector"`
	ETF    bool   `yaml:"etf"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MARKETDATA_TOKEN"); v != "" {
		c.MarketData.Token = v
	}
	if v := os.Getenv("FMP_API_KEY"); v != "" {
		c.Earnings.FMPAPIKey = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.MarketData.BaseURL == "" {
		c.MarketData.BaseURL = "https://api.marketdata.app"
	}
	if c.MarketData.CallsPerMinute <= 0 {
		c.MarketData.CallsPerMinute = 15
	}
	if c.MarketData.Timeout <= 0 {
		c.MarketData.Timeout = 30 * time.Second
	}
	if c.MarketData.MaxRetries <= 0 {
		c.MarketData.MaxRetries = 5
	}
	if c.MarketData.BarLookback <= 0 {
		c.MarketData.BarLookback = 180
	}
	if c.Earnings.RefreshPerDay <= 0 {
		c.Earnings.RefreshPerDay = 3
	}
	if c.Scan.Concurrency <= 0 {
		c.Scan.Concurrency = 2
	}
	if c.Scan.Schedule == "" {
		c.Scan.Schedule = "30 18 * * 1-5" // 6:30 PM, Mon-Fri
	}
	if c.Scan.Timezone == "" {
		c.Scan.Timezone = "America/New_York"
	}
	if c.Scan.RetryDelay <= 0 {
		c.Scan.RetryDelay = 5 * time.Minute
	}
	if c.Scan.HistoryWindow <= 0 {
		c.Scan.HistoryWindow = 120
	}
	if c.Scan.RankLookback <= 0 {
		c.Scan.RankLookback = 252
	}
	if c.Scoring.MinIVRank == 0 {
		c.Scoring.MinIVRank = 60
	}
	if c.Scoring.MinVRP == 0 {
		c.Scoring.MinVRP = 3.0
	}
	if c.Scoring.MaxRVAccel == 0 {
		c.Scoring.MaxRVAccel = 1.15
	}
	if c.Scoring.MaxSkew == 0 {
		c.Scoring.MaxSkew = 15.0
	}
	if c.Scoring.EarningsGateDTE <= 0 {
		c.Scoring.EarningsGateDTE = 14
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "data/vol_history.db"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Universe) == 0 {
		return fmt.Errorf("universe cannot be empty")
	}
	for _, t := range c.Universe {
		if t.Ticker == "" {
			return fmt.Errorf("universe entry missing ticker")
		}
	}
	if c.Storage.Backend != "sqlite" && c.Storage.Backend != "clickhouse" {
		return fmt.Errorf("storage.backend must be 'sqlite' or 'clickhouse', got '%s'", c.Storage.Backend)
	}
	if c.Storage.Backend == "clickhouse" && c.Storage.ClickHouse.Host == "" {
		return fmt.Errorf("storage.clickhouse.host is required for the clickhouse backend")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers cannot be empty when events are enabled")
	}
	return nil
}
