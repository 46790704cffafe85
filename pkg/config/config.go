package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level            string        `yaml:"level" default:"info"`
		Format           string        `yaml:"format" default:"console"`
		Output           string        `yaml:"output" default:"stdout"`
		CollectInterval  time.Duration `yaml:"collect_interval" default:"30s"`
		CollectThreshold int           `yaml:"collect_threshold" default:"100"`
	} `yaml:"log"`
	Feed Feed `yaml:"feed"`
	Calendar struct {
		Timezone       string `yaml:"timezone" default:"America/New_York"`
		OpenHour       int    `yaml:"open_hour" default:"18"`
		CloseHour      int    `yaml:"close_hour" default:"17"`
		BreakStartHour int    `yaml:"break_start_hour" default:"17"`
		BreakEndHour   int    `yaml:"break_end_hour" default:"18"`
	} `yaml:"calendar"`
	Polling struct {
		Interval         time.Duration `yaml:"interval" default:"5m"`
		ConfirmInterval  time.Duration `yaml:"confirm_interval" default:"2m"`
		SameThreshold    int           `yaml:"same_threshold" default:"2"`
		ConfirmThreshold int           `yaml:"confirm_threshold" default:"5"`
		Epsilon          float64       `yaml:"epsilon" default:"0.000001"`
	} `yaml:"polling"`
	Reference struct {
		Horizons     []int         `yaml:"horizons"`
		MaxLookback  int           `yaml:"max_lookback" default:"10"`
		MedianWindow int           `yaml:"median_window" default:"14"`
		RefreshCron  string        `yaml:"refresh_cron" default:"10 0 * * *"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"24h"`
	} `yaml:"reference"`
	Pricing struct {
		SpreadPct float64 `yaml:"spread_pct" default:"1.5"`
		Tiers     []struct {
			MinQuantity float64 `yaml:"min_quantity"`
			DiscountPct float64 `yaml:"discount_pct"`
		} `yaml:"tiers"`
	} `yaml:"pricing"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"spotwatch.transitions"`
		LogTopic     string   `yaml:"log_topic" default:"spotwatch.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		MaxAttempts  int      `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"spotwatch"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

// Feed configures the spot price provider client.
type Feed struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Symbol  string        `yaml:"symbol" default:"XAU"`
	Timeout time.Duration `yaml:"timeout" default:"15s"`
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

	// Fill zero-valued fields from struct tags.
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(c.Reference.Horizons) == 0 {
		c.Reference.Horizons = []int{1, 30, 365}
	}

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

	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("FEED_BASE_URL"); v != "" {
		c.Feed.BaseURL = v
	}
	if v := os.Getenv("FEED_SYMBOL"); v != "" {
		c.Feed.Symbol = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	return c, nil
}

// Validate checks if the configuration is valid. A bad timezone or
// schedule makes trading bounds uncomputable, so these are startup-fatal.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Feed.APIKey == "" {
		return fmt.Errorf("feed.api_key is required")
	}
	if c.Feed.Symbol == "" {
		return fmt.Errorf("feed.symbol is required")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("calendar.timezone %q: %w", c.Calendar.Timezone, err)
	}
	for name, h := range map[string]int{
		"calendar.open_hour":        c.Calendar.OpenHour,
		"calendar.close_hour":       c.Calendar.CloseHour,
		"calendar.break_start_hour": c.Calendar.BreakStartHour,
		"calendar.break_end_hour":   c.Calendar.BreakEndHour,
	} {
		if h < 0 || h > 23 {
			return fmt.Errorf("%s must be within 0..23, got %d", name, h)
		}
	}
	if c.Polling.Interval <= 0 || c.Polling.ConfirmInterval <= 0 {
		return fmt.Errorf("polling intervals must be positive")
	}
	if c.Polling.SameThreshold < 1 || c.Polling.ConfirmThreshold < 1 {
		return fmt.Errorf("polling thresholds must be at least 1")
	}
	if c.Polling.Epsilon <= 0 {
		return fmt.Errorf("polling.epsilon must be positive")
	}
	for _, h := range c.Reference.Horizons {
		if h < 1 {
			return fmt.Errorf("reference.horizons must be positive day counts, got %d", h)
		}
	}
	if c.Reference.MaxLookback < 1 {
		return fmt.Errorf("reference.max_lookback must be at least 1")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
