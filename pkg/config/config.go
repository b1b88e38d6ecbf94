package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MarketPulse/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"5000" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout"` // 0 keeps progress streams open
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Analysis struct {
		ReportPath       string        `yaml:"report_path" default:"market_analysis_report.json" validate:"required"`
		IdleTimeout      time.Duration `yaml:"idle_timeout" default:"60s" validate:"gt=0"`
		MaxJobs          int           `yaml:"max_jobs" default:"256" validate:"gt=0"`
		Retention        time.Duration `yaml:"retention" default:"10m" validate:"gt=0"`
		SweepInterval    time.Duration `yaml:"sweep_interval" default:"1m" validate:"gt=0"`
		NewsLookback     time.Duration `yaml:"news_lookback" default:"48h" validate:"gt=0"`
		PriceLookback    time.Duration `yaml:"price_lookback" default:"24h" validate:"gt=0"`
		VolatilityWindow int           `yaml:"volatility_window" default:"3" validate:"gte=2"`
		RidgeLambda      float64       `yaml:"ridge_lambda" default:"1" validate:"gte=0"`
		Schedule         string        `yaml:"schedule"`
	} `yaml:"analysis"`
	Tickers struct {
		Source       string        `yaml:"source" default:"wikipedia" validate:"oneof=wikipedia static"`
		Symbols      []string      `yaml:"symbols"`
		WikipediaURL string        `yaml:"wikipedia_url" default:"https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"24h"`
		Timeout      time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"tickers"`
	News struct {
		UseMock bool          `yaml:"use_mock"`
		Timeout time.Duration `yaml:"timeout" default:"15s"`
		NewsAPI struct {
			APIKey   string `yaml:"api_key"`
			URL      string `yaml:"url" default:"https://newsapi.org/v2/everything"`
			Query    string `yaml:"query" default:"stock OR market OR finance OR economy"`
			Language string `yaml:"language" default:"en"`
			PageSize int    `yaml:"page_size" default:"100" validate:"gt=0,lte=100"`
		} `yaml:"newsapi"`
		RSS struct {
			Feeds []string `yaml:"feeds"`
		} `yaml:"rss"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"5m"`
	} `yaml:"news"`
	Prices struct {
		Source   string        `yaml:"source" default:"yahoo" validate:"oneof=yahoo clickhouse mock"`
		Interval string        `yaml:"interval" default:"1h"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		Yahoo    struct {
			BaseURL string  `yaml:"base_url" default:"https://query1.finance.yahoo.com/v8/finance/chart"`
			RPS     float64 `yaml:"rps" default:"5" validate:"gt=0"`
			Burst   int     `yaml:"burst" default:"5" validate:"gt=0"`
			Workers int     `yaml:"workers" default:"4" validate:"gt=0"`
		} `yaml:"yahoo"`
		ClickHouseTable string `yaml:"clickhouse_table" default:"marketpulse.candles_1h"`
	} `yaml:"prices"`
	Sentiment struct {
		Source     string        `yaml:"source" default:"lexicon" validate:"oneof=lexicon http"`
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout" default:"3s"`
	} `yaml:"sentiment"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity" default:"5" validate:"gt=0"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"0.2" validate:"gt=0"`
	} `yaml:"ratelimit"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		EventsTopic   string   `yaml:"events_topic" default:"analysis.events"`
		RequestsTopic string   `yaml:"requests_topic"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"marketpulse"`
			Workers    int           `yaml:"workers" default:"1"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"marketpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Default returns a configuration populated only from default tags.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills unset fields from defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
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
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("NEWSAPI_KEY"); v != "" {
		c.News.NewsAPI.APIKey = v
	}
	if v := getenv("NEWS_API_KEY"); v != "" {
		c.News.NewsAPI.APIKey = v
	}
	if v := getenv("USE_MOCK_DATA"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.News.UseMock = b
			if b {
				c.Prices.Source = "mock"
			}
		}
	}
	if v := getenv("PRICE_SOURCE"); v != "" {
		c.Prices.Source = v
	}
	if v := getenv("TICKERS"); v != "" {
		c.Tickers.Source = "static"
		c.Tickers.Symbols = splitList(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = v
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("REPORT_PATH"); v != "" {
		c.Analysis.ReportPath = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Tickers.Source == "static" && len(c.Tickers.Symbols) == 0 {
		return fmt.Errorf("tickers.symbols cannot be empty when tickers.source is static")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if _, ok := util.ParseInterval(c.Prices.Interval); !ok {
		return fmt.Errorf("prices.interval %q is not a valid bar interval", c.Prices.Interval)
	}
	if c.Prices.Source == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("prices.source clickhouse requires clickhouse.enabled")
	}
	if c.Sentiment.Source == "http" && c.Sentiment.ServiceURL == "" {
		return fmt.Errorf("sentiment.service_url is required when sentiment.source is http")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
