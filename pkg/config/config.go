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

	"github.com/doby176/light/pkg/logger"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		// per-IP token bucket in front of every route
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"server"`
	Logger  logger.Config `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		URL      string        `yaml:"url"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"redis"`
	Limits struct {
		Window        time.Duration `yaml:"window"`
		MainActions   int           `yaml:"main_actions"`
		GapInsights   int           `yaml:"gap_insights"`
		SampleActions int           `yaml:"sample_actions"`
		SampleCalls   int           `yaml:"sample_calls"`
	} `yaml:"limits"`
	Data struct {
		DBDir          string   `yaml:"db_dir"`
		Tickers        []string `yaml:"tickers"`
		GapCSV         string   `yaml:"gap_csv"`
		NewsEventsCSV  string   `yaml:"news_events_csv"`
		EarningsCSV    string   `yaml:"earnings_csv"`
		EconomicCSV    string   `yaml:"economic_csv"`
		EventMetricCSV string   `yaml:"event_metrics_csv"`
		UsersDB        string   `yaml:"users_db"`
	} `yaml:"data"`
	Candles struct {
		Backend  string `yaml:"backend"` // sqlite | clickhouse
		Timezone string `yaml:"timezone"`
	} `yaml:"candles"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		MaxExecution time.Duration `yaml:"max_execution_time"`
		Table        string        `yaml:"table"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		ActionTopic  string        `yaml:"action_topic"`
		LogTopic     string        `yaml:"log_topic"`
		QuoteTopic   string        `yaml:"quote_topic"`
		GroupID      string        `yaml:"group_id"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		BatchSize    int           `yaml:"batch_size"`
		Linger       time.Duration `yaml:"linger"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
	Quote struct {
		URL          string        `yaml:"url"`
		Symbol       string        `yaml:"symbol"`
		Timeout      time.Duration `yaml:"timeout"`
		RefreshCron  string        `yaml:"refresh_cron"`
		Timezone     string        `yaml:"timezone"`
		MirrorTTL    time.Duration `yaml:"mirror_ttl"`
		PingInterval time.Duration `yaml:"ping_interval"`
	} `yaml:"quote"`
	Backup struct {
		Enabled    bool          `yaml:"enabled"`
		Bucket     string        `yaml:"bucket"`
		Key        string        `yaml:"key"`
		Region     string        `yaml:"region"`
		Workers    int           `yaml:"workers"`
		MaxRetries int           `yaml:"max_retries"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"backup"`
	Auth struct {
		CookieName string        `yaml:"cookie_name"`
		SessionTTL time.Duration `yaml:"session_ttl"`
		BcryptCost int           `yaml:"bcrypt_cost"`
		Secure     bool          `yaml:"secure_cookie"`
	} `yaml:"auth"`
	Sample struct {
		Tickers    []string `yaml:"tickers"`
		Years      []int    `yaml:"years"`
		EventTypes []string `yaml:"event_types"`
		MaxDates   int      `yaml:"max_dates"`
		GapBins    []string `yaml:"gap_bins"`
	} `yaml:"sample"`
}

// Default returns the configuration the service runs with when no file is given.
func Default() *Config {
	var c Config
	c.Environment = "development"
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 5000
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.RequestsPerSecond = 20
	c.Server.Burst = 40
	c.Logger = logger.Config{Level: "info", Format: "console", Output: "stdout", Service: "light"}
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Redis.Addr = "localhost:6379"
	c.Redis.Prefix = "light"
	c.Redis.Timeout = time.Second
	c.Limits.Window = 12 * time.Hour
	c.Limits.MainActions = 10
	c.Limits.GapInsights = 2
	c.Limits.SampleActions = 3
	c.Limits.SampleCalls = 3
	c.Data.DBDir = "data/db"
	c.Data.Tickers = []string{"QQQ", "AAPL", "MSFT", "TSLA", "ORCL", "NVDA", "MSTR", "UBER", "PLTR", "META"}
	c.Data.GapCSV = "data/qqq_central_data_updated.csv"
	c.Data.NewsEventsCSV = "data/news_events.csv"
	c.Data.EarningsCSV = "data/earnings_data.csv"
	c.Data.EconomicCSV = "data/economic_data_binned.csv"
	c.Data.EventMetricCSV = "data/event_analysis_metrics.csv"
	c.Data.UsersDB = "users.db"
	c.Candles.Backend = "sqlite"
	c.Candles.Timezone = "America/New_York"
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "market"
	c.ClickHouse.DialTimeout = 5 * time.Second
	c.ClickHouse.ReadTimeout = 30 * time.Second
	c.ClickHouse.MaxExecution = 60 * time.Second
	c.ClickHouse.Table = "market.candles_1m"
	c.Kafka.ActionTopic = "light.actions"
	c.Kafka.LogTopic = "light.logs"
	c.Kafka.QuoteTopic = "light.quotes"
	c.Kafka.GroupID = "light"
	c.Kafka.RequiredAcks = 1
	c.Kafka.Compression = "snappy"
	c.Kafka.BatchSize = 100
	c.Kafka.Linger = 50 * time.Millisecond
	c.Kafka.WriteTimeout = 5 * time.Second
	c.Kafka.Async = true
	c.Quote.URL = "https://www.cnbc.com/quotes/QQQ"
	c.Quote.Symbol = "QQQ"
	c.Quote.Timeout = 10 * time.Second
	c.Quote.RefreshCron = "31 9 * * 1-5"
	c.Quote.Timezone = "America/New_York"
	c.Quote.MirrorTTL = 24 * time.Hour
	c.Quote.PingInterval = 30 * time.Second
	c.Backup.Bucket = "onemchart-backup"
	c.Backup.Key = "users.db_latest"
	c.Backup.Region = "us-west-2"
	c.Backup.Workers = 1
	c.Backup.MaxRetries = 3
	c.Backup.RetryDelay = 30 * time.Second
	c.Auth.CookieName = "session_id"
	c.Auth.SessionTTL = 30 * 24 * time.Hour
	c.Auth.BcryptCost = 10
	c.Sample.Tickers = []string{"QQQ", "NVDA"}
	c.Sample.Years = []int{2023, 2024}
	c.Sample.EventTypes = []string{"CPI", "FOMC"}
	c.Sample.MaxDates = 20
	c.Sample.GapBins = []string{"0.15-0.35%", "0.35-0.5%", "0.5-1%", "1-1.5%", "1.5%+"}
	return &c
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if present) and the YAML file, then applies
// environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Redis.Enabled = true
		c.Redis.URL = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("CANDLES_BACKEND"); v != "" {
		c.Candles.Backend = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("AWS_S3_BUCKET"); v != "" {
		c.Backup.Bucket = v
	}
	if v := getenv("AWS_REGION"); v != "" {
		c.Backup.Region = v
	}
	if v := getenv("BACKUP_ENABLED"); v != "" {
		c.Backup.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := getenv("USERS_DB"); v != "" {
		c.Data.UsersDB = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Environment == "" {
		errs = append(errs, errors.New("environment is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Limits.Window <= 0 {
		errs = append(errs, errors.New("limits.window must be positive"))
	}
	for name, v := range map[string]int{
		"limits.main_actions":   c.Limits.MainActions,
		"limits.gap_insights":   c.Limits.GapInsights,
		"limits.sample_actions": c.Limits.SampleActions,
		"limits.sample_calls":   c.Limits.SampleCalls,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if len(c.Data.Tickers) == 0 {
		errs = append(errs, errors.New("data.tickers is required"))
	}
	switch c.Candles.Backend {
	case "sqlite":
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			errs = append(errs, errors.New("clickhouse.host is required for the clickhouse candle backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("candles.backend must be sqlite or clickhouse, got %q", c.Candles.Backend))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		errs = append(errs, errors.New("backup.bucket is required when backup is enabled"))
	}
	if c.Quote.URL == "" {
		errs = append(errs, errors.New("quote.url is required"))
	}
	if _, err := time.LoadLocation(c.Quote.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("quote.timezone: %w", err))
	}
	return errors.Join(errs...)
}
