package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all simulator configuration.
//
// Values come from, in increasing precedence: built-in defaults, a .env file,
// process environment variables, and an optional YAML file.
type Config struct {
	// Simulation
	Symbol         string        `yaml:"symbol"`
	ShortWindow    int           `yaml:"short_window"`
	LongWindow     int           `yaml:"long_window"`
	RSIPeriod      int           `yaml:"rsi_period"`
	InitialBalance float64       `yaml:"initial_balance"`
	TradeQty       int64         `yaml:"trade_qty"`
	AutoTrade      bool          `yaml:"auto_trade"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	Year           int           `yaml:"year"` // calendar year replayed; 0 = last year

	// Data
	CSVPath    string `yaml:"csv_path"`
	SQLitePath string `yaml:"sqlite_path"`

	// Infrastructure
	RedisAddr     string `yaml:"redis_addr"` // empty disables snapshot publishing
	RedisPassword string `yaml:"redis_password"`
	RedisChannel  string `yaml:"redis_channel"`
	GatewayAddr   string `yaml:"gateway_addr"`
	MetricsAddr   string `yaml:"metrics_addr"`
	WebhookURL    string `yaml:"webhook_url"` // empty disables trade alerts

	LogLevel string `yaml:"log_level"`
}

// Load reads configuration. envFile may name a dotenv file (missing files are
// ignored); yamlPath, when non-empty, is applied on top of the environment.
func Load(envFile, yamlPath string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Symbol:         getEnv("SYMBOL", "IBM"),
		ShortWindow:    getEnvInt("SMA_SHORT", 50),
		LongWindow:     getEnvInt("SMA_LONG", 100),
		RSIPeriod:      getEnvInt("RSI_PERIOD", 14),
		InitialBalance: getEnvFloat("INITIAL_BALANCE", 100000),
		TradeQty:       int64(getEnvInt("TRADE_QTY", 10)),
		AutoTrade:      getEnvBool("AUTO_TRADE", true),
		TickInterval:   getEnvDuration("TICK_INTERVAL", 100*time.Millisecond),
		Year:           getEnvInt("REPLAY_YEAR", 0),

		CSVPath:    getEnv("CSV_PATH", ""),
		SQLitePath: getEnv("SQLITE_PATH", "data/papersim.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisChannel:  getEnv("REDIS_CHANNEL", "pub:sim"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":3001"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", yamlPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the simulator cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Symbol) == "" {
		errs = append(errs, errors.New("symbol is required"))
	}
	if c.ShortWindow <= 0 || c.LongWindow <= 0 {
		errs = append(errs, errors.New("SMA windows must be positive"))
	} else if c.ShortWindow >= c.LongWindow {
		errs = append(errs, fmt.Errorf("short window %d must be below long window %d", c.ShortWindow, c.LongWindow))
	}
	if c.InitialBalance < 0 {
		errs = append(errs, errors.New("initial balance must not be negative"))
	}
	if c.TradeQty <= 0 {
		errs = append(errs, errors.New("trade quantity must be positive"))
	}
	if c.TickInterval < 0 {
		errs = append(errs, errors.New("tick interval must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ReplayYear returns the calendar year to replay relative to now.
func (c *Config) ReplayYear(now time.Time) int {
	if c.Year > 0 {
		return c.Year
	}
	return now.Year() - 1
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("[config] ignoring invalid integer", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		slog.Warn("[config] ignoring invalid number", "key", key, "value", v)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("[config] ignoring invalid boolean", "key", key, "value", v)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("[config] ignoring invalid duration", "key", key, "value", v)
		return fallback
	}
	return d
}
