package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Ledger        LedgerConfig        `mapstructure:"ledger"`
	Payout        PayoutConfig        `mapstructure:"payout"`
	Transfer      TransferConfig      `mapstructure:"transfer"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Webhook       WebhookConfig       `mapstructure:"webhook"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// LedgerConfig carries the split percentages and settlement windows.
// All *_pct values are fractions in [0, 1), never 0-100 numbers.
type LedgerConfig struct {
	Currency       string        `mapstructure:"currency"`
	PlatformFeePct float64       `mapstructure:"platform_fee_pct"`
	ReservePct     float64       `mapstructure:"reserve_pct"`
	ClearanceHold  time.Duration `mapstructure:"clearance_hold"`
	ReserveHold    time.Duration `mapstructure:"reserve_hold"`
}

type PayoutConfig struct {
	MinimumAmount int64         `mapstructure:"minimum_amount"`
	ExpressFeePct float64       `mapstructure:"express_fee_pct"`
	StandardDelay time.Duration `mapstructure:"standard_delay"`
	ExpressDelay  time.Duration `mapstructure:"express_delay"`
}

type TransferConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type QueueConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Concurrency   int    `mapstructure:"concurrency"`
}

type WebhookConfig struct {
	SigningSecret string `mapstructure:"signing_secret"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a Config entirely from environment variables,
// used for containerized deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:           getEnv("SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_SOURCE", ""),
		},
		Ledger: LedgerConfig{
			Currency:       getEnv("LEDGER_CURRENCY", "EUR"),
			PlatformFeePct: getEnvAsFloat("LEDGER_PLATFORM_FEE_PCT", 0.10),
			ReservePct:     getEnvAsFloat("LEDGER_RESERVE_PCT", 0.10),
			ClearanceHold:  getEnvAsDuration("LEDGER_CLEARANCE_HOLD", 72*time.Hour),
			ReserveHold:    getEnvAsDuration("LEDGER_RESERVE_HOLD", 720*time.Hour),
		},
		Payout: PayoutConfig{
			MinimumAmount: int64(getEnvAsInt("PAYOUT_MINIMUM_AMOUNT", 5000)),
			ExpressFeePct: getEnvAsFloat("PAYOUT_EXPRESS_FEE_PCT", 0.03),
			StandardDelay: getEnvAsDuration("PAYOUT_STANDARD_DELAY", 168*time.Hour),
			ExpressDelay:  getEnvAsDuration("PAYOUT_EXPRESS_DELAY", 24*time.Hour),
		},
		Transfer: TransferConfig{
			BaseURL: getEnv("TRANSFER_BASE_URL", ""),
			APIKey:  getEnv("TRANSFER_API_KEY", ""),
			Timeout: getEnvAsDuration("TRANSFER_TIMEOUT", 30*time.Second),
		},
		Queue: QueueConfig{
			RedisAddr:     getEnv("QUEUE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("QUEUE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("QUEUE_REDIS_DB", 0),
			Concurrency:   getEnvAsInt("QUEUE_CONCURRENCY", 10),
		},
		Webhook: WebhookConfig{
			SigningSecret: getEnv("WEBHOOK_SIGNING_SECRET", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Ledger.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("ledger config: %v", err))
	}

	if err := c.Payout.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payout config: %v", err))
	}

	if err := c.Transfer.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("transfer config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *LedgerConfig) Validate() error {
	if err := validateFraction("platform_fee_pct", c.PlatformFeePct); err != nil {
		return err
	}
	if err := validateFraction("reserve_pct", c.ReservePct); err != nil {
		return err
	}
	if c.Currency == "" {
		return errors.New("currency is required")
	}
	if c.ClearanceHold < 0 || c.ReserveHold < 0 {
		return errors.New("hold windows cannot be negative")
	}
	return nil
}

func (c *PayoutConfig) Validate() error {
	if c.MinimumAmount < 0 {
		return errors.New("minimum_amount cannot be negative")
	}
	if err := validateFraction("express_fee_pct", c.ExpressFeePct); err != nil {
		return err
	}
	if c.StandardDelay <= 0 || c.ExpressDelay <= 0 {
		return errors.New("payout delays must be positive")
	}
	return nil
}

func (c *TransferConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	return nil
}

// validateFraction rejects the 0-100 convention outright: anything >= 1 is a
// misconfigured percentage, not a bigger fee.
func validateFraction(name string, v float64) error {
	if v < 0 || v >= 1 {
		return fmt.Errorf("%s must be a fraction in [0, 1), got %v", name, v)
	}
	return nil
}
