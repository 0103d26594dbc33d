package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Report   ReportConfig
	Log      LogConfig
	Database DatabaseConfig
	Feed     FeedConfig
	Trades   []TradeConfig
}

// ReportConfig defines the report-related settings.
type ReportConfig struct {
	ThresholdBps float64 `mapstructure:"threshold_bps"`
	Currency     string  `mapstructure:"currency"`
	ChartPath    string  `mapstructure:"chart_path"`
	TradesFile   string  `mapstructure:"trades_file"`
	Persist      bool    `mapstructure:"persist"`
}

// LogConfig defines the logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig defines the database connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the connection string for the configured database.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// FeedConfig defines the live fill feed settings.
type FeedConfig struct {
	Kind           string `mapstructure:"kind"`
	URL            string `mapstructure:"url"`
	Subscribe      string `mapstructure:"subscribe"`
	MaxFills       int    `mapstructure:"max_fills"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// TradeConfig is one trade of the configured default dataset.
type TradeConfig struct {
	Product        string  `mapstructure:"product"`
	Broker         string  `mapstructure:"broker"`
	Quantity       float64 `mapstructure:"quantity"`
	ExecutionPrice float64 `mapstructure:"execution_price"`
	ArrivalPrice   float64 `mapstructure:"arrival_price"`
}

// DefaultTrades is the sample trading day used when no trades are configured.
func DefaultTrades() []TradeConfig {
	return []TradeConfig{
		{Product: "LVMH", Broker: "BNP", Quantity: 5000, ExecutionPrice: 596.70, ArrivalPrice: 593.50},
		{Product: "E-Mini S&P 500 Mar 26", Broker: "JPM", Quantity: 2000, ExecutionPrice: 6949.50, ArrivalPrice: 6945.00},
		{Product: "EUR/USD", Broker: "MS", Quantity: 10000, ExecutionPrice: 1.175, ArrivalPrice: 1.180},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("report.threshold_bps", 10.0)
	v.SetDefault("report.currency", "EUR")
	v.SetDefault("report.chart_path", "daily_broker_performance.png")
	v.SetDefault("report.trades_file", "")
	v.SetDefault("report.persist", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "posttrade")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "posttrade")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("feed.kind", "websocket")
	v.SetDefault("feed.url", "")
	v.SetDefault("feed.subscribe", "")
	v.SetDefault("feed.max_fills", 0)
	v.SetDefault("feed.timeout_seconds", 30)
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and environment apply.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	if len(config.Trades) == 0 {
		config.Trades = DefaultTrades()
	}
	return
}
