// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

type ClickHouseConfig struct {
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type BinanceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OKXConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	SecretKey  string `mapstructure:"secret_key"`
	Passphrase string `mapstructure:"passphrase"`
	Simulated  bool   `mapstructure:"simulated"`
}

type BacktestConfig struct {
	InitialBalance float64       `mapstructure:"initial_balance"`
	KellyScale     float64       `mapstructure:"kelly_scale"`
	Workers        int           `mapstructure:"workers"`
	RunTimeout     time.Duration `mapstructure:"run_timeout"`
	ResultsFile    string        `mapstructure:"results_file"`
}

type Config struct {
	Environment string           `mapstructure:"environment"`
	DataDir     string           `mapstructure:"data_dir"`
	Server      ServerConfig     `mapstructure:"server"`
	ClickHouse  ClickHouseConfig `mapstructure:"clickhouse"`
	Binance     BinanceConfig    `mapstructure:"binance"`
	OKX         OKXConfig        `mapstructure:"okx"`
	Backtest    BacktestConfig   `mapstructure:"backtest"`
}

// Load reads config.yaml from the given paths. Missing files are fine, the
// defaults plus BT_* environment variables still produce a usable config.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("BT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "dev")
	v.SetDefault("data_dir", "data")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("clickhouse.addr", "localhost:9000")
	v.SetDefault("clickhouse.database", "market")
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.timeout", 30*time.Second)
	v.SetDefault("okx.base_url", "https://www.okx.com")
	v.SetDefault("backtest.initial_balance", 1_000_000)
	v.SetDefault("backtest.kelly_scale", 0.5)
	v.SetDefault("backtest.workers", 4)
	v.SetDefault("backtest.results_file", "results.txt")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Backtest.InitialBalance <= 0 {
		return nil, fmt.Errorf("backtest.initial_balance must be positive, got %v", cfg.Backtest.InitialBalance)
	}
	return &cfg, nil
}
