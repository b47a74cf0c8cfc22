package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fusorlabs/fusor/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Decision  DecisionConfig  `mapstructure:"decision"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// BacktestConfig holds simulation parameters. The value is treated as
// immutable once a simulator is constructed from it.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	CommissionRate float64 `mapstructure:"commission_rate"`
	WarmupBars     int     `mapstructure:"warmup_bars"`
	MinDays        int     `mapstructure:"min_days"`
}

// DecisionConfig holds the signal/sentiment fusion thresholds.
type DecisionConfig struct {
	SentimentPositive float64 `mapstructure:"sentiment_positive"`
	SentimentNegative float64 `mapstructure:"sentiment_negative"`
	MinConfidence     float64 `mapstructure:"min_confidence"`
}

// RiskConfig holds position sizing and exit thresholds.
type RiskConfig struct {
	RiskPerTrade float64 `mapstructure:"risk_per_trade"`
	StopLoss     float64 `mapstructure:"stop_loss"`
	TakeProfit   float64 `mapstructure:"take_profit"`
}

// SentimentConfig selects and configures the sentiment source.
type SentimentConfig struct {
	Mode     string       `mapstructure:"mode"` // "simulated" or "llm"
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ArchiveConfig selects where completed backtest results are stored.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Backtest: BacktestConfig{
			InitialCapital: 100000,
			CommissionRate: 0.001,
			WarmupBars:     20,
			MinDays:        50,
		},
		Decision: DecisionConfig{
			SentimentPositive: 0.2,
			SentimentNegative: -0.2,
			MinConfidence:     0.5,
		},
		Risk: RiskConfig{
			RiskPerTrade: 0.01,
			StopLoss:     0.02,
			TakeProfit:   0.04,
		},
		Sentiment: SentimentConfig{
			Mode: "simulated",
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "./data/backtests",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Backtest.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Backtest.InitialCapital))
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionRate >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission_rate must be in [0, 1), got %f", c.Backtest.CommissionRate))
	}
	if c.Backtest.MinDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_days must be positive, got %d", c.Backtest.MinDays))
	}
	if c.Backtest.WarmupBars < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("warmup_bars cannot be negative, got %d", c.Backtest.WarmupBars))
	}

	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_per_trade must be in (0, 1], got %f", c.Risk.RiskPerTrade))
	}
	if c.Risk.StopLoss <= 0 || c.Risk.StopLoss >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("stop_loss must be in (0, 1), got %f", c.Risk.StopLoss))
	}
	if c.Risk.TakeProfit <= 0 || c.Risk.TakeProfit >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("take_profit must be in (0, 1), got %f", c.Risk.TakeProfit))
	}

	if c.Decision.SentimentNegative >= 0 || c.Decision.SentimentPositive <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("sentiment thresholds must satisfy negative < 0 < positive, got %f and %f",
				c.Decision.SentimentNegative, c.Decision.SentimentPositive))
	}
	if c.Decision.MinConfidence < 0 || c.Decision.MinConfidence > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_confidence must be between 0 and 1, got %f", c.Decision.MinConfidence))
	}

	switch c.Sentiment.Mode {
	case "", "simulated":
	case "llm":
		switch c.Sentiment.Provider {
		case "claude":
			if c.Sentiment.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when sentiment provider is claude"))
			}
		case "openai":
			if c.Sentiment.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when sentiment provider is openai"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown sentiment provider %q", c.Sentiment.Provider))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown sentiment mode %q", c.Sentiment.Mode))
	}

	return nil
}
