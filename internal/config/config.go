package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/newthinker/tradermood/internal/core"
	"github.com/spf13/viper"
)

// Missing-side policies for the behavior ranking
const (
	PolicyExclude = "exclude"
	PolicyZero    = "zero"
)

type Config struct {
	Input     InputConfig               `mapstructure:"input"`
	Columns   ColumnsConfig             `mapstructure:"columns"`
	Analysis  AnalysisConfig            `mapstructure:"analysis"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Report    ReportConfig              `mapstructure:"report"`
	Server    ServerConfig              `mapstructure:"server"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Tracing   TracingConfig             `mapstructure:"tracing"`
	LLM       LLMConfig                 `mapstructure:"llm"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
}

// InputConfig names the two datasets inside the configured storage.
type InputConfig struct {
	Trades    string `mapstructure:"trades"`
	Sentiment string `mapstructure:"sentiment"`
}

type ColumnsConfig struct {
	Trade     TradeColumns     `mapstructure:"trade"`
	Sentiment SentimentColumns `mapstructure:"sentiment"`
}

// TradeColumns maps source headers to trade fields. Headers are compared
// after trimming surrounding whitespace.
type TradeColumns struct {
	Timestamp      string `mapstructure:"timestamp"`
	Account        string `mapstructure:"account"`
	ClosedPnL      string `mapstructure:"closed_pnl"`
	ExecutionPrice string `mapstructure:"execution_price"`
	SizeUSD        string `mapstructure:"size_usd"`
	Leverage       string `mapstructure:"leverage"`
}

type SentimentColumns struct {
	Date           string `mapstructure:"date"`
	Classification string `mapstructure:"classification"`
}

type AnalysisConfig struct {
	TopN              int     `mapstructure:"top_n"`
	MissingSidePolicy string  `mapstructure:"missing_side_policy"` // "exclude" or "zero"
	DefaultLeverage   float64 `mapstructure:"default_leverage"`
}

type StorageConfig struct {
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

// ReportConfig controls rendering and archiving of run reports.
type ReportConfig struct {
	Format  string `mapstructure:"format"` // "text", "json" or "yaml"
	Archive bool   `mapstructure:"archive"`
	Prefix  string `mapstructure:"prefix"`
	Retain  int    `mapstructure:"retain"` // 0 keeps every archived run
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LLMConfig struct {
	Provider  string       `mapstructure:"provider"` // empty disables commentary
	MaxTokens int          `mapstructure:"max_tokens"`
	Claude    ClaudeConfig `mapstructure:"claude"`
	OpenAI    OpenAIConfig `mapstructure:"openai"`
	Ollama    OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // optional proxy or gateway
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type NotifierConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	BotToken string            `mapstructure:"bot_token"`
	ChatID   string            `mapstructure:"chat_id"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v, Defaults())

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

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("input.trades", d.Input.Trades)
	v.SetDefault("input.sentiment", d.Input.Sentiment)
	v.SetDefault("columns.trade.timestamp", d.Columns.Trade.Timestamp)
	v.SetDefault("columns.trade.account", d.Columns.Trade.Account)
	v.SetDefault("columns.trade.closed_pnl", d.Columns.Trade.ClosedPnL)
	v.SetDefault("columns.trade.execution_price", d.Columns.Trade.ExecutionPrice)
	v.SetDefault("columns.trade.size_usd", d.Columns.Trade.SizeUSD)
	v.SetDefault("columns.trade.leverage", d.Columns.Trade.Leverage)
	v.SetDefault("columns.sentiment.date", d.Columns.Sentiment.Date)
	v.SetDefault("columns.sentiment.classification", d.Columns.Sentiment.Classification)
	v.SetDefault("analysis.top_n", d.Analysis.TopN)
	v.SetDefault("analysis.missing_side_policy", d.Analysis.MissingSidePolicy)
	v.SetDefault("analysis.default_leverage", d.Analysis.DefaultLeverage)
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("report.prefix", d.Report.Prefix)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.job_ttl_hours", d.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", d.Server.MaxJobs)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config that reproduces the reference analysis
func Defaults() *Config {
	return &Config{
		Input: InputConfig{
			Trades:    "historical_data.csv",
			Sentiment: "fear_greed_index.csv",
		},
		Columns: ColumnsConfig{
			Trade: TradeColumns{
				Timestamp:      "Timestamp IST",
				Account:        "Account",
				ClosedPnL:      "Closed PnL",
				ExecutionPrice: "Execution Price",
				SizeUSD:        "Size USD",
				Leverage:       "leverage",
			},
			Sentiment: SentimentColumns{
				Date:           "date",
				Classification: "classification",
			},
		},
		Analysis: AnalysisConfig{
			TopN:              5,
			MissingSidePolicy: PolicyExclude,
			DefaultLeverage:   0,
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: ".",
		},
		Report: ReportConfig{
			Format: "text",
			Prefix: "reports",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Analysis.TopN < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("top_n must be at least 1, got %d", c.Analysis.TopN))
	}
	switch c.Analysis.MissingSidePolicy {
	case PolicyExclude, PolicyZero:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("missing_side_policy must be %q or %q, got %q",
				PolicyExclude, PolicyZero, c.Analysis.MissingSidePolicy))
	}

	if c.Columns.Trade.Timestamp == "" || c.Columns.Trade.Account == "" || c.Columns.Trade.ClosedPnL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("trade timestamp, account and closed_pnl columns are required"))
	}
	if c.Columns.Sentiment.Date == "" || c.Columns.Sentiment.Classification == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("sentiment date and classification columns are required"))
	}

	switch c.Storage.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	switch c.Report.Format {
	case "text", "json", "yaml":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("report format must be text, json or yaml, got %q", c.Report.Format))
	}
	if c.Report.Retain < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("report retain cannot be negative, got %d", c.Report.Retain))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	return nil
}
