package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Engine   Engine   `mapstructure:"engine"`
	Oracle   Oracle   `mapstructure:"oracle"`
	Chain    Chain    `mapstructure:"chain"`
	Catalog  Catalog  `mapstructure:"catalog"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Tracing  Tracing  `mapstructure:"tracing"`
}

// Engine holds the configuration for the copy engine.
type Engine struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	RiskPerTrade    float64       `mapstructure:"risk_per_trade"`
	InitialBalance  float64       `mapstructure:"initial_balance"`
	DefaultFollows  []string      `mapstructure:"default_follows"`
	ReasoningMaxLen int           `mapstructure:"reasoning_max_len"`
}

// Oracle holds the configuration for the remote decision service.
// An empty ApiKey selects the local simulated decider.
type Oracle struct {
	ApiKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// Chain holds the configuration for the balance lookups.
type Chain struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	NativeSymbol   string        `mapstructure:"native_symbol"`
	StableTokens   []string      `mapstructure:"stable_tokens"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Catalog points at an optional YAML file overriding the embedded seed data.
type Catalog struct {
	Path string `mapstructure:"path"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Tracing holds the configuration for OpenTelemetry spans.
type Tracing struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Polygon PoS USDC (bridged) and native USDC.
var defaultStableTokens = []string{
	"0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
	"0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.tick_interval", 5*time.Second)
	v.SetDefault("engine.risk_per_trade", 5.0)
	v.SetDefault("engine.initial_balance", 1250.0)
	v.SetDefault("engine.default_follows", []string{"t1"})
	v.SetDefault("engine.reasoning_max_len", 200)

	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.model", "gemini-3-flash-preview")
	v.SetDefault("oracle.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("oracle.timeout", 15*time.Second)
	v.SetDefault("oracle.rate_limit", 2)
	v.SetDefault("oracle.rate_limit_burst", 1)
	v.SetDefault("oracle.max_retries", 2)

	v.SetDefault("chain.rpc_url", "https://polygon-rpc.com")
	v.SetDefault("chain.native_symbol", "MATIC")
	v.SetDefault("chain.stable_tokens", defaultStableTokens)
	v.SetDefault("chain.poll_interval", 30*time.Second)
	v.SetDefault("chain.timeout", 10*time.Second)
	v.SetDefault("chain.rate_limit", 5)
	v.SetDefault("chain.rate_limit_burst", 4)

	v.SetDefault("catalog.path", "")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dsn", "copybot.db")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "copy-trade-bot")
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and the environment apply.
func LoadConfig(path string) (config Config, err error) {
	// Pick up secrets such as ORACLE_API_KEY from a local .env if one exists.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
