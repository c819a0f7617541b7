package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Lookup  LookupConfig  `yaml:"lookup" mapstructure:"lookup"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// HTTPConfig configures the feature-service HTTP client.
type HTTPConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	Token       string  `yaml:"token" mapstructure:"token"`
}

// CatalogConfig points at an optional dataset catalog file. Empty uses the
// built-in datasets.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LookupConfig configures multi-dataset lookups.
type LookupConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FEATUREQUERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("http.user_agent", "feature-query/1.0")
	v.SetDefault("http.rate_per_host", 20.0)
	v.SetDefault("http.token", "")
	v.SetDefault("catalog.path", "")
	v.SetDefault("lookup.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by mode ("query" or "serve").
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.HTTP.TimeoutSecs <= 0 {
		errs = append(errs, "http.timeout_secs must be > 0")
	}
	if c.HTTP.RatePerHost <= 0 {
		errs = append(errs, "http.rate_per_host must be > 0")
	}
	if c.Lookup.Concurrency < 1 || c.Lookup.Concurrency > 32 {
		errs = append(errs, "lookup.concurrency must be between 1 and 32")
	}

	switch mode {
	case "query":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
