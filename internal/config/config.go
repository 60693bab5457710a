// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Default source locations, matching the published datasets.
const (
	DefaultCasesURL      = "https://raw.githubusercontent.com/nytimes/covid-19-data/master/us-counties.csv"
	DefaultPopulationURL = "https://www2.census.gov/programs-surveys/popest/datasets/2010-2019/counties/totals/co-est2019-alldata.csv"
	DefaultOutputPath    = "./aggregated_covid19_data_with_population.csv"
)

// Config holds the full application configuration.
type Config struct {
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Run     RunConfig     `yaml:"run" mapstructure:"run"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourcesConfig locates the two input tables. Each may be an HTTP(S) URL
// or a local file path.
type SourcesConfig struct {
	Cases      string `yaml:"cases" mapstructure:"cases"`
	Population string `yaml:"population" mapstructure:"population"`
}

// OutputConfig configures the output destination.
type OutputConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// RunConfig configures pipeline execution.
type RunConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// HTTPConfig configures the source fetcher.
type HTTPConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the stats API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("COUNTYSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.cases", DefaultCasesURL)
	v.SetDefault("sources.population", DefaultPopulationURL)
	v.SetDefault("output.path", DefaultOutputPath)
	v.SetDefault("run.concurrency", 1)
	v.SetDefault("http.timeout_secs", 60)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.user_agent", "countystats/1.0")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "countystats.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
