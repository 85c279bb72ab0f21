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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`

	// Writes that fail with a transient error (locked database, dropped
	// connection) are retried with exponential backoff.
	RetryAttempts  int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// BatchConfig configures cohort processing.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// ScoringConfig holds every tunable of the OCCR formula.
type ScoringConfig struct {
	Simulation         SimulationConfig  `yaml:"simulation" mapstructure:"simulation"`
	Utilization        UtilizationConfig `yaml:"utilization" mapstructure:"utilization"`
	Weights            WeightsConfig     `yaml:"weights" mapstructure:"weights"`
	CashFlowWeights    CashFlowWeights   `yaml:"cash_flow_weights" mapstructure:"cash_flow_weights"`
	DefaultMaxLeverage float64           `yaml:"default_max_leverage" mapstructure:"default_max_leverage"`
}

// SimulationConfig parameterizes the stressed solvency Monte-Carlo run.
type SimulationConfig struct {
	Trials       int     `yaml:"trials" mapstructure:"trials"`
	Seed         int64   `yaml:"seed" mapstructure:"seed"`
	ShockMean    float64 `yaml:"shock_mean" mapstructure:"shock_mean"`
	ShockStdev   float64 `yaml:"shock_stdev" mapstructure:"shock_stdev"`
	ShockFloor   float64 `yaml:"shock_floor" mapstructure:"shock_floor"`
	ShockCeiling float64 `yaml:"shock_ceiling" mapstructure:"shock_ceiling"`
}

// UtilizationConfig selects the utilization scoring policy.
type UtilizationConfig struct {
	Policy       string  `yaml:"policy" mapstructure:"policy"` // "clamped" or "asymmetric"
	PenaltySlope float64 `yaml:"penalty_slope" mapstructure:"penalty_slope"`
}

// WeightsConfig holds the OCCR aggregation weights. Transaction is a
// magnitude: the transaction term is always subtracted.
type WeightsConfig struct {
	Historical       float64 `yaml:"historical" mapstructure:"historical"`
	StressedSolvency float64 `yaml:"stressed_solvency" mapstructure:"stressed_solvency"`
	Utilization      float64 `yaml:"utilization" mapstructure:"utilization"`
	Transaction      float64 `yaml:"transaction" mapstructure:"transaction"`
	Clustering       float64 `yaml:"clustering" mapstructure:"clustering"`
}

// CashFlowWeights are the endpoints of the default linear recency weights.
type CashFlowWeights struct {
	Oldest float64 `yaml:"oldest" mapstructure:"oldest"`
	Newest float64 `yaml:"newest" mapstructure:"newest"`
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
	v.SetEnvPrefix("OCCR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "occr.db")
	v.SetDefault("store.retry_attempts", 3)
	v.SetDefault("store.retry_backoff_ms", 250)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("batch.max_concurrent_companies", 4)
	v.SetDefault("scoring.simulation.trials", 10000)
	v.SetDefault("scoring.simulation.seed", 42)
	v.SetDefault("scoring.simulation.shock_mean", -0.45)
	v.SetDefault("scoring.simulation.shock_stdev", 0.15)
	v.SetDefault("scoring.simulation.shock_floor", -0.80)
	v.SetDefault("scoring.simulation.shock_ceiling", -0.10)
	v.SetDefault("scoring.utilization.policy", "clamped")
	v.SetDefault("scoring.utilization.penalty_slope", 0.5)
	v.SetDefault("scoring.weights.historical", 0.35)
	v.SetDefault("scoring.weights.stressed_solvency", 0.25)
	v.SetDefault("scoring.weights.utilization", 0.15)
	v.SetDefault("scoring.weights.transaction", 0.15)
	v.SetDefault("scoring.weights.clustering", 0.10)
	v.SetDefault("scoring.cash_flow_weights.oldest", 0.2)
	v.SetDefault("scoring.cash_flow_weights.newest", 1.0)
	v.SetDefault("scoring.default_max_leverage", 3.25)

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

// Validate checks settings that every command depends on.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres (OCCR_STORE_DATABASE_URL)")
	}
	if c.Batch.MaxConcurrentCompanies < 1 {
		errs = append(errs, "batch.max_concurrent_companies must be >= 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
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
