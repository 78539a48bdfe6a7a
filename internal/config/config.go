package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/ledgerscope/internal/common"
)

// Config is the full application configuration.
type Config struct {
	Database Database
	Logging  Logging
	Analysis Analysis
}

// Database selects the storage backend.
type Database struct {
	Driver string
	DSN    string
}

// Logging configures the global slog logger.
type Logging struct {
	Level  string
	Format string
}

// AML configures the rapid in/out rule.
type AML struct {
	Tolerance   decimal.Decimal
	MinInbound  int
	MinOutbound int
}

// Analysis holds the tunable thresholds of the analysis engine.
type Analysis struct {
	OutlierPercentile decimal.Decimal
	SpikeMultiplier   decimal.Decimal
	AML               AML
	RollingWindow     int
	DormancyMonths    int
	SpikeLookback     int
	LoanBuckets       int
	Workers           int
}

// DefaultDatabasePath returns the sqlite file used when no DSN is configured.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ledgerscope.db"
	}
	return filepath.Join(home, ".local", "share", "ledgerscope", "ledgerscope.db")
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", DefaultDatabasePath())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("analysis.outlier_percentile", "0.95")
	v.SetDefault("analysis.spike_multiplier", "3")
	v.SetDefault("analysis.spike_lookback", 10)
	v.SetDefault("analysis.rolling_window", 3)
	v.SetDefault("analysis.dormancy_months", 12)
	v.SetDefault("analysis.loan_buckets", 20)
	v.SetDefault("analysis.workers", 1)

	v.SetDefault("analysis.aml.min_inbound", 5)
	v.SetDefault("analysis.aml.min_outbound", 5)
	v.SetDefault("analysis.aml.tolerance", "0.10")
}

// Load reads the configuration from v, applying defaults for unset keys.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Database: Database{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Logging: Logging{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Analysis: Analysis{
			RollingWindow:  v.GetInt("analysis.rolling_window"),
			DormancyMonths: v.GetInt("analysis.dormancy_months"),
			SpikeLookback:  v.GetInt("analysis.spike_lookback"),
			LoanBuckets:    v.GetInt("analysis.loan_buckets"),
			Workers:        v.GetInt("analysis.workers"),
			AML: AML{
				MinInbound:  v.GetInt("analysis.aml.min_inbound"),
				MinOutbound: v.GetInt("analysis.aml.min_outbound"),
			},
		},
	}

	var err error
	if cfg.Analysis.OutlierPercentile, err = decimalKey(v, "analysis.outlier_percentile"); err != nil {
		return nil, err
	}
	if cfg.Analysis.SpikeMultiplier, err = decimalKey(v, "analysis.spike_multiplier"); err != nil {
		return nil, err
	}
	if cfg.Analysis.AML.Tolerance, err = decimalKey(v, "analysis.aml.tolerance"); err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "sqlite3" {
		cfg.Database.DSN = ExpandPath(cfg.Database.DSN)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot use.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("%w: database.driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn", common.ErrMissingConfig)
	}

	a := c.Analysis
	if a.OutlierPercentile.IsNegative() || a.OutlierPercentile.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: analysis.outlier_percentile must be within [0, 1]", common.ErrInvalidConfig)
	}
	if !a.SpikeMultiplier.IsPositive() {
		return fmt.Errorf("%w: analysis.spike_multiplier must be positive", common.ErrInvalidConfig)
	}
	if a.AML.Tolerance.IsNegative() {
		return fmt.Errorf("%w: analysis.aml.tolerance must not be negative", common.ErrInvalidConfig)
	}

	positive := map[string]int{
		"analysis.rolling_window":   a.RollingWindow,
		"analysis.dormancy_months":  a.DormancyMonths,
		"analysis.spike_lookback":   a.SpikeLookback,
		"analysis.loan_buckets":     a.LoanBuckets,
		"analysis.workers":          a.Workers,
		"analysis.aml.min_inbound":  a.AML.MinInbound,
		"analysis.aml.min_outbound": a.AML.MinOutbound,
	}
	for key, n := range positive {
		if n <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", common.ErrInvalidConfig, key, n)
		}
	}
	return nil
}

func decimalKey(v *viper.Viper, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.GetString(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", common.ErrInvalidConfig, key, err)
	}
	return d, nil
}
