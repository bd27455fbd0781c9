package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"driftwatch-go/src/models"
	"driftwatch-go/src/sim"
)

// GridEntry is one candidate parameter set of the optimizer grid.
type GridEntry struct {
	RSIBuy        float64 `yaml:"rsi_buy"`
	RSISell       float64 `yaml:"rsi_sell"`
	TakeProfitPct float64 `yaml:"take_profit_pct"`
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	RiskPct       float64 `yaml:"risk_pct"`
}

// Config holds everything the backtest and optimize binaries need.
type Config struct {
	Data struct {
		Snapshot string `yaml:"snapshot"` // indicator-enriched market CSV
		Trades   string `yaml:"trades"`   // simulated trades ledger output
		Results  string `yaml:"results"`  // optimizer leaderboard output
	} `yaml:"data"`

	Simulation struct {
		StartingCash   float64 `yaml:"starting_cash"`
		FeeRate        float64 `yaml:"fee_rate"`
		MaxExposurePct float64 `yaml:"max_exposure_pct"`
	} `yaml:"simulation"`

	Strategy struct {
		RSIBuy        float64 `yaml:"rsi_buy"`
		RSISell       float64 `yaml:"rsi_sell"`
		TakeProfitPct float64 `yaml:"take_profit_pct"`
		StopLossPct   float64 `yaml:"stop_loss_pct"`
		RiskPct       float64 `yaml:"risk_pct"`
	} `yaml:"strategy"`

	Optimizer struct {
		Grid []GridEntry `yaml:"grid"`
	} `yaml:"optimizer"`
}

// Default returns the built-in configuration: the baseline strategy and
// the standard four-entry optimizer grid.
func Default() *Config {
	cfg := &Config{}
	cfg.Data.Snapshot = "btc_1h_data_with_indicators.csv"
	cfg.Data.Trades = "simulated_trades.csv"
	cfg.Data.Results = "optimizer_results.csv"

	cfg.Simulation.StartingCash = sim.DefaultStartingCash
	base := models.DefaultConfig()
	cfg.Simulation.FeeRate = base.FeeRate
	cfg.Simulation.MaxExposurePct = base.MaxExposurePct

	cfg.Strategy.RSIBuy = base.RSIBuy
	cfg.Strategy.RSISell = base.RSISell
	cfg.Strategy.TakeProfitPct = base.TakeProfitPct
	cfg.Strategy.StopLossPct = base.StopLossPct
	cfg.Strategy.RiskPct = base.RiskPct

	for _, g := range sim.DefaultGrid() {
		cfg.Optimizer.Grid = append(cfg.Optimizer.Grid, GridEntry{
			RSIBuy:        g.RSIBuy,
			RSISell:       g.RSISell,
			TakeProfitPct: g.TakeProfitPct,
			StopLossPct:   g.StopLossPct,
			RiskPct:       g.RiskPct,
		})
	}
	return cfg
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration back out as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides selected fields from environment variables.
// Unparseable values are logged and ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SIM_STARTING_CASH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Simulation.StartingCash = f
		} else {
			log.Printf("warning: cannot parse SIM_STARTING_CASH=%s, keeping %.2f", v, c.Simulation.StartingCash)
		}
	}
	if v := os.Getenv("SIM_FEE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Simulation.FeeRate = f
		} else {
			log.Printf("warning: cannot parse SIM_FEE_RATE=%s, keeping %.4f", v, c.Simulation.FeeRate)
		}
	}
	if v := os.Getenv("SIM_SNAPSHOT"); v != "" {
		c.Data.Snapshot = v
	}
}

// StrategyConfig assembles the single-run strategy parameters.
func (c *Config) StrategyConfig() models.StrategyConfig {
	return models.StrategyConfig{
		RSIBuy:         c.Strategy.RSIBuy,
		RSISell:        c.Strategy.RSISell,
		TakeProfitPct:  c.Strategy.TakeProfitPct,
		StopLossPct:    c.Strategy.StopLossPct,
		RiskPct:        c.Strategy.RiskPct,
		FeeRate:        c.Simulation.FeeRate,
		MaxExposurePct: c.Simulation.MaxExposurePct,
	}
}

// Grid expands the optimizer grid into full strategy configs, sharing
// the simulation-wide fee and exposure settings.
func (c *Config) Grid() []models.StrategyConfig {
	grid := make([]models.StrategyConfig, 0, len(c.Optimizer.Grid))
	for _, g := range c.Optimizer.Grid {
		grid = append(grid, models.StrategyConfig{
			RSIBuy:         g.RSIBuy,
			RSISell:        g.RSISell,
			TakeProfitPct:  g.TakeProfitPct,
			StopLossPct:    g.StopLossPct,
			RiskPct:        g.RiskPct,
			FeeRate:        c.Simulation.FeeRate,
			MaxExposurePct: c.Simulation.MaxExposurePct,
		})
	}
	return grid
}
