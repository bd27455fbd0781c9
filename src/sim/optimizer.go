package sim

import (
	"math"
	"sort"
	"sync"

	"driftwatch-go/src/models"
)

// DefaultStartingCash is the initial capital of every optimizer run.
const DefaultStartingCash = 10000.0

// DefaultGrid returns the baseline parameter search: aggressive RSI and
// risk ranges around the 50 midpoint.
func DefaultGrid() []models.StrategyConfig {
	return []models.StrategyConfig{
		{RSIBuy: 45, RSISell: 55, TakeProfitPct: 0.03, StopLossPct: 0.01, RiskPct: 0.03, FeeRate: 0.001, MaxExposurePct: 1.0},
		{RSIBuy: 48, RSISell: 52, TakeProfitPct: 0.025, StopLossPct: 0.015, RiskPct: 0.03, FeeRate: 0.001, MaxExposurePct: 1.0},
		{RSIBuy: 50, RSISell: 50, TakeProfitPct: 0.02, StopLossPct: 0.02, RiskPct: 0.04, FeeRate: 0.001, MaxExposurePct: 1.0},
		{RSIBuy: 52, RSISell: 48, TakeProfitPct: 0.015, StopLossPct: 0.015, RiskPct: 0.05, FeeRate: 0.001, MaxExposurePct: 1.0},
	}
}

// Optimizer runs one independent wallet simulation per candidate config
// over the same historical rows and ranks the outcomes.
type Optimizer struct {
	StartingCash float64
	Configs      []models.StrategyConfig
}

// NewOptimizer builds an optimizer over the given configs. A zero or
// negative starting cash falls back to the default capital.
func NewOptimizer(startingCash float64, configs []models.StrategyConfig) *Optimizer {
	if startingCash <= 0 {
		startingCash = DefaultStartingCash
	}
	if len(configs) == 0 {
		configs = DefaultGrid()
	}
	return &Optimizer{StartingCash: startingCash, Configs: configs}
}

// Run evaluates every config and returns the leaderboard, sorted
// descending by net return. Ties keep the original config order.
func (o *Optimizer) Run(rows []models.MarketRow) []models.OptimizationResult {
	return o.RunWithProgress(rows, nil)
}

// RunWithProgress is Run with a per-config completion callback. Runs are
// mutually independent: each owns its wallet, the rows are shared
// read-only, and results land in index-stable slots so the final sort is
// the sole ordering authority no matter which run finishes first. The
// callback may be invoked from multiple goroutines.
func (o *Optimizer) RunWithProgress(rows []models.MarketRow, onDone func(configIndex int)) []models.OptimizationResult {
	results := make([]models.OptimizationResult, len(o.Configs))

	var wg sync.WaitGroup
	for i, cfg := range o.Configs {
		wg.Add(1)
		go func(i int, cfg models.StrategyConfig) {
			defer wg.Done()
			results[i] = o.runOne(rows, cfg)
			if onDone != nil {
				onDone(i)
			}
		}(i, cfg)
	}
	wg.Wait()

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].NetReturnPct > results[b].NetReturnPct
	})
	return results
}

// runOne simulates a single config from fresh capital and condenses its
// ledger into one leaderboard row.
func (o *Optimizer) runOne(rows []models.MarketRow, cfg models.StrategyConfig) models.OptimizationResult {
	ledger := Run(rows, cfg, o.StartingCash)

	finalValue := o.StartingCash
	if len(ledger) > 0 {
		finalValue = ledger[len(ledger)-1].PortfolioValue
	}

	trades := 0
	for _, entry := range ledger {
		if entry.Signal != models.SignalHold {
			trades++
		}
	}

	return models.OptimizationResult{
		RSIBuy:        cfg.RSIBuy,
		RSISell:       cfg.RSISell,
		TakeProfitPct: cfg.TakeProfitPct,
		StopLossPct:   cfg.StopLossPct,
		RiskPct:       cfg.RiskPct,
		FinalValue:    round2(finalValue),
		NetReturnPct:  round2((finalValue - o.StartingCash) / o.StartingCash * 100),
		TotalTrades:   trades,
	}
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
