package models

import "math"

// Candle represents a single OHLCV bar as returned by the exchange.
type Candle struct {
	Timestamp int64 // bar start, seconds since epoch
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// MarketRow is one time step of market data enriched with indicators.
// Indicator fields are NaN until enough history exists to compute them.
// Rows are read-only once produced: the simulation never mutates them.
type MarketRow struct {
	Timestamp string // raw timestamp as written by the data source, seconds since epoch
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64

	RSI        float64 // RSI(14)
	MACD       float64 // MACD line (12/26)
	MACDSignal float64 // MACD signal line (9)
	MACDHist   float64 // MACD histogram
	EMAFast    float64 // EMA(12)
	EMASlow    float64 // EMA(26)
}

// Complete reports whether the row carries everything a simulation step
// needs. Rows failing this are dropped before simulation, matching the
// dropna semantics of the snapshot file.
func (r MarketRow) Complete() bool {
	return !math.IsNaN(r.RSI) &&
		!math.IsNaN(r.MACD) &&
		!math.IsNaN(r.MACDSignal) &&
		!math.IsNaN(r.Close)
}

// Signal is a trading decision for one market row.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// TradeSignal is the output of the decision engine for one row.
type TradeSignal struct {
	Signal Signal
	Reason string
	Time   string // normalized UTC clock string, "2006-01-02 15:04"
}

// StrategyConfig bundles every tunable of one simulation run. Values are
// read-only for the lifetime of the run so concurrent optimizer runs can
// share nothing but their input rows.
type StrategyConfig struct {
	RSIBuy         float64 // buy when RSI drops below this
	RSISell        float64 // sell when RSI rises above this
	TakeProfitPct  float64 // fractional gain forcing an exit
	StopLossPct    float64 // fractional loss forcing an exit
	RiskPct        float64 // fraction of free cash committed per entry
	FeeRate        float64 // proportional transaction cost, applied on both sides
	MaxExposurePct float64 // ceiling on asset-value fraction of the portfolio
}

// DefaultConfig returns the baseline strategy parameters.
func DefaultConfig() StrategyConfig {
	return StrategyConfig{
		RSIBuy:         40,
		RSISell:        60,
		TakeProfitPct:  0.03,
		StopLossPct:    0.01,
		RiskPct:        0.02,
		FeeRate:        0.001,
		MaxExposurePct: 1.0,
	}
}

// LedgerEntry records one executed simulation step. For SELL entries the
// balances reflect the moment the proceeds were credited, before the
// position itself is cleared.
type LedgerEntry struct {
	Time           string
	Signal         Signal
	Price          float64
	Amount         float64
	CashBalance    float64
	AssetBalance   float64
	PortfolioValue float64
	Reason         string
}

// OptimizationResult is one leaderboard row of the parameter search.
type OptimizationResult struct {
	RSIBuy        float64
	RSISell       float64
	TakeProfitPct float64
	StopLossPct   float64
	RiskPct       float64
	FinalValue    float64 // final portfolio value, rounded to cents
	NetReturnPct  float64 // return relative to starting cash, in percent
	TotalTrades   int     // BUY + SELL ledger entries
}
