package sim

import (
	"time"

	"driftwatch-go/src/models"
	"driftwatch-go/src/risk"
	"driftwatch-go/src/strategy"
)

const clockLayout = "2006-01-02 15:04"

// maxHoldDuration forces a time-based exit on positions held past it.
const maxHoldDuration = 24 * time.Hour

// Wallet simulates a single-asset account walking a chronological stream
// of market snapshots. It is the only stateful piece of the engine: one
// run owns one wallet, and every processed row appends exactly one entry
// to its ledger.
//
// The position is either flat (asset balance zero, no entry recorded) or
// long (asset balance positive, entry price and time set). Both balances
// stay non-negative after every transition.
type Wallet struct {
	cfg models.StrategyConfig

	cash  float64
	asset float64

	entryPrice float64
	entryTime  time.Time

	ledger []models.LedgerEntry
}

// NewWallet creates a wallet holding startingCash and no position.
func NewWallet(startingCash float64, cfg models.StrategyConfig) *Wallet {
	return &Wallet{
		cfg:    cfg,
		cash:   startingCash,
		ledger: make([]models.LedgerEntry, 0),
	}
}

// ExecuteTrade applies one proposed signal at the given price and time.
// The wallet may override the proposal: a HOLD (or a blocked BUY) still
// exits an open position when the exit policy fires, and a BUY that the
// sizing cannot afford degrades to a HOLD. Every call appends exactly
// one ledger entry.
func (w *Wallet) ExecuteTrade(signal models.Signal, price float64, timeStr, reason string) {
	now := parseClock(timeStr)

	totalValue := w.cash + w.asset*price
	exposure := 0.0
	if totalValue > 0 {
		exposure = (w.asset * price) / totalValue
	}

	exitNow, exitReason := false, ""
	if w.asset > 0 {
		exitNow, exitReason = w.shouldExit(price, now)
	}

	switch {
	case signal == models.SignalBuy && w.cash > 0 && risk.WithinExposure(exposure, w.cfg.MaxExposurePct):
		amount := risk.PositionSize(w.cash, price, w.cfg.RiskPct)
		cost := amount * price * (1 + w.cfg.FeeRate)
		if w.cash >= cost {
			w.cash -= cost
			w.asset += amount
			w.entryPrice = price
			w.entryTime = now
			w.log(timeStr, models.SignalBuy, price, amount, reason)
		} else {
			w.log(timeStr, models.SignalHold, price, 0, "Insufficient funds for risk-based position")
		}

	case signal == models.SignalSell || exitNow:
		finalReason := reason
		if signal != models.SignalSell {
			finalReason = exitReason
		}
		w.cash += w.asset * price * (1 - w.cfg.FeeRate)
		// The SELL entry is logged before the position is cleared, so it
		// carries the liquidated amount in its asset balance column.
		w.log(timeStr, models.SignalSell, price, w.asset, finalReason)
		w.asset = 0
		w.entryPrice = 0
		w.entryTime = time.Time{}

	default:
		w.log(timeStr, models.SignalHold, price, 0, reason)
	}
}

// shouldExit evaluates the autonomous exit policy for an open position.
// Checks run in a fixed priority: take profit, stop loss, time exit.
func (w *Wallet) shouldExit(price float64, now time.Time) (bool, string) {
	if w.asset <= 0 {
		return false, ""
	}
	pctChange := (price - w.entryPrice) / w.entryPrice
	held := now.Sub(w.entryTime)

	switch {
	case pctChange >= w.cfg.TakeProfitPct:
		return true, "Take Profit Triggered"
	case pctChange <= -w.cfg.StopLossPct:
		return true, "Stop Loss Triggered"
	case held >= maxHoldDuration:
		return true, "Time-Based Exit (24h)"
	}
	return false, ""
}

func (w *Wallet) log(timeStr string, signal models.Signal, price, amount float64, reason string) {
	w.ledger = append(w.ledger, models.LedgerEntry{
		Time:           timeStr,
		Signal:         signal,
		Price:          price,
		Amount:         amount,
		CashBalance:    w.cash,
		AssetBalance:   w.asset,
		PortfolioValue: w.cash + w.asset*price,
		Reason:         reason,
	})
}

// Ledger returns the append-only record of every processed step.
func (w *Wallet) Ledger() []models.LedgerEntry { return w.ledger }

// CashBalance returns the free cash held by the wallet.
func (w *Wallet) CashBalance() float64 { return w.cash }

// AssetBalance returns the asset quantity held by the wallet.
func (w *Wallet) AssetBalance() float64 { return w.asset }

// EntryPrice returns the open position's entry price and whether a
// position is open at all.
func (w *Wallet) EntryPrice() (float64, bool) {
	return w.entryPrice, w.asset > 0
}

// parseClock reads a normalized clock string; malformed input degrades
// to epoch zero rather than failing the step.
func parseClock(s string) time.Time {
	t, err := time.ParseInLocation(clockLayout, s, time.UTC)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

// Run folds a chronological row sequence through a fresh wallet: rows
// with incomplete indicator data are skipped outright, every surviving
// row is decided and executed, and the resulting ledger is returned.
func Run(rows []models.MarketRow, cfg models.StrategyConfig, startingCash float64) []models.LedgerEntry {
	w := NewWallet(startingCash, cfg)
	for _, row := range rows {
		if !row.Complete() {
			continue
		}
		decision := strategy.Decide(row, cfg.RSIBuy, cfg.RSISell)
		w.ExecuteTrade(decision.Signal, row.Close, decision.Time, decision.Reason)
	}
	return w.Ledger()
}
