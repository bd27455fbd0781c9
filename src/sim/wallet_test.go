package sim

import (
	"math"
	"math/rand"
	"testing"

	"driftwatch-go/src/models"
)

// noExitConfig commits the full balance per entry with no fees and exit
// thresholds far enough away that the exit policy never fires on its own.
func noExitConfig() models.StrategyConfig {
	return models.StrategyConfig{
		RSIBuy:         40,
		RSISell:        60,
		TakeProfitPct:  100,
		StopLossPct:    100,
		RiskPct:        1.0,
		FeeRate:        0,
		MaxExposurePct: 1.0,
	}
}

func TestBuyThenSellAccounting(t *testing.T) {
	w := NewWallet(10000, noExitConfig())

	w.ExecuteTrade(models.SignalBuy, 100, "2023-01-01 00:00", "test buy")
	if w.AssetBalance() != 100 {
		t.Fatalf("asset balance after buy = %v, want 100", w.AssetBalance())
	}
	if w.CashBalance() != 0 {
		t.Fatalf("cash balance after buy = %v, want 0", w.CashBalance())
	}
	entry, open := w.EntryPrice()
	if !open || entry != 100 {
		t.Fatalf("entry price after buy = %v (open=%v), want 100", entry, open)
	}

	w.ExecuteTrade(models.SignalSell, 110, "2023-01-01 01:00", "test sell")
	if w.CashBalance() != 11000 {
		t.Fatalf("cash balance after sell = %v, want 11000", w.CashBalance())
	}
	if w.AssetBalance() != 0 {
		t.Fatalf("asset balance after sell = %v, want 0", w.AssetBalance())
	}
	if _, open := w.EntryPrice(); open {
		t.Fatal("entry price should be cleared after a full liquidation")
	}

	ledger := w.Ledger()
	if len(ledger) != 2 {
		t.Fatalf("ledger length = %d, want 2", len(ledger))
	}
	buy := ledger[0]
	if buy.Signal != models.SignalBuy || buy.Amount != 100 || buy.CashBalance != 0 {
		t.Errorf("unexpected buy entry: %+v", buy)
	}
	sell := ledger[1]
	if sell.Signal != models.SignalSell || sell.Amount != 100 {
		t.Errorf("unexpected sell entry: %+v", sell)
	}
	// The sell entry is written before the position clears, so it still
	// carries the liquidated quantity.
	if sell.AssetBalance != 100 {
		t.Errorf("sell entry asset balance = %v, want the liquidated 100", sell.AssetBalance)
	}
	if sell.CashBalance != 11000 {
		t.Errorf("sell entry cash balance = %v, want 11000", sell.CashBalance)
	}
}

func TestBuyAccountingWithFee(t *testing.T) {
	cfg := noExitConfig()
	cfg.RiskPct = 0.02
	cfg.FeeRate = 0.001
	w := NewWallet(10000, cfg)

	w.ExecuteTrade(models.SignalBuy, 50000, "2023-01-01 00:00", "buy")

	wantAmount := 0.004
	wantCost := wantAmount * 50000 * 1.001
	if w.AssetBalance() != wantAmount {
		t.Errorf("asset balance = %v, want %v", w.AssetBalance(), wantAmount)
	}
	if diff := math.Abs(w.CashBalance() - (10000 - wantCost)); diff > 1e-9 {
		t.Errorf("cash balance = %v, want %v", w.CashBalance(), 10000-wantCost)
	}
}

func TestTakeProfitOverridesHold(t *testing.T) {
	cfg := noExitConfig()
	cfg.TakeProfitPct = 0.03
	w := NewWallet(10000, cfg)

	w.ExecuteTrade(models.SignalBuy, 100, "2023-01-01 00:00", "buy")
	w.ExecuteTrade(models.SignalHold, 103.5, "2023-01-01 01:00", "No clear signal")

	last := w.Ledger()[len(w.Ledger())-1]
	if last.Signal != models.SignalSell {
		t.Fatalf("expected autonomous SELL, got %s", last.Signal)
	}
	if last.Reason != "Take Profit Triggered" {
		t.Errorf("reason = %q, want take profit", last.Reason)
	}
	if w.AssetBalance() != 0 {
		t.Errorf("asset balance after exit = %v, want 0", w.AssetBalance())
	}
}

func TestStopLossOverridesHold(t *testing.T) {
	cfg := noExitConfig()
	cfg.StopLossPct = 0.01
	w := NewWallet(10000, cfg)

	w.ExecuteTrade(models.SignalBuy, 100, "2023-01-01 00:00", "buy")
	w.ExecuteTrade(models.SignalHold, 98.9, "2023-01-01 01:00", "No clear signal")

	last := w.Ledger()[len(w.Ledger())-1]
	if last.Signal != models.SignalSell || last.Reason != "Stop Loss Triggered" {
		t.Fatalf("expected stop loss exit, got %s / %q", last.Signal, last.Reason)
	}
}

func TestTimeBasedExit(t *testing.T) {
	w := NewWallet(10000, noExitConfig())

	w.ExecuteTrade(models.SignalBuy, 100, "2023-01-01 00:00", "buy")
	// Same price a full day later: neither profit nor loss, only time.
	w.ExecuteTrade(models.SignalHold, 100, "2023-01-02 00:00", "No clear signal")

	last := w.Ledger()[len(w.Ledger())-1]
	if last.Signal != models.SignalSell || last.Reason != "Time-Based Exit (24h)" {
		t.Fatalf("expected time-based exit, got %s / %q", last.Signal, last.Reason)
	}
}

func TestHoldBefore24HoursKeepsPosition(t *testing.T) {
	w := NewWallet(10000, noExitConfig())

	w.ExecuteTrade(models.SignalBuy, 100, "2023-01-01 00:00", "buy")
	w.ExecuteTrade(models.SignalHold, 100, "2023-01-01 23:00", "No clear signal")

	last := w.Ledger()[len(w.Ledger())-1]
	if last.Signal != models.SignalHold {
		t.Fatalf("expected HOLD, got %s", last.Signal)
	}
	if w.AssetBalance() == 0 {
		t.Fatal("position should still be open")
	}
}

func TestExitPriorityOnEqualEdges(t *testing.T) {
	// With both thresholds at zero an unchanged price satisfies take
	// profit and stop loss simultaneously; take profit wins.
	cfg := noExitConfig()
	cfg.TakeProfitPct = 0
	cfg.StopLossPct = 0
	w := NewWallet(10000, cfg)

	w.ExecuteTrade(models.SignalBuy, 100, "2023-01-01 00:00", "buy")
	w.ExecuteTrade(models.SignalHold, 100, "2023-01-01 01:00", "No clear signal")

	last := w.Ledger()[len(w.Ledger())-1]
	if last.Reason != "Take Profit Triggered" {
		t.Fatalf("reason = %q, want take profit to win the tie", last.Reason)
	}
}

func TestExplicitSellIgnoresExitPolicy(t *testing.T) {
	w := NewWallet(10000, noExitConfig())

	w.ExecuteTrade(models.SignalBuy, 100, "2023-01-01 00:00", "buy")
	w.ExecuteTrade(models.SignalSell, 100.5, "2023-01-01 01:00", "RSI above 60 and MACD crossdown")

	last := w.Ledger()[len(w.Ledger())-1]
	if last.Signal != models.SignalSell {
		t.Fatalf("expected SELL, got %s", last.Signal)
	}
	if last.Reason != "RSI above 60 and MACD crossdown" {
		t.Errorf("explicit sell should keep the caller's reason, got %q", last.Reason)
	}
}

func TestInsufficientFundsDegradesToHold(t *testing.T) {
	cfg := noExitConfig()
	cfg.FeeRate = 0.001 // full-balance sizing cannot cover the fee
	w := NewWallet(10000, cfg)

	w.ExecuteTrade(models.SignalBuy, 100, "2023-01-01 00:00", "buy")

	last := w.Ledger()[0]
	if last.Signal != models.SignalHold {
		t.Fatalf("expected HOLD, got %s", last.Signal)
	}
	if last.Reason != "Insufficient funds for risk-based position" {
		t.Errorf("reason = %q", last.Reason)
	}
	if w.CashBalance() != 10000 || w.AssetBalance() != 0 {
		t.Errorf("state changed on a rejected buy: cash=%v asset=%v", w.CashBalance(), w.AssetBalance())
	}
}

func TestSellWhileFlat(t *testing.T) {
	w := NewWallet(10000, noExitConfig())

	w.ExecuteTrade(models.SignalSell, 100, "2023-01-01 00:00", "sell into nothing")

	entry := w.Ledger()[0]
	if entry.Signal != models.SignalSell || entry.Amount != 0 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if w.CashBalance() != 10000 {
		t.Errorf("cash balance = %v, want unchanged 10000", w.CashBalance())
	}
}

func TestBuyWhileLongReenters(t *testing.T) {
	cfg := noExitConfig()
	cfg.RiskPct = 0.1
	w := NewWallet(10000, cfg)

	w.ExecuteTrade(models.SignalBuy, 100, "2023-01-01 00:00", "first entry")
	firstAsset := w.AssetBalance()
	w.ExecuteTrade(models.SignalBuy, 120, "2023-01-01 01:00", "second entry")

	if w.AssetBalance() <= firstAsset {
		t.Error("second buy should add to the position")
	}
	entry, _ := w.EntryPrice()
	if entry != 120 {
		t.Errorf("entry price = %v, want the latest entry 120", entry)
	}
}

func TestZeroPriceNeverBuys(t *testing.T) {
	w := NewWallet(10000, noExitConfig())
	w.ExecuteTrade(models.SignalBuy, 0, "2023-01-01 00:00", "buy at zero")

	// Sizing degrades to zero, the zero-cost entry is affordable, and
	// balances stay intact.
	if w.CashBalance() != 10000 {
		t.Errorf("cash balance = %v, want 10000", w.CashBalance())
	}
	if w.AssetBalance() != 0 {
		t.Errorf("asset balance = %v, want 0", w.AssetBalance())
	}
}

func TestMalformedTimeDoesNotPanic(t *testing.T) {
	w := NewWallet(10000, noExitConfig())
	w.ExecuteTrade(models.SignalBuy, 100, "not a timestamp", "buy")
	w.ExecuteTrade(models.SignalHold, 101, "also wrong", "hold")

	if len(w.Ledger()) != 2 {
		t.Fatalf("ledger length = %d, want 2", len(w.Ledger()))
	}
}

func TestInvariantsUnderRandomStreams(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	signals := []models.Signal{models.SignalBuy, models.SignalSell, models.SignalHold}

	for run := 0; run < 20; run++ {
		cfg := models.StrategyConfig{
			TakeProfitPct:  rng.Float64() * 0.1,
			StopLossPct:    rng.Float64() * 0.1,
			RiskPct:        rng.Float64(),
			FeeRate:        rng.Float64() * 0.01,
			MaxExposurePct: rng.Float64(),
		}
		w := NewWallet(10000, cfg)

		steps := 200
		for i := 0; i < steps; i++ {
			price := 50 + rng.Float64()*100
			w.ExecuteTrade(signals[rng.Intn(len(signals))], price, "2023-01-01 00:00", "random")

			if w.CashBalance() < 0 {
				t.Fatalf("run %d step %d: negative cash %v", run, i, w.CashBalance())
			}
			if w.AssetBalance() < 0 {
				t.Fatalf("run %d step %d: negative asset %v", run, i, w.AssetBalance())
			}
			_, open := w.EntryPrice()
			if open != (w.AssetBalance() > 0) {
				t.Fatalf("run %d step %d: entry/position mismatch", run, i)
			}
		}
		if len(w.Ledger()) != steps {
			t.Fatalf("run %d: ledger length %d, want %d", run, len(w.Ledger()), steps)
		}
	}
}
