package strategy

import (
	"math"
	"math/rand"
	"regexp"
	"testing"

	"driftwatch-go/src/models"
)

func row(ts string, rsi, macd, macds float64) models.MarketRow {
	return models.MarketRow{
		Timestamp:  ts,
		Close:      100,
		RSI:        rsi,
		MACD:       macd,
		MACDSignal: macds,
	}
}

func TestDecideBuySignal(t *testing.T) {
	got := Decide(row("1678886400", 30, 0.5, 0.4), 40, 60)

	if got.Signal != models.SignalBuy {
		t.Fatalf("expected BUY, got %s", got.Signal)
	}
	if got.Reason != "RSI below 40 and MACD crossover" {
		t.Errorf("unexpected reason: %q", got.Reason)
	}
	if got.Time != "2023-03-15 12:00" {
		t.Errorf("unexpected time: %q", got.Time)
	}
}

func TestDecideSellSignal(t *testing.T) {
	got := Decide(row("1678886400", 70, -0.5, -0.4), 40, 60)

	if got.Signal != models.SignalSell {
		t.Fatalf("expected SELL, got %s", got.Signal)
	}
	if got.Reason != "RSI above 60 and MACD crossdown" {
		t.Errorf("unexpected reason: %q", got.Reason)
	}
}

func TestDecideMissingIndicatorData(t *testing.T) {
	nan := math.NaN()
	cases := []models.MarketRow{
		row("1678886400", nan, 0.5, 0.4),
		row("1678886400", 30, nan, 0.4),
		row("1678886400", 30, 0.5, nan),
		row("1678886400", nan, nan, nan),
	}

	for i, r := range cases {
		got := Decide(r, 40, 60)
		if got.Signal != models.SignalHold {
			t.Errorf("case %d: expected HOLD, got %s", i, got.Signal)
		}
		if got.Reason != "Missing indicator data" {
			t.Errorf("case %d: unexpected reason: %q", i, got.Reason)
		}
	}
}

func TestDecideNoClearSignal(t *testing.T) {
	// RSI in the neutral band.
	got := Decide(row("1678886400", 50, 0.5, 0.4), 40, 60)
	if got.Signal != models.SignalHold || got.Reason != "No clear signal" {
		t.Fatalf("expected neutral HOLD, got %s / %q", got.Signal, got.Reason)
	}

	// Oversold RSI without MACD confirmation.
	got = Decide(row("1678886400", 30, 0.4, 0.5), 40, 60)
	if got.Signal != models.SignalHold {
		t.Fatalf("expected HOLD without crossover, got %s", got.Signal)
	}
}

func TestDecideThresholdsAreStrict(t *testing.T) {
	// RSI exactly at the threshold triggers nothing.
	if got := Decide(row("0", 40, 1, 0), 40, 60); got.Signal != models.SignalHold {
		t.Errorf("RSI == buy threshold: expected HOLD, got %s", got.Signal)
	}
	if got := Decide(row("0", 60, -1, 0), 40, 60); got.Signal != models.SignalHold {
		t.Errorf("RSI == sell threshold: expected HOLD, got %s", got.Signal)
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"1678886400", "2023-03-15 12:00"},
		{"1678886400.75", "2023-03-15 12:00"},
		{"0", "1970-01-01 00:00"},
		{"", "1970-01-01 00:00"},
		{"not-a-number", "1970-01-01 00:00"},
		{"NaN", "1970-01-01 00:00"},
	}

	for _, tc := range cases {
		if got := FormatTimestamp(tc.raw); got != tc.want {
			t.Errorf("FormatTimestamp(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDecideIsTotal(t *testing.T) {
	timePattern := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)
	rng := rand.New(rand.NewSource(7))

	maybeNaN := func() float64 {
		if rng.Intn(4) == 0 {
			return math.NaN()
		}
		return rng.Float64()*200 - 100
	}
	rawTimes := []string{"1678886400", "", "garbage", "-60", "1e9"}

	for i := 0; i < 1000; i++ {
		r := row(rawTimes[rng.Intn(len(rawTimes))], maybeNaN(), maybeNaN(), maybeNaN())
		got := Decide(r, 40, 60)

		switch got.Signal {
		case models.SignalBuy, models.SignalSell, models.SignalHold:
		default:
			t.Fatalf("iteration %d: invalid signal %q", i, got.Signal)
		}
		if got.Reason == "" {
			t.Fatalf("iteration %d: empty reason", i)
		}
		if !timePattern.MatchString(got.Time) {
			t.Fatalf("iteration %d: malformed time %q", i, got.Time)
		}
	}
}
