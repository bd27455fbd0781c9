package strategy

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"driftwatch-go/src/models"
)

// clockLayout is the normalized timestamp format carried on every signal.
const clockLayout = "2006-01-02 15:04"

// Decide maps one indicator-enriched market row to a trade signal.
//
// The function is total: malformed or missing inputs degrade to a HOLD
// with an explanatory reason, never an error. Thresholds are comparison
// bounds on RSI; the MACD line position relative to its signal line acts
// as the confirmation filter.
func Decide(row models.MarketRow, rsiBuy, rsiSell float64) models.TradeSignal {
	t := FormatTimestamp(row.Timestamp)

	if math.IsNaN(row.RSI) || math.IsNaN(row.MACD) || math.IsNaN(row.MACDSignal) {
		return models.TradeSignal{Signal: models.SignalHold, Reason: "Missing indicator data", Time: t}
	}

	switch {
	case row.RSI < rsiBuy && row.MACD > row.MACDSignal:
		return models.TradeSignal{
			Signal: models.SignalBuy,
			Reason: fmt.Sprintf("RSI below %v and MACD crossover", rsiBuy),
			Time:   t,
		}
	case row.RSI > rsiSell && row.MACD < row.MACDSignal:
		return models.TradeSignal{
			Signal: models.SignalSell,
			Reason: fmt.Sprintf("RSI above %v and MACD crossdown", rsiSell),
			Time:   t,
		}
	default:
		return models.TradeSignal{Signal: models.SignalHold, Reason: "No clear signal", Time: t}
	}
}

// FormatTimestamp normalizes a raw timestamp field to a UTC clock string.
// The raw value is interpreted as seconds since epoch; anything that does
// not parse as a number falls back to epoch zero.
func FormatTimestamp(raw string) string {
	ts := int64(0)
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		ts = int64(f)
	}
	return time.Unix(ts, 0).UTC().Format(clockLayout)
}
