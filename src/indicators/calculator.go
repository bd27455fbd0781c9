package indicators

import (
	"math"
	"strconv"

	"github.com/markcheno/go-talib"

	"driftwatch-go/src/models"
)

// Calculator derives the indicator columns of a market snapshot from a
// candle series.
type Calculator struct {
	rsiPeriod  int
	macdFast   int
	macdSlow   int
	macdSmooth int
	emaFast    int
	emaSlow    int
}

// NewCalculator creates a calculator with the standard periods:
// RSI(14), MACD(12, 26, 9), EMA(12) and EMA(26).
func NewCalculator() *Calculator {
	return &Calculator{
		rsiPeriod:  14,
		macdFast:   12,
		macdSlow:   26,
		macdSmooth: 9,
		emaFast:    12,
		emaSlow:    26,
	}
}

// Enrich turns a chronological candle series into indicator-enriched
// market rows. Positions inside an indicator's warmup window are NaN, so
// downstream consumers can identify and drop incomplete rows the same
// way they would with a snapshot file.
func (c *Calculator) Enrich(candles []models.Candle) []models.MarketRow {
	rows := make([]models.MarketRow, len(candles))

	closes := make([]float64, len(candles))
	for i, cd := range candles {
		closes[i] = cd.Close
		rows[i] = models.MarketRow{
			Timestamp:  strconv.FormatInt(cd.Timestamp, 10),
			Open:       cd.Open,
			High:       cd.High,
			Low:        cd.Low,
			Close:      cd.Close,
			Volume:     cd.Volume,
			RSI:        math.NaN(),
			MACD:       math.NaN(),
			MACDSignal: math.NaN(),
			MACDHist:   math.NaN(),
			EMAFast:    math.NaN(),
			EMASlow:    math.NaN(),
		}
	}

	if len(candles) > c.rsiPeriod {
		rsi := talib.Rsi(closes, c.rsiPeriod)
		for i := c.rsiPeriod; i < len(rows); i++ {
			rows[i].RSI = rsi[i]
		}
	}

	// All three MACD outputs share one lookback: the slow EMA plus the
	// signal smoothing window. Positions before it hold no real value.
	macdStart := c.macdSlow + c.macdSmooth - 2
	if len(candles) > macdStart {
		macd, signal, hist := talib.Macd(closes, c.macdFast, c.macdSlow, c.macdSmooth)
		for i := macdStart; i < len(rows); i++ {
			rows[i].MACD = macd[i]
			rows[i].MACDSignal = signal[i]
			rows[i].MACDHist = hist[i]
		}
	}

	if len(candles) >= c.emaFast {
		ema := talib.Ema(closes, c.emaFast)
		for i := c.emaFast - 1; i < len(rows); i++ {
			rows[i].EMAFast = ema[i]
		}
	}
	if len(candles) >= c.emaSlow {
		ema := talib.Ema(closes, c.emaSlow)
		for i := c.emaSlow - 1; i < len(rows); i++ {
			rows[i].EMASlow = ema[i]
		}
	}

	return rows
}
