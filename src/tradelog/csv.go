package tradelog

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"driftwatch-go/src/models"
)

// Column layout of the indicator-enriched market snapshot.
var snapshotHeader = []string{
	"timestamp", "open", "high", "low", "close", "volume",
	"rsi", "macd", "macds", "macdh", "ema_fast", "ema_slow",
}

// WriteMarketCSV writes an indicator-enriched snapshot. NaN indicator
// values are written as empty cells so the file round-trips through
// LoadMarketCSV and stays readable by spreadsheet tooling.
func WriteMarketCSV(path string, rows []models.MarketRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(snapshotHeader); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Timestamp,
			formatF(r.Open), formatF(r.High), formatF(r.Low), formatF(r.Close), formatF(r.Volume),
			formatF(r.RSI), formatF(r.MACD), formatF(r.MACDSignal), formatF(r.MACDHist),
			formatF(r.EMAFast), formatF(r.EMASlow),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing snapshot row: %w", err)
		}
	}
	return nil
}

// LoadMarketCSV reads an indicator-enriched snapshot back into market
// rows. Empty or unparseable numeric cells become NaN; the timestamp
// column is kept raw, exactly as the file carries it.
func LoadMarketCSV(path string) ([]models.MarketRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("snapshot file %s is empty", path)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}

	cell := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}
	num := func(record []string, name string) float64 {
		v, err := strconv.ParseFloat(cell(record, name), 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}

	rows := make([]models.MarketRow, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, models.MarketRow{
			Timestamp:  cell(record, "timestamp"),
			Open:       num(record, "open"),
			High:       num(record, "high"),
			Low:        num(record, "low"),
			Close:      num(record, "close"),
			Volume:     num(record, "volume"),
			RSI:        num(record, "rsi"),
			MACD:       num(record, "macd"),
			MACDSignal: num(record, "macds"),
			MACDHist:   num(record, "macdh"),
			EMAFast:    num(record, "ema_fast"),
			EMASlow:    num(record, "ema_slow"),
		})
	}
	return rows, nil
}

// WriteLedgerCSV writes a simulation ledger, one row per processed
// market row.
func WriteLedgerCSV(path string, entries []models.LedgerEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ledger file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"time", "signal", "price", "amount", "cash_balance", "asset_balance", "portfolio_value", "reason"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing ledger header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.Time, string(e.Signal),
			formatF(e.Price), formatF(e.Amount),
			formatF(e.CashBalance), formatF(e.AssetBalance), formatF(e.PortfolioValue),
			e.Reason,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing ledger row: %w", err)
		}
	}
	return nil
}

// WriteLeaderboardCSV writes the ranked parameter search results.
func WriteLeaderboardCSV(path string, results []models.OptimizationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating leaderboard file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"rsi_buy", "rsi_sell", "take_profit_pct", "stop_loss_pct", "risk_pct",
		"final_portfolio_value", "net_return_pct", "total_trades",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing leaderboard header: %w", err)
	}
	for _, r := range results {
		record := []string{
			formatF(r.RSIBuy), formatF(r.RSISell),
			formatF(r.TakeProfitPct), formatF(r.StopLossPct), formatF(r.RiskPct),
			formatF(r.FinalValue), formatF(r.NetReturnPct),
			strconv.Itoa(r.TotalTrades),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing leaderboard row: %w", err)
		}
	}
	return nil
}

// AppendDecision appends one live trade decision to the running trades
// log, creating the file with a header on first use.
func AppendDecision(path string, decision models.TradeSignal, balances map[string]string) error {
	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening trades log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if newFile {
		if err := w.Write([]string{"time", "signal", "reason", "btc_balance", "usd_balance"}); err != nil {
			return fmt.Errorf("writing trades log header: %w", err)
		}
	}

	btc := balances["BTC"]
	if btc == "" {
		btc = "0"
	}
	usd := balances["USD"]
	if usd == "" {
		usd = "0"
	}

	record := []string{decision.Time, string(decision.Signal), decision.Reason, btc, usd}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("writing trades log row: %w", err)
	}
	return nil
}

// formatF renders a float with the shortest exact representation; NaN
// becomes an empty cell.
func formatF(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
