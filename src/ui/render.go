package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"driftwatch-go/src/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Align(lipgloss.Center)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	profitStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	neutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// RenderLeaderboard renders the ranked parameter search results.
func RenderLeaderboard(results []models.OptimizationResult) string {
	t := newTable("rsi_buy", "rsi_sell", "tp_pct", "sl_pct", "risk_pct", "final_value", "net_return_pct", "trades")
	for _, r := range results {
		t.Row(
			formatF(r.RSIBuy), formatF(r.RSISell),
			formatF(r.TakeProfitPct), formatF(r.StopLossPct), formatF(r.RiskPct),
			fmt.Sprintf("%.2f", r.FinalValue),
			fmt.Sprintf("%.2f", r.NetReturnPct),
			strconv.Itoa(r.TotalTrades),
		)
	}
	return titleStyle.Render("Optimization Leaderboard") + "\n" + t.Render()
}

// RenderLedgerTail renders the last n ledger entries.
func RenderLedgerTail(entries []models.LedgerEntry, n int) string {
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	t := newTable("time", "signal", "price", "amount", "cash", "asset", "portfolio", "reason")
	for _, e := range entries {
		t.Row(
			e.Time, string(e.Signal),
			fmt.Sprintf("%.2f", e.Price),
			fmt.Sprintf("%.8f", e.Amount),
			fmt.Sprintf("%.2f", e.CashBalance),
			fmt.Sprintf("%.8f", e.AssetBalance),
			fmt.Sprintf("%.2f", e.PortfolioValue),
			e.Reason,
		)
	}
	return titleStyle.Render("Ledger") + "\n" + t.Render()
}

// RenderRunSummary renders the outcome of one simulation run.
func RenderRunSummary(startingCash, finalValue float64, trades int) string {
	returnPct := 0.0
	if startingCash > 0 {
		returnPct = (finalValue - startingCash) / startingCash * 100
	}
	style := neutralStyle
	if returnPct > 0 {
		style = profitStyle
	} else if returnPct < 0 {
		style = lossStyle
	}
	return fmt.Sprintf("%s  start=%.2f  final=%.2f  %s  trades=%d",
		titleStyle.Render("Simulation complete"),
		startingCash, finalValue,
		style.Render(fmt.Sprintf("return=%.2f%%", returnPct)),
		trades)
}

func formatF(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
