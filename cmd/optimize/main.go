package main

import (
	"flag"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"driftwatch-go/src/config"
	"driftwatch-go/src/models"
	"driftwatch-go/src/sim"
	"driftwatch-go/src/tradelog"
	"driftwatch-go/src/ui"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	dataPath := flag.String("data", "", "indicator snapshot CSV (overrides config)")
	outPath := flag.String("out", "", "leaderboard output CSV (overrides config)")
	plain := flag.Bool("plain", false, "disable the progress view")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	cfg.ApplyEnv()
	if *dataPath != "" {
		cfg.Data.Snapshot = *dataPath
	}
	if *outPath != "" {
		cfg.Data.Results = *outPath
	}

	rows, err := tradelog.LoadMarketCSV(cfg.Data.Snapshot)
	if err != nil {
		log.Fatalf("loading market data failed: %v", err)
	}
	log.Printf("loaded %d rows from %s", len(rows), cfg.Data.Snapshot)

	grid := cfg.Grid()
	opt := sim.NewOptimizer(cfg.Simulation.StartingCash, grid)

	var results []models.OptimizationResult
	if *plain {
		results = opt.Run(rows)
	} else {
		results, err = runWithProgress(opt, rows)
		if err != nil {
			log.Fatalf("parameter search failed: %v", err)
		}
		if results == nil {
			log.Println("parameter search cancelled")
			return
		}
	}

	if err := tradelog.WriteLeaderboardCSV(cfg.Data.Results, results); err != nil {
		log.Fatalf("writing leaderboard failed: %v", err)
	}
	fmt.Println(ui.RenderLeaderboard(results))
	log.Printf("optimization complete, results saved to %s", cfg.Data.Results)
}

// runWithProgress drives the optimizer under a bubbletea progress view.
// A nil result slice means the user cancelled the run.
func runWithProgress(opt *sim.Optimizer, rows []models.MarketRow) ([]models.OptimizationResult, error) {
	p := tea.NewProgram(newProgressModel(opt.Configs))

	go func() {
		results := opt.RunWithProgress(rows, func(i int) {
			p.Send(configDoneMsg(i))
		})
		p.Send(resultsMsg(results))
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(progressModel).results, nil
}

type configDoneMsg int

type resultsMsg []models.OptimizationResult

// progressModel shows one line per candidate config while the search
// runs, flipping markers as runs complete.
type progressModel struct {
	grid    []models.StrategyConfig
	done    []bool
	results []models.OptimizationResult
}

func newProgressModel(grid []models.StrategyConfig) progressModel {
	return progressModel{
		grid: grid,
		done: make([]bool, len(grid)),
	}
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case configDoneMsg:
		if int(msg) >= 0 && int(msg) < len(m.done) {
			m.done[msg] = true
		}
	case resultsMsg:
		m.results = msg
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	s := fmt.Sprintf("Running parameter search over %d configurations\n\n", len(m.grid))
	for i, cfg := range m.grid {
		marker := "⋯"
		if m.done[i] {
			marker = "✓"
		}
		s += fmt.Sprintf("  %s  rsi_buy=%v rsi_sell=%v tp=%v sl=%v risk=%v\n",
			marker, cfg.RSIBuy, cfg.RSISell, cfg.TakeProfitPct, cfg.StopLossPct, cfg.RiskPct)
	}
	s += "\npress q to cancel\n"
	return s
}
