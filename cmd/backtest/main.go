package main

import (
	"flag"
	"fmt"
	"log"

	"driftwatch-go/src/config"
	"driftwatch-go/src/models"
	"driftwatch-go/src/sim"
	"driftwatch-go/src/tradelog"
	"driftwatch-go/src/ui"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	dataPath := flag.String("data", "", "indicator snapshot CSV (overrides config)")
	outPath := flag.String("out", "", "ledger output CSV (overrides config)")
	tail := flag.Int("tail", 15, "ledger rows to print")
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
		cfg.Data.Trades = *outPath
	}

	rows, err := tradelog.LoadMarketCSV(cfg.Data.Snapshot)
	if err != nil {
		log.Fatalf("loading market data failed: %v", err)
	}

	usable := 0
	for _, r := range rows {
		if r.Complete() {
			usable++
		}
	}
	log.Printf("loaded %d rows from %s (%d with complete indicators)", len(rows), cfg.Data.Snapshot, usable)

	ledger := sim.Run(rows, cfg.StrategyConfig(), cfg.Simulation.StartingCash)
	if err := tradelog.WriteLedgerCSV(cfg.Data.Trades, ledger); err != nil {
		log.Fatalf("writing ledger failed: %v", err)
	}
	log.Printf("simulation complete, ledger saved to %s", cfg.Data.Trades)

	finalValue := cfg.Simulation.StartingCash
	trades := 0
	for _, e := range ledger {
		if e.Signal != models.SignalHold {
			trades++
		}
	}
	if len(ledger) > 0 {
		finalValue = ledger[len(ledger)-1].PortfolioValue
	}

	fmt.Println(ui.RenderLedgerTail(ledger, *tail))
	fmt.Println(ui.RenderRunSummary(cfg.Simulation.StartingCash, finalValue, trades))
}
