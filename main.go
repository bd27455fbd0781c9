package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"driftwatch-go/src/coinbase"
	"driftwatch-go/src/indicators"
	"driftwatch-go/src/models"
	"driftwatch-go/src/notify"
	"driftwatch-go/src/strategy"
	"driftwatch-go/src/tradelog"
)

func main() {
	product := flag.String("product", "BTC-USD", "product to evaluate")
	limit := flag.Int("limit", 50, "number of hourly candles to fetch")
	snapshotPath := flag.String("snapshot", "btc_1h_data_with_indicators.csv", "indicator snapshot output file")
	tradesPath := flag.String("trades", "trades.csv", "running trades log")
	watch := flag.Bool("watch", false, "stream live ticker prices after deciding")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received stop signal, shutting down...")
		cancel()
	}()

	client, err := coinbase.NewClientFromEnv()
	if err != nil {
		log.Fatalf("creating Coinbase client failed: %v", err)
	}

	// 1. Account balances.
	balances, err := client.GetBalances(ctx)
	if err != nil {
		log.Fatalf("fetching balances failed: %v", err)
	}
	fmt.Println("Balances:")
	for currency, value := range balances {
		fmt.Printf("%s: %s\n", currency, value)
	}

	// 2. Live spot price.
	price, err := client.GetSpotPrice(ctx, *product)
	if err != nil {
		log.Fatalf("fetching spot price failed: %v", err)
	}
	fmt.Printf("\nCurrent %s Price: %.2f\n", *product, price)

	// 3. Historical hourly candles up to now.
	candles, err := client.GetRecentCandles(ctx, *product, coinbase.GranularityHour, *limit)
	if err != nil {
		log.Fatalf("fetching candles failed: %v", err)
	}
	log.Printf("fetched %d candles for %s", len(candles), *product)

	// 4. Enrich with indicators.
	rows := indicators.NewCalculator().Enrich(candles)

	// 5. Decide on the latest row with complete indicator data.
	latest, ok := latestComplete(rows)
	if !ok {
		log.Fatalf("no row with complete indicator data; need more candles than the %d fetched", len(candles))
	}
	defaults := models.DefaultConfig()
	decision := strategy.Decide(latest, defaults.RSIBuy, defaults.RSISell)

	// 6. Log the decision.
	if err := tradelog.AppendDecision(*tradesPath, decision, balances); err != nil {
		log.Printf("warning: appending to trades log failed: %v", err)
	}
	fmt.Printf("\nTrade Signal: %s | Reason: %s | Time: %s\n", decision.Signal, decision.Reason, decision.Time)

	notifier := notify.NewTelegramNotifierFromEnv()
	if notifier.Enabled() {
		if err := notifier.NotifyDecision(*product, decision, price); err != nil {
			log.Printf("warning: telegram notification failed: %v", err)
		}
	}

	// 7. Save the full data snapshot.
	if err := tradelog.WriteMarketCSV(*snapshotPath, rows); err != nil {
		log.Printf("warning: writing snapshot failed: %v", err)
	} else {
		log.Printf("snapshot written to %s", *snapshotPath)
	}

	if *watch {
		if err := watchTicker(ctx, *product); err != nil {
			log.Printf("ticker stream error: %v", err)
		}
	}
}

// latestComplete returns the most recent row carrying full indicator
// data, mirroring a dropna-then-take-last over the snapshot.
func latestComplete(rows []models.MarketRow) (models.MarketRow, bool) {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Complete() {
			return rows[i], true
		}
	}
	return models.MarketRow{}, false
}

// watchTicker streams live prices until the context is cancelled.
func watchTicker(ctx context.Context, product string) error {
	ws := coinbase.NewWSClient()
	if err := ws.Connect(ctx); err != nil {
		return err
	}
	defer ws.Disconnect()

	err := ws.SubscribeTicker(product, func(msg coinbase.TickerMessage) {
		log.Printf("%s  price=%s  bid=%s  ask=%s", msg.ProductID, msg.Price, msg.BestBid, msg.BestAsk)
	})
	if err != nil {
		return err
	}

	log.Printf("streaming %s ticker; press Ctrl-C to stop", product)
	<-ctx.Done()
	return nil
}
