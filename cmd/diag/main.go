// Command diag inspects one account: settings, masked credentials,
// live balance and a candle preview. With -create it provisions the
// account with default settings first.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/camuig/pulse-trader/internal/config"
	"github.com/camuig/pulse-trader/internal/exchange/bybit"
	"github.com/camuig/pulse-trader/internal/logger"
	"github.com/camuig/pulse-trader/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "data/pulse-trader.db", "path to SQLite database")
	accountID := flag.String("account", "", "account id to inspect")
	create := flag.Bool("create", false, "create the account with defaults if missing")
	flag.Parse()

	if *accountID == "" {
		fmt.Fprintln(os.Stderr, "usage: diag -account <id> [-create]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New("warn", logger.Options{})

	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database error: %v\n", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	var acct *storage.Account
	if *create {
		acct, err = repo.EnsureAccount(*accountID)
	} else {
		acct, err = repo.GetAccount(*accountID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "account %s: %v\n", *accountID, err)
		os.Exit(1)
	}

	set, err := acct.Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "settings: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Account:    %s (%s)\n", acct.ID, acct.Username)
	fmt.Printf("API key:    %s\n", maskKey(acct.APIKey))
	fmt.Printf("Testnet:    %v\n", set.Testnet)
	fmt.Printf("Dry run:    %v\n", set.DryRun)
	fmt.Printf("Trade mode: %s\n", set.TradeMode)
	fmt.Printf("Symbols:    %v\n", set.Symbols)
	fmt.Printf("Timeframe:  %s\n", set.Timeframe)

	if acct.APIKey == "" || acct.APISecret == "" {
		fmt.Println("No credentials configured; skipping exchange checks.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := bybit.NewFactory(cfg, log).Client(acct.APIKey, acct.APISecret, set.Testnet)

	if bal, err := client.GetBalanceUSDT(ctx); err != nil {
		fmt.Printf("Balance:    error: %v\n", err)
	} else {
		fmt.Printf("Balance:    %.2f USDT\n", bal)
	}

	symbol := set.Symbols[0]
	candles, err := client.GetKlines(ctx, symbol, set.Timeframe, 5)
	if err != nil {
		fmt.Printf("Klines:     error: %v\n", err)
		return
	}
	fmt.Printf("Klines for %s:\n", symbol)
	for _, c := range candles {
		fmt.Printf("  %s  o=%g h=%g l=%g c=%g v=%g\n",
			c.Time.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
}

func maskKey(k string) string {
	if k == "" {
		return "<empty>"
	}
	if len(k) <= 12 {
		return k
	}
	return k[:6] + "..." + k[len(k)-6:]
}
