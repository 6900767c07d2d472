// Package engine is the per-cycle decision core: it fetches market
// data, aggregates indicator votes, reconciles them against exposure
// derived from the trade journal, and conditionally dispatches and
// journals orders. The engine keeps no state between cycles; exposure
// is re-derived from the journal at the start of every evaluation.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/camuig/pulse-trader/internal/config"
	"github.com/camuig/pulse-trader/internal/exchange"
	"github.com/camuig/pulse-trader/internal/logger"
	"github.com/camuig/pulse-trader/internal/position"
	"github.com/camuig/pulse-trader/internal/signal"
	"github.com/camuig/pulse-trader/internal/storage"
)

// Store is the slice of the repository the engine needs.
type Store interface {
	Accounts() ([]storage.Account, error)
	AppendTrade(rec *storage.TradeRecord) error
	Trades(accountID, symbol string) ([]storage.TradeRecord, error)
}

// Notifier receives executed/simulated trade records. Best-effort:
// implementations swallow their own failures.
type Notifier interface {
	NotifyTrade(acct *storage.Account, rec *storage.TradeRecord)
	NotifyError(scope string, err error)
}

type Engine struct {
	cfg       *config.Config
	store     Store
	gateways  exchange.Factory
	notifier  Notifier
	evaluator *signal.Evaluator
	log       *logger.Logger

	now func() time.Time
}

func New(cfg *config.Config, store Store, gateways exchange.Factory, notifier Notifier, log *logger.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		store:     store,
		gateways:  gateways,
		notifier:  notifier,
		evaluator: signal.NewEvaluator(log),
		log:       log,
		now:       time.Now,
	}
}

// RunOnce executes one full cycle: every account, every configured
// symbol, sequentially. A failure in one account or symbol never
// aborts the others.
func (e *Engine) RunOnce(ctx context.Context) error {
	accounts, err := e.store.Accounts()
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	for i := range accounts {
		e.runAccount(ctx, &accounts[i])
	}
	return nil
}

func (e *Engine) runAccount(ctx context.Context, acct *storage.Account) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic in account cycle", "account", acct.ID, "panic", fmt.Sprint(r))
		}
	}()

	set, err := acct.Settings()
	if err != nil {
		e.log.Error("settings unreadable, skipping account", "account", acct.ID, "error", err)
		return
	}
	if set.DisabledAuth {
		e.log.Info("auth disabled, skipping account", "account", acct.ID)
		return
	}
	if acct.APIKey == "" || acct.APISecret == "" {
		e.log.Info("missing api credentials, skipping account", "account", acct.ID)
		return
	}

	client := e.gateways.Client(acct.APIKey, acct.APISecret, set.Testnet)

	balance, err := client.GetBalanceUSDT(ctx)
	if err != nil {
		if exchange.IsAuthError(err) {
			e.log.Warn("credentials rejected, skipping account", "account", acct.ID, "error", err)
			return
		}
		// capital errors gate individual orders downstream
		e.log.Warn("balance read failed", "account", acct.ID, "error", err)
		balance = 0
	}

	for _, symbol := range set.Symbols {
		if err := e.processSymbol(ctx, acct, set, client, symbol, balance); err != nil {
			e.log.Error("symbol evaluation failed", "account", acct.ID, "symbol", symbol, "error", err)
		}
	}
}

func (e *Engine) processSymbol(ctx context.Context, acct *storage.Account, set storage.Settings, client exchange.Client, symbol string, balance float64) error {
	candles, err := client.GetKlines(ctx, symbol, set.Timeframe, e.cfg.Trading.CandleLimit)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		e.log.Warn("no candle data", "account", acct.ID, "symbol", symbol)
		return nil
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	in := signal.Inputs{Closes: closes}

	if set.UseOI {
		oi, err := client.GetOpenInterest(ctx, symbol, set.Timeframe, e.cfg.Trading.OpenInterestLimit)
		if err != nil {
			// the indicator simply drops out of the vote
			e.log.Warn("fetch open interest failed", "account", acct.ID, "symbol", symbol, "error", err)
		} else {
			in.OpenInterest = make([]float64, len(oi))
			for i, v := range oi {
				in.OpenInterest[i] = v.Value
			}
		}
	}

	ev := e.evaluator.Evaluate(set, in)
	if ev.Active == 0 {
		e.log.Info("no active indicators, skipping symbol", "account", acct.ID, "symbol", symbol)
		return nil
	}
	e.log.Info("votes aggregated", "account", acct.ID, "symbol", symbol,
		"active", ev.Active, "buy_votes", ev.BuyVotes, "sell_votes", ev.SellVotes,
		"buy_ratio", ev.BuyRatio, "sell_ratio", ev.SellRatio)

	trades, err := e.store.Trades(acct.ID, symbol)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	pos := position.Derive(trades)

	price := closes[len(closes)-1]
	e.applySignal(ctx, acct, set, client, symbol, ev, pos, price, balance)
	return nil
}
