package engine

import (
	"context"

	"github.com/camuig/pulse-trader/internal/exchange"
	"github.com/camuig/pulse-trader/internal/position"
	"github.com/camuig/pulse-trader/internal/signal"
	"github.com/camuig/pulse-trader/internal/storage"
)

type order struct {
	symbol     string
	market     storage.Market
	side       storage.Side
	action     storage.Action
	qty        float64
	price      float64
	leverage   int
	reduceOnly bool
}

// applySignal is the trade-mode decision table. Buy and sell
// confirmations are evaluated independently, buy first; both can fire
// in the same cycle. At most one action results per direction, and a
// failed gate produces no journal entry at all.
func (e *Engine) applySignal(ctx context.Context, acct *storage.Account, set storage.Settings, client exchange.Client, symbol string, ev signal.Evaluation, pos position.State, price, balance float64) {
	buyConfirmed := ev.BuyRatio >= set.BuyConfirmationRatio
	sellConfirmed := ev.SellRatio >= set.SellConfirmationRatio

	if set.TradeMode == storage.TradeModeFuturesOnly {
		// buy: close an open short, otherwise open a long
		if buyConfirmed {
			if qty, ok := e.sizeOrder(acct.ID, set, balance, price); ok {
				if pos.ShortOpen() {
					e.execute(ctx, acct, set, client, order{
						symbol: symbol, market: storage.MarketFutures,
						side: storage.SideBuy, action: storage.ActionClose,
						qty: qty, price: price, reduceOnly: true,
					})
				} else {
					e.execute(ctx, acct, set, client, order{
						symbol: symbol, market: storage.MarketFutures,
						side: storage.SideBuy, action: storage.ActionOpen,
						qty: qty, price: price, leverage: set.DefaultLeverage,
					})
				}
			}
		}

		// sell: close an open long, otherwise open a short
		if sellConfirmed {
			if qty, ok := e.sizeOrder(acct.ID, set, balance, price); ok {
				if pos.LongOpen() {
					e.execute(ctx, acct, set, client, order{
						symbol: symbol, market: storage.MarketFutures,
						side: storage.SideSell, action: storage.ActionClose,
						qty: qty, price: price, reduceOnly: true,
					})
				} else {
					e.execute(ctx, acct, set, client, order{
						symbol: symbol, market: storage.MarketFutures,
						side: storage.SideSell, action: storage.ActionOpen,
						qty: qty, price: price, leverage: set.DefaultLeverage,
					})
				}
			}
		}
		return
	}

	// mixed and spot_only share this path. Note that spot_only still
	// takes the futures-short branches when shorts are enabled; kept
	// as-is pending a product decision on what the mode should mean.

	if buyConfirmed && !pos.SpotOpen() {
		if qty, ok := e.sizeOrder(acct.ID, set, balance, price); ok {
			e.execute(ctx, acct, set, client, order{
				symbol: symbol, market: storage.MarketSpot,
				side: storage.SideBuy, qty: qty, price: price,
			})
		}
	}

	if sellConfirmed && pos.SpotOpen() {
		// close the whole spot position at its opening quantity
		qty := pos.Spot.Qty
		if qty <= 0 {
			e.log.Warn("cannot determine spot qty to close", "account", acct.ID, "symbol", symbol)
		} else {
			e.execute(ctx, acct, set, client, order{
				symbol: symbol, market: storage.MarketSpot,
				side: storage.SideSell, qty: qty, price: price,
			})
		}
	}

	if sellConfirmed && set.EnableShorts && !pos.ShortOpen() {
		if qty, ok := e.sizeOrder(acct.ID, set, balance, price); ok {
			e.execute(ctx, acct, set, client, order{
				symbol: symbol, market: storage.MarketFutures,
				side: storage.SideSell, action: storage.ActionOpen,
				qty: qty, price: price, leverage: set.DefaultLeverage,
			})
		}
	}

	if buyConfirmed && pos.ShortOpen() {
		qty := pos.Short.Qty
		if qty <= 0 {
			e.log.Warn("cannot determine short qty to close", "account", acct.ID, "symbol", symbol)
		} else {
			e.execute(ctx, acct, set, client, order{
				symbol: symbol, market: storage.MarketFutures,
				side: storage.SideBuy, action: storage.ActionClose,
				qty: qty, price: price, reduceOnly: true,
			})
		}
	}
}

// execute dispatches one order (or simulates it under dry-run),
// appends the journal record and forwards it to the notifier. Dispatch
// failures are journaled with the error attached. Journal failures are
// logged and the cycle proceeds, accepting that the dispatched order
// goes unrecorded.
func (e *Engine) execute(ctx context.Context, acct *storage.Account, set storage.Settings, client exchange.Client, o order) {
	rec := &storage.TradeRecord{
		AccountID: acct.ID,
		Symbol:    o.symbol,
		Market:    o.market,
		Side:      o.side,
		Action:    o.action,
		Qty:       o.qty,
		Price:     o.price,
		Leverage:  o.leverage,
		Simulated: set.DryRun,
		Timestamp: storage.FormatTimestamp(e.now()),
	}

	if set.DryRun {
		e.log.Info("[DRY] order simulated", "account", acct.ID, "symbol", o.symbol,
			"market", o.market, "side", o.side, "action", o.action,
			"qty", o.qty, "price", o.price)
	} else {
		if o.market == storage.MarketFutures && o.action == storage.ActionOpen {
			if ls, ok := client.(exchange.LeverageSetter); ok {
				if err := ls.SetLeverage(ctx, o.symbol, o.leverage); err != nil {
					e.log.Debug("set leverage failed", "account", acct.ID, "symbol", o.symbol, "error", err)
				}
			}
		}

		var res *exchange.ExecutionResult
		var err error
		if o.market == storage.MarketSpot {
			res, err = client.PlaceSpotOrder(ctx, o.symbol, o.side, o.qty)
		} else {
			res, err = client.PlaceFuturesOrder(ctx, o.symbol, o.side, o.qty,
				exchange.OrderOptions{Leverage: o.leverage, ReduceOnly: o.reduceOnly})
		}

		if err != nil {
			rec.ResultCode = -1
			rec.ResultMsg = err.Error()
			e.log.Error("order dispatch failed", "account", acct.ID, "symbol", o.symbol,
				"market", o.market, "side", o.side, "error", err)
		} else {
			rec.ResultCode = res.Code
			rec.ResultMsg = res.Message
			rec.OrderID = res.OrderID
			rec.LinkID = res.LinkID
			if res.OK() {
				e.log.Info("order placed", "account", acct.ID, "symbol", o.symbol,
					"market", o.market, "side", o.side, "action", o.action,
					"qty", o.qty, "price", o.price, "order_id", res.OrderID)
			} else {
				e.log.Warn("order rejected", "account", acct.ID, "symbol", o.symbol,
					"code", res.Code, "message", res.Message)
			}
		}
	}

	if err := e.store.AppendTrade(rec); err != nil {
		e.log.Error("journal append failed", "account", acct.ID, "symbol", o.symbol, "error", err)
	}
	e.notifier.NotifyTrade(acct, rec)
}
