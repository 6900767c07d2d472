package engine

import (
	"math"

	"github.com/camuig/pulse-trader/internal/storage"
)

// sizeOrder converts the account's capital policy into an order
// quantity at the current price: fixed USD when configured, otherwise
// percent of balance. Sizing is recomputed per candidate action; it is
// not a running budget, so parallel signals in one cycle each size
// against the same starting balance.
func (e *Engine) sizeOrder(accountID string, set storage.Settings, balance, price float64) (float64, bool) {
	orderUSD := set.OrderSizeUSD
	if orderUSD <= 0 {
		orderUSD = balance * set.OrderPercent / 100.0
	}
	if orderUSD <= 0 {
		e.log.Warn("no capital for order", "account", accountID)
		return 0, false
	}

	var raw float64
	if price > 0 {
		raw = orderUSD / price
	}
	qty := FloorQty(raw, set.QtyPrecision)

	if qty*price < set.MinNotional {
		e.log.Warn("order below min notional", "account", accountID,
			"qty", qty, "price", price, "min_notional", set.MinNotional)
		return 0, false
	}
	return qty, true
}

// FloorQty floors q to the given number of decimal places. Zero or
// negative quantities floor to 0.
func FloorQty(q float64, precision int) float64 {
	if q <= 0 {
		return 0
	}
	f := math.Pow(10, float64(precision))
	return math.Floor(q*f) / f
}
