// Package position derives open exposure by replaying the trade
// journal. There is no stored position table: exposure is recomputed
// from scratch every cycle, so a crash at any point leaves the next
// cycle able to re-derive state from whatever records committed.
package position

import "github.com/camuig/pulse-trader/internal/storage"

// State holds the opening record of each currently-open partition for
// one (account, symbol), or nil when that partition is closed. The
// record is kept (not just a boolean) because spot and short closes
// reuse the opening quantity.
type State struct {
	Spot  *storage.TradeRecord
	Long  *storage.TradeRecord
	Short *storage.TradeRecord
}

func (s State) SpotOpen() bool  { return s.Spot != nil }
func (s State) LongOpen() bool  { return s.Long != nil }
func (s State) ShortOpen() bool { return s.Short != nil }

// Derive replays records already filtered to one account and symbol.
// Per partition it keeps the open-class and close-class record with
// the greatest timestamp; the partition is open iff an open-class
// record exists and no close-class record is newer. Timestamps are
// fixed-width ISO-8601 strings, so plain string comparison is
// chronological comparison.
func Derive(trades []storage.TradeRecord) State {
	var spotBuy, spotSell, longOpen, longClose, shortOpen, shortClose *storage.TradeRecord

	for i := range trades {
		t := &trades[i]
		switch t.Market {
		case storage.MarketSpot:
			switch t.Side {
			case storage.SideBuy:
				spotBuy = newer(spotBuy, t)
			case storage.SideSell:
				spotSell = newer(spotSell, t)
			}
		case storage.MarketFutures:
			switch {
			case t.Side == storage.SideBuy && t.Action == storage.ActionOpen:
				longOpen = newer(longOpen, t)
			case t.Side == storage.SideSell && t.Action == storage.ActionClose:
				longClose = newer(longClose, t)
			case t.Side == storage.SideSell && t.Action == storage.ActionOpen:
				shortOpen = newer(shortOpen, t)
			case t.Side == storage.SideBuy && t.Action == storage.ActionClose:
				shortClose = newer(shortClose, t)
			}
		}
	}

	var st State
	if openAfter(spotBuy, spotSell) {
		st.Spot = spotBuy
	}
	if openAfter(longOpen, longClose) {
		st.Long = longOpen
	}
	if openAfter(shortOpen, shortClose) {
		st.Short = shortOpen
	}
	return st
}

// newer prefers the later timestamp; on equal timestamps the later
// insertion wins.
func newer(cur, cand *storage.TradeRecord) *storage.TradeRecord {
	if cur == nil || cand.Timestamp >= cur.Timestamp {
		return cand
	}
	return cur
}

func openAfter(open, close *storage.TradeRecord) bool {
	return open != nil && (close == nil || open.Timestamp > close.Timestamp)
}
