// Package signal turns indicator readings into a per-symbol directional
// signal: each enabled indicator casts buy/sell/abstain, and the
// buy/sell ratios over the successfully-executed indicators are
// compared against the account's confirmation thresholds.
package signal

import (
	"github.com/camuig/pulse-trader/internal/indicator"
	"github.com/camuig/pulse-trader/internal/logger"
	"github.com/camuig/pulse-trader/internal/storage"
)

type Vote int

const (
	Abstain Vote = iota
	Buy
	Sell
)

type Reading struct {
	Name  string
	Value float64
	Vote  Vote
}

// Evaluation is the aggregated result of one symbol's indicator pass.
// Active counts indicators that executed successfully, including the
// ones that abstained: abstention lowers the numerator, never the
// denominator. Active == 0 means no signal for this cycle.
type Evaluation struct {
	Readings  []Reading
	Active    int
	BuyVotes  int
	SellVotes int
	BuyRatio  float64
	SellRatio float64
}

type Inputs struct {
	Closes       []float64
	OpenInterest []float64
}

type Evaluator struct {
	log *logger.Logger
}

func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{log: log}
}

// Evaluate runs every enabled indicator independently. A failing
// indicator (short data, bad parameters) is logged and excluded from
// Active; it never aborts the symbol.
func (e *Evaluator) Evaluate(set storage.Settings, in Inputs) Evaluation {
	var ev Evaluation

	if set.UseRSI {
		if v, err := indicator.RSI(in.Closes, set.RSIPeriod); err != nil {
			e.log.Warn("rsi failed", "error", err)
		} else {
			vote := Abstain
			if v <= set.RSIOversold {
				vote = Buy
			} else if v >= set.RSIOverbought {
				vote = Sell
			}
			ev.add(Reading{Name: "rsi", Value: v, Vote: vote})
		}
	}

	if set.UseEMA {
		fast, errFast := indicator.EMA(in.Closes, set.FastMA)
		slow, errSlow := indicator.EMA(in.Closes, set.SlowMA)
		if errFast != nil || errSlow != nil {
			e.log.Warn("ema failed", "fast_error", errFast, "slow_error", errSlow)
		} else {
			lf := fast[len(fast)-1]
			ls := slow[len(slow)-1]
			// fast > slow votes buy, anything else sells; a tie
			// deliberately resolves to sell.
			vote := Sell
			if lf > ls {
				vote = Buy
			}
			ev.add(Reading{Name: "ema_cross", Value: lf - ls, Vote: vote})
		}
	}

	if set.UseMACD {
		if hist, err := indicator.MACDHistogram(in.Closes, set.MACDFast, set.MACDSlow, set.MACDSignal); err != nil {
			e.log.Warn("macd failed", "error", err)
		} else {
			// zero histogram resolves to sell, same as the EMA tie
			vote := Sell
			if hist > 0 {
				vote = Buy
			}
			ev.add(Reading{Name: "macd_hist", Value: hist, Vote: vote})
		}
	}

	if set.UseOI {
		if pct, err := indicator.OpenInterestChange(in.OpenInterest); err != nil {
			e.log.Warn("open interest failed", "error", err)
		} else {
			vote := Abstain
			if pct >= set.OIMinChangePct {
				vote = Buy
			} else if pct <= -set.OIMinChangePct {
				vote = Sell
			}
			ev.add(Reading{Name: "oi_pct", Value: pct, Vote: vote})
		}
	}

	if ev.Active > 0 {
		ev.BuyRatio = float64(ev.BuyVotes) / float64(ev.Active)
		ev.SellRatio = float64(ev.SellVotes) / float64(ev.Active)
	}
	return ev
}

func (ev *Evaluation) add(r Reading) {
	ev.Readings = append(ev.Readings, r)
	ev.Active++
	switch r.Vote {
	case Buy:
		ev.BuyVotes++
	case Sell:
		ev.SellVotes++
	}
}
