package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/pulse-trader/internal/config"
	"github.com/camuig/pulse-trader/internal/exchange"
	"github.com/camuig/pulse-trader/internal/logger"
	"github.com/camuig/pulse-trader/internal/position"
	"github.com/camuig/pulse-trader/internal/signal"
	"github.com/camuig/pulse-trader/internal/storage"
)

type fakeStore struct {
	accounts  []storage.Account
	journal   []storage.TradeRecord
	appended  []storage.TradeRecord
	appendErr error
}

func (s *fakeStore) Accounts() ([]storage.Account, error) { return s.accounts, nil }

func (s *fakeStore) AppendTrade(rec *storage.TradeRecord) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, *rec)
	return nil
}

func (s *fakeStore) Trades(accountID, symbol string) ([]storage.TradeRecord, error) {
	var out []storage.TradeRecord
	for _, t := range s.journal {
		if t.AccountID == accountID && t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out, nil
}

type placedOrder struct {
	market storage.Market
	symbol string
	side   storage.Side
	qty    float64
	opts   exchange.OrderOptions
}

type fakeGateway struct {
	candles    []exchange.Candle
	candlesErr error
	oi         []exchange.OpenInterest
	balance    float64
	balanceErr error

	orderErr error
	placed   []placedOrder
	leverage []int
}

func (g *fakeGateway) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	return g.candles, g.candlesErr
}

func (g *fakeGateway) GetOpenInterest(ctx context.Context, symbol, interval string, limit int) ([]exchange.OpenInterest, error) {
	return g.oi, nil
}

func (g *fakeGateway) GetBalanceUSDT(ctx context.Context) (float64, error) {
	return g.balance, g.balanceErr
}

func (g *fakeGateway) PlaceSpotOrder(ctx context.Context, symbol string, side storage.Side, qty float64) (*exchange.ExecutionResult, error) {
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	g.placed = append(g.placed, placedOrder{market: storage.MarketSpot, symbol: symbol, side: side, qty: qty})
	return &exchange.ExecutionResult{OrderID: "ord-spot", LinkID: "lnk-spot"}, nil
}

func (g *fakeGateway) PlaceFuturesOrder(ctx context.Context, symbol string, side storage.Side, qty float64, opts exchange.OrderOptions) (*exchange.ExecutionResult, error) {
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	g.placed = append(g.placed, placedOrder{market: storage.MarketFutures, symbol: symbol, side: side, qty: qty, opts: opts})
	return &exchange.ExecutionResult{OrderID: "ord-fut", LinkID: "lnk-fut"}, nil
}

func (g *fakeGateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	g.leverage = append(g.leverage, leverage)
	return nil
}

type fakeFactory struct {
	gw *fakeGateway
}

func (f *fakeFactory) Client(apiKey, apiSecret string, testnet bool) exchange.Client {
	return f.gw
}

type notification struct {
	accountID string
	rec       storage.TradeRecord
}

type fakeNotifier struct {
	trades []notification
	errors []string
}

func (n *fakeNotifier) NotifyTrade(acct *storage.Account, rec *storage.TradeRecord) {
	n.trades = append(n.trades, notification{accountID: acct.ID, rec: *rec})
}

func (n *fakeNotifier) NotifyError(scope string, err error) {
	n.errors = append(n.errors, scope)
}

func newTestEngine(t *testing.T, store *fakeStore, gw *fakeGateway) *Engine {
	t.Helper()
	cfg := &config.Config{}
	cfg.Trading.CandleLimit = 200
	cfg.Trading.OpenInterestLimit = 50
	e := New(cfg, store, &fakeFactory{gw: gw}, &fakeNotifier{}, logger.New("error", logger.Options{}))
	e.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func testAccount() *storage.Account {
	return &storage.Account{ID: "a1", Username: "alice", APIKey: "key", APISecret: "secret"}
}

func confirmed(buy, sell bool) signal.Evaluation {
	ev := signal.Evaluation{Active: 3}
	if buy {
		ev.BuyRatio = 1.0
	}
	if sell {
		ev.SellRatio = 1.0
	}
	return ev
}

func TestApplySignalMixedSpotBuy(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)
	set := storage.DefaultSettings()

	e.applySignal(context.Background(), testAccount(), set, gw, "BTCUSDT",
		confirmed(true, false), position.State{}, 50, 1000)

	require.Len(t, gw.placed, 1)
	assert.Equal(t, storage.MarketSpot, gw.placed[0].market)
	assert.Equal(t, storage.SideBuy, gw.placed[0].side)
	assert.Equal(t, 2.0, gw.placed[0].qty)

	require.Len(t, store.appended, 1)
	rec := store.appended[0]
	assert.Equal(t, "a1", rec.AccountID)
	assert.Equal(t, storage.MarketSpot, rec.Market)
	assert.Equal(t, storage.SideBuy, rec.Side)
	assert.Equal(t, 0, rec.ResultCode)
	assert.Equal(t, "ord-spot", rec.OrderID)
	assert.Equal(t, "2026-08-30T12:00:00.000000000Z", rec.Timestamp)
}

func TestApplySignalMixedSpotBuySkippedWhenOpen(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)

	pos := position.State{Spot: &storage.TradeRecord{Qty: 2}}
	e.applySignal(context.Background(), testAccount(), storage.DefaultSettings(), gw, "BTCUSDT",
		confirmed(true, false), pos, 50, 1000)

	assert.Empty(t, gw.placed)
	assert.Empty(t, store.appended)
}

func TestApplySignalMixedSpotSellUsesOpeningQty(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)
	set := storage.DefaultSettings()
	set.EnableShorts = false

	pos := position.State{Spot: &storage.TradeRecord{Qty: 1.75}}
	e.applySignal(context.Background(), testAccount(), set, gw, "BTCUSDT",
		confirmed(false, true), pos, 60, 1000)

	require.Len(t, gw.placed, 1)
	assert.Equal(t, storage.MarketSpot, gw.placed[0].market)
	assert.Equal(t, storage.SideSell, gw.placed[0].side)
	assert.Equal(t, 1.75, gw.placed[0].qty)
}

func TestApplySignalMixedOpensShort(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)

	e.applySignal(context.Background(), testAccount(), storage.DefaultSettings(), gw, "BTCUSDT",
		confirmed(false, true), position.State{}, 50, 1000)

	require.Len(t, gw.placed, 1)
	assert.Equal(t, storage.MarketFutures, gw.placed[0].market)
	assert.Equal(t, storage.SideSell, gw.placed[0].side)
	assert.False(t, gw.placed[0].opts.ReduceOnly)
	require.Len(t, store.appended, 1)
	assert.Equal(t, storage.ActionOpen, store.appended[0].Action)
	assert.Equal(t, []int{3}, gw.leverage)
}

func TestApplySignalMixedClosesShortAtRecordedQty(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)

	pos := position.State{Short: &storage.TradeRecord{Qty: 1.5}}
	e.applySignal(context.Background(), testAccount(), storage.DefaultSettings(), gw, "BTCUSDT",
		confirmed(true, false), pos, 50, 1000)

	// buy with a short open closes it in addition to the spot entry
	require.Len(t, gw.placed, 2)
	assert.Equal(t, storage.MarketSpot, gw.placed[0].market)
	assert.Equal(t, storage.MarketFutures, gw.placed[1].market)
	assert.Equal(t, storage.SideBuy, gw.placed[1].side)
	assert.Equal(t, 1.5, gw.placed[1].qty)
	assert.True(t, gw.placed[1].opts.ReduceOnly)
	assert.Empty(t, gw.leverage) // closes never touch leverage
}

func TestApplySignalMixedSellClosesSpotAndOpensShort(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)

	// sell with a spot position open and shorts enabled: the close and
	// the new short are independent branches, both fire
	pos := position.State{Spot: &storage.TradeRecord{Qty: 1.75}}
	e.applySignal(context.Background(), testAccount(), storage.DefaultSettings(), gw, "BTCUSDT",
		confirmed(false, true), pos, 50, 1000)

	require.Len(t, gw.placed, 2)
	assert.Equal(t, storage.MarketSpot, gw.placed[0].market)
	assert.Equal(t, storage.SideSell, gw.placed[0].side)
	assert.Equal(t, 1.75, gw.placed[0].qty)
	assert.Equal(t, storage.MarketFutures, gw.placed[1].market)
	assert.Equal(t, storage.SideSell, gw.placed[1].side)
	assert.False(t, gw.placed[1].opts.ReduceOnly)
	require.Len(t, store.appended, 2)
	assert.Equal(t, storage.ActionOpen, store.appended[1].Action)
}

func TestApplySignalMixedBothDirectionsFire(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)

	e.applySignal(context.Background(), testAccount(), storage.DefaultSettings(), gw, "BTCUSDT",
		confirmed(true, true), position.State{}, 50, 1000)

	// flat book, both thresholds met: spot buy plus a new short
	require.Len(t, gw.placed, 2)
	assert.Equal(t, storage.MarketSpot, gw.placed[0].market)
	assert.Equal(t, storage.SideBuy, gw.placed[0].side)
	assert.Equal(t, storage.MarketFutures, gw.placed[1].market)
	assert.Equal(t, storage.SideSell, gw.placed[1].side)
	assert.Len(t, store.appended, 2)
}

func TestApplySignalFuturesOnly(t *testing.T) {
	t.Run("buy opens long", func(t *testing.T) {
		store := &fakeStore{}
		gw := &fakeGateway{}
		e := newTestEngine(t, store, gw)
		set := storage.DefaultSettings()
		set.TradeMode = storage.TradeModeFuturesOnly

		e.applySignal(context.Background(), testAccount(), set, gw, "BTCUSDT",
			confirmed(true, false), position.State{}, 50, 1000)

		require.Len(t, gw.placed, 1)
		assert.Equal(t, storage.MarketFutures, gw.placed[0].market)
		assert.Equal(t, storage.SideBuy, gw.placed[0].side)
		assert.Equal(t, storage.ActionOpen, store.appended[0].Action)
		assert.Equal(t, []int{3}, gw.leverage)
	})

	t.Run("buy closes open short first", func(t *testing.T) {
		store := &fakeStore{}
		gw := &fakeGateway{}
		e := newTestEngine(t, store, gw)
		set := storage.DefaultSettings()
		set.TradeMode = storage.TradeModeFuturesOnly

		pos := position.State{Short: &storage.TradeRecord{Qty: 1.5}}
		e.applySignal(context.Background(), testAccount(), set, gw, "BTCUSDT",
			confirmed(true, false), pos, 50, 1000)

		require.Len(t, gw.placed, 1)
		assert.Equal(t, storage.SideBuy, gw.placed[0].side)
		assert.True(t, gw.placed[0].opts.ReduceOnly)
		// futures_only closes at freshly sized qty, not the opening qty
		assert.Equal(t, 2.0, gw.placed[0].qty)
		assert.Equal(t, storage.ActionClose, store.appended[0].Action)
	})

	t.Run("sell opens short", func(t *testing.T) {
		store := &fakeStore{}
		gw := &fakeGateway{}
		e := newTestEngine(t, store, gw)
		set := storage.DefaultSettings()
		set.TradeMode = storage.TradeModeFuturesOnly

		e.applySignal(context.Background(), testAccount(), set, gw, "BTCUSDT",
			confirmed(false, true), position.State{}, 50, 1000)

		require.Len(t, gw.placed, 1)
		assert.Equal(t, storage.SideSell, gw.placed[0].side)
		assert.Equal(t, storage.ActionOpen, store.appended[0].Action)
	})

	t.Run("sell closes open long", func(t *testing.T) {
		store := &fakeStore{}
		gw := &fakeGateway{}
		e := newTestEngine(t, store, gw)
		set := storage.DefaultSettings()
		set.TradeMode = storage.TradeModeFuturesOnly

		pos := position.State{Long: &storage.TradeRecord{Qty: 2}}
		e.applySignal(context.Background(), testAccount(), set, gw, "BTCUSDT",
			confirmed(false, true), pos, 50, 1000)

		require.Len(t, gw.placed, 1)
		assert.Equal(t, storage.SideSell, gw.placed[0].side)
		assert.True(t, gw.placed[0].opts.ReduceOnly)
		assert.Equal(t, storage.ActionClose, store.appended[0].Action)
	})
}

func TestApplySignalMinNotionalGateLeavesNoTrace(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)

	// 10 percent of 40 USD is under the 5 USD notional floor
	e.applySignal(context.Background(), testAccount(), storage.DefaultSettings(), gw, "BTCUSDT",
		confirmed(true, false), position.State{}, 50, 40)

	assert.Empty(t, gw.placed)
	assert.Empty(t, store.appended)
}

func TestExecuteDryRun(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)
	set := storage.DefaultSettings()
	set.DryRun = true

	e.applySignal(context.Background(), testAccount(), set, gw, "BTCUSDT",
		confirmed(true, false), position.State{}, 50, 1000)

	assert.Empty(t, gw.placed)
	assert.Empty(t, gw.leverage)
	require.Len(t, store.appended, 1)
	assert.True(t, store.appended[0].Simulated)
	assert.Equal(t, 2.0, store.appended[0].Qty)
}

func TestExecuteJournalsDispatchFailure(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{orderErr: errors.New("connection reset")}
	e := newTestEngine(t, store, gw)
	notif := e.notifier.(*fakeNotifier)

	e.applySignal(context.Background(), testAccount(), storage.DefaultSettings(), gw, "BTCUSDT",
		confirmed(true, false), position.State{}, 50, 1000)

	require.Len(t, store.appended, 1)
	rec := store.appended[0]
	assert.Equal(t, -1, rec.ResultCode)
	assert.Contains(t, rec.ResultMsg, "connection reset")
	assert.Empty(t, rec.OrderID)
	require.Len(t, notif.trades, 1)
}

func TestExecuteSurvivesJournalFailure(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("disk full")}
	gw := &fakeGateway{}
	e := newTestEngine(t, store, gw)
	notif := e.notifier.(*fakeNotifier)

	e.applySignal(context.Background(), testAccount(), storage.DefaultSettings(), gw, "BTCUSDT",
		confirmed(true, false), position.State{}, 50, 1000)

	// the order still went out and the notifier still saw it
	assert.Len(t, gw.placed, 1)
	assert.Len(t, notif.trades, 1)
}

func risingCandles(n int) []exchange.Candle {
	out := make([]exchange.Candle, n)
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	for i := range out {
		c := 100 + float64(i)
		out[i] = exchange.Candle{
			Time: base.Add(time.Duration(i) * time.Minute),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10,
		}
	}
	return out
}

func settingsJSON(t *testing.T, s storage.Settings) string {
	t.Helper()
	acct := &storage.Account{}
	require.NoError(t, acct.SetSettings(s))
	return acct.SettingsJSON
}

func TestRunOnceFullCycle(t *testing.T) {
	// rising market, short EMA windows: two of three indicators vote buy
	// and one sells, so both confirmation thresholds are met and the
	// flat account gets a spot entry plus a hedging short
	set := storage.DefaultSettings()
	set.FastMA = 5
	set.SlowMA = 20

	acct := *testAccount()
	acct.SettingsJSON = settingsJSON(t, set)

	store := &fakeStore{accounts: []storage.Account{acct}}
	gw := &fakeGateway{candles: risingCandles(60), balance: 1000}
	e := newTestEngine(t, store, gw)

	require.NoError(t, e.RunOnce(context.Background()))

	require.Len(t, store.appended, 2)
	assert.Equal(t, storage.MarketSpot, store.appended[0].Market)
	assert.Equal(t, storage.SideBuy, store.appended[0].Side)
	assert.Equal(t, storage.MarketFutures, store.appended[1].Market)
	assert.Equal(t, storage.SideSell, store.appended[1].Side)
	// priced at the latest close
	assert.Equal(t, 159.0, store.appended[0].Price)
}

func TestRunOnceSkipsDisabledAndUncredentialed(t *testing.T) {
	set := storage.DefaultSettings()
	set.DisabledAuth = true

	disabled := *testAccount()
	disabled.ID = "disabled"
	disabled.SettingsJSON = settingsJSON(t, set)

	bare := storage.Account{ID: "bare"} // no credentials at all

	store := &fakeStore{accounts: []storage.Account{disabled, bare}}
	gw := &fakeGateway{candles: risingCandles(60), balance: 1000}
	e := newTestEngine(t, store, gw)

	require.NoError(t, e.RunOnce(context.Background()))
	assert.Empty(t, store.appended)
}

func TestRunOnceAuthFailureSkipsAccount(t *testing.T) {
	acct := *testAccount()
	store := &fakeStore{accounts: []storage.Account{acct}}
	gw := &fakeGateway{
		candles:    risingCandles(60),
		balanceErr: &exchange.APIError{Code: 10003, Message: "invalid api key"},
	}
	e := newTestEngine(t, store, gw)

	require.NoError(t, e.RunOnce(context.Background()))
	assert.Empty(t, gw.placed)
	assert.Empty(t, store.appended)
}

func TestRunOnceBalanceErrorStillEvaluates(t *testing.T) {
	// transient balance failure zeroes capital: signals are computed but
	// sizing blocks every order
	set := storage.DefaultSettings()
	set.FastMA = 5
	set.SlowMA = 20

	acct := *testAccount()
	acct.SettingsJSON = settingsJSON(t, set)

	store := &fakeStore{accounts: []storage.Account{acct}}
	gw := &fakeGateway{candles: risingCandles(60), balanceErr: errors.New("timeout")}
	e := newTestEngine(t, store, gw)

	require.NoError(t, e.RunOnce(context.Background()))
	assert.Empty(t, gw.placed)
	assert.Empty(t, store.appended)
}

func TestRunOnceNoCandles(t *testing.T) {
	acct := *testAccount()
	store := &fakeStore{accounts: []storage.Account{acct}}
	gw := &fakeGateway{balance: 1000}
	e := newTestEngine(t, store, gw)

	require.NoError(t, e.RunOnce(context.Background()))
	assert.Empty(t, store.appended)
}
