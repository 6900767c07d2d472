package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is a fixed-width UTC ISO-8601 layout. Every trade
// record timestamp uses it, so lexicographic string comparison equals
// chronological comparison. Position reconstruction relies on this.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

type Market string

const (
	MarketSpot    Market = "spot"
	MarketFutures Market = "futures"
)

type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Action tags futures records; spot records leave it empty
// (a spot buy is the open, a spot sell is the close).
type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

const (
	TradeModeMixed       = "mixed"
	TradeModeSpotOnly    = "spot_only"
	TradeModeFuturesOnly = "futures_only"
)

// Account is one managed exchange account. Trading behavior lives in
// the Settings JSON document; credentials and routing stay as columns.
type Account struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username  string `json:"username"`
	APIKey    string `json:"-"`
	APISecret string `json:"-"`
	ChatID    int64  `json:"chat_id"`

	SettingsJSON string `gorm:"type:text" json:"-"`
}

// Settings is the per-account trading configuration. Field names match
// the keys stored in the settings documents of earlier deployments.
type Settings struct {
	UseRSI        bool    `json:"USE_RSI"`
	RSIPeriod     int     `json:"RSI_PERIOD"`
	RSIOversold   float64 `json:"RSI_OVERSOLD"`
	RSIOverbought float64 `json:"RSI_OVERBOUGHT"`

	UseEMA bool `json:"USE_EMA"`
	FastMA int  `json:"FAST_MA"`
	SlowMA int  `json:"SLOW_MA"`

	UseMACD    bool `json:"USE_MACD"`
	MACDFast   int  `json:"MACD_FAST"`
	MACDSlow   int  `json:"MACD_SLOW"`
	MACDSignal int  `json:"MACD_SIGNAL"`

	UseOI          bool    `json:"USE_OI"`
	OIMinChangePct float64 `json:"OI_MIN_CHANGE_PCT"`

	BuyConfirmationRatio  float64 `json:"BUY_CONFIRMATION_RATIO"`
	SellConfirmationRatio float64 `json:"SELL_CONFIRMATION_RATIO"`

	OrderPercent float64 `json:"ORDER_PERCENT"`
	OrderSizeUSD float64 `json:"ORDER_SIZE_USD"`

	TakeProfitPct float64 `json:"TP_PCT"`
	StopLossPct   float64 `json:"SL_PCT"`
	QtyPrecision  int     `json:"QTY_PRECISION"`
	MinNotional   float64 `json:"MIN_NOTIONAL"`

	Symbols   []string `json:"SYMBOLS"`
	Timeframe string   `json:"TIMEFRAME"`

	Testnet      bool `json:"TESTNET"`
	DryRun       bool `json:"DRY_RUN"`
	DisabledAuth bool `json:"DISABLED_AUTH"`

	EnableShorts    bool   `json:"ENABLE_SHORTS"`
	DefaultLeverage int    `json:"DEFAULT_LEVERAGE"`
	TradeMode       string `json:"TRADE_MODE"`
}

func DefaultSettings() Settings {
	return Settings{
		UseRSI:        true,
		RSIPeriod:     14,
		RSIOversold:   40,
		RSIOverbought: 60,

		UseEMA: true,
		FastMA: 50,
		SlowMA: 200,

		UseMACD:    true,
		MACDFast:   8,
		MACDSlow:   21,
		MACDSignal: 5,

		UseOI:          false,
		OIMinChangePct: 5.0,

		BuyConfirmationRatio:  0.66,
		SellConfirmationRatio: 0.33,

		OrderPercent: 10.0,
		OrderSizeUSD: 0.0,

		TakeProfitPct: 1.0,
		StopLossPct:   0.5,
		QtyPrecision:  6,
		MinNotional:   5.0,

		Symbols:   []string{"BTCUSDT"},
		Timeframe: "5",

		Testnet:      true,
		DryRun:       false,
		DisabledAuth: false,

		EnableShorts:    true,
		DefaultLeverage: 3,
		TradeMode:       TradeModeMixed,
	}
}

// Settings decodes the account's settings document on top of the
// defaults: keys present in the document win, absent keys keep their
// default. Present keys are never overwritten by defaulting.
func (a *Account) Settings() (Settings, error) {
	s := DefaultSettings()
	if strings.TrimSpace(a.SettingsJSON) != "" {
		if err := json.Unmarshal([]byte(a.SettingsJSON), &s); err != nil {
			return DefaultSettings(), fmt.Errorf("decode settings for account %s: %w", a.ID, err)
		}
	}
	s.normalize()
	return s, nil
}

func (a *Account) SetSettings(s Settings) error {
	s.normalize()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	a.SettingsJSON = string(data)
	return nil
}

func (s *Settings) normalize() {
	s.TradeMode = strings.ToLower(strings.TrimSpace(s.TradeMode))
	if s.TradeMode == "" {
		s.TradeMode = TradeModeMixed
	}

	symbols := make([]string, 0, len(s.Symbols))
	seen := make(map[string]bool, len(s.Symbols))
	for _, sym := range s.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		symbols = []string{"BTCUSDT"}
	}
	s.Symbols = symbols
}

// TradeRecord is one immutable journal entry. The journal is the sole
// source of truth for open exposure; rows are appended and never
// updated or deleted. Failed dispatches are journaled too, with the
// error attached in ResultCode/ResultMsg.
type TradeRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	AccountID string `gorm:"index;not null" json:"account_id"`
	Symbol    string `gorm:"index;not null" json:"symbol"`
	Market    Market `gorm:"not null" json:"market"`
	Side      Side   `gorm:"not null" json:"side"`
	Action    Action `json:"action,omitempty"`

	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	Leverage int     `json:"leverage,omitempty"`

	Simulated  bool   `json:"simulated"`
	ResultCode int    `json:"result_code"`
	ResultMsg  string `json:"result_msg,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	LinkID     string `json:"link_id,omitempty"`

	Timestamp string `gorm:"index;not null" json:"timestamp"` // TimestampLayout
}
