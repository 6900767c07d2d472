// Package exchange defines the gateway contract the trading engine
// depends on. Venue implementations live in subpackages.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camuig/pulse-trader/internal/storage"
)

type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type OpenInterest struct {
	Time  time.Time
	Value float64
}

// ExecutionResult is the venue's answer to an order. Code 0 means
// accepted; anything else carries the venue's rejection message.
type ExecutionResult struct {
	Code    int
	Message string
	OrderID string
	LinkID  string
}

func (r *ExecutionResult) OK() bool {
	return r != nil && r.Code == 0
}

type OrderOptions struct {
	Leverage   int
	ReduceOnly bool
}

// Client is the per-account exchange gateway.
type Client interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	GetOpenInterest(ctx context.Context, symbol, interval string, limit int) ([]OpenInterest, error)
	GetBalanceUSDT(ctx context.Context) (float64, error)
	PlaceSpotOrder(ctx context.Context, symbol string, side storage.Side, qty float64) (*ExecutionResult, error)
	PlaceFuturesOrder(ctx context.Context, symbol string, side storage.Side, qty float64, opts OrderOptions) (*ExecutionResult, error)
}

// LeverageSetter is implemented by gateways that support standalone
// leverage configuration. The engine type-asserts for it; absence is
// non-fatal.
type LeverageSetter interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// Factory builds a gateway for one account's credentials.
type Factory interface {
	Client(apiKey, apiSecret string, testnet bool) Client
}

// APIError is a venue-level rejection (non-zero return code).
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange api error %d: %s", e.Code, e.Message)
}

// IsAuthError reports whether err is a credential problem: the account
// should be skipped for the rest of the cycle.
func IsAuthError(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.Code {
	case 10003, 10004, 10005, 10010, 33004:
		return true
	}
	return false
}
