package bybit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/camuig/pulse-trader/internal/exchange"
	"github.com/camuig/pulse-trader/internal/storage"
)

type orderRequest struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	OrderLinkID string `json:"orderLinkId"`
	ReduceOnly  *bool  `json:"reduceOnly,omitempty"`
}

// PlaceSpotOrder submits a spot market order. A venue rejection is
// returned inside the ExecutionResult, not as an error, so the caller
// can journal the attempt either way.
func (c *Client) PlaceSpotOrder(ctx context.Context, symbol string, side storage.Side, qty float64) (*exchange.ExecutionResult, error) {
	body := orderRequest{
		Category:    "spot",
		Symbol:      symbol,
		Side:        string(side),
		OrderType:   "Market",
		Qty:         formatQty(qty),
		OrderLinkID: uuid.NewString(),
	}
	return c.createOrder(ctx, body)
}

// PlaceFuturesOrder submits a linear-contract market order. Leverage
// itself is configured separately via SetLeverage.
func (c *Client) PlaceFuturesOrder(ctx context.Context, symbol string, side storage.Side, qty float64, opts exchange.OrderOptions) (*exchange.ExecutionResult, error) {
	body := orderRequest{
		Category:    "linear",
		Symbol:      symbol,
		Side:        string(side),
		OrderType:   "Market",
		Qty:         formatQty(qty),
		OrderLinkID: uuid.NewString(),
		ReduceOnly:  &opts.ReduceOnly,
	}
	return c.createOrder(ctx, body)
}

func (c *Client) createOrder(ctx context.Context, body orderRequest) (*exchange.ExecutionResult, error) {
	var resp response[orderResult]
	if err := c.doRequest(ctx, http.MethodPost, "/v5/order/create", nil, body, true, &resp); err != nil {
		return nil, err
	}
	return &exchange.ExecutionResult{
		Code:    resp.RetCode,
		Message: resp.RetMsg,
		OrderID: resp.Result.OrderID,
		LinkID:  resp.Result.OrderLinkID,
	}, nil
}

// SetLeverage implements exchange.LeverageSetter.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	lev := strconv.Itoa(leverage)
	body := map[string]string{
		"category":     "linear",
		"symbol":       symbol,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}

	var resp response[emptyResult]
	if err := c.doRequest(ctx, http.MethodPost, "/v5/position/set-leverage", nil, body, true, &resp); err != nil {
		return err
	}
	// 110043: leverage not modified, already at the requested value
	if resp.RetCode != 0 && resp.RetCode != 110043 {
		return &exchange.APIError{Code: resp.RetCode, Message: resp.RetMsg}
	}
	return nil
}

func formatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}
