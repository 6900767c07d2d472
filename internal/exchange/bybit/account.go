package bybit

import (
	"context"
	"net/http"
	"net/url"

	"github.com/camuig/pulse-trader/internal/exchange"
)

// GetBalanceUSDT returns the unified-account USDT equity, falling back
// to wallet balance when equity is absent.
func (c *Client) GetBalanceUSDT(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Set("accountType", "UNIFIED")
	params.Set("coin", "USDT")

	var resp response[walletResult]
	if err := c.doRequest(ctx, http.MethodGet, "/v5/account/wallet-balance", params, nil, true, &resp); err != nil {
		return 0, err
	}
	if resp.RetCode != 0 {
		return 0, &exchange.APIError{Code: resp.RetCode, Message: resp.RetMsg}
	}

	for _, acct := range resp.Result.List {
		for _, coin := range acct.Coin {
			if coin.Coin != "USDT" {
				continue
			}
			if v := parseFloatOrZero(coin.Equity); v != 0 {
				return v, nil
			}
			return parseFloatOrZero(coin.WalletBalance), nil
		}
	}
	return 0, nil
}
