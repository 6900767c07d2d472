package bybit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/camuig/pulse-trader/internal/exchange"
)

// GetKlines fetches candles for one symbol/interval and returns them
// time-ascending, deduplicated by start timestamp.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var resp response[klineResult]
	if err := c.doRequest(ctx, http.MethodGet, "/v5/market/kline", params, nil, false, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, &exchange.APIError{Code: resp.RetCode, Message: resp.RetMsg}
	}

	seen := make(map[int64]bool, len(resp.Result.List))
	candles := make([]exchange.Candle, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		if len(row) < 6 {
			continue
		}
		startMS, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil || seen[startMS] {
			continue
		}
		seen[startMS] = true
		candles = append(candles, exchange.Candle{
			Time:   time.UnixMilli(startMS).UTC(),
			Open:   parseFloatOrZero(row[1]),
			High:   parseFloatOrZero(row[2]),
			Low:    parseFloatOrZero(row[3]),
			Close:  parseFloatOrZero(row[4]),
			Volume: parseFloatOrZero(row[5]),
		})
	}

	// the venue returns newest-first
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })

	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles returned for %s", symbol)
	}
	return candles, nil
}

func (c *Client) GetOpenInterest(ctx context.Context, symbol, interval string, limit int) ([]exchange.OpenInterest, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("symbol", symbol)
	params.Set("intervalTime", intervalToOI(interval))
	params.Set("limit", strconv.Itoa(limit))

	var resp response[openInterestResult]
	if err := c.doRequest(ctx, http.MethodGet, "/v5/market/open-interest", params, nil, false, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, &exchange.APIError{Code: resp.RetCode, Message: resp.RetMsg}
	}

	out := make([]exchange.OpenInterest, 0, len(resp.Result.List))
	for _, it := range resp.Result.List {
		ms, err := strconv.ParseInt(it.Timestamp, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, exchange.OpenInterest{
			Time:  time.UnixMilli(ms).UTC(),
			Value: parseFloatOrZero(it.OpenInterest),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// intervalToOI maps kline interval names to the open-interest
// intervalTime parameter ("5" -> "5min", "D" -> "1d").
func intervalToOI(interval string) string {
	switch interval {
	case "5", "15", "30":
		return interval + "min"
	case "60":
		return "1h"
	case "240":
		return "4h"
	case "D":
		return "1d"
	default:
		return "5min"
	}
}
