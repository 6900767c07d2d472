package bybit

import "strconv"

type response[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
}

// kline rows arrive as string arrays:
// [startTime, open, high, low, close, volume, turnover]
type klineResult struct {
	Symbol string     `json:"symbol"`
	List   [][]string `json:"list"`
}

type openInterestResult struct {
	Symbol string `json:"symbol"`
	List   []struct {
		OpenInterest string `json:"openInterest"`
		Timestamp    string `json:"timestamp"`
	} `json:"list"`
}

type walletResult struct {
	List []struct {
		AccountType string `json:"accountType"`
		Coin        []struct {
			Coin          string `json:"coin"`
			Equity        string `json:"equity"`
			WalletBalance string `json:"walletBalance"`
		} `json:"coin"`
	} `json:"list"`
}

type orderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

type emptyResult struct{}

func parseFloatOrZero(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
