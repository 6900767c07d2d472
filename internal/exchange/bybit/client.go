// Package bybit implements the exchange gateway against the Bybit v5
// REST API.
package bybit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/camuig/pulse-trader/internal/config"
	"github.com/camuig/pulse-trader/internal/exchange"
	"github.com/camuig/pulse-trader/internal/logger"
)

type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	recvWindow string
	httpClient *http.Client
	log        *logger.Logger
}

func New(baseURL, apiKey, apiSecret string, recvWindowMS int, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		recvWindow: strconv.Itoa(recvWindowMS),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Factory builds per-account clients from shared app config.
type Factory struct {
	cfg *config.Config
	log *logger.Logger
}

func NewFactory(cfg *config.Config, log *logger.Logger) *Factory {
	return &Factory{cfg: cfg, log: log}
}

func (f *Factory) Client(apiKey, apiSecret string, testnet bool) exchange.Client {
	base := f.cfg.Exchange.MainnetURL
	if testnet {
		base = f.cfg.Exchange.TestnetURL
	}
	return New(base, apiKey, apiSecret, f.cfg.Exchange.RecvWindowMS, f.cfg.ExchangeTimeout(), f.log)
}

// doRequest signs (when auth is set) and executes one REST call,
// decoding the envelope into out. Signing follows the v5 scheme:
// HMAC-SHA256 over timestamp + key + recvWindow + query/body.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any, auth bool, out any) error {
	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		bodyStr = string(payload)
		bodyReader = bytes.NewReader(payload)
	}

	urlStr := c.baseURL + path
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if auth {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		query := ""
		if method == http.MethodGet && len(params) > 0 {
			query = params.Encode()
		}

		signBase := timestamp + c.apiKey + c.recvWindow + query + bodyStr
		req.Header.Set("X-BAPI-API-KEY", c.apiKey)
		req.Header.Set("X-BAPI-SIGN", sign(c.apiSecret, signBase))
		req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
		req.Header.Set("X-BAPI-RECV-WINDOW", c.recvWindow)
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response (status %s): %w", resp.Status, err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return nil
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
