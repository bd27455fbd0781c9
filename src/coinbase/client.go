package coinbase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"driftwatch-go/src/models"
)

const (
	// BaseURL is the Coinbase Exchange REST endpoint.
	BaseURL = "https://api.exchange.coinbase.com"
	// GranularityHour requests hourly candles.
	GranularityHour = 3600
)

// Client is a thin Coinbase Exchange API client. Market data endpoints
// are public; account endpoints require an HMAC-signed request.
type Client struct {
	apiKey     string
	apiSecret  string // base64-encoded HMAC key
	passphrase string
	httpClient *http.Client
	baseURL    string
}

// loadEnvFile loads the .env file from the project root, if one exists.
func loadEnvFile() error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	// Walk up to the directory containing go.mod.
	rootDir := workDir
	for {
		if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(rootDir)
		if parent == rootDir {
			return fmt.Errorf("project root (containing go.mod) not found")
		}
		rootDir = parent
	}

	if err := godotenv.Load(filepath.Join(rootDir, ".env")); err != nil {
		// A missing .env file is fine; system environment variables apply.
		return nil
	}
	return nil
}

// NewClient creates a client with explicit credentials. Empty credentials
// are accepted; only the public market data endpoints will work.
func NewClient(apiKey, apiSecret, passphrase string) *Client {
	return &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: BaseURL,
	}
}

// NewClientFromEnv creates a client from the environment (or a .env file
// at the project root):
//   - COINBASE_API_KEY
//   - COINBASE_API_SECRET (base64-encoded)
//   - COINBASE_API_PASSPHRASE
func NewClientFromEnv() (*Client, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	apiKey := os.Getenv("COINBASE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("COINBASE_API_KEY not set; add it to .env or the environment")
	}
	apiSecret := os.Getenv("COINBASE_API_SECRET")
	if apiSecret == "" {
		return nil, fmt.Errorf("COINBASE_API_SECRET not set; add it to .env or the environment")
	}
	passphrase := os.Getenv("COINBASE_API_PASSPHRASE")
	if passphrase == "" {
		return nil, fmt.Errorf("COINBASE_API_PASSPHRASE not set; add it to .env or the environment")
	}

	return NewClient(apiKey, apiSecret, passphrase), nil
}

// sign produces the CB-ACCESS-SIGN header value for one request: a
// base64 HMAC-SHA256 over timestamp + method + path + body, keyed with
// the base64-decoded API secret.
func (c *Client) sign(timestamp, method, requestPath string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(c.apiSecret)
	if err != nil {
		return "", fmt.Errorf("decoding API secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + method + requestPath))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// doRequest executes one HTTP request against the API. Signed requests
// additionally carry the CB-ACCESS authentication headers.
func (c *Client) doRequest(ctx context.Context, method, path string, signed bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if signed {
		if c.apiKey == "" || c.apiSecret == "" {
			return nil, fmt.Errorf("endpoint %s requires API credentials", path)
		}
		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		signature, err := c.sign(timestamp, method, path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("CB-ACCESS-KEY", c.apiKey)
		req.Header.Set("CB-ACCESS-SIGN", signature)
		req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("CB-ACCESS-PASSPHRASE", c.passphrase)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API request failed: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// Account is one currency account of the authenticated profile.
type Account struct {
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
	Hold      string `json:"hold"`
}

// GetBalances fetches the available balance per currency. Requires
// credentials.
func (c *Client) GetBalances(ctx context.Context) (map[string]string, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/accounts", true)
	if err != nil {
		return nil, err
	}

	var accounts []Account
	if err := json.Unmarshal(respBody, &accounts); err != nil {
		return nil, fmt.Errorf("parsing accounts response: %w", err)
	}

	balances := make(map[string]string, len(accounts))
	for _, a := range accounts {
		balances[a.Currency] = a.Available
	}
	return balances, nil
}

// GetSpotPrice fetches the last trade price for a product, e.g.
// "BTC-USD". Public endpoint.
func (c *Client) GetSpotPrice(ctx context.Context, productID string) (float64, error) {
	path := "/products/" + url.PathEscape(productID) + "/ticker"
	respBody, err := c.doRequest(ctx, http.MethodGet, path, false)
	if err != nil {
		return 0, err
	}

	var ticker struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(respBody, &ticker); err != nil {
		return 0, fmt.Errorf("parsing ticker response: %w", err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ticker price %q: %w", ticker.Price, err)
	}
	return price, nil
}

// GetCandles fetches historical candles for a product between start and
// end (seconds since epoch) at the given granularity. Candles come back
// in chronological order. Public endpoint.
func (c *Client) GetCandles(ctx context.Context, productID string, granularity int, start, end int64) ([]models.Candle, error) {
	query := url.Values{}
	query.Set("granularity", strconv.Itoa(granularity))
	query.Set("start", time.Unix(start, 0).UTC().Format(time.RFC3339))
	query.Set("end", time.Unix(end, 0).UTC().Format(time.RFC3339))

	path := "/products/" + url.PathEscape(productID) + "/candles?" + query.Encode()
	respBody, err := c.doRequest(ctx, http.MethodGet, path, false)
	if err != nil {
		return nil, err
	}

	// The API answers with raw arrays: [time, low, high, open, close, volume].
	var raw [][6]float64
	if err := json.Unmarshal(respBody, &raw); err != nil {
		respStr := string(respBody)
		if len(respStr) > 500 {
			respStr = respStr[:500]
		}
		return nil, fmt.Errorf("parsing candles response: %w (first 500 bytes: %s)", err, respStr)
	}

	candles := make([]models.Candle, len(raw))
	for i, r := range raw {
		candles[i] = models.Candle{
			Timestamp: int64(r[0]),
			Low:       r[1],
			High:      r[2],
			Open:      r[3],
			Close:     r[4],
			Volume:    r[5],
		}
	}

	// Newest candles come first on the wire; flip to chronological order.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// GetRecentCandles fetches the trailing `limit` candles up to now at the
// given granularity.
func (c *Client) GetRecentCandles(ctx context.Context, productID string, granularity, limit int) ([]models.Candle, error) {
	now := time.Now().Unix()
	start := now - int64(limit)*int64(granularity)
	return c.GetCandles(ctx, productID, granularity, start, now)
}
