// Package okx is a minimal OKX v5 REST client covering the account and trade
// endpoints the live executor needs. Requests are signed with
// HMAC-SHA256(timestamp + method + path + body) base64-encoded, per the v5
// authentication scheme.
package okx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Credentials struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	Simulated  bool
}

type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	log        *zap.Logger
	now        func() time.Time
}

func NewClient(baseURL string, creds Credentials, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
		now:        time.Now,
	}
}

// apiResponse is the common v5 envelope. A non-zero code means the request
// was rejected even with HTTP 200.
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) sign(timestamp, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.creds.SecretKey))
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var body []byte
	if reqBody != nil {
		var err error
		body, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	ts := c.now().UTC().Format("2006-01-02T15:04:05.000Z")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OK-ACCESS-KEY", c.creds.APIKey)
	req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, path, body))
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.creds.Passphrase)
	if c.creds.Simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Code != "0" {
		return fmt.Errorf("%s %s: okx code %s: %s", method, path, env.Code, env.Msg)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
