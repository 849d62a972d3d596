package okx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() Credentials {
	return Credentials{APIKey: "key", SecretKey: "secret", Passphrase: "pass", Simulated: true}
}

func TestSign(t *testing.T) {
	c := NewClient("", testCreds(), nil)
	ts := "2024-01-02T03:04:05.000Z"
	got := c.sign(ts, "GET", "/api/v5/account/balance", nil)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(ts + "GET" + "/api/v5/account/balance"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, got)
}

func TestAuthHeaders(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		io.WriteString(w, `{"code":"0","msg":"","data":[{"totalEq":"12345.6"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds(), nil)
	c.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	bal, err := c.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12345.6, bal)

	assert.Equal(t, "key", seen.Get("OK-ACCESS-KEY"))
	assert.Equal(t, "pass", seen.Get("OK-ACCESS-PASSPHRASE"))
	assert.Equal(t, "2024-01-02T03:04:05.000Z", seen.Get("OK-ACCESS-TIMESTAMP"))
	assert.Equal(t, "1", seen.Get("x-simulated-trading"))
	assert.NotEmpty(t, seen.Get("OK-ACCESS-SIGN"))
}

func TestAPIErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":"50011","msg":"Invalid Sign","data":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds(), nil)
	_, err := c.Balance(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "50011")
}

func TestMarketOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":"0","msg":"","data":[{"ordId":"","sCode":"51008","sMsg":"insufficient balance"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds(), nil)
	_, err := c.MarketOrder(context.Background(), "BTC-USDT-SWAP", "isolated", "buy", 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "51008")
}

func TestOpenWithRatioSkipsExistingPosition(t *testing.T) {
	calls := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls[r.URL.Path]++
		switch r.URL.Path {
		case "/api/v5/account/positions":
			io.WriteString(w, `{"code":"0","msg":"","data":[{"instId":"BTC-USDT-SWAP","pos":"1.5","bePx":"60000"}]}`)
		default:
			io.WriteString(w, `{"code":"0","msg":"","data":[]}`)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds(), nil)
	res, err := c.OpenWithRatio(context.Background(), "BTC-USDT-SWAP", "isolated", 0.5, 5, "buy", 0.5)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, calls["/api/v5/trade/order"], "no order when a position is open")
}

func TestOpenWithRatioFullFlow(t *testing.T) {
	var orderSz string
	var slTrigger string
	positionsCalls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v5/account/positions":
			positionsCalls++
			if positionsCalls == 1 {
				io.WriteString(w, `{"code":"0","msg":"","data":[{"instId":"BTC-USDT-SWAP","pos":"0","bePx":""}]}`)
			} else {
				io.WriteString(w, `{"code":"0","msg":"","data":[{"instId":"BTC-USDT-SWAP","pos":"0.05","bePx":"50000"}]}`)
			}
		case "/api/v5/account/set-leverage":
			io.WriteString(w, `{"code":"0","msg":"","data":[]}`)
		case "/api/v5/account/max-avail-size":
			io.WriteString(w, `{"code":"0","msg":"","data":[{"availBuy":"1000"}]}`)
		case "/api/v5/market/ticker":
			io.WriteString(w, `{"code":"0","msg":"","data":[{"last":"50000"}]}`)
		case "/api/v5/trade/order":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			orderSz = body["sz"]
			io.WriteString(w, `{"code":"0","msg":"","data":[{"ordId":"123","sCode":"0","sMsg":""}]}`)
		case "/api/v5/trade/order-algo":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			slTrigger, _ = body["slTriggerPx"].(string)
			io.WriteString(w, `{"code":"0","msg":"","data":[{"ordId":"456","sCode":"0","sMsg":""}]}`)
		default:
			t.Errorf("unexpected call: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds(), nil)
	res, err := c.OpenWithRatio(context.Background(), "BTC-USDT-SWAP", "isolated", 0.5, 5, "buy", 0.5)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "123", res.OrdID)

	// margin 500, notional 2500, price 50000 -> 0.05 base -> 5 contracts
	assert.Equal(t, "5", orderSz)
	// breakeven 50000 * (1 - 0.5/5) = 45000
	assert.Equal(t, "45000", slTrigger)
}
