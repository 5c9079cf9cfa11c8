package exchange

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AutoTrader/internal/credentials"
	"AutoTrader/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secret-key"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	auth := NewJWTAuthorizer(credentials.Static{AccessKey: "access-key", SecretKey: testSecret})
	return NewClient(srv.URL, auth, 5*time.Second, "")
}

func parseClaims(t *testing.T, header string) jwt.MapClaims {
	t.Helper()
	require.True(t, strings.HasPrefix(header, "Bearer "), "missing bearer prefix: %q", header)
	token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestCandles_SortedOldestFirstInKST(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/candles/days", r.URL.Path)
		assert.Equal(t, "KRW-BTC", r.URL.Query().Get("market"))
		assert.Equal(t, "2", r.URL.Query().Get("count"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"market":"KRW-BTC","candle_date_time_kst":"2024-03-02T09:00:00","opening_price":2,"high_price":3,"low_price":1,"trade_price":2.5,"candle_acc_trade_volume":20},
			{"market":"KRW-BTC","candle_date_time_kst":"2024-03-01T09:00:00","opening_price":1,"high_price":2,"low_price":0.5,"trade_price":1.5,"candle_acc_trade_volume":10}
		]`))
	})

	bars, err := client.Candles(context.Background(), "KRW-BTC", 2, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.5, bars[0].Close)
	assert.Equal(t, 2.5, bars[1].Close)
	assert.Equal(t, 20.0, bars[1].Volume)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	_, offset := bars[0].Time.Zone()
	assert.Equal(t, 9*60*60, offset)
}

func TestListInstrumentsAndTicker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/market/all":
			_, _ = w.Write([]byte(`[{"market":"KRW-BTC","korean_name":"비트코인","english_name":"Bitcoin","market_warning":"NONE"},
				{"market":"BTC-ETH","korean_name":"이더리움","english_name":"Ethereum","market_warning":"CAUTION"}]`))
		case "/v1/ticker":
			assert.Equal(t, "KRW-BTC", r.URL.Query().Get("markets"))
			_, _ = w.Write([]byte(`[{"market":"KRW-BTC","trade_price":50000000}]`))
		default:
			http.NotFound(w, r)
		}
	})

	instruments, err := client.ListInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, instruments, 2)
	assert.Equal(t, "KRW-BTC", instruments[0].Market)
	assert.Equal(t, "BTC", instruments[0].Currency())
	assert.False(t, instruments[0].Warning)
	assert.True(t, instruments[1].Warning)

	price, err := client.Ticker(context.Background(), "KRW-BTC")
	require.NoError(t, err)
	assert.Equal(t, 50000000.0, price)
}

func TestBalances_Authenticated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		claims := parseClaims(t, r.Header.Get("Authorization"))
		assert.Equal(t, "access-key", claims["access_key"])
		assert.NotEmpty(t, claims["nonce"])
		assert.NotContains(t, claims, "query_hash")
		_, _ = w.Write([]byte(`[{"currency":"KRW","balance":"100000.0","locked":"0.0","avg_buy_price":"0","unit_currency":"KRW"},
			{"currency":"ETH","balance":"0.5","locked":"0.1","avg_buy_price":"4000000","unit_currency":"KRW"}]`))
	})

	balances, err := client.Balances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, 100000.0, balances[0].Free)
	eth := model.FindBalance(balances, "ETH")
	assert.Equal(t, 0.5, eth.Free)
	assert.Equal(t, 0.1, eth.Locked)
	assert.Equal(t, 4000000.0, eth.AvgBuyPrice)
}

func TestPlaceOrder_SignsBodyHash(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"market":   "KRW-BTC",
			"side":     "bid",
			"ord_type": "limit",
			"volume":   "0.001",
			"price":    "49950000",
		}, body)

		claims := parseClaims(t, r.Header.Get("Authorization"))
		sum := sha512.Sum512([]byte("market=KRW-BTC&ord_type=limit&price=49950000&side=bid&volume=0.001"))
		assert.Equal(t, hex.EncodeToString(sum[:]), claims["query_hash"])
		assert.Equal(t, "SHA512", claims["query_hash_alg"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"abc-123","side":"bid","ord_type":"limit","price":"49950000.0","state":"wait",
			"market":"KRW-BTC","created_at":"2024-03-01T10:00:00+09:00","volume":"0.001","remaining_volume":"0.001",
			"paid_fee":"0.0","executed_volume":"0.0"}`))
	})

	price := decimal.NewFromInt(49950000)
	result, err := client.PlaceOrder(context.Background(), model.Order{
		Market: "KRW-BTC",
		Side:   model.SideBid,
		Type:   model.OrderTypeLimit,
		Volume: decimal.RequireFromString("0.001"),
		Price:  &price,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", result.UUID)
	assert.Equal(t, "wait", result.State)
	assert.True(t, result.Price.Equal(price))
	assert.False(t, result.CreatedAt.IsZero())
}

func TestPlaceOrder_MarketSellOmitsPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "price")
		assert.Equal(t, "market", body["ord_type"])
		assert.Equal(t, "ask", body["side"])
		_, _ = w.Write([]byte(`{"uuid":"sell-1","side":"ask","ord_type":"market","price":null,"state":"done","market":"KRW-ETH","volume":"0.5"}`))
	})

	result, err := client.PlaceOrder(context.Background(), model.Order{
		Market: "KRW-ETH",
		Side:   model.SideAsk,
		Type:   model.OrderTypeMarket,
		Volume: decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sell-1", result.UUID)
	assert.True(t, result.Price.IsZero())
}

func TestAPIErrorDecoded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"name":"insufficient_funds_bid","message":"주문가능한 금액(KRW)이 부족합니다."}}`))
	})

	_, err := client.Balances(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "insufficient_funds_bid", apiErr.Name)
}

func TestDecodeErrorKeepsRawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":true}`))
	})

	_, err := client.Ticker(context.Background(), "KRW-BTC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `{"unexpected":true}`)
}

func TestAuthorizeWithoutCredentials(t *testing.T) {
	auth := NewJWTAuthorizer(credentials.Static{})
	_, err := auth.Authorize("")
	assert.ErrorIs(t, err, credentials.ErrUnavailable)
}

func TestOrder_LookupByUUID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/order", r.URL.Path)
		assert.Equal(t, "abc-123", r.URL.Query().Get("uuid"))

		claims := parseClaims(t, r.Header.Get("Authorization"))
		sum := sha512.Sum512([]byte("uuid=abc-123"))
		assert.Equal(t, hex.EncodeToString(sum[:]), claims["query_hash"])

		_, _ = w.Write([]byte(`{"uuid":"abc-123","side":"ask","ord_type":"market","state":"done",
			"market":"KRW-ETH","created_at":"2024-03-01T10:00:00+09:00","volume":"0.5","remaining_volume":"0.0",
			"paid_fee":"1000.5","executed_volume":"0.5"}`))
	})

	result, err := client.Order(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "done", result.State)
	assert.Equal(t, model.SideAsk, result.Side)
	assert.Equal(t, model.OrderTypeMarket, result.Type)
	assert.True(t, result.ExecutedVolume.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, result.PaidFee.Equal(decimal.RequireFromString("1000.5")))
}

func TestOrder_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"name":"order_not_found","message":"주문을 찾지 못했습니다."}}`))
	})

	_, err := client.Order(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "order_not_found", apiErr.Name)
}
