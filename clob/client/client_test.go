package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/betbot/polycopy/clob/signing"
	"github.com/betbot/polycopy/clob/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

var testSecret = base64.URLEncoding.EncodeToString([]byte("clob-test-secret"))

func testCreds() types.ApiKeyCreds {
	return types.ApiKeyCreds{Key: "api-key", Secret: testSecret, Passphrase: "pp"}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{PrivateKey: "zz", Creds: testCreds()})
	require.Error(t, err)

	_, err = NewClient(Config{PrivateKey: testKey, Creds: types.ApiKeyCreds{Key: "k"}})
	require.Error(t, err)

	c, err := NewClient(Config{PrivateKey: testKey, Creds: testCreds()})
	require.NoError(t, err)
	assert.Equal(t, testAddr, c.Address())
	assert.Equal(t, types.ChainPolygon, c.GetChainID())
	assert.Equal(t, DefaultHost, c.GetHost())
}

func TestGetOrderRawAmounts(t *testing.T) {
	tests := []struct {
		name         string
		side         types.Side
		size, price  string
		tick         types.TickSize
		maker, taker string
	}{
		{"buy 20 @ 0.99", types.SideBuy, "20.00", "0.99", types.TickSize001, "19.8", "20"},
		{"sell 20 @ 0.01", types.SideSell, "20.00", "0.01", types.TickSize001, "20", "0.2"},
		{"buy truncates size", types.SideBuy, "10.109", "0.99", types.TickSize001, "9.999", "10.1"},
		{"buy 1000 @ 0.99", types.SideBuy, "1000", "0.99", types.TickSize001, "990", "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := RoundingConfig[tt.tick]
			maker, taker := getOrderRawAmounts(tt.side, d(tt.size), d(tt.price), rc)
			assert.True(t, maker.Equal(d(tt.maker)), "maker=%s want %s", maker, tt.maker)
			assert.True(t, taker.Equal(d(tt.taker)), "taker=%s want %s", taker, tt.taker)
		})
	}
}

func TestClampToTick(t *testing.T) {
	assert.Equal(t, "0.9", clampToTick(d("0.99"), types.TickSize01, RoundingConfig[types.TickSize01]).String())
	assert.Equal(t, "0.1", clampToTick(d("0.01"), types.TickSize01, RoundingConfig[types.TickSize01]).String())
	assert.Equal(t, "0.99", clampToTick(d("0.99"), types.TickSize001, RoundingConfig[types.TickSize001]).String())
	assert.Equal(t, "0.01", clampToTick(d("0.01"), types.TickSize001, RoundingConfig[types.TickSize001]).String())
}

func TestToBaseUnits(t *testing.T) {
	assert.Equal(t, "19800000", toBaseUnits(d("19.8")))
	assert.Equal(t, "200000", toBaseUnits(d("0.2")))
	assert.Equal(t, "1", toBaseUnits(d("0.0000019")))
}

type fakeClob struct {
	srv        *httptest.Server
	tickCalls  atomic.Int32
	lastOrder  types.NewOrder
	lastHeader http.Header
	lastBody   string
	reject     bool
	mid        string
}

func newFakeClob(t *testing.T) *fakeClob {
	f := &fakeClob{mid: "0.55"}
	mux := http.NewServeMux()
	mux.HandleFunc("/midpoint", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"mid":"` + f.mid + `"}`))
	})
	mux.HandleFunc("/tick-size", func(w http.ResponseWriter, r *http.Request) {
		f.tickCalls.Add(1)
		_, _ = w.Write([]byte(`{"minimum_tick_size":0.01}`))
	})
	mux.HandleFunc("/neg-risk", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"neg_risk":false}`))
	})
	mux.HandleFunc("/order", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.lastBody = string(b)
		f.lastHeader = r.Header.Clone()
		_ = json.Unmarshal(b, &f.lastOrder)
		w.Header().Set("Content-Type", "application/json")
		if f.reject {
			_, _ = w.Write([]byte(`{"success":false,"errorMsg":"not enough balance / allowance"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"orderID":"0xabc","status":"matched"}`))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestClient(t *testing.T, host string) *Client {
	c, err := NewClient(Config{Host: host, PrivateKey: testKey, Creds: testCreds()})
	require.NoError(t, err)
	return c
}

func TestGetMidpoint(t *testing.T) {
	f := newFakeClob(t)
	c := newTestClient(t, f.srv.URL)

	mid, err := c.GetMidpoint(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "0.55", mid.String())

	f.mid = ""
	_, err = c.GetMidpoint(context.Background(), "123")
	assert.ErrorIs(t, err, ErrNoMidpoint)
}

func TestGetTickSize_Cached(t *testing.T) {
	f := newFakeClob(t)
	c := newTestClient(t, f.srv.URL)

	for i := 0; i < 3; i++ {
		ts, err := c.GetTickSize(context.Background(), "123")
		require.NoError(t, err)
		assert.Equal(t, types.TickSize001, ts)
	}
	assert.EqualValues(t, 1, f.tickCalls.Load())
}

func TestPlaceLimitOrder_SignsAndPosts(t *testing.T) {
	f := newFakeClob(t)
	c := newTestClient(t, f.srv.URL)

	resp, err := c.PlaceLimitOrder(context.Background(), "71321045679252212594626385532706912750332728571942532289631379312455583992563", types.SideBuy, d("20.00"), d("0.99"))
	require.NoError(t, err)
	assert.Equal(t, "0xabc", resp.OrderID)

	o := f.lastOrder
	assert.Equal(t, "api-key", o.Owner)
	assert.Equal(t, types.OrderTypeGTC, o.OrderType)
	assert.Equal(t, types.SideBuy, o.Order.Side)
	assert.Equal(t, "19800000", o.Order.MakerAmount)
	assert.Equal(t, "20000000", o.Order.TakerAmount)
	assert.Equal(t, testAddr, o.Order.Maker)
	assert.Equal(t, testAddr, o.Order.Signer)
	assert.NotEmpty(t, o.Order.Signature)

	// L2 头可由同一 body 复算
	ts, err := strconv.ParseInt(f.lastHeader.Get("POLY_TIMESTAMP"), 10, 64)
	require.NoError(t, err)
	want, err := signing.BuildPolyHmacSignature(testSecret, ts, http.MethodPost, EndpointPostOrder, &f.lastBody)
	require.NoError(t, err)
	assert.Equal(t, want, f.lastHeader.Get("POLY_SIGNATURE"))
	assert.Equal(t, testAddr, f.lastHeader.Get("POLY_ADDRESS"))
	assert.Equal(t, "api-key", f.lastHeader.Get("POLY_API_KEY"))
	assert.Equal(t, "pp", f.lastHeader.Get("POLY_PASSPHRASE"))
}

func TestPlaceLimitOrder_Rejected(t *testing.T) {
	f := newFakeClob(t)
	f.reject = true
	c := newTestClient(t, f.srv.URL)

	_, err := c.PlaceLimitOrder(context.Background(), "123", types.SideSell, d("5"), d("0.01"))
	require.Error(t, err)
	var rej *OrderRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Error(), "not enough balance")
}
