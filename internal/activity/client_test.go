package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `[
  {"transactionHash":"0xh2","side":"BUY","asset":"111","title":"Will it rain?","outcome":"Yes","type":"TRADE","usdcSize":"25","timestamp":1700000002},
  {"transactionHash":"0xh1","side":"SELL","asset":"222","title":"Election","outcome":"No","type":"OrderFilled","usdcSize":12.5,"timestamp":1700000001},
  {"transactionHash":"0xh0","type":"REDEEM","usdcSize":"abc"}
]`

func TestFetchActivity_DecodesFeed(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/activity", r.URL.Path)
		gotQuery = map[string]string{
			"user":  r.URL.Query().Get("user"),
			"limit": r.URL.Query().Get("limit"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	recs, err := c.FetchActivity(context.Background(), "0xabc", 5)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, map[string]string{"user": "0xabc", "limit": "5"}, gotQuery)

	assert.Equal(t, "0xh2", recs[0].TransactionHash)
	assert.True(t, recs[0].UsdcSize.Valid)
	assert.Equal(t, "25", recs[0].UsdcSize.Value.String())
	assert.True(t, recs[0].IsTrade())

	assert.Equal(t, "12.5", recs[1].UsdcSize.Value.String())
	assert.True(t, recs[1].IsTrade())

	assert.False(t, recs[2].UsdcSize.Valid)
	assert.False(t, recs[2].IsTrade())
}

func TestFetch_DegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	assert.Empty(t, c.Fetch(context.Background(), "0xabc", 5))

	_, err := c.FetchActivity(context.Background(), "0xabc", 5)
	assert.Error(t, err)
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"oops"`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	assert.Empty(t, c.Fetch(context.Background(), "0xabc", 5))
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	assert.Empty(t, c.Fetch(context.Background(), "0xabc", 5))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAmount_JSON(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		want  string
	}{
		{`"25"`, true, "25"},
		{`25.5`, true, "25.5"},
		{`null`, false, ""},
		{`""`, false, ""},
		{`"n/a"`, false, ""},
	}
	for _, tt := range tests {
		var a Amount
		if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if a.Valid != tt.valid {
			t.Fatalf("%s: valid=%v want %v", tt.in, a.Valid, tt.valid)
		}
		if tt.valid && a.Value.String() != tt.want {
			t.Fatalf("%s: value=%s want %s", tt.in, a.Value, tt.want)
		}
	}
}
