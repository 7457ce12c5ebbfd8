package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSnapshot(t *testing.T) {
	before := Snapshot()["orders_submitted"]
	OrdersSubmitted.Add(2)
	if got := Snapshot()["orders_submitted"]; got != before+2 {
		t.Fatalf("orders_submitted=%d, want %d", got, before+2)
	}
}

func TestDebugVars(t *testing.T) {
	rec := httptest.NewRecorder()
	newMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var vars map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &vars); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := vars["trades_detected"]; !ok {
		t.Fatalf("trades_detected missing from /debug/vars")
	}
}

func TestStartAsync_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := StartAsync(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s == nil {
		t.Fatalf("nil server")
	}
	cancel()
}
