package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/betbot/polycopy/internal/copytrade"
	sdkhttp "github.com/betbot/polycopy/pkg/sdk/http"
	tea "github.com/charmbracelet/bubbletea"
)

func TestAPI_StatusAndStop(t *testing.T) {
	var stopped atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tenants/t1/status":
			_, _ = w.Write([]byte(`{"tenant":"t1","running":true,"state":"running","stats":{"detected":3},"logs":["a","b"]}`))
		case "/api/tenants/t1/stop":
			stopped.Store(r.Method == http.MethodPost)
			_, _ = w.Write([]byte(`{"message":"Termination sequence complete."}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a := &api{http: sdkhttp.NewClient(srv.URL, sdkhttp.Options{Timeout: time.Second}), tenant: "t1"}
	st, err := a.status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Running || st.Stats.Detected != 3 || len(st.Logs) != 2 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if err := a.stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !stopped.Load() {
		t.Fatalf("stop was not posted")
	}
}

func TestModel_UpdateAndView(t *testing.T) {
	m := model{
		tenant: "t1",
		fetch:  func() tea.Msg { return nil },
		doStop: func() tea.Msg { return stopMsg{} },
	}

	if !strings.Contains(m.View(), "loading...") {
		t.Fatalf("expected loading view")
	}

	next, _ := m.Update(statusMsg{status: &copytrade.Status{
		Tenant:  "t1",
		Running: true,
		State:   "running",
		Target:  "0xabc",
		Logs:    []string{"2024-01-01 00:00:00 - INFO - Monitoring wallet: 0xabc"},
	}})
	m = next.(model)
	view := m.View()
	for _, want := range []string{"RUNNING", "0xabc", "Monitoring wallet"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	// 拉取失败时保留上一次的状态
	next, _ = m.Update(statusMsg{err: errors.New("connection refused")})
	m = next.(model)
	if m.status == nil || !strings.Contains(m.View(), "last poll failed") {
		t.Fatalf("expected stale status with error footer")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = next.(model)
	if cmd == nil || m.notice == "" {
		t.Fatalf("s should trigger a stop request")
	}
	if _, ok := cmd().(stopMsg); !ok {
		t.Fatalf("s should run the stop command")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatalf("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q should return tea.Quit")
	}
}
