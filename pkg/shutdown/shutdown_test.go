package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_RunsAllHandlers(t *testing.T) {
	m := NewManager()
	var n atomic.Int32
	for i := 0; i < 3; i++ {
		m.OnShutdown("h", func(ctx context.Context) { n.Add(1) })
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !m.Shutdown(ctx) {
		t.Fatalf("unexpected timeout")
	}
	if n.Load() != 3 {
		t.Fatalf("handlers run=%d, want 3", n.Load())
	}
}

func TestManager_Timeout(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})
	defer close(release)
	m.OnShutdown("slow", func(ctx context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if m.Shutdown(ctx) {
		t.Fatalf("expected timeout")
	}
}
