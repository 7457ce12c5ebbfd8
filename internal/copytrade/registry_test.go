package copytrade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/betbot/polycopy/internal/activity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Validation(t *testing.T) {
	r := newTestRegistry(&fakeFeed{}, factoryFor(&fakeExchange{}))
	defer r.Shutdown(context.Background())

	tests := []struct {
		name   string
		tenant string
		cfg    EngineConfig
		want   error
	}{
		{"missing tenant", " ", testConfig(), ErrMissingTenant},
		{"missing target", "t1", EngineConfig{PrivateKey: "0xkey"}, ErrMissingTarget},
		{"blank target", "t1", EngineConfig{TargetWallet: "  ", PrivateKey: "0xkey"}, ErrMissingTarget},
		{"missing key", "t1", EngineConfig{TargetWallet: "0xabc"}, ErrMissingPrivateKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Start(tt.tenant, tt.cfg)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidationError(err))
		})
	}

	st := r.Status("t1")
	assert.False(t, st.Running)
	assert.Equal(t, "idle", st.State)
	assert.Empty(t, st.Logs)
	assert.Empty(t, r.Tenants())
}

func TestRegistry_AlreadyRunning(t *testing.T) {
	r := newTestRegistry(&fakeFeed{}, factoryFor(&fakeExchange{mid: dec("0.5")}))
	defer r.Shutdown(context.Background())

	require.NoError(t, r.Start("t1", testConfig()))
	first, _ := r.Engine("t1")

	assert.ErrorIs(t, r.Start("t1", testConfig()), ErrAlreadyRunning)
	cur, _ := r.Engine("t1")
	assert.Same(t, first, cur)

	// 其他租户互不影响
	require.NoError(t, r.Start("t2", testConfig()))
	assert.Len(t, r.Tenants(), 2)
}

func TestRegistry_RestartAfterStop(t *testing.T) {
	r := newTestRegistry(&fakeFeed{}, factoryFor(&fakeExchange{mid: dec("0.5")}))
	defer r.Shutdown(context.Background())

	require.NoError(t, r.Start("t1", testConfig()))
	first, _ := r.Engine("t1")
	r.Stop("t1")
	waitStopped(t, first)

	require.NoError(t, r.Start("t1", testConfig()))
	second, _ := r.Engine("t1")
	assert.NotSame(t, first, second)
	assert.NotEqual(t, first.runID, second.runID)
}

func TestRegistry_StatusAndDefaults(t *testing.T) {
	var got EngineConfig
	factory := func(cfg EngineConfig) (Exchange, error) {
		got = cfg
		return &fakeExchange{mid: dec("0.5")}, nil
	}
	r := NewRegistry(Options{
		Defaults: EngineConfig{
			APIKey:         "k",
			APISecret:      "s",
			APIPassphrase:  "p",
			ChainID:        137,
			Host:           "https://clob.example",
			AmountPerTrade: decimal.NewFromInt(7),
		},
		Tuning:      testTuning(),
		Feed:        &fakeFeed{},
		NewExchange: factory,
	})
	defer r.Shutdown(context.Background())

	require.NoError(t, r.Start("t1", EngineConfig{TargetWallet: " 0xABC ", PrivateKey: "0xkey"}))
	require.Eventually(t, func() bool { return r.Status("t1").State == "running" }, 2*time.Second, 5*time.Millisecond)

	st := r.Status("t1")
	assert.True(t, st.Running)
	assert.Equal(t, "0xabc", st.Target)
	assert.NotEmpty(t, st.RunID)
	assert.True(t, hasLine(st.Logs, "Monitoring wallet: 0xabc"))
	assert.True(t, hasLine(st.Logs, "Amount per trade: 7.00 USDC"))

	assert.Equal(t, "k", got.APIKey)
	assert.Equal(t, "s", got.APISecret)
	assert.Equal(t, "p", got.APIPassphrase)
	assert.EqualValues(t, 137, got.ChainID)
	assert.Equal(t, "https://clob.example", got.Host)
	assert.True(t, got.AmountPerTrade.Equal(decimal.NewFromInt(7)))

	list := r.Tenants()
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Logs)
}

func TestRegistry_ShutdownStopsAll(t *testing.T) {
	r := newTestRegistry(&fakeFeed{}, factoryFor(&fakeExchange{mid: dec("0.5")}))
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Start(id, testConfig()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	for _, st := range r.Tenants() {
		assert.False(t, st.Running, st.Tenant)
		assert.Equal(t, "stopped", st.State, st.Tenant)
	}
}

func TestTuning_Normalize(t *testing.T) {
	tn := Tuning{PollLimit: 80, LedgerCap: 10}.normalize()
	assert.Equal(t, 80, tn.InitialSyncLimit)
	assert.Equal(t, 80, tn.LedgerCap)
	assert.Equal(t, DefaultTuning().PollInterval, tn.PollInterval)
	assert.Equal(t, DefaultTuning().LogBufferCap, tn.LogBufferCap)
}

func TestRegistry_StartDuringShutdown(t *testing.T) {
	r := newTestRegistry(&fakeFeed{}, factoryFor(&fakeExchange{mid: dec("0.5")}))
	require.NoError(t, r.Start("a", testConfig()))

	var wg sync.WaitGroup
	startErrs := make([]error, 20)
	for i := range startErrs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			startErrs[i] = r.Start(fmt.Sprintf("t%d", i), testConfig())
		}(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	wg.Wait()

	for i, err := range startErrs {
		if err != nil {
			assert.ErrorIs(t, err, ErrShuttingDown, "t%d", i)
		}
	}
	// 关闭完成后不能再有运行中的引擎
	for _, st := range r.Tenants() {
		if st.Running {
			t.Fatalf("tenant %s still running after shutdown", st.Tenant)
		}
	}
	assert.ErrorIs(t, r.Start("late", testConfig()), ErrShuttingDown)
	_, ok := r.Engine("late")
	assert.False(t, ok)
}

func TestRegistry_ConcurrentStartSingleWinner(t *testing.T) {
	r := newTestRegistry(&fakeFeed{}, factoryFor(&fakeExchange{mid: dec("0.5")}))
	defer r.Shutdown(context.Background())

	const n = 50
	var (
		wg      sync.WaitGroup
		ok      atomic.Int32
		running atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Start("t1", testConfig())
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrAlreadyRunning):
				running.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, n-1, running.Load())
	assert.Len(t, r.Tenants(), 1)
}

func TestRegistry_ConcurrentStartStopStatus(t *testing.T) {
	r := newTestRegistry(&fakeFeed{}, factoryFor(&fakeExchange{mid: dec("0.5")}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			err := r.Start("t1", testConfig())
			if err != nil && !errors.Is(err, ErrAlreadyRunning) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			r.Stop("t1")
		}()
		go func() {
			defer wg.Done()
			st := r.Status("t1")
			if st.Tenant != "t1" {
				t.Errorf("tenant=%q", st.Tenant)
			}
			_ = r.Tenants()
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.False(t, r.Status("t1").Running)
}

// walletFeed 按钱包分发；slow 钱包的每次拉取阻塞到 release 关闭
type walletFeed struct {
	slow    string
	release chan struct{}
	blocked chan struct{}
	once    sync.Once

	mu    sync.Mutex
	calls map[string]int
}

func (f *walletFeed) Fetch(ctx context.Context, wallet string, limit int) []activity.Record {
	f.mu.Lock()
	f.calls[wallet]++
	n := f.calls[wallet]
	f.mu.Unlock()

	if wallet == f.slow {
		f.once.Do(func() { close(f.blocked) })
		<-f.release
		return nil
	}
	if n == 1 {
		return nil
	}
	return recs("h1")
}

func TestRegistry_SlowTenantDoesNotBlockOthers(t *testing.T) {
	feed := &walletFeed{
		slow:    "0xslow",
		release: make(chan struct{}),
		blocked: make(chan struct{}),
		calls:   map[string]int{},
	}
	x := &fakeExchange{mid: dec("0.5")}
	r := newTestRegistry(feed, factoryFor(x))

	slow := testConfig()
	slow.TargetWallet = "0xslow"
	require.NoError(t, r.Start("slow", slow))
	select {
	case <-feed.blocked:
	case <-time.After(2 * time.Second):
		t.Fatalf("slow tenant never fetched")
	}

	fast := testConfig()
	fast.TargetWallet = "0xfast"
	require.NoError(t, r.Start("fast", fast))
	require.Eventually(t, func() bool { return len(x.orders()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "running", r.Status("fast").State)

	// 阻塞中的引擎仍可请求停止，网络调用返回后退出
	r.Stop("slow")
	assert.Equal(t, "stopping", r.Status("slow").State)
	close(feed.release)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.Equal(t, "stopped", r.Status("slow").State)
}

func TestRegistry_Remove(t *testing.T) {
	r := newTestRegistry(&fakeFeed{}, factoryFor(&fakeExchange{mid: dec("0.5")}))
	defer r.Shutdown(context.Background())

	assert.NoError(t, r.Remove("unknown"))

	require.NoError(t, r.Start("t1", testConfig()))
	assert.ErrorIs(t, r.Remove("t1"), ErrAlreadyRunning)

	e, _ := r.Engine("t1")
	r.Stop("t1")
	waitStopped(t, e)

	require.NoError(t, r.Remove("t1"))
	_, ok := r.Engine("t1")
	assert.False(t, ok)
	assert.Empty(t, r.Tenants())
	assert.Equal(t, "idle", r.Status("t1").State)
}
