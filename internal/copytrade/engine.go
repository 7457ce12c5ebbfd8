package copytrade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/betbot/polycopy/clob/types"
	"github.com/betbot/polycopy/internal/activity"
	"github.com/betbot/polycopy/internal/metrics"
	"github.com/betbot/polycopy/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State 引擎生命周期状态
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats 单次运行的计数
type Stats struct {
	Detected  int64 `json:"detected"`
	Submitted int64 `json:"submitted"`
	Failed    int64 `json:"failed"`
	Skipped   int64 `json:"skipped"`
}

type engineStats struct {
	detected, submitted, failed, skipped atomic.Int64
}

func (s *engineStats) snapshot() Stats {
	return Stats{
		Detected:  s.detected.Load(),
		Submitted: s.submitted.Load(),
		Failed:    s.failed.Load(),
		Skipped:   s.skipped.Load(),
	}
}

// Engine 单租户复制引擎，一次运行对应一个 goroutine
type Engine struct {
	tenant      string
	runID       string
	cfg         EngineConfig
	tuning      Tuning
	feed        ActivityFeed
	newExchange ExchangeFactory

	sink   *LogSink
	ledger *Ledger
	stats  engineStats

	state     atomic.Int32
	startedAt time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func newEngine(tenant string, cfg EngineConfig, tuning Tuning, feed ActivityFeed, factory ExchangeFactory) *Engine {
	runID := uuid.NewString()
	mirror := logger.WithFields(logrus.Fields{"tenant": tenant, "run_id": runID})
	return &Engine{
		tenant:      tenant,
		runID:       runID,
		cfg:         cfg,
		tuning:      tuning,
		feed:        feed,
		newExchange: factory,
		sink:        NewLogSink(tuning.LogBufferCap, mirror),
		ledger:      NewLedger(tuning.LedgerCap),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// start 切换到 Starting 并启动循环 goroutine
func (e *Engine) start(ctx context.Context) {
	e.startedAt = time.Now()
	e.state.Store(int32(StateStarting))
	metrics.EnginesStarted.Add(1)
	go e.run(ctx)
}

// Stop 请求停止；循环在下一个检查点退出，不打断进行中的网络调用
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		for {
			cur := State(e.state.Load())
			if cur == StateStopped || cur == StateStopping {
				break
			}
			if e.state.CompareAndSwap(int32(cur), int32(StateStopping)) {
				e.sink.Infof("Stop requested.")
				break
			}
		}
		close(e.stopCh)
	})
}

// State 当前状态
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Running Starting 或 Running 视为运行中
func (e *Engine) Running() bool {
	s := e.State()
	return s == StateStarting || s == StateRunning
}

// Done 循环退出后关闭
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Logs 引擎日志缓冲
func (e *Engine) Logs() *LogSink {
	return e.sink
}

// Stats 计数快照
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

func (e *Engine) stopRequested() bool {
	select {
	case <-e.stopCh:
		return true
	default:
		return false
	}
}

// sleep 等待 d，被停止或 ctx 结束时提前返回 false
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-e.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	defer func() {
		e.state.Store(int32(StateStopped))
		e.sink.Infof("Copy engine stopped.")
	}()

	ex, ok := e.initialize()
	if !ok {
		return
	}
	if !e.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		// 初始化期间已请求停止
		return
	}
	metrics.EnginesRunning.Add(1)
	defer metrics.EnginesRunning.Add(-1)

	if err := e.safely(func() { e.initialSync(ctx) }); err != nil {
		e.sink.Errorf("Initial sync failed: %v", err)
	}

	translator := NewTranslator(ex, e.cfg.AmountPerTrade, e.cfg.MatchAmount, e.sink)
	for {
		if e.stopRequested() {
			return
		}
		if !e.sleep(ctx, e.tuning.PollInterval) {
			return
		}
		if err := e.safely(func() { e.poll(ctx, ex, translator) }); err != nil {
			metrics.PollErrors.Add(1)
			e.sink.Errorf("Error in main loop: %v", err)
			if !e.sleep(ctx, e.tuning.ErrorBackoff) {
				return
			}
		}
	}
}

func (e *Engine) initialize() (ex Exchange, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EngineInitFailures.Add(1)
			e.sink.Errorf("Failed to initialize exchange client: %v", r)
			ex, ok = nil, false
		}
	}()

	e.sink.Infof("Initializing copy engine (run %s)...", e.runID)
	ex, err := e.newExchange(e.cfg)
	if err != nil {
		metrics.EngineInitFailures.Add(1)
		e.sink.Errorf("Failed to initialize exchange client: %v", err)
		return nil, false
	}
	if addr := ex.Address(); addr != "" {
		e.sink.Infof("Bot Wallet Address: %s", addr)
	} else {
		e.sink.Warnf("Could not derive bot wallet address.")
	}
	e.sink.Infof("Monitoring wallet: %s", e.cfg.TargetWallet)
	e.sink.Infof("Amount per trade: %s USDC (match target amount: %v)", e.cfg.AmountPerTrade.StringFixed(2), e.cfg.MatchAmount)
	return ex, true
}

// safely 把单步中的 panic 转为错误
func (e *Engine) safely(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}

// initialSync 记录目标钱包已有的成交，不下单
func (e *Engine) initialSync(ctx context.Context) {
	recs := e.feed.Fetch(ctx, e.cfg.TargetWallet, e.tuning.InitialSyncLimit)
	if len(recs) == 0 {
		e.sink.Infof("No prior activity found. Waiting for new trades...")
		return
	}
	n := e.ledger.Seed(recs)
	e.sink.Infof("Latest trade hash on start: %s (skipping %d existing)", recs[0].TransactionHash, n)
}

// poll 拉取一页活动，按从旧到新处理新记录
func (e *Engine) poll(ctx context.Context, ex Exchange, tr *Translator) {
	fresh := e.ledger.Filter(e.feed.Fetch(ctx, e.cfg.TargetWallet, e.tuning.PollLimit))
	for i := len(fresh) - 1; i >= 0; i-- {
		if e.stopRequested() {
			return
		}
		e.process(ctx, ex, tr, fresh[i])
	}
}

// process 处理单条记录；无论结果如何哈希都记入账本
func (e *Engine) process(ctx context.Context, ex Exchange, tr *Translator, rec activity.Record) {
	defer e.ledger.Mark(rec.TransactionHash)

	e.sink.Infof("New Activity Found: %s", rec.Title)
	if !rec.IsTrade() {
		return
	}

	e.stats.detected.Add(1)
	metrics.TradesDetected.Add(1)
	e.sink.Infof("Detected Trade: %s on Token %s (Outcome: %s)", rec.Side, rec.Asset, rec.Outcome)

	intent, err := tr.Translate(ctx, rec)
	if err != nil {
		e.stats.skipped.Add(1)
		metrics.TradesSkipped.Add(1)
		if errors.Is(err, ErrSkipTrade) {
			e.sink.Warnf("Skipping trade %s: %v", rec.TransactionHash, err)
		} else {
			e.sink.Errorf("Could not translate trade %s: %v", rec.TransactionHash, err)
		}
		return
	}

	e.sink.Infof("Placing Order: %s %s shares @ %s", intent.Side, intent.Size.StringFixed(2), intent.Price.StringFixed(2))
	resp, err := ex.PlaceLimitOrder(ctx, intent.TokenID, intent.Side, intent.Size, intent.Price)
	if err != nil {
		e.stats.failed.Add(1)
		metrics.OrdersFailed.Add(1)
		e.sink.Errorf("Order failed: %v", err)
		return
	}
	e.stats.submitted.Add(1)
	metrics.OrdersSubmitted.Add(1)
	e.sink.Infof("Order Executed! Response: %s", describeResponse(resp))
}

func describeResponse(resp *types.OrderResponse) string {
	if resp == nil {
		return "<empty>"
	}
	return fmt.Sprintf("orderID=%s status=%s success=%v", resp.OrderID, resp.Status, resp.Success)
}
