package copytrade

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrAlreadyRunning 该租户已有运行中的引擎
	ErrAlreadyRunning = errors.New("engine already running")
	// ErrShuttingDown 注册表已开始关闭，不再接受启动
	ErrShuttingDown = errors.New("registry is shutting down")
)

// Options 注册表依赖
type Options struct {
	// Defaults 租户未提供时使用的凭证、网络与金额
	Defaults    EngineConfig
	Tuning      Tuning
	Feed        ActivityFeed
	NewExchange ExchangeFactory
}

// Status 租户引擎状态视图
type Status struct {
	Tenant    string    `json:"tenant"`
	Running   bool      `json:"running"`
	State     string    `json:"state"`
	RunID     string    `json:"run_id,omitempty"`
	Target    string    `json:"target,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Stats     Stats     `json:"stats"`
	Logs      []string  `json:"logs"`
}

// Registry 按租户管理引擎，同一租户最多一个运行中的引擎
// 已停止的引擎保留在表中供查询日志，直到被新的启动替换或 Remove
type Registry struct {
	mu      sync.Mutex
	engines map[string]*Engine
	opts    Options
	wg      sync.WaitGroup // 包括已被替换但仍在退出中的引擎
	closed  bool           // Shutdown 之后为 true；wg.Add 只在 closed 为 false 时于锁内调用

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRegistry(opts Options) *Registry {
	opts.Tuning = opts.Tuning.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		engines: make(map[string]*Engine),
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 校验配置并为租户启动引擎
// 校验失败或已有运行中的引擎时注册表保持不变
func (r *Registry) Start(tenant string, cfg EngineConfig) error {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return ErrMissingTenant
	}
	cfg = cfg.withDefaults(r.opts.Defaults)
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrShuttingDown
	}
	if cur, ok := r.engines[tenant]; ok && cur.Running() {
		return ErrAlreadyRunning
	}
	e := newEngine(tenant, cfg, r.opts.Tuning, r.opts.Feed, r.opts.NewExchange)
	r.engines[tenant] = e
	e.start(r.ctx)
	r.wg.Add(1)
	go func() {
		<-e.Done()
		r.wg.Done()
	}()
	return nil
}

// Stop 请求停止；租户不存在或已停止时无操作
func (r *Registry) Stop(tenant string) {
	r.mu.Lock()
	e, ok := r.engines[strings.TrimSpace(tenant)]
	r.mu.Unlock()
	if ok {
		e.Stop()
	}
}

// Remove 删除已停止租户的记录；仍在运行时返回 ErrAlreadyRunning，未知租户无操作
func (r *Registry) Remove(tenant string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tenant = strings.TrimSpace(tenant)
	e, ok := r.engines[tenant]
	if !ok {
		return nil
	}
	if e.Running() {
		return ErrAlreadyRunning
	}
	delete(r.engines, tenant)
	return nil
}

// Engine 返回租户当前（或最近一次）的引擎
func (r *Registry) Engine(tenant string) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[strings.TrimSpace(tenant)]
	return e, ok
}

// Status 租户状态；未知租户返回 idle
func (r *Registry) Status(tenant string) Status {
	tenant = strings.TrimSpace(tenant)
	e, ok := r.Engine(tenant)
	if !ok {
		return Status{Tenant: tenant, State: StateIdle.String(), Logs: []string{}}
	}
	return e.status()
}

// Tenants 所有已知租户的状态（不含日志），按租户 id 排序
func (r *Registry) Tenants() []Status {
	r.mu.Lock()
	list := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		list = append(list, e)
	}
	r.mu.Unlock()

	out := make([]Status, 0, len(list))
	for _, e := range list {
		st := e.status()
		st.Logs = nil
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tenant < out[j].Tenant })
	return out
}

// Shutdown 拒绝后续启动，停止所有引擎并等待退出；ctx 超时后取消进行中的调用
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	list := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		list = append(list, e)
	}
	r.mu.Unlock()

	for _, e := range list {
		e.Stop()
	}
	defer r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) status() Status {
	return Status{
		Tenant:    e.tenant,
		Running:   e.Running(),
		State:     e.State().String(),
		RunID:     e.runID,
		Target:    e.cfg.TargetWallet,
		StartedAt: e.startedAt,
		Stats:     e.Stats(),
		Logs:      e.sink.Lines(),
	}
}
