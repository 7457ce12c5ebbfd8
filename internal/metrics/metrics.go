package metrics

import "expvar"

// 全部租户累计计数，经 /debug/vars 暴露
var (
	EnginesStarted     = expvar.NewInt("engines_started")
	EngineInitFailures = expvar.NewInt("engine_init_failures")
	EnginesRunning     = expvar.NewInt("engines_running")
	TradesDetected     = expvar.NewInt("trades_detected")
	TradesSkipped      = expvar.NewInt("trades_skipped")
	OrdersSubmitted    = expvar.NewInt("orders_submitted")
	OrdersFailed       = expvar.NewInt("orders_failed")
	PollErrors         = expvar.NewInt("poll_errors")
)

var all = map[string]*expvar.Int{
	"engines_started":      EnginesStarted,
	"engine_init_failures": EngineInitFailures,
	"engines_running":      EnginesRunning,
	"trades_detected":      TradesDetected,
	"trades_skipped":       TradesSkipped,
	"orders_submitted":     OrdersSubmitted,
	"orders_failed":        OrdersFailed,
	"poll_errors":          PollErrors,
}

// Snapshot 当前计数快照
func Snapshot() map[string]int64 {
	out := make(map[string]int64, len(all))
	for k, v := range all {
		out[k] = v.Value()
	}
	return out
}
