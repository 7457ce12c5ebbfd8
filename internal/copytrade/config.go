package copytrade

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 配置校验错误
var (
	ErrMissingTenant     = errors.New("tenant id is required")
	ErrMissingTarget     = errors.New("target wallet is required")
	ErrMissingPrivateKey = errors.New("private key is required")
)

// IsValidationError 是否为配置校验错误
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingTenant) || errors.Is(err, ErrMissingTarget) || errors.Is(err, ErrMissingPrivateKey)
}

// EngineConfig 单个租户的复制参数，启动后不可变
type EngineConfig struct {
	TargetWallet   string
	PrivateKey     string
	APIKey         string
	APISecret      string
	APIPassphrase  string
	AmountPerTrade decimal.Decimal
	MatchAmount    bool
	ChainID        int64
	Host           string
}

// withDefaults 去除空白、目标地址小写，空字段取默认值
func (c EngineConfig) withDefaults(def EngineConfig) EngineConfig {
	c.TargetWallet = strings.ToLower(strings.TrimSpace(c.TargetWallet))
	c.PrivateKey = strings.TrimSpace(c.PrivateKey)
	c.APIKey = firstNonEmpty(c.APIKey, def.APIKey)
	c.APISecret = firstNonEmpty(c.APISecret, def.APISecret)
	c.APIPassphrase = firstNonEmpty(c.APIPassphrase, def.APIPassphrase)
	c.Host = firstNonEmpty(c.Host, def.Host)
	if c.ChainID <= 0 {
		c.ChainID = def.ChainID
	}
	if !c.AmountPerTrade.IsPositive() {
		c.AmountPerTrade = def.AmountPerTrade
	}
	return c
}

// Validate 目标钱包与私钥必填
func (c EngineConfig) Validate() error {
	if strings.TrimSpace(c.TargetWallet) == "" {
		return ErrMissingTarget
	}
	if strings.TrimSpace(c.PrivateKey) == "" {
		return ErrMissingPrivateKey
	}
	return nil
}

// Tuning 轮询节奏与容量，所有租户共用
type Tuning struct {
	PollInterval     time.Duration
	ErrorBackoff     time.Duration
	PollLimit        int
	InitialSyncLimit int
	LedgerCap        int
	LogBufferCap     int
}

// DefaultTuning 默认节奏：2 秒轮询，出错退避 5 秒
func DefaultTuning() Tuning {
	return Tuning{
		PollInterval:     2 * time.Second,
		ErrorBackoff:     5 * time.Second,
		PollLimit:        10,
		InitialSyncLimit: 50,
		LedgerCap:        100,
		LogBufferCap:     200,
	}
}

// normalize 补齐零值，并保证首次同步窗口不小于轮询窗口、账本容量不小于首次同步窗口
func (t Tuning) normalize() Tuning {
	def := DefaultTuning()
	if t.PollInterval <= 0 {
		t.PollInterval = def.PollInterval
	}
	if t.ErrorBackoff <= 0 {
		t.ErrorBackoff = def.ErrorBackoff
	}
	if t.PollLimit <= 0 {
		t.PollLimit = def.PollLimit
	}
	if t.InitialSyncLimit <= 0 {
		t.InitialSyncLimit = def.InitialSyncLimit
	}
	if t.InitialSyncLimit < t.PollLimit {
		t.InitialSyncLimit = t.PollLimit
	}
	if t.LedgerCap < t.InitialSyncLimit {
		t.LedgerCap = t.InitialSyncLimit
	}
	if t.LogBufferCap <= 0 {
		t.LogBufferCap = def.LogBufferCap
	}
	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
