package copytrade

import (
	"context"
	"time"

	"github.com/betbot/polycopy/clob/client"
	"github.com/betbot/polycopy/clob/types"
	"github.com/betbot/polycopy/internal/activity"
	"github.com/betbot/polycopy/pkg/ratelimit"
	"github.com/shopspring/decimal"
)

// ActivityFeed 目标钱包成交流，失败时返回空切片
type ActivityFeed interface {
	Fetch(ctx context.Context, wallet string, limit int) []activity.Record
}

// PriceSource 参考价来源
type PriceSource interface {
	GetMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error)
}

// Exchange 下单通道
type Exchange interface {
	PriceSource
	Address() string
	PlaceLimitOrder(ctx context.Context, tokenID string, side types.Side, size, price decimal.Decimal) (*types.OrderResponse, error)
}

// ExchangeFactory 按租户配置创建下单通道；返回错误即引擎初始化失败
type ExchangeFactory func(cfg EngineConfig) (Exchange, error)

// NewClobExchangeFactory 基于 CLOB REST 客户端的工厂，rl 在所有租户间共享
func NewClobExchangeFactory(timeout time.Duration, rl *ratelimit.RateLimitManager) ExchangeFactory {
	return func(cfg EngineConfig) (Exchange, error) {
		c, err := client.NewClient(client.Config{
			Host:       cfg.Host,
			ChainID:    types.Chain(cfg.ChainID),
			PrivateKey: cfg.PrivateKey,
			Creds: types.ApiKeyCreds{
				Key:        cfg.APIKey,
				Secret:     cfg.APISecret,
				Passphrase: cfg.APIPassphrase,
			},
			Timeout:     timeout,
			RateLimiter: rl,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
