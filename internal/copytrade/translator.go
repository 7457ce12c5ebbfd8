package copytrade

import (
	"context"
	"errors"
	"fmt"

	"github.com/betbot/polycopy/clob/types"
	"github.com/betbot/polycopy/internal/activity"
	"github.com/shopspring/decimal"
)

// ErrSkipTrade 该成交不产生订单
var ErrSkipTrade = errors.New("trade skipped")

var (
	fallbackPrice = decimal.RequireFromString("0.5")
	minRefPrice   = decimal.RequireFromString("0.01")
	maxRefPrice   = decimal.RequireFromString("0.99")

	// 激进限价，近似立即成交
	buyLimitPrice  = decimal.RequireFromString("0.99")
	sellLimitPrice = decimal.RequireFromString("0.01")
)

const sizePlaces = 2

// OrderIntent 一笔待提交的复制订单
type OrderIntent struct {
	TokenID   string
	Side      types.Side
	Size      decimal.Decimal // 份额，2 位小数
	Price     decimal.Decimal // 限价
	Notional  decimal.Decimal // 名义金额（USDC）
	Reference decimal.Decimal // 计算份额所用参考价
}

// Translator 把目标钱包的成交换算成本账户的订单
type Translator struct {
	prices      PriceSource
	amount      decimal.Decimal
	matchAmount bool
	log         *LogSink
}

// NewTranslator amount 为每笔基础名义金额；matchAmount 为真时优先使用目标成交额
func NewTranslator(prices PriceSource, amount decimal.Decimal, matchAmount bool, log *LogSink) *Translator {
	return &Translator{prices: prices, amount: amount, matchAmount: matchAmount, log: log}
}

// Translate 返回订单意图；不应下单时返回包装了 ErrSkipTrade 的错误
func (t *Translator) Translate(ctx context.Context, rec activity.Record) (*OrderIntent, error) {
	if rec.Asset == "" {
		return nil, fmt.Errorf("%w: missing token id", ErrSkipTrade)
	}
	side, ok := types.ParseSide(rec.Side)
	if !ok {
		return nil, fmt.Errorf("%w: unknown side %q", ErrSkipTrade, rec.Side)
	}

	ref := t.referencePrice(ctx, rec.Asset)
	notional := t.notional(rec)

	size := notional.Div(ref).Round(sizePlaces)
	if !size.IsPositive() {
		return nil, fmt.Errorf("%w: calculated size is 0 (notional %s @ %s)", ErrSkipTrade, notional, ref)
	}

	price := buyLimitPrice
	if side == types.SideSell {
		price = sellLimitPrice
	}

	return &OrderIntent{
		TokenID:   rec.Asset,
		Side:      side,
		Size:      size,
		Price:     price,
		Notional:  notional,
		Reference: ref,
	}, nil
}

// referencePrice 中间价，失败回退 0.5，结果限制在 [0.01, 0.99]
func (t *Translator) referencePrice(ctx context.Context, tokenID string) decimal.Decimal {
	mid, err := t.prices.GetMidpoint(ctx, tokenID)
	if err != nil {
		t.warnf("Could not fetch midpoint for %s, using %s: %v", tokenID, fallbackPrice, err)
		mid = fallbackPrice
	}
	return decimal.Min(decimal.Max(mid, minRefPrice), maxRefPrice)
}

func (t *Translator) notional(rec activity.Record) decimal.Decimal {
	if !t.matchAmount {
		return t.amount
	}
	if rec.UsdcSize.Valid {
		return rec.UsdcSize.Value
	}
	t.warnf("Target trade amount unavailable, using default %s USDC", t.amount)
	return t.amount
}

func (t *Translator) warnf(format string, args ...any) {
	if t.log != nil {
		t.log.Warnf(format, args...)
	}
}
