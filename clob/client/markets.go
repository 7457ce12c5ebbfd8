package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/betbot/polycopy/clob/types"
	"github.com/betbot/polycopy/pkg/logger"
	"github.com/betbot/polycopy/pkg/ratelimit"
	sdkhttp "github.com/betbot/polycopy/pkg/sdk/http"
	"github.com/shopspring/decimal"
)

// ErrNoMidpoint 盘口无中间价
var ErrNoMidpoint = errors.New("no midpoint available")

// GetMidpoint 获取 token 的中间价
func (c *Client) GetMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.KeyMidpointGet); err != nil {
		return decimal.Zero, fmt.Errorf("速率限制等待失败: %w", err)
	}

	var out types.MidpointResponse
	_, err := c.httpClient.DoRequest(ctx, http.MethodGet, EndpointGetMidpoint, &sdkhttp.RequestOptions{
		Params: map[string]any{"token_id": tokenID},
	}, &out)
	if err != nil {
		return decimal.Zero, fmt.Errorf("获取中间价失败: %w", err)
	}
	if strings.TrimSpace(out.Mid) == "" {
		return decimal.Zero, ErrNoMidpoint
	}
	mid, err := decimal.NewFromString(strings.TrimSpace(out.Mid))
	if err != nil {
		return decimal.Zero, fmt.Errorf("解析中间价 %q 失败: %w", out.Mid, err)
	}
	return mid, nil
}

// GetTickSize 获取 token 的价格精度（带缓存）
func (c *Client) GetTickSize(ctx context.Context, tokenID string) (types.TickSize, error) {
	if ts, ok := c.tickSizes.Get(tokenID); ok {
		return ts, nil
	}
	if err := c.rateLimiter.Wait(ctx, ratelimit.KeyMarketGet); err != nil {
		return "", fmt.Errorf("速率限制等待失败: %w", err)
	}

	var out types.TickSizeResponse
	_, err := c.httpClient.DoRequest(ctx, http.MethodGet, EndpointGetTickSize, &sdkhttp.RequestOptions{
		Params: map[string]any{"token_id": tokenID},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("获取 tick size 失败: %w", err)
	}
	ts := types.TickSize(out.MinimumTickSize.String())
	if _, ok := RoundingConfig[ts]; !ok {
		return "", fmt.Errorf("不支持的 tick size: %s", ts)
	}
	c.tickSizes.Set(tokenID, ts, 0)
	return ts, nil
}

// GetNegRisk 查询 token 所属市场是否为 neg-risk 市场（带缓存）
func (c *Client) GetNegRisk(ctx context.Context, tokenID string) (bool, error) {
	if v, ok := c.negRisk.Get(tokenID); ok {
		return v, nil
	}
	if err := c.rateLimiter.Wait(ctx, ratelimit.KeyMarketGet); err != nil {
		return false, fmt.Errorf("速率限制等待失败: %w", err)
	}

	var out types.NegRiskResponse
	_, err := c.httpClient.DoRequest(ctx, http.MethodGet, EndpointGetNegRisk, &sdkhttp.RequestOptions{
		Params: map[string]any{"token_id": tokenID},
	}, &out)
	if err != nil {
		return false, fmt.Errorf("获取 neg risk 失败: %w", err)
	}
	c.negRisk.Set(tokenID, out.NegRisk, 0)
	return out.NegRisk, nil
}

// orderOptions 解析下单所需的市场参数，查询失败时回退到默认值
func (c *Client) orderOptions(ctx context.Context, tokenID string) *types.CreateOrderOptions {
	opts := &types.CreateOrderOptions{TickSize: types.DefaultTickSize}
	if ts, err := c.GetTickSize(ctx, tokenID); err == nil {
		opts.TickSize = ts
	} else {
		logger.Warnf("tick size 查询失败，使用默认 %s: %v", types.DefaultTickSize, err)
	}
	if nr, err := c.GetNegRisk(ctx, tokenID); err == nil {
		opts.NegRisk = nr
	} else {
		logger.Warnf("neg risk 查询失败，按普通市场处理: %v", err)
	}
	return opts
}
