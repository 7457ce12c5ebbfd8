package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/betbot/polycopy/clob/signing"
	"github.com/betbot/polycopy/clob/types"
	"github.com/betbot/polycopy/pkg/ratelimit"
	sdkhttp "github.com/betbot/polycopy/pkg/sdk/http"
	"github.com/shopspring/decimal"
)

// OrderRejectedError 交易所拒单（HTTP 2xx 但 success=false）
type OrderRejectedError struct {
	Response types.OrderResponse
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("订单被拒绝: %s (status=%s)", e.Response.ErrorMsg, e.Response.Status)
}

// PostOrder 提交订单
func (c *Client) PostOrder(ctx context.Context, order *types.SignedOrder, orderType types.OrderType, deferExec bool) (*types.OrderResponse, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.KeyOrderPost); err != nil {
		return nil, fmt.Errorf("速率限制等待失败: %w", err)
	}

	// 请求体：NewOrder{order, owner(API key), orderType, deferExec}
	bodyBytes, err := json.Marshal(types.NewOrder{
		Order:     *order,
		Owner:     c.creds.Key,
		OrderType: orderType,
		DeferExec: deferExec,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化订单载荷失败: %w", err)
	}
	body := string(bodyBytes)

	// 签名与发送使用同一份 body
	headers, err := signing.CreateL2Headers(c.privateKey, c.creds, &types.L2HeaderArgs{
		Method:      http.MethodPost,
		RequestPath: EndpointPostOrder,
		Body:        &body,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 L2 认证头失败: %w", err)
	}

	var resp types.OrderResponse
	if _, err := c.httpClient.DoRequest(ctx, http.MethodPost, EndpointPostOrder, &sdkhttp.RequestOptions{
		Headers: headers.Map(),
		Data:    body,
	}, &resp); err != nil {
		return nil, fmt.Errorf("提交订单失败: %w", err)
	}
	if !resp.Success {
		return &resp, &OrderRejectedError{Response: resp}
	}
	return &resp, nil
}

// PlaceLimitOrder 下限价单（GTC），tick size / neg risk 自动查询
func (c *Client) PlaceLimitOrder(ctx context.Context, tokenID string, side types.Side, size, price decimal.Decimal) (*types.OrderResponse, error) {
	signed, err := c.CreateOrder(ctx, &types.UserOrder{
		TokenID: tokenID,
		Side:    side,
		Size:    size,
		Price:   price,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("创建订单失败: %w", err)
	}
	return c.PostOrder(ctx, signed, types.OrderTypeGTC, false)
}
