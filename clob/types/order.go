package types

import "github.com/shopspring/decimal"

// UserOrder 用户限价单
type UserOrder struct {
	// TokenID 条件代币资产 ID
	TokenID string

	// Price 限价
	Price decimal.Decimal

	// Size 条件代币数量（份额）
	Size decimal.Decimal

	// Side 订单方向
	Side Side
}

// SignedOrder 已签名的订单（/order 请求体中的 order 字段）
type SignedOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          Side   `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// NewOrder 新订单（包含订单类型）
type NewOrder struct {
	Order     SignedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType OrderType   `json:"orderType"`
	DeferExec bool        `json:"deferExec"`
}

// OrderResponse 订单响应
type OrderResponse struct {
	Success           bool     `json:"success"`
	ErrorMsg          string   `json:"errorMsg"`
	OrderID           string   `json:"orderID"`
	TransactionHashes []string `json:"transactionsHashes"`
	Status            string   `json:"status"`
	TakingAmount      string   `json:"takingAmount"`
	MakingAmount      string   `json:"makingAmount"`
}

// CreateOrderOptions 创建订单选项
type CreateOrderOptions struct {
	TickSize TickSize
	NegRisk  bool
}

// MidpointResponse /midpoint 响应
type MidpointResponse struct {
	Mid string `json:"mid"`
}

// TickSizeResponse /tick-size 响应
type TickSizeResponse struct {
	MinimumTickSize decimal.Decimal `json:"minimum_tick_size"`
}

// NegRiskResponse /neg-risk 响应
type NegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}
