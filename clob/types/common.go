package types

import (
	"math/big"
	"strings"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide 解析成交方向（大小写不敏感），未知方向返回 false
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	default:
		return "", false
	}
}

// OrderType 订单类型
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good Till Cancel - 一直有效直到取消
	OrderTypeFOK OrderType = "FOK" // Fill or Kill - 全部成交或全部取消
	OrderTypeGTD OrderType = "GTD" // Good Till Date - 指定日期前有效
	OrderTypeFAK OrderType = "FAK" // Fill and Kill - 部分成交，剩余取消
)

// Chain 区块链网络
type Chain int64

const (
	ChainPolygon Chain = 137
	ChainAmoy    Chain = 80002
)

// BigInt 转为 *big.Int（EIP-712 domain 使用）
func (c Chain) BigInt() *big.Int {
	return big.NewInt(int64(c))
}

// SignatureType 签名类型
type SignatureType int

const (
	SignatureTypeEOA        SignatureType = 0 // EOA - 普通钱包（MetaMask / 私钥直签）
	SignatureTypeMagic      SignatureType = 1 // POLY_PROXY - Magic Link 登录
	SignatureTypeGnosisSafe SignatureType = 2 // GNOSIS_SAFE - 代理钱包
)

// TickSize 价格精度
type TickSize string

const (
	TickSize01    TickSize = "0.1"
	TickSize001   TickSize = "0.01"
	TickSize0001  TickSize = "0.001"
	TickSize00001 TickSize = "0.0001"
)

// DefaultTickSize 查询失败时使用的精度
const DefaultTickSize = TickSize001

// ApiKeyCreds API 密钥凭证
type ApiKeyCreds struct {
	Key        string
	Secret     string
	Passphrase string
}

// Complete L2 认证需要三项齐全
func (c *ApiKeyCreds) Complete() bool {
	return c != nil && c.Key != "" && c.Secret != "" && c.Passphrase != ""
}
