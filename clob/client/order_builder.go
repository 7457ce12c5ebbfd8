package client

import (
	"context"
	"fmt"

	"github.com/betbot/polycopy/clob/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
)

// CollateralTokenDecimals 抵押品代币精度（USDC = 6）
const CollateralTokenDecimals = 6

const zeroAddress = "0x0000000000000000000000000000000000000000"

// RoundConfig 舍入配置
type RoundConfig struct {
	Price  int32 // 价格小数位数
	Size   int32 // 数量小数位数
	Amount int32 // 金额小数位数
}

// RoundingConfig 根据 tick size 返回舍入配置
var RoundingConfig = map[types.TickSize]RoundConfig{
	types.TickSize01:    {Price: 1, Size: 2, Amount: 3},
	types.TickSize001:   {Price: 2, Size: 2, Amount: 4},
	types.TickSize0001:  {Price: 3, Size: 2, Amount: 5},
	types.TickSize00001: {Price: 4, Size: 2, Amount: 6},
}

// clampToTick 价格按精度舍入，并限制在 [tick, 1-tick]
func clampToTick(price decimal.Decimal, tick types.TickSize, rc RoundConfig) decimal.Decimal {
	t := decimal.RequireFromString(string(tick))
	p := price.Round(rc.Price)
	if p.LessThan(t) {
		return t
	}
	if hi := decimal.NewFromInt(1).Sub(t); p.GreaterThan(hi) {
		return hi
	}
	return p
}

// getOrderRawAmounts 计算订单的 maker/taker 金额（未乘精度）
// 买入：maker 支付 USDC，taker 得到份额；卖出相反
func getOrderRawAmounts(side types.Side, size, price decimal.Decimal, rc RoundConfig) (maker, taker decimal.Decimal) {
	shares := size.RoundDown(rc.Size)
	usdc := shares.Mul(price)

	if side == types.SideBuy {
		// 先向上保留 Amount+4 位消除乘法尾差，再截断到 Amount 位
		return usdc.RoundUp(rc.Amount + 4).RoundDown(rc.Amount), shares
	}
	return shares, usdc.RoundDown(rc.Amount)
}

// toBaseUnits 转换为链上最小单位（类似 ethers.js 的 parseUnits，向下取整）
func toBaseUnits(v decimal.Decimal) string {
	return v.Shift(CollateralTokenDecimals).Truncate(0).String()
}

// CreateOrder 构建并签名限价单（EOA 签名，maker = signer）
func (c *Client) CreateOrder(ctx context.Context, order *types.UserOrder, options *types.CreateOrderOptions) (*types.SignedOrder, error) {
	if options == nil {
		options = c.orderOptions(ctx, order.TokenID)
	}
	rc, ok := RoundingConfig[options.TickSize]
	if !ok {
		return nil, fmt.Errorf("不支持的 tick size: %s", options.TickSize)
	}

	price := clampToTick(order.Price, options.TickSize, rc)
	rawMaker, rawTaker := getOrderRawAmounts(order.Side, order.Size, price, rc)
	if !rawMaker.IsPositive() || !rawTaker.IsPositive() {
		return nil, fmt.Errorf("订单金额为 0: size=%s price=%s", order.Size, price)
	}

	side := model.BUY
	if order.Side == types.SideSell {
		side = model.SELL
	}
	contract := model.CTFExchange
	if options.NegRisk {
		contract = model.NegRiskCTFExchange
	}

	signed, err := c.orderBuilder.BuildSignedOrder(c.privateKey, &model.OrderData{
		Maker:         c.address,
		Signer:        c.address,
		Taker:         zeroAddress,
		TokenId:       order.TokenID,
		MakerAmount:   toBaseUnits(rawMaker),
		TakerAmount:   toBaseUnits(rawTaker),
		Side:          side,
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		SignatureType: model.EOA,
	}, contract)
	if err != nil {
		return nil, fmt.Errorf("签名订单失败: %w", err)
	}

	return &types.SignedOrder{
		Salt:          signed.Order.Salt.Int64(),
		Maker:         signed.Order.Maker.Hex(),
		Signer:        signed.Order.Signer.Hex(),
		Taker:         signed.Order.Taker.Hex(),
		TokenID:       signed.Order.TokenId.String(),
		MakerAmount:   signed.Order.MakerAmount.String(),
		TakerAmount:   signed.Order.TakerAmount.String(),
		Expiration:    signed.Order.Expiration.String(),
		Nonce:         signed.Order.Nonce.String(),
		FeeRateBps:    signed.Order.FeeRateBps.String(),
		Side:          order.Side,
		SignatureType: int(signed.Order.SignatureType.Int64()),
		Signature:     hexutil.Encode(signed.Signature),
	}, nil
}
