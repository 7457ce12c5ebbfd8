package client

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/betbot/polycopy/clob/signing"
	"github.com/betbot/polycopy/clob/types"
	"github.com/betbot/polycopy/pkg/cache"
	"github.com/betbot/polycopy/pkg/ratelimit"
	sdkhttp "github.com/betbot/polycopy/pkg/sdk/http"
	"github.com/polymarket/go-order-utils/pkg/builder"
)

// DefaultHost CLOB 主网地址
const DefaultHost = "https://clob.polymarket.com"

// 市场元数据（tick size / neg risk）缓存时长
const marketMetaTTL = 5 * time.Minute

// Config CLOB 客户端配置
type Config struct {
	Host       string
	ChainID    types.Chain
	PrivateKey string // 十六进制私钥，可带 0x
	Creds      types.ApiKeyCreds
	Timeout    time.Duration

	// RateLimiter 可在多个客户端间共享；为空时新建
	RateLimiter *ratelimit.RateLimitManager
}

// Client CLOB 客户端
type Client struct {
	host        string
	chainID     types.Chain
	privateKey  *ecdsa.PrivateKey
	address     string
	creds       *types.ApiKeyCreds
	httpClient  *sdkhttp.Client
	rateLimiter *ratelimit.RateLimitManager

	orderBuilder *builder.ExchangeOrderBuilderImpl

	tickSizes *cache.InMemoryCache[string, types.TickSize]
	negRisk   *cache.InMemoryCache[string, bool]
}

// NewClient 创建新的 CLOB 客户端
// 私钥无效或 L2 凭证不完整时返回错误
func NewClient(cfg Config) (*Client, error) {
	pk, err := signing.PrivateKeyFromHex(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	creds := cfg.Creds
	if !creds.Complete() {
		return nil, fmt.Errorf("L2 认证不可用: API 凭证未配置完整")
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = types.ChainPolygon
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	rl := cfg.RateLimiter
	if rl == nil {
		rl = ratelimit.NewRateLimitManager()
	}

	return &Client{
		host:        strings.TrimSuffix(cfg.Host, "/"),
		chainID:     cfg.ChainID,
		privateKey:  pk,
		address:     signing.GetAddressFromPrivateKey(pk).Hex(),
		creds:       &creds,
		httpClient:  sdkhttp.NewClient(cfg.Host, sdkhttp.Options{Timeout: cfg.Timeout, UserAgent: "polycopy-clob"}),
		rateLimiter: rl,
		// nil 使用库自带的 salt 生成器
		orderBuilder: builder.NewExchangeOrderBuilderImpl(cfg.ChainID.BigInt(), nil),
		tickSizes:    cache.NewInMemoryCache[string, types.TickSize](marketMetaTTL, 0),
		negRisk:      cache.NewInMemoryCache[string, bool](marketMetaTTL, 0),
	}, nil
}

// Address 下单钱包地址（由私钥推导）
func (c *Client) Address() string {
	return c.address
}

// GetHost 获取主机地址
func (c *Client) GetHost() string {
	return c.host
}

// GetChainID 获取链 ID
func (c *Client) GetChainID() types.Chain {
	return c.chainID
}
