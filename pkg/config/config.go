package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultListenAddr       = ":5000"
	DefaultDataAPIURL       = "https://data-api.polymarket.com"
	DefaultClobHost         = "https://clob.polymarket.com"
	DefaultChainID          = 137
	DefaultAmountPerTrade   = 10.0
	DefaultPollInterval     = 2 * time.Second
	DefaultErrorBackoff     = 5 * time.Second
	DefaultFeedTimeout      = 10 * time.Second
	DefaultClobTimeout      = 15 * time.Second
	DefaultPollLimit        = 10
	DefaultInitialSyncLimit = 50
	DefaultLedgerCap        = 100
	DefaultLogBufferCap     = 200
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Credentials 交易所 L2 API 凭证（作为租户未提供时的默认值）
type Credentials struct {
	APIKey        string
	APISecret     string
	APIPassphrase string
}

// Config 应用配置
type Config struct {
	ListenAddr    string
	MetricsListen string // 为空则不启动 expvar/pprof 服务
	SecretsDB     string // 可选的 badger 密钥库路径

	Log LogConfig

	DataAPIURL  string
	ClobHost    string
	ChainID     int64
	ClobTimeout time.Duration // 下单与盘口请求的超时，独立于 FeedTimeout

	Credentials    Credentials
	AmountPerTrade float64

	PollInterval     time.Duration
	ErrorBackoff     time.Duration
	FeedTimeout      time.Duration
	PollLimit        int
	InitialSyncLimit int
	LedgerCap        int
	LogBufferCap     int
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析）
type ConfigFile struct {
	ListenAddr    string `yaml:"listen_addr" json:"listen_addr"`
	MetricsListen string `yaml:"metrics_listen" json:"metrics_listen"`
	SecretsDB     string `yaml:"secrets_db" json:"secrets_db"`
	Log           struct {
		Level      string `yaml:"level" json:"level"`
		File       string `yaml:"file" json:"file"`
		MaxSize    int    `yaml:"max_size" json:"max_size"`
		MaxBackups int    `yaml:"max_backups" json:"max_backups"`
		MaxAge     int    `yaml:"max_age" json:"max_age"`
		Compress   bool   `yaml:"compress" json:"compress"`
	} `yaml:"log" json:"log"`
	DataAPIURL string `yaml:"data_api_url" json:"data_api_url"`
	Clob       struct {
		Host          string `yaml:"host" json:"host"`
		ChainID       int64  `yaml:"chain_id" json:"chain_id"`
		APIKey        string `yaml:"api_key" json:"api_key"`
		APISecret     string `yaml:"api_secret" json:"api_secret"`
		APIPassphrase string `yaml:"api_passphrase" json:"api_passphrase"`
		Timeout       string `yaml:"timeout" json:"timeout"`
	} `yaml:"clob" json:"clob"`
	Engine struct {
		AmountPerTrade   float64 `yaml:"amount_per_trade" json:"amount_per_trade"`
		PollInterval     string  `yaml:"poll_interval" json:"poll_interval"`
		ErrorBackoff     string  `yaml:"error_backoff" json:"error_backoff"`
		FeedTimeout      string  `yaml:"feed_timeout" json:"feed_timeout"`
		PollLimit        int     `yaml:"poll_limit" json:"poll_limit"`
		InitialSyncLimit int     `yaml:"initial_sync_limit" json:"initial_sync_limit"`
		LedgerCap        int     `yaml:"ledger_cap" json:"ledger_cap"`
		LogBufferCap     int     `yaml:"log_buffer_cap" json:"log_buffer_cap"`
	} `yaml:"engine" json:"engine"`
}

// LookupFunc 按 key 读取外部配置源（环境变量、密钥库等），不存在返回空字符串
type LookupFunc func(key string) string

// Defaults 返回默认配置
func Defaults() *Config {
	return &Config{
		ListenAddr:       DefaultListenAddr,
		Log:              LogConfig{Level: "info", MaxSize: 100, MaxBackups: 3, MaxAge: 7, Compress: true},
		DataAPIURL:       DefaultDataAPIURL,
		ClobHost:         DefaultClobHost,
		ChainID:          DefaultChainID,
		ClobTimeout:      DefaultClobTimeout,
		AmountPerTrade:   DefaultAmountPerTrade,
		PollInterval:     DefaultPollInterval,
		ErrorBackoff:     DefaultErrorBackoff,
		FeedTimeout:      DefaultFeedTimeout,
		PollLimit:        DefaultPollLimit,
		InitialSyncLimit: DefaultInitialSyncLimit,
		LedgerCap:        DefaultLedgerCap,
		LogBufferCap:     DefaultLogBufferCap,
	}
}

// Load 加载配置
// 优先级：环境变量（lookup）> 配置文件 > 默认值；lookup 为 nil 时使用 os.Getenv
func Load(filePath string, lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.Getenv
	}

	cfg := Defaults()
	if filePath != "" {
		cf, err := loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
		if err := cfg.applyFile(cf); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}

	return &configFile, nil
}

func (c *Config) applyFile(cf *ConfigFile) error {
	c.ListenAddr = getValueFromSources(cf.ListenAddr, c.ListenAddr)
	c.MetricsListen = getValueFromSources(cf.MetricsListen, c.MetricsListen)
	c.SecretsDB = getValueFromSources(cf.SecretsDB, c.SecretsDB)

	c.Log.Level = getValueFromSources(cf.Log.Level, c.Log.Level)
	c.Log.File = getValueFromSources(cf.Log.File, c.Log.File)
	c.Log.MaxSize = getIntFromSources(cf.Log.MaxSize, c.Log.MaxSize)
	c.Log.MaxBackups = getIntFromSources(cf.Log.MaxBackups, c.Log.MaxBackups)
	c.Log.MaxAge = getIntFromSources(cf.Log.MaxAge, c.Log.MaxAge)
	c.Log.Compress = c.Log.Compress || cf.Log.Compress

	c.DataAPIURL = getValueFromSources(cf.DataAPIURL, c.DataAPIURL)
	c.ClobHost = getValueFromSources(cf.Clob.Host, c.ClobHost)
	if cf.Clob.ChainID > 0 {
		c.ChainID = cf.Clob.ChainID
	}
	c.Credentials.APIKey = getValueFromSources(cf.Clob.APIKey, c.Credentials.APIKey)
	c.Credentials.APISecret = getValueFromSources(cf.Clob.APISecret, c.Credentials.APISecret)
	c.Credentials.APIPassphrase = getValueFromSources(cf.Clob.APIPassphrase, c.Credentials.APIPassphrase)

	if cf.Engine.AmountPerTrade > 0 {
		c.AmountPerTrade = cf.Engine.AmountPerTrade
	}
	c.PollLimit = getIntFromSources(cf.Engine.PollLimit, c.PollLimit)
	c.InitialSyncLimit = getIntFromSources(cf.Engine.InitialSyncLimit, c.InitialSyncLimit)
	c.LedgerCap = getIntFromSources(cf.Engine.LedgerCap, c.LedgerCap)
	c.LogBufferCap = getIntFromSources(cf.Engine.LogBufferCap, c.LogBufferCap)

	var err error
	if c.PollInterval, err = getDurationFromSources(cf.Engine.PollInterval, c.PollInterval); err != nil {
		return fmt.Errorf("engine.poll_interval: %w", err)
	}
	if c.ErrorBackoff, err = getDurationFromSources(cf.Engine.ErrorBackoff, c.ErrorBackoff); err != nil {
		return fmt.Errorf("engine.error_backoff: %w", err)
	}
	if c.FeedTimeout, err = getDurationFromSources(cf.Engine.FeedTimeout, c.FeedTimeout); err != nil {
		return fmt.Errorf("engine.feed_timeout: %w", err)
	}
	if c.ClobTimeout, err = getDurationFromSources(cf.Clob.Timeout, c.ClobTimeout); err != nil {
		return fmt.Errorf("clob.timeout: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) {
	c.ListenAddr = getEnv(lookup, c.ListenAddr, "POLYCOPY_LISTEN")
	c.MetricsListen = getEnv(lookup, c.MetricsListen, "METRICS_LISTEN")
	c.SecretsDB = getEnv(lookup, c.SecretsDB, "SECRETS_DB")

	c.Log.Level = getEnv(lookup, c.Log.Level, "LOG_LEVEL")
	c.Log.File = getEnv(lookup, c.Log.File, "LOG_FILE")

	c.DataAPIURL = getEnv(lookup, c.DataAPIURL, "POLYMARKET_DATA_API_URL")
	c.ClobHost = getEnv(lookup, c.ClobHost, "CLOB_HOST", "HOST")
	c.ChainID = int64(parseIntEnv(lookup, "CHAIN_ID", int(c.ChainID)))
	c.ClobTimeout = parseDurationEnv(lookup, "CLOB_TIMEOUT", c.ClobTimeout)

	// 兼容两套命名：CLOB_ 前缀与小写命名
	c.Credentials.APIKey = getEnv(lookup, c.Credentials.APIKey, "CLOB_API_KEY", "api_key")
	c.Credentials.APISecret = getEnv(lookup, c.Credentials.APISecret, "CLOB_API_SECRET", "api_secret")
	c.Credentials.APIPassphrase = getEnv(lookup, c.Credentials.APIPassphrase, "CLOB_API_PASSPHRASE", "CLOB_PASS_PHRASE", "api_passphrase")

	c.AmountPerTrade = parseFloatEnv(lookup, "amount_per_trade", c.AmountPerTrade)
	c.PollInterval = parseDurationEnv(lookup, "POLL_INTERVAL", c.PollInterval)
	c.ErrorBackoff = parseDurationEnv(lookup, "ERROR_BACKOFF", c.ErrorBackoff)
	c.FeedTimeout = parseDurationEnv(lookup, "FEED_TIMEOUT", c.FeedTimeout)
	c.PollLimit = parseIntEnv(lookup, "POLL_LIMIT", c.PollLimit)
	c.InitialSyncLimit = parseIntEnv(lookup, "INITIAL_SYNC_LIMIT", c.InitialSyncLimit)
	c.LedgerCap = parseIntEnv(lookup, "LEDGER_CAP", c.LedgerCap)
	c.LogBufferCap = parseIntEnv(lookup, "LOG_BUFFER_CAP", c.LogBufferCap)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.ClobHost == "" {
		return fmt.Errorf("CLOB_HOST 未配置")
	}
	if c.DataAPIURL == "" {
		return fmt.Errorf("POLYMARKET_DATA_API_URL 未配置")
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("CHAIN_ID 必须大于 0")
	}
	if c.AmountPerTrade <= 0 {
		return fmt.Errorf("amount_per_trade 必须大于 0")
	}
	if c.PollInterval <= 0 || c.ErrorBackoff <= 0 || c.FeedTimeout <= 0 {
		return fmt.Errorf("POLL_INTERVAL / ERROR_BACKOFF / FEED_TIMEOUT 必须大于 0")
	}
	if c.ClobTimeout <= 0 {
		return fmt.Errorf("CLOB_TIMEOUT 必须大于 0")
	}
	if c.PollLimit <= 0 || c.InitialSyncLimit <= 0 {
		return fmt.Errorf("POLL_LIMIT / INITIAL_SYNC_LIMIT 必须大于 0")
	}
	if c.LedgerCap < c.PollLimit {
		return fmt.Errorf("LEDGER_CAP (%d) 不能小于 POLL_LIMIT (%d)", c.LedgerCap, c.PollLimit)
	}
	if c.LogBufferCap <= 0 {
		return fmt.Errorf("LOG_BUFFER_CAP 必须大于 0")
	}
	return nil
}

// getValueFromSources 配置文件非空时覆盖当前值
func getValueFromSources(configValue, current string) string {
	if strings.TrimSpace(configValue) != "" {
		return strings.TrimSpace(configValue)
	}
	return current
}

func getIntFromSources(configValue, current int) int {
	if configValue > 0 {
		return configValue
	}
	return current
}

func getDurationFromSources(configValue string, current time.Duration) (time.Duration, error) {
	if strings.TrimSpace(configValue) == "" {
		return current, nil
	}
	return parseDuration(configValue)
}

// getEnv 按顺序读取多个 key，返回第一个非空值，否则返回当前值
func getEnv(lookup LookupFunc, current string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(lookup(k)); v != "" {
			return v
		}
	}
	return current
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(lookup LookupFunc, key string, defaultValue int) int {
	value := strings.TrimSpace(lookup(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseFloatEnv 解析浮点数环境变量
func parseFloatEnv(lookup LookupFunc, key string, defaultValue float64) float64 {
	value := strings.TrimSpace(lookup(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseDurationEnv 解析时长环境变量，支持 "2s" 或纯数字（秒）
func parseDurationEnv(lookup LookupFunc, key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(lookup(key))
	if value == "" {
		return defaultValue
	}
	d, err := parseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
