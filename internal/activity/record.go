package activity

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Activity types that represent an executed trade.
const (
	TypeTrade       = "TRADE"
	TypeOrderFilled = "OrderFilled"
)

// Amount is a USDC value the Data API sends either as a JSON number or a string.
// Missing, null or unparsable input leaves Valid false instead of failing the batch.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if raw == "" {
		return nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	a.Value, a.Valid = v, true
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// Record is one entry of a wallet's activity feed.
type Record struct {
	TransactionHash string `json:"transactionHash"`
	Side            string `json:"side"`
	Asset           string `json:"asset"`
	Title           string `json:"title"`
	Outcome         string `json:"outcome"`
	Type            string `json:"type"`
	UsdcSize        Amount `json:"usdcSize"`
	Price           Amount `json:"price"`
	Timestamp       int64  `json:"timestamp"`
	ProxyWallet     string `json:"proxyWallet"`
	ConditionID     string `json:"conditionId"`
	Slug            string `json:"slug"`
}

// IsTrade reports whether the record is an executed trade worth replicating.
func (r Record) IsTrade() bool {
	return strings.EqualFold(r.Type, TypeTrade) || r.Type == TypeOrderFilled
}
