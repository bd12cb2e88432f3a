package gateway

import (
	"strconv"
	"strings"
)

// 标准化后的返回类型。底层 API 的 tuple/record 差异与 camel/snake
// 字段命名都在本包内消化，核心只看到这些结构。

// AccountInfo 账户快照。
type AccountInfo struct {
	Balance float64
}

// Position 某合约的净持仓。
type Position struct {
	Quantity  float64 // 带符号
	MarkPrice float64
}

// Ticker 最新行情。
type Ticker struct {
	LastPrice   float64
	MarkPrice   float64
	FundingRate float64
}

// OHLC 历史 K 线，oldest first。
type OHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// OpenOrder 交易所侧的未成交挂单。
type OpenOrder struct {
	OrderID  string
	ClientID string
	Side     string
	Price    float64
	Qty      float64
}

// flexNum decodes JSON numbers that arrive either quoted or bare.
type flexNum float64

func (f *flexNum) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexNum(v)
	return nil
}

// firstNonZero picks the populated variant of an alternately-named field.
func firstNonZero(vals ...flexNum) float64 {
	for _, v := range vals {
		if v != 0 {
			return float64(v)
		}
	}
	return 0
}

// firstNonEmpty picks the populated variant of an alternately-named string.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
