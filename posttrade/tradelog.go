package posttrade

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Fill 一笔成交（或探测到的疑似成交）。
type Fill struct {
	TS          time.Time
	Symbol      string
	Side        string
	Price       float64
	Qty         float64
	Fee         float64
	OrderID     string
	RealizedPnl float64
}

// TradeLog 追加式成交日志，一行一笔，文件创建时写一次表头。
// 只有引擎主循环写入，无并发写者。
type TradeLog struct {
	path string
}

var header = []string{"ts", "symbol", "side", "price", "qty", "fee", "orderId", "realizedPnl"}

// NewTradeLog 在 dir 下准备 trades.csv；文件不存在时创建并写表头。
func NewTradeLog(dir string) (*TradeLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, "trades.csv")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("create trade log: %w", err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := f.Close(); err != nil {
			return nil, err
		}
	}
	return &TradeLog{path: path}, nil
}

// Path 返回日志文件路径。
func (t *TradeLog) Path() string { return t.path }

// Append 追加一行成交记录。
func (t *TradeLog) Append(fill Fill) error {
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	row := []string{
		strconv.FormatInt(fill.TS.UnixMilli(), 10),
		fill.Symbol,
		fill.Side,
		strconv.FormatFloat(fill.Price, 'f', -1, 64),
		strconv.FormatFloat(fill.Qty, 'f', -1, 64),
		strconv.FormatFloat(fill.Fee, 'f', -1, 64),
		fill.OrderID,
		strconv.FormatFloat(fill.RealizedPnl, 'f', -1, 64),
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
