package posttrade

import (
	"encoding/csv"
	"os"
	"testing"
	"time"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestTradeLogHeaderAndAppend(t *testing.T) {
	dir := t.TempDir()
	tl, err := NewTradeLog(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fill := Fill{
		TS:      ts,
		Symbol:  "BTC/USDT-P",
		Side:    "BUY",
		Price:   49875,
		Qty:     0.002,
		OrderID: "oid-1",
	}
	if err := tl.Append(fill); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows := readAll(t, tl.Path())
	if len(rows) != 2 {
		t.Fatalf("rows: got %d", len(rows))
	}
	want := []string{"ts", "symbol", "side", "price", "qty", "fee", "orderId", "realizedPnl"}
	for i, col := range want {
		if rows[0][i] != col {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][1] != "BTC/USDT-P" || rows[1][2] != "BUY" || rows[1][6] != "oid-1" {
		t.Fatalf("row: %v", rows[1])
	}
}

func TestTradeLogHeaderWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	tl, err := NewTradeLog(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := tl.Append(Fill{TS: time.Now(), Symbol: "X", Side: "SELL"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// 重启后复用既有文件，不重复写表头
	tl2, err := NewTradeLog(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := tl2.Append(Fill{TS: time.Now(), Symbol: "X", Side: "BUY"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows := readAll(t, tl2.Path())
	if len(rows) != 3 {
		t.Fatalf("rows: got %d", len(rows))
	}
	if rows[1][0] == "ts" || rows[2][0] == "ts" {
		t.Fatal("header duplicated")
	}
}
