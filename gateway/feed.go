package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PriceFeed 订阅 mark price 推送，在两次 REST 轮询之间补充行情。
// 引擎不依赖它：断线或未启用时 REST 轮询仍是事实来源。
type PriceFeed struct {
	Endpoint string // e.g. wss://data-api.hibachi.xyz/ws/market
	Symbol   string
	Dialer   *websocket.Dialer
	Log      *zap.Logger

	OnConnect    func()
	OnDisconnect func(err error)

	mu      sync.RWMutex
	last    float64
	lastSet time.Time
}

func NewPriceFeed(endpoint, symbol string, log *zap.Logger) *PriceFeed {
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceFeed{
		Endpoint: endpoint,
		Symbol:   symbol,
		Dialer:   websocket.DefaultDialer,
		Log:      log,
	}
}

type feedMsgWire struct {
	Symbol         string  `json:"symbol"`
	MarkPrice      flexNum `json:"markPrice"`
	MarkPriceSnake flexNum `json:"mark_price"`
	Price          flexNum `json:"price"`
}

// Latest 返回最近一次推送的价格；stale 超过 10 秒视为无效。
func (f *PriceFeed) Latest() (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.last <= 0 || time.Since(f.lastSet) > 10*time.Second {
		return 0, false
	}
	return f.last, true
}

// Run 连接并持续读取，断线后退避重连，直到 ctx 取消。
func (f *PriceFeed) Run(ctx context.Context) {
	backoff := time.Second
	for {
		err := f.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if f.OnDisconnect != nil {
			f.OnDisconnect(err)
		}
		f.Log.Warn("price feed disconnected", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (f *PriceFeed) runOnce(ctx context.Context) error {
	conn, _, err := f.Dialer.DialContext(ctx, f.Endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]any{
		"method": "subscribe",
		"parameters": map[string]any{
			"subscriptions": []map[string]string{
				{"symbol": f.Symbol, "topic": "mark_price"},
			},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if f.OnConnect != nil {
		f.OnConnect()
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg feedMsgWire
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // 心跳或未知消息
		}
		price := firstNonZero(msg.MarkPrice, msg.MarkPriceSnake, msg.Price)
		if price <= 0 {
			continue
		}
		f.mu.Lock()
		f.last = price
		f.lastSet = time.Now()
		f.mu.Unlock()
	}
}
