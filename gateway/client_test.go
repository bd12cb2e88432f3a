package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hibachi-mm-go/order"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		APIURL:     srv.URL,
		DataAPIURL: srv.URL,
		APIKey:     "test-key",
		AccountID:  "acc-1",
		PrivateKey: "secret",
		HTTPClient: srv.Client(),
	}
}

func TestGetContractSpecCamelCase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"futureContracts":[
			{"symbol":"BTC/USDT-P","tickSize":"0.5","stepSize":"0.001","minOrderSize":"0.001","minNotional":"10"}
		]}`))
	}))
	defer srv.Close()

	spec, err := newTestClient(srv).GetContractSpec("BTC/USDT-P")
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if spec.TickSize != 0.5 || spec.StepSize != 0.001 || spec.MinQty != 0.001 || spec.MinNotional != 10 {
		t.Fatalf("spec: %+v", spec)
	}
	if spec.ContractSize != 1 {
		t.Fatalf("contract size default: %v", spec.ContractSize)
	}
}

func TestGetContractSpecSnakeCase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"future_contracts":[
			{"symbol":"ETH/USDT-P","tick_size":0.05,"step_size":0.01}
		]}`))
	}))
	defer srv.Close()

	spec, err := newTestClient(srv).GetContractSpec("ETH/USDT-P")
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if spec.TickSize != 0.05 || spec.StepSize != 0.01 {
		t.Fatalf("snake_case fields not picked up: %+v", spec)
	}
}

func TestGetContractSpecNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"futureContracts":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetContractSpec("NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetLeverageUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	}))
	defer srv.Close()

	err := newTestClient(srv).SetLeverage("BTC/USDT-P", 1)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestGetMidPricePrefersPricesThenSticks(t *testing.T) {
	pricesCalls, bookCalls := 0, 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/market/data/prices":
			pricesCalls++
			w.Write([]byte(`{"markPrice":"50000"}`))
		case "/market/data/orderbook":
			bookCalls++
			w.Write([]byte(`{"bids":[{"price":"49990"}],"asks":[{"price":"50010"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	for i := 0; i < 3; i++ {
		mid, err := c.GetMidPrice("BTC/USDT-P")
		if err != nil {
			t.Fatalf("mid: %v", err)
		}
		if mid != 50000 {
			t.Fatalf("mid: got %v", mid)
		}
	}
	if pricesCalls != 3 || bookCalls != 0 {
		t.Fatalf("source resolution: prices=%d book=%d", pricesCalls, bookCalls)
	}
}

func TestGetMidPriceFallsBackToOrderbook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/market/data/prices":
			w.Write([]byte(`{}`)) // 行情源没数据
		case "/market/data/orderbook":
			w.Write([]byte(`{"bids":[{"price":"49990"}],"asks":[{"price":"50010"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	mid, err := c.GetMidPrice("BTC/USDT-P")
	if err != nil {
		t.Fatalf("mid: %v", err)
	}
	if mid != 50000 {
		t.Fatalf("mid from book: got %v", mid)
	}

	// 来源固定后继续走 orderbook
	mid, err = c.GetMidPrice("BTC/USDT-P")
	if err != nil || mid != 50000 {
		t.Fatalf("resolved source: mid=%v err=%v", mid, err)
	}
}

func TestGetPositionNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[{"symbol":"ETH/USDT-P","size":"1.5"}]}`))
	}))
	defer srv.Close()

	pos, err := newTestClient(srv).GetPosition("BTC/USDT-P")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos != nil {
		t.Fatalf("expected nil position, got %+v", pos)
	}
}

func TestGetPositionSigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[{"symbol":"BTC/USDT-P","size":"-0.25","mark_price":"50100"}]}`))
	}))
	defer srv.Close()

	pos, err := newTestClient(srv).GetPosition("BTC/USDT-P")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos == nil || pos.Quantity != -0.25 || pos.MarkPrice != 50100 {
		t.Fatalf("position: %+v", pos)
	}
}

func TestPlaceLimitOrderSignsRequest(t *testing.T) {
	var gotAuth, gotNonce, gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotNonce = r.Header.Get("Hibachi-Nonce")
		gotSig = r.Header.Get("Hibachi-Signature")
		w.Write([]byte(`{"orderId":"12345"}`))
	}))
	defer srv.Close()

	oid, err := newTestClient(srv).PlaceLimitOrder("BTC/USDT-P", order.SideBuy, 49875, 0.002, "GTC", true, "mm_1_1000")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if oid != "12345" {
		t.Fatalf("order id: got %s", oid)
	}
	if gotAuth != "test-key" || gotNonce == "" || gotSig == "" {
		t.Fatalf("auth headers: %q %q %q", gotAuth, gotNonce, gotSig)
	}
}

func TestPlaceLimitOrderEmptyAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).PlaceLimitOrder("X", order.SideSell, 1, 1, "GTC", false, "cid"); err == nil {
		t.Fatal("empty ack must be an error")
	}
}

func TestCancelOrderNotFoundMapsToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"order not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestClient(srv).CancelOrder("BTC/USDT-P", "oid-1")
	if !errors.Is(err, order.ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder, got %v", err)
	}
}

func TestCancelOrderRejectionPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := newTestClient(srv).CancelOrder("BTC/USDT-P", "oid-1")
	if err == nil || errors.Is(err, order.ErrUnknownOrder) {
		t.Fatalf("rejection must surface as-is: %v", err)
	}
}

func TestTransportFailureIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 立刻关掉，触发连接错误

	c := newTestClient(srv)
	c.HTTPClient = NewDefaultHTTPClient()
	_, err := c.GetAccountInfo()
	if !IsConnectivity(err) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
}

func TestGetHistoricalBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("interval"); got != "5m" {
			t.Errorf("interval: got %q", got)
		}
		w.Write([]byte(`{"klines":[
			{"open":"100","high":"105","low":"95","close":"101"},
			{"open":"101","high":"108","low":"98","close":"104"}
		]}`))
	}))
	defer srv.Close()

	bars, err := newTestClient(srv).GetHistoricalBars("BTC/USDT-P", "5m", 24)
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(bars) != 2 || bars[0].High != 105 || bars[1].Close != 104 {
		t.Fatalf("bars: %+v", bars)
	}
}
