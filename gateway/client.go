package gateway

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hibachi-mm-go/order"
)

// Client 是 Hibachi REST 的标准化适配器。HTTPClient 可注入 httptest。
// 字段命名差异（camel/snake）、mid 价来源（prices vs orderbook）等
// 能力探测只在 bootstrap 阶段解析一次，之后走固定路径。
type Client struct {
	APIURL     string // 交易接口
	DataAPIURL string // 行情接口
	APIKey     string
	AccountID  string
	PrivateKey string
	HTTPClient *http.Client

	// 由 GetContractSpec 填充，用于下单报文的精度格式化
	pricePrec int
	qtyPrec   int

	// mid 价来源，首次成功后固定
	midResolved bool
	midFromBook bool
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// ---- wire structs --------------------------------------------------------

type contractWire struct {
	Symbol          string  `json:"symbol"`
	TickSize        flexNum `json:"tickSize"`
	TickSizeSnake   flexNum `json:"tick_size"`
	StepSize        flexNum `json:"stepSize"`
	StepSizeSnake   flexNum `json:"step_size"`
	MinOrderSize    flexNum `json:"minOrderSize"`
	MinOrderSnake   flexNum `json:"min_order_size"`
	MinNotional     flexNum `json:"minNotional"`
	MinNotionalSnak flexNum `json:"min_notional"`
	ContractSize    flexNum `json:"contractSize"`
	ContractSnake   flexNum `json:"contract_size"`
}

type exchangeInfoWire struct {
	FutureContracts []contractWire `json:"futureContracts"`
	ContractsSnake  []contractWire `json:"future_contracts"`
	Contracts       []contractWire `json:"contracts"`
}

type pricesWire struct {
	MarkPrice        flexNum `json:"markPrice"`
	MarkPriceSnake   flexNum `json:"mark_price"`
	LastPrice        flexNum `json:"lastPrice"`
	LastPriceSnake   flexNum `json:"last_price"`
	FundingRate      flexNum `json:"fundingRate"`
	FundingRateSnake flexNum `json:"funding_rate"`
}

type bookLevelWire struct {
	Price flexNum `json:"price"`
}

type orderbookWire struct {
	Bids []bookLevelWire `json:"bids"`
	Asks []bookLevelWire `json:"asks"`
}

type klineWire struct {
	Open  flexNum `json:"open"`
	High  flexNum `json:"high"`
	Low   flexNum `json:"low"`
	Close flexNum `json:"close"`
}

type klinesWire struct {
	Klines []klineWire `json:"klines"`
}

type accountWire struct {
	Balance flexNum `json:"balance"`
}

type positionWire struct {
	Symbol         string  `json:"symbol"`
	Size           flexNum `json:"size"`
	MarkPrice      flexNum `json:"markPrice"`
	MarkPriceSnake flexNum `json:"mark_price"`
}

type positionsWire struct {
	Positions []positionWire `json:"positions"`
}

type orderAckWire struct {
	OrderID      string `json:"orderId"`
	OrderIDSnake string `json:"order_id"`
	ID           string `json:"id"`
}

type openOrderWire struct {
	OrderID       string  `json:"orderId"`
	OrderIDSnake  string  `json:"order_id"`
	ClientOrderID string  `json:"clientOrderId"`
	Side          string  `json:"side"`
	Price         flexNum `json:"price"`
	Quantity      flexNum `json:"quantity"`
}

type openOrdersWire struct {
	Orders []openOrderWire `json:"orders"`
}

// ---- gateway contract ----------------------------------------------------

// GetContractSpec 查询合约精度信息；找不到返回 ErrNotFound。
// 同时缓存价格/数量精度，供后续下单报文格式化使用。
func (c *Client) GetContractSpec(symbol string) (order.ContractSpec, error) {
	var info exchangeInfoWire
	if err := c.doJSON(http.MethodGet, c.DataAPIURL, "/market/exchange-info", nil, nil, &info, false); err != nil {
		return order.ContractSpec{}, err
	}
	contracts := info.FutureContracts
	if len(contracts) == 0 {
		contracts = info.ContractsSnake
	}
	if len(contracts) == 0 {
		contracts = info.Contracts
	}
	for _, cw := range contracts {
		if cw.Symbol != symbol {
			continue
		}
		spec := order.ContractSpec{
			Symbol:       symbol,
			TickSize:     firstNonZero(cw.TickSize, cw.TickSizeSnake),
			StepSize:     firstNonZero(cw.StepSize, cw.StepSizeSnake),
			MinQty:       firstNonZero(cw.MinOrderSize, cw.MinOrderSnake),
			MinNotional:  firstNonZero(cw.MinNotional, cw.MinNotionalSnak),
			ContractSize: firstNonZero(cw.ContractSize, cw.ContractSnake),
		}
		if spec.TickSize <= 0 {
			spec.TickSize = 0.01
		}
		if spec.StepSize <= 0 {
			spec.StepSize = 0.001
		}
		if spec.ContractSize <= 0 {
			spec.ContractSize = 1
		}
		c.pricePrec = spec.PricePrecision()
		c.qtyPrec = spec.QtyPrecision()
		return spec, nil
	}
	return order.ContractSpec{}, fmt.Errorf("contract %s: %w", symbol, ErrNotFound)
}

// SetLeverage 设置杠杆；部署不支持该接口时返回 ErrUnsupported。
func (c *Client) SetLeverage(symbol string, leverage int) error {
	body := map[string]any{
		"accountId": c.AccountID,
		"symbol":    symbol,
		"leverage":  leverage,
	}
	err := c.doJSON(http.MethodPost, c.APIURL, "/trade/account/leverage", nil, body, nil, true)
	if err != nil {
		var se *statusError
		if asStatus(err, &se) && (se.code == http.StatusNotFound || se.code == http.StatusNotImplemented) {
			return ErrUnsupported
		}
		return err
	}
	return nil
}

// CancelAllOrders 撤销该合约全部挂单。
func (c *Client) CancelAllOrders(symbol string) error {
	params := url.Values{}
	params.Set("accountId", c.AccountID)
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	return c.doJSON(http.MethodDelete, c.APIURL, "/trade/orders", params, nil, nil, true)
}

// GetAccountInfo 返回账户余额快照。
func (c *Client) GetAccountInfo() (AccountInfo, error) {
	var w accountWire
	params := url.Values{}
	params.Set("accountId", c.AccountID)
	if err := c.doJSON(http.MethodGet, c.APIURL, "/trade/account/info", params, nil, &w, true); err != nil {
		return AccountInfo{}, err
	}
	return AccountInfo{Balance: float64(w.Balance)}, nil
}

// GetPosition 返回该合约净持仓；无持仓返回 (nil, nil)。
func (c *Client) GetPosition(symbol string) (*Position, error) {
	var w positionsWire
	params := url.Values{}
	params.Set("accountId", c.AccountID)
	if err := c.doJSON(http.MethodGet, c.APIURL, "/trade/account/inventory", params, nil, &w, true); err != nil {
		return nil, err
	}
	for _, p := range w.Positions {
		if p.Symbol == symbol {
			return &Position{
				Quantity:  float64(p.Size),
				MarkPrice: firstNonZero(p.MarkPrice, p.MarkPriceSnake),
			}, nil
		}
	}
	return nil, nil
}

// GetTicker 返回最新行情；行情源为空时返回 (nil, nil)。
func (c *Client) GetTicker(symbol string) (*Ticker, error) {
	w, err := c.fetchPrices(symbol)
	if err != nil {
		return nil, err
	}
	t := &Ticker{
		LastPrice:   firstNonZero(w.LastPrice, w.LastPriceSnake),
		MarkPrice:   firstNonZero(w.MarkPrice, w.MarkPriceSnake),
		FundingRate: firstNonZero(w.FundingRate, w.FundingRateSnake),
	}
	if t.LastPrice == 0 && t.MarkPrice == 0 {
		return nil, nil
	}
	return t, nil
}

// GetMidPrice 返回参考中间价。首次调用时解析可用来源
// （prices 优先，orderbook depth-1 兜底），之后固定走同一来源。
func (c *Client) GetMidPrice(symbol string) (float64, error) {
	if c.midResolved {
		if c.midFromBook {
			return c.midFromOrderbook(symbol)
		}
		return c.midFromPrices(symbol)
	}
	if mid, err := c.midFromPrices(symbol); err == nil && mid > 0 {
		c.midResolved = true
		return mid, nil
	}
	mid, err := c.midFromOrderbook(symbol)
	if err != nil {
		return 0, err
	}
	c.midResolved = true
	c.midFromBook = true
	return mid, nil
}

func (c *Client) fetchPrices(symbol string) (pricesWire, error) {
	var w pricesWire
	params := url.Values{}
	params.Set("symbol", symbol)
	err := c.doJSON(http.MethodGet, c.DataAPIURL, "/market/data/prices", params, nil, &w, false)
	return w, err
}

func (c *Client) midFromPrices(symbol string) (float64, error) {
	w, err := c.fetchPrices(symbol)
	if err != nil {
		return 0, err
	}
	if mark := firstNonZero(w.MarkPrice, w.MarkPriceSnake); mark > 0 {
		return mark, nil
	}
	if last := firstNonZero(w.LastPrice, w.LastPriceSnake); last > 0 {
		return last, nil
	}
	return 0, fmt.Errorf("prices empty: %w", ErrNotFound)
}

func (c *Client) midFromOrderbook(symbol string) (float64, error) {
	var w orderbookWire
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("depth", "1")
	if err := c.doJSON(http.MethodGet, c.DataAPIURL, "/market/data/orderbook", params, nil, &w, false); err != nil {
		return 0, err
	}
	if len(w.Bids) == 0 || len(w.Asks) == 0 {
		return 0, fmt.Errorf("orderbook empty: %w", ErrNotFound)
	}
	bid := float64(w.Bids[0].Price)
	ask := float64(w.Asks[0].Price)
	if bid <= 0 || ask <= 0 {
		return 0, fmt.Errorf("orderbook level invalid: %w", ErrNotFound)
	}
	return (bid + ask) / 2, nil
}

// GetHistoricalBars 返回历史 K 线，oldest first。
func (c *Client) GetHistoricalBars(symbol, timeframe string, limit int) ([]OHLC, error) {
	var w klinesWire
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", timeframe)
	params.Set("limit", strconv.Itoa(limit))
	if err := c.doJSON(http.MethodGet, c.DataAPIURL, "/market/data/klines", params, nil, &w, false); err != nil {
		return nil, err
	}
	bars := make([]OHLC, 0, len(w.Klines))
	for _, k := range w.Klines {
		bars = append(bars, OHLC{
			Open:  float64(k.Open),
			High:  float64(k.High),
			Low:   float64(k.Low),
			Close: float64(k.Close),
		})
	}
	return bars, nil
}

// PlaceLimitOrder 下限价单，返回交易所订单号。实现 order.Gateway。
func (c *Client) PlaceLimitOrder(symbol string, side order.Side, price, qty float64, timeInForce string, postOnly bool, clientID string) (string, error) {
	body := map[string]any{
		"accountId":     c.AccountID,
		"symbol":        symbol,
		"side":          string(side),
		"orderType":     "LIMIT",
		"price":         strconv.FormatFloat(price, 'f', c.pricePrec, 64),
		"quantity":      strconv.FormatFloat(qty, 'f', c.qtyPrec, 64),
		"timeInForce":   timeInForce,
		"postOnly":      postOnly,
		"clientOrderId": clientID,
	}
	var ack orderAckWire
	if err := c.doJSON(http.MethodPost, c.APIURL, "/trade/order", nil, body, &ack, true); err != nil {
		return "", err
	}
	oid := firstNonEmpty(ack.OrderID, ack.OrderIDSnake, ack.ID)
	if oid == "" {
		return "", fmt.Errorf("place %s: empty orderId in ack", side)
	}
	return oid, nil
}

// CancelOrder 撤单；交易所报 not found / unknown order 时
// 包装 order.ErrUnknownOrder，调用方视为撤单成功。
func (c *Client) CancelOrder(symbol, orderID string) error {
	params := url.Values{}
	params.Set("accountId", c.AccountID)
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	err := c.doJSON(http.MethodDelete, c.APIURL, "/trade/order", params, nil, nil, true)
	if err == nil {
		return nil
	}
	var se *statusError
	if asStatus(err, &se) {
		msg := strings.ToLower(se.body)
		if se.code == http.StatusNotFound || strings.Contains(msg, "not found") || strings.Contains(msg, "unknown order") {
			return fmt.Errorf("cancel %s: %w", orderID, order.ErrUnknownOrder)
		}
	}
	return err
}

// GetOpenOrders 返回当前未成交挂单，用于成交探测。
func (c *Client) GetOpenOrders(symbol string) ([]OpenOrder, error) {
	var w openOrdersWire
	params := url.Values{}
	params.Set("accountId", c.AccountID)
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	if err := c.doJSON(http.MethodGet, c.APIURL, "/trade/orders", params, nil, &w, true); err != nil {
		return nil, err
	}
	out := make([]OpenOrder, 0, len(w.Orders))
	for _, o := range w.Orders {
		out = append(out, OpenOrder{
			OrderID:  firstNonEmpty(o.OrderID, o.OrderIDSnake),
			ClientID: o.ClientOrderID,
			Side:     o.Side,
			Price:    float64(o.Price),
			Qty:      float64(o.Quantity),
		})
	}
	return out, nil
}

// ---- transport -----------------------------------------------------------

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.code, e.body)
}

func asStatus(err error, target **statusError) bool {
	se, ok := err.(*statusError)
	if !ok {
		return false
	}
	*target = se
	return true
}

func (c *Client) doJSON(method, base, path string, params url.Values, body, out any, auth bool) error {
	if c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	endpoint := base + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}
	req, err := http.NewRequest(method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		nonce := strconv.FormatInt(time.Now().UnixNano(), 10)
		req.Header.Set("Authorization", c.APIKey)
		req.Header.Set("Hibachi-Nonce", nonce)
		req.Header.Set("Hibachi-Signature", c.sign(method+path+nonce+string(payload)))
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return connectivity(method+" "+path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) sign(msg string) string {
	h := hmac.New(sha256.New, []byte(c.PrivateKey))
	h.Write([]byte(msg))
	return fmt.Sprintf("%x", h.Sum(nil))
}
