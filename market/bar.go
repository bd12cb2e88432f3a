package market

// Bar 单根滚动 OHLC bar。引擎每周期用最新成交价原地更新，
// 不保留盘中历史。
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Closed bool
}

// Empty 尚未收到任何价格。
func (b Bar) Empty() bool { return b.Close == 0 }

// Update 用最新价刷新 bar：首个价格初始化四价，
// 之后延伸高低点并更新收盘。
func (b *Bar) Update(last float64) {
	if last <= 0 {
		return
	}
	if b.Empty() {
		*b = Bar{Open: last, High: last, Low: last, Close: last, Closed: true}
		return
	}
	b.Close = last
	if last > b.High {
		b.High = last
	}
	if last < b.Low {
		b.Low = last
	}
}
