package order

import "time"

// WindowLimiter 统计滑动 60 秒窗口内的下单次数。
// 达到上限后整个报价周期的撤单/下单动作都被跳过，而不是逐侧放行。
// 只由引擎主循环调用，无需加锁。
type WindowLimiter struct {
	cap         int
	window      time.Duration
	count       int
	windowStart time.Time

	now func() time.Time // 便于测试注入时钟
}

// DefaultMaxOrdersPerMinute 交易所侧的保守上限。
const DefaultMaxOrdersPerMinute = 30

func NewWindowLimiter(cap int, window time.Duration) *WindowLimiter {
	if cap <= 0 {
		cap = DefaultMaxOrdersPerMinute
	}
	if window <= 0 {
		window = time.Minute
	}
	return &WindowLimiter{cap: cap, window: window, now: time.Now}
}

// Allow 返回当前周期是否允许订单动作；窗口到期时先重置计数。
func (l *WindowLimiter) Allow() bool {
	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.count = 0
		l.windowStart = now
	}
	return l.count < l.cap
}

// RecordPlacement 在每次下单尝试后调用（撤单不计数）。
func (l *WindowLimiter) RecordPlacement() {
	l.count++
}

// Count 返回当前窗口内的下单次数。
func (l *WindowLimiter) Count() int {
	return l.count
}
